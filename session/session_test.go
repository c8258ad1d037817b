package session

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lotwire/lotwire/draw"
	"github.com/lotwire/lotwire/msg"
	"github.com/lotwire/lotwire/store"
)

// stubStore keeps bets in memory; optionally fails appends.
type stubStore struct {
	bets       []msg.Bet
	winning    int
	failAppend bool
}

func (st *stubStore) Append(bets []msg.Bet) error {
	if st.failAppend {
		return store.ErrWrite
	}
	st.bets = append(st.bets, bets...)
	return nil
}

func (st *stubStore) Scan() ([]msg.Bet, error) {
	return append([]msg.Bet(nil), st.bets...), nil
}

func (st *stubStore) IsWinner(b *msg.Bet) bool {
	return b.Number == st.winning
}

func startSession(t *testing.T, st store.Store, d *draw.Draw) (net.Conn, chan error) {
	t.Helper()

	server, client := net.Pipe()
	deadline := time.Now().Add(5 * time.Second)
	server.SetDeadline(deadline)
	client.SetDeadline(deadline)

	opts := DefaultOptions
	opts.Logger = zerolog.Nop()
	opts.Store = st
	opts.StoreMu = new(sync.RWMutex)
	opts.Draw = d

	s := NewSession(server, opts)
	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	t.Cleanup(func() { client.Close() })
	return client, done
}

func roundTrip(t *testing.T, conn net.Conn, typ msg.Type, body []byte) *msg.Msg {
	t.Helper()

	req := msg.NewMsg().Set(typ, body)
	_, err := req.WriteTo(conn)
	require.NoError(t, err)

	resp := msg.NewMsg()
	_, err = resp.ReadFrom(conn)
	require.NoError(t, err)
	return resp
}

func marshalBatch(t *testing.T, bets []msg.Bet) []byte {
	t.Helper()
	b := msg.Batch{Bets: bets}
	raw, err := b.Marshal(nil)
	require.NoError(t, err)
	return raw
}

func requireClosed(t *testing.T, conn net.Conn, done chan error) {
	t.Helper()

	_, err := msg.NewMsg().ReadFrom(conn)
	require.ErrorIs(t, err, io.EOF, "session must have closed the connection")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not exit")
	}
}

func bet(agency, number int, doc string) msg.Bet {
	return msg.Bet{
		Agency:    agency,
		FirstName: "Juan",
		LastName:  "Perez",
		Document:  doc,
		Birthdate: "1990-01-01",
		Number:    number,
	}
}

func TestSession_BetBatch(t *testing.T) {
	st := &stubStore{winning: 7744}
	conn, _ := startSession(t, st, draw.New(1))

	bets := []msg.Bet{bet(1, 7744, "30111222"), bet(1, 123, "28665019")}
	resp := roundTrip(t, conn, msg.BET, marshalBatch(t, bets))
	require.Equal(t, msg.BET, resp.Type)
	require.Equal(t, msg.AckOK, resp.Data)
	require.Equal(t, bets, st.bets)
}

func TestSession_BadBatch_Closes(t *testing.T) {
	st := &stubStore{}
	conn, done := startSession(t, st, draw.New(1))

	resp := roundTrip(t, conn, msg.BET, []byte("garbage"))
	require.Equal(t, msg.BET, resp.Type)
	require.Equal(t, msg.AckFail, resp.Data)
	require.Empty(t, st.bets, "store must be unchanged")

	requireClosed(t, conn, done)
}

func TestSession_StoreFail_Closes(t *testing.T) {
	st := &stubStore{failAppend: true}
	conn, done := startSession(t, st, draw.New(1))

	resp := roundTrip(t, conn, msg.BET, marshalBatch(t, []msg.Bet{bet(1, 1, "1")}))
	require.Equal(t, msg.BET, resp.Type)
	require.Equal(t, msg.AckFail, resp.Data)

	requireClosed(t, conn, done)
}

func TestSession_UnknownType_Closes(t *testing.T) {
	conn, done := startSession(t, &stubStore{}, draw.New(1))

	resp := roundTrip(t, conn, msg.Type(9), nil)
	require.Equal(t, msg.BET, resp.Type)
	require.Equal(t, msg.AckFail, resp.Data)

	requireClosed(t, conn, done)
}

func TestSession_Finished(t *testing.T) {
	d := draw.New(2)
	conn, _ := startSession(t, &stubStore{}, d)

	resp := roundTrip(t, conn, msg.FINISHED, []byte("AGENCY_ID=1"))
	require.Equal(t, msg.FINISHED, resp.Type)
	require.Equal(t, msg.AckOK, resp.Data)
	require.Equal(t, 1, d.Size())

	// idempotent retry on the same session
	resp = roundTrip(t, conn, msg.FINISHED, []byte("AGENCY_ID=1"))
	require.Equal(t, msg.AckOK, resp.Data)
	require.Equal(t, 1, d.Size())
}

func TestSession_BadId_StaysOpen(t *testing.T) {
	d := draw.New(1)
	conn, _ := startSession(t, &stubStore{}, d)

	resp := roundTrip(t, conn, msg.FINISHED, []byte("bogus"))
	require.Equal(t, msg.FINISHED, resp.Type)
	require.Equal(t, msg.AckFail, resp.Data)

	// the next frame proceeds on the same connection
	resp = roundTrip(t, conn, msg.FINISHED, []byte("AGENCY_ID=1"))
	require.Equal(t, msg.AckOK, resp.Data)
	require.Equal(t, 1, d.Size())
}

func TestSession_WinnersNotReady_StaysOpen(t *testing.T) {
	d := draw.New(2)
	conn, _ := startSession(t, &stubStore{}, d)

	resp := roundTrip(t, conn, msg.FINISHED, []byte("AGENCY_ID=1"))
	require.Equal(t, msg.AckOK, resp.Data)

	resp = roundTrip(t, conn, msg.WINNERS_REQ, []byte("AGENCY_ID=1"))
	require.Equal(t, msg.NOT_READY, resp.Type)
	require.Equal(t, []byte("WINNERS="), resp.Data)

	// still open: a retry is served
	resp = roundTrip(t, conn, msg.WINNERS_REQ, []byte("AGENCY_ID=1"))
	require.Equal(t, msg.NOT_READY, resp.Type)
}

func TestSession_Winners(t *testing.T) {
	st := &stubStore{
		winning: 7574,
		bets: []msg.Bet{
			bet(1, 7574, "30111222"),
			bet(2, 7574, "28665019"),
			bet(1, 1234, "11111111"),
			bet(1, 7574, "30904465"),
		},
	}
	d := draw.New(1)
	d.Finish(1)
	conn, _ := startSession(t, st, d)

	resp := roundTrip(t, conn, msg.WINNERS_REQ, []byte("AGENCY_ID=1"))
	require.Equal(t, msg.WINNERS, resp.Type)

	docs, err := msg.ParseWinners(resp.Data)
	require.NoError(t, err)
	require.Equal(t, []string{"30111222", "30904465"}, docs,
		"winners must keep scan order and filter by agency")
}

func TestSession_Winners_Empty(t *testing.T) {
	st := &stubStore{winning: 7574, bets: []msg.Bet{bet(1, 1, "30111222")}}
	d := draw.New(1)
	d.Finish(1)
	conn, _ := startSession(t, st, d)

	resp := roundTrip(t, conn, msg.WINNERS_REQ, []byte("AGENCY_ID=1"))
	require.Equal(t, msg.WINNERS, resp.Type)
	require.Equal(t, []byte("WINNERS="), resp.Data)
}

func TestSession_PeerDisconnect(t *testing.T) {
	conn, done := startSession(t, &stubStore{}, draw.New(1))

	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		require.NoError(t, err, "a clean disconnect is not an error")
	case <-time.After(2 * time.Second):
		t.Fatal("session did not exit")
	}
}

func TestSession_Kill_Unblocks(t *testing.T) {
	server, client := net.Pipe()

	opts := DefaultOptions
	opts.Logger = zerolog.Nop()
	opts.Store = &stubStore{}
	opts.StoreMu = new(sync.RWMutex)
	opts.Draw = draw.New(1)

	s := NewSession(server, opts)
	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	// blocked waiting for a frame
	time.Sleep(10 * time.Millisecond)
	s.Kill()

	select {
	case <-done:
		require.Equal(t, STATE_CLOSED, s.State())
	case <-time.After(2 * time.Second):
		t.Fatal("kill did not unblock the session")
	}
	client.Close()
}
