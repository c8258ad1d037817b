// Package session implements the per-connection protocol state machine.
package session

import (
	"bufio"
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/lotwire/lotwire/msg"
)

// Session serves one client connection: it reads frames, dispatches them
// by type, and writes responses, strictly one frame at a time.
type Session struct {
	zerolog.Logger

	Options Options // options; do not modify after Run()

	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer

	state State
	seq   int64  // request frames received
	buf   []byte // response body scratch

	req   msg.Msg // request frame, reused
	resp  msg.Msg // response frame, reused
	batch msg.Batch
}

// State tracks where in the request loop a session is
type State int

const (
	STATE_INVALID State = iota // by default, we're nowhere

	STATE_READING  // waiting for a request frame
	STATE_DISPATCH // acting on a parsed request
	STATE_WRITING  // writing the response frame
	STATE_CLOSED   // terminal
)

// String converts State to string
func (st State) String() string {
	switch st {
	case STATE_READING:
		return "READING"
	case STATE_DISPATCH:
		return "DISPATCH"
	case STATE_WRITING:
		return "WRITING"
	case STATE_CLOSED:
		return "CLOSED"
	default:
		return "INVALID"
	}
}

// NewSession returns a session serving conn, configured by opts.
func NewSession(conn net.Conn, opts Options) *Session {
	s := &Session{
		Options: opts,
		conn:    conn,
		br:      bufio.NewReader(conn),
		bw:      bufio.NewWriter(conn),
	}
	s.Logger = opts.Logger.With().
		Str("peer", conn.RemoteAddr().String()).
		Logger()
	return s
}

// State returns the session state. Only stable after Run returns.
func (s *Session) State() State {
	return s.state
}

// Run serves the connection until the peer disconnects, a fatal error
// occurs, or the connection is killed. The connection is closed on return.
func (s *Session) Run() error {
	defer s.Close()

	for {
		s.state = STATE_READING
		s.req.Reset()
		if _, err := s.req.ReadFrom(s.br); err != nil {
			if err == io.EOF || errors.Is(err, net.ErrClosed) {
				s.Debug().Int64("frames", s.seq).Msg("session ended")
				return nil
			}
			s.Warn().Err(err).Msg("invalid frame")
			return err
		}
		s.seq++
		s.req.Seq = s.seq
		s.req.Time = time.Now()

		s.state = STATE_DISPATCH
		last := s.dispatch(&s.req)

		s.state = STATE_WRITING
		if err := s.writeResp(); err != nil {
			s.Warn().Err(err).Msg("response write failed")
			return err
		}

		if last {
			return nil
		}
	}
}

// Close closes the connection; safe to call more than once.
func (s *Session) Close() error {
	s.state = STATE_CLOSED
	return s.conn.Close()
}

// Kill force-closes the connection, unblocking any pending session I/O.
// Safe to call from other goroutines.
func (s *Session) Kill() {
	s.conn.Close()
}

// dispatch acts on request m and prepares the response frame.
// Returns true when the session must close after the response is written.
func (s *Session) dispatch(m *msg.Msg) (last bool) {
	switch m.Type {
	case msg.BET:
		return s.onBet(m)
	case msg.FINISHED:
		return s.onFinished(m)
	case msg.WINNERS_REQ:
		return s.onWinners(m)
	default:
		s.Warn().Stringer("type", m.Type).Msg("unknown message type")
		s.setResp(msg.BET, msg.AckFail)
		return true
	}
}

func (s *Session) onBet(m *msg.Msg) (last bool) {
	opts := &s.Options

	if _, err := s.batch.FromBytes(m.Data); err != nil {
		s.Warn().Err(err).Int64("seq", m.Seq).Msg("bad batch")
		s.setResp(msg.BET, msg.AckFail)
		return true
	}

	opts.StoreMu.Lock()
	err := opts.Store.Append(s.batch.Bets)
	opts.StoreMu.Unlock()
	if err != nil {
		s.Error().Err(err).Int("bets", len(s.batch.Bets)).Msg("store append failed")
		s.setResp(msg.BET, msg.AckFail)
		return true
	}

	s.Info().Int("bets", len(s.batch.Bets)).Msg("batch stored")
	s.setResp(msg.BET, msg.AckOK)
	return false
}

func (s *Session) onFinished(m *msg.Msg) (last bool) {
	opts := &s.Options

	agency, err := msg.ParseAgencyId(m.Data)
	if err != nil {
		s.Warn().Err(err).Msg("bad finished notice")
		s.setResp(msg.FINISHED, msg.AckFail)
		return false // the next frame may proceed
	}

	if opts.Draw.Finish(agency) {
		s.Info().Int("agency", agency).Int("finished", opts.Draw.Size()).
			Msg("agency finished sending")
		if opts.Draw.Ready() {
			s.Info().Int("agencies", opts.Draw.Size()).Msg("lottery results ready")
		}
	}
	s.setResp(msg.FINISHED, msg.AckOK)
	return false
}

func (s *Session) onWinners(m *msg.Msg) (last bool) {
	opts := &s.Options

	agency, err := msg.ParseAgencyId(m.Data)
	if err != nil {
		s.Warn().Err(err).Msg("bad winners request")
		s.setResp(msg.WINNERS_REQ, msg.AckFail)
		return false
	}

	if !opts.Draw.Ready() {
		s.Debug().Int("agency", agency).Msg("winners requested before all finished")
		s.buf = msg.AppendWinners(s.buf[:0], nil)
		s.setResp(msg.NOT_READY, s.buf)
		return false
	}

	opts.StoreMu.RLock()
	bets, err := opts.Store.Scan()
	opts.StoreMu.RUnlock()
	if err != nil {
		s.Error().Err(err).Msg("store scan failed")
		s.setResp(msg.WINNERS_REQ, msg.AckFail)
		return true
	}

	// winners keep the scan order
	var docs []string
	for i := range bets {
		bet := &bets[i]
		if bet.Agency == agency && opts.Store.IsWinner(bet) {
			docs = append(docs, bet.Document)
		}
	}

	s.Info().Int("agency", agency).Int("winners", len(docs)).Msg("winners sent")
	s.buf = msg.AppendWinners(s.buf[:0], docs)
	s.setResp(msg.WINNERS, s.buf)
	return false
}

func (s *Session) setResp(typ msg.Type, body []byte) {
	s.resp.Reset()
	s.resp.Set(typ, body)
}

func (s *Session) writeResp() error {
	if _, err := s.resp.WriteTo(s.bw); err != nil {
		return err
	}
	return s.bw.Flush()
}
