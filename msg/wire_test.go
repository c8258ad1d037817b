package msg

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func appendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func makeFrame(typ Type, body []byte) []byte {
	buf := appendUint32(nil, uint32(len(body)))
	buf = append(buf, byte(typ))
	return append(buf, body...)
}

func TestMsg_FromBytes_Valid(t *testing.T) {
	body := []byte("AGENCY_ID=1")
	raw := makeFrame(FINISHED, body)

	m := NewMsg()
	off, err := m.FromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, len(raw), off)
	require.Equal(t, FINISHED, m.Type)
	require.Equal(t, body, m.Data)
}

func TestMsg_FromBytes_ZeroBody(t *testing.T) {
	raw := makeFrame(WINNERS_REQ, nil)

	m := NewMsg()
	off, err := m.FromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, MSG_HEADLEN, off)
	require.Equal(t, WINNERS_REQ, m.Type)
	require.Nil(t, m.Data)
}

func TestMsg_FromBytes_Truncated(t *testing.T) {
	m := NewMsg()
	_, err := m.FromBytes([]byte{0x00})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	raw := makeFrame(BET, []byte("12345"))
	_, err = m.FromBytes(raw[:len(raw)-2])
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestMsg_FromBytes_Oversize(t *testing.T) {
	raw := appendUint32(nil, 10000)
	raw = append(raw, byte(BET))

	m := NewMsg()
	off, err := m.FromBytes(raw)
	require.ErrorIs(t, err, ErrLength)
	require.Equal(t, MSG_HEADLEN, off)
}

func TestMsg_ReadFrom_Stream(t *testing.T) {
	var buf bytes.Buffer
	first := NewMsg().Set(BET, []byte("payload"))
	_, err := first.WriteTo(&buf)
	require.NoError(t, err)
	second := NewMsg().Set(WINNERS_REQ, []byte("AGENCY_ID=3"))
	_, err = second.WriteTo(&buf)
	require.NoError(t, err)

	m := NewMsg()
	n, err := m.ReadFrom(&buf)
	require.NoError(t, err)
	require.EqualValues(t, first.Length(), n)
	require.Equal(t, BET, m.Type)
	require.Equal(t, []byte("payload"), m.Data)

	m.Reset()
	_, err = m.ReadFrom(&buf)
	require.NoError(t, err)
	require.Equal(t, WINNERS_REQ, m.Type)
	require.Equal(t, []byte("AGENCY_ID=3"), m.Data)

	// clean end of stream between frames
	m.Reset()
	_, err = m.ReadFrom(&buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestMsg_ReadFrom_MidHeader(t *testing.T) {
	m := NewMsg()
	_, err := m.ReadFrom(bytes.NewReader([]byte{0x00, 0x00}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestMsg_ReadFrom_MidBody(t *testing.T) {
	raw := makeFrame(BET, []byte("abcdef"))

	m := NewMsg()
	_, err := m.ReadFrom(bytes.NewReader(raw[:len(raw)-3]))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// header complete, body missing entirely
	m.Reset()
	_, err = m.ReadFrom(bytes.NewReader(raw[:MSG_HEADLEN]))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// countReader serves its buffer and counts reads attempted past it
type countReader struct {
	data  []byte
	off   int
	extra int
}

func (r *countReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		r.extra++
		return 0, io.EOF
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}

func TestMsg_ReadFrom_Oversize_NoBodyRead(t *testing.T) {
	head := appendUint32(nil, 10000)
	head = append(head, byte(BET))

	r := &countReader{data: head}
	m := NewMsg()
	_, err := m.ReadFrom(r)
	require.ErrorIs(t, err, ErrLength)
	require.Zero(t, r.extra, "body bytes were requested")
}

func TestMsg_WriteTo_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	m := NewMsg().Set(WINNERS, []byte("WINNERS=30111222"))
	m2 := NewMsg()

	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, m.Length(), n)

	off, err := m2.FromBytes(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, buf.Len(), off)
	require.Equal(t, m.Type, m2.Type)
	require.Equal(t, m.Data, m2.Data)
}

func TestMsg_WriteTo_MaxBody(t *testing.T) {
	var buf bytes.Buffer
	m := NewMsg().Set(BET, bytes.Repeat([]byte{0x41}, MSG_MAXLEN))

	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, MSG_MAXLEN+MSG_HEADLEN, n)

	m2 := NewMsg()
	off, err := m2.FromBytes(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, buf.Len(), off)
	require.Equal(t, m.Data, m2.Data)
}

func TestMsg_WriteTo_Oversize(t *testing.T) {
	var buf bytes.Buffer
	m := NewMsg().Set(BET, make([]byte, MSG_MAXLEN+1))

	_, err := m.WriteTo(&buf)
	require.ErrorIs(t, err, ErrLength)
	require.Zero(t, buf.Len(), "header bytes were written")
}

func TestType_Strings(t *testing.T) {
	for _, typ := range []Type{BET, FINISHED, WINNERS_REQ, WINNERS, NOT_READY} {
		back, err := TypeString(typ.String())
		require.NoError(t, err)
		require.Equal(t, typ, back)
	}

	_, err := TypeString("BOGUS")
	require.ErrorIs(t, err, ErrType)
	require.Equal(t, "Type(9)", Type(9).String())
}
