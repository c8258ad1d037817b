// Package msg represents messages of the lottery wire protocol.
package msg

import (
	"io"
	"strconv"
	"time"

	"github.com/lotwire/lotwire/binary"
)

// Msg represents a single protocol frame: a typed message with a raw body.
// Use NewMsg to get a new valid object.
type Msg struct {
	// internal
	ref bool   // true iff Data is a reference we don't own
	buf []byte // internal buffer

	// optional metadata
	Seq  int64     // sequence number on the connection
	Time time.Time // message timestamp

	// raw contents
	Type Type   // message type
	Data []byte // message body (referenced or owned), can be nil
}

// message type
type Type byte

const (
	INVALID     Type = 0 // NOT DEFINED / INVALID
	BET         Type = 1 // bet batch upload; response carries an ack body
	FINISHED    Type = 2 // agency finished sending; response carries an ack body
	WINNERS_REQ Type = 3 // winners query for one agency
	WINNERS     Type = 4 // winners list
	NOT_READY   Type = 5 // lottery not drawn yet
)

const (
	// frame header length = body length (4) + type (1)
	MSG_HEADLEN = 5

	// maximum body length, both directions
	MSG_MAXLEN = 8192
)

var msb = binary.Msb

// NewMsg returns new empty message
func NewMsg() *Msg {
	return new(Msg)
}

// Reset clears the message
func (msg *Msg) Reset() *Msg {
	msg.ref = false
	if cap(msg.buf) < 1024*1024 {
		msg.buf = msg.buf[:0] // NB: re-use iff < 1MiB
	} else {
		msg.buf = nil
	}

	msg.Seq = 0
	msg.Time = time.Time{}

	msg.Type = 0
	msg.Data = nil

	return msg
}

// Length returns total frame length, including the header
func (msg *Msg) Length() int {
	return len(msg.Data) + MSG_HEADLEN
}

// Set updates the type and makes the body reference data
func (msg *Msg) Set(typ Type, data []byte) *Msg {
	msg.Type = typ
	return msg.SetData(data)
}

// SetData updates the body to reference given value
func (msg *Msg) SetData(data []byte) *Msg {
	msg.Data = data
	msg.ref = data != nil
	return msg
}

// CopyData copies the referenced body iff needed and makes msg the owner
func (msg *Msg) CopyData() *Msg {
	if !msg.ref {
		return msg // already owned
	}
	msg.ref = false

	if msg.Data == nil {
		return msg
	}
	msg.buf = append(msg.buf[:0], msg.Data...)
	msg.Data = msg.buf
	return msg
}

// FromBytes parses one frame from raw. Does not copy the body.
// Returns the number of parsed bytes from raw.
func (msg *Msg) FromBytes(raw []byte) (off int, err error) {
	// enough data for length + type?
	if len(raw) < MSG_HEADLEN {
		return off, io.ErrUnexpectedEOF
	}

	l := int(msb.Uint32(raw[0:4]))
	msg.Type = Type(raw[4])
	off = MSG_HEADLEN

	// check length
	if l > MSG_MAXLEN {
		return off, ErrLength
	}
	data := raw[off:]
	if l > len(data) {
		return off, io.ErrUnexpectedEOF
	}

	// reference the body, if any
	if l > 0 {
		msg.ref = true
		msg.Data = data[:l]
	} else {
		msg.ref = false
		msg.Data = nil
	}

	return off + l, nil
}

// ReadFrom reads one frame from r, implementing io.ReaderFrom.
// Returns io.EOF iff the stream ended cleanly before any header byte;
// an end mid-header or mid-body gives io.ErrUnexpectedEOF. An announced
// body longer than MSG_MAXLEN gives ErrLength without reading any body byte.
func (msg *Msg) ReadFrom(r io.Reader) (n int64, err error) {
	var hdr [MSG_HEADLEN]byte
	m, err := io.ReadFull(r, hdr[:])
	n = int64(m)
	if err != nil {
		return n, err // io.EOF iff closed between frames
	}

	l := int(msb.Uint32(hdr[0:4]))
	msg.Type = Type(hdr[4])
	if l > MSG_MAXLEN {
		return n, ErrLength
	}

	// read the body into the internal buffer
	msg.ref = false
	if cap(msg.buf) < l {
		msg.buf = make([]byte, l)
	} else {
		msg.buf = msg.buf[:l]
	}
	m, err = io.ReadFull(r, msg.buf)
	n += int64(m)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF // body missing entirely
		}
		return n, err
	}

	if l > 0 {
		msg.Data = msg.buf
	} else {
		msg.Data = nil
	}
	return n, nil
}

// WriteTo writes the frame to w, implementing io.WriterTo
func (msg *Msg) WriteTo(w io.Writer) (n int64, err error) {
	var m int

	// body length ok?
	l := len(msg.Data)
	if l > MSG_MAXLEN {
		return 0, ErrLength
	}

	// write body length
	m, err = msb.WriteUint32(w, uint32(l))
	if err != nil {
		return
	}
	n += int64(m)

	// write type
	m, err = msb.WriteUint8(w, uint8(msg.Type))
	if err != nil {
		return
	}
	n += int64(m)

	// write body?
	if l > 0 {
		m, err = w.Write(msg.Data)
		if err != nil {
			return
		}
		n += int64(m)
	}

	// done
	return
}

// String describes msg for logs
func (msg *Msg) String() string {
	return msg.Type.String() + "[" + strconv.Itoa(len(msg.Data)) + "]"
}

// String converts Type to string
func (t Type) String() string {
	switch t {
	case BET:
		return "BET"
	case FINISHED:
		return "FINISHED"
	case WINNERS_REQ:
		return "WINNERS_REQ"
	case WINNERS:
		return "WINNERS"
	case NOT_READY:
		return "NOT_READY"
	default:
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
}

// TypeString converts string to Type
func TypeString(s string) (Type, error) {
	switch s {
	case "BET":
		return BET, nil
	case "FINISHED":
		return FINISHED, nil
	case "WINNERS_REQ":
		return WINNERS_REQ, nil
	case "WINNERS":
		return WINNERS, nil
	case "NOT_READY":
		return NOT_READY, nil
	default:
		return INVALID, ErrType
	}
}
