// Package binary provides big-endian wire read/write methods.
package binary

import (
	"encoding/binary"
	"io"
)

var Msb = msb{
	binary.BigEndian,
	binary.BigEndian,
}

type msb struct {
	binary.ByteOrder
	binary.AppendByteOrder
}

func (msb) WriteUint8(w io.Writer, v uint8) (n int, err error) {
	b := [...]byte{
		byte(v),
	}
	return w.Write(b[:])
}

func (msb) WriteUint32(w io.Writer, v uint32) (n int, err error) {
	b := [...]byte{
		byte(v >> 24),
		byte(v >> 16),
		byte(v >> 8),
		byte(v),
	}
	return w.Write(b[:])
}
