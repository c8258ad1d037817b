package msg

// Batch is the body of a BET request: one or more bets, each in its own
// inner frame, with the terminal one flagged last.
type Batch struct {
	Bets []Bet
}

// batch inner frame header length = payload length (4) + last flag (1)
const BATCH_HEADLEN = 5

// Reset clears the batch for reuse
func (b *Batch) Reset() *Batch {
	b.Bets = b.Bets[:0]
	return b
}

// FromBytes parses a batch envelope from raw, stopping after the entry
// flagged last. Returns the number of parsed bytes from raw.
// A truncated inner frame, an inner frame overflowing the envelope, or
// an envelope exhausted without a terminal entry gives ErrBatch.
func (b *Batch) FromBytes(raw []byte) (off int, err error) {
	b.Bets = b.Bets[:0]

	last := false
	for off < len(raw) && !last {
		data := raw[off:]
		if len(data) < BATCH_HEADLEN {
			return off, ErrBatch // truncated inner header
		}

		l := int(msb.Uint32(data[0:4]))
		last = data[4] != 0
		data = data[BATCH_HEADLEN:]
		if l > len(data) {
			return off, ErrBatch // inner frame overflows the envelope
		}
		off += BATCH_HEADLEN + l

		var bet Bet
		if err := bet.FromText(data[:l]); err != nil {
			return off, err
		}
		b.Bets = append(b.Bets, bet)
	}

	if !last {
		return off, ErrBatch // includes the empty envelope
	}
	return off, nil
}

// Marshal appends the envelope form of b to dst, flagging the terminal
// bet last. The appended envelope must fit a frame body, or ErrLength.
func (b *Batch) Marshal(dst []byte) ([]byte, error) {
	if len(b.Bets) == 0 {
		return dst, ErrBatch
	}

	start := len(dst)
	for i := range b.Bets {
		hdr := len(dst)
		dst = append(dst, 0, 0, 0, 0, 0) // inner header placeholder
		dst = b.Bets[i].AppendText(dst)
		msb.PutUint32(dst[hdr:hdr+4], uint32(len(dst)-hdr-BATCH_HEADLEN))
		if i == len(b.Bets)-1 {
			dst[hdr+4] = 1
		}
	}

	if len(dst)-start > MSG_MAXLEN {
		return dst, ErrLength
	}
	return dst, nil
}
