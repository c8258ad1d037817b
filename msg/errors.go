package msg

import "errors"

var (
	// generic errors
	ErrType   = errors.New("invalid type")
	ErrValue  = errors.New("invalid value")
	ErrLength = errors.New("invalid length")

	ErrBet      = errors.New("malformed bet")
	ErrBatch    = errors.New("malformed batch")
	ErrAgencyId = errors.New("malformed agency id")
	ErrAck      = errors.New("invalid ack")
	ErrWinners  = errors.New("invalid winners list")
)
