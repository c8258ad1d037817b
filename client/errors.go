package client

import "errors"

var (
	ErrClosed   = errors.New("client not connected")
	ErrRejected = errors.New("request rejected by the server")
	ErrResponse = errors.New("unexpected response type")
	ErrBetSize  = errors.New("bet does not fit a frame")
)
