package server

import "errors"

var (
	ErrStarted = errors.New("server already started")
	ErrStopped = errors.New("server stopped")
	ErrNoStore = errors.New("no bet store configured")
)
