package server

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lotwire/lotwire/store"
)

// Default server options
var DefaultOptions = Options{
	Logger:        log.Logger,
	Addr:          ":12345",
	Backlog:       5,
	Agencies:      5,
	AcceptTimeout: 5 * time.Second,
	JoinTimeout:   2 * time.Second,
}

// Options configure a Server, see also DefaultOptions
type Options struct {
	Logger zerolog.Logger // use zerolog.Nop to disable logging

	Addr     string // TCP listen address
	Backlog  int    // advisory listen backlog, logged for the invoker's sake
	Agencies int    // expected agency count gating the draw

	AcceptTimeout time.Duration // listener deadline between stop-flag checks
	JoinTimeout   time.Duration // bounded wait for sessions on stop

	Store store.Store // bet persistence; required
}
