package session

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lotwire/lotwire/draw"
	"github.com/lotwire/lotwire/store"
)

// Default session options
var DefaultOptions = Options{
	Logger: log.Logger,
}

// Options configure a Session, see also DefaultOptions
type Options struct {
	Logger zerolog.Logger // use zerolog.Nop to disable logging

	Store   store.Store   // shared bet sink and source
	StoreMu *sync.RWMutex // guards Store: Lock around Append, RLock around Scan
	Draw    *draw.Draw    // shared draw readiness state
}
