package client

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default client options
var DefaultOptions = Options{
	Logger:      log.Logger,
	Addr:        "localhost:12345",
	BatchMax:    100,
	DialTimeout: 5 * time.Second,
	PollPeriod:  time.Second,
}

// Options configure a Client, see also DefaultOptions
type Options struct {
	Logger zerolog.Logger // use zerolog.Nop to disable logging

	Addr   string // server TCP address
	Agency int    // agency id announced to the server

	BatchMax    int           // max bets per BET frame, on top of the frame ceiling
	DialTimeout time.Duration // Dial() timeout
	PollPeriod  time.Duration // wait between winner polls while not ready
}
