// Package store persists lottery bets behind a narrow contract.
package store

import (
	"errors"

	"github.com/lotwire/lotwire/msg"
)

var (
	ErrWrite  = errors.New("store write failed")
	ErrClosed = errors.New("store closed")
)

// Store is the persistence contract of the lottery core. Implementations
// need not be self-synchronizing: the server serializes Append calls and
// keeps Scan from overlapping them.
type Store interface {
	// Append durably appends bets as one batch.
	Append(bets []msg.Bet) error

	// Scan returns a snapshot of all stored bets, in append order.
	Scan() ([]msg.Bet, error)

	// IsWinner reports whether a single bet won the draw.
	IsWinner(bet *msg.Bet) bool
}
