// Package draw tracks which agencies finished sending bets and gates
// lottery results on all of them being done.
package draw

import "sync"

// Draw holds the set of agencies that declared finished, against a fixed
// expected count. The set only grows during a run; it resets only with
// the process.
type Draw struct {
	mu       sync.Mutex
	finished map[int]struct{}
	expected int
}

// New returns a Draw that becomes ready once expected agencies finish.
func New(expected int) *Draw {
	return &Draw{
		finished: make(map[int]struct{}),
		expected: expected,
	}
}

// Finish records that agency declared finished sending.
// Idempotent; reports whether this was the first declaration.
func (d *Draw) Finish(agency int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.finished[agency]; ok {
		return false
	}
	d.finished[agency] = struct{}{}
	return true
}

// Size returns the number of agencies that finished
func (d *Draw) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.finished)
}

// Ready reports whether every expected agency finished
func (d *Draw) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.finished) >= d.expected
}

// Expected returns the configured agency count
func (d *Draw) Expected() int {
	return d.expected
}
