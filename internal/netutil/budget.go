package netutil

import "time"

// Budget tracks a relative deadline measured from the moment it was started.
type Budget struct {
	start time.Time
	total time.Duration
}

func StartBudget(total time.Duration) Budget {
	if total < 0 {
		total = 0
	}
	return Budget{start: time.Now(), total: total}
}

func (b Budget) Elapsed() time.Duration { return time.Since(b.start) }

// Remaining is the unspent part of the budget, never negative.
func (b Budget) Remaining() time.Duration {
	r := b.total - time.Since(b.start)
	if r < 0 {
		return 0
	}
	return r
}

func (b Budget) Expired() bool { return time.Since(b.start) >= b.total }

// Attempt reports whether iteration i of a retry loop may run: the first
// iteration always runs, later ones only while time remains.
func (b Budget) Attempt(i int) bool { return i == 0 || !b.Expired() }
