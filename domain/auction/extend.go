package auction

import "time"

// FirstEnd returns the deadline set by the bid that starts the auction clock.
func FirstEnd(now time.Time, bidPeriod time.Duration) time.Time {
	return now.Add(bidPeriod)
}

// ExtendedEnd applies the anti-snipe rule to an accepted bid at time now.
// A bid arriving within snipeWindow of the deadline pushes the deadline to
// now + bidPeriod, so every accepted bid leaves at least one full bid period
// for a counter-bid. Bids arriving earlier never move the deadline, and the
// deadline never moves backwards.
//
// snipeWindow <= 0 means the window equals one bid period.
func ExtendedEnd(current time.Time, now time.Time, bidPeriod, snipeWindow time.Duration) time.Time {
	if snipeWindow <= 0 {
		snipeWindow = bidPeriod
	}
	if current.Sub(now) > snipeWindow {
		return current
	}
	if candidate := now.Add(bidPeriod); candidate.After(current) {
		return candidate
	}
	return current
}
