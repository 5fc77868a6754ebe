// Package daycycle computes the local-calendar day boundary the board lives by.
//
// THE DAY KEY:
// Every dataset is stamped with a key like "2026-03-14" derived from the
// server's LOCAL calendar date. When the stored key no longer matches the key
// for "now", the day has rolled over and the item list is discarded. The key
// scheme only has to change exactly once per local calendar day — comparing
// strings for equality is all the reset logic ever does with it.
//
// WHY LOCAL TIME, NOT UTC?
// The board resets "at midnight" as perceived by the people using it, which
// is the server's configured timezone. Using UTC would move the reset to the
// middle of the day for most deployments.
package daycycle

import "time"

// resetSkew is added to the midnight wakeup so the timer never fires a hair
// early (a firing at 23:59:59.999 would compute yesterday's key and no-op).
const resetSkew = 50 * time.Millisecond

// minDelay is the floor for a scheduled wakeup. Guards against a zero or
// negative timer if the clock jumps while we are computing the delay.
const minDelay = time.Second

// Key returns the day key for the given instant, e.g. "2026-03-14".
// The reference layout "2006-01-02" is Go's way of specifying
// zero-padded year-month-day.
func Key(now time.Time) string {
	return now.Format("2006-01-02")
}

// NextMidnight returns the first instant of the next local calendar day.
//
// time.Date normalises out-of-range values, so passing day+1 on the last day
// of a month correctly lands on the 1st of the next month (and handles DST
// transitions, leap days, and year boundaries for free).
func NextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}

// SecondsToMidnight returns the non-negative whole seconds until the next
// local midnight. Used only for the client-facing countdown — reset
// correctness comes from the scheduled wakeup, never from this value.
func SecondsToMidnight(now time.Time) int {
	secs := int(NextMidnight(now).Sub(now) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return secs
}

// UntilReset returns how long the reset timer should sleep before its next
// firing: the time to the next midnight plus a small positive skew, with a
// one-second floor. Firing slightly late is harmless — the key comparison
// makes the reset idempotent.
func UntilReset(now time.Time) time.Duration {
	delay := NextMidnight(now).Sub(now) + resetSkew
	if delay < minDelay {
		delay = minDelay
	}
	return delay
}
