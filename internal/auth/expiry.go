package auth

import "time"

// Clock returns the current time. Read it on every evaluation, never cache it.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// IsExpired reports whether now is strictly after expiry. There is no grace
// period and no skew compensation.
func IsExpired(expiry, now time.Time) bool {
	return now.After(expiry)
}

// Expired reports whether the claim is expired at now. A nil claim is expired.
func (c *Claim) Expired(now time.Time) bool {
	if c == nil {
		return true
	}
	return IsExpired(c.ExpiresAt, now)
}
