package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsExpired(now.Add(-time.Second), now))
	assert.False(t, IsExpired(now.Add(time.Second), now))
	// Expiry equal to now is still valid
	assert.False(t, IsExpired(now, now))
}

func TestClaim_Expired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var missing *Claim
	assert.True(t, missing.Expired(now))

	claim := &Claim{Subject: "u-1", Role: RoleCustomer, ExpiresAt: now.Add(-time.Hour)}
	assert.True(t, claim.Expired(now))

	claim.ExpiresAt = now.Add(time.Hour)
	assert.False(t, claim.Expired(now))
}
