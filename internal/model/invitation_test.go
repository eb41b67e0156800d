package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvitationIsPending(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	pending := Invitation{Status: InvitationStatusPending, ExpiresAt: future}
	assert.True(t, pending.IsPending())

	// A pending invitation past its expiry can no longer be accepted
	stale := Invitation{Status: InvitationStatusPending, ExpiresAt: past}
	assert.False(t, stale.IsPending())

	for _, status := range []string{
		InvitationStatusAccepted,
		InvitationStatusRevoked,
		InvitationStatusExpired,
	} {
		inv := Invitation{Status: status, ExpiresAt: future}
		assert.False(t, inv.IsPending(), status)
	}
}

func TestInvitationEmailMatches(t *testing.T) {
	inv := Invitation{Email: "invitee@example.com"}

	assert.True(t, inv.EmailMatches("invitee@example.com"))
	assert.True(t, inv.EmailMatches("Invitee@Example.COM"))
	assert.False(t, inv.EmailMatches("other@example.com"))
	assert.False(t, inv.EmailMatches(""))
}
