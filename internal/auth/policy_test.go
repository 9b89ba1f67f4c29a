package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleGuest, ParseRole(""))
	assert.Equal(t, RoleAdmin, ParseRole(" ADMIN "))
	assert.Equal(t, Role("superuser"), ParseRole("superuser"))
	assert.False(t, ParseRole("superuser").IsKnown())
	assert.True(t, RoleOfficer.IsKnown())
}

func TestAuthorize(t *testing.T) {
	claimFor := func(role Role) *Claim {
		return &Claim{Subject: "u-1", Role: role, ExpiresAt: time.Now().Add(time.Hour)}
	}

	tests := []struct {
		name    string
		claim   *Claim
		section Section
		want    Decision
	}{
		{"no claim redirects", nil, SectionAdmin, RedirectToLogin},
		{"no claim redirects from account", nil, SectionAccount, RedirectToLogin},
		{"admin in admin", claimFor(RoleAdmin), SectionAdmin, Allow},
		{"officer in admin", claimFor(RoleOfficer), SectionAdmin, RenderUnauthorized},
		{"officer in staff", claimFor(RoleOfficer), SectionStaff, Allow},
		{"admin in staff", claimFor(RoleAdmin), SectionStaff, Allow},
		{"manager in staff", claimFor(RoleManager), SectionStaff, RenderUnauthorized},
		{"customer in customer", claimFor(RoleCustomer), SectionCustomer, Allow},
		{"admin in customer", claimFor(RoleAdmin), SectionCustomer, RenderUnauthorized},
		{"guest in account", claimFor(RoleGuest), SectionAccount, Allow},
		{"unknown role in manager", claimFor(Role("superuser")), SectionManager, RenderUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.claim, PolicyFor(tt.section)))
		})
	}
}

func TestPolicyFor_UnknownSectionPermitsNobody(t *testing.T) {
	policy := PolicyFor(Section("billing"))
	assert.False(t, policy.Permits(RoleAdmin))
	assert.Equal(t, "render_unauthorized", RenderUnauthorized.String())
}
