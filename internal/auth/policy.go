package auth

import "strings"

// Role represents an authorisation label carried in the access token.
// Roles are compared by equality only; no role implies another.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOfficer  Role = "officer"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"

	// RoleGuest stands for an unauthenticated caller.
	RoleGuest Role = "guest"
)

// ParseRole normalises a role label. Empty input becomes RoleGuest; unknown
// labels are returned lower-cased and match no section.
func ParseRole(s string) Role {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleGuest
	}
	return Role(s)
}

// IsKnown reports whether r belongs to the closed role set.
func (r Role) IsKnown() bool {
	switch r {
	case RoleAdmin, RoleOfficer, RoleManager, RoleCustomer, RoleGuest:
		return true
	}
	return false
}

// Section names a protected part of the route tree.
type Section string

const (
	SectionAdmin    Section = "admin"
	SectionOfficer  Section = "officer"
	SectionManager  Section = "manager"
	SectionCustomer Section = "customer"
	SectionStaff    Section = "staff"   // admin or officer
	SectionAccount  Section = "account" // any authenticated user
)

// Policy is the authorisation requirement of one section: either an explicit
// role set or any authenticated caller.
type Policy struct {
	Section          Section
	Roles            []Role
	AnyAuthenticated bool
}

// Permits reports whether role satisfies the policy.
func (p Policy) Permits(role Role) bool {
	if p.AnyAuthenticated {
		return true
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Policies is the static section table.
var Policies = map[Section]Policy{
	SectionAdmin:    {Section: SectionAdmin, Roles: []Role{RoleAdmin}},
	SectionOfficer:  {Section: SectionOfficer, Roles: []Role{RoleOfficer}},
	SectionManager:  {Section: SectionManager, Roles: []Role{RoleManager}},
	SectionCustomer: {Section: SectionCustomer, Roles: []Role{RoleCustomer}},
	SectionStaff:    {Section: SectionStaff, Roles: []Role{RoleAdmin, RoleOfficer}},
	SectionAccount:  {Section: SectionAccount, AnyAuthenticated: true},
}

// PolicyFor returns the policy of a section. Unknown sections permit nobody.
func PolicyFor(s Section) Policy {
	if p, ok := Policies[s]; ok {
		return p
	}
	return Policy{Section: s}
}

// Decision is the outcome of a role guard check.
type Decision int

const (
	Allow Decision = iota
	RedirectToLogin
	RenderUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_to_login"
	case RenderUnauthorized:
		return "render_unauthorized"
	default:
		return "unknown"
	}
}

// Authorize decides whether claim may enter the section described by policy.
// A missing claim is never treated as a wrong role.
func Authorize(claim *Claim, policy Policy) Decision {
	if claim == nil {
		return RedirectToLogin
	}
	if !policy.Permits(claim.Role) {
		return RenderUnauthorized
	}
	return Allow
}
