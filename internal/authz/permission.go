package authz

import (
	"fmt"
	"sort"

	"github.com/maratonas-femininas/maratonas/internal/identity"
)

// Permission names one privileged action.
type Permission string

const (
	PermCreateCompetition   Permission = "competitions:create"
	PermEditCompetition     Permission = "competitions:edit"
	PermFinalizeCompetition Permission = "competitions:finalize"
	PermRegister            Permission = "registrations:self"
	PermRegisterOnBehalf    Permission = "registrations:on-behalf"
	PermSponsor             Permission = "sponsorships:create"
	PermManageTeams         Permission = "teams:manage"
)

var predicates = map[Permission]func(identity.Role, Resource) bool{
	PermCreateCompetition:   func(r identity.Role, _ Resource) bool { return CanCreateCompetition(r) },
	PermEditCompetition:     func(r identity.Role, _ Resource) bool { return CanEditCompetition(r) },
	PermFinalizeCompetition: CanFinalizeCompetition,
	PermRegister:            CanRegisterAsParticipant,
	PermRegisterOnBehalf:    CanAddRegistrationOnBehalf,
	PermSponsor:             func(r identity.Role, _ Resource) bool { return CanSponsor(r) },
	PermManageTeams:         func(r identity.Role, _ Resource) bool { return CanManageTeams(r) },
}

// Allowed dispatches to the predicate for perm. Unknown permissions are denied.
func Allowed(role identity.Role, perm Permission, res Resource) bool {
	pred, ok := predicates[perm]
	if !ok {
		return false
	}
	return pred(role, res)
}

// ParsePermission validates a permission name.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if _, ok := predicates[p]; !ok {
		return "", fmt.Errorf("unknown permission %q", s)
	}
	return p, nil
}

// Permissions lists every known permission in lexical order.
func Permissions() []Permission {
	perms := make([]Permission, 0, len(predicates))
	for p := range predicates {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// Granted lists the permissions role holds against res.
func Granted(role identity.Role, res Resource) []Permission {
	var out []Permission
	for _, p := range Permissions() {
		if Allowed(role, p, res) {
			out = append(out, p)
		}
	}
	return out
}
