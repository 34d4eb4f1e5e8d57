// Package authz is the single definition of who may do what. Every predicate
// is pure and total: anonymous callers (identity.RoleNone) and unknown roles
// are always denied.
package authz

import (
	"github.com/maratonas-femininas/maratonas/internal/identity"
)

// Resource is the competition context a decision depends on.
type Resource struct {
	// Finalized is true once a competition is closed, either explicitly or
	// because its date has passed.
	Finalized bool
	// Affiliated is true when the actor belongs to the team running the
	// competition.
	Affiliated bool
}

func CanCreateCompetition(role identity.Role) bool {
	return isOrganizer(role)
}

func CanEditCompetition(role identity.Role) bool {
	return isOrganizer(role)
}

func CanManageTeams(role identity.Role) bool {
	return isOrganizer(role)
}

// CanFinalizeCompetition allows admins to close a competition that is still open.
func CanFinalizeCompetition(role identity.Role, res Resource) bool {
	if res.Finalized {
		return false
	}
	switch role {
	case identity.RoleAdmin:
		return true
	case identity.RoleCollaborator, identity.RoleParticipant, identity.RoleSponsor, identity.RoleNone:
		return false
	default:
		return false
	}
}

// CanRegisterAsParticipant allows participants to enter an open competition.
func CanRegisterAsParticipant(role identity.Role, res Resource) bool {
	if res.Finalized {
		return false
	}
	switch role {
	case identity.RoleParticipant:
		return true
	case identity.RoleAdmin, identity.RoleCollaborator, identity.RoleSponsor, identity.RoleNone:
		return false
	default:
		return false
	}
}

// CanAddRegistrationOnBehalf allows admins, and collaborators of the running
// team, to register someone else into an open competition.
func CanAddRegistrationOnBehalf(role identity.Role, res Resource) bool {
	if res.Finalized {
		return false
	}
	switch role {
	case identity.RoleAdmin:
		return true
	case identity.RoleCollaborator:
		return res.Affiliated
	case identity.RoleParticipant, identity.RoleSponsor, identity.RoleNone:
		return false
	default:
		return false
	}
}

func CanSponsor(role identity.Role) bool {
	switch role {
	case identity.RoleSponsor:
		return true
	case identity.RoleAdmin, identity.RoleCollaborator, identity.RoleParticipant, identity.RoleNone:
		return false
	default:
		return false
	}
}

func isOrganizer(role identity.Role) bool {
	switch role {
	case identity.RoleAdmin, identity.RoleCollaborator:
		return true
	case identity.RoleParticipant, identity.RoleSponsor, identity.RoleNone:
		return false
	default:
		return false
	}
}
