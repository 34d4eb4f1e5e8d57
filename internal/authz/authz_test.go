package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maratonas-femininas/maratonas/internal/identity"
)

var (
	open      = Resource{}
	finalized = Resource{Finalized: true}
)

func TestCompetitionCreationIsForOrganizers(t *testing.T) {
	assert.True(t, CanCreateCompetition(identity.RoleAdmin))
	assert.True(t, CanCreateCompetition(identity.RoleCollaborator))
	assert.False(t, CanCreateCompetition(identity.RoleParticipant))
	assert.False(t, CanCreateCompetition(identity.RoleSponsor))
	assert.False(t, CanCreateCompetition(identity.RoleNone))
}

func TestFinalizeDependsOnState(t *testing.T) {
	assert.True(t, CanFinalizeCompetition(identity.RoleAdmin, open))
	assert.False(t, CanFinalizeCompetition(identity.RoleAdmin, finalized))
	assert.False(t, CanFinalizeCompetition(identity.RoleCollaborator, Resource{Affiliated: true}))
}

func TestRegisterAsParticipant(t *testing.T) {
	assert.True(t, CanRegisterAsParticipant(identity.RoleParticipant, open))
	assert.False(t, CanRegisterAsParticipant(identity.RoleParticipant, finalized))
	assert.False(t, CanRegisterAsParticipant(identity.RoleSponsor, open))
	assert.False(t, CanRegisterAsParticipant(identity.RoleAdmin, open))
}

func TestRegistrationOnBehalf(t *testing.T) {
	tests := []struct {
		name string
		role identity.Role
		res  Resource
		want bool
	}{
		{"admin open", identity.RoleAdmin, open, true},
		{"admin finalized", identity.RoleAdmin, finalized, false},
		{"affiliated collaborator", identity.RoleCollaborator, Resource{Affiliated: true}, true},
		{"outside collaborator", identity.RoleCollaborator, open, false},
		{"affiliated collaborator finalized", identity.RoleCollaborator, Resource{Affiliated: true, Finalized: true}, false},
		{"participant", identity.RoleParticipant, Resource{Affiliated: true}, false},
		{"anonymous", identity.RoleNone, Resource{Affiliated: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAddRegistrationOnBehalf(tt.role, tt.res))
		})
	}
}

func TestAnonymousIsDeniedEverything(t *testing.T) {
	for _, p := range Permissions() {
		assert.False(t, Allowed(identity.RoleNone, p, Resource{Affiliated: true}), p)
		assert.False(t, Allowed(identity.Role(99), p, Resource{Affiliated: true}), p)
	}
}

func TestGrantedMatchesPredicates(t *testing.T) {
	assert.Equal(t, []Permission{PermSponsor}, Granted(identity.RoleSponsor, open))
	assert.ElementsMatch(t,
		[]Permission{PermCreateCompetition, PermEditCompetition, PermFinalizeCompetition, PermRegisterOnBehalf, PermManageTeams},
		Granted(identity.RoleAdmin, open))
	assert.ElementsMatch(t,
		[]Permission{PermCreateCompetition, PermEditCompetition, PermManageTeams},
		Granted(identity.RoleAdmin, finalized))
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission("competitions:finalize")
	require.NoError(t, err)
	assert.Equal(t, PermFinalizeCompetition, p)

	_, err = ParsePermission("competitions:delete")
	require.Error(t, err)
	assert.False(t, Allowed(identity.RoleAdmin, Permission("competitions:delete"), open))
}
