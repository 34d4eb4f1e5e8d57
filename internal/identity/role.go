package identity

import (
	"fmt"
	"strings"
)

// Role is the closed set of account kinds. The zero value is RoleNone, the
// role of an anonymous caller.
type Role uint8

const (
	RoleNone Role = iota
	RoleAdmin
	RoleCollaborator
	RoleParticipant
	RoleSponsor
)

var roleNames = map[Role]string{
	RoleAdmin:        "admin",
	RoleCollaborator: "collaborator",
	RoleParticipant:  "participant",
	RoleSponsor:      "sponsor",
}

// legacy tags written by the first version of the backend
var roleAliases = map[string]Role{
	"colaborador":  RoleCollaborator,
	"participante": RoleParticipant,
	"patrocinador": RoleSponsor,
}

// ParseRole maps a wire tag to a Role. Unknown or empty tags are an error.
func ParseRole(s string) (Role, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == tag {
			return r, nil
		}
	}
	if r, ok := roleAliases[tag]; ok {
		return r, nil
	}
	return RoleNone, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Roles lists every assignable role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleCollaborator, RoleParticipant, RoleSponsor}
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "none"
}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// SelfRegistrable reports whether an account of this role may be created
// without an administrator.
func (r Role) SelfRegistrable() bool {
	switch r {
	case RoleCollaborator, RoleParticipant, RoleSponsor:
		return true
	case RoleAdmin, RoleNone:
		return false
	default:
		return false
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
