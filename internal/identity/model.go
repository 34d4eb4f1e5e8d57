package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ID is an opaque account identifier. The wire form may be a JSON string or
// an integer; it is always held as a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or integer: %w", err)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("id must be a string or integer: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Identity is the authenticated subject of a session. Once established it is
// never mutated; a different role means a new session.
type Identity struct {
	ID    ID     `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	// Token is the bearer token issued by the authority, when there is one.
	Token string `json:"token,omitempty"`
}

// Validate checks that id, email and role are all present.
func (i Identity) Validate() error {
	switch {
	case strings.TrimSpace(string(i.ID)) == "":
		return fmt.Errorf("%w: missing id", ErrMalformedIdentity)
	case strings.TrimSpace(i.Email) == "":
		return fmt.Errorf("%w: missing email", ErrMalformedIdentity)
	case !i.Role.Valid():
		return fmt.Errorf("%w: missing role", ErrMalformedIdentity)
	}
	return nil
}

// DecodeIdentity parses a serialized identity and validates it. A record whose
// role field is absent or unknown is rejected.
func DecodeIdentity(data []byte) (Identity, error) {
	var raw struct {
		ID    ID      `json:"id"`
		Email string  `json:"email"`
		Role  *string `json:"role"`
		Token string  `json:"token"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}
	if raw.Role == nil {
		return Identity{}, fmt.Errorf("%w: missing role", ErrMalformedIdentity)
	}
	role, err := ParseRole(*raw.Role)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}
	ident := Identity{ID: raw.ID, Email: raw.Email, Role: role, Token: raw.Token}
	if err := ident.Validate(); err != nil {
		return Identity{}, err
	}
	return ident, nil
}

// User is a stored account on the authority side.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         Role
	PasswordHash []byte
	Institution  string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Identity projects the public part of the account.
func (u User) Identity() Identity {
	return Identity{ID: ID(u.ID), Email: u.Email, Role: u.Role}
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
}

// RegisterInput captures a self-registration request.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        Role
	Institution string
}

// NormalizeEmail lowercases and trims an address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", fmt.Errorf("invalid email %q", email)
	}
	return email, nil
}
