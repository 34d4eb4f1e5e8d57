package identity

import "errors"

var (
	// ErrUnknownRole is returned for role tags outside the closed set.
	ErrUnknownRole = errors.New("unknown role")

	// ErrMalformedIdentity marks an identity record missing id, email or role.
	ErrMalformedIdentity = errors.New("malformed identity")

	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrUserExists   = errors.New("user exists")
	ErrUserNotFound = errors.New("user not found")
)
