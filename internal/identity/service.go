package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 4

// Service manages account lifecycle and password verification.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register creates a self-registered account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	if !in.Role.SelfRegistrable() {
		return User{}, fmt.Errorf("role %s cannot self-register", in.Role)
	}
	return s.create(ctx, in)
}

// Provision creates an account of any role. It is meant for seeding and
// administrative tooling, not for public endpoints.
func (s *Service) Provision(ctx context.Context, in RegisterInput) (User, error) {
	if !in.Role.Valid() {
		return User{}, ErrUnknownRole
	}
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in RegisterInput) (User, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return User{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return User{}, errors.New("name is required")
	}
	if len(in.Password) < minPasswordLength {
		return User{}, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Role:         in.Role,
		PasswordHash: hash,
		Institution:  strings.TrimSpace(in.Institution),
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies an email/password pair. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.repo.TouchLogin(ctx, user.ID, now); err != nil {
		return User{}, err
	}
	user.LastLogin = &now

	return user, nil
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// DemoAccounts are the accounts seeded in development environments.
var DemoAccounts = []RegisterInput{
	{Name: "Admin", Email: "admin@ex.com", Password: "hashAdmin", Role: RoleAdmin},
	{Name: "Ana", Email: "ana@ex.com", Password: "hashA", Role: RoleCollaborator, Institution: "UFMG"},
	{Name: "Fernanda", Email: "fernanda@ex.com", Password: "hashF", Role: RoleParticipant, Institution: "USP"},
	{Name: "Meninas Comp", Email: "contato@meninascomp.com", Password: "hash_meninascomp", Role: RoleSponsor},
}

// SeedDemo provisions DemoAccounts, skipping the ones that already exist.
func (s *Service) SeedDemo(ctx context.Context) ([]User, error) {
	var users []User
	for _, in := range DemoAccounts {
		user, err := s.Provision(ctx, in)
		if errors.Is(err, ErrUserExists) {
			existing, ferr := s.repo.FindByEmail(ctx, in.Email)
			if ferr != nil {
				return nil, ferr
			}
			users = append(users, existing)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", in.Email, err)
		}
		users = append(users, user)
	}
	return users, nil
}
