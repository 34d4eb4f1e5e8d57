package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)

	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterInput{Name: "Grace", Email: "Grace@Ex.com ", Password: "s3cret", Role: RoleParticipant})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "grace@ex.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}

	authed, err := svc.Authenticate(ctx, Credentials{Email: "grace@ex.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID || authed.Role != RoleParticipant {
		t.Fatalf("unexpected user %+v", authed)
	}
	if authed.LastLogin == nil {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@ex.com", Password: "right", Role: RoleSponsor}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, wrongPassword := svc.Authenticate(ctx, Credentials{Email: "ada@ex.com", Password: "wrong"})
	_, unknownEmail := svc.Authenticate(ctx, Credentials{Email: "nobody@ex.com", Password: "right"})
	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for both, got %v and %v", wrongPassword, unknownEmail)
	}
}

func TestRegisterRejectsAdmin(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	if _, err := svc.Register(context.Background(), RegisterInput{Name: "Root", Email: "root@ex.com", Password: "1234", Role: RoleAdmin}); err == nil {
		t.Fatalf("expected admin self-registration to fail")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	in := RegisterInput{Name: "Ana", Email: "ana@ex.com", Password: "hashA", Role: RoleCollaborator}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestSeedDemoIsRepeatable(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	first, err := svc.SeedDemo(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	second, err := svc.SeedDemo(ctx)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if len(first) != len(DemoAccounts) || len(second) != len(DemoAccounts) {
		t.Fatalf("expected %d accounts, got %d and %d", len(DemoAccounts), len(first), len(second))
	}
	if first[0].ID != second[0].ID {
		t.Fatalf("reseed created a new account")
	}

	admin, err := svc.Authenticate(ctx, Credentials{Email: "admin@ex.com", Password: "hashAdmin"})
	if err != nil {
		t.Fatalf("authenticate admin: %v", err)
	}
	if admin.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %s", admin.Role)
	}
}
