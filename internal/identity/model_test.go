package identity

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseRoleAcceptsLegacyTags(t *testing.T) {
	cases := map[string]Role{
		"admin":        RoleAdmin,
		"collaborator": RoleCollaborator,
		"colaborador":  RoleCollaborator,
		"Participante": RoleParticipant,
		"sponsor":      RoleSponsor,
		"patrocinador": RoleSponsor,
	}
	for tag, want := range cases {
		got, err := ParseRole(tag)
		if err != nil {
			t.Fatalf("parse %q: %v", tag, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s got %s", tag, want, got)
		}
	}
	if _, err := ParseRole("root"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestDecodeIdentityAcceptsNumericID(t *testing.T) {
	ident, err := DecodeIdentity([]byte(`{"id":7,"email":"a@b.com","role":"admin"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ident.ID != "7" || ident.Email != "a@b.com" || ident.Role != RoleAdmin {
		t.Fatalf("unexpected identity %+v", ident)
	}
}

func TestDecodeIdentityRejectsIncompleteRecords(t *testing.T) {
	records := []string{
		`{"id":"7","email":"a@b.com"}`,
		`{"id":"7","role":"admin"}`,
		`{"email":"a@b.com","role":"admin"}`,
		`{"id":"7","email":"a@b.com","role":"root"}`,
		`{"id":1.5,"email":"a@b.com","role":"admin"}`,
		`not json`,
	}
	for _, rec := range records {
		if _, err := DecodeIdentity([]byte(rec)); !errors.Is(err, ErrMalformedIdentity) {
			t.Fatalf("record %s: expected ErrMalformedIdentity, got %v", rec, err)
		}
	}
}

func TestIdentityJSONUsesRoleTags(t *testing.T) {
	data, err := json.Marshal(Identity{ID: "7", Email: "a@b.com", Role: RoleCollaborator})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"id":"7","email":"a@b.com","role":"collaborator"}` {
		t.Fatalf("unexpected json %s", data)
	}
}
