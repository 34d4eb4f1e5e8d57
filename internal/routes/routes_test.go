package routes

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maratonas-femininas/maratonas/internal/config"
	"github.com/maratonas-femininas/maratonas/internal/identity"
	"github.com/maratonas-femininas/maratonas/internal/logging"
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	cfg := config.Config{
		AppEnv:         "development",
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
		LoginRateLimit: 20,
		SeedDemoUsers:  true,
		IdempotencyTTL: time.Minute,
	}
	if err := Setup(app, Deps{Cfg: cfg, Cache: cache, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if method != fiber.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, payload
}

func login(t *testing.T, app *fiber.App, email, password string) (identity.Identity, string) {
	t.Helper()
	status, body := call(t, app, fiber.MethodPost, "/api/v1/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	if status != fiber.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, status, body)
	}
	ident, err := identity.DecodeIdentity(body)
	if err != nil {
		t.Fatalf("decode identity: %v", err)
	}
	return ident, ident.Token
}

func TestLoginReturnsIdentity(t *testing.T) {
	app := setupApp(t)
	ident, token := login(t, app, "fernanda@ex.com", "hashF")
	if ident.Role != identity.RoleParticipant || ident.Email != "fernanda@ex.com" {
		t.Fatalf("unexpected identity %+v", ident)
	}
	if token == "" {
		t.Fatalf("expected a bearer token")
	}

	status, body := call(t, app, fiber.MethodGet, "/api/v1/me", token, "")
	if status != fiber.StatusOK {
		t.Fatalf("me: status %d body %s", status, body)
	}
	me, err := identity.DecodeIdentity(body)
	if err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.ID != ident.ID {
		t.Fatalf("me returned %s, want %s", me.ID, ident.ID)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	app := setupApp(t)
	wrongPass, body1 := call(t, app, fiber.MethodPost, "/api/v1/auth/login", "", `{"email":"ana@ex.com","password":"nope"}`)
	unknown, body2 := call(t, app, fiber.MethodPost, "/api/v1/auth/login", "", `{"email":"ghost@ex.com","password":"nope"}`)
	if wrongPass != fiber.StatusUnauthorized || unknown != fiber.StatusUnauthorized {
		t.Fatalf("expected 401s, got %d and %d", wrongPass, unknown)
	}
	if string(body1) != string(body2) {
		t.Fatalf("expected identical bodies, got %s and %s", body1, body2)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	app := setupApp(t)
	_, token := login(t, app, "admin@ex.com", "hashAdmin")

	if status, body := call(t, app, fiber.MethodPost, "/api/v1/auth/logout", token, ""); status != fiber.StatusOK {
		t.Fatalf("logout: status %d body %s", status, body)
	}
	if status, _ := call(t, app, fiber.MethodGet, "/api/v1/me", token, ""); status != fiber.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", status)
	}
}

func TestServerEnforcesPermissions(t *testing.T) {
	app := setupApp(t)
	_, participant := login(t, app, "fernanda@ex.com", "hashF")
	_, sponsor := login(t, app, "contato@meninascomp.com", "hash_meninascomp")
	_, collaborator := login(t, app, "ana@ex.com", "hashA")

	status, body := call(t, app, fiber.MethodGet, "/api/v1/competitions", participant, "")
	if status != fiber.StatusOK {
		t.Fatalf("list: status %d body %s", status, body)
	}
	var list []struct {
		ID     string `json:"id"`
		TeamID string `json:"team_id"`
	}
	if err := json.Unmarshal(body, &list); err != nil || len(list) == 0 {
		t.Fatalf("expected seeded competitions, got %s (%v)", body, err)
	}
	compID := list[0].ID

	create := `{"name":"Nova","date":"2099-01-01","team_id":"` + list[0].TeamID + `"}`
	if status, _ := call(t, app, fiber.MethodPost, "/api/v1/competitions", participant, create); status != fiber.StatusForbidden {
		t.Fatalf("participant create: expected 403 got %d", status)
	}
	if status, body := call(t, app, fiber.MethodPost, "/api/v1/competitions", collaborator, create); status != fiber.StatusCreated {
		t.Fatalf("collaborator create: status %d body %s", status, body)
	}

	reg := "/api/v1/competitions/" + compID + "/registrations"
	if status, _ := call(t, app, fiber.MethodPost, reg, sponsor, `{}`); status != fiber.StatusForbidden {
		t.Fatalf("sponsor self-registration: expected 403 got %d", status)
	}
	if status, body := call(t, app, fiber.MethodPost, reg, participant, `{"category":"iniciante"}`); status != fiber.StatusCreated {
		t.Fatalf("participant registration: status %d body %s", status, body)
	}
	if status, _ := call(t, app, fiber.MethodPost, reg, participant, `{}`); status != fiber.StatusConflict {
		t.Fatalf("duplicate registration: expected 409 got %d", status)
	}

	finalize := "/api/v1/competitions/" + compID + "/finalize"
	if status, _ := call(t, app, fiber.MethodPost, finalize, collaborator, ""); status != fiber.StatusForbidden {
		t.Fatalf("collaborator finalize: expected 403 got %d", status)
	}

	if status, _ := call(t, app, fiber.MethodGet, "/api/v1/competitions/"+uuid.NewString(), participant, ""); status != fiber.StatusNotFound {
		t.Fatalf("unknown competition: expected 404 got %d", status)
	}
}

func TestCompetitionViewListsPermissions(t *testing.T) {
	app := setupApp(t)
	_, collaborator := login(t, app, "ana@ex.com", "hashA")

	_, body := call(t, app, fiber.MethodGet, "/api/v1/competitions", collaborator, "")
	var list []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &list); err != nil || len(list) == 0 {
		t.Fatalf("list: %s", body)
	}

	status, body := call(t, app, fiber.MethodGet, "/api/v1/competitions/"+list[0].ID, collaborator, "")
	if status != fiber.StatusOK {
		t.Fatalf("get: status %d body %s", status, body)
	}
	var view struct {
		Permissions []string `json:"permissions"`
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]bool{"registrations:on-behalf": false, "competitions:edit": false}
	for _, p := range view.Permissions {
		if _, ok := want[p]; ok {
			want[p] = true
		}
		if p == "competitions:finalize" || p == "registrations:self" {
			t.Fatalf("collaborator must not hold %s", p)
		}
	}
	for p, seen := range want {
		if !seen {
			t.Fatalf("expected permission %s in %v", p, view.Permissions)
		}
	}
}

func TestErrorsAreJSON(t *testing.T) {
	app := setupApp(t)
	status, body := call(t, app, fiber.MethodGet, "/api/v1/me", "", "")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", status)
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		t.Fatalf("expected error body, got %s", body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := setupApp(t)

	status, body := call(t, app, fiber.MethodGet, "/healthz", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("healthz: expected 200 got %d: %s", status, body)
	}
	var health struct {
		Status map[string]string `json:"status"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status["postgres"] != "disabled" || health.Status["redis"] != "ok" {
		t.Fatalf("unexpected health %+v", health.Status)
	}

	login(t, app, "ana@ex.com", "hashA")
	status, body = call(t, app, fiber.MethodGet, "/metrics", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("metrics: expected 200 got %d", status)
	}
	if !strings.Contains(string(body), "login_attempts_total") {
		t.Fatalf("expected login counter in metrics output")
	}
}

func TestTeamListingIsOpenButManagementIsGated(t *testing.T) {
	app := setupApp(t)
	_, token := login(t, app, "fernanda@ex.com", "hashF")

	status, body := call(t, app, fiber.MethodGet, "/api/v1/teams", token, "")
	if status != fiber.StatusOK {
		t.Fatalf("participant listing teams: expected 200 got %d: %s", status, body)
	}
	var teams []map[string]any
	if err := json.Unmarshal(body, &teams); err != nil || len(teams) == 0 {
		t.Fatalf("expected the seeded team, got %s (%v)", body, err)
	}

	status, _ = call(t, app, fiber.MethodPost, "/api/v1/teams", token, `{"name":"Outra"}`)
	if status != fiber.StatusForbidden {
		t.Fatalf("participant creating team: expected 403 got %d", status)
	}
}
