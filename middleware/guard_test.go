package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authkit "github.com/fieldday/authkit"
)

func newTestService(t *testing.T) *authkit.Service {
	t.Helper()

	cfg := authkit.DefaultConfig()
	cfg.Token.AccessSecret = []byte("access-secret-for-tests")
	cfg.Token.RefreshSecret = []byte("refresh-secret-for-tests")
	cfg.Audit.Enabled = false

	svc, err := authkit.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	return svc
}

func issuePair(t *testing.T, svc *authkit.Service, roles []authkit.Role, acting authkit.Role) *authkit.TokenPair {
	t.Helper()

	pair, err := svc.IssueTokenPair(context.Background(), authkit.User{
		ID:    "user-1",
		Email: "a@b.c",
		Roles: roles,
	}, acting)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	return pair
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateMissingToken(t *testing.T) {
	svc := newTestService(t)
	handler := Authenticate(svc)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No token provided") {
		t.Fatalf("body = %q, want no-token message", rec.Body.String())
	}
}

func TestAuthenticateInvalidToken(t *testing.T) {
	svc := newTestService(t)
	handler := Authenticate(svc)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid or expired token") {
		t.Fatalf("body = %q, want invalid-token message", rec.Body.String())
	}
}

func TestAuthenticateBearerHeader(t *testing.T) {
	svc := newTestService(t)
	pair := issuePair(t, svc, []authkit.Role{authkit.RolePlayer}, "")

	var got *authkit.Identity
	handler := Authenticate(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.UserID != "user-1" {
		t.Fatalf("identity = %+v, want user-1", got)
	}
	if got.ActingRole != authkit.RolePlayer {
		t.Fatalf("acting role = %q, want player", got.ActingRole)
	}
}

func TestAuthenticateCookieFallback(t *testing.T) {
	svc := newTestService(t)
	pair := issuePair(t, svc, []authkit.Role{authkit.RolePlayer}, "")

	handler := Authenticate(svc)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: pair.AccessToken})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthenticateActingOverride(t *testing.T) {
	svc := newTestService(t)
	pair := issuePair(t, svc, []authkit.Role{authkit.RoleParent, authkit.RoleOrganizer}, authkit.RoleParent)

	var got *authkit.Identity
	handler := Authenticate(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	req.Header.Set("X-Act-As", "organizer")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.ActingRole != authkit.RoleOrganizer {
		t.Fatalf("acting role = %q, want organizer", got.ActingRole)
	}
}

func TestAuthenticateActingOverrideQueryParam(t *testing.T) {
	svc := newTestService(t)
	pair := issuePair(t, svc, []authkit.Role{authkit.RoleParent, authkit.RoleOrganizer}, authkit.RoleParent)

	var got *authkit.Identity
	handler := Authenticate(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/?actAs=organizer", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.ActingRole != authkit.RoleOrganizer {
		t.Fatalf("acting role = %q, want organizer", got.ActingRole)
	}
}

func TestAuthenticateActingOverrideRejected(t *testing.T) {
	svc := newTestService(t)
	pair := issuePair(t, svc, []authkit.Role{authkit.RolePlayer}, "")

	handler := Authenticate(svc)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	req.Header.Set("X-Act-As", "organizer")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for a role the user does not hold", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	svc := newTestService(t)
	pair := issuePair(t, svc, []authkit.Role{authkit.RoleParent}, "")

	handler := Authenticate(svc)(RequireRole(authkit.RoleOrganizer)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 without the organizer role", rec.Code)
	}

	allowed := Authenticate(svc)(RequireRole(authkit.RoleParent)(okHandler()))
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	allowed.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with the parent role", rec.Code)
	}
}

func TestRequireActingRole(t *testing.T) {
	svc := newTestService(t)
	pair := issuePair(t, svc, []authkit.Role{authkit.RoleParent, authkit.RoleOrganizer}, authkit.RoleParent)

	handler := Authenticate(svc)(RequireActingRole(authkit.RoleOrganizer)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 while acting as parent", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Must be acting as organizer") {
		t.Fatalf("body = %q, want acting-role message", rec.Body.String())
	}

	// The same identity passes once it acts as organizer.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	req.Header.Set("X-Act-As", "organizer")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 acting as organizer", rec.Code)
	}
}

func TestRequireRoleWithoutAuthenticate(t *testing.T) {
	handler := RequireRole(authkit.RolePlayer)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 with no identity in context", rec.Code)
	}
}
