package token

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		AccessSecret:    []byte("access-secret-for-tests"),
		RefreshSecret:   []byte("refresh-secret-for-tests"),
		Issuer:          "fieldday",
		AccessAudience:  "fieldday-api",
		RefreshAudience: "fieldday-refresh",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	return m
}

func testPayload() Payload {
	return Payload{
		Subject:    "user-1",
		Email:      "a@b.c",
		Roles:      []string{"player", "organizer"},
		ActingRole: "player",
	}
}

func TestAccessRoundTrip(t *testing.T) {
	m := newTestManager(t)

	raw, err := m.SignAccess(testPayload())
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	claims, err := m.VerifyAccess(raw)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Email != "a@b.c" {
		t.Fatalf("email = %q, want a@b.c", claims.Email)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "player" {
		t.Fatalf("roles = %v, want [player organizer]", claims.Roles)
	}
	if claims.ActingRole != "player" {
		t.Fatalf("acting role = %q, want player", claims.ActingRole)
	}
	if claims.Family != "" {
		t.Fatal("access tokens must not carry a rotation family")
	}
}

func TestRefreshRoundTrip(t *testing.T) {
	m := newTestManager(t)

	raw, family, err := m.SignRefresh(testPayload(), "")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if family == "" {
		t.Fatal("empty family should start a new rotation chain")
	}

	claims, err := m.VerifyRefresh(raw)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.Family != family {
		t.Fatalf("family = %q, want %q", claims.Family, family)
	}
	if claims.ID == "" {
		t.Fatal("refresh tokens must carry a token ID")
	}
}

func TestRefreshRotationKeepsFamily(t *testing.T) {
	m := newTestManager(t)

	first, family, err := m.SignRefresh(testPayload(), "")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	firstClaims, err := m.VerifyRefresh(first)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	second, rotatedFamily, err := m.SignRefresh(firstClaims.Payload(), firstClaims.Family)
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if rotatedFamily != family {
		t.Fatalf("rotated family = %q, want %q", rotatedFamily, family)
	}

	secondClaims, err := m.VerifyRefresh(second)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if secondClaims.Family != family {
		t.Fatalf("family changed across rotation: %q -> %q", family, secondClaims.Family)
	}
	if secondClaims.ID == firstClaims.ID {
		t.Fatal("rotation must mint a fresh token ID")
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	m := newTestManager(t)

	access, err := m.SignAccess(testPayload())
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	refresh, _, err := m.SignRefresh(testPayload(), "")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := m.VerifyRefresh(access); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("access token must not verify as refresh, got %v", err)
	}
	if _, err := m.VerifyAccess(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh token must not verify as access, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	m := newTestManager(t)

	raw, err := m.SignAccess(testPayload())
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	tampered := raw[:len(raw)-2] + "xx"
	if _, err := m.VerifyAccess(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for tampered token, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	m := newTestManager(t)

	other, err := NewManager(Config{
		AccessSecret:    []byte("another-access-secret"),
		RefreshSecret:   []byte("another-refresh-secret"),
		Issuer:          "fieldday",
		AccessAudience:  "fieldday-api",
		RefreshAudience: "fieldday-refresh",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}

	raw, err := m.SignAccess(testPayload())
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := other.VerifyAccess(raw); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid under a different secret, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m, err := NewManager(Config{
		AccessSecret:    []byte("access-secret-for-tests"),
		RefreshSecret:   []byte("refresh-secret-for-tests"),
		Issuer:          "fieldday",
		AccessAudience:  "fieldday-api",
		RefreshAudience: "fieldday-refresh",
		AccessTTL:       time.Nanosecond,
		RefreshTTL:      7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}

	raw, err := m.SignAccess(testPayload())
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := m.VerifyAccess(raw); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	base := Config{
		AccessSecret:    []byte("a"),
		RefreshSecret:   []byte("r"),
		Issuer:          "fieldday",
		AccessAudience:  "fieldday-api",
		RefreshAudience: "fieldday-refresh",
		AccessTTL:       time.Minute,
		RefreshTTL:      time.Hour,
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing access secret", func(c *Config) { c.AccessSecret = nil }},
		{"missing refresh secret", func(c *Config) { c.RefreshSecret = nil }},
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.RefreshTTL = 0 }},
		{"negative leeway", func(c *Config) { c.Leeway = -time.Second }},
		{"oversized leeway", func(c *Config) { c.Leeway = 5 * time.Minute }},
		{"missing issuer", func(c *Config) { c.Issuer = "" }},
		{"missing access audience", func(c *Config) { c.AccessAudience = "" }},
		{"missing refresh audience", func(c *Config) { c.RefreshAudience = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if _, err := NewManager(cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}
