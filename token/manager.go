// Package token signs and verifies the access and refresh JWTs issued after
// a successful passwordless verification. Access and refresh tokens use
// separate HMAC secrets and separate audiences, so neither can stand in for
// the other.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTokenInvalid is the single verification failure surfaced by this
// package. Expiry, tampering, wrong audience, and wrong algorithm are
// deliberately indistinguishable to callers.
var ErrTokenInvalid = errors.New("token invalid")

// Config holds the signing material and token lifetimes.
//
// Config instances are set once at construction and treated as immutable.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte

	Issuer          string
	AccessAudience  string
	RefreshAudience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// Payload is the identity material embedded in both token kinds.
type Payload struct {
	Subject    string
	Email      string
	Phone      string
	Roles      []string
	ActingRole string
}

// Claims is the full claim set carried by issued tokens. Family is present
// only on refresh tokens and names the rotation chain the token belongs to.
type Claims struct {
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	ActingRole string   `json:"act,omitempty"`
	Family     string   `json:"family,omitempty"`
	jwt.RegisteredClaims
}

// Payload projects the claims back into signable identity material, for
// re-issuing tokens during rotation.
func (c *Claims) Payload() Payload {
	return Payload{
		Subject:    c.Subject,
		Email:      c.Email,
		Phone:      c.Phone,
		Roles:      c.Roles,
		ActingRole: c.ActingRole,
	}
}

// Manager signs and verifies tokens for a single issuer.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a ready manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token secrets are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Issuer == "" || cfg.AccessAudience == "" || cfg.RefreshAudience == "" {
		return nil, errors.New("issuer and audiences are required")
	}

	return &Manager{config: cfg}, nil
}

// SignAccess issues a short-lived access token for the payload.
func (m *Manager) SignAccess(p Payload) (string, error) {
	claims := m.baseClaims(p, m.config.AccessAudience, m.config.AccessTTL)
	return m.sign(claims, m.config.AccessSecret)
}

// SignRefresh issues a refresh token bound to the given rotation family.
// An empty family starts a new chain. Every refresh token carries a fresh
// unique token ID. The resolved family is returned alongside the token.
func (m *Manager) SignRefresh(p Payload, family string) (string, string, error) {
	if family == "" {
		family = uuid.NewString()
	}

	claims := m.baseClaims(p, m.config.RefreshAudience, m.config.RefreshTTL)
	claims.ID = uuid.NewString()
	claims.Family = family

	signed, err := m.sign(claims, m.config.RefreshSecret)
	if err != nil {
		return "", "", err
	}
	return signed, family, nil
}

// VerifyAccess parses and validates an access token.
func (m *Manager) VerifyAccess(raw string) (*Claims, error) {
	return m.verify(raw, m.config.AccessSecret, m.config.AccessAudience)
}

// VerifyRefresh parses and validates a refresh token.
func (m *Manager) VerifyRefresh(raw string) (*Claims, error) {
	return m.verify(raw, m.config.RefreshSecret, m.config.RefreshAudience)
}

// AccessTTL reports the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

func (m *Manager) baseClaims(p Payload, audience string, ttl time.Duration) *Claims {
	now := time.Now()

	return &Claims{
		Email:      p.Email,
		Phone:      p.Phone,
		Roles:      p.Roles,
		ActingRole: p.ActingRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (m *Manager) sign(claims *Claims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) verify(raw string, secret []byte, audience string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(audience),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
