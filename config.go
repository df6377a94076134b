package authkit

import (
	"errors"
	"time"
)

// Config defines a public type used by authkit APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	OTP       OTPConfig
	MagicLink MagicLinkConfig
	Token     TokenConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig tunes code lifetime and the failure lockout.
type OTPConfig struct {
	CodeTTL     time.Duration
	BlockTTL    time.Duration
	MaxAttempts int
}

/*
====================================
MAGIC LINK CONFIG
====================================
*/

// MagicLinkConfig tunes link lifetime and how verification URLs are built.
type MagicLinkConfig struct {
	TTL time.Duration
	// BaseURL is prepended to the verification path in delivered links,
	// e.g. "https://app.example.com".
	BaseURL string
	// DefaultRedirect is used when a link request carries no redirect.
	DefaultRedirect string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds JWT signing material and lifetimes. Access and refresh
// tokens use separate secrets and audiences.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte

	Issuer          string
	AccessAudience  string
	RefreshAudience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// Quota is a fixed-window budget: at most Max requests per Window.
type Quota struct {
	Max    int
	Window time.Duration
}

// RateLimitConfig holds the per-purpose budgets. A zero Max disables the
// budget for that purpose.
type RateLimitConfig struct {
	OTP   Quota
	Magic Quota
	Login Quota
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig tunes the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking emitters when the
	// buffer is full.
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: six-digit codes valid five
// minutes with a fifteen-minute lockout after five failures, fifteen-minute
// links, 15m/7d token lifetimes, and the standard request budgets.
func DefaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			CodeTTL:     5 * time.Minute,
			BlockTTL:    15 * time.Minute,
			MaxAttempts: 5,
		},
		MagicLink: MagicLinkConfig{
			TTL:             15 * time.Minute,
			DefaultRedirect: "/",
		},
		Token: TokenConfig{
			Issuer:          "fieldday",
			AccessAudience:  "fieldday-api",
			RefreshAudience: "fieldday-refresh",
			AccessTTL:       15 * time.Minute,
			RefreshTTL:      7 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			OTP:   Quota{Max: 3, Window: time.Minute},
			Magic: Quota{Max: 3, Window: time.Minute},
			Login: Quota{Max: 5, Window: 15 * time.Minute},
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if c.OTP.CodeTTL <= 0 || c.OTP.BlockTTL <= 0 {
		return errors.New("otp TTLs must be positive")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("otp max attempts must be positive")
	}
	if c.MagicLink.TTL <= 0 {
		return errors.New("magic link TTL must be positive")
	}
	if len(c.Token.AccessSecret) == 0 || len(c.Token.RefreshSecret) == 0 {
		return errors.New("token secrets are required")
	}
	if string(c.Token.AccessSecret) == string(c.Token.RefreshSecret) {
		return errors.New("access and refresh secrets must differ")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	for _, q := range []Quota{c.RateLimit.OTP, c.RateLimit.Magic, c.RateLimit.Login} {
		if q.Max > 0 && q.Window <= 0 {
			return errors.New("rate limit windows must be positive")
		}
	}
	return nil
}

// cloneConfig deep-copies the secret slices so callers cannot mutate key
// material after Build.
func cloneConfig(c Config) Config {
	out := c
	out.Token.AccessSecret = append([]byte(nil), c.Token.AccessSecret...)
	out.Token.RefreshSecret = append([]byte(nil), c.Token.RefreshSecret...)
	return out
}
