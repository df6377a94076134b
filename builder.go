package authkit

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fieldday/authkit/internal/rate"
	"github.com/fieldday/authkit/internal/stores"
	"github.com/fieldday/authkit/kv"
	"github.com/fieldday/authkit/token"
)

// Builder assembles a Service from configuration and collaborators. There
// is no package-level singleton; every Build call yields an independent
// service with its own dependencies.
type Builder struct {
	config Config

	redis     redis.UniversalClient
	store     kv.Store
	notifier  Notifier
	directory UserDirectory
	auditSink AuditSink
	logger    logrus.FieldLogger

	built bool
}

// New starts a builder preloaded with DefaultConfig. Token secrets must
// still be supplied via WithConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Secret slices are copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the secret store with the given Redis client. The client
// stays owned by the caller.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore injects a custom secret store, overriding Redis selection.
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithNotifier sets the challenge delivery collaborator. Defaults to a
// LogNotifier, which only logs.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithUserDirectory sets the account resolution collaborator, required only
// by the Complete*Login conveniences.
func (b *Builder) WithUserDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

// WithAuditSink sets the audit destination. Events are dispatched
// asynchronously; a nil sink with auditing enabled discards events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the service logger. Defaults to the logrus standard
// logger.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the service. A builder can
// be used once.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Store selection: explicit store, then Redis, then the in-process
	// fallback. Only stores the service creates are closed by it.
	store := b.store
	ownsStore := false
	if store == nil {
		if b.redis != nil {
			store = kv.NewRedisStore(b.redis)
		} else {
			store = kv.NewMemoryStore()
		}
		ownsStore = true
	}

	tokens, err := token.NewManager(token.Config{
		AccessSecret:    b.config.Token.AccessSecret,
		RefreshSecret:   b.config.Token.RefreshSecret,
		Issuer:          b.config.Token.Issuer,
		AccessAudience:  b.config.Token.AccessAudience,
		RefreshAudience: b.config.Token.RefreshAudience,
		AccessTTL:       b.config.Token.AccessTTL,
		RefreshTTL:      b.config.Token.RefreshTTL,
		Leeway:          b.config.Token.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}

	limiter := rate.New(store, map[rate.Purpose]rate.Quota{
		rate.PurposeOTP:   {Max: b.config.RateLimit.OTP.Max, Window: b.config.RateLimit.OTP.Window},
		rate.PurposeMagic: {Max: b.config.RateLimit.Magic.Max, Window: b.config.RateLimit.Magic.Window},
		rate.PurposeLogin: {Max: b.config.RateLimit.Login.Max, Window: b.config.RateLimit.Login.Window},
	})

	return &Service{
		config:    b.config,
		store:     store,
		ownsStore: ownsStore,
		limiter:   limiter,
		otps: stores.NewOTPStore(store, stores.OTPConfig{
			CodeTTL:     b.config.OTP.CodeTTL,
			BlockTTL:    b.config.OTP.BlockTTL,
			MaxAttempts: b.config.OTP.MaxAttempts,
		}),
		links:     stores.NewMagicLinkStore(store, b.config.MagicLink.TTL),
		tokens:    tokens,
		notifier:  notifier,
		directory: b.directory,
		logger:    logger,
		metrics:   newMetrics(b.config.Metrics),
		audit:     newAuditDispatcher(b.config.Audit, b.auditSink),
	}, nil
}
