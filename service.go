package authkit

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fieldday/authkit/internal/rate"
	"github.com/fieldday/authkit/internal/stores"
	"github.com/fieldday/authkit/kv"
	"github.com/fieldday/authkit/token"
)

// Service is the passwordless authentication core. Construct it with the
// Builder; the zero value is not usable. All methods are safe for
// concurrent use.
type Service struct {
	config    Config
	store     kv.Store
	ownsStore bool

	limiter *rate.Limiter
	otps    *stores.OTPStore
	links   *stores.MagicLinkStore
	tokens  *token.Manager

	notifier  Notifier
	directory UserDirectory
	logger    logrus.FieldLogger
	metrics   *Metrics
	audit     *auditDispatcher
}

// Close flushes the audit dispatcher and releases stores the service
// created itself. Injected stores and Redis clients stay open.
func (s *Service) Close() error {
	s.audit.Close()

	if s.ownsStore {
		return s.store.Close()
	}
	return nil
}

// Metrics exposes the in-process counters for scraping or assertions.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// AuditDropped reports audit events shed under backpressure.
func (s *Service) AuditDropped() uint64 {
	return s.audit.Dropped()
}

// CheckLoginRate consumes one unit of the login budget for the identifier.
// The passwordless flows do not call this themselves; it is exposed for
// hosts that gate a login endpoint in front of token issuance.
func (s *Service) CheckLoginRate(ctx context.Context, identifier string) error {
	res, err := s.limiter.Check(ctx, rate.PurposeLogin, identifier)
	if err != nil {
		return wrapStoreErr(err)
	}
	if !res.Allowed {
		return ErrRateLimited
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, eventType, userID, identifier string, err error, metadata map[string]string) {
	s.audit.Emit(ctx, AuditEvent{
		Timestamp:  time.Now(),
		EventType:  eventType,
		UserID:     userID,
		Identifier: identifier,
		IP:         clientIPFromContext(ctx),
		Success:    err == nil,
		Error:      auditErrorCode(err),
		Metadata:   metadata,
	})
}

// wrapStoreErr folds limiter and store infrastructure failures into the
// public taxonomy.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
