package authkit

import (
	"context"
	"errors"

	"github.com/fieldday/authkit/internal"
	"github.com/fieldday/authkit/internal/rate"
	"github.com/fieldday/authkit/internal/stores"
)

// RequestOTP issues a fresh one-time code for the identifier and hands it
// to the notifier. A pending code for the same identifier is replaced and
// its attempt count reset. The code is durably stored before delivery is
// attempted, and delivery failures are logged rather than returned, so the
// response does not reveal whether the identifier is reachable.
func (s *Service) RequestOTP(ctx context.Context, identifier string) error {
	kind, ok := ClassifyIdentifier(identifier)
	if !ok {
		return ErrInvalidIdentifier
	}

	blocked, err := s.otps.IsBlocked(ctx, identifier)
	if err != nil {
		return wrapStoreErr(err)
	}
	if blocked {
		s.emitAudit(ctx, auditOTPRequest, "", identifier, ErrBlocked, nil)
		return ErrBlocked
	}

	res, err := s.limiter.Check(ctx, rate.PurposeOTP, identifier)
	if err != nil {
		return wrapStoreErr(err)
	}
	if !res.Allowed {
		s.metrics.inc(MetricOTPRateLimited)
		s.emitAudit(ctx, auditOTPRequest, "", identifier, ErrRateLimited, nil)
		return ErrRateLimited
	}

	code, err := internal.NewOTPCode()
	if err != nil {
		return wrapStoreErr(err)
	}

	if err := s.otps.Save(ctx, identifier, code); err != nil {
		return wrapStoreErr(err)
	}

	if err := s.notifier.SendOTP(ctx, identifier, code); err != nil {
		s.logger.WithError(err).WithField("identifier", identifier).
			Warn("otp delivery failed")
	}

	s.metrics.inc(MetricOTPIssued)
	s.emitAudit(ctx, auditOTPRequest, "", identifier, nil, map[string]string{
		"channel": channelName(kind),
	})
	return nil
}

// VerifyOTP validates a submitted code. On success the code is destroyed;
// a second submission of the same code fails with ErrOTPNotFound. Wrong
// codes burn attempts until the identifier is blocked for the configured
// lockout window.
func (s *Service) VerifyOTP(ctx context.Context, identifier, code string) error {
	blocked, err := s.otps.IsBlocked(ctx, identifier)
	if err != nil {
		return wrapStoreErr(err)
	}
	if blocked {
		s.metrics.inc(MetricOTPVerifyFailure)
		s.emitAudit(ctx, auditOTPVerify, "", identifier, ErrBlocked, nil)
		return ErrBlocked
	}

	if err := s.otps.Consume(ctx, identifier, code); err != nil {
		mapped := mapOTPErr(err)

		s.metrics.inc(MetricOTPVerifyFailure)
		if errors.Is(mapped, ErrBlocked) {
			s.metrics.inc(MetricOTPLockouts)
		}
		s.emitAudit(ctx, auditOTPVerify, "", identifier, mapped, nil)
		return mapped
	}

	s.metrics.inc(MetricOTPVerifySuccess)
	s.emitAudit(ctx, auditOTPVerify, "", identifier, nil, nil)
	return nil
}

// CompleteOTPLogin is the full login convenience: verify the code, resolve
// the account through the user directory, and issue a token pair. Requires
// a configured UserDirectory.
func (s *Service) CompleteOTPLogin(ctx context.Context, identifier, code string, actingRole Role) (User, *TokenPair, error) {
	if s.directory == nil {
		return User{}, nil, ErrNoDirectory
	}

	if err := s.VerifyOTP(ctx, identifier, code); err != nil {
		return User{}, nil, err
	}

	claim := IdentityClaim{}
	if kind, _ := ClassifyIdentifier(identifier); kind == IdentifierPhone {
		claim.Phone = identifier
	} else {
		claim.Email = identifier
	}

	user, err := s.directory.FindOrCreate(ctx, claim)
	if err != nil {
		return User{}, nil, err
	}

	pair, err := s.IssueTokenPair(ctx, user, actingRole)
	if err != nil {
		return User{}, nil, err
	}
	return user, pair, nil
}

func mapOTPErr(err error) error {
	var mismatch *stores.MismatchError

	switch {
	case errors.As(err, &mismatch):
		return &InvalidCodeError{Remaining: mismatch.Remaining}
	case errors.Is(err, stores.ErrAttemptsExceeded):
		return ErrBlocked
	case errors.Is(err, stores.ErrCodeNotFound):
		return ErrOTPNotFound
	default:
		return wrapStoreErr(err)
	}
}

func channelName(kind IdentifierKind) string {
	if kind == IdentifierPhone {
		return "sms"
	}
	return "email"
}
