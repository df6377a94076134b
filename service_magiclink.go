package authkit

import (
	"context"
	"errors"
	"net/url"

	"github.com/fieldday/authkit/internal"
	"github.com/fieldday/authkit/internal/rate"
	"github.com/fieldday/authkit/internal/stores"
)

// RequestMagicLink issues a single-use login link for the email address.
// An empty redirectURL falls back to the configured default. As with OTP
// delivery, the record is stored before the notifier runs and delivery
// failures are only logged.
func (s *Service) RequestMagicLink(ctx context.Context, email, redirectURL string) error {
	if kind, ok := ClassifyIdentifier(email); !ok || kind != IdentifierEmail {
		return ErrInvalidIdentifier
	}

	res, err := s.limiter.Check(ctx, rate.PurposeMagic, email)
	if err != nil {
		return wrapStoreErr(err)
	}
	if !res.Allowed {
		s.metrics.inc(MetricMagicLinkRateLimited)
		s.emitAudit(ctx, auditMagicLinkRequest, "", email, ErrRateLimited, nil)
		return ErrRateLimited
	}

	linkToken, err := internal.NewLinkToken()
	if err != nil {
		return wrapStoreErr(err)
	}

	if redirectURL == "" {
		redirectURL = s.config.MagicLink.DefaultRedirect
	}

	err = s.links.Save(ctx, linkToken, stores.MagicLinkRecord{
		Email:       email,
		RedirectURL: redirectURL,
	})
	if err != nil {
		return wrapStoreErr(err)
	}

	if err := s.notifier.SendMagicLink(ctx, email, s.verificationURL(linkToken)); err != nil {
		s.logger.WithError(err).WithField("email", email).
			Warn("magic link delivery failed")
	}

	s.metrics.inc(MetricMagicLinkIssued)
	s.emitAudit(ctx, auditMagicLinkRequest, "", email, nil, nil)
	return nil
}

// VerifyMagicLink consumes a link token. Exactly one caller per token
// succeeds; replays fail with ErrLinkConsumed until the record expires,
// after which the token is indistinguishable from one that never existed.
func (s *Service) VerifyMagicLink(ctx context.Context, linkToken string) (*MagicLinkClaim, error) {
	rec, err := s.links.Consume(ctx, linkToken)
	if err != nil {
		mapped := mapMagicLinkErr(err)

		s.metrics.inc(MetricMagicLinkVerifyFailure)
		if errors.Is(mapped, ErrLinkConsumed) {
			s.metrics.inc(MetricMagicLinkReplay)
		}
		s.emitAudit(ctx, auditMagicLinkVerify, "", "", mapped, nil)
		return nil, mapped
	}

	s.metrics.inc(MetricMagicLinkVerifySuccess)
	s.emitAudit(ctx, auditMagicLinkVerify, "", rec.Email, nil, nil)

	return &MagicLinkClaim{
		Email:       rec.Email,
		RedirectURL: rec.RedirectURL,
	}, nil
}

// CompleteMagicLinkLogin verifies the link, resolves the account, and
// issues a token pair. Requires a configured UserDirectory.
func (s *Service) CompleteMagicLinkLogin(ctx context.Context, linkToken string, actingRole Role) (User, *TokenPair, *MagicLinkClaim, error) {
	if s.directory == nil {
		return User{}, nil, nil, ErrNoDirectory
	}

	claim, err := s.VerifyMagicLink(ctx, linkToken)
	if err != nil {
		return User{}, nil, nil, err
	}

	user, err := s.directory.FindOrCreate(ctx, IdentityClaim{Email: claim.Email})
	if err != nil {
		return User{}, nil, nil, err
	}

	pair, err := s.IssueTokenPair(ctx, user, actingRole)
	if err != nil {
		return User{}, nil, nil, err
	}
	return user, pair, claim, nil
}

func (s *Service) verificationURL(linkToken string) string {
	return s.config.MagicLink.BaseURL + "/api/auth/magic/verify?token=" + url.QueryEscape(linkToken)
}

func mapMagicLinkErr(err error) error {
	switch {
	case errors.Is(err, stores.ErrLinkConsumed):
		return ErrLinkConsumed
	case errors.Is(err, stores.ErrLinkNotFound):
		return ErrLinkNotFound
	default:
		return wrapStoreErr(err)
	}
}
