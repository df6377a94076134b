package authkit

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldday/authkit/token"
)

// IssueTokenPair signs an access/refresh pair for the user. The refresh
// token starts a new rotation family. An empty actingRole defaults to the
// user's first role; a role the user does not hold is rejected.
func (s *Service) IssueTokenPair(ctx context.Context, user User, actingRole Role) (*TokenPair, error) {
	payload, err := s.payloadFor(user, actingRole)
	if err != nil {
		s.emitAudit(ctx, auditTokenIssue, user.ID, "", err, nil)
		return nil, err
	}

	pair, err := s.signPair(payload, "")
	if err != nil {
		return nil, err
	}

	s.metrics.inc(MetricTokenPairsIssued)
	s.emitAudit(ctx, auditTokenIssue, user.ID, "", nil, nil)
	return pair, nil
}

// Refresh rotates a valid refresh token into a new pair. Identity material
// is carried over from the old token, the rotation family is preserved, and
// the new refresh token gets a fresh token ID. The old token is not
// revoked; the family ID exists so a future revocation layer can cut whole
// chains at once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.metrics.inc(MetricRefreshFailure)
		s.emitAudit(ctx, auditTokenRefresh, "", "", ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}

	pair, err := s.signPair(claims.Payload(), claims.Family)
	if err != nil {
		return nil, err
	}

	s.metrics.inc(MetricRefreshSuccess)
	s.emitAudit(ctx, auditTokenRefresh, claims.Subject, "", nil, nil)
	return pair, nil
}

// Authenticate resolves a raw access token into an Identity. An empty
// token is an unauthenticated request (ErrNoToken); anything unparseable,
// expired, or mis-signed is ErrTokenInvalid. A non-empty actingOverride
// replaces the token's acting role, but only with a role the subject holds.
func (s *Service) Authenticate(ctx context.Context, rawToken string, actingOverride string) (*Identity, error) {
	start := time.Now()
	defer func() {
		s.metrics.observeAuthLatency(time.Since(start))
	}()

	if rawToken == "" {
		s.metrics.inc(MetricAuthFailure)
		return nil, ErrNoToken
	}

	claims, err := s.tokens.VerifyAccess(rawToken)
	if err != nil {
		s.metrics.inc(MetricAuthFailure)
		s.emitAudit(ctx, auditAuthenticate, "", "", ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}

	identity := &Identity{
		UserID:     claims.Subject,
		Email:      claims.Email,
		Phone:      claims.Phone,
		Roles:      toRoles(claims.Roles),
		ActingRole: Role(claims.ActingRole),
	}

	if actingOverride != "" {
		override := Role(actingOverride)
		if !ValidRole(override) || !identity.HasRole(override) {
			s.metrics.inc(MetricAuthFailure)
			s.emitAudit(ctx, auditAuthenticate, claims.Subject, "", ErrInvalidRole, map[string]string{
				"acting_override": actingOverride,
			})
			return nil, ErrInvalidRole
		}
		identity.ActingRole = override
	}

	s.metrics.inc(MetricAuthSuccess)
	return identity, nil
}

func (s *Service) payloadFor(user User, actingRole Role) (token.Payload, error) {
	if len(user.Roles) == 0 {
		return token.Payload{}, ErrInvalidRole
	}
	for _, r := range user.Roles {
		if !ValidRole(r) {
			return token.Payload{}, ErrInvalidRole
		}
	}

	if actingRole == "" {
		actingRole = user.Roles[0]
	}
	if !hasRole(user.Roles, actingRole) {
		return token.Payload{}, ErrInvalidRole
	}

	return token.Payload{
		Subject:    user.ID,
		Email:      user.Email,
		Phone:      user.Phone,
		Roles:      fromRoles(user.Roles),
		ActingRole: string(actingRole),
	}, nil
}

func (s *Service) signPair(payload token.Payload, family string) (*TokenPair, error) {
	access, err := s.tokens.SignAccess(payload)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, _, err := s.tokens.SignRefresh(payload, family)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func hasRole(roles []Role, r Role) bool {
	for _, have := range roles {
		if have == r {
			return true
		}
	}
	return false
}

func toRoles(raw []string) []Role {
	out := make([]Role, 0, len(raw))
	for _, r := range raw {
		out = append(out, Role(r))
	}
	return out
}

func fromRoles(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
