package authkit

import "errors"

// Audit event types, one per externally observable flow outcome.
const (
	auditOTPRequest       = "otp_request"
	auditOTPVerify        = "otp_verify"
	auditMagicLinkRequest = "magic_link_request"
	auditMagicLinkVerify  = "magic_link_verify"
	auditTokenIssue       = "token_issue"
	auditTokenRefresh     = "token_refresh"
	auditAuthenticate     = "authenticate"
)

// auditErrorCode flattens the error taxonomy into stable audit codes.
// Wrapped causes are never included; audit records must not leak secrets
// or infrastructure detail.
func auditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrOTPNotFound):
		return "otp_not_found"
	case errors.Is(err, ErrLinkConsumed):
		return "link_consumed"
	case errors.Is(err, ErrLinkNotFound):
		return "link_not_found"
	case errors.Is(err, ErrNoToken):
		return "no_token"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, ErrInvalidIdentifier):
		return "invalid_identifier"
	case errors.Is(err, ErrInvalidRole):
		return "invalid_role"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}
