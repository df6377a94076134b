package authkit

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is an exported constant or variable used by the authentication core.
	ErrRateLimited = errors.New("rate limited")
	// ErrBlocked is an exported constant or variable used by the authentication core.
	ErrBlocked = errors.New("too many failed attempts")
	// ErrOTPNotFound is an exported constant or variable used by the authentication core.
	ErrOTPNotFound = errors.New("otp expired or not found")
	// ErrInvalidCode is an exported constant or variable used by the authentication core.
	ErrInvalidCode = errors.New("invalid code")
	// ErrLinkNotFound is an exported constant or variable used by the authentication core.
	ErrLinkNotFound = errors.New("link expired or not found")
	// ErrLinkConsumed is an exported constant or variable used by the authentication core.
	ErrLinkConsumed = errors.New("link already used")
	// ErrNoToken is an exported constant or variable used by the authentication core.
	ErrNoToken = errors.New("no token provided")
	// ErrTokenInvalid is an exported constant or variable used by the authentication core.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrInvalidIdentifier is an exported constant or variable used by the authentication core.
	ErrInvalidIdentifier = errors.New("identifier is neither a phone number nor an email address")
	// ErrInvalidRole is an exported constant or variable used by the authentication core.
	ErrInvalidRole = errors.New("invalid role")
	// ErrNoDirectory is an exported constant or variable used by the authentication core.
	ErrNoDirectory = errors.New("user directory not configured")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication core.
	ErrStoreUnavailable = errors.New("secret store unavailable")
)

// InvalidCodeError is a wrong-code rejection carrying the attempts the
// caller has left before the identifier is blocked. It matches
// ErrInvalidCode under errors.Is.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid code, %d attempts remaining", e.Remaining)
}

func (e *InvalidCodeError) Unwrap() error {
	return ErrInvalidCode
}

// UserMessage maps a flow error to the sentence shown to end users.
// Internal detail (store failures, wrapped causes) is never exposed.
func UserMessage(err error) string {
	var invalid *InvalidCodeError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		return fmt.Sprintf("Invalid code. %d attempts remaining.", invalid.Remaining)
	case errors.Is(err, ErrBlocked):
		return "Too many failed attempts"
	case errors.Is(err, ErrOTPNotFound):
		return "OTP expired or not found"
	case errors.Is(err, ErrLinkConsumed):
		return "Link already used"
	case errors.Is(err, ErrLinkNotFound):
		return "Link expired or not found"
	case errors.Is(err, ErrNoToken):
		return "No token provided"
	case errors.Is(err, ErrTokenInvalid):
		return "Invalid or expired token"
	case errors.Is(err, ErrRateLimited):
		return "Too many requests. Please try again later."
	case errors.Is(err, ErrInvalidIdentifier):
		return "Invalid phone number or email address"
	case errors.Is(err, ErrInvalidRole):
		return "Insufficient permissions"
	default:
		return "Something went wrong"
	}
}
