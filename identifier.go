package authkit

import (
	"net/mail"
	"regexp"
	"strings"
)

// IdentifierKind is the delivery channel inferred from an identifier.
type IdentifierKind int

const (
	IdentifierEmail IdentifierKind = iota
	IdentifierPhone
)

// E.164 with an optional plus, up to 15 digits, no leading zero.
var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// ClassifyIdentifier decides whether an identifier is a phone number or an
// email address. Phone detection wins so numeric identifiers are never
// parsed as addresses.
func ClassifyIdentifier(identifier string) (IdentifierKind, bool) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return 0, false
	}

	if phonePattern.MatchString(identifier) {
		return IdentifierPhone, true
	}

	if addr, err := mail.ParseAddress(identifier); err == nil && addr.Address == identifier {
		return IdentifierEmail, true
	}

	return 0, false
}
