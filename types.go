package authkit

import "context"

// Role is one of the fixed participant roles. The set is closed; payloads
// carrying anything else are rejected at token issuance.
type Role string

const (
	RolePlayer    Role = "player"
	RoleParent    Role = "parent"
	RoleOrganizer Role = "organizer"
)

// ValidRole reports whether r belongs to the fixed role set.
func ValidRole(r Role) bool {
	switch r {
	case RolePlayer, RoleParent, RoleOrganizer:
		return true
	}
	return false
}

// User is the account material supplied by the UserDirectory. The core
// never persists users; it only embeds this data in tokens.
type User struct {
	ID    string
	Email string
	Phone string
	Roles []Role
}

// IdentityClaim is a contact point proven by a completed challenge. Exactly
// one of Email or Phone is set, depending on the channel that verified it.
type IdentityClaim struct {
	Email string
	Phone string
}

// UserDirectory resolves verified contact points to accounts. It is a
// collaborator owned by the host application, typically backed by its user
// database.
type UserDirectory interface {
	// FindOrCreate returns the account owning the claimed contact point,
	// provisioning one when none exists.
	FindOrCreate(ctx context.Context, claim IdentityClaim) (User, error)

	// FindByID returns the account with the given ID.
	FindByID(ctx context.Context, id string) (User, error)
}

// TokenPair is the result of issuance, verification completion, and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access-token lifetime in seconds.
	ExpiresIn int64
}

// Identity is the resolved caller attached to requests by the middleware.
type Identity struct {
	UserID     string
	Email      string
	Phone      string
	Roles      []Role
	ActingRole Role
}

// HasRole reports whether the identity holds the role, regardless of which
// role it is currently acting as.
func (id *Identity) HasRole(r Role) bool {
	for _, have := range id.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// MagicLinkClaim is what a successfully consumed link proves.
type MagicLinkClaim struct {
	Email       string
	RedirectURL string
}
