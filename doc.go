// Package authkit is a passwordless authentication core: one-time codes,
// magic links, and the JWT lifecycle that follows a successful verification.
//
// The package is framework-agnostic. It owns challenge issuance and
// verification, fixed-window rate limiting, token signing and rotation, and
// the ephemeral secret storage behind all of it. User persistence and
// message delivery stay outside, behind the UserDirectory and Notifier
// collaborator interfaces.
//
// Construction goes through the Builder:
//
//	svc, err := authkit.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		WithNotifier(mailer).
//		Build()
//
// Without a Redis client the service falls back to an in-process store,
// suitable for tests and single-instance deployments only.
package authkit
