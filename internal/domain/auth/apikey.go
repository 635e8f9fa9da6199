// Package auth holds API key identity types used to attribute order
// creations to an authenticated actor.
package auth

import "context"

// APIKeyInfo holds the identity and permission data for a validated API key.
// The key Name doubles as the actor identity recorded on created orders.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository provides lookup of API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
