// Package service provides bearer token generation and hashing for sessions.
package service

// TokenService defines the interface for bearer token generation and hashing.
type TokenService interface {
	// GenerateToken creates a new random bearer token and its storage hash.
	GenerateToken() (plainToken string, tokenHash string, err error)
	// HashToken computes the storage hash for a presented token.
	HashToken(plainToken string) string
}
