package domain

import "github.com/google/uuid"

// Tenant carries the per-tenant resource accounting state.
// A limit of zero or below means unlimited.
type Tenant struct {
	ID       uuid.UUID
	Name     string
	IsActive bool

	TokensLimit int
	TokensUsed  int
	PostsLimit  int
	PostsUsed   int
}

// TokensRemaining returns the unused token budget, or -1 when unlimited.
func (t Tenant) TokensRemaining() int {
	if t.TokensLimit <= 0 {
		return -1
	}
	return t.TokensLimit - t.TokensUsed
}

// PostsRemaining returns the unused post budget, or -1 when unlimited.
func (t Tenant) PostsRemaining() int {
	if t.PostsLimit <= 0 {
		return -1
	}
	return t.PostsLimit - t.PostsUsed
}

// HasTokens reports whether the tenant can spend the requested tokens.
func (t Tenant) HasTokens(needed int) bool {
	return t.TokensLimit <= 0 || t.TokensUsed+needed <= t.TokensLimit
}

// HasPosts reports whether the tenant can create the requested posts.
func (t Tenant) HasPosts(needed int) bool {
	return t.PostsLimit <= 0 || t.PostsUsed+needed <= t.PostsLimit
}
