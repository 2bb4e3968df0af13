// Package identity resolves opaque bearer tokens into caller identities.
// The upstream identity provider is external; this package only verifies
// and unpacks what it issued.
package identity

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Identity is the resolved caller.
type Identity struct {
	UserID snowflake.ID
	Email  string
	Role   string
	OrgID  *snowflake.ID
}

type Resolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

var (
	ErrUnauthorized = errors.New("unauthorized")
)
