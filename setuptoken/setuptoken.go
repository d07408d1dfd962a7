// Package setuptoken issues short-lived, single-use tokens that tie the
// provider-setup requests (profile creation, photo upload) to the user who
// switched into the provider role.
package setuptoken

import (
	"context"
	"errors"
	"time"

	"github.com/meinhoongagan/referencias-locales/utils"
)

// TTL is fixed; tokens are convenience artifacts, not durable state.
const TTL = 30 * time.Minute

const tokenBytes = 32

var (
	// ErrInvalidToken is returned for unknown or already consumed tokens.
	ErrInvalidToken = errors.New("invalid setup token")
	// ErrExpired is returned once the token outlived TTL. The entry is removed.
	ErrExpired = errors.New("setup token expired")
)

// Registry issues and resolves setup tokens.
type Registry interface {
	// Issue creates a new token for userID. Earlier live tokens stay valid.
	Issue(ctx context.Context, userID uint) (string, error)
	// Consume resolves token and deletes it.
	Consume(ctx context.Context, token string) (uint, error)
	// Peek resolves token without consuming it.
	Peek(ctx context.Context, token string) (uint, error)
}

func newToken() (string, error) {
	return utils.GenerateToken(tokenBytes)
}
