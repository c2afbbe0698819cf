package utils

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/spotme/spotme/store"
)

// TokenBlacklist records revoked JWTs in the key-value store until they expire.
type TokenBlacklist struct {
	kv  store.Store
	now func() time.Time
}

// NewTokenBlacklist uses kv for storage.
func NewTokenBlacklist(kv store.Store) *TokenBlacklist {
	return &TokenBlacklist{kv: kv, now: time.Now}
}

// Revoke blacklists token until expiresAt. Already expired tokens are ignored.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if !expiresAt.After(b.now()) {
		return nil
	}
	return b.kv.Set(ctx, store.TokenBlacklistKey(token), strconv.FormatInt(expiresAt.Unix(), 10))
}

// IsRevoked reports whether token was revoked before its natural expiration.
// Store errors fail open so a flaky backend does not lock every user out.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) bool {
	key := store.TokenBlacklistKey(token)
	raw, err := b.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		Sugar.Warnf("token blacklist lookup failed: %v", err)
		return false
	}
	exp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true
	}
	if b.now().Unix() >= exp {
		_ = b.kv.Delete(ctx, key)
		return false
	}
	return true
}
