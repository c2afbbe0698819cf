// Package store is the key-value persistence port shared by the streak engine,
// the post store and the user registry.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrNotFound is returned by Get when the key has never been set or was deleted.
var ErrNotFound = errors.New("store: key not found")

// Store is a string key-value capability. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Key prefixes. The logical schema is user, posts, streak and lastPostDate; everything
// per-user is suffixed with the user id.
const (
	prefix = "spotme:"

	PostsKey = prefix + "posts"
	UsersKey = prefix + "users"
)

// UserKey is the JSON profile of a user.
func UserKey(userID string) string { return prefix + "user:" + userID }

// UsernameKey maps a username to its user id.
func UsernameKey(username string) string { return prefix + "username:" + username }

// StreakKey holds the stringified streak counter.
func StreakKey(userID string) string { return prefix + "streak:" + userID }

// LastPostDateKey holds the YYYY-MM-DD date of the latest check-in.
func LastPostDateKey(userID string) string { return prefix + "lastPostDate:" + userID }

// APIKeyKey holds the user's LLM API key.
func APIKeyKey(userID string) string { return prefix + "apikey:" + userID }

// RoutinesKey holds the user's saved routines.
func RoutinesKey(userID string) string { return prefix + "routines:" + userID }

// CurrentRoutineKey holds the routine the user is currently following.
func CurrentRoutineKey(userID string) string { return prefix + "currentRoutine:" + userID }

// TokenBlacklistKey marks a revoked JWT.
func TokenBlacklistKey(token string) string { return prefix + "jwt:blacklist:" + token }

// GetJSON decodes the value at key into v. ErrNotFound is passed through untouched.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("store: decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(b))
}

// GetInt reads a stringified integer. Absent keys yield def.
func GetInt(ctx context.Context, s Store, key string, def int) (int, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("store: %s is not an integer: %w", key, err)
	}
	return n, nil
}

// SetInt stores n as a decimal string.
func SetInt(ctx context.Context, s Store, key string, n int) error {
	return s.Set(ctx, key, strconv.Itoa(n))
}
