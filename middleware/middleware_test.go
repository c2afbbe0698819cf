package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotme/spotme/config"
	"github.com/spotme/spotme/store"
	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(4) // burst 2
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestAuthRequired(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "mw-secret"})
	kv := store.NewMemoryStore()
	bl := utils.NewTokenBlacklist(kv)

	r := gin.New()
	r.GET("/me", AuthRequired(bl), func(ctx *gin.Context) {
		id, _ := UserID(ctx)
		ctx.String(http.StatusOK, id)
	})
	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer garbage").Code)

	token, err := utils.GenerateToken("u-9", "sam", time.Hour)
	require.NoError(t, err)
	w := call("Bearer " + token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-9", w.Body.String())

	require.NoError(t, bl.Revoke(context.Background(), token, time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+token).Code)
}

func TestFeedUnlocked(t *testing.T) {
	kv := store.NewMemoryStore()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	engine := streak.NewEngine(kv,
		streak.WithClock(streak.ClockFunc(func() time.Time { return now })),
		streak.WithZone(func(context.Context, string) *time.Location { return time.UTC }),
	)

	r := gin.New()
	r.POST("/like", func(ctx *gin.Context) {
		ctx.Set(ContextUserIDKey, "u1")
		ctx.Next()
	}, FeedUnlocked(engine), func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})
	call := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/like", nil))
		return w.Code
	}

	assert.Equal(t, http.StatusForbidden, call())
	_, err := engine.UpdateStreakAfterPost(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, call())
}
