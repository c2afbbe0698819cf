package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

// FeedUnlocked rejects social actions until the caller has checked in today.
// It must run after AuthRequired.
func FeedUnlocked(engine *streak.Engine) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID, ok := UserID(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			ctx.Abort()
			return
		}
		posted, err := engine.HasPostedToday(ctx.Request.Context(), userID)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to read streak state")
			ctx.Abort()
			return
		}
		if !posted {
			utils.Fail(ctx, http.StatusForbidden, 40310, "post today to unlock the feed", gin.H{"locked": true})
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
