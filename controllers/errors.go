package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spotme/spotme/coach"
	"github.com/spotme/spotme/middleware"
	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/posts"
	"github.com/spotme/spotme/services"
	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

// respondError maps domain errors onto the response envelope. fallback is the
// business code used for unexpected failures.
func respondError(ctx *gin.Context, err error, fallback int) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		utils.Error(ctx, http.StatusBadRequest, 40001, strings.TrimPrefix(err.Error(), services.ErrInvalidInput.Error()+": "))
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40111, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, err.Error())
	case errors.Is(err, posts.ErrPostNotFound):
		utils.Error(ctx, http.StatusNotFound, 40420, "post not found")
	case errors.Is(err, services.ErrRoutineNotFound):
		utils.Error(ctx, http.StatusNotFound, 40430, err.Error())
	case errors.Is(err, services.ErrUsernameTaken):
		utils.Error(ctx, http.StatusConflict, 40910, err.Error())
	case errors.Is(err, streak.ErrInvalidState):
		utils.Sugar.Errorw("streak state inconsistent", "path", ctx.FullPath(), "error", err)
		utils.Error(ctx, http.StatusConflict, 40920, "stored streak state is inconsistent")
	case errors.Is(err, coach.ErrMissingCredentials):
		utils.Fail(ctx, http.StatusPreconditionRequired, 42801, "add your OpenAI API key to use the coach", gin.H{"reason": "setup_required"})
	case errors.Is(err, coach.ErrMalformedResponse):
		utils.Sugar.Warnw("coach returned malformed output", "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50210, "the coach returned an unusable answer, try again")
	case errors.Is(err, coach.ErrUpstream):
		utils.Sugar.Warnw("coach upstream failed", "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50220, "the coach is unavailable right now")
	default:
		utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "error", err)
		utils.Error(ctx, http.StatusInternalServerError, fallback, "internal server error")
	}
}

// currentUser loads the authenticated user; on failure it has already responded.
func currentUser(ctx *gin.Context, users *services.UserService) (models.User, bool) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return models.User{}, false
	}
	u, err := users.Get(ctx.Request.Context(), userID)
	if errors.Is(err, services.ErrUserNotFound) {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "account no longer exists")
		return models.User{}, false
	}
	if err != nil {
		respondError(ctx, err, 50001)
		return models.User{}, false
	}
	return u, true
}
