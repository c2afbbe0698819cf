package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spotme/spotme/middleware"
	"github.com/spotme/spotme/services"
	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

// CheckInController handles the daily photo check-in and streak status.
type CheckInController struct {
	checkIns *services.CheckInService
	engine   *streak.Engine
	users    *services.UserService
}

// NewCheckInController creates a new controller instance.
func NewCheckInController(checkIns *services.CheckInService, engine *streak.Engine, users *services.UserService) *CheckInController {
	return &CheckInController{checkIns: checkIns, engine: engine, users: users}
}

// Submit records today's check-in and returns the post with the new streak.
func (c *CheckInController) Submit(ctx *gin.Context) {
	user, ok := currentUser(ctx, c.users)
	if !ok {
		return
	}
	var req services.CheckInInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	res, err := c.checkIns.Submit(ctx.Request.Context(), user, req)
	if err != nil {
		respondError(ctx, err, 50030)
		return
	}
	utils.Created(ctx, res)
}

// Status returns the caller's streak, whether they posted today and the feed lock.
func (c *CheckInController) Status(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	st, err := c.engine.Status(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50031)
		return
	}
	utils.Success(ctx, st)
}

// WorkoutTypes lists the selectable workout categories.
func (c *CheckInController) WorkoutTypes(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"items": services.WorkoutTypes, "other": services.WorkoutOther})
}
