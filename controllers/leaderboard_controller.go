package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/spotme/spotme/middleware"
	"github.com/spotme/spotme/services"
	"github.com/spotme/spotme/utils"
)

// LeaderboardController serves rankings and badges.
type LeaderboardController struct {
	board  *services.LeaderboardService
	badges *services.BadgeService
}

// NewLeaderboardController creates a new controller instance.
func NewLeaderboardController(board *services.LeaderboardService, badges *services.BadgeService) *LeaderboardController {
	return &LeaderboardController{board: board, badges: badges}
}

// Leaderboard ranks every user for ?period=weekly (default) or monthly.
func (l *LeaderboardController) Leaderboard(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	period := ctx.DefaultQuery("period", services.PeriodWeekly)

	entries, err := l.board.Rank(ctx.Request.Context(), userID, period)
	if err != nil {
		respondError(ctx, err, 50040)
		return
	}
	rank := 0
	for _, e := range entries {
		if e.UserID == userID {
			rank = e.Rank
			break
		}
	}
	utils.Success(ctx, gin.H{"period": period, "items": entries, "myRank": rank})
}

// Badges returns the caller's badge collection, or another user's via :id.
func (l *LeaderboardController) Badges(ctx *gin.Context) {
	userID := ctx.Param("id")
	if userID == "" {
		userID, _ = middleware.UserID(ctx)
	}
	list, err := l.badges.Badges(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50041)
		return
	}
	unlocked := 0
	for _, b := range list {
		if b.Unlocked {
			unlocked++
		}
	}
	utils.Success(ctx, gin.H{"items": list, "unlocked": unlocked, "total": len(list)})
}
