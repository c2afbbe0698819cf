package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/spotme/spotme/middleware"
	"github.com/spotme/spotme/services"
	"github.com/spotme/spotme/utils"
)

// StatsController provides community statistics such as counts and today's check-ins.
type StatsController struct {
	stats *services.StatsService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(stats *services.StatsService) *StatsController {
	return &StatsController{stats: stats}
}

// GetStats returns aggregate statistics for the community.
func (s *StatsController) GetStats(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	st, err := s.stats.Get(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50060)
		return
	}
	utils.Success(ctx, st)
}
