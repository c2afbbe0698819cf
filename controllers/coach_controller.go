package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spotme/spotme/middleware"
	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/services"
	"github.com/spotme/spotme/utils"
)

// CoachController exposes the LLM features and the routine library.
type CoachController struct {
	coach    *services.CoachService
	routines *services.RoutineService
}

// NewCoachController creates a new controller instance.
func NewCoachController(coach *services.CoachService, routines *services.RoutineService) *CoachController {
	return &CoachController{coach: coach, routines: routines}
}

// GenerateRoutine builds a routine from questionnaire answers; ?save=true stores it.
func (c *CoachController) GenerateRoutine(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	var prefs models.RoutinePreferences
	if err := ctx.ShouldBindJSON(&prefs); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	routine, err := c.coach.GenerateRoutine(ctx.Request.Context(), userID, prefs)
	if err != nil {
		respondError(ctx, err, 50050)
		return
	}
	if ctx.Query("save") != "true" {
		utils.Success(ctx, gin.H{"routine": routine})
		return
	}
	saved, err := c.routines.Save(ctx.Request.Context(), userID, routine, models.RoutineSourceAI)
	if err != nil {
		respondError(ctx, err, 50051)
		return
	}
	utils.Created(ctx, gin.H{"routine": saved})
}

// ModifyRoutine rewrites a routine; it is given inline or as a saved routine id.
func (c *CoachController) ModifyRoutine(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	var req struct {
		RoutineID string          `json:"routineId"`
		Routine   *models.Routine `json:"routine"`
		Request   string          `json:"request" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid request payload")
		return
	}

	var base models.Routine
	switch {
	case req.Routine != nil:
		base = *req.Routine
	case req.RoutineID != "":
		saved, err := c.routines.Get(ctx.Request.Context(), userID, req.RoutineID)
		if err != nil {
			respondError(ctx, err, 50052)
			return
		}
		base = saved.Routine
	default:
		utils.Error(ctx, http.StatusBadRequest, 40052, "routine or routineId required")
		return
	}

	routine, err := c.coach.ModifyRoutine(ctx.Request.Context(), userID, base, req.Request)
	if err != nil {
		respondError(ctx, err, 50053)
		return
	}
	utils.Success(ctx, gin.H{"routine": routine})
}

// AnalyzeWorkouts returns an analysis of the posted workout data, or of the
// caller's check-ins when the body is empty.
func (c *CoachController) AnalyzeWorkouts(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	var req struct {
		Data json.RawMessage `json:"data"`
	}
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40053, "invalid request payload")
			return
		}
	}
	analysis, err := c.coach.AnalyzeWorkouts(ctx.Request.Context(), userID, req.Data)
	if err != nil {
		respondError(ctx, err, 50054)
		return
	}
	utils.Success(ctx, gin.H{"analysis": analysis})
}

// GymHelper answers a form or technique question, optionally with a photo.
func (c *CoachController) GymHelper(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	var req struct {
		Question string `json:"question" binding:"required"`
		Image    string `json:"imageBase64"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40054, "invalid request payload")
		return
	}
	answer, err := c.coach.GymHelper(ctx.Request.Context(), userID, req.Question, req.Image)
	if err != nil {
		respondError(ctx, err, 50055)
		return
	}
	utils.Success(ctx, gin.H{"answer": answer})
}

// ListRoutines returns the caller's saved routines.
func (c *CoachController) ListRoutines(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	list, err := c.routines.List(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50056)
		return
	}
	utils.Success(ctx, gin.H{"items": list})
}

// SaveRoutine stores a hand-built routine.
func (c *CoachController) SaveRoutine(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	var routine models.Routine
	if err := ctx.ShouldBindJSON(&routine); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40055, "invalid routine")
		return
	}
	saved, err := c.routines.Save(ctx.Request.Context(), userID, routine, models.RoutineSourceManual)
	if err != nil {
		respondError(ctx, err, 50057)
		return
	}
	utils.Created(ctx, saved)
}

// GetRoutine returns one saved routine.
func (c *CoachController) GetRoutine(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	r, err := c.routines.Get(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 50058)
		return
	}
	utils.Success(ctx, r)
}

// DeleteRoutine removes a saved routine.
func (c *CoachController) DeleteRoutine(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	if err := c.routines.Delete(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		respondError(ctx, err, 50059)
		return
	}
	utils.Success(ctx, gin.H{"message": "routine deleted"})
}

// SetCurrentRoutine marks a saved routine as the one being followed.
func (c *CoachController) SetCurrentRoutine(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	r, err := c.routines.SetCurrent(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 50060)
		return
	}
	utils.Success(ctx, r)
}

// CurrentRoutine returns the routine being followed, if any.
func (c *CoachController) CurrentRoutine(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	r, ok, err := c.routines.Current(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50061)
		return
	}
	if !ok {
		utils.Success(ctx, gin.H{"routine": nil})
		return
	}
	utils.Success(ctx, gin.H{"routine": r})
}
