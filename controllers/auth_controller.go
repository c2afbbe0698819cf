package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spotme/spotme/middleware"
	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/services"
	"github.com/spotme/spotme/utils"
)

// AuthController handles onboarding, sessions, the profile and the coach API key.
type AuthController struct {
	users     *services.UserService
	blacklist *utils.TokenBlacklist
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(users *services.UserService, blacklist *utils.TokenBlacklist) *AuthController {
	return &AuthController{users: users, blacklist: blacklist}
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Onboard creates an account and signs it in.
func (a *AuthController) Onboard(ctx *gin.Context) {
	var req services.OnboardInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid request payload")
		return
	}

	user, err := a.users.Onboard(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err, 50002)
		return
	}
	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to issue token")
		return
	}

	utils.Sugar.Infow("user onboarded", "user", user.ID, "username", user.Username)
	utils.Created(ctx, sessionResponse{Token: token, User: user.Public()})
}

// Login authenticates with username and password.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, err, 50004)
		return
	}
	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to issue token")
		return
	}
	utils.Success(ctx, sessionResponse{Token: token, User: user.Public()})
}

// Logout revokes the current token.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	exp, _ := ctx.Get(middleware.ContextTokenExpiryKey)
	expiresAt, ok := exp.(time.Time)
	if !ok {
		expiresAt = time.Now().Add(utils.TokenTTL)
	}
	if err := a.blacklist.Revoke(ctx.Request.Context(), token, expiresAt); err != nil {
		respondError(ctx, err, 50005)
		return
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the caller's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := currentUser(ctx, a.users)
	if !ok {
		return
	}
	utils.Success(ctx, user.Public())
}

// UpdateProfile edits name, weekly goal, time zone or avatar.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req services.ProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request payload")
		return
	}
	user, err := a.users.UpdateProfile(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err, 50006)
		return
	}
	utils.Success(ctx, user.Public())
}

// GetUserByUsername returns another user's public profile.
func (a *AuthController) GetUserByUsername(ctx *gin.Context) {
	user, err := a.users.GetByUsername(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		respondError(ctx, err, 50007)
		return
	}
	utils.Success(ctx, user.Public())
}

// APIKeyStatus reports whether a coach API key is stored. The key itself is never returned.
func (a *AuthController) APIKeyStatus(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	key, err := a.users.APIKey(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50008)
		return
	}
	utils.Success(ctx, gin.H{"configured": key != ""})
}

// SetAPIKey stores the caller's OpenAI key.
func (a *AuthController) SetAPIKey(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	var req struct {
		APIKey string `json:"apiKey" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid request payload")
		return
	}
	if err := a.users.SetAPIKey(ctx.Request.Context(), userID, req.APIKey); err != nil {
		respondError(ctx, err, 50009)
		return
	}
	utils.Success(ctx, gin.H{"configured": true})
}

// ClearAPIKey removes the caller's OpenAI key.
func (a *AuthController) ClearAPIKey(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	if err := a.users.ClearAPIKey(ctx.Request.Context(), userID); err != nil {
		respondError(ctx, err, 50009)
		return
	}
	utils.Success(ctx, gin.H{"configured": false})
}
