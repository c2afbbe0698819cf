package controllers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/spotme/spotme/middleware"
	"github.com/spotme/spotme/services"
	"github.com/spotme/spotme/utils"
)

// UploadURLPrefix is where uploaded photos are served from.
const UploadURLPrefix = "/uploads"

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// PostController serves the feed, likes, comments and photo uploads.
type PostController struct {
	feed      *services.FeedService
	users     *services.UserService
	uploadDir string
	maxUpload int64
}

// NewPostController creates a new PostController instance.
func NewPostController(feed *services.FeedService, users *services.UserService, uploadDir string, maxUploadMB int) *PostController {
	return &PostController{
		feed:      feed,
		users:     users,
		uploadDir: uploadDir,
		maxUpload: int64(maxUploadMB) << 20,
	}
}

// Feed returns the shared feed, or a locked view before today's check-in.
func (p *PostController) Feed(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	view, err := p.feed.Feed(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50020)
		return
	}
	utils.Success(ctx, view)
}

// ToggleLike likes or unlikes a post.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	post, err := p.feed.ToggleLike(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 50021)
		return
	}
	utils.Success(ctx, post)
}

// CreateComment adds a comment to a post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	user, ok := currentUser(ctx, p.users)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	comment, err := p.feed.Comment(ctx.Request.Context(), user, ctx.Param("id"), req.Text)
	if err != nil {
		respondError(ctx, err, 50022)
		return
	}
	utils.Created(ctx, comment)
}

// ListUserPosts returns one user's check-in history.
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	list, err := p.feed.UserPosts(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, 50023)
		return
	}
	utils.Success(ctx, gin.H{"items": list})
}

// UploadPhoto stores a JPEG or PNG check-in photo and returns its URL.
func (p *PostController) UploadPhoto(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, p.maxUpload+1<<20)
	file, header, err := ctx.Request.FormFile("photo")
	if err != nil {
		file, header, err = ctx.Request.FormFile("file")
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40021, "no photo uploaded")
			return
		}
	}
	defer file.Close()

	tooLarge := fmt.Sprintf("photo exceeds %dMB", p.maxUpload>>20)
	if header.Size > p.maxUpload {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, tooLarge)
		return
	}

	sniff := make([]byte, 512)
	n, _ := io.ReadFull(file, sniff)
	ext, ok := photoExtensions[http.DetectContentType(sniff[:n])]
	if !ok {
		utils.Error(ctx, http.StatusUnsupportedMediaType, 41501, "only JPEG and PNG photos are accepted")
		return
	}

	now := time.Now()
	day := filepath.Join(now.Format("2006"), now.Format("01"), now.Format("02"))
	baseDir := filepath.Join(p.uploadDir, day)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to create upload directory")
		return
	}
	name := uuid.NewString() + ext
	dstPath := filepath.Join(baseDir, name)

	out, err := os.Create(dstPath)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to save photo")
		return
	}
	defer out.Close()

	src := io.MultiReader(bytes.NewReader(sniff[:n]), file)
	written, err := io.Copy(out, &io.LimitedReader{R: src, N: p.maxUpload + 1})
	if err != nil || written > p.maxUpload {
		_ = out.Close()
		_ = os.Remove(dstPath)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to write photo")
			return
		}
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, tooLarge)
		return
	}

	url := UploadURLPrefix + "/" + filepath.ToSlash(filepath.Join(day, name))
	utils.Sugar.Infow("photo uploaded", "user", userID, "url", url, "bytes", written)
	utils.Created(ctx, gin.H{"url": url})
}
