package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/posts"
	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

const maxCommentLength = 500

// FeedView is the caller's view of the shared feed.
type FeedView struct {
	Locked    bool          `json:"locked"`
	Streak    streak.Status `json:"streak"`
	TodayPost *models.Post  `json:"todayPost,omitempty"`
	Posts     []models.Post `json:"posts"`
}

// FeedService serves the feed and its social actions.
type FeedService struct {
	engine *streak.Engine
	posts  *posts.Store
	zone   streak.ZoneFunc
	now    func() time.Time
}

// NewFeedService builds a FeedService. zone resolves a user's calendar zone.
func NewFeedService(engine *streak.Engine, ps *posts.Store, zone streak.ZoneFunc) *FeedService {
	return &FeedService{engine: engine, posts: ps, zone: zone, now: time.Now}
}

// Feed returns every post once the user has checked in today, and nothing before.
func (s *FeedService) Feed(ctx context.Context, userID string) (FeedView, error) {
	st, err := s.engine.Status(ctx, userID)
	if err != nil {
		return FeedView{}, err
	}
	if st.FeedLocked {
		return FeedView{Locked: true, Streak: st, Posts: []models.Post{}}, nil
	}

	list, err := s.posts.GetPosts(ctx)
	if err != nil {
		return FeedView{}, err
	}
	view := FeedView{Streak: st, Posts: list}
	today, ok, err := s.posts.TodayPost(ctx, userID, st.Today, s.zone(ctx, userID))
	if err != nil {
		return FeedView{}, err
	}
	if ok {
		view.TodayPost = &today
	}
	return view, nil
}

// Comment adds a comment by user to postID. Unknown posts are ignored.
func (s *FeedService) Comment(ctx context.Context, user models.User, postID, text string) (models.Comment, error) {
	text = utils.PlainText(text)
	if text == "" {
		return models.Comment{}, fmt.Errorf("%w: comment text required", ErrInvalidInput)
	}
	if len([]rune(text)) > maxCommentLength {
		return models.Comment{}, fmt.Errorf("%w: comment longer than %d characters", ErrInvalidInput, maxCommentLength)
	}
	c := models.Comment{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		UserName:   user.Name,
		UserAvatar: Avatar(user),
		Text:       text,
		Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.posts.AddComment(ctx, strings.TrimSpace(postID), c); err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

// ToggleLike likes or unlikes postID for user.
func (s *FeedService) ToggleLike(ctx context.Context, userID, postID string) (models.Post, error) {
	return s.posts.ToggleLike(ctx, postID, userID)
}

// UserPosts returns a user's check-in history.
func (s *FeedService) UserPosts(ctx context.Context, userID string) ([]models.Post, error) {
	return s.posts.PostsByUser(ctx, userID)
}
