package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spotme/spotme/events"
	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/posts"
	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

// WorkoutOther asks for a free-text workout type.
const WorkoutOther = "Other"

// WorkoutTypes are the selectable workout categories.
var WorkoutTypes = []string{"Chest", "Back", "Legs", "Cardio", "Arms", "Shoulders", "Full Body", WorkoutOther}

// CheckInInput is a photo check-in as submitted by a client.
type CheckInInput struct {
	ImageURI    string `json:"imageUri"`
	WorkoutType string `json:"workoutType"`
	CustomType  string `json:"customType"`
	Duration    int    `json:"duration"`
	Caption     string `json:"caption"`
	PR          bool   `json:"pr"`
}

// CheckInResult is what a successful submission produced.
type CheckInResult struct {
	Post   models.Post `json:"post"`
	Streak int         `json:"streak"`
}

// CheckInService runs the submit flow: validate, store the post, advance the streak, signal.
type CheckInService struct {
	engine *streak.Engine
	posts  *posts.Store
	events *events.Broadcaster
	now    func() time.Time
}

// NewCheckInService wires the collaborators of a check-in.
func NewCheckInService(engine *streak.Engine, ps *posts.Store, bus *events.Broadcaster) *CheckInService {
	return &CheckInService{engine: engine, posts: ps, events: bus, now: time.Now}
}

// Validate rejects incomplete check-ins. It touches no state.
func (in CheckInInput) Validate() error {
	if strings.TrimSpace(in.ImageURI) == "" {
		return fmt.Errorf("%w: photo required", ErrInvalidInput)
	}
	if in.WorkoutType == "" {
		return fmt.Errorf("%w: workout type required", ErrInvalidInput)
	}
	known := false
	for _, t := range WorkoutTypes {
		if t == in.WorkoutType {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown workout type %q", ErrInvalidInput, in.WorkoutType)
	}
	if in.WorkoutType == WorkoutOther && strings.TrimSpace(in.CustomType) == "" {
		return fmt.Errorf("%w: custom workout type required", ErrInvalidInput)
	}
	if in.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	return nil
}

// Submit records a check-in for user. Nothing is written when validation fails or
// the stored streak state is inconsistent. If persisting the streak fails after the
// post was added, the post is removed again.
func (s *CheckInService) Submit(ctx context.Context, user models.User, in CheckInInput) (CheckInResult, error) {
	if err := in.Validate(); err != nil {
		return CheckInResult{}, err
	}
	if _, err := s.engine.Preview(ctx, user.ID); err != nil {
		return CheckInResult{}, err
	}

	workoutType := in.WorkoutType
	if workoutType == WorkoutOther {
		workoutType = utils.PlainText(in.CustomType)
	}
	post := models.Post{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		UserName:   user.Name,
		UserAvatar: Avatar(user),
		ImageURI:   strings.TrimSpace(in.ImageURI),
		Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
		Caption:    utils.Sanitize(in.Caption),
		Meta: models.PostMeta{
			PR:          in.PR,
			WorkoutType: workoutType,
			Duration:    in.Duration,
		},
		Engagement: models.Engagement{LikedBy: []string{}, Comments: []models.Comment{}},
	}

	if err := s.posts.AddPost(ctx, post); err != nil {
		return CheckInResult{}, err
	}
	n, err := s.engine.UpdateStreakAfterPost(ctx, user.ID)
	if err != nil {
		if rmErr := s.posts.RemovePost(ctx, post.ID); rmErr != nil {
			utils.Sugar.Errorw("check-in rollback failed", "user", user.ID, "post", post.ID, "error", rmErr)
		}
		return CheckInResult{}, err
	}

	ev := events.PostedToday{UserID: user.ID, DateISO: s.engine.Today(ctx, user.ID).String(), PostID: post.ID}
	if err := s.events.Publish(ctx, ev); err != nil {
		// local subscribers already ran; only the cross-instance relay failed
		utils.Sugar.Warnw("posted-today relay failed", "user", user.ID, "error", err)
	}
	return CheckInResult{Post: post, Streak: n}, nil
}

// Avatar is the user's avatar, or a generated placeholder seeded by username.
func Avatar(u models.User) string {
	if u.AvatarURL != "" {
		return u.AvatarURL
	}
	return "https://picsum.photos/seed/" + u.Username + "/200"
}
