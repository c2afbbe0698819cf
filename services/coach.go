package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spotme/spotme/coach"
	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/posts"
)

// CoachService resolves the caller's API key and forwards to the LLM client.
type CoachService struct {
	client *coach.Client
	users  *UserService
	posts  *posts.Store
}

// NewCoachService builds a CoachService.
func NewCoachService(client *coach.Client, users *UserService, ps *posts.Store) *CoachService {
	return &CoachService{client: client, users: users, posts: ps}
}

func (s *CoachService) key(ctx context.Context, userID string) (string, error) {
	key, err := s.users.APIKey(ctx, userID)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", coach.ErrMissingCredentials
	}
	return key, nil
}

// GenerateRoutine builds a routine from questionnaire answers.
func (s *CoachService) GenerateRoutine(ctx context.Context, userID string, prefs models.RoutinePreferences) (models.Routine, error) {
	key, err := s.key(ctx, userID)
	if err != nil {
		return models.Routine{}, err
	}
	return s.client.GenerateRoutine(ctx, key, prefs)
}

// ModifyRoutine rewrites routine according to a free-text request.
func (s *CoachService) ModifyRoutine(ctx context.Context, userID string, routine models.Routine, request string) (models.Routine, error) {
	if strings.TrimSpace(request) == "" {
		return models.Routine{}, fmt.Errorf("%w: request required", ErrInvalidInput)
	}
	key, err := s.key(ctx, userID)
	if err != nil {
		return models.Routine{}, err
	}
	return s.client.ModifyRoutine(ctx, key, routine, request)
}

// AnalyzeWorkouts analyzes data; an empty body analyzes the user's own check-ins.
func (s *CoachService) AnalyzeWorkouts(ctx context.Context, userID string, data json.RawMessage) (string, error) {
	key, err := s.key(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		mine, err := s.posts.PostsByUser(ctx, userID)
		if err != nil {
			return "", err
		}
		if data, err = json.Marshal(workoutLog(mine)); err != nil {
			return "", err
		}
	} else if !json.Valid(data) {
		return "", fmt.Errorf("%w: workout data must be JSON", ErrInvalidInput)
	}
	return s.client.AnalyzeWorkouts(ctx, key, data)
}

// GymHelper answers a question, optionally about a photo.
func (s *CoachService) GymHelper(ctx context.Context, userID, question, imageBase64 string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question required", ErrInvalidInput)
	}
	key, err := s.key(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.client.GymHelper(ctx, key, question, stripDataURI(imageBase64))
}

// stripDataURI accepts both raw base64 and a full data: URI.
func stripDataURI(s string) string {
	if i := strings.Index(s, ";base64,"); strings.HasPrefix(s, "data:") && i >= 0 {
		return s[i+len(";base64,"):]
	}
	return s
}

type workoutEntry struct {
	Date     string `json:"date"`
	Type     string `json:"type"`
	Duration int    `json:"durationMinutes"`
	PR       bool   `json:"pr,omitempty"`
}

// workoutLog strips posts down to what is worth sending to the model.
func workoutLog(list []models.Post) []workoutEntry {
	out := make([]workoutEntry, 0, len(list))
	for _, p := range list {
		out = append(out, workoutEntry{
			Date:     p.Day(nil),
			Type:     p.Meta.WorkoutType,
			Duration: p.Meta.Duration,
			PR:       p.Meta.PR,
		})
	}
	return out
}
