package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/store"
	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)

// OnboardInput is collected by the onboarding screens.
type OnboardInput struct {
	Name       string `json:"name" binding:"required,max=60"`
	Username   string `json:"username" binding:"required"`
	WeeklyGoal int    `json:"weeklyGoal" binding:"required,min=1,max=7"`
	Password   string `json:"password" binding:"required"`
	TimeZone   string `json:"timeZone"`
}

// ProfileInput is a partial profile update; nil fields are left unchanged.
type ProfileInput struct {
	Name       *string `json:"name" binding:"omitempty,max=60"`
	WeeklyGoal *int    `json:"weeklyGoal" binding:"omitempty,min=1,max=7"`
	TimeZone   *string `json:"timeZone"`
	AvatarURL  *string `json:"avatarUrl" binding:"omitempty,max=512"`
}

// UserService owns user profiles, the username index and per-user API keys.
type UserService struct {
	kv          store.Store
	defaultZone *time.Location
	now         func() time.Time

	mu sync.Mutex
}

// NewUserService stores users in kv. defaultZone applies to users without a time zone.
func NewUserService(kv store.Store, defaultZone *time.Location) *UserService {
	if defaultZone == nil {
		defaultZone = time.Local
	}
	return &UserService{kv: kv, defaultZone: defaultZone, now: time.Now}
}

// NormalizeUsername lowercases and strips a leading "@".
func NormalizeUsername(u string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(u), "@"))
}

// Onboard creates a user. The username must be unique.
func (s *UserService) Onboard(ctx context.Context, in OnboardInput) (models.User, error) {
	username := NormalizeUsername(in.Username)
	name := utils.PlainText(in.Name)
	switch {
	case name == "":
		return models.User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !usernamePattern.MatchString(username):
		return models.User{}, fmt.Errorf("%w: username must be 3-30 of a-z, 0-9, _ or .", ErrInvalidInput)
	case in.WeeklyGoal < 1 || in.WeeklyGoal > 7:
		return models.User{}, fmt.Errorf("%w: weekly goal must be between 1 and 7", ErrInvalidInput)
	case len(in.Password) < utils.MinPasswordLength:
		return models.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, utils.MinPasswordLength)
	}
	if err := validZone(in.TimeZone); err != nil {
		return models.User{}, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.kv.Get(ctx, store.UsernameKey(username)); err == nil {
		return models.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, err
	}

	u := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Username:     username,
		WeeklyGoal:   in.WeeklyGoal,
		TimeZone:     in.TimeZone,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := store.SetJSON(ctx, s.kv, store.UserKey(u.ID), u); err != nil {
		return models.User{}, err
	}
	if err := s.kv.Set(ctx, store.UsernameKey(username), u.ID); err != nil {
		return models.User{}, err
	}

	ids, err := s.ids(ctx)
	if err != nil {
		return models.User{}, err
	}
	if err := store.SetJSON(ctx, s.kv, store.UsersKey, append(ids, u.ID)); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Authenticate checks a username and password.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	u, err := s.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if !utils.CheckPassword(u.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := store.GetJSON(ctx, s.kv, store.UserKey(id), &u)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}

// GetByUsername loads a user through the username index.
func (s *UserService) GetByUsername(ctx context.Context, username string) (models.User, error) {
	id, err := s.kv.Get(ctx, store.UsernameKey(NormalizeUsername(username)))
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return s.Get(ctx, id)
}

// List returns every user in onboarding order.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	ids, err := s.ids(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.Get(ctx, id)
		if errors.Is(err, ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// UpdateProfile applies the non-nil fields of in.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if in.Name != nil {
		name := utils.PlainText(*in.Name)
		if name == "" {
			return models.User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		u.Name = name
	}
	if in.WeeklyGoal != nil {
		if *in.WeeklyGoal < 1 || *in.WeeklyGoal > 7 {
			return models.User{}, fmt.Errorf("%w: weekly goal must be between 1 and 7", ErrInvalidInput)
		}
		u.WeeklyGoal = *in.WeeklyGoal
	}
	if in.TimeZone != nil && *in.TimeZone != u.TimeZone {
		if err := validZone(*in.TimeZone); err != nil {
			return models.User{}, err
		}
		if err := s.checkZoneChange(ctx, u.ID, *in.TimeZone); err != nil {
			return models.User{}, err
		}
		u.TimeZone = *in.TimeZone
	}
	if in.AvatarURL != nil {
		u.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if err := store.SetJSON(ctx, s.kv, store.UserKey(u.ID), u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Location is the calendar zone of a user; unknown users get the default zone.
func (s *UserService) Location(ctx context.Context, userID string) *time.Location {
	u, err := s.Get(ctx, userID)
	if err != nil || u.TimeZone == "" {
		return s.defaultZone
	}
	loc, err := time.LoadLocation(u.TimeZone)
	if err != nil {
		return s.defaultZone
	}
	return loc
}

// SetAPIKey stores the user's LLM key. Keys must start with "sk-".
func (s *UserService) SetAPIKey(ctx context.Context, userID, key string) error {
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, "sk-") || len(key) < 8 {
		return fmt.Errorf("%w: api key must start with sk-", ErrInvalidInput)
	}
	return s.kv.Set(ctx, store.APIKeyKey(userID), key)
}

// ClearAPIKey forgets the user's LLM key.
func (s *UserService) ClearAPIKey(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, store.APIKeyKey(userID))
}

// APIKey returns the stored key, or "" when none is set.
func (s *UserService) APIKey(ctx context.Context, userID string) (string, error) {
	key, err := s.kv.Get(ctx, store.APIKeyKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return key, err
}

func (s *UserService) ids(ctx context.Context) ([]string, error) {
	var ids []string
	err := store.GetJSON(ctx, s.kv, store.UsersKey, &ids)
	if errors.Is(err, store.ErrNotFound) {
		return []string{}, nil
	}
	return ids, err
}

// checkZoneChange refuses a zone in which the user's last check-in date is still ahead of today.
func (s *UserService) checkZoneChange(ctx context.Context, userID, zone string) error {
	raw, err := s.kv.Get(ctx, store.LastPostDateKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	last, err := streak.ParseDate(raw)
	if err != nil {
		return err
	}
	loc := s.defaultZone
	if zone != "" {
		if loc, err = time.LoadLocation(zone); err != nil {
			return fmt.Errorf("%w: unknown time zone %q", ErrInvalidInput, zone)
		}
	}
	if today := streak.DateOf(s.now().In(loc)); today.DaysSince(last) < 0 {
		return fmt.Errorf("%w: last check-in (%s) is after today (%s) in %s; try again tomorrow", ErrInvalidInput, last, today, loc)
	}
	return nil
}

func validZone(name string) error {
	if name == "" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("%w: unknown time zone %q", ErrInvalidInput, name)
	}
	return nil
}
