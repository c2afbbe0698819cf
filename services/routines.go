package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/store"
)

// RoutineService is a per-user library of saved routines.
type RoutineService struct {
	kv  store.Store
	now func() time.Time
	mu  sync.Mutex
}

// NewRoutineService stores routines in kv.
func NewRoutineService(kv store.Store) *RoutineService {
	return &RoutineService{kv: kv, now: time.Now}
}

// List returns the user's routines, newest first.
func (s *RoutineService) List(ctx context.Context, userID string) ([]models.SavedRoutine, error) {
	var list []models.SavedRoutine
	err := store.GetJSON(ctx, s.kv, store.RoutinesKey(userID), &list)
	if errors.Is(err, store.ErrNotFound) || (err == nil && list == nil) {
		return []models.SavedRoutine{}, nil
	}
	return list, err
}

// Get returns one saved routine.
func (s *RoutineService) Get(ctx context.Context, userID, id string) (models.SavedRoutine, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return models.SavedRoutine{}, err
	}
	for _, r := range list {
		if r.ID == id {
			return r, nil
		}
	}
	return models.SavedRoutine{}, ErrRoutineNotFound
}

// Save validates r and adds it to the user's library.
func (s *RoutineService) Save(ctx context.Context, userID string, r models.Routine, source string) (models.SavedRoutine, error) {
	if err := binding.Validator.ValidateStruct(&r); err != nil {
		return models.SavedRoutine{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if source != models.RoutineSourceAI {
		source = models.RoutineSourceManual
	}
	saved := models.SavedRoutine{
		ID:        uuid.NewString(),
		UserID:    userID,
		Source:    source,
		CreatedAt: s.now().UTC(),
		Routine:   r,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.List(ctx, userID)
	if err != nil {
		return models.SavedRoutine{}, err
	}
	list = append([]models.SavedRoutine{saved}, list...)
	if err := store.SetJSON(ctx, s.kv, store.RoutinesKey(userID), list); err != nil {
		return models.SavedRoutine{}, err
	}
	return saved, nil
}

// Delete removes a routine from the library.
func (s *RoutineService) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.List(ctx, userID)
	if err != nil {
		return err
	}
	for i, r := range list {
		if r.ID == id {
			list = append(list[:i], list[i+1:]...)
			return store.SetJSON(ctx, s.kv, store.RoutinesKey(userID), list)
		}
	}
	return ErrRoutineNotFound
}

// SetCurrent marks a saved routine as the one the user is following.
func (s *RoutineService) SetCurrent(ctx context.Context, userID, id string) (models.SavedRoutine, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return models.SavedRoutine{}, err
	}
	return r, s.kv.Set(ctx, store.CurrentRoutineKey(userID), id)
}

// Current returns the routine the user is following. ok is false when none is set
// or it has since been deleted.
func (s *RoutineService) Current(ctx context.Context, userID string) (r models.SavedRoutine, ok bool, err error) {
	id, err := s.kv.Get(ctx, store.CurrentRoutineKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return models.SavedRoutine{}, false, nil
	}
	if err != nil {
		return models.SavedRoutine{}, false, err
	}
	r, err = s.Get(ctx, userID, id)
	if errors.Is(err, ErrRoutineNotFound) {
		return models.SavedRoutine{}, false, nil
	}
	return r, err == nil, err
}
