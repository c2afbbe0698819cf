// Package streak derives the consecutive-day check-in streak and the feed lock.
package streak

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spotme/spotme/store"
)

// ErrInvalidState means the persisted last-post-date lies in the future relative to today.
var ErrInvalidState = errors.New("streak: last post date is after today")

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// ZoneFunc resolves the calendar zone of a user.
type ZoneFunc func(ctx context.Context, userID string) *time.Location

// State is the position of a user in the check-in state machine.
type State string

const (
	NoHistory   State = "no_history"
	PostedToday State = "posted_today"
	Lapsed      State = "lapsed"
)

// Status is the derived view of a user's streak at the current instant.
type Status struct {
	State             State  `json:"state"`
	Streak            int    `json:"streak"`
	StoredStreak      int    `json:"storedStreak"`
	LastPostDate      string `json:"lastPostDate,omitempty"`
	DaysSinceLastPost int    `json:"daysSinceLastPost"`
	HasPostedToday    bool   `json:"hasPostedToday"`
	FeedLocked        bool   `json:"feedLocked"`
	Today             string `json:"today"`
}

// Engine reads and writes streak state through the store port.
type Engine struct {
	store store.Store
	clock Clock
	zone  ZoneFunc

	// serializes read-modify-write of streak + last-post-date
	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithZone sets how a user's calendar zone is resolved.
func WithZone(z ZoneFunc) Option {
	return func(e *Engine) { e.zone = z }
}

// NewEngine builds an Engine. Defaults: system clock, server local zone.
func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store: s,
		clock: ClockFunc(time.Now),
		zone:  func(context.Context, string) *time.Location { return time.Local },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CalculateStreak returns the streak after a post made on today, given the previous
// last-post-date and streak. A nil lastPostDate yields 0.
func CalculateStreak(lastPostDate *Date, currentStreak int, today Date) (int, error) {
	if lastPostDate == nil {
		return 0, nil
	}
	delta := today.DaysSince(*lastPostDate)
	switch {
	case delta < 0:
		return 0, fmt.Errorf("%w: last=%s today=%s", ErrInvalidState, lastPostDate, today)
	case delta == 0:
		return currentStreak, nil
	case delta == 1:
		return currentStreak + 1, nil
	default:
		return 1, nil
	}
}

// Today returns the current calendar date in the user's zone.
func (e *Engine) Today(ctx context.Context, userID string) Date {
	loc := e.zone(ctx, userID)
	if loc == nil {
		loc = time.Local
	}
	return DateOf(e.clock.Now().In(loc))
}

// HasPostedToday reports whether the persisted last-post-date is today.
func (e *Engine) HasPostedToday(ctx context.Context, userID string) (bool, error) {
	last, err := e.lastPostDate(ctx, userID)
	if err != nil || last == nil {
		return false, err
	}
	return *last == e.Today(ctx, userID), nil
}

// Preview computes the streak a post made now would produce, without persisting it.
func (e *Engine) Preview(ctx context.Context, userID string) (int, error) {
	last, current, err := e.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return next(last, current, e.Today(ctx, userID))
}

// UpdateStreakAfterPost advances the streak for a post submitted now, persists the new
// value and today's date, and returns the new streak. If the date write fails the
// previous streak is put back.
func (e *Engine) UpdateStreakAfterPost(ctx context.Context, userID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	last, current, err := e.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	today := e.Today(ctx, userID)
	streak, err := next(last, current, today)
	if err != nil {
		return 0, err
	}

	if err := store.SetInt(ctx, e.store, store.StreakKey(userID), streak); err != nil {
		return 0, err
	}
	if err := e.store.Set(ctx, store.LastPostDateKey(userID), today.String()); err != nil {
		// keep streak and last-post-date consistent
		_ = store.SetInt(ctx, e.store, store.StreakKey(userID), current)
		return 0, err
	}
	return streak, nil
}

// Status derives the user's current state without mutating anything.
func (e *Engine) Status(ctx context.Context, userID string) (Status, error) {
	last, stored, err := e.load(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	today := e.Today(ctx, userID)
	st := Status{StoredStreak: stored, Today: today.String()}

	if last == nil {
		st.State = NoHistory
		st.FeedLocked = true
		return st, nil
	}

	gap := today.DaysSince(*last)
	if gap < 0 {
		return Status{}, fmt.Errorf("%w: last=%s today=%s", ErrInvalidState, last, today)
	}
	st.LastPostDate = last.String()
	st.DaysSinceLastPost = gap
	if gap == 0 {
		st.State = PostedToday
		st.HasPostedToday = true
	} else {
		st.State = Lapsed
		st.FeedLocked = true
	}
	// a streak survives until the end of the day after the last post
	if gap <= 1 {
		st.Streak = stored
	}
	return st, nil
}

// next is the post-submission transition: a first post starts the streak at 1.
func next(last *Date, current int, today Date) (int, error) {
	if last == nil {
		return 1, nil
	}
	return CalculateStreak(last, current, today)
}

func (e *Engine) load(ctx context.Context, userID string) (*Date, int, error) {
	last, err := e.lastPostDate(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	current, err := store.GetInt(ctx, e.store, store.StreakKey(userID), 0)
	if err != nil {
		return nil, 0, err
	}
	return last, current, nil
}

func (e *Engine) lastPostDate(ctx context.Context, userID string) (*Date, error) {
	raw, err := e.store.Get(ctx, store.LastPostDateKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d, err := ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
