package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spotme/spotme/events"
	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/posts"
	"github.com/spotme/spotme/store"
	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

// harness wires every service over one memory store and a settable clock.
type harness struct {
	kv       *store.MemoryStore
	now      time.Time
	engine   *streak.Engine
	posts    *posts.Store
	bus      *events.Broadcaster
	users    *UserService
	checkIns *CheckInService
	feed     *FeedService
	board    *LeaderboardService
	badges   *BadgeService
	routines *RoutineService
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	h := &harness{kv: store.NewMemoryStore(), now: now}
	clock := func() time.Time { return h.now }

	h.users = NewUserService(h.kv, time.UTC)
	h.users.now = clock
	h.engine = streak.NewEngine(h.kv,
		streak.WithClock(streak.ClockFunc(clock)),
		streak.WithZone(h.users.Location),
	)
	h.posts = posts.NewStore(h.kv)
	h.bus = events.New(nil)

	h.checkIns = NewCheckInService(h.engine, h.posts, h.bus)
	h.checkIns.now = clock
	h.feed = NewFeedService(h.engine, h.posts, h.users.Location)
	h.feed.now = clock
	h.board = NewLeaderboardService(h.users, h.posts, h.engine, utils.NewCache(nil))
	h.board.now = clock
	h.badges = NewBadgeService(h.users, h.posts, h.engine)
	h.badges.now = clock
	h.routines = NewRoutineService(h.kv)
	h.routines.now = clock
	return h
}

func (h *harness) onboard(t *testing.T, username string, goal int) models.User {
	t.Helper()
	u, err := h.users.Onboard(context.Background(), OnboardInput{
		Name:       "User " + username,
		Username:   username,
		WeeklyGoal: goal,
		Password:   "correct-horse",
	})
	require.NoError(t, err)
	return u
}

func (h *harness) checkIn(t *testing.T, u models.User, in CheckInInput) CheckInResult {
	t.Helper()
	if in.ImageURI == "" {
		in.ImageURI = "/static/uploads/photo.jpg"
	}
	if in.WorkoutType == "" {
		in.WorkoutType = "Legs"
	}
	if in.Duration == 0 {
		in.Duration = 45
	}
	res, err := h.checkIns.Submit(context.Background(), u, in)
	require.NoError(t, err)
	return res
}
