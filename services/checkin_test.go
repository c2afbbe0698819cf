package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotme/spotme/events"
	"github.com/spotme/spotme/posts"
	"github.com/spotme/spotme/store"
	"github.com/spotme/spotme/streak"
)

var monday = time.Date(2024, time.June, 3, 18, 0, 0, 0, time.UTC)

func TestSubmitRejectsInvalidInputWithoutWriting(t *testing.T) {
	h := newHarness(t, monday)
	u := h.onboard(t, "sam", 3)
	before := h.kv.Snapshot()

	cases := map[string]CheckInInput{
		"no photo":        {WorkoutType: "Legs", Duration: 30},
		"no type":         {ImageURI: "x.jpg", Duration: 30},
		"unknown type":    {ImageURI: "x.jpg", WorkoutType: "Juggling", Duration: 30},
		"other no custom": {ImageURI: "x.jpg", WorkoutType: WorkoutOther, CustomType: "  ", Duration: 30},
		"zero duration":   {ImageURI: "x.jpg", WorkoutType: "Legs"},
		"negative":        {ImageURI: "x.jpg", WorkoutType: "Legs", Duration: -5},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.checkIns.Submit(context.Background(), u, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Equal(t, before, h.kv.Snapshot())
}

func TestSubmitStoresPostAdvancesStreakAndSignals(t *testing.T) {
	h := newHarness(t, monday)
	u := h.onboard(t, "sam", 3)

	var got []events.PostedToday
	h.bus.Subscribe(func(ev events.PostedToday) { got = append(got, ev) })

	res := h.checkIn(t, u, CheckInInput{WorkoutType: WorkoutOther, CustomType: "Climbing", Caption: "<b>send</b> it", PR: true})
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, "Climbing", res.Post.Meta.WorkoutType)
	assert.True(t, res.Post.Meta.PR)
	assert.Equal(t, "https://picsum.photos/seed/sam/200", res.Post.UserAvatar)

	list, err := h.posts.GetPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Post.ID, list[0].ID)

	require.Len(t, got, 1)
	assert.Equal(t, events.PostedToday{UserID: u.ID, DateISO: "2024-06-03", PostID: res.Post.ID}, got[0])

	posted, err := h.engine.HasPostedToday(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, posted)
}

func TestSubmitConsecutiveDays(t *testing.T) {
	h := newHarness(t, monday)
	u := h.onboard(t, "sam", 3)

	assert.Equal(t, 1, h.checkIn(t, u, CheckInInput{}).Streak)
	assert.Equal(t, 1, h.checkIn(t, u, CheckInInput{}).Streak)

	h.now = monday.Add(24 * time.Hour)
	assert.Equal(t, 2, h.checkIn(t, u, CheckInInput{}).Streak)

	h.now = monday.Add(5 * 24 * time.Hour)
	assert.Equal(t, 1, h.checkIn(t, u, CheckInInput{}).Streak)
}

func TestSubmitInvalidStreakStateWritesNothing(t *testing.T) {
	h := newHarness(t, monday)
	u := h.onboard(t, "sam", 3)
	ctx := context.Background()
	require.NoError(t, h.kv.Set(ctx, store.LastPostDateKey(u.ID), "2024-06-10"))
	before := h.kv.Snapshot()

	_, err := h.checkIns.Submit(ctx, u, CheckInInput{ImageURI: "x.jpg", WorkoutType: "Legs", Duration: 20})
	assert.ErrorIs(t, err, streak.ErrInvalidState)
	assert.Equal(t, before, h.kv.Snapshot())
}

func TestSubmitUsesUserTimeZone(t *testing.T) {
	// 18:00 UTC Monday is already Tuesday in Auckland
	h := newHarness(t, monday)
	u, err := h.users.Onboard(context.Background(), OnboardInput{
		Name: "Kiwi", Username: "kiwi", WeeklyGoal: 4, Password: "correct-horse", TimeZone: "Pacific/Auckland",
	})
	require.NoError(t, err)

	var dates []string
	h.bus.Subscribe(func(ev events.PostedToday) { dates = append(dates, ev.DateISO) })
	h.checkIn(t, u, CheckInInput{})

	assert.Equal(t, []string{"2024-06-04"}, dates)
}

// failingStore fails every Set of failKey.
type failingStore struct {
	*store.MemoryStore
	failKey string
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func TestSubmitRemovesPostWhenStreakWriteFails(t *testing.T) {
	ctx := context.Background()
	kv := &failingStore{MemoryStore: store.NewMemoryStore()}
	users := NewUserService(kv, time.UTC)
	u, err := users.Onboard(ctx, OnboardInput{Name: "Sam", Username: "sam", WeeklyGoal: 3, Password: "correct-horse"})
	require.NoError(t, err)

	clock := streak.ClockFunc(func() time.Time { return monday })
	engine := streak.NewEngine(kv, streak.WithClock(clock), streak.WithZone(users.Location))
	ps := posts.NewStore(kv)
	svc := NewCheckInService(engine, ps, events.New(nil))
	svc.now = clock

	kv.failKey = store.LastPostDateKey(u.ID)
	_, err = svc.Submit(ctx, u, CheckInInput{ImageURI: "x.jpg", WorkoutType: "Legs", Duration: 30})
	require.Error(t, err)

	list, err := ps.GetPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	n, err := store.GetInt(ctx, kv, store.StreakKey(u.ID), 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	posted, err := engine.HasPostedToday(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, posted)
}
