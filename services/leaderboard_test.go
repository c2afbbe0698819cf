package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotme/spotme/utils"
)

func TestPeriodBounds(t *testing.T) {
	sunday := time.Date(2024, time.June, 9, 23, 0, 0, 0, time.UTC)
	start, end := periodBounds(PeriodWeekly, sunday)
	assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), end)

	start, end = periodBounds(PeriodWeekly, monday)
	assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 7*24*time.Hour, end.Sub(start))

	start, end = periodBounds(PeriodMonthly, sunday)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestWeeklyLeaderboard(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()
	alice := h.onboard(t, "alice", 2)
	bob := h.onboard(t, "bob", 5)
	carol := h.onboard(t, "carol", 4)

	// last week's check-in does not count
	h.now = monday.Add(-24 * time.Hour)
	h.checkIn(t, bob, CheckInInput{})

	for day := 0; day < 3; day++ {
		h.now = monday.Add(time.Duration(day) * 24 * time.Hour)
		h.checkIn(t, bob, CheckInInput{})
		if day < 2 {
			h.checkIn(t, alice, CheckInInput{})
		}
	}
	// two posts on one day are one workout
	h.checkIn(t, carol, CheckInInput{})
	h.checkIn(t, carol, CheckInInput{})

	board, err := h.board.Rank(ctx, alice.ID, PeriodWeekly)
	require.NoError(t, err)
	require.Len(t, board, 3)

	assert.Equal(t, "alice", board[0].Username)
	assert.Equal(t, 2, board[0].Workouts)
	assert.Equal(t, 100.0, board[0].Progress)
	assert.Equal(t, 1, board[0].Rank)

	assert.Equal(t, "bob", board[1].Username)
	assert.Equal(t, 3, board[1].Workouts)
	assert.InDelta(t, 60.0, board[1].Progress, 1e-9)
	assert.Equal(t, 4, board[1].Streak)

	assert.Equal(t, "carol", board[2].Username)
	assert.Equal(t, 1, board[2].Workouts)
	assert.Equal(t, 3, board[2].Rank)

	monthly, err := h.board.Rank(ctx, alice.ID, PeriodMonthly)
	require.NoError(t, err)
	assert.Equal(t, "bob", monthly[0].Username)
	assert.Equal(t, 4, monthly[0].Workouts)

	_, err = h.board.Rank(ctx, alice.ID, "yearly")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLeaderboardCacheInvalidatedOnPost(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	h := newHarness(t, monday)
	h.board.cache = utils.NewCache(rc)
	h.bus.Subscribe(h.board.OnPostedToday)
	ctx := context.Background()
	alice := h.onboard(t, "alice", 3)

	board, err := h.board.Rank(ctx, alice.ID, PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, 0, board[0].Workouts)
	assert.Len(t, mr.Keys(), 1)

	h.checkIn(t, alice, CheckInInput{})
	assert.Empty(t, mr.Keys())

	board, err = h.board.Rank(ctx, alice.ID, PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, 1, board[0].Workouts)
}
