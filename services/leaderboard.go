package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spotme/spotme/events"
	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/posts"
	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

// LeaderboardCachePrefix namespaces cached leaderboards in Redis.
const LeaderboardCachePrefix = "spotme:cache:leaderboard:"

const leaderboardTTL = 60 * time.Second

// LeaderboardService ranks users by check-ins in the current week or month.
type LeaderboardService struct {
	users  *UserService
	posts  *posts.Store
	engine *streak.Engine
	cache  *utils.Cache
	now    func() time.Time
}

// NewLeaderboardService builds the service. cache may wrap a nil client.
func NewLeaderboardService(users *UserService, ps *posts.Store, engine *streak.Engine, cache *utils.Cache) *LeaderboardService {
	return &LeaderboardService{users: users, posts: ps, engine: engine, cache: cache, now: time.Now}
}

// Rank returns the leaderboard for period as seen from viewerID's time zone.
func (s *LeaderboardService) Rank(ctx context.Context, viewerID, period string) ([]models.LeaderboardEntry, error) {
	if period != PeriodWeekly && period != PeriodMonthly {
		return nil, fmt.Errorf("%w: period must be %s or %s", ErrInvalidInput, PeriodWeekly, PeriodMonthly)
	}
	loc := s.users.Location(ctx, viewerID)
	start, end := periodBounds(period, s.now().In(loc))

	key := fmt.Sprintf("%s%s:%s:%s", LeaderboardCachePrefix, period, loc.String(), start.Format(streak.DateLayout))
	var cached []models.LeaderboardEntry
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.posts.GetPosts(ctx)
	if err != nil {
		return nil, err
	}
	days := workoutDays(list, loc, start, end)

	entries := make([]models.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		e := models.LeaderboardEntry{
			UserID:     u.ID,
			Name:       u.Name,
			Username:   u.Username,
			WeeklyGoal: u.WeeklyGoal,
			Workouts:   days[u.ID],
		}
		if u.WeeklyGoal > 0 {
			e.Progress = float64(e.Workouts) / float64(u.WeeklyGoal) * 100
		}
		if st, err := s.engine.Status(ctx, u.ID); err == nil {
			e.Streak = st.Streak
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if period == PeriodWeekly && a.Progress != b.Progress {
			return a.Progress > b.Progress
		}
		if a.Workouts != b.Workouts {
			return a.Workouts > b.Workouts
		}
		return a.Username < b.Username
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	s.cache.SetJSON(ctx, key, entries, leaderboardTTL)
	return entries, nil
}

// Invalidate drops every cached leaderboard.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	s.cache.InvalidateByPrefix(ctx, LeaderboardCachePrefix)
}

// OnPostedToday is an events.Handler that invalidates the cache.
func (s *LeaderboardService) OnPostedToday(events.PostedToday) {
	s.Invalidate(context.Background())
}
