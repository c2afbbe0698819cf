package services

import (
	"time"

	"github.com/spotme/spotme/models"
)

// Leaderboard periods.
const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// periodBounds returns [start, end) of the ISO week (Monday first) or calendar month
// containing now, in now's location.
func periodBounds(period string, now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	if period == PeriodMonthly {
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	}
	back := (int(now.Weekday()) + 6) % 7
	start := time.Date(y, m, d-back, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 7)
}

// workoutDays counts, per user, the distinct calendar days in [start, end) with a check-in.
func workoutDays(list []models.Post, loc *time.Location, start, end time.Time) map[string]int {
	seen := map[string]map[string]struct{}{}
	for _, p := range list {
		at := p.CreatedAt()
		if at.IsZero() || at.Before(start) || !at.Before(end) {
			continue
		}
		days, ok := seen[p.UserID]
		if !ok {
			days = map[string]struct{}{}
			seen[p.UserID] = days
		}
		days[p.Day(loc)] = struct{}{}
	}
	out := make(map[string]int, len(seen))
	for uid, days := range seen {
		out[uid] = len(days)
	}
	return out
}
