package models

import "time"

// Badge is an achievement derived from a user's check-in history.
type Badge struct {
	ID         string     `json:"id"`
	Emoji      string     `json:"emoji"`
	Title      string     `json:"title"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	UserID     string  `json:"userId"`
	Name       string  `json:"name"`
	Username   string  `json:"username"`
	WeeklyGoal int     `json:"weeklyGoal"`
	Workouts   int     `json:"workouts"`
	Progress   float64 `json:"progress"`
	Streak     int     `json:"streak"`
}
