package services

import (
	"context"
	"time"

	"github.com/spotme/spotme/posts"
	"github.com/spotme/spotme/streak"
)

// Stats are community-wide counters.
type Stats struct {
	UserCount     int `json:"user_count"`
	PostCount     int `json:"post_count"`
	CommentCount  int `json:"comment_count"`
	CheckInsToday int `json:"checkins_today"`
}

// StatsService aggregates Stats from the user and post stores.
type StatsService struct {
	users *UserService
	posts *posts.Store
	now   func() time.Time
}

func NewStatsService(users *UserService, ps *posts.Store) *StatsService {
	return &StatsService{users: users, posts: ps, now: time.Now}
}

// Get counts everything; "today" is the viewer's calendar day.
func (s *StatsService) Get(ctx context.Context, viewerID string) (Stats, error) {
	ids, err := s.users.ids(ctx)
	if err != nil {
		return Stats{}, err
	}
	list, err := s.posts.GetPosts(ctx)
	if err != nil {
		return Stats{}, err
	}
	loc := s.users.Location(ctx, viewerID)
	today := s.now().In(loc).Format(streak.DateLayout)

	st := Stats{UserCount: len(ids), PostCount: len(list)}
	checkedIn := make(map[string]bool)
	for _, p := range list {
		st.CommentCount += len(p.Engagement.Comments)
		if p.Day(loc) == today {
			checkedIn[p.UserID] = true
		}
	}
	st.CheckInsToday = len(checkedIn)
	return st, nil
}
