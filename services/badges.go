package services

import (
	"context"
	"sort"
	"time"

	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/posts"
	"github.com/spotme/spotme/streak"
)

const (
	weekStreakDays     = 7
	teamPlayerComments = 5
	speedDemonMinutes  = 20
)

// BadgeService derives achievements from posts and streak state.
type BadgeService struct {
	users  *UserService
	posts  *posts.Store
	engine *streak.Engine
	now    func() time.Time
}

// NewBadgeService builds a BadgeService.
func NewBadgeService(users *UserService, ps *posts.Store, engine *streak.Engine) *BadgeService {
	return &BadgeService{users: users, posts: ps, engine: engine, now: time.Now}
}

// Badges returns the full badge collection of userID, locked and unlocked.
func (s *BadgeService) Badges(ctx context.Context, userID string) ([]models.Badge, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := s.posts.GetPosts(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.engine.Status(ctx, userID)
	if err != nil {
		return nil, err
	}

	var mine []models.Post
	var commentTimes []time.Time
	for _, p := range all {
		if p.UserID == userID {
			mine = append(mine, p)
		}
		for _, c := range p.Engagement.Comments {
			if c.UserID != userID {
				continue
			}
			if t, err := time.Parse(time.RFC3339Nano, c.Timestamp); err == nil {
				commentTimes = append(commentTimes, t)
			}
		}
	}
	// oldest first
	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt().Before(mine[j].CreatedAt()) })
	sort.Slice(commentTimes, func(i, j int) bool { return commentTimes[i].Before(commentTimes[j]) })

	first := func(match func(models.Post) bool) *time.Time {
		for _, p := range mine {
			if match(p) {
				t := p.CreatedAt()
				return &t
			}
		}
		return nil
	}

	loc := s.users.Location(ctx, userID)
	start, end := periodBounds(PeriodWeekly, s.now().In(loc))
	weekly := workoutDays(mine, loc, start, end)[userID]

	var teamPlayer *time.Time
	if len(commentTimes) >= teamPlayerComments {
		teamPlayer = &commentTimes[teamPlayerComments-1]
	}

	return []models.Badge{
		badge("1", "🏆", "First Workout", first(func(models.Post) bool { return true })),
		badgeIf("2", "🔥", "Week Streak", st.Streak >= weekStreakDays),
		badge("3", "💪", "Strength Master", first(func(p models.Post) bool { return p.Meta.PR })),
		badge("4", "🤝", "Team Player", teamPlayer),
		badge("5", "⚡", "Speed Demon", first(func(p models.Post) bool {
			return p.Meta.Duration > 0 && p.Meta.Duration <= speedDemonMinutes
		})),
		badgeIf("6", "🎯", "Goal Crusher", u.WeeklyGoal > 0 && weekly >= u.WeeklyGoal),
	}, nil
}

func badge(id, emoji, title string, at *time.Time) models.Badge {
	return models.Badge{ID: id, Emoji: emoji, Title: title, Unlocked: at != nil, UnlockedAt: at}
}

func badgeIf(id, emoji, title string, unlocked bool) models.Badge {
	return models.Badge{ID: id, Emoji: emoji, Title: title, Unlocked: unlocked}
}
