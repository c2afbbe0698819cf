package posts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/store"
)

func samplePost(id, userID string, at time.Time) models.Post {
	return models.Post{
		ID:        id,
		UserID:    userID,
		UserName:  "Sam",
		ImageURI:  "/static/uploads/" + id + ".jpg",
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Meta:      models.PostMeta{WorkoutType: "Strength", Duration: 45},
	}
}

func TestGetPostsEmpty(t *testing.T) {
	s := NewStore(store.NewMemoryStore())
	list, err := s.GetPosts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestAddPostPrependsAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := NewStore(store.NewMemoryStore())
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.AddPost(ctx, samplePost("a", "u1", now)))
	require.NoError(t, s.AddPost(ctx, samplePost("b", "u2", now.Add(time.Hour))))

	list, err := s.GetPosts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, 45, list[1].Meta.Duration)

	want := samplePost("b", "u2", now.Add(time.Hour))
	want.Engagement.LikedBy = []string{}
	want.Engagement.Comments = []models.Comment{}
	assert.Equal(t, want, list[0])
}

func TestRemovePost(t *testing.T) {
	ctx := context.Background()
	s := NewStore(store.NewMemoryStore())
	require.NoError(t, s.AddPost(ctx, samplePost("a", "u1", time.Now())))
	require.NoError(t, s.AddPost(ctx, samplePost("b", "u1", time.Now())))

	require.NoError(t, s.RemovePost(ctx, "a"))
	require.NoError(t, s.RemovePost(ctx, "missing"))

	list, err := s.GetPosts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)
}

func TestAddPostKeepsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewStore(store.NewMemoryStore())
	p := samplePost("dup", "u1", time.Now())

	require.NoError(t, s.AddPost(ctx, p))
	require.NoError(t, s.AddPost(ctx, p))

	list, err := s.GetPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAddCommentUnknownPostIsNoop(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	s := NewStore(kv)
	require.NoError(t, s.AddPost(ctx, samplePost("a", "u1", time.Now())))
	before, err := kv.Get(ctx, store.PostsKey)
	require.NoError(t, err)

	err = s.AddComment(ctx, "missing", models.Comment{ID: "c1", Text: "nice"})
	require.NoError(t, err)

	after, err := kv.Get(ctx, store.PostsKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAddCommentAppends(t *testing.T) {
	ctx := context.Background()
	s := NewStore(store.NewMemoryStore())
	require.NoError(t, s.AddPost(ctx, samplePost("a", "u1", time.Now())))

	require.NoError(t, s.AddComment(ctx, "a", models.Comment{ID: "c1", Text: "first"}))
	require.NoError(t, s.AddComment(ctx, "a", models.Comment{ID: "c2", Text: "second"}))

	p, err := s.GetPost(ctx, "a")
	require.NoError(t, err)
	require.Len(t, p.Engagement.Comments, 2)
	assert.Equal(t, "second", p.Engagement.Comments[1].Text)
}

func TestToggleLikeTwiceRestores(t *testing.T) {
	ctx := context.Background()
	s := NewStore(store.NewMemoryStore())
	require.NoError(t, s.AddPost(ctx, samplePost("a", "u1", time.Now())))

	p, err := s.ToggleLike(ctx, "a", "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Engagement.Likes)
	assert.Equal(t, []string{"u2"}, p.Engagement.LikedBy)

	p, err = s.ToggleLike(ctx, "a", "u2")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Engagement.Likes)
	assert.Empty(t, p.Engagement.LikedBy)

	_, err = s.ToggleLike(ctx, "nope", "u2")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostsByUserAndTodayPost(t *testing.T) {
	ctx := context.Background()
	s := NewStore(store.NewMemoryStore())
	day := time.Date(2024, 5, 2, 23, 30, 0, 0, time.UTC)

	require.NoError(t, s.AddPost(ctx, samplePost("old", "u1", day.Add(-48*time.Hour))))
	require.NoError(t, s.AddPost(ctx, samplePost("other", "u2", day)))
	require.NoError(t, s.AddPost(ctx, samplePost("today", "u1", day)))

	mine, err := s.PostsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "today", mine[0].ID)

	p, ok, err := s.TodayPost(ctx, "u1", "2024-05-02", time.UTC)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "today", p.ID)

	// 23:30 UTC is already the next day two hours east
	east := time.FixedZone("EET", 2*60*60)
	_, ok, err = s.TodayPost(ctx, "u1", "2024-05-02", east)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.GetPost(ctx, "missing")
	assert.ErrorIs(t, err, ErrPostNotFound)
}
