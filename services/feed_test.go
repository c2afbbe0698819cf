package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/posts"
)

func TestFeedLockedUntilCheckIn(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()
	alice := h.onboard(t, "alice", 3)
	bob := h.onboard(t, "bob", 3)
	h.checkIn(t, alice, CheckInInput{})

	view, err := h.feed.Feed(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, view.Locked)
	assert.Empty(t, view.Posts)
	assert.Nil(t, view.TodayPost)

	res := h.checkIn(t, bob, CheckInInput{})
	view, err = h.feed.Feed(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, view.Locked)
	assert.Len(t, view.Posts, 2)
	require.NotNil(t, view.TodayPost)
	assert.Equal(t, res.Post.ID, view.TodayPost.ID)

	// the lock comes back the next day
	h.now = monday.Add(24 * time.Hour)
	view, err = h.feed.Feed(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, view.Locked)
	assert.Equal(t, 1, view.Streak.Streak)
}

func TestCommentAndLike(t *testing.T) {
	h := newHarness(t, monday)
	ctx := context.Background()
	alice := h.onboard(t, "alice", 3)
	bob := h.onboard(t, "bob", 3)
	post := h.checkIn(t, alice, CheckInInput{}).Post

	c, err := h.feed.Comment(ctx, bob, post.ID, "  <i>nice</i> lift ")
	require.NoError(t, err)
	assert.Equal(t, "nice lift", c.Text)
	assert.Equal(t, bob.ID, c.UserID)

	_, err = h.feed.Comment(ctx, bob, post.ID, "<script></script>")
	assert.ErrorIs(t, err, ErrInvalidInput)

	// unknown post ids are ignored
	_, err = h.feed.Comment(ctx, bob, "nope", "hello")
	require.NoError(t, err)

	liked, err := h.feed.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Engagement.Likes)
	require.Len(t, liked.Engagement.Comments, 1)

	_, err = h.feed.ToggleLike(ctx, bob.ID, "nope")
	assert.ErrorIs(t, err, posts.ErrPostNotFound)

	mine, err := h.feed.UserPosts(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Post{liked}, mine)
}
