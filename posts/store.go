// Package posts keeps the single shared, most-recent-first list of check-in posts.
package posts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spotme/spotme/models"
	"github.com/spotme/spotme/store"
)

// ErrPostNotFound is returned when a post id does not exist.
var ErrPostNotFound = errors.New("posts: post not found")

// Store persists the post list under store.PostsKey.
type Store struct {
	kv store.Store
	mu sync.Mutex
}

// NewStore wraps a key-value store.
func NewStore(kv store.Store) *Store {
	return &Store{kv: kv}
}

// GetPosts returns every post, most recent first. An empty store yields an empty slice.
func (s *Store) GetPosts(ctx context.Context) ([]models.Post, error) {
	var list []models.Post
	err := store.GetJSON(ctx, s.kv, store.PostsKey, &list)
	if errors.Is(err, store.ErrNotFound) {
		return []models.Post{}, nil
	}
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Post{}
	}
	return list, nil
}

// AddPost prepends post. Ids are not de-duplicated. Nil LikedBy and Comments are
// stored as empty slices, so a read returns post with those two fields normalized.
func (s *Store) AddPost(ctx context.Context, post models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.GetPosts(ctx)
	if err != nil {
		return err
	}
	if post.Engagement.LikedBy == nil {
		post.Engagement.LikedBy = []string{}
	}
	if post.Engagement.Comments == nil {
		post.Engagement.Comments = []models.Comment{}
	}
	list = append([]models.Post{post}, list...)
	return s.save(ctx, list)
}

// RemovePost deletes the post with postID. An unknown id is a no-op.
func (s *Store) RemovePost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.GetPosts(ctx)
	if err != nil {
		return err
	}
	for i, p := range list {
		if p.ID == postID {
			return s.save(ctx, append(list[:i], list[i+1:]...))
		}
	}
	return nil
}

// AddComment appends comment to the post with postID. An unknown id is a silent no-op.
func (s *Store) AddComment(ctx context.Context, postID string, comment models.Comment) error {
	return s.update(ctx, postID, func(p *models.Post) {
		p.Engagement.Comments = append(p.Engagement.Comments, comment)
	}, false)
}

// ToggleLike likes the post for userID, or unlikes it if already liked.
// It returns the updated post.
func (s *Store) ToggleLike(ctx context.Context, postID, userID string) (models.Post, error) {
	var out models.Post
	err := s.update(ctx, postID, func(p *models.Post) {
		idx := -1
		for i, id := range p.Engagement.LikedBy {
			if id == userID {
				idx = i
				break
			}
		}
		if idx >= 0 {
			p.Engagement.LikedBy = append(p.Engagement.LikedBy[:idx], p.Engagement.LikedBy[idx+1:]...)
		} else {
			p.Engagement.LikedBy = append(p.Engagement.LikedBy, userID)
		}
		p.Engagement.Likes = len(p.Engagement.LikedBy)
		out = *p
	}, true)
	return out, err
}

// GetPost looks a single post up by id.
func (s *Store) GetPost(ctx context.Context, postID string) (models.Post, error) {
	list, err := s.GetPosts(ctx)
	if err != nil {
		return models.Post{}, err
	}
	for _, p := range list {
		if p.ID == postID {
			return p, nil
		}
	}
	return models.Post{}, ErrPostNotFound
}

// PostsByUser returns the user's posts, most recent first.
func (s *Store) PostsByUser(ctx context.Context, userID string) ([]models.Post, error) {
	list, err := s.GetPosts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Post, 0)
	for _, p := range list {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

// TodayPost returns the user's most recent post whose calendar date, read in loc,
// is today ("YYYY-MM-DD"). ok is false when there is none.
func (s *Store) TodayPost(ctx context.Context, userID, today string, loc *time.Location) (post models.Post, ok bool, err error) {
	mine, err := s.PostsByUser(ctx, userID)
	if err != nil {
		return models.Post{}, false, err
	}
	for _, p := range mine {
		if p.Day(loc) == today {
			return p, true, nil
		}
	}
	return models.Post{}, false, nil
}

func (s *Store) update(ctx context.Context, postID string, fn func(*models.Post), strict bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.GetPosts(ctx)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == postID {
			fn(&list[i])
			return s.save(ctx, list)
		}
	}
	if strict {
		return fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}
	return nil
}

func (s *Store) save(ctx context.Context, list []models.Post) error {
	return store.SetJSON(ctx, s.kv, store.PostsKey, list)
}

// ImageURIs returns the set of image URIs referenced by stored posts.
func (s *Store) ImageURIs(ctx context.Context) (map[string]bool, error) {
	list, err := s.GetPosts(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(list))
	for _, p := range list {
		out[p.ImageURI] = true
	}
	return out, nil
}
