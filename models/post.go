package models

import "time"

// PostMeta describes the workout behind a check-in.
type PostMeta struct {
	PR          bool   `json:"pr"`
	WorkoutType string `json:"workoutType,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

// Engagement is the mutable part of a post.
type Engagement struct {
	Likes    int       `json:"likes"`
	LikedBy  []string  `json:"likedBy"`
	Comments []Comment `json:"comments"`
}

// Post is one daily check-in. ID, UserID and Timestamp never change after creation.
type Post struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	UserName   string     `json:"userName"`
	UserAvatar string     `json:"userAvatar"`
	ImageURI   string     `json:"imageUri"`
	Timestamp  string     `json:"timestamp"`
	Caption    string     `json:"caption,omitempty"`
	Meta       PostMeta   `json:"meta"`
	Engagement Engagement `json:"engagement"`
}

// CreatedAt parses Timestamp. The zero time is returned for malformed values.
func (p Post) CreatedAt() time.Time {
	t, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Day is the YYYY-MM-DD calendar date of the post in loc, or "" for a malformed timestamp.
func (p Post) Day(loc *time.Location) string {
	t := p.CreatedAt()
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02")
}
