package models

// Comment is a reply attached to a post's engagement record.
type Comment struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	UserAvatar string `json:"userAvatar"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp"`
}
