package domain

import "time"

// Article is the publishable view of a Feedbin entry.
type Article struct {
	ID          string    `json:"id"`
	FeedID      int       `json:"feed_id"`
	FeedTitle   string    `json:"feed_title,omitempty"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Unread      bool      `json:"unread"`
	Starred     bool      `json:"starred"`
}
