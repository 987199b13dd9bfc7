package feedbin

import "time"

// Credentials authenticate every request with HTTP basic auth.
type Credentials struct {
	Username string
	Password string
}

type Subscription struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	FeedID    int       `json:"feed_id"`
	Title     string    `json:"title"`
	FeedURL   string    `json:"feed_url"`
	SiteURL   string    `json:"site_url"`
}

// SubscriptionChoice is one of the feeds discovered at an ambiguous URL.
type SubscriptionChoice struct {
	FeedURL string `json:"feed_url"`
	Title   string `json:"title"`
}

type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Tagging places the feed FeedID under the tag Name.
type Tagging struct {
	ID     int    `json:"id"`
	FeedID int    `json:"feed_id"`
	Name   string `json:"name"`
}

type Icon struct {
	Host string `json:"host"`
	URL  string `json:"url"`
}

type Entry struct {
	ID                  int        `json:"id"`
	FeedID              int        `json:"feed_id"`
	Title               string     `json:"title"`
	URL                 string     `json:"url"`
	Author              string     `json:"author"`
	Summary             string     `json:"summary"`
	Content             string     `json:"content"`
	Published           time.Time  `json:"published"`
	CreatedAt           time.Time  `json:"created_at"`
	ExtractedContentURL string     `json:"extracted_content_url"`
	Enclosure           *Enclosure `json:"enclosure,omitempty"`
	Images              *Images    `json:"images,omitempty"`
}

// Date is the timestamp used to order entries: published, falling back to created_at.
func (e Entry) Date() time.Time {
	if !e.Published.IsZero() {
		return e.Published
	}
	return e.CreatedAt
}

type Enclosure struct {
	URL      string `json:"enclosure_url"`
	Type     string `json:"enclosure_type"`
	Length   string `json:"enclosure_length"`
	Duration string `json:"itunes_duration"`
}

type Images struct {
	OriginalURL string     `json:"original_url"`
	Size1       *ImageSize `json:"size_1,omitempty"`
}

type ImageSize struct {
	CDNURL string `json:"cdn_url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
