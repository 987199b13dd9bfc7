package publishers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/feedbin-client/internal/domain"
)

// Event represents the payload published downstream for each newly synced entry.
type Event struct {
	ID          string         `json:"id"`
	AccountID   string         `json:"account_id"`
	FeedID      int            `json:"feed_id"`
	Article     domain.Article `json:"article"`
	CollectedAt time.Time      `json:"collected_at"`
}

// NewEvent constructs an Event for the given account + article.
func NewEvent(accountID string, article domain.Article) Event {
	return Event{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		FeedID:      article.FeedID,
		Article:     article,
		CollectedAt: time.Now().UTC(),
	}
}
