package feedbin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/feedbin-client/pkg/httpclient"
)

// Batch limits of the unread/starred state endpoints and of entries.json?ids=.
const (
	maxEntryIDs     = 1000
	maxEntriesByIDs = 100
)

// RetrieveFeedEntries returns the first page of a feed's entries from the last three
// months plus the next-page token ("" when there are no more pages).
func (c *Client) RetrieveFeedEntries(ctx context.Context, feedID int) ([]Entry, string, error) {
	path := fmt.Sprintf("feeds/%d/entries.json", feedID)
	return c.retrieveEntries(ctx, call{method: http.MethodGet, path: path, query: entriesQuery(c.defaultSince())}, false)
}

// RetrieveEntries returns entries created since the last successful call (or the last
// three months) and advances the last-fetch watermark to the server's Date.
func (c *Client) RetrieveEntries(ctx context.Context) ([]Entry, string, error) {
	since := c.defaultSince()
	if md := c.accountMetadata(); md != nil {
		if last, ok := md.LastArticleFetch(); ok {
			since = last
		}
	}
	return c.retrieveEntries(ctx, call{method: http.MethodGet, path: "entries.json", query: entriesQuery(since)}, true)
}

// RetrieveEntriesPage follows a next-page token. A token that is not an absolute URL
// yields no entries and no error.
func (c *Client) RetrieveEntriesPage(ctx context.Context, page string) ([]Entry, string, error) {
	u, err := url.Parse(strings.TrimSpace(page))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, "", nil
	}
	return c.retrieveEntries(ctx, call{method: http.MethodGet, path: "entries.json", rawURL: u.String()}, false)
}

// RetrieveEntriesByIDs fetches specific entries, at most 100 per call.
func (c *Client) RetrieveEntriesByIDs(ctx context.Context, ids []int) ([]Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxEntriesByIDs {
		return nil, fmt.Errorf("feedbin: at most %d entry ids per request, got %d", maxEntriesByIDs, len(ids))
	}
	query := url.Values{
		"ids":  {joinIDs(ids)},
		"mode": {"extended"},
	}
	entries, _, err := c.retrieveEntries(ctx, call{method: http.MethodGet, path: "entries.json", query: query}, false)
	return entries, err
}

func (c *Client) retrieveEntries(ctx context.Context, cl call, advanceWatermark bool) ([]Entry, string, error) {
	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, "", err
	}

	var entries []Entry
	if _, err := decodeBody(cl.path, resp, &entries); err != nil {
		return nil, "", err
	}

	if advanceWatermark {
		if md := c.accountMetadata(); md != nil {
			if date, ok := httpclient.Date(resp); ok {
				md.SetLastArticleFetch(date)
			}
		}
	}
	return entries, httpclient.NextPage(resp), nil
}

func (c *Client) defaultSince() time.Time {
	return c.now().AddDate(0, -3, 0)
}

func entriesQuery(since time.Time) url.Values {
	return url.Values{
		"since":    {since.UTC().Format(sinceLayout)},
		"per_page": {strconv.Itoa(entriesPerPage)},
		"mode":     {"extended"},
	}
}

func (c *Client) RetrieveUnreadEntries(ctx context.Context) ([]int, error) {
	return retrieveCached[int](ctx, c, "unread_entries.json", nil, KeyUnreadEntries)
}

func (c *Client) RetrieveStarredEntries(ctx context.Context) ([]int, error) {
	return retrieveCached[int](ctx, c, "starred_entries.json", nil, KeyStarredEntries)
}

// CreateUnreadEntries marks entries unread.
func (c *Client) CreateUnreadEntries(ctx context.Context, ids []int) error {
	return c.updateEntryState(ctx, http.MethodPost, "unread_entries.json", "unread_entries", ids)
}

// DeleteUnreadEntries marks entries read.
func (c *Client) DeleteUnreadEntries(ctx context.Context, ids []int) error {
	return c.updateEntryState(ctx, http.MethodDelete, "unread_entries.json", "unread_entries", ids)
}

func (c *Client) CreateStarredEntries(ctx context.Context, ids []int) error {
	return c.updateEntryState(ctx, http.MethodPost, "starred_entries.json", "starred_entries", ids)
}

func (c *Client) DeleteStarredEntries(ctx context.Context, ids []int) error {
	return c.updateEntryState(ctx, http.MethodDelete, "starred_entries.json", "starred_entries", ids)
}

func (c *Client) updateEntryState(ctx context.Context, method, path, field string, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > maxEntryIDs {
		return fmt.Errorf("feedbin: at most %d entry ids per request, got %d", maxEntryIDs, len(ids))
	}
	_, err := c.do(ctx, call{
		method:  method,
		path:    path,
		payload: map[string][]int{field: ids},
	})
	return err
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
