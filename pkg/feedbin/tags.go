package feedbin

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

func (c *Client) RetrieveTags(ctx context.Context) ([]Tag, error) {
	return retrieveCached[Tag](ctx, c, "tags.json", nil, KeyTags)
}

func (c *Client) RenameTag(ctx context.Context, oldName, newName string) error {
	_, err := c.do(ctx, call{
		method:  http.MethodPost,
		path:    "tags.json",
		payload: map[string]string{"old_name": oldName, "new_name": newName},
	})
	return err
}

// DeleteTag removes the tag from every feed and returns the taggings that remain affected.
func (c *Client) DeleteTag(ctx context.Context, name string) ([]Tagging, error) {
	const path = "tags.json"

	resp, err := c.do(ctx, call{
		method:  http.MethodDelete,
		path:    path,
		payload: map[string]string{"name": name},
	})
	if err != nil {
		return nil, err
	}

	var taggings []Tagging
	if _, err := decodeBody(path, resp, &taggings); err != nil {
		return nil, err
	}
	return taggings, nil
}

func (c *Client) RetrieveTaggings(ctx context.Context) ([]Tagging, error) {
	return retrieveCached[Tagging](ctx, c, "taggings.json", nil, KeyTaggings)
}

// CreateTagging tags a feed and returns the new tagging id, read from the Location header.
func (c *Client) CreateTagging(ctx context.Context, feedID int, name string) (int, error) {
	resp, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "taggings.json",
		payload: map[string]any{
			"feed_id": feedID,
			"name":    name,
		},
	})
	if err != nil {
		return 0, err
	}

	id, ok := parseTaggingID(resp.Header("Location"))
	if !ok {
		return 0, ErrNoData
	}
	return id, nil
}

func (c *Client) DeleteTagging(ctx context.Context, taggingID int) error {
	_, err := c.do(ctx, call{
		method: http.MethodDelete,
		path:   fmt.Sprintf("taggings/%d.json", taggingID),
	})
	return err
}

// parseTaggingID extracts 42 from ".../v2/taggings/42.json".
func parseTaggingID(location string) (int, bool) {
	_, rest, ok := strings.Cut(location, "v2/taggings/")
	if !ok {
		return 0, false
	}
	raw, _, ok := strings.Cut(rest, ".json")
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}
