package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/samvad-hq/feedbin-client/pkg/httpclient"
)

// httpPublisher posts each event as JSON to a webhook.
type httpPublisher struct {
	id        string
	cfg       HTTPPublisherConfig
	transport httpclient.Client
	log       Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	log = ensureLogger(log)
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second

	return &httpPublisher{
		id:        cfg.ID,
		cfg:       *cfg.HTTP,
		transport: httpclient.NewRestyClient(timeout).WithLogger(log),
		log:       log,
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	headers := make(map[string]string, len(h.cfg.Headers)+4)
	for k, v := range h.cfg.Headers {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"
	headers["X-Event-Id"] = evt.ID
	headers["X-Feedbin-Entry-Id"] = evt.Article.ID
	headers["X-Feedbin-Feed-Id"] = strconv.Itoa(evt.FeedID)

	resp, err := h.transport.Do(ctx, httpclient.Request{
		Method:  h.cfg.Method,
		URL:     h.cfg.URL,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("http publish: %w", err)
	}
	// redirects are not followed
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("http publish: unexpected status %d", code)
	}

	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"event_id":     evt.ID,
		"entry_id":     evt.Article.ID,
	})
	return nil
}
