package publishers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samvad-hq/feedbin-client/internal/domain"
)

func TestHTTPPublisherSendsEntryHeaders(t *testing.T) {
	var got Event
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), sanitizePublisherConfig(PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{
			URL:     srv.URL,
			Method:  "put",
			Headers: map[string]string{"Authorization": "Bearer t0k3n"},
		},
	}), nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := NewEvent("acct", domain.Article{ID: "2077", FeedID: 135, Title: "Hello"})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.ID != evt.ID || got.Article.Title != "Hello" {
		t.Fatalf("unexpected body %+v", got)
	}
	for name, want := range map[string]string{
		"Authorization":      "Bearer t0k3n",
		"X-Event-Id":         evt.ID,
		"X-Feedbin-Entry-Id": "2077",
		"X-Feedbin-Feed-Id":  "135",
		"Content-Type":       "application/json",
	} {
		if headers.Get(name) != want {
			t.Errorf("%s = %q, want %q", name, headers.Get(name), want)
		}
	}
}

func TestHTTPPublisherRejectsNon2xx(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if status == http.StatusFound {
				w.Header().Set("Location", "/elsewhere")
			}
			http.Error(w, "nope", status)
		}))

		pub, err := newHTTPPublisher(context.Background(), sanitizePublisherConfig(PublisherConfig{
			ID:   "hook",
			Type: TypeHTTP,
			HTTP: &HTTPPublisherConfig{URL: srv.URL, TimeoutSeconds: 1},
		}), nil)
		if err != nil {
			t.Fatalf("newHTTPPublisher: %v", err)
		}
		if err := pub.Publish(context.Background(), Event{}); err == nil {
			t.Errorf("status %d: expected error", status)
		}
		srv.Close()
	}
}
