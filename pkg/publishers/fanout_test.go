package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/samvad-hq/feedbin-client/internal/domain"
)

type stubPublisher struct {
	id     string
	err    error
	calls  int
	closed bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return "stub" }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}
func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

func TestFanoutCountsDeliveriesAndJoinsErrors(t *testing.T) {
	bad := &stubPublisher{id: "bad", err: errors.New("failed")}
	fanout := NewFanout([]Publisher{&stubPublisher{id: "ok"}, nil, bad})

	delivered, err := fanout.Publish(context.Background(), Event{})
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	if err == nil || !errors.Is(err, bad.err) {
		t.Fatalf("expected joined error wrapping the failure, got %v", err)
	}
	if fanout.Size() != 2 {
		t.Fatalf("Size = %d, want 2", fanout.Size())
	}
}

func TestFanoutSkipsRejectedEvents(t *testing.T) {
	starred := &stubPublisher{id: "starred"}
	feed := &stubPublisher{id: "feed"}
	fanout := NewFanout([]Publisher{
		withFilter(starred, EntryFilter{StarredOnly: true}),
		withFilter(feed, EntryFilter{FeedIDs: []int{7}}),
	})

	evt := NewEvent("acct", domain.Article{ID: "1", FeedID: 7})
	delivered, err := fanout.Publish(context.Background(), evt)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if delivered != 1 || starred.calls != 0 || feed.calls != 1 {
		t.Fatalf("delivered=%d starred=%d feed=%d", delivered, starred.calls, feed.calls)
	}

	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !starred.closed || !feed.closed {
		t.Fatalf("filtered publishers were not closed")
	}
}

func TestEntryFilterAccepts(t *testing.T) {
	evt := Event{FeedID: 3, Article: domain.Article{Unread: true}}
	cases := []struct {
		name   string
		filter EntryFilter
		want   bool
	}{
		{"zero value", EntryFilter{}, true},
		{"matching feed", EntryFilter{FeedIDs: []int{1, 3}}, true},
		{"other feed", EntryFilter{FeedIDs: []int{1}}, false},
		{"unread only", EntryFilter{UnreadOnly: true}, true},
		{"starred only", EntryFilter{StarredOnly: true}, false},
	}
	for _, tc := range cases {
		if got := tc.filter.Accepts(evt); got != tc.want {
			t.Errorf("%s: Accepts = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	pubs, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{
		{ID: "hook", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}, Filter: EntryFilter{StarredOnly: true}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publisher, got %d", len(pubs))
	}
	if _, ok := pubs[0].(Selective); !ok {
		t.Fatalf("filter was not applied to %T", pubs[0])
	}
}

func TestBuildAllUnknownType(t *testing.T) {
	_, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{{ID: "x", Type: "kafka"}}, nil)
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}
