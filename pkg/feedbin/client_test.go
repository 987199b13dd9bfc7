package feedbin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/samvad-hq/feedbin-client/pkg/httpclient"
)

type fakeResponse struct {
	status  int
	body    string
	headers http.Header
}

func (r fakeResponse) Body() []byte              { return []byte(r.body) }
func (r fakeResponse) StatusCode() int           { return r.status }
func (r fakeResponse) Header(name string) string { return r.headers.Get(name) }

func respond(status int, body string, kv ...string) fakeResponse {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return fakeResponse{status: status, body: body, headers: h}
}

// fakeTransport records requests and replays a fixed outcome.
type fakeTransport struct {
	requests []httpclient.Request
	resp     httpclient.Response
	err      error
}

func (f *fakeTransport) Do(_ context.Context, req httpclient.Request) (httpclient.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeTransport) last(t *testing.T) httpclient.Request {
	t.Helper()
	if len(f.requests) == 0 {
		t.Fatalf("transport was not called")
	}
	return f.requests[len(f.requests)-1]
}

func newTestClient(tr *fakeTransport) (*Client, *AccountMetadata) {
	c := New(tr)
	md := NewAccountMetadata()
	c.SetCredentials(&Credentials{Username: "me@example.com", Password: "secret"})
	c.SetAccountMetadata(md)
	return c, md
}

func TestValidateCredentials(t *testing.T) {
	tr := &fakeTransport{resp: respond(http.StatusOK, "")}
	c, _ := newTestClient(tr)

	ok, err := c.ValidateCredentials(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected valid credentials, got ok=%v err=%v", ok, err)
	}
	req := tr.last(t)
	if req.URL != "https://api.feedbin.com/v2/authentication.json" {
		t.Fatalf("unexpected url %s", req.URL)
	}
	if req.BasicAuth == nil || req.BasicAuth.Username != "me@example.com" || req.BasicAuth.Password != "secret" {
		t.Fatalf("credentials not attached: %#v", req.BasicAuth)
	}

	tr.err = &httpclient.StatusError{Code: http.StatusUnauthorized}
	ok, err = c.ValidateCredentials(context.Background())
	if err != nil || ok {
		t.Fatalf("expected invalid credentials without error, got ok=%v err=%v", ok, err)
	}

	tr.err = &httpclient.StatusError{Code: http.StatusInternalServerError}
	if _, err := c.ValidateCredentials(context.Background()); err == nil {
		t.Fatalf("expected 500 to surface as error")
	}
}

func TestRetrieveTagsStoresConditionalGet(t *testing.T) {
	tr := &fakeTransport{resp: respond(http.StatusOK, `[{"id":1,"name":"Tech"}]`,
		"ETag", `W/"v1"`,
		"Last-Modified", "Sun, 15 Jun 2025 10:00:00 GMT",
	)}
	c, md := newTestClient(tr)

	tags, err := c.RetrieveTags(context.Background())
	if err != nil {
		t.Fatalf("RetrieveTags: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "Tech" || tags[0].ID != 1 {
		t.Fatalf("unexpected tags %#v", tags)
	}
	info, ok := md.ConditionalGet(KeyTags)
	if !ok || info.ETag != `W/"v1"` || info.LastModified != "Sun, 15 Jun 2025 10:00:00 GMT" {
		t.Fatalf("conditional get not stored: %#v ok=%v", info, ok)
	}
	if _, ok := md.ConditionalGet(KeySubscriptions); ok {
		t.Fatalf("unrelated key was written")
	}

	if _, err := c.RetrieveTags(context.Background()); err != nil {
		t.Fatalf("second RetrieveTags: %v", err)
	}
	req := tr.last(t)
	if req.Headers["If-None-Match"] != `W/"v1"` || req.Headers["If-Modified-Since"] != "Sun, 15 Jun 2025 10:00:00 GMT" {
		t.Fatalf("conditional headers missing: %#v", req.Headers)
	}
	again, _ := md.ConditionalGet(KeyTags)
	if again != info {
		t.Fatalf("repeated call changed token: %#v -> %#v", info, again)
	}
}

func TestCachedEndpointsLeaveStateOnNotModifiedOrFailure(t *testing.T) {
	cases := []struct {
		key  EndpointKey
		path string
		call func(*Client) (any, error)
	}{
		{KeySubscriptions, "subscriptions.json", func(c *Client) (any, error) { return c.RetrieveSubscriptions(context.Background()) }},
		{KeyTags, "tags.json", func(c *Client) (any, error) { return c.RetrieveTags(context.Background()) }},
		{KeyTaggings, "taggings.json", func(c *Client) (any, error) { return c.RetrieveTaggings(context.Background()) }},
		{KeyIcons, "icons.json", func(c *Client) (any, error) { return c.RetrieveIcons(context.Background()) }},
		{KeyUnreadEntries, "unread_entries.json", func(c *Client) (any, error) { return c.RetrieveUnreadEntries(context.Background()) }},
		{KeyStarredEntries, "starred_entries.json", func(c *Client) (any, error) { return c.RetrieveStarredEntries(context.Background()) }},
	}

	for _, tc := range cases {
		t.Run(string(tc.key), func(t *testing.T) {
			tr := &fakeTransport{resp: respond(http.StatusNotModified, "", "ETag", `"new"`)}
			c, md := newTestClient(tr)
			old := ConditionalGetInfo{ETag: `"old"`}
			other := ConditionalGetInfo{LastModified: "Mon, 02 Jun 2025 00:00:00 GMT"}
			md.SetConditionalGet(tc.key, old)
			otherKey := KeyIcons
			if tc.key == KeyIcons {
				otherKey = KeyTags
			}
			md.SetConditionalGet(otherKey, other)

			got, err := tc.call(c)
			if err != nil {
				t.Fatalf("not modified returned error: %v", err)
			}
			if !isNilSlice(got) {
				t.Fatalf("expected nil result on 304, got %#v", got)
			}
			req := tr.last(t)
			u, _ := url.Parse(req.URL)
			if u.Path != "/v2/"+tc.path {
				t.Fatalf("unexpected path %s", u.Path)
			}
			if req.Headers["If-None-Match"] != `"old"` {
				t.Fatalf("stored token not sent: %#v", req.Headers)
			}

			tr.err = &httpclient.StatusError{Code: http.StatusInternalServerError}
			if _, err := tc.call(c); err == nil {
				t.Fatalf("expected failure")
			}

			if info, _ := md.ConditionalGet(tc.key); info != old {
				t.Fatalf("token for %s changed to %#v", tc.key, info)
			}
			if info, _ := md.ConditionalGet(otherKey); info != other {
				t.Fatalf("token for %s changed to %#v", otherKey, info)
			}
		})
	}
}

func isNilSlice(v any) bool {
	switch s := v.(type) {
	case []Subscription:
		return s == nil
	case []Tag:
		return s == nil
	case []Tagging:
		return s == nil
	case []Icon:
		return s == nil
	case []int:
		return s == nil
	}
	return false
}

func TestDecodeFailureLeavesState(t *testing.T) {
	tr := &fakeTransport{resp: respond(http.StatusOK, `{"not":"a list"`, "ETag", `"v2"`)}
	c, md := newTestClient(tr)

	_, err := c.RetrieveTaggings(context.Background())
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if _, ok := md.ConditionalGet(KeyTaggings); ok {
		t.Fatalf("token stored after decode failure")
	}
}

func TestTransportErrorsPassThrough(t *testing.T) {
	boom := errors.New("connection reset")
	tr := &fakeTransport{err: boom}
	c, _ := newTestClient(tr)

	if _, err := c.RetrieveIcons(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected transport error unchanged, got %v", err)
	}
}

func TestEncodeFailureNeverReachesTransport(t *testing.T) {
	tr := &fakeTransport{resp: respond(http.StatusOK, "")}
	c, _ := newTestClient(tr)

	_, err := c.do(context.Background(), call{method: http.MethodPost, path: "tags.json", payload: make(chan int)})
	var encodeErr *EncodeError
	if !errors.As(err, &encodeErr) {
		t.Fatalf("expected EncodeError, got %v", err)
	}
	if len(tr.requests) != 0 {
		t.Fatalf("transport called %d times", len(tr.requests))
	}
}

func TestWithBaseURL(t *testing.T) {
	tr := &fakeTransport{resp: respond(http.StatusOK, "[]")}
	c := New(tr, WithBaseURL("http://localhost:3000/v2"))

	if _, err := c.RetrieveIcons(context.Background()); err != nil {
		t.Fatalf("RetrieveIcons: %v", err)
	}
	if got := tr.last(t).URL; got != "http://localhost:3000/v2/icons.json" {
		t.Fatalf("unexpected url %s", got)
	}
	if tr.last(t).BasicAuth != nil {
		t.Fatalf("basic auth sent without credentials")
	}
}

func TestAccountMetadataJSONRoundTrip(t *testing.T) {
	md := NewAccountMetadata()
	md.SetConditionalGet(KeyUnreadEntries, ConditionalGetInfo{ETag: `"u1"`})
	md.SetLastArticleFetch(time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC))

	raw, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := NewAccountMetadata()
	if err := json.Unmarshal(raw, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if info, _ := restored.ConditionalGet(KeyUnreadEntries); info.ETag != `"u1"` {
		t.Fatalf("conditional get lost: %#v", info)
	}
	last, ok := restored.LastArticleFetch()
	if !ok || !last.Equal(time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("last article fetch lost: %v ok=%v", last, ok)
	}
}

func TestEmptyBodyIsNotNotModified(t *testing.T) {
	tr := &fakeTransport{resp: respond(http.StatusOK, "")}
	c, _ := newTestClient(tr)

	subs, err := c.RetrieveSubscriptions(context.Background())
	if err != nil {
		t.Fatalf("RetrieveSubscriptions: %v", err)
	}
	if subs == nil || len(subs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", subs)
	}

	tr.resp = respond(http.StatusOK, "null")
	ids, err := c.RetrieveUnreadEntries(context.Background())
	if err != nil {
		t.Fatalf("RetrieveUnreadEntries: %v", err)
	}
	if ids == nil {
		t.Fatalf("expected empty non-nil slice for null body")
	}
}

func TestResponseWithoutValidatorsClearsToken(t *testing.T) {
	tr := &fakeTransport{resp: respond(http.StatusOK, `[]`)}
	c, md := newTestClient(tr)
	md.SetConditionalGet(KeyStarredEntries, ConditionalGetInfo{ETag: `"s1"`})
	md.SetConditionalGet(KeyTags, ConditionalGetInfo{ETag: `"t1"`})

	if _, err := c.RetrieveStarredEntries(context.Background()); err != nil {
		t.Fatalf("RetrieveStarredEntries: %v", err)
	}
	if info, ok := md.ConditionalGet(KeyStarredEntries); ok {
		t.Fatalf("stale token kept: %#v", info)
	}
	if info, _ := md.ConditionalGet(KeyTags); info.ETag != `"t1"` {
		t.Fatalf("unrelated token changed: %#v", info)
	}

	if _, err := c.RetrieveStarredEntries(context.Background()); err != nil {
		t.Fatalf("second RetrieveStarredEntries: %v", err)
	}
	if h := tr.last(t).Headers; h["If-None-Match"] != "" || h["If-Modified-Since"] != "" {
		t.Fatalf("conditional headers sent after clear: %#v", h)
	}
}
