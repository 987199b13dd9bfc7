// Package feedbin is a client for the Feedbin v2 REST API.
//
// Every operation issues exactly one request through the injected transport and
// returns either a typed value or an error. Read endpoints that support
// conditional requests return a nil slice with a nil error when the server
// reports the resource unchanged, and a non-nil (possibly empty) slice otherwise.
//
// Feedbin limits clients to 250 requests per second per IP address. Exceeding
// the limit yields 403 responses and a five minute block; the client does not
// throttle on its own.
package feedbin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/feedbin-client/pkg/httpclient"
)

const (
	// DefaultBaseURL is the root of the Feedbin v2 API.
	DefaultBaseURL = "https://api.feedbin.com/v2/"

	defaultTimeout = 30 * time.Second
	entriesPerPage = 100
	sinceLayout    = "2006-01-02T15:04:05.000000Z"
)

// Client talks to the Feedbin API. Credentials and account metadata can be
// swapped at any time, so one instance may outlive sign-in changes.
type Client struct {
	transport httpclient.Client
	baseURL   *url.URL
	now       func() time.Time

	mu          sync.RWMutex
	credentials *Credentials
	metadata    MetadataStore
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root. Invalid URLs are ignored.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() {
			return
		}
		c.baseURL = u
	}
}

// WithClock overrides the time source used for the default since window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a client around transport. A nil transport gets a resty-backed default.
func New(transport httpclient.Client, opts ...Option) *Client {
	if transport == nil {
		transport = httpclient.NewRestyClient(defaultTimeout)
	}
	base, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		transport: transport,
		baseURL:   base,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetCredentials replaces the credentials attached to subsequent requests.
func (c *Client) SetCredentials(creds *Credentials) {
	c.mu.Lock()
	c.credentials = creds
	c.mu.Unlock()
}

// SetAccountMetadata replaces the state used for conditional requests and entry sync.
func (c *Client) SetAccountMetadata(md MetadataStore) {
	c.mu.Lock()
	c.metadata = md
	c.mu.Unlock()
}

func (c *Client) accountMetadata() MetadataStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metadata
}

// call describes one request. rawURL, when set, is used verbatim instead of path.
type call struct {
	method  string
	path    string
	rawURL  string
	query   url.Values
	payload any
	key     EndpointKey
}

func (c *Client) endpointURL(cl call) string {
	if cl.rawURL != "" {
		return cl.rawURL
	}
	u := c.baseURL.ResolveReference(&url.URL{Path: cl.path})
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, cl call) (httpclient.Response, error) {
	method := cl.method
	if method == "" {
		method = http.MethodGet
	}
	req := httpclient.Request{
		Method:  method,
		URL:     c.endpointURL(cl),
		Headers: map[string]string{"Accept": "application/json"},
	}

	if cl.payload != nil {
		body, err := json.Marshal(cl.payload)
		if err != nil {
			return nil, &EncodeError{Endpoint: cl.path, Err: err}
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json; charset=utf-8"
	}

	c.mu.RLock()
	creds, md := c.credentials, c.metadata
	c.mu.RUnlock()

	if creds != nil {
		req.BasicAuth = &httpclient.BasicAuth{Username: creds.Username, Password: creds.Password}
	}
	if cl.key != "" && md != nil {
		if info, ok := md.ConditionalGet(cl.key); ok {
			for k, v := range info.headers() {
				req.Headers[k] = v
			}
		}
	}

	return c.transport.Do(ctx, req)
}

// decodeBody reports false when the response carried no body.
func decodeBody(endpoint string, resp httpclient.Response, v any) (bool, error) {
	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, &DecodeError{Endpoint: endpoint, Err: err}
	}
	return true, nil
}

// storeConditionalGet replaces the validators for key with those of resp. A response
// without ETag or Last-Modified clears them, so stale validators are not sent again.
func (c *Client) storeConditionalGet(key EndpointKey, resp httpclient.Response) {
	md := c.accountMetadata()
	if md == nil {
		return
	}
	md.SetConditionalGet(key, conditionalGetFromResponse(resp))
}

// retrieveCached performs a conditional GET of a JSON array.
func retrieveCached[T any](ctx context.Context, c *Client, path string, query url.Values, key EndpointKey) ([]T, error) {
	resp, err := c.do(ctx, call{method: http.MethodGet, path: path, query: query, key: key})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotModified {
		return nil, nil
	}

	var out []T
	if _, err := decodeBody(path, resp, &out); err != nil {
		return nil, err
	}
	if out == nil {
		// nil is reserved for 304
		out = []T{}
	}
	c.storeConditionalGet(key, resp)
	return out, nil
}

// ValidateCredentials reports whether the current credentials are accepted.
func (c *Client) ValidateCredentials(ctx context.Context) (bool, error) {
	_, err := c.do(ctx, call{method: http.MethodGet, path: "authentication.json"})
	if err != nil {
		if code, ok := httpclient.StatusCode(err); ok && code == http.StatusUnauthorized {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
