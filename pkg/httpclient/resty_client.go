package httpclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	maxErrorBodyBytes = 512
	defaultUserAgent  = "feedbin-client/1.0"
)

// Logger is the logging surface the transport relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
	log    Logger
}

// NewRestyClient creates a new RestyClient with the specified timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(timeout), log: noopLogger{}}
}

// WithLogger attaches a logger used for request failure tracing.
func (r *RestyClient) WithLogger(log Logger) *RestyClient {
	if log != nil {
		r.log = log
	}
	return r
}

// newRestyBaseClient creates a resty.Client that hands 3xx responses back to the caller.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetHeader("User-Agent", defaultUserAgent)
	c.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	return c
}

// Do performs the request and classifies error statuses as *StatusError.
func (r *RestyClient) Do(ctx context.Context, in Request) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(in.Headers) > 0 {
		req.SetHeaders(in.Headers)
	}
	if in.BasicAuth != nil {
		req.SetBasicAuth(in.BasicAuth.Username, in.BasicAuth.Password)
	}
	if in.Body != nil {
		req.SetBody(in.Body)
	}

	method := in.Method
	if method == "" {
		method = http.MethodGet
	}

	resp, err := req.Execute(method, in.URL)
	if err != nil {
		r.log.DebugObj("http request failed", "http_error", map[string]any{
			"method": method,
			"url":    in.URL,
			"error":  err.Error(),
		})
		return nil, err
	}
	if resp.IsError() {
		r.log.DebugObj("http error status", "http_status", map[string]any{
			"method": method,
			"url":    in.URL,
			"status": resp.StatusCode(),
		})
		return nil, &StatusError{Code: resp.StatusCode(), Body: readBodySnippet(resp.Body())}
	}
	return &restyResponseAdapter{resp: resp}, nil
}

func readBodySnippet(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	return strings.TrimSpace(string(body))
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte              { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int           { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header(name string) string { return r.resp.Header().Get(name) }
