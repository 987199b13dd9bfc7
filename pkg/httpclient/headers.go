package httpclient

import (
	"net/http"
	"strings"
	"time"

	"github.com/peterhellberg/link"
)

// NextPage returns the rel="next" target of the response Link header, or "" when there is none.
func NextPage(resp Response) string {
	if resp == nil {
		return ""
	}
	raw := strings.TrimSpace(resp.Header("Link"))
	if raw == "" {
		return ""
	}
	if next, ok := link.Parse(raw)["next"]; ok && next != nil {
		return next.URI
	}
	return ""
}

// Date parses the response Date header.
func Date(resp Response) (time.Time, bool) {
	if resp == nil {
		return time.Time{}, false
	}
	raw := strings.TrimSpace(resp.Header("Date"))
	if raw == "" {
		return time.Time{}, false
	}
	t, err := http.ParseTime(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
