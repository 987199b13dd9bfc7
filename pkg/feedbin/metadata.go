package feedbin

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/feedbin-client/pkg/httpclient"
)

// EndpointKey names an endpoint whose responses are fetched conditionally.
type EndpointKey string

const (
	KeySubscriptions  EndpointKey = "subscriptions"
	KeyTags           EndpointKey = "tags"
	KeyTaggings       EndpointKey = "taggings"
	KeyIcons          EndpointKey = "icons"
	KeyUnreadEntries  EndpointKey = "unreadEntries"
	KeyStarredEntries EndpointKey = "starredEntries"
)

// ConditionalGetInfo holds the validators of the last successful response for an endpoint.
type ConditionalGetInfo struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// IsZero reports whether no validator is present.
func (c ConditionalGetInfo) IsZero() bool {
	return c.ETag == "" && c.LastModified == ""
}

func (c ConditionalGetInfo) headers() map[string]string {
	h := make(map[string]string, 2)
	if c.ETag != "" {
		h["If-None-Match"] = c.ETag
	}
	if c.LastModified != "" {
		h["If-Modified-Since"] = c.LastModified
	}
	return h
}

func conditionalGetFromResponse(resp httpclient.Response) ConditionalGetInfo {
	return ConditionalGetInfo{
		ETag:         strings.TrimSpace(resp.Header("ETag")),
		LastModified: strings.TrimSpace(resp.Header("Last-Modified")),
	}
}

// MetadataStore is the mutable per-account state the client reads and updates.
type MetadataStore interface {
	ConditionalGet(key EndpointKey) (ConditionalGetInfo, bool)
	SetConditionalGet(key EndpointKey, info ConditionalGetInfo)
	LastArticleFetch() (time.Time, bool)
	SetLastArticleFetch(t time.Time)
}

// AccountMetadata is the default MetadataStore. It is safe for concurrent use and
// round-trips through JSON so callers can persist it between runs.
type AccountMetadata struct {
	mu               sync.Mutex
	conditionalGet   map[EndpointKey]ConditionalGetInfo
	lastArticleFetch *time.Time
}

// NewAccountMetadata returns empty metadata.
func NewAccountMetadata() *AccountMetadata {
	return &AccountMetadata{conditionalGet: make(map[EndpointKey]ConditionalGetInfo)}
}

func (m *AccountMetadata) ConditionalGet(key EndpointKey) (ConditionalGetInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.conditionalGet[key]
	return info, ok
}

// SetConditionalGet replaces the validators for key. A zero info removes the key.
func (m *AccountMetadata) SetConditionalGet(key EndpointKey, info ConditionalGetInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info.IsZero() {
		delete(m.conditionalGet, key)
		return
	}
	if m.conditionalGet == nil {
		m.conditionalGet = make(map[EndpointKey]ConditionalGetInfo)
	}
	m.conditionalGet[key] = info
}

func (m *AccountMetadata) LastArticleFetch() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastArticleFetch == nil {
		return time.Time{}, false
	}
	return *m.lastArticleFetch, true
}

func (m *AccountMetadata) SetLastArticleFetch(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t = t.UTC()
	m.lastArticleFetch = &t
}

type accountMetadataJSON struct {
	ConditionalGet   map[EndpointKey]ConditionalGetInfo `json:"conditional_get_info,omitempty"`
	LastArticleFetch *time.Time                         `json:"last_article_fetch,omitempty"`
}

func (m *AccountMetadata) MarshalJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.Marshal(accountMetadataJSON{
		ConditionalGet:   m.conditionalGet,
		LastArticleFetch: m.lastArticleFetch,
	})
}

func (m *AccountMetadata) UnmarshalJSON(data []byte) error {
	var raw accountMetadataJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conditionalGet = raw.ConditionalGet
	if m.conditionalGet == nil {
		m.conditionalGet = make(map[EndpointKey]ConditionalGetInfo)
	}
	m.lastArticleFetch = raw.LastArticleFetch
	return nil
}
