// Package content turns Feedbin entries into publishable articles, pulling a
// plain-text description and a lead image out of the entry HTML.
package content

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/feedbin-client/internal/domain"
	"github.com/samvad-hq/feedbin-client/pkg/feedbin"
)

const (
	maxHTMLBodyBytes     = 1 << 20 // 1 MiB
	maxDescriptionLength = 280
)

// Extractor converts entries using optional subscription titles and unread/starred state.
type Extractor struct {
	feedTitles map[int]string
	unread     map[int]bool
	starred    map[int]bool
}

// NewExtractor builds an extractor. Any argument may be nil.
func NewExtractor(subs []feedbin.Subscription, unreadIDs, starredIDs []int) *Extractor {
	e := &Extractor{
		feedTitles: make(map[int]string, len(subs)),
		unread:     toSet(unreadIDs),
		starred:    toSet(starredIDs),
	}
	for _, s := range subs {
		e.feedTitles[s.FeedID] = s.Title
	}
	return e
}

func toSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Article converts a single entry.
func (e *Extractor) Article(entry feedbin.Entry) domain.Article {
	art := domain.Article{
		ID:          strconv.Itoa(entry.ID),
		FeedID:      entry.FeedID,
		Title:       strings.TrimSpace(entry.Title),
		URL:         strings.TrimSpace(entry.URL),
		Author:      strings.TrimSpace(entry.Author),
		PublishedAt: entry.Date(),
	}
	if e != nil {
		art.FeedTitle = e.feedTitles[entry.FeedID]
		art.Unread = e.unread[entry.ID]
		art.Starred = e.starred[entry.ID]
	}

	meta := parseContent(entry.Content)
	art.Description = firstNonEmpty(entry.Summary, meta.Text)
	art.Description = truncate(art.Description, maxDescriptionLength)

	if entry.Images != nil {
		art.ImageURL = strings.TrimSpace(entry.Images.OriginalURL)
	}
	if art.ImageURL == "" {
		art.ImageURL = resolveURL(meta.ImageURL, art.URL)
	}
	if art.Title == "" {
		art.Title = art.URL
	}
	return art
}

type contentMeta struct {
	Text     string
	ImageURL string
}

func parseContent(html string) contentMeta {
	if strings.TrimSpace(html) == "" {
		return contentMeta{}
	}
	if len(html) > maxHTMLBodyBytes {
		html = html[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return contentMeta{}
	}

	var cm contentMeta
	if src, ok := doc.Find("img[src]").First().Attr("src"); ok {
		cm.ImageURL = strings.TrimSpace(src)
	}
	doc.Find("script, style").Remove()
	cm.Text = strings.Join(strings.Fields(doc.Text()), " ")
	return cm
}

func resolveURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
