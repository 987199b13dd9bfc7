package publishers

import "io"

// filteredPublisher applies an EntryFilter in front of another publisher.
type filteredPublisher struct {
	Publisher
	filter EntryFilter
}

func withFilter(p Publisher, f EntryFilter) Publisher {
	if len(f.FeedIDs) == 0 && !f.StarredOnly && !f.UnreadOnly {
		return p
	}
	return &filteredPublisher{Publisher: p, filter: f}
}

func (f *filteredPublisher) Accepts(evt Event) bool { return f.filter.Accepts(evt) }

func (f *filteredPublisher) Close() error {
	if c, ok := f.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
