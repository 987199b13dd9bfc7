package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/feedbin-client/internal/config"
	"github.com/samvad-hq/feedbin-client/internal/content"
	"github.com/samvad-hq/feedbin-client/internal/logger"
	"github.com/samvad-hq/feedbin-client/internal/storage"
	"github.com/samvad-hq/feedbin-client/pkg/feedbin"
	"github.com/samvad-hq/feedbin-client/pkg/httpclient"
	"github.com/samvad-hq/feedbin-client/pkg/publishers"
)

// maxEntryPages bounds how many pages a single pass follows.
const maxEntryPages = 50

// Syncer pulls new entries from Feedbin on an interval and publishes them downstream.
// It owns the account metadata so conditional requests survive restarts.
type Syncer struct {
	client   *feedbin.Client
	store    storage.Store
	fanout   *publishers.Fanout
	account  string
	interval time.Duration
	log      logger.Logger
	maxPages int

	// set when the last pass stopped at the page limit
	resume *entryWalk

	// last known state; a 304 keeps the previous value
	subscriptions []feedbin.Subscription
	unread        []int
	starred       []int
	primed        bool
}

// PassStats summarizes one sync pass.
type PassStats struct {
	Subscriptions int `json:"subscriptions"`
	Tags          int `json:"tags"`
	Taggings      int `json:"taggings"`
	Icons         int `json:"icons"`
	Entries       int `json:"entries"`
	Published     int `json:"published"`
	Skipped       int `json:"skipped"`
}

// NewClient builds a Feedbin client from config using the resty transport.
func NewClient(cfg *config.Config, log logger.Logger) *feedbin.Client {
	transport := httpclient.NewRestyClient(cfg.HTTPTimeout).WithLogger(log)
	client := feedbin.New(transport, feedbin.WithBaseURL(cfg.FeedbinBaseURL))
	client.SetCredentials(&feedbin.Credentials{
		Username: cfg.FeedbinUsername,
		Password: cfg.FeedbinPassword,
	})
	return client
}

// NewSyncer builds a sync runtime: Feedbin client, storage and the optional publisher fanout.
func NewSyncer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Syncer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.StoragePath(), storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.StoragePath(),
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return newSyncer(NewClient(cfg, log), store, fanout, cfg.AccountID(), cfg.SyncInterval, log), nil
}

func newSyncer(client *feedbin.Client, store storage.Store, fanout *publishers.Fanout, account string, interval time.Duration, log logger.Logger) *Syncer {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Syncer{
		client:   client,
		store:    store,
		fanout:   fanout,
		account:  account,
		interval: interval,
		log:      log,
		maxPages: maxEntryPages,
	}
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		log.WarnObj("no publishers file configured; entries will not be published", "publishers_file", "")
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run performs a pass immediately and then one per interval until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("syncer is not initialized")
	}
	defer s.Close()

	s.log.InfoObj("sync loop starting", "sync_state", map[string]any{
		"account":          s.account,
		"publishers_count": s.fanout.Size(),
		"sync_interval":    s.interval.String(),
	})

	if _, err := s.RunOnce(ctx); err != nil {
		s.log.ErrorObj("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("sync loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.ErrorObj("scheduled sync failed", "error", err)
			}
		}
	}
}

// RunOnce executes a single sync pass and persists the account metadata afterwards.
func (s *Syncer) RunOnce(ctx context.Context) (PassStats, error) {
	var stats PassStats
	start := time.Now()

	md, err := s.store.LoadMetadata(s.account)
	if err != nil {
		return stats, fmt.Errorf("load metadata: %w", err)
	}
	if !s.primed {
		// Nothing is cached in memory yet, so a 304 would leave us without state.
		for _, key := range []feedbin.EndpointKey{feedbin.KeySubscriptions, feedbin.KeyUnreadEntries, feedbin.KeyStarredEntries} {
			md.SetConditionalGet(key, feedbin.ConditionalGetInfo{})
		}
	}
	work := &passMetadata{MetadataStore: md}
	s.client.SetAccountMetadata(work)

	if err := s.refresh(ctx, &stats); err != nil {
		return stats, err
	}
	s.primed = true

	complete, entryErr := s.syncEntries(ctx, work, &stats)
	if complete && entryErr == nil {
		work.commit()
	} else {
		s.log.WarnObj("entries watermark kept", "watermark_meta", map[string]any{
			"account":  s.account,
			"complete": complete,
			"resuming": s.resume != nil,
		})
	}

	if err := s.store.SaveMetadata(s.account, md); err != nil {
		return stats, errors.Join(entryErr, fmt.Errorf("save metadata: %w", err))
	}
	if entryErr != nil {
		return stats, entryErr
	}

	s.log.InfoObj("sync completed", "sync_meta", map[string]any{
		"account":    s.account,
		"stats":      stats,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return stats, nil
}

// refresh fetches the conditional endpoints concurrently.
func (s *Syncer) refresh(ctx context.Context, stats *PassStats) error {
	var (
		subs     []feedbin.Subscription
		tags     []feedbin.Tag
		taggings []feedbin.Tagging
		icons    []feedbin.Icon
		unread   []int
		starred  []int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		subs, err = s.client.RetrieveSubscriptions(gctx)
		return wrapEndpoint(feedbin.KeySubscriptions, err)
	})
	g.Go(func() (err error) {
		tags, err = s.client.RetrieveTags(gctx)
		return wrapEndpoint(feedbin.KeyTags, err)
	})
	g.Go(func() (err error) {
		taggings, err = s.client.RetrieveTaggings(gctx)
		return wrapEndpoint(feedbin.KeyTaggings, err)
	})
	g.Go(func() (err error) {
		icons, err = s.client.RetrieveIcons(gctx)
		return wrapEndpoint(feedbin.KeyIcons, err)
	})
	g.Go(func() (err error) {
		unread, err = s.client.RetrieveUnreadEntries(gctx)
		return wrapEndpoint(feedbin.KeyUnreadEntries, err)
	})
	g.Go(func() (err error) {
		starred, err = s.client.RetrieveStarredEntries(gctx)
		return wrapEndpoint(feedbin.KeyStarredEntries, err)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if subs != nil {
		s.subscriptions = subs
	}
	if unread != nil {
		s.unread = unread
	}
	if starred != nil {
		s.starred = starred
	}
	stats.Subscriptions = len(s.subscriptions)
	stats.Tags = len(tags)
	stats.Taggings = len(taggings)
	stats.Icons = len(icons)

	s.log.DebugObj("account state refreshed", "refresh_meta", map[string]any{
		"subscriptions_modified": subs != nil,
		"tags_modified":          tags != nil,
		"taggings_modified":      taggings != nil,
		"icons_modified":         icons != nil,
		"unread_count":           len(s.unread),
		"starred_count":          len(s.starred),
	})
	return nil
}

func wrapEndpoint(key feedbin.EndpointKey, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("retrieve %s: %w", key, err)
}

// syncEntries walks the entry pages and publishes entries not seen before. It reports
// false when the walk stopped at the page limit; the remaining pages are picked up
// by the next pass.
func (s *Syncer) syncEntries(ctx context.Context, work *passMetadata, stats *PassStats) (bool, error) {
	extractor := content.NewExtractor(s.subscriptions, s.unread, s.starred)

	var (
		entries []feedbin.Entry
		next    string
		err     error
	)
	if walk := s.resume; walk != nil {
		s.resume = nil
		work.SetLastArticleFetch(walk.fetched)
		entries, next, err = s.client.RetrieveEntriesPage(ctx, walk.next)
	} else {
		entries, next, err = s.client.RetrieveEntries(ctx)
	}

	for page := 1; ; page++ {
		if err != nil {
			return false, fmt.Errorf("retrieve entries page %d: %w", page, err)
		}
		stats.Entries += len(entries)
		if err := s.publishEntries(ctx, extractor, entries, stats); err != nil {
			return false, err
		}
		if next == "" {
			return true, nil
		}
		if page >= s.maxPages {
			if fetched, ok := work.fetched(); ok {
				s.resume = &entryWalk{next: next, fetched: fetched}
			}
			s.log.WarnObj("entry page limit reached", "next_page", next)
			return false, nil
		}
		entries, next, err = s.client.RetrieveEntriesPage(ctx, next)
	}
}

func (s *Syncer) publishEntries(ctx context.Context, extractor *content.Extractor, entries []feedbin.Entry, stats *PassStats) error {
	var errs []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := strconv.Itoa(entry.ID)
		seen, err := s.store.SeenEntry(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("check entry %s: %w", id, err))
			continue
		}
		if seen {
			stats.Skipped++
			continue
		}

		evt := publishers.NewEvent(s.account, extractor.Article(entry))
		delivered, err := s.fanout.Publish(ctx, evt)
		if err != nil {
			s.log.ErrorObj("entry publish failed", "publish_error", map[string]any{
				"entry_id":  id,
				"feed_id":   entry.FeedID,
				"delivered": delivered,
				"error":     err.Error(),
			})
			// retried next pass unless some sink already has it
			if delivered == 0 {
				errs = append(errs, fmt.Errorf("publish entry %s: %w", id, err))
				continue
			}
		}
		if delivered > 0 {
			stats.Published++
		}
		if err := s.store.MarkEntry(id); err != nil {
			errs = append(errs, fmt.Errorf("mark entry %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases storage and publisher resources.
func (s *Syncer) Close() {
	if s == nil {
		return
	}
	if err := s.fanout.Close(); err != nil {
		s.log.ErrorObj("publisher close failed", "error", err)
	}
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.log.ErrorObj("storage close failed", "error", err)
	}
}

// entryWalk is an entry walk cut short by the page limit.
type entryWalk struct {
	next    string
	fetched time.Time
}

// passMetadata holds back the entries watermark until a pass has published every page.
// Conditional-get validators go straight to the underlying store.
type passMetadata struct {
	feedbin.MetadataStore

	mu      sync.Mutex
	pending *time.Time
}

func (p *passMetadata) SetLastArticleFetch(t time.Time) {
	p.mu.Lock()
	p.pending = &t
	p.mu.Unlock()
}

func (p *passMetadata) fetched() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return time.Time{}, false
	}
	return *p.pending, true
}

func (p *passMetadata) commit() {
	if t, ok := p.fetched(); ok {
		p.MetadataStore.SetLastArticleFetch(t)
	}
}
