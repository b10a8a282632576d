package usecase

import (
	"context"
	"log/slog"
	"time"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// StalenessPolicy decides what to do when the newest-first walk reaches an
// entry published before the cutoff. The default stops the whole source,
// which assumes the feed really is time-sorted; a feed that violates that
// order can swap in a scan-all policy instead.
type StalenessPolicy func(entry domain.FeedEntry, cutoff time.Time) bool

// StopAtFirstStale treats the first out-of-window entry as the boundary:
// everything older is presumed stale too and is never visited this run.
func StopAtFirstStale(entry domain.FeedEntry, cutoff time.Time) bool {
	return entry.PublishedAt.Before(cutoff)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Poller    ports.FeedPoller
	Extractor ports.Extractor
	Analyzer  ports.Analyzer
	Store     ports.ArticleStore
	Logger    *slog.Logger

	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
	// Stale defaults to StopAtFirstStale.
	Stale StalenessPolicy
}

// Pipeline drives the ingestion workflow: poll, dedup, extract, analyze,
// persist, one source at a time, one entry at a time.
type Pipeline struct {
	poller    ports.FeedPoller
	extractor ports.Extractor
	analyzer  ports.Analyzer
	store     ports.ArticleStore
	logger    *slog.Logger

	sources      []domain.Source
	window       time.Duration
	maxPerSource int

	now   func() time.Time
	stale StalenessPolicy
}

// sourceStats summarizes one source's walk for the end-of-source log line.
type sourceStats struct {
	inserted   int
	duplicates int
	failed     int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, sources []domain.Source, window time.Duration, maxPerSource int) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	stale := deps.Stale
	if stale == nil {
		stale = StopAtFirstStale
	}

	return &Pipeline{
		poller:       deps.Poller,
		extractor:    deps.Extractor,
		analyzer:     deps.Analyzer,
		store:        deps.Store,
		logger:       deps.Logger,
		sources:      sources,
		window:       window,
		maxPerSource: maxPerSource,
		now:          now,
		stale:        stale,
	}
}

// Run executes one full pass over every configured source. The recency
// cutoff is measured once, at run start. No failure below configuration
// level aborts the run; failed entries are skipped permanently for this
// run and naturally retried by the next one while still in the window.
func (p *Pipeline) Run(ctx context.Context) error {
	cutoff := p.now().UTC().Add(-p.window)

	for _, src := range p.sources {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats := p.processSource(ctx, src, cutoff)
		p.info("source processed",
			"source", src.Name,
			"inserted", stats.inserted,
			"duplicates", stats.duplicates,
			"failed", stats.failed,
		)
	}

	return nil
}

func (p *Pipeline) processSource(ctx context.Context, src domain.Source, cutoff time.Time) sourceStats {
	var stats sourceStats

	entries, err := p.poller.Poll(ctx, src)
	if err != nil {
		p.warn("feed poll failed", "source", src.Name, "error", err)
		return stats
	}
	if len(entries) == 0 {
		p.info("feed yielded no entries", "source", src.Name)
		return stats
	}

	for _, entry := range entries {
		if stats.inserted >= p.maxPerSource {
			p.info("per-source cap reached", "source", src.Name, "cap", p.maxPerSource)
			break
		}

		if p.stale(entry, cutoff) {
			// Entries arrive newest-first; the first stale one is the
			// window boundary for the whole source.
			p.debug("recency boundary reached", "source", src.Name, "published_at", entry.PublishedAt)
			break
		}

		switch p.processEntry(ctx, entry) {
		case entryPersisted:
			stats.inserted++
		case entryDuplicate:
			stats.duplicates++
		case entryFailed:
			stats.failed++
		}
	}

	return stats
}

type entryOutcome int

const (
	entryPersisted entryOutcome = iota
	entryDuplicate
	entryFailed
)

// processEntry walks one entry through its terminal states: duplicate
// skip, extraction failure, analysis failure, or persisted. There are no
// retries within a run.
func (p *Pipeline) processEntry(ctx context.Context, entry domain.FeedEntry) entryOutcome {
	exists, err := p.store.Exists(ctx, entry.Link)
	if err != nil {
		p.warn("dedup lookup failed", "url", entry.Link, "error", err)
		return entryFailed
	}
	if exists {
		p.debug("article already present", "url", entry.Link)
		return entryDuplicate
	}

	p.info("found new article", "source", entry.SourceName, "title", entry.Title)

	text, err := p.extractor.Extract(ctx, entry.Link)
	if err != nil {
		p.warn("content extraction failed", "url", entry.Link, "error", err)
		return entryFailed
	}

	analysis, err := p.analyzer.Analyze(ctx, text)
	if err != nil {
		p.warn("analysis failed", "url", entry.Link, "error", err)
		return entryFailed
	}

	outcome, err := p.store.Insert(ctx, domain.Article{
		URL:         entry.Link,
		Title:       entry.Title,
		SourceName:  entry.SourceName,
		PublishedAt: entry.PublishedAt,
		Analysis:    analysis,
	})
	if err != nil {
		p.warn("insert failed", "url", entry.Link, "error", err)
		return entryFailed
	}
	if outcome == domain.Duplicate {
		// Lost a cross-run race on the unique url key; expected, not an error.
		p.debug("article already present", "url", entry.Link)
		return entryDuplicate
	}

	p.info("article persisted", "url", entry.Link, "category", string(analysis.Category))
	return entryPersisted
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
