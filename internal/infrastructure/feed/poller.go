package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

const defaultTimeout = 15 * time.Second

// epochSentinel marks entries whose feed carries no usable timestamp.
// It sorts after any real publication date, so dateless entries land
// at the tail of the newest-first walk.
var epochSentinel = time.Unix(0, 0).UTC()

// Poller fetches and parses one RSS/Atom feed per call.
type Poller struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ ports.FeedPoller = (*Poller)(nil)

// NewPoller wires a gofeed parser with a bounded-timeout HTTP client and
// a browser-like identification header.
func NewPoller(client *http.Client, userAgent string, logger *slog.Logger) *Poller {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	parser := gofeed.NewParser()
	parser.Client = client
	if userAgent != "" {
		parser.UserAgent = userAgent
	}

	return &Poller{parser: parser, logger: logger}
}

// Poll returns the feed's entries sorted by published timestamp descending.
// Feeds are not guaranteed pre-sorted, so the order is imposed here.
func (p *Poller) Poll(ctx context.Context, source domain.Source) ([]domain.FeedEntry, error) {
	parsed, err := p.parser.ParseURLWithContext(source.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", source.Name, err)
	}

	entries := lo.FilterMap(parsed.Items, func(item *gofeed.Item, _ int) (domain.FeedEntry, bool) {
		if item == nil || item.Link == "" {
			return domain.FeedEntry{}, false
		}
		return domain.FeedEntry{
			Title:       item.Title,
			Link:        item.Link,
			SourceName:  source.Name,
			PublishedAt: p.publishedAt(item),
		}, true
	})

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PublishedAt.After(entries[j].PublishedAt)
	})

	return entries, nil
}

// publishedAt picks the best available timestamp field, normalized to UTC.
// Timezone-naive feed dates are assumed UTC.
func (p *Poller) publishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}

	for _, raw := range []string{item.Published, item.Updated} {
		if raw == "" {
			continue
		}
		if ts, err := dateparse.ParseIn(raw, time.UTC); err == nil {
			return ts.UTC()
		}
		p.debug("unparseable feed date", "value", raw, "title", item.Title)
	}

	return epochSentinel
}

func (p *Poller) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
