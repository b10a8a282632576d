package ports

import (
	"context"
	"time"

	"aidigest/internal/domain"
)

// FeedPoller fetches one feed and returns its entries sorted newest-first.
type FeedPoller interface {
	Poll(ctx context.Context, source domain.Source) ([]domain.FeedEntry, error)
}

// Extractor retrieves a page and derives its primary readable text.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// Analyzer turns extracted article text into a structured Analysis.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (domain.Analysis, error)
}

// ArticleStore is the dedup and persistence surface of the pipeline.
type ArticleStore interface {
	Exists(ctx context.Context, url string) (bool, error)
	Insert(ctx context.Context, article domain.Article) (domain.InsertOutcome, error)
}

// DigestReader is the read surface the downstream digest generator and
// listing page depend on; the core itself never writes through it.
type DigestReader interface {
	RecentArticles(ctx context.Context, since time.Time) ([]domain.Article, error)
	Subscribers(ctx context.Context) ([]domain.Subscriber, error)
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
