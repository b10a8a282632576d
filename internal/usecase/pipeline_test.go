package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"aidigest/internal/domain"
)

type fakePoller struct {
	entries map[string][]domain.FeedEntry
	errs    map[string]error
}

func (f *fakePoller) Poll(_ context.Context, src domain.Source) ([]domain.FeedEntry, error) {
	if err := f.errs[src.Name]; err != nil {
		return nil, err
	}
	return f.entries[src.Name], nil
}

type fakeExtractor struct {
	fail  map[string]error
	calls []string
}

func (f *fakeExtractor) Extract(_ context.Context, pageURL string) (string, error) {
	f.calls = append(f.calls, pageURL)
	if err := f.fail[pageURL]; err != nil {
		return "", err
	}
	return "extracted article text long enough to analyze for " + pageURL, nil
}

type fakeAnalyzer struct {
	calls int
	err   error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string) (domain.Analysis, error) {
	f.calls++
	if f.err != nil {
		return domain.Analysis{}, f.err
	}
	return domain.Analysis{
		Summary:  "summary",
		Category: domain.CategoryIndustryNews,
	}, nil
}

type memStore struct {
	rows      map[string]domain.Article
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]domain.Article{}}
}

func (m *memStore) Exists(_ context.Context, url string) (bool, error) {
	_, ok := m.rows[url]
	return ok, nil
}

func (m *memStore) Insert(_ context.Context, article domain.Article) (domain.InsertOutcome, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	if _, ok := m.rows[article.URL]; ok {
		return domain.Duplicate, nil
	}
	article.CreatedAt = time.Now().UTC()
	m.rows[article.URL] = article
	return domain.Inserted, nil
}

func entryAt(link string, published time.Time) domain.FeedEntry {
	return domain.FeedEntry{
		Title:       "entry " + link,
		Link:        link,
		SourceName:  "src",
		PublishedAt: published,
	}
}

func newTestPipeline(poller *fakePoller, extractor *fakeExtractor, analyzer *fakeAnalyzer,
	store *memStore, sources []domain.Source, now time.Time, maxNew int) *Pipeline {

	return NewPipeline(PipelineDeps{
		Poller:    poller,
		Extractor: extractor,
		Analyzer:  analyzer,
		Store:     store,
		Now:       func() time.Time { return now },
	}, sources, 3*24*time.Hour, maxNew)
}

func TestWindowBoundaryStopsBeforeStaleEntry(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	poller := &fakePoller{entries: map[string][]domain.FeedEntry{
		"src": {
			entryAt("http://a/1", now.Add(-24*time.Hour)),
			entryAt("http://a/2", now.Add(-48*time.Hour)),
			entryAt("http://a/3", now.Add(-96*time.Hour)),
		},
	}}
	extractor := &fakeExtractor{}
	store := newMemStore()

	p := newTestPipeline(poller, extractor, &fakeAnalyzer{}, store,
		[]domain.Source{{Name: "src"}}, now, 5)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(store.rows) != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", len(store.rows))
	}
	for _, call := range extractor.calls {
		if call == "http://a/3" {
			t.Fatalf("stale entry was fetched: %s", call)
		}
	}
}

func TestPerSourceCapEnforced(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	var entries []domain.FeedEntry
	for i := 0; i < 10; i++ {
		entries = append(entries, entryAt(fmt.Sprintf("http://a/%d", i), now.Add(-time.Duration(i)*time.Hour)))
	}
	poller := &fakePoller{entries: map[string][]domain.FeedEntry{"src": entries}}
	extractor := &fakeExtractor{}
	store := newMemStore()

	p := newTestPipeline(poller, extractor, &fakeAnalyzer{}, store,
		[]domain.Source{{Name: "src"}}, now, 5)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(store.rows) != 5 {
		t.Fatalf("expected exactly 5 persisted rows, got %d", len(store.rows))
	}
	if len(extractor.calls) != 5 {
		t.Fatalf("entries past the cap must never be fetched, got %d fetches", len(extractor.calls))
	}
}

func TestSecondRunInsertsNothing(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	poller := &fakePoller{entries: map[string][]domain.FeedEntry{
		"src": {
			entryAt("http://a/1", now.Add(-time.Hour)),
			entryAt("http://a/2", now.Add(-2*time.Hour)),
		},
	}}
	store := newMemStore()
	analyzer := &fakeAnalyzer{}

	p := newTestPipeline(poller, &fakeExtractor{}, analyzer, store,
		[]domain.Source{{Name: "src"}}, now, 5)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("first Run error: %v", err)
	}
	if len(store.rows) != 2 {
		t.Fatalf("expected 2 rows after first run, got %d", len(store.rows))
	}
	analyzedOnce := analyzer.calls

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	if len(store.rows) != 2 {
		t.Fatalf("second run inserted rows: got %d", len(store.rows))
	}
	if analyzer.calls != analyzedOnce {
		t.Fatalf("second run re-analyzed duplicates: %d calls", analyzer.calls-analyzedOnce)
	}
}

func TestFailedEntryDoesNotBlockSiblings(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	poller := &fakePoller{entries: map[string][]domain.FeedEntry{
		"src": {
			entryAt("http://a/1", now.Add(-time.Hour)),
			entryAt("http://a/2", now.Add(-2*time.Hour)),
			entryAt("http://a/3", now.Add(-3*time.Hour)),
		},
	}}
	extractor := &fakeExtractor{fail: map[string]error{
		"http://a/2": errors.New("boom"),
	}}
	store := newMemStore()

	p := newTestPipeline(poller, extractor, &fakeAnalyzer{}, store,
		[]domain.Source{{Name: "src"}}, now, 5)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(store.rows) != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", len(store.rows))
	}
	if _, ok := store.rows["http://a/2"]; ok {
		t.Fatalf("failed entry must not produce a row")
	}
}

func TestPollFailureSkipsSourceOnly(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	poller := &fakePoller{
		entries: map[string][]domain.FeedEntry{
			"good": {entryAt("http://b/1", now.Add(-time.Hour))},
		},
		errs: map[string]error{"bad": errors.New("connection refused")},
	}
	store := newMemStore()

	p := newTestPipeline(poller, &fakeExtractor{}, &fakeAnalyzer{}, store,
		[]domain.Source{{Name: "bad"}, {Name: "good"}}, now, 5)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if _, ok := store.rows["http://b/1"]; !ok {
		t.Fatalf("healthy source was not processed after a failing one")
	}
}

func TestDuplicateDoesNotConsumeCap(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	var entries []domain.FeedEntry
	for i := 0; i < 6; i++ {
		entries = append(entries, entryAt(fmt.Sprintf("http://a/%d", i), now.Add(-time.Duration(i)*time.Hour)))
	}
	poller := &fakePoller{entries: map[string][]domain.FeedEntry{"src": entries}}

	store := newMemStore()
	store.rows["http://a/0"] = domain.Article{URL: "http://a/0"}

	p := newTestPipeline(poller, &fakeExtractor{}, &fakeAnalyzer{}, store,
		[]domain.Source{{Name: "src"}}, now, 5)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// The pre-seeded duplicate is skipped without counting, so all five
	// remaining fresh entries fit under the cap.
	if len(store.rows) != 6 {
		t.Fatalf("expected 6 total rows, got %d", len(store.rows))
	}
}

func TestStopAtFirstStale(t *testing.T) {
	t.Parallel()

	cutoff := time.Date(2025, time.June, 7, 12, 0, 0, 0, time.UTC)

	fresh := entryAt("http://a/1", cutoff.Add(time.Minute))
	stale := entryAt("http://a/2", cutoff.Add(-time.Minute))
	dateless := entryAt("http://a/3", time.Unix(0, 0).UTC())

	if StopAtFirstStale(fresh, cutoff) {
		t.Fatalf("fresh entry flagged stale")
	}
	if !StopAtFirstStale(stale, cutoff) {
		t.Fatalf("stale entry not flagged")
	}
	if !StopAtFirstStale(dateless, cutoff) {
		t.Fatalf("epoch-sentinel entry must be treated as stale")
	}
}
