package domain

import "time"

// FeedEntry is a normalized feed item before it becomes an Article.
// Entries are transient: converted into an Article on successful analysis
// or discarded as stale/duplicate/failed.
type FeedEntry struct {
	Title       string
	Link        string
	SourceName  string
	PublishedAt time.Time
}

// Source names one configured feed endpoint.
type Source struct {
	Name    string
	FeedURL string
}

// Category is the closed set of labels the analyzer may assign.
type Category string

const (
	CategoryModelRelease    Category = "New Model Release"
	CategoryResearchPaper   Category = "New Research Paper"
	CategoryIndustryNews    Category = "Industry News"
	CategoryEthicalAnalysis Category = "Ethical Analysis"
	CategoryCommunityUpdate Category = "Community Update"
)

// Categories lists every known label, in digest display order.
func Categories() []Category {
	return []Category{
		CategoryResearchPaper,
		CategoryModelRelease,
		CategoryIndustryNews,
		CategoryEthicalAnalysis,
		CategoryCommunityUpdate,
	}
}

// Known reports whether the category is one of the enumerated values.
// Unknown labels are still persisted; callers flag them as a
// data-quality defect.
func (c Category) Known() bool {
	switch c {
	case CategoryModelRelease, CategoryResearchPaper, CategoryIndustryNews,
		CategoryEthicalAnalysis, CategoryCommunityUpdate:
		return true
	}
	return false
}

// Analysis is the structured summary produced for one article.
type Analysis struct {
	Summary    string
	Innovation string
	Impact     string
	Future     string
	KeyInfo    []string
	Category   Category
}

// Article is the persisted record: feed metadata plus its Analysis.
// Created exactly once at successful analysis+insert, never mutated.
type Article struct {
	URL         string
	Title       string
	SourceName  string
	PublishedAt time.Time
	Analysis    Analysis
	CreatedAt   time.Time
}

// Subscriber is owned by the excluded web components; the core only
// exposes it as a read dependency of the digest sender.
type Subscriber struct {
	Email        string
	SubscribedAt time.Time
}

// InsertOutcome distinguishes a fresh insert from a unique-key conflict
// so callers never match on database error classes.
type InsertOutcome int

const (
	// Inserted means a new row was committed.
	Inserted InsertOutcome = iota
	// Duplicate means the URL already existed; prior data is untouched.
	Duplicate
)
