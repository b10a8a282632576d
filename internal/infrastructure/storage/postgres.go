package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// uniqueViolation is the Postgres error code raised on a duplicate key.
const uniqueViolation = pq.ErrorCode("23505")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists analyzed articles and serves the read surface the
// downstream digest generator depends on.
type PostgresStore struct {
	db *sqlx.DB
}

var _ ports.ArticleStore = (*PostgresStore)(nil)
var _ ports.DigestReader = (*PostgresStore)(nil)

type dbArticle struct {
	URL         string         `db:"url"`
	Title       string         `db:"title"`
	SourceName  string         `db:"source_name"`
	PublishedAt time.Time      `db:"published_at"`
	Summary     sql.NullString `db:"summary"`
	Innovation  sql.NullString `db:"innovation"`
	Impact      sql.NullString `db:"impact"`
	Future      sql.NullString `db:"future"`
	KeyInfo     sql.NullString `db:"key_info"`
	Category    sql.NullString `db:"category"`
	CreatedAt   time.Time      `db:"created_at"`
}

type dbSubscriber struct {
	Email        string    `db:"email"`
	SubscribedAt time.Time `db:"subscribed_at"`
}

// NewPostgresStore wires an sqlx connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the articles and subscribers tables when absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id SERIAL PRIMARY KEY,
			url TEXT UNIQUE,
			title TEXT,
			source_name TEXT,
			published_at TIMESTAMPTZ,
			summary TEXT,
			innovation TEXT,
			impact TEXT,
			future TEXT,
			key_info TEXT,
			category TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS subscribers (
			id SERIAL PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			subscribed_at TIMESTAMPTZ DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}

// Exists is the point lookup used for dedup before any network work.
func (s *PostgresStore) Exists(ctx context.Context, url string) (bool, error) {
	query, args, err := psql.Select("1").
		From("articles").
		Where(sq.Eq{"url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	if err := s.db.GetContext(ctx, &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query exists: %w", err)
	}

	return true, nil
}

// Insert commits one article in its own implicit transaction. A unique
// violation on url maps to domain.Duplicate; prior data stays untouched.
func (s *PostgresStore) Insert(ctx context.Context, article domain.Article) (domain.InsertOutcome, error) {
	keyInfo, err := json.Marshal(article.Analysis.KeyInfo)
	if err != nil {
		return 0, fmt.Errorf("serialize key_info: %w", err)
	}

	query, args, err := psql.Insert("articles").
		Columns("url", "title", "source_name", "published_at",
			"summary", "innovation", "impact", "future", "key_info", "category").
		Values(article.URL, article.Title, article.SourceName, article.PublishedAt,
			article.Analysis.Summary, article.Analysis.Innovation,
			article.Analysis.Impact, article.Analysis.Future,
			string(keyInfo), string(article.Analysis.Category)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return domain.Duplicate, nil
		}
		return 0, fmt.Errorf("insert article: %w", err)
	}

	return domain.Inserted, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// RecentArticles returns rows created since the given instant, grouped by
// category and newest-first inside each group. This is the query the
// digest generator filters with created_at >= now - 1 day.
func (s *PostgresStore) RecentArticles(ctx context.Context, since time.Time) ([]domain.Article, error) {
	query, args, err := psql.Select("url", "title", "source_name", "published_at",
		"summary", "innovation", "impact", "future", "key_info", "category", "created_at").
		From("articles").
		Where(sq.GtOrEq{"created_at": since}).
		OrderBy("category", "published_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	var rows []dbArticle
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query recent articles: %w", err)
	}

	return lo.Map(rows, func(row dbArticle, _ int) domain.Article {
		return toDomainArticle(row)
	}), nil
}

// Subscribers lists the digest recipients, oldest subscription first.
func (s *PostgresStore) Subscribers(ctx context.Context) ([]domain.Subscriber, error) {
	query, args, err := psql.Select("email", "subscribed_at").
		From("subscribers").
		OrderBy("subscribed_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build subscribers query: %w", err)
	}

	var rows []dbSubscriber
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}

	return lo.Map(rows, func(row dbSubscriber, _ int) domain.Subscriber {
		return domain.Subscriber{Email: row.Email, SubscribedAt: row.SubscribedAt}
	}), nil
}

func toDomainArticle(row dbArticle) domain.Article {
	var keyInfo []string
	if row.KeyInfo.Valid && row.KeyInfo.String != "" {
		// Rows written by older runs may carry malformed key_info; an
		// empty list is the readable fallback.
		_ = json.Unmarshal([]byte(row.KeyInfo.String), &keyInfo)
	}

	return domain.Article{
		URL:         row.URL,
		Title:       row.Title,
		SourceName:  row.SourceName,
		PublishedAt: row.PublishedAt,
		CreatedAt:   row.CreatedAt,
		Analysis: domain.Analysis{
			Summary:    row.Summary.String,
			Innovation: row.Innovation.String,
			Impact:     row.Impact.String,
			Future:     row.Future.String,
			KeyInfo:    keyInfo,
			Category:   domain.Category(row.Category.String),
		},
	}
}
