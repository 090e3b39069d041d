package database

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/booklytics/bookscraper/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const schema = `
CREATE TABLE IF NOT EXISTS crawl_runs (
	id              UUID PRIMARY KEY,
	base_url        TEXT NOT NULL,
	pages           INT NOT NULL,
	detail_failures INT NOT NULL DEFAULT 0,
	interrupted     BOOLEAN NOT NULL DEFAULT FALSE,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS books (
	id             BIGSERIAL PRIMARY KEY,
	run_id         UUID NOT NULL REFERENCES crawl_runs(id),
	position       INT NOT NULL,
	title          TEXT NOT NULL,
	price          DOUBLE PRECISION NOT NULL,
	price_excl_tax DOUBLE PRECISION NOT NULL,
	price_incl_tax DOUBLE PRECISION NOT NULL,
	tax            DOUBLE PRECISION NOT NULL,
	rating         INT NOT NULL,
	availability   INT NOT NULL,
	upc            TEXT NOT NULL DEFAULT '',
	product_type   TEXT NOT NULL DEFAULT '',
	num_reviews    INT NOT NULL DEFAULT 0,
	description    TEXT NOT NULL DEFAULT '',
	UNIQUE (run_id, position)
);`

// RunRecord is one persisted crawl run.
type RunRecord struct {
	ID             string    `json:"id"`
	BaseURL        string    `json:"base_url"`
	Pages          int       `json:"pages"`
	DetailFailures int       `json:"detail_failures"`
	Interrupted    bool      `json:"interrupted"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// BookFilter narrows ListBooks. Nil/empty fields are ignored.
type BookFilter struct {
	MinPrice *float64
	MaxPrice *float64
	Ratings  []int
}

// Repository persists crawl runs and their normalized books. Writes
// are append-only: re-running a crawl inserts a fresh run, it never
// dedupes against earlier ones.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun inserts the run header and its normalized books in one
// transaction, preserving catalog order in the position column.
func (r *Repository) SaveRun(ctx context.Context, result *models.CrawlResult, books []models.Book) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		runSQL, runArgs, err := psql.Insert("crawl_runs").
			Columns("id", "base_url", "pages", "detail_failures", "interrupted", "started_at", "finished_at").
			Values(result.RunID, result.BaseURL, result.Pages, result.DetailFailures,
				result.Interrupted, result.StartedAt, result.FinishedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build run insert: %w", err)
		}
		if _, err := tx.Exec(ctx, runSQL, runArgs...); err != nil {
			return fmt.Errorf("insert run %s: %w", result.RunID, err)
		}

		for i, b := range books {
			bookSQL, bookArgs, err := psql.Insert("books").
				Columns("run_id", "position", "title", "price", "price_excl_tax", "price_incl_tax",
					"tax", "rating", "availability", "upc", "product_type", "num_reviews", "description").
				Values(result.RunID, i, b.Title, b.Price, b.PriceExclTax, b.PriceInclTax,
					b.Tax, b.Rating, b.Availability, b.UPC, b.ProductType, b.NumReviews, b.Description).
				ToSql()
			if err != nil {
				return fmt.Errorf("build book insert: %w", err)
			}
			if _, err := tx.Exec(ctx, bookSQL, bookArgs...); err != nil {
				return fmt.Errorf("insert book %d of run %s: %w", i, result.RunID, err)
			}
		}

		return nil
	})
}

// ListRuns returns persisted runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit uint64) ([]RunRecord, error) {
	query := psql.Select("id", "base_url", "pages", "detail_failures", "interrupted", "started_at", "finished_at").
		From("crawl_runs").
		OrderBy("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	listSQL, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build runs query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		if err := rows.Scan(&run.ID, &run.BaseURL, &run.Pages, &run.DetailFailures,
			&run.Interrupted, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListBooks returns a run's books in catalog order, optionally
// filtered by price range and ratings.
func (r *Repository) ListBooks(ctx context.Context, runID string, filter BookFilter) ([]models.Book, error) {
	listSQL, args, err := buildBooksQuery(runID, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build books query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("list books of run %s: %w", runID, err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.Title, &b.Price, &b.PriceExclTax, &b.PriceInclTax, &b.Tax,
			&b.Rating, &b.Availability, &b.UPC, &b.ProductType, &b.NumReviews, &b.Description); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func buildBooksQuery(runID string, filter BookFilter) sq.SelectBuilder {
	query := psql.Select("title", "price", "price_excl_tax", "price_incl_tax", "tax",
		"rating", "availability", "upc", "product_type", "num_reviews", "description").
		From("books").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position")

	if filter.MinPrice != nil {
		query = query.Where(sq.GtOrEq{"price": *filter.MinPrice})
	}
	if filter.MaxPrice != nil {
		query = query.Where(sq.LtOrEq{"price": *filter.MaxPrice})
	}
	if len(filter.Ratings) > 0 {
		query = query.Where(sq.Eq{"rating": filter.Ratings})
	}
	return query
}
