package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/booklytics/bookscraper/internal/models"
	"github.com/booklytics/bookscraper/internal/normalize"
	"github.com/booklytics/bookscraper/internal/stats"
)

// Runner drives one crawl; the crawler package provides the real one.
type Runner interface {
	Run(ctx context.Context, pages int) (*models.CrawlResult, error)
}

// ResultCache is consulted before a run and filled after a complete
// one. The pipeline itself stays a pure function of its inputs.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.CrawlResult, bool, error)
	Set(ctx context.Context, key string, result *models.CrawlResult) error
}

// RunStore persists a finished run; append-only.
type RunStore interface {
	SaveRun(ctx context.Context, result *models.CrawlResult, books []models.Book) error
}

// KeyFunc derives the cache key for a page count.
type KeyFunc func(pages int) string

// RunOutput bundles everything one crawl run produces. Statistics are
// recomputed from the collection every run, even on a cache hit.
type RunOutput struct {
	Result    *models.CrawlResult `json:"result"`
	Books     []models.Book       `json:"books"`
	Report    normalize.Report    `json:"report"`
	Summary   stats.Summary       `json:"summary"`
	FromCache bool                `json:"from_cache"`
}

// Service is the host around the crawl-normalize-aggregate core: it
// consults the cache, invokes the pipeline and hands the outcome to
// the persistence collaborator. Cache and store are optional.
type Service struct {
	runner     Runner
	normalizer *normalize.Normalizer
	cache      ResultCache
	cacheKey   KeyFunc
	store      RunStore
	logger     *slog.Logger
}

func NewService(runner Runner, normalizer *normalize.Normalizer, logger *slog.Logger) *Service {
	return &Service{
		runner:     runner,
		normalizer: normalizer,
		logger:     logger.With("component", "scraper_service"),
	}
}

func (s *Service) WithCache(cache ResultCache, key KeyFunc) *Service {
	s.cache = cache
	s.cacheKey = key
	return s
}

func (s *Service) WithStore(store RunStore) *Service {
	s.store = store
	return s
}

// Run executes one crawl for the requested page count and returns the
// normalized collection plus its statistics. Runs that completed with
// warnings are still persisted; the report carries the counts so the
// caller can decide what to do with them.
func (s *Service) Run(ctx context.Context, pages int) (*RunOutput, error) {
	result, fromCache, err := s.obtainResult(ctx, pages)
	if err != nil {
		return nil, err
	}

	books, report := s.normalizer.Normalize(result.Books)
	summary := stats.Compute(books)

	if result.HasWarnings() {
		s.logger.Warn("run completed with warnings",
			"run_id", result.RunID, "detail_failures", result.DetailFailures)
	}

	if s.store != nil && !fromCache {
		if err := s.store.SaveRun(ctx, result, books); err != nil {
			return nil, fmt.Errorf("persist run %s: %w", result.RunID, err)
		}
	}

	return &RunOutput{
		Result:    result,
		Books:     books,
		Report:    report,
		Summary:   summary,
		FromCache: fromCache,
	}, nil
}

func (s *Service) obtainResult(ctx context.Context, pages int) (*models.CrawlResult, bool, error) {
	var key string
	if s.cache != nil {
		key = s.cacheKey(pages)
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			// A broken cache never blocks a crawl.
			s.logger.Warn("cache lookup failed", "error", err)
		} else if ok {
			s.logger.Info("serving cached crawl result", "run_id", cached.RunID, "pages", pages)
			return cached, true, nil
		}
	}

	result, err := s.runner.Run(ctx, pages)
	if err != nil {
		return nil, false, err
	}

	// Interrupted runs are valid output but stay out of the cache.
	if s.cache != nil && !result.Interrupted {
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.logger.Warn("cache store failed", "error", err)
		}
	}

	return result, false, nil
}
