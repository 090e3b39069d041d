package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/booklytics/bookscraper/internal/fetcher"
	"github.com/booklytics/bookscraper/internal/models"
	"github.com/booklytics/bookscraper/internal/parser"
)

type Options struct {
	BaseURL       string
	DetailWorkers int // concurrent detail fetches, default 2
}

// Crawler drives the catalog crawl: listing pages 1..N in order, then
// a bounded fan-out of detail fetches. The shared politeness gate
// inside the fetcher is the only serialization point; record positions
// are fixed at listing time, so the output keeps catalog order no
// matter when detail fetches complete.
type Crawler struct {
	fetcher *fetcher.Fetcher
	parser  *parser.CatalogParser
	baseURL *url.URL
	workers int
	logger  *slog.Logger
}

func New(f *fetcher.Fetcher, opts Options, logger *slog.Logger) (*Crawler, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base URL %q must be absolute", opts.BaseURL)
	}
	workers := opts.DetailWorkers
	if workers < 1 {
		workers = 2
	}
	return &Crawler{
		fetcher: f,
		parser:  parser.NewCatalogParser(),
		baseURL: base,
		workers: workers,
		logger:  logger.With("component", "crawler"),
	}, nil
}

// Run crawls the requested number of listing pages and their items'
// detail pages. A listing failure is fatal; a detail failure leaves
// that record listing-only and is counted in DetailFailures. On
// cancellation Run stops issuing requests and returns the partial
// result with Interrupted set.
func (c *Crawler) Run(ctx context.Context, pages int) (*models.CrawlResult, error) {
	if pages < 1 {
		return nil, fmt.Errorf("page count must be positive, got %d", pages)
	}

	result := &models.CrawlResult{
		RunID:     uuid.New().String(),
		BaseURL:   c.baseURL.String(),
		Pages:     pages,
		StartedAt: time.Now(),
	}
	c.logger.Info("crawl started", "run_id", result.RunID, "pages", pages)

	for page := 1; page <= pages; page++ {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		books, err := c.crawlListingPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				result.Interrupted = true
				break
			}
			// The page structure is load-bearing for every item on it.
			return nil, fmt.Errorf("listing page %d: %w", page, err)
		}
		result.Books = append(result.Books, books...)
		c.logger.Info("listing page crawled", "run_id", result.RunID, "page", page, "items", len(books))
	}

	failures := c.fetchDetails(ctx, result.Books)
	result.DetailFailures = int(failures)
	if ctx.Err() != nil {
		result.Interrupted = true
	}
	result.FinishedAt = time.Now()

	c.logger.Info("crawl finished",
		"run_id", result.RunID,
		"items", len(result.Books),
		"detail_failures", result.DetailFailures,
		"interrupted", result.Interrupted,
	)
	return result, nil
}

func (c *Crawler) crawlListingPage(ctx context.Context, page int) ([]models.RawBook, error) {
	ref := &url.URL{Path: fmt.Sprintf("catalogue/page-%d.html", page)}
	pageURL := c.baseURL.ResolveReference(ref)

	doc, err := c.fetcher.Get(ctx, pageURL.String())
	if err != nil {
		return nil, err
	}
	return c.parser.ParseListing(doc, pageURL)
}

// fetchDetails fans detail fetches out over the worker pool and merges
// each item's extended fields back by index.
func (c *Crawler) fetchDetails(ctx context.Context, books []models.RawBook) int32 {
	jobs := make(chan int)
	var failures atomic.Int32
	var wg sync.WaitGroup

	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := c.crawlDetail(ctx, &books[idx]); err != nil {
					if ctx.Err() != nil {
						continue
					}
					failures.Add(1)
					c.logger.Warn("detail fetch failed, keeping listing fields",
						"url", books[idx].DetailURL, "error", err)
				}
			}
		}()
	}

	for idx := range books {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return failures.Load()
}

func (c *Crawler) crawlDetail(ctx context.Context, book *models.RawBook) error {
	doc, err := c.fetcher.Get(ctx, book.DetailURL)
	if err != nil {
		return err
	}

	detail, err := c.parser.ParseDetail(doc, book.DetailURL)
	if err != nil {
		return err
	}

	book.UPC = detail.UPC
	book.ProductType = detail.ProductType
	book.PriceExclTaxText = detail.PriceExclTax
	book.PriceInclTaxText = detail.PriceInclTax
	book.TaxText = detail.Tax
	book.NumReviewsText = detail.NumReviews
	if detail.HasDescription {
		book.Description = detail.Description
	}
	book.HasDetail = true
	return nil
}
