package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/booklytics/bookscraper/internal/config"
	"github.com/booklytics/bookscraper/internal/crawler"
	"github.com/booklytics/bookscraper/internal/export"
	"github.com/booklytics/bookscraper/internal/fetcher"
	"github.com/booklytics/bookscraper/internal/models"
	"github.com/booklytics/bookscraper/internal/normalize"
	"github.com/booklytics/bookscraper/internal/ratelimit"
	"github.com/booklytics/bookscraper/internal/stats"
)

// One-shot catalog crawl: scrape, normalize, print the aggregate
// summary and optionally write the collection as CSV.
func main() {
	pages := flag.Int("pages", 0, "listing pages to crawl (default from config)")
	output := flag.String("o", "", "write the normalized collection as CSV to this file")
	strict := flag.Bool("strict", false, "fail records with unparseable rating or price")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *pages <= 0 {
		*pages = cfg.Catalog.Pages
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gate := ratelimit.NewGate(cfg.Scraper.MinDelay)
	httpClient := &http.Client{Timeout: cfg.Scraper.Timeout}
	f := fetcher.New(httpClient, gate, fetcher.Options{
		MaxRetries: cfg.Scraper.MaxRetries,
		UserAgent:  cfg.Scraper.UserAgent,
	}, logger)

	c, err := crawler.New(f, crawler.Options{
		BaseURL:       cfg.Catalog.BaseURL,
		DetailWorkers: cfg.Scraper.DetailWorkers,
	}, logger)
	if err != nil {
		logger.Error("failed to build crawler", "error", err)
		os.Exit(1)
	}

	result, err := c.Run(ctx, *pages)
	if err != nil {
		logger.Error("crawl failed", "error", err)
		os.Exit(1)
	}
	if result.Interrupted {
		logger.Warn("crawl interrupted, reporting partial results")
	}

	books, report := normalize.New(normalize.Options{Strict: *strict || cfg.Scraper.Strict}).
		Normalize(result.Books)
	summary := stats.Compute(books)

	printSummary(result.RunID, report, summary, result.DetailFailures)

	if *output != "" {
		if err := writeCSVFile(*output, books); err != nil {
			logger.Error("csv export failed", "error", err)
			os.Exit(1)
		}
		logger.Info("collection written", "path", *output, "books", len(books))
	}
}

func printSummary(runID string, report normalize.Report, summary stats.Summary, detailFailures int) {
	fmt.Printf("run %s\n", runID)
	fmt.Printf("  scraped          %d\n", report.Input)
	fmt.Printf("  normalized       %d\n", report.Output)
	fmt.Printf("  detail failures  %d\n", detailFailures)
	if dropped := report.Input - report.Output; dropped > 0 {
		fmt.Printf("  dropped          %d (incomplete %d, duplicate %d, invalid %d)\n",
			dropped, report.DroppedIncomplete, report.DroppedDuplicates, report.DroppedInvalid)
	}
	if !summary.PriceStatsDefined {
		fmt.Println("  no priced books")
		return
	}
	fmt.Printf("  price            avg %.2f, min %.2f, max %.2f\n",
		summary.AveragePrice, summary.MinPrice, summary.MaxPrice)
	fmt.Printf("  availability     %d copies\n", summary.TotalAvailability)
	for rating := 1; rating <= 5; rating++ {
		line := fmt.Sprintf("  %d-star          %d", rating, summary.RatingCounts[rating])
		if avg, ok := summary.AvgPriceByRating[rating]; ok {
			line += fmt.Sprintf(" (avg price %.2f)", avg)
		}
		fmt.Println(line)
	}
}

func writeCSVFile(path string, books []models.Book) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(file, books); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
