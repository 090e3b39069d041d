package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/booklytics/bookscraper/internal/ratelimit"
)

const defaultUserAgent = "bookscraper/1.0"

// FetchError reports a request that failed after the retry policy was
// exhausted, or a non-retryable response. StatusCode is zero for
// transport failures.
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempt(s)", e.URL, e.Err, e.Attempts)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Options struct {
	MaxRetries int           // attempts per URL, default 3
	Backoff    time.Duration // first retry delay, doubles per attempt; defaults to the limiter's delay
	UserAgent  string
}

// Fetcher retrieves catalog pages as parsed documents. Every request
// passes the shared politeness gate first; transient failures
// (transport errors, timeouts, 5xx) are retried with exponential
// backoff, 4xx responses are surfaced immediately.
type Fetcher struct {
	client  *http.Client
	limiter ratelimit.Limiter
	opts    Options
	logger  *slog.Logger
}

func New(client *http.Client, limiter ratelimit.Limiter, opts Options, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		// The politeness delay is the backoff base; fall back to the
		// default delay when the limiter has none to report.
		if d, ok := limiter.(interface{ Delay() time.Duration }); ok && d.Delay() > 0 {
			opts.Backoff = d.Delay()
		} else {
			opts.Backoff = 500 * time.Millisecond
		}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Fetcher{
		client:  client,
		limiter: limiter,
		opts:    opts,
		logger:  logger.With("component", "fetcher"),
	}
}

// Get fetches pageURL and parses the response body. The error is a
// *FetchError unless the context was cancelled.
func (f *Fetcher) Get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	backoff := f.opts.Backoff

	for attempt := 1; ; attempt++ {
		doc, retryable, err := f.fetchOnce(ctx, pageURL)
		if err == nil {
			return doc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			fetchErr.Attempts = attempt
		}
		if !retryable || attempt >= f.opts.MaxRetries {
			return nil, err
		}

		f.logger.Warn("retrying fetch", "url", pageURL, "attempt", attempt, "backoff", backoff, "error", err)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (doc *goquery.Document, retryable bool, err error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	defer f.limiter.Done()

	// Cancellation stops new requests at the gate and between retries;
	// a request already on the wire finishes or hits the client timeout.
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false, &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Fall through to parsing.
	case resp.StatusCode >= 500:
		return nil, true, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	default:
		return nil, false, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	doc, err = goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, false, &FetchError{URL: pageURL, Err: fmt.Errorf("read body: %w", err)}
	}

	return doc, false, nil
}
