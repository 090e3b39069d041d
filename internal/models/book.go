package models

import (
	"time"
)

// RawBook holds one catalog item exactly as scraped, before cleaning.
// Title, PriceText and RatingLabel come from the listing page and are
// always set; the remaining fields are filled by the detail fetch and
// stay empty when that fetch fails.
type RawBook struct {
	Title            string `json:"title"`
	PriceText        string `json:"price_text"`
	RatingLabel      string `json:"rating_label"`
	AvailabilityText string `json:"availability_text"`
	DetailURL        string `json:"detail_url"`

	UPC              string `json:"upc,omitempty"`
	ProductType      string `json:"product_type,omitempty"`
	PriceExclTaxText string `json:"price_excl_tax_text,omitempty"`
	PriceInclTaxText string `json:"price_incl_tax_text,omitempty"`
	TaxText          string `json:"tax_text,omitempty"`
	NumReviewsText   string `json:"num_reviews_text,omitempty"`
	Description      string `json:"description,omitempty"`

	HasDetail bool `json:"has_detail"`
}

// Book is the cleaned, typed record consumed by the aggregator and by
// the persistence and presentation collaborators.
type Book struct {
	Title        string  `json:"title"`
	Price        float64 `json:"price"`
	PriceExclTax float64 `json:"price_excl_tax"`
	PriceInclTax float64 `json:"price_incl_tax"`
	Tax          float64 `json:"tax"`
	Rating       int     `json:"rating"`
	Availability int     `json:"availability"`
	UPC          string  `json:"upc"`
	ProductType  string  `json:"product_type"`
	NumReviews   int     `json:"num_reviews"`
	Description  string  `json:"description"`
}

// CrawlResult is the immutable outcome of one crawl run. A fresh run
// produces a fresh result; the core never merges across runs.
type CrawlResult struct {
	RunID          string    `json:"run_id"`
	BaseURL        string    `json:"base_url"`
	Pages          int       `json:"pages"`
	Books          []RawBook `json:"books"`
	DetailFailures int       `json:"detail_failures"`
	Interrupted    bool      `json:"interrupted"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

func (r *CrawlResult) HasWarnings() bool {
	return r.DetailFailures > 0
}

// Validate reports what keeps a raw record from being normalized. The
// listing stage guarantees these three fields; anything else has a
// documented default.
func (b *RawBook) Validate() []string {
	var problems []string
	if b.Title == "" {
		problems = append(problems, "title is required")
	}
	if b.PriceText == "" {
		problems = append(problems, "price text is required")
	}
	if b.RatingLabel == "" {
		problems = append(problems, "rating label is required")
	}
	return problems
}
