package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/booklytics/bookscraper/internal/models"
)

// DefaultDescription fills records whose detail page had no
// meta-description, matching the sentinel the collaborators expect.
const DefaultDescription = "No description"

const fallbackRating = 3

var ratingWords = map[string]int{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

var (
	currencyStrip    = regexp.MustCompile(`[^\d.]`)
	availabilityExpr = regexp.MustCompile(`\((\d+) available\)`)
)

// ValidationError reports a record a strict-mode run refused to repair.
type ValidationError struct {
	Title string `json:"title"`
	Field string `json:"field"`
	Value string `json:"value"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %q: cannot coerce %s value %q", e.Title, e.Field, e.Value)
}

// Options control the documented fallback behaviors. Strict turns the
// silent defaults for unrecognized ratings and digit-free currency
// fields into per-record validation failures; the default is lenient,
// matching the source site's loose markup.
type Options struct {
	Strict bool
}

// Report counts what normalization repaired or dropped. Non-fatal
// fallbacks are surfaced here, never silently absorbed.
type Report struct {
	Input                 int                `json:"input"`
	Output                int                `json:"output"`
	DroppedIncomplete     int                `json:"dropped_incomplete"`
	DroppedDuplicates     int                `json:"dropped_duplicates"`
	DroppedInvalid        int                `json:"dropped_invalid"`
	RatingFallbacks       int                `json:"rating_fallbacks"`
	AvailabilityFallbacks int                `json:"availability_fallbacks"`
	Errors                []*ValidationError `json:"errors,omitempty"`
}

// Normalizer converts raw scraped records into the typed collection.
// It is pure and deterministic: no I/O, same input, same output.
type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// Normalize runs the cleaning steps over the raw collection in order:
// required-field filter, default fill, exact-duplicate collapse, then
// per-field coercion. Survivors keep their relative order.
func (n *Normalizer) Normalize(raw []models.RawBook) ([]models.Book, Report) {
	report := Report{Input: len(raw)}

	filled := make([]models.RawBook, 0, len(raw))
	for _, r := range raw {
		if len(r.Validate()) > 0 {
			report.DroppedIncomplete++
			continue
		}
		filled = append(filled, fillDefaults(r))
	}

	deduped := collapseDuplicates(filled, &report)

	books := make([]models.Book, 0, len(deduped))
	for _, r := range deduped {
		book, err := n.coerce(r, &report)
		if err != nil {
			report.DroppedInvalid++
			report.Errors = append(report.Errors, err)
			continue
		}
		books = append(books, book)
	}

	report.Output = len(books)
	return books, report
}

func fillDefaults(r models.RawBook) models.RawBook {
	if r.Description == "" {
		r.Description = DefaultDescription
	}
	if r.NumReviewsText == "" {
		r.NumReviewsText = "0"
	}
	return r
}

// collapseDuplicates removes records field-wise identical to an earlier
// one, keeping the first occurrence. RawBook has no reference fields,
// so the struct itself is a usable map key.
func collapseDuplicates(in []models.RawBook, report *Report) []models.RawBook {
	seen := make(map[models.RawBook]struct{}, len(in))
	out := make([]models.RawBook, 0, len(in))
	for _, r := range in {
		if _, dup := seen[r]; dup {
			report.DroppedDuplicates++
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func (n *Normalizer) coerce(r models.RawBook, report *Report) (models.Book, *ValidationError) {
	book := models.Book{
		Title:       r.Title,
		UPC:         r.UPC,
		ProductType: r.ProductType,
		Description: strings.TrimSpace(r.Description),
	}

	currencies := []struct {
		field string
		text  string
		dst   *float64
	}{
		{"price", r.PriceText, &book.Price},
		{"price_excl_tax", r.PriceExclTaxText, &book.PriceExclTax},
		{"price_incl_tax", r.PriceInclTaxText, &book.PriceInclTax},
		{"tax", r.TaxText, &book.Tax},
	}
	for _, c := range currencies {
		val, ok := ParseCurrency(c.text)
		if !ok && n.opts.Strict && c.field == "price" {
			// Listing-mandatory field; the detail currency fields are
			// legitimately empty when the detail fetch failed.
			return book, &ValidationError{Title: r.Title, Field: c.field, Value: c.text}
		}
		*c.dst = val
	}

	rating, known := ratingWords[r.RatingLabel]
	if !known {
		if n.opts.Strict {
			return book, &ValidationError{Title: r.Title, Field: "rating", Value: r.RatingLabel}
		}
		rating = fallbackRating
		report.RatingFallbacks++
	}
	book.Rating = rating

	count, ok := ParseAvailability(r.AvailabilityText)
	if !ok {
		report.AvailabilityFallbacks++
	}
	book.Availability = count

	if reviews, err := strconv.Atoi(strings.TrimSpace(r.NumReviewsText)); err == nil && reviews >= 0 {
		book.NumReviews = reviews
	}

	return book, nil
}

// ParseCurrency strips every character that is not a digit or decimal
// point and parses the remainder as a non-negative decimal. A field
// with no digits yields 0 and ok=false; detail fields are expected to
// be empty for items whose detail fetch failed.
func ParseCurrency(text string) (float64, bool) {
	cleaned := currencyStrip.ReplaceAllString(text, "")
	if cleaned == "" || !strings.ContainsAny(cleaned, "0123456789") {
		return 0, false
	}
	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || val < 0 {
		return 0, false
	}
	return val, true
}

// ParseAvailability reads the catalog's two availability forms:
// "In stock (N available)" yields N, a bare in/out-of-stock phrase
// yields 1 or 0. Anything else yields 0 with ok=false so the caller
// can record the diagnostic.
func ParseAvailability(text string) (int, bool) {
	if m := availabilityExpr.FindStringSubmatch(text); m != nil {
		count, err := strconv.Atoi(m[1])
		if err == nil && count >= 0 {
			return count, true
		}
		return 0, false
	}
	switch {
	case strings.Contains(text, "In stock"):
		return 1, true
	case strings.Contains(text, "Out of stock"):
		return 0, true
	}
	return 0, false
}
