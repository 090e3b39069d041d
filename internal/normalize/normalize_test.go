package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklytics/bookscraper/internal/models"
)

func rawBook(title string) models.RawBook {
	return models.RawBook{
		Title:            title,
		PriceText:        "£51.77",
		RatingLabel:      "Three",
		AvailabilityText: "In stock (22 available)",
		DetailURL:        "http://books.toscrape.com/catalogue/x/index.html",
		UPC:              "a897fe39b1053632",
		ProductType:      "Books",
		PriceExclTaxText: "£51.77",
		PriceInclTaxText: "£51.77",
		TaxText:          "£0.00",
		NumReviewsText:   "4",
		Description:      "A fine book.",
		HasDetail:        true,
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		text   string
		want   float64
		wantOK bool
	}{
		{"£51.77", 51.77, true},
		{"51.77", 51.77, true}, // idempotent on already-clean input
		{"£0.00", 0.0, true},
		{"", 0.0, false},
		{"free", 0.0, false},
		{"  £ 20.66 ", 20.66, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseCurrency(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseAvailability(t *testing.T) {
	tests := []struct {
		text   string
		want   int
		wantOK bool
	}{
		{"In stock (22 available)", 22, true},
		{"In stock (1 available)", 1, true},
		{"In stock", 1, true},
		{"Out of stock", 0, true},
		{"Ships next week", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseAvailability(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNormalizeFullRecord(t *testing.T) {
	n := New(Options{})

	books, report := n.Normalize([]models.RawBook{rawBook("A Light in the Attic")})
	require.Len(t, books, 1)

	b := books[0]
	assert.Equal(t, "A Light in the Attic", b.Title)
	assert.InDelta(t, 51.77, b.Price, 1e-9)
	assert.InDelta(t, 51.77, b.PriceExclTax, 1e-9)
	assert.InDelta(t, 51.77, b.PriceInclTax, 1e-9)
	assert.InDelta(t, 0.0, b.Tax, 1e-9)
	assert.Equal(t, 3, b.Rating)
	assert.Equal(t, 22, b.Availability)
	assert.Equal(t, 4, b.NumReviews)
	assert.Equal(t, "A fine book.", b.Description)

	assert.Equal(t, 1, report.Input)
	assert.Equal(t, 1, report.Output)
	assert.Zero(t, report.RatingFallbacks)
}

func TestNormalizeDropsIncompleteRecords(t *testing.T) {
	noTitle := rawBook("")
	noPrice := rawBook("No Price")
	noPrice.PriceText = ""
	noRating := rawBook("No Rating")
	noRating.RatingLabel = ""

	n := New(Options{})
	books, report := n.Normalize([]models.RawBook{noTitle, noPrice, noRating, rawBook("Keeper")})

	require.Len(t, books, 1)
	assert.Equal(t, "Keeper", books[0].Title)
	assert.Equal(t, 3, report.DroppedIncomplete)
}

func TestNormalizeListingOnlyRecordGetsDefaults(t *testing.T) {
	r := models.RawBook{
		Title:            "Detail Fetch Failed",
		PriceText:        "£10.00",
		RatingLabel:      "Five",
		AvailabilityText: "In stock",
		DetailURL:        "http://books.toscrape.com/catalogue/y/index.html",
	}

	n := New(Options{})
	books, _ := n.Normalize([]models.RawBook{r})
	require.Len(t, books, 1)

	b := books[0]
	assert.Equal(t, DefaultDescription, b.Description)
	assert.Zero(t, b.NumReviews)
	assert.Zero(t, b.PriceExclTax)
	assert.Zero(t, b.PriceInclTax)
	assert.Zero(t, b.Tax)
	assert.InDelta(t, 10.0, b.Price, 1e-9)
	assert.Equal(t, 5, b.Rating)
	assert.Equal(t, 1, b.Availability)
}

func TestNormalizeCollapsesExactDuplicates(t *testing.T) {
	a := rawBook("Twin")
	b := rawBook("Twin")
	c := rawBook("Twin")
	c.Description = "Different description."

	n := New(Options{})
	books, report := n.Normalize([]models.RawBook{a, b, c})

	require.Len(t, books, 2, "records differing only in description are both retained")
	assert.Equal(t, 1, report.DroppedDuplicates)
	assert.Equal(t, "A fine book.", books[0].Description)
	assert.Equal(t, "Different description.", books[1].Description)
}

func TestNormalizeKeepsFirstOccurrenceOrder(t *testing.T) {
	first := rawBook("First")
	second := rawBook("Second")
	dupOfFirst := rawBook("First")

	n := New(Options{})
	books, _ := n.Normalize([]models.RawBook{first, second, dupOfFirst})

	require.Len(t, books, 2)
	assert.Equal(t, "First", books[0].Title)
	assert.Equal(t, "Second", books[1].Title)
}

func TestNormalizeRatingFallback(t *testing.T) {
	r := rawBook("Unrated")
	r.RatingLabel = "Zero"

	n := New(Options{})
	books, report := n.Normalize([]models.RawBook{r})

	require.Len(t, books, 1)
	assert.Equal(t, 3, books[0].Rating)
	assert.Equal(t, 1, report.RatingFallbacks)
}

func TestNormalizeRatingTable(t *testing.T) {
	words := map[string]int{"One": 1, "Two": 2, "Three": 3, "Four": 4, "Five": 5}
	n := New(Options{})

	for word, want := range words {
		r := rawBook(word)
		r.RatingLabel = word
		books, report := n.Normalize([]models.RawBook{r})
		require.Len(t, books, 1)
		assert.Equal(t, want, books[0].Rating)
		assert.Zero(t, report.RatingFallbacks)
	}
}

func TestNormalizeAvailabilityDiagnostic(t *testing.T) {
	r := rawBook("Odd Stock Phrase")
	r.AvailabilityText = "Maybe later"

	n := New(Options{})
	books, report := n.Normalize([]models.RawBook{r})

	require.Len(t, books, 1)
	assert.Zero(t, books[0].Availability)
	assert.Equal(t, 1, report.AvailabilityFallbacks)
}

func TestNormalizeStrictMode(t *testing.T) {
	badRating := rawBook("Bad Rating")
	badRating.RatingLabel = "Zero"
	badPrice := rawBook("Bad Price")
	badPrice.PriceText = "ask in store"
	good := rawBook("Good")

	n := New(Options{Strict: true})
	books, report := n.Normalize([]models.RawBook{badRating, badPrice, good})

	require.Len(t, books, 1)
	assert.Equal(t, "Good", books[0].Title)
	assert.Equal(t, 2, report.DroppedInvalid)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, "rating", report.Errors[0].Field)
	assert.Equal(t, "price", report.Errors[1].Field)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	input := []models.RawBook{rawBook("A"), rawBook("B"), rawBook("A")}

	n := New(Options{})
	first, _ := n.Normalize(input)
	second, _ := n.Normalize(input)

	assert.Equal(t, first, second)
}
