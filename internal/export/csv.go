package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/booklytics/bookscraper/internal/models"
)

// Header matches the normalized record's field names; the presentation
// collaborator relies on this exact order.
var Header = []string{
	"title",
	"price",
	"price_excl_tax",
	"price_incl_tax",
	"tax",
	"rating",
	"availability",
	"upc",
	"product_type",
	"num_reviews",
	"description",
}

// WriteCSV serializes the normalized collection, one row per record,
// preceded by the header row.
func WriteCSV(w io.Writer, books []models.Book) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, b := range books {
		row := []string{
			b.Title,
			formatPrice(b.Price),
			formatPrice(b.PriceExclTax),
			formatPrice(b.PriceInclTax),
			formatPrice(b.Tax),
			strconv.Itoa(b.Rating),
			strconv.Itoa(b.Availability),
			b.UPC,
			b.ProductType,
			strconv.Itoa(b.NumReviews),
			b.Description,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
