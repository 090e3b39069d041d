package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Detail holds the extended attribute set of one item's detail page.
// HasDescription distinguishes an absent meta tag from an empty one.
type Detail struct {
	UPC            string
	ProductType    string
	PriceExclTax   string
	PriceInclTax   string
	Tax            string
	NumReviews     string
	Description    string
	HasDescription bool
}

// The six labeled table rows every valid detail page carries. Labels
// must match the header cell text exactly.
const (
	rowUPC          = "UPC"
	rowProductType  = "Product Type"
	rowPriceExclTax = "Price (excl. tax)"
	rowPriceInclTax = "Price (incl. tax)"
	rowTax          = "Tax"
	rowNumReviews   = "Number of reviews"
)

// ParseDetail extracts the mandatory table rows and the optional
// meta-description from a detail page. A missing table row fails the
// whole page; a missing description does not.
func (p *CatalogParser) ParseDetail(doc *goquery.Document, detailURL string) (*Detail, error) {
	d := &Detail{}

	fields := []struct {
		label string
		dst   *string
	}{
		{rowUPC, &d.UPC},
		{rowProductType, &d.ProductType},
		{rowPriceExclTax, &d.PriceExclTax},
		{rowPriceInclTax, &d.PriceInclTax},
		{rowTax, &d.Tax},
		{rowNumReviews, &d.NumReviews},
	}
	for _, f := range fields {
		val, err := labeledCell(doc.Selection, f.label)
		if err != nil {
			return nil, &ParseError{URL: detailURL, Err: err}
		}
		*f.dst = val
	}

	if content, exists := doc.Find(`meta[name="description"]`).Attr("content"); exists {
		d.Description = strings.TrimSpace(content)
		d.HasDescription = true
	}

	return d, nil
}
