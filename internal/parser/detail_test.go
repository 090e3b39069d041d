package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailPage = `
<html>
<head>
  <meta name="description" content="
    It's hard to imagine a world without A Light in the Attic.
" />
</head>
<body>
<article class="product_page">
  <table class="table table-striped">
    <tr><th>UPC</th><td>a897fe39b1053632</td></tr>
    <tr><th>Product Type</th><td>Books</td></tr>
    <tr><th>Price (excl. tax)</th><td>£51.77</td></tr>
    <tr><th>Price (incl. tax)</th><td>£51.77</td></tr>
    <tr><th>Tax</th><td>£0.00</td></tr>
    <tr><th>Availability</th><td>In stock (22 available)</td></tr>
    <tr><th>Number of reviews</th><td>0</td></tr>
  </table>
</article>
</body></html>`

func TestParseDetail(t *testing.T) {
	p := NewCatalogParser()

	d, err := p.ParseDetail(mustDoc(t, detailPage), "http://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html")
	require.NoError(t, err)

	assert.Equal(t, "a897fe39b1053632", d.UPC)
	assert.Equal(t, "Books", d.ProductType)
	assert.Equal(t, "£51.77", d.PriceExclTax)
	assert.Equal(t, "£51.77", d.PriceInclTax)
	assert.Equal(t, "£0.00", d.Tax)
	assert.Equal(t, "0", d.NumReviews)
	assert.True(t, d.HasDescription)
	assert.Equal(t, "It's hard to imagine a world without A Light in the Attic.", d.Description)
}

func TestParseDetailMissingMandatoryRow(t *testing.T) {
	rows := map[string]string{
		"UPC":               `<tr><th>UPC</th><td>a897fe39b1053632</td></tr>`,
		"Product Type":      `<tr><th>Product Type</th><td>Books</td></tr>`,
		"Price (excl. tax)": `<tr><th>Price (excl. tax)</th><td>£51.77</td></tr>`,
		"Price (incl. tax)": `<tr><th>Price (incl. tax)</th><td>£51.77</td></tr>`,
		"Tax":               `<tr><th>Tax</th><td>£0.00</td></tr>`,
		"Number of reviews": `<tr><th>Number of reviews</th><td>0</td></tr>`,
	}

	p := NewCatalogParser()

	for missing := range rows {
		t.Run("without "+missing, func(t *testing.T) {
			html := `<table>`
			for label, row := range rows {
				if label != missing {
					html += row
				}
			}
			html += `</table>`

			_, err := p.ParseDetail(mustDoc(t, html), "http://example.test/item")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFieldMissing)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, "http://example.test/item", parseErr.URL)
		})
	}
}

func TestParseDetailHeaderMatchIsCaseSensitive(t *testing.T) {
	html := `<table>
		<tr><th>upc</th><td>lowercase-header</td></tr>
		<tr><th>Product Type</th><td>Books</td></tr>
		<tr><th>Price (excl. tax)</th><td>£1.00</td></tr>
		<tr><th>Price (incl. tax)</th><td>£1.00</td></tr>
		<tr><th>Tax</th><td>£0.00</td></tr>
		<tr><th>Number of reviews</th><td>1</td></tr>
	</table>`

	p := NewCatalogParser()
	_, err := p.ParseDetail(mustDoc(t, html), "http://example.test/item")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFieldMissing)
	assert.Contains(t, err.Error(), `"UPC"`)
}

func TestParseDetailMissingDescriptionIsNotFatal(t *testing.T) {
	html := `<table>
		<tr><th>UPC</th><td>x</td></tr>
		<tr><th>Product Type</th><td>Books</td></tr>
		<tr><th>Price (excl. tax)</th><td>£1.00</td></tr>
		<tr><th>Price (incl. tax)</th><td>£1.00</td></tr>
		<tr><th>Tax</th><td>£0.00</td></tr>
		<tr><th>Number of reviews</th><td>1</td></tr>
	</table>`

	p := NewCatalogParser()
	d, err := p.ParseDetail(mustDoc(t, html), "http://example.test/item")
	require.NoError(t, err)
	assert.False(t, d.HasDescription)
	assert.Empty(t, d.Description)
}

func TestLabeledCellExactMatchOnly(t *testing.T) {
	tests := []struct {
		label   string
		wantVal string
		wantErr bool
	}{
		{label: "Tax", wantVal: "£0.62"},
		{label: "Price (incl. tax)", wantVal: "£20.66"},
		{label: "tax", wantErr: true},
		{label: "Price", wantErr: true},
	}

	html := `<table>
		<tr><th>Price (incl. tax)</th><td>£20.66</td></tr>
		<tr><th>Tax</th><td>£0.62</td></tr>
	</table>`
	doc := mustDoc(t, html)

	for _, tt := range tests {
		t.Run(fmt.Sprintf("label %q", tt.label), func(t *testing.T) {
			val, err := labeledCell(doc.Selection, tt.label)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrFieldMissing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVal, val)
		})
	}
}
