package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/booklytics/bookscraper/internal/models"
)

const (
	itemCardSelector   = "article.product_pod"
	ratingClassKeyword = "star-rating"
)

// CatalogParser extracts typed fields from catalog listing and detail
// pages. The markup shape is fixed; any deviation surfaces as an error
// rather than as silently empty data.
type CatalogParser struct{}

func NewCatalogParser() *CatalogParser {
	return &CatalogParser{}
}

// ParseListing extracts the ordered item cards from one listing page.
// pageURL is the address the document was fetched from; relative detail
// hrefs are resolved against it. A page without any item card is a
// ParseError, since the card structure is load-bearing for every item.
func (p *CatalogParser) ParseListing(doc *goquery.Document, pageURL *url.URL) ([]models.RawBook, error) {
	cards := doc.Find(itemCardSelector)
	if cards.Length() == 0 {
		return nil, &ParseError{
			URL: pageURL.String(),
			Err: fmt.Errorf("%w: no %q elements", ErrFieldMissing, itemCardSelector),
		}
	}

	books := make([]models.RawBook, 0, cards.Length())
	var firstErr error
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		book, err := p.parseCard(card, pageURL)
		if err != nil {
			firstErr = &ParseError{URL: pageURL.String(), Err: fmt.Errorf("item %d: %w", i, err)}
			return false
		}
		books = append(books, book)
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}

	return books, nil
}

func (p *CatalogParser) parseCard(card *goquery.Selection, pageURL *url.URL) (models.RawBook, error) {
	var book models.RawBook

	title, err := attrOf(card, "h3 a", "title")
	if err != nil {
		return book, fmt.Errorf("title: %w", err)
	}

	price, err := textOf(card, "p.price_color")
	if err != nil {
		return book, fmt.Errorf("price: %w", err)
	}

	rating, err := p.ratingLabel(card)
	if err != nil {
		return book, fmt.Errorf("rating: %w", err)
	}

	availability, err := textOf(card, "p.availability")
	if err != nil {
		return book, fmt.Errorf("availability: %w", err)
	}

	href, err := attrOf(card, "h3 a", "href")
	if err != nil {
		return book, fmt.Errorf("detail link: %w", err)
	}
	detailURL, err := resolveHref(pageURL, href)
	if err != nil {
		return book, fmt.Errorf("detail link: %w", err)
	}

	book = models.RawBook{
		Title:            title,
		PriceText:        price,
		RatingLabel:      rating,
		AvailabilityText: availability,
		DetailURL:        detailURL,
	}
	return book, nil
}

// ratingLabel reads the word-form rating encoded as the second class
// token on the rating element, e.g. class="star-rating Three".
func (p *CatalogParser) ratingLabel(card *goquery.Selection) (string, error) {
	class, err := attrOf(card, "p.star-rating", "class")
	if err != nil {
		return "", err
	}
	tokens := strings.Fields(class)
	if len(tokens) < 2 || tokens[0] != ratingClassKeyword {
		return "", fmt.Errorf("%w: rating class token in %q", ErrFieldMissing, class)
	}
	return tokens[1], nil
}

func resolveHref(pageURL *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	return pageURL.ResolveReference(ref).String(), nil
}
