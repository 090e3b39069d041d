package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrFieldMissing marks an expected field that is absent from the page.
// A schema change on the source site must surface as this error instead
// of being absorbed as empty data.
var ErrFieldMissing = errors.New("expected field missing")

// ParseError reports a page whose structure does not match the catalog.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// attrOf extracts a named attribute from the first match of selector.
func attrOf(s *goquery.Selection, selector, attr string) (string, error) {
	val, exists := s.Find(selector).First().Attr(attr)
	if !exists {
		return "", fmt.Errorf("%w: attribute %q on %q", ErrFieldMissing, attr, selector)
	}
	return val, nil
}

// textOf extracts the trimmed text of the first match of selector.
func textOf(s *goquery.Selection, selector string) (string, error) {
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %q", ErrFieldMissing, selector)
	}
	return strings.TrimSpace(sel.Text()), nil
}

// labeledCell finds a header cell whose text equals label exactly
// (case-sensitive) and returns the text of the value cell following it.
func labeledCell(s *goquery.Selection, label string) (string, error) {
	var value string
	found := false
	s.Find("table tr th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		if strings.TrimSpace(th.Text()) != label {
			return true
		}
		td := th.Next()
		if td.Length() == 0 || !td.Is("td") {
			return true
		}
		value = strings.TrimSpace(td.Text())
		found = true
		return false
	})
	if !found {
		return "", fmt.Errorf("%w: table row %q", ErrFieldMissing, label)
	}
	return value, nil
}
