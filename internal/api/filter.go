package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/booklytics/bookscraper/internal/database"
)

func parseBookFilter(q url.Values) (database.BookFilter, error) {
	var filter database.BookFilter

	if v := q.Get("min_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, fmt.Errorf("min_price must be a number")
		}
		filter.MinPrice = &p
	}

	if v := q.Get("max_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, fmt.Errorf("max_price must be a number")
		}
		filter.MaxPrice = &p
	}

	for _, v := range q["rating"] {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 5 {
			return filter, fmt.Errorf("rating must be an integer between 1 and 5")
		}
		filter.Ratings = append(filter.Ratings, n)
	}

	return filter, nil
}
