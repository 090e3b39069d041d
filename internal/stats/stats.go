package stats

import (
	"github.com/booklytics/bookscraper/internal/models"
)

// Summary holds the derived statistics over one normalized collection.
// Mean-based fields are only meaningful when PriceStatsDefined is set;
// an empty collection leaves them zero instead of NaN.
type Summary struct {
	Count             int             `json:"count"`
	AveragePrice      float64         `json:"average_price"`
	MaxPrice          float64         `json:"max_price"`
	MinPrice          float64         `json:"min_price"`
	PriceStatsDefined bool            `json:"price_stats_defined"`
	TotalAvailability int             `json:"total_availability"`
	RatingCounts      map[int]int     `json:"rating_counts"`
	AvgPriceByRating  map[int]float64 `json:"avg_price_by_rating"`
}

// Compute derives the summary from the normalized collection. It is a
// pure function: recomputed on demand, never cached across collections.
func Compute(books []models.Book) Summary {
	s := Summary{
		RatingCounts:     map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		AvgPriceByRating: make(map[int]float64),
	}
	if len(books) == 0 {
		return s
	}

	var (
		priceSum         float64
		priceSumByRating = make(map[int]float64)
	)
	s.Count = len(books)
	s.PriceStatsDefined = true
	s.MinPrice = books[0].Price
	s.MaxPrice = books[0].Price

	for _, b := range books {
		priceSum += b.Price
		if b.Price > s.MaxPrice {
			s.MaxPrice = b.Price
		}
		if b.Price < s.MinPrice {
			s.MinPrice = b.Price
		}
		s.TotalAvailability += b.Availability
		s.RatingCounts[b.Rating]++
		priceSumByRating[b.Rating] += b.Price
	}

	s.AveragePrice = priceSum / float64(len(books))
	for rating, sum := range priceSumByRating {
		s.AvgPriceByRating[rating] = sum / float64(s.RatingCounts[rating])
	}

	return s
}
