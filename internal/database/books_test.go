package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestBuildBooksQueryNoFilter(t *testing.T) {
	sql, args, err := buildBooksQuery("run-1", BookFilter{}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM books")
	assert.Contains(t, sql, "run_id = $1")
	assert.Contains(t, sql, "ORDER BY position")
	assert.Equal(t, []interface{}{"run-1"}, args)
}

func TestBuildBooksQueryWithFilters(t *testing.T) {
	filter := BookFilter{
		MinPrice: floatPtr(10),
		MaxPrice: floatPtr(50),
		Ratings:  []int{4, 5},
	}
	sql, args, err := buildBooksQuery("run-1", filter).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "price >= $2")
	assert.Contains(t, sql, "price <= $3")
	assert.Contains(t, sql, "rating IN ($4,$5)")
	assert.Equal(t, []interface{}{"run-1", 10.0, 50.0, 4, 5}, args)
}

func TestBuildBooksQueryRatingOnly(t *testing.T) {
	sql, args, err := buildBooksQuery("run-2", BookFilter{Ratings: []int{1}}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "rating IN ($2)")
	assert.Equal(t, []interface{}{"run-2", 1}, args)
}
