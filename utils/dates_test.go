package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginningOfDay(t *testing.T) {
	in := time.Date(2024, 5, 1, 18, 42, 7, 123, time.UTC)
	got := BeginningOfDay(in)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 4, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysBetween(start, end))
}

func TestParseServiceDate(t *testing.T) {
	midnight := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	got, err := ParseServiceDate("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, midnight, got)

	got, err = ParseServiceDate("2024-05-01T15:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, midnight, got)

	_, err = ParseServiceDate("01/05/2024")
	assert.Error(t, err)

	_, err = ParseServiceDate("")
	assert.Error(t, err)
}
