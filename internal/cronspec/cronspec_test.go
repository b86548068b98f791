package cronspec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petabytecl/jobu/internal/cronspec"
)

func TestParseValidExpression(t *testing.T) {
	s, err := cronspec.Parse("*/5 * * * *", cronspec.MinInterval)
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", s.String())
}

func TestParseInvalidExpression(t *testing.T) {
	_, err := cronspec.Parse("not a cron expression", cronspec.MinInterval)
	require.Error(t, err)
}

func TestNextAdvancesByInterval(t *testing.T) {
	s, err := cronspec.Parse("*/5 * * * *", cronspec.MinInterval)
	require.NoError(t, err)

	ref := time.Date(2026, 1, 1, 10, 1, 0, 0, time.UTC)
	next := s.Next(ref)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 5, 0, 0, time.UTC), next)
}

func TestPrevFindsLastFireAtOrBefore(t *testing.T) {
	s, err := cronspec.Parse("*/5 * * * *", cronspec.MinInterval)
	require.NoError(t, err)

	ref := time.Date(2026, 1, 1, 10, 7, 30, 0, time.UTC)
	prev, err := s.Prev(ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 5, 0, 0, time.UTC), prev)
}

func TestPrevExactFireTimeReturnsItself(t *testing.T) {
	s, err := cronspec.Parse("0 0 * * *", cronspec.MinInterval)
	require.NoError(t, err)

	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev, err := s.Prev(ref)
	require.NoError(t, err)
	assert.Equal(t, ref, prev)
}

func TestPrevYearlyExpressionStillFoundWithinLookback(t *testing.T) {
	s, err := cronspec.Parse("0 0 1 1 *", cronspec.MinInterval)
	require.NoError(t, err)

	ref := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	prev, err := s.Prev(ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), prev)
}
