package synthetic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, time.March, 6, 12, 0, 0, 0, time.UTC) // a Wednesday
}

func TestGetDailyCandles_Deterministic(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC)

	a, err := New(Config{Seed: 7}).GetDailyCandles(context.Background(), "AAPL", start, end)
	require.NoError(t, err)
	b, err := New(Config{Seed: 7}).GetDailyCandles(context.Background(), "AAPL", start, end)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same seed and symbol must reproduce the same path")

	other, err := New(Config{Seed: 7}).GetDailyCandles(context.Background(), "MSFT", start, end)
	require.NoError(t, err)
	require.Len(t, other, len(a))
	assert.NotEqual(t, a[0].Close, other[0].Close, "different symbols get independent paths")
}

func TestGetDailyCandles_BusinessDaysOnly(t *testing.T) {
	// Fri Mar 1 through Wed Mar 6 2024 spans one weekend.
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC)

	series, err := New(Config{}).GetDailyCandles(context.Background(), "AAPL", start, end)
	require.NoError(t, err)
	require.Len(t, series, 4, "Fri, Mon, Tue, Wed")
	for _, c := range series {
		wd := c.Date.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
	}
}

func TestGetDailyCandles_BarsAreCoherent(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)

	series, err := New(Config{}).GetDailyCandles(context.Background(), "SPX", start, end)
	require.NoError(t, err)
	require.NotEmpty(t, series)

	for i, c := range series {
		assert.Positive(t, c.Close, "bar %d", i)
		assert.GreaterOrEqual(t, c.High, c.Open, "bar %d", i)
		assert.GreaterOrEqual(t, c.High, c.Close, "bar %d", i)
		assert.LessOrEqual(t, c.Low, c.Open, "bar %d", i)
		assert.LessOrEqual(t, c.Low, c.Close, "bar %d", i)
		assert.GreaterOrEqual(t, c.Volume, 50_000.0, "bar %d", i)
		if i > 0 {
			assert.True(t, series[i-1].Date.Before(c.Date), "dates ascend")
		}
	}
}

func TestGetDailyCandles_EmptyRange(t *testing.T) {
	// A weekend-only range yields no bars.
	start := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC) // Saturday
	end := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)   // Sunday

	series, err := New(Config{}).GetDailyCandles(context.Background(), "AAPL", start, end)
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestGetQuote_MatchesLastCandle(t *testing.T) {
	p := New(Config{Now: fixedNow})

	q, err := p.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Positive(t, q.Price)

	end := fixedNow()
	series, err := p.GetDailyCandles(context.Background(), "AAPL", end.AddDate(0, 0, -7), end)
	require.NoError(t, err)
	require.NotEmpty(t, series)
	assert.Equal(t, series[len(series)-1].Close, q.Price)
}

func TestGetDailyCandles_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{}).GetDailyCandles(ctx, "AAPL",
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, context.Canceled)
}
