package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeed/internal/domain"
)

func TestWriteCandlesToCSV(t *testing.T) {
	series := domain.CandleSeries{
		{
			Date: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			Open: 180.1, High: 182, Low: 179.5, Close: 181.25, Volume: 12345,
		},
		{
			Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
			Open: 181.3, High: 183, Low: 181, Close: 182.5, Volume: 9876,
		},
	}

	path := filepath.Join(t.TempDir(), "aapl.csv")
	require.NoError(t, WriteCandlesToCSV(series, "AAPL", path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,symbol,open,high,low,close,volume", lines[0])
	assert.Equal(t, "2024-03-01,AAPL,180.1,182,179.5,181.25,12345", lines[1])
	assert.Equal(t, "2024-03-04,AAPL,181.3,183,181,182.5,9876", lines[2])
}

func TestWriteCandlesToCSV_EmptySeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteCandlesToCSV(nil, "AAPL", path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,symbol,open,high,low,close,volume", strings.TrimSpace(string(b)))
}
