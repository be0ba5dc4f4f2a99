package marketdata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readShardFile(t *testing.T, path string) map[string]float64 {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := make(map[string]float64)
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestDailyPriceCache_PutBuffersBelowBatch(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(day(2024, time.March, 1))
	cache, err := newDailyPriceCache(dir, 8, time.Hour, clock.Now)
	require.NoError(t, err)

	require.NoError(t, cache.Put("AAPL", 180.25))
	require.NoError(t, cache.Put("MSFT", 310.50))

	_, statErr := os.Stat(filepath.Join(dir, "2024-03-01.json"))
	assert.True(t, os.IsNotExist(statErr), "below batch and within interval, nothing hits disk")

	// Buffered values are still readable.
	v, ok := cache.Get("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 180.25, v)
}

func TestDailyPriceCache_BatchThresholdFlushes(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(day(2024, time.March, 1))
	cache, err := newDailyPriceCache(dir, 2, time.Hour, clock.Now)
	require.NoError(t, err)

	require.NoError(t, cache.Put("AAPL", 180.25))
	require.NoError(t, cache.Put("MSFT", 310.50))

	shard := readShardFile(t, filepath.Join(dir, "2024-03-01.json"))
	assert.Equal(t, map[string]float64{"AAPL": 180.25, "MSFT": 310.50}, shard)
}

func TestDailyPriceCache_IntervalFlushes(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(day(2024, time.March, 1))
	cache, err := newDailyPriceCache(dir, 100, 5*time.Second, clock.Now)
	require.NoError(t, err)

	require.NoError(t, cache.Put("AAPL", 180.25))
	_, statErr := os.Stat(filepath.Join(dir, "2024-03-01.json"))
	assert.True(t, os.IsNotExist(statErr))

	clock.Advance(5 * time.Second)
	require.NoError(t, cache.Put("MSFT", 310.50))

	shard := readShardFile(t, filepath.Join(dir, "2024-03-01.json"))
	assert.Len(t, shard, 2, "interval elapsed, both buffered prices flushed")
}

func TestDailyPriceCache_FlushForcesWrite(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(day(2024, time.March, 1))
	cache, err := newDailyPriceCache(dir, 100, time.Hour, clock.Now)
	require.NoError(t, err)

	require.NoError(t, cache.Put("AAPL", 180.25))
	require.NoError(t, cache.Flush())

	shard := readShardFile(t, filepath.Join(dir, "2024-03-01.json"))
	assert.Equal(t, 180.25, shard["AAPL"])

	// Nothing dirty: a second Flush is a no-op, not an error.
	require.NoError(t, cache.Flush())
}

func TestDailyPriceCache_MergesWithExistingShard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2024-03-01.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"AAPL":180.25,"MSFT":310.50}`), 0o644))

	clock := newFakeClock(day(2024, time.March, 1))
	cache, err := newDailyPriceCache(dir, 1, time.Hour, clock.Now)
	require.NoError(t, err)

	// Existing entries survive a new write into the same shard.
	require.NoError(t, cache.Put("GOOG", 140.00))

	shard := readShardFile(t, path)
	assert.Equal(t, map[string]float64{"AAPL": 180.25, "MSFT": 310.50, "GOOG": 140.00}, shard)
}

func TestDailyPriceCache_CorruptShardIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2024-03-01.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	clock := newFakeClock(day(2024, time.March, 1))
	cache, err := newDailyPriceCache(dir, 1, time.Hour, clock.Now)
	require.NoError(t, err)

	_, ok := cache.Get("AAPL")
	assert.False(t, ok, "corrupt shard reads as empty")

	require.NoError(t, cache.Put("AAPL", 180.25))
	shard := readShardFile(t, path)
	assert.Equal(t, map[string]float64{"AAPL": 180.25}, shard)
}

func TestDailyPriceCache_DayRollover(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(time.Date(2024, time.March, 1, 23, 59, 0, 0, time.UTC))
	cache, err := newDailyPriceCache(dir, 100, time.Hour, clock.Now)
	require.NoError(t, err)

	require.NoError(t, cache.Put("AAPL", 180.25))

	// Crossing midnight UTC rotates to a fresh shard; the buffered write
	// for the old day is persisted on the way out.
	clock.Advance(2 * time.Minute)
	_, ok := cache.Get("AAPL")
	assert.False(t, ok, "yesterday's price must not leak into today")

	oldShard := readShardFile(t, filepath.Join(dir, "2024-03-01.json"))
	assert.Equal(t, 180.25, oldShard["AAPL"])

	require.NoError(t, cache.Put("AAPL", 181.00))
	v, ok := cache.Get("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 181.00, v)
}

func TestDailyPriceCache_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(day(2024, time.March, 1))
	cache, err := newDailyPriceCache(dir, 1, time.Hour, clock.Now)
	require.NoError(t, err)

	require.NoError(t, cache.Put("AAPL", 180.25))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "atomic write must rename its temp file")
	}
}

func TestDailyPriceCache_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(day(2024, time.March, 1))

	first, err := newDailyPriceCache(dir, 1, time.Hour, clock.Now)
	require.NoError(t, err)
	require.NoError(t, first.Put("AAPL", 180.25))

	second, err := newDailyPriceCache(dir, 1, time.Hour, clock.Now)
	require.NoError(t, err)
	v, ok := second.Get("AAPL")
	assert.True(t, ok, "a new instance reads the shard written by the old one")
	assert.Equal(t, 180.25, v)
}
