package marketdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// dailyPriceCache persists one flat {symbol: price} JSON map per UTC day.
// It cushions restarts and memory-TTL expiry: a price fetched earlier the
// same day is served from disk without another retry/circuit cycle.
//
// Writes are debounced. Put buffers in memory and a flush happens once
// enough writes accumulate or enough time has passed since the last flush,
// whichever comes first, so warming a cache for dozens of symbols costs a
// handful of file writes instead of one per symbol.
type dailyPriceCache struct {
	dir       string
	batchSize int
	interval  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	day       string
	prices    map[string]float64
	pending   int
	dirty     bool
	flushing  bool
	lastFlush time.Time
}

func newDailyPriceCache(dir string, batchSize int, interval time.Duration, now func() time.Time) (*dailyPriceCache, error) {
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create price cache dir: %w", err)
	}
	c := &dailyPriceCache{
		dir:       dir,
		batchSize: batchSize,
		interval:  interval,
		now:       now,
	}
	c.day = now().UTC().Format(dayLayout)
	c.prices = loadShard(c.shardPath(c.day))
	c.lastFlush = now()
	return c, nil
}

func (c *dailyPriceCache) shardPath(day string) string {
	return filepath.Join(c.dir, day+".json")
}

// loadShard reads a shard from disk. A missing or corrupt file yields an
// empty map; the cache is a cushion, not a source of truth.
func loadShard(path string) map[string]float64 {
	out := make(map[string]float64)
	b, err := os.ReadFile(path)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return make(map[string]float64)
	}
	return out
}

// writeShard writes atomically: temp file in the same directory, then
// rename over the shard path, so a crash mid-write never leaves a corrupt
// shard behind.
func writeShard(path string, prices map[string]float64) error {
	b, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("encode shard: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write shard: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace shard: %w", err)
	}
	return nil
}

// rollLocked reloads the shard when the UTC date has changed since the
// last access. Buffered writes still belong to the previous day, so they
// are written out first. Caller must hold mu.
func (c *dailyPriceCache) rollLocked() {
	day := c.now().UTC().Format(dayLayout)
	if day == c.day {
		return
	}
	if c.dirty && !c.flushing {
		_ = writeShard(c.shardPath(c.day), c.prices)
	}
	c.day = day
	c.prices = loadShard(c.shardPath(day))
	c.pending = 0
	c.dirty = false
	c.lastFlush = c.now()
}

// Get returns the price stored for symbol in today's shard.
func (c *dailyPriceCache) Get(symbol string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollLocked()
	v, ok := c.prices[symbol]
	return v, ok
}

// Put buffers a price for symbol and flushes when the batch threshold is
// reached or the flush interval has elapsed. A Put arriving while another
// flush is writing only buffers; the in-flight flush owns the snapshot.
func (c *dailyPriceCache) Put(symbol string, price float64) error {
	c.mu.Lock()
	c.rollLocked()
	c.prices[symbol] = price
	c.pending++
	c.dirty = true
	if c.flushing || (c.pending < c.batchSize && c.now().Sub(c.lastFlush) < c.interval) {
		c.mu.Unlock()
		return nil
	}
	return c.flushLocked()
}

// Flush forces buffered writes to disk. Safe to call from any goroutine;
// a no-op when nothing is dirty or a flush is already in flight.
func (c *dailyPriceCache) Flush() error {
	c.mu.Lock()
	if !c.dirty || c.flushing {
		c.mu.Unlock()
		return nil
	}
	return c.flushLocked()
}

// flushLocked snapshots the shard under the lock and writes the file
// outside it, so a slow disk never blocks readers. Caller must hold mu;
// it is released here.
func (c *dailyPriceCache) flushLocked() error {
	c.flushing = true
	day := c.day
	snapshot := make(map[string]float64, len(c.prices))
	for k, v := range c.prices {
		snapshot[k] = v
	}
	c.pending = 0
	c.dirty = false
	c.mu.Unlock()

	err := writeShard(c.shardPath(day), snapshot)

	c.mu.Lock()
	c.flushing = false
	c.lastFlush = c.now()
	c.mu.Unlock()
	return err
}
