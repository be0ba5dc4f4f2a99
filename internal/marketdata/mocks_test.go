package marketdata

import (
	"context"
	"sync"
	"time"

	"marketfeed/internal/domain"
)

// Mock implementations shared by the package tests.

type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	m.debugMsgs = append(m.debugMsgs, msg)
	m.mu.Unlock()
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	m.infoMsgs = append(m.infoMsgs, msg)
	m.mu.Unlock()
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	m.warnMsgs = append(m.warnMsgs, msg)
	m.mu.Unlock()
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	m.errorMsgs = append(m.errorMsgs, msg)
	m.mu.Unlock()
}

// fakeClock is a manually advanced clock for time-dependent tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// sleepRecorder captures requested sleep durations without sleeping.
// When clock is set, each sleep advances it so "time passes" for the
// component under test.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
	clock  *fakeClock
	err    error
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	if s.clock != nil {
		s.clock.Advance(d)
	}
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

func (s *sleepRecorder) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// mockProvider returns scripted quote and candle responses and counts calls.
type mockProvider struct {
	name string

	mu          sync.Mutex
	quoteCalls  int
	candleCalls int

	// Per-call scripts; when exhausted the last entry repeats.
	quotes    []quoteResult
	candles   []candleResult
	lastStart time.Time
	lastEnd   time.Time
}

type quoteResult struct {
	quote *domain.Quote
	err   error
}

type candleResult struct {
	series domain.CandleSeries
	err    error
}

func (m *mockProvider) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockProvider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.quoteCalls
	m.quoteCalls++
	if len(m.quotes) == 0 {
		return nil, nil
	}
	if i >= len(m.quotes) {
		i = len(m.quotes) - 1
	}
	return m.quotes[i].quote, m.quotes[i].err
}

func (m *mockProvider) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) (domain.CandleSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.candleCalls
	m.candleCalls++
	m.lastStart, m.lastEnd = start, end
	if len(m.candles) == 0 {
		return nil, nil
	}
	if i >= len(m.candles) {
		i = len(m.candles) - 1
	}
	return m.candles[i].series, m.candles[i].err
}

func (m *mockProvider) QuoteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quoteCalls
}

func (m *mockProvider) CandleCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.candleCalls
}

func day(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func candleOn(t time.Time, closePx float64) domain.Candle {
	return domain.Candle{Date: t, Open: closePx, High: closePx, Low: closePx, Close: closePx, Volume: 1000}
}
