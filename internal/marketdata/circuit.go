package marketdata

import (
	"sync"
	"time"
)

// circuitState tracks consecutive fetch failures for one symbol. openedAt
// doubles as the probe start time while the breaker is half-open.
type circuitState struct {
	failures int
	openedAt time.Time
	open     bool
	probing  bool
}

// circuitBreaker stops sending requests for a symbol that keeps failing.
//
// Closed -> Open when failures reach the threshold. While open and inside
// the cooldown window every request is blocked without touching the
// network. Once the cooldown elapses the breaker goes half-open: failures
// reset and a single probe request is let through. A successful probe
// closes the breaker; a failed probe reopens it with a fresh cooldown.
//
// State is per symbol, so a dead ticker never blocks healthy ones.
type circuitBreaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu    sync.Mutex
	state map[string]*circuitState
}

func newCircuitBreaker(threshold int, cooldown time.Duration, now func() time.Time) *circuitBreaker {
	if now == nil {
		now = time.Now
	}
	return &circuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
		state:     make(map[string]*circuitState),
	}
}

// Allow reports whether a request for symbol may proceed. Evaluating an
// open circuit whose cooldown has elapsed transitions it to half-open and
// admits exactly one probe request; further callers are blocked until the
// probe reports a result. A probe whose caller never reports (canceled
// mid-flight) stops blocking after another cooldown.
func (b *circuitBreaker) Allow(symbol string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.state[symbol]
	if !ok || (!st.open && !st.probing) {
		return true
	}
	if b.now().Sub(st.openedAt) < b.cooldown {
		return false
	}
	st.open = false
	st.probing = true
	st.failures = 0
	st.openedAt = b.now()
	return true
}

// RecordFailure counts one failed logical fetch. Reaching the threshold,
// or failing the half-open probe, opens the circuit and stamps openedAt.
// It returns true when this call opened the circuit.
func (b *circuitBreaker) RecordFailure(symbol string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.state[symbol]
	if !ok {
		st = &circuitState{}
		b.state[symbol] = st
	}
	st.failures++
	if st.probing || st.failures >= b.threshold {
		st.open = true
		st.probing = false
		st.openedAt = b.now()
		return true
	}
	return false
}

// RecordSuccess resets the symbol's breaker to closed.
func (b *circuitBreaker) RecordSuccess(symbol string) {
	b.mu.Lock()
	delete(b.state, symbol)
	b.mu.Unlock()
}
