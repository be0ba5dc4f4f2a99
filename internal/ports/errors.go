package ports

import (
	"errors"
	"strings"
)

// Standard errors for the market-data layer.
// Adapters wrap transport failures with these so the core can classify an
// outcome without inspecting provider-specific error types.
var (
	// ErrInvalidSymbol rejects empty or malformed symbols before any
	// cache lookup or network access happens.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrNoData means a provider answered successfully but had nothing
	// for the symbol or date range. Callers see this as "no price
	// available", never as a hard failure.
	ErrNoData = errors.New("no market data available")

	// ErrPermissionDenied covers 403-class responses. Retrying cannot
	// change an authorization outcome.
	ErrPermissionDenied = errors.New("permission denied by provider")

	// ErrRateLimited covers 429-class responses.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrDownloadFailed is surfaced when transient failures outlive the
	// retry budget. It is the one hard failure the layer reports.
	ErrDownloadFailed = errors.New("market data download failed")

	// ErrCircuitOpen marks a symbol whose breaker is blocking requests.
	ErrCircuitOpen = errors.New("circuit open for symbol")
)

// IsNoData reports whether err is the semantic "provider had nothing"
// outcome rather than a transport failure.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// IsPermission reports whether err is a 403-class failure. Adapters that
// saw a structured status wrap ErrPermissionDenied and match directly; for
// anything else the message heuristics of the legacy fetcher are kept as a
// fallback ("403", "forbidden", "access denied"). The bare "access" match
// the legacy fetcher used is not carried: it swallowed transient errors
// that merely mention access.
func IsPermission(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermissionDenied) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "403") ||
		strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "access denied")
}

// IsRateLimited reports whether err is a 429-class failure, again with a
// message fallback ("429", "too many requests") for unwrapped errors.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests")
}
