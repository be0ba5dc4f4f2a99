package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNoData(t *testing.T) {
	assert.False(t, IsNoData(nil))
	assert.True(t, IsNoData(ErrNoData))
	assert.True(t, IsNoData(fmt.Errorf("provider x: %w", ErrNoData)))
	assert.False(t, IsNoData(errors.New("connection reset")))
}

func TestIsPermission(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrPermissionDenied, true},
		{"wrapped sentinel", fmt.Errorf("finnhub: %w", ErrPermissionDenied), true},
		{"status code in message", errors.New("server returned 403"), true},
		{"forbidden in message", errors.New("Forbidden by upstream"), true},
		{"access denied in message", errors.New("Access Denied for key"), true},
		{"access alone is not permission", errors.New("access point unreachable"), false},
		{"unrelated", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPermission(tt.err))
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrRateLimited, true},
		{"wrapped sentinel", fmt.Errorf("yahoo: %w", ErrRateLimited), true},
		{"status code in message", errors.New("got 429 from server"), true},
		{"phrase in message", errors.New("Too Many Requests"), true},
		{"unrelated", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimited(tt.err))
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrInvalidSymbol, ErrNoData, ErrPermissionDenied,
		ErrRateLimited, ErrDownloadFailed, ErrCircuitOpen,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v must not match %v", a, b)
		}
	}
}
