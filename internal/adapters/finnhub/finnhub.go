package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"marketfeed/internal/domain"
	"marketfeed/internal/ports"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// Client implements ports.QuoteProvider against the Finnhub REST API, the
// primary paid source. Transport failures are wrapped with the layer's
// sentinel errors based on the HTTP status, so the core never has to parse
// messages for the common cases.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Config holds configuration for the Finnhub client.
type Config struct {
	APIKey  string
	Timeout time.Duration // Per-call HTTP timeout (default 10s)
	BaseURL string        // Override for tests
}

// New creates a Finnhub client. The API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("finnhub API key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}, nil
}

func (c *Client) Name() string { return "finnhub" }

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	query.Set("token", c.apiKey)
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("finnhub fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("finnhub read body: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: finnhub status %d", ports.ErrRateLimited, resp.StatusCode)
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%w: finnhub status %d", ports.ErrPermissionDenied, resp.StatusCode)
	default:
		return fmt.Errorf("finnhub: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("finnhub decode: %w", err)
	}
	return nil
}

// quoteResponse mirrors /quote: c current, pc previous close, t unix time.
type quoteResponse struct {
	Current   float64 `json:"c"`
	PrevClose float64 `json:"pc"`
	Timestamp int64   `json:"t"`
}

// GetQuote retrieves the current price. Finnhub reports unknown symbols as
// a zero price on a 200 response, which counts as no data.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	var res quoteResponse
	if err := c.get(ctx, "/quote", q, &res); err != nil {
		return nil, err
	}
	if res.Current <= 0 {
		return nil, ports.ErrNoData
	}
	observed := time.Unix(res.Timestamp, 0).UTC()
	if res.Timestamp == 0 {
		observed = time.Now().UTC()
	}
	return &domain.Quote{
		Symbol:     symbol,
		Price:      res.Current,
		ObservedAt: observed,
	}, nil
}

// candleResponse mirrors /stock/candle: parallel OHLCV arrays plus a
// status string ("ok" or "no_data").
type candleResponse struct {
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Opens      []float64 `json:"o"`
	Highs      []float64 `json:"h"`
	Lows       []float64 `json:"l"`
	Closes     []float64 `json:"c"`
	Volumes    []float64 `json:"v"`
}

// GetDailyCandles retrieves daily resolution candles for [start, end].
func (c *Client) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) (domain.CandleSeries, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", "D")
	q.Set("from", fmt.Sprintf("%d", start.UTC().Unix()))
	// End bound is inclusive: push it to the end of the requested day.
	q.Set("to", fmt.Sprintf("%d", end.UTC().Unix()+24*3600))

	var res candleResponse
	if err := c.get(ctx, "/stock/candle", q, &res); err != nil {
		return nil, err
	}
	if res.Status != "ok" || len(res.Timestamps) == 0 {
		return nil, ports.ErrNoData
	}

	series := make(domain.CandleSeries, 0, len(res.Timestamps))
	for i, ts := range res.Timestamps {
		if i >= len(res.Opens) || i >= len(res.Highs) || i >= len(res.Lows) || i >= len(res.Closes) {
			break
		}
		var vol float64
		if i < len(res.Volumes) {
			vol = res.Volumes[i]
		}
		series = append(series, domain.Candle{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   res.Opens[i],
			High:   res.Highs[i],
			Low:    res.Lows[i],
			Close:  res.Closes[i],
			Volume: vol,
		})
	}
	return series, nil
}
