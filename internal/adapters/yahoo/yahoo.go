package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"marketfeed/internal/domain"
	"marketfeed/internal/ports"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client implements ports.QuoteProvider using the free Yahoo Finance chart
// API. No API key is required, which makes it the usual secondary source
// behind a paid feed.
type Client struct {
	httpClient *http.Client
	baseURL    string
	symbolMap  map[string]string
}

// Config holds configuration for the Yahoo client.
type Config struct {
	Timeout   time.Duration     // Per-call HTTP timeout (default 10s)
	BaseURL   string            // Override for tests
	SymbolMap map[string]string // Maps internal symbols to Yahoo tickers
}

// New creates a Yahoo Finance client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.SymbolMap == nil {
		cfg.SymbolMap = map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		}
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		symbolMap:  cfg.SymbolMap,
	}
}

func (c *Client) Name() string { return "yahoo" }

func (c *Client) yahooSymbol(symbol string) string {
	if mapped, ok := c.symbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// chartResponse is the shape of the Yahoo Finance chart API payload.
// OHLCV slices arrive as interface{} because null bars (holidays) appear
// as JSON null.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func at(vals []interface{}, i int) float64 {
	if i >= len(vals) {
		return 0
	}
	return toFloat(vals[i])
}

// statusErr maps an HTTP status to the layer's sentinel errors so the core
// classifies on structure instead of message substrings.
func statusErr(status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: yahoo status %d", ports.ErrRateLimited, status)
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return fmt.Errorf("%w: yahoo status %d", ports.ErrPermissionDenied, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: yahoo status %d", ports.ErrNoData, status)
	default:
		return fmt.Errorf("yahoo: status %d, body: %s", status, string(body))
	}
}

func (c *Client) fetchChart(ctx context.Context, symbol string, query url.Values) (domain.CandleSeries, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s",
		c.baseURL, url.PathEscape(c.yahooSymbol(symbol)), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(resp.StatusCode, body)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, ports.ErrNoData
	}
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, ports.ErrNoData
	}
	quote := result.Indicators.Quote[0]

	series := make(domain.CandleSeries, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o := at(quote.Open, i)
		h := at(quote.High, i)
		l := at(quote.Low, i)
		cl := at(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && cl == 0 {
			continue // null bar (holiday etc.)
		}
		series = append(series, domain.Candle{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  cl,
			Volume: at(quote.Volume, i),
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}

// GetQuote returns the last daily close from a short chart window.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", "5d")
	series, err := c.fetchChart(ctx, symbol, q)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, ports.ErrNoData
	}
	last := series[len(series)-1]
	return &domain.Quote{
		Symbol:     symbol,
		Price:      last.Close,
		ObservedAt: last.Date,
	}, nil
}

// GetDailyCandles fetches daily bars for [start, end] via explicit period
// bounds. Yahoo treats period2 as exclusive, so a day is added to include
// the end date.
func (c *Client) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) (domain.CandleSeries, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", fmt.Sprintf("%d", start.UTC().Unix()))
	q.Set("period2", fmt.Sprintf("%d", end.UTC().AddDate(0, 0, 1).Unix()))
	return c.fetchChart(ctx, symbol, q)
}
