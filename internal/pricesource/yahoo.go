package pricesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"
	DefaultTimeout      = 15 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 500 * time.Millisecond
	DefaultMaxDelay     = 8 * time.Second
	DefaultBackoffMult  = 2.0
	DefaultUserAgent    = "Mozilla/5.0 (compatible; trade-outcome-lab/1.0)"
)

const yahooSourceName = "yahoo"

// YahooClient implements Source using the Yahoo Finance v8 chart API.
type YahooClient struct {
	baseURL     string
	userAgent   string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	logger      zerolog.Logger
}

// ClientOption configures YahooClient.
type ClientOption func(*YahooClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *YahooClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *YahooClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *YahooClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *YahooClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *YahooClient) {
		c.client = client
	}
}

// WithUserAgent overrides the User-Agent header. Yahoo rejects requests without one.
func WithUserAgent(ua string) ClientOption {
	return func(c *YahooClient) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *YahooClient) {
		c.logger = l
	}
}

// NewYahooClient creates a chart API client. An empty baseURL uses DefaultYahooBaseURL.
func NewYahooClient(baseURL string, opts ...ClientOption) *YahooClient {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	c := &YahooClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   DefaultUserAgent,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Source = (*YahooClient)(nil)

// FetchDaily retrieves daily bars for symbol within [start, end].
// Returns ErrUnknownSymbol when Yahoo reports the symbol as not found,
// and an error wrapping ErrUnavailable for every other failure.
func (c *YahooClient) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]*domain.DailyBar, error) {
	begin := time.Now()
	bars, err := c.fetch(ctx, symbol, start, end)
	observability.RecordPriceFetch(yahooSourceName, time.Since(begin).Seconds(), err)
	return bars, err
}

func (c *YahooClient) fetch(ctx context.Context, symbol string, start, end time.Time) ([]*domain.DailyBar, error) {
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol: %w", ErrUnknownSymbol)
	}

	// period2 is exclusive, so ask for the whole end day.
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(domain.Day(start).Unix(), 10))
	q.Set("period2", strconv.FormatInt(domain.Day(end).AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	bars, err := parseChart(symbol, body)
	if err != nil {
		return nil, fmt.Errorf("parse chart %s: %w", symbol, err)
	}
	return inRange(bars, start, end), nil
}

// get performs a GET with retries and exponential backoff.
func (c *YahooClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			observability.RecordFetchRetry(yahooSourceName)
			c.logger.Debug().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).Msg("retrying chart request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return respBody, nil
		case resp.StatusCode == http.StatusNotFound:
			// Not retried
			return nil, fmt.Errorf("%s: %w", chartErrorDescription(respBody, "status 404"), ErrUnknownSymbol)
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("unexpected status %d: %s: %w",
				resp.StatusCode, chartErrorDescription(respBody, "no detail"), ErrUnavailable)
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %v: %w", lastErr, ErrUnavailable)
}

// chartErrorDescription extracts chart.error.description, falling back to def.
func chartErrorDescription(body []byte, def string) string {
	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() && desc.String() != "" {
		return desc.String()
	}
	return def
}

// parseChart converts a chart response into bars. Days with a null open, high,
// low or close are skipped. Bar dates are taken in the exchange's local time.
func parseChart(symbol string, body []byte) ([]*domain.DailyBar, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json: %w", ErrUnavailable)
	}

	if chartErr := gjson.GetBytes(body, "chart.error"); chartErr.Exists() && chartErr.Type != gjson.Null {
		code := chartErr.Get("code").String()
		desc := chartErr.Get("description").String()
		if strings.EqualFold(code, "Not Found") {
			return nil, fmt.Errorf("%s: %w", desc, ErrUnknownSymbol)
		}
		return nil, fmt.Errorf("chart error %s: %s: %w", code, desc, ErrUnavailable)
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("missing chart result: %w", ErrUnavailable)
	}

	offset := time.Duration(result.Get("meta.gmtoffset").Int()) * time.Second
	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	bars := make([]*domain.DailyBar, 0, len(timestamps))
	for i, ts := range timestamps {
		open, okO := decimalAt(opens, i)
		high, okH := decimalAt(highs, i)
		low, okL := decimalAt(lows, i)
		cl, okC := decimalAt(closes, i)
		if !okO || !okH || !okL || !okC {
			continue
		}

		var volume int64
		if i < len(volumes) {
			volume = volumes[i].Int()
		}

		bars = append(bars, &domain.DailyBar{
			Symbol: symbol,
			Date:   domain.Day(time.Unix(ts.Int(), 0).UTC().Add(offset)),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  cl,
			Volume: volume,
		})
	}

	return bars, nil
}

// decimalAt reads values[i] as a decimal using the raw JSON number text.
func decimalAt(values []gjson.Result, i int) (decimal.Decimal, bool) {
	if i >= len(values) || values[i].Type != gjson.Number {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(values[i].Raw)
	if err != nil {
		return decimal.NewFromFloat(values[i].Float()), true
	}
	return d, true
}
