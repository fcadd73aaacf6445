// Package marketstack is a small client for the Marketstack end-of-day price API.
package marketstack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// DefaultBaseURL is the public Marketstack v1 endpoint.
const DefaultBaseURL = "http://api.marketstack.com/v1"

// Client is the subset of the Marketstack API the quote gateway depends on.
type Client interface {
	LatestEOD(ctx context.Context, symbols ...string) ([]EOD, error)
}

// StatusError reports a non-2xx HTTP response from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("marketstack returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// EODClient fetches end-of-day prices from Marketstack over HTTP.
type EODClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewEODClient creates a Marketstack client.
//
// Parameters:
//   - baseURL: API root, e.g. DefaultBaseURL; a trailing slash is ignored
//   - apiKey: Marketstack access key
//   - timeout: upper bound for a single HTTP round trip
//
// Returns:
//   - *EODClient: A client ready for use
func NewEODClient(baseURL, apiKey string, timeout time.Duration) *EODClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &EODClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// LatestEOD fetches the most recent end-of-day bar for each provider symbol.
// Symbols must already be in Marketstack format (see Symbol).
//
// Returns:
//   - []EOD: one bar per symbol the provider recognized; may be empty
//   - error: transport failures, non-2xx statuses, undecodable bodies and API errors
func (c *EODClient) LatestEOD(ctx context.Context, symbols ...string) ([]EOD, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("access_key", c.apiKey)
	params.Set("symbols", strings.Join(symbols, ","))

	resp, err := c.query(ctx, c.baseURL+"/eod/latest?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// query executes a GET against the provider and decodes the body.
func (c *EODClient) query(ctx context.Context, endpoint string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the access key is part of the URL; never surface it
		return Response{}, fmt.Errorf("marketstack request failed: %w", redact(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("failed to read marketstack response: %w", err)
	}

	var response Response
	decodeErr := json.Unmarshal(data, &response)
	if decodeErr == nil && response.Error != nil {
		return response, response.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
	}
	if decodeErr != nil {
		return Response{}, fmt.Errorf("failed to decode marketstack response: %w", decodeErr)
	}

	return response, nil
}

// Symbol formats an exchange-neutral symbol the way Marketstack expects it for a market.
// Hong Kong tickers are zero-padded to four digits ("5" becomes "0005.XHKG"), Shanghai
// tickers get the ".XSHG" suffix and US tickers are upper-cased. Unknown markets are
// passed through.
func Symbol(symbol string, market model.Market) string {
	symbol = strings.TrimSpace(symbol)
	switch market {
	case model.MarketHK:
		for len(symbol) < 4 {
			symbol = "0" + symbol
		}
		return symbol + ".XHKG"
	case model.MarketCN:
		return symbol + ".XSHG"
	case model.MarketUS:
		return strings.ToUpper(symbol)
	}
	return symbol
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// redact strips the request URL from url.Error values.
func redact(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
