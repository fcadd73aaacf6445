package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/marketstack"
)

// MockMarketstackClient is a mock implementation of marketstack.Client for testing.
// It returns predefined bars instead of making actual API calls. It is safe for
// concurrent use.
type MockMarketstackClient struct {
	mu sync.Mutex
	// MockResponse holds the bars to return; only bars whose symbol was requested are returned
	MockResponse []marketstack.EOD
	// MockError is the error to return from LatestEOD
	MockError error
	// FailTimes makes the first N calls return MockError before succeeding
	FailTimes int
	// Delay holds every call for this long, or until its context is done
	Delay time.Duration
	// QueryCount tracks how many times LatestEOD was called
	QueryCount int
	// Requested records the provider symbols of every call
	Requested [][]string
}

// NewMockMarketstackClient creates a mock that knows about no symbols.
func NewMockMarketstackClient() *MockMarketstackClient {
	return &MockMarketstackClient{}
}

// LatestEOD returns the configured bars for the requested symbols.
func (m *MockMarketstackClient) LatestEOD(ctx context.Context, symbols ...string) ([]marketstack.EOD, error) {
	m.mu.Lock()
	m.QueryCount++
	call := m.QueryCount
	m.Requested = append(m.Requested, append([]string(nil), symbols...))
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MockError != nil && (m.FailTimes == 0 || call <= m.FailTimes) {
		return nil, m.MockError
	}

	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}

	var bars []marketstack.EOD
	for _, bar := range m.MockResponse {
		if wanted[bar.Symbol] {
			bars = append(bars, bar)
		}
	}
	return bars, nil
}

// Calls returns QueryCount under the lock.
func (m *MockMarketstackClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.QueryCount
}

// WithError configures the mock to return the specified error on every call.
func (m *MockMarketstackClient) WithError(err error) *MockMarketstackClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MockError = err
	m.FailTimes = 0
	return m
}

// WithTransientError makes the first n calls fail with err.
func (m *MockMarketstackClient) WithTransientError(err error, n int) *MockMarketstackClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MockError = err
	m.FailTimes = n
	return m
}

// WithDelay makes every call hang for d, simulating an unresponsive provider.
func (m *MockMarketstackClient) WithDelay(d time.Duration) *MockMarketstackClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Delay = d
	return m
}

// WithResponse adds bars to the configured response.
func (m *MockMarketstackClient) WithResponse(bars ...marketstack.EOD) *MockMarketstackClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MockResponse = append(m.MockResponse, bars...)
	return m
}

// WithEmptyResponse configures the mock to return no data.
func (m *MockMarketstackClient) WithEmptyResponse() *MockMarketstackClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MockResponse = nil
	m.MockError = nil
	return m
}

// WithBar is shorthand for WithResponse(CreateMockEOD(symbol, open, closePrice)).
func (m *MockMarketstackClient) WithBar(symbol, open, closePrice string) *MockMarketstackClient {
	return m.WithResponse(CreateMockEOD(symbol, open, closePrice))
}

// CreateMockEOD creates an end-of-day bar dated yesterday. symbol is the provider
// symbol, e.g. "0700.XHKG".
func CreateMockEOD(symbol, open, closePrice string) marketstack.EOD {
	o := Dec(open)
	c := Dec(closePrice)
	yesterday := time.Now().UTC().AddDate(0, 0, -1)

	return marketstack.EOD{
		Symbol:   symbol,
		Exchange: "XNAS",
		Date:     yesterday.Format("2006-01-02") + "T00:00:00+0000",
		Open:     o,
		High:     decimal.Max(o, c),
		Low:      decimal.Min(o, c),
		Close:    c,
		Volume:   1_000_000,
	}
}
