package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the PrivatBank archive endpoint.
	DefaultBaseURL = "https://api.privatbank.ua/p24api/exchange_rates"
	// DefaultTimeout bounds a single date request.
	DefaultTimeout = 10 * time.Second
	// DefaultPlaces is the number of decimal places every rate is rounded to.
	DefaultPlaces int32 = 2
)

// Currencies lists the codes kept from an API response.
var Currencies = []string{"EUR", "USD"}

// ErrNoRates is returned when a successful response carries no exchangeRate
// list at all. An empty list is a valid day without published rates.
var ErrNoRates = errors.New("response has no exchange rates")

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Date       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rates API returned status %d for %s", e.StatusCode, e.Date)
}

type apiResponse struct {
	Date         string    `json:"date"`
	ExchangeRate *[]apiRate `json:"exchangeRate"`
}

type apiRate struct {
	Currency       string              `json:"currency"`
	SaleRate       decimal.NullDecimal `json:"saleRate"`
	PurchaseRate   decimal.NullDecimal `json:"purchaseRate"`
	SaleRateNB     decimal.NullDecimal `json:"saleRateNB"`
	PurchaseRateNB decimal.NullDecimal `json:"purchaseRateNB"`
}

// Client talks to the rates API. The zero value is not usable; use NewClient.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	places     int32
	currencies map[string]struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithTimeout sets the per-date request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithPlaces sets the number of decimal places rates are rounded to.
func WithPlaces(places int32) Option {
	return func(c *Client) {
		if places >= 0 {
			c.places = places
		}
	}
}

// NewClient creates a Client with defaults overridden by opts.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		places:     DefaultPlaces,
		currencies: make(map[string]struct{}, len(Currencies)),
	}
	for _, code := range Currencies {
		c.currencies[code] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(date string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid rates API URL %q: %w", c.baseURL, err)
	}
	u.RawQuery = "json&date=" + url.QueryEscape(date)
	return u.String(), nil
}

// Fetch returns the EUR and USD rates published for date.
func (c *Client) Fetch(ctx context.Context, date time.Time) (Snapshot, error) {
	day := FormatDate(date)

	endpoint, err := c.endpoint(day)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build rates request for %s: %w", day, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates for %s: %w", day, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if err := resp.Body.Close(); err != nil {
			log.Debugf("Error closing rates response body for %s: %v", day, err)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Date: day, StatusCode: resp.StatusCode}
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates for %s: %w", day, err)
	}

	if payload.ExchangeRate == nil {
		return nil, fmt.Errorf("decode rates for %s: %w", day, ErrNoRates)
	}

	return c.extract(*payload.ExchangeRate), nil
}

// extract keeps the configured currencies, preferring the commercial rate
// and falling back to the National Bank rate.
func (c *Client) extract(entries []apiRate) Snapshot {
	snapshot := make(Snapshot, len(c.currencies))
	for _, entry := range entries {
		if _, ok := c.currencies[entry.Currency]; !ok {
			continue
		}

		sale, ok := pick(entry.SaleRate, entry.SaleRateNB)
		if !ok {
			continue
		}
		purchase, ok := pick(entry.PurchaseRate, entry.PurchaseRateNB)
		if !ok {
			continue
		}

		snapshot[entry.Currency] = Rate{
			Sale:     sale.Round(c.places),
			Purchase: purchase.Round(c.places),
		}
	}
	return snapshot
}

func pick(commercial, national decimal.NullDecimal) (decimal.Decimal, bool) {
	if commercial.Valid {
		return commercial.Decimal, true
	}
	if national.Valid {
		return national.Decimal, true
	}
	return decimal.Decimal{}, false
}

// FetchDays fetches today and the previous days-1 days concurrently. Every
// requested date gets a slot in the report, in date order; dates that fail
// carry an error marker instead of aborting the batch.
func (c *Client) FetchDays(ctx context.Context, now time.Time, days int) Report {
	dates := Dates(now, days)
	report := make(Report, len(dates))

	var wg sync.WaitGroup
	for i, date := range dates {
		report[i].Date = FormatDate(date)

		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshot, err := c.Fetch(ctx, date)
			if err != nil {
				log.Warnf("Unable to fetch rates for %s: %v", report[i].Date, err)
				report[i].Error = "Unable to fetch data: " + err.Error()
				return
			}
			report[i].Rates = snapshot
		}()
	}
	wg.Wait()

	return report
}
