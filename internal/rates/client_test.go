package rates_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tyrowin/ratechat/internal/rates"
)

const apiBody = `{
  "date": "%s",
  "bank": "PB",
  "baseCurrency": 980,
  "baseCurrencyLit": "UAH",
  "exchangeRate": [
    {"baseCurrency": "UAH", "currency": "CHF", "saleRateNB": 51.1, "purchaseRateNB": 51.1, "saleRate": 52.0, "purchaseRate": 50.5},
    {"baseCurrency": "UAH", "currency": "EUR", "saleRateNB": 48.2051, "purchaseRateNB": 48.2051, "saleRate": 48.555, "purchaseRate": 47.9},
    {"baseCurrency": "UAH", "currency": "USD", "saleRateNB": 41.4891, "purchaseRateNB": 41.4891},
    {"baseCurrency": "UAH", "currency": "PLN", "saleRateNB": 11.3, "purchaseRateNB": 11.3}
  ]
}`

func newAPIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func serveRates(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, apiBody, r.URL.Query().Get("date"))
}

// TestFetchExtractsEURAndUSD verifies that only EUR and USD survive,
// commercial rates win over National Bank rates, and values are rounded.
func TestFetchExtractsEURAndUSD(t *testing.T) {
	gotDate := make(chan string, 1)
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotDate <- r.URL.Query().Get("date")
		if _, ok := r.URL.Query()["json"]; !ok {
			t.Errorf("request is missing the json flag: %s", r.URL.RawQuery)
		}
		serveRates(w, r)
	})

	client := rates.NewClient(rates.WithBaseURL(srv.URL))
	date := time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)

	snapshot, err := client.Fetch(context.Background(), date)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if got := <-gotDate; got != "18.10.2026" {
		t.Errorf("API received date %q, want 18.10.2026", got)
	}
	if len(snapshot) != 2 {
		t.Fatalf("snapshot has %d currencies, want 2: %v", len(snapshot), snapshot)
	}

	checks := []struct {
		code, sale, purchase string
	}{
		{code: "EUR", sale: "48.56", purchase: "47.9"},
		{code: "USD", sale: "41.49", purchase: "41.49"},
	}
	for _, c := range checks {
		rate, ok := snapshot[c.code]
		if !ok {
			t.Errorf("missing %s", c.code)
			continue
		}
		if !rate.Sale.Equal(decimal.RequireFromString(c.sale)) {
			t.Errorf("%s sale = %s, want %s", c.code, rate.Sale, c.sale)
		}
		if !rate.Purchase.Equal(decimal.RequireFromString(c.purchase)) {
			t.Errorf("%s purchase = %s, want %s", c.code, rate.Purchase, c.purchase)
		}
	}
}

// TestFetchPlaces verifies the rounding option.
func TestFetchPlaces(t *testing.T) {
	srv := newAPIServer(t, serveRates)
	client := rates.NewClient(rates.WithBaseURL(srv.URL), rates.WithPlaces(1))

	snapshot, err := client.Fetch(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got := snapshot["USD"].Sale.String(); got != "41.5" {
		t.Errorf("USD sale = %s, want 41.5", got)
	}
}

// TestFetchStatusError verifies that a non-2xx answer yields a StatusError.
func TestFetchStatusError(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	client := rates.NewClient(rates.WithBaseURL(srv.URL))

	_, err := client.Fetch(context.Background(), time.Now())

	var statusErr *rates.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", statusErr.StatusCode)
	}
}

// TestFetchMalformedBody verifies that bodies without a usable exchangeRate
// list are errors, and that a missing list is reported as ErrNoRates.
func TestFetchMalformedBody(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantNoRates bool
	}{
		{name: "html page", body: "<html>maintenance</html>"},
		{name: "empty object", body: `{}`, wantNoRates: true},
		{name: "error object", body: `{"error":"bad date"}`, wantNoRates: true},
		{name: "null body", body: `null`, wantNoRates: true},
		{name: "null list", body: `{"exchangeRate":null}`, wantNoRates: true},
		{name: "list of wrong type", body: `{"exchangeRate":"none"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			client := rates.NewClient(rates.WithBaseURL(srv.URL))

			_, err := client.Fetch(context.Background(), time.Now())
			if err == nil {
				t.Fatal("expected decode error, got nil")
			}
			if tt.wantNoRates && !errors.Is(err, rates.ErrNoRates) {
				t.Errorf("expected ErrNoRates, got %v", err)
			}
		})
	}
}

// TestFetchEmptyList verifies that an empty exchangeRate list is a valid
// day without rates rather than an error.
func TestFetchEmptyList(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"date":"18.10.2026","exchangeRate":[]}`))
	})
	client := rates.NewClient(rates.WithBaseURL(srv.URL))

	snapshot, err := client.Fetch(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(snapshot) != 0 {
		t.Errorf("snapshot = %v, want empty", snapshot)
	}
}

// TestFetchDaysMarksMissingList verifies that a response without an
// exchangeRate list becomes an error marker for that date.
func TestFetchDaysMarksMissingList(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"bad date"}`))
	})
	client := rates.NewClient(rates.WithBaseURL(srv.URL))

	report := client.FetchDays(context.Background(), time.Now(), 1)
	if len(report) != 1 {
		t.Fatalf("report has %d entries, want 1", len(report))
	}
	if !report[0].Failed() {
		t.Errorf("entry should carry an error marker, got rates %v", report[0].Rates)
	}

	text, err := report.Format()
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(text, "Error: Unable to fetch data") {
		t.Errorf("formatted report lacks the marker:\n%s", text)
	}
}

// countingTransport counts round trips before delegating to the default transport.
type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return http.DefaultTransport.RoundTrip(r)
}

// TestWithHTTPClient verifies that requests go through the supplied client.
func TestWithHTTPClient(t *testing.T) {
	srv := newAPIServer(t, serveRates)
	transport := &countingTransport{}
	client := rates.NewClient(
		rates.WithBaseURL(srv.URL),
		rates.WithHTTPClient(&http.Client{Transport: transport}),
	)

	report := client.FetchDays(context.Background(), time.Now(), 3)
	if len(report) != 3 {
		t.Fatalf("report has %d entries, want 3", len(report))
	}
	if got := transport.calls.Load(); got != 3 {
		t.Errorf("transport used %d times, want 3", got)
	}
}

// TestFetchTimeout verifies that a hanging API call is cut off by the
// per-request timeout.
func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := rates.NewClient(rates.WithBaseURL(srv.URL), rates.WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := client.Fetch(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Fetch took %v, timeout was not applied", elapsed)
	}
}

// TestFetchDaysMarksFailedDates verifies that one failing date does not
// abort the batch and that entries stay in requested order.
func TestFetchDaysMarksFailedDates(t *testing.T) {
	now := time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)
	var calls atomic.Int32

	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("date") == "17.10.2026" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		serveRates(w, r)
	})
	client := rates.NewClient(rates.WithBaseURL(srv.URL))

	report := client.FetchDays(context.Background(), now, 3)

	if got := calls.Load(); got != 3 {
		t.Errorf("API called %d times, want 3", got)
	}
	want := []string{"18.10.2026", "17.10.2026", "16.10.2026"}
	if len(report) != len(want) {
		t.Fatalf("report has %d entries, want %d", len(report), len(want))
	}
	for i, day := range report {
		if day.Date != want[i] {
			t.Errorf("entry %d date = %s, want %s", i, day.Date, want[i])
		}
	}

	if !report[1].Failed() {
		t.Error("17.10.2026 should carry an error marker")
	}
	for _, i := range []int{0, 2} {
		if report[i].Failed() {
			t.Errorf("entry %d unexpectedly failed: %s", i, report[i].Error)
		}
		if len(report[i].Rates) != 2 {
			t.Errorf("entry %d has %d currencies, want 2", i, len(report[i].Rates))
		}
	}
}
