package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Tyrowin/ratechat/internal/rates"
)

// RateFetcher fetches a multi-day rates report. Implemented by *rates.Client.
type RateFetcher interface {
	FetchDays(ctx context.Context, now time.Time, days int) rates.Report
}

// AuditLog records executed commands. Implemented by *audit.Log.
type AuditLog interface {
	Append(entry string) error
}

// ExchangeHandler executes "exchange [days]" commands.
type ExchangeHandler struct {
	fetcher RateFetcher
	audit   AuditLog
	timeout time.Duration
	now     func() time.Time
}

// NewExchangeHandler creates a handler. A nil audit log disables auditing;
// a non-positive timeout leaves the command bounded only by ctx.
func NewExchangeHandler(fetcher RateFetcher, audit AuditLog, timeout time.Duration) *ExchangeHandler {
	return &ExchangeHandler{
		fetcher: fetcher,
		audit:   audit,
		timeout: timeout,
		now:     time.Now,
	}
}

// ParseDays extracts the day count from a command such as "exchange 5".
// A positive count is capped at rates.MaxDays; anything else falls back to
// rates.DefaultDays.
func ParseDays(command string) int {
	tokens := strings.Fields(command)
	if len(tokens) < 2 {
		return rates.DefaultDays
	}

	days, err := strconv.ParseUint(tokens[1], 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return rates.MaxDays
		}
		return rates.DefaultDays
	}
	if days == 0 {
		return rates.DefaultDays
	}
	return rates.ClampDays(int(days))
}

// Execute fetches the requested days, records the response in the audit
// log and returns it. The audit write completes before the response is
// returned; if it fails, the error is returned instead.
func (h *ExchangeHandler) Execute(ctx context.Context, command string) (string, error) {
	if h.fetcher == nil {
		return "", errors.New("no rate fetcher configured")
	}

	days := ParseDays(command)

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	report := h.fetcher.FetchDays(ctx, h.now(), days)

	response, err := report.Format()
	if err != nil {
		return "", err
	}

	if h.audit != nil {
		if err := h.audit.Append(response); err != nil {
			return "", fmt.Errorf("record command: %w", err)
		}
	}

	return response, nil
}
