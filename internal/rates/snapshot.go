package rates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

const errorMarkerPrefix = "Error: "

// Rate holds the sale and purchase price of one currency in UAH.
type Rate struct {
	Sale     decimal.Decimal `json:"sale"`
	Purchase decimal.Decimal `json:"purchase"`
}

// MarshalJSON writes sale and purchase as JSON numbers rather than the
// quoted strings decimal.Decimal produces by default.
func (r Rate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Sale     json.Number `json:"sale"`
		Purchase json.Number `json:"purchase"`
	}{
		Sale:     json.Number(r.Sale.String()),
		Purchase: json.Number(r.Purchase.String()),
	})
}

// Snapshot maps a currency code to its rate for one date.
type Snapshot map[string]Rate

// DaySnapshot is one date of a Report. Error is set instead of Rates when
// the date could not be fetched.
type DaySnapshot struct {
	Date  string
	Rates Snapshot
	Error string
}

// Failed reports whether the entry carries an error marker.
func (d DaySnapshot) Failed() bool {
	return d.Error != ""
}

// MarshalJSON encodes the entry as a single-key object:
// {"DD.MM.YYYY": {"EUR": {...}}} or {"DD.MM.YYYY": "Error: ..."}.
func (d DaySnapshot) MarshalJSON() ([]byte, error) {
	var value any = d.Rates
	if d.Failed() {
		value = errorMarkerPrefix + d.Error
	} else if d.Rates == nil {
		value = Snapshot{}
	}
	return marshal(map[string]any{d.Date: value})
}

// Report is the result of a multi-day request, newest date first.
type Report []DaySnapshot

// Encode writes the report as indented JSON followed by a newline.
// Non-ASCII characters and HTML are written as-is.
func (r Report) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Format returns the indented JSON form of the report without the trailing
// newline.
func (r Report) Format() (string, error) {
	var buf bytes.Buffer
	if err := r.Encode(&buf); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// ParseReport decodes the JSON produced by Report.Encode.
func ParseReport(data []byte) (Report, error) {
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}

	report := make(Report, 0, len(entries))
	for i, entry := range entries {
		if len(entry) != 1 {
			return nil, fmt.Errorf("parse report: entry %d has %d keys, want 1", i, len(entry))
		}
		for date, raw := range entry {
			day, err := parseDay(date, raw)
			if err != nil {
				return nil, fmt.Errorf("parse report: entry %d: %w", i, err)
			}
			report = append(report, day)
		}
	}
	return report, nil
}

func parseDay(date string, raw json.RawMessage) (DaySnapshot, error) {
	day := DaySnapshot{Date: date}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var marker string
		if err := json.Unmarshal(trimmed, &marker); err != nil {
			return day, err
		}
		day.Error = strings.TrimPrefix(marker, errorMarkerPrefix)
		return day, nil
	}

	if err := json.Unmarshal(trimmed, &day.Rates); err != nil {
		return day, err
	}
	return day, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
