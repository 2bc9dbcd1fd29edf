package rates

import "time"

const (
	// MaxDays caps how far back a single request may reach.
	MaxDays = 10
	// DefaultDays is used when a chat command carries no usable day count.
	DefaultDays = 2
	// DateLayout is the DD.MM.YYYY form the API and the report use.
	DateLayout = "02.01.2006"
)

// ClampDays limits days to MaxDays.
func ClampDays(days int) int {
	if days > MaxDays {
		return MaxDays
	}
	return days
}

// Dates returns today followed by the previous days-1 days, newest first.
func Dates(now time.Time, days int) []time.Time {
	if days <= 0 {
		return []time.Time{}
	}

	dates := make([]time.Time, days)
	for i := range dates {
		dates[i] = now.AddDate(0, 0, -i)
	}
	return dates
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
