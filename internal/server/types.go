// Package server defines shared helper types reused across client, hub and
// dispatcher logic.
package server

import (
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// NameGenerator produces the display name assigned to a client on registration.
type NameGenerator func() string

// RandomName returns a random full name.
func RandomName() string {
	return gofakeit.Name()
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
