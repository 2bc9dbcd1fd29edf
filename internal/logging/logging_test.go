package logging_test

import (
	"bytes"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/Tyrowin/ratechat/internal/logging"
)

// TestSetupOutputLevel verifies that messages below the configured level
// are dropped and the rest reach the writer.
func TestSetupOutputLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := logging.SetupOutput(&buf, "warn"); err != nil {
		t.Fatalf("SetupOutput failed: %v", err)
	}
	t.Cleanup(func() {
		_ = logging.SetupOutput(&bytes.Buffer{}, "info")
	})

	log.Info("hidden message")
	log.Warn("visible message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("warn message missing from output: %q", out)
	}
}

// TestSetupRejectsUnknownLevel verifies level validation.
func TestSetupRejectsUnknownLevel(t *testing.T) {
	if err := logging.SetupOutput(&bytes.Buffer{}, "loud"); err == nil {
		t.Fatal("expected error for unknown level, got nil")
	}
}

// TestSetupDefaultLevel verifies that an empty level means info.
func TestSetupDefaultLevel(t *testing.T) {
	if err := logging.SetupOutput(&bytes.Buffer{}, ""); err != nil {
		t.Fatalf("SetupOutput failed: %v", err)
	}
	if got := log.GetLevel(); got != log.InfoLevel {
		t.Errorf("level = %s, want info", got)
	}
}
