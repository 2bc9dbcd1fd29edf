// Package logging configures the process-wide logrus logger used by all
// binaries.
package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup sets the minimum level and the text formatter. An empty level
// means "info".
func Setup(level string) error {
	return SetupOutput(os.Stderr, level)
}

// SetupOutput is Setup with an explicit destination.
func SetupOutput(out io.Writer, level string) error {
	if level == "" {
		level = log.InfoLevel.String()
	}

	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log.SetOutput(out)
	log.SetLevel(parsed)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return nil
}
