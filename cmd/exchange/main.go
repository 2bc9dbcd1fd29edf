// Command exchange fetches EUR and USD rates for the last N days, writes
// them to exchange_rates.json and prints the same JSON.
//
//	exchange [options] <days>
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Tyrowin/ratechat/internal/logging"
	"github.com/Tyrowin/ratechat/internal/rates"
)

const defaultOutput = "exchange_rates.json"

type options struct {
	days    int
	output  string
	apiURL  string
	timeout time.Duration
}

var errUsage = errors.New("usage")

func parseArgs(args []string, stderr io.Writer) (options, error) {
	opts := options{}

	fs := flag.NewFlagSet("exchange", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Fetch EUR/USD exchange rates for the last N days (at most %d)\n\n\texchange [options] <days>\n\nOptions:\n\n", rates.MaxDays)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.output, "o", defaultOutput, "Output file")
	fs.StringVar(&opts.apiURL, "api", rates.DefaultBaseURL, "Exchange rates API URL")
	fs.DurationVar(&opts.timeout, "timeout", rates.DefaultTimeout, "Timeout of a single API request")

	if err := fs.Parse(args); err != nil {
		return opts, errUsage
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errUsage
	}

	days, err := strconv.Atoi(fs.Arg(0))
	if err != nil || days < 1 {
		fmt.Fprintf(stderr, "days must be a positive integer, got %q\n", fs.Arg(0))
		return opts, errUsage
	}
	opts.days = rates.ClampDays(days)

	return opts, nil
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	client := rates.NewClient(
		rates.WithBaseURL(opts.apiURL),
		rates.WithTimeout(opts.timeout),
	)

	report := client.FetchDays(ctx, time.Now(), opts.days)

	var buf bytes.Buffer
	if err := report.Encode(&buf); err != nil {
		return err
	}

	if err := os.WriteFile(opts.output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}

	if _, err := stdout.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func main() {
	if err := logging.Setup(os.Getenv("LOG_LEVEL")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		log.Errorf("exchange: %v", err)
		os.Exit(1)
	}
}
