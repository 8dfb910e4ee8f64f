package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"dealscope.dev/dealscope/internal/cli"
)

func runScrape(args []string) int {
	fs := flag.NewFlagSet("scrape", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	url := fs.String("url", "", "Product page URL to scrape")
	timeout := fs.Duration("timeout", time.Minute, "Overall scrape timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	target := strings.TrimSpace(*url)
	if target == "" && fs.NArg() > 0 {
		target = strings.TrimSpace(fs.Arg(0))
	}
	if target == "" {
		fmt.Fprintln(os.Stderr, "--url (or a positional URL) is required")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := buildRuntime(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer rt.Close()

	product, err := rt.svc.ScrapeURL(ctx, target)
	if err != nil {
		rt.logger.Error().Err(err).Str("url", target).Msg("scrape failed")
		fmt.Fprintf(os.Stderr, "Scrape failed: %v\n", err)
		return 1
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(product); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode product: %v\n", err)
		return 1
	}
	return 0
}
