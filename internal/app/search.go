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

func runSearch(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	query := fs.String("query", "", "Product search query")
	timeout := fs.Duration("timeout", 2*time.Minute, "Overall search timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	q := strings.TrimSpace(*query)
	if q == "" {
		q = strings.TrimSpace(strings.Join(fs.Args(), " "))
	}
	if q == "" {
		fmt.Fprintln(os.Stderr, "--query (or positional query text) is required")
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

	result, err := rt.svc.Search(ctx, q)
	if err != nil {
		rt.logger.Error().Err(err).Str("query", q).Msg("search failed")
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		return 1
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		return 1
	}
	return 0
}
