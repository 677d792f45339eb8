// Command fetchuser prints one normalized user from the upstream API as JSON.
//
// Usage:
//
//	fetchuser -id 3 [-base https://jsonplaceholder.typicode.com] [-timeout 10s]
//
// Without -base the upstream base URL comes from the application config.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/lllypuk/userdir/internal/config"
	httphandler "github.com/lllypuk/userdir/internal/handler/http"
	"github.com/lllypuk/userdir/internal/infrastructure/upstream"
)

var errUsage = errors.New("usage error")

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			logger.Error("fetch failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fetchuser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	id := fs.Int("id", 0, "User ID to fetch (required)")
	baseURL := fs.String("base", "", "Upstream base URL (defaults to the configured upstream.base_url)")
	timeout := fs.Duration("timeout", config.DefaultUpstreamTimeout, "Request timeout")

	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *id <= 0 {
		_, _ = fmt.Fprintln(stderr, "-id must be a positive integer")
		fs.Usage()
		return errUsage
	}

	base := *baseURL
	userAgent := ""
	if base == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		base = cfg.Upstream.BaseURL
		userAgent = cfg.Upstream.UserAgent
	}

	client, err := upstream.NewClient(upstream.Config{
		BaseURL:    base,
		HTTPClient: &http.Client{Timeout: *timeout},
		UserAgent:  userAgent,
	})
	if err != nil {
		return err
	}

	u, err := client.GetUser(ctx, *id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(httphandler.ToUserResponse(u))
}
