package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/ryanm101/nxpresence/auth"
	"github.com/ryanm101/nxpresence/catalog"
	"github.com/ryanm101/nxpresence/config"
	"github.com/ryanm101/nxpresence/localcatalog"
	"github.com/ryanm101/nxpresence/logging"
	"github.com/ryanm101/nxpresence/lookup"
	"github.com/ryanm101/nxpresence/tracing"
	"go.opentelemetry.io/otel/baggage"
)

var cfg *config.Config

func main() {
	ctx := context.Background()

	m, _ := baggage.NewMember("app.version", "1.0.0")
	b, _ := baggage.New(m)
	ctx = baggage.ContextWithBaggage(ctx, b)

	var err error
	cfg, err = config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	logging.Setup(logging.Config{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})

	shutdown, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		logging.Error("failed to setup tracing", "error", err)
		shutdown = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			logging.Error("failed to shutdown tracing", "error", err)
		}
	}()

	args := parseGlobalFlags(os.Args[1:])

	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "search":
		if len(args) < 2 {
			fmt.Println("Usage: nxpresence search <term> [limit]")
			os.Exit(1)
		}
		handleSearchCommand(ctx, args[1:])
	case "popular":
		handlePopularCommand(ctx, args[1:])
	case "game":
		if len(args) < 2 {
			fmt.Println("Usage: nxpresence game <igdb_id>")
			os.Exit(1)
		}
		handleGameCommand(ctx, args[1:])
	case "token":
		handleTokenCommand(ctx)
	case "serve":
		handleServeCommand(ctx)
	case "config":
		handleConfigCommand(args[1:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("nxpresence - Switch presence game lookup")
	fmt.Println()
	fmt.Println("Usage: nxpresence [global options] <command> [options]")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --json                  Output in JSON format")
	fmt.Println("  --quiet, -q             Suppress non-error output")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  search <term> [limit]   Search IGDB (local catalog on failure)")
	fmt.Println("  popular [limit]         List recent Switch releases")
	fmt.Println("  game <igdb_id>          Show game details")
	fmt.Println("  token                   Check Twitch credentials")
	fmt.Println("  serve                   Run the JSON API")
	fmt.Println("  config show             Show active configuration")
	fmt.Println("  config init             Initialize example config")
	fmt.Println("  help                    Show this help")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  TWITCH_CLIENT_ID        Twitch application client id")
	fmt.Println("  TWITCH_CLIENT_SECRET    Twitch application client secret")
	fmt.Println("  NXPRESENCE_CONFIG       Config file path")
	fmt.Println("  NXPRESENCE_PORT         API port (default: 8080)")
}

// newHTTPClient returns the client shared by Twitch and IGDB calls. Its
// timeout is the only deadline applied to catalog requests.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   cfg.GetTimeout(),
		Transport: tracing.Transport(nil),
	}
}

// newTokenProvider returns nil when no Twitch credentials are configured.
func newTokenProvider(hc *http.Client) *auth.TokenProvider {
	if !cfg.HasCredentials() {
		return nil
	}
	return auth.NewTokenProvider(cfg.IGDB.ClientID, cfg.IGDB.ClientSecret,
		auth.WithTokenURL(cfg.GetTokenURL()),
		auth.WithHTTPClient(hc),
	)
}

// newLookup wires the IGDB client (when configured) and the local catalog.
func newLookup() (*lookup.Service, *auth.TokenProvider) {
	hc := newHTTPClient()
	tokens := newTokenProvider(hc)
	if tokens == nil {
		logging.Warn("TWITCH_CLIENT_ID/TWITCH_CLIENT_SECRET not set, using local catalog only")
		return lookup.NewService(nil, localcatalog.Load()), nil
	}

	client := catalog.NewClient(tokens,
		catalog.WithBaseURL(cfg.GetBaseURL()),
		catalog.WithHTTPClient(hc),
		catalog.WithPlatforms(cfg.GetPlatforms()...),
	)
	return lookup.NewService(client, localcatalog.Load()), tokens
}
