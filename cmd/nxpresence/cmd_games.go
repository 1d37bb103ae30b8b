package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ryanm101/nxpresence/catalog"
	"github.com/ryanm101/nxpresence/lookup"
)

func handleSearchCommand(ctx context.Context, args []string) {
	term := args[0]
	limit := parseLimitArg(args[1:], catalog.DefaultSearchLimit)

	svc, _ := newLookup()
	PrintProgress("Searching for %q...\n", term)
	res := svc.Search(ctx, term, limit)
	printGames(res)
}

func handlePopularCommand(ctx context.Context, args []string) {
	limit := parseLimitArg(args, catalog.DefaultPopularLimit)

	svc, _ := newLookup()
	res := svc.Popular(ctx, limit)
	printGames(res)
}

func handleGameCommand(ctx context.Context, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		PrintError("Error: invalid game id: %s\n", args[0])
		os.Exit(1)
	}

	svc, _ := newLookup()
	game, err := svc.Game(ctx, id)
	if err != nil {
		PrintError("Error: failed to get game: %v\n", err)
		os.Exit(1)
	}
	if game == nil {
		PrintError("Error: no game with id %d\n", id)
		os.Exit(1)
	}

	if outputCfg.JSON {
		PrintJSON(game)
		return
	}

	fmt.Printf("%s (IGDB %d)\n", game.Name, id)
	fmt.Printf("  Released:  %s\n", formatReleaseDate(game.ReleaseDate))
	fmt.Printf("  Cover:     %s\n", valueOr(game.CoverURL, "-"))
	fmt.Printf("  Image key: %s\n", svc.ImageKey(game.Name))
	if game.Summary != nil {
		fmt.Println()
		fmt.Println(*game.Summary)
	}
}

func printGames(res lookup.Result) {
	if res.Err != nil && res.Source == lookup.SourceLocal && !outputCfg.JSON {
		PrintError("Warning: IGDB unavailable (%v), showing local catalog\n", res.Err)
	}

	if outputCfg.JSON {
		out := map[string]any{
			"success": res.Err == nil,
			"source":  res.Source,
			"games":   res.Games,
		}
		if res.Err != nil {
			out["error"] = res.Err.Error()
		}
		PrintJSON(out)
		return
	}

	if len(res.Games) == 0 {
		PrintInfo("No games found.\n")
		return
	}

	rows := make([][]string, 0, len(res.Games))
	for _, g := range res.Games {
		id := "-"
		if g.ID != nil {
			id = strconv.FormatInt(*g.ID, 10)
		}
		rows = append(rows, []string{id, g.Name, formatReleaseDate(g.ReleaseDate)})
	}
	PrintTable([]string{"ID", "NAME", "RELEASED"}, rows)
	PrintInfo("\n%d games from %s\n", len(res.Games), res.Source)
}

func parseLimitArg(args []string, def int) int {
	if len(args) == 0 {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || n <= 0 {
		PrintError("Error: invalid limit: %s\n", args[0])
		os.Exit(1)
	}
	return n
}

func formatReleaseDate(ts *int64) string {
	if ts == nil {
		return "-"
	}
	return time.Unix(*ts, 0).UTC().Format("2006-01-02")
}

func valueOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
