package catalog

import (
	"context"
	"strings"

	"github.com/Henry-Sarabia/apicalypse"
	"github.com/ryanm101/nxpresence/metrics"
	"github.com/ryanm101/nxpresence/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const gamesEndpoint = "games"

type searchStage struct {
	name string
	opts []apicalypse.Option
}

// searchStages returns the queries SearchGames tries in order: full-text
// search on the configured platforms, a name wildcard on the same
// platforms, then full-text search on every platform.
func (c *Client) searchStages(term string, limit int) []searchStage {
	scoped := platformsIn(c.platforms)
	fields := apicalypse.Fields(searchFields...)
	lim := apicalypse.Limit(limit)
	return []searchStage{
		{name: "search", opts: []apicalypse.Option{search(term), fields, apicalypse.Where(scoped), lim}},
		{name: "name_contains", opts: []apicalypse.Option{fields, apicalypse.Where(scoped, nameContains(term)), lim}},
		{name: "unscoped", opts: []apicalypse.Option{search(term), fields, lim}},
	}
}

// SearchGames finds base games matching term. A blank term returns an
// empty result without contacting IGDB. Stages run until one returns rows;
// DLC and expansions are removed from that stage's rows. Any request
// failure aborts the search.
func (c *Client) SearchGames(ctx context.Context, term string, limit int) ([]GameRecord, error) {
	if strings.TrimSpace(term) == "" {
		return []GameRecord{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	ctx, span := tracing.StartSpan(ctx, "igdb.search_games",
		tracing.WithAttributes(attribute.String("igdb.term", term), attribute.Int("igdb.limit", limit)),
	)
	defer span.End()

	for _, stage := range c.searchStages(term, limit) {
		var games []rawGame
		q, err := buildQuery(stage.opts...)
		if err == nil {
			err = c.MakeRequest(ctx, gamesEndpoint, q, &games)
		}
		if err != nil {
			tracing.RecordError(span, err)
			c.logger.Error("search failed", "term", term, "stage", stage.name, "error", err)
			return nil, err
		}
		if len(games) == 0 {
			c.logger.Debug("no results, trying next stage", "term", term, "stage", stage.name)
			continue
		}

		metrics.SearchStage.WithLabelValues(stage.name).Inc()
		results := normalize(games, true)
		tracing.AddSpanAttributes(span,
			attribute.String("igdb.stage", stage.name),
			attribute.Int("igdb.results", len(results)),
		)
		tracing.SetSpanOK(span)
		c.logger.Debug("search complete", "term", term, "stage", stage.name, "results", len(results))
		return results, nil
	}

	metrics.SearchStage.WithLabelValues("none").Inc()
	tracing.SetSpanOK(span)
	return []GameRecord{}, nil
}

// GetPopularGames returns the most recently released base games on the
// configured platforms, newest first.
func (c *Client) GetPopularGames(ctx context.Context, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}

	ctx, span := tracing.StartSpan(ctx, "igdb.popular_games",
		tracing.WithAttributes(attribute.Int("igdb.limit", limit)),
	)
	defer span.End()

	q, err := buildQuery(
		apicalypse.Fields(popularFields...),
		apicalypse.Where(platformsIn(c.platforms), "parent_game = null", "first_release_date != null"),
		apicalypse.Sort("first_release_date", "desc"),
		apicalypse.Limit(limit),
	)
	var games []rawGame
	if err == nil {
		err = c.MakeRequest(ctx, gamesEndpoint, q, &games)
	}
	if err != nil {
		tracing.RecordError(span, err)
		c.logger.Error("failed to get popular games", "error", err)
		return nil, err
	}

	tracing.SetSpanOK(span)
	return normalize(games, false), nil
}

// GetGameByID returns the game with the given IGDB id including its
// summary, or nil when IGDB has no such game.
func (c *Client) GetGameByID(ctx context.Context, id int64) (*GameRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "igdb.get_game",
		tracing.WithAttributes(attribute.Int64("igdb.game_id", id)),
	)
	defer span.End()

	q, err := buildQuery(apicalypse.Fields(detailFields...), apicalypse.Where(idEquals(id)))
	var games []rawGame
	if err == nil {
		err = c.MakeRequest(ctx, gamesEndpoint, q, &games)
	}
	if err != nil {
		tracing.RecordError(span, err)
		c.logger.Error("failed to get game details", "id", id, "error", err)
		return nil, err
	}

	tracing.SetSpanOK(span)
	if len(games) == 0 {
		return nil, nil
	}
	rec := games[0].record(true)
	return &rec, nil
}
