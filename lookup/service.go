// Package lookup answers game queries from IGDB, falling back to the local
// catalog when IGDB is not configured or a request fails.
package lookup

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ryanm101/nxpresence/catalog"
	"github.com/ryanm101/nxpresence/localcatalog"
	"github.com/ryanm101/nxpresence/logging"
	"github.com/ryanm101/nxpresence/metrics"
)

// ErrUnavailable is reported when no IGDB client is configured.
var ErrUnavailable = errors.New("igdb catalog unavailable: twitch credentials not configured")

// Source names where a result came from.
type Source string

const (
	SourceIGDB  Source = "igdb"
	SourceLocal Source = "local"
)

// Catalog is the remote game catalog; *catalog.Client implements it.
type Catalog interface {
	SearchGames(ctx context.Context, term string, limit int) ([]catalog.GameRecord, error)
	GetPopularGames(ctx context.Context, limit int) ([]catalog.GameRecord, error)
	GetGameByID(ctx context.Context, id int64) (*catalog.GameRecord, error)
}

// Result is a list of games plus where they came from. Err holds the remote
// failure that caused a local fallback, if any.
type Result struct {
	Games  []catalog.GameRecord
	Source Source
	Err    error
}

// Service composes the remote and local catalogs.
type Service struct {
	remote Catalog
	local  *localcatalog.Catalog
	logger *slog.Logger
}

// NewService creates a lookup service. remote may be nil, in which case
// every list query is answered locally.
func NewService(remote Catalog, local *localcatalog.Catalog) *Service {
	if local == nil {
		local = localcatalog.New(nil)
	}
	return &Service{
		remote: remote,
		local:  local,
		logger: logging.Component("lookup"),
	}
}

// HasRemote reports whether an IGDB client is configured.
func (s *Service) HasRemote() bool {
	return s.remote != nil
}

// Search finds games by name.
func (s *Service) Search(ctx context.Context, term string, limit int) Result {
	if s.remote == nil {
		return s.fallback("search", s.local.Search(term, limit), ErrUnavailable)
	}

	games, err := s.remote.SearchGames(ctx, term, limit)
	if err != nil {
		return s.fallback("search", s.local.Search(term, limit), err)
	}
	return Result{Games: games, Source: SourceIGDB}
}

// Popular lists recent games for the initial picker.
func (s *Service) Popular(ctx context.Context, limit int) Result {
	if s.remote == nil {
		return s.fallback("popular", s.local.Popular(limit), ErrUnavailable)
	}

	games, err := s.remote.GetPopularGames(ctx, limit)
	if err != nil {
		return s.fallback("popular", s.local.Popular(limit), err)
	}
	return Result{Games: games, Source: SourceIGDB}
}

// Game fetches one game by IGDB id. Local entries have no ids, so there is
// no fallback; a nil game with a nil error means IGDB has no such id.
func (s *Service) Game(ctx context.Context, id int64) (*catalog.GameRecord, error) {
	if s.remote == nil {
		return nil, ErrUnavailable
	}
	return s.remote.GetGameByID(ctx, id)
}

// ImageKey returns the bundled presence image key for a game name.
func (s *Service) ImageKey(name string) string {
	return s.local.ImageKey(name)
}

func (s *Service) fallback(op string, games []catalog.GameRecord, cause error) Result {
	metrics.LookupFallbacks.WithLabelValues(op).Inc()
	if !errors.Is(cause, ErrUnavailable) {
		s.logger.Warn("igdb lookup failed, using local catalog", "operation", op, "error", cause)
	}
	return Result{Games: games, Source: SourceLocal, Err: cause}
}
