package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CoverURLTemplate builds a cover image URL from an IGDB image id.
const CoverURLTemplate = "https://images.igdb.com/igdb/image/upload/t_cover_big/%s.jpg"

// GameRecord is a game as presented to callers.
type GameRecord struct {
	ID          *int64  `json:"id"`           // nil for local catalog entries
	Name        string  `json:"name"`
	CoverURL    *string `json:"cover_url"`
	ReleaseDate *int64  `json:"release_date"` // unix seconds
	Summary     *string `json:"summary,omitempty"`
}

// rawGame is a game object as returned by the IGDB games endpoint.
type rawGame struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Cover            *rawCover       `json:"cover"`
	FirstReleaseDate int64           `json:"first_release_date"`
	ParentGame       json.RawMessage `json:"parent_game"`
	Platforms        []int64         `json:"platforms"`
	Summary          string          `json:"summary"`
}

type rawCover struct {
	ImageID string `json:"image_id"`
}

// hasParent reports whether the record points at a base game, which marks
// DLC, expansions and re-releases.
func (g rawGame) hasParent() bool {
	v := bytes.TrimSpace(g.ParentGame)
	return len(v) > 0 && !bytes.Equal(v, []byte("null")) && !bytes.Equal(v, []byte("0"))
}

// CoverURL returns the cover URL for an image id, or nil when there is none.
func CoverURL(imageID string) *string {
	if imageID == "" {
		return nil
	}
	u := fmt.Sprintf(CoverURLTemplate, imageID)
	return &u
}

func (g rawGame) record(withSummary bool) GameRecord {
	id := g.ID
	rec := GameRecord{
		ID:   &id,
		Name: g.Name,
	}
	if g.Cover != nil {
		rec.CoverURL = CoverURL(g.Cover.ImageID)
	}
	if g.FirstReleaseDate != 0 {
		d := g.FirstReleaseDate
		rec.ReleaseDate = &d
	}
	if withSummary && g.Summary != "" {
		s := g.Summary
		rec.Summary = &s
	}
	return rec
}

// normalize drops records with a parent game when dropChildren is set and
// maps the rest to GameRecords.
func normalize(games []rawGame, dropChildren bool) []GameRecord {
	out := make([]GameRecord, 0, len(games))
	for _, g := range games {
		if dropChildren && g.hasParent() {
			continue
		}
		out = append(out, g.record(false))
	}
	return out
}
