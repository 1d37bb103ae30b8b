package catalog

import (
	"strconv"
	"strings"

	"github.com/Henry-Sarabia/apicalypse"
)

// Field projections used by the games endpoint.
var (
	searchFields  = []string{"name", "cover.image_id", "first_release_date", "parent_game", "platforms"}
	popularFields = []string{"name", "cover.image_id", "first_release_date"}
	detailFields  = []string{"name", "cover.image_id", "first_release_date", "summary"}
)

// buildQuery renders options into an Apicalypse body. Clause order is not
// significant to IGDB.
func buildQuery(opts ...apicalypse.Option) (string, error) {
	q, err := apicalypse.Query(opts...)
	if err != nil {
		return "", &CatalogError{Op: "build query", Endpoint: gamesEndpoint, Err: err}
	}
	return q, nil
}

// search is a full-text search clause for a user term.
func search(term string) apicalypse.Option {
	return apicalypse.Search("", escape(term))
}

var termEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// escape makes a user term safe to embed in a double-quoted string.
func escape(term string) string {
	return termEscaper.Replace(term)
}

func quote(term string) string {
	return `"` + escape(term) + `"`
}

// platformsIn matches games released on any of the given platforms.
func platformsIn(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "platforms = (" + strings.Join(parts, ",") + ")"
}

// nameContains matches names containing term, case-insensitively.
func nameContains(term string) string {
	return "name ~ *" + quote(term) + "*"
}

func idEquals(id int64) string {
	return "id = " + strconv.FormatInt(id, 10)
}
