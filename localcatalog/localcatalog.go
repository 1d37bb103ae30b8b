// Package localcatalog is the bundled game list used when IGDB cannot be
// reached. It maps a game name to the presence image key uploaded for it.
package localcatalog

import (
	"embed"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ryanm101/nxpresence/catalog"
	"gopkg.in/yaml.v3"
)

//go:embed games.yaml
var defaultsFS embed.FS

// DefaultImageKey is shown for games without bundled artwork.
const DefaultImageKey = "switch"

// Entry is one bundled game.
type Entry struct {
	Name  string `yaml:"name" json:"name"`
	Image string `yaml:"img" json:"img"`
}

type gamesFile struct {
	Games []Entry `yaml:"games"`
}

// Catalog is a read-only name → image key table. Order is preserved.
type Catalog struct {
	entries []Entry
	byName  map[string]int
}

// New builds a catalog. Later entries replace earlier ones with the same name.
func New(entries []Entry) *Catalog {
	c := &Catalog{byName: make(map[string]int, len(entries))}
	for _, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			continue
		}
		if i, ok := c.byName[e.Name]; ok {
			c.entries[i] = e
			continue
		}
		c.byName[e.Name] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c
}

var (
	cached     *Catalog
	cachedOnce sync.Once
)

// Load returns the embedded catalog merged with the first user games file
// found in: NXPRESENCE_GAMES_FILE, ./games.yaml, ~/.config/nxpresence/games.yaml.
func Load() *Catalog {
	cachedOnce.Do(func() {
		entries := loadEmbedded()
		for _, path := range userPaths() {
			if extra, err := loadFile(path); err == nil {
				entries = append(entries, extra...)
				break
			}
		}
		cached = New(entries)
	})
	return cached
}

func loadEmbedded() []Entry {
	data, err := defaultsFS.ReadFile("games.yaml")
	if err != nil {
		return nil
	}
	entries, err := parse(data)
	if err != nil {
		return nil
	}
	return entries
}

func userPaths() []string {
	var paths []string
	if p := os.Getenv("NXPRESENCE_GAMES_FILE"); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, "games.yaml")
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "nxpresence", "games.yaml"))
	}
	return paths
}

func loadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path from user configuration
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) ([]Entry, error) {
	var f gamesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Games, nil
}

// Len returns the number of games.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup finds a game by exact name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	i, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// ImageKey returns the image key for name, or DefaultImageKey.
func (c *Catalog) ImageKey(name string) string {
	if e, ok := c.Lookup(name); ok && e.Image != "" {
		return e.Image
	}
	return DefaultImageKey
}

// Search returns games whose name contains term, ignoring case.
// A limit <= 0 means no limit.
func (c *Catalog) Search(term string, limit int) []catalog.GameRecord {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []catalog.GameRecord{}
	}

	out := []catalog.GameRecord{}
	for _, e := range c.entries {
		if !strings.Contains(strings.ToLower(e.Name), term) {
			continue
		}
		out = append(out, catalog.GameRecord{Name: e.Name})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Popular returns the first limit games (all when limit <= 0).
func (c *Catalog) Popular(limit int) []catalog.GameRecord {
	n := len(c.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]catalog.GameRecord, 0, n)
	for _, e := range c.entries[:n] {
		out = append(out, catalog.GameRecord{Name: e.Name})
	}
	return out
}
