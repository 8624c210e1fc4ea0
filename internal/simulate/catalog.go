package simulate

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/cinerank/internal/domain/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the viewer's hidden taste: movies listed best first.
type Catalog struct {
	Movies []model.RankedItem
}

type catalogFile struct {
	Movies []struct {
		ID          int    `yaml:"id"`
		Title       string `yaml:"title"`
		PosterURL   string `yaml:"poster_url"`
		ReleaseDate string `yaml:"release_date"`
		Genres      []int  `yaml:"genres"`
	} `yaml:"movies"`
}

// LoadCatalog reads a catalog from path, or the built-in one when path is
// empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(bytes.NewReader(defaultCatalog))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseCatalog(f)
}

// ParseCatalog decodes a YAML catalog.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var raw catalogFile
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(raw.Movies) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{Movies: make([]model.RankedItem, 0, len(raw.Movies))}
	seen := make(map[model.ItemID]struct{}, len(raw.Movies))
	for i, m := range raw.Movies {
		id, err := model.NewItemID(m.ID)
		if err != nil {
			return nil, fmt.Errorf("movie %d: %w", i, err)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMovie, id)
		}
		seen[id] = struct{}{}

		item := model.RankedItem{ID: id, Title: m.Title, Genres: m.Genres}
		if m.PosterURL != "" {
			poster := m.PosterURL
			item.PosterURL = &poster
		}
		if m.ReleaseDate != "" {
			d, err := model.ParseDate(m.ReleaseDate)
			if err != nil {
				return nil, fmt.Errorf("movie %s release date: %w", id, err)
			}
			item.ReleaseDate = &d
		}
		c.Movies = append(c.Movies, item)
	}
	return c, nil
}

// prefers reports whether the viewer likes a better than b.
func (c *Catalog) prefers(a, b model.ItemID) bool {
	return c.position(a) < c.position(b)
}

func (c *Catalog) position(id model.ItemID) int {
	for i, m := range c.Movies {
		if m.ID == id {
			return i
		}
	}
	return len(c.Movies)
}

// ids returns the expected ranking, best first.
func (c *Catalog) ids() []model.ItemID {
	out := make([]model.ItemID, len(c.Movies))
	for i, m := range c.Movies {
		out[i] = m.ID
	}
	return out
}
