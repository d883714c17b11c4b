package catalog

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/devjourney-backend/internal/domain/development"
)

//go:embed seed.yaml
var seedFS embed.FS

const maxChoices = 3

// Catalog is an immutable snapshot of the authored content.
type Catalog struct {
	entries []types.CatalogEntry
	byID    map[string]int
	modules []types.CatalogModule
}

type yamlCatalog struct {
	Version int                   `yaml:"version"`
	Modules []types.CatalogModule `yaml:"modules"`
	Entries []yamlEntry           `yaml:"entries"`
}

// yamlEntry defaults is_active to true when the key is omitted.
type yamlEntry types.CatalogEntry

func (e *yamlEntry) UnmarshalYAML(n *yaml.Node) error {
	type plain types.CatalogEntry
	p := plain{IsActive: true}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*e = yamlEntry(p)
	return nil
}

// New validates entries and modules and builds a catalog from them.
func New(entries []types.CatalogEntry, modules []types.CatalogModule) (*Catalog, error) {
	c := &Catalog{
		entries: make([]types.CatalogEntry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
		modules: append([]types.CatalogModule(nil), modules...),
	}
	for _, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			return nil, errors.New("catalog entry id is required")
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog entry id: %s", e.ID)
		}
		if e.AgeMinMonths < 0 || e.AgeMaxMonths < e.AgeMinMonths {
			return nil, fmt.Errorf("catalog entry %s: invalid age range %d-%d", e.ID, e.AgeMinMonths, e.AgeMaxMonths)
		}
		if len(e.Choices) > maxChoices {
			return nil, fmt.Errorf("catalog entry %s: at most %d choices", e.ID, maxChoices)
		}
		if strings.TrimSpace(e.Prompt) == "" {
			return nil, fmt.Errorf("catalog entry %s: prompt is required", e.ID)
		}
		c.byID[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	seen := map[string]bool{}
	for _, m := range c.modules {
		if m.ID == "" {
			return nil, errors.New("catalog module id is required")
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate catalog module id: %s", m.ID)
		}
		seen[m.ID] = true
		if m.AgeMaxMonths < m.AgeMinMonths {
			return nil, fmt.Errorf("catalog module %s: invalid age range %d-%d", m.ID, m.AgeMinMonths, m.AgeMaxMonths)
		}
	}
	return c, nil
}

// LoadYAML parses a catalog document.
func LoadYAML(r io.Reader) (*Catalog, error) {
	var doc yamlCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	entries := make([]types.CatalogEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		entries = append(entries, types.CatalogEntry(e))
	}
	return New(entries, doc.Modules)
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

var (
	seedOnce sync.Once
	seed     *Catalog
	seedErr  error
)

// Default returns the embedded seed catalog.
func Default() (*Catalog, error) {
	seedOnce.Do(func() {
		raw, err := seedFS.ReadFile("seed.yaml")
		if err != nil {
			seedErr = err
			return
		}
		seed, seedErr = LoadYAML(bytes.NewReader(raw))
	})
	return seed, seedErr
}

// Load reads path, or the embedded seed when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return LoadFile(path)
}

// Entries returns every entry, inactive ones included, in authored order.
func (c *Catalog) Entries() []types.CatalogEntry {
	return append([]types.CatalogEntry(nil), c.entries...)
}

func (c *Catalog) Entry(id string) (types.CatalogEntry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return types.CatalogEntry{}, false
	}
	return c.entries[i], true
}

func (c *Catalog) Modules() []types.CatalogModule {
	return append([]types.CatalogModule(nil), c.modules...)
}

// ModuleFor returns the first authored module whose band contains the age.
func (c *Catalog) ModuleFor(ageInMonths int) (types.CatalogModule, bool) {
	for _, m := range c.modules {
		if m.MatchesAge(ageInMonths) {
			return m, true
		}
	}
	return types.CatalogModule{}, false
}

// Domains lists the distinct domains of the active entries, in first-seen order.
func (c *Catalog) Domains() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range c.entries {
		if !e.IsActive {
			continue
		}
		d := e.DomainOrDefault()
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
