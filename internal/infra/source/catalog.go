package source

import (
	"fmt"
	"net/http"
	"os"

	"startup-radar/internal/usecase/reconcile"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one source entry in the catalog file.
type SourceConfig struct {
	Name      string    `yaml:"name"`
	Type      string    `yaml:"type"` // directory, rss, sample
	URL       string    `yaml:"url"`
	FirstYear int       `yaml:"first_year"`
	Selectors Selectors `yaml:"selectors"`
}

// Catalog is the set of configured sources, loaded from a YAML file.
type Catalog struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadCatalog reads and parses a source catalog from the given path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(catalog.Sources) == 0 {
		return nil, fmt.Errorf("catalog %s defines no sources", path)
	}
	return &catalog, nil
}

// Build instantiates every configured source adapter, keyed by name.
// The HTTP client should be configured with appropriate timeouts.
func (c *Catalog) Build(client *http.Client) (map[string]reconcile.RecordSource, error) {
	sources := make(map[string]reconcile.RecordSource, len(c.Sources))
	for _, cfg := range c.Sources {
		if cfg.Name == "" {
			return nil, fmt.Errorf("catalog entry with empty name")
		}
		if _, ok := sources[cfg.Name]; ok {
			return nil, fmt.Errorf("duplicate source name: %s", cfg.Name)
		}

		switch cfg.Type {
		case "directory":
			if cfg.URL == "" {
				return nil, fmt.Errorf("source %s: directory type requires url", cfg.Name)
			}
			if cfg.Selectors.Card == "" {
				return nil, fmt.Errorf("source %s: directory type requires selectors.card", cfg.Name)
			}
			sources[cfg.Name] = NewDirectorySource(cfg.Name, cfg.URL, cfg.FirstYear, cfg.Selectors, client)
		case "rss":
			if cfg.URL == "" {
				return nil, fmt.Errorf("source %s: rss type requires url", cfg.Name)
			}
			sources[cfg.Name] = NewRSSSource(cfg.Name, cfg.URL, client)
		case "sample":
			sources[cfg.Name] = NewSampleSource(cfg.Name)
		default:
			return nil, fmt.Errorf("source %s: unknown type %q", cfg.Name, cfg.Type)
		}
	}
	return sources, nil
}
