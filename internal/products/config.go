package products

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohammed-shakir/supermarkt-search/internal/brand"
)

// SourceConfig is one entry of the sources file.
type SourceConfig struct {
	Name    string            `json:"name"`
	Type    string            `json:"type"`
	URL     string            `json:"url,omitempty"`
	Index   string            `json:"index,omitempty"`
	File    string            `json:"file,omitempty"`
	Brands  []string          `json:"brands,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	// BrandField overrides the elastic field used for brand filtering.
	BrandField string `json:"brand_field,omitempty"`
	Size       int    `json:"size,omitempty"`
}

// LoadSources reads the sources file at path and builds each source in file
// order. Relative static file paths resolve against the sources file.
func LoadSources(path string, table *brand.Table, client *http.Client) ([]Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var cfgs []SourceConfig
	if err := json.Unmarshal(b, &cfgs); err != nil {
		return nil, fmt.Errorf("decode sources file: %w", err)
	}
	return Build(cfgs, filepath.Dir(path), table, client)
}

func Build(cfgs []SourceConfig, baseDir string, table *brand.Table, client *http.Client) ([]Source, error) {
	if table == nil {
		table = brand.Default()
	}
	seen := map[string]struct{}{}
	out := make([]Source, 0, len(cfgs))
	for i, c := range cfgs {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("source %d: name is required", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("source %q: duplicate name", name)
		}
		seen[name] = struct{}{}

		brands := make([]string, 0, len(c.Brands))
		for _, b := range c.Brands {
			brands = append(brands, table.Canonical(b))
		}

		switch strings.ToLower(c.Type) {
		case "http":
			if c.URL == "" {
				return nil, fmt.Errorf("source %q: url is required", name)
			}
			h := http.Header{}
			for k, v := range c.Headers {
				h.Set(k, os.ExpandEnv(v))
			}
			out = append(out, NewHTTP(name, c.URL, brands, client, h))
		case "elastic":
			if c.URL == "" || c.Index == "" {
				return nil, fmt.Errorf("source %q: url and index are required", name)
			}
			ec, err := NewElasticClient(c.URL)
			if err != nil {
				return nil, fmt.Errorf("source %q: %w", name, err)
			}
			out = append(out, NewElastic(name, ec, c.Index, brands, WithBrandField(c.BrandField), WithSize(c.Size)))
		case "static":
			p := c.File
			if p != "" && !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, p)
			}
			s, err := LoadStatic(name, p, brands, table)
			if err != nil {
				return nil, fmt.Errorf("source %q: %w", name, err)
			}
			out = append(out, s)
		default:
			return nil, fmt.Errorf("source %q: unknown type %q", name, c.Type)
		}
	}
	return out, nil
}
