package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"rebalancer/internal/models"
	"rebalancer/internal/portfolio"
)

// Source supplies the symbol to price catalog.
type Source interface {
	Prices(ctx context.Context) (map[string]float64, error)
}

// FileSource reads a YAML mapping of symbol to price.
type FileSource struct {
	Path string
}

func (f FileSource) Prices(_ context.Context) (map[string]float64, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	prices := map[string]float64{}
	if err := yaml.Unmarshal(b, &prices); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return prices, nil
}

// Apply registers every catalog price into reg. The whole catalog is checked
// first, so an invalid entry leaves reg untouched.
func Apply(ctx context.Context, src Source, reg *portfolio.Registry) (int, error) {
	prices, err := src.Prices(ctx)
	if err != nil {
		return 0, err
	}
	symbols := make([]string, 0, len(prices))
	for s := range prices {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		if _, err := portfolio.CheckPrice(s, prices[s]); err != nil {
			return 0, err
		}
	}
	for _, s := range symbols {
		if _, err := reg.Set(s, prices[s]); err != nil {
			return 0, err
		}
	}
	return len(symbols), nil
}

// LoadPresets reads every *.yaml / *.yml allocation preset in dir, ordered by
// file name. Other files are skipped.
func LoadPresets(dir string) ([]models.Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	res := []models.Preset{}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		p, err := LoadPreset(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].File < res[j].File })
	return res, nil
}

func LoadPreset(path string) (models.Preset, error) {
	var p models.Preset
	b, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse %s: %w", path, err)
	}
	p.File = filepath.Base(path)
	if p.Name == "" {
		p.Name = strings.TrimSuffix(p.File, filepath.Ext(p.File))
	}
	if len(p.Allocation) == 0 {
		return p, fmt.Errorf("preset %s: empty allocation", path)
	}
	return p, nil
}

// FindPreset looks a preset up by name, case-insensitively.
func FindPreset(presets []models.Preset, name string) (models.Preset, bool) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return models.Preset{}, false
}
