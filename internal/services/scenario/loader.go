package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/models"
	"gopkg.in/yaml.v3"
)

// scenarioFile is the on-disk layout: a list of scenarios under "scenarios"
// ([[scenarios]] tables in TOML, a "scenarios:" sequence in YAML).
type scenarioFile struct {
	Scenarios []models.Scenario `toml:"scenarios" yaml:"scenarios"`
}

// LoadFile parses one *.toml, *.yaml or *.yml scenario file
func LoadFile(path string) ([]models.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}

	var file scenarioFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported scenario file type: %s", path)
	}

	for i := range file.Scenarios {
		file.Scenarios[i].Source = path
		if err := Validate(file.Scenarios[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	return file.Scenarios, nil
}

// LoadDir loads every scenario file in dir (not recursive), in name order.
// Duplicate scenario names across files are rejected.
func LoadDir(dir string) ([]models.Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".toml", ".yaml", ".yml":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var all []models.Scenario
	seen := map[string]string{}
	for _, name := range names {
		path := filepath.Join(dir, name)
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, sc := range loaded {
			if previous, dup := seen[sc.Name]; dup {
				return nil, fmt.Errorf("duplicate scenario %q in %s (already defined in %s)", sc.Name, path, previous)
			}
			seen[sc.Name] = path
			all = append(all, sc)
		}
	}

	return all, nil
}

// Catalogue returns the builtin scenarios merged with those in dir.
// A file scenario replaces the builtin of the same name; new names are
// appended after the builtins.
func Catalogue(dir string, logger arbor.ILogger) ([]models.Scenario, error) {
	catalogue := Builtin()
	if dir == "" {
		return catalogue, nil
	}

	loaded, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(catalogue))
	for i, sc := range catalogue {
		index[sc.Name] = i
	}

	for _, sc := range loaded {
		if i, ok := index[sc.Name]; ok {
			logger.Info().Str("scenario", sc.Name).Str("source", sc.Source).Msg("Scenario file overrides builtin")
			catalogue[i] = sc
			continue
		}
		index[sc.Name] = len(catalogue)
		catalogue = append(catalogue, sc)
	}

	logger.Debug().Int("loaded", len(loaded)).Int("total", len(catalogue)).Str("dir", dir).Msg("Scenario files loaded")
	return catalogue, nil
}
