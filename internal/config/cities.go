package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCities are offered when no cities file is configured.
var DefaultCities = []string{
	"London",
	"Los Angeles",
	"Paris",
	"New York",
	"Tokyo",
	"Delhi",
	"Beijing",
	"Mumbai",
	"Berlin",
	"Madrid",
}

type citiesFile struct {
	Cities []string `yaml:"cities"`
}

// LoadCities reads the featured cities from a YAML file of the form
//
//	cities:
//	  - London
//	  - Paris
//
// An empty path yields DefaultCities.
func LoadCities(path string) ([]string, error) {
	if path == "" {
		return append([]string(nil), DefaultCities...), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cities file %s: %w", path, err)
	}

	var f citiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse cities file: %w", err)
	}

	var cities []string
	seen := map[string]bool{}
	for _, c := range f.Cities {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		cities = append(cities, c)
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("cities file %s lists no cities", path)
	}
	return cities, nil
}
