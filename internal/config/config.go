// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config loads the INI-style configuration file of spec.md
// §6: a DEFAULT section with at least `key` (the encryption key) and
// `default_model_name`, read from ~/.dk.ini, overridden by ./dk.ini,
// overridden by $DK_CONFIG. No INI parser appears anywhere in the
// retrieved pack, so this one component is hand-rolled over
// bufio.Scanner rather than pulled in as a third-party dependency
// (see DESIGN.md's ambient-stack justification).
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dkcore/dk/internal/dkerr"
)

const DefaultSection = "DEFAULT"

// Config holds parsed INI sections, each a flat string key-value map.
type Config struct {
	sections map[string]map[string]string
}

// Get returns a key from the named section, falling back to DEFAULT
// if absent there, matching Python configparser's fallback semantics.
func (c *Config) Get(section, key string) (string, bool) {
	if s, ok := c.sections[section]; ok {
		if v, ok := s[key]; ok {
			return v, true
		}
	}
	if section != DefaultSection {
		if s, ok := c.sections[DefaultSection]; ok {
			if v, ok := s[key]; ok {
				return v, true
			}
		}
	}
	return "", false
}

// Key returns DEFAULT.key, the model encryption key.
func (c *Config) Key() (string, bool) { return c.Get(DefaultSection, "key") }

// DefaultModelName returns DEFAULT.default_model_name.
func (c *Config) DefaultModelName() (string, bool) {
	return c.Get(DefaultSection, "default_model_name")
}

// Debug reports whether $DK_DEBUG is set to a truthy value, disabling
// top-level exception trapping for diagnostics per spec.md §6.
func Debug() bool {
	v := strings.ToLower(os.Getenv("DK_DEBUG"))
	return v == "true" || v == "1" || v == "yes"
}

// Load resolves the configuration path in the order $DK_CONFIG,
// ./dk.ini, ~/.dk.ini and parses it. It is not an error for none of
// these to exist; Load then returns an empty Config.
func Load() (*Config, error) {
	if explicit := os.Getenv("DK_CONFIG"); explicit != "" {
		return Parse(explicit)
	}
	if _, err := os.Stat("dk.ini"); err == nil {
		return Parse("dk.ini")
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".dk.ini")
		if _, err := os.Stat(p); err == nil {
			return Parse(p)
		}
	}
	return &Config{sections: map[string]map[string]string{}}, nil
}

// Parse reads and parses the INI file at path.
func Parse(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &dkerr.ConfigError{Detail: fmt.Sprintf("opening config %s: %v", path, err)}
	}
	defer f.Close()

	cfg := &Config{sections: map[string]map[string]string{}}
	section := DefaultSection
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			if _, ok := cfg.sections[section]; !ok {
				cfg.sections[section] = map[string]string{}
			}
			continue
		}
		idx := strings.IndexAny(line, "=:")
		if idx < 0 {
			return nil, &dkerr.ConfigError{Detail: fmt.Sprintf("%s:%d: expected key=value, got %q", path, lineNo, line)}
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if _, ok := cfg.sections[section]; !ok {
			cfg.sections[section] = map[string]string{}
		}
		cfg.sections[section][key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, &dkerr.ConfigError{Detail: err.Error()}
	}
	return cfg, nil
}
