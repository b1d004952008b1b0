// SPDX-License-Identifier: Apache-2.0

// Package config loads per-module build.yml files and discovers buildable
// modules under the base path.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dbuild-io/dbuild/internal/output"
)

// ConfigFileName is the optional per-module configuration file.
const ConfigFileName = "build.yml"

// RecipeFileName marks a directory as a buildable module.
const RecipeFileName = "Dockerfile"

var reModuleName = regexp.MustCompile(`^[a-z0-9-]+$`)

// Variant is one named configuration axis of a module.
type Variant struct {
	Tag        string            `yaml:"tag"`
	Aliases    []string          `yaml:"aliases"`
	Repository string            `yaml:"repository"`
	Args       map[string]string `yaml:"args"`
}

// Module is the decoded build.yml for one module. A missing file decodes to
// the zero value.
type Module struct {
	Repository string            `yaml:"repository"`
	Args       map[string]string `yaml:"args"`
	Variants   []Variant         `yaml:"variants"`
}

// HasVariants reports whether the module declares any variants.
func (m *Module) HasVariants() bool {
	return len(m.Variants) > 0
}

// Variant returns the declared variant with the given canonical tag, or nil.
func (m *Module) Variant(tag string) *Variant {
	for i := range m.Variants {
		if m.Variants[i].Tag == tag {
			return &m.Variants[i]
		}
	}
	return nil
}

// RunConfig carries the per-invocation settings threaded into every verb.
type RunConfig struct {
	BasePath    string
	Workers     int
	ShowPlans   bool
	Debug       bool
	BuildLog    bool
	BuildLogDir string
}

// Loader reads and caches per-module configuration.
type Loader struct {
	basePath string

	mu    sync.Mutex
	cache map[string]*Module
}

// NewLoader creates a Loader rooted at basePath.
func NewLoader(basePath string) *Loader {
	return &Loader{
		basePath: basePath,
		cache:    make(map[string]*Module),
	}
}

// Load returns the module's build.yml, validated and decoded. A missing file
// yields an empty configuration. Results are cached per module.
func (l *Loader) Load(module string) (*Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.cache[module]; ok {
		return cached, nil
	}

	path := filepath.Join(l.basePath, module, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		m := &Module{}
		l.cache[module] = m
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	if err := validate(data); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	var m Module
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}

	l.cache[module] = &m
	return &m, nil
}

// ListModules returns the sorted names of immediate subdirectories of path
// that contain a build recipe. Directories with names outside [a-z0-9-]+ are
// skipped.
func ListModules(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("error listing modules in %s: %w", path, err)
	}

	var modules []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if _, err := os.Stat(filepath.Join(path, entry.Name(), RecipeFileName)); err != nil {
			continue
		}

		if !reModuleName.MatchString(entry.Name()) {
			output.Debug("ignoring module with invalid name", "module", entry.Name())
			continue
		}

		modules = append(modules, entry.Name())
	}

	sort.Strings(modules)
	return modules, nil
}
