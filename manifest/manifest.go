// Package manifest handles hashalg.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "hashalg.toml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid manifest")

// Manifest represents a hashalg.toml project configuration.
type Manifest struct {
	Project  Project            `toml:"project"`
	Store    StoreConfig        `toml:"store"`
	Log      LogConfig          `toml:"log"`
	Check    CheckConfig        `toml:"check"`
	Fixtures map[string]Fixture `toml:"fixtures"`

	// Dir is the directory containing the hashalg.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// StoreConfig locates the digest store.
type StoreConfig struct {
	Path string `toml:"path"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// CheckConfig tunes `hashalg check`.
type CheckConfig struct {
	Workers int `toml:"workers"`
}

// Fixture is a named tree with optional expectations about its digest.
type Fixture struct {
	Expr        string `toml:"expr"`
	Digest      *int64 `toml:"digest"`
	SameAs      string `toml:"same_as"`
	DiffersFrom string `toml:"differs_from"`
}

// Defaults
const (
	DefaultStorePath = ".hashalg/digests.db"
	DefaultWorkers   = 4
)

// Load parses the hashalg.toml file in the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates manifest TOML, applying defaults. Dir is left
// empty.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	if m.Store.Path == "" {
		m.Store.Path = DefaultStorePath
	}
	if m.Check.Workers <= 0 {
		m.Check.Workers = DefaultWorkers
	}
	if m.Fixtures == nil {
		m.Fixtures = map[string]Fixture{}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a hashalg.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks that every fixture has an expression and that fixture
// cross-references name existing fixtures.
func (m *Manifest) Validate() error {
	for _, name := range m.FixtureNames() {
		f := m.Fixtures[name]
		if f.Expr == "" {
			return fmt.Errorf("%w: fixture %q has no expr", ErrInvalid, name)
		}
		for _, ref := range []string{f.SameAs, f.DiffersFrom} {
			if ref == "" {
				continue
			}
			if _, ok := m.Fixtures[ref]; !ok {
				return fmt.Errorf("%w: fixture %q refers to unknown fixture %q", ErrInvalid, name, ref)
			}
		}
	}
	return nil
}

// FixtureNames returns the fixture names in sorted order.
func (m *Manifest) FixtureNames() []string {
	names := make([]string, 0, len(m.Fixtures))
	for name := range m.Fixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StorePath returns the absolute path of the digest store.
func (m *Manifest) StorePath() string {
	if filepath.IsAbs(m.Store.Path) || m.Dir == "" {
		return m.Store.Path
	}
	return filepath.Join(m.Dir, m.Store.Path)
}
