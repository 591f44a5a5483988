package container

import (
	"fmt"
	"os"

	"golang.org/x/mod/modfile"
)

// Requirement is one module the build downloads
type Requirement struct {
	Path     string
	Version  string
	Indirect bool
}

// Manifest summarizes a go.mod file
type Manifest struct {
	Module    string
	GoVersion string
	Requires  []Requirement
}

// Direct returns the requirements not marked indirect
func (m *Manifest) Direct() []Requirement {
	var out []Requirement
	for _, r := range m.Requires {
		if !r.Indirect {
			out = append(out, r)
		}
	}
	return out
}

// CheckManifest parses the dependency manifest so that a malformed file is
// reported before an image build is attempted
func CheckManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(path, data)
}

// ParseManifest parses go.mod content; path is only used in error messages
func ParseManifest(path string, data []byte) (*Manifest, error) {
	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if f.Module == nil {
		return nil, fmt.Errorf("invalid manifest: %s has no module directive", path)
	}

	m := &Manifest{Module: f.Module.Mod.Path}
	if f.Go != nil {
		m.GoVersion = f.Go.Version
	}
	for _, r := range f.Require {
		m.Requires = append(m.Requires, Requirement{
			Path:     r.Mod.Path,
			Version:  r.Mod.Version,
			Indirect: r.Indirect,
		})
	}
	return m, nil
}
