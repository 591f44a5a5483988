package container

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRepositoryManifest(t *testing.T) {
	m, err := CheckManifest("../../go.mod")
	require.NoError(t, err)

	assert.Equal(t, "github.com/Adenrele/Web-Portfolio", m.Module)
	assert.NotEmpty(t, m.GoVersion)

	direct := make(map[string]bool)
	for _, r := range m.Direct() {
		direct[r.Path] = true
	}
	assert.True(t, direct["github.com/mattn/go-sqlite3"])
	assert.True(t, direct["gopkg.in/ini.v1"])
}

func TestRepositoryChecksumsCoverManifest(t *testing.T) {
	m, err := CheckManifest("../../go.mod")
	require.NoError(t, err)

	data, err := os.ReadFile("../../go.sum")
	require.NoError(t, err, "the image build copies go.sum next to go.mod")

	sums := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 3 && strings.HasPrefix(fields[2], "h1:") {
			sums[fields[0]+" "+fields[1]] = true
		}
	}

	for _, r := range m.Requires {
		assert.True(t, sums[r.Path+" "+r.Version], "%s %s has no module checksum", r.Path, r.Version)
		assert.True(t, sums[r.Path+" "+r.Version+"/go.mod"], "%s %s has no go.mod checksum", r.Path, r.Version)
	}
}

func TestParseManifest(t *testing.T) {
	src := []byte(`module example.com/site

go 1.22

require (
	example.com/a v1.2.3
	example.com/b v0.1.0 // indirect
)
`)
	m, err := ParseManifest("go.mod", src)
	require.NoError(t, err)

	assert.Equal(t, "example.com/site", m.Module)
	assert.Equal(t, "1.22", m.GoVersion)
	assert.Equal(t, []Requirement{
		{Path: "example.com/a", Version: "v1.2.3"},
		{Path: "example.com/b", Version: "v0.1.0", Indirect: true},
	}, m.Requires)
	assert.Len(t, m.Direct(), 1)
}

func TestInvalidManifest(t *testing.T) {
	_, err := ParseManifest("go.mod", []byte("module example.com/x\nrequire (\n"))
	assert.Error(t, err)

	_, err = ParseManifest("go.mod", []byte("go 1.22\n"))
	assert.Error(t, err)

	_, err = ParseManifest("go.mod", []byte("require example.com/a not-a-version\nmodule x\n"))
	assert.Error(t, err)
}

func TestCheckManifestMissingFile(t *testing.T) {
	_, err := CheckManifest(filepath.Join(t.TempDir(), "go.mod"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "go.mod")
	require.NoError(t, os.WriteFile(path, []byte("module example.com/ok\n"), 0o644))
	_, err = CheckManifest(path)
	assert.NoError(t, err)
}
