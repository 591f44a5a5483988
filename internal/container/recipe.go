// Package container describes how the service is packaged into an image.
//
// The recipe has four sequential stages: base image selection, dependency
// installation from the module manifest, source copy and build, and the
// launch of a single foreground process. Each stage depends on the layer
// before it, and any failure aborts the build.
package container

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/Adenrele/Web-Portfolio/internal/config"
)

var (
	// ErrInvalidRecipe wraps every validation failure
	ErrInvalidRecipe = errors.New("invalid container recipe")

	envNameRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	envValueRe = regexp.MustCompile(`[\s"'\\$]`)
)

// Recipe is a two-stage image build for the service
type Recipe struct {
	BuilderImage  string
	BaseImage     string
	BuildPackages []string
	WorkDir       string
	Manifest      []string
	InstallCmd    string
	BuildCmd      string
	Binary        string
	Env           map[string]string
	ExposePort    int
	Entrypoint    []string
}

// DefaultRecipe is the image recipe for this repository
func DefaultRecipe() Recipe {
	return Recipe{
		BuilderImage:  "golang:1.24-alpine",
		BaseImage:     "alpine:3.20",
		BuildPackages: []string{"gcc", "musl-dev"}, // cgo for sqlite3
		WorkDir:       "/Code",
		Manifest:      []string{"go.mod", "go.sum"},
		InstallCmd:    "go mod download",
		BuildCmd:      "CGO_ENABLED=1 go build -trimpath -o /Code/portfolio ./cmd/server",
		Binary:        "portfolio",
		Env: map[string]string{
			config.EnvQRNoCache:     "1",
			config.EnvLogUnbuffered: "1",
		},
		ExposePort: config.DefaultPort,
		Entrypoint: []string{"./portfolio"},
	}
}

// EnvVar is one ENV instruction
type EnvVar struct {
	Name  string
	Value string
}

// SortedEnv returns the environment flags ordered by name
func (r Recipe) SortedEnv() []EnvVar {
	out := make([]EnvVar, 0, len(r.Env))
	for name, value := range r.Env {
		out = append(out, EnvVar{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate checks the recipe before it is rendered
func (r Recipe) Validate() error {
	var problems []string
	fail := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if err := checkPinned(r.BuilderImage); err != nil {
		fail("builder image: %v", err)
	}
	if err := checkPinned(r.BaseImage); err != nil {
		fail("base image: %v", err)
	}
	if len(r.Manifest) == 0 {
		fail("no manifest files")
	}
	if strings.TrimSpace(r.InstallCmd) == "" {
		fail("no install command")
	}
	if !path.IsAbs(r.WorkDir) {
		fail("workdir %q is not absolute", r.WorkDir)
	}
	if r.Binary == "" {
		fail("no binary name")
	}
	if len(r.Entrypoint) == 0 || r.Entrypoint[0] == "" {
		fail("no entry point")
	}
	if r.ExposePort < 1 || r.ExposePort > 65535 {
		fail("port %d out of range", r.ExposePort)
	}
	for _, env := range r.SortedEnv() {
		if !envNameRe.MatchString(env.Name) {
			fail("invalid env name %q", env.Name)
		}
		if env.Value == "" {
			fail("env %s has an empty value", env.Name)
		}
		if envValueRe.MatchString(env.Value) {
			fail("env %s value %q contains whitespace, quotes or escapes", env.Name, env.Value)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRecipe, strings.Join(problems, "; "))
	}
	return nil
}

// checkPinned requires an explicit tag other than latest, or a digest
func checkPinned(ref string) error {
	if ref == "" {
		return errors.New("empty image reference")
	}
	if strings.Contains(ref, "@sha256:") {
		return nil
	}

	name := ref[strings.LastIndex(ref, "/")+1:]
	i := strings.LastIndex(name, ":")
	if i < 0 || i == len(name)-1 {
		return fmt.Errorf("%q has no tag", ref)
	}
	if name[i+1:] == "latest" {
		return fmt.Errorf("%q uses the latest tag", ref)
	}
	return nil
}

const dockerfileTemplate = `# syntax=docker/dockerfile:1
FROM {{.BuilderImage}} AS builder
{{- if .BuildPackages}}

RUN apk add --no-cache {{join .BuildPackages " "}}
{{- end}}

WORKDIR {{.WorkDir}}

# Dependencies are installed from the manifest before the source is copied
COPY {{join .Manifest " "}} ./
RUN {{.InstallCmd}}

COPY . .
RUN {{.BuildCmd}}

FROM {{.BaseImage}}
WORKDIR {{.WorkDir}}
COPY --from=builder {{.WorkDir}}/{{.Binary}} ./{{.Binary}}
{{- if .Env}}
{{range .Env}}
ENV {{.Name}}={{.Value}}
{{- end}}
{{- end}}

EXPOSE {{.ExposePort}}
CMD {{json .Entrypoint}}
`

var dockerfile = template.Must(template.New("Dockerfile").Funcs(template.FuncMap{
	"join": strings.Join,
	"json": func(v interface{}) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}).Parse(dockerfileTemplate))

// Render validates the recipe and writes the Dockerfile. The output only
// depends on the recipe, so unchanged inputs render identical bytes.
func (r Recipe) Render(w io.Writer) error {
	if err := r.Validate(); err != nil {
		return err
	}

	data := struct {
		Recipe
		Env []EnvVar
	}{Recipe: r, Env: r.SortedEnv()}

	if err := dockerfile.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render Dockerfile: %w", err)
	}
	return nil
}
