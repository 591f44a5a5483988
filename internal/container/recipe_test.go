package container

import (
	"bytes"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adenrele/Web-Portfolio/internal/config"
)

func render(t *testing.T, r Recipe) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	return buf.String()
}

func TestDefaultRecipeGolden(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "Dockerfile", []byte(render(t, DefaultRecipe())))
}

func TestRepositoryDockerfileIsCurrent(t *testing.T) {
	onDisk, err := os.ReadFile("../../Dockerfile")
	require.NoError(t, err)
	assert.Equal(t, string(onDisk), render(t, DefaultRecipe()))
}

func TestRenderIsDeterministic(t *testing.T) {
	first := render(t, DefaultRecipe())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, render(t, DefaultRecipe()))
	}
}

func TestSingleCommandWithoutArguments(t *testing.T) {
	out := render(t, DefaultRecipe())

	cmds := regexp.MustCompile(`(?m)^CMD (.*)$`).FindAllStringSubmatch(out, -1)
	require.Len(t, cmds, 1)
	assert.Equal(t, `["./portfolio"]`, cmds[0][1])
	assert.NotContains(t, out, "ENTRYPOINT")
}

func TestEnvironmentFlagsPresent(t *testing.T) {
	out := render(t, DefaultRecipe())

	for _, name := range []string{config.EnvQRNoCache, config.EnvLogUnbuffered} {
		m := regexp.MustCompile(`(?m)^ENV ` + name + `=(\S+)$`).FindStringSubmatch(out)
		require.NotNil(t, m, name)
		assert.NotEmpty(t, m[1])
	}
}

func TestExposedPort(t *testing.T) {
	out := render(t, DefaultRecipe())
	assert.Contains(t, out, "\nEXPOSE 5000\n")
}

func TestManifestCopiedBeforeSource(t *testing.T) {
	out := render(t, DefaultRecipe())

	manifest := strings.Index(out, "COPY go.mod go.sum ./")
	install := strings.Index(out, "RUN go mod download")
	source := strings.Index(out, "COPY . .")
	require.True(t, manifest >= 0 && install >= 0 && source >= 0)
	assert.Less(t, manifest, install)
	assert.Less(t, install, source)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultRecipe().Validate())

	cases := map[string]func(r *Recipe){
		"latest tag":      func(r *Recipe) { r.BaseImage = "alpine:latest" },
		"untagged":        func(r *Recipe) { r.BuilderImage = "golang" },
		"empty tag":       func(r *Recipe) { r.BaseImage = "alpine:" },
		"no manifest":     func(r *Recipe) { r.Manifest = nil },
		"relative dir":    func(r *Recipe) { r.WorkDir = "Code" },
		"no entry point":  func(r *Recipe) { r.Entrypoint = nil },
		"port zero":       func(r *Recipe) { r.ExposePort = 0 },
		"port too large":  func(r *Recipe) { r.ExposePort = 70000 },
		"empty env value": func(r *Recipe) { r.Env["EMPTY"] = "" },
		"bad env name":    func(r *Recipe) { r.Env["1BAD"] = "x" },
		"env newline":     func(r *Recipe) { r.Env["FLAG"] = "1\nRUN rm -rf /" },
		"env space":       func(r *Recipe) { r.Env["FLAG"] = "a b" },
		"env quote":       func(r *Recipe) { r.Env["FLAG"] = `"1"` },
		"env variable":    func(r *Recipe) { r.Env["FLAG"] = "$HOME" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := DefaultRecipe()
			mutate(&r)
			assert.ErrorIs(t, r.Validate(), ErrInvalidRecipe)
			assert.Error(t, r.Render(&bytes.Buffer{}))
		})
	}
}

func TestCheckPinned(t *testing.T) {
	assert.NoError(t, checkPinned("registry.example.com:5000/golang:1.24"))
	assert.NoError(t, checkPinned("alpine@sha256:abcdef"))
	assert.Error(t, checkPinned("registry.example.com:5000/golang"))
}

func TestRecipeWithoutOptionalParts(t *testing.T) {
	r := DefaultRecipe()
	r.BuildPackages = nil
	r.Env = nil

	out := render(t, r)
	assert.NotContains(t, out, "apk add")
	assert.NotContains(t, out, "ENV ")
	assert.Contains(t, out, "FROM golang:1.24-alpine AS builder\n\nWORKDIR /Code\n")
	assert.Contains(t, out, "./portfolio\n\nEXPOSE 5000\n")
}
