package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adenrele/Web-Portfolio/internal/config"
	"github.com/Adenrele/Web-Portfolio/internal/container"
	"github.com/Adenrele/Web-Portfolio/internal/similarity"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "portfolio", cmd.Use)
	assert.NotNil(t, cmd.RunE, "running without a subcommand starts the server")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"serve", "qr", "similarity", "dockerfile"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)

	logFlag := cmd.PersistentFlags().Lookup("log")
	require.NotNil(t, logFlag)
	assert.Equal(t, "", logFlag.DefValue)
}

func TestQRCommand(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, "qr", "--url", "https://example.com", "--name", "site", "--type", "bmp", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "QR/site.bmp\n", stdout)

	_, err = os.Stat(filepath.Join(dir, "QR", "site.bmp"))
	assert.NoError(t, err)
}

func TestQRCommandErrors(t *testing.T) {
	_, _, err := execute(t, "qr", "--dir", t.TempDir())
	assert.Error(t, err)

	_, _, err = execute(t, "qr", "--url", "x", "--type", "svg", "--dir", t.TempDir())
	assert.Error(t, err)
}

func TestSimilarityCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "times.csv")
	require.NoError(t, os.WriteFile(path, []byte("Users,Times\nann,08:00:00\nben,08:05:00\ncat,20:00:00\n"), 0644))

	stdout, _, err := execute(t, "similarity", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "Most similar users: ann and ben"), stdout)

	stdout, _, err = execute(t, "similarity", "--json", path)
	require.NoError(t, err)
	var result similarity.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "ann", result.User1)
	assert.Equal(t, "ben", result.User2)

	_, _, err = execute(t, "similarity")
	assert.Error(t, err)
}

func TestDockerfileCommand(t *testing.T) {
	stdout, stderr, err := execute(t, "dockerfile", "--check", "../../go.mod")
	require.NoError(t, err)
	assert.Contains(t, stderr, "github.com/Adenrele/Web-Portfolio")

	var want bytes.Buffer
	require.NoError(t, container.DefaultRecipe().Render(&want))
	assert.Equal(t, want.String(), stdout)

	out := filepath.Join(t.TempDir(), "Dockerfile")
	_, _, err = execute(t, "dockerfile", "--check", "", "-o", out)
	require.NoError(t, err)
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want.String(), string(written))

	_, _, err = execute(t, "dockerfile", "--check", filepath.Join(t.TempDir(), "missing.mod"))
	assert.Error(t, err)
}

func TestServeMissingConfig(t *testing.T) {
	_, _, err := execute(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.ini"))
	assert.ErrorContains(t, err, "config file not found")
}

func TestServeStopsOnCancel(t *testing.T) {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.HTTP.Interface = "127.0.0.1"
	cfg.HTTP.Port = 0
	cfg.Server.DatabasePath = filepath.Join(dir, "portfolio.db")
	cfg.Server.StaticFolder = filepath.Join(dir, "static")
	cfg.Server.SecretKey = "test"
	cfg.Paths.LogPath = filepath.Join(dir, "logs")
	configPath := filepath.Join(dir, "config.ini")
	require.NoError(t, cfg.Save(configPath))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	cmd := NewRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--config", configPath})
	require.NoError(t, cmd.ExecuteContext(ctx))

	assert.Contains(t, stdout.String(), "Server stopped")
	_, err := os.Stat(filepath.Join(dir, "logs", "PortfolioLog.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(cfg.Server.DatabasePath)
	assert.NoError(t, err)
}
