package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleINI = `[SRV_COMMON]
TraceLogEnabled = true
ContentFolder = content
DatabasePath = /data/site.db

[SRV_HTTP]
HTTP_IPInterface = 127.0.0.1
HTTP_Port = 8080

[SRV_MAIL]
MAIL_SERVER = smtp.example.com
MAIL_PORT = 2525
SEND_MAIL = site@example.com
RECEIVE_MAIL = me@example.com

[SRV_QR]
NoCache = true

[SRV_HTTPLOGINS]
admin = s3cret
`

func writeINI(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Interface)
	assert.Equal(t, DefaultTokenURL, cfg.OAuth.TokenURL)
	assert.True(t, cfg.Mail.UseTLS)
	assert.True(t, cfg.Server.CSRFEnabled)
	assert.Empty(t, cfg.HTTP.Logins)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
}

func TestLoadConfigFromINI(t *testing.T) {
	cfg, err := LoadConfig(writeINI(t, sampleINI))
	require.NoError(t, err)

	assert.True(t, cfg.Server.TraceLogEnabled)
	assert.Equal(t, "content", cfg.Server.ContentFolder)
	assert.Equal(t, "/data/site.db", cfg.Server.DatabasePath)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "smtp.example.com", cfg.Mail.Server)
	assert.Equal(t, 2525, cfg.Mail.Port)
	assert.Equal(t, "me@example.com", cfg.Mail.Recipient)
	assert.True(t, cfg.QR.NoCache)
	assert.Equal(t, map[string]string{"admin": "s3cret"}, cfg.HTTP.Logins)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.ini"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvMailServer, "smtp.gmail.com")
	t.Setenv(EnvMailPort, "465")
	t.Setenv(EnvReceiveMail, "inbox@example.com")
	t.Setenv(EnvClientID, "client")
	t.Setenv(EnvRefreshToken, "refresh")
	t.Setenv(EnvQRNoCache, "1")
	t.Setenv(EnvLogUnbuffered, "1")
	t.Setenv(EnvPort, "5001")

	cfg, err := LoadConfig(writeINI(t, sampleINI))
	require.NoError(t, err)

	assert.Equal(t, "smtp.gmail.com", cfg.Mail.Server)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, "inbox@example.com", cfg.Mail.Recipient)
	assert.Equal(t, 5001, cfg.HTTP.Port)
	assert.True(t, cfg.QR.NoCache)
	assert.True(t, cfg.Log.Unbuffered)
	assert.True(t, cfg.OAuthEnabled())
}

func TestInvalidMailPort(t *testing.T) {
	t.Setenv(EnvMailPort, "smtp")
	_, err := LoadConfig("")
	require.Error(t, err)
}

func TestEnvFlag(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "on"} {
		assert.True(t, envFlag(v), v)
	}
	for _, v := range []string{"", "0", "false", "No", "off"} {
		assert.False(t, envFlag(v), v)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := LoadConfig(writeINI(t, sampleINI))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "saved.ini")
	require.NoError(t, cfg.Save(out))

	reloaded, err := LoadConfig(out)
	require.NoError(t, err)
	assert.Equal(t, cfg.Addr(), reloaded.Addr())
	assert.Equal(t, cfg.Mail, reloaded.Mail)
	assert.Equal(t, cfg.HTTP.Logins, reloaded.HTTP.Logins)
}
