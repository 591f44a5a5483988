package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Defaults for the portfolio service
const (
	DefaultPort         = 5000
	DefaultMailPort     = 587
	DefaultTokenURL     = "https://oauth2.googleapis.com/token"
	DefaultTokenInfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"
)

// Environment flags baked into the container image
const (
	EnvQRNoCache     = "PORTFOLIO_QR_NOCACHE"
	EnvLogUnbuffered = "PORTFOLIO_LOG_UNBUFFERED"
	EnvPort          = "PORTFOLIO_PORT"
	EnvLogPath       = "LOG_PATH"
	EnvSecretKey     = "app_secret_key"
	EnvMailServer    = "mailserver"
	EnvMailPort      = "mailport"
	EnvSendMail      = "SEND_MAIL"
	EnvAppPassword   = "APP_PASSWORD"
	EnvReceiveMail   = "receivemail"
	EnvClientID      = "GOOGLE_CLIENT_ID"
	EnvClientSecret  = "GOOGLE_CLIENT_SECRET"
	EnvRefreshToken  = "GOOGLE_REFRESH_TOKEN"
)

// Config holds all configuration for the portfolio server
type Config struct {
	Server struct {
		TraceLogEnabled bool
		ContentFolder   string
		StaticFolder    string
		DatabasePath    string
		SecretKey       string
		CSRFEnabled     bool
	}

	HTTP struct {
		Interface string
		Port      int
		MaxConns  int
		Logins    map[string]string
	}

	Mail struct {
		Server    string
		Port      int
		UseTLS    bool
		UseSSL    bool
		Sender    string
		Password  string
		Recipient string
	}

	OAuth struct {
		ClientID     string
		ClientSecret string
		RefreshToken string
		TokenURL     string
		TokenInfoURL string
	}

	QR struct {
		NoCache bool
	}

	Log struct {
		Unbuffered bool
	}

	Paths struct {
		LogPath string
	}
}

// Default returns a configuration populated with built-in defaults only
func Default() *Config {
	var cfg Config

	cfg.Server.TraceLogEnabled = false
	cfg.Server.ContentFolder = ""
	cfg.Server.StaticFolder = "static"
	cfg.Server.DatabasePath = "portfolio.db"
	cfg.Server.CSRFEnabled = true

	cfg.HTTP.Interface = "0.0.0.0"
	cfg.HTTP.Port = DefaultPort
	cfg.HTTP.MaxConns = 256
	cfg.HTTP.Logins = make(map[string]string)

	cfg.Mail.Port = DefaultMailPort
	cfg.Mail.UseTLS = true
	cfg.Mail.UseSSL = false

	cfg.OAuth.TokenURL = DefaultTokenURL
	cfg.OAuth.TokenInfoURL = DefaultTokenInfoURL

	cfg.Paths.LogPath = "logs"

	return &cfg
}

// LoadConfig loads the configuration from the specified INI file.
// An empty path skips the file and uses defaults plus environment.
// A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cannot load .env file: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}

		iniFile, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("cannot load config file: %w", err)
		}
		cfg.applyINI(iniFile)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyINI(iniFile *ini.File) {
	// [SRV_COMMON] section
	commonSec := iniFile.Section("SRV_COMMON")
	c.Server.TraceLogEnabled = commonSec.Key("TraceLogEnabled").MustBool(c.Server.TraceLogEnabled)
	c.Server.ContentFolder = commonSec.Key("ContentFolder").MustString(c.Server.ContentFolder)
	c.Server.StaticFolder = commonSec.Key("StaticFolder").MustString(c.Server.StaticFolder)
	c.Server.DatabasePath = commonSec.Key("DatabasePath").MustString(c.Server.DatabasePath)
	c.Server.SecretKey = commonSec.Key("SecretKey").MustString(c.Server.SecretKey)
	c.Server.CSRFEnabled = commonSec.Key("CSRFEnabled").MustBool(c.Server.CSRFEnabled)
	if logPath := commonSec.Key("LogFolder").String(); logPath != "" {
		c.Paths.LogPath = logPath
	}

	// [SRV_HTTP] section
	httpSec := iniFile.Section("SRV_HTTP")
	c.HTTP.Interface = httpSec.Key("HTTP_IPInterface").MustString(c.HTTP.Interface)
	c.HTTP.Port = httpSec.Key("HTTP_Port").MustInt(c.HTTP.Port)
	c.HTTP.MaxConns = httpSec.Key("HTTP_MaxConns").MustInt(c.HTTP.MaxConns)

	// [SRV_MAIL] section
	mailSec := iniFile.Section("SRV_MAIL")
	c.Mail.Server = mailSec.Key("MAIL_SERVER").MustString(c.Mail.Server)
	c.Mail.Port = mailSec.Key("MAIL_PORT").MustInt(c.Mail.Port)
	c.Mail.UseTLS = mailSec.Key("MAIL_USE_TLS").MustBool(c.Mail.UseTLS)
	c.Mail.UseSSL = mailSec.Key("MAIL_USE_SSL").MustBool(c.Mail.UseSSL)
	c.Mail.Sender = mailSec.Key("SEND_MAIL").MustString(c.Mail.Sender)
	c.Mail.Password = mailSec.Key("APP_PASSWORD").MustString(c.Mail.Password)
	c.Mail.Recipient = mailSec.Key("RECEIVE_MAIL").MustString(c.Mail.Recipient)

	// [SRV_OAUTH] section
	oauthSec := iniFile.Section("SRV_OAUTH")
	c.OAuth.ClientID = oauthSec.Key("CLIENT_ID").MustString(c.OAuth.ClientID)
	c.OAuth.ClientSecret = oauthSec.Key("CLIENT_SECRET").MustString(c.OAuth.ClientSecret)
	c.OAuth.RefreshToken = oauthSec.Key("REFRESH_TOKEN").MustString(c.OAuth.RefreshToken)
	c.OAuth.TokenURL = oauthSec.Key("TOKEN_URL").MustString(c.OAuth.TokenURL)
	c.OAuth.TokenInfoURL = oauthSec.Key("TOKENINFO_URL").MustString(c.OAuth.TokenInfoURL)

	// [SRV_QR] section
	c.QR.NoCache = iniFile.Section("SRV_QR").Key("NoCache").MustBool(c.QR.NoCache)

	// [SRV_HTTPLOGINS] section
	loginSec := iniFile.Section("SRV_HTTPLOGINS")
	for _, key := range loginSec.Keys() {
		c.HTTP.Logins[key.Name()] = key.String()
	}
}

// applyEnv overrides values with the variable names the site was deployed with
func (c *Config) applyEnv() error {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	setString(EnvLogPath, &c.Paths.LogPath)
	setString(EnvSecretKey, &c.Server.SecretKey)
	setString(EnvMailServer, &c.Mail.Server)
	setString(EnvSendMail, &c.Mail.Sender)
	setString(EnvAppPassword, &c.Mail.Password)
	setString(EnvReceiveMail, &c.Mail.Recipient)
	setString(EnvClientID, &c.OAuth.ClientID)
	setString(EnvClientSecret, &c.OAuth.ClientSecret)
	setString(EnvRefreshToken, &c.OAuth.RefreshToken)

	if v := os.Getenv(EnvMailPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMailPort, v, err)
		}
		c.Mail.Port = port
	}

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.HTTP.Port = port
	}

	if v, ok := os.LookupEnv(EnvQRNoCache); ok {
		c.QR.NoCache = envFlag(v)
	}
	if v, ok := os.LookupEnv(EnvLogUnbuffered); ok {
		c.Log.Unbuffered = envFlag(v)
	}

	return nil
}

// envFlag treats any non-empty value other than an explicit false as set
func envFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

// OAuthEnabled reports whether a refresh token flow is configured
func (c *Config) OAuthEnabled() bool {
	return c.OAuth.ClientID != "" && c.OAuth.RefreshToken != ""
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Interface, c.HTTP.Port)
}

// Save writes the current configuration to the specified file
func (c *Config) Save(path string) error {
	file := ini.Empty()

	// [SRV_COMMON] section
	commonSec, _ := file.NewSection("SRV_COMMON")
	commonSec.NewKey("TraceLogEnabled", fmt.Sprintf("%t", c.Server.TraceLogEnabled))
	commonSec.NewKey("ContentFolder", c.Server.ContentFolder)
	commonSec.NewKey("StaticFolder", c.Server.StaticFolder)
	commonSec.NewKey("DatabasePath", c.Server.DatabasePath)
	commonSec.NewKey("SecretKey", c.Server.SecretKey)
	commonSec.NewKey("CSRFEnabled", fmt.Sprintf("%t", c.Server.CSRFEnabled))
	commonSec.NewKey("LogFolder", c.Paths.LogPath)

	// [SRV_HTTP] section
	httpSec, _ := file.NewSection("SRV_HTTP")
	httpSec.NewKey("HTTP_IPInterface", c.HTTP.Interface)
	httpSec.NewKey("HTTP_Port", fmt.Sprintf("%d", c.HTTP.Port))
	httpSec.NewKey("HTTP_MaxConns", fmt.Sprintf("%d", c.HTTP.MaxConns))

	// [SRV_MAIL] section
	mailSec, _ := file.NewSection("SRV_MAIL")
	mailSec.NewKey("MAIL_SERVER", c.Mail.Server)
	mailSec.NewKey("MAIL_PORT", fmt.Sprintf("%d", c.Mail.Port))
	mailSec.NewKey("MAIL_USE_TLS", fmt.Sprintf("%t", c.Mail.UseTLS))
	mailSec.NewKey("MAIL_USE_SSL", fmt.Sprintf("%t", c.Mail.UseSSL))
	mailSec.NewKey("SEND_MAIL", c.Mail.Sender)
	mailSec.NewKey("APP_PASSWORD", c.Mail.Password)
	mailSec.NewKey("RECEIVE_MAIL", c.Mail.Recipient)

	// [SRV_OAUTH] section
	oauthSec, _ := file.NewSection("SRV_OAUTH")
	oauthSec.NewKey("CLIENT_ID", c.OAuth.ClientID)
	oauthSec.NewKey("CLIENT_SECRET", c.OAuth.ClientSecret)
	oauthSec.NewKey("REFRESH_TOKEN", c.OAuth.RefreshToken)
	oauthSec.NewKey("TOKEN_URL", c.OAuth.TokenURL)
	oauthSec.NewKey("TOKENINFO_URL", c.OAuth.TokenInfoURL)

	// [SRV_QR] section
	qrSec, _ := file.NewSection("SRV_QR")
	qrSec.NewKey("NoCache", fmt.Sprintf("%t", c.QR.NoCache))

	// [SRV_HTTPLOGINS] section
	loginSec, _ := file.NewSection("SRV_HTTPLOGINS")
	for user, pass := range c.HTTP.Logins {
		loginSec.NewKey(user, pass)
	}

	return file.SaveTo(path)
}
