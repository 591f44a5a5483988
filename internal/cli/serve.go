package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adenrele/Web-Portfolio/internal/config"
	"github.com/Adenrele/Web-Portfolio/internal/content"
	"github.com/Adenrele/Web-Portfolio/internal/logging"
	"github.com/Adenrele/Web-Portfolio/internal/mailer"
	"github.com/Adenrele/Web-Portfolio/internal/server"
	"github.com/Adenrele/Web-Portfolio/internal/store"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "serve",
		Short:         "Run the web server (default command)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.LogPath != "" {
		cfg.Paths.LogPath = opts.LogPath
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Paths.LogPath, logging.WithConsole(cmd.OutOrStdout(), cfg.Log.Unbuffered))
	defer logger.Close()

	logger.Info("Portfolio server starting...")
	if opts.ConfigPath != "" {
		logger.Info("Using config file: %s", opts.ConfigPath)
	}

	if cfg.Server.TraceLogEnabled {
		if err := logger.EnableTrace(); err != nil {
			logger.Warning("Failed to enable trace log: %v", err)
		}
	}

	lib, err := content.Load(cfg.Server.ContentFolder)
	if err != nil {
		logger.Error("Failed to load content: %v", err)
		return err
	}

	deps := server.Deps{
		Content: lib,
		Mailer:  newMailer(cfg, logger),
	}

	if cfg.Server.DatabasePath != "" {
		st, err := store.Open(cfg.Server.DatabasePath)
		if err != nil {
			logger.Error("Failed to open message archive: %v", err)
			return err
		}
		defer st.Close()
		deps.Store = st
	} else {
		logger.Warning("No database configured, contact messages are not archived")
	}

	httpServer, err := server.NewHTTPServer(cfg, logger, deps)
	if err != nil {
		logger.Error("Failed to create HTTP server: %v", err)
		return err
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Start(); err != nil {
			logger.Error("HTTP server failed: %v", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		httpServer.Stop()
		return nil
	})

	err = g.Wait()
	logger.Info("Server stopped")
	return err
}

// newMailer wires SMTP delivery, adding the refresh-token flow when OAuth
// credentials are configured
func newMailer(cfg *config.Config, logger *logging.Logger) *mailer.Mailer {
	sender := &mailer.SMTPSender{
		Host:     cfg.Mail.Server,
		Port:     cfg.Mail.Port,
		UseTLS:   cfg.Mail.UseTLS,
		UseSSL:   cfg.Mail.UseSSL,
		Username: cfg.Mail.Sender,
		Password: cfg.Mail.Password,
		Timeout:  30 * time.Second,
	}

	if cfg.Mail.Server == "" || cfg.Mail.Recipient == "" {
		logger.Warning("Mail is not configured, contact messages cannot be delivered")
	}

	if !cfg.OAuthEnabled() {
		return mailer.New(sender, nil, nil, cfg.Mail.Sender, cfg.Mail.Recipient, logger)
	}

	tokens := mailer.NewRefreshTokens(mailer.OAuthConfig{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RefreshToken: cfg.OAuth.RefreshToken,
		TokenURL:     cfg.OAuth.TokenURL,
	}, nil)
	checker := mailer.NewTokenInfoClient(cfg.OAuth.TokenInfoURL, nil)

	logger.Info("Mail uses OAuth2 access tokens for %s", cfg.Mail.Sender)
	return mailer.New(sender, tokens, checker, cfg.Mail.Sender, cfg.Mail.Recipient, logger)
}
