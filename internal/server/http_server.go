package server

import (
	"context"
	"crypto/subtle"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/netutil"

	"github.com/Adenrele/Web-Portfolio/internal/config"
	"github.com/Adenrele/Web-Portfolio/internal/content"
	"github.com/Adenrele/Web-Portfolio/internal/crypto"
	"github.com/Adenrele/Web-Portfolio/internal/logging"
	"github.com/Adenrele/Web-Portfolio/internal/mailer"
	"github.com/Adenrele/Web-Portfolio/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ContactMailer forwards a contact submission
type ContactMailer interface {
	Deliver(ctx context.Context, env mailer.Envelope) error
}

// MessageStore archives contact submissions
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *store.Message) error
	MarkStatus(ctx context.Context, id string, status store.Status, detail string) error
	ListMessages(ctx context.Context, limit int) ([]store.Message, error)
}

// Deps are the collaborators the HTTP handlers call into
type Deps struct {
	Content *content.Library
	Mailer  ContactMailer
	Store   MessageStore
}

// HTTPServer serves the portfolio site and its JSON API
type HTTPServer struct {
	cfg     *config.Config
	logger  *logging.Logger
	deps    Deps
	pages   *pageSet
	csrf    *crypto.CSRF
	server  *http.Server
	now     func() time.Time
	handler http.Handler
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(cfg *config.Config, logger *logging.Logger, deps Deps) (*HTTPServer, error) {
	if deps.Content == nil {
		lib, err := content.Load("")
		if err != nil {
			return nil, fmt.Errorf("failed to load built-in content: %w", err)
		}
		deps.Content = lib
	}
	if deps.Mailer == nil {
		return nil, errors.New("no mailer configured")
	}

	pages, err := loadPages()
	if err != nil {
		return nil, err
	}

	sealer, err := crypto.NewSealer(cfg.Server.SecretKey)
	if err != nil {
		return nil, err
	}
	if cfg.Server.SecretKey == "" {
		logger.Warning("No secret key configured, CSRF tokens will not survive a restart")
	}

	httpServer := &HTTPServer{
		cfg:    cfg,
		logger: logger,
		deps:   deps,
		pages:  pages,
		csrf:   crypto.NewCSRF(sealer, 2*time.Hour),
		now:    time.Now,
	}
	httpServer.handler = httpServer.createHandler()

	httpServer.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpServer.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return httpServer, nil
}

// Handler exposes the routed handler, mainly for tests
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until Stop
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln, capped at HTTP_MaxConns at a time
func (s *HTTPServer) Serve(ln net.Listener) error {
	if s.cfg.HTTP.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.HTTP.MaxConns)
	}

	s.logger.Info("Starting HTTP server on %s", ln.Addr())
	err := s.server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for active requests
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// Stop shuts the server down, giving requests ten seconds to finish
func (s *HTTPServer) Stop() {
	if s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown: %v", err)
		s.server.Close()
	}
}

// createHandler creates the HTTP handler for the server
func (s *HTTPServer) createHandler() http.Handler {
	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /cv", s.handleCV)
	mux.HandleFunc("GET /projects", s.handleProjects)
	mux.HandleFunc("GET /blogs", s.handleBlogs)
	mux.HandleFunc("GET /blogs/{slug}", s.handlePost)
	mux.HandleFunc("GET /hidden", s.handleHidden)
	mux.HandleFunc("GET /contact", s.handleContactForm)
	mux.HandleFunc("POST /contact", s.handleContactSubmit)

	// JSON API
	mux.HandleFunc("GET /api/qr", s.handleQR)
	mux.HandleFunc("POST /api/similarity", s.handleSimilarity)
	mux.HandleFunc("GET /admin/messages", s.handleMessages)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Static assets: generated QR images from disk, everything else embedded
	qrDir := filepath.Join(s.cfg.Server.StaticFolder, "QR")
	mux.Handle("GET /static/QR/", http.StripPrefix("/static/QR/", http.FileServer(filesOnly{http.Dir(qrDir)})))
	assets, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(filesOnly{http.FS(assets)})))

	// Other methods on known paths get the mux's 405
	mux.HandleFunc("GET /", s.handleNotFound)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Trace("HTTP %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Basic authentication for the admin API
		if strings.HasPrefix(r.URL.Path, "/admin/") && !s.authorized(r) {
			h.Set("WWW-Authenticate", `Basic realm="Portfolio"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

// filesOnly serves files but reports directories as missing, so no folder
// listing is ever generated
type filesOnly struct {
	http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

// authorized checks basic auth credentials against [SRV_HTTPLOGINS]
func (s *HTTPServer) authorized(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}

	expected, exists := s.cfg.HTTP.Logins[user]
	if !exists || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(pass)) == 1
}
