// Package server is the web front end: the form pages, the per-video pages and
// the small JSON API used by the browser to validate links.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/clobrano/youtubedoc/internal/cache"
	"github.com/clobrano/youtubedoc/internal/processor"
	"github.com/clobrano/youtubedoc/internal/youtubeurl"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second

	defaultIndexRateLimit = 10
	defaultVideoRateLimit = 5
)

//go:embed templates/*.html
var templateFS embed.FS

// Example is a sample video linked from the index page.
type Example struct {
	Name string
	URL  string
}

// Examples are shown on the index page.
var Examples = []Example{
	{Name: "Python Tutorial", URL: "https://www.youtube.com/watch?v=_uQrJ0TkZlc"},
	{Name: "FastAPI Crash Course", URL: "https://www.youtube.com/watch?v=7t2alSnE2-I"},
	{Name: "Machine Learning Basics", URL: "https://www.youtube.com/watch?v=Gv9_4yMHFhI"},
	{Name: "JavaScript ES6", URL: "https://www.youtube.com/watch?v=WZQc7RUAg18"},
}

type Config struct {
	Addr           string
	IndexRateLimit int
	VideoRateLimit int
	TrustProxy     bool         // key rate limits on X-Forwarded-For; only behind a proxy that sets it
	Cache          *cache.Cache // only read for metrics
	Logger         *slog.Logger
}

type Server struct {
	addr       string
	service    *processor.Service
	logger     *slog.Logger
	templates  *template.Template
	indexRate  int
	videoRate  int
	trustProxy bool
	metrics    *metrics
	mux        *http.ServeMux
}

func New(cfg Config, svc *processor.Service) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IndexRateLimit <= 0 {
		cfg.IndexRateLimit = defaultIndexRateLimit
	}
	if cfg.VideoRateLimit <= 0 {
		cfg.VideoRateLimit = defaultVideoRateLimit
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		addr:       cfg.Addr,
		service:    svc,
		logger:     logger,
		templates:  tmpl,
		indexRate:  cfg.IndexRateLimit,
		videoRate:  cfg.VideoRateLimit,
		trustProxy: cfg.TrustProxy,
		metrics:    newMetrics(cfg.Cache),
		mux:        http.NewServeMux(),
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes attaches all handlers to the mux. Every limited route has its own budget.
func (s *Server) registerRoutes() {
	s.handle("GET /{$}", s.handleIndex)
	s.handle("POST /{$}", s.limit(s.indexRate, s.handleIndexPost))
	s.handle("GET /video/{id}", s.handleVideo)
	s.handle("POST /video/{id}", s.limit(s.videoRate, s.handleVideoPost))
	s.handle("GET /watch", s.handleWatch)
	s.handle("POST /watch", s.limit(s.videoRate, s.handleWatchPost))
	s.handle("GET /api/recognize", s.handleRecognize)
	s.handle("GET /api/patterns", s.handlePatterns)
	s.handle("POST /api/docs", s.limit(s.videoRate, s.handleDocs))
	s.handle("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.handler())
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.metrics.instrument(pattern, h))
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on the configured address until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", slog.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("stopping HTTP server", slog.String("addr", ln.Addr().String()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type formView struct {
	Action   string
	VideoURL string
}

var templateFuncs = template.FuncMap{
	"duration": processor.FormatDuration,
	"patterns": youtubeurl.Patterns,
	"views": func(v *int64) string {
		if v == nil {
			return "Unknown"
		}
		return humanize.Comma(*v)
	},
	"videoID": func(url string) string {
		id, _ := youtubeurl.ExtractVideoID(url)
		return id
	},
	// Video pages post back to themselves; anything else goes through /watch.
	"videoAction": func(id string) string {
		if youtubeurl.IsVideoID(id) {
			return "/video/" + id
		}
		return "/watch"
	},
	"formData": func(action, videoURL string) formView {
		return formView{Action: action, VideoURL: videoURL}
	},
}
