// Package web serves the merge dashboard: job control, scheduling, uploads,
// file listings, the processing history, and a live event stream.
package web

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rameshbaboov/docmerger/internal/config"
	"github.com/rameshbaboov/docmerger/internal/merge"
	"github.com/rameshbaboov/docmerger/internal/supervise"
)

// stopTimeout bounds how long handlers wait for an in-flight pass when
// stopping or rescheduling the loop.
const stopTimeout = 30 * time.Second

// Server is the dashboard HTTP server. It renders pages from embedded
// templates and drives the supervisor that owns the merge loop.
type Server struct {
	cfg    config.Settings
	driver *merge.Driver
	sup    *supervise.Supervisor
	hub    *merge.Hub
	log    *zap.Logger
	tmpl   *template.Template
	http   *http.Server

	// mu guards the desired interval, which the schedule page can change
	// while the loop is stopped.
	mu       sync.Mutex
	interval time.Duration
}

// NewServer wires the dashboard around an existing driver and supervisor.
func NewServer(cfg config.Settings, driver *merge.Driver, sup *supervise.Supervisor, hub *merge.Hub, log *zap.Logger) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"fmtTime":  formatTime,
		"fmtBytes": formatBytes,
		"fmtDur":   formatDuration,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	return &Server{
		cfg:      cfg,
		driver:   driver,
		sup:      sup,
		hub:      hub,
		log:      log,
		tmpl:     tmpl,
		interval: cfg.Interval(),
	}, nil
}

// Router assembles the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Post("/job/start", s.handleJobStart)
	r.Post("/job/stop", s.handleJobStop)
	r.Post("/job/run-once", s.handleRunOnce)
	r.Get("/schedule", s.handleSchedulePage)
	r.Post("/schedule", s.handleScheduleUpdate)
	r.Get("/upload", s.handleUploadPage)
	r.Post("/upload", s.handleUpload)
	r.Get("/outputs", s.handleOutputs)
	r.Get("/processed", s.handleProcessed)
	r.Get("/logs", s.handleLogs)
	r.Get("/download/output/{filename}", s.handleDownloadOutput)
	r.Get("/api/status", s.handleAPIStatus)
	r.Get("/events", s.handleEvents)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The static directory is embedded at compile time.
		panic(fmt.Sprintf("web: embedded static files: %v", err))
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	return r
}

// Start begins serving on addr in a background goroutine. Startup errors
// other than a clean shutdown are reported on the returned channel.
func (s *Server) Start(addr string) <-chan error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()
	s.log.Info("dashboard listening", zap.String("addr", addr))
	return errc
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// currentInterval returns the desired loop interval.
func (s *Server) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Server) setInterval(d time.Duration) {
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
