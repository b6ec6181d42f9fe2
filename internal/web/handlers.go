package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rameshbaboov/docmerger/internal/merge"
	"github.com/rameshbaboov/docmerger/internal/status"
	"github.com/rameshbaboov/docmerger/internal/supervise"
)

// maxUploadBytes caps an uploaded document at 50 MiB.
const maxUploadBytes = 50 << 20

// ---------------------------------------------------------------------------
// Pages
// ---------------------------------------------------------------------------

type indexData struct {
	Title           string
	Active          string
	Msg             string
	Supervisor      supervise.Status
	IntervalSeconds int
	Strategy        string
	Report          *status.Report
	Recent          []merge.PassResult
	OutputFiles     []fileEntry
	LedgerTail      []processedRow
	LogTail         string
}

// indexLedgerRows bounds the ledger excerpt on the overview page; the full
// history lives on /processed.
const indexLedgerRows = 8

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	rep, err := status.Collect(s.cfg)
	if err != nil {
		s.renderError(w, err)
		return
	}
	outputs, err := listDir(s.cfg.OutputDir)
	if err != nil {
		s.renderError(w, err)
		return
	}
	entries, err := s.driver.Ledger().Entries()
	if err != nil {
		s.renderError(w, err)
		return
	}
	tail := make([]processedRow, 0, indexLedgerRows)
	for i := len(entries) - 1; i >= 0 && len(tail) < indexLedgerRows; i-- {
		tail = append(tail, processedRow{Filename: entries[i].Filename, Outcome: string(entries[i].Outcome)})
	}
	logTail, err := tailLines(s.cfg.LogPath(), 15)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.render(w, "index.html", indexData{
		Title:           "Overview",
		Active:          "index",
		Msg:             r.URL.Query().Get("msg"),
		Supervisor:      s.sup.Status(),
		IntervalSeconds: int(s.currentInterval() / time.Second),
		Strategy:        string(s.driver.Strategy()),
		Report:          rep,
		Recent:          s.driver.History().Recent(5),
		OutputFiles:     outputs,
		LedgerTail:      tail,
		LogTail:         logTail,
	})
}

type scheduleData struct {
	Title   string
	Active  string
	Msg     string
	Minutes int
	Running bool
}

func (s *Server) handleSchedulePage(w http.ResponseWriter, r *http.Request) {
	minutes := int(s.currentInterval() / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	s.render(w, "schedule.html", scheduleData{
		Title:   "Schedule",
		Active:  "schedule",
		Msg:     r.URL.Query().Get("msg"),
		Minutes: minutes,
		Running: s.sup.Running(),
	})
}

type uploadData struct {
	Title  string
	Active string
	Msg    string
	Files  []fileEntry
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	files, err := listDir(s.cfg.InputDir)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.render(w, "upload.html", uploadData{
		Title:  "Upload",
		Active: "upload",
		Msg:    r.URL.Query().Get("msg"),
		Files:  files,
	})
}

type outputsData struct {
	Title  string
	Active string
	Msg    string
	Files  []fileEntry
}

func (s *Server) handleOutputs(w http.ResponseWriter, r *http.Request) {
	files, err := listDir(s.cfg.OutputDir)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.render(w, "outputs.html", outputsData{
		Title:  "Outputs",
		Active: "outputs",
		Msg:    r.URL.Query().Get("msg"),
		Files:  files,
	})
}

type processedData struct {
	Title   string
	Active  string
	Msg     string
	Entries []processedRow
}

type processedRow struct {
	Filename string
	Outcome  string
}

func (s *Server) handleProcessed(w http.ResponseWriter, r *http.Request) {
	entries, err := s.driver.Ledger().Entries()
	if err != nil {
		s.renderError(w, err)
		return
	}
	rows := make([]processedRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, processedRow{Filename: e.Filename, Outcome: string(e.Outcome)})
	}
	s.render(w, "processed.html", processedData{
		Title:   "Processed",
		Active:  "processed",
		Entries: rows,
	})
}

type logsData struct {
	Title   string
	Active  string
	Msg     string
	Content string
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	content, err := tailLines(s.cfg.LogPath(), 200)
	if err != nil {
		s.renderError(w, err)
		return
	}
	if content == "" {
		content = "(log file is empty)"
	}
	s.render(w, "logs.html", logsData{
		Title:   "Logs",
		Active:  "logs",
		Content: content,
	})
}

// ---------------------------------------------------------------------------
// Job control
// ---------------------------------------------------------------------------

func (s *Server) handleJobStart(w http.ResponseWriter, r *http.Request) {
	if err := s.sup.Start(s.currentInterval()); err != nil {
		s.redirectMsg(w, r, "/", "could not start: "+err.Error())
		return
	}
	s.redirectMsg(w, r, "/", "merge loop started")
}

func (s *Server) handleJobStop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), stopTimeout)
	defer cancel()
	if err := s.sup.Stop(ctx); err != nil {
		s.redirectMsg(w, r, "/", "stop still waiting on a running pass")
		return
	}
	s.redirectMsg(w, r, "/", "merge loop stopped")
}

func (s *Server) handleRunOnce(w http.ResponseWriter, r *http.Request) {
	res, err := s.sup.RunOnce(r.Context())
	if errors.Is(err, supervise.ErrBusy) {
		s.redirectMsg(w, r, "/", "a merge pass is already running")
		return
	}
	if err != nil {
		s.redirectMsg(w, r, "/", "merge pass failed: "+err.Error())
		return
	}
	s.redirectMsg(w, r, "/", fmt.Sprintf("pass finished: %d merged, %d failed, %d skipped",
		res.Succeeded, res.Failed, res.Skipped))
}

func (s *Server) handleScheduleUpdate(w http.ResponseWriter, r *http.Request) {
	minutes, err := strconv.Atoi(r.FormValue("minutes"))
	if err != nil {
		s.redirectMsg(w, r, "/schedule", "interval must be a number of minutes")
		return
	}
	if minutes < 1 {
		minutes = 1
	}
	interval := time.Duration(minutes) * time.Minute
	s.setInterval(interval)

	if s.sup.Running() {
		ctx, cancel := context.WithTimeout(r.Context(), stopTimeout)
		defer cancel()
		if err := s.sup.Stop(ctx); err != nil {
			s.redirectMsg(w, r, "/schedule", "could not restart the loop: "+err.Error())
			return
		}
		if err := s.sup.Start(interval); err != nil {
			s.redirectMsg(w, r, "/schedule", "could not restart the loop: "+err.Error())
			return
		}
		s.redirectMsg(w, r, "/schedule", fmt.Sprintf("interval set to %d min, loop restarted", minutes))
		return
	}
	s.redirectMsg(w, r, "/schedule", fmt.Sprintf("interval set to %d min", minutes))
}

// ---------------------------------------------------------------------------
// Uploads and downloads
// ---------------------------------------------------------------------------

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.redirectMsg(w, r, "/upload", "no file in request")
		return
	}
	defer file.Close()

	name, ok := safeBaseName(header.Filename)
	if !ok {
		s.redirectMsg(w, r, "/upload", "invalid filename")
		return
	}
	if !strings.EqualFold(filepath.Ext(name), s.cfg.Extension) {
		s.redirectMsg(w, r, "/upload", "only "+s.cfg.Extension+" files are accepted")
		return
	}

	if err := os.MkdirAll(s.cfg.InputDir, 0o755); err != nil {
		s.renderError(w, err)
		return
	}
	dst := filepath.Join(s.cfg.InputDir, name)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		s.redirectMsg(w, r, "/upload", name+" already exists")
		return
	}
	if err != nil {
		s.renderError(w, err)
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(dst)
		s.renderError(w, err)
		return
	}
	s.log.Info("document uploaded", zap.String("filename", name))
	s.redirectMsg(w, r, "/upload", name+" uploaded")
}

func (s *Server) handleDownloadOutput(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "filename")
	name, ok := safeBaseName(raw)
	if !ok || name != raw {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	path := filepath.Join(s.cfg.OutputDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

// ---------------------------------------------------------------------------
// JSON API
// ---------------------------------------------------------------------------

type apiStatus struct {
	Supervisor      supervise.Status  `json:"supervisor"`
	IntervalSeconds int               `json:"intervalSeconds"`
	Strategy        string            `json:"strategy"`
	Report          *status.Report    `json:"report"`
	LastPass        *merge.PassResult `json:"lastPass,omitempty"`
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	rep, err := status.Collect(s.cfg)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apiStatus{
		Supervisor:      s.sup.Status(),
		IntervalSeconds: int(s.currentInterval() / time.Second),
		Strategy:        string(s.driver.Strategy()),
		Report:          rep,
		LastPass:        s.driver.History().Last(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("render template", zap.String("template", name), zap.Error(err))
	}
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	s.log.Error("handler failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) redirectMsg(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, path+"?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}
