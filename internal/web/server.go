// Package web serves the todo list as server-rendered HTML with live updates.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"todo-cli/internal/metrics"
	"todo-cli/internal/model"
	"todo-cli/internal/session"
)

//go:embed templates/*.html static/*.js static/*.css
var assetsFS embed.FS

type ServerConfig struct {
	Session *session.Session
	Metrics *metrics.Metrics
	Logger  *log.Logger

	// Now is the clock used for overdue markers. Defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	sess    *session.Session
	metrics *metrics.Metrics
	log     *log.Logger
	now     func() time.Time
	tmpl    *template.Template
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("web: session is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim":     strings.TrimSpace,
		"markdown": renderMarkdownHTML,
		"stamp":    func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
		"add":      func(a, b int) int { return a + b },
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Server{
		sess:    cfg.Session,
		metrics: cfg.Metrics,
		log:     cfg.Logger.WithPrefix("web"),
		now:     cfg.Now,
		tmpl:    tmpl,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /static/app.css", s.handleAsset("static/app.css", "text/css; charset=utf-8"))
	mux.HandleFunc("GET /static/app.js", s.handleAsset("static/app.js", "application/javascript; charset=utf-8"))
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("POST /todos", s.handleAdd)
	mux.HandleFunc("GET /todos/{id}", s.handleShow)
	mux.HandleFunc("POST /todos/{id}/update", s.handleUpdate)
	mux.HandleFunc("POST /todos/{id}/toggle", s.handleToggle)
	mux.HandleFunc("GET /todos/{id}/delete", s.handleDeleteConfirm)
	mux.HandleFunc("POST /todos/{id}/delete", s.handleDelete)
	mux.HandleFunc("POST /todos/{id}/edit", s.handleEditStart)
	mux.HandleFunc("POST /todos/{id}/history", s.handleHistoryOpen)
	mux.HandleFunc("POST /edit", s.handleEditSave)
	mux.HandleFunc("POST /edit/cancel", s.handleEditCancel)
	mux.HandleFunc("POST /history/step", s.handleHistoryStep)
	mux.HandleFunc("POST /history/close", s.handleHistoryClose)
	mux.HandleFunc("POST /filter", s.handleFilter)
	mux.HandleFunc("POST /filter/reset", s.handleFilterReset)
	mux.HandleFunc("POST /sort", s.handleSort)
	return withRecover(s.log, withAccessLog(s.log, withRequestID(mux)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAsset(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(name)
		if err != nil || len(b) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		s.log.Error("render", "template", name, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

// fail maps a command error to a status: bad input is 400, anything else 500.
func (s *Server) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrInvalidArgument) || errors.Is(err, errBadForm) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Error("command failed", "err", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

var errBadForm = errors.New("bad form")

func pathID(r *http.Request) (int, bool) {
	raw := strings.TrimPrefix(strings.TrimSpace(r.PathValue("id")), "#")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("id")))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseFields reads the todo form fields. A blank category is left empty so the caller decides the default.
func parseFields(r *http.Request) (model.Fields, error) {
	f := model.Fields{
		Title:       r.Form.Get("title"),
		Description: r.Form.Get("description"),
	}
	if v := strings.TrimSpace(r.Form.Get("category")); v != "" {
		c, err := model.ParseCategory(v)
		if err != nil {
			return f, fmt.Errorf("%w: %w", errBadForm, err)
		}
		f.Category = c
	}
	d, err := model.ParseDate(r.Form.Get("dueDate"))
	if err != nil {
		return f, fmt.Errorf("%w: %w", errBadForm, err)
	}
	f.DueDate = d
	return f, nil
}
