package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/oszuidwest/cranecheck/internal/checklist"
	"github.com/oszuidwest/cranecheck/internal/config"
	"github.com/oszuidwest/cranecheck/internal/server"
	"github.com/oszuidwest/cranecheck/internal/session"
	"github.com/oszuidwest/cranecheck/internal/util"
)

// pageTemplates maps each step to its page template.
var pageTemplates = map[session.Step]string{
	session.StepLogin:  "login.html",
	session.StepQuiz:   "quiz.html",
	session.StepResult: "result.html",
}

// Server is an HTTP server that provides the web interface for the checklist.
type Server struct {
	config    *config.Config
	checklist *checklist.Checklist
	images    *checklist.ImageResolver
	sessions  *server.Store
	sweeper   *server.Sweeper
	viewer    *server.Viewer
	commands  *server.CommandHandler
	pages     map[session.Step]*pongo2.Template
	version   *VersionChecker
}

// NewServer returns a new Server serving cl. onComplete is called when an
// inspection finishes and may be nil.
func NewServer(cfg *config.Config, cl *checklist.Checklist, onComplete session.CompletionFunc, version *VersionChecker) (*Server, error) {
	set := pongo2.NewSet("cranecheck", pongo2.NewFSLoader(pageFS()))
	pages := make(map[session.Step]*pongo2.Template, len(pageTemplates))
	for step, name := range pageTemplates {
		tpl, err := set.FromFile(name)
		if err != nil {
			return nil, util.WrapError("parse template "+name, err)
		}
		pages[step] = tpl
	}

	images := checklist.NewImageResolver(cfg.ImagesDir())
	viewer := server.NewViewer(images, version.GetInfo)
	sessions := server.NewStore(cfg.SessionTTL(), func() *session.Controller {
		return session.NewController(cl, session.WithCompletionHook(onComplete))
	})

	return &Server{
		config:    cfg,
		checklist: cl,
		images:    images,
		sessions:  sessions,
		sweeper:   server.NewSweeper(sessions, server.SweepInterval),
		viewer:    viewer,
		commands:  server.NewCommandHandler(viewer),
		pages:     pages,
		version:   version,
	}, nil
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /answer", s.handleAnswer)
	mux.HandleFunc("POST /restart", s.handleRestart)

	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/checklist", s.handleChecklist)

	mux.HandleFunc("GET "+server.ImagePathPrefix+"{name...}", s.handleImage)
	mux.HandleFunc("GET /style.css", s.handleStyle)

	return mux
}

// handleIndex renders the page of the session's current step.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	token := s.sessions.Attach(w, r)
	s.respond(w, token, http.StatusOK, nil, nil)
}

// handleLogin validates the identity form and starts the quiz.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	token := s.sessions.Attach(w, r)
	if err := r.ParseForm(); err != nil {
		s.respond(w, token, http.StatusBadRequest, nil, err)
		return
	}

	fields := make(map[string]string, len(s.checklist.Identity))
	for _, f := range s.checklist.Identity {
		fields[f.Key] = r.PostFormValue(f.Key)
	}

	var started string
	err := s.sessions.With(token, func(c *session.Controller) error {
		if err := c.SubmitIdentity(fields); err != nil {
			return err
		}
		started = c.State().ID
		return nil
	})

	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respond(w, token, http.StatusUnprocessableEntity, &server.FormState{
			Values:  fields,
			Invalid: verr.FieldKeys(),
		}, err)
	case err != nil:
		s.respond(w, token, statusFor(err), nil, err)
	default:
		slog.Info("inspection started", "checklist", s.checklist.ID, "inspection_id", started)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// handleAnswer records the response for the question the form was rendered
// for. A form for another question is rejected as stale.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	token := s.sessions.Attach(w, r)
	response := r.PostFormValue("response")
	position := r.PostFormValue("position")

	err := s.sessions.With(token, func(c *session.Controller) error {
		if position != "" && c.Step() == session.StepQuiz {
			current, _ := c.Progress()
			if n, err := strconv.Atoi(position); err != nil || n != current {
				return fmt.Errorf("%w: form for question %s, session at %d", session.ErrWrongStep, position, current)
			}
		}
		return c.Answer(response)
	})
	if err != nil {
		slog.Warn("answer rejected", "error", err)
		s.respond(w, token, statusFor(err), nil, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleRestart resets the session to the login step.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	token := s.sessions.Attach(w, r)
	_ = s.sessions.With(token, func(c *session.Controller) error {
		c.Restart()
		return nil
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleWebSocket serves the JSON command channel for the request's session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token, _ := s.sessions.Acquire(r)
	conn, err := server.UpgradeConnection(w, r, s.sessions.Cookie(r, token))
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}
	server.ServeCommands(conn, s.sessions, token, s.commands)
}

// handleChecklist returns the active checklist definition.
func (s *Server) handleChecklist(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.checklist); err != nil {
		slog.Error("failed to write checklist", "error", err)
	}
}

// handleImage serves a question image from the images directory.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	path, ok := s.images.Resolve(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

// handleStyle serves the embedded stylesheet.
func (s *Server) handleStyle(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css")
	if _, err := w.Write([]byte(styleCSS)); err != nil {
		slog.Error("failed to write static file", "file", "style.css", "error", err)
	}
}

// respond renders the session's current page with the given status.
// cause, when set, is shown above the page.
func (s *Server) respond(w http.ResponseWriter, token string, status int, form *server.FormState, cause error) {
	var errs []string
	var verr *session.ValidationError
	if errors.As(cause, &verr) {
		for _, f := range verr.Fields {
			errs = append(errs, f.Message)
		}
	} else if cause != nil {
		errs = append(errs, userMessage(cause))
	}

	var page bytes.Buffer
	err := s.sessions.With(token, func(c *session.Controller) error {
		tpl, ok := s.pages[c.Step()]
		if !ok {
			return fmt.Errorf("no template for step %q", c.Step())
		}
		return tpl.ExecuteWriter(pongo2.Context{
			"view":   s.viewer.View(c, form),
			"errors": errs,
			"year":   time.Now().Year(),
		}, &page)
	})
	if err != nil {
		slog.Error("failed to render page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := page.WriteTo(w); err != nil {
		slog.Error("failed to write page", "error", err)
	}
}

// statusFor maps a rejected transition to an HTTP status.
func statusFor(err error) int {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrWrongStep):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// userMessage returns the text shown for a rejected action.
func userMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrWrongStep):
		return "此表單已過期，請依目前畫面繼續。"
	case errors.Is(err, session.ErrUnknownResponse):
		return "無效的回答。"
	default:
		return "無效的請求。"
	}
}

// Start begins listening and serving HTTP requests on the configured port.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.WebPort())
	slog.Info("starting web server", "addr", addr, "checklist", s.checklist.ID)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	s.sweeper.Start()

	return srv
}

// Stop halts background session maintenance.
func (s *Server) Stop() {
	s.sweeper.Stop()
}
