package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/cognicore/proofline/pkg/proofline"
	"github.com/cognicore/proofline/pkg/proofline/config"
	"github.com/cognicore/proofline/pkg/proofline/language"
	"github.com/cognicore/proofline/pkg/proofline/logging"
	"github.com/cognicore/proofline/pkg/proofline/report"
)

// ---- JSON response types ------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

// ---- helpers ------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// splitList parses a comma separated rule id list.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ---- server -------------------------------------------------------------

// server shares one resource set per language between requests.
type server struct {
	settings  *config.Settings
	languages *language.Registry
	builder   *report.Builder
	logger    zerolog.Logger

	mu        sync.Mutex
	resources map[string]*proofline.Resources
}

func newServer(s *config.Settings) *server {
	return &server{
		settings:  s,
		languages: language.Default(),
		builder:   report.New(proofline.Version),
		logger:    logging.GetLogger("server"),
		resources: make(map[string]*proofline.Resources),
	}
}

// resourcesFor returns the lazily loaded resources of a language. The
// configured language uses the resource files from the settings; the other
// registered languages run the built-in rules only.
func (s *server) resourcesFor(code string) *proofline.Resources {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.resources[code]; ok {
		return res
	}
	l := &config.Loader{Language: code, Languages: s.languages, BuiltinRules: true}
	if code == s.settings.Language {
		l = config.LoaderFromSettings(s.settings)
		l.Languages = s.languages
	}
	res := proofline.NewResources(l)
	s.resources[code] = res
	return res
}

func (s *server) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, res := range s.resources {
		if err := res.Close(); err != nil {
			s.logger.Warn().Err(err).Str("language", code).Msg("close resources")
		}
	}
}

// routes returns the API handler wrapped with CORS and request logging.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/check", s.handleCheck())
	mux.HandleFunc("/v2/languages", s.handleLanguages())

	c := cors.New(cors.Options{
		AllowedOrigins: s.settings.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	})
	return s.logRequests(c.Handler(mux))
}

func (s *server) handleCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
			return
		}
		text := r.PostForm.Get("text")
		if text == "" {
			writeError(w, http.StatusBadRequest, "missing 'text' parameter")
			return
		}
		if limit := s.settings.Server.MaxTextLength; limit > 0 && len(text) > limit {
			writeError(w, http.StatusRequestEntityTooLarge, "text exceeds the maximum length")
			return
		}
		code := r.PostForm.Get("language")
		if code == "" {
			code = s.settings.Language
		}
		lang, err := s.languages.Get(code)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		comp, err := s.resourcesFor(code).Components(context.WithoutCancel(r.Context()))
		if err != nil {
			s.logger.Error().Err(err).Str("language", code).Msg("load resources")
			writeError(w, http.StatusInternalServerError, "language resources unavailable")
			return
		}
		checker, err := proofline.New(proofline.Options{
			Components:    comp,
			Workers:       s.settings.Workers,
			EnabledRules:  append(splitList(r.PostForm.Get("enabledRules")), s.settings.EnabledRules...),
			DisabledRules: append(splitList(r.PostForm.Get("disabledRules")), s.settings.DisabledRules...),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		ctx := r.Context()
		if d := s.settings.Server.CheckTimeout; d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		matches, err := checker.Check(ctx, text)
		rep := s.builder.Build(report.Language{Name: lang.Name, Code: lang.Code}, text, matches)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			rep.Incomplete("check timed out")
		case errors.Is(err, context.Canceled):
			rep.Incomplete("check canceled")
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func (s *server) handleLanguages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "GET required")
			return
		}
		out := []report.Language{}
		for _, code := range s.languages.List() {
			if l, err := s.languages.Get(code); err == nil {
				out = append(out, report.Language{Name: l.Name, Code: l.Code})
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
