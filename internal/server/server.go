// Package server exposes the Telegram webhook, health checks and metrics over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"betlog-bot/internal/config"
	"betlog-bot/internal/handler"
	"betlog-bot/internal/metrics"
	"betlog-bot/internal/pkg/dedupe"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) error

// Dependencies holds everything the HTTP server needs.
type Dependencies struct {
	Config     *config.ServerConfig
	Dispatcher *handler.Dispatcher
	// Dedupe may be nil to process every delivery.
	Dedupe   dedupe.Filter
	Health   HealthFunc
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
}

// Server is the webhook HTTP server.
type Server struct {
	deps *Dependencies
	http *http.Server
}

// New builds the router and HTTP server.
func New(deps *Dependencies) *Server {
	s := &Server{deps: deps}
	s.http = &http.Server{
		Addr:         deps.Config.Addr,
		Handler:      s.routes(),
		ReadTimeout:  deps.Config.ReadTimeout,
		WriteTimeout: deps.Config.WriteTimeout,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/healthz", s.handleHealth)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Post(s.deps.Config.WebhookPath, s.handleWebhook)

	return r
}

// ListenAndServe blocks until the server stops. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.http.Addr).Str("webhook_path", s.deps.Config.WebhookPath).Msg("HTTP server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "Bot activo"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if secret := s.deps.Config.SecretToken; secret != "" {
		got := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			log.Warn().Str("remote_addr", r.RemoteAddr).Msg("Webhook call with invalid secret token")
			writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false})
			return
		}
	}

	var update tele.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid update"})
		return
	}

	msg, ok := handler.FromTelegram(update.Message)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	ctx := r.Context()
	if s.deps.Dedupe != nil {
		first, err := s.deps.Dedupe.First(ctx, update.ID)
		if err != nil {
			// Fail open.
			log.Warn().Err(err).Int("update_id", update.ID).Msg("Update deduplication unavailable")
		} else if !first {
			log.Debug().Int("update_id", update.ID).Msg("Dropping redelivered update")
			s.deps.Metrics.DuplicateUpdate()
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
	}

	outcome, err := s.deps.Dispatcher.Dispatch(ctx, msg)
	if err != nil {
		if s.deps.Dedupe != nil {
			if ferr := s.deps.Dedupe.Forget(ctx, update.ID); ferr != nil {
				log.Warn().Err(ferr).Int("update_id", update.ID).Msg("Failed to clear update mark")
			}
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false})
		return
	}

	if outcome == handler.OutcomeUnauthorized {
		writeJSON(w, http.StatusOK, map[string]any{"status": "No autorizado"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// requestLogger logs each request with zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
