package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/antoniostano/smartdoc/internal/apperr"
	"github.com/antoniostano/smartdoc/internal/clinical"
	"github.com/antoniostano/smartdoc/internal/config"
	"github.com/antoniostano/smartdoc/internal/history"
	"github.com/antoniostano/smartdoc/internal/interview"
	"github.com/antoniostano/smartdoc/internal/observability"
)

const userIDHeader = "X-User-ID"

// Interviewer advances one interview turn.
type Interviewer interface {
	Advance(ctx context.Context, req interview.TurnRequest) (interview.TurnResult, error)
}

// Diagnoser generates and records diagnoses for directly submitted fields.
type Diagnoser interface {
	Run(ctx context.Context, fields clinical.Fields, userID string) (history.Record, error)
}

type Server struct {
	cfg           config.Config
	interviewer   Interviewer
	diagnoser     Diagnoser
	store         history.Store
	oracleBackend string
	metrics       *observability.Metrics
	log           zerolog.Logger
	upgrader      websocket.Upgrader
}

func New(
	cfg config.Config,
	interviewer Interviewer,
	diagnoser Diagnoser,
	store history.Store,
	oracleBackend string,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	return &Server{
		cfg:           cfg,
		interviewer:   interviewer,
		diagnoser:     diagnoser,
		store:         store,
		oracleBackend: oracleBackend,
		metrics:       metrics,
		log:           logger.With().Str("component", "httpapi").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only same-origin browsers may open an interview socket.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/interview/turn", s.handleTurn)
	r.Get("/v1/interview/ws", s.handleInterviewWS)
	// Route kept for clients of the earlier chat API.
	r.Post("/api/chat/chat", s.handleTurn)

	r.Post("/v1/diagnoses", s.handleCreateDiagnosis)
	r.Get("/v1/diagnoses/history", s.handleListHistory)
	r.Get("/v1/diagnoses/history/{id}", s.handleGetHistory)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":             "ready",
		"oracle_mode":        s.oracleBackend,
		"history_store_mode": s.storeMode(),
	})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req interview.TurnRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondDecodeError(w, err)
		return
	}

	res, err := s.interviewer.Advance(r.Context(), req)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type diagnosisResponse struct {
	ID        string               `json:"id"`
	Diagnoses []clinical.Diagnosis `json:"diagnoses"`
}

func (s *Server) handleCreateDiagnosis(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var fields clinical.Fields
	if err := decodeJSON(w, r, &fields); err != nil && !errors.Is(err, errEmptyBody) {
		respondDecodeError(w, err)
		return
	}
	if strings.TrimSpace(fields.PresentingComplaint) == "" {
		s.respondDomainError(w, r, apperr.Required("presentingComplaint"))
		return
	}

	rec, err := s.diagnoser.Run(r.Context(), fields, userID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, diagnosisResponse{ID: rec.ID, Diagnoses: rec.Diagnoses})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	records, err := s.store.List(r.Context(), userID, 0)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "header "+userIDHeader+" is required")
		return "", false
	}
	return userID, true
}

func (s *Server) storeMode() string {
	if s.store == nil {
		return "disabled"
	}
	return s.store.Mode()
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

var errEmptyBody = errors.New("empty body")

// maxBodyBytes matches the websocket frame limit.
const maxBodyBytes = wsReadLimit

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
		return
	}
	respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// classifyError maps domain errors onto an HTTP status, error code and retry hint.
func classifyError(err error) (int, string, bool) {
	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest, "validation_error", false
	case apperr.IsExternal(err):
		return http.StatusBadGateway, "external_service_error", true
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound, "not_found", false
	default:
		return http.StatusInternalServerError, "internal_error", false
	}
}

func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, retryable := classifyError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	respondJSON(w, status, errorResponse{Error: msg, Code: code, Retryable: retryable})
}
