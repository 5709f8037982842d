// Package httpapi exposes the correction service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rtscorrect/internal/correction"
	"rtscorrect/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Correct(ctx context.Context, text string) correction.Outcome
	Status() types.StatusResponse
	Ready() bool
	ListModels() ([]types.Model, error)
	RecentHistory(ctx context.Context, limit int) ([]types.HistoryEntry, error)
}

// ErrHistoryDisabled is returned by RecentHistory when no journal is configured.
var ErrHistoryDisabled = errors.New("history is disabled")

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// NewMux builds the router with all endpoints registered.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if corsEnabled {
		origins, methods, headers := corsDefaults()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)

	h := &handlers{svc: svc}
	r.Post("/correct", h.correct)
	r.Get("/status", h.status)
	r.Get("/models", h.models)
	r.Get("/history", h.history)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", h.readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// correct godoc
// @Summary      Correct one utterance
// @Description  Runs the on-device model over a final speech-to-text utterance. Failures pass the text through unchanged.
// @Tags         correction
// @Accept       json
// @Produce      json
// @Param        body  body      types.CorrectRequest  true  "Utterance"
// @Success      200   {object}  types.CorrectResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      415   {object}  types.ErrorResponse
// @Failure      429   {object}  types.ErrorResponse
// @Router       /correct [post]
func (h *handlers) correct(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lvl := requestLogLevel(r)
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		logEnd(r, lvl, http.StatusUnsupportedMediaType, start, nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.CorrectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// MaxBytesReader errors land here too; report 400 without the limit
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		logEnd(r, lvl, http.StatusBadRequest, start, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		logEnd(r, lvl, http.StatusBadRequest, start, nil)
		return
	}

	// shutdown of the process cancels in-flight corrections too
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if correctTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, correctTimeout)
		defer tcancel()
	}
	out := h.svc.Correct(ctx, req.Text)
	if r.Context().Err() != nil {
		return
	}
	if out.Reason == correction.ReasonBusy {
		IncrementBackpressure("queue_full")
		writeJSONError(w, http.StatusTooManyRequests, "correction queue is full")
		logEnd(r, lvl, http.StatusTooManyRequests, start, out.Err)
		return
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		w.Header().Set("X-Request-Id", rid)
	}
	writeJSON(w, types.CorrectResponse{
		RequestID:  out.RequestID,
		Text:       req.Text,
		Corrected:  out.Text,
		Applied:    out.Applied,
		Reason:     out.Reason,
		Cached:     out.Cached,
		DurationMS: out.Duration.Milliseconds(),
	})
	if lvl >= LevelDebug {
		zlog.Debug().Str("request_id", out.RequestID).Str("input", req.Text).Str("output", out.Text).Msg("correction")
	}
	logEnd(r, lvl, http.StatusOK, start, out.Err)
}

// status godoc
// @Summary      Service status
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Status())
}

// models godoc
// @Summary      List GGUF models in the models directory
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /models [get]
func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	ms, err := h.svc.ListModels()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ms == nil {
		ms = []types.Model{}
	}
	writeJSON(w, types.ModelsResponse{Models: ms})
}

// history godoc
// @Summary      Recent corrections
// @Tags         history
// @Produce      json
// @Param        limit  query     int  false  "Maximum entries (default 50, max 500)"
// @Success      200    {object}  types.HistoryResponse
// @Failure      400    {object}  types.ErrorResponse
// @Failure      404    {object}  types.ErrorResponse
// @Router       /history [get]
func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	entries, err := h.svc.RecentHistory(r.Context(), limit)
	switch {
	case errors.Is(err, ErrHistoryDisabled):
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	writeJSON(w, types.HistoryResponse{Entries: entries})
}

// readyz godoc
// @Summary      Readiness
// @Description  200 when the model is loaded, 503 while loading or in pass-through mode.
// @Tags         status
// @Produce      plain
// @Success      200  {string}  string  "ready"
// @Failure      503  {string}  string  "loading"
// @Router       /readyz [get]
func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.svc.Ready() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("loading"))
}
