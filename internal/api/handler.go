package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/spritedash/internal/activity"
	"github.com/nidhogg/spritedash/internal/gateway"
	"github.com/nidhogg/spritedash/internal/registry"
	"github.com/nidhogg/spritedash/internal/scene"
	"github.com/nidhogg/spritedash/internal/status"
	"github.com/nidhogg/spritedash/internal/store"
	"github.com/nidhogg/spritedash/internal/world"
	"go.uber.org/zap"
)

// StatusView exposes the latest polled payload.
type StatusView interface {
	Last() *status.Payload
}

// Scoreboard reads persisted office history.
type Scoreboard interface {
	Scores(ctx context.Context) (*store.Scores, error)
	RecentInteractions(ctx context.Context, limit int) ([]store.Interaction, error)
	StatusHistory(ctx context.Context, workerID string, limit int) ([]store.StatusChange, error)
}

// RelationReader reads who chatted with whom.
type RelationReader interface {
	Relations(ctx context.Context, workerID string) ([]world.Relation, error)
}

// Deps are the handler's collaborators. Scene and Registry are required;
// the rest may be nil when the backing service is unavailable.
type Deps struct {
	Scene       *scene.Scene
	Registry    *registry.Registry
	Status      StatusView
	Aggregator  *status.Aggregator
	Feed        *activity.Feed
	Scores      Scoreboard
	Relations   RelationReader
	Gateway     *gateway.Gateway
	Broadcaster *gateway.Broadcaster
	Clock       *world.Clock
	CORSOrigins []string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Deps
	now    func() time.Time
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	if deps.Feed == nil {
		deps.Feed = activity.NewFeed(0)
	}
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}
	return &Handler{Deps: deps, now: time.Now, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/registry", h.getRegistry)

		// Status routes
		r.Get("/status", h.getStatus)
		r.Put("/status/{id}", h.putReport)

		// Scene routes
		r.Get("/scene", h.getScene)
		r.Post("/scene/viewport", h.resize)
		r.Post("/scene/click", h.click)
		r.Post("/scene/hover", h.hover)
		r.Post("/scene/key", h.key)
		r.Post("/scene/pause", h.pause)
		r.Get("/selection", h.getSelection)
		r.Delete("/selection", h.clearSelection)
		r.Post("/dispatch/{id}", h.dispatch)
		r.Post("/chat", h.forceChat)

		// Worker detail routes
		r.Get("/workers/{id}", h.getWorker)
		r.Get("/workers/{id}/history", h.getHistory)
		r.Get("/workers/{id}/relations", h.getRelations)

		// Activity routes
		r.Get("/activity", h.getActivity)
		r.Get("/scores", h.getScores)
		r.Get("/ws", h.stream)

		// Gateway routes
		r.Get("/gateway/status", h.gatewayStatus)
		r.Get("/alerts", h.listAlerts)
		r.Post("/alerts", h.sendAlert)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"office": "spritedash",
		"busy":   h.Scene.Busy(),
	})
}

func (h *Handler) getRegistry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Registry)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	if h.Status == nil {
		writeError(w, http.StatusServiceUnavailable, "status polling disabled")
		return
	}
	p := h.Status.Last()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "no status received yet")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) putReport(w http.ResponseWriter, r *http.Request) {
	if h.Aggregator == nil {
		writeError(w, http.StatusServiceUnavailable, "local aggregation disabled")
		return
	}
	id := chi.URLParam(r, "id")
	var rep status.Report
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := h.Aggregator.PutReport(r.Context(), id, rep)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, status.ErrInvalidReport):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("store report failed", zap.String("worker", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store report failed")
	default:
		writeJSON(w, http.StatusOK, rep)
	}
}

func (h *Handler) getScene(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Scene.Snapshot())
}

type viewportRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (h *Handler) resize(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.Scene.Resize(req.Width, req.Height))
}

type pointerRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (h *Handler) click(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.Scene.Click(req.X, req.Y))
}

func (h *Handler) hover(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agent": h.Scene.Hover(req.X, req.Y),
	})
}

type keyRequest struct {
	Key         string `json:"key"`
	InTextInput bool   `json:"in_text_input"`
}

func (h *Handler) key(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	runes := []rune(req.Key)
	if len(runes) != 1 {
		writeError(w, http.StatusBadRequest, "key must be a single character")
		return
	}
	writeJSON(w, http.StatusOK, h.Scene.Key(runes[0], req.InTextInput))
}

func (h *Handler) pause(w http.ResponseWriter, r *http.Request) {
	if h.Clock == nil {
		writeError(w, http.StatusServiceUnavailable, "frame clock not running")
		return
	}
	var req struct {
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.Clock.SetPaused(req.Paused)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"paused": h.Clock.Paused(),
		"frames": h.Clock.Frames(),
	})
}

func (h *Handler) getSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"selection": h.Scene.Selection()})
}

func (h *Handler) clearSelection(w http.ResponseWriter, r *http.Request) {
	h.Scene.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.Scene.Dispatch(id)
	if errors.Is(err, scene.ErrUnknownWorker) {
		writeError(w, http.StatusNotFound, "worker not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"accepted": ok, "worker": id})
}

func (h *Handler) forceChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": h.Scene.ForceChat()})
}

// workerDetail is everything the side panel shows for one worker.
type workerDetail struct {
	registry.Worker
	View      *scene.WorkerView `json:"view,omitempty"`
	Report    *status.Entry     `json:"report,omitempty"`
	NextRun   *time.Time        `json:"next_run,omitempty"`
	NextRunIn string            `json:"next_run_in,omitempty"`
	Infra     []registry.Infra  `json:"infra"`
}

func (h *Handler) getWorker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wk, err := h.Registry.Worker(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "worker not found")
		return
	}
	detail := workerDetail{Worker: *wk, Infra: []registry.Infra{}}
	for _, infraID := range wk.ConnectedInfra {
		if inf, err := h.Registry.InfraByID(infraID); err == nil {
			detail.Infra = append(detail.Infra, *inf)
		}
	}
	for _, v := range h.Scene.Snapshot().Workers {
		if v.ID == id {
			v := v
			detail.View = &v
			break
		}
	}
	if h.Status != nil {
		if p := h.Status.Last(); p != nil {
			if e, ok := p.Workers[id]; ok {
				detail.Report = &e
			}
		}
	}
	now := h.now()
	if next, ok := wk.NextRun(now); ok {
		detail.NextRun = &next
		detail.NextRunIn = registry.FormatUntil(next, now)
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	if h.Scores == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.Registry.Worker(id); err != nil {
		writeError(w, http.StatusNotFound, "worker not found")
		return
	}
	hist, err := h.Scores.StatusHistory(r.Context(), id, queryLimit(r, 20))
	if err != nil {
		h.logger.Error("status history failed", zap.String("worker", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status history failed")
		return
	}
	if hist == nil {
		hist = []store.StatusChange{}
	}
	writeJSON(w, http.StatusOK, hist)
}

func (h *Handler) getRelations(w http.ResponseWriter, r *http.Request) {
	if h.Relations == nil {
		writeError(w, http.StatusServiceUnavailable, "relation graph disabled")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.Registry.Worker(id); err != nil {
		writeError(w, http.StatusNotFound, "worker not found")
		return
	}
	rels, err := h.Relations.Relations(r.Context(), id)
	if err != nil {
		h.logger.Error("relations failed", zap.String("worker", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "relations failed")
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Feed.Recent())
}

func (h *Handler) getScores(w http.ResponseWriter, r *http.Request) {
	if h.Scores == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	sc, err := h.Scores.Scores(r.Context())
	if err != nil {
		h.logger.Error("scores failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scores failed")
		return
	}
	recent, err := h.Scores.RecentInteractions(r.Context(), queryLimit(r, 10))
	if err != nil {
		h.logger.Error("recent interactions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "recent interactions failed")
		return
	}
	if recent == nil {
		recent = []store.Interaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scores": sc,
		"recent": recent,
	})
}

func (h *Handler) gatewayStatus(w http.ResponseWriter, r *http.Request) {
	if h.Gateway == nil {
		writeError(w, http.StatusServiceUnavailable, "gateway not initialized")
		return
	}
	writeJSON(w, http.StatusOK, h.Gateway.Statuses())
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if h.Broadcaster == nil {
		writeError(w, http.StatusServiceUnavailable, "gateway not initialized")
		return
	}
	writeJSON(w, http.StatusOK, h.Broadcaster.History(queryLimit(r, 20)))
}

func (h *Handler) sendAlert(w http.ResponseWriter, r *http.Request) {
	if h.Broadcaster == nil {
		writeError(w, http.StatusServiceUnavailable, "gateway not initialized")
		return
	}
	var alert gateway.Alert
	if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if alert.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if err := h.Broadcaster.Send(r.Context(), &alert); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, alert)
}

func queryLimit(r *http.Request, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
