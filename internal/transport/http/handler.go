package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/internal/service"
	httpmw "github.com/cwrk-planet/coderjam/internal/transport/http/middleware"
	"github.com/cwrk-planet/coderjam/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

type PadSvc interface {
	Create(ctx context.Context) (*domain.Pad, string, error)
	Get(ctx context.Context, id, key string) (*domain.Pad, error)
}

type StatsSvc interface {
	Stats() service.RoomStats
}

type ConnCounter interface {
	Count() int
}

type Handler struct {
	padSvc PadSvc
	stats  StatsSvc
	conns  ConnCounter
	env    string
}

func NewHandler(pads PadSvc, stats StatsSvc, conns ConnCounter, env string) *Handler {
	return &Handler{
		padSvc: pads,
		stats:  stats,
		conns:  conns,
		env:    env,
	}
}

// POST /api/pad
func (h *Handler) CreatePad(w http.ResponseWriter, r *http.Request) {
	pad, key, err := h.padSvc.Create(r.Context())
	if err != nil {
		httputil.Error(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, CreatePadResponse{ID: pad.ID, Key: key})
}

// GET /api/pad/{id}
func (h *Handler) GetPad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pad, err := h.padSvc.Get(r.Context(), id, httpmw.PadKeyFromCtx(r.Context()))
	if err != nil {
		httputil.Error(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, PadResponse{
		ID:        pad.ID,
		Language:  pad.Language,
		Code:      pad.Code,
		Output:    pad.Output,
		CreatedAt: pad.CreatedAt,
		UpdatedAt: pad.UpdatedAt,
	})
}

// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC(),
		Environment: h.env,
	})
}

// GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st := h.stats.Stats()
	httputil.JSON(w, http.StatusOK, StatsResponse{
		Rooms:        st.Rooms,
		Participants: st.Participants,
		Connections:  h.conns.Count(),
	})
}
