package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bft-labs/streamkeeper/pkg/log"
	"github.com/bft-labs/streamkeeper/pkg/streamkeeper"
)

// StatusSource is the read side of a running keeper.
// *streamkeeper.Streamkeeper satisfies it.
type StatusSource interface {
	Status() streamkeeper.State
	Record(ctx context.Context) (*streamkeeper.Record, error)
	LastTick() *streamkeeper.TickEvent
	MaxLifespan() time.Duration
	Now() time.Time
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State     string           `json:"state"`
	Broadcast *BroadcastStatus `json:"broadcast,omitempty"`
	LastTick  *TickStatus      `json:"lastTick,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// BroadcastStatus describes the managed broadcast.
type BroadcastStatus struct {
	ResourceID       string    `json:"resourceId"`
	CreatedAt        time.Time `json:"createdAt"`
	AgeSeconds       float64   `json:"ageSeconds"`
	RotatesInSeconds float64   `json:"rotatesInSeconds"`
}

// TickStatus describes the last tick.
type TickStatus struct {
	At         time.Time `json:"at"`
	Reason     string    `json:"reason"`
	Action     string    `json:"action"`
	Live       bool      `json:"live"`
	ResourceID string    `json:"resourceId,omitempty"`
	Error      string    `json:"error,omitempty"`
	Warning    string    `json:"warning,omitempty"`
}

// Router returns the HTTP surface of the daemon: /metrics, /healthz and
// /status.
func Router(m *Metrics, src StatusSource, logger log.Logger) *chi.Mux {
	h := &handler{metrics: m, src: src, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Use(RequestMiddleware(m))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		m.Handler(func() { h.updateGauges(r.Context()) }).ServeHTTP(w, r)
	})
	r.Get("/healthz", h.Healthz)
	r.Get("/status", h.Status)
	return r
}

type handler struct {
	metrics *Metrics
	src     StatusSource
	logger  log.Logger
}

func (h *handler) updateGauges(ctx context.Context) {
	h.metrics.daemonState.Set(float64(h.src.Status()))

	rec, err := h.src.Record(ctx)
	if err != nil || rec == nil {
		h.metrics.SetBroadcastAge(0)
		return
	}
	h.metrics.SetBroadcastAge(rec.Age(h.src.Now()).Seconds())
}

// Healthz reports 200 while the daemon is running and 503 otherwise.
func (h *handler) Healthz(w http.ResponseWriter, r *http.Request) {
	state := h.src.Status()
	if state != streamkeeper.StateRunning {
		http.Error(w, state.String(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// Status describes the managed broadcast and the last tick.
func (h *handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{State: h.src.Status().String()}
	code := http.StatusOK

	rec, err := h.src.Record(r.Context())
	switch {
	case err != nil:
		h.logger.Warn("status: could not read state", log.Err(err))
		resp.Error = err.Error()
		code = http.StatusInternalServerError
	case rec != nil:
		age := rec.Age(h.src.Now())
		resp.Broadcast = &BroadcastStatus{
			ResourceID:       rec.ResourceID,
			CreatedAt:        rec.CreatedAt,
			AgeSeconds:       age.Seconds(),
			RotatesInSeconds: (h.src.MaxLifespan() - age).Seconds(),
		}
	}

	if t := h.src.LastTick(); t != nil {
		ts := &TickStatus{
			At:         t.At,
			Reason:     t.Reason,
			Action:     t.Action.String(),
			Live:       t.Live,
			ResourceID: t.ResourceID,
		}
		if t.Err != nil {
			ts.Error = t.Err.Error()
		}
		if t.VerifyErr != nil {
			ts.Warning = t.VerifyErr.Error()
		}
		resp.LastTick = ts
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Debug("status: write response", log.Err(err))
	}
}
