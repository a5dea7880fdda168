package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/you/go-flight-offers/internal/currency"
	"github.com/you/go-flight-offers/internal/providers"
	"github.com/you/go-flight-offers/internal/routes"
	"github.com/you/go-flight-offers/internal/service"
)

type Searcher interface {
	Run(ctx context.Context, req service.SearchRequest) (service.SearchResult, error)
}

type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type Handlers struct {
	svc      Searcher
	routes   []routes.Route
	interval time.Duration
	log      *zap.Logger
}

func NewHandlers(svc Searcher, seed []routes.Route, interval time.Duration, log *zap.Logger) *Handlers {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	if seed == nil {
		seed = []routes.Route{}
	}
	return &Handlers{svc: svc, routes: seed, interval: interval, log: log}
}

// Register mounts the search surface on mux. The flight path mirrors the
// form links: /flight/{origin}/{destination}/{DD-MM-YYYY}/{class}.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /routes", h.Routes)
	mux.HandleFunc("GET /flight/{origin}/{destination}/{date}/{class}", h.Search)
	mux.HandleFunc("GET /sse/flight/{origin}/{destination}/{date}/{class}", h.SubscribeSSE)
	mux.HandleFunc("GET /ws/flight/{origin}/{destination}/{date}/{class}", h.SubscribeWS)
}

func requestFrom(r *http.Request) (service.SearchRequest, error) {
	req := service.SearchRequest{
		Origin:      r.PathValue("origin"),
		Destination: r.PathValue("destination"),
		TravelDate:  r.PathValue("date"),
		CabinClass:  r.PathValue("class"),
		Airline:     r.URL.Query().Get("airline"),
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return req, service.ValidationError(fmt.Sprintf("limit %q must be a non-negative integer", s))
		}
		req.Limit = n
	}
	return req, nil
}

// StatusFor maps a search failure to the status returned to the caller.
func StatusFor(err error) int {
	var (
		ve service.ValidationError
		pe *providers.ProviderError
		ae *providers.AuthError
		ce *currency.ConversionError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &pe), errors.As(err, &ae), errors.As(err, &ce):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Warn("search failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Status: status, Message: err.Error()})
}

func (h *Handlers) Routes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.routes)
}

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	req, err := requestFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.svc.Run(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SubscribeSSE re-runs the search every interval and pushes each result as
// an "update" event. A failed search sends an "error" event and ends the
// stream.
func (h *Handlers) SubscribeSSE(w http.ResponseWriter, r *http.Request) {
	req, err := requestFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		res, err := h.svc.Run(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			payload, _ := json.Marshal(errorResponse{Status: StatusFor(err), Message: err.Error()})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
			flusher.Flush()
			return
		}
		payload, _ := json.Marshal(res)
		fmt.Fprintf(w, "event: update\ndata: %s\n\n", payload)
		flusher.Flush()

		select {
		case <-ctx.Done():
			h.log.Debug("sse client closed")
			return
		case <-ticker.C:
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict in prod
	},
}

func (h *Handlers) SubscribeWS(w http.ResponseWriter, r *http.Request) {
	req, err := requestFrom(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	// the hijacked connection no longer cancels r.Context, so watch reads
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		res, err := h.svc.Run(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			_ = conn.WriteJSON(errorResponse{Status: StatusFor(err), Message: err.Error()})
			return
		}
		if err := conn.WriteJSON(res); err != nil {
			h.log.Debug("websocket write", zap.Error(err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
