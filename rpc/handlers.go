package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helioswap/routegraph/ingest"
	"github.com/helioswap/routegraph/models"
)

const buildRequestTimeout = 2 * time.Minute

// routeHandlers holds the JSON endpoints over the per-chain registry.
type routeHandlers struct {
	registry *ingest.Registry
	updater  *ingest.Updater
}

func newRouteHandlers(registry *ingest.Registry, updater *ingest.Updater) *routeHandlers {
	return &routeHandlers{registry: registry, updater: updater}
}

type errorResponse struct {
	Error string `json:"error"`
}

type routesResponse struct {
	ChainID uint64         `json:"chainId"`
	From    string         `json:"from"`
	To      string         `json:"to"`
	Routes  []models.Route `json:"routes"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	// Route and stats payloads are volatile, keep them out of shared caches
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		Logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// findRoutes serves GET /v1/routes.
//
// Query parameters: chain (required), from (required), to (required),
// maxHops, maxRoutes, algorithm (bfs|dijkstra|auto).
func (h *routeHandlers) findRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	chainID, err := strconv.ParseUint(q.Get("chain"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "chain must be a numeric chain id")
		return
	}
	from := q.Get("from")
	to := q.Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to token addresses are required")
		return
	}

	req := models.RouteRequest{
		ChainID:   chainID,
		FromToken: from,
		ToToken:   to,
	}
	if raw := q.Get("maxHops"); raw != "" {
		hops, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "maxHops must be an integer")
			return
		}
		req.MaxHops = hops
	}

	opts := models.RouteOptions{Algorithm: models.Algorithm(q.Get("algorithm"))}
	if raw := q.Get("maxRoutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "maxRoutes must be an integer")
			return
		}
		opts.MaxRoutes = n
	}

	svc, ok := h.registry.Service(chainID)
	if !ok {
		writeError(w, http.StatusNotFound, "unsupported chain")
		return
	}
	chainLabel := strconv.FormatUint(chainID, 10)

	routes, err := svc.Pathfinder.FindRoutes(req, opts)
	if err != nil {
		queriesTotal.WithLabelValues(chainLabel, "invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(routes) == 0 {
		routes = []models.Route{}
		queriesTotal.WithLabelValues(chainLabel, "empty").Inc()
	} else {
		queriesTotal.WithLabelValues(chainLabel, "ok").Inc()
	}

	writeJSON(w, http.StatusOK, routesResponse{
		ChainID: chainID,
		From:    from,
		To:      to,
		Routes:  routes,
	})
}

// buildGraph serves POST /v1/graph/{chainID}/build: a synchronous
// manual refresh of one chain's graph.
func (h *routeHandlers) buildGraph(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseUint(chi.URLParam(r, "chainID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "chainID must be numeric")
		return
	}

	builder, ok := h.registry.Builder(chainID)
	if !ok {
		writeError(w, http.StatusNotFound, "unsupported chain")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), buildRequestTimeout)
	defer cancel()

	status, err := builder.BuildGraph(ctx)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedChain) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// buildAll serves POST /v1/graph/build: a synchronous refresh of every
// chain, sharing the scheduler's in-flight guard so it can never race a
// timed update.
func (h *routeHandlers) buildAll(w http.ResponseWriter, r *http.Request) {
	if h.updater == nil {
		writeError(w, http.StatusNotImplemented, "no updater configured")
		return
	}
	statuses := h.updater.ForceUpdate(r.Context())
	if statuses == nil {
		writeError(w, http.StatusConflict, "an update is already in flight")
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

// graphStats serves GET /v1/graph/{chainID}/stats.
func (h *routeHandlers) graphStats(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseUint(chi.URLParam(r, "chainID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "chainID must be numeric")
		return
	}

	builder, ok := h.registry.Builder(chainID)
	if !ok {
		writeError(w, http.StatusNotFound, "unsupported chain")
		return
	}
	writeJSON(w, http.StatusOK, builder.GraphStats())
}

// ready reports readiness: at least one chain's graph must be populated.
func (h *routeHandlers) ready(w http.ResponseWriter, r *http.Request) {
	for _, chainID := range h.registry.ChainIDs() {
		svc, ok := h.registry.Service(chainID)
		if !ok {
			continue
		}
		if svc.Graph.Stats().NodeCount > 0 {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}
	}
	writeError(w, http.StatusServiceUnavailable, "no chain graph populated yet")
}
