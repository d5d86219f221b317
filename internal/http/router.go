package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splax/arena/internal/domain"
	"github.com/splax/arena/internal/service/presence"
	"github.com/splax/arena/internal/service/team"
	"github.com/splax/arena/internal/ws"
)

// Config carries the router settings that do not come from services.
type Config struct {
	AreaID      string
	ServerID    string
	JWTSecret   string
	FrameLimit  int
	FrameWindow time.Duration
	// Registerer receives HTTP and session metrics; nil uses the default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Router wires HTTP endpoints and player sessions to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	cfg      Config
	team     team.Service
	players  *presence.Directory
	hub      *ws.Hub
	upgrader websocket.Upgrader
	limiter  RateLimiter
	dbHealth func(context.Context) error
	routes   map[string]frameHandler

	registerer         prometheus.Registerer
	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	frameTotal         *prometheus.CounterVec
	sessionsActive     prometheus.Gauge
}

const (
	rateWindowDefault  = time.Minute
	rateLimitTeamRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
	teamEventsDefault  = 20
	teamEventsMax      = 200
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, cfg Config, teamSvc team.Service, players *presence.Directory, hub *ws.Hub, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		cfg:     cfg,
		team:    teamSvc,
		players: players,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:    limiter,
		dbHealth:   dbHealth,
		registerer: cfg.Registerer,
	}
	if r.registerer == nil {
		r.registerer = prometheus.DefaultRegisterer
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.routes = r.frameRoutes()
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	gatherer := r.cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.mux.HandleFunc("/teams/", r.audit("/teams/{id}", r.handlerAuthRate("/teams/{id}", rateLimitTeamRead, rateWindowDefault, r.handleTeam)))
	r.mux.HandleFunc("/ws/area", r.audit("/ws/area", r.handlerAuthRate("/ws/area", rateLimitWebsocket, rateWindowDefault, r.handleSession)))
}

// handleTeam serves GET /teams/{id}: the roster snapshot plus recent journal
// entries when a journal is configured.
func (r *Router) handleTeam(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	raw := strings.Trim(strings.TrimPrefix(req.URL.Path, "/teams/"), "/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return
	}
	limit := teamEventsDefault
	if v := req.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, teamEventsMax)
	}
	view, ok := r.team.GetTeamByID(domain.TeamID(id))
	if !ok {
		r.notFound(w)
		return
	}
	events, err := r.team.TeamEvents(req.Context(), view.ID, limit)
	if err != nil {
		r.logger.Error("list team events failed", "team_id", view.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load team events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"team":   view,
		"events": marshalTeamEvents(events),
	})
}

func marshalTeamEvents(events []domain.TeamEvent) []map[string]any {
	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		item := map[string]any{
			"id":          ev.ID,
			"team_id":     ev.TeamID,
			"kind":        string(ev.Kind),
			"occurred_at": ev.OccurredAt.UTC().Format(time.RFC3339Nano),
		}
		if ev.PlayerID != domain.PlayerIDNone {
			item["player_id"] = ev.PlayerID
		}
		if ev.ActorID != domain.PlayerIDNone {
			item["actor_id"] = ev.ActorID
		}
		out = append(out, item)
	}
	return out
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := map[string]any{
		"teams":   map[string]any{"status": "up", "count": r.team.TeamCount()},
		"players": map[string]any{"status": "up", "count": r.players.Count(r.cfg.AreaID)},
	}
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["journal"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["journal"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"server_id":  r.cfg.ServerID,
		"area_id":    r.cfg.AreaID,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)
		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "player"
			fields = append(fields, "player_id", info.PlayerID, "area_id", info.AreaID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		sr.status = http.StatusSwitchingProtocols
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
