package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/splax/arena/internal/domain"
	"github.com/splax/arena/internal/service/notify"
	"github.com/splax/arena/internal/service/presence"
	"github.com/splax/arena/internal/service/registry"
	"github.com/splax/arena/internal/service/team"
	"github.com/splax/arena/internal/ws"
	jwtpkg "github.com/splax/arena/pkg/jwt"
)

const (
	testSecret = "test-secret"
	testArea   = "area-1"
	testServer = "srv-1"
)

type harness struct {
	srv     *httptest.Server
	router  *Router
	service team.Service
	players *presence.Directory
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(3, logger)
	players := presence.New()
	hub := ws.NewHub()
	relay := ws.NewRelay(hub, nil, testServer, logger)
	svc := team.New(reg, players, notify.New(relay, logger), nil, nil, testServer, logger)
	metrics := prometheus.NewRegistry()
	cfg := Config{
		AreaID:     testArea,
		ServerID:   testServer,
		JWTSecret:  testSecret,
		Registerer: metrics,
		Gatherer:   metrics,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	router := NewRouter(logger, cfg, svc, players, hub, nil, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		router.Close()
	})
	return &harness{srv: srv, router: router, service: svc, players: players}
}

func mintToken(t *testing.T, playerID int64, area string) string {
	t.Helper()
	token, err := jwtpkg.GenerateToken(jwtpkg.Claims{
		PlayerID: playerID,
		UserID:   fmt.Sprintf("u-%d", playerID),
		AreaID:   area,
		Name:     fmt.Sprintf("player-%d", playerID),
		Level:    10,
	}, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (h *harness) wsURL(token string) string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws/area?token=" + token
}

func (h *harness) dial(t *testing.T, playerID int64) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(h.wsURL(mintToken(t, playerID, testArea)), nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial player %d: %v (status %d)", playerID, err, status)
	}
	t.Cleanup(func() { _ = conn.Close() })
	ready(t, conn)
	return conn
}

type inbound struct {
	ID    uint64          `json:"id"`
	Route string          `json:"route"`
	Body  json.RawMessage `json:"body"`
}

func send(t *testing.T, conn *websocket.Conn, id uint64, route string, body any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	if err := conn.WriteJSON(frame{ID: id, Route: route, Body: raw}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(inbound) bool) inbound {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func replyTo(id uint64) func(inbound) bool {
	return func(m inbound) bool { return m.ID == id }
}

func pushOf(route string) func(inbound) bool {
	return func(m inbound) bool { return m.Route == route }
}

// ready round-trips a request that always gets a reply, which guarantees the
// session is registered for pushes.
func ready(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, 999, "team.disbandTeam", map[string]any{"teamId": 424242})
	readUntil(t, conn, replyTo(999))
}

func TestSessionTeamLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	alice := h.dial(t, 1)
	bob := h.dial(t, 2)

	send(t, alice, 1, "team.createTeam", nil)
	var created team.CreateTeamResponse
	if err := json.Unmarshal(readUntil(t, alice, replyTo(1)).Body, &created); err != nil {
		t.Fatalf("decode create reply: %v", err)
	}
	if created.Result != domain.StatusOK || created.TeamID == domain.TeamIDNone {
		t.Fatalf("unexpected create reply: %+v", created)
	}

	send(t, bob, 2, "team.applyJoinTeam", map[string]any{"teamId": created.TeamID})
	readUntil(t, alice, pushOf(domain.EventApplyJoinTeam))

	send(t, alice, 3, "team.applyJoinTeamReply", map[string]any{"teamId": created.TeamID, "applicantId": 2, "reply": 1})
	var joined team.JoinReplyResponse
	if err := json.Unmarshal(readUntil(t, alice, replyTo(3)).Body, &joined); err != nil {
		t.Fatalf("decode join reply: %v", err)
	}
	if joined.Result != domain.StatusOK {
		t.Fatalf("expected ok join, got %v", joined.Result)
	}
	update := readUntil(t, bob, pushOf(domain.EventUpdateTeam))
	var view domain.TeamView
	if err := json.Unmarshal(update.Body, &view); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if len(view.Members) != 2 || view.CaptainID != 1 {
		t.Fatalf("unexpected roster push: %+v", view)
	}

	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+fmt.Sprintf("/teams/%d", created.TeamID), nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, 2, testArea))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Team   domain.TeamView  `json:"team"`
		Events []map[string]any `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode team: %v", err)
	}
	if len(payload.Team.Members) != 2 || len(payload.Events) != 0 {
		t.Fatalf("unexpected team payload: %+v", payload)
	}

	_ = alice.Close()
	readUntil(t, bob, pushOf(domain.EventTeammateLeaveTeam))
	deadline := time.Now().Add(3 * time.Second)
	for {
		v, ok := h.service.GetTeamByID(created.TeamID)
		if ok && v.CaptainID == 2 && len(v.Members) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected bob to inherit captaincy, got %+v", v)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, online := h.players.Player(testArea, 1); online {
		t.Fatalf("expected alice removed from presence")
	}
}

func TestSessionRejectsDuplicateLogin(t *testing.T) {
	h := newHarness(t, nil)
	h.dial(t, 1)
	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL(mintToken(t, 1, testArea)), nil)
	if err == nil {
		t.Fatalf("expected duplicate session to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %+v", resp)
	}
}

func TestSessionRequiresValidToken(t *testing.T) {
	h := newHarness(t, nil)
	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL("not-a-token"), nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v %+v", err, resp)
	}
	_, resp, err = websocket.DefaultDialer.Dial(h.wsURL(mintToken(t, 1, "area-9")), nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v %+v", err, resp)
	}
}

func TestDispatchDropsBadFrames(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	sess := team.Session{AreaID: testArea, PlayerID: 5}

	if _, ok := h.router.dispatch(ctx, sess, []byte("{oops")); ok {
		t.Fatalf("malformed frame must be dropped")
	}
	if _, ok := h.router.dispatch(ctx, sess, []byte(`{"id":1,"route":"team.unknown"}`)); ok {
		t.Fatalf("unknown route must be dropped")
	}
	if _, ok := h.router.dispatch(ctx, sess, []byte(`{"id":1,"route":"team.createTeam"}`)); ok {
		t.Fatalf("absent caller must be dropped")
	}
	if _, ok := h.router.dispatch(ctx, sess, []byte(`{"id":1,"route":"team.leaveTeam","body":"x"}`)); ok {
		t.Fatalf("malformed body must be dropped")
	}

	if err := h.players.Enter(&domain.Player{ID: 5, UserID: "u-5", ServerID: testServer, AreaID: testArea}); err != nil {
		t.Fatalf("enter: %v", err)
	}
	out, ok := h.router.dispatch(ctx, sess, []byte(`{"id":7,"route":"team.createTeam"}`))
	if !ok {
		t.Fatalf("expected create reply")
	}
	var got struct {
		ID   uint64                  `json:"id"`
		Body team.CreateTeamResponse `json:"body"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if got.ID != 7 || got.Body.Result != domain.StatusOK {
		t.Fatalf("unexpected reply %s", out)
	}
}

func TestDispatchRateLimitsFrames(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.FrameLimit = 1
		cfg.FrameWindow = time.Minute
	})
	ctx := context.Background()
	sess := team.Session{AreaID: testArea, PlayerID: 5}
	raw := []byte(`{"id":1,"route":"team.disbandTeam","body":{"teamId":3}}`)

	if err := h.players.Enter(&domain.Player{ID: 5, UserID: "u-5", ServerID: testServer, AreaID: testArea}); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if _, ok := h.router.dispatch(ctx, sess, raw); !ok {
		t.Fatalf("first frame should be answered")
	}
	if _, ok := h.router.dispatch(ctx, sess, raw); ok {
		t.Fatalf("second frame should be rate limited")
	}
}

func TestHandleTeamErrors(t *testing.T) {
	h := newHarness(t, nil)
	token := mintToken(t, 1, testArea)
	cases := []struct {
		path   string
		auth   bool
		status int
	}{
		{"/teams/1", false, http.StatusUnauthorized},
		{"/teams/abc", true, http.StatusBadRequest},
		{"/teams/1?limit=-1", true, http.StatusBadRequest},
		{"/teams/77", true, http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.auth {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.status, rec.Code)
		}
	}
}

func TestHealthzReportsCounts(t *testing.T) {
	h := newHarness(t, nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "ok" || payload["server_id"] != testServer {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestHealthzDegradedWhenJournalDown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	svc := team.New(registry.New(3, logger), presence.New(), notify.New(ws.NewRelay(ws.NewHub(), nil, testServer, logger), logger), nil, nil, testServer, logger)
	router := NewRouter(logger, Config{AreaID: testArea, Registerer: reg, Gatherer: reg}, svc, presence.New(), ws.NewHub(), nil, func(context.Context) error {
		return fmt.Errorf("connection refused")
	})
	defer router.Close()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMetricsEndpointExposesSessionCounters(t *testing.T) {
	h := newHarness(t, nil)
	h.dial(t, 1)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "arena_session_frames_total") {
		t.Fatalf("expected frame counter in metrics output")
	}
}

func TestMemoryRateLimiterWindows(t *testing.T) {
	rl := NewMemoryRateLimiter().(*memoryRateLimiter)
	defer rl.Close()
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if d := rl.Allow("player:1", 2, time.Minute); !d.allowed {
			t.Fatalf("hit %d should be allowed", i)
		}
	}
	if d := rl.Allow("player:1", 2, time.Minute); d.allowed || d.count != 2 {
		t.Fatalf("third hit should be denied: %+v", d)
	}
	if d := rl.Allow("player:2", 2, time.Minute); !d.allowed {
		t.Fatalf("keys must be independent")
	}
	now = now.Add(2 * time.Minute)
	if d := rl.Allow("player:1", 2, time.Minute); !d.allowed || d.count != 1 {
		t.Fatalf("window should reset: %+v", d)
	}
	rl.cleanup(now.Add(time.Hour))
	if len(rl.entries) != 0 {
		t.Fatalf("expected expired entries swept")
	}
}

func TestBearerToken(t *testing.T) {
	if _, err := bearerToken(""); err == nil {
		t.Fatalf("expected error for empty header")
	}
	if _, err := bearerToken("Basic abc"); err == nil {
		t.Fatalf("expected error for wrong scheme")
	}
	if tok, err := bearerToken("bearer abc"); err != nil || tok != "abc" {
		t.Fatalf("unexpected result %q %v", tok, err)
	}
}
