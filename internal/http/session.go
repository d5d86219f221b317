package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/splax/arena/internal/domain"
	"github.com/splax/arena/internal/service/presence"
	"github.com/splax/arena/internal/service/team"
	"github.com/splax/arena/internal/ws"
)

const maxFrameBytes = 8 << 10

// frame is a request sent by a client over its session.
type frame struct {
	ID    uint64          `json:"id"`
	Route string          `json:"route"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// reply answers the frame with the same id. Dropped requests get none.
type reply struct {
	ID   uint64 `json:"id"`
	Body any    `json:"body"`
}

// frameHandler runs one routed request. A nil result means no reply is sent;
// an error means the body could not be decoded.
type frameHandler func(ctx context.Context, sess team.Session, body json.RawMessage) (any, error)

func decodeBody[T any](body json.RawMessage) (T, error) {
	var req T
	if len(body) == 0 {
		return req, nil
	}
	err := json.Unmarshal(body, &req)
	return req, err
}

func answer[Req, Resp any](fn func(context.Context, team.Session, Req) *Resp) frameHandler {
	return func(ctx context.Context, sess team.Session, body json.RawMessage) (any, error) {
		req, err := decodeBody[Req](body)
		if err != nil {
			return nil, err
		}
		if resp := fn(ctx, sess, req); resp != nil {
			return resp, nil
		}
		return nil, nil
	}
}

func oneWay[Req any](fn func(context.Context, team.Session, Req)) frameHandler {
	return func(ctx context.Context, sess team.Session, body json.RawMessage) (any, error) {
		req, err := decodeBody[Req](body)
		if err != nil {
			return nil, err
		}
		fn(ctx, sess, req)
		return nil, nil
	}
}

func (r *Router) frameRoutes() map[string]frameHandler {
	svc := r.team
	return map[string]frameHandler{
		"team.createTeam":          answer(svc.CreateTeam),
		"team.disbandTeam":         answer(svc.DisbandTeam),
		"team.inviteJoinTeam":      oneWay(svc.InviteJoinTeam),
		"team.inviteJoinTeamReply": answer(svc.InviteJoinTeamReply),
		"team.applyJoinTeam":       oneWay(svc.ApplyJoinTeam),
		"team.applyJoinTeamReply":  answer(svc.ApplyJoinTeamReply),
		"team.kickOutOfTeam":       oneWay(svc.KickOutOfTeam),
		"team.leaveTeam":           oneWay(svc.LeaveTeam),
		"team.depute2Member":       oneWay(svc.Depute2Member),
		"team.chatInTeam":          oneWay(svc.ChatInTeam),
	}
}

// handleSession upgrades an authenticated player to a websocket session. The
// player is present in the area for the lifetime of the connection; closing
// it runs the same departure as leaving the team.
func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for area session", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	if info.AreaID != r.cfg.AreaID {
		writeError(w, http.StatusForbidden, "session token is for another area")
		return
	}
	userID := info.UserID
	if userID == "" {
		userID = strconv.FormatInt(info.PlayerID, 10)
	}
	player := &domain.Player{
		ID:       domain.PlayerID(info.PlayerID),
		UserID:   userID,
		ServerID: r.cfg.ServerID,
		AreaID:   info.AreaID,
		Name:     info.Name,
		Level:    info.Level,
	}
	if err := r.players.Enter(player); err != nil {
		if errors.Is(err, presence.ErrAlreadyOnline) {
			writeError(w, http.StatusConflict, "player already online")
			return
		}
		r.logger.Error("presence enter failed", "player_id", player.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enter area")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.players.Leave(player)
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(player.UserID, client)
	r.sessionOpened(1)
	r.logger.Info("player session opened", "player_id", player.ID, "area_id", player.AreaID)

	ctx := context.WithoutCancel(req.Context())
	defer func() {
		r.team.PlayerOffline(ctx, player)
		r.players.Leave(player)
		r.hub.Unregister(player.UserID, client)
		client.Close()
		r.sessionOpened(-1)
		r.logger.Info("player session closed", "player_id", player.ID, "area_id", player.AreaID)
	}()

	sess := team.Session{AreaID: player.AreaID, PlayerID: player.ID}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.Debug("session read ended", "player_id", player.ID, "error", err)
			}
			return
		}
		out, ok := r.dispatch(ctx, sess, data)
		if !ok {
			continue
		}
		if err := client.Send(out); err != nil {
			return
		}
	}
}

// dispatch decodes and routes one frame. It returns the encoded reply, and
// false when the request is dropped.
func (r *Router) dispatch(ctx context.Context, sess team.Session, data []byte) ([]byte, bool) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		r.recordFrame("invalid", "malformed")
		r.logger.Warn("session frame malformed", "player_id", sess.PlayerID, "error", err)
		return nil, false
	}
	handler, ok := r.routes[f.Route]
	if !ok {
		r.recordFrame("unknown", "unrouted")
		r.logger.Warn("session frame route unknown", "player_id", sess.PlayerID, "route", f.Route)
		return nil, false
	}
	key := playerRateKey(int64(sess.PlayerID))
	if decision := r.limiter.Allow(key, r.cfg.FrameLimit, r.cfg.FrameWindow); !decision.allowed {
		r.recordRateLimitHit(f.Route, rateMetricKey(key))
		r.recordFrame(f.Route, "rate_limited")
		r.logger.Warn("session frame rate limited", "player_id", sess.PlayerID, "route", f.Route)
		return nil, false
	}
	result, err := handler(ctx, sess, f.Body)
	if err != nil {
		r.recordFrame(f.Route, "malformed")
		r.logger.Warn("session frame body malformed", "player_id", sess.PlayerID, "route", f.Route, "error", err)
		return nil, false
	}
	if result == nil {
		r.recordFrame(f.Route, "no_reply")
		return nil, false
	}
	out, err := json.Marshal(reply{ID: f.ID, Body: result})
	if err != nil {
		r.recordFrame(f.Route, "encode_error")
		r.logger.Error("session reply encode failed", "player_id", sess.PlayerID, "route", f.Route, "error", err)
		return nil, false
	}
	r.recordFrame(f.Route, "replied")
	return out, true
}
