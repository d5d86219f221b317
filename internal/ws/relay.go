package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/splax/arena/internal/domain"
)

const relayPublishTimeout = 250 * time.Millisecond

// ErrNoRelay indicates a push addressed to another server while no relay
// backend is configured.
var ErrNoRelay = errors.New("ws: no relay for remote server")

// envelope is the pub/sub frame exchanged between area servers.
type envelope struct {
	UserID  string          `json:"uid"`
	Payload json.RawMessage `json:"payload"`
}

// Relay delivers pushes to local sessions through the hub and forwards
// pushes for sessions hosted elsewhere over Redis pub/sub.
type Relay struct {
	hub      *Hub
	client   *redis.Client
	serverID string
	prefix   string
	logger   *slog.Logger
}

// NewRelay constructs a relay. client may be nil for single-server setups.
func NewRelay(hub *Hub, client *redis.Client, serverID string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		hub:      hub,
		client:   client,
		serverID: serverID,
		prefix:   "arena:push:",
		logger:   logger,
	}
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Deliver hands payload to the session addressed by route. It does not retry.
func (r *Relay) Deliver(ctx context.Context, route domain.Route, payload []byte) error {
	if route.ServerID == "" || route.ServerID == r.serverID {
		r.hub.Send(route.UserID, payload)
		return nil
	}
	if r.client == nil {
		return ErrNoRelay
	}
	frame, err := json.Marshal(envelope{UserID: route.UserID, Payload: payload})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, relayPublishTimeout)
	defer cancel()
	return r.client.Publish(ctx, r.channel(route.ServerID), frame).Err()
}

// Run subscribes to this server's channel and feeds remote pushes into the
// hub until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r.client == nil {
		<-ctx.Done()
		return nil
	}
	sub := r.client.Subscribe(ctx, r.channel(r.serverID))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	r.logger.Info("push relay subscribed", "server_id", r.serverID)
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.dispatch([]byte(msg.Payload))
		}
	}
}

// Close releases the Redis connection.
func (r *Relay) Close() {
	if r.client != nil {
		_ = r.client.Close()
	}
}

func (r *Relay) dispatch(frame []byte) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		r.logger.Warn("malformed relay frame", "error", err)
		return
	}
	r.hub.Send(env.UserID, env.Payload)
}

func (r *Relay) channel(serverID string) string {
	return r.prefix + serverID
}
