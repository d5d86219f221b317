package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/splax/arena/internal/domain"
)

// Transport hands a frame to the session addressed by route.
type Transport interface {
	Deliver(ctx context.Context, route domain.Route, payload []byte) error
}

// Push is the frame clients receive for one-way events.
type Push struct {
	Route string `json:"route"`
	Body  any    `json:"body"`
}

// Service formats team events and routes them to players. Delivery is
// fire-and-forget: failures are logged and never retried.
type Service struct {
	transport Transport
	logger    *slog.Logger
}

// New constructs a notification service.
func New(transport Transport, logger *slog.Logger) Service {
	return Service{transport: transport, logger: logger}
}

// PushToPlayer sends one event to one player.
func (s Service) PushToPlayer(ctx context.Context, route domain.Route, event string, body any) {
	data, err := MarshalPush(event, body)
	if err != nil {
		s.logger.Warn("failed to marshal push payload", "event", event, "error", err)
		return
	}
	s.deliver(ctx, route, event, data)
}

// PushToRoutes sends the same event to every route. Order across routes is
// not guaranteed.
func (s Service) PushToRoutes(ctx context.Context, routes []domain.Route, event string, body any) {
	if len(routes) == 0 {
		return
	}
	data, err := MarshalPush(event, body)
	if err != nil {
		s.logger.Warn("failed to marshal push payload", "event", event, "error", err)
		return
	}
	for _, route := range routes {
		s.deliver(ctx, route, event, data)
	}
}

func (s Service) deliver(ctx context.Context, route domain.Route, event string, data []byte) {
	if err := s.transport.Deliver(ctx, route, data); err != nil {
		s.logger.Warn("push delivery failed", "event", event, "uid", route.UserID, "sid", route.ServerID, "error", err)
	}
}

// MarshalPush encodes a push frame.
func MarshalPush(event string, body any) ([]byte, error) {
	return json.Marshal(Push{Route: event, Body: body})
}
