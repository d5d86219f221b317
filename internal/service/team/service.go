package team

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/splax/arena/internal/domain"
	"github.com/splax/arena/internal/repository"
	"github.com/splax/arena/internal/service/registry"
)

const journalTimeout = 2 * time.Second

// PlayerLookup resolves live players hosted in an area.
type PlayerLookup interface {
	Player(areaID string, id domain.PlayerID) (*domain.Player, bool)
}

// Notifier pushes one-way events to players.
type Notifier interface {
	PushToPlayer(ctx context.Context, route domain.Route, event string, body any)
	PushToRoutes(ctx context.Context, routes []domain.Route, event string, body any)
}

// Service is the entry point for every team operation of an area server.
type Service struct {
	registry *registry.Registry
	players  PlayerLookup
	notifier Notifier
	journal  repository.TeamEventRepository
	metrics  *Metrics
	serverID string
	// incarnation scopes journal reads to this process run.
	incarnation string
	validator   *validator.Validate
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

// New constructs a Service. journal and metrics may be nil.
func New(reg *registry.Registry, players PlayerLookup, notifier Notifier, journal repository.TeamEventRepository, metrics *Metrics, serverID string, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{
		registry:    reg,
		players:     players,
		notifier:    notifier,
		journal:     journal,
		metrics:     metrics,
		serverID:    serverID,
		incarnation: uuid.NewString(),
		validator:   validator.New(),
		tracer:      otel.Tracer("github.com/splax/arena/internal/service/team"),
		logger:      logger,
		now:         time.Now,
	}
}

// GetTeamByID returns a snapshot of a team. Safe to retry.
func (s Service) GetTeamByID(id domain.TeamID) (domain.TeamView, bool) {
	return s.registry.GetTeamByID(id)
}

// TeamCount returns the number of live teams.
func (s Service) TeamCount() int {
	return s.registry.Count()
}

// TeamEvents lists the journal of a team, newest first.
func (s Service) TeamEvents(ctx context.Context, id domain.TeamID, limit int) ([]domain.TeamEvent, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.ListTeamEvents(ctx, s.incarnation, id, limit)
}

func (s Service) start(ctx context.Context, op string, sess Session) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "team."+op, trace.WithAttributes(
		attribute.String("area.id", sess.AreaID),
		attribute.Int64("player.id", int64(sess.PlayerID)),
	))
}

// record appends to the journal. Failures are logged, never surfaced.
func (s Service) record(ctx context.Context, kind domain.TeamEventKind, teamID domain.TeamID, playerID, actorID domain.PlayerID) {
	if s.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	event := &domain.TeamEvent{
		ServerID:    s.serverID,
		Incarnation: s.incarnation,
		TeamID:      teamID,
		Kind:        kind,
		PlayerID:    playerID,
		ActorID:     actorID,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.journal.AppendTeamEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "team journal append failed", "team_id", teamID, "kind", kind, "error", err)
	}
}
