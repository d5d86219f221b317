package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/arena/internal/domain"
	"github.com/splax/arena/internal/repository"
)

const defaultEventLimit = 50

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ repository.TeamEventRepository = (*Repository)(nil)

// AppendTeamEvent inserts an audit record and fills its id.
func (r *Repository) AppendTeamEvent(ctx context.Context, event *domain.TeamEvent) error {
	const query = `INSERT INTO team_events (server_id, incarnation, team_id, kind, player_id, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	return r.pool.QueryRow(ctx, query,
		event.ServerID,
		event.Incarnation,
		int64(event.TeamID),
		string(event.Kind),
		int64(event.PlayerID),
		int64(event.ActorID),
		event.OccurredAt,
	).Scan(&event.ID)
}

// ListTeamEvents returns the most recent events of a team within one process
// run, newest first.
func (r *Repository) ListTeamEvents(ctx context.Context, incarnation string, teamID domain.TeamID, limit int) ([]domain.TeamEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	const query = `SELECT id, server_id, incarnation, team_id, kind, player_id, actor_id, occurred_at
		FROM team_events
		WHERE incarnation = $1 AND team_id = $2
		ORDER BY occurred_at DESC, id DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, query, incarnation, int64(teamID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.TeamEvent
	for rows.Next() {
		var (
			ev       domain.TeamEvent
			rawTeam  int64
			kind     string
			playerID int64
			actorID  int64
		)
		if err := rows.Scan(&ev.ID, &ev.ServerID, &ev.Incarnation, &rawTeam, &kind, &playerID, &actorID, &ev.OccurredAt); err != nil {
			return nil, err
		}
		ev.TeamID = domain.TeamID(rawTeam)
		ev.Kind = domain.TeamEventKind(kind)
		ev.PlayerID = domain.PlayerID(playerID)
		ev.ActorID = domain.PlayerID(actorID)
		events = append(events, ev)
	}
	return events, rows.Err()
}
