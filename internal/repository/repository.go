package repository

import (
	"context"

	"github.com/splax/arena/internal/domain"
)

// TeamEventRepository stores the team membership audit trail.
type TeamEventRepository interface {
	AppendTeamEvent(ctx context.Context, event *domain.TeamEvent) error
	ListTeamEvents(ctx context.Context, incarnation string, teamID domain.TeamID, limit int) ([]domain.TeamEvent, error)
}
