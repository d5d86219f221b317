package registry

import (
	"context"
	"errors"

	"github.com/splax/arena/internal/domain"
)

// Departure describes the outcome of a roster-shrinking mutation.
type Departure struct {
	TeamID     domain.TeamID
	Member     domain.Member
	WasCaptain bool
	NewCaptain domain.PlayerID
	Disbanded  bool
	// Team is the roster after the departure; empty when Disbanded.
	Team domain.TeamView
}

// shrinkStep runs under the team lock after a member was removed.
type shrinkStep func(ctx context.Context, r *Registry, e *entry, d *Departure)

// Captain transfer must precede the empty check: a sole departing captain
// leaves nobody to transfer to and the team is disbanded instead.
var shrinkPipeline = []shrinkStep{
	reassignCaptain,
	disbandIfEmpty,
}

// RemovePlayer takes playerID off the roster and runs the shrink pipeline.
func (r *Registry) RemovePlayer(ctx context.Context, id domain.TeamID, playerID domain.PlayerID, guard Guard) (Departure, error) {
	e, ok := r.lookup(id)
	if !ok {
		return Departure{}, ErrTeamNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Departure{}, ErrTeamNotFound
	}
	if err := guard.check(e.team); err != nil {
		return Departure{}, err
	}

	d := Departure{TeamID: id, WasCaptain: e.team.IsCaptainByID(playerID)}
	m, err := e.team.RemovePlayer(playerID)
	switch {
	case errors.Is(err, domain.ErrNotMember):
		return Departure{}, err
	case errors.Is(err, domain.ErrAffiliationMismatch):
		r.logger.ErrorContext(ctx, "departing member affiliation inconsistent", "team_id", id, "player_id", playerID, "affiliation", m.TeamID())
	}
	d.Member = m

	for _, step := range shrinkPipeline {
		step(ctx, r, e, &d)
	}
	if !d.Disbanded {
		d.Team = e.team.View()
	}
	return d, nil
}

func reassignCaptain(ctx context.Context, r *Registry, e *entry, d *Departure) {
	if !d.WasCaptain || e.team.Size() == 0 {
		return
	}
	next := e.team.FirstPlayerID()
	if e.team.SetCaptainID(next) {
		d.NewCaptain = next
		r.logger.InfoContext(ctx, "captaincy transferred", "team_id", d.TeamID, "captain_id", next)
	}
}

func disbandIfEmpty(ctx context.Context, r *Registry, e *entry, d *Departure) {
	d.Disbanded = r.try2DisbandLocked(ctx, e)
}
