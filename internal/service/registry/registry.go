package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/splax/arena/internal/domain"
)

var (
	// ErrTeamNotFound indicates the team id is not registered.
	ErrTeamNotFound = errors.New("registry: team not found")
	// ErrNotCaptain indicates a guard found captaincy had moved.
	ErrNotCaptain = errors.New("registry: player is not the captain")
)

// Guard re-validates a precondition under the team lock before a mutation.
type Guard func(*domain.Team) error

// RequireCaptain guards mutations that only the captain may perform.
func RequireCaptain(id domain.PlayerID) Guard {
	return func(t *domain.Team) error {
		if !t.IsCaptainByID(id) {
			return ErrNotCaptain
		}
		return nil
	}
}

// RequireMember guards mutations on behalf of a roster member.
func RequireMember(id domain.PlayerID) Guard {
	return func(t *domain.Team) error {
		if !t.IsPlayerInTeam(id) {
			return domain.ErrNotMember
		}
		return nil
	}
}

// entry guards one team. removed is set under mu when the team is disbanded
// so that callers blocked on mu observe the removal.
type entry struct {
	mu      sync.Mutex
	team    *domain.Team
	removed bool
}

// Registry owns every team of an area-server process.
type Registry struct {
	mu       sync.RWMutex
	teams    map[domain.TeamID]*entry
	nextID   domain.TeamID
	capacity int
	logger   *slog.Logger
}

// New constructs an empty registry whose teams hold at most capacity members.
func New(capacity int, logger *slog.Logger) *Registry {
	if capacity <= 0 {
		capacity = domain.DefaultMaxTeamSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		teams:    make(map[domain.TeamID]*entry),
		capacity: capacity,
		logger:   logger,
	}
}

// CreateTeam registers a new team with creator as sole member and captain.
// The team is published locked, so nobody observes it before the creator's
// affiliation is written; a failed write unregisters it again.
func (r *Registry) CreateTeam(ctx context.Context, creator domain.Member) (domain.TeamID, domain.Status) {
	if creator.TeamID() != domain.TeamIDNone {
		return domain.TeamIDNone, domain.StatusAlreadyInTeam
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	e := &entry{team: domain.NewTeam(id, r.capacity)}
	e.mu.Lock()
	r.teams[id] = e
	r.mu.Unlock()
	defer e.mu.Unlock()

	status := e.team.AddPlayer(creator)
	if status != domain.StatusOK {
		r.remove(id, e)
		if status == domain.StatusInOtherTeam {
			status = domain.StatusAlreadyInTeam
		}
		r.logger.WarnContext(ctx, "team creation rolled back", "team_id", id, "player_id", creator.PlayerID(), "status", status.String())
		return domain.TeamIDNone, status
	}
	r.logger.InfoContext(ctx, "team created", "team_id", id, "captain_id", creator.PlayerID())
	return id, domain.StatusOK
}

// GetTeamByID returns a snapshot of the team.
func (r *Registry) GetTeamByID(id domain.TeamID) (domain.TeamView, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.TeamView{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return domain.TeamView{}, false
	}
	return e.team.View(), true
}

// Count returns the number of registered teams.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.teams)
}

// Mutate runs fn with exclusive access to the team. fn must not block.
func (r *Registry) Mutate(id domain.TeamID, fn func(*domain.Team) error) error {
	e, ok := r.lookup(id)
	if !ok {
		return ErrTeamNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return ErrTeamNotFound
	}
	return fn(e.team)
}

func (g Guard) check(t *domain.Team) error {
	if g == nil {
		return nil
	}
	return g(t)
}

// AddPlayer runs the join transition under the team lock and returns the
// resulting status plus the roster after the call.
func (r *Registry) AddPlayer(ctx context.Context, id domain.TeamID, m domain.Member, guard Guard) (domain.Status, domain.TeamView, error) {
	var (
		status domain.Status
		view   domain.TeamView
	)
	err := r.Mutate(id, func(t *domain.Team) error {
		if err := guard.check(t); err != nil {
			return err
		}
		status = t.AddPlayer(m)
		view = t.View()
		return nil
	})
	if err != nil {
		return domain.StatusSysError, domain.TeamView{}, err
	}
	if status == domain.StatusSysError {
		r.logger.ErrorContext(ctx, "affiliation write failed, roster rolled back", "team_id", id, "player_id", m.PlayerID())
	}
	return status, view, nil
}

// SetCaptainID hands captaincy to a current member.
func (r *Registry) SetCaptainID(ctx context.Context, id domain.TeamID, playerID domain.PlayerID, guard Guard) (domain.TeamView, error) {
	var view domain.TeamView
	err := r.Mutate(id, func(t *domain.Team) error {
		if err := guard.check(t); err != nil {
			return err
		}
		if !t.SetCaptainID(playerID) {
			return domain.ErrNotMember
		}
		view = t.View()
		return nil
	})
	if err == nil {
		r.logger.InfoContext(ctx, "captaincy deputed", "team_id", id, "captain_id", playerID)
	}
	return view, err
}

// DisbandTeamByID unregisters the team and clears every member's
// affiliation. It returns the roster as it was before disbanding, and false
// when the team does not exist or the guard refused.
func (r *Registry) DisbandTeamByID(ctx context.Context, id domain.TeamID, guard Guard) (domain.TeamView, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.TeamView{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return domain.TeamView{}, false
	}
	if err := guard.check(e.team); err != nil {
		return domain.TeamView{}, false
	}
	view := e.team.View()
	r.disbandLocked(ctx, e)
	return view, true
}

// Try2DisbandTeam disbands the team when its roster is empty. Calling it on
// a team that is already gone is a no-op.
func (r *Registry) Try2DisbandTeam(ctx context.Context, id domain.TeamID) bool {
	e, ok := r.lookup(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false
	}
	return r.try2DisbandLocked(ctx, e)
}

// try2DisbandLocked disbands e when its roster is empty. The caller holds e.mu.
func (r *Registry) try2DisbandLocked(ctx context.Context, e *entry) bool {
	if e.team.Size() > 0 {
		return false
	}
	r.disbandLocked(ctx, e)
	return true
}

// Close disbands every team. Used on process shutdown.
func (r *Registry) Close(ctx context.Context) {
	r.mu.RLock()
	ids := make([]domain.TeamID, 0, len(r.teams))
	for id := range r.teams {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		r.DisbandTeamByID(ctx, id, nil)
	}
}

func (r *Registry) disbandLocked(ctx context.Context, e *entry) {
	for _, m := range e.team.Clear() {
		r.logger.ErrorContext(ctx, "member affiliation inconsistent on disband", "team_id", e.team.ID, "player_id", m.PlayerID(), "affiliation", m.TeamID())
	}
	r.remove(e.team.ID, e)
	r.logger.InfoContext(ctx, "team disbanded", "team_id", e.team.ID)
}

func (r *Registry) remove(id domain.TeamID, e *entry) {
	e.removed = true
	r.mu.Lock()
	if r.teams[id] == e {
		delete(r.teams, id)
	}
	r.mu.Unlock()
}

func (r *Registry) lookup(id domain.TeamID) (*entry, bool) {
	if id == domain.TeamIDNone {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.teams[id]
	return e, ok
}
