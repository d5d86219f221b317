package team

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/splax/arena/internal/domain"
)

// Rejection reasons. Callers only see whether an operation succeeded; the
// reason is logged.
var (
	ErrMalformed    = errors.New("team: malformed request")
	ErrCallerAbsent = errors.New("team: caller not in area")
	ErrTeamAbsent   = errors.New("team: team not found")
	ErrNotCaptain   = errors.New("team: player is not the captain")
	ErrNotMember    = errors.New("team: player is not a member")
	ErrAffiliated   = errors.New("team: player already in a team")
	ErrSelfTarget   = errors.New("team: player targeted itself")
	ErrTargetAbsent = errors.New("team: target player not in area")
	ErrNoPosition   = errors.New("team: team has no open position")
)

// stage orders checks: caller, team, role, then target and capacity.
type stage int

const (
	stageCaller stage = iota + 1
	stageTeam
	stageRole
	stageTarget
)

// scope accumulates what the checks resolved.
type scope struct {
	session Session
	caller  *domain.Player
	team    domain.TeamView
	target  *domain.Player
	captain *domain.Player
}

type check struct {
	stage stage
	name  string
	run   func(s Service, sc *scope) error
}

// validate shapes the request, resolves the caller, then runs checks in
// stage order. The first failure short-circuits.
func (s Service) validate(ctx context.Context, op string, sess Session, req any, checks ...check) (*scope, error) {
	if req != nil {
		if err := s.validator.Struct(req); err != nil {
			s.reject(ctx, op, sess, "shape", fmt.Errorf("%w: %v", ErrMalformed, err))
			return nil, ErrMalformed
		}
	}
	sc := &scope{session: sess}
	chain := append([]check{callerPresent()}, checks...)
	sort.SliceStable(chain, func(i, j int) bool { return chain[i].stage < chain[j].stage })
	for _, c := range chain {
		if err := c.run(s, sc); err != nil {
			s.reject(ctx, op, sess, c.name, err)
			return nil, err
		}
	}
	return sc, nil
}

func (s Service) reject(ctx context.Context, op string, sess Session, check string, err error) {
	s.logger.WarnContext(ctx, "team request rejected", "op", op, "area_id", sess.AreaID, "player_id", sess.PlayerID, "check", check, "error", err)
	s.metrics.observe(op, "rejected")
}

func callerPresent() check {
	return check{stageCaller, "caller", func(s Service, sc *scope) error {
		p, ok := s.players.Player(sc.session.AreaID, sc.session.PlayerID)
		if !ok {
			return ErrCallerAbsent
		}
		sc.caller = p
		return nil
	}}
}

func teamByID(id domain.TeamID) check {
	return check{stageTeam, "team", func(s Service, sc *scope) error {
		view, ok := s.registry.GetTeamByID(id)
		if !ok {
			return ErrTeamAbsent
		}
		sc.team = view
		return nil
	}}
}

// callerTeam resolves the caller's own team; want, when non-zero, must match.
func callerTeam(want domain.TeamID) check {
	return check{stageTeam, "team", func(s Service, sc *scope) error {
		id := sc.caller.TeamID()
		if want != domain.TeamIDNone && want != id {
			return ErrTeamAbsent
		}
		view, ok := s.registry.GetTeamByID(id)
		if !ok {
			return ErrTeamAbsent
		}
		sc.team = view
		return nil
	}}
}

func callerIsCaptain() check {
	return check{stageRole, "captain", func(s Service, sc *scope) error {
		if !sc.team.IsCaptainByID(sc.caller.ID) {
			return ErrNotCaptain
		}
		return nil
	}}
}

func playerIsCaptain(id domain.PlayerID) check {
	return check{stageRole, "captain", func(s Service, sc *scope) error {
		if !sc.team.IsCaptainByID(id) {
			return ErrNotCaptain
		}
		return nil
	}}
}

func callerIsMember() check {
	return check{stageRole, "member", func(s Service, sc *scope) error {
		if !sc.team.HasMember(sc.caller.ID) {
			return ErrNotMember
		}
		return nil
	}}
}

func callerUnaffiliated() check {
	return check{stageRole, "unaffiliated", func(s Service, sc *scope) error {
		if sc.caller.IsInTeam() {
			return ErrAffiliated
		}
		return nil
	}}
}

func notSelf(id domain.PlayerID) check {
	return check{stageRole, "not_self", func(s Service, sc *scope) error {
		if sc.caller.ID == id {
			return ErrSelfTarget
		}
		return nil
	}}
}

func targetPresent(id domain.PlayerID) check {
	return check{stageTarget, "target", func(s Service, sc *scope) error {
		p, ok := s.players.Player(sc.session.AreaID, id)
		if !ok {
			return ErrTargetAbsent
		}
		sc.target = p
		return nil
	}}
}

// targetUnaffiliated must follow targetPresent.
func targetUnaffiliated() check {
	return check{stageTarget, "target_unaffiliated", func(s Service, sc *scope) error {
		if sc.target == nil || sc.target.IsInTeam() {
			return ErrAffiliated
		}
		return nil
	}}
}

func targetIsMember(id domain.PlayerID) check {
	return check{stageTarget, "target_member", func(s Service, sc *scope) error {
		if !sc.team.HasMember(id) {
			return ErrNotMember
		}
		return nil
	}}
}

// captainPresent resolves id, or the team captain when id is zero.
func captainPresent(id domain.PlayerID) check {
	return check{stageTarget, "captain_present", func(s Service, sc *scope) error {
		captainID := id
		if captainID == domain.PlayerIDNone {
			captainID = sc.team.CaptainID
		}
		p, ok := s.players.Player(sc.session.AreaID, captainID)
		if !ok {
			return ErrTargetAbsent
		}
		sc.captain = p
		return nil
	}}
}

func openPosition() check {
	return check{stageTarget, "position", func(s Service, sc *scope) error {
		if !sc.team.HasPosition() {
			return ErrNoPosition
		}
		return nil
	}}
}
