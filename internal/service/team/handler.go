package team

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/splax/arena/internal/domain"
	"github.com/splax/arena/internal/service/registry"
)

// A nil response means the request is dropped without a reply.

// CreateTeam makes the caller captain of a new team.
func (s Service) CreateTeam(ctx context.Context, sess Session, req CreateTeamRequest) *CreateTeamResponse {
	const op = "createTeam"
	ctx, span := s.start(ctx, op, sess)
	defer span.End()

	sc, err := s.validate(ctx, op, sess, req, callerUnaffiliated())
	if err != nil {
		return nil
	}
	id, status := s.registry.CreateTeam(ctx, sc.caller)
	s.metrics.observe(op, status.String())
	span.SetAttributes(attribute.Int64("team.id", int64(id)), attribute.String("team.status", status.String()))
	if status == domain.StatusOK {
		s.record(ctx, domain.TeamEventCreated, id, sc.caller.ID, sc.caller.ID)
	}
	return &CreateTeamResponse{Result: status, TeamID: id}
}

// DisbandTeam lets the captain dissolve the team.
func (s Service) DisbandTeam(ctx context.Context, sess Session, req DisbandTeamRequest) *DisbandTeamResponse {
	const op = "disbandTeam"
	ctx, span := s.start(ctx, op, sess)
	defer span.End()

	sc, err := s.validate(ctx, op, sess, req, teamByID(req.TeamID), callerIsCaptain())
	switch {
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrCallerAbsent):
		return nil
	case err != nil:
		return &DisbandTeamResponse{Result: false}
	}
	view, ok := s.registry.DisbandTeamByID(ctx, req.TeamID, registry.RequireCaptain(sc.caller.ID))
	if !ok {
		s.metrics.observe(op, "rejected")
		return &DisbandTeamResponse{Result: false}
	}
	s.metrics.observe(op, "ok")
	s.record(ctx, domain.TeamEventDisbanded, view.ID, domain.PlayerIDNone, sc.caller.ID)
	s.notifier.PushToRoutes(ctx, view.Routes, domain.EventDisbandTeam, disbandNotice{TeamID: view.ID})
	return &DisbandTeamResponse{Result: true}
}

// KickOutOfTeam lets the captain remove another member.
func (s Service) KickOutOfTeam(ctx context.Context, sess Session, req KickOutOfTeamRequest) {
	const op = "kickOutOfTeam"
	ctx, span := s.start(ctx, op, sess)
	defer span.End()

	sc, err := s.validate(ctx, op, sess, req,
		notSelf(req.KickedPlayerID),
		teamByID(req.TeamID),
		callerIsCaptain(),
		targetIsMember(req.KickedPlayerID),
	)
	if err != nil {
		return
	}
	d, err := s.registry.RemovePlayer(ctx, req.TeamID, req.KickedPlayerID, registry.RequireCaptain(sc.caller.ID))
	if err != nil {
		s.reject(ctx, op, sess, "mutation", err)
		return
	}
	s.metrics.observe(op, "ok")
	s.notifier.PushToPlayer(ctx, d.Member.Route(), domain.EventKickOut, departureNotice{
		TeamID:     d.TeamID,
		PlayerID:   d.Member.PlayerID(),
		CaptainID:  d.Team.CaptainID,
		KickedByID: sc.caller.ID,
	})
	s.afterDeparture(ctx, d, domain.TeamEventKicked, sc.caller.ID)
}

// LeaveTeam removes the caller from its team.
func (s Service) LeaveTeam(ctx context.Context, sess Session, req LeaveTeamRequest) {
	const op = "leaveTeam"
	ctx, span := s.start(ctx, op, sess)
	defer span.End()

	sc, err := s.validate(ctx, op, sess, req, teamByID(req.TeamID), callerIsMember())
	if err != nil {
		return
	}
	d, err := s.registry.RemovePlayer(ctx, req.TeamID, sc.caller.ID, nil)
	if err != nil {
		s.reject(ctx, op, sess, "mutation", err)
		return
	}
	s.metrics.observe(op, "ok")
	s.afterDeparture(ctx, d, domain.TeamEventLeft, sc.caller.ID)
}

// PlayerOffline retires the player and runs the leave pipeline for the team
// it was in when its session ended.
func (s Service) PlayerOffline(ctx context.Context, p *domain.Player) {
	p.Retire()
	teamID := p.TeamID()
	if teamID == domain.TeamIDNone {
		return
	}
	d, err := s.registry.RemovePlayer(ctx, teamID, p.ID, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "offline player not removed from team", "team_id", teamID, "player_id", p.ID, "error", err)
		return
	}
	s.metrics.observe("playerOffline", "ok")
	s.afterDeparture(ctx, d, domain.TeamEventLeft, p.ID)
}

// Depute2Member hands captaincy to another member.
func (s Service) Depute2Member(ctx context.Context, sess Session, req Depute2MemberRequest) {
	const op = "depute2Member"
	ctx, span := s.start(ctx, op, sess)
	defer span.End()

	sc, err := s.validate(ctx, op, sess, req,
		teamByID(req.TeamID),
		callerIsCaptain(),
		targetIsMember(req.MemberID),
	)
	if err != nil {
		return
	}
	view, err := s.registry.SetCaptainID(ctx, req.TeamID, req.MemberID, registry.RequireCaptain(sc.caller.ID))
	if err != nil {
		s.reject(ctx, op, sess, "mutation", err)
		return
	}
	s.metrics.observe(op, "ok")
	s.record(ctx, domain.TeamEventCaptainChanged, view.ID, req.MemberID, sc.caller.ID)
	s.notifier.PushToRoutes(ctx, view.Routes, domain.EventUpdateTeam, view)
}

// ChatInTeam broadcasts content to every member, sender included. Delivery
// order across members is not guaranteed.
func (s Service) ChatInTeam(ctx context.Context, sess Session, req ChatInTeamRequest) {
	const op = "chatInTeam"
	ctx, span := s.start(ctx, op, sess)
	defer span.End()

	sc, err := s.validate(ctx, op, sess, req, teamByID(req.TeamID), callerIsMember())
	if err != nil {
		return
	}
	s.metrics.observe(op, "ok")
	s.notifier.PushToRoutes(ctx, sc.team.Routes, domain.EventChatInTeam, chatMessage{
		TeamID:   sc.team.ID,
		PlayerID: sc.caller.ID,
		Name:     sc.caller.Name,
		Content:  req.Content,
	})
}

// afterDeparture journals and announces a roster shrink.
func (s Service) afterDeparture(ctx context.Context, d registry.Departure, kind domain.TeamEventKind, actor domain.PlayerID) {
	s.record(ctx, kind, d.TeamID, d.Member.PlayerID(), actor)
	if d.NewCaptain != domain.PlayerIDNone {
		s.record(ctx, domain.TeamEventCaptainChanged, d.TeamID, d.NewCaptain, actor)
	}
	if d.Disbanded {
		s.record(ctx, domain.TeamEventDisbanded, d.TeamID, domain.PlayerIDNone, actor)
		return
	}
	s.notifier.PushToRoutes(ctx, d.Team.Routes, domain.EventTeammateLeaveTeam, departureNotice{
		TeamID:    d.TeamID,
		PlayerID:  d.Member.PlayerID(),
		CaptainID: d.Team.CaptainID,
	})
	s.notifier.PushToRoutes(ctx, d.Team.Routes, domain.EventUpdateTeam, d.Team)
}
