package team

import (
	"context"

	"github.com/splax/arena/internal/domain"
	"github.com/splax/arena/internal/service/registry"
)

// Invitations and applications are not stored. A request that never gets a
// reply has no further effect; affiliation and capacity are checked again
// under the team lock when the reply is processed.

// InviteJoinTeam pushes an invitation from the captain to another player.
func (s Service) InviteJoinTeam(ctx context.Context, sess Session, req InviteJoinTeamRequest) {
	const op = "inviteJoinTeam"
	ctx, span := s.start(ctx, op, sess)
	defer span.End()

	sc, err := s.validate(ctx, op, sess, req,
		callerTeam(req.TeamID),
		callerIsCaptain(),
		notSelf(req.InviteeID),
		openPosition(),
		targetPresent(req.InviteeID),
	)
	if err != nil {
		return
	}
	s.metrics.observe(op, "ok")
	card := sc.caller.Card()
	card.Captain = true
	s.notifier.PushToPlayer(ctx, sc.target.Route(), domain.EventInviteJoinTeam, invitation{
		TeamID:    sc.team.ID,
		Captain:   card,
		OpenSlots: sc.team.OpenSlots(),
	})
}

// InviteJoinTeamReply answers an invitation. Accepting joins the caller to
// the team and replies with the join status; rejecting notifies the captain.
func (s Service) InviteJoinTeamReply(ctx context.Context, sess Session, req InviteJoinTeamReplyRequest) *JoinReplyResponse {
	const op = "inviteJoinTeamReply"
	ctx, span := s.start(ctx, op, sess)
	defer span.End()

	sc, err := s.validate(ctx, op, sess, req,
		teamByID(req.TeamID),
		playerIsCaptain(req.CaptainID),
		captainPresent(req.CaptainID),
	)
	if err != nil {
		return nil
	}
	if req.Reply != domain.ReplyAccept {
		s.metrics.observe(op, "declined")
		s.notifier.PushToPlayer(ctx, sc.captain.Route(), domain.EventInviteJoinTeamReply, replyNotice{
			TeamID:   req.TeamID,
			PlayerID: sc.caller.ID,
			Reply:    false,
		})
		return nil
	}
	status, ok := s.join(ctx, op, sess, req.TeamID, sc.caller, registry.RequireCaptain(req.CaptainID))
	if !ok {
		return nil
	}
	return &JoinReplyResponse{Result: status}
}

// ApplyJoinTeam pushes an application from an unaffiliated player to the
// captain of the target team.
func (s Service) ApplyJoinTeam(ctx context.Context, sess Session, req ApplyJoinTeamRequest) {
	const op = "applyJoinTeam"
	ctx, span := s.start(ctx, op, sess)
	defer span.End()

	sc, err := s.validate(ctx, op, sess, req,
		teamByID(req.TeamID),
		callerUnaffiliated(),
		openPosition(),
		captainPresent(domain.PlayerIDNone),
	)
	if err != nil {
		return
	}
	s.metrics.observe(op, "ok")
	s.notifier.PushToPlayer(ctx, sc.captain.Route(), domain.EventApplyJoinTeam, application{
		TeamID:    sc.team.ID,
		Applicant: sc.caller.Card(),
	})
}

// ApplyJoinTeamReply lets the captain answer an application. Accepting joins
// the applicant and replies with the join status; rejecting notifies the
// applicant only.
func (s Service) ApplyJoinTeamReply(ctx context.Context, sess Session, req ApplyJoinTeamReplyRequest) *JoinReplyResponse {
	const op = "applyJoinTeamReply"
	ctx, span := s.start(ctx, op, sess)
	defer span.End()

	sc, err := s.validate(ctx, op, sess, req,
		teamByID(req.TeamID),
		callerIsCaptain(),
		targetPresent(req.ApplicantID),
		targetUnaffiliated(),
	)
	if err != nil {
		return nil
	}
	if req.Reply != domain.ReplyAccept {
		s.metrics.observe(op, "declined")
		s.notifier.PushToPlayer(ctx, sc.target.Route(), domain.EventApplyJoinTeamReply, replyNotice{
			TeamID:   req.TeamID,
			PlayerID: sc.target.ID,
			Reply:    false,
		})
		return nil
	}
	status, ok := s.join(ctx, op, sess, req.TeamID, sc.target, registry.RequireCaptain(sc.caller.ID))
	if !ok {
		return nil
	}
	return &JoinReplyResponse{Result: status}
}

// join runs addPlayer under the team lock and announces a successful join to
// every member. ok is false when the team vanished or captaincy moved since
// validation, which drops the request.
func (s Service) join(ctx context.Context, op string, sess Session, teamID domain.TeamID, m *domain.Player, guard registry.Guard) (domain.Status, bool) {
	status, view, err := s.registry.AddPlayer(ctx, teamID, m, guard)
	if err != nil {
		s.reject(ctx, op, sess, "mutation", err)
		return status, false
	}
	s.metrics.observe(op, status.String())
	if status != domain.StatusOK {
		s.logger.InfoContext(ctx, "join refused", "op", op, "team_id", teamID, "player_id", m.ID, "status", status.String())
		return status, true
	}
	s.record(ctx, domain.TeamEventJoined, teamID, m.ID, sess.PlayerID)
	s.notifier.PushToRoutes(ctx, view.Routes, domain.EventUpdateTeam, view)
	return status, true
}
