package team

import "github.com/splax/arena/internal/domain"

// Session identifies the authenticated caller of an operation.
type Session struct {
	AreaID   string
	PlayerID domain.PlayerID
}

// CreateTeamRequest opens a team captained by the caller.
type CreateTeamRequest struct{}

// CreateTeamResponse carries the creation status and, on success, the new team id.
type CreateTeamResponse struct {
	Result domain.Status `json:"result"`
	TeamID domain.TeamID `json:"teamId,omitempty"`
}

// DisbandTeamRequest asks the captain's team to be dissolved.
type DisbandTeamRequest struct {
	TeamID domain.TeamID `json:"teamId" validate:"gt=0"`
}

// DisbandTeamResponse reports whether the team was disbanded.
type DisbandTeamResponse struct {
	Result bool `json:"result"`
}

// InviteJoinTeamRequest invites a player into the captain's own team. TeamID
// is optional; when set it must match the captain's affiliation.
type InviteJoinTeamRequest struct {
	TeamID    domain.TeamID   `json:"teamId" validate:"gte=0"`
	InviteeID domain.PlayerID `json:"inviteeId" validate:"gt=0"`
}

// InviteJoinTeamReplyRequest answers an invitation from CaptainID.
type InviteJoinTeamReplyRequest struct {
	TeamID    domain.TeamID   `json:"teamId" validate:"gt=0"`
	CaptainID domain.PlayerID `json:"captainId" validate:"gt=0"`
	Reply     domain.Reply    `json:"reply" validate:"oneof=0 1"`
}

// ApplyJoinTeamRequest asks the captain of TeamID to admit the caller.
type ApplyJoinTeamRequest struct {
	TeamID domain.TeamID `json:"teamId" validate:"gt=0"`
}

// ApplyJoinTeamReplyRequest is the captain's answer to an application.
type ApplyJoinTeamReplyRequest struct {
	TeamID      domain.TeamID   `json:"teamId" validate:"gt=0"`
	ApplicantID domain.PlayerID `json:"applicantId" validate:"gt=0"`
	Reply       domain.Reply    `json:"reply" validate:"oneof=0 1"`
}

// JoinReplyResponse answers an accepted invite or application.
type JoinReplyResponse struct {
	Result domain.Status `json:"result"`
}

// KickOutOfTeamRequest removes a member from the captain's team.
type KickOutOfTeamRequest struct {
	TeamID         domain.TeamID   `json:"teamId" validate:"gt=0"`
	KickedPlayerID domain.PlayerID `json:"kickedPlayerId" validate:"gt=0"`
}

// LeaveTeamRequest takes the caller off the roster of TeamID.
type LeaveTeamRequest struct {
	TeamID domain.TeamID `json:"teamId" validate:"gt=0"`
}

// Depute2MemberRequest hands captaincy to MemberID.
type Depute2MemberRequest struct {
	TeamID   domain.TeamID   `json:"teamId" validate:"gt=0"`
	MemberID domain.PlayerID `json:"memberId" validate:"gt=0"`
}

// ChatInTeamRequest broadcasts Content to every member of TeamID.
type ChatInTeamRequest struct {
	TeamID  domain.TeamID `json:"teamId" validate:"gt=0"`
	Content string        `json:"content" validate:"required,max=512"`
}

// Push bodies.

type invitation struct {
	TeamID    domain.TeamID     `json:"teamId"`
	Captain   domain.MemberCard `json:"captain"`
	OpenSlots int               `json:"openSlots"`
}

type application struct {
	TeamID    domain.TeamID     `json:"teamId"`
	Applicant domain.MemberCard `json:"applicant"`
}

type replyNotice struct {
	TeamID   domain.TeamID   `json:"teamId"`
	PlayerID domain.PlayerID `json:"playerId"`
	Reply    bool            `json:"reply"`
}

type departureNotice struct {
	TeamID     domain.TeamID   `json:"teamId"`
	PlayerID   domain.PlayerID `json:"playerId"`
	CaptainID  domain.PlayerID `json:"captainId"`
	KickedByID domain.PlayerID `json:"kickedBy,omitempty"`
}

type disbandNotice struct {
	TeamID domain.TeamID `json:"teamId"`
}

type chatMessage struct {
	TeamID   domain.TeamID   `json:"teamId"`
	PlayerID domain.PlayerID `json:"playerId"`
	Name     string          `json:"name"`
	Content  string          `json:"content"`
}
