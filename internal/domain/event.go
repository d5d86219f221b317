package domain

import "time"

// Push event names delivered to clients.
const (
	EventInviteJoinTeam      = "onInviteJoinTeam"
	EventInviteJoinTeamReply = "onInviteJoinTeamReply"
	EventApplyJoinTeam       = "onApplyJoinTeam"
	EventApplyJoinTeamReply  = "onApplyJoinTeamReply"
	EventUpdateTeam          = "onUpdateTeam"
	EventTeammateLeaveTeam   = "onTeammateLeaveTeam"
	EventKickOut             = "onKickOut"
	EventDisbandTeam         = "onDisbandTeam"
	EventChatInTeam          = "onChatInTeam"
)

// TeamEventKind classifies journal entries.
type TeamEventKind string

const (
	TeamEventCreated        TeamEventKind = "created"
	TeamEventJoined         TeamEventKind = "joined"
	TeamEventLeft           TeamEventKind = "left"
	TeamEventKicked         TeamEventKind = "kicked"
	TeamEventCaptainChanged TeamEventKind = "captain_changed"
	TeamEventDisbanded      TeamEventKind = "disbanded"
)

// TeamEvent is an audit record of a membership change.
type TeamEvent struct {
	ID       int64
	ServerID string
	// Incarnation identifies the process run; team ids restart with it.
	Incarnation string
	TeamID      TeamID
	Kind        TeamEventKind
	PlayerID    PlayerID
	ActorID     PlayerID
	OccurredAt  time.Time
}
