package domain

// TeamID identifies a team inside an area-server process.
type TeamID int64

// PlayerID identifies a player entity.
type PlayerID int64

const (
	// TeamIDNone marks a player without team affiliation.
	TeamIDNone TeamID = 0
	// PlayerIDNone is returned when a roster lookup finds nobody.
	PlayerIDNone PlayerID = 0
	// DefaultMaxTeamSize is the roster capacity used when none is configured.
	DefaultMaxTeamSize = 3
)

// Status is the result code returned by create and join operations.
type Status int

const (
	StatusOK            Status = 1
	StatusTeamFull      Status = -1
	StatusAlreadyInTeam Status = -2
	StatusInOtherTeam   Status = -3
	StatusSysError      Status = -4
)

// String returns a label for logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTeamFull:
		return "team_full"
	case StatusAlreadyInTeam:
		return "already_in_team"
	case StatusInOtherTeam:
		return "in_other_team"
	case StatusSysError:
		return "sys_error"
	default:
		return "unknown"
	}
}

// Reply is the answer carried by invite and apply replies.
type Reply int

const (
	ReplyReject Reply = 0
	ReplyAccept Reply = 1
)
