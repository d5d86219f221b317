package domain

import "errors"

var (
	// ErrNotMember indicates the player is not on the roster.
	ErrNotMember = errors.New("domain: player not in team")
	// ErrAffiliationMismatch indicates a roster entry whose player record points elsewhere.
	ErrAffiliationMismatch = errors.New("domain: player affiliation does not match team")
)

// Team holds the roster and captaincy of one team. It is not safe for
// concurrent use; the registry serializes every call per team id.
type Team struct {
	ID        TeamID
	captainID PlayerID
	members   []Member
	capacity  int
}

// TeamView is an immutable snapshot of a team.
type TeamView struct {
	ID        TeamID       `json:"teamId"`
	CaptainID PlayerID     `json:"captainId"`
	Capacity  int          `json:"capacity"`
	Members   []MemberCard `json:"members"`
	Routes    []Route      `json:"-"`
}

// NewTeam returns an empty team. It only becomes valid once a captain joins.
func NewTeam(id TeamID, capacity int) *Team {
	if capacity <= 0 {
		capacity = DefaultMaxTeamSize
	}
	return &Team{ID: id, capacity: capacity}
}

// CaptainID returns the current captain.
func (t *Team) CaptainID() PlayerID {
	return t.captainID
}

// Size returns the number of members on the roster.
func (t *Team) Size() int {
	return len(t.members)
}

// IsCaptainByID reports whether id is the captain.
func (t *Team) IsCaptainByID(id PlayerID) bool {
	return id != PlayerIDNone && t.captainID == id
}

// HasPosition reports whether the roster has room for another member.
func (t *Team) HasPosition() bool {
	return len(t.members) < t.capacity
}

// IsPlayerInTeam reports roster membership.
func (t *Team) IsPlayerInTeam(id PlayerID) bool {
	return t.indexOf(id) >= 0
}

// FirstPlayerID returns the earliest-joined member or PlayerIDNone.
func (t *Team) FirstPlayerID() PlayerID {
	if len(t.members) == 0 {
		return PlayerIDNone
	}
	return t.members[0].PlayerID()
}

// SetCaptainID hands captaincy to a current member. It reports false and
// leaves the captain unchanged when id is not on the roster.
func (t *Team) SetCaptainID(id PlayerID) bool {
	if !t.IsPlayerInTeam(id) {
		return false
	}
	t.captainID = id
	return true
}

// AddPlayer appends m to the roster and writes its affiliation. A failed
// affiliation write rolls the roster back and reports StatusSysError.
func (t *Team) AddPlayer(m Member) Status {
	if !t.HasPosition() {
		return StatusTeamFull
	}
	if t.IsPlayerInTeam(m.PlayerID()) {
		return StatusAlreadyInTeam
	}
	if m.TeamID() != TeamIDNone {
		return StatusInOtherTeam
	}
	t.members = append(t.members, m)
	if !m.JoinTeam(t.ID) {
		t.members = t.members[:len(t.members)-1]
		return StatusSysError
	}
	if len(t.members) == 1 {
		t.captainID = m.PlayerID()
	}
	return StatusOK
}

// RemovePlayer drops id from the roster and clears its affiliation. When the
// affiliation no longer points at this team the member is still removed and
// ErrAffiliationMismatch is returned alongside it.
func (t *Team) RemovePlayer(id PlayerID) (Member, error) {
	idx := t.indexOf(id)
	if idx < 0 {
		return nil, ErrNotMember
	}
	m := t.members[idx]
	t.members = append(t.members[:idx], t.members[idx+1:]...)
	if !m.LeaveTeam(t.ID) {
		return m, ErrAffiliationMismatch
	}
	return m, nil
}

// Clear empties the roster, clearing every member's affiliation, and returns
// the members whose affiliation could not be cleared.
func (t *Team) Clear() []Member {
	var mismatched []Member
	for _, m := range t.members {
		if !m.LeaveTeam(t.ID) {
			mismatched = append(mismatched, m)
		}
	}
	t.members = nil
	t.captainID = PlayerIDNone
	return mismatched
}

// View snapshots the team for readers outside the registry lock.
func (t *Team) View() TeamView {
	view := TeamView{
		ID:        t.ID,
		CaptainID: t.captainID,
		Capacity:  t.capacity,
		Members:   make([]MemberCard, 0, len(t.members)),
		Routes:    make([]Route, 0, len(t.members)),
	}
	for _, m := range t.members {
		card := m.Card()
		card.Captain = m.PlayerID() == t.captainID
		view.Members = append(view.Members, card)
		view.Routes = append(view.Routes, m.Route())
	}
	return view
}

func (t *Team) indexOf(id PlayerID) int {
	for i, m := range t.members {
		if m.PlayerID() == id {
			return i
		}
	}
	return -1
}

// HasMember reports whether the snapshot lists id.
func (v TeamView) HasMember(id PlayerID) bool {
	for _, m := range v.Members {
		if m.PlayerID == id {
			return true
		}
	}
	return false
}

// IsCaptainByID reports whether id captained the team when the snapshot was taken.
func (v TeamView) IsCaptainByID(id PlayerID) bool {
	return id != PlayerIDNone && v.CaptainID == id
}

// HasPosition reports whether the snapshot had an open slot.
func (v TeamView) HasPosition() bool {
	return len(v.Members) < v.Capacity
}

// OpenSlots returns the free slots at snapshot time.
func (v TeamView) OpenSlots() int {
	return v.Capacity - len(v.Members)
}
