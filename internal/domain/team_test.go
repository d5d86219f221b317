package domain

import (
	"errors"
	"testing"
)

type stuckMember struct {
	id PlayerID
}

func (s stuckMember) PlayerID() PlayerID    { return s.id }
func (s stuckMember) TeamID() TeamID        { return TeamIDNone }
func (s stuckMember) JoinTeam(TeamID) bool  { return false }
func (s stuckMember) LeaveTeam(TeamID) bool { return false }
func (s stuckMember) Route() Route          { return Route{} }
func (s stuckMember) Card() MemberCard      { return MemberCard{PlayerID: s.id} }

func newPlayer(id PlayerID) *Player {
	return &Player{ID: id, UserID: "user", ServerID: "area-1", Name: "p"}
}

func TestAddPlayerFirstMemberBecomesCaptain(t *testing.T) {
	team := NewTeam(7, 3)
	a := newPlayer(1)
	if got := team.AddPlayer(a); got != StatusOK {
		t.Fatalf("expected ok, got %v", got)
	}
	if !team.IsCaptainByID(1) {
		t.Fatalf("expected first member to captain, captain=%d", team.CaptainID())
	}
	if a.TeamID() != 7 {
		t.Fatalf("expected affiliation 7, got %d", a.TeamID())
	}
}

func TestAddPlayerRejectsWhenFull(t *testing.T) {
	team := NewTeam(1, 2)
	team.AddPlayer(newPlayer(1))
	team.AddPlayer(newPlayer(2))
	late := newPlayer(3)
	if got := team.AddPlayer(late); got != StatusTeamFull {
		t.Fatalf("expected team full, got %v", got)
	}
	if team.Size() != 2 || late.IsInTeam() {
		t.Fatalf("roster or affiliation changed on full team")
	}
}

func TestAddPlayerRejectsAffiliatedPlayers(t *testing.T) {
	team := NewTeam(1, 3)
	a := newPlayer(1)
	team.AddPlayer(a)
	if got := team.AddPlayer(a); got != StatusAlreadyInTeam {
		t.Fatalf("expected already in team, got %v", got)
	}
	other := newPlayer(2)
	other.JoinTeam(9)
	if got := team.AddPlayer(other); got != StatusInOtherTeam {
		t.Fatalf("expected in other team, got %v", got)
	}
	if team.Size() != 1 {
		t.Fatalf("expected roster of 1, got %d", team.Size())
	}
}

func TestAddPlayerRollsBackFailedAffiliationWrite(t *testing.T) {
	team := NewTeam(1, 3)
	team.AddPlayer(newPlayer(1))
	if got := team.AddPlayer(stuckMember{id: 2}); got != StatusSysError {
		t.Fatalf("expected sys error, got %v", got)
	}
	if team.Size() != 1 || team.IsPlayerInTeam(2) {
		t.Fatalf("expected roster rolled back")
	}
}

func TestRemovePlayerKeepsJoinOrder(t *testing.T) {
	team := NewTeam(1, 3)
	a, b, c := newPlayer(1), newPlayer(2), newPlayer(3)
	team.AddPlayer(a)
	team.AddPlayer(b)
	team.AddPlayer(c)

	if _, err := team.RemovePlayer(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if a.IsInTeam() {
		t.Fatalf("expected affiliation cleared")
	}
	if first := team.FirstPlayerID(); first != 2 {
		t.Fatalf("expected earliest remaining member 2, got %d", first)
	}
	if _, err := team.RemovePlayer(1); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}

func TestRemovePlayerReportsMismatch(t *testing.T) {
	team := NewTeam(1, 3)
	a := newPlayer(1)
	team.AddPlayer(a)
	a.LeaveTeam(1)
	a.JoinTeam(5)
	m, err := team.RemovePlayer(1)
	if !errors.Is(err, ErrAffiliationMismatch) || m == nil {
		t.Fatalf("expected mismatch with member, got %v %v", m, err)
	}
	if team.Size() != 0 {
		t.Fatalf("expected member dropped from roster")
	}
	if a.TeamID() != 5 {
		t.Fatalf("foreign affiliation must not be touched")
	}
}

func TestSetCaptainIgnoresNonMembers(t *testing.T) {
	team := NewTeam(1, 3)
	team.AddPlayer(newPlayer(1))
	team.AddPlayer(newPlayer(2))
	if team.SetCaptainID(9) {
		t.Fatalf("expected non-member captaincy to be refused")
	}
	if !team.SetCaptainID(2) || !team.IsCaptainByID(2) {
		t.Fatalf("expected captaincy handed to 2")
	}
}

func TestFirstPlayerIDOnEmptyTeam(t *testing.T) {
	if got := NewTeam(1, 3).FirstPlayerID(); got != PlayerIDNone {
		t.Fatalf("expected PlayerIDNone, got %d", got)
	}
}

func TestClearReleasesEveryMember(t *testing.T) {
	team := NewTeam(4, 3)
	a, b := newPlayer(1), newPlayer(2)
	team.AddPlayer(a)
	team.AddPlayer(b)
	if mismatched := team.Clear(); len(mismatched) != 0 {
		t.Fatalf("unexpected mismatches: %v", mismatched)
	}
	if a.IsInTeam() || b.IsInTeam() || team.Size() != 0 {
		t.Fatalf("expected empty roster and cleared affiliations")
	}
}

func TestViewMarksCaptain(t *testing.T) {
	team := NewTeam(1, 3)
	team.AddPlayer(newPlayer(1))
	team.AddPlayer(newPlayer(2))
	view := team.View()
	if len(view.Members) != 2 || !view.Members[0].Captain || view.Members[1].Captain {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.OpenSlots() != 1 || !view.HasPosition() {
		t.Fatalf("expected one open slot")
	}
}
