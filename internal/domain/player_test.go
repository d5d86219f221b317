package domain

import (
	"sync"
	"testing"
)

func TestJoinTeamIsExclusive(t *testing.T) {
	p := &Player{ID: 1}
	var wg sync.WaitGroup
	wins := make(chan TeamID, 8)
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(id TeamID) {
			defer wg.Done()
			if p.JoinTeam(id) {
				wins <- id
			}
		}(TeamID(i))
	}
	wg.Wait()
	close(wins)
	if len(wins) != 1 {
		t.Fatalf("expected exactly one affiliation write to win, got %d", len(wins))
	}
}

func TestLeaveTeamRequiresMatchingAffiliation(t *testing.T) {
	p := &Player{ID: 1}
	if p.JoinTeam(TeamIDNone) {
		t.Fatalf("joining the none team must fail")
	}
	p.JoinTeam(3)
	if p.LeaveTeam(4) {
		t.Fatalf("leaving a foreign team must fail")
	}
	if !p.LeaveTeam(3) || p.IsInTeam() {
		t.Fatalf("expected affiliation cleared")
	}
}

func TestRetiredPlayerCannotJoin(t *testing.T) {
	p := &Player{ID: 1}
	p.JoinTeam(2)
	p.Retire()
	if !p.LeaveTeam(2) {
		t.Fatalf("retired player must still leave its team")
	}
	if p.JoinTeam(3) || p.IsInTeam() {
		t.Fatalf("retired player must not join a team")
	}
}
