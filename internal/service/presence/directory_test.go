package presence

import (
	"errors"
	"testing"

	"github.com/splax/arena/internal/domain"
)

func TestEnterAndLookup(t *testing.T) {
	dir := New()
	p := &domain.Player{ID: 1, AreaID: "area-1"}
	if err := dir.Enter(p); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if got, ok := dir.Player("area-1", 1); !ok || got != p {
		t.Fatalf("expected player in area-1")
	}
	if _, ok := dir.Player("area-2", 1); ok {
		t.Fatalf("lookup must be scoped by area")
	}
	if err := dir.Enter(&domain.Player{ID: 1, AreaID: "area-1"}); !errors.Is(err, ErrAlreadyOnline) {
		t.Fatalf("expected ErrAlreadyOnline, got %v", err)
	}
}

func TestLeaveIgnoresStaleSessions(t *testing.T) {
	dir := New()
	p := &domain.Player{ID: 1, AreaID: "area-1"}
	dir.Enter(p)
	dir.Leave(&domain.Player{ID: 1, AreaID: "area-1"})
	if dir.Count("area-1") != 1 {
		t.Fatalf("stale leave removed the live entry")
	}
	dir.Leave(p)
	if _, ok := dir.Player("area-1", 1); ok {
		t.Fatalf("expected player gone")
	}
}
