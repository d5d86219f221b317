package main

import "testing"

func TestParseLine(t *testing.T) {
	f, err := parseLine(3, `applyJoinTeam {"teamId":1}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.ID != 3 || f.Route != "team.applyJoinTeam" || string(f.Body) != `{"teamId":1}` {
		t.Fatalf("unexpected frame: %+v", f)
	}
	f, err = parseLine(4, "team.createTeam")
	if err != nil || f.Route != "team.createTeam" || f.Body != nil {
		t.Fatalf("unexpected frame: %+v %v", f, err)
	}
	if _, err := parseLine(5, "team.leaveTeam {oops"); err == nil {
		t.Fatalf("expected invalid JSON error")
	}
}

func TestSessionURL(t *testing.T) {
	got, err := sessionURL("https://arena.example/base/", "abc")
	if err != nil {
		t.Fatalf("session url: %v", err)
	}
	if got != "wss://arena.example/base/ws/area?token=abc" {
		t.Fatalf("unexpected url %q", got)
	}
	if _, err := sessionURL("ftp://x", "abc"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
