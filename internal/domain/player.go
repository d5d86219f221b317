package domain

import "sync"

// Route addresses a connected client through the push transport.
type Route struct {
	UserID   string `json:"uid"`
	ServerID string `json:"sid"`
}

// MemberCard is the public view of a player shown to teammates and captains.
type MemberCard struct {
	PlayerID PlayerID `json:"playerId"`
	Name     string   `json:"name"`
	Level    int      `json:"level"`
	Captain  bool     `json:"isCaptain,omitempty"`
}

// Member is the part of a player record the team state machine reads and writes.
type Member interface {
	PlayerID() PlayerID
	TeamID() TeamID
	JoinTeam(id TeamID) bool
	LeaveTeam(id TeamID) bool
	Route() Route
	Card() MemberCard
}

// Player is a live player entity hosted in an area.
type Player struct {
	ID       PlayerID
	UserID   string
	ServerID string
	AreaID   string
	Name     string
	Level    int

	mu      sync.Mutex
	teamID  TeamID
	retired bool
}

var _ Member = (*Player)(nil)

// PlayerID returns the player identity.
func (p *Player) PlayerID() PlayerID {
	return p.ID
}

// TeamID returns the current team affiliation.
func (p *Player) TeamID() TeamID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.teamID
}

// IsInTeam reports whether the player has any team affiliation.
func (p *Player) IsInTeam() bool {
	return p.TeamID() != TeamIDNone
}

// JoinTeam sets the affiliation only when the player has none and the
// session is still live.
func (p *Player) JoinTeam(id TeamID) bool {
	if id == TeamIDNone {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.retired || p.teamID != TeamIDNone {
		return false
	}
	p.teamID = id
	return true
}

// Retire marks the session ended. Every later JoinTeam fails, so a join
// racing the disconnect is rolled back instead of rostering a ghost.
func (p *Player) Retire() {
	p.mu.Lock()
	p.retired = true
	p.mu.Unlock()
}

// LeaveTeam clears the affiliation when it still points at id.
func (p *Player) LeaveTeam(id TeamID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.teamID != id || id == TeamIDNone {
		return false
	}
	p.teamID = TeamIDNone
	return true
}

// Route returns the push routing key of the player's session.
func (p *Player) Route() Route {
	return Route{UserID: p.UserID, ServerID: p.ServerID}
}

// Card returns the public team card of the player.
func (p *Player) Card() MemberCard {
	return MemberCard{PlayerID: p.ID, Name: p.Name, Level: p.Level}
}
