package presence

import (
	"errors"
	"sync"

	"github.com/splax/arena/internal/domain"
)

// ErrAlreadyOnline indicates the player already holds a session in the area.
var ErrAlreadyOnline = errors.New("presence: player already online")

// Directory tracks live players per area.
type Directory struct {
	mu    sync.RWMutex
	areas map[string]map[domain.PlayerID]*domain.Player
}

// New constructs an empty directory.
func New() *Directory {
	return &Directory{areas: make(map[string]map[domain.PlayerID]*domain.Player)}
}

// Player returns the live player in the area.
func (d *Directory) Player(areaID string, id domain.PlayerID) (*domain.Player, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.areas[areaID][id]
	return p, ok
}

// Enter registers a player in its area.
func (d *Directory) Enter(p *domain.Player) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	players, ok := d.areas[p.AreaID]
	if !ok {
		players = make(map[domain.PlayerID]*domain.Player)
		d.areas[p.AreaID] = players
	}
	if _, exists := players[p.ID]; exists {
		return ErrAlreadyOnline
	}
	players[p.ID] = p
	return nil
}

// Leave removes the player when the registered entry is still p.
func (d *Directory) Leave(p *domain.Player) {
	d.mu.Lock()
	defer d.mu.Unlock()
	players, ok := d.areas[p.AreaID]
	if !ok || players[p.ID] != p {
		return
	}
	delete(players, p.ID)
	if len(players) == 0 {
		delete(d.areas, p.AreaID)
	}
}

// Count returns the number of live players in an area.
func (d *Directory) Count(areaID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.areas[areaID])
}
