package ws

import "sync"

// outboxSize bounds the pushes queued for one session. Pushes beyond it are
// dropped so a session that stopped reading cannot stall the hub.
const outboxSize = 64

// Subscriber abstracts a connected session.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans pushes out to the sessions of a user hosted on this server.
type Hub struct {
	clients  map[string]map[Subscriber]*outbox
	register chan subscription
	unreg    chan subscription
	send     chan message
	quit     chan struct{}
	once     sync.Once
}

// message couples payload with the target user.
type message struct {
	userID  string
	payload []byte
}

// subscription defines register/unregister requests.
type subscription struct {
	userID string
	client Subscriber
}

// outbox is the per-session write queue drained by its own goroutine.
type outbox struct {
	queue chan []byte
	done  chan struct{}
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:  make(map[string]map[Subscriber]*outbox),
		register: make(chan subscription),
		unreg:    make(chan subscription),
		send:     make(chan message),
		quit:     make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.userID]; !ok {
				h.clients[sub.userID] = make(map[Subscriber]*outbox)
			}
			if _, ok := h.clients[sub.userID][sub.client]; ok {
				continue
			}
			ob := &outbox{queue: make(chan []byte, outboxSize), done: make(chan struct{})}
			h.clients[sub.userID][sub.client] = ob
			go h.drain(sub, ob)
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.userID]; ok {
				if ob, ok := clients[sub.client]; ok {
					close(ob.done)
					delete(clients, sub.client)
				}
				if len(clients) == 0 {
					delete(h.clients, sub.userID)
				}
			}
		case msg := <-h.send:
			for _, ob := range h.clients[msg.userID] {
				select {
				case ob.queue <- msg.payload:
				default:
				}
			}
		case <-h.quit:
			for _, clients := range h.clients {
				for c, ob := range clients {
					close(ob.done)
					c.Close()
				}
			}
			h.clients = nil
			return
		}
	}
}

// drain writes queued pushes to one session in order. A failed write closes
// the session and detaches it from the hub.
func (h *Hub) drain(sub subscription, ob *outbox) {
	for {
		select {
		case payload := <-ob.queue:
			if err := sub.client.Send(payload); err != nil {
				sub.client.Close()
				h.Unregister(sub.userID, sub.client)
				return
			}
		case <-ob.done:
			return
		}
	}
}

// Register attaches a session to a user.
func (h *Hub) Register(userID string, client Subscriber) {
	select {
	case h.register <- subscription{userID: userID, client: client}:
	case <-h.quit:
	}
}

// Unregister removes a session.
func (h *Hub) Unregister(userID string, client Subscriber) {
	select {
	case h.unreg <- subscription{userID: userID, client: client}:
	case <-h.quit:
	}
}

// Send queues payload for every session of the user and returns without
// waiting for the writes. Users without a session here are skipped silently.
func (h *Hub) Send(userID string, payload []byte) {
	select {
	case h.send <- message{userID: userID, payload: payload}:
	case <-h.quit:
	}
}

// Close stops the run loop and closes every session.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.quit) })
}
