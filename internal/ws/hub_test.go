package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/splax/arena/internal/domain"
)

type recordingSubscriber struct {
	got    chan []byte
	fail   bool
	closed chan struct{}
}

func newRecordingSubscriber() *recordingSubscriber {
	return &recordingSubscriber{got: make(chan []byte, 8), closed: make(chan struct{}, 1)}
}

func (s *recordingSubscriber) Send(payload []byte) error {
	if s.fail {
		return errors.New("broken pipe")
	}
	s.got <- payload
	return nil
}

func (s *recordingSubscriber) Close() {
	select {
	case s.closed <- struct{}{}:
	default:
	}
}

func receive(t *testing.T, s *recordingSubscriber) []byte {
	t.Helper()
	select {
	case payload := <-s.got:
		return payload
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for payload")
		return nil
	}
}

func TestHubSendsToRegisteredUser(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	sub := newRecordingSubscriber()
	hub.Register("user-1", sub)
	hub.Send("user-2", []byte("other"))
	hub.Send("user-1", []byte("hello"))

	if got := string(receive(t, sub)); got != "hello" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	sub := newRecordingSubscriber()
	sub.fail = true
	hub.Register("user-1", sub)
	hub.Send("user-1", []byte("hello"))

	select {
	case <-sub.closed:
	case <-time.After(time.Second):
		t.Fatalf("expected failing subscriber to be closed")
	}
}

func TestRelayDeliversLocally(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	sub := newRecordingSubscriber()
	hub.Register("user-1", sub)

	relay := NewRelay(hub, nil, "area-1", nil)
	if err := relay.Deliver(context.Background(), domain.Route{UserID: "user-1", ServerID: "area-1"}, []byte("x")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got := string(receive(t, sub)); got != "x" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestRelayWithoutBackendRejectsRemoteRoutes(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	relay := NewRelay(hub, nil, "area-1", nil)
	err := relay.Deliver(context.Background(), domain.Route{UserID: "user-1", ServerID: "area-2"}, []byte("x"))
	if !errors.Is(err, ErrNoRelay) {
		t.Fatalf("expected ErrNoRelay, got %v", err)
	}
}

func TestRelayDispatchUnwrapsEnvelope(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	sub := newRecordingSubscriber()
	hub.Register("user-1", sub)
	relay := NewRelay(hub, nil, "area-1", nil)

	frame, _ := json.Marshal(envelope{UserID: "user-1", Payload: json.RawMessage(`{"route":"onKickOut"}`)})
	relay.dispatch(frame)

	if got := string(receive(t, sub)); got != `{"route":"onKickOut"}` {
		t.Fatalf("unexpected payload %q", got)
	}
}

type stalledSubscriber struct {
	release chan struct{}
}

func (s *stalledSubscriber) Send([]byte) error {
	<-s.release
	return nil
}

func (s *stalledSubscriber) Close() {}

func TestHubStalledSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	slow := &stalledSubscriber{release: make(chan struct{})}
	defer close(slow.release)
	other := newRecordingSubscriber()
	hub.Register("slow", slow)
	hub.Register("other-user", other)

	done := make(chan struct{})
	go func() {
		for i := 0; i < outboxSize+8; i++ {
			hub.Send("slow", []byte("stuck"))
		}
		hub.Send("other-user", []byte("hello"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("send blocked behind a stalled subscriber")
	}
	if got := string(receive(t, other)); got != "hello" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	sub := newRecordingSubscriber()
	hub.Register("user-1", sub)
	hub.Unregister("user-1", sub)
	hub.Send("user-1", []byte("late"))
	hub.Register("user-2", newRecordingSubscriber())

	select {
	case got := <-sub.got:
		t.Fatalf("unexpected delivery %q after unregister", got)
	case <-time.After(50 * time.Millisecond):
	}
}
