package handler

import (
	"strings"
	"testing"
	"time"

	"tourguard/api/internal/model"
)

func newHubClient(id string) *Client {
	return &Client{ID: id, Send: make(chan []byte, 8)}
}

func hubRegister(t *testing.T, hub *WSHub, client *Client) {
	t.Helper()
	select {
	case hub.register <- client:
	case <-time.After(time.Second):
		t.Fatal("register timed out")
	}
}

func receive(t *testing.T, client *Client) (string, bool) {
	t.Helper()
	select {
	case payload, ok := <-client.Send:
		return string(payload), ok
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return "", false
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewWSHub(nil)
	go hub.Run()

	client := newHubClient("dash-1")
	hubRegister(t, hub, client)

	if err := hub.BroadcastAlert(&model.AlertMessage{ID: 1, UserID: 7, AlertType: model.AlertTypePanic}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	payload, ok := receive(t, client)
	if !ok {
		t.Fatal("send channel closed early")
	}
	if !strings.Contains(payload, `"type":"alert"`) {
		t.Errorf("payload = %s, want an alert envelope", payload)
	}

	t.Run("stop closes clients from the hub loop", func(t *testing.T) {
		hub.Stop()

		deadline := time.Now().Add(time.Second)
		for {
			select {
			case _, ok := <-client.Send:
				if !ok {
					if n := hub.GetClientCount(); n != 0 {
						t.Errorf("client count = %d after stop", n)
					}
					// a late publish must not panic against a stopped hub
					hub.BroadcastAlert(&model.AlertMessage{ID: 2, UserID: 7})
					return
				}
			default:
				if time.Now().After(deadline) {
					t.Fatal("send channel never closed")
				}
				time.Sleep(5 * time.Millisecond)
			}
		}
	})
}

func TestHubWatchFilter(t *testing.T) {
	hub := NewWSHub(nil)
	go hub.Run()
	defer hub.Stop()

	watcher := newHubClient("dash-watch")
	watcher.Watch(99)
	hubRegister(t, hub, watcher)

	everyone := newHubClient("dash-all")
	hubRegister(t, hub, everyone)

	hub.BroadcastAlert(&model.AlertMessage{ID: 1, UserID: 7})
	hub.BroadcastAlert(&model.AlertMessage{ID: 2, UserID: 99})

	first, _ := receive(t, everyone)
	second, _ := receive(t, everyone)
	if !strings.Contains(first, `"id":1`) || !strings.Contains(second, `"id":2`) {
		t.Errorf("unfiltered client got %s then %s", first, second)
	}

	watched, _ := receive(t, watcher)
	if !strings.Contains(watched, `"id":2`) {
		t.Errorf("watcher got %s, want only user 99 events", watched)
	}
	select {
	case extra := <-watcher.Send:
		t.Errorf("watcher leaked %s", extra)
	case <-time.After(50 * time.Millisecond):
	}
}
