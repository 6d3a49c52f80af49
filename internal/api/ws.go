package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MatheusssGM/Grafos/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// wsMessage is a client frame: subscribe / unsubscribe / ping.
type wsMessage struct {
	Type  string `json:"type"`
	RunID string `json:"runId,omitempty"`
}

// wsEvent is a server frame wrapping one run event.
type wsEvent struct {
	Type  string         `json:"type"`
	RunID string         `json:"runId,omitempty"`
	Event *model.RunEvent `json:"event,omitempty"`
	Error string         `json:"error,omitempty"`
}

// EventsWSHandler streams run events over a websocket at /v1/ws. Clients
// send {"type":"subscribe","runId":"<id>"} (or "*" for all runs) and
// receive {"type":"event","event":{...}} frames as the pool progresses.
func (s *Server) EventsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// gorilla connections allow one concurrent writer; fanout goroutines
	// and the keepalive ticker share this lock.
	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		return conn.WriteJSON(v)
	}

	subs := map[string]chan model.RunEvent{}
	defer func() {
		for id, ch := range subs {
			s.Broker.Unsubscribe(id, ch)
			delete(subs, id)
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := write(wsEvent{Type: "ping"}); err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "subscribe":
			if msg.RunID == "" {
				_ = write(wsEvent{Type: "error", Error: "runId required"})
				continue
			}
			if _, ok := subs[msg.RunID]; ok {
				continue
			}
			ch := s.Broker.Subscribe(msg.RunID)
			subs[msg.RunID] = ch
			_ = write(wsEvent{Type: "subscribed", RunID: msg.RunID})
			go func(id string, c chan model.RunEvent) {
				for ev := range c {
					e := ev
					if err := write(wsEvent{Type: "event", RunID: e.RunID, Event: &e}); err != nil {
						return
					}
				}
			}(msg.RunID, ch)
		case "unsubscribe":
			if ch, ok := subs[msg.RunID]; ok {
				s.Broker.Unsubscribe(msg.RunID, ch)
				delete(subs, msg.RunID)
			}
		case "ping":
			_ = write(wsEvent{Type: "pong"})
		default:
			// ignore
		}
	}
}
