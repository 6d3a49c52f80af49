package api

import (
	"sync"

	"github.com/MatheusssGM/Grafos/internal/model"
)

// EventBroker fans run events out to websocket subscribers. Subscribing to
// run id "*" receives events for every run.
type EventBroker interface {
	Subscribe(runID string) chan model.RunEvent
	Unsubscribe(runID string, ch chan model.RunEvent)
	Publish(ev model.RunEvent)
}

// Broker is the in-process EventBroker used when no Redis is configured.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan model.RunEvent]struct{} // runId (or "*") -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan model.RunEvent]struct{}{}}
}

func (b *Broker) Subscribe(runID string) chan model.RunEvent {
	ch := make(chan model.RunEvent, 8)
	b.mu.Lock()
	if b.subs[runID] == nil { b.subs[runID] = map[chan model.RunEvent]struct{}{} }
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan model.RunEvent) {
	b.mu.Lock()
	if m := b.subs[runID]; m != nil {
		delete(m, ch)
		if len(m) == 0 { delete(b.subs, runID) }
	}
	b.mu.Unlock()
	close(ch)
}

// Publish delivers to subscribers of the event's run and to wildcard
// subscribers. Slow consumers drop events instead of blocking the pool.
func (b *Broker) Publish(ev model.RunEvent) {
	b.mu.Lock()
	for ch := range b.subs[ev.RunID] {
		select { case ch <- ev: default: }
	}
	for ch := range b.subs["*"] {
		select { case ch <- ev: default: }
	}
	b.mu.Unlock()
}
