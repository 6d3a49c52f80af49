package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/MatheusssGM/Grafos/internal/model"
)

// RedisBroker implements EventBroker over Redis Pub/Sub so events reach
// websocket clients on every replica, not just the one running the job.
type RedisBroker struct {
	rdb *redis.Client

	mu sync.Mutex
	ps map[chan model.RunEvent]*redis.PubSub
}

func NewRedisBroker(url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil { return nil, err }
	return &RedisBroker{rdb: redis.NewClient(opt), ps: map[chan model.RunEvent]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(runID string) chan model.RunEvent {
	ch := make(chan model.RunEvent, 16)
	ctx := context.Background()
	var ps *redis.PubSub
	if runID == "*" {
		ps = b.rdb.PSubscribe(ctx, "run:*")
	} else {
		ps = b.rdb.Subscribe(ctx, b.chanName(runID))
	}
	// initial consume to ensure subscription
	_, _ = ps.Receive(ctx)
	b.mu.Lock()
	b.ps[ch] = ps
	b.mu.Unlock()
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var ev model.RunEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err == nil {
				select { case ch <- ev: default: }
			}
		}
	}()
	return ch
}

// Unsubscribe closes the underlying PubSub; its Channel drains and the
// fanout goroutine closes ch.
func (b *RedisBroker) Unsubscribe(runID string, ch chan model.RunEvent) {
	b.mu.Lock()
	ps := b.ps[ch]
	delete(b.ps, ch)
	b.mu.Unlock()
	if ps != nil { _ = ps.Close() }
}

func (b *RedisBroker) Publish(ev model.RunEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, _ := json.Marshal(ev)
	_ = b.rdb.Publish(ctx, b.chanName(ev.RunID), data).Err()
}

func (b *RedisBroker) chanName(runID string) string { return "run:" + runID }
