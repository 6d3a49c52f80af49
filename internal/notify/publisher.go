package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MatheusssGM/Grafos/internal/model"
	"github.com/MatheusssGM/Grafos/internal/store"
)

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit fans a run event out to every matching subscription. Nothing is sent
// here; deliveries are queued and the retry worker drains them.
func (p *Publisher) Emit(ctx context.Context, ev model.RunEvent) {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, ev.Type)
	if err != nil || len(subs) == 0 {
		return
	}
	ts := ev.TS
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}
	payload := map[string]any{
		"id":    fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type":  ev.Type,
		"runId": ev.RunID,
		"ts":    ts,
		"data":  ev.Data,
	}
	body, _ := json.Marshal(payload)
	for _, s := range subs {
		_, _ = p.Store.EnqueueWebhook(ctx, s.ID, ev.Type, s.URL, s.Secret, body)
	}
}
