package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MatheusssGM/Grafos/internal/model"
)

func TestMemoryRunLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	run, err := m.CreateRun(ctx, "gdb1.dat", model.RunParams{Trials: 3, PoolSize: 2, SeedBase: 7})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if run.ID == "" || run.Status != model.StatusQueued || run.CreatedAt == "" {
		t.Fatalf("queued run malformed: %+v", run)
	}

	run.Status = model.StatusRunning
	run.StartedAt = time.Now().UTC().Format(time.RFC3339)
	if err := m.UpdateRun(ctx, run); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := m.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusRunning || got.StartedAt == "" {
		t.Fatalf("update not visible: %+v", got)
	}

	items, next, err := m.ListRuns(ctx, model.StatusRunning, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != run.ID || next != "" {
		t.Fatalf("status filter broken: %d items next=%q", len(items), next)
	}
	if items, _, _ = m.ListRuns(ctx, model.StatusDone, "", 10); len(items) != 0 {
		t.Fatalf("done filter must exclude running run")
	}

	if err := m.SaveSolution(ctx, run.ID, "276\n5\n"); err != nil {
		t.Fatalf("save solution: %v", err)
	}
	if body, err := m.GetSolution(ctx, run.ID); err != nil || body != "276\n5\n" {
		t.Fatalf("get solution: %q %v", body, err)
	}

	if err := m.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.GetRun(ctx, run.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := m.GetSolution(ctx, run.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("solution must go with the run, got %v", err)
	}
	if err := m.DeleteRun(ctx, run.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete must be ErrNotFound, got %v", err)
	}
}

func TestMemorySubscriptionWildcard(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://a.example/hook", Events: []string{"run.done"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	star, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://b.example/hook", Events: []string{"*"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	subs, err := m.GetSubscriptionsForEvent(ctx, "run.done")
	if err != nil || len(subs) != 2 {
		t.Fatalf("run.done should reach both subscribers: %d %v", len(subs), err)
	}
	subs, err = m.GetSubscriptionsForEvent(ctx, "run.failed")
	if err != nil || len(subs) != 1 || subs[0].ID != star.ID {
		t.Fatalf("run.failed should reach only the wildcard: %+v %v", subs, err)
	}
}

func TestMemoryWebhookQueue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, err := m.EnqueueWebhook(ctx, "", "run.done", "https://x.example/hook", "s3cr3t", []byte(`{"id":"evt_1"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil || len(due) != 1 || due[0].ID != id {
		t.Fatalf("fresh delivery must be due: %+v %v", due, err)
	}

	next := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500, 12); err != nil {
		t.Fatalf("mark retry: %v", err)
	}
	if due, _ = m.FetchDueWebhookDeliveries(ctx, 10); len(due) != 0 {
		t.Fatalf("rescheduled delivery must not be due yet")
	}

	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 8); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	items, _, err := m.ListWebhookDeliveries(ctx, "delivered", "", 10)
	if err != nil || len(items) != 1 {
		t.Fatalf("delivered filter: %d %v", len(items), err)
	}
	if items[0]["attempts"].(int) != 2 {
		t.Fatalf("attempts should count both tries, got %v", items[0]["attempts"])
	}
}
