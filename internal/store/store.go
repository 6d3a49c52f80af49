package store

import (
	"context"
	"errors"
	"time"

	"github.com/MatheusssGM/Grafos/internal/model"
)

// Store is the persistence interface shared by the API server and the solve
// pool. Both implementations mint run and subscription ids themselves.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, instance string, params model.RunParams) (model.Run, error)
	GetRun(ctx context.Context, id string) (model.Run, error)
	ListRuns(ctx context.Context, status, cursor string, limit int) ([]model.Run, string, error)
	UpdateRun(ctx context.Context, run model.Run) error
	DeleteRun(ctx context.Context, id string) error

	// Solution bodies, keyed by run id
	SaveSolution(ctx context.Context, runID, body string) error
	GetSolution(ctx context.Context, runID string) (string, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, id string) error
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, status, cursor string, limit int) ([]map[string]any, string, error)
}

var ErrNotFound = errors.New("not found")
