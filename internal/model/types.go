package model

// Run lifecycle statuses.
const (
	StatusQueued     = "queued"
	StatusRunning    = "running"
	StatusDone       = "done"
	StatusFailed     = "failed"
	StatusNoSolution = "no_solution"
)

// Event types published on the run stream and to webhook subscribers.
const (
	EventQueued   = "run.queued"
	EventStarted  = "run.started"
	EventImproved = "run.improved"
	EventDone     = "run.done"
	EventFailed   = "run.failed"
)

// RunParams are the solver knobs accepted on submission.
type RunParams struct {
	Trials   int   `json:"trials"`
	PoolSize int   `json:"k"`
	SeedBase int64 `json:"seed"`
}

// RunResult summarizes the winning solution of a finished run.
type RunResult struct {
	Cost        float64 `json:"cost"`
	Routes      int     `json:"routes"`
	Services    int     `json:"services"`
	BadLines    int     `json:"badLines,omitempty"`
	TotalNs     int64   `json:"totalNs"`
	BestFoundNs int64   `json:"bestFoundNs"`
}

// Run is one solver execution over a submitted instance. Timestamps are
// RFC 3339 strings.
type Run struct {
	ID         string     `json:"id"`
	Instance   string     `json:"instance"`
	Status     string     `json:"status"`
	Params     RunParams  `json:"params"`
	Error      string     `json:"error,omitempty"`
	Result     *RunResult `json:"result,omitempty"`
	CreatedAt  string     `json:"createdAt"`
	StartedAt  string     `json:"startedAt,omitempty"`
	FinishedAt string     `json:"finishedAt,omitempty"`
}

// RunEvent is the envelope fanned out to websocket clients and webhooks.
type RunEvent struct {
	RunID string         `json:"runId"`
	Type  string         `json:"type"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

// SubscriptionRequest registers a webhook endpoint for run events.
type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

// Subscription is a stored webhook registration.
type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}
