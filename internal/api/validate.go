package api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MatheusssGM/Grafos/internal/model"
)

func validateRunParams(p model.RunParams) error {
	if p.Trials < 0 {
		return fmt.Errorf("trials must be >= 0")
	}
	if p.Trials > 10000 {
		return fmt.Errorf("trials must be <= 10000")
	}
	if p.PoolSize < 0 {
		return fmt.Errorf("k must be >= 0")
	}
	return nil
}

func validateSubscription(req model.SubscriptionRequest) error {
	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("events must not be empty")
	}
	allowed := map[string]struct{}{
		model.EventQueued:   {},
		model.EventStarted:  {},
		model.EventImproved: {},
		model.EventDone:     {},
		model.EventFailed:   {},
		"*":                 {},
	}
	for _, e := range req.Events {
		if _, ok := allowed[strings.ToLower(e)]; !ok {
			return fmt.Errorf("unknown event type: %s (allowed: run.queued,run.started,run.improved,run.done,run.failed,*)", e)
		}
	}
	return nil
}
