package providers

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// PingTimeout bounds each provider check in CheckAll.
var PingTimeout = 10 * time.Second

type HealthStatus struct {
	Name     string
	IsOnline bool
	// Unauthorized is set when the provider answered but rejected the key.
	Unauthorized bool
	ErrorMsg     string
	Latency      time.Duration
}

// CheckAll pings every provider concurrently. Results keep the input order.
func CheckAll(ctx context.Context, provs []Provider) []HealthStatus {
	statuses := make([]HealthStatus, len(provs))
	var g errgroup.Group
	for i, p := range provs {
		g.Go(func() error {
			statuses[i] = check(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}

func check(ctx context.Context, p Provider) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	status := HealthStatus{Name: p.Name(), IsOnline: err == nil, Latency: time.Since(start)}
	if err != nil {
		status.ErrorMsg = err.Error()
		status.Unauthorized = errors.Is(err, ErrUnauthorized)
	}
	return status
}
