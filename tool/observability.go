package tool

import (
	"context"
	"time"
)

// DispatchObservation captures the outcome of one dispatch.
type DispatchObservation struct {
	RequestID string
	ToolName  string
	Stage     Stage
	ErrorCode string
	Success   bool
	Started   time.Time
	Duration  time.Duration
}

// Observer receives one observation per dispatch. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveDispatch(ctx context.Context, observation DispatchObservation)
}

// NopObserver discards observations.
type NopObserver struct{}

func (NopObserver) ObserveDispatch(context.Context, DispatchObservation) {}

// MultiObserver fans an observation out to each non-nil observer in order.
type MultiObserver []Observer

func (m MultiObserver) ObserveDispatch(ctx context.Context, observation DispatchObservation) {
	for _, o := range m {
		if o != nil {
			o.ObserveDispatch(ctx, observation)
		}
	}
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, observation DispatchObservation)

func (f ObserverFunc) ObserveDispatch(ctx context.Context, observation DispatchObservation) {
	f(ctx, observation)
}
