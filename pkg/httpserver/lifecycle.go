package httpserver

import "context"

// Lifecycle is a component started before the server listens and stopped
// after it has drained, such as a session manager.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// LifecycleFuncs adapts a pair of functions to Lifecycle. Either may be nil.
type LifecycleFuncs struct {
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

func (f LifecycleFuncs) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

func (f LifecycleFuncs) Stop(ctx context.Context) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}

// startAll starts ls in order and returns the ones that started. It stops at
// the first failure.
func startAll(ctx context.Context, ls []Lifecycle) ([]Lifecycle, error) {
	for i, l := range ls {
		if err := l.Start(ctx); err != nil {
			return ls[:i], err
		}
	}
	return ls, nil
}

// stopAll stops ls in reverse order and collects the failures.
func stopAll(ctx context.Context, ls []Lifecycle) []error {
	var errs []error
	for i := len(ls) - 1; i >= 0; i-- {
		if err := ls[i].Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
