package effects

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"rentdapp/internal/store"

	"github.com/rs/zerolog"
)

// Mode controls how a job interacts with jobs sharing its key.
type Mode int

const (
	// Concurrent jobs never wait for or replace each other.
	Concurrent Mode = iota
	// Exhaust drops a new job while one with the same key is running.
	Exhaust
	// Switch cancels the running job with the same key and discards its
	// late results.
	Switch
)

func (m Mode) String() string {
	switch m {
	case Exhaust:
		return "exhaust"
	case Switch:
		return "switch"
	default:
		return "concurrent"
	}
}

// Job is the side effect triggered by one action.
type Job struct {
	Mode Mode
	// Key groups jobs for Exhaust and Switch. Defaults to the action type.
	Key string
	Run func(ctx context.Context, emit func(store.Action))
}

// Effects maps actions to jobs.
type Effects interface {
	Job(a store.Action) (Job, bool)
}

// Binder is implemented by effects that dispatch outside of jobs.
type Binder interface {
	Bind(dispatch func(store.Action))
}

// Runner feeds dispatched actions to effects and dispatches their results.
type Runner struct {
	store   *store.Store
	effects []Effects
	logger  *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sub    *store.Subscription
	wg     sync.WaitGroup

	mu       sync.Mutex
	busy     map[string]struct{}
	latest   map[string]uint64
	switches map[string]context.CancelFunc

	started atomic.Bool
	stopped atomic.Bool
}

func NewRunner(s *store.Store, logger *zerolog.Logger, effects ...Effects) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:    s,
		effects:  effects,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		busy:     make(map[string]struct{}),
		latest:   make(map[string]uint64),
		switches: make(map[string]context.CancelFunc),
	}
}

// Start subscribes to the store. Only actions dispatched afterwards run.
func (r *Runner) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	r.sub = r.store.Subscribe()
	for _, e := range r.effects {
		if b, ok := e.(Binder); ok {
			b.Bind(r.dispatch)
		}
	}
	r.wg.Add(1)
	go r.loop()
}

// Stop cancels running jobs, waits for them and drops their results.
func (r *Runner) Stop() {
	if !r.stopped.CompareAndSwap(false, true) {
		return
	}
	if r.sub != nil {
		r.sub.Close()
	}
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) loop() {
	defer r.wg.Done()
	for {
		upd, err := r.sub.Next(r.ctx)
		if err != nil {
			return
		}
		if r.stopped.Load() {
			return
		}
		a := upd.Envelope.Action
		for _, e := range r.effects {
			if job, ok := e.Job(a); ok {
				r.schedule(a, job)
			}
		}
	}
}

func (r *Runner) schedule(a store.Action, job Job) {
	key := job.Key
	if key == "" {
		key = a.Type()
	}

	ctx := r.ctx
	emit := r.dispatch
	var done func()

	r.mu.Lock()
	switch job.Mode {
	case Exhaust:
		if _, running := r.busy[key]; running {
			r.mu.Unlock()
			r.logger.Debug().Str("action", a.Type()).Msg("ignored while busy")
			return
		}
		r.busy[key] = struct{}{}
		done = func() {
			r.mu.Lock()
			delete(r.busy, key)
			r.mu.Unlock()
		}
	case Switch:
		if prev, ok := r.switches[key]; ok {
			prev()
		}
		gen := r.latest[key] + 1
		r.latest[key] = gen
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(r.ctx)
		r.switches[key] = cancel
		emit = func(out store.Action) {
			r.mu.Lock()
			current := r.latest[key] == gen
			r.mu.Unlock()
			if current {
				r.dispatch(out)
			}
		}
		done = func() {
			r.mu.Lock()
			if r.latest[key] == gen {
				delete(r.switches, key)
			}
			r.mu.Unlock()
			cancel()
		}
	}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if done != nil {
			defer done()
		}
		job.Run(ctx, emit)
	}()
}

func (r *Runner) dispatch(a store.Action) {
	if r.stopped.Load() {
		return
	}
	if _, err := r.store.Dispatch(a); err != nil && !errors.Is(err, store.ErrClosed) {
		r.logger.Warn().Err(err).Str("action", a.Type()).Msg("dispatch failed")
	}
}

func exhaust(run func(ctx context.Context, emit func(store.Action))) (Job, bool) {
	return Job{Mode: Exhaust, Run: run}, true
}

func concurrent(run func(ctx context.Context, emit func(store.Action))) (Job, bool) {
	return Job{Mode: Concurrent, Run: run}, true
}

func latest(key string, run func(ctx context.Context, emit func(store.Action))) (Job, bool) {
	return Job{Mode: Switch, Key: key, Run: run}, true
}
