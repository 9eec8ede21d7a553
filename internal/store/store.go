package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"rentdapp/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Action is a named state transition request.
type Action interface {
	Type() string
}

// Failed is implemented by failure actions.
type Failed interface {
	Action
	FailureMessage() string
}

// Failure is embedded by every failure action.
type Failure struct {
	Error string `json:"error"`
}

func (f Failure) FailureMessage() string { return f.Error }

// Envelope is one entry of the dispatch log.
type Envelope struct {
	ID     uuid.UUID `json:"id"`
	Seq    uint64    `json:"seq"`
	Action Action    `json:"action"`
	At     time.Time `json:"at"`
}

// Update is delivered to subscribers after every dispatch.
type Update struct {
	Envelope Envelope
	State    State
}

// Journal persists envelopes. Errors are logged and never fail a dispatch.
type Journal interface {
	Append(ctx context.Context, env Envelope) error
}

var ErrClosed = errors.New("store closed")

// Store holds the client state. All mutation goes through Dispatch.
type Store struct {
	mu     sync.Mutex
	state  State
	log    []Envelope
	seq    uint64
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	logger  *zerolog.Logger
	now     func() time.Time
	journal Journal
	wg      sync.WaitGroup
}

type Option func(*Store)

func WithLogger(l *zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithJournal mirrors every envelope to j from a background writer.
func WithJournal(j Journal) Option {
	return func(s *Store) { s.journal = j }
}

func New(opts ...Option) *Store {
	nop := zerolog.Nop()
	s := &Store{
		state:  InitialState(),
		subs:   make(map[uint64]*Subscription),
		logger: &nop,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.journal != nil {
		sub := s.Subscribe()
		s.wg.Add(1)
		go s.runJournal(sub)
	}
	return s
}

// Dispatch folds a through the reducers and notifies subscribers.
func (s *Store) Dispatch(a Action) (Envelope, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Envelope{}, ErrClosed
	}
	s.seq++
	env := Envelope{ID: uuid.New(), Seq: s.seq, Action: a, At: s.now()}
	s.state = Reduce(s.state, a)
	s.log = append(s.log, env)
	upd := Update{Envelope: env, State: s.state}
	for _, sub := range s.subs {
		sub.push(upd)
	}
	s.mu.Unlock()

	metrics.IncAction(a.Type())
	if f, ok := a.(Failed); ok {
		s.logger.Debug().Str("action", a.Type()).Str("error", f.FailureMessage()).Msg("failure dispatched")
	}
	return env, nil
}

// State returns the current state. Treat it as read-only.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Log returns a copy of the dispatch log.
func (s *Store) Log() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.log))
	copy(out, s.log)
	return out
}

// Subscribe registers a new ordered, unbounded update queue.
func (s *Store) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub := newSubscription(s.nextID, s)
	if s.closed {
		sub.closeQueue()
		return sub
	}
	s.subs[sub.id] = sub
	return sub
}

func (s *Store) unsubscribe(id uint64) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

// DispatchAndWait dispatches a and returns the first later action for which
// match is true.
func (s *Store) DispatchAndWait(ctx context.Context, a Action, match func(Action) bool) (Action, error) {
	sub := s.Subscribe()
	defer sub.Close()

	env, err := s.Dispatch(a)
	if err != nil {
		return nil, err
	}
	for {
		upd, err := sub.Next(ctx)
		if err != nil {
			return nil, err
		}
		if upd.Envelope.Seq <= env.Seq {
			continue
		}
		if match(upd.Envelope.Action) {
			return upd.Envelope.Action, nil
		}
	}
}

// Close ends every subscription and waits for the journal writer.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = make(map[uint64]*Subscription)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.closeQueue()
	}
	s.wg.Wait()
}

func (s *Store) runJournal(sub *Subscription) {
	defer s.wg.Done()
	ctx := context.Background()
	for {
		upd, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if err := s.journal.Append(ctx, upd.Envelope); err != nil {
			s.logger.Warn().Err(err).Str("action", upd.Envelope.Action.Type()).Uint64("seq", upd.Envelope.Seq).Msg("journal append failed")
		}
	}
}

// Fold re-derives state from a log prefix.
func Fold(envs []Envelope) State {
	st := InitialState()
	for _, env := range envs {
		st = Reduce(st, env.Action)
	}
	return st
}

// Select applies a selector to the current state.
func Select[T any](s *Store, selector func(State) T) T {
	return selector(s.State())
}

// Subscription is an ordered queue of updates that never blocks Dispatch.
type Subscription struct {
	id     uint64
	store  *Store
	mu     sync.Mutex
	queue  []Update
	closed bool
	notify chan struct{}
	once   sync.Once
}

func newSubscription(id uint64, s *Store) *Subscription {
	return &Subscription{id: id, store: s, notify: make(chan struct{}, 1)}
}

func (sub *Subscription) push(u Update) {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.queue = append(sub.queue, u)
	sub.mu.Unlock()
	select {
	case sub.notify <- struct{}{}:
	default:
	}
}

// Next blocks until an update is queued. Queued updates are still delivered
// after Close; ErrClosed is returned once the queue is drained.
func (sub *Subscription) Next(ctx context.Context) (Update, error) {
	for {
		sub.mu.Lock()
		if len(sub.queue) > 0 {
			u := sub.queue[0]
			sub.queue[0] = Update{}
			sub.queue = sub.queue[1:]
			sub.mu.Unlock()
			return u, nil
		}
		closed := sub.closed
		sub.mu.Unlock()
		if closed {
			return Update{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Update{}, ctx.Err()
		case <-sub.notify:
		}
	}
}

// Len returns the number of undelivered updates.
func (sub *Subscription) Len() int {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return len(sub.queue)
}

// Close detaches the subscription from the store.
func (sub *Subscription) Close() {
	sub.store.unsubscribe(sub.id)
	sub.closeQueue()
}

func (sub *Subscription) closeQueue() {
	sub.once.Do(func() {
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	})
}
