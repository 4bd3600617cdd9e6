package calc

import (
	"context"
	"sync"

	"src.calc.sh/pkg/calc/calcdefs"
	"src.calc.sh/pkg/calc/histutil"
)

// Keeps the mirror in sync with the backend during an activation.
//
// All methods must be called on the loop.
type history struct {
	persister calcdefs.Persister
	events    calcdefs.EventStream
	post      func(event)
	changed   func()

	mirror *histutil.Mirror
	scope  *subscriptionScope

	err  error
	live bool
}

// Starts an activation. The event stream is subscribed first, and the history
// is fetched after the subscription has resolved, so any operation missing
// from the fetched snapshot arrives as an event.
func (h *history) activate(ctx context.Context) {
	h.deactivate()
	h.mirror.Reset()
	h.err, h.live = nil, false

	ctx, cancel := context.WithCancel(ctx)
	scope := &subscriptionScope{cancel: cancel}
	h.scope = scope

	go func() {
		sub, err := h.events.Subscribe(ctx, func(ev calcdefs.Event) {
			h.post(func() {
				if scope.active() {
					h.apply(ev)
				}
			})
		})
		if err != nil {
			if !scope.active() {
				return
			}
			logger.Println("cannot subscribe to history events, continuing without live updates:", err)
		} else if !scope.attach(sub) {
			return
		} else {
			h.post(func() {
				if scope.active() {
					h.live = true
					h.changed()
				}
			})
		}

		ops, err := h.persister.History(ctx)
		h.post(func() {
			if !scope.active() {
				return
			}
			if err != nil {
				logger.Println("cannot fetch history:", err)
				h.err = err
			} else {
				h.mirror.Seed(ops)
				h.err = nil
			}
			h.changed()
		})
	}()
}

// Ends the current activation, if any.
func (h *history) deactivate() {
	if h.scope != nil {
		h.scope.close()
		h.scope = nil
		h.live = false
	}
}

func (h *history) apply(ev calcdefs.Event) {
	switch ev := ev.(type) {
	case calcdefs.OperationAdded:
		h.mirror.Append(ev.Operation)
	case calcdefs.HistoryCleared:
		h.mirror.Clear(ev.Seq)
	}
	h.changed()
}

// Called with the operation returned by a successful commit.
func (h *history) appendLocal(op calcdefs.Operation) {
	h.mirror.Append(op)
	h.changed()
}

// Owns the event subscription of one activation. Closing the scope releases
// the subscription exactly once, including a subscription that resolves after
// the scope has been closed.
type subscriptionScope struct {
	mutex  sync.Mutex
	cancel context.CancelFunc
	sub    calcdefs.Subscription
	closed bool
}

func (s *subscriptionScope) active() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return !s.closed
}

// Attaches a resolved subscription. If the scope is already closed, the
// subscription is closed immediately and attach returns false.
func (s *subscriptionScope) attach(sub calcdefs.Subscription) bool {
	s.mutex.Lock()
	closed := s.closed
	if !closed {
		s.sub = sub
	}
	s.mutex.Unlock()
	if closed {
		closeSubscription(sub)
		return false
	}
	return true
}

func (s *subscriptionScope) close() {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.mutex.Unlock()

	s.cancel()
	if sub != nil {
		closeSubscription(sub)
	}
}

func closeSubscription(sub calcdefs.Subscription) {
	if err := sub.Close(); err != nil {
		logger.Println("cannot close event subscription:", err)
	}
}
