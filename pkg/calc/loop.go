package calc

import "sync"

// Buffer size of the input channel. The value is chosen for no particular
// reason.
const inputChSize = 128

// A serial event loop. Everything that mutates the state of a Session runs as
// an event on the loop, so handlers never run in parallel.
type loop struct {
	inputCh   chan event
	publishCb publishCb

	publishCh chan struct{}

	returnCh chan error

	doneCh   chan struct{}
	doneOnce sync.Once
}

// An event is a continuation to run on the loop.
type event func()

// Callback for publishing the state after events have been handled. final is
// true for the last call, made right before Run returns.
type publishCb func(final bool)

func dummyPublishCb(bool) {}

func newLoop() *loop {
	return &loop{
		inputCh:   make(chan event, inputChSize),
		publishCb: dummyPublishCb,
		publishCh: make(chan struct{}, 1),
		returnCh:  make(chan error, 1),
		doneCh:    make(chan struct{}),
	}
}

// PublishCb sets the publish callback. It must be called before Run.
func (lp *loop) PublishCb(cb publishCb) {
	lp.publishCb = cb
}

// Publish requests the state to be published. It never blocks.
func (lp *loop) Publish() {
	select {
	case lp.publishCh <- struct{}{}:
	default:
	}
}

// Post schedules an event. It may block if the internal event buffer is full.
// Events posted after Run has returned are dropped.
func (lp *loop) Post(ev event) {
	select {
	case lp.inputCh <- ev:
	case <-lp.doneCh:
	}
}

// Return requests the loop to return. It never blocks. If Return has been
// called before during the current loop iteration, it has no effect.
func (lp *loop) Return(err error) {
	select {
	case lp.returnCh <- err:
	default:
	}
}

// Done returns a channel that is closed when Run has returned.
func (lp *loop) Done() <-chan struct{} {
	return lp.doneCh
}

// Run runs the loop until Return is called. It is fully serial: it never
// calls two events or callbacks in parallel, so they may manipulate shared
// states without synchronization among themselves. A loop can only be run
// once.
func (lp *loop) Run() error {
	defer lp.doneOnce.Do(func() { close(lp.doneCh) })
	for {
		lp.publishCb(false)
		select {
		case ev := <-lp.inputCh:
			// Consume all events in the channel to minimize publishing.
		consumeAllEvents:
			for {
				ev()
				select {
				case err := <-lp.returnCh:
					lp.publishCb(true)
					return err
				default:
				}
				select {
				case ev = <-lp.inputCh:
					// Continue the loop of consuming all events.
				default:
					break consumeAllEvents
				}
			}
		case err := <-lp.returnCh:
			lp.publishCb(true)
			return err
		case <-lp.publishCh:
		}
	}
}
