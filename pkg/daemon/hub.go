package daemon

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"
	"src.calc.sh/pkg/calc/calcdefs"
	"src.calc.sh/pkg/daemon/api"
)

// Fans history events out to subscribed connections.
type hub struct {
	mutex sync.Mutex
	subs  map[string]*jsonrpc2.Conn
	gauge interface{ Set(float64) }
}

func newHub(gauge interface{ Set(float64) }) *hub {
	return &hub{subs: make(map[string]*jsonrpc2.Conn), gauge: gauge}
}

// Adds a subscription for conn. If id is empty, a new one is generated. It
// returns the id of the subscription.
func (h *hub) subscribe(conn *jsonrpc2.Conn, id string) string {
	if id == "" {
		id = uuid.NewString()
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.subs[id] = conn
	h.gauge.Set(float64(len(h.subs)))
	return id
}

// Removes a subscription of conn. It returns whether the subscription
// existed.
func (h *hub) unsubscribe(conn *jsonrpc2.Conn, id string) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.subs[id] != conn {
		return false
	}
	delete(h.subs, id)
	h.gauge.Set(float64(len(h.subs)))
	return true
}

// Removes all subscriptions of a connection that has gone away.
func (h *hub) dropConn(conn *jsonrpc2.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for id, c := range h.subs {
		if c == conn {
			delete(h.subs, id)
		}
	}
	h.gauge.Set(float64(len(h.subs)))
}

func (h *hub) count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.subs)
}

// Sends ev to all subscribers. Calls must be serialized by the caller so
// that events are delivered in the order they happened.
func (h *hub) publish(ctx context.Context, ev calcdefs.Event) {
	h.mutex.Lock()
	subs := make(map[string]*jsonrpc2.Conn, len(h.subs))
	for id, conn := range h.subs {
		subs[id] = conn
	}
	h.mutex.Unlock()

	for id, conn := range subs {
		var method string
		var params any
		switch ev := ev.(type) {
		case calcdefs.OperationAdded:
			method = api.NotifyOperationAdded
			params = api.OperationAddedParams{Subscription: id, Operation: api.FromOperation(ev.Operation)}
		case calcdefs.HistoryCleared:
			method = api.NotifyHistoryCleared
			params = api.HistoryClearedParams{Subscription: id, Seq: ev.Seq}
		default:
			logger.Printf("not publishing unknown event %T", ev)
			return
		}
		if err := conn.Notify(ctx, method, params); err != nil {
			logger.Printf("cannot notify subscription %s: %v", id, err)
		}
	}
}
