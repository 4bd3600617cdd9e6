// Package client implements a client for the calcsh daemon. A Client
// implements the Evaluator, Persister and EventStream interfaces in calcdefs.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	jsonrpc2ws "github.com/sourcegraph/jsonrpc2/websocket"
	"src.calc.sh/pkg/calc/calcdefs"
	"src.calc.sh/pkg/daemon/api"
	"src.calc.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[daemon client] ")

// Maximum time to wait for the daemon to acknowledge the end of a
// subscription.
var unsubscribeTimeout = time.Second

// Client is a connection to the daemon.
type Client struct {
	conn *jsonrpc2.Conn

	mutex sync.Mutex
	// Event handlers, keyed by subscription id.
	handlers map[string]func(calcdefs.Event)
}

var (
	_ calcdefs.Evaluator   = (*Client)(nil)
	_ calcdefs.Persister   = (*Client)(nil)
	_ calcdefs.EventStream = (*Client)(nil)
)

// Dial connects to the daemon listening on the given Unix socket.
func Dial(ctx context.Context, sockPath string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", sockPath)
	if err != nil {
		return nil, err
	}
	return newClient(jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{})), nil
}

// DialWebsocket connects to the websocket endpoint of a daemon, such as
// "ws://localhost:8080/rpc".
func DialWebsocket(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return newClient(jsonrpc2ws.NewObjectStream(conn)), nil
}

func newClient(stream jsonrpc2.ObjectStream) *Client {
	c := &Client{handlers: make(map[string]func(calcdefs.Event))}
	c.conn = jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(c.handle))
	return c
}

// Close closes the connection. Subscriptions end with it.
func (c *Client) Close() error {
	return c.conn.Close()
}

// DisconnectNotify returns a channel that is closed when the connection to
// the daemon is lost or closed.
func (c *Client) DisconnectNotify() <-chan struct{} {
	return c.conn.DisconnectNotify()
}

// Version returns the API version and the pid of the daemon.
func (c *Client) Version(ctx context.Context) (api.VersionResult, error) {
	var res api.VersionResult
	err := c.call(ctx, api.MethodVersion, nil, &res)
	return res, err
}

// Evaluate asks the daemon to evaluate an expression without storing it.
func (c *Client) Evaluate(ctx context.Context, expr string) (float64, error) {
	var res api.EvaluateResult
	err := c.call(ctx, api.MethodEvaluate, api.ExpressionParams{Expression: expr}, &res)
	return float64(res.Result), err
}

// Commit asks the daemon to evaluate an expression and store it in the
// history. If the expression is a command, the daemon runs it and the error
// is a *calcdefs.CommandRan.
func (c *Client) Commit(ctx context.Context, expr string) (calcdefs.Operation, error) {
	var res api.Operation
	err := c.call(ctx, api.MethodCommit, api.ExpressionParams{Expression: expr}, &res)
	if err != nil {
		return calcdefs.Operation{}, err
	}
	return res.Calc(), nil
}

// History returns all the stored operations.
func (c *Client) History(ctx context.Context) ([]calcdefs.Operation, error) {
	var res []api.Operation
	err := c.call(ctx, api.MethodHistory, nil, &res)
	if err != nil {
		return nil, err
	}
	ops := make([]calcdefs.Operation, len(res))
	for i, op := range res {
		ops[i] = op.Calc()
	}
	return ops, nil
}

// Clear clears the history and the variables. It returns the highest
// sequence number removed.
func (c *Client) Clear(ctx context.Context) (int, error) {
	var res api.ClearResult
	err := c.call(ctx, api.MethodClear, nil, &res)
	return res.Seq, err
}

// Subscribe subscribes to history events. The handler is called from the
// goroutine reading the connection, so it must not wait for responses from
// the daemon.
func (c *Client) Subscribe(ctx context.Context, f func(calcdefs.Event)) (calcdefs.Subscription, error) {
	id := uuid.NewString()
	// Register the handler first, so that events arriving before the
	// response are not lost.
	c.mutex.Lock()
	c.handlers[id] = f
	c.mutex.Unlock()

	err := c.call(ctx, api.MethodSubscribe, api.SubscriptionParams{Subscription: id}, nil)
	if err != nil {
		c.removeHandler(id)
		return nil, err
	}
	sub := &subscription{c: c, id: id, closed: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closed:
		}
	}()
	return sub, nil
}

type subscription struct {
	c      *Client
	id     string
	once   sync.Once
	closed chan struct{}
	err    error
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.closed)
		s.c.removeHandler(s.id)
		select {
		case <-s.c.conn.DisconnectNotify():
			// The daemon drops the subscriptions of closed connections.
			return
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
		defer cancel()
		s.err = s.c.call(ctx, api.MethodUnsubscribe, api.SubscriptionParams{Subscription: s.id}, nil)
	})
	return s.err
}

func (c *Client) removeHandler(id string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.handlers, id)
}

func (c *Client) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	if !req.Notif {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "client accepts no requests"}
	}
	if req.Params == nil {
		logger.Println("notification without params:", req.Method)
		return nil, nil
	}
	var (
		id string
		ev calcdefs.Event
	)
	switch req.Method {
	case api.NotifyOperationAdded:
		var params api.OperationAddedParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			logger.Println("bad params:", err)
			return nil, nil
		}
		id, ev = params.Subscription, calcdefs.OperationAdded{Operation: params.Operation.Calc()}
	case api.NotifyHistoryCleared:
		var params api.HistoryClearedParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			logger.Println("bad params:", err)
			return nil, nil
		}
		id, ev = params.Subscription, calcdefs.HistoryCleared{Seq: params.Seq}
	default:
		logger.Println("unknown notification:", req.Method)
		return nil, nil
	}

	c.mutex.Lock()
	f := c.handlers[id]
	c.mutex.Unlock()
	if f == nil {
		// The subscription has just been closed.
		return nil, nil
	}
	f(ev)
	return nil, nil
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	return convertError(c.conn.Call(ctx, method, params, result))
}

// Converts errors from the connection to the errors documented in calcdefs.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case api.CodeDomain:
			return &calcdefs.DomainError{Message: rpcErr.Message}
		case api.CodeCommand:
			return calcdefs.ErrIsCommand
		case api.CodeCommandRan:
			return &calcdefs.CommandRan{Name: rpcErr.Message}
		}
		return rpcErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", calcdefs.ErrUnavailable, err)
}
