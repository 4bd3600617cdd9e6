package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"src.calc.sh/pkg/calc"
	"src.calc.sh/pkg/calc/calcdefs"
	"src.calc.sh/pkg/daemon/api"
	"src.calc.sh/pkg/evaluator"
	"src.calc.sh/pkg/store/storedefs"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
	errNoSubscription = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "no such subscription"}
)

type service struct {
	version int
	// nil if the store could not be opened, in which case storeErr is set.
	store    storedefs.Store
	storeErr error
	hub      *hub
	metrics  *metrics

	// Serializes changes to the store, so that events are published in the
	// order of the changes.
	writeMutex sync.Mutex
}

func newService(version int, st storedefs.Store, storeErr error, m *metrics) *service {
	return &service{version: version, store: st, storeErr: storeErr,
		hub: newHub(m.subscribers), metrics: m}
}

func (s *service) handler() jsonrpc2.Handler {
	return routingHandler(map[string]method{
		api.MethodVersion:     s.versionMethod,
		api.MethodEvaluate:    s.evaluate,
		api.MethodCommit:      s.commit,
		api.MethodHistory:     s.history,
		api.MethodClear:       s.clear,
		api.MethodSubscribe:   s.subscribe,
		api.MethodUnsubscribe: s.unsubscribe,
	})
}

type method func(context.Context, *jsonrpc2.Conn, json.RawMessage) (any, error)

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

// Handler implementations. Requests from one connection are handled one at a
// time; requests from different connections run concurrently.

func (s *service) versionMethod(context.Context, *jsonrpc2.Conn, json.RawMessage) (any, error) {
	return api.VersionResult{Version: s.version, Pid: os.Getpid()}, nil
}

func (s *service) evaluate(_ context.Context, _ *jsonrpc2.Conn, rawParams json.RawMessage) (any, error) {
	var params api.ExpressionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	res, err := evaluator.Evaluate(params.Expression, s.vars())
	s.metrics.evaluations.WithLabelValues(outcomeOf(err)).Inc()
	if err != nil {
		return nil, rpcError(err)
	}
	return api.EvaluateResult{Result: api.Float(res.Value)}, nil
}

func (s *service) commit(ctx context.Context, _ *jsonrpc2.Conn, rawParams json.RawMessage) (any, error) {
	var params api.ExpressionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	op, err := s.doCommit(ctx, params.Expression)
	s.metrics.commits.WithLabelValues(outcomeOf(err)).Inc()
	if err != nil {
		return nil, rpcError(err)
	}
	return api.FromOperation(op), nil
}

func (s *service) doCommit(ctx context.Context, expr string) (calcdefs.Operation, error) {
	if name, ok := calcdefs.IsCommand(expr); ok {
		if name == calcdefs.CmdClear {
			if _, err := s.doClear(ctx); err != nil {
				return calcdefs.Operation{}, err
			}
		}
		return calcdefs.Operation{}, &calcdefs.CommandRan{Name: name}
	}
	if err := s.checkStore(); err != nil {
		return calcdefs.Operation{}, err
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	res, err := evaluator.Evaluate(expr, s.vars())
	if err != nil {
		return calcdefs.Operation{}, err
	}
	op, err := s.store.AddOperation(expr, res.Value)
	if err != nil {
		return calcdefs.Operation{}, err
	}
	// The operation is stored at this point, so failing to set variables
	// does not fail the commit.
	if err := s.store.SetVar(calc.AnsVar, res.Value); err != nil {
		logger.Println("cannot set ans:", err)
	}
	if res.Assign != "" {
		if err := s.store.SetVar(res.Assign, res.Value); err != nil {
			logger.Printf("cannot set %s: %v", res.Assign, err)
		}
	}
	s.hub.publish(ctx, calcdefs.OperationAdded{Operation: op})
	return op, nil
}

func (s *service) history(context.Context, *jsonrpc2.Conn, json.RawMessage) (any, error) {
	if err := s.checkStore(); err != nil {
		return nil, rpcError(err)
	}
	ops, err := s.store.Operations()
	if err != nil {
		return nil, rpcError(err)
	}
	return api.FromOperations(ops), nil
}

func (s *service) clear(ctx context.Context, _ *jsonrpc2.Conn, _ json.RawMessage) (any, error) {
	seq, err := s.doClear(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	return api.ClearResult{Seq: seq}, nil
}

// Clears the history and the variables.
func (s *service) doClear(ctx context.Context) (int, error) {
	if err := s.checkStore(); err != nil {
		return 0, err
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	seq, err := s.store.ClearOperations()
	if err != nil {
		return 0, err
	}
	if err := s.store.ClearVars(); err != nil {
		logger.Println("cannot clear variables:", err)
	}
	s.hub.publish(ctx, calcdefs.HistoryCleared{Seq: seq})
	return seq, nil
}

func (s *service) subscribe(_ context.Context, conn *jsonrpc2.Conn, rawParams json.RawMessage) (any, error) {
	var params api.SubscriptionParams
	if len(rawParams) > 0 && json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	id := s.hub.subscribe(conn, params.Subscription)
	return api.SubscriptionParams{Subscription: id}, nil
}

func (s *service) unsubscribe(_ context.Context, conn *jsonrpc2.Conn, rawParams json.RawMessage) (any, error) {
	var params api.SubscriptionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	if !s.hub.unsubscribe(conn, params.Subscription) {
		return nil, errNoSubscription
	}
	return nil, nil
}

func (s *service) checkStore() error {
	if s.store == nil {
		return fmt.Errorf("store not available: %w", s.storeErr)
	}
	return nil
}

// Variables for evaluation. Without a store, there are none.
func (s *service) vars() map[string]float64 {
	if s.store == nil {
		return nil
	}
	vars, err := s.store.Vars()
	if err != nil {
		logger.Println("cannot read variables:", err)
		return nil
	}
	return vars
}

func outcomeOf(err error) string {
	var (
		domainErr *calcdefs.DomainError
		cmdRan    *calcdefs.CommandRan
	)
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, calcdefs.ErrIsCommand), errors.As(err, &cmdRan):
		return outcomeCommand
	case errors.As(err, &domainErr):
		return outcomeDomain
	}
	return outcomeError
}

// Converts errors from the evaluator and the store to JSON-RPC errors with
// the codes defined in api.
func rpcError(err error) error {
	var (
		domainErr *calcdefs.DomainError
		cmdRan    *calcdefs.CommandRan
	)
	switch {
	case errors.Is(err, calcdefs.ErrIsCommand):
		return &jsonrpc2.Error{Code: api.CodeCommand, Message: err.Error()}
	case errors.As(err, &domainErr):
		return &jsonrpc2.Error{Code: api.CodeDomain, Message: domainErr.Message}
	case errors.As(err, &cmdRan):
		return &jsonrpc2.Error{Code: api.CodeCommandRan, Message: cmdRan.Name}
	}
	return &jsonrpc2.Error{Code: api.CodeStore, Message: err.Error()}
}
