package calc

import (
	"context"
	"errors"

	"src.calc.sh/pkg/calc/calcdefs"
)

// Drives the evaluator from the normalized buffer. Only the response to the
// latest request can update the preview: every request carries a token, and a
// settlement whose token is not the latest is dropped.
//
// All methods must be called on the loop.
type liveEval struct {
	evaluator  calcdefs.Evaluator
	post       func(event)
	setPreview func(string)

	token uint64
}

// Called when the normalized buffer has changed.
func (le *liveEval) changed(ctx context.Context, expr string) {
	// Always mint a new token, so that responses for the old buffer are
	// dropped even when the new one is not evaluated.
	le.token++
	if expr == "" {
		le.setPreview("")
		return
	}
	token := le.token
	go func() {
		v, err := le.evaluator.Evaluate(ctx, expr)
		le.post(func() { le.settle(token, v, err) })
	}()
}

func (le *liveEval) settle(token uint64, v float64, err error) {
	if token != le.token {
		logger.Printf("dropping superseded evaluation %d (latest %d)", token, le.token)
		return
	}
	le.setPreview(previewOf(v, err))
}

func previewOf(v float64, err error) string {
	if err == nil {
		return RenderResult(v)
	}
	if errors.Is(err, calcdefs.ErrUnavailable) || errors.Is(err, calcdefs.ErrIsCommand) ||
		errors.Is(err, context.Canceled) {
		return ""
	}
	var domainErr *calcdefs.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
