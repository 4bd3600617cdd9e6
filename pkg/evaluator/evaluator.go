// Package evaluator implements the computation service of the daemon on top of
// the expr language.
//
// Expressions are in the expr syntax, with the numeric constants pi and e, a
// set of math functions and user variables. A line of the form "name = expr"
// evaluates expr and asks the caller to store the result as name.
package evaluator

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"src.calc.sh/pkg/calc/calcdefs"
)

// Constants available in expressions. They cannot be assigned to.
var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

var assignPattern = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*)\s*=([^=].*|)$`)

// Result is the result of evaluating an expression.
type Result struct {
	Value float64
	// Name of the variable to assign, if the expression is an assignment.
	Assign string
}

// Evaluate evaluates src with the given variables.
//
// It returns calcdefs.ErrIsCommand if src is a shell command, and a
// *calcdefs.DomainError for malformed expressions, unknown names and results
// that are not numbers.
func Evaluate(src string, vars map[string]float64) (Result, error) {
	src = strings.TrimSpace(src)
	if _, ok := calcdefs.IsCommand(src); ok {
		return Result{}, calcdefs.ErrIsCommand
	}
	var assign string
	if m := assignPattern.FindStringSubmatch(src); m != nil {
		assign, src = m[1], strings.TrimSpace(m[2])
		if _, ok := constants[assign]; ok {
			return Result{}, domainErrorf("cannot assign to constant %s", assign)
		}
		if src == "" {
			return Result{}, domainErrorf("missing expression after %s =", assign)
		}
	}
	v, err := eval(src, vars)
	if err != nil {
		return Result{}, err
	}
	return Result{v, assign}, nil
}

func eval(src string, vars map[string]float64) (float64, error) {
	env := make(map[string]any, len(vars)+len(constants))
	for name, v := range vars {
		env[name] = v
	}
	for name, v := range constants {
		env[name] = v
	}
	program, err := expr.Compile(src, append([]expr.Option{expr.Env(env)}, functions...)...)
	if err != nil {
		return 0, domainError(err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return 0, domainError(err)
	}
	return toFloat(out)
}

// Only keeps the first line of errors from expr, which carry a source snippet
// on the following lines.
func domainError(err error) error {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return &calcdefs.DomainError{Message: msg}
}

func domainErrorf(format string, args ...any) error {
	return &calcdefs.DomainError{Message: fmt.Sprintf(format, args...)}
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	}
	return 0, domainErrorf("result is not a number: %v", v)
}
