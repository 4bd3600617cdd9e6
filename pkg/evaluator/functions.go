package evaluator

import (
	"math"

	"github.com/expr-lang/expr"
)

// Math functions added on top of the builtins of expr, which already provide
// abs, ceil, floor, round, max and min.
var functions = []expr.Option{
	unary("sqrt", math.Sqrt),
	unary("cbrt", math.Cbrt),
	unary("exp", math.Exp),
	unary("ln", math.Log),
	unary("log10", math.Log10),
	unary("log2", math.Log2),
	unary("sin", math.Sin),
	unary("cos", math.Cos),
	unary("tan", math.Tan),
	unary("asin", math.Asin),
	unary("acos", math.Acos),
	unary("atan", math.Atan),
	unary("sinh", math.Sinh),
	unary("cosh", math.Cosh),
	unary("tanh", math.Tanh),
	unary("asinh", math.Asinh),
	unary("acosh", math.Acosh),
	unary("atanh", math.Atanh),
	unary("signum", signum),
	binary("atan2", math.Atan2),
	binary("logn", logn),
	binary("pow", math.Pow),
}

func signum(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	// 0, -0 and NaN are returned as is.
	return x
}

// Logarithm of x in base b.
func logn(b, x float64) float64 {
	return math.Log(x) / math.Log(b)
}

func unary(name string, f func(float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, domainErrorf("%s takes 1 argument, got %d", name, len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		return f(x), nil
	})
}

func binary(name string, f func(float64, float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, domainErrorf("%s takes 2 arguments, got %d", name, len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		y, err := toFloat(params[1])
		if err != nil {
			return nil, err
		}
		return f(x, y), nil
	})
}
