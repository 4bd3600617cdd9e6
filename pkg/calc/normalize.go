package calc

import (
	"math"
	"strconv"
	"strings"
)

// AnsVar is the name of the variable holding the result of the last commit.
const AnsVar = "ans"

// Normalize converts raw input into the canonical form sent to the evaluator
// and the store. Input is case-insensitive and thus lower-cased; a lone binary
// operator continues from the previous result, so "+" becomes "ans+".
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	switch trimmed := strings.TrimSpace(s); trimmed {
	case "+", "-", "*", "/":
		return AnsVar + trimmed
	}
	return s
}

// RenderResult renders a number the way it appears in the preview and the
// history, following JavaScript's number to string conversion. Integral values
// have no fractional part, and exponents, written without leading zeros, are
// used only for very large or very small magnitudes.
func RenderResult(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}
	if abs := math.Abs(v); abs >= 1e21 || abs < 1e-6 {
		// FormatFloat pads the exponent to two digits.
		mant, exp, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
		return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
