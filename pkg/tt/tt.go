// Package tt supports table-driven tests with little boilerplate.
//
// A test table is a list of cases built with Args(...).Rets(...); Test calls
// the function under test with each set of arguments and compares the return
// values with go-cmp.
package tt

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Table represents a test table.
type Table []*Case

// Case represents a test case. It is created by the Args function, and offers
// setters that augment and return itself; those calls can be chained like
// Args(...).Rets(...).
type Case struct {
	args []any
	rets []any
}

// Args returns a new Case with the given arguments.
func Args(args ...any) *Case {
	return &Case{args: args}
}

// Rets modifies the test case so that it requires the return values to match
// the given values. It returns the receiver.
func (c *Case) Rets(rets ...any) *Case {
	c.rets = rets
	return c
}

// FnToTest describes a function to test.
type FnToTest struct {
	name string
	body any
	opts []cmp.Option
}

// Fn makes a new FnToTest with the given function name and body.
func Fn(name string, body any) *FnToTest {
	return &FnToTest{name: name, body: body}
}

// CmpOpts adds options passed to cmp.Diff when comparing return values, and
// returns fn itself.
func (fn *FnToTest) CmpOpts(opts ...cmp.Option) *FnToTest {
	fn.opts = append(fn.opts, opts...)
	return fn
}

// T is the interface for accessing testing.T.
type T interface {
	Helper()
	Errorf(format string, args ...any)
}

// Test tests a function against test cases.
func Test(t T, fn *FnToTest, tests Table) {
	t.Helper()
	for _, test := range tests {
		rets := call(fn.body, test.args)
		if diff := cmp.Diff(test.rets, rets, fn.opts...); diff != "" {
			t.Errorf("%s(%s) returns (-want +got):\n%s", fn.name, sprintArgs(test.args), diff)
		}
	}
}

func sprintArgs(args []any) string {
	strs := make([]string, len(args))
	for i, arg := range args {
		strs[i] = fmt.Sprintf("%#v", arg)
	}
	return strings.Join(strs, ", ")
}

func call(fn any, args []any) []any {
	fnType := reflect.TypeOf(fn)
	argsReflect := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			// reflect.ValueOf(nil) returns a zero Value; use the zero value of
			// the parameter type instead.
			argsReflect[i] = reflect.Zero(fnType.In(i))
		} else {
			argsReflect[i] = reflect.ValueOf(arg)
		}
	}
	retsReflect := reflect.ValueOf(fn).Call(argsReflect)
	rets := make([]any, len(retsReflect))
	for i, retReflect := range retsReflect {
		rets[i] = retReflect.Interface()
	}
	return rets
}
