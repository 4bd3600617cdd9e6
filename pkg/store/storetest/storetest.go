// Package storetest keeps test suites against storedefs.Store.
package storetest

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.calc.sh/pkg/calc/calcdefs"
	"src.calc.sh/pkg/store/storedefs"
)

// TestOperations tests the operation history functionality of a Store. The
// store must be empty.
func TestOperations(t *testing.T, store storedefs.Store) {
	t.Helper()

	// Sequence numbers start from 1.
	const startSeq = 1
	ops, err := store.Operations()
	if len(ops) != 0 || err != nil {
		t.Errorf("store.Operations() -> %v, %v, want empty, nil", ops, err)
	}

	// AddOperation
	inputs := []struct {
		expr   string
		result float64
	}{
		{"1+1", 2},
		{"10/4", 2.5},
		{"1/0", math.Inf(1)},
		{"-1/0", math.Inf(-1)},
		{"x = 3", 3},
	}
	var wantOps []calcdefs.Operation
	for i, input := range inputs {
		wantSeq := startSeq + i
		op, err := store.AddOperation(input.expr, input.result)
		want := calcdefs.Operation{Expression: input.expr, Result: input.result, Seq: wantSeq}
		if op != want || err != nil {
			t.Errorf("store.AddOperation(%q, %v) -> %v, %v, want %v, nil",
				input.expr, input.result, op, err, want)
		}
		wantOps = append(wantOps, want)
	}

	// Operations
	ops, err = store.Operations()
	if diff := cmp.Diff(wantOps, ops); diff != "" || err != nil {
		t.Errorf("store.Operations() -> error %v, diff (-want +got):\n%s", err, diff)
	}

	// NaN survives a round trip.
	op, err := store.AddOperation("0/0", math.NaN())
	if err != nil || !math.IsNaN(op.Result) {
		t.Errorf("store.AddOperation(%q, NaN) -> %v, %v", "0/0", op, err)
	}
	ops, err = store.Operations()
	if err != nil || len(ops) == 0 || !math.IsNaN(ops[len(ops)-1].Result) {
		t.Errorf("store.Operations() -> %v, %v, want NaN last", ops, err)
	}

	// ClearOperations
	lastSeq, err := store.ClearOperations()
	if lastSeq != op.Seq || err != nil {
		t.Errorf("store.ClearOperations() -> %v, %v, want %v, nil", lastSeq, err, op.Seq)
	}
	ops, err = store.Operations()
	if len(ops) != 0 || err != nil {
		t.Errorf("store.Operations() after clear -> %v, %v, want empty, nil", ops, err)
	}

	// Sequence numbers are not reused after a clear.
	op, err = store.AddOperation("2*2", 4)
	wantOp := calcdefs.Operation{Expression: "2*2", Result: 4, Seq: lastSeq + 1}
	if op != wantOp || err != nil {
		t.Errorf("store.AddOperation after clear -> %v, %v, want %v, nil", op, err, wantOp)
	}
	ops, err = store.Operations()
	if diff := cmp.Diff([]calcdefs.Operation{wantOp}, ops); diff != "" || err != nil {
		t.Errorf("store.Operations() -> error %v, diff (-want +got):\n%s", err, diff)
	}
}

// TestVars tests the variable functionality of a Store. The store must have
// no variables.
func TestVars(t *testing.T, store storedefs.Store) {
	t.Helper()

	if vars, err := store.Vars(); len(vars) != 0 || err != nil {
		t.Errorf("store.Vars() -> %v, %v, want empty, nil", vars, err)
	}

	for name, value := range map[string]float64{"x": 3, "ans": 2.5, "big": 1e300} {
		if err := store.SetVar(name, value); err != nil {
			t.Errorf("store.SetVar(%q, %v) -> %v", name, value, err)
		}
	}
	if err := store.SetVar("x", 4); err != nil {
		t.Errorf("store.SetVar(%q, 4) -> %v", "x", err)
	}
	vars, err := store.Vars()
	wantVars := map[string]float64{"x": 4, "ans": 2.5, "big": 1e300}
	if diff := cmp.Diff(wantVars, vars); diff != "" || err != nil {
		t.Errorf("store.Vars() -> error %v, diff (-want +got):\n%s", err, diff)
	}

	if err := store.ClearVars(); err != nil {
		t.Errorf("store.ClearVars() -> %v", err)
	}
	vars, err = store.Vars()
	if len(vars) != 0 || err != nil {
		t.Errorf("store.Vars() after clear -> %v, %v, want empty, nil", vars, err)
	}
	// Variables can be set again after a clear.
	if err := store.SetVar("ans", 1); err != nil {
		t.Errorf("store.SetVar after clear -> %v", err)
	}
	vars, err = store.Vars()
	if diff := cmp.Diff(map[string]float64{"ans": 1}, vars); diff != "" || err != nil {
		t.Errorf("store.Vars() -> error %v, diff (-want +got):\n%s", err, diff)
	}
}
