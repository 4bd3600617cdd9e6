package tt

import (
	"fmt"
	"strings"
	"testing"
)

// testT implements the T interface and is used to verify the Test function's
// interaction with T.
type testT []string

func (t *testT) Helper() {}

func (t *testT) Errorf(format string, args ...any) {
	*t = append(*t, fmt.Sprintf(format, args...))
}

func add(x, y int) int {
	return x + y
}

func addsub(x int, y int) (int, int) {
	return x + y, x - y
}

func errOrNil(e error) error { return e }

func TestTTPass(t *testing.T) {
	var testT testT
	Test(&testT, Fn("addsub", addsub), Table{
		Args(1, 10).Rets(11, -9),
	})
	if len(testT) > 0 {
		t.Errorf("Test errors when test should pass: %v", testT)
	}
}

func TestTTFail(t *testing.T) {
	var testT testT
	Test(&testT, Fn("add", add), Table{
		Args(1, 10).Rets(12),
	})
	if len(testT) != 1 {
		t.Fatalf("got %d errors, want 1", len(testT))
	}
	if !strings.HasPrefix(testT[0], "add(1, 10) returns (-want +got):\n") {
		t.Errorf("got error %q", testT[0])
	}
}

func TestTTNilArg(t *testing.T) {
	var testT testT
	Test(&testT, Fn("errOrNil", errOrNil), Table{
		Args(nil).Rets(nil),
	})
	if len(testT) > 0 {
		t.Errorf("Test errors when test should pass: %v", testT)
	}
}
