package histutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.calc.sh/pkg/calc/calcdefs"
)

type op = calcdefs.Operation

var (
	a = op{Expression: "1", Result: 1, Seq: 1}
	b = op{Expression: "2", Result: 2, Seq: 2}
	c = op{Expression: "3", Result: 3, Seq: 3}
	d = op{Expression: "4", Result: 4, Seq: 4}
)

// Strips sequence numbers, to test the behavior with a backend that does not
// provide them.
func noSeq(ops ...op) []op {
	result := make([]op, len(ops))
	for i, o := range ops {
		o.Seq = 0
		result[i] = o
	}
	return result
}

func TestMirror_AppendAddsToEnd(t *testing.T) {
	m := NewMirror()
	m.Append(a)
	m.Append(b)
	wantSnapshot(t, m, a, b)
}

func TestMirror_AppendDropsDuplicateSeq(t *testing.T) {
	m := NewMirror()
	if !m.Append(a) {
		t.Errorf("first Append -> false, want true")
	}
	if m.Append(a) {
		t.Errorf("duplicate Append -> true, want false")
	}
	wantSnapshot(t, m, a)
}

func TestMirror_AppendKeepsOperationsWithoutSeq(t *testing.T) {
	m := NewMirror()
	ops := noSeq(a, a)
	m.Append(ops[0])
	m.Append(ops[1])
	wantSnapshot(t, m, ops...)
}

func TestMirror_SnapshotIsACopy(t *testing.T) {
	m := NewMirror()
	m.Append(a)
	snapshot := m.Snapshot()
	snapshot[0] = b
	wantSnapshot(t, m, a)
}

func TestMirror_Seed(t *testing.T) {
	m := NewMirror()
	if !m.Seed([]op{a, b}) {
		t.Errorf("Seed -> false, want true")
	}
	if !m.Seeded() {
		t.Errorf("Seeded -> false after Seed")
	}
	wantSnapshot(t, m, a, b)
}

func TestMirror_SeedIsAppliedOnlyOnce(t *testing.T) {
	m := NewMirror()
	m.Seed([]op{a})
	if m.Seed([]op{b, c}) {
		t.Errorf("second Seed -> true, want false")
	}
	wantSnapshot(t, m, a)
}

func TestMirror_EventBeforeSeedGoesAfterSeed(t *testing.T) {
	m := NewMirror()
	m.Append(c)
	m.Seed([]op{a, b})
	wantSnapshot(t, m, a, b, c)
}

func TestMirror_EventBeforeSeedGoesAfterSeed_NoSeq(t *testing.T) {
	ops := noSeq(a, b, c)
	m := NewMirror()
	m.Append(ops[2])
	m.Seed(ops[:2])
	wantSnapshot(t, m, ops...)
}

func TestMirror_EventAlsoInSeedIsNotDuplicated(t *testing.T) {
	m := NewMirror()
	m.Append(c)
	m.Seed([]op{a, b, c})
	wantSnapshot(t, m, a, b, c)
}

func TestMirror_ClearEmpties(t *testing.T) {
	m := NewMirror()
	m.Seed([]op{a, b})
	m.Clear(2)
	wantSnapshot(t, m)
	m.Append(c)
	wantSnapshot(t, m, c)
}

func TestMirror_AppendAfterClearDropsClearedSeq(t *testing.T) {
	m := NewMirror()
	m.Seed([]op{a})
	m.Clear(2)
	// For example, a commit response for b arriving after the clear event.
	if m.Append(b) {
		t.Errorf("Append of cleared operation -> true, want false")
	}
	wantSnapshot(t, m)
}

func TestMirror_ClearBeforeSeedDropsClearedFetchedOperations(t *testing.T) {
	m := NewMirror()
	m.Clear(2)
	m.Append(c)
	// The fetch was served before the clear.
	m.Seed([]op{a, b})
	wantSnapshot(t, m, c)
}

func TestMirror_ClearBeforeSeedKeepsOperationsAfterClear(t *testing.T) {
	m := NewMirror()
	m.Clear(2)
	m.Append(c)
	// The fetch was served after both the clear and c.
	m.Seed([]op{c, d})
	wantSnapshot(t, m, c, d)
}

func TestMirror_ClearWithUnknownSeqBeforeSeedDropsAllFetched(t *testing.T) {
	m := NewMirror()
	m.Clear(0)
	m.Seed([]op{a, b})
	wantSnapshot(t, m)
	if !m.Seeded() {
		t.Errorf("Seeded -> false")
	}
}

func TestMirror_ClearAfterSeedDoesNotAffectLaterSeed(t *testing.T) {
	m := NewMirror()
	m.Seed([]op{a})
	m.Clear(0)
	m.Reset()
	m.Seed([]op{a, b})
	wantSnapshot(t, m, a, b)
}

func TestMirror_Reset(t *testing.T) {
	m := NewMirror()
	m.Seed([]op{a})
	m.Clear(5)
	m.Reset()
	if m.Seeded() || len(m.Snapshot()) != 0 {
		t.Errorf("after Reset: Seeded = %v, Snapshot = %v", m.Seeded(), m.Snapshot())
	}
	// The clear watermark is forgotten.
	m.Append(b)
	wantSnapshot(t, m, b)
}

func wantSnapshot(t *testing.T, m *Mirror, want ...op) {
	t.Helper()
	got := m.Snapshot()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Snapshot (-want +got):\n%s", diff)
	}
}
