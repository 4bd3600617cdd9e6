// Package histutil provides the in-memory mirror of the operation history.
package histutil

import "src.calc.sh/pkg/calc/calcdefs"

// Mirror is an in-memory copy of the remote operation history. It is seeded
// once with a fetched snapshot and kept current by appending operations and
// clearing, in the order they are observed.
//
// A Mirror is not safe for concurrent use.
type Mirror struct {
	ops  []calcdefs.Operation
	seqs map[int]struct{}

	seeded bool
	// Whether a clear has been observed before the seed.
	clearedBeforeSeed bool
	// The highest sequence number known to be removed by a clear.
	floor int
}

// NewMirror returns an empty, unseeded Mirror.
func NewMirror() *Mirror {
	return &Mirror{seqs: make(map[int]struct{})}
}

// Snapshot returns a copy of the operations in the mirror.
func (m *Mirror) Snapshot() []calcdefs.Operation {
	return append([]calcdefs.Operation(nil), m.ops...)
}

// Seeded returns whether Seed has been applied since the last Reset.
func (m *Mirror) Seeded() bool { return m.seeded }

// Reset empties the mirror and forgets about any previous seed or clear.
func (m *Mirror) Reset() {
	*m = Mirror{seqs: make(map[int]struct{})}
}

// Append adds an operation to the end. It returns false if the operation was
// dropped, which happens when its sequence number is already in the mirror or
// has been removed by a clear. Operations without a sequence number are
// always added.
func (m *Mirror) Append(op calcdefs.Operation) bool {
	if op.Seq != 0 {
		if _, dup := m.seqs[op.Seq]; dup || op.Seq <= m.floor {
			return false
		}
		m.seqs[op.Seq] = struct{}{}
	}
	m.ops = append(m.ops, op)
	return true
}

// Clear empties the mirror. seq is the highest sequence number removed by the
// clear, or 0 if unknown.
func (m *Mirror) Clear(seq int) {
	m.ops = nil
	m.seqs = make(map[int]struct{})
	if !m.seeded {
		m.clearedBeforeSeed = true
	}
	if seq > m.floor {
		m.floor = seq
	}
}

// Seed merges a fetched snapshot of the history. Only the first call after
// NewMirror or Reset has an effect; it returns whether the snapshot was
// applied.
//
// The fetched operations go first, followed by the operations already
// appended that the snapshot does not contain. Fetched operations that a clear
// observed before the seed may have removed are dropped.
func (m *Mirror) Seed(fetched []calcdefs.Operation) bool {
	if m.seeded {
		return false
	}
	m.seeded = true

	merged := make([]calcdefs.Operation, 0, len(fetched)+len(m.ops))
	seqs := make(map[int]struct{}, len(fetched)+len(m.ops))
	for _, op := range fetched {
		if m.clearedBeforeSeed && (op.Seq == 0 || m.floor == 0 || op.Seq <= m.floor) {
			continue
		}
		if op.Seq != 0 {
			if _, dup := seqs[op.Seq]; dup {
				continue
			}
			seqs[op.Seq] = struct{}{}
		}
		merged = append(merged, op)
	}
	for _, op := range m.ops {
		if op.Seq != 0 {
			if _, dup := seqs[op.Seq]; dup {
				continue
			}
			seqs[op.Seq] = struct{}{}
		}
		merged = append(merged, op)
	}
	m.ops = merged
	m.seqs = seqs
	return true
}
