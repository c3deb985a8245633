package subfile

import (
	"log"
	"sync/atomic"
)

var mismatches atomic.Int64

// MismatchCount returns how many ComputeDelta calls were abandoned because
// the two snapshots had different row counts.
func MismatchCount() int64 {
	return mismatches.Load()
}

// ComputeDelta returns the fields of current that differ from initial.
//
// Rows are compared by position. When the row counts differ the rows were
// structurally replaced and no per-row comparison is possible, so the result
// is empty. Only visible fields are compared; the hidden state of a changed row
// is copied from initial so off-page inputs can be rebuilt later. A field that
// is missing from current, or whose kind changed, counts as unchanged.
func ComputeDelta(initial, current PageSnapshot) EditSet {
	if len(initial) != len(current) {
		n := mismatches.Add(1)
		log.Printf("subfile: row count changed from %d to %d, edits of this window not tracked (%d occurrences)",
			len(initial), len(current), n)
		return EditSet{}
	}

	delta := EditSet{}
	for i := range initial {
		changed := FieldStates{}
		for name, before := range initial[i].State {
			after, ok := current[i].State[name]
			if !ok || after.IsCheckbox != before.IsCheckbox {
				continue
			}
			if !before.Equal(after) {
				changed[name] = after
			}
		}
		if len(changed) == 0 {
			continue
		}
		delta = append(delta, RowSnapshot{
			HiddenState: initial[i].HiddenState.clone(),
			State:       changed,
		})
	}
	return delta
}

// MergeDelta folds incoming into existing and returns the result. Neither
// argument is modified.
//
// Incoming states win for fields both sides define, existing fields that
// incoming does not touch are kept, and rows incoming introduces are
// appended. A field lives in exactly one row of the result. Applying the same
// incoming set twice gives the same result as applying it once.
func MergeDelta(existing, incoming EditSet) EditSet {
	merged := existing.Clone()
	if merged == nil {
		merged = EditSet{}
	}
	for _, in := range incoming {
		if len(in.State) == 0 {
			continue
		}
		idx := matchRow(merged, in)
		if idx < 0 {
			merged = append(merged, in.clone())
			idx = len(merged) - 1
		} else {
			row := merged[idx]
			for name, st := range in.HiddenState {
				if _, ok := row.HiddenState[name]; !ok {
					row.HiddenState[name] = st
				}
			}
			for name, st := range in.State {
				row.State[name] = st
			}
		}
		for name := range in.State {
			for j := range merged {
				if j != idx {
					delete(merged[j].State, name)
				}
			}
		}
	}
	return compact(merged)
}

// matchRow finds the existing row an incoming row belongs to: same record
// number when both carry one, otherwise a row already holding one of its
// fields.
func matchRow(rows EditSet, in RowSnapshot) int {
	if rrn, ok := in.RecordNumber(); ok {
		for i, row := range rows {
			if n, ok := row.RecordNumber(); ok && n == rrn {
				return i
			}
		}
	}
	for i, row := range rows {
		for name := range in.State {
			if _, ok := row.State[name]; ok {
				return i
			}
		}
	}
	return -1
}

func compact(rows EditSet) EditSet {
	out := rows[:0]
	for _, row := range rows {
		if len(row.State) > 0 {
			out = append(out, row)
		}
	}
	return out
}
