package slots

import (
	"math/big"

	"go.uber.org/zap"

	"github.com/wippyai/storage-layout/errors"
)

// MaxSpan bounds the number of aligned slot positions Merge will enumerate.
// Two layouts whose combined id range exceeds it cannot be reconciled by padding.
var MaxSpan = 1 << 20

type span struct {
	first, last *big.Int
}

// Merge aligns two collated layouts and pairs their entries.
//
// The sides may start at different base slots and have different lengths: the side
// starting later is padded with leading empty slots and the side ending earlier with
// trailing ones, so both enumerate the same contiguous id range. Within each slot,
// entries are paired by a walk ordered by end offset; leftovers are emitted one-sided.
func Merge(a, b []CollatedSlot) ([]MergedCollatedSlot, error) {
	spanA, err := spanOf(a, SideA)
	if err != nil {
		return nil, err
	}
	spanB, err := spanOf(b, SideB)
	if err != nil {
		return nil, err
	}

	if spanA == nil && spanB == nil {
		return []MergedCollatedSlot{}, nil
	}

	lo, hi := union(spanA, spanB)
	width := new(big.Int).Sub(hi, lo)
	if !width.IsInt64() || width.Int64() >= int64(MaxSpan) {
		return nil, errors.Misaligned("slot range %s..%s exceeds %d positions", lo, hi, MaxSpan)
	}
	n := int(width.Int64()) + 1

	paddedA := pad(a, spanA, lo, n)
	paddedB := pad(b, spanB, lo, n)
	if len(paddedA) != len(paddedB) {
		return nil, errors.Misaligned("padded lengths differ: %d != %d", len(paddedA), len(paddedB))
	}

	Logger().Debug("aligned layouts",
		zap.Int("slotsA", len(a)),
		zap.Int("slotsB", len(b)),
		zap.Int("positions", n),
		zap.String("first", lo.String()))

	out := make([]MergedCollatedSlot, 0, n)
	for i := range paddedA {
		slotA, slotB := paddedA[i], paddedB[i]
		if slotA.ID.Cmp(slotB.ID) != 0 {
			return nil, errors.Misaligned("position %d pairs slot %s with slot %s", i, slotA.ID, slotB.ID)
		}
		out = append(out, mergeSlot(slotA, slotB))
	}
	return out, nil
}

// spanOf checks that slots is contiguous and returns its id range, or nil when empty.
func spanOf(slots []CollatedSlot, side Side) (*span, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	for i, s := range slots {
		if s.ID == nil {
			return nil, errors.Misaligned("side %s: slot %d has no id", side, i)
		}
		if i == 0 {
			continue
		}
		want := new(big.Int).Add(slots[i-1].ID, big.NewInt(1))
		if s.ID.Cmp(want) != 0 {
			return nil, errors.Misaligned("side %s: slot %s follows slot %s", side, s.ID, slots[i-1].ID)
		}
	}
	return &span{first: slots[0].ID, last: slots[len(slots)-1].ID}, nil
}

func union(a, b *span) (lo, hi *big.Int) {
	switch {
	case a == nil:
		return b.first, b.last
	case b == nil:
		return a.first, a.last
	}
	lo, hi = a.first, a.last
	if b.first.Cmp(lo) < 0 {
		lo = b.first
	}
	if b.last.Cmp(hi) > 0 {
		hi = b.last
	}
	return lo, hi
}

// pad places slots at their positions within the n slots starting at lo,
// filling the rest with empty slots.
func pad(slots []CollatedSlot, s *span, lo *big.Int, n int) []CollatedSlot {
	out := make([]CollatedSlot, n)
	lead := n
	if s != nil {
		lead = int(new(big.Int).Sub(s.first, lo).Int64())
	}
	for i := range out {
		if j := i - lead; j >= 0 && j < len(slots) {
			out[i] = slots[j]
			continue
		}
		out[i] = CollatedSlot{ID: new(big.Int).Add(lo, big.NewInt(int64(i)))}
	}
	return out
}

func mergeSlot(a, b CollatedSlot) MergedCollatedSlot {
	merged := MergedCollatedSlot{
		ID:            new(big.Int).Set(a.ID),
		SizeReservedA: a.SizeReserved,
		SizeReservedB: b.SizeReserved,
		SizeFilledA:   a.SizeFilled,
		SizeFilledB:   b.SizeFilled,
		Entries:       make([]MergedCollatedSlotEntry, 0, max(len(a.Entries), len(b.Entries))),
	}

	// pairedA/pairedB: the entry under the cursor has already been emitted in a pair
	i, j := 0, 0
	pairedA, pairedB := false, false
	for i < len(a.Entries) && j < len(b.Entries) {
		entryA, entryB := a.Entries[i], b.Entries[j]

		var m MergedCollatedSlotEntry
		m.set(SideA, entryA)
		m.set(SideB, entryB)
		merged.Entries = append(merged.Entries, m)
		pairedA, pairedB = true, true

		endA, endB := entryA.End(), entryB.End()
		if endA <= endB {
			i++
			pairedA = false
		}
		if endB <= endA {
			j++
			pairedB = false
		}
	}

	if pairedA {
		i++
	}
	if pairedB {
		j++
	}
	for ; i < len(a.Entries); i++ {
		var m MergedCollatedSlotEntry
		m.set(SideA, a.Entries[i])
		merged.Entries = append(merged.Entries, m)
	}
	for ; j < len(b.Entries); j++ {
		var m MergedCollatedSlotEntry
		m.set(SideB, b.Entries[j])
		merged.Entries = append(merged.Entries, m)
	}

	return merged
}
