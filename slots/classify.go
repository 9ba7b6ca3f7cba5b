package slots

import (
	"math/big"
	"strconv"
)

// ChangeKind describes how one merged entry differs between A and B.
type ChangeKind string

const (
	ChangeUnchanged ChangeKind = "unchanged"
	ChangeAdded     ChangeKind = "added"   // only in B
	ChangeRemoved   ChangeKind = "removed" // only in A
	ChangeRenamed   ChangeKind = "renamed"
	ChangeRetyped   ChangeKind = "retyped"
	ChangeMoved     ChangeKind = "moved"
)

// Breaking reports whether data written under layout A would be read differently under B.
func (k ChangeKind) Breaking() bool {
	switch k {
	case ChangeRemoved, ChangeRetyped, ChangeMoved:
		return true
	}
	return false
}

// Change is the verdict for one merged entry.
type Change struct {
	Slot  *big.Int
	Entry MergedCollatedSlotEntry
	Kind  ChangeKind
}

// positions maps an entry name to "slot:offset" for one side.
type positions map[string]string

func position(slot *big.Int, offset int) string {
	return slot.String() + ":" + strconv.Itoa(offset)
}

// Classify assigns a ChangeKind to every merged entry, in slot order.
//
// A variable whose name appears on both sides at different positions is moved, even
// when the merge paired it with a differently named entry. Otherwise a pair with equal
// placement but different names is a rename.
func Classify(merged []MergedCollatedSlot) []Change {
	posA, posB := positions{}, positions{}
	for _, slot := range merged {
		for _, e := range slot.Entries {
			if a, ok := e.Entry(SideA); ok {
				posA[a.Name] = position(slot.ID, a.Offset)
			}
			if b, ok := e.Entry(SideB); ok {
				posB[b.Name] = position(slot.ID, b.Offset)
			}
		}
	}

	var changes []Change
	for _, slot := range merged {
		for _, e := range slot.Entries {
			changes = append(changes, Change{
				Slot:  slot.ID,
				Entry: e,
				Kind:  classifyEntry(e, posA, posB),
			})
		}
	}
	return changes
}

func classifyEntry(e MergedCollatedSlotEntry, posA, posB positions) ChangeKind {
	a, okA := e.Entry(SideA)
	b, okB := e.Entry(SideB)

	movedFrom := func(name string, here, other positions) bool {
		there, ok := other[name]
		return ok && there != here[name]
	}

	switch {
	case !okA && !okB:
		return ChangeUnchanged
	case !okA:
		if movedFrom(b.Name, posB, posA) {
			return ChangeMoved
		}
		return ChangeAdded
	case !okB:
		if movedFrom(a.Name, posA, posB) {
			return ChangeMoved
		}
		return ChangeRemoved
	case movedFrom(a.Name, posA, posB), movedFrom(b.Name, posB, posA):
		return ChangeMoved
	case a.Offset != b.Offset || a.Size != b.Size:
		return ChangeMoved
	case a.Type.Label != b.Type.Label || a.Type.NumberOfBytes != b.Type.NumberOfBytes || a.Type.Encoding != b.Type.Encoding:
		return ChangeRetyped
	case a.Name != b.Name:
		return ChangeRenamed
	}
	return ChangeUnchanged
}

// Breaking returns the changes whose kind is breaking.
func Breaking(changes []Change) []Change {
	var out []Change
	for _, c := range changes {
		if c.Kind.Breaking() {
			out = append(out, c)
		}
	}
	return out
}
