package slots

import (
	"math/big"

	"github.com/wippyai/storage-layout/layout"
)

// CollatedSlotEntry is one value placed inside a slot.
// Offset 0 is the low-order byte of the word.
type CollatedSlotEntry struct {
	Name   string             `json:"name"`
	Offset int                `json:"offset"`
	Size   int                `json:"size"` // 0 for mappings
	Type   layout.StorageType `json:"type"`
}

// End returns the first byte past the entry.
func (e CollatedSlotEntry) End() int {
	return e.Offset + e.Size
}

// CollatedSlot is one 32-byte storage word with the entries packed into it.
// SizeReserved counts bytes claimed by the packing rules, SizeFilled bytes holding data.
type CollatedSlot struct {
	ID           *big.Int            `json:"id"`
	SizeReserved int                 `json:"sizeReserved"`
	SizeFilled   int                 `json:"sizeFilled"`
	Entries      []CollatedSlotEntry `json:"entries"`
}

// Side selects one of the two layouts being merged.
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// MergedCollatedSlotEntry pairs the entries of two layouts that occupy the same scan
// position. A nil field means that side has no counterpart here.
type MergedCollatedSlotEntry struct {
	NameA   *string             `json:"nameA,omitempty"`
	NameB   *string             `json:"nameB,omitempty"`
	SizeA   *int                `json:"sizeA,omitempty"`
	SizeB   *int                `json:"sizeB,omitempty"`
	OffsetA *int                `json:"offsetA,omitempty"`
	OffsetB *int                `json:"offsetB,omitempty"`
	TypeA   *layout.StorageType `json:"typeA,omitempty"`
	TypeB   *layout.StorageType `json:"typeB,omitempty"`
}

// Present reports whether side has a counterpart.
func (e MergedCollatedSlotEntry) Present(side Side) bool {
	if side == SideA {
		return e.NameA != nil
	}
	return e.NameB != nil
}

// Entry returns the side's entry, or false when absent.
func (e MergedCollatedSlotEntry) Entry(side Side) (CollatedSlotEntry, bool) {
	if !e.Present(side) {
		return CollatedSlotEntry{}, false
	}
	if side == SideA {
		return CollatedSlotEntry{Name: *e.NameA, Offset: *e.OffsetA, Size: *e.SizeA, Type: *e.TypeA}, true
	}
	return CollatedSlotEntry{Name: *e.NameB, Offset: *e.OffsetB, Size: *e.SizeB, Type: *e.TypeB}, true
}

// SizeOf returns the side's size, 0 when absent.
func (e MergedCollatedSlotEntry) SizeOf(side Side) int {
	entry, _ := e.Entry(side)
	return entry.Size
}

// OffsetOf returns the side's offset, 0 when absent.
func (e MergedCollatedSlotEntry) OffsetOf(side Side) int {
	entry, _ := e.Entry(side)
	return entry.Offset
}

// Swap returns the entry with sides A and B exchanged.
func (e MergedCollatedSlotEntry) Swap() MergedCollatedSlotEntry {
	return MergedCollatedSlotEntry{
		NameA: e.NameB, NameB: e.NameA,
		SizeA: e.SizeB, SizeB: e.SizeA,
		OffsetA: e.OffsetB, OffsetB: e.OffsetA,
		TypeA: e.TypeB, TypeB: e.TypeA,
	}
}

func (e *MergedCollatedSlotEntry) set(side Side, entry CollatedSlotEntry) {
	name, offset, size, typ := entry.Name, entry.Offset, entry.Size, entry.Type
	if side == SideA {
		e.NameA, e.OffsetA, e.SizeA, e.TypeA = &name, &offset, &size, &typ
	} else {
		e.NameB, e.OffsetB, e.SizeB, e.TypeB = &name, &offset, &size, &typ
	}
}

// MergedCollatedSlot is one aligned slot position of two layouts. Sizes are 0 on a
// side that has no slot at this position.
type MergedCollatedSlot struct {
	ID            *big.Int                  `json:"id"`
	SizeReservedA int                       `json:"sizeReservedA"`
	SizeReservedB int                       `json:"sizeReservedB"`
	SizeFilledA   int                       `json:"sizeFilledA"`
	SizeFilledB   int                       `json:"sizeFilledB"`
	Entries       []MergedCollatedSlotEntry `json:"entries"`
}

// SizeFilled returns the filled byte count of side.
func (s MergedCollatedSlot) SizeFilled(side Side) int {
	if side == SideA {
		return s.SizeFilledA
	}
	return s.SizeFilledB
}

// SizeReserved returns the reserved byte count of side.
func (s MergedCollatedSlot) SizeReserved(side Side) int {
	if side == SideA {
		return s.SizeReservedA
	}
	return s.SizeReservedB
}
