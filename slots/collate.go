package slots

import (
	"math/big"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/storage-layout/errors"
	"github.com/wippyai/storage-layout/layout"
)

// element is a declaration being placed: a top-level variable or a synthesized
// struct member / array element.
type element struct {
	label    string
	typeID   string
	declared *layout.StorageElement // top-level declarations only
}

type collator struct {
	types map[string]layout.StorageType
}

// Collate expands l's declarations, recursing into structs and fixed arrays, and
// packs them into contiguous 32-byte slots starting at the first declaration's slot.
func Collate(l *layout.StorageLayout) ([]CollatedSlot, error) {
	if l == nil || len(l.Storage) == 0 {
		return []CollatedSlot{}, nil
	}

	first, err := l.Storage[0].SlotID()
	if err != nil {
		return nil, err
	}

	c := &collator{types: l.Types}
	acc := []CollatedSlot{{ID: first, Entries: []CollatedSlotEntry{}}}

	for i := range l.Storage {
		el := element{
			label:    l.Storage[i].Label,
			typeID:   l.Storage[i].Type,
			declared: &l.Storage[i],
		}
		acc, err = c.collate(acc, el)
		if err != nil {
			return nil, err
		}
	}

	Logger().Debug("collated layout",
		zap.Int("declarations", len(l.Storage)),
		zap.Int("slots", len(acc)),
		zap.String("base", first.String()))

	return acc, nil
}

// collate folds one element into acc and returns the updated sequence.
// acc is never empty; its last slot is the one being filled.
func (c *collator) collate(acc []CollatedSlot, el element) ([]CollatedSlot, error) {
	t, ok := c.types[el.typeID]
	if !ok {
		return nil, errors.UnknownType([]string{el.label}, el.typeID)
	}

	size, err := t.Size()
	if err != nil {
		return nil, err
	}

	current := acc[len(acc)-1]
	if current.SizeReserved > 0 && size.Cmp(big.NewInt(int64(layout.SlotSize-current.SizeReserved))) > 0 {
		acc = append(acc, CollatedSlot{
			ID:      new(big.Int).Add(current.ID, big.NewInt(1)),
			Entries: []CollatedSlotEntry{},
		})
	}
	start := acc[len(acc)-1]

	if t.IsStruct() || t.IsFixedArray() {
		c.checkDeclared(el, start.ID, 0)

		members, err := c.expand(el, t)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			acc, err = c.collate(acc, m)
			if err != nil {
				return nil, err
			}
		}

		// structs and fixed arrays reserve the whole of the last slot they touch
		last := acc[len(acc)-1]
		last.SizeReserved = layout.SlotSize
		acc[len(acc)-1] = last
		return acc, nil
	}

	if size.Cmp(big.NewInt(layout.SlotSize)) > 0 {
		return nil, errors.Overflow(errors.PhaseCollate, []string{el.label}, size, "slot size")
	}
	reserved := int(size.Int64())
	filled := reserved
	if t.Encoding == layout.EncodingMapping {
		filled = 0
	}

	c.checkDeclared(el, start.ID, start.SizeReserved)

	entry := CollatedSlotEntry{
		Name:   el.label,
		Offset: start.SizeReserved,
		Size:   filled,
		Type:   t,
	}
	start.Entries = append(start.Entries[:len(start.Entries):len(start.Entries)], entry)
	start.SizeReserved += reserved
	start.SizeFilled += filled
	acc[len(acc)-1] = start

	return acc, nil
}

// expand synthesizes the members of a struct or the elements of a fixed array.
func (c *collator) expand(el element, t layout.StorageType) ([]element, error) {
	if t.IsStruct() {
		members := make([]element, 0, len(t.Members))
		for _, m := range t.Members {
			members = append(members, element{
				label:  el.label + "." + m.Label,
				typeID: m.Type,
			})
		}
		return members, nil
	}

	n, err := t.ArrayLength()
	if err != nil {
		return nil, err
	}
	members := make([]element, 0, n)
	for i := 0; i < n; i++ {
		members = append(members, element{
			label:  el.label + "[" + strconv.Itoa(i) + "]",
			typeID: *t.Base,
		})
	}
	return members, nil
}

// checkDeclared logs top-level declarations whose compiler-assigned position
// disagrees with the packed one.
func (c *collator) checkDeclared(el element, id *big.Int, offset int) {
	if el.declared == nil {
		return
	}
	declared, err := el.declared.SlotID()
	if err != nil {
		return
	}
	if declared.Cmp(id) != 0 || el.declared.Offset != offset {
		Logger().Warn("declared position differs from packed position",
			zap.String("label", el.label),
			zap.String("declaredSlot", declared.String()),
			zap.Int("declaredOffset", el.declared.Offset),
			zap.String("packedSlot", id.String()),
			zap.Int("packedOffset", offset))
	}
}
