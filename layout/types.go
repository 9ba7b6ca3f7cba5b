package layout

import (
	"math/big"
	"regexp"
	"strconv"

	"github.com/wippyai/storage-layout/errors"
)

// SlotSize is the width of one storage word in bytes.
const SlotSize = 32

// Encoding describes how a declared type occupies storage.
type Encoding string

const (
	EncodingInplace      Encoding = "inplace"
	EncodingMapping      Encoding = "mapping"
	EncodingDynamicArray Encoding = "dynamic_array"
)

// Valid reports whether e is one of the encodings the layout model supports.
func (e Encoding) Valid() bool {
	switch e {
	case EncodingInplace, EncodingMapping, EncodingDynamicArray:
		return true
	}
	return false
}

// StorageType is one entry of the type catalog.
type StorageType struct {
	Encoding      Encoding `json:"encoding"`
	Label         string   `json:"label"`
	NumberOfBytes string   `json:"numberOfBytes"`
	// Base is present on array types and names the element type.
	Base *string `json:"base,omitempty"`
	// Members is present on struct types; member slots are relative to the struct.
	Members []StorageElement `json:"members,omitempty"`
}

// Size parses NumberOfBytes.
func (t StorageType) Size() (*big.Int, error) {
	n, ok := new(big.Int).SetString(t.NumberOfBytes, 10)
	if !ok || n.Sign() < 0 {
		return nil, errors.InvalidData(errors.PhaseCollate, []string{t.Label}, "numberOfBytes is not a decimal integer: "+strconv.Quote(t.NumberOfBytes))
	}
	return n, nil
}

// IsStruct reports whether t is an in-place struct.
func (t StorageType) IsStruct() bool {
	return t.Encoding == EncodingInplace && t.Members != nil
}

// IsFixedArray reports whether t is an in-place array of static length.
func (t StorageType) IsFixedArray() bool {
	return t.Encoding == EncodingInplace && t.Members == nil && t.Base != nil
}

var arrayLength = regexp.MustCompile(`.+\[(\d+)\]$`)

// ArrayLength returns the static length parsed from the trailing [N] of the label.
func (t StorageType) ArrayLength() (int, error) {
	m := arrayLength.FindStringSubmatch(t.Label)
	if m == nil {
		return 0, errors.InvalidData(errors.PhaseCollate, []string{t.Label}, "fixed array label has no trailing [N]")
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, errors.Overflow(errors.PhaseCollate, []string{t.Label}, m[1], "array length range")
	}
	return n, nil
}

// StorageElement is one declared variable or struct member.
type StorageElement struct {
	Contract string `json:"contract"`
	Label    string `json:"label"`
	Offset   int    `json:"offset"`
	Slot     string `json:"slot"`
	Type     string `json:"type"`
}

// SlotID parses Slot; slot indices may exceed 64 bits.
func (e StorageElement) SlotID() (*big.Int, error) {
	n, ok := new(big.Int).SetString(e.Slot, 10)
	if !ok || n.Sign() < 0 {
		return nil, errors.InvalidData(errors.PhaseCollate, []string{e.Label}, "slot is not a decimal integer: "+strconv.Quote(e.Slot))
	}
	return n, nil
}

// StorageLayout is the compiler's storageLayout output for one contract.
type StorageLayout struct {
	Storage []StorageElement       `json:"storage"`
	Types   map[string]StorageType `json:"types"`
}

// Type looks up id in the type catalog.
func (l *StorageLayout) Type(id string) (StorageType, bool) {
	t, ok := l.Types[id]
	return t, ok
}

// Empty reports whether the layout declares no storage.
func (l *StorageLayout) Empty() bool {
	return len(l.Storage) == 0
}
