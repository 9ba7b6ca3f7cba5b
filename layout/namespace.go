package layout

import (
	"math/big"
	"strconv"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/wippyai/storage-layout/errors"
)

// NamespaceSlot returns the ERC-7201 base slot for a namespace id:
// keccak256(abi.encode(uint256(keccak256(id)) - 1)) & ~bytes32(uint256(0xff)).
func NamespaceSlot(id string) *big.Int {
	inner := new(uint256.Int).SetBytes(keccak256([]byte(id)))
	inner.SubUint64(inner, 1)

	word := inner.Bytes32()
	slot := new(uint256.Int).SetBytes(keccak256(word[:]))
	slot.And(slot, new(uint256.Int).Not(uint256.NewInt(0xff)))
	return slot.ToBig()
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(data)
	return h.Sum(nil)
}

// Rebase returns a copy of l with every top-level slot shifted by base.
// Struct member slots are relative to their parent and are left untouched.
// The shifted slots must still address the 256-bit slot space.
func (l *StorageLayout) Rebase(base *big.Int) (*StorageLayout, error) {
	if base.Sign() < 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "base slot must not be negative")
	}

	out := &StorageLayout{
		Storage: make([]StorageElement, len(l.Storage)),
		Types:   l.Types,
	}
	for i, el := range l.Storage {
		slot, err := el.SlotID()
		if err != nil {
			return nil, err
		}
		slot.Add(slot, base)
		if _, overflow := uint256.FromBig(slot); overflow {
			return nil, errors.Overflow(errors.PhaseLoad, []string{"storage", strconv.Itoa(i), "slot"}, slot, "256-bit slot space")
		}
		el.Slot = slot.String()
		out.Storage[i] = el
	}
	return out, nil
}
