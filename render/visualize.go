package render

import (
	"github.com/wippyai/storage-layout/layout"
)

// Bar characters.
const (
	Filled      = '▰'
	Placeholder = '▱'
	Empty       = ' '
)

// Visualize draws one entry inside its 32-byte slot. The low-order byte is on the right:
// bytes below offset and other filled bytes of the slot are placeholders, the entry's own
// bytes are filled, and bytes past fill are empty. Out-of-range inputs are clamped.
func Visualize(offset, size, fill int) string {
	return string(bar(offset, size, fill))
}

func bar(offset, size, fill int) []rune {
	offset = clamp(offset)
	fill = clamp(fill)
	end := clamp(offset + max(size, 0))

	out := make([]rune, layout.SlotSize)
	for b := 0; b < layout.SlotSize; b++ {
		var ch rune
		switch {
		case b >= offset && b < end:
			ch = Filled
		case b < offset || b < fill:
			ch = Placeholder
		default:
			ch = Empty
		}
		out[layout.SlotSize-1-b] = ch
	}
	return out
}

func clamp(n int) int {
	return min(max(n, 0), layout.SlotSize)
}
