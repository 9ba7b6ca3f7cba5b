package render

import (
	"math/big"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/wippyai/storage-layout/layout"
	"github.com/wippyai/storage-layout/slots"
)

func TestVisualize(t *testing.T) {
	tests := []struct {
		name               string
		offset, size, fill int
		want               string
	}{
		{"full slot", 0, 32, 32, strings.Repeat("▰", 32)},
		{"low byte", 0, 1, 1, strings.Repeat(" ", 31) + "▰"},
		{"second of two", 1, 1, 2, strings.Repeat(" ", 30) + "▰▱"},
		{"first of two", 0, 1, 2, strings.Repeat(" ", 30) + "▱▰"},
		{"address then bool", 20, 1, 21, strings.Repeat(" ", 11) + "▰" + strings.Repeat("▱", 20)},
		{"mapping", 0, 0, 0, strings.Repeat(" ", 32)},
		{"absent in filled slot", 0, 0, 3, strings.Repeat(" ", 29) + "▱▱▱"},
		{"clamped", -4, 40, 99, strings.Repeat("▰", 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Visualize(tt.offset, tt.size, tt.fill)
			if got != tt.want {
				t.Errorf("Visualize(%d, %d, %d) = %q, want %q", tt.offset, tt.size, tt.fill, got, tt.want)
			}
			if n := utf8.RuneCountInString(got); n != layout.SlotSize {
				t.Errorf("width = %d", n)
			}
		})
	}
}

func TestFormatSlot(t *testing.T) {
	if got := FormatSlot(big.NewInt(7)); got != "7" {
		t.Errorf("FormatSlot(7) = %q", got)
	}
	if got := FormatSlot(nil); got != Absent {
		t.Errorf("FormatSlot(nil) = %q", got)
	}
	ns := layout.NamespaceSlot("example.main")
	if got := FormatSlot(ns); got != "0x183a6125c38840424c4a85fa12bab2ab606c4b6d0e7cc73c0c06ba5300eab500" {
		t.Errorf("FormatSlot(namespace) = %q", got)
	}
}

var (
	uint8Type   = layout.StorageType{Encoding: layout.EncodingInplace, Label: "uint8", NumberOfBytes: "1"}
	uint16Type  = layout.StorageType{Encoding: layout.EncodingInplace, Label: "uint16", NumberOfBytes: "2"}
	addressType = layout.StorageType{Encoding: layout.EncodingInplace, Label: "address", NumberOfBytes: "20"}
)

func collated() []slots.CollatedSlot {
	return []slots.CollatedSlot{{
		ID:           big.NewInt(0),
		SizeReserved: 21,
		SizeFilled:   21,
		Entries: []slots.CollatedSlotEntry{
			{Name: "owner", Offset: 0, Size: 20, Type: addressType},
			{Name: "paused", Offset: 20, Size: 1, Type: uint8Type},
		},
	}}
}

func TestCollated(t *testing.T) {
	out := NewPrinter(false).Collated(collated())

	for _, want := range []string{"Slot", "Offset", "Type", "Name", "Visualization", "owner", "paused", "address", "uint8"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, strings.Repeat(" ", 11)+"▰"+strings.Repeat("▱", 20)) {
		t.Errorf("output missing paused bar:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("uncolored output contains escapes:\n%q", out)
	}
}

func merged(t *testing.T) []slots.MergedCollatedSlot {
	t.Helper()
	a := []slots.CollatedSlot{{
		ID: big.NewInt(0), SizeReserved: 2, SizeFilled: 2,
		Entries: []slots.CollatedSlotEntry{
			{Name: "a", Offset: 0, Size: 1, Type: uint8Type},
			{Name: "b", Offset: 1, Size: 1, Type: uint8Type},
		},
	}}
	b := []slots.CollatedSlot{{
		ID: big.NewInt(0), SizeReserved: 3, SizeFilled: 3,
		Entries: []slots.CollatedSlotEntry{
			{Name: "a", Offset: 0, Size: 1, Type: uint8Type},
			{Name: "c", Offset: 1, Size: 2, Type: uint16Type},
		},
	}}
	m, err := slots.Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMerged(t *testing.T) {
	out := NewPrinter(false).Merged(merged(t))

	for _, want := range []string{"b => c", "uint8 => uint16"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "a => a") {
		t.Errorf("equal names rendered as a change:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("uncolored output contains escapes:\n%q", out)
	}
}

func TestMergedOneSided(t *testing.T) {
	m, err := slots.Merge(nil, collated())
	if err != nil {
		t.Fatal(err)
	}
	out := NewPrinter(false).Merged(m)
	for _, want := range []string{"- => owner", "- => address", "- => 20"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMergedColor(t *testing.T) {
	out := NewPrinter(true).Merged(merged(t))

	// red for the removed side of a difference
	if !strings.Contains(out, "\x1b[31m") {
		t.Errorf("missing red:\n%q", out)
	}
	// green for the added side
	if !strings.Contains(out, "\x1b[32m") {
		t.Errorf("missing green:\n%q", out)
	}
	// magenta for bytes filled on both sides
	if !strings.Contains(out, "\x1b[35m") {
		t.Errorf("missing magenta:\n%q", out)
	}
}

func TestMergedBar(t *testing.T) {
	p := NewPrinter(false)
	m := merged(t)

	// a/a: identical, filled byte shared
	if got, want := p.mergedBar(m[0], m[0].Entries[0]), strings.Repeat(" ", 29)+"▱▱▰"; got != want {
		t.Errorf("shared bar = %q, want %q", got, want)
	}
	// b/c: b fills byte 1, c fills bytes 1-2
	if got, want := p.mergedBar(m[0], m[0].Entries[1]), strings.Repeat(" ", 29)+"▰▰▱"; got != want {
		t.Errorf("differing bar = %q, want %q", got, want)
	}
}

func TestChanges(t *testing.T) {
	changes := slots.Classify(merged(t))
	out := NewPrinter(false).Changes(changes)

	for _, want := range []string{"Change", "unchanged", "moved"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	colored := NewPrinter(true).Changes(changes)
	if !strings.Contains(colored, "\x1b[31mmoved") {
		t.Errorf("breaking kind not red:\n%q", colored)
	}
}

func TestEmptyTables(t *testing.T) {
	p := NewPrinter(false)
	if out := p.Collated(nil); !strings.Contains(out, "Visualization") {
		t.Errorf("empty table lost headers:\n%s", out)
	}
	if out := p.Changes(nil); !strings.Contains(out, "Change") {
		t.Errorf("empty table lost headers:\n%s", out)
	}
}
