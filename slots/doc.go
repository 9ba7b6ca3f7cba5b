// Package slots packs storage declarations into 32-byte slots and compares two packed layouts.
//
// Collate walks a layout's declarations in order, expanding structs into their members
// and fixed arrays into their elements, and places every value at the next free byte of
// the current slot (offset 0 is the low-order byte). A value that does not fit opens the
// next slot. Mappings and dynamic arrays reserve a full slot; mappings hold no bytes of
// their own. A struct or fixed array always reserves the rest of the last slot it touched.
//
// Merge takes the output of two Collate calls and pairs them slot by slot and entry by
// entry, so that inserted, removed, retyped or shifted variables show up as differences
// between the A and B fields of MergedCollatedSlotEntry. Classify turns those pairs into
// upgrade-safety verdicts.
//
// # Thread Safety
//
// All functions are pure. They may be called concurrently on independent inputs.
package slots
