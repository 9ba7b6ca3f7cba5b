// Package render draws collated and merged storage layouts as terminal tables.
//
// Each row is one entry with a 32-character bar showing where its bytes sit in the slot,
// low-order byte on the right:
//
//	▰  bytes of this entry
//	▱  other bytes in use in the same slot
//	   unused bytes
//
// Merged rows overlay the A and B bars. A byte filled on both sides is magenta, one
// filled on a single side is red. Colors are emitted only when the Printer was created
// with color enabled.
package render
