// Package layout models the storageLayout section emitted by the Solidity compiler.
//
// A StorageLayout is a flat list of declared variables (StorageElement), each pointing
// into a type catalog (StorageType) by id. Nested types are not expanded here; see the
// slots package for packing declarations into 32-byte slots.
//
// Documents read from disk should go through Parse, which checks the shape of the raw
// JSON before decoding it. Layouts built in memory can be checked with Validate. Neither
// repairs a malformed layout; failures carry the source identifier that was passed in.
//
// Slot indices are decimal strings of unbounded magnitude. Layouts placed at a
// custom location (ERC-7201 namespaces, hashed base slots) can be shifted with
// Rebase and NamespaceSlot.
package layout
