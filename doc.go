// Package storagelayout collates and diffs the storage layouts of Solidity contracts.
//
// The compiler reports storage as a flat list of declarations pointing into a type
// catalog. This module packs that list into 32-byte slots the way the EVM does and
// compares two packed layouts, so that a variable inserted, removed, retyped or shifted
// between two versions of an upgradeable contract is visible before deployment.
//
// # Architecture Overview
//
//	storagelayout/      Loader, Target, Inspect/Diff/Check and Project
//	├── layout/         Compiler layout types, validation, ERC-7201 base slots
//	├── slots/          Collate, Merge and Classify
//	├── artifact/       Hardhat artifact and build-info resolution
//	├── revision/       Git worktrees for past revisions
//	├── render/         Terminal tables and slot visualization
//	├── export/         Writing layouts to disk
//	├── config/         storage-layout.yaml
//	├── errors/         Structured error types
//	└── cmd/storage-layout/  Command-line interface
//
// # Quick Start
//
//	store := artifact.Open(".", "artifacts")
//
//	merged, err := storagelayout.Diff(ctx,
//	    storagelayout.Target{Loader: store, Name: "storage_layout/contracts/Token.sol:Token.json"},
//	    storagelayout.Target{Loader: store, Name: "contracts/Token.sol:Token"},
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(render.NewPrinter(true).Merged(merged))
//
// # Slot Packing
//
// Declarations are placed in order at the next free byte of the current slot, low-order
// byte first. A value that does not fit starts the next slot. Mappings and dynamic arrays
// take a whole slot. Structs and fixed arrays are expanded into their members and always
// leave the rest of their last slot unused.
//
// # Thread Safety
//
// Inspect, Diff and Check are safe for concurrent use when the Loader is. Project is safe
// for concurrent use; Close must not race with other calls.
package storagelayout
