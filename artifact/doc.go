// Package artifact resolves contract names to storage layouts in a compiled Hardhat project.
//
// A Store indexes the artifacts directory once and answers three kinds of names:
//
//   - "Token": a bare contract name, which must be unique across sources
//   - "contracts/Token.sol:Token": a fully qualified name
//   - "layouts/Token.json": a standalone layout file written by export
//
// Layouts are read from the compiler output referenced by each artifact, either
// build-info/<id>.output.json (Hardhat 3) or the file named by <Name>.dbg.json
// (Hardhat 2), and validated before they are returned.
package artifact
