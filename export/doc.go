// Package export writes the storage layout of every selected contract to a directory
// inside the project, one JSON file per contract, for later use with the check command.
//
// Contracts are selected by regular expressions over their qualified names and by an
// optional boolean expression evaluated with these parameters:
//
//	name       "contracts/Token.sol:Token"
//	source     "contracts/Token.sol"
//	contract   "Token"
//	variables  number of top-level storage variables
//	types      number of entries in the type catalog
//
// Contracts without storage are skipped.
package export
