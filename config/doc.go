// Package config loads storage-layout.yaml.
//
// Example:
//
//	root: .
//	artifacts: artifacts
//	path: storage_layout
//	clear: true
//	only: ["^contracts/"]
//	except: ["Mock"]
//	where: "variables > 0"
//	spacing: 2
//	compile: npx hardhat compile
//
// Every key is optional. Command-line flags override file values.
package config
