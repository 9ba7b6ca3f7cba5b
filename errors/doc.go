// Package errors provides structured error types for the storage-layout module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the originating source (file path or qualified contract name),
// the declaration path inside the layout, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindInvalidLayout).
//		Source("contracts/Token.sol:Token").
//		Path("storage", "3", "slot").
//		Detail("expected string").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownType([]string{"balances"}, "t_mapping(t_address,t_uint256)")
//	err := errors.Misaligned("side %s is not contiguous", "A")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
