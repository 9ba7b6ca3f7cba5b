// Package revision materializes a past git revision of the project so its artifacts can
// be compared with the current ones.
//
// Checkout adds a detached worktree in a temporary directory, leaving the caller's
// working tree and index untouched, and optionally runs a compile command there:
//
//	w, err := revision.Checkout(ctx, ".", "v1.2.0", revision.Options{Compile: "npx hardhat compile"})
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	store := artifact.Open(w.Dir(), "artifacts")
package revision
