package storagelayout

import (
	"context"
	"math/big"

	"github.com/wippyai/storage-layout/layout"
	"github.com/wippyai/storage-layout/slots"
)

// Loader resolves a contract name or layout file to a storage layout.
// *artifact.Store implements it.
type Loader interface {
	Load(ctx context.Context, name string) (*layout.StorageLayout, error)
}

// Target names one layout to load.
type Target struct {
	Loader Loader
	Name   string
	// Base, when set, shifts every top-level slot by this amount before collating.
	Base *big.Int
}

// Report is the result of comparing a saved layout with the current one.
type Report struct {
	Merged   []slots.MergedCollatedSlot
	Changes  []slots.Change
	Breaking []slots.Change
}

// Compatible reports whether no breaking change was found.
func (r *Report) Compatible() bool {
	return len(r.Breaking) == 0
}

// Load loads, validates and optionally rebases the target's layout.
func Load(ctx context.Context, t Target) (*layout.StorageLayout, error) {
	l, err := t.Loader.Load(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	if err := l.Validate(t.Name); err != nil {
		return nil, err
	}
	if t.Base != nil {
		return l.Rebase(t.Base)
	}
	return l, nil
}

// Inspect loads and collates one layout.
func Inspect(ctx context.Context, t Target) ([]slots.CollatedSlot, error) {
	l, err := Load(ctx, t)
	if err != nil {
		return nil, err
	}
	return slots.Collate(l)
}

// Diff collates a and b and aligns them slot by slot.
func Diff(ctx context.Context, a, b Target) ([]slots.MergedCollatedSlot, error) {
	slotsA, err := Inspect(ctx, a)
	if err != nil {
		return nil, err
	}
	slotsB, err := Inspect(ctx, b)
	if err != nil {
		return nil, err
	}
	return slots.Merge(slotsA, slotsB)
}

// Check diffs a saved layout against the current one and classifies every entry.
func Check(ctx context.Context, saved, current Target) (*Report, error) {
	merged, err := Diff(ctx, saved, current)
	if err != nil {
		return nil, err
	}
	changes := slots.Classify(merged)
	return &Report{
		Merged:   merged,
		Changes:  changes,
		Breaking: slots.Breaking(changes),
	}, nil
}
