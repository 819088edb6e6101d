package bundler

import (
	"fmt"

	"Apostille/internal/initiator"
	"Apostille/internal/ledger"
)

// Kind tells the bundler how to treat a pending operation.
type Kind uint8

const (
	// Simple operations are batched with their neighbours.
	Simple Kind = iota

	// AggregateComplete operations become their own complete multisig aggregate.
	AggregateComplete

	// AggregateBonded operations become a bonded multisig aggregate with a lock.
	AggregateBonded
)

// BundleKind discriminates bundles.
type BundleKind uint8

const (
	// Single is one operation signed on its own.
	Single BundleKind = iota + 1

	// Aggregate is a complete aggregate with its cosignatures.
	Aggregate

	// LockedBonded is a lock-funds operation paired with the bonded aggregate it funds.
	LockedBonded
)

// Pending is an operation waiting to be bundled.
type Pending struct {
	Initiator initiator.Initiator // Initiator signs the operation
	Operation ledger.Operation    // Operation is the payload
	Kind      Kind                // Kind selects the bundling path
}

// Bundle is a signed unit ready for submission. Bundles are not reused after submission.
type Bundle struct {
	Kind      BundleKind              // Kind is the bundle shape
	Operation *ledger.SignedOperation // Operation is the single, aggregate or bonded aggregate operation
	Lock      *ledger.SignedOperation // Lock funds Operation; set only for LockedBonded
	Sources   []int                   // Sources are the indices of the pending operations consumed
}

// Step is one submission in a bundle's plan.
type Step struct {
	Operation         *ledger.SignedOperation // Operation is announced in this step
	Partial           bool                    // Partial marks a bonded aggregate awaiting cosignatures
	AwaitConfirmation bool                    // AwaitConfirmation requires ledger confirmation before the next step
}

// Steps returns the ordered submissions for b.
// For LockedBonded the lock comes first and must be confirmed before the aggregate.
func (b Bundle) Steps() []Step {
	if b.Kind == LockedBonded {
		return []Step{
			{Operation: b.Lock, AwaitConfirmation: true},
			{Operation: b.Operation, Partial: true},
		}
	}

	return []Step{{Operation: b.Operation}}
}

// Failure records why one pending operation produced no bundle.
type Failure struct {
	Index int   // Index is the pending operation position
	Err   error // Err is the cause
}

// Error implements error.
func (f Failure) Error() string {
	return fmt.Sprintf("pending %d: %v", f.Index, f.Err)
}

// Unwrap returns the cause.
func (f Failure) Unwrap() error {
	return f.Err
}

// Result holds the bundles produced and the pending operations that failed.
type Result struct {
	Bundles  []Bundle  // Bundles are in production order
	Failures []Failure // Failures are in pending order within each flush
}

// Err returns the failure for pending index i, or nil.
func (r *Result) Err(i int) error {
	for _, f := range r.Failures {
		if f.Index == i {
			return f.Err
		}
	}
	return nil
}

// fail records err for every index.
func (r *Result) fail(err error, indices ...int) {
	for _, i := range indices {
		r.Failures = append(r.Failures, Failure{Index: i, Err: err})
	}
}

// String returns a short kind name.
func (k BundleKind) String() string {
	switch k {
	case Single:
		return "single"
	case Aggregate:
		return "aggregate"
	case LockedBonded:
		return "locked-bonded"
	default:
		return fmt.Sprintf("bundle(%d)", uint8(k))
	}
}
