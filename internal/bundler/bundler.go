// Package bundler turns pending operations into the fewest signed bundles.
//
// Simple operations are queued in arrival order and flushed into one aggregate per
// chunk of at most MaxInner operations. The first initiator of a chunk signs it and
// every other distinct initiator cosigns once. Multisig aggregate operations are
// bundled on their own, after flushing whatever was queued before them.
package bundler

import (
	"errors"
	"fmt"

	"Apostille/internal/initiator"
	"Apostille/internal/keys"
	"Apostille/internal/ledger"
	"Apostille/internal/logger"
)

var (
	// ErrAggregateCompleteNeedsMultisigAccount is returned when a complete aggregate has no multisig initiator.
	ErrAggregateCompleteNeedsMultisigAccount = errors.New("aggregate complete requires a multisig account")

	// ErrAggregateBondedNeedsMultisigAccount is returned when a bonded aggregate has no multisig initiator.
	ErrAggregateBondedNeedsMultisigAccount = errors.New("aggregate bonded requires a multisig account")

	// ErrUnknownKind is returned for pending operations with an unrecognized kind.
	ErrUnknownKind = errors.New("unknown pending operation kind")

	// ErrIncompletePending is returned when a pending operation lacks an initiator or payload.
	ErrIncompletePending = errors.New("pending operation needs an initiator and an operation")
)

// Options configures a Bundler.
type Options struct {
	// MaxInner caps inner operations per aggregate. Zero or values above
	// ledger.MaxInnerOperations mean ledger.MaxInnerOperations.
	MaxInner int
}

// Bundler groups and signs pending operations. It holds no per-call state.
type Bundler struct {
	maxInner int // maxInner is the per-aggregate ceiling
}

// queued is a simple pending operation with its original index.
type queued struct {
	index int
	Pending
}

// New creates a Bundler.
func New(opts Options) *Bundler {
	maxInner := opts.MaxInner
	if maxInner <= 0 || maxInner > ledger.MaxInnerOperations {
		maxInner = ledger.MaxInnerOperations
	}

	return &Bundler{maxInner: maxInner}
}

// Process bundles pending with the default options.
func Process(pending []Pending) *Result {
	return New(Options{}).Process(pending)
}

// Process consumes pending and returns the bundles and per-operation failures.
// A failure never rolls back bundles produced before it.
func (b *Bundler) Process(pending []Pending) *Result {
	r := &Result{}

	var queue []queued

	for i, p := range pending {
		if err := checkPending(p); err != nil {
			r.fail(err, i)
			continue
		}

		switch p.Kind {
		case Simple:
			if ledger.IsAggregate(p.Operation) {
				// Aggregates cannot be wrapped again; sign on their own in order.
				queue = b.flush(r, queue)
				b.single(r, queued{index: i, Pending: p})
				continue
			}

			if len(queue) > 0 && queue[0].Operation.Network() != p.Operation.Network() {
				queue = b.flush(r, queue)
			}

			queue = append(queue, queued{index: i, Pending: p})

		case AggregateComplete, AggregateBonded:
			queue = b.flush(r, queue)
			b.multisigAggregate(r, i, p)

		default:
			r.fail(fmt.Errorf("%w: %d", ErrUnknownKind, p.Kind), i)
		}
	}

	b.flush(r, queue)

	return r
}

// checkPending validates a pending operation before any signing work.
func checkPending(p Pending) error {
	if p.Initiator == nil || p.Operation == nil {
		return ErrIncompletePending
	}

	return initiator.CheckNetwork(p.Initiator, p.Operation)
}

// flush bundles the queue and returns it emptied.
func (b *Bundler) flush(r *Result, queue []queued) []queued {
	switch len(queue) {
	case 0:
		return queue
	case 1:
		b.single(r, queue[0])
		return queue[:0]
	}

	offset := 0
	for _, size := range ChunkSizes(len(queue), b.maxInner) {
		b.aggregateChunk(r, queue[offset:offset+size])
		offset += size
	}

	return queue[:0]
}

// single signs one operation with its own initiator.
// A bonded result gets its lock attached.
func (b *Bundler) single(r *Result, q queued) {
	signed, err := q.Initiator.Sign(q.Operation)
	if err != nil {
		r.fail(err, q.index)
		return
	}

	bundle := Bundle{Kind: Single, Operation: signed, Sources: []int{q.index}}

	switch signed.Type {
	case ledger.TypeAggregateComplete:
		bundle.Kind = Aggregate

	case ledger.TypeAggregateBonded:
		lock, err := signLock(q.Initiator, signed)
		if err != nil {
			r.fail(err, q.index)
			return
		}

		bundle.Kind = LockedBonded
		bundle.Lock = lock
	}

	b.emit(r, bundle)
}

// aggregateChunk wraps a chunk of simple operations in one complete aggregate.
func (b *Bundler) aggregateChunk(r *Result, chunk []queued) {
	indices := make([]int, len(chunk))
	for i, q := range chunk {
		indices[i] = q.index
	}

	primarySigner, cosigners, err := collectSigners(chunk)
	if err != nil {
		r.fail(err, indices...)
		return
	}

	agg := &ledger.Aggregate{
		NetworkType: chunk[0].Operation.Network(),
		Inner:       make([]ledger.Inner, len(chunk)),
	}

	for i, q := range chunk {
		agg.Inner[i] = ledger.Inner{Signer: q.Initiator.PublicKey(), Operation: q.Operation}
	}

	signed, err := ledger.SignWithCosigners(agg, primarySigner, cosigners)
	if err != nil {
		r.fail(fmt.Errorf("sign aggregate:\n%w", err), indices...)
		return
	}

	b.emit(r, Bundle{Kind: Aggregate, Operation: signed, Sources: indices})
}

// collectSigners picks the primary signer of a chunk and its cosigners.
// The first initiator's first keypair is primary. Its other keypairs and those of
// every other distinct initiator cosign, each public key at most once.
func collectSigners(chunk []queued) (keys.Signer, []keys.Signer, error) {
	var distinct []initiator.Initiator

	for _, q := range chunk {
		seen := false
		for _, d := range distinct {
			if initiator.Same(d, q.Initiator) {
				seen = true
				break
			}
		}

		if seen {
			continue
		}

		if !q.Initiator.CanSign() {
			return nil, nil, fmt.Errorf("%w: %x", initiator.ErrUnableToSign, q.Initiator.PublicKey())
		}

		distinct = append(distinct, q.Initiator)
	}

	primaryKeys := initiator.Keypairs(distinct[0])
	primary := primaryKeys[0]

	used := map[string]bool{string(primary.PublicKey()): true}

	var cosigners []keys.Signer
	add := func(ks []keys.Signer) {
		for _, k := range ks {
			pk := string(k.PublicKey())
			if !used[pk] {
				used[pk] = true
				cosigners = append(cosigners, k)
			}
		}
	}

	add(primaryKeys[1:])
	for _, d := range distinct[1:] {
		add(initiator.Keypairs(d))
	}

	return primary, cosigners, nil
}

// multisigAggregate bundles one AggregateComplete or AggregateBonded operation.
func (b *Bundler) multisigAggregate(r *Result, index int, p Pending) {
	bonded := p.Kind == AggregateBonded

	msig := initiator.MultisigPublicKey(p.Initiator)
	if len(msig) == 0 {
		if bonded {
			r.fail(ErrAggregateBondedNeedsMultisigAccount, index)
		} else {
			r.fail(ErrAggregateCompleteNeedsMultisigAccount, index)
		}
		return
	}

	agg, err := ledger.Wrap(p.Operation, msig, bonded)
	if err != nil {
		r.fail(err, index)
		return
	}

	signed, err := p.Initiator.Sign(agg)
	if err != nil {
		r.fail(err, index)
		return
	}

	if !bonded {
		b.emit(r, Bundle{Kind: Aggregate, Operation: signed, Sources: []int{index}})
		return
	}

	lock, err := signLock(p.Initiator, signed)
	if err != nil {
		r.fail(err, index)
		return
	}

	b.emit(r, Bundle{Kind: LockedBonded, Operation: signed, Lock: lock, Sources: []int{index}})
}

// signLock builds and signs the lock-funds operation for a bonded aggregate.
func signLock(in initiator.Initiator, bonded *ledger.SignedOperation) (*ledger.SignedOperation, error) {
	lock := &ledger.LockFunds{
		NetworkType: bonded.Network,
		Amount:      ledger.LockAmount,
		Duration:    ledger.LockDuration,
		Hash:        bonded.Hash,
	}

	signed, err := in.Sign(lock)
	if err != nil {
		return nil, fmt.Errorf("sign lock funds:\n%w", err)
	}

	return signed, nil
}

// emit appends a bundle to the result.
func (b *Bundler) emit(r *Result, bundle Bundle) {
	logger.Debug("bundle produced",
		"kind", bundle.Kind.String(),
		"hash", bundle.Operation.HashHex(),
		"inner", bundle.Operation.InnerCount,
		"cosigners", len(bundle.Operation.Cosignatures),
		"sources", len(bundle.Sources),
	)

	r.Bundles = append(r.Bundles, bundle)
}

// ChunkSizes splits n operations into the fewest chunks of at most limit.
// Sizes differ by at most one, larger chunks first.
func ChunkSizes(n, limit int) []int {
	if n <= 0 || limit <= 0 {
		return nil
	}

	count := (n + limit - 1) / limit
	base, rem := n/count, n%count

	sizes := make([]int, count)
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}

	return sizes
}
