package ledger

import (
	"errors"
	"fmt"

	"Apostille/internal/keys"
)

// Type discriminates ledger operations.
type Type uint8

// Operation types.
const (
	TypeTransfer             Type = 1
	TypeMultisigModification Type = 2
	TypeLockFunds            Type = 3
	TypeAggregateComplete    Type = 4
	TypeAggregateBonded      Type = 5
)

const (
	// MaxInnerOperations is the network ceiling on inner operations per aggregate.
	MaxInnerOperations = 1000

	// LockAmount is the stake locked in front of a bonded aggregate.
	LockAmount uint64 = 10_000_000

	// LockDuration is the lock lifetime in blocks.
	LockDuration uint64 = 480

	// MaxMessageSize is the largest transfer message the ledger accepts.
	MaxMessageSize = 1024
)

var (
	// ErrNetworkMismatch is returned when an operation and its signer live on different networks.
	ErrNetworkMismatch = errors.New("network mismatch")

	// ErrNestedAggregate is returned when an aggregate would contain another aggregate.
	ErrNestedAggregate = errors.New("aggregate cannot contain an aggregate")

	// ErrTooManyInner is returned when an aggregate exceeds MaxInnerOperations.
	ErrTooManyInner = errors.New("too many inner operations")

	// ErrEmptyAggregate is returned for aggregates with no inner operations.
	ErrEmptyAggregate = errors.New("aggregate has no inner operations")

	// ErrMessageTooLarge is returned for transfer messages over MaxMessageSize.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrInvalidOperation is returned for malformed operation fields.
	ErrInvalidOperation = errors.New("invalid operation")
)

// Operation is a ledger operation descriptor.
type Operation interface {
	Type() Type
	Network() keys.NetworkType
}

// Transfer moves funds and an optional message to a recipient.
type Transfer struct {
	NetworkType keys.NetworkType // NetworkType is the target network
	Recipient   keys.Address     // Recipient receives the transfer
	Amount      uint64           // Amount is the transferred quantity
	Message     []byte           // Message is the attached payload
}

// MultisigModification changes the cosigners and quorums of the signing account.
type MultisigModification struct {
	NetworkType      keys.NetworkType // NetworkType is the target network
	MinApprovalDelta int8             // MinApprovalDelta changes the approval quorum
	MinRemovalDelta  int8             // MinRemovalDelta changes the removal quorum
	Additions        [][]byte         // Additions are cosigner public keys to add
	Deletions        [][]byte         // Deletions are cosigner public keys to remove
}

// LockFunds locks a stake for a bonded aggregate identified by Hash.
type LockFunds struct {
	NetworkType keys.NetworkType // NetworkType is the target network
	Amount      uint64           // Amount is the locked stake
	Duration    uint64           // Duration is the lock lifetime in blocks
	Hash        [32]byte         // Hash is the bonded aggregate hash
}

// Aggregate bundles inner operations into one top-level operation.
// A complete aggregate carries every signature; a bonded one collects cosignatures later.
type Aggregate struct {
	NetworkType keys.NetworkType // NetworkType is the target network
	Bonded      bool             // Bonded selects the bonded form
	Inner       []Inner          // Inner are the wrapped operations in order
}

// Inner is an operation embedded in an aggregate with the key it acts for.
type Inner struct {
	Signer    []byte    // Signer is the public key the inner operation is issued by
	Operation Operation // Operation is the wrapped operation
}

func (t *Transfer) Type() Type                { return TypeTransfer }
func (t *Transfer) Network() keys.NetworkType { return t.NetworkType }

func (m *MultisigModification) Type() Type                { return TypeMultisigModification }
func (m *MultisigModification) Network() keys.NetworkType { return m.NetworkType }

func (l *LockFunds) Type() Type                { return TypeLockFunds }
func (l *LockFunds) Network() keys.NetworkType { return l.NetworkType }

func (a *Aggregate) Network() keys.NetworkType { return a.NetworkType }

// Type returns TypeAggregateBonded or TypeAggregateComplete.
func (a *Aggregate) Type() Type {
	if a.Bonded {
		return TypeAggregateBonded
	}
	return TypeAggregateComplete
}

// String returns a short operation type name.
func (t Type) String() string {
	switch t {
	case TypeTransfer:
		return "transfer"
	case TypeMultisigModification:
		return "multisig-modification"
	case TypeLockFunds:
		return "lock-funds"
	case TypeAggregateComplete:
		return "aggregate-complete"
	case TypeAggregateBonded:
		return "aggregate-bonded"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// IsAggregate reports whether op is an aggregate.
func IsAggregate(op Operation) bool {
	_, ok := op.(*Aggregate)
	return ok
}

// Wrap embeds op as the single inner operation of a new aggregate.
func Wrap(op Operation, signer []byte, bonded bool) (*Aggregate, error) {
	agg := &Aggregate{
		NetworkType: op.Network(),
		Bonded:      bonded,
		Inner:       []Inner{{Signer: signer, Operation: op}},
	}

	if err := Validate(agg); err != nil {
		return nil, err
	}

	return agg, nil
}

// Validate checks the structural rules of op.
func Validate(op Operation) error {
	if op == nil {
		return fmt.Errorf("%w: nil operation", ErrInvalidOperation)
	}

	if !op.Network().Valid() {
		return fmt.Errorf("%w: 0x%02x", keys.ErrUnknownNetwork, uint8(op.Network()))
	}

	switch v := op.(type) {
	case *Transfer:
		if len(v.Message) > MaxMessageSize {
			return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(v.Message))
		}
		if v.Recipient.IsZero() {
			return fmt.Errorf("%w: transfer without recipient", ErrInvalidOperation)
		}
		if v.Recipient.Network() != v.NetworkType {
			return fmt.Errorf("%w: recipient on %s, transfer on %s", ErrNetworkMismatch, v.Recipient.Network(), v.NetworkType)
		}

	case *MultisigModification:
		for _, pk := range append(append([][]byte{}, v.Additions...), v.Deletions...) {
			if len(pk) != keys.PublicKeySize {
				return fmt.Errorf("%w: cosigner key is %d bytes", keys.ErrInvalidPublicKey, len(pk))
			}
		}

	case *LockFunds:
		if v.Amount == 0 || v.Duration == 0 {
			return fmt.Errorf("%w: lock needs amount and duration", ErrInvalidOperation)
		}

	case *Aggregate:
		return validateAggregate(v)

	default:
		return fmt.Errorf("%w: unknown operation %T", ErrInvalidOperation, op)
	}

	return nil
}

// validateAggregate checks inner count, nesting, signers and networks.
func validateAggregate(a *Aggregate) error {
	if len(a.Inner) == 0 {
		return ErrEmptyAggregate
	}

	if len(a.Inner) > MaxInnerOperations {
		return fmt.Errorf("%w: %d > %d", ErrTooManyInner, len(a.Inner), MaxInnerOperations)
	}

	for i, in := range a.Inner {
		if in.Operation == nil {
			return fmt.Errorf("%w: inner %d is nil", ErrInvalidOperation, i)
		}

		if IsAggregate(in.Operation) {
			return fmt.Errorf("%w: inner %d", ErrNestedAggregate, i)
		}

		if len(in.Signer) != keys.PublicKeySize {
			return fmt.Errorf("%w: inner %d signer is %d bytes", keys.ErrInvalidPublicKey, i, len(in.Signer))
		}

		if in.Operation.Network() != a.NetworkType {
			return fmt.Errorf("%w: inner %d on %s, aggregate on %s", ErrNetworkMismatch, i, in.Operation.Network(), a.NetworkType)
		}

		if err := Validate(in.Operation); err != nil {
			return fmt.Errorf("inner %d:\n%w", i, err)
		}
	}

	return nil
}
