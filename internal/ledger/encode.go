package ledger

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"Apostille/internal/keys"
	"Apostille/internal/types"
)

// Encode returns the unsigned Entity bytes of op issued by signer.
// These bytes are what gets hashed and signed.
func Encode(op Operation, signer []byte) ([]byte, error) {
	if err := Validate(op); err != nil {
		return nil, err
	}

	builder := flatbuffers.NewBuilder(512)
	off := buildEntity(builder, op, signer)
	builder.Finish(off)

	return builder.FinishedBytes(), nil
}

// buildEntity writes op as an Entity table. Vectors and inner tables are
// created before the table is started.
func buildEntity(builder *flatbuffers.Builder, op Operation, signer []byte) flatbuffers.UOffsetT {
	signerVec := builder.CreateByteVector(signer)

	var recipientVec, messageVec, lockHashVec, additionsVec, deletionsVec, innerVec flatbuffers.UOffsetT

	switch v := op.(type) {
	case *Transfer:
		recipientVec = builder.CreateByteVector(v.Recipient[:])
		messageVec = builder.CreateByteVector(v.Message)

	case *MultisigModification:
		additionsVec = builder.CreateByteVector(concatKeys(v.Additions))
		deletionsVec = builder.CreateByteVector(concatKeys(v.Deletions))

	case *LockFunds:
		lockHashVec = builder.CreateByteVector(v.Hash[:])

	case *Aggregate:
		offsets := make([]flatbuffers.UOffsetT, len(v.Inner))
		for i, in := range v.Inner {
			offsets[i] = buildEntity(builder, in.Operation, in.Signer)
		}

		types.EntityStartInnerVector(builder, len(offsets))
		for i := len(offsets) - 1; i >= 0; i-- {
			builder.PrependUOffsetT(offsets[i])
		}
		innerVec = builder.EndVector(len(offsets))
	}

	types.EntityStart(builder)
	types.EntityAddType(builder, byte(op.Type()))
	types.EntityAddNetwork(builder, byte(op.Network()))
	types.EntityAddSigner(builder, signerVec)

	switch v := op.(type) {
	case *Transfer:
		types.EntityAddRecipient(builder, recipientVec)
		types.EntityAddAmount(builder, v.Amount)
		types.EntityAddMessage(builder, messageVec)

	case *MultisigModification:
		types.EntityAddMinApprovalDelta(builder, v.MinApprovalDelta)
		types.EntityAddMinRemovalDelta(builder, v.MinRemovalDelta)
		types.EntityAddAdditions(builder, additionsVec)
		types.EntityAddDeletions(builder, deletionsVec)

	case *LockFunds:
		types.EntityAddAmount(builder, v.Amount)
		types.EntityAddDuration(builder, v.Duration)
		types.EntityAddLockHash(builder, lockHashVec)

	case *Aggregate:
		types.EntityAddInner(builder, innerVec)
	}

	return types.EntityEnd(builder)
}

// Decode parses Entity bytes back into an operation and its signer.
func Decode(body []byte) (op Operation, signer []byte, retErr error) {
	// FlatBuffers panics on malformed data, recover gracefully
	defer func() {
		if r := recover(); r != nil {
			op, signer, retErr = nil, nil, fmt.Errorf("%w: malformed entity data", ErrInvalidOperation)
		}
	}()

	if len(body) < flatbuffers.SizeUOffsetT {
		return nil, nil, fmt.Errorf("%w: body is %d bytes", ErrInvalidOperation, len(body))
	}

	e := types.GetRootAsEntity(body, 0)

	decoded, err := decodeEntity(e, true)
	if err != nil {
		return nil, nil, err
	}

	return decoded, clone(e.SignerBytes()), nil
}

// decodeEntity converts one Entity view. Inner entities are only allowed at the top.
func decodeEntity(e *types.Entity, top bool) (Operation, error) {
	network := keys.NetworkType(e.Network())

	switch Type(e.Type()) {
	case TypeTransfer:
		t := &Transfer{NetworkType: network, Amount: e.Amount(), Message: clone(e.MessageBytes())}
		if len(e.RecipientBytes()) != keys.AddressSize {
			return nil, fmt.Errorf("%w: recipient is %d bytes", ErrInvalidOperation, len(e.RecipientBytes()))
		}
		copy(t.Recipient[:], e.RecipientBytes())
		return t, nil

	case TypeMultisigModification:
		return &MultisigModification{
			NetworkType:      network,
			MinApprovalDelta: e.MinApprovalDelta(),
			MinRemovalDelta:  e.MinRemovalDelta(),
			Additions:        splitKeys(e.AdditionsBytes()),
			Deletions:        splitKeys(e.DeletionsBytes()),
		}, nil

	case TypeLockFunds:
		l := &LockFunds{NetworkType: network, Amount: e.Amount(), Duration: e.Duration()}
		if len(e.LockHashBytes()) != len(l.Hash) {
			return nil, fmt.Errorf("%w: lock hash is %d bytes", ErrInvalidOperation, len(e.LockHashBytes()))
		}
		copy(l.Hash[:], e.LockHashBytes())
		return l, nil

	case TypeAggregateComplete, TypeAggregateBonded:
		if !top {
			return nil, ErrNestedAggregate
		}

		agg := &Aggregate{
			NetworkType: network,
			Bonded:      Type(e.Type()) == TypeAggregateBonded,
			Inner:       make([]Inner, e.InnerLength()),
		}

		inner := new(types.Entity)
		for i := range agg.Inner {
			e.Inner(inner, i)

			op, err := decodeEntity(inner, false)
			if err != nil {
				return nil, fmt.Errorf("inner %d:\n%w", i, err)
			}

			agg.Inner[i] = Inner{Signer: clone(inner.SignerBytes()), Operation: op}
		}
		return agg, nil

	default:
		return nil, fmt.Errorf("%w: unknown type %d", ErrInvalidOperation, e.Type())
	}
}

// concatKeys joins fixed-size public keys.
func concatKeys(ks [][]byte) []byte {
	out := make([]byte, 0, len(ks)*keys.PublicKeySize)
	for _, k := range ks {
		out = append(out, k...)
	}
	return out
}

// splitKeys reverses concatKeys. A trailing partial key is dropped.
func splitKeys(b []byte) [][]byte {
	if len(b) < keys.PublicKeySize {
		return nil
	}

	out := make([][]byte, 0, len(b)/keys.PublicKeySize)
	for i := 0; i+keys.PublicKeySize <= len(b); i += keys.PublicKeySize {
		out = append(out, clone(b[i:i+keys.PublicKeySize]))
	}
	return out
}

// clone copies b, keeping nil as nil.
func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
