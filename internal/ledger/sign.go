package ledger

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/zeebo/blake3"

	"Apostille/internal/keys"
	"Apostille/internal/types"
)

var (
	// ErrCosignNonAggregate is returned when cosignatures are attached to a non-aggregate.
	ErrCosignNonAggregate = errors.New("only aggregates take cosignatures")

	// ErrMalformedEnvelope is returned when signed bytes cannot be parsed or fail their hash.
	ErrMalformedEnvelope = errors.New("malformed signed operation")
)

// Cosignature is an additional signature over an aggregate hash.
type Cosignature struct {
	Signer    []byte // Signer is the cosigner public key
	Signature []byte // Signature signs the aggregate hash
}

// SignedOperation is a hashed and signed operation ready for submission.
type SignedOperation struct {
	Type         Type             // Type is the operation type
	Network      keys.NetworkType // Network is the target network
	Hash         [32]byte         // Hash is blake3 of Body
	Signer       []byte           // Signer is the primary signer public key
	Signature    []byte           // Signature signs Hash
	Body         []byte           // Body is the unsigned Entity encoding
	Cosignatures []Cosignature    // Cosignatures are extra aggregate signatures in order
	InnerCount   int              // InnerCount is the number of inner operations (0 for non-aggregates)
}

// Sign hashes op issued by signer and signs the hash.
func Sign(op Operation, signer keys.Signer) (*SignedOperation, error) {
	return SignWithCosigners(op, signer, nil)
}

// SignWithCosigners signs op with primary and attaches one cosignature per cosigner.
// Cosigners must not repeat and must not include the primary.
func SignWithCosigners(op Operation, primary keys.Signer, cosigners []keys.Signer) (*SignedOperation, error) {
	if primary == nil {
		return nil, errors.New("sign operation: nil signer")
	}

	if err := checkNetworks(op, primary, cosigners); err != nil {
		return nil, err
	}

	if len(cosigners) > 0 && !IsAggregate(op) {
		return nil, fmt.Errorf("%w: %s", ErrCosignNonAggregate, op.Type())
	}

	signerPK := primary.PublicKey()

	body, err := Encode(op, signerPK)
	if err != nil {
		return nil, fmt.Errorf("encode %s:\n%w", op.Type(), err)
	}

	hash := blake3.Sum256(body)

	sig, err := primary.Sign(hash[:])
	if err != nil {
		return nil, fmt.Errorf("sign %s:\n%w", op.Type(), err)
	}

	signed := &SignedOperation{
		Type:      op.Type(),
		Network:   op.Network(),
		Hash:      hash,
		Signer:    signerPK,
		Signature: sig,
		Body:      body,
	}

	if agg, ok := op.(*Aggregate); ok {
		signed.InnerCount = len(agg.Inner)
	}

	seen := map[string]bool{string(signerPK): true}
	for i, c := range cosigners {
		pk := c.PublicKey()
		if seen[string(pk)] {
			return nil, fmt.Errorf("cosigner %d repeats key %x", i, pk)
		}
		seen[string(pk)] = true

		cs, err := Cosign(signed, c)
		if err != nil {
			return nil, fmt.Errorf("cosigner %d:\n%w", i, err)
		}

		signed.Cosignatures = append(signed.Cosignatures, cs)
	}

	return signed, nil
}

// Cosign produces a cosignature over s by cosigner without attaching it.
// Bonded aggregates collect these after announcement.
func Cosign(s *SignedOperation, cosigner keys.Signer) (Cosignature, error) {
	if s.Type != TypeAggregateComplete && s.Type != TypeAggregateBonded {
		return Cosignature{}, fmt.Errorf("%w: %s", ErrCosignNonAggregate, s.Type)
	}

	if cosigner.Network() != s.Network {
		return Cosignature{}, fmt.Errorf("%w: cosigner on %s, operation on %s", ErrNetworkMismatch, cosigner.Network(), s.Network)
	}

	sig, err := cosigner.Sign(s.Hash[:])
	if err != nil {
		return Cosignature{}, fmt.Errorf("cosign:\n%w", err)
	}

	return Cosignature{Signer: cosigner.PublicKey(), Signature: sig}, nil
}

// checkNetworks rejects signers whose network differs from the operation's.
func checkNetworks(op Operation, primary keys.Signer, cosigners []keys.Signer) error {
	if op == nil {
		return fmt.Errorf("%w: nil operation", ErrInvalidOperation)
	}

	if primary.Network() != op.Network() {
		return fmt.Errorf("%w: signer on %s, operation on %s", ErrNetworkMismatch, primary.Network(), op.Network())
	}

	for i, c := range cosigners {
		if c.Network() != op.Network() {
			return fmt.Errorf("%w: cosigner %d on %s, operation on %s", ErrNetworkMismatch, i, c.Network(), op.Network())
		}
	}

	return nil
}

// HashHex returns the lowercase hex operation hash.
func (s *SignedOperation) HashHex() string {
	return hex.EncodeToString(s.Hash[:])
}

// Operation decodes the signed body.
func (s *SignedOperation) Operation() (Operation, error) {
	op, _, err := Decode(s.Body)
	return op, err
}

// Verify checks the body hash, the primary signature and every cosignature.
func (s *SignedOperation) Verify() bool {
	if blake3.Sum256(s.Body) != s.Hash {
		return false
	}

	if !keys.Verify(s.Signer, s.Hash[:], s.Signature) {
		return false
	}

	for _, c := range s.Cosignatures {
		if !keys.Verify(c.Signer, s.Hash[:], c.Signature) {
			return false
		}
	}

	return true
}

// CosignerKeys returns the cosigner public keys in order.
func (s *SignedOperation) CosignerKeys() [][]byte {
	out := make([][]byte, len(s.Cosignatures))
	for i, c := range s.Cosignatures {
		out[i] = c.Signer
	}
	return out
}

// HasCosigner reports whether pk has cosigned s.
func (s *SignedOperation) HasCosigner(pk []byte) bool {
	for _, c := range s.Cosignatures {
		if bytes.Equal(c.Signer, pk) {
			return true
		}
	}
	return false
}

// Bytes serializes s as an Envelope.
func (s *SignedOperation) Bytes() []byte {
	builder := flatbuffers.NewBuilder(len(s.Body) + 256)

	cosigOffsets := make([]flatbuffers.UOffsetT, len(s.Cosignatures))
	for i, c := range s.Cosignatures {
		signerVec := builder.CreateByteVector(c.Signer)
		sigVec := builder.CreateByteVector(c.Signature)

		types.CosignatureStart(builder)
		types.CosignatureAddSigner(builder, signerVec)
		types.CosignatureAddSignature(builder, sigVec)
		cosigOffsets[i] = types.CosignatureEnd(builder)
	}

	types.EnvelopeStartCosignaturesVector(builder, len(cosigOffsets))
	for i := len(cosigOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(cosigOffsets[i])
	}
	cosigVec := builder.EndVector(len(cosigOffsets))

	hashVec := builder.CreateByteVector(s.Hash[:])
	signerVec := builder.CreateByteVector(s.Signer)
	sigVec := builder.CreateByteVector(s.Signature)
	bodyVec := builder.CreateByteVector(s.Body)

	types.EnvelopeStart(builder)
	types.EnvelopeAddHash(builder, hashVec)
	types.EnvelopeAddSigner(builder, signerVec)
	types.EnvelopeAddSignature(builder, sigVec)
	types.EnvelopeAddBody(builder, bodyVec)
	types.EnvelopeAddCosignatures(builder, cosigVec)
	builder.Finish(types.EnvelopeEnd(builder))

	return builder.FinishedBytes()
}

// ParseSigned decodes Envelope bytes and checks the body hash.
// Signatures are not checked; call Verify for that.
func ParseSigned(data []byte) (s *SignedOperation, retErr error) {
	// FlatBuffers panics on malformed data, recover gracefully
	defer func() {
		if r := recover(); r != nil {
			s, retErr = nil, ErrMalformedEnvelope
		}
	}()

	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedEnvelope, len(data))
	}

	env := types.GetRootAsEnvelope(data, 0)

	s = &SignedOperation{
		Signer:    clone(env.SignerBytes()),
		Signature: clone(env.SignatureBytes()),
		Body:      clone(env.BodyBytes()),
	}

	if len(env.HashBytes()) != len(s.Hash) {
		return nil, fmt.Errorf("%w: hash is %d bytes", ErrMalformedEnvelope, len(env.HashBytes()))
	}
	copy(s.Hash[:], env.HashBytes())

	if blake3.Sum256(s.Body) != s.Hash {
		return nil, fmt.Errorf("%w: hash mismatch", ErrMalformedEnvelope)
	}

	op, _, err := Decode(s.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	s.Type = op.Type()
	s.Network = op.Network()
	if agg, ok := op.(*Aggregate); ok {
		s.InnerCount = len(agg.Inner)
	}

	cs := new(types.Cosignature)
	for i := 0; i < env.CosignaturesLength(); i++ {
		env.Cosignatures(cs, i)
		s.Cosignatures = append(s.Cosignatures, Cosignature{
			Signer:    clone(cs.SignerBytes()),
			Signature: clone(cs.SignatureBytes()),
		})
	}

	return s, nil
}
