package ledger

import (
	"bytes"
	"errors"
	"testing"

	"Apostille/internal/keys"
)

// newAccount returns a fixed TestNet account.
func newAccount(t *testing.T, b byte) *keys.Account {
	t.Helper()

	acc, err := keys.DeriveKeypair(bytes.Repeat([]byte{b}, keys.PrivateKeySize), keys.TestNet)
	if err != nil {
		t.Fatalf("derive account: %v", err)
	}

	return acc
}

// newTransfer returns a transfer to recipient carrying msg.
func newTransfer(recipient *keys.Account, msg string) *Transfer {
	return &Transfer{
		NetworkType: keys.TestNet,
		Recipient:   recipient.Address(),
		Message:     []byte(msg),
	}
}

// TestEncodeDecodeTransfer tests that a transfer survives the Entity encoding.
func TestEncodeDecodeTransfer(t *testing.T) {
	sender := newAccount(t, 1)
	recipient := newAccount(t, 2)

	tr := newTransfer(recipient, "fe4e545903abcd")
	tr.Amount = 7

	body, err := Encode(tr, sender.PublicKey())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	op, signer, err := Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, ok := op.(*Transfer)
	if !ok {
		t.Fatalf("decoded %T, want *Transfer", op)
	}

	if got.Recipient != tr.Recipient || got.Amount != 7 || !bytes.Equal(got.Message, tr.Message) {
		t.Errorf("transfer mismatch: %+v", got)
	}

	if !bytes.Equal(signer, sender.PublicKey()) {
		t.Error("signer mismatch")
	}
}

// TestEncodeDecodeAggregate tests inner ordering and nested fields of an aggregate.
func TestEncodeDecodeAggregate(t *testing.T) {
	a := newAccount(t, 1)
	b := newAccount(t, 2)

	agg := &Aggregate{
		NetworkType: keys.TestNet,
		Bonded:      true,
		Inner: []Inner{
			{Signer: a.PublicKey(), Operation: newTransfer(b, "first")},
			{Signer: b.PublicKey(), Operation: &MultisigModification{
				NetworkType:      keys.TestNet,
				MinApprovalDelta: 1,
				MinRemovalDelta:  -1,
				Additions:        [][]byte{a.PublicKey()},
			}},
			{Signer: a.PublicKey(), Operation: &LockFunds{NetworkType: keys.TestNet, Amount: LockAmount, Duration: LockDuration}},
		},
	}

	body, err := Encode(agg, a.PublicKey())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	op, _, err := Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got := op.(*Aggregate)
	if !got.Bonded || len(got.Inner) != 3 {
		t.Fatalf("aggregate mismatch: bonded=%v inner=%d", got.Bonded, len(got.Inner))
	}

	if msg := got.Inner[0].Operation.(*Transfer).Message; string(msg) != "first" {
		t.Errorf("inner order: first message %q", msg)
	}

	mod := got.Inner[1].Operation.(*MultisigModification)
	if mod.MinApprovalDelta != 1 || mod.MinRemovalDelta != -1 || len(mod.Additions) != 1 || !bytes.Equal(mod.Additions[0], a.PublicKey()) {
		t.Errorf("modification mismatch: %+v", mod)
	}

	if !bytes.Equal(got.Inner[1].Signer, b.PublicKey()) {
		t.Error("inner signer mismatch")
	}
}

// TestValidateRejectsNesting tests that aggregates cannot wrap aggregates.
func TestValidateRejectsNesting(t *testing.T) {
	a := newAccount(t, 1)
	inner, _ := Wrap(newTransfer(a, "x"), a.PublicKey(), false)

	_, err := Wrap(inner, a.PublicKey(), false)
	if !errors.Is(err, ErrNestedAggregate) {
		t.Fatalf("expected ErrNestedAggregate, got %v", err)
	}
}

// TestValidateInnerCeiling tests the inner operation ceiling.
func TestValidateInnerCeiling(t *testing.T) {
	a := newAccount(t, 1)

	agg := &Aggregate{NetworkType: keys.TestNet}
	for i := 0; i < MaxInnerOperations; i++ {
		agg.Inner = append(agg.Inner, Inner{Signer: a.PublicKey(), Operation: newTransfer(a, "")})
	}

	if err := Validate(agg); err != nil {
		t.Fatalf("ceiling should be allowed: %v", err)
	}

	agg.Inner = append(agg.Inner, agg.Inner[0])
	if err := Validate(agg); !errors.Is(err, ErrTooManyInner) {
		t.Fatalf("expected ErrTooManyInner, got %v", err)
	}

	if err := Validate(&Aggregate{NetworkType: keys.TestNet}); !errors.Is(err, ErrEmptyAggregate) {
		t.Fatalf("expected ErrEmptyAggregate, got %v", err)
	}
}

// TestValidateTransferNetwork tests that a recipient on another network is rejected.
func TestValidateTransferNetwork(t *testing.T) {
	main, _ := keys.DeriveKeypair(bytes.Repeat([]byte{3}, 32), keys.MainNet)

	tr := &Transfer{NetworkType: keys.TestNet, Recipient: main.Address()}
	if err := Validate(tr); !errors.Is(err, ErrNetworkMismatch) {
		t.Fatalf("expected ErrNetworkMismatch, got %v", err)
	}

	big := newTransfer(newAccount(t, 1), string(make([]byte, MaxMessageSize+1)))
	if err := Validate(big); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}

// TestSignVerify tests that a signed operation verifies and detects tampering.
func TestSignVerify(t *testing.T) {
	a := newAccount(t, 1)

	s, err := Sign(newTransfer(newAccount(t, 2), "hello"), a)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if !s.Verify() {
		t.Fatal("signed operation should verify")
	}

	s.Body[len(s.Body)-1] ^= 0xFF
	if s.Verify() {
		t.Error("tampered body should not verify")
	}
}

// TestSignWithCosigners tests cosignature collection over an aggregate.
func TestSignWithCosigners(t *testing.T) {
	a, b, c := newAccount(t, 1), newAccount(t, 2), newAccount(t, 3)

	agg := &Aggregate{NetworkType: keys.TestNet, Inner: []Inner{
		{Signer: a.PublicKey(), Operation: newTransfer(b, "1")},
		{Signer: b.PublicKey(), Operation: newTransfer(c, "2")},
		{Signer: c.PublicKey(), Operation: newTransfer(a, "3")},
	}}

	s, err := SignWithCosigners(agg, a, []keys.Signer{b, c})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if len(s.Cosignatures) != 2 || !s.HasCosigner(b.PublicKey()) || !s.HasCosigner(c.PublicKey()) {
		t.Fatalf("cosigners: %d", len(s.Cosignatures))
	}

	if s.InnerCount != 3 {
		t.Errorf("inner count: got %d, want 3", s.InnerCount)
	}

	if !s.Verify() {
		t.Error("aggregate should verify")
	}

	if _, err := SignWithCosigners(agg, a, []keys.Signer{b, b}); err == nil {
		t.Error("repeated cosigner should fail")
	}

	if _, err := SignWithCosigners(agg, a, []keys.Signer{a}); err == nil {
		t.Error("primary as cosigner should fail")
	}
}

// TestSignCosignNonAggregate tests that only aggregates take cosignatures.
func TestSignCosignNonAggregate(t *testing.T) {
	a, b := newAccount(t, 1), newAccount(t, 2)

	_, err := SignWithCosigners(newTransfer(b, "x"), a, []keys.Signer{b})
	if !errors.Is(err, ErrCosignNonAggregate) {
		t.Fatalf("expected ErrCosignNonAggregate, got %v", err)
	}
}

// TestSignNetworkMismatch tests that a signer on another network is rejected before signing.
func TestSignNetworkMismatch(t *testing.T) {
	main, _ := keys.DeriveKeypair(bytes.Repeat([]byte{9}, 32), keys.MainNet)

	_, err := Sign(newTransfer(newAccount(t, 2), "x"), main)
	if !errors.Is(err, ErrNetworkMismatch) {
		t.Fatalf("expected ErrNetworkMismatch, got %v", err)
	}
}

// TestEnvelopeRoundTrip tests Bytes and ParseSigned.
func TestEnvelopeRoundTrip(t *testing.T) {
	a, b := newAccount(t, 1), newAccount(t, 2)

	agg, _ := Wrap(newTransfer(b, "wrapped"), a.PublicKey(), true)
	s, err := SignWithCosigners(agg, a, []keys.Signer{b})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parsed, err := ParseSigned(s.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if parsed.Hash != s.Hash || parsed.Type != TypeAggregateBonded || parsed.InnerCount != 1 {
		t.Errorf("envelope mismatch: %+v", parsed)
	}

	if len(parsed.Cosignatures) != 1 || !parsed.Verify() {
		t.Error("parsed envelope should carry a valid cosignature")
	}

	if _, err := ParseSigned([]byte{1, 2, 3}); !errors.Is(err, ErrMalformedEnvelope) {
		t.Errorf("expected ErrMalformedEnvelope, got %v", err)
	}
}

// TestDecodeGarbage tests that malformed entity bytes return an error instead of panicking.
func TestDecodeGarbage(t *testing.T) {
	garbage := bytes.Repeat([]byte{0xFF}, 16)

	if _, _, err := Decode(garbage); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}
