package apostille

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"Apostille/internal/bundler"
	"Apostille/internal/hashtag"
	"Apostille/internal/identity"
	"Apostille/internal/initiator"
	"Apostille/internal/keys"
	"Apostille/internal/ledger"
	"Apostille/internal/registry"
)

var document = []byte("contract v1, signed 2026-01-01")

// testAccount returns a fixed TestNet account.
func testAccount(t *testing.T, b byte) *keys.Account {
	t.Helper()

	acc, err := keys.DeriveKeypair(bytes.Repeat([]byte{b}, keys.PrivateKeySize), keys.TestNet)
	if err != nil {
		t.Fatalf("derive account: %v", err)
	}

	return acc
}

// TestIssuePublic tests a public notarization end to end without a ledger.
func TestIssuePublic(t *testing.T) {
	owner := testAccount(t, 1)

	iss, err := Issue(Request{Seed: "contract.pdf", Data: document, Algorithm: hashtag.SHA256, Owner: owner})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	want, _ := identity.Derive("contract.pdf", owner, keys.TestNet)
	if !iss.Identity.Equal(want) {
		t.Error("issuance identity should be the derived identity")
	}

	if len(iss.Pending) != 1 || iss.Pending[0].Kind != bundler.Simple {
		t.Fatalf("expected one simple pending operation, got %d", len(iss.Pending))
	}

	transfer := iss.Pending[0].Operation.(*ledger.Transfer)
	if transfer.Recipient != iss.Identity.Address() || string(transfer.Message) != iss.Tag.Hex() {
		t.Error("transfer should carry the tag to the identity")
	}

	c, ok, err := Check(document, iss.Tag.Hex(), nil)
	if err != nil || !ok || !c.IsPublic {
		t.Errorf("check: %+v %v %v", c, ok, err)
	}

	if _, ok, _ := Check([]byte("forged"), iss.Tag.Hex(), nil); ok {
		t.Error("other data should not verify")
	}
}

// TestIssuePrivate tests that private tags verify only with the owner key.
func TestIssuePrivate(t *testing.T) {
	owner, other := testAccount(t, 1), testAccount(t, 2)

	iss, err := Issue(Request{Seed: "s", Data: document, Algorithm: hashtag.SHA3_256, Private: true, Owner: owner})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, ok, err := Check(document, iss.Tag.Hex(), owner); err != nil || !ok {
		t.Errorf("owner check: %v %v", ok, err)
	}

	if _, ok, err := Check(document, iss.Tag.Hex(), other); err != nil || ok {
		t.Errorf("other key check: %v %v", ok, err)
	}

	if _, _, err := Check(document, iss.Tag.Hex(), nil); err == nil {
		t.Error("private check without owner should fail")
	}
}

// TestIssueGuards tests request validation.
func TestIssueGuards(t *testing.T) {
	owner := testAccount(t, 1)

	if _, err := Issue(Request{Data: document, Algorithm: hashtag.SHA256, Owner: owner}); !errors.Is(err, ErrEmptySeed) {
		t.Errorf("expected ErrEmptySeed, got %v", err)
	}

	if _, err := Issue(Request{Seed: "s", Algorithm: hashtag.SHA256}); !errors.Is(err, ErrMissingOwner) {
		t.Errorf("expected ErrMissingOwner, got %v", err)
	}

	if _, err := Issue(Request{Seed: "s", Algorithm: 0, Owner: owner}); !errors.Is(err, hashtag.ErrUnsupportedAlgorithm) {
		t.Errorf("expected ErrUnsupportedAlgorithm, got %v", err)
	}

	mijin, _ := keys.DeriveKeypair(bytes.Repeat([]byte{1}, 32), keys.MijinNet)
	if _, err := Issue(Request{Seed: "s", Algorithm: hashtag.Keccak512, Owner: mijin}); !errors.Is(err, hashtag.ErrAlgorithmNotSupported) {
		t.Errorf("expected ErrAlgorithmNotSupported, got %v", err)
	}
}

// TestUpdateReusesIdentity tests that an update targets the same identity.
func TestUpdateReusesIdentity(t *testing.T) {
	owner := testAccount(t, 1)

	first, _ := Issue(Request{Seed: "s", Data: document, Algorithm: hashtag.SHA256, Owner: owner})

	next, err := Update(first.Identity, Request{Data: []byte("v2"), Algorithm: hashtag.MD5, Owner: owner})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if next.Identity.Address() != first.Identity.Address() || bytes.Equal(next.Tag, first.Tag) {
		t.Error("update should send a new tag to the same identity")
	}
}

// TestAssociate tests the multisig conversion of an identity.
func TestAssociate(t *testing.T) {
	owner := testAccount(t, 1)
	a, b := testAccount(t, 2), testAccount(t, 3)

	iss, _ := Issue(Request{Seed: "s", Data: document, Algorithm: hashtag.SHA256, Owner: owner})

	p, err := Associate(iss.Identity, []keys.Key{a.PublicAccount(), b.PublicAccount()}, 2)
	if err != nil {
		t.Fatalf("associate: %v", err)
	}

	if p.Kind != bundler.AggregateComplete || p.Initiator.Kind() != initiator.KindMultisig {
		t.Fatalf("unexpected pending: kind=%d initiator=%d", p.Kind, p.Initiator.Kind())
	}

	mod := p.Operation.(*ledger.MultisigModification)
	if len(mod.Additions) != 2 || mod.MinApprovalDelta != 2 || !bytes.Equal(mod.Additions[0], a.PublicKey()) {
		t.Errorf("unexpected modification: %+v", mod)
	}

	r := bundler.Process(append(iss.Pending, p))
	if len(r.Bundles) != 2 || r.Bundles[1].Kind != bundler.Aggregate {
		t.Fatalf("expected transfer then aggregate, got %d bundles (%v)", len(r.Bundles), r.Failures)
	}

	if !bytes.Equal(r.Bundles[1].Operation.Signer, iss.Identity.PublicKey()) {
		t.Error("identity should sign its own conversion")
	}
}

// TestAssociateGuards tests owner and quorum validation.
func TestAssociateGuards(t *testing.T) {
	owner := testAccount(t, 1)
	iss, _ := Issue(Request{Seed: "s", Data: document, Algorithm: hashtag.SHA256, Owner: owner})

	if _, err := Associate(iss.Identity, nil, 1); !errors.Is(err, ErrNoOwners) {
		t.Errorf("expected ErrNoOwners, got %v", err)
	}

	if _, err := Associate(iss.Identity, []keys.Key{owner}, 2); !errors.Is(err, ErrInvalidQuorum) {
		t.Errorf("expected ErrInvalidQuorum, got %v", err)
	}

	mainOwner, _ := keys.DeriveKeypair(bytes.Repeat([]byte{4}, 32), keys.MainNet)
	if _, err := Associate(iss.Identity, []keys.Key{mainOwner}, 1); !errors.Is(err, ledger.ErrNetworkMismatch) {
		t.Errorf("expected ErrNetworkMismatch, got %v", err)
	}
}

// fakeAnnouncer records announced bundles and fails the ones listed.
type fakeAnnouncer struct {
	announced []bundler.Bundle   // announced are the bundles seen in order
	fail      map[[32]byte]error // fail maps a bundle hash to its error
}

func (f *fakeAnnouncer) Announce(_ context.Context, b bundler.Bundle) error {
	f.announced = append(f.announced, b)
	return f.fail[b.Operation.Hash]
}

// TestNotarize tests bundling, recording and announcing together.
func TestNotarize(t *testing.T) {
	owner := testAccount(t, 1)

	reg, err := registry.Open(registry.Options{Path: filepath.Join(t.TempDir(), "db")})
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer reg.Close()

	iss, _ := Issue(Request{Seed: "s", Data: document, Algorithm: hashtag.SHA256, Owner: owner})
	assoc, _ := Associate(iss.Identity, []keys.Key{testAccount(t, 2)}, 1)

	ann := &fakeAnnouncer{}

	result, err := Notarize(context.Background(), iss, Options{Announcer: ann, Recorder: reg, Extra: []bundler.Pending{assoc}})
	if err != nil {
		t.Fatalf("notarize: %v", err)
	}

	if len(ann.announced) != 2 || len(result.Bundles) != 2 {
		t.Fatalf("expected 2 announced bundles, got %d", len(ann.announced))
	}

	rec, err := reg.GetIdentity(iss.Identity.Address())
	if err != nil || rec.Seed != "s" {
		t.Fatalf("identity record: %v %v", rec, err)
	}

	announced, _ := reg.Bundles(registry.StatusAnnounced)
	if len(announced) != 2 {
		t.Errorf("expected 2 announced records, got %d", len(announced))
	}
}

// TestNotarizeAnnounceFailure tests that one failed announce does not stop the others.
func TestNotarizeAnnounceFailure(t *testing.T) {
	owner := testAccount(t, 1)

	reg, err := registry.Open(registry.Options{Path: filepath.Join(t.TempDir(), "db")})
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer reg.Close()

	iss, _ := Issue(Request{Seed: "s", Data: document, Algorithm: hashtag.SHA256, Owner: owner})
	assoc, _ := Associate(iss.Identity, []keys.Key{testAccount(t, 2)}, 1)

	first := bundler.Process(iss.Pending).Bundles[0]
	boom := errors.New("endpoint down")
	ann := &fakeAnnouncer{fail: map[[32]byte]error{first.Operation.Hash: boom}}

	_, err = Notarize(context.Background(), iss, Options{Announcer: ann, Recorder: reg, Extra: []bundler.Pending{assoc}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected announce error, got %v", err)
	}

	if len(ann.announced) != 2 {
		t.Errorf("second bundle should still be announced, got %d", len(ann.announced))
	}

	failed, _ := reg.Bundles(registry.StatusFailed)
	if len(failed) != 1 || failed[0].Hash != first.Operation.Hash {
		t.Errorf("expected the first bundle marked failed, got %d", len(failed))
	}
}

// TestNotarizeWithoutCollaborators tests that Notarize only bundles when nothing else is set.
func TestNotarizeWithoutCollaborators(t *testing.T) {
	iss, _ := Issue(Request{Seed: "s", Data: document, Algorithm: hashtag.SHA256, Owner: testAccount(t, 1)})

	result, err := Notarize(context.Background(), iss, Options{})
	if err != nil || len(result.Bundles) != 1 {
		t.Fatalf("notarize: %v, %d bundles", err, len(result.Bundles))
	}
}
