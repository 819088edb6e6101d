// Package apostille composes identity derivation, hash tagging and bundling into the
// notarization workflow: create an apostille, hand its identity to owners, update it.
package apostille

import (
	"errors"
	"fmt"

	"Apostille/internal/bundler"
	"Apostille/internal/hashtag"
	"Apostille/internal/identity"
	"Apostille/internal/initiator"
	"Apostille/internal/keys"
	"Apostille/internal/ledger"
	"Apostille/internal/verifier"
)

var (
	// ErrMissingOwner is returned when a request has no owner signer.
	ErrMissingOwner = errors.New("apostille request needs an owner")

	// ErrEmptySeed is returned when a request has no seed.
	ErrEmptySeed = errors.New("apostille seed is empty")

	// ErrNoOwners is returned when an identity is associated with no owners.
	ErrNoOwners = errors.New("association needs at least one owner")

	// ErrInvalidQuorum is returned when the quorum exceeds the owner count or is not positive.
	ErrInvalidQuorum = errors.New("invalid multisig quorum")
)

// Request describes one notarization.
type Request struct {
	Seed      string              // Seed names the record and selects the identity
	Data      []byte              // Data is the notarized content
	Algorithm hashtag.Algorithm   // Algorithm hashes Data
	Private   bool                // Private signs the digest with Owner
	Owner     keys.Signer         // Owner derives the identity and signs private tags
	Initiator initiator.Initiator // Initiator sends the transfer; nil means Owner directly
	Amount    uint64              // Amount is transferred to the identity with the tag
}

// Issuance is the outcome of preparing a notarization.
type Issuance struct {
	Seed     string             // Seed is the seed the identity was derived from
	Identity *identity.Identity // Identity receives the tag transfer
	Tag      hashtag.TaggedHash // Tag is the tagged hash carried as message
	Pending  []bundler.Pending  // Pending are the operations to bundle, in order
}

// Issue derives the identity for req.Seed, tags req.Data and prepares the transfer
// that anchors the tag on the identity account.
func Issue(req Request) (*Issuance, error) {
	if req.Seed == "" {
		return nil, ErrEmptySeed
	}

	if req.Owner == nil {
		return nil, ErrMissingOwner
	}

	id, err := identity.Derive(req.Seed, req.Owner, req.Owner.Network())
	if err != nil {
		return nil, fmt.Errorf("derive identity:\n%w", err)
	}

	return Update(id, req)
}

// Update prepares a new tag transfer to an existing identity.
// req.Seed is recorded but not used for derivation.
func Update(id *identity.Identity, req Request) (*Issuance, error) {
	if id == nil {
		return nil, fmt.Errorf("%w: no identity", identity.ErrInvalidDerivingKey)
	}

	if req.Owner == nil {
		return nil, ErrMissingOwner
	}

	network := id.Network()

	if req.Owner.Network() != network {
		return nil, fmt.Errorf("%w: owner on %s, identity on %s", ledger.ErrNetworkMismatch, req.Owner.Network(), network)
	}

	if err := hashtag.CheckNetwork(req.Algorithm, network); err != nil {
		return nil, err
	}

	tag, err := buildTag(req)
	if err != nil {
		return nil, err
	}

	sender := req.Initiator
	if sender == nil {
		if sender, err = initiator.NewDirect(req.Owner); err != nil {
			return nil, fmt.Errorf("owner initiator:\n%w", err)
		}
	}

	transfer := &ledger.Transfer{
		NetworkType: network,
		Recipient:   id.Address(),
		Amount:      req.Amount,
		Message:     []byte(tag.Hex()),
	}

	if err := ledger.Validate(transfer); err != nil {
		return nil, fmt.Errorf("tag transfer:\n%w", err)
	}

	return &Issuance{
		Seed:     req.Seed,
		Identity: id,
		Tag:      tag,
		Pending:  []bundler.Pending{{Initiator: sender, Operation: transfer, Kind: bundler.Simple}},
	}, nil
}

// buildTag produces the public or private tag of req.Data.
func buildTag(req Request) (hashtag.TaggedHash, error) {
	if req.Private {
		tag, err := hashtag.SignAndTag(req.Data, req.Algorithm, req.Owner)
		if err != nil {
			return nil, fmt.Errorf("sign and tag:\n%w", err)
		}
		return tag, nil
	}

	tag, err := hashtag.Tag(req.Data, req.Algorithm, false)
	if err != nil {
		return nil, fmt.Errorf("tag:\n%w", err)
	}
	return tag, nil
}

// Associate prepares the modification that turns the identity account into a
// multisig account owned by owners, requiring quorum of them to approve.
// The identity signs it through its own keypair as sole cosigner.
func Associate(id *identity.Identity, owners []keys.Key, quorum int) (bundler.Pending, error) {
	if id == nil {
		return bundler.Pending{}, fmt.Errorf("%w: no identity", identity.ErrInvalidDerivingKey)
	}

	if len(owners) == 0 {
		return bundler.Pending{}, ErrNoOwners
	}

	if quorum <= 0 || quorum > len(owners) {
		return bundler.Pending{}, fmt.Errorf("%w: %d of %d", ErrInvalidQuorum, quorum, len(owners))
	}

	additions := make([][]byte, len(owners))
	for i, o := range owners {
		if o == nil {
			return bundler.Pending{}, fmt.Errorf("%w: owner %d", keys.ErrInvalidPublicKey, i)
		}

		if o.Network() != id.Network() {
			return bundler.Pending{}, fmt.Errorf("%w: owner %d on %s, identity on %s", ledger.ErrNetworkMismatch, i, o.Network(), id.Network())
		}

		additions[i] = o.PublicKey()
	}

	acc := id.Account()

	msig, err := initiator.NewMultisig(acc.PublicAccount(), []keys.Signer{acc}, true)
	if err != nil {
		return bundler.Pending{}, fmt.Errorf("identity initiator:\n%w", err)
	}

	mod := &ledger.MultisigModification{
		NetworkType:      id.Network(),
		MinApprovalDelta: int8(quorum),
		MinRemovalDelta:  int8(quorum),
		Additions:        additions,
	}

	if err := ledger.Validate(mod); err != nil {
		return bundler.Pending{}, fmt.Errorf("multisig modification:\n%w", err)
	}

	return bundler.Pending{Initiator: msig, Operation: mod, Kind: bundler.AggregateComplete}, nil
}

// Check verifies data against the hex tag found on a ledger transfer.
// Private tags are checked against owner, which may be nil for public tags.
func Check(data []byte, tagHex string, owner keys.Key) (verifier.Classification, bool, error) {
	c, err := verifier.ClassifyHex(tagHex)
	if err != nil {
		return c, false, err
	}

	var ok bool
	if c.IsPrivate {
		if owner == nil {
			return c, false, fmt.Errorf("%w: private tag needs the owner public key", verifier.ErrWrongMode)
		}
		ok, err = verifier.VerifyPrivateHex(owner.PublicKey(), data, tagHex)
	} else {
		ok, err = verifier.VerifyPublicHex(data, tagHex)
	}

	return c, ok, err
}
