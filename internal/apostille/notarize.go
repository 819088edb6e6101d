package apostille

import (
	"context"
	"errors"
	"fmt"

	"Apostille/internal/bundler"
	"Apostille/internal/identity"
	"Apostille/internal/keys"
	"Apostille/internal/logger"
	"Apostille/internal/registry"
)

// Announcer submits a bundle to the ledger.
type Announcer interface {
	Announce(ctx context.Context, b bundler.Bundle) error
}

// Recorder keeps identities and bundles.
type Recorder interface {
	PutIdentity(id *identity.Identity, seed string) (*registry.IdentityRecord, error)
	PutBundles(owner keys.Address, bundles []bundler.Bundle) error
	SetStatus(hash [32]byte, status registry.Status) error
}

// Options selects the collaborators of Notarize. Nil collaborators are skipped.
type Options struct {
	Bundler   *bundler.Bundler  // Bundler groups the pending operations; nil uses defaults
	Announcer Announcer         // Announcer submits bundles
	Recorder  Recorder          // Recorder stores the identity and bundles
	Extra     []bundler.Pending // Extra are bundled after the issuance, such as an association
}

// Notarize bundles the issuance with opts.Extra appended, records the result and
// announces every bundle in order. Bundling and announce failures are joined in
// the returned error; the result still lists every bundle produced.
func Notarize(ctx context.Context, iss *Issuance, opts Options) (*bundler.Result, error) {
	if iss == nil {
		return nil, errors.New("notarize: nil issuance")
	}

	b := opts.Bundler
	if b == nil {
		b = bundler.New(bundler.Options{})
	}

	pending := append(append([]bundler.Pending(nil), iss.Pending...), opts.Extra...)
	result := b.Process(pending)

	var errs []error
	for _, f := range result.Failures {
		errs = append(errs, f)
	}

	addr := iss.Identity.Address()

	if opts.Recorder != nil {
		if _, err := opts.Recorder.PutIdentity(iss.Identity, iss.Seed); err != nil {
			return result, fmt.Errorf("record identity:\n%w", err)
		}

		if err := opts.Recorder.PutBundles(addr, result.Bundles); err != nil {
			return result, fmt.Errorf("record bundles:\n%w", err)
		}
	}

	if opts.Announcer == nil {
		return result, errors.Join(errs...)
	}

	for _, bundle := range result.Bundles {
		status := registry.StatusAnnounced

		if err := opts.Announcer.Announce(ctx, bundle); err != nil {
			errs = append(errs, fmt.Errorf("announce %s:\n%w", bundle.Operation.HashHex(), err))
			status = registry.StatusFailed
		} else {
			logger.Info("bundle announced",
				"identity", addr.String(),
				"hash", bundle.Operation.HashHex(),
				"kind", bundle.Kind.String(),
			)
		}

		if opts.Recorder != nil {
			if err := opts.Recorder.SetStatus(bundle.Operation.Hash, status); err != nil {
				errs = append(errs, fmt.Errorf("record status:\n%w", err))
			}
		}

		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}

	return result, errors.Join(errs...)
}
