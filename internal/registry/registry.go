// Package registry keeps a local record of derived identities and the bundles
// issued for them, so a notarization can be audited and re-announced later.
package registry

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"Apostille/internal/bundler"
	"Apostille/internal/identity"
	"Apostille/internal/keys"
)

var (
	identityPrefix = []byte("id/")
	bundlePrefix   = []byte("bundle/")
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("registry record not found")

// Options configures a Registry.
type Options struct {
	Path         string        // Path is the Pebble directory
	SyncInterval time.Duration // SyncInterval is the WAL sync period; zero means 100ms
}

// Registry stores identity and bundle records. It is safe for concurrent use.
type Registry struct {
	db      *store           // db is the key-value store
	encoder *zstd.Encoder    // encoder compresses bundle records
	decoder *zstd.Decoder    // decoder decompresses bundle records
	now     func() time.Time // now stamps records
}

// Open opens or creates the registry at opts.Path.
func Open(opts Options) (*Registry, error) {
	db, err := openStore(opts.Path, opts.SyncInterval)
	if err != nil {
		return nil, err
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.close()
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.close()
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}

	return &Registry{db: db, encoder: encoder, decoder: decoder, now: time.Now}, nil
}

// Close flushes and closes the registry.
func (r *Registry) Close() error {
	r.decoder.Close()
	if err := r.encoder.Close(); err != nil {
		return fmt.Errorf("close encoder:\n%w", err)
	}

	return r.db.close()
}

// PutIdentity records id. An existing record keeps its creation time and multisig flag.
func (r *Registry) PutIdentity(id *identity.Identity, seed string) (*IdentityRecord, error) {
	addr := id.Address()

	rec, err := r.GetIdentity(addr)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if rec == nil {
		rec = &IdentityRecord{Address: addr, CreatedAt: r.now().Unix()}
	}

	rec.PublicKey = id.PublicKey()
	rec.DerivingPublicKey = id.DerivingPublicKey()
	rec.Seed = seed

	if err := r.db.set(identityKey(addr), encodeIdentity(rec)); err != nil {
		return nil, fmt.Errorf("store identity %s:\n%w", addr, err)
	}

	return rec, nil
}

// MarkMultisig flags the identity at addr as converted to a multisig account.
func (r *Registry) MarkMultisig(addr keys.Address) error {
	rec, err := r.GetIdentity(addr)
	if err != nil {
		return err
	}

	rec.Multisig = true

	return r.db.set(identityKey(addr), encodeIdentity(rec))
}

// GetIdentity returns the record for addr or ErrNotFound.
func (r *Registry) GetIdentity(addr keys.Address) (*IdentityRecord, error) {
	data, err := r.db.get(identityKey(addr))
	if err != nil {
		return nil, fmt.Errorf("load identity %s:\n%w", addr, err)
	}

	if data == nil {
		return nil, fmt.Errorf("%w: identity %s", ErrNotFound, addr)
	}

	return decodeIdentity(data)
}

// Identities returns every identity record in address order.
func (r *Registry) Identities() ([]*IdentityRecord, error) {
	var out []*IdentityRecord

	err := r.db.iteratePrefix(identityPrefix, func(_, value []byte) error {
		rec, err := decodeIdentity(value)
		if err != nil {
			return err
		}

		out = append(out, rec)
		return nil
	})

	return out, err
}

// PutBundles records every bundle of a result as pending, in one batch.
func (r *Registry) PutBundles(owner keys.Address, bundles []bundler.Bundle) error {
	pairs := make([]keyValue, 0, len(bundles))
	now := r.now().Unix()

	for _, b := range bundles {
		rec := &BundleRecord{
			Hash:     b.Operation.Hash,
			Kind:     uint8(b.Kind),
			Identity: owner,
			Envelope: b.Operation.Bytes(),
			Status:   StatusPending,
			Updated:  now,
		}

		if b.Lock != nil {
			rec.Lock = b.Lock.Bytes()
		}

		pairs = append(pairs, keyValue{key: bundleKey(rec.Hash), value: r.encoder.EncodeAll(encodeBundle(rec), nil)})
	}

	if err := r.db.setBatch(pairs); err != nil {
		return fmt.Errorf("store %d bundles:\n%w", len(pairs), err)
	}

	return nil
}

// SetStatus updates the announce state of the bundle with hash.
func (r *Registry) SetStatus(hash [32]byte, status Status) error {
	rec, err := r.GetBundle(hash)
	if err != nil {
		return err
	}

	rec.Status = status
	rec.Updated = r.now().Unix()

	return r.db.set(bundleKey(hash), r.encoder.EncodeAll(encodeBundle(rec), nil))
}

// GetBundle returns the record for hash or ErrNotFound.
func (r *Registry) GetBundle(hash [32]byte) (*BundleRecord, error) {
	data, err := r.db.get(bundleKey(hash))
	if err != nil {
		return nil, fmt.Errorf("load bundle %x:\n%w", hash, err)
	}

	if data == nil {
		return nil, fmt.Errorf("%w: bundle %x", ErrNotFound, hash)
	}

	return r.decodeBundleValue(data)
}

// Bundles returns every bundle record, optionally restricted to one status.
// A zero status returns all of them.
func (r *Registry) Bundles(status Status) ([]*BundleRecord, error) {
	var out []*BundleRecord

	err := r.db.iteratePrefix(bundlePrefix, func(_, value []byte) error {
		rec, err := r.decodeBundleValue(value)
		if err != nil {
			return err
		}

		if status == 0 || rec.Status == status {
			out = append(out, rec)
		}
		return nil
	})

	return out, err
}

// DeleteBundle removes the record for hash.
func (r *Registry) DeleteBundle(hash [32]byte) error {
	return r.db.delete(bundleKey(hash))
}

// decodeBundleValue decompresses and decodes a stored bundle.
func (r *Registry) decodeBundleValue(data []byte) (*BundleRecord, error) {
	raw, err := r.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress bundle:\n%w", err)
	}

	return decodeBundle(raw)
}

func identityKey(addr keys.Address) []byte {
	return append(append([]byte(nil), identityPrefix...), addr.String()...)
}

func bundleKey(hash [32]byte) []byte {
	return append(append([]byte(nil), bundlePrefix...), hex.EncodeToString(hash[:])...)
}
