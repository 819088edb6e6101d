// Package identity derives notarization accounts from a seed and a deriving key.
//
// The derived private key is the deriving account's signature over SHA-256(seed),
// normalized to key length. Ed25519 signatures are deterministic, so anyone holding
// the deriving key reproduces the same account from the same seed.
package identity

import (
	"bytes"
	"errors"
	"fmt"

	"Apostille/internal/hashtag"
	"Apostille/internal/keys"
	"Apostille/internal/logger"
)

// seedAlgorithm hashes seeds before signing.
const seedAlgorithm = hashtag.SHA256

// ErrInvalidDerivingKey is returned when the deriving signer is missing or malformed.
var ErrInvalidDerivingKey = errors.New("invalid deriving key")

// Identity is a derived notarization keypair. It is immutable.
type Identity struct {
	seedHash   []byte        // seedHash is SHA-256 of the seed
	derivingPK []byte        // derivingPK is the public key of the deriving account
	account    *keys.Account // account is the derived keypair
}

// Derive builds the identity for seed under the deriving account.
func Derive(seed string, deriving keys.Signer, network keys.NetworkType) (*Identity, error) {
	if deriving == nil {
		return nil, fmt.Errorf("%w: no signer", ErrInvalidDerivingKey)
	}

	derivingPK := deriving.PublicKey()
	if len(derivingPK) != keys.PublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes", ErrInvalidDerivingKey, len(derivingPK))
	}

	seedHash, err := hashtag.Digest([]byte(seed), seedAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("hash seed:\n%w", err)
	}

	sig, err := deriving.Sign(seedHash)
	if err != nil {
		return nil, fmt.Errorf("sign seed hash:\n%w", err)
	}

	account, err := keys.DeriveKeypair(NormalizeKey(sig), network)
	if err != nil {
		return nil, fmt.Errorf("derive keypair:\n%w", err)
	}

	logger.Debug("identity derived",
		"address", account.Address().String(),
		"network", network.String(),
	)

	return &Identity{
		seedHash:   seedHash,
		derivingPK: derivingPK,
		account:    account,
	}, nil
}

// NormalizeKey shapes a signature into a private key.
// One leading zero byte is stripped from oversized input, the rest is truncated to
// key length, and short input is left-padded with zeros.
func NormalizeKey(sig []byte) []byte {
	if len(sig) > keys.PrivateKeySize && sig[0] == 0 {
		sig = sig[1:]
	}

	key := make([]byte, keys.PrivateKeySize)
	if len(sig) >= keys.PrivateKeySize {
		copy(key, sig[:keys.PrivateKeySize])
	} else {
		copy(key[keys.PrivateKeySize-len(sig):], sig)
	}

	return key
}

// SeedHash returns a copy of SHA-256(seed).
func (id *Identity) SeedHash() []byte {
	return bytes.Clone(id.seedHash)
}

// DerivingPublicKey returns a copy of the deriving account public key.
func (id *Identity) DerivingPublicKey() []byte {
	return bytes.Clone(id.derivingPK)
}

// PrivateKey returns a copy of the derived private key.
func (id *Identity) PrivateKey() []byte {
	return id.account.PrivateKey()
}

// PublicKey returns a copy of the derived public key.
func (id *Identity) PublicKey() []byte {
	return id.account.PublicKey()
}

// Address returns the derived account address.
func (id *Identity) Address() keys.Address {
	return id.account.Address()
}

// Network returns the network of the derived account.
func (id *Identity) Network() keys.NetworkType {
	return id.account.Network()
}

// Account returns the derived keypair as a signer.
func (id *Identity) Account() *keys.Account {
	return id.account
}

// Equal reports whether two identities hold the same derived keypair and origin.
func (id *Identity) Equal(other *Identity) bool {
	if id == nil || other == nil {
		return id == other
	}

	return bytes.Equal(id.seedHash, other.seedHash) &&
		bytes.Equal(id.derivingPK, other.derivingPK) &&
		bytes.Equal(id.PrivateKey(), other.PrivateKey()) &&
		id.Address() == other.Address()
}

// Recompute reports whether (seed, deriving) reproduces this identity.
func (id *Identity) Recompute(seed string, deriving keys.Signer) (bool, error) {
	other, err := Derive(seed, deriving, id.Network())
	if err != nil {
		return false, err
	}

	return id.Equal(other), nil
}
