package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// PublicKeySize is the size of an account public key in bytes.
	PublicKeySize = ed25519.PublicKeySize

	// PrivateKeySize is the size of an account private key (the Ed25519 seed) in bytes.
	PrivateKeySize = ed25519.SeedSize

	// SignatureSize is the size of a signature in bytes.
	SignatureSize = ed25519.SignatureSize
)

var (
	// ErrInvalidPrivateKey is returned for private keys of the wrong size or encoding.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrInvalidPublicKey is returned for public keys of the wrong size or encoding.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrUnknownNetwork is returned for network bytes or names that are not recognized.
	ErrUnknownNetwork = errors.New("unknown network type")

	// ErrInvalidAddress is returned when an address fails decoding or checksum validation.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNilAccount is returned when signing with a nil account.
	ErrNilAccount = errors.New("nil account")
)

// Key is anything that speaks for a public key on a network.
type Key interface {
	PublicKey() []byte
	Network() NetworkType
}

// Signer is a Key that also holds the private material to sign with it.
type Signer interface {
	Key
	Sign(data []byte) ([]byte, error)
}

// Account is a keypair able to sign.
type Account struct {
	priv    ed25519.PrivateKey // priv is the expanded Ed25519 private key
	network NetworkType        // network is the network the account lives on
	address Address            // address is derived from the public key and network
}

// PublicAccount is a public key with no private material.
type PublicAccount struct {
	pub     ed25519.PublicKey // pub is the Ed25519 public key
	network NetworkType       // network is the network the account lives on
	address Address           // address is derived from the public key and network
}

// DeriveKeypair builds the account whose private key is privateKey.
// This is the ledger's standard keypair derivation: Ed25519 from a 32-byte seed.
func DeriveKeypair(privateKey []byte, network NetworkType) (*Account, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPrivateKey, len(privateKey), PrivateKeySize)
	}

	priv := ed25519.NewKeyFromSeed(privateKey)

	addr, err := NewAddress(priv.Public().(ed25519.PublicKey), network)
	if err != nil {
		return nil, err
	}

	return &Account{priv: priv, network: network, address: addr}, nil
}

// GenerateAccount creates an account with a random private key.
func GenerateAccount(network NetworkType) (*Account, error) {
	seed := make([]byte, PrivateKeySize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate private key:\n%w", err)
	}

	return DeriveKeypair(seed, network)
}

// AccountFromHex builds an account from a hex-encoded private key.
func AccountFromHex(privateKeyHex string, network NetworkType) (*Account, error) {
	seed, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	return DeriveKeypair(seed, network)
}

// PublicKey returns a copy of the account public key, or nil for a nil account.
func (a *Account) PublicKey() []byte {
	if a == nil {
		return nil
	}
	return append([]byte(nil), a.priv.Public().(ed25519.PublicKey)...)
}

// PrivateKey returns a copy of the 32-byte private key.
func (a *Account) PrivateKey() []byte {
	if a == nil {
		return nil
	}
	return append([]byte(nil), a.priv.Seed()...)
}

// Network returns the account network.
func (a *Account) Network() NetworkType {
	if a == nil {
		return 0
	}
	return a.network
}

// Address returns the account address.
func (a *Account) Address() Address {
	if a == nil {
		return Address{}
	}
	return a.address
}

// Sign signs data with the account private key.
func (a *Account) Sign(data []byte) ([]byte, error) {
	if a == nil {
		return nil, ErrNilAccount
	}
	return ed25519.Sign(a.priv, data), nil
}

// PublicAccount returns the public half of the account.
func (a *Account) PublicAccount() *PublicAccount {
	if a == nil {
		return nil
	}

	return &PublicAccount{
		pub:     a.priv.Public().(ed25519.PublicKey),
		network: a.network,
		address: a.address,
	}
}

// NewPublicAccount wraps a raw public key.
func NewPublicAccount(publicKey []byte, network NetworkType) (*PublicAccount, error) {
	addr, err := NewAddress(publicKey, network)
	if err != nil {
		return nil, err
	}

	return &PublicAccount{
		pub:     append(ed25519.PublicKey(nil), publicKey...),
		network: network,
		address: addr,
	}, nil
}

// PublicAccountFromHex wraps a hex-encoded public key.
func PublicAccountFromHex(publicKeyHex string, network NetworkType) (*PublicAccount, error) {
	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	return NewPublicAccount(pub, network)
}

// PublicKey returns a copy of the public key, or nil for a nil account.
func (p *PublicAccount) PublicKey() []byte {
	if p == nil {
		return nil
	}
	return append([]byte(nil), p.pub...)
}

// Network returns the account network.
func (p *PublicAccount) Network() NetworkType {
	if p == nil {
		return 0
	}
	return p.network
}

// Address returns the account address.
func (p *PublicAccount) Address() Address {
	if p == nil {
		return Address{}
	}
	return p.address
}

// Verify checks a signature made by this account.
func (p *PublicAccount) Verify(data, signature []byte) bool {
	if p == nil {
		return false
	}
	return Verify(p.pub, data, signature)
}

// Verify checks an Ed25519 signature. Malformed keys or signatures verify as false.
func Verify(publicKey, message, signature []byte) bool {
	if len(publicKey) != PublicKeySize || len(signature) != SignatureSize {
		return false
	}

	return ed25519.Verify(publicKey, message, signature)
}

// HasPrivateKey reports whether k can sign.
func HasPrivateKey(k Key) bool {
	_, ok := k.(Signer)
	return ok
}
