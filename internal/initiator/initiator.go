// Package initiator puts the three ways of producing a signature behind one contract.
//
// A Direct initiator holds a keypair. A Multisig initiator speaks for a multisig
// account through its local cosigner keypairs. An Unsigned initiator names a key
// this process cannot use, such as one held on a hardware device.
package initiator

import (
	"bytes"
	"errors"
	"fmt"

	"Apostille/internal/keys"
	"Apostille/internal/ledger"
)

// Kind discriminates initiator variants.
type Kind uint8

// Initiator variants.
const (
	KindDirect Kind = iota + 1
	KindMultisig
	KindUnsigned
)

var (
	// ErrMissingCosigners is returned when a multisig initiator is built without cosigners.
	ErrMissingCosigners = errors.New("multisig initiator needs at least one cosigner")

	// ErrAccountRequiresPrivateKey is returned when a direct initiator is built from a public key.
	ErrAccountRequiresPrivateKey = errors.New("account requires a private key")

	// ErrUnableToSign is returned when an unsigned initiator is asked to sign.
	ErrUnableToSign = errors.New("initiator unable to sign")
)

// Initiator produces signed operations on behalf of one public key.
type Initiator interface {
	// Kind returns the variant.
	Kind() Kind

	// Network returns the network the initiator signs for.
	Network() keys.NetworkType

	// PublicKey returns the key the initiator speaks for.
	PublicKey() []byte

	// Complete reports whether produced aggregates are self-contained.
	Complete() bool

	// CanSign reports whether this process can sign for the initiator.
	CanSign() bool

	// Sign signs op, wrapping it first when the variant needs to.
	Sign(op ledger.Operation) (*ledger.SignedOperation, error)

	sealed()
}

// Direct signs with a keypair it holds.
type Direct struct {
	account keys.Signer // account holds the private key
}

// Multisig signs for a multisig account using local cosigner keypairs.
type Multisig struct {
	represented []byte           // represented is the multisig account public key
	network     keys.NetworkType // network is the multisig account network
	cosigners   []keys.Signer    // cosigners sign in order; the first is primary
	complete    bool             // complete selects complete over bonded aggregates
}

// Unsigned names a key this process cannot sign with.
type Unsigned struct {
	represented []byte           // represented is the public key of the absent signer
	network     keys.NetworkType // network is the account network
}

// NewDirect builds a direct initiator. k must hold private material.
func NewDirect(k keys.Key) (*Direct, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: no account", ErrAccountRequiresPrivateKey)
	}

	signer, ok := k.(keys.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrAccountRequiresPrivateKey, k.PublicKey())
	}

	pub := signer.PublicKey()
	if len(pub) == 0 {
		return nil, fmt.Errorf("%w: no account", ErrAccountRequiresPrivateKey)
	}

	if len(pub) != keys.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", keys.ErrInvalidPublicKey, len(pub))
	}

	return &Direct{account: signer}, nil
}

// NewMultisig builds a multisig initiator for represented, signed by cosigners in order.
func NewMultisig(represented keys.Key, cosigners []keys.Signer, complete bool) (*Multisig, error) {
	if len(cosigners) == 0 {
		return nil, ErrMissingCosigners
	}

	if represented == nil || len(represented.PublicKey()) != keys.PublicKeySize {
		return nil, fmt.Errorf("%w: multisig account", keys.ErrInvalidPublicKey)
	}

	network := represented.Network()

	for i, c := range cosigners {
		if c == nil {
			return nil, fmt.Errorf("%w: cosigner %d is nil", ErrMissingCosigners, i)
		}

		if len(c.PublicKey()) != keys.PublicKeySize {
			return nil, fmt.Errorf("%w: cosigner %d has no key", ErrAccountRequiresPrivateKey, i)
		}

		if c.Network() != network {
			return nil, fmt.Errorf("%w: cosigner %d on %s, multisig on %s", ledger.ErrNetworkMismatch, i, c.Network(), network)
		}
	}

	return &Multisig{
		represented: represented.PublicKey(),
		network:     network,
		cosigners:   append([]keys.Signer(nil), cosigners...),
		complete:    complete,
	}, nil
}

// NewUnsigned builds a placeholder for represented.
func NewUnsigned(represented keys.Key) (*Unsigned, error) {
	if represented == nil || len(represented.PublicKey()) != keys.PublicKeySize {
		return nil, fmt.Errorf("%w: unsigned initiator", keys.ErrInvalidPublicKey)
	}

	return &Unsigned{represented: represented.PublicKey(), network: represented.Network()}, nil
}

func (d *Direct) Kind() Kind                { return KindDirect }
func (d *Direct) Network() keys.NetworkType { return d.account.Network() }
func (d *Direct) PublicKey() []byte         { return d.account.PublicKey() }
func (d *Direct) Complete() bool            { return true }
func (d *Direct) CanSign() bool             { return true }
func (d *Direct) sealed()                   {}

// Sign signs op with the held keypair.
func (d *Direct) Sign(op ledger.Operation) (*ledger.SignedOperation, error) {
	if err := CheckNetwork(d, op); err != nil {
		return nil, err
	}

	return ledger.Sign(op, d.account)
}

func (m *Multisig) Kind() Kind                { return KindMultisig }
func (m *Multisig) Network() keys.NetworkType { return m.network }
func (m *Multisig) PublicKey() []byte         { return bytes.Clone(m.represented) }
func (m *Multisig) Complete() bool            { return m.complete }
func (m *Multisig) CanSign() bool             { return len(m.cosigners) > 0 }
func (m *Multisig) sealed()                   {}

// Sign signs op through the cosigners.
// Lock-funds operations are signed by the first cosigner alone. Aggregates are signed
// by the first cosigner with the rest attached as cosignatures. Anything else is first
// wrapped in an aggregate issued by the multisig account.
func (m *Multisig) Sign(op ledger.Operation) (*ledger.SignedOperation, error) {
	if err := CheckNetwork(m, op); err != nil {
		return nil, err
	}

	switch op.(type) {
	case *ledger.LockFunds:
		return ledger.Sign(op, m.cosigners[0])

	case *ledger.Aggregate:
		return ledger.SignWithCosigners(op, m.cosigners[0], m.cosigners[1:])
	}

	agg, err := ledger.Wrap(op, m.represented, !m.complete)
	if err != nil {
		return nil, fmt.Errorf("wrap for multisig:\n%w", err)
	}

	return ledger.SignWithCosigners(agg, m.cosigners[0], m.cosigners[1:])
}

// Cosigners returns the cosigner keypairs in signing order.
func (m *Multisig) Cosigners() []keys.Signer {
	return append([]keys.Signer(nil), m.cosigners...)
}

func (u *Unsigned) Kind() Kind                { return KindUnsigned }
func (u *Unsigned) Network() keys.NetworkType { return u.network }
func (u *Unsigned) PublicKey() []byte         { return bytes.Clone(u.represented) }
func (u *Unsigned) Complete() bool            { return false }
func (u *Unsigned) CanSign() bool             { return false }
func (u *Unsigned) sealed()                   {}

// Sign always fails with ErrUnableToSign.
func (u *Unsigned) Sign(op ledger.Operation) (*ledger.SignedOperation, error) {
	if err := CheckNetwork(u, op); err != nil {
		return nil, err
	}

	return nil, fmt.Errorf("%w: %x", ErrUnableToSign, u.represented)
}

// Keypairs returns the local signing keys of i in signing order.
// Unsigned initiators have none.
func Keypairs(i Initiator) []keys.Signer {
	switch v := i.(type) {
	case *Direct:
		return []keys.Signer{v.account}
	case *Multisig:
		return v.Cosigners()
	default:
		return nil
	}
}

// MultisigPublicKey returns the multisig account key of i, or nil for other variants.
func MultisigPublicKey(i Initiator) []byte {
	if m, ok := i.(*Multisig); ok {
		return m.PublicKey()
	}
	return nil
}

// Same reports whether a and b are the same variant speaking for the same key.
func Same(a, b Initiator) bool {
	return a.Kind() == b.Kind() && a.Network() == b.Network() && bytes.Equal(a.PublicKey(), b.PublicKey())
}

// CheckNetwork returns ledger.ErrNetworkMismatch when op targets another network than i.
// Every Sign runs it before any signing work.
func CheckNetwork(i Initiator, op ledger.Operation) error {
	if op == nil {
		return fmt.Errorf("%w: nil operation", ledger.ErrInvalidOperation)
	}

	if op.Network() != i.Network() {
		return fmt.Errorf("%w: operation on %s, initiator on %s", ledger.ErrNetworkMismatch, op.Network(), i.Network())
	}

	return nil
}
