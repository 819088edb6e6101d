package keys

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
)

const (
	// AddressSize is the size of a raw address: network byte, 20-byte body, 4-byte checksum.
	AddressSize = 1 + addressBodySize + addressChecksumSize

	addressBodySize     = 20
	addressChecksumSize = 4
)

// Address is the ledger locator of an account.
// Layout: network(1) || blake3(publicKey)[:20] || blake3(network || body)[:4].
type Address [AddressSize]byte

// NewAddress derives the address of publicKey on network.
func NewAddress(publicKey []byte, network NetworkType) (Address, error) {
	var a Address

	if len(publicKey) != PublicKeySize {
		return a, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(publicKey), PublicKeySize)
	}

	if !network.Valid() {
		return a, fmt.Errorf("%w: 0x%02x", ErrUnknownNetwork, uint8(network))
	}

	body := blake3.Sum256(publicKey)

	a[0] = byte(network)
	copy(a[1:1+addressBodySize], body[:addressBodySize])

	sum := addressChecksum(a[:1+addressBodySize])
	copy(a[1+addressBodySize:], sum)

	return a, nil
}

// ParseAddress decodes the base58 text form of an address and validates it.
func ParseAddress(s string) (Address, error) {
	var a Address

	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	if len(raw) != AddressSize {
		return a, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAddress, len(raw), AddressSize)
	}

	copy(a[:], raw)

	if !a.Network().Valid() {
		return a, fmt.Errorf("%w: unknown network 0x%02x", ErrInvalidAddress, raw[0])
	}

	if !bytes.Equal(addressChecksum(raw[:1+addressBodySize]), raw[1+addressBodySize:]) {
		return a, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	return a, nil
}

// Network returns the network encoded in the address.
func (a Address) Network() NetworkType {
	return NetworkType(a[0])
}

// Bytes returns the raw address bytes.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the base58 text form.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// addressChecksum returns the 4-byte checksum of the network byte and body.
func addressChecksum(prefix []byte) []byte {
	sum := blake3.Sum256(prefix)
	return sum[:addressChecksumSize]
}
