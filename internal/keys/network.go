package keys

import (
	"fmt"
	"strings"
)

// NetworkType identifies the ledger network an account or operation belongs to.
// The value is the leading byte of every address on that network.
type NetworkType uint8

const (
	// MainNet is the public production network.
	MainNet NetworkType = 0x68

	// TestNet is the public test network.
	TestNet NetworkType = 0x98

	// MijinNet is the private-chain production network.
	MijinNet NetworkType = 0x60

	// MijinTestNet is the private-chain test network.
	MijinTestNet NetworkType = 0x90
)

// networkNames maps each known network to its canonical name.
var networkNames = map[NetworkType]string{
	MainNet:      "mainnet",
	TestNet:      "testnet",
	MijinNet:     "mijin",
	MijinTestNet: "mijin-test",
}

// Valid reports whether n is a known network.
func (n NetworkType) Valid() bool {
	_, ok := networkNames[n]
	return ok
}

// String returns the canonical network name.
func (n NetworkType) String() string {
	if name, ok := networkNames[n]; ok {
		return name
	}

	return fmt.Sprintf("network(0x%02x)", uint8(n))
}

// ParseNetwork resolves a network by name. Matching ignores case, '-' and '_'.
func ParseNetwork(s string) (NetworkType, error) {
	want := normalizeName(s)

	for n, name := range networkNames {
		if normalizeName(name) == want {
			return n, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownNetwork, s)
}

// normalizeName lowercases s and drops separators.
func normalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "_", "")
}
