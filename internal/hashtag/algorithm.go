package hashtag

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/sha3"

	"Apostille/internal/keys"
)

// Algorithm identifies a hash function usable in a tagged hash.
type Algorithm uint8

// Supported algorithms.
const (
	MD5 Algorithm = iota + 1
	SHA1
	SHA256
	SHA3_256
	SHA3_512
	Keccak256
	Keccak512
)

// signedFlag is set on the mode byte of every signed tag.
const signedFlag = 0x80

// algorithmRow is one row of the algorithm table.
type algorithmRow struct {
	name     string           // name is the canonical algorithm name
	unsigned byte             // unsigned is the mode byte for plain digests
	signed   byte             // signed is the mode byte for signed digests
	newHash  func() hash.Hash // newHash constructs the hash function
}

// algorithms is the closed table of supported algorithms.
// Mode bytes are part of every issued tag and must never change.
var algorithms = map[Algorithm]algorithmRow{
	MD5:       {"MD5", 0x01, 0x01 | signedFlag, md5.New},
	SHA1:      {"SHA1", 0x02, 0x02 | signedFlag, sha1.New},
	SHA256:    {"SHA256", 0x03, 0x03 | signedFlag, sha256.New},
	SHA3_256:  {"SHA3-256", 0x08, 0x08 | signedFlag, sha3.New256},
	SHA3_512:  {"SHA3-512", 0x09, 0x09 | signedFlag, sha3.New512},
	Keccak256: {"KECCAK-256", 0x0A, 0x0A | signedFlag, sha3.NewLegacyKeccak256},
	Keccak512: {"KECCAK-512", 0x0B, 0x0B | signedFlag, sha3.NewLegacyKeccak512},
}

// unsupportedOn lists algorithm and network pairs the ledger rejects.
var unsupportedOn = map[Algorithm][]keys.NetworkType{
	Keccak512: {keys.MijinNet, keys.MijinTestNet},
}

// Algorithms returns every supported algorithm in code order.
func Algorithms() []Algorithm {
	return []Algorithm{MD5, SHA1, SHA256, SHA3_256, SHA3_512, Keccak256, Keccak512}
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	_, ok := algorithms[a]
	return ok
}

// String returns the canonical algorithm name.
func (a Algorithm) String() string {
	if row, ok := algorithms[a]; ok {
		return row.name
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// Code returns the mode byte for a in the given mode.
func (a Algorithm) Code(signed bool) (byte, error) {
	row, ok := algorithms[a]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, uint8(a))
	}

	if signed {
		return row.signed, nil
	}
	return row.unsigned, nil
}

// Size returns the digest size of a in bytes, or 0 for unknown algorithms.
func (a Algorithm) Size() int {
	row, ok := algorithms[a]
	if !ok {
		return 0
	}
	return row.newHash().Size()
}

// ParseAlgorithm resolves an algorithm name. Matching ignores case, '-' and '_'.
func ParseAlgorithm(s string) (Algorithm, error) {
	want := normalizeName(s)

	for _, a := range Algorithms() {
		if normalizeName(algorithms[a].name) == want {
			return a, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
}

// FromCode resolves a mode byte to its algorithm and mode.
func FromCode(code byte) (Algorithm, bool, error) {
	for a, row := range algorithms {
		switch code {
		case row.unsigned:
			return a, false, nil
		case row.signed:
			return a, true, nil
		}
	}

	return 0, false, fmt.Errorf("%w: mode byte 0x%02x", ErrUnsupportedAlgorithm, code)
}

// CheckNetwork returns ErrAlgorithmNotSupported if the ledger rejects a on network.
func CheckNetwork(a Algorithm, network keys.NetworkType) error {
	if !a.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, uint8(a))
	}

	for _, n := range unsupportedOn[a] {
		if n == network {
			return fmt.Errorf("%w: %s on %s", ErrAlgorithmNotSupported, a, network)
		}
	}

	return nil
}

// normalizeName lowercases s and drops separators.
func normalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "_", "")
}
