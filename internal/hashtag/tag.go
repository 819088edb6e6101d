package hashtag

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"Apostille/internal/keys"
)

// HeaderSize is the number of leading bytes that classify a tagged hash.
const HeaderSize = len(Magic) + 1

// Magic marks a payload as an apostille tag: 0xFE "NTY".
var Magic = [4]byte{0xFE, 0x4E, 0x54, 0x59}

var (
	// ErrUnsupportedAlgorithm is returned for algorithm values or mode bytes outside the table.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

	// ErrAlgorithmNotSupported is returned when the ledger rejects an algorithm on a network class.
	ErrAlgorithmNotSupported = errors.New("algorithm not supported on this network class")

	// ErrMalformedTag is returned when a tag is too short or not valid hex.
	ErrMalformedTag = errors.New("malformed tagged hash")
)

// TaggedHash is magic(4) || mode(1) || digest or signature.
type TaggedHash []byte

// Digest hashes data with a.
func Digest(data []byte, a Algorithm) ([]byte, error) {
	spec, ok := algorithms[a]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, uint8(a))
	}

	h := spec.newHash()
	h.Write(data)

	return h.Sum(nil), nil
}

// Tag hashes data with a and prefixes the digest with the magic and the mode byte
// selected by signed.
func Tag(data []byte, a Algorithm, signed bool) (TaggedHash, error) {
	digest, err := Digest(data, a)
	if err != nil {
		return nil, err
	}

	code, _ := a.Code(signed)

	return assemble(code, digest), nil
}

// SignAndTag hashes data with a, signs the digest with signer and tags the signature.
// The signature is the body; verifiers recompute the digest and check it.
func SignAndTag(data []byte, a Algorithm, signer keys.Signer) (TaggedHash, error) {
	if signer == nil {
		return nil, errors.New("sign and tag: nil signer")
	}

	digest, err := Digest(data, a)
	if err != nil {
		return nil, err
	}

	sig, err := signer.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("sign digest:\n%w", err)
	}

	code, _ := a.Code(true)

	return assemble(code, sig), nil
}

// Parse decodes the hex wire form of a tag. Upper and lower case are accepted.
func Parse(s string) (TaggedHash, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTag, err)
	}

	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedTag, len(raw))
	}

	return TaggedHash(raw), nil
}

// HasMagic reports whether t starts with the apostille marker.
func (t TaggedHash) HasMagic() bool {
	return len(t) >= len(Magic) && bytes.Equal(t[:len(Magic)], Magic[:])
}

// Header returns the first HeaderSize bytes, or nil if t is shorter.
func (t TaggedHash) Header() []byte {
	if len(t) < HeaderSize {
		return nil
	}
	return t[:HeaderSize]
}

// Mode returns the mode byte.
func (t TaggedHash) Mode() (byte, error) {
	if len(t) < HeaderSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrMalformedTag, len(t))
	}
	return t[len(Magic)], nil
}

// Algorithm returns the algorithm and mode encoded in the header.
func (t TaggedHash) Algorithm() (Algorithm, bool, error) {
	code, err := t.Mode()
	if err != nil {
		return 0, false, err
	}
	return FromCode(code)
}

// Body returns the digest or signature following the header.
func (t TaggedHash) Body() []byte {
	if len(t) < HeaderSize {
		return nil
	}
	return t[HeaderSize:]
}

// Hex returns the lowercase hex wire form.
func (t TaggedHash) Hex() string {
	return hex.EncodeToString(t)
}

// String implements fmt.Stringer.
func (t TaggedHash) String() string {
	return t.Hex()
}

// assemble concatenates magic, mode and body.
func assemble(code byte, body []byte) TaggedHash {
	out := make([]byte, 0, HeaderSize+len(body))
	out = append(out, Magic[:]...)
	out = append(out, code)
	out = append(out, body...)

	return TaggedHash(out)
}
