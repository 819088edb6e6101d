// Package verifier classifies tagged hashes and checks them against raw data.
package verifier

import (
	"bytes"
	"errors"
	"fmt"

	"Apostille/internal/hashtag"
	"Apostille/internal/keys"
)

var (
	// ErrNotApostille is returned when a payload does not carry the apostille header.
	ErrNotApostille = errors.New("payload is not an apostille tag")

	// ErrWrongMode is returned when a public tag is checked as private or the reverse.
	ErrWrongMode = errors.New("apostille tag has the wrong mode for this check")

	// ErrUnknownAlgorithm is returned when the mode byte names no known algorithm.
	ErrUnknownAlgorithm = errors.New("apostille tag names an unknown algorithm")
)

// Classification describes a payload from its header alone.
type Classification struct {
	IsApostille bool              // IsApostille is true when the magic marker is present
	IsPublic    bool              // IsPublic marks a plain digest tag
	IsPrivate   bool              // IsPrivate marks a signed digest tag
	Algorithm   hashtag.Algorithm // Algorithm is the hash function named by the mode byte
}

// Classify inspects the first hashtag.HeaderSize bytes of payload.
// A payload without the marker returns ErrNotApostille with IsApostille false.
func Classify(payload []byte) (Classification, error) {
	t := hashtag.TaggedHash(payload)

	if len(t) < hashtag.HeaderSize || !t.HasMagic() {
		return Classification{}, ErrNotApostille
	}

	alg, signed, err := t.Algorithm()
	if err != nil {
		return Classification{IsApostille: true}, fmt.Errorf("%w:\n%w", ErrUnknownAlgorithm, err)
	}

	return Classification{
		IsApostille: true,
		IsPublic:    !signed,
		IsPrivate:   signed,
		Algorithm:   alg,
	}, nil
}

// VerifyPublic recomputes the digest of data and compares it with the tag body.
func VerifyPublic(data, payload []byte) (bool, error) {
	c, err := Classify(payload)
	if err != nil {
		return false, err
	}

	if !c.IsPublic {
		return false, fmt.Errorf("%w: signed tag checked as public", ErrWrongMode)
	}

	expected, err := hashtag.Tag(data, c.Algorithm, false)
	if err != nil {
		return false, fmt.Errorf("recompute tag:\n%w", err)
	}

	return bytes.Equal(expected, payload), nil
}

// VerifyPrivate recomputes the digest of data and checks the tag body as a signature
// of it by publicKey. A wrong key or signature returns false without an error.
func VerifyPrivate(publicKey, data, payload []byte) (bool, error) {
	c, err := Classify(payload)
	if err != nil {
		return false, err
	}

	if !c.IsPrivate {
		return false, fmt.Errorf("%w: public tag checked as signed", ErrWrongMode)
	}

	digest, err := hashtag.Digest(data, c.Algorithm)
	if err != nil {
		return false, fmt.Errorf("recompute digest:\n%w", err)
	}

	return keys.Verify(publicKey, digest, hashtag.TaggedHash(payload).Body()), nil
}

// ClassifyHex classifies the hex wire form of a tag.
func ClassifyHex(payload string) (Classification, error) {
	t, err := parse(payload)
	if err != nil {
		return Classification{}, err
	}
	return Classify(t)
}

// VerifyPublicHex is VerifyPublic on the hex wire form.
func VerifyPublicHex(data []byte, payload string) (bool, error) {
	t, err := parse(payload)
	if err != nil {
		return false, err
	}
	return VerifyPublic(data, t)
}

// VerifyPrivateHex is VerifyPrivate on the hex wire form.
func VerifyPrivateHex(publicKey, data []byte, payload string) (bool, error) {
	t, err := parse(payload)
	if err != nil {
		return false, err
	}
	return VerifyPrivate(publicKey, data, t)
}

// parse decodes a hex tag, reporting short or undecodable input as ErrNotApostille.
func parse(payload string) (hashtag.TaggedHash, error) {
	t, err := hashtag.Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("%w:\n%w", ErrNotApostille, err)
	}
	return t, nil
}
