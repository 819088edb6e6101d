package verifier

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"Apostille/internal/hashtag"
	"Apostille/internal/keys"
)

var sample = []byte("Apostille is a notarization service")

// signer returns a fixed TestNet account.
func signer(t *testing.T, b byte) *keys.Account {
	t.Helper()

	acc, err := keys.DeriveKeypair(bytes.Repeat([]byte{b}, keys.PrivateKeySize), keys.TestNet)
	if err != nil {
		t.Fatalf("derive account: %v", err)
	}

	return acc
}

// flip returns a copy of data with one byte changed.
func flip(data []byte, i int) []byte {
	out := bytes.Clone(data)
	out[i] ^= 0x01
	return out
}

// TestPublicRoundTrip tests that every algorithm verifies its own public tag.
func TestPublicRoundTrip(t *testing.T) {
	for _, a := range hashtag.Algorithms() {
		tag, err := hashtag.Tag(sample, a, false)
		if err != nil {
			t.Fatalf("tag %s: %v", a, err)
		}

		ok, err := VerifyPublic(sample, tag)
		if err != nil || !ok {
			t.Errorf("%s: verify = %v, %v", a, ok, err)
		}

		ok, err = VerifyPublic(flip(sample, 3), tag)
		if err != nil || ok {
			t.Errorf("%s: verify of altered data = %v, %v", a, ok, err)
		}
	}
}

// TestPrivateRoundTrip tests that every algorithm verifies its own signed tag.
func TestPrivateRoundTrip(t *testing.T) {
	owner, other := signer(t, 1), signer(t, 2)

	for _, a := range hashtag.Algorithms() {
		tag, err := hashtag.SignAndTag(sample, a, owner)
		if err != nil {
			t.Fatalf("sign and tag %s: %v", a, err)
		}

		ok, err := VerifyPrivate(owner.PublicKey(), sample, tag)
		if err != nil || !ok {
			t.Errorf("%s: verify = %v, %v", a, ok, err)
		}

		ok, err = VerifyPrivate(other.PublicKey(), sample, tag)
		if err != nil || ok {
			t.Errorf("%s: verify with other key = %v, %v", a, ok, err)
		}

		ok, err = VerifyPrivate(owner.PublicKey(), flip(sample, 0), tag)
		if err != nil || ok {
			t.Errorf("%s: verify of altered data = %v, %v", a, ok, err)
		}
	}
}

// TestClassify tests mode detection from the header.
func TestClassify(t *testing.T) {
	public, _ := hashtag.Tag(sample, hashtag.SHA256, false)
	private, _ := hashtag.SignAndTag(sample, hashtag.SHA3_512, signer(t, 1))

	c, err := Classify(public)
	if err != nil {
		t.Fatalf("classify public: %v", err)
	}
	if !c.IsApostille || !c.IsPublic || c.IsPrivate || c.Algorithm != hashtag.SHA256 {
		t.Errorf("public classification: %+v", c)
	}

	c, err = Classify(private)
	if err != nil {
		t.Fatalf("classify private: %v", err)
	}
	if !c.IsApostille || c.IsPublic || !c.IsPrivate || c.Algorithm != hashtag.SHA3_512 {
		t.Errorf("private classification: %+v", c)
	}
}

// TestClassifyHeaderOnly tests that five bytes are enough to classify.
func TestClassifyHeaderOnly(t *testing.T) {
	tag, _ := hashtag.Tag(sample, hashtag.Keccak256, true)

	c, err := Classify(tag[:hashtag.HeaderSize])
	if err != nil {
		t.Fatalf("classify header: %v", err)
	}

	if !c.IsPrivate || c.Algorithm != hashtag.Keccak256 {
		t.Errorf("header classification: %+v", c)
	}
}

// TestCorruptedMagic tests that a corrupted first byte is not an apostille.
func TestCorruptedMagic(t *testing.T) {
	tag, _ := hashtag.Tag(sample, hashtag.SHA256, false)

	c, err := Classify(flip(tag, 0))
	if !errors.Is(err, ErrNotApostille) {
		t.Fatalf("expected ErrNotApostille, got %v", err)
	}

	if c.IsApostille {
		t.Error("corrupted tag should not classify as apostille")
	}

	if _, err := VerifyPublic(sample, flip(tag, 0)); !errors.Is(err, ErrNotApostille) {
		t.Errorf("verify public: expected ErrNotApostille, got %v", err)
	}
}

// TestShortPayload tests payloads shorter than the header.
func TestShortPayload(t *testing.T) {
	if _, err := Classify(hashtag.Magic[:]); !errors.Is(err, ErrNotApostille) {
		t.Errorf("expected ErrNotApostille, got %v", err)
	}

	if _, err := Classify(nil); !errors.Is(err, ErrNotApostille) {
		t.Errorf("expected ErrNotApostille for nil, got %v", err)
	}
}

// TestUnknownAlgorithm tests a valid marker with an unassigned mode byte.
func TestUnknownAlgorithm(t *testing.T) {
	payload := append(hashtag.Magic[:], 0x7F, 0x00)

	c, err := Classify(payload)
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}

	if !c.IsApostille {
		t.Error("marker is present, payload should still be an apostille")
	}
}

// TestWrongMode tests that each check rejects the other mode.
func TestWrongMode(t *testing.T) {
	acc := signer(t, 1)
	public, _ := hashtag.Tag(sample, hashtag.SHA256, false)
	private, _ := hashtag.SignAndTag(sample, hashtag.SHA256, acc)

	if _, err := VerifyPublic(sample, private); !errors.Is(err, ErrWrongMode) {
		t.Errorf("public check of signed tag: %v", err)
	}

	if _, err := VerifyPrivate(acc.PublicKey(), sample, public); !errors.Is(err, ErrWrongMode) {
		t.Errorf("private check of public tag: %v", err)
	}
}

// TestHexVariants tests the wire form entry points, upper case included.
func TestHexVariants(t *testing.T) {
	acc := signer(t, 1)
	public, _ := hashtag.Tag(sample, hashtag.MD5, false)
	private, _ := hashtag.SignAndTag(sample, hashtag.SHA1, acc)

	if ok, err := VerifyPublicHex(sample, strings.ToUpper(public.Hex())); err != nil || !ok {
		t.Errorf("public hex: %v, %v", ok, err)
	}

	if ok, err := VerifyPrivateHex(acc.PublicKey(), sample, private.Hex()); err != nil || !ok {
		t.Errorf("private hex: %v, %v", ok, err)
	}

	c, err := ClassifyHex(private.Hex())
	if err != nil || !c.IsPrivate || c.Algorithm != hashtag.SHA1 {
		t.Errorf("classify hex: %+v, %v", c, err)
	}

	if _, err := ClassifyHex("not hex"); !errors.Is(err, ErrNotApostille) {
		t.Errorf("expected ErrNotApostille for bad hex, got %v", err)
	}
}
