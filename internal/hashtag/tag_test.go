package hashtag

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"Apostille/internal/keys"
)

// testAccount returns a fixed account on TestNet.
func testAccount(t *testing.T, b byte) *keys.Account {
	t.Helper()

	seed := bytes.Repeat([]byte{b}, keys.PrivateKeySize)
	acc, err := keys.DeriveKeypair(seed, keys.TestNet)
	if err != nil {
		t.Fatalf("derive account: %v", err)
	}

	return acc
}

// TestDigestKnownVectors tests digests of "abc" and "" against published values.
func TestDigestKnownVectors(t *testing.T) {
	cases := []struct {
		alg  Algorithm
		data string
		want string
	}{
		{MD5, "abc", "900150983cd24fb0d6963f7d28e17f72"},
		{SHA1, "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{SHA256, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{SHA3_256, "abc", "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"},
		{Keccak256, "", "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
	}

	for _, c := range cases {
		got, err := Digest([]byte(c.data), c.alg)
		if err != nil {
			t.Fatalf("%s: %v", c.alg, err)
		}

		if hex.EncodeToString(got) != c.want {
			t.Errorf("%s(%q): got %x, want %s", c.alg, c.data, got, c.want)
		}
	}
}

// TestTagWireLayout tests the exact hex layout of an unsigned tag.
func TestTagWireLayout(t *testing.T) {
	tag, err := Tag([]byte("abc"), SHA256, false)
	if err != nil {
		t.Fatalf("tag: %v", err)
	}

	want := "fe4e5459" + "03" + "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if tag.Hex() != want {
		t.Errorf("got %s, want %s", tag.Hex(), want)
	}
}

// TestTagSignedModeByte tests that the signed flag selects the signed mode byte.
func TestTagSignedModeByte(t *testing.T) {
	for _, a := range Algorithms() {
		plain, _ := Tag([]byte("data"), a, false)
		signed, _ := Tag([]byte("data"), a, true)

		pm, _ := plain.Mode()
		sm, _ := signed.Mode()

		if pm == sm {
			t.Errorf("%s: signed and unsigned mode bytes collide (0x%02x)", a, pm)
		}

		if sm != pm|signedFlag {
			t.Errorf("%s: signed mode 0x%02x, want 0x%02x", a, sm, pm|signedFlag)
		}

		if !bytes.Equal(plain.Body(), signed.Body()) {
			t.Errorf("%s: bodies should both be the digest", a)
		}

		if len(plain.Body()) != a.Size() {
			t.Errorf("%s: body %d bytes, want %d", a, len(plain.Body()), a.Size())
		}
	}
}

// TestCodesUnique tests that no two algorithms share a mode byte.
func TestCodesUnique(t *testing.T) {
	seen := make(map[byte]Algorithm)

	for _, a := range Algorithms() {
		for _, signed := range []bool{false, true} {
			code, err := a.Code(signed)
			if err != nil {
				t.Fatalf("%s: %v", a, err)
			}

			if prev, dup := seen[code]; dup {
				t.Errorf("code 0x%02x used by %s and %s", code, prev, a)
			}
			seen[code] = a

			got, gotSigned, err := FromCode(code)
			if err != nil || got != a || gotSigned != signed {
				t.Errorf("FromCode(0x%02x) = %s,%v,%v", code, got, gotSigned, err)
			}
		}
	}
}

// TestSignAndTag tests that the signed body is a signature over the digest.
func TestSignAndTag(t *testing.T) {
	acc := testAccount(t, 7)
	data := []byte("contract v1")

	tag, err := SignAndTag(data, SHA3_256, acc)
	if err != nil {
		t.Fatalf("sign and tag: %v", err)
	}

	a, signed, err := tag.Algorithm()
	if err != nil || a != SHA3_256 || !signed {
		t.Fatalf("header: %s signed=%v err=%v", a, signed, err)
	}

	digest, _ := Digest(data, SHA3_256)
	if !keys.Verify(acc.PublicKey(), digest, tag.Body()) {
		t.Error("body should be a signature over the digest")
	}

	if keys.Verify(acc.PublicKey(), data, tag.Body()) {
		t.Error("body should not be a signature over the raw data")
	}
}

// failingSigner always fails to sign.
type failingSigner struct{ *keys.Account }

func (failingSigner) Sign([]byte) ([]byte, error) { return nil, errors.New("device unplugged") }

// TestSignAndTagSignerError tests that signer failures propagate.
func TestSignAndTagSignerError(t *testing.T) {
	_, err := SignAndTag([]byte("x"), SHA256, failingSigner{testAccount(t, 1)})
	if err == nil || !strings.Contains(err.Error(), "device unplugged") {
		t.Fatalf("expected signer error, got %v", err)
	}
}

// TestTagUnsupportedAlgorithm tests rejection of values outside the table.
func TestTagUnsupportedAlgorithm(t *testing.T) {
	if _, err := Tag([]byte("x"), Algorithm(42), false); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

// TestCheckNetwork tests the network-class restriction on KECCAK-512.
func TestCheckNetwork(t *testing.T) {
	for _, n := range []keys.NetworkType{keys.MijinNet, keys.MijinTestNet} {
		if err := CheckNetwork(Keccak512, n); !errors.Is(err, ErrAlgorithmNotSupported) {
			t.Errorf("%s: expected ErrAlgorithmNotSupported, got %v", n, err)
		}
	}

	if err := CheckNetwork(Keccak512, keys.MainNet); err != nil {
		t.Errorf("mainnet: %v", err)
	}

	if err := CheckNetwork(Keccak256, keys.MijinNet); err != nil {
		t.Errorf("keccak-256 on mijin: %v", err)
	}
}

// TestParse tests hex decoding in either case.
func TestParse(t *testing.T) {
	tag, _ := Tag([]byte("abc"), MD5, false)

	upper, err := Parse(strings.ToUpper(tag.Hex()))
	if err != nil {
		t.Fatalf("parse upper: %v", err)
	}

	if !bytes.Equal(upper, tag) {
		t.Error("upper-case parse mismatch")
	}

	if _, err := Parse("fe4e"); !errors.Is(err, ErrMalformedTag) {
		t.Errorf("short tag: expected ErrMalformedTag, got %v", err)
	}

	if _, err := Parse("zz4e545901"); !errors.Is(err, ErrMalformedTag) {
		t.Errorf("bad hex: expected ErrMalformedTag, got %v", err)
	}
}

// TestParseAlgorithm tests name resolution.
func TestParseAlgorithm(t *testing.T) {
	cases := map[string]Algorithm{
		"sha256":     SHA256,
		"SHA3-512":   SHA3_512,
		"sha3_256":   SHA3_256,
		"keccak-256": Keccak256,
		"Keccak512":  Keccak512,
		"md5":        MD5,
	}

	for name, want := range cases {
		got, err := ParseAlgorithm(name)
		if err != nil || got != want {
			t.Errorf("%q: got %s (%v), want %s", name, got, err, want)
		}
	}

	if _, err := ParseAlgorithm("crc32"); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}
