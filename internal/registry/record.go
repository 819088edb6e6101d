package registry

import (
	"encoding/binary"
	"errors"
	"fmt"

	"Apostille/internal/keys"
)

// ErrMalformedRecord is returned when a stored value cannot be decoded.
var ErrMalformedRecord = errors.New("malformed registry record")

// Status is the announce state of a recorded bundle.
type Status uint8

// Bundle announce states.
const (
	StatusPending Status = iota + 1
	StatusAnnounced
	StatusConfirmed
	StatusFailed
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAnnounced:
		return "announced"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// IdentityRecord is what the registry knows about a derived identity.
// Private material is never stored; it is recomputed from Seed and the deriving key.
type IdentityRecord struct {
	Address           keys.Address // Address is the identity address and record key
	PublicKey         []byte       // PublicKey is the identity public key
	DerivingPublicKey []byte       // DerivingPublicKey is the controlling account key
	Seed              string       // Seed is the notarization seed
	Multisig          bool         // Multisig is set once the identity is associated with owners
	CreatedAt         int64        // CreatedAt is the unix time of the first record
}

// BundleRecord tracks one signed bundle.
type BundleRecord struct {
	Hash     [32]byte     // Hash is the hash of the main operation and record key
	Kind     uint8        // Kind is the bundler.BundleKind value
	Identity keys.Address // Identity is the notarized identity, zero when unknown
	Envelope []byte       // Envelope is the signed main operation
	Lock     []byte       // Lock is the signed lock-funds operation, if any
	Status   Status       // Status is the last known announce state
	Updated  int64        // Updated is the unix time of the last status change
}

// encodeIdentity serializes r: fixed fields little-endian, byte fields u32 length-prefixed.
func encodeIdentity(r *IdentityRecord) []byte {
	buf := make([]byte, 0, keys.AddressSize+4+len(r.PublicKey)+4+len(r.DerivingPublicKey)+4+len(r.Seed)+1+8)

	buf = append(buf, r.Address[:]...)
	buf = appendBytes(buf, r.PublicKey)
	buf = appendBytes(buf, r.DerivingPublicKey)
	buf = appendBytes(buf, []byte(r.Seed))
	buf = append(buf, boolByte(r.Multisig))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(r.CreatedAt))

	return buf
}

// decodeIdentity is the inverse of encodeIdentity.
func decodeIdentity(data []byte) (*IdentityRecord, error) {
	d := decoder{data: data}
	r := &IdentityRecord{}

	copy(r.Address[:], d.fixed(keys.AddressSize))
	r.PublicKey = d.bytes()
	r.DerivingPublicKey = d.bytes()
	r.Seed = string(d.bytes())
	r.Multisig = d.fixed(1)[0] == 1
	r.CreatedAt = int64(binary.LittleEndian.Uint64(d.fixed(8)))

	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("decode identity:\n%w", err)
	}

	return r, nil
}

// encodeBundle serializes r in the same layout rules as encodeIdentity.
func encodeBundle(r *BundleRecord) []byte {
	buf := make([]byte, 0, 32+1+keys.AddressSize+4+len(r.Envelope)+4+len(r.Lock)+1+8)

	buf = append(buf, r.Hash[:]...)
	buf = append(buf, r.Kind)
	buf = append(buf, r.Identity[:]...)
	buf = appendBytes(buf, r.Envelope)
	buf = appendBytes(buf, r.Lock)
	buf = append(buf, byte(r.Status))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(r.Updated))

	return buf
}

// decodeBundle is the inverse of encodeBundle.
func decodeBundle(data []byte) (*BundleRecord, error) {
	d := decoder{data: data}
	r := &BundleRecord{}

	copy(r.Hash[:], d.fixed(32))
	r.Kind = d.fixed(1)[0]
	copy(r.Identity[:], d.fixed(keys.AddressSize))
	r.Envelope = d.bytes()
	r.Lock = d.bytes()
	r.Status = Status(d.fixed(1)[0])
	r.Updated = int64(binary.LittleEndian.Uint64(d.fixed(8)))

	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("decode bundle:\n%w", err)
	}

	if len(r.Lock) == 0 {
		r.Lock = nil
	}

	return r, nil
}

// appendBytes appends a u32 little-endian length and b.
func appendBytes(buf, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// decoder reads fields sequentially and remembers the first short read.
// After a short read every call returns zeroed data.
type decoder struct {
	data []byte // data is the unread remainder
	err  error  // err is the first decoding failure
}

// fixed returns the next n bytes.
func (d *decoder) fixed(n int) []byte {
	if d.err != nil || len(d.data) < n {
		if d.err == nil {
			d.err = fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedRecord, n, len(d.data))
		}
		return make([]byte, n)
	}

	out := d.data[:n]
	d.data = d.data[n:]

	return out
}

// bytes returns a copy of the next length-prefixed field.
func (d *decoder) bytes() []byte {
	n := int(binary.LittleEndian.Uint32(d.fixed(4)))
	if d.err != nil {
		return nil
	}

	if n > len(d.data) {
		d.err = fmt.Errorf("%w: field of %d bytes, have %d", ErrMalformedRecord, n, len(d.data))
		return nil
	}

	b := d.fixed(n)
	if d.err != nil {
		return nil
	}

	return append([]byte(nil), b...)
}

// finish reports the first failure or unread trailing bytes.
func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}

	if len(d.data) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedRecord, len(d.data))
	}

	return nil
}
