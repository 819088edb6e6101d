package types

import flatbuffers "github.com/google/flatbuffers/go"

// Envelope is a read view over a signed operation.
type Envelope struct {
	_tab flatbuffers.Table
}

// GetRootAsEnvelope returns the Envelope at the root of buf.
func GetRootAsEnvelope(buf []byte, offset flatbuffers.UOffsetT) *Envelope {
	n := flatbuffers.GetUOffsetT(buf[offset:])
	x := &Envelope{}
	x.Init(buf, n+offset)
	return x
}

// Init positions the view at i in buf.
func (rcv *Envelope) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Envelope) HashBytes() []byte {
	return envelopeBytesAt(&rcv._tab, 4)
}

func (rcv *Envelope) SignerBytes() []byte {
	return envelopeBytesAt(&rcv._tab, 6)
}

func (rcv *Envelope) SignatureBytes() []byte {
	return envelopeBytesAt(&rcv._tab, 8)
}

func (rcv *Envelope) BodyBytes() []byte {
	return envelopeBytesAt(&rcv._tab, 10)
}

// Cosignatures positions obj at the j-th cosignature.
func (rcv *Envelope) Cosignatures(obj *Cosignature, j int) bool {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(12))
	if o != 0 {
		x := rcv._tab.Vector(o)
		x += flatbuffers.UOffsetT(j) * 4
		x = rcv._tab.Indirect(x)
		obj.Init(rcv._tab.Bytes, x)
		return true
	}
	return false
}

func (rcv *Envelope) CosignaturesLength() int {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(12))
	if o != 0 {
		return rcv._tab.VectorLen(o)
	}
	return 0
}

func EnvelopeStart(builder *flatbuffers.Builder) {
	builder.StartObject(5)
}

func EnvelopeAddHash(builder *flatbuffers.Builder, hash flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(0, hash, 0)
}

func EnvelopeAddSigner(builder *flatbuffers.Builder, signer flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(1, signer, 0)
}

func EnvelopeAddSignature(builder *flatbuffers.Builder, signature flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(2, signature, 0)
}

func EnvelopeAddBody(builder *flatbuffers.Builder, body flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(3, body, 0)
}

func EnvelopeAddCosignatures(builder *flatbuffers.Builder, cosignatures flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(4, cosignatures, 0)
}

func EnvelopeStartCosignaturesVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(4, numElems, 4)
}

func EnvelopeEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}

// Cosignature is a read view over one cosignature.
type Cosignature struct {
	_tab flatbuffers.Table
}

// Init positions the view at i in buf.
func (rcv *Cosignature) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Cosignature) SignerBytes() []byte {
	return envelopeBytesAt(&rcv._tab, 4)
}

func (rcv *Cosignature) SignatureBytes() []byte {
	return envelopeBytesAt(&rcv._tab, 6)
}

func CosignatureStart(builder *flatbuffers.Builder) {
	builder.StartObject(2)
}

func CosignatureAddSigner(builder *flatbuffers.Builder, signer flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(0, signer, 0)
}

func CosignatureAddSignature(builder *flatbuffers.Builder, signature flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(1, signature, 0)
}

func CosignatureEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}

// envelopeBytesAt reads the byte vector at vtable offset vt of t.
func envelopeBytesAt(t *flatbuffers.Table, vt flatbuffers.VOffsetT) []byte {
	o := flatbuffers.UOffsetT(t.Offset(vt))
	if o != 0 {
		return t.ByteVector(o + t.Pos)
	}
	return nil
}
