package types

import flatbuffers "github.com/google/flatbuffers/go"

// Entity is a read view over an encoded operation.
type Entity struct {
	_tab flatbuffers.Table
}

// GetRootAsEntity returns the Entity at the root of buf.
func GetRootAsEntity(buf []byte, offset flatbuffers.UOffsetT) *Entity {
	n := flatbuffers.GetUOffsetT(buf[offset:])
	x := &Entity{}
	x.Init(buf, n+offset)
	return x
}

// Init positions the view at i in buf.
func (rcv *Entity) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Entity) Type() byte {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(4))
	if o != 0 {
		return rcv._tab.GetByte(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Entity) Network() byte {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(6))
	if o != 0 {
		return rcv._tab.GetByte(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Entity) SignerBytes() []byte {
	return rcv.bytesAt(8)
}

func (rcv *Entity) RecipientBytes() []byte {
	return rcv.bytesAt(10)
}

func (rcv *Entity) Amount() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(12))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Entity) Duration() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(14))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Entity) MessageBytes() []byte {
	return rcv.bytesAt(16)
}

func (rcv *Entity) LockHashBytes() []byte {
	return rcv.bytesAt(18)
}

func (rcv *Entity) MinApprovalDelta() int8 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(20))
	if o != 0 {
		return rcv._tab.GetInt8(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Entity) MinRemovalDelta() int8 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(22))
	if o != 0 {
		return rcv._tab.GetInt8(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Entity) AdditionsBytes() []byte {
	return rcv.bytesAt(24)
}

func (rcv *Entity) DeletionsBytes() []byte {
	return rcv.bytesAt(26)
}

// Inner positions obj at the j-th inner entity.
func (rcv *Entity) Inner(obj *Entity, j int) bool {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(28))
	if o != 0 {
		x := rcv._tab.Vector(o)
		x += flatbuffers.UOffsetT(j) * 4
		x = rcv._tab.Indirect(x)
		obj.Init(rcv._tab.Bytes, x)
		return true
	}
	return false
}

func (rcv *Entity) InnerLength() int {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(28))
	if o != 0 {
		return rcv._tab.VectorLen(o)
	}
	return 0
}

// bytesAt reads the byte vector at vtable offset vt.
func (rcv *Entity) bytesAt(vt flatbuffers.VOffsetT) []byte {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(vt))
	if o != 0 {
		return rcv._tab.ByteVector(o + rcv._tab.Pos)
	}
	return nil
}

func EntityStart(builder *flatbuffers.Builder) {
	builder.StartObject(13)
}

func EntityAddType(builder *flatbuffers.Builder, t byte) {
	builder.PrependByteSlot(0, t, 0)
}

func EntityAddNetwork(builder *flatbuffers.Builder, network byte) {
	builder.PrependByteSlot(1, network, 0)
}

func EntityAddSigner(builder *flatbuffers.Builder, signer flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(2, signer, 0)
}

func EntityAddRecipient(builder *flatbuffers.Builder, recipient flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(3, recipient, 0)
}

func EntityAddAmount(builder *flatbuffers.Builder, amount uint64) {
	builder.PrependUint64Slot(4, amount, 0)
}

func EntityAddDuration(builder *flatbuffers.Builder, duration uint64) {
	builder.PrependUint64Slot(5, duration, 0)
}

func EntityAddMessage(builder *flatbuffers.Builder, message flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(6, message, 0)
}

func EntityAddLockHash(builder *flatbuffers.Builder, lockHash flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(7, lockHash, 0)
}

func EntityAddMinApprovalDelta(builder *flatbuffers.Builder, delta int8) {
	builder.PrependInt8Slot(8, delta, 0)
}

func EntityAddMinRemovalDelta(builder *flatbuffers.Builder, delta int8) {
	builder.PrependInt8Slot(9, delta, 0)
}

func EntityAddAdditions(builder *flatbuffers.Builder, additions flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(10, additions, 0)
}

func EntityAddDeletions(builder *flatbuffers.Builder, deletions flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(11, deletions, 0)
}

func EntityAddInner(builder *flatbuffers.Builder, inner flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(12, inner, 0)
}

func EntityStartInnerVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(4, numElems, 4)
}

func EntityEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}
