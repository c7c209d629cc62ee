package syscalls

import (
	"fmt"

	"github.com/wnxd/microtrace/emulator"
	"github.com/wnxd/microtrace/encoding"
)

type RecordKind int

const (
	RecordEnter RecordKind = iota
	RecordReturn
	RecordUnmatchedEntry
	RecordUnmatchedReturn
	RecordDecodeFailure
)

func (k RecordKind) String() string {
	switch k {
	case RecordEnter:
		return "enter"
	case RecordReturn:
		return "return"
	case RecordUnmatchedEntry:
		return "unmatched_entry"
	case RecordUnmatchedReturn:
		return "unmatched_return"
	case RecordDecodeFailure:
		return "decode_failure"
	}
	return "unknown"
}

type Record interface {
	fmt.Stringer
	Kind() RecordKind
}

type EvictReason int

const (
	EvictCollision EvictReason = iota
	EvictAddressSpace
	EvictSession
)

func (r EvictReason) String() string {
	switch r {
	case EvictCollision:
		return "collision"
	case EvictAddressSpace:
		return "address_space"
	case EvictSession:
		return "session"
	}
	return "unknown"
}

type SyscallEnter struct {
	ASID       uint64
	TID        uint64
	CallSite   uint64
	ReturnPC   uint64
	CallNumber uint64
	Args       RawArgs
	Prototype  *Prototype
	Profile    Tag

	mem emulator.Memory
}

type SyscallReturn struct {
	ASID       uint64
	TID        uint64
	CallSite   uint64
	ReturnPC   uint64
	CallNumber uint64
	Args       RawArgs
	Prototype  *Prototype
	Profile    Tag
	Return     DecodedReturn

	mem emulator.Memory
}

type UnmatchedEntry struct {
	ASID       uint64
	TID        uint64
	CallSite   uint64
	ReturnPC   uint64
	CallNumber uint64
	Reason     EvictReason
}

type UnmatchedReturn struct {
	ASID uint64
	TID  uint64
	PC   uint64
}

type DecodeFailure struct {
	Stage      Stage
	ASID       uint64
	TID        uint64
	PC         uint64
	CallNumber uint64
	Args       RawArgs
	Err        error
}

func NewSyscallEnter(ctx *Context, mem emulator.Memory) *SyscallEnter {
	return &SyscallEnter{
		ASID:       ctx.ASID,
		TID:        ctx.TID,
		CallSite:   ctx.CallSite,
		ReturnPC:   ctx.ReturnPC,
		CallNumber: ctx.CallNumber,
		Args:       ctx.Args,
		Prototype:  ctx.Prototype,
		Profile:    ctx.Profile,
		mem:        mem,
	}
}

func NewSyscallReturn(ctx *Context, ret DecodedReturn, mem emulator.Memory) *SyscallReturn {
	return &SyscallReturn{
		ASID:       ctx.ASID,
		TID:        ctx.TID,
		CallSite:   ctx.CallSite,
		ReturnPC:   ctx.ReturnPC,
		CallNumber: ctx.CallNumber,
		Args:       ctx.Args,
		Prototype:  ctx.Prototype,
		Profile:    ctx.Profile,
		Return:     ret,
		mem:        mem,
	}
}

func NewUnmatchedEntry(ctx *Context, reason EvictReason) *UnmatchedEntry {
	return &UnmatchedEntry{
		ASID:       ctx.ASID,
		TID:        ctx.TID,
		CallSite:   ctx.CallSite,
		ReturnPC:   ctx.ReturnPC,
		CallNumber: ctx.CallNumber,
		Reason:     reason,
	}
}

func (*SyscallEnter) Kind() RecordKind    { return RecordEnter }
func (*SyscallReturn) Kind() RecordKind   { return RecordReturn }
func (*UnmatchedEntry) Kind() RecordKind  { return RecordUnmatchedEntry }
func (*UnmatchedReturn) Kind() RecordKind { return RecordUnmatchedReturn }
func (*DecodeFailure) Kind() RecordKind   { return RecordDecodeFailure }

func (r *SyscallEnter) Name() string {
	return protoName(r.Prototype, r.CallNumber)
}

func (r *SyscallReturn) Name() string {
	return protoName(r.Prototype, r.CallNumber)
}

// Extract decodes the argument slots into vals. Pointer and string targets
// read guest memory, which is only meaningful while the record is being
// dispatched.
func (r *SyscallEnter) Extract(vals ...any) error {
	return encoding.Decode(encoding.SlotStream(r.Args[:], r.mem), vals...)
}

func (r *SyscallReturn) Extract(vals ...any) error {
	return encoding.Decode(encoding.SlotStream(r.Args[:], r.mem), vals...)
}

func (r *SyscallEnter) String() string {
	return fmt.Sprintf("[enter] asid: %X, tid: %d, pc: %016X, %s(%s)", r.ASID, r.TID, r.CallSite, r.Name(), formatArgs(r.Prototype, r.Args))
}

func (r *SyscallReturn) String() string {
	if r.Return.Success {
		return fmt.Sprintf("[return] asid: %X, tid: %d, pc: %016X, %s = %d", r.ASID, r.TID, r.ReturnPC, r.Name(), r.Return.Value)
	}
	return fmt.Sprintf("[return] asid: %X, tid: %d, pc: %016X, %s = %d, errno: %d", r.ASID, r.TID, r.ReturnPC, r.Name(), r.Return.Value, r.Return.Errno)
}

func (r *UnmatchedEntry) String() string {
	return fmt.Sprintf("[unmatched_entry] asid: %X, tid: %d, return: %016X, callno: %d, reason: %s", r.ASID, r.TID, r.ReturnPC, r.CallNumber, r.Reason)
}

func (r *UnmatchedReturn) String() string {
	return fmt.Sprintf("[unmatched_return] asid: %X, tid: %d, pc: %016X", r.ASID, r.TID, r.PC)
}

func (r *DecodeFailure) String() string {
	return fmt.Sprintf("[decode_failure] asid: %X, tid: %d, pc: %016X, stage: %s, callno: %d, %v", r.ASID, r.TID, r.PC, r.Stage, r.CallNumber, r.Err)
}

func protoName(proto *Prototype, no uint64) string {
	if proto == nil {
		return fmt.Sprintf("sys_%d", no)
	}
	return proto.Name
}

func formatArgs(proto *Prototype, args RawArgs) string {
	n := MaxArgs
	if proto != nil {
		n = min(len(proto.Args), MaxArgs)
	}
	var s []byte
	for i := 0; i < n; i++ {
		if i > 0 {
			s = append(s, ", "...)
		}
		s = fmt.Appendf(s, "0x%X", args[i])
	}
	return string(s)
}
