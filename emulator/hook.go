package emulator

import "io"

type HookType int

const (
	HOOK_TYPE_INTR HookType = 1 << iota
	HOOK_TYPE_INSN
	HOOK_TYPE_CODE
	HOOK_TYPE_BLOCK
	HOOK_TYPE_INSN_INVALID
)

type Insn int

const (
	INSN_UNKNOWN Insn = iota
	INSN_X86_SYSCALL
	INSN_X86_SYSENTER
)

// Callback signatures accepted by Emulator.Hook, by hook type.
type InterruptCallback = func(intno uint64, data any)
type CodeCallback = func(addr, size uint64, data any)
type InsnCallback = func(data any)

// Hook ranges are inclusive; begin > end covers every address.
type Hook interface {
	io.Closer
}

func (t HookType) String() string {
	switch t {
	case HOOK_TYPE_INTR:
		return "intr"
	case HOOK_TYPE_INSN:
		return "insn"
	case HOOK_TYPE_CODE:
		return "code"
	case HOOK_TYPE_BLOCK:
		return "block"
	case HOOK_TYPE_INSN_INVALID:
		return "insn_invalid"
	}
	return "unknown"
}
