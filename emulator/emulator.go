package emulator

type Emulator interface {
	Memory
	RegisterReader
	AddressSpace
	Hook(typ HookType, callback any, data any, begin, end uint64) (Hook, error)
	HookInsn(insn Insn, callback InsnCallback, data any, begin, end uint64) (Hook, error)
}
