package x86

import "github.com/wnxd/microtrace/emulator"

const (
	X86_REG_INVALID emulator.Reg = iota
	X86_REG_EAX
	X86_REG_EBX
	X86_REG_ECX
	X86_REG_EDX
	X86_REG_ESI
	X86_REG_EDI
	X86_REG_EBP
	X86_REG_ESP
	X86_REG_EIP
	X86_REG_EFLAGS
	X86_REG_RAX
	X86_REG_RBX
	X86_REG_RCX
	X86_REG_RDX
	X86_REG_RSI
	X86_REG_RDI
	X86_REG_RBP
	X86_REG_RSP
	X86_REG_R8
	X86_REG_R9
	X86_REG_R10
	X86_REG_R11
	X86_REG_R12
	X86_REG_R13
	X86_REG_R14
	X86_REG_R15
	X86_REG_RIP
	X86_REG_RFLAGS
	X86_REG_CR3
	X86_REG_ENDING
)

const (
	INTNO_LINUX_SYSCALL   = 0x80
	INTNO_WINDOWS_SYSCALL = 0x2E
	EFLAGS_CF             = 1 << 0
)
