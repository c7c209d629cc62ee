package windows

import (
	"github.com/wnxd/microtrace/emulator"
	emu_x86 "github.com/wnxd/microtrace/emulator/x86"
	"github.com/wnxd/microtrace/internal/profile"
	"github.com/wnxd/microtrace/syscalls"
)

// Stubs do "mov r10, rcx; mov eax, N; syscall". The fifth argument is above
// the return address and the 32-byte home area.
var syscallABI = &profile.ABI{
	Arch:          emulator.ARCH_X86_64,
	CallReg:       emu_x86.X86_REG_RAX,
	ArgRegs:       []emulator.Reg{emu_x86.X86_REG_R10, emu_x86.X86_REG_RDX, emu_x86.X86_REG_R8, emu_x86.X86_REG_R9},
	StackReg:      emu_x86.X86_REG_RSP,
	StackOffset:   0x28,
	RetReg:        emu_x86.X86_REG_RAX,
	MaxCallNumber: SERVICE_TABLE_MAX,
	ReturnPC:      profile.NextInsn(2),
	Result:        ntStatus,
}

func New7X86_64() (syscalls.Profile, error) {
	return newProfile(syscalls.OS_WINDOWS_7, emulator.ARCH_X86_64, syscallABI, "7_x86_64")
}
