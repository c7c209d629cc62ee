package linux

import (
	"github.com/wnxd/microtrace/emulator"
	emu_x86 "github.com/wnxd/microtrace/emulator/x86"
	"github.com/wnxd/microtrace/internal/profile"
	"github.com/wnxd/microtrace/syscalls"
)

var x86_64ABI = &profile.ABI{
	Arch:          emulator.ARCH_X86_64,
	CallReg:       emu_x86.X86_REG_RAX,
	ArgRegs:       []emulator.Reg{emu_x86.X86_REG_RDI, emu_x86.X86_REG_RSI, emu_x86.X86_REG_RDX, emu_x86.X86_REG_R10, emu_x86.X86_REG_R8, emu_x86.X86_REG_R9},
	RetReg:        emu_x86.X86_REG_RAX,
	MaxCallNumber: 1023,
	ReturnPC:      profile.NextInsn(2),
	Result:        result(8),
}

func NewX86_64() (syscalls.Profile, error) {
	return newProfile(emulator.ARCH_X86_64, x86_64ABI, "x86_64")
}
