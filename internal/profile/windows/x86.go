package windows

import (
	"github.com/wnxd/microtrace/emulator"
	emu_x86 "github.com/wnxd/microtrace/emulator/x86"
	"github.com/wnxd/microtrace/internal/profile"
	"github.com/wnxd/microtrace/syscalls"
)

// KiFastSystemCall does "mov edx, esp; sysenter". [edx] is the return into
// the Nt* stub, [edx+4] the return into its caller, arguments follow.
var sysenterABI = &profile.ABI{
	Arch:          emulator.ARCH_X86,
	CallReg:       emu_x86.X86_REG_EAX,
	StackReg:      emu_x86.X86_REG_EDX,
	StackOffset:   8,
	RetReg:        emu_x86.X86_REG_EAX,
	MaxCallNumber: SERVICE_TABLE_MAX,
	ReturnPC:      profile.WordAt(emu_x86.X86_REG_EDX),
	Result:        ntStatus,
}

// Windows 2000 stubs do "lea edx, [esp+4]; int 2Eh; ret N".
var int2eABI = &profile.ABI{
	Arch:          emulator.ARCH_X86,
	CallReg:       emu_x86.X86_REG_EAX,
	StackReg:      emu_x86.X86_REG_EDX,
	RetReg:        emu_x86.X86_REG_EAX,
	MaxCallNumber: SERVICE_TABLE_MAX,
	ReturnPC:      profile.NextInsn(2),
	Result:        ntStatus,
}

func NewXPSP2() (syscalls.Profile, error) {
	return newProfile(syscalls.OS_WINDOWS_XPSP2, emulator.ARCH_X86, sysenterABI, "xp_x86")
}

func NewXPSP3() (syscalls.Profile, error) {
	return newProfile(syscalls.OS_WINDOWS_XPSP3, emulator.ARCH_X86, sysenterABI, "xp_x86")
}

func New2000() (syscalls.Profile, error) {
	return newProfile(syscalls.OS_WINDOWS_2000, emulator.ARCH_X86, int2eABI, "2000_x86")
}

func New7X86() (syscalls.Profile, error) {
	return newProfile(syscalls.OS_WINDOWS_7, emulator.ARCH_X86, sysenterABI, "7_x86")
}
