package linux

import (
	"github.com/wnxd/microtrace/emulator"
	emu_x86 "github.com/wnxd/microtrace/emulator/x86"
	"github.com/wnxd/microtrace/internal/profile"
	"github.com/wnxd/microtrace/syscalls"
)

// __kernel_vsyscall follows sysenter with seven nops and a two byte
// jmp back to the kernel entry, then SYSENTER_RETURN.
const SYSENTER_RETURN_OFFSET = 11

var x86ABI = &profile.ABI{
	Arch:          emulator.ARCH_X86,
	CallReg:       emu_x86.X86_REG_EAX,
	ArgRegs:       []emulator.Reg{emu_x86.X86_REG_EBX, emu_x86.X86_REG_ECX, emu_x86.X86_REG_EDX, emu_x86.X86_REG_ESI, emu_x86.X86_REG_EDI, emu_x86.X86_REG_EBP},
	RetReg:        emu_x86.X86_REG_EAX,
	MaxCallNumber: 511,
	ReturnPC:      x86ReturnPC,
	Result:        result(4),
	FixArgs:       x86SysenterArgs,
}

func NewX86() (syscalls.Profile, error) {
	return newProfile(emulator.ARCH_X86, x86ABI, "x86")
}

// x86ReturnPC distinguishes sysenter (0F 34) from int 0x80 by the trap
// bytes. Unreadable code is treated as int 0x80.
func x86ReturnPC(regs emulator.RegisterReader, mem emulator.Memory, pc uint64) (uint64, error) {
	if isSysenter(mem, pc) {
		return pc + SYSENTER_RETURN_OFFSET, nil
	}
	return pc + 2, nil
}

// x86SysenterArgs reloads the sixth argument: __kernel_vsyscall does
// mov ebp, esp before sysenter, so ebp points at the saved value.
func x86SysenterArgs(regs emulator.RegisterReader, mem emulator.Memory, pc uint64, args *syscalls.RawArgs) error {
	if !isSysenter(mem, pc) {
		return nil
	}
	arg, err := profile.WordAt(emu_x86.X86_REG_EBP)(regs, mem, pc)
	if err != nil {
		return err
	}
	args[5] = arg
	return nil
}

func isSysenter(mem emulator.Memory, pc uint64) bool {
	if mem == nil {
		return false
	}
	insn, err := mem.MemRead(pc, 2)
	return err == nil && insn[0] == 0x0F && insn[1] == 0x34
}
