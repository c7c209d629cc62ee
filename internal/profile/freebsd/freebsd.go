package freebsd

import (
	"embed"

	"github.com/pkg/errors"

	"github.com/wnxd/microtrace/emulator"
	emu_x86 "github.com/wnxd/microtrace/emulator/x86"
	"github.com/wnxd/microtrace/internal/profile"
	"github.com/wnxd/microtrace/syscalls"
)

//go:embed tables/*.yaml
var tables embed.FS

var x86_64ABI = &profile.ABI{
	Arch:          emulator.ARCH_X86_64,
	CallReg:       emu_x86.X86_REG_RAX,
	ArgRegs:       []emulator.Reg{emu_x86.X86_REG_RDI, emu_x86.X86_REG_RSI, emu_x86.X86_REG_RDX, emu_x86.X86_REG_R10, emu_x86.X86_REG_R8, emu_x86.X86_REG_R9},
	RetReg:        emu_x86.X86_REG_RAX,
	MaxCallNumber: 1023,
	ReturnPC:      profile.NextInsn(2),
	Result:        carryResult,
}

func NewX86_64() (syscalls.Profile, error) {
	table, err := profile.LoadTableFS(tables, "tables/x86_64.yaml")
	if err != nil {
		return nil, err
	}
	return profile.New(syscalls.Tag{OS: syscalls.OS_FREEBSD, Arch: emulator.ARCH_X86_64}, x86_64ABI, table), nil
}

// carryResult follows the BSD convention: CF set means rax holds an errno.
func carryResult(regs emulator.RegisterReader, raw uint64) (syscalls.DecodedReturn, error) {
	rflags, err := regs.RegRead(emu_x86.X86_REG_RFLAGS)
	if err != nil {
		return syscalls.DecodedReturn{}, errors.Wrap(syscalls.ErrRegisterRead, err.Error())
	}
	ret := syscalls.DecodedReturn{Raw: raw, Value: int64(raw), Success: true}
	if rflags&emu_x86.EFLAGS_CF != 0 {
		ret.Success = false
		ret.Errno = int64(raw)
	}
	return ret, nil
}
