package linux

import (
	"github.com/pkg/errors"

	"github.com/wnxd/microtrace/emulator"
	emu_mips "github.com/wnxd/microtrace/emulator/mips"
	"github.com/wnxd/microtrace/internal/profile"
	"github.com/wnxd/microtrace/syscalls"
)

// o32 numbers are offset by 4000; the fifth and later arguments sit above
// the 16-byte register save area.
const (
	MIPS_O32_NR_BASE    = 4000
	MIPS_O32_STACK_ARGS = 16
)

var mipsABI = &profile.ABI{
	Arch:          emulator.ARCH_MIPS,
	CallReg:       emu_mips.MIPS_REG_V0,
	ArgRegs:       []emulator.Reg{emu_mips.MIPS_REG_A0, emu_mips.MIPS_REG_A1, emu_mips.MIPS_REG_A2, emu_mips.MIPS_REG_A3},
	StackReg:      emu_mips.MIPS_REG_SP,
	StackOffset:   MIPS_O32_STACK_ARGS,
	RetReg:        emu_mips.MIPS_REG_V0,
	MinCallNumber: MIPS_O32_NR_BASE,
	MaxCallNumber: MIPS_O32_NR_BASE + 999,
	ReturnPC:      profile.NextInsn(4),
	Result:        mipsResult,
}

func NewMips() (syscalls.Profile, error) {
	return newProfile(emulator.ARCH_MIPS, mipsABI, "mips")
}

// mipsResult reads the error flag from a3; v0 then holds a positive errno.
func mipsResult(regs emulator.RegisterReader, raw uint64) (syscalls.DecodedReturn, error) {
	a3, err := regs.RegRead(emu_mips.MIPS_REG_A3)
	if err != nil {
		return syscalls.DecodedReturn{}, errors.Wrap(syscalls.ErrRegisterRead, err.Error())
	}
	ret := syscalls.DecodedReturn{Raw: raw, Value: profile.SignExtend(raw, 4), Success: true}
	if uint32(a3) != 0 {
		ret.Success = false
		ret.Errno = ret.Value
	}
	return ret, nil
}
