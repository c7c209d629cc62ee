package linux

import (
	"github.com/wnxd/microtrace/emulator"
	emu_arm64 "github.com/wnxd/microtrace/emulator/arm64"
	"github.com/wnxd/microtrace/internal/profile"
	"github.com/wnxd/microtrace/syscalls"
)

var arm64ABI = &profile.ABI{
	Arch:    emulator.ARCH_ARM64,
	CallReg: emu_arm64.ARM64_REG_X8,
	ArgRegs: []emulator.Reg{
		emu_arm64.ARM64_REG_X0, emu_arm64.ARM64_REG_X1, emu_arm64.ARM64_REG_X2,
		emu_arm64.ARM64_REG_X3, emu_arm64.ARM64_REG_X4, emu_arm64.ARM64_REG_X5,
	},
	RetReg:        emu_arm64.ARM64_REG_X0,
	MaxCallNumber: 1023,
	ReturnPC:      profile.NextInsn(4),
	Result:        result(8),
}

func NewArm64() (syscalls.Profile, error) {
	return newProfile(emulator.ARCH_ARM64, arm64ABI, "arm64")
}
