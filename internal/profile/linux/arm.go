package linux

import (
	"github.com/wnxd/microtrace/emulator"
	emu_arm "github.com/wnxd/microtrace/emulator/arm"
	"github.com/wnxd/microtrace/internal/profile"
	"github.com/wnxd/microtrace/syscalls"
)

// ARM private syscalls (cacheflush, set_tls, ...) start at 0xF0000.
const ARM_NR_BASE = 0x0F0000

var armABI = &profile.ABI{
	Arch:    emulator.ARCH_ARM,
	CallReg: emu_arm.ARM_REG_R7,
	ArgRegs: []emulator.Reg{
		emu_arm.ARM_REG_R0, emu_arm.ARM_REG_R1, emu_arm.ARM_REG_R2, emu_arm.ARM_REG_R3,
		emu_arm.ARM_REG_R4, emu_arm.ARM_REG_R5, emu_arm.ARM_REG_R6,
	},
	RetReg:        emu_arm.ARM_REG_R0,
	MaxCallNumber: ARM_NR_BASE + 0x7FF,
	ReturnPC:      profile.ArmNextInsn,
	Result:        result(4),
}

func NewArm() (syscalls.Profile, error) {
	return newProfile(emulator.ARCH_ARM, armABI, "arm")
}
