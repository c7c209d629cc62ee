package arm64

import "github.com/wnxd/microtrace/emulator"

const (
	ARM64_REG_INVALID emulator.Reg = iota
	ARM64_REG_X0
	ARM64_REG_X1
	ARM64_REG_X2
	ARM64_REG_X3
	ARM64_REG_X4
	ARM64_REG_X5
	ARM64_REG_X6
	ARM64_REG_X7
	ARM64_REG_X8
)

const (
	ARM64_REG_X29 = ARM64_REG_X0 + 29 + iota
	ARM64_REG_X30
	ARM64_REG_SP
	ARM64_REG_PC
	ARM64_REG_PSTATE
	ARM64_REG_TTBR0_EL1
	ARM64_REG_TPIDR_EL0
	ARM64_REG_ENDING
)

const (
	ARM64_REG_FP = ARM64_REG_X29
	ARM64_REG_LR = ARM64_REG_X30
)

const INTNO_SVC = 2
