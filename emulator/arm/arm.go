package arm

import "github.com/wnxd/microtrace/emulator"

const (
	ARM_REG_INVALID emulator.Reg = iota
	ARM_REG_R0
	ARM_REG_R1
	ARM_REG_R2
	ARM_REG_R3
	ARM_REG_R4
	ARM_REG_R5
	ARM_REG_R6
	ARM_REG_R7
	ARM_REG_R8
	ARM_REG_R9
	ARM_REG_R10
	ARM_REG_R11
	ARM_REG_R12
	ARM_REG_SP
	ARM_REG_LR
	ARM_REG_PC
	ARM_REG_CPSR
	ARM_REG_TTBR0
	ARM_REG_CONTEXTIDR
	ARM_REG_ENDING
)

const (
	INTNO_SWI = 2
	CPSR_T    = 1 << 5
)
