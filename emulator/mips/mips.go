package mips

import "github.com/wnxd/microtrace/emulator"

const (
	MIPS_REG_INVALID emulator.Reg = iota
	MIPS_REG_ZERO
	MIPS_REG_AT
	MIPS_REG_V0
	MIPS_REG_V1
	MIPS_REG_A0
	MIPS_REG_A1
	MIPS_REG_A2
	MIPS_REG_A3
	MIPS_REG_SP = MIPS_REG_ZERO + 29
	MIPS_REG_FP = MIPS_REG_ZERO + 30
	MIPS_REG_RA = MIPS_REG_ZERO + 31
)

const (
	MIPS_REG_PC = MIPS_REG_RA + 1 + iota
	MIPS_REG_ENTRYHI
	MIPS_REG_ENDING
)

const INTNO_SYSCALL = 17
