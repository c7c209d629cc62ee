package replay

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/wnxd/microtrace/emulator"
	emu_arm "github.com/wnxd/microtrace/emulator/arm"
	emu_arm64 "github.com/wnxd/microtrace/emulator/arm64"
	emu_mips "github.com/wnxd/microtrace/emulator/mips"
	emu_x86 "github.com/wnxd/microtrace/emulator/x86"
)

var ErrRegisterName = errors.New("unknown register name")

var registerNames = map[emulator.Arch]map[string]emulator.Reg{
	emulator.ARCH_ARM:    armRegisters(),
	emulator.ARCH_ARM64:  arm64Registers(),
	emulator.ARCH_X86:    x86Registers(),
	emulator.ARCH_X86_64: x86Registers(),
	emulator.ARCH_MIPS:   mipsRegisters(),
}

func armRegisters() map[string]emulator.Reg {
	regs := map[string]emulator.Reg{
		"sp":         emu_arm.ARM_REG_SP,
		"lr":         emu_arm.ARM_REG_LR,
		"pc":         emu_arm.ARM_REG_PC,
		"cpsr":       emu_arm.ARM_REG_CPSR,
		"ttbr0":      emu_arm.ARM_REG_TTBR0,
		"contextidr": emu_arm.ARM_REG_CONTEXTIDR,
	}
	for i := 0; i <= 12; i++ {
		regs[fmt.Sprintf("r%d", i)] = emu_arm.ARM_REG_R0 + emulator.Reg(i)
	}
	return regs
}

func arm64Registers() map[string]emulator.Reg {
	regs := map[string]emulator.Reg{
		"x29":       emu_arm64.ARM64_REG_X29,
		"x30":       emu_arm64.ARM64_REG_X30,
		"fp":        emu_arm64.ARM64_REG_FP,
		"lr":        emu_arm64.ARM64_REG_LR,
		"sp":        emu_arm64.ARM64_REG_SP,
		"pc":        emu_arm64.ARM64_REG_PC,
		"pstate":    emu_arm64.ARM64_REG_PSTATE,
		"ttbr0_el1": emu_arm64.ARM64_REG_TTBR0_EL1,
		"tpidr_el0": emu_arm64.ARM64_REG_TPIDR_EL0,
	}
	for i := 0; i <= 8; i++ {
		regs[fmt.Sprintf("x%d", i)] = emu_arm64.ARM64_REG_X0 + emulator.Reg(i)
	}
	return regs
}

func x86Registers() map[string]emulator.Reg {
	return map[string]emulator.Reg{
		"eax":    emu_x86.X86_REG_EAX,
		"ebx":    emu_x86.X86_REG_EBX,
		"ecx":    emu_x86.X86_REG_ECX,
		"edx":    emu_x86.X86_REG_EDX,
		"esi":    emu_x86.X86_REG_ESI,
		"edi":    emu_x86.X86_REG_EDI,
		"ebp":    emu_x86.X86_REG_EBP,
		"esp":    emu_x86.X86_REG_ESP,
		"eip":    emu_x86.X86_REG_EIP,
		"eflags": emu_x86.X86_REG_EFLAGS,
		"rax":    emu_x86.X86_REG_RAX,
		"rbx":    emu_x86.X86_REG_RBX,
		"rcx":    emu_x86.X86_REG_RCX,
		"rdx":    emu_x86.X86_REG_RDX,
		"rsi":    emu_x86.X86_REG_RSI,
		"rdi":    emu_x86.X86_REG_RDI,
		"rbp":    emu_x86.X86_REG_RBP,
		"rsp":    emu_x86.X86_REG_RSP,
		"r8":     emu_x86.X86_REG_R8,
		"r9":     emu_x86.X86_REG_R9,
		"r10":    emu_x86.X86_REG_R10,
		"r11":    emu_x86.X86_REG_R11,
		"r12":    emu_x86.X86_REG_R12,
		"r13":    emu_x86.X86_REG_R13,
		"r14":    emu_x86.X86_REG_R14,
		"r15":    emu_x86.X86_REG_R15,
		"rip":    emu_x86.X86_REG_RIP,
		"rflags": emu_x86.X86_REG_RFLAGS,
		"cr3":    emu_x86.X86_REG_CR3,
	}
}

func mipsRegisters() map[string]emulator.Reg {
	return map[string]emulator.Reg{
		"zero":    emu_mips.MIPS_REG_ZERO,
		"at":      emu_mips.MIPS_REG_AT,
		"v0":      emu_mips.MIPS_REG_V0,
		"v1":      emu_mips.MIPS_REG_V1,
		"a0":      emu_mips.MIPS_REG_A0,
		"a1":      emu_mips.MIPS_REG_A1,
		"a2":      emu_mips.MIPS_REG_A2,
		"a3":      emu_mips.MIPS_REG_A3,
		"sp":      emu_mips.MIPS_REG_SP,
		"fp":      emu_mips.MIPS_REG_FP,
		"ra":      emu_mips.MIPS_REG_RA,
		"pc":      emu_mips.MIPS_REG_PC,
		"entryhi": emu_mips.MIPS_REG_ENTRYHI,
	}
}

func register(arch emulator.Arch, name string) (emulator.Reg, error) {
	reg, ok := registerNames[arch][strings.ToLower(name)]
	if !ok {
		return 0, errors.Wrapf(ErrRegisterName, "%s on %s", name, arch)
	}
	return reg, nil
}
