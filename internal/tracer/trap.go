package tracer

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/wnxd/microtrace/emulator"
	emu_arm "github.com/wnxd/microtrace/emulator/arm"
	emu_arm64 "github.com/wnxd/microtrace/emulator/arm64"
	emu_mips "github.com/wnxd/microtrace/emulator/mips"
	emu_x86 "github.com/wnxd/microtrace/emulator/x86"
	"github.com/wnxd/microtrace/syscalls"
)

type callSiteFunc func(regs emulator.RegisterReader, pc uint64) (uint64, error)

// trap describes one way a guest enters the kernel. Hosts report interrupts
// and hooked instructions with pc already past the trap, except on MIPS.
type trap struct {
	typ      emulator.HookType
	intno    uint64
	insn     emulator.Insn
	callSite callSiteFunc
}

type trapManager struct {
	releases []func() error
	pc       emulator.Reg
}

func behind(n uint64) callSiteFunc {
	return func(regs emulator.RegisterReader, pc uint64) (uint64, error) {
		return pc - n, nil
	}
}

func armCallSite(regs emulator.RegisterReader, pc uint64) (uint64, error) {
	cpsr, err := regs.RegRead(emu_arm.ARM_REG_CPSR)
	if err != nil {
		return 0, err
	}
	if cpsr&emu_arm.CPSR_T != 0 {
		return pc - 2, nil
	}
	return pc - 4, nil
}

func trapsFor(tag syscalls.Tag) (emulator.Reg, []*trap, error) {
	switch tag.Arch {
	case emulator.ARCH_ARM:
		return emu_arm.ARM_REG_PC, []*trap{
			{typ: emulator.HOOK_TYPE_INTR, intno: emu_arm.INTNO_SWI, callSite: armCallSite},
		}, nil
	case emulator.ARCH_ARM64:
		return emu_arm64.ARM64_REG_PC, []*trap{
			{typ: emulator.HOOK_TYPE_INTR, intno: emu_arm64.INTNO_SVC, callSite: behind(4)},
		}, nil
	case emulator.ARCH_MIPS:
		return emu_mips.MIPS_REG_PC, []*trap{
			{typ: emulator.HOOK_TYPE_INTR, intno: emu_mips.INTNO_SYSCALL, callSite: behind(0)},
		}, nil
	case emulator.ARCH_X86:
		intno := uint64(emu_x86.INTNO_LINUX_SYSCALL)
		if tag.OS.Family() == "windows" {
			intno = emu_x86.INTNO_WINDOWS_SYSCALL
		}
		return emu_x86.X86_REG_EIP, []*trap{
			{typ: emulator.HOOK_TYPE_INTR, intno: intno, callSite: behind(2)},
			{typ: emulator.HOOK_TYPE_INSN, insn: emulator.INSN_X86_SYSENTER, callSite: behind(2)},
		}, nil
	case emulator.ARCH_X86_64:
		return emu_x86.X86_REG_RIP, []*trap{
			{typ: emulator.HOOK_TYPE_INSN, insn: emulator.INSN_X86_SYSCALL, callSite: behind(2)},
		}, nil
	}
	return 0, nil, errors.Wrapf(emulator.ErrArchUnsupported, "%s", tag.Arch)
}

func (m *trapManager) ctor(t *Tracer) error {
	pc, traps, err := trapsFor(t.profile.Tag())
	if err != nil {
		return err
	}
	m.pc = pc
	for _, tr := range traps {
		var hook emulator.Hook
		switch tr.typ {
		case emulator.HOOK_TYPE_INTR:
			hook, err = t.emu.Hook(emulator.HOOK_TYPE_INTR, t.handleInterrupt, tr, 1, 0)
		case emulator.HOOK_TYPE_INSN:
			hook, err = t.emu.HookInsn(tr.insn, t.handleInsn, tr, 1, 0)
		}
		if err != nil {
			m.dtor()
			return errors.Wrapf(err, "install %s trap hook", tr.typ)
		}
		m.releases = append(m.releases, hook.Close)
	}
	return nil
}

func (m *trapManager) dtor() error {
	var result error
	for i := len(m.releases) - 1; i >= 0; i-- {
		if err := m.releases[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	m.releases = nil
	return result
}
