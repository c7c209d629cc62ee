package profile

import (
	"maps"
	"slices"

	"github.com/pkg/errors"

	"github.com/wnxd/microtrace/emulator"
	"github.com/wnxd/microtrace/syscalls"
)

type Profile struct {
	tag   syscalls.Tag
	abi   *ABI
	table Table
}

func New(tag syscalls.Tag, abi *ABI, table Table) *Profile {
	return &Profile{tag: tag, abi: abi, table: table}
}

func (p *Profile) Tag() syscalls.Tag {
	return p.tag
}

func (p *Profile) ABI() *ABI {
	return p.abi
}

func (p *Profile) Prototype(no uint64) (*syscalls.Prototype, bool) {
	proto, ok := p.table[no]
	return proto, ok
}

// Prototypes lists the known syscalls ordered by number.
func (p *Profile) Prototypes() []*syscalls.Prototype {
	protos := make([]*syscalls.Prototype, 0, len(p.table))
	for _, no := range slices.Sorted(maps.Keys(p.table)) {
		protos = append(protos, p.table[no])
	}
	return protos
}

func (p *Profile) DecodeEnter(regs emulator.RegisterReader, mem emulator.Memory, pc uint64) (entry syscalls.Entry, err error) {
	abi := p.abi
	no, err := regs.RegRead(abi.CallReg)
	if err != nil {
		return entry, syscalls.NewDecodeError(syscalls.StageEnter, pc, 0, errors.Wrap(syscalls.ErrRegisterRead, err.Error()))
	}
	if size := abi.Arch.PointerSize(); size == 4 {
		no = uint64(uint32(no))
	}
	entry.CallNumber = no
	for i, reg := range abi.ArgRegs[:min(len(abi.ArgRegs), syscalls.MaxArgs)] {
		entry.Args[i], err = regs.RegRead(reg)
		if err != nil {
			return entry, syscalls.NewDecodeError(syscalls.StageEnter, pc, no, errors.Wrapf(syscalls.ErrRegisterRead, "argument %d: %v", i, err))
		}
	}
	if abi.FixArgs != nil {
		if err = abi.FixArgs(regs, mem, pc, &entry.Args); err != nil {
			return entry, syscalls.NewDecodeError(syscalls.StageEnter, pc, no, err)
		}
	}
	if no < abi.MinCallNumber || no > abi.MaxCallNumber {
		return entry, syscalls.NewDecodeError(syscalls.StageEnter, pc, no, syscalls.ErrCallNumberRange)
	}
	if proto, ok := p.table[no]; ok {
		entry.Prototype = proto
		for i := len(abi.ArgRegs); i < min(len(proto.Args), syscalls.MaxArgs); i++ {
			entry.Args[i], err = abi.stackArg(regs, mem, i-len(abi.ArgRegs))
			if err != nil {
				return entry, syscalls.NewDecodeError(syscalls.StageEnter, pc, no, err)
			}
		}
	}
	entry.ReturnPC, err = abi.ReturnPC(regs, mem, pc)
	if err != nil {
		return entry, syscalls.NewDecodeError(syscalls.StageEnter, pc, no, err)
	}
	return entry, nil
}

func (p *Profile) DecodeReturn(ctx *syscalls.Context, regs emulator.RegisterReader) (syscalls.DecodedReturn, error) {
	raw, err := regs.RegRead(p.abi.RetReg)
	if err != nil {
		return syscalls.DecodedReturn{}, syscalls.NewDecodeError(syscalls.StageReturn, ctx.ReturnPC, ctx.CallNumber, errors.Wrap(syscalls.ErrRegisterRead, err.Error()))
	}
	if size := p.abi.Arch.PointerSize(); size == 4 {
		raw = uint64(uint32(raw))
	}
	ret, err := p.abi.Result(regs, raw)
	if err != nil {
		return ret, syscalls.NewDecodeError(syscalls.StageReturn, ctx.ReturnPC, ctx.CallNumber, err)
	}
	return ret, nil
}
