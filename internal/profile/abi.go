package profile

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/wnxd/microtrace/emulator"
	emu_arm "github.com/wnxd/microtrace/emulator/arm"
	"github.com/wnxd/microtrace/syscalls"
)

type ReturnPCFunc func(regs emulator.RegisterReader, mem emulator.Memory, pc uint64) (uint64, error)
type ResultFunc func(regs emulator.RegisterReader, raw uint64) (syscalls.DecodedReturn, error)
type ArgsFunc func(regs emulator.RegisterReader, mem emulator.Memory, pc uint64, args *syscalls.RawArgs) error

// ABI describes where a trap finds its call number, arguments and result.
// Arguments past ArgRegs are read from guest memory at StackReg+StackOffset,
// one word each, up to the prototype's argument count.
type ABI struct {
	Arch          emulator.Arch
	CallReg       emulator.Reg
	ArgRegs       []emulator.Reg
	StackReg      emulator.Reg
	StackOffset   uint64
	RetReg        emulator.Reg
	MinCallNumber uint64
	MaxCallNumber uint64
	ReturnPC      ReturnPCFunc
	Result        ResultFunc

	// FixArgs, if set, runs after the register arguments are read.
	FixArgs ArgsFunc
}

func (abi *ABI) stackArg(regs emulator.RegisterReader, mem emulator.Memory, index int) (uint64, error) {
	if mem == nil {
		return 0, errors.Wrap(syscalls.ErrMemoryRead, "no guest memory")
	}
	base, err := regs.RegRead(abi.StackReg)
	if err != nil {
		return 0, errors.Wrap(syscalls.ErrRegisterRead, err.Error())
	}
	size := abi.Arch.PointerSize()
	offset := syscalls.Align(abi.StackOffset, size) + uint64(index)*size
	word, err := emulator.ToPointer(mem, base+offset).MemReadWord()
	if err != nil {
		return 0, errors.Wrapf(syscalls.ErrMemoryRead, "stack argument %d: %v", index, err)
	}
	return word, nil
}

// NextInsn returns after a fixed-size trap instruction.
func NextInsn(size uint64) ReturnPCFunc {
	return func(regs emulator.RegisterReader, mem emulator.Memory, pc uint64) (uint64, error) {
		return pc + size, nil
	}
}

// ArmNextInsn accounts for Thumb state, where svc is two bytes wide.
func ArmNextInsn(regs emulator.RegisterReader, mem emulator.Memory, pc uint64) (uint64, error) {
	cpsr, err := regs.RegRead(emu_arm.ARM_REG_CPSR)
	if err != nil {
		return 0, errors.Wrap(syscalls.ErrRegisterRead, err.Error())
	}
	if cpsr&emu_arm.CPSR_T != 0 {
		return pc + 2, nil
	}
	return pc + 4, nil
}

// WordAt returns the guest word stored at the address held in reg.
func WordAt(reg emulator.Reg) ReturnPCFunc {
	return func(regs emulator.RegisterReader, mem emulator.Memory, pc uint64) (uint64, error) {
		addr, err := regs.RegRead(reg)
		if err != nil {
			return 0, errors.Wrap(syscalls.ErrRegisterRead, err.Error())
		}
		if mem == nil {
			return 0, errors.Wrap(syscalls.ErrMemoryRead, "no guest memory")
		}
		word, err := emulator.ToPointer(mem, addr).MemReadWord()
		if err != nil {
			return 0, errors.Wrapf(syscalls.ErrMemoryRead, "word at %016X: %v", addr, err)
		}
		return word, nil
	}
}

// SignExtend interprets the low size bytes of v as a signed integer.
func SignExtend[T constraints.Unsigned](v T, size uint64) int64 {
	switch size {
	case 4:
		return int64(int32(v))
	case 2:
		return int64(int16(v))
	case 1:
		return int64(int8(v))
	}
	return int64(v)
}
