// Package emutest provides a deterministic in-memory emulator for driving
// tracers without a CPU backend.
package emutest

import (
	"slices"
	"sync"
	"unsafe"

	"github.com/wnxd/microtrace/emulator"
	emu_arm "github.com/wnxd/microtrace/emulator/arm"
	emu_arm64 "github.com/wnxd/microtrace/emulator/arm64"
	emu_mips "github.com/wnxd/microtrace/emulator/mips"
	emu_x86 "github.com/wnxd/microtrace/emulator/x86"
)

type Emulator struct {
	mu      sync.Mutex
	arch    emulator.Arch
	order   emulator.ByteOrder
	regs    map[emulator.Reg]uint64
	regErrs map[emulator.Reg]error
	mem     map[uint64]byte
	asid    uint64
	asidErr error
	tid     uint64
	hooks   []*hook
	hookErr error
}

var (
	_ emulator.Emulator         = (*Emulator)(nil)
	_ emulator.ThreadIdentifier = (*Emulator)(nil)
)

type hook struct {
	emu        *Emulator
	typ        emulator.HookType
	insn       emulator.Insn
	callback   any
	data       any
	begin, end uint64
	closed     bool
}

func New(arch emulator.Arch) *Emulator {
	return &Emulator{
		arch:    arch,
		regs:    make(map[emulator.Reg]uint64),
		regErrs: make(map[emulator.Reg]error),
		mem:     make(map[uint64]byte),
	}
}

func NewBigEndian(arch emulator.Arch) *Emulator {
	emu := New(arch)
	emu.order = emulator.BO_BIG_ENDIAN
	return emu
}

// WithoutThreads hides the ThreadIdentifier capability of emu.
func WithoutThreads(emu *Emulator) emulator.Emulator {
	return struct{ emulator.Emulator }{emu}
}

func (e *Emulator) Arch() emulator.Arch {
	return e.arch
}

func (e *Emulator) ByteOrder() emulator.ByteOrder {
	return e.order
}

func (e *Emulator) PC() emulator.Reg {
	switch e.arch {
	case emulator.ARCH_ARM:
		return emu_arm.ARM_REG_PC
	case emulator.ARCH_ARM64:
		return emu_arm64.ARM64_REG_PC
	case emulator.ARCH_X86:
		return emu_x86.X86_REG_EIP
	case emulator.ARCH_X86_64:
		return emu_x86.X86_REG_RIP
	case emulator.ARCH_MIPS:
		return emu_mips.MIPS_REG_PC
	}
	return 0
}

func (e *Emulator) SetReg(reg emulator.Reg, value uint64) {
	e.mu.Lock()
	e.regs[reg] = value
	e.mu.Unlock()
}

func (e *Emulator) SetRegs(regs map[emulator.Reg]uint64) {
	e.mu.Lock()
	for reg, value := range regs {
		e.regs[reg] = value
	}
	e.mu.Unlock()
}

func (e *Emulator) ClearRegs() {
	e.mu.Lock()
	clear(e.regs)
	clear(e.regErrs)
	e.mu.Unlock()
}

// SetRegError makes reads of reg fail with err until the next ClearRegs.
func (e *Emulator) SetRegError(reg emulator.Reg, err error) {
	e.mu.Lock()
	e.regErrs[reg] = err
	e.mu.Unlock()
}

func (e *Emulator) SetAddressSpace(asid uint64) {
	e.mu.Lock()
	e.asid = asid
	e.mu.Unlock()
}

// SetAddressSpaceError makes AddressSpace fail with err; nil restores it.
func (e *Emulator) SetAddressSpaceError(err error) {
	e.mu.Lock()
	e.asidErr = err
	e.mu.Unlock()
}

func (e *Emulator) SetThread(tid uint64) {
	e.mu.Lock()
	e.tid = tid
	e.mu.Unlock()
}

// SetHookError makes subsequent hook installations fail with err.
func (e *Emulator) SetHookError(err error) {
	e.mu.Lock()
	e.hookErr = err
	e.mu.Unlock()
}

func (e *Emulator) RegRead(reg emulator.Reg) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.regErrs[reg]; ok {
		return 0, err
	}
	return e.regs[reg], nil
}

func (e *Emulator) RegReadPtr(reg emulator.Reg, ptr unsafe.Pointer) error {
	value, err := e.RegRead(reg)
	if err != nil {
		return err
	}
	*(*uint64)(ptr) = value
	return nil
}

func (e *Emulator) RegReadBatch(regs ...emulator.Reg) ([]uint64, error) {
	vals := make([]uint64, len(regs))
	for i, reg := range regs {
		value, err := e.RegRead(reg)
		if err != nil {
			return nil, err
		}
		vals[i] = value
	}
	return vals, nil
}

func (e *Emulator) ThreadID() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tid, nil
}

func (e *Emulator) AddressSpace() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.asidErr != nil {
		return 0, e.asidErr
	}
	return e.asid, nil
}

func (e *Emulator) MemWrite(addr uint64, data []byte) {
	e.mu.Lock()
	for i, b := range data {
		e.mem[addr+uint64(i)] = b
	}
	e.mu.Unlock()
}

// MemWriteWord stores value as one guest word in guest byte order.
func (e *Emulator) MemWriteWord(addr, value uint64) {
	size := e.arch.PointerSize()
	buf := make([]byte, 8)
	bo := e.order.Binary()
	if size == 4 {
		bo.PutUint32(buf, uint32(value))
	} else {
		bo.PutUint64(buf, value)
	}
	e.MemWrite(addr, buf[:size])
}

func (e *Emulator) MemRead(addr, size uint64) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data := make([]byte, size)
	for i := range data {
		b, ok := e.mem[addr+uint64(i)]
		if !ok {
			return nil, emulator.ErrMemUnmapped
		}
		data[i] = b
	}
	return data, nil
}

func (e *Emulator) MemReadPtr(addr, size uint64, ptr unsafe.Pointer) error {
	data, err := e.MemRead(addr, size)
	if err != nil {
		return err
	}
	copy(unsafe.Slice((*byte)(ptr), size), data)
	return nil
}

func (e *Emulator) Hook(typ emulator.HookType, callback any, data any, begin, end uint64) (emulator.Hook, error) {
	switch typ {
	case emulator.HOOK_TYPE_INTR:
		if _, ok := callback.(emulator.InterruptCallback); !ok {
			return nil, emulator.ErrHookCallbackType
		}
	case emulator.HOOK_TYPE_CODE, emulator.HOOK_TYPE_BLOCK:
		if _, ok := callback.(emulator.CodeCallback); !ok {
			return nil, emulator.ErrHookCallbackType
		}
	default:
		return nil, emulator.ErrHookTypeInvalid
	}
	return e.addHook(&hook{typ: typ, callback: callback, data: data, begin: begin, end: end})
}

func (e *Emulator) HookInsn(insn emulator.Insn, callback emulator.InsnCallback, data any, begin, end uint64) (emulator.Hook, error) {
	switch insn {
	case emulator.INSN_X86_SYSCALL, emulator.INSN_X86_SYSENTER:
	default:
		return nil, emulator.ErrInsnUnsupported
	}
	return e.addHook(&hook{typ: emulator.HOOK_TYPE_INSN, insn: insn, callback: callback, data: data, begin: begin, end: end})
}

func (e *Emulator) addHook(h *hook) (emulator.Hook, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hookErr != nil {
		return nil, e.hookErr
	}
	h.emu = e
	e.hooks = append(e.hooks, h)
	return h, nil
}

// Hooks reports how many live hooks of typ are installed.
func (e *Emulator) Hooks(typ emulator.HookType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var n int
	for _, h := range e.hooks {
		if h.typ == typ {
			n++
		}
	}
	return n
}

// Interrupt raises intno with the current pc, as a CPU loop would after
// executing a trapping instruction.
func (e *Emulator) Interrupt(intno uint64) {
	pc, _ := e.RegRead(e.PC())
	for _, h := range e.snapshot(emulator.HOOK_TYPE_INTR, pc) {
		if !h.live() {
			continue
		}
		h.callback.(emulator.InterruptCallback)(intno, h.data)
	}
}

// Insn reports execution of a hooked instruction at the current pc.
func (e *Emulator) Insn(insn emulator.Insn) {
	pc, _ := e.RegRead(e.PC())
	for _, h := range e.snapshot(emulator.HOOK_TYPE_INSN, pc) {
		if h.insn == insn && h.live() {
			h.callback.(emulator.InsnCallback)(h.data)
		}
	}
}

// Exec moves pc to addr and fires the code hooks covering it.
func (e *Emulator) Exec(addr uint64) {
	e.SetReg(e.PC(), addr)
	for _, h := range e.snapshot(emulator.HOOK_TYPE_CODE, addr) {
		if !h.live() {
			continue
		}
		h.callback.(emulator.CodeCallback)(addr, 1, h.data)
	}
}

func (e *Emulator) snapshot(typ emulator.HookType, pc uint64) []*hook {
	e.mu.Lock()
	defer e.mu.Unlock()
	var hooks []*hook
	for _, h := range e.hooks {
		if h.typ == typ && h.covers(pc) {
			hooks = append(hooks, h)
		}
	}
	return hooks
}

func (h *hook) covers(pc uint64) bool {
	if h.begin > h.end {
		return true
	}
	return pc >= h.begin && pc <= h.end
}

func (h *hook) live() bool {
	h.emu.mu.Lock()
	defer h.emu.mu.Unlock()
	return !h.closed
}

func (h *hook) Close() error {
	e := h.emu
	e.mu.Lock()
	defer e.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	e.hooks = slices.DeleteFunc(e.hooks, func(x *hook) bool { return x == h })
	return nil
}
