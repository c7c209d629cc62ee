package emulator

import "unsafe"

type Reg int

type RegisterReader interface {
	RegRead(reg Reg) (uint64, error)
	RegReadPtr(reg Reg, ptr unsafe.Pointer) error
	RegReadBatch(regs ...Reg) ([]uint64, error)
}

// ThreadIdentifier is implemented by hosts that can name the guest thread
// currently executing.
type ThreadIdentifier interface {
	ThreadID() (uint64, error)
}

type AddressSpace interface {
	AddressSpace() (uint64, error)
}
