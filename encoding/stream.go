package encoding

import (
	"github.com/pkg/errors"

	"github.com/wnxd/microtrace/emulator"
)

var (
	ErrStreamEnd   = errors.New("argument stream exhausted")
	ErrNoMemory    = errors.New("guest memory unavailable")
	ErrUnsupported = errors.New("unsupported type")
	ErrNotAPointer = errors.New("destination is not a pointer")
)

// Stream yields argument slots, one guest word each.
type Stream interface {
	BlockSize() int
	Offset() int
	Skip(n int) error
	ReadSlot() (uint64, error)
	Memory() emulator.Memory
}

type slotStream struct {
	slots []uint64
	off   int
	mem   emulator.Memory
}

func SlotStream(slots []uint64, mem emulator.Memory) Stream {
	return &slotStream{slots: slots, mem: mem}
}

func (ss *slotStream) BlockSize() int {
	if ss.mem == nil {
		return 8
	}
	if size := ss.mem.Arch().PointerSize(); size != 0 {
		return int(size)
	}
	return 8
}

func (ss *slotStream) Offset() int {
	return ss.off
}

func (ss *slotStream) Skip(n int) error {
	if ss.off+n > len(ss.slots) {
		ss.off = len(ss.slots)
		return ErrStreamEnd
	}
	ss.off += n
	return nil
}

func (ss *slotStream) ReadSlot() (uint64, error) {
	if ss.off >= len(ss.slots) {
		return 0, ErrStreamEnd
	}
	v := ss.slots[ss.off]
	ss.off++
	return v, nil
}

func (ss *slotStream) Memory() emulator.Memory {
	return ss.mem
}
