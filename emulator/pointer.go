package emulator

import (
	"slices"
	"unsafe"
)

type Uintptr32 = uint32
type Uintptr64 = uint64

// Pointer is a read-only view of a guest address.
type Pointer struct {
	mem  Memory
	addr uint64
}

func ToPointer(mem Memory, addr uint64) Pointer {
	return Pointer{mem, addr}
}

func (p Pointer) IsNil() bool {
	return p.addr == 0
}

func (p Pointer) Address() uint64 {
	return p.addr
}

func (p Pointer) Add(offset uint64) Pointer {
	return Pointer{p.mem, p.addr + offset}
}

func (p Pointer) Sub(offset uint64) Pointer {
	return Pointer{p.mem, p.addr - offset}
}

func (p Pointer) MemRead(size uint64) ([]byte, error) {
	return p.mem.MemRead(p.addr, size)
}

func (p Pointer) MemReadPtr(size uint64, ptr unsafe.Pointer) error {
	return p.mem.MemReadPtr(p.addr, size, ptr)
}

// MAX_STRING_SIZE bounds MemReadString; longer strings are cut with
// ErrStringTruncated.
const MAX_STRING_SIZE = 0x10 * 0x1000

func (p Pointer) MemReadString() (string, error) {
	var data []byte
	var buf [0x10]byte
	size := uint64(len(buf))
	for begin := p.addr; ; begin += size {
		if len(data) >= MAX_STRING_SIZE {
			return string(data[:MAX_STRING_SIZE]), ErrStringTruncated
		}
		err := p.mem.MemReadPtr(begin, size, unsafe.Pointer(unsafe.SliceData(buf[:])))
		if err != nil {
			return p.memReadStringTail(data, begin)
		}
		i := slices.Index(buf[:], 0)
		if i == -1 {
			data = append(data, buf[:]...)
		} else {
			data = append(data, buf[:i]...)
			break
		}
	}
	return truncate(data)
}

func truncate(data []byte) (string, error) {
	if len(data) > MAX_STRING_SIZE {
		return string(data[:MAX_STRING_SIZE]), ErrStringTruncated
	}
	return string(data), nil
}

// memReadStringTail finishes a string one byte at a time so a terminator
// just before unmapped memory is still found.
func (p Pointer) memReadStringTail(data []byte, addr uint64) (string, error) {
	for ; ; addr++ {
		b, err := p.mem.MemRead(addr, 1)
		if err != nil {
			return "", err
		}
		if b[0] == 0 {
			return truncate(data)
		}
		data = append(data, b[0])
	}
}

// MemReadWord reads one guest word honoring the guest byte order.
func (p Pointer) MemReadWord() (uint64, error) {
	size := p.mem.Arch().PointerSize()
	if size == 0 {
		return 0, ErrArchUnsupported
	}
	raw, err := p.mem.MemRead(p.addr, size)
	if err != nil {
		return 0, err
	}
	bo := p.mem.ByteOrder().Binary()
	if size == 4 {
		return uint64(bo.Uint32(raw)), nil
	}
	return bo.Uint64(raw), nil
}

func (p Pointer) MemReadPointer() (Pointer, error) {
	addr, err := p.MemReadWord()
	if err != nil {
		return Pointer{}, err
	}
	return Pointer{p.mem, addr}, nil
}

func (p Pointer) ReadAt(b []byte, off int64) (n int, err error) {
	return len(b), p.mem.MemReadPtr(p.addr+uint64(off), uint64(len(b)), unsafe.Pointer(unsafe.SliceData(b)))
}
