package emulator

import (
	"encoding/binary"
	"unsafe"
)

type ByteOrder int

const (
	BO_LITTLE_ENDIAN ByteOrder = iota
	BO_BIG_ENDIAN
)

func (bo ByteOrder) Binary() binary.ByteOrder {
	if bo == BO_BIG_ENDIAN {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

type Memory interface {
	Arch() Arch
	ByteOrder() ByteOrder
	MemRead(addr, size uint64) ([]byte, error)
	MemReadPtr(addr, size uint64, ptr unsafe.Pointer) error
}
