package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/microtrace/emulator"
	"github.com/wnxd/microtrace/emulator/emutest"
)

func TestDecodeScalars(t *testing.T) {
	var (
		fd    int
		flags uint32
		ok    bool
		off   int64
	)
	stream := SlotStream([]uint64{0xFFFFFFFFFFFFFFFF, 0x80042, 1, 0xFFFFFFFFFFFFFFF0}, nil)
	require.NoError(t, Decode(stream, &fd, &flags, &ok, &off))
	assert.Equal(t, -1, fd)
	assert.Equal(t, uint32(0x80042), flags)
	assert.True(t, ok)
	assert.Equal(t, int64(-16), off)
	assert.Equal(t, 4, stream.Offset())
}

func TestDecodeIntUses32BitSlots(t *testing.T) {
	emu := emutest.New(emulator.ARCH_ARM)
	var fd int
	require.NoError(t, Decode(SlotStream([]uint64{0xFFFFFF9C}, emu), &fd))
	assert.Equal(t, -100, fd)
}

func TestDecodeSkipAndEnd(t *testing.T) {
	var b uint64
	stream := SlotStream([]uint64{1, 2}, nil)
	require.NoError(t, Decode(stream, nil, &b))
	assert.Equal(t, uint64(2), b)
	assert.ErrorIs(t, Decode(stream, &b), ErrStreamEnd)
}

func TestDecodeNotAPointer(t *testing.T) {
	assert.ErrorIs(t, Decode(SlotStream([]uint64{1}, nil), 5), ErrNotAPointer)
}

func TestDecodeUnsupported(t *testing.T) {
	var f float64
	assert.ErrorIs(t, Decode(SlotStream([]uint64{1}, nil), &f), ErrUnsupported)
}

func TestDecodeString(t *testing.T) {
	emu := emutest.New(emulator.ARCH_X86_64)
	emu.MemWrite(0x1000, []byte("/etc/passwd\x00"))

	var path, empty string
	require.NoError(t, Decode(SlotStream([]uint64{0x1000, 0}, emu), &path, &empty))
	assert.Equal(t, "/etc/passwd", path)
	assert.Empty(t, empty)

	assert.ErrorIs(t, Decode(SlotStream([]uint64{0x1000}, nil), &path), ErrNoMemory)
	assert.ErrorIs(t, Decode(SlotStream([]uint64{0x9000}, emu), &path), emulator.ErrMemUnmapped)
}

func TestDecodeStringTruncated(t *testing.T) {
	emu := emutest.New(emulator.ARCH_X86_64)
	emu.MemWrite(0x10000, bytes.Repeat([]byte{'A'}, emulator.MAX_STRING_SIZE+0x100))

	var s string
	assert.ErrorIs(t, Decode(SlotStream([]uint64{0x10000}, emu), &s), emulator.ErrStringTruncated)
	assert.Len(t, s, emulator.MAX_STRING_SIZE)
}

func TestDecodeStructAndPointer(t *testing.T) {
	type timespec struct {
		Sec  int64
		Nsec int64
	}
	type args struct {
		Clock   int32
		Flags   uint32 `encoding:"ignore"`
		Request *timespec
		Remain  *timespec
	}
	emu := emutest.New(emulator.ARCH_X86_64)
	emu.MemWriteWord(0x2000, 3)
	emu.MemWriteWord(0x2008, 500)

	var a args
	require.NoError(t, Decode(SlotStream([]uint64{1, 0x2000, 0}, emu), &a))
	assert.Equal(t, int32(1), a.Clock)
	assert.Zero(t, a.Flags)
	require.NotNil(t, a.Request)
	assert.Equal(t, timespec{Sec: 3, Nsec: 500}, *a.Request)
	assert.Nil(t, a.Remain)
}

func TestDecodeArray(t *testing.T) {
	var regs [3]uint16
	require.NoError(t, Decode(SlotStream([]uint64{1, 2, 3, 4}, nil), &regs))
	assert.Equal(t, [3]uint16{1, 2, 3}, regs)
}
