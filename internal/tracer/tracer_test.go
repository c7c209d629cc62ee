package tracer

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/microtrace/emulator"
	emu_arm64 "github.com/wnxd/microtrace/emulator/arm64"
	"github.com/wnxd/microtrace/emulator/emutest"
	_ "github.com/wnxd/microtrace/profiles/linux"
	"github.com/wnxd/microtrace/syscalls"
)

const (
	sysOpenat   = 56
	sysRead     = 63
	sysWrite    = 64
	sysExitGrp  = 94
	callSite    = 0x400000
	retSite     = callSite + 4
	otherSite   = 0x400100
	otherReturn = otherSite + 4
)

type harness struct {
	emu     *emutest.Emulator
	tracer  *Tracer
	records []syscalls.Record
	logs    *logtest.Hook
}

func newHarness(t *testing.T, mode syscalls.KeyMode) *harness {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h := &harness{emu: emutest.New(emulator.ARCH_ARM64), logs: hook}
	tr, err := New(h.emu, syscalls.Config{OS: syscalls.OS_LINUX, KeyMode: mode, Logger: logger})
	require.NoError(t, err)
	h.tracer = tr
	tr.Subscribe(syscalls.ConsumerFunc(func(r syscalls.Record) {
		h.records = append(h.records, r)
	}))
	return h
}

// svc executes "svc #0" at site in asid with the given call number and args.
func (h *harness) svc(asid, site, no uint64, args ...uint64) {
	h.emu.SetAddressSpace(asid)
	h.emu.SetReg(emu_arm64.ARM64_REG_X8, no)
	for i, arg := range args {
		h.emu.SetReg(emu_arm64.ARM64_REG_X0+emulator.Reg(i), arg)
	}
	h.emu.SetReg(emu_arm64.ARM64_REG_PC, site+4)
	h.emu.Interrupt(emu_arm64.INTNO_SVC)
}

func (h *harness) ret(asid, pc, value uint64) {
	h.emu.SetAddressSpace(asid)
	h.emu.SetReg(emu_arm64.ARM64_REG_X0, value)
	h.emu.Exec(pc)
}

func (h *harness) take() []syscalls.Record {
	records := h.records
	h.records = nil
	return records
}

func kinds(records []syscalls.Record) []syscalls.RecordKind {
	ks := make([]syscalls.RecordKind, len(records))
	for i, r := range records {
		ks[i] = r.Kind()
	}
	return ks
}

func TestEnterReturnPairing(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.svc(1, callSite, sysRead, 3, 0x7000, 16)
	records := h.take()
	require.Len(t, records, 1)
	enter := records[0].(*syscalls.SyscallEnter)
	assert.Equal(t, uint64(1), enter.ASID)
	assert.Equal(t, uint64(callSite), enter.CallSite)
	assert.Equal(t, uint64(retSite), enter.ReturnPC)
	assert.Equal(t, "read", enter.Name())
	assert.Equal(t, uint64(3), enter.Args[0])
	assert.Equal(t, uint64(0x7000), enter.Args[1])
	assert.Equal(t, 1, h.tracer.InFlight())
	assert.Equal(t, 1, h.emu.Hooks(emulator.HOOK_TYPE_CODE))

	h.ret(1, retSite, 16)
	records = h.take()
	require.Len(t, records, 1)
	ret := records[0].(*syscalls.SyscallReturn)
	assert.Equal(t, enter.CallNumber, ret.CallNumber)
	assert.Equal(t, enter.Args, ret.Args)
	assert.True(t, ret.Return.Success)
	assert.Equal(t, int64(16), ret.Return.Value)
	assert.Equal(t, 0, h.tracer.InFlight())
	assert.Equal(t, 0, h.emu.Hooks(emulator.HOOK_TYPE_CODE))
}

func TestErrnoReturn(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.svc(1, callSite, sysOpenat, 0xFFFFFF9C, 0x7000)
	h.ret(1, retSite, uint64(0xFFFFFFFFFFFFFFFE))
	records := h.take()
	require.Equal(t, []syscalls.RecordKind{syscalls.RecordEnter, syscalls.RecordReturn}, kinds(records))
	ret := records[1].(*syscalls.SyscallReturn)
	assert.False(t, ret.Return.Success)
	assert.Equal(t, int64(2), ret.Return.Errno)
}

func TestCollisionEvictsPrevious(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.svc(1, callSite, sysRead, 3)
	h.svc(1, callSite, sysWrite, 4)
	records := h.take()
	require.Equal(t, []syscalls.RecordKind{syscalls.RecordEnter, syscalls.RecordUnmatchedEntry, syscalls.RecordEnter}, kinds(records))
	evicted := records[1].(*syscalls.UnmatchedEntry)
	assert.Equal(t, syscalls.EvictCollision, evicted.Reason)
	assert.Equal(t, uint64(sysRead), evicted.CallNumber)
	assert.Equal(t, 1, h.tracer.InFlight())
	assert.Equal(t, 1, h.emu.Hooks(emulator.HOOK_TYPE_CODE))

	h.ret(1, retSite, 1)
	records = h.take()
	require.Len(t, records, 1)
	assert.Equal(t, "write", records[0].(*syscalls.SyscallReturn).Name())
	assert.Equal(t, 0, h.emu.Hooks(emulator.HOOK_TYPE_CODE))
}

func TestUnmatchedReturnLeavesStore(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.svc(1, callSite, sysRead, 3)
	h.take()

	records := h.tracer.OnExecutionEvent(syscalls.Event{Kind: syscalls.EventExec, ASID: 1, PC: otherReturn, Regs: h.emu, Mem: h.emu})
	require.Len(t, records, 1)
	assert.Equal(t, &syscalls.UnmatchedReturn{ASID: 1, PC: otherReturn}, records[0])
	assert.Equal(t, records, h.take())
	assert.Equal(t, 1, h.tracer.InFlight())
	assert.Equal(t, 1, h.emu.Hooks(emulator.HOOK_TYPE_CODE))
}

func TestDistinctAddressSpacesShareReturnSite(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.svc(1, callSite, sysRead, 3)
	h.svc(2, callSite, sysWrite, 4)
	assert.Equal(t, []syscalls.RecordKind{syscalls.RecordEnter, syscalls.RecordEnter}, kinds(h.take()))
	assert.Equal(t, 2, h.tracer.InFlight())
	assert.Equal(t, 1, h.emu.Hooks(emulator.HOOK_TYPE_CODE))

	// asid 3 passes the shared return site without a pending call.
	h.ret(3, retSite, 0)
	assert.Empty(t, h.take())

	h.ret(2, retSite, 8)
	records := h.take()
	require.Len(t, records, 1)
	ret := records[0].(*syscalls.SyscallReturn)
	assert.Equal(t, uint64(2), ret.ASID)
	assert.Equal(t, "write", ret.Name())
	assert.Equal(t, 1, h.emu.Hooks(emulator.HOOK_TYPE_CODE))

	h.ret(1, retSite, 0)
	records = h.take()
	require.Len(t, records, 1)
	assert.Equal(t, uint64(1), records[0].(*syscalls.SyscallReturn).ASID)
	assert.Equal(t, 0, h.emu.Hooks(emulator.HOOK_TYPE_CODE))
}

func TestHookIdempotentAcrossRepeatedCalls(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	for i := 0; i < 3; i++ {
		h.svc(1, callSite, sysRead, 3)
		h.ret(1, retSite, 1)
	}
	records := h.take()
	require.Len(t, records, 6)
	for i := 0; i < len(records); i += 2 {
		assert.Equal(t, syscalls.RecordEnter, records[i].Kind())
		assert.Equal(t, syscalls.RecordReturn, records[i+1].Kind())
	}
	assert.Equal(t, 0, h.emu.Hooks(emulator.HOOK_TYPE_CODE))

	// Executing the return site again reports nothing once the hook is gone.
	h.ret(1, retSite, 1)
	assert.Empty(t, h.take())
}

func TestNoReturnSyscall(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.svc(1, callSite, sysExitGrp, 0)
	records := h.take()
	require.Len(t, records, 1)
	assert.Equal(t, "exit_group", records[0].(*syscalls.SyscallEnter).Name())
	assert.Equal(t, 0, h.tracer.InFlight())
	assert.Equal(t, 0, h.emu.Hooks(emulator.HOOK_TYPE_CODE))
}

func TestDecodeFailureOnEnter(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.svc(1, callSite, 5000, 1, 2)
	records := h.take()
	require.Len(t, records, 1)
	failure := records[0].(*syscalls.DecodeFailure)
	assert.Equal(t, syscalls.StageEnter, failure.Stage)
	assert.Equal(t, uint64(5000), failure.CallNumber)
	assert.Equal(t, uint64(2), failure.Args[1])
	assert.ErrorIs(t, failure.Err, syscalls.ErrCallNumberRange)
	assert.Equal(t, 0, h.tracer.InFlight())
	assert.Equal(t, 0, h.emu.Hooks(emulator.HOOK_TYPE_CODE))

	entry := h.logs.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
}

func TestDecodeFailureOnReturn(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.svc(1, callSite, sysRead, 3)
	h.take()
	h.emu.SetRegError(emu_arm64.ARM64_REG_X0, emulator.ErrRegUnsupported)
	h.emu.Exec(retSite)

	records := h.take()
	require.Len(t, records, 1)
	failure := records[0].(*syscalls.DecodeFailure)
	assert.Equal(t, syscalls.StageReturn, failure.Stage)
	assert.Equal(t, uint64(sysRead), failure.CallNumber)
	assert.Equal(t, uint64(3), failure.Args[0])
	assert.ErrorIs(t, failure.Err, syscalls.ErrRegisterRead)
	var decodeErr *syscalls.DecodeError
	require.True(t, errors.As(failure.Err, &decodeErr))
	assert.Equal(t, syscalls.StageReturn, decodeErr.Stage)
	assert.Equal(t, 0, h.tracer.InFlight())
	assert.Equal(t, 0, h.emu.Hooks(emulator.HOOK_TYPE_CODE))
}

func TestEvictAddressSpace(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.svc(1, otherSite, sysWrite, 1)
	h.svc(1, callSite, sysRead, 3)
	h.svc(2, callSite, sysRead, 4)
	h.take()

	records := h.tracer.EvictAddressSpace(1)
	require.Len(t, records, 2)
	first := records[0].(*syscalls.UnmatchedEntry)
	second := records[1].(*syscalls.UnmatchedEntry)
	assert.Equal(t, syscalls.EvictAddressSpace, first.Reason)
	assert.Equal(t, uint64(retSite), first.ReturnPC)
	assert.Equal(t, uint64(otherReturn), second.ReturnPC)
	assert.Equal(t, records, h.take())

	assert.Equal(t, 1, h.tracer.InFlight())
	assert.Equal(t, 1, h.emu.Hooks(emulator.HOOK_TYPE_CODE))
	assert.Empty(t, h.tracer.EvictAddressSpace(1))

	// A recycled asid 1 starts clean.
	h.ret(1, retSite, 0)
	assert.Empty(t, h.take())
}

func TestCloseReportsPendingCalls(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)

	h.svc(2, callSite, sysRead, 3)
	h.svc(1, callSite, sysRead, 3)
	h.svc(1, otherSite, sysWrite, 1)
	h.take()
	assert.Equal(t, 1, h.emu.Hooks(emulator.HOOK_TYPE_INTR))

	require.NoError(t, h.tracer.Close())
	records := h.take()
	require.Len(t, records, 3)
	var asids []uint64
	for _, r := range records {
		entry := r.(*syscalls.UnmatchedEntry)
		assert.Equal(t, syscalls.EvictSession, entry.Reason)
		asids = append(asids, entry.ASID)
	}
	assert.Equal(t, []uint64{1, 1, 2}, asids)
	assert.Equal(t, 0, h.emu.Hooks(emulator.HOOK_TYPE_CODE))
	assert.Equal(t, 0, h.emu.Hooks(emulator.HOOK_TYPE_INTR))
	assert.Equal(t, 0, h.tracer.InFlight())

	assert.Nil(t, h.tracer.OnExecutionEvent(syscalls.Event{Kind: syscalls.EventExec, ASID: 1, PC: retSite, Regs: h.emu, Mem: h.emu}))
	assert.Nil(t, h.tracer.EvictAddressSpace(1))
	assert.ErrorIs(t, h.tracer.Close(), syscalls.ErrSessionClosed)
	assert.Empty(t, h.take())
}

func TestThreadKeyMode(t *testing.T) {
	h := newHarness(t, syscalls.KeyThread)
	defer h.tracer.Close()

	h.emu.SetThread(10)
	h.svc(1, callSite, sysRead, 3)
	h.emu.SetThread(11)
	h.svc(1, callSite, sysWrite, 4)
	assert.Equal(t, []syscalls.RecordKind{syscalls.RecordEnter, syscalls.RecordEnter}, kinds(h.take()))
	assert.Equal(t, 2, h.tracer.InFlight())
	assert.Equal(t, 1, h.emu.Hooks(emulator.HOOK_TYPE_CODE))

	h.emu.SetThread(12)
	h.ret(1, retSite, 0)
	records := h.take()
	require.Len(t, records, 1)
	assert.Equal(t, &syscalls.UnmatchedReturn{ASID: 1, TID: 12, PC: retSite}, records[0])

	h.emu.SetThread(10)
	h.ret(1, retSite, 0)
	records = h.take()
	require.Len(t, records, 1)
	ret := records[0].(*syscalls.SyscallReturn)
	assert.Equal(t, uint64(10), ret.TID)
	assert.Equal(t, "read", ret.Name())
}

func TestNewErrors(t *testing.T) {
	emu := emutest.New(emulator.ARCH_ARM64)

	_, err := New(emu, syscalls.Config{OS: "plan9"})
	assert.ErrorIs(t, err, syscalls.ErrUnknownProfile)

	_, err = New(emu, syscalls.Config{OS: syscalls.OS_LINUX, Arch: emulator.ARCH_X86})
	assert.ErrorIs(t, err, emulator.ErrArchMismatch)

	_, err = New(emutest.WithoutThreads(emu), syscalls.Config{OS: syscalls.OS_LINUX, KeyMode: syscalls.KeyThread})
	assert.ErrorIs(t, err, syscalls.ErrKeyModeUnsupported)

	emu.SetHookError(emulator.ErrHookTypeInvalid)
	_, err = New(emu, syscalls.Config{OS: syscalls.OS_LINUX})
	assert.ErrorIs(t, err, emulator.ErrHookTypeInvalid)
}

func TestSubscribeCancel(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	var n int
	cancel := h.tracer.Subscribe(syscalls.ConsumerFunc(func(syscalls.Record) { n++ }))
	h.svc(1, callSite, sysRead, 3)
	cancel()
	cancel()
	h.ret(1, retSite, 0)
	assert.Equal(t, 1, n)
	assert.Len(t, h.take(), 2)
}

func TestOtherInterruptsIgnored(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.emu.SetReg(emu_arm64.ARM64_REG_PC, retSite)
	h.emu.Interrupt(7)
	assert.Empty(t, h.take())
	assert.Equal(t, 0, h.tracer.InFlight())
}

func TestUnreadableTrapPC(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.emu.SetRegError(emu_arm64.ARM64_REG_PC, emulator.ErrRegUnsupported)
	h.emu.SetAddressSpace(1)
	h.emu.SetReg(emu_arm64.ARM64_REG_X8, sysRead)
	h.emu.Interrupt(emu_arm64.INTNO_SVC)

	records := h.take()
	require.Len(t, records, 1)
	failure := records[0].(*syscalls.DecodeFailure)
	assert.Equal(t, syscalls.StageEnter, failure.Stage)
	assert.Equal(t, uint64(1), failure.ASID)
	assert.ErrorIs(t, failure.Err, syscalls.ErrRegisterRead)
	assert.Equal(t, 0, h.tracer.InFlight())
	assert.Equal(t, 0, h.emu.Hooks(emulator.HOOK_TYPE_CODE))
}

func TestUnidentifiedReturnSite(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.svc(1, callSite, sysRead, 3)
	h.take()
	h.emu.SetAddressSpaceError(emulator.ErrRegUnsupported)
	h.emu.Exec(retSite)

	records := h.take()
	require.Len(t, records, 1)
	failure := records[0].(*syscalls.DecodeFailure)
	assert.Equal(t, syscalls.StageReturn, failure.Stage)
	assert.Equal(t, uint64(retSite), failure.PC)
	assert.ErrorIs(t, failure.Err, syscalls.ErrRegisterRead)
	// the pending call is still there for a later, readable return
	assert.Equal(t, 1, h.tracer.InFlight())

	h.emu.SetAddressSpaceError(nil)
	h.ret(1, retSite, 3)
	records = h.take()
	require.Len(t, records, 1)
	assert.Equal(t, syscalls.RecordReturn, records[0].Kind())
}

func TestRecordsDeliveredInOrderAcrossGoroutines(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.tracer.Subscribe(syscalls.ConsumerFunc(func(r syscalls.Record) {
		if r.Kind() == syscalls.RecordEnter {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
	}))
	var seen []syscalls.RecordKind
	h.tracer.Subscribe(syscalls.ConsumerFunc(func(r syscalls.Record) {
		seen = append(seen, r.Kind())
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.svc(1, callSite, sysRead, 3)
	}()
	<-entered

	// a second vCPU completes the call while the entry is still being delivered
	records := h.tracer.OnExecutionEvent(syscalls.Event{Kind: syscalls.EventExec, ASID: 1, PC: retSite, Regs: h.emu, Mem: h.emu})
	require.Len(t, records, 1)
	assert.Equal(t, syscalls.RecordReturn, records[0].Kind())

	close(release)
	<-done
	assert.Equal(t, []syscalls.RecordKind{syscalls.RecordEnter, syscalls.RecordReturn}, seen)
	assert.Equal(t, []syscalls.RecordKind{syscalls.RecordEnter, syscalls.RecordReturn}, kinds(h.take()))
}

func TestConsumerReentersTracer(t *testing.T) {
	h := newHarness(t, syscalls.KeyAddressSpace)
	defer h.tracer.Close()

	h.tracer.Subscribe(syscalls.ConsumerFunc(func(r syscalls.Record) {
		if r.Kind() == syscalls.RecordEnter {
			h.tracer.EvictAddressSpace(1)
		}
	}))
	h.svc(1, callSite, sysRead, 3)
	assert.Equal(t, []syscalls.RecordKind{syscalls.RecordEnter, syscalls.RecordUnmatchedEntry}, kinds(h.take()))
	assert.Equal(t, 0, h.tracer.InFlight())
}
