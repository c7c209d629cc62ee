package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/microtrace/emulator"
	emu_arm64 "github.com/wnxd/microtrace/emulator/arm64"
	"github.com/wnxd/microtrace/emulator/emutest"
	_ "github.com/wnxd/microtrace/profiles/linux"
	"github.com/wnxd/microtrace/syscalls"
	"github.com/wnxd/microtrace/tracer"
)

func TestCollector(t *testing.T) {
	emu := emutest.New(emulator.ARCH_ARM64)
	logger, _ := logtest.NewNullLogger()
	tr, err := tracer.New(emu, syscalls.Config{OS: syscalls.OS_LINUX, Logger: logger})
	require.NoError(t, err)
	defer tr.Close()

	c := NewCollector(tr)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	tr.Subscribe(c)

	svc := func(pc, no uint64) {
		emu.SetReg(emu_arm64.ARM64_REG_X8, no)
		emu.SetReg(emu_arm64.ARM64_REG_PC, pc+4)
		emu.Interrupt(emu_arm64.INTNO_SVC)
	}
	svc(0x1000, 63)
	svc(0x2000, 57)
	assert.Equal(t, float64(2), testutil.ToFloat64(c.inFlight))

	emu.SetReg(emu_arm64.ARM64_REG_X0, uint64(0xFFFFFFFFFFFFFFF7))
	emu.Exec(0x2004)
	tr.OnExecutionEvent(syscalls.Event{Kind: syscalls.EventExec, PC: 0x3004, Regs: emu, Mem: emu})

	assert.Equal(t, float64(1), testutil.ToFloat64(c.records.WithLabelValues("enter", "read")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.records.WithLabelValues("enter", "close")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.records.WithLabelValues("return", "close")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.records.WithLabelValues("unmatched_return", "")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.failures.WithLabelValues("close")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.inFlight))

	n, err := testutil.GatherAndCount(reg, "microtrace_records_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
