package replay

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wnxd/microtrace/emulator/emutest"
	"github.com/wnxd/microtrace/syscalls"
	"github.com/wnxd/microtrace/tracer"
)

type Options struct {
	Logger    logrus.FieldLogger
	Consumers []syscalls.Consumer
	// Observe is called with the open session before the first event.
	Observe func(syscalls.Tracer)
}

// Run replays trace through a fresh session and returns every record it
// produced, including those reported when the session closes.
func Run(trace *Trace, opts Options) ([]syscalls.Record, error) {
	tag, err := trace.Tag()
	if err != nil {
		return nil, err
	}
	mode, err := syscalls.ParseKeyMode(trace.KeyMode)
	if err != nil {
		return nil, err
	}
	var emu *emutest.Emulator
	if trace.BigEndian {
		emu = emutest.NewBigEndian(tag.Arch)
	} else {
		emu = emutest.New(tag.Arch)
	}
	if err := writeRegions(emu, trace.Memory); err != nil {
		return nil, err
	}

	tr, err := tracer.New(emu, syscalls.Config{OS: tag.OS, Arch: tag.Arch, KeyMode: mode, Logger: opts.Logger})
	if err != nil {
		return nil, err
	}
	var records []syscalls.Record
	tr.Subscribe(syscalls.ConsumerFunc(func(r syscalls.Record) {
		records = append(records, r)
	}))
	for _, c := range opts.Consumers {
		tr.Subscribe(c)
	}
	if opts.Observe != nil {
		opts.Observe(tr)
	}

	var result error
	for i := range trace.Events {
		if err := step(emu, tr, &trace.Events[i]); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "event %d", i))
			break
		}
	}
	if err := tr.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return records, result
}

func step(emu *emutest.Emulator, tr syscalls.Tracer, s *Step) error {
	if s.ASID != nil {
		emu.SetAddressSpace(*s.ASID)
	}
	if s.TID != nil {
		emu.SetThread(*s.TID)
	}
	for name, value := range s.Regs {
		reg, err := register(emu.Arch(), name)
		if err != nil {
			return err
		}
		emu.SetReg(reg, value)
	}
	if err := writeRegions(emu, s.Memory); err != nil {
		return err
	}
	switch {
	case s.Interrupt != nil:
		emu.Interrupt(*s.Interrupt)
	case s.Insn != "":
		insn, err := parseInsn(s.Insn)
		if err != nil {
			return err
		}
		emu.Insn(insn)
	case s.Exec != nil:
		emu.Exec(*s.Exec)
	case s.Evict != nil:
		tr.EvictAddressSpace(*s.Evict)
	}
	return nil
}

func writeRegions(emu *emutest.Emulator, regions []Region) error {
	for _, r := range regions {
		data, err := r.bytes(emu.Arch(), emu.ByteOrder())
		if err != nil {
			return err
		}
		emu.MemWrite(r.Addr, data)
	}
	return nil
}
