package tracer

import (
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wnxd/microtrace/emulator"
	"github.com/wnxd/microtrace/syscalls"
)

type Tracer struct {
	mu     sync.Mutex
	id     string
	emu    emulator.Emulator
	closed bool
	engine
	trapManager
	consumerManager
}

func New(emu emulator.Emulator, cfg syscalls.Config) (*Tracer, error) {
	if cfg.Arch == emulator.ARCH_UNKNOWN {
		cfg.Arch = emu.Arch()
	} else if cfg.Arch != emu.Arch() {
		return nil, errors.Wrapf(emulator.ErrArchMismatch, "config %s, emulator %s", cfg.Arch, emu.Arch())
	}
	profile, err := syscalls.Select(cfg.OS, cfg.Arch)
	if err != nil {
		return nil, err
	}
	switch cfg.KeyMode {
	case syscalls.KeyAddressSpace:
	case syscalls.KeyThread:
		if _, ok := emu.(emulator.ThreadIdentifier); !ok {
			return nil, errors.Wrap(syscalls.ErrKeyModeUnsupported, "emulator cannot identify threads")
		}
	default:
		return nil, errors.Wrapf(syscalls.ErrKeyModeUnsupported, "%d", cfg.KeyMode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	t := &Tracer{id: uuid.NewString(), emu: emu}
	t.profile = profile
	t.keyMode = cfg.KeyMode
	t.log = logger.WithFields(logrus.Fields{"session": t.id, "profile": profile.Tag().String()})
	t.store.ctor()
	t.hooks.ctor(emu, t.onReturnSite)
	if err := t.trapManager.ctor(t); err != nil {
		return nil, err
	}
	t.log.WithField("key_mode", t.keyMode).Info("session started")
	return t, nil
}

func (t *Tracer) ID() string {
	return t.id
}

func (t *Tracer) Profile() syscalls.Profile {
	return t.profile
}

func (t *Tracer) KeyMode() syscalls.KeyMode {
	return t.keyMode
}

func (t *Tracer) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.len()
}

func (t *Tracer) Contexts() []syscalls.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	return t.store.contexts()
}

// OnExecutionEvent runs one event through the engine and hands the
// resulting records to every subscriber before returning them.
func (t *Tracer) OnExecutionEvent(ev syscalls.Event) []syscalls.Record {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	records := t.engine.onEvent(ev)
	t.enqueue(records)
	t.mu.Unlock()
	t.drain()
	return records
}

func (t *Tracer) EvictAddressSpace(asid uint64) []syscalls.Record {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	records := t.engine.evict(t.store.evictASID(asid), syscalls.EvictAddressSpace)
	t.enqueue(records)
	t.mu.Unlock()
	t.log.WithFields(logrus.Fields{"asid": asid, "evicted": len(records)}).Info("address space evicted")
	t.drain()
	return records
}

func (t *Tracer) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return syscalls.ErrSessionClosed
	}
	t.closed = true
	records := t.engine.evict(t.store.drain(), syscalls.EvictSession)
	t.enqueue(records)
	var result error
	if err := t.hooks.dtor(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := t.trapManager.dtor(); err != nil {
		result = multierror.Append(result, err)
	}
	t.store.dtor()
	t.mu.Unlock()
	t.log.WithField("evicted", len(records)).Info("session closed")
	t.drain()
	t.consumerManager.dtor()
	return result
}

func (t *Tracer) event(kind syscalls.EventKind, pc uint64) (syscalls.Event, error) {
	ev := syscalls.Event{Kind: kind, PC: pc, Regs: t.emu, Mem: t.emu}
	asid, err := t.emu.AddressSpace()
	if err != nil {
		return ev, errors.Wrapf(syscalls.ErrRegisterRead, "address space: %v", err)
	}
	ev.ASID = asid
	if t.keyMode == syscalls.KeyThread {
		ev.TID, err = t.emu.(emulator.ThreadIdentifier).ThreadID()
		if err != nil {
			return ev, errors.Wrapf(syscalls.ErrRegisterRead, "thread id: %v", err)
		}
	}
	return ev, nil
}

func (t *Tracer) onTrap(tr *trap) {
	pc, err := t.emu.RegRead(t.trapManager.pc)
	if err != nil {
		ev, _ := t.event(syscalls.EventTrap, 0)
		t.failure(syscalls.StageEnter, ev, errors.Wrapf(syscalls.ErrRegisterRead, "trap pc: %v", err))
		return
	}
	site, err := tr.callSite(t.emu, pc)
	if err != nil {
		ev, _ := t.event(syscalls.EventTrap, pc)
		t.failure(syscalls.StageEnter, ev, errors.Wrapf(syscalls.ErrRegisterRead, "call site: %v", err))
		return
	}
	ev, err := t.event(syscalls.EventTrap, site)
	if err != nil {
		t.failure(syscalls.StageEnter, ev, err)
		return
	}
	t.OnExecutionEvent(ev)
}

// onReturnSite is called by the shared code hook of a return pc. Address
// spaces without a pending context at pc are not reported.
func (t *Tracer) onReturnSite(pc uint64) {
	ev, err := t.event(syscalls.EventExec, pc)
	if err != nil {
		t.failure(syscalls.StageReturn, ev, err)
		return
	}
	t.mu.Lock()
	if t.closed || !t.hooks.referenced(ev.ASID, pc) {
		t.mu.Unlock()
		return
	}
	records := t.engine.onEvent(ev)
	t.enqueue(records)
	t.mu.Unlock()
	t.drain()
}

// failure reports an event the engine never saw because the emulator state
// around it could not be read.
func (t *Tracer) failure(stage syscalls.Stage, ev syscalls.Event, err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.enqueue([]syscalls.Record{t.engine.decodeFailure(stage, ev, 0, syscalls.RawArgs{}, err)})
	t.mu.Unlock()
	t.drain()
}

func (t *Tracer) handleInterrupt(intno uint64, data any) {
	tr := data.(*trap)
	if intno != tr.intno {
		return
	}
	t.onTrap(tr)
}

func (t *Tracer) handleInsn(data any) {
	t.onTrap(data.(*trap))
}
