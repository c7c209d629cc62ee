package tracer

import (
	"github.com/sirupsen/logrus"

	"github.com/wnxd/microtrace/syscalls"
)

// engine pairs syscall entries with their returns. Callers serialize access.
type engine struct {
	profile syscalls.Profile
	keyMode syscalls.KeyMode
	log     *logrus.Entry
	store   contextStore
	hooks   hookManager
}

func (e *engine) onEvent(ev syscalls.Event) []syscalls.Record {
	if e.keyMode != syscalls.KeyThread {
		ev.TID = 0
	}
	switch ev.Kind {
	case syscalls.EventTrap:
		return e.onEnter(ev)
	case syscalls.EventExec:
		return e.onReturn(ev)
	}
	return nil
}

func (e *engine) onEnter(ev syscalls.Event) []syscalls.Record {
	entry, err := e.profile.DecodeEnter(ev.Regs, ev.Mem, ev.PC)
	if err != nil {
		return []syscalls.Record{e.decodeFailure(syscalls.StageEnter, ev, entry.CallNumber, entry.Args, err)}
	}
	ctx := syscalls.Context{
		ASID:       ev.ASID,
		TID:        ev.TID,
		CallSite:   ev.PC,
		ReturnPC:   entry.ReturnPC,
		CallNumber: entry.CallNumber,
		Args:       entry.Args,
		Prototype:  entry.Prototype,
		Profile:    e.profile.Tag(),
	}
	enter := syscalls.NewSyscallEnter(&ctx, ev.Mem)
	if ctx.Prototype != nil && ctx.Prototype.NoReturn {
		return []syscalls.Record{enter}
	}

	var records []syscalls.Record
	handle, err := e.hooks.install(ctx.ASID, ctx.ReturnPC)
	if err != nil {
		e.log.WithError(err).WithField("pc", ctx.ReturnPC).Warn("install return hook")
	}
	if old := e.store.insert(&slot{ctx: ctx, handle: handle}); old != nil {
		old.handle.Close()
		records = append(records, e.unmatchedEntry(&old.ctx, syscalls.EvictCollision))
	}
	return append(records, enter)
}

func (e *engine) onReturn(ev syscalls.Event) []syscalls.Record {
	sl, ok := e.store.take(syscalls.Key{ASID: ev.ASID, TID: ev.TID, PC: ev.PC})
	if !ok {
		e.log.WithFields(logrus.Fields{"asid": ev.ASID, "tid": ev.TID, "pc": ev.PC}).Debug("unmatched return")
		return []syscalls.Record{&syscalls.UnmatchedReturn{ASID: ev.ASID, TID: ev.TID, PC: ev.PC}}
	}
	sl.handle.Close()
	ret, err := e.profile.DecodeReturn(&sl.ctx, ev.Regs)
	if err != nil {
		return []syscalls.Record{e.decodeFailure(syscalls.StageReturn, ev, sl.ctx.CallNumber, sl.ctx.Args, err)}
	}
	return []syscalls.Record{syscalls.NewSyscallReturn(&sl.ctx, ret, ev.Mem)}
}

func (e *engine) evict(slots []*slot, reason syscalls.EvictReason) []syscalls.Record {
	records := make([]syscalls.Record, 0, len(slots))
	for _, sl := range slots {
		sl.handle.Close()
		records = append(records, e.unmatchedEntry(&sl.ctx, reason))
	}
	return records
}

func (e *engine) unmatchedEntry(ctx *syscalls.Context, reason syscalls.EvictReason) syscalls.Record {
	e.log.WithFields(logrus.Fields{
		"asid":   ctx.ASID,
		"tid":    ctx.TID,
		"pc":     ctx.ReturnPC,
		"callno": ctx.CallNumber,
		"reason": reason,
	}).Debug("unmatched entry")
	return syscalls.NewUnmatchedEntry(ctx, reason)
}

func (e *engine) decodeFailure(stage syscalls.Stage, ev syscalls.Event, callno uint64, args syscalls.RawArgs, err error) syscalls.Record {
	e.log.WithError(err).WithFields(logrus.Fields{
		"asid":  ev.ASID,
		"tid":   ev.TID,
		"pc":    ev.PC,
		"stage": stage,
	}).Warn("decode failure")
	return &syscalls.DecodeFailure{
		Stage:      stage,
		ASID:       ev.ASID,
		TID:        ev.TID,
		PC:         ev.PC,
		CallNumber: callno,
		Args:       args,
		Err:        err,
	}
}
