package tracer

import (
	"maps"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/wnxd/microtrace/emulator"
)

// hookManager shares one host code hook per return pc between every address
// space waiting on it.
type hookManager struct {
	emu     emulator.Emulator
	forward func(pc uint64)
	sites   map[uint64]*returnSite
}

type returnSite struct {
	hook emulator.Hook
	refs map[uint64]int
}

type hookHandle struct {
	m      *hookManager
	asid   uint64
	pc     uint64
	closed bool
}

func (m *hookManager) ctor(emu emulator.Emulator, forward func(pc uint64)) {
	m.emu = emu
	m.forward = forward
	m.sites = make(map[uint64]*returnSite)
}

func (m *hookManager) dtor() error {
	var result error
	for _, pc := range slices.Sorted(maps.Keys(m.sites)) {
		if err := m.sites[pc].hook.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	clear(m.sites)
	return result
}

func (m *hookManager) install(asid, pc uint64) (*hookHandle, error) {
	site, ok := m.sites[pc]
	if !ok {
		hook, err := m.emu.Hook(emulator.HOOK_TYPE_CODE, m.handleCode, nil, pc, pc)
		if err != nil {
			return nil, err
		}
		site = &returnSite{hook: hook, refs: make(map[uint64]int)}
		m.sites[pc] = site
	}
	site.refs[asid]++
	return &hookHandle{m: m, asid: asid, pc: pc}, nil
}

func (m *hookManager) release(asid, pc uint64) error {
	site, ok := m.sites[pc]
	if !ok {
		return nil
	}
	if site.refs[asid]--; site.refs[asid] <= 0 {
		delete(site.refs, asid)
	}
	if len(site.refs) != 0 {
		return nil
	}
	delete(m.sites, pc)
	return site.hook.Close()
}

func (m *hookManager) referenced(asid, pc uint64) bool {
	site, ok := m.sites[pc]
	return ok && site.refs[asid] > 0
}

func (m *hookManager) refs(asid, pc uint64) int {
	if site, ok := m.sites[pc]; ok {
		return site.refs[asid]
	}
	return 0
}

func (m *hookManager) count() int {
	return len(m.sites)
}

func (m *hookManager) handleCode(addr, size uint64, data any) {
	m.forward(addr)
}

func (h *hookHandle) Close() error {
	if h == nil || h.closed {
		return nil
	}
	h.closed = true
	return h.m.release(h.asid, h.pc)
}
