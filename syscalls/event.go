package syscalls

import "github.com/wnxd/microtrace/emulator"

type EventKind int

const (
	// EventTrap is delivered when the host flags a syscall trap instruction;
	// PC is the trap address.
	EventTrap EventKind = iota
	// EventExec is delivered when execution reaches a registered return site.
	EventExec
)

func (k EventKind) String() string {
	switch k {
	case EventTrap:
		return "trap"
	case EventExec:
		return "exec"
	}
	return "unknown"
}

type Event struct {
	Kind EventKind
	ASID uint64
	TID  uint64
	PC   uint64
	Regs emulator.RegisterReader
	Mem  emulator.Memory
}
