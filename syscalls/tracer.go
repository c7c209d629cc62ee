package syscalls

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/wnxd/microtrace/emulator"
)

type Config struct {
	OS      OS
	Arch    emulator.Arch
	KeyMode KeyMode
	Logger  logrus.FieldLogger
}

// Tracer is one observation session bound to a single emulator and profile.
type Tracer interface {
	io.Closer
	ID() string
	Profile() Profile
	KeyMode() KeyMode
	Subscribe(c Consumer) (cancel func())
	OnExecutionEvent(ev Event) []Record
	EvictAddressSpace(asid uint64) []Record
	InFlight() int
	Contexts() []Context
}
