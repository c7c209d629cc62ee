// Package tracer opens syscall tracing sessions on an emulator. Profiles are
// made available by importing the packages under profiles/.
package tracer

import (
	"github.com/wnxd/microtrace/emulator"
	internal "github.com/wnxd/microtrace/internal/tracer"
	"github.com/wnxd/microtrace/syscalls"
)

var _ syscalls.Tracer = (*internal.Tracer)(nil)

func New(emu emulator.Emulator, cfg syscalls.Config) (syscalls.Tracer, error) {
	t, err := internal.New(emu, cfg)
	if err != nil {
		return nil, err
	}
	return t, nil
}
