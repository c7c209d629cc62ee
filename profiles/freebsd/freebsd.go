// Package freebsd registers the FreeBSD profiles. Import it for side effects.
package freebsd

import (
	"github.com/wnxd/microtrace/emulator"
	internal "github.com/wnxd/microtrace/internal/profile/freebsd"
	"github.com/wnxd/microtrace/syscalls"
)

var _ = syscalls.Register(syscalls.OS_FREEBSD, emulator.ARCH_X86_64, internal.NewX86_64)
