// Package windows registers the Windows NT profiles. Import it for side effects.
package windows

import (
	"github.com/wnxd/microtrace/emulator"
	internal "github.com/wnxd/microtrace/internal/profile/windows"
	"github.com/wnxd/microtrace/syscalls"
)

var _ = syscalls.Register(syscalls.OS_WINDOWS_2000, emulator.ARCH_X86, internal.New2000)
var _ = syscalls.Register(syscalls.OS_WINDOWS_XPSP2, emulator.ARCH_X86, internal.NewXPSP2)
var _ = syscalls.Register(syscalls.OS_WINDOWS_XPSP3, emulator.ARCH_X86, internal.NewXPSP3)
var _ = syscalls.Register(syscalls.OS_WINDOWS_7, emulator.ARCH_X86, internal.New7X86)
var _ = syscalls.Register(syscalls.OS_WINDOWS_7, emulator.ARCH_X86_64, internal.New7X86_64)
