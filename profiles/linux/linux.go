// Package linux registers the Linux profiles. Import it for side effects.
package linux

import (
	"github.com/wnxd/microtrace/emulator"
	internal "github.com/wnxd/microtrace/internal/profile/linux"
	"github.com/wnxd/microtrace/syscalls"
)

var _ = syscalls.Register(syscalls.OS_LINUX, emulator.ARCH_X86, internal.NewX86)
var _ = syscalls.Register(syscalls.OS_LINUX, emulator.ARCH_X86_64, internal.NewX86_64)
var _ = syscalls.Register(syscalls.OS_LINUX, emulator.ARCH_ARM, internal.NewArm)
var _ = syscalls.Register(syscalls.OS_LINUX, emulator.ARCH_ARM64, internal.NewArm64)
var _ = syscalls.Register(syscalls.OS_LINUX, emulator.ARCH_MIPS, internal.NewMips)
