package emulator

import "strings"

type Arch int

const (
	ARCH_UNKNOWN Arch = iota
	ARCH_ARM
	ARCH_ARM64
	ARCH_X86
	ARCH_X86_64
	ARCH_MIPS
)

var archNames = [...]string{
	ARCH_UNKNOWN: "unknown",
	ARCH_ARM:     "arm",
	ARCH_ARM64:   "arm64",
	ARCH_X86:     "x86",
	ARCH_X86_64:  "x86_64",
	ARCH_MIPS:    "mips",
}

func (a Arch) String() string {
	if a < 0 || int(a) >= len(archNames) {
		return archNames[ARCH_UNKNOWN]
	}
	return archNames[a]
}

// PointerSize is the guest word size in bytes, zero for ARCH_UNKNOWN.
func (a Arch) PointerSize() uint64 {
	switch a {
	case ARCH_ARM, ARCH_X86, ARCH_MIPS:
		return 4
	case ARCH_ARM64, ARCH_X86_64:
		return 8
	}
	return 0
}

func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(s) {
	case "arm":
		return ARCH_ARM, nil
	case "arm64", "aarch64":
		return ARCH_ARM64, nil
	case "x86", "i386", "i686":
		return ARCH_X86, nil
	case "x86_64", "x64", "amd64":
		return ARCH_X86_64, nil
	case "mips", "mipsel":
		return ARCH_MIPS, nil
	}
	return ARCH_UNKNOWN, ErrArchUnsupported
}
