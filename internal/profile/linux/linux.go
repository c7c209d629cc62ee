package linux

import (
	"embed"

	"github.com/wnxd/microtrace/emulator"
	"github.com/wnxd/microtrace/internal/profile"
	"github.com/wnxd/microtrace/syscalls"
)

// MAX_ERRNO bounds the negative return values the kernel uses for errors.
const MAX_ERRNO = 4095

//go:embed tables/*.yaml
var tables embed.FS

func newProfile(arch emulator.Arch, abi *profile.ABI, name string) (syscalls.Profile, error) {
	table, err := profile.LoadTableFS(tables, "tables/"+name+".yaml")
	if err != nil {
		return nil, err
	}
	return profile.New(syscalls.Tag{OS: syscalls.OS_LINUX, Arch: arch}, abi, table), nil
}

// result treats values in [-MAX_ERRNO, -1] as negated errno.
func result(size uint64) profile.ResultFunc {
	return func(regs emulator.RegisterReader, raw uint64) (syscalls.DecodedReturn, error) {
		value := profile.SignExtend(raw, size)
		ret := syscalls.DecodedReturn{Raw: raw, Value: value, Success: true}
		if value < 0 && value >= -MAX_ERRNO {
			ret.Success = false
			ret.Errno = -value
		}
		return ret, nil
	}
}
