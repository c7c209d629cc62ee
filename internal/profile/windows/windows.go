package windows

import (
	"embed"

	"github.com/wnxd/microtrace/emulator"
	"github.com/wnxd/microtrace/internal/profile"
	"github.com/wnxd/microtrace/syscalls"
)

// Service numbers at or above 0x1000 belong to win32k.sys.
const (
	SERVICE_TABLE_MAX = 0x1FFF
	STATUS_SEVERITY   = 0x80000000
)

//go:embed tables/*.yaml
var tables embed.FS

func newProfile(os syscalls.OS, arch emulator.Arch, abi *profile.ABI, name string) (syscalls.Profile, error) {
	table, err := profile.LoadTableFS(tables, "tables/"+name+".yaml")
	if err != nil {
		return nil, err
	}
	return profile.New(syscalls.Tag{OS: os, Arch: arch}, abi, table), nil
}

// ntStatus reports failure for error and warning severities.
func ntStatus(regs emulator.RegisterReader, raw uint64) (syscalls.DecodedReturn, error) {
	status := uint32(raw)
	ret := syscalls.DecodedReturn{Raw: raw, Value: int64(status), Success: true}
	if status&STATUS_SEVERITY != 0 {
		ret.Success = false
		ret.Errno = int64(status)
	}
	return ret, nil
}
