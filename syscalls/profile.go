package syscalls

import (
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/wnxd/microtrace/emulator"
)

type OS string

const (
	OS_LINUX         OS = "linux"
	OS_FREEBSD       OS = "freebsd"
	OS_WINDOWS_2000  OS = "windows-2000"
	OS_WINDOWS_XPSP2 OS = "windows-xpsp2"
	OS_WINDOWS_XPSP3 OS = "windows-xpsp3"
	OS_WINDOWS_7     OS = "windows-7"
)

// Family strips the version suffix: "windows-7" is in family "windows".
func (os OS) Family() string {
	family, _, _ := strings.Cut(string(os), "-")
	return family
}

type Tag struct {
	OS   OS
	Arch emulator.Arch
}

func (t Tag) String() string {
	return string(t.OS) + "-" + t.Arch.String()
}

func ParseTag(s string) (Tag, error) {
	i := strings.LastIndexByte(s, '-')
	if i <= 0 {
		return Tag{}, errors.Wrapf(ErrTagInvalid, "%q", s)
	}
	arch, err := emulator.ParseArch(s[i+1:])
	if err != nil {
		return Tag{}, errors.Wrapf(ErrTagInvalid, "%q: %v", s, err)
	}
	return Tag{OS: OS(strings.ToLower(s[:i])), Arch: arch}, nil
}

// Profile decodes syscall entry and return events for one OS and
// architecture pair. Implementations must be pure functions of their inputs.
type Profile interface {
	Tag() Tag
	DecodeEnter(regs emulator.RegisterReader, mem emulator.Memory, pc uint64) (Entry, error)
	DecodeReturn(ctx *Context, regs emulator.RegisterReader) (DecodedReturn, error)
	Prototype(no uint64) (*Prototype, bool)
}

type ProfileCtor func() (Profile, error)

var (
	profileMu  sync.RWMutex
	profileMap = make(map[Tag]ProfileCtor)
)

func Register(os OS, arch emulator.Arch, ctor ProfileCtor) bool {
	profileMu.Lock()
	defer profileMu.Unlock()
	tag := Tag{os, arch}
	if _, ok := profileMap[tag]; ok {
		return false
	}
	profileMap[tag] = ctor
	return true
}

func Select(os OS, arch emulator.Arch) (Profile, error) {
	tag := Tag{os, arch}
	profileMu.RLock()
	ctor, ok := profileMap[tag]
	profileMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProfile, "%s", tag)
	}
	profile, err := ctor()
	if err != nil {
		return nil, errors.Wrapf(err, "profile %s", tag)
	}
	return profile, nil
}

func Profiles() []Tag {
	profileMu.RLock()
	tags := make([]Tag, 0, len(profileMap))
	for tag := range profileMap {
		tags = append(tags, tag)
	}
	profileMu.RUnlock()
	slices.SortFunc(tags, func(a, b Tag) int {
		return strings.Compare(a.String(), b.String())
	})
	return tags
}
