package syscalls

import (
	"cmp"
	"strings"

	"github.com/pkg/errors"
)

const MaxArgs = 12

type RawArgs [MaxArgs]uint64

type KeyMode int

const (
	KeyAddressSpace KeyMode = iota
	KeyThread
)

func (m KeyMode) String() string {
	switch m {
	case KeyAddressSpace:
		return "asid"
	case KeyThread:
		return "thread"
	}
	return "unknown"
}

func ParseKeyMode(s string) (KeyMode, error) {
	switch strings.ToLower(s) {
	case "", "asid", "address-space":
		return KeyAddressSpace, nil
	case "thread", "tid":
		return KeyThread, nil
	}
	return 0, errors.Wrapf(ErrKeyModeUnsupported, "%q", s)
}

// Key identifies an in-flight syscall. TID is zero under KeyAddressSpace.
type Key struct {
	ASID, TID, PC uint64
}

func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.ASID, o.ASID); c != 0 {
		return c
	}
	if c := cmp.Compare(k.TID, o.TID); c != 0 {
		return c
	}
	return cmp.Compare(k.PC, o.PC)
}

type Prototype struct {
	Number   uint64   `json:"number"`
	Name     string   `json:"name"`
	Args     []string `json:"args,omitempty"`
	NoReturn bool     `json:"noreturn,omitempty"`
}

// Entry is what a profile extracts from the registers at a trap.
type Entry struct {
	CallNumber uint64
	Args       RawArgs
	ReturnPC   uint64
	Prototype  *Prototype
}

type Context struct {
	ASID       uint64
	TID        uint64
	CallSite   uint64
	ReturnPC   uint64
	CallNumber uint64
	Args       RawArgs
	Prototype  *Prototype
	Profile    Tag
}

func (c *Context) Key() Key {
	return Key{c.ASID, c.TID, c.ReturnPC}
}

func (c *Context) Name() string {
	if c.Prototype == nil {
		return ""
	}
	return c.Prototype.Name
}

type DecodedReturn struct {
	Raw     uint64 `json:"raw"`
	Value   int64  `json:"value"`
	Errno   int64  `json:"errno,omitempty"`
	Success bool   `json:"success"`
}
