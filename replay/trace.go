// Package replay drives a tracer from a recorded execution trace instead of a
// live CPU.
package replay

import (
	"encoding/hex"
	"os"
	"strings"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/wnxd/microtrace/emulator"
	"github.com/wnxd/microtrace/syscalls"
)

var ErrStepInvalid = errors.New("trace step invalid")

// Trace is the YAML document read by Load:
//
//	profile: linux-arm64
//	events:
//	- asid: 1
//	  regs: {x8: 63, x0: 3, pc: 0x1004}
//	  interrupt: 2
//	- regs: {x0: 16}
//	  exec: 0x1004
type Trace struct {
	Profile   string   `json:"profile"`
	KeyMode   string   `json:"keyMode,omitempty"`
	BigEndian bool     `json:"bigEndian,omitempty"`
	Memory    []Region `json:"memory,omitempty"`
	Events    []Step   `json:"events"`
}

// Region seeds guest memory at Addr. Text, Hex and Words are written in that
// order, back to back.
type Region struct {
	Addr  uint64   `json:"addr"`
	Text  string   `json:"text,omitempty"`
	Hex   string   `json:"hex,omitempty"`
	Words []uint64 `json:"words,omitempty"`
}

// Step updates emulator state and then performs at most one action.
type Step struct {
	ASID      *uint64           `json:"asid,omitempty"`
	TID       *uint64           `json:"tid,omitempty"`
	Regs      map[string]uint64 `json:"regs,omitempty"`
	Memory    []Region          `json:"memory,omitempty"`
	Interrupt *uint64           `json:"interrupt,omitempty"`
	Insn      string            `json:"insn,omitempty"`
	Exec      *uint64           `json:"exec,omitempty"`
	Evict     *uint64           `json:"evict,omitempty"`
}

func Load(data []byte) (*Trace, error) {
	var trace Trace
	if err := yaml.UnmarshalStrict(data, &trace); err != nil {
		return nil, errors.Wrap(err, "parse trace")
	}
	if _, err := trace.Tag(); err != nil {
		return nil, err
	}
	for i := range trace.Events {
		if err := trace.Events[i].validate(); err != nil {
			return nil, errors.Wrapf(err, "event %d", i)
		}
	}
	return &trace, nil
}

func LoadFile(name string) (*Trace, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	trace, err := Load(data)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return trace, nil
}

func (t *Trace) Tag() (syscalls.Tag, error) {
	return syscalls.ParseTag(t.Profile)
}

func (s *Step) validate() error {
	var actions int
	if s.Interrupt != nil {
		actions++
	}
	if s.Insn != "" {
		if _, err := parseInsn(s.Insn); err != nil {
			return err
		}
		actions++
	}
	if s.Exec != nil {
		actions++
	}
	if s.Evict != nil {
		actions++
	}
	if actions > 1 {
		return errors.Wrap(ErrStepInvalid, "more than one action")
	}
	for _, r := range s.Memory {
		if _, err := r.bytes(emulator.ARCH_UNKNOWN, emulator.BO_LITTLE_ENDIAN); err != nil {
			return err
		}
	}
	return nil
}

func parseInsn(s string) (emulator.Insn, error) {
	switch strings.ToLower(s) {
	case "syscall":
		return emulator.INSN_X86_SYSCALL, nil
	case "sysenter":
		return emulator.INSN_X86_SYSENTER, nil
	}
	return emulator.INSN_UNKNOWN, errors.Wrapf(ErrStepInvalid, "instruction %q", s)
}

func (r *Region) bytes(arch emulator.Arch, order emulator.ByteOrder) ([]byte, error) {
	data := []byte(r.Text)
	if r.Hex != "" {
		raw, err := hex.DecodeString(strings.ReplaceAll(r.Hex, " ", ""))
		if err != nil {
			return nil, errors.Wrapf(ErrStepInvalid, "region %016X: %v", r.Addr, err)
		}
		data = append(data, raw...)
	}
	size := arch.PointerSize()
	if size == 0 {
		size = 8
	}
	bo := order.Binary()
	var buf [8]byte
	for _, w := range r.Words {
		if size == 4 {
			bo.PutUint32(buf[:], uint32(w))
		} else {
			bo.PutUint64(buf[:], w)
		}
		data = append(data, buf[:size]...)
	}
	return data, nil
}
