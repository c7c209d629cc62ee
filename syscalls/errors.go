package syscalls

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnknownProfile     = errors.New("unknown profile")
	ErrKeyModeUnsupported = errors.New("key mode unsupported")
	ErrSessionClosed      = errors.New("session closed")
	ErrCallNumberRange    = errors.New("call number out of range")
	ErrRegisterRead       = errors.New("register read failed")
	ErrMemoryRead         = errors.New("memory read failed")
	ErrArgumentInvalid    = errors.New("argument invalid")
	ErrTagInvalid         = errors.New("profile tag invalid")
)

type Stage int

const (
	StageEnter Stage = iota
	StageReturn
)

func (s Stage) String() string {
	switch s {
	case StageEnter:
		return "enter"
	case StageReturn:
		return "return"
	}
	return "unknown"
}

// DecodeError is returned by profile decoders that could not interpret a
// register snapshot.
type DecodeError struct {
	Stage      Stage
	PC         uint64
	CallNumber uint64
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("[DecodeFailure] stage: %s, pc: %016X, callno: %d, %v", e.Stage, e.PC, e.CallNumber, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func NewDecodeError(stage Stage, pc, callno uint64, err error) error {
	return &DecodeError{Stage: stage, PC: pc, CallNumber: callno, Err: err}
}
