package emulator

import "errors"

var (
	ErrArchUnsupported  = errors.New("architecture unsupported")
	ErrArchMismatch     = errors.New("architecture mismatch")
	ErrRegUnsupported   = errors.New("register unsupported")
	ErrMemUnmapped      = errors.New("memory unmapped")
	ErrHookTypeInvalid  = errors.New("hook type invalid")
	ErrHookCallbackType = errors.New("hook callback type exception")
	ErrInsnUnsupported  = errors.New("instruction unsupported")
	ErrStringTruncated  = errors.New("string truncated")
)
