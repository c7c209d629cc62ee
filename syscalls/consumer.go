package syscalls

type Consumer interface {
	Consume(Record)
}

type ConsumerFunc func(Record)

func (f ConsumerFunc) Consume(r Record) {
	f(r)
}

// Callbacks routes records to per-syscall and catch-all handlers. Named
// handlers run after the catch-all ones.
type Callbacks struct {
	OnAllEnter     func(*SyscallEnter)
	OnAllReturn    func(*SyscallReturn)
	OnEnter        map[string]func(*SyscallEnter)
	OnReturn       map[string]func(*SyscallReturn)
	OnUnknownEnter func(*SyscallEnter)
	OnAnomaly      func(Record)
}

func (cb *Callbacks) Consume(r Record) {
	switch r := r.(type) {
	case *SyscallEnter:
		if cb.OnAllEnter != nil {
			cb.OnAllEnter(r)
		}
		if r.Prototype == nil {
			if cb.OnUnknownEnter != nil {
				cb.OnUnknownEnter(r)
			}
		} else if fn, ok := cb.OnEnter[r.Prototype.Name]; ok {
			fn(r)
		}
	case *SyscallReturn:
		if cb.OnAllReturn != nil {
			cb.OnAllReturn(r)
		}
		if r.Prototype != nil {
			if fn, ok := cb.OnReturn[r.Prototype.Name]; ok {
				fn(r)
			}
		}
	default:
		if cb.OnAnomaly != nil {
			cb.OnAnomaly(r)
		}
	}
}
