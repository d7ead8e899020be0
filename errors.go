package kcore

import "errors"

// Sentinel errors returned by the public API, standing in for the negative
// errno values (-EINVAL, -EOVERFLOW, -ENOBUFS, ...) RIOT's core returns.
var (
	ErrInvalidPriority = errors.New("kcore: invalid thread priority")
	ErrOverflow        = errors.New("kcore: thread table exhausted")
	ErrUnknownPID      = errors.New("kcore: unknown thread id")
	ErrWouldBlock      = errors.New("kcore: operation would block")
	ErrBusExhausted    = errors.New("kcore: message bus id space exhausted")
	ErrNoSuchEntry     = errors.New("kcore: no matching bus entry")
)
