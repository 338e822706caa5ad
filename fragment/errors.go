package fragment

import "errors"

// ErrEmptyFrame is returned when a received frame carries no payload at
// all, not even an opcode byte.
var ErrEmptyFrame = errors.New("fragment: frame has no opcode byte")

// ErrTooManyFailures is returned once the reassembler has seen its
// configured limit of consecutive receive timeouts with no fragment
// arriving, matching the original ground station's max_rx_fails guard
// against waiting on a stalled reassembly forever.
var ErrTooManyFailures = errors.New("fragment: too many reassembly failures")
