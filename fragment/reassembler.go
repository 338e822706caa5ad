package fragment

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/cubesat-gs/satlink/datagram"
	"github.com/cubesat-gs/satlink/frame"
)

// Receiver is the subset of *datagram.Engine the Reassembler drives.
type Receiver interface {
	Receive(ctx context.Context, keepListening, withHeader, withAck bool, timeout *time.Duration) (datagram.Received, error)
}

const defaultMaxRxFails = 10

// Reassembler holds the state of an in-progress buffered message stream:
// the bytes accumulated so far and the last fragment body seen, used to
// silently drop an exact repeat of the previous fragment (the on-air
// equivalent of a duplicate ACK'd-but-resent MID/END fragment, §4.F). It
// is not safe for concurrent use; one Reassembler serves one peer.
type Reassembler struct {
	// MaxRxFails bounds consecutive receive timeouts before Receive gives
	// up and reports ErrTooManyFailures (the wait_for_message ceiling;
	// §5's "max_rx_fails × receive_timeout").
	MaxRxFails int

	accum   []byte
	last    []byte
	current family
	fails   int
}

// NewReassembler returns a Reassembler with the default failure budget.
func NewReassembler() *Reassembler {
	return &Reassembler{MaxRxFails: defaultMaxRxFails}
}

func (r *Reassembler) reset() {
	r.accum = nil
	r.last = nil
	r.current = familyNone
}

// Receive blocks on engine until either an atomic (non-buffered) frame
// arrives, in which case it is returned as-is, or a full buffered stream
// (START, zero or more MID, END) completes, in which case the opcode
// returned is the family's START opcode — not END — carrying the
// concatenation of every fragment's body (the "Observable contract" of
// §4.F: callers distinguish message types by the opcode that introduced
// them, not the one that closed them). ErrTooManyFailures is returned once
// MaxRxFails consecutive receive timeouts have elapsed with no fragment
// arriving.
func (r *Reassembler) Receive(ctx context.Context, engine Receiver, timeout *time.Duration) (Opcode, []byte, error) {
	for {
		received, err := engine.Receive(ctx, true, true, true, timeout)
		if err != nil {
			switch {
			case errors.Is(err, datagram.ErrRxTimeout):
				r.fails++
				if r.fails >= r.MaxRxFails {
					r.fails = 0
					r.reset()
					return 0, nil, ErrTooManyFailures
				}
				continue
			case errors.Is(err, datagram.ErrDuplicateFrame),
				errors.Is(err, datagram.ErrAddressFiltered),
				errors.Is(err, frame.ErrChecksumMismatch):
				// Recovered locally per §7; keep polling without
				// touching the failure budget.
				continue
			default:
				return 0, nil, err
			}
		}
		r.fails = 0
		if len(received.Payload) == 0 {
			return 0, nil, ErrEmptyFrame
		}

		opcode := Opcode(received.Payload[0])
		body := received.Payload[1:]
		fam := opcode.family()

		if fam == familyNone {
			return opcode, body, nil
		}

		start, _, end := opcode.position()

		switch {
		case start:
			r.accum = append([]byte{}, body...)
			r.last = body
			r.current = fam
			continue

		case r.current != fam:
			// A MID/END arrived with no matching START in progress, or
			// crossing from one buffered family into another; the spec
			// does not define this case, so start fresh rather than
			// silently drop a stream the sender believes is underway. A
			// lone END is a complete single-fragment stream.
			r.accum = append([]byte{}, body...)
			r.last = body
			r.current = fam
			if end {
				opc, result := fam.startOpcode(), r.accum
				r.reset()
				return opc, result, nil
			}
			continue

		case bytes.Equal(body, r.last):
			// Exact repeat of the previous fragment: the sender's ACK for
			// it was likely lost and it was retransmitted unchanged.
			if end {
				opc, result := fam.startOpcode(), r.accum
				r.reset()
				return opc, result, nil
			}
			continue

		default:
			r.accum = append(r.accum, body...)
			r.last = body
			if end {
				opc, result := fam.startOpcode(), r.accum
				r.reset()
				return opc, result, nil
			}
			continue
		}
	}
}
