package session

import (
	"bytes"
	"context"

	"github.com/cubesat-gs/satlink/fragment"
)

// SharedTag is the "super-secret code": a fixed constant byte string
// prefixed to every command payload. It is not a security primitive — it
// filters accidental frames from other link traffic, nothing more (§9
// design note).
var SharedTag = []byte("PCM1")

// Sender is the subset of *datagram.Engine a Client needs to transmit.
type Sender = fragment.Sender

// Receiver is the subset of *datagram.Engine a Client/Server needs to
// receive and reassemble.
type Receiver = fragment.Receiver

func buildCommandFrame(code byte, args []byte) []byte {
	out := make([]byte, 0, 2+len(SharedTag)+len(args))
	out = append(out, byte(fragment.Command))
	out = append(out, SharedTag...)
	out = append(out, code)
	out = append(out, args...)
	return out
}

// parseCommandFrame splits a raw COMMAND-opcode payload (opcode byte
// already stripped by the caller) into its command code and argument
// bytes, verifying the shared tag prefix.
func parseCommandFrame(payload []byte) (code byte, args []byte, err error) {
	if len(payload) < len(SharedTag)+1 {
		return 0, nil, ErrBadTag
	}
	if !bytes.Equal(payload[:len(SharedTag)], SharedTag) {
		return 0, nil, ErrBadTag
	}
	code = payload[len(SharedTag)]
	args = payload[len(SharedTag)+1:]
	return code, args, nil
}

// Client drives command/response exchanges from the ground-station side.
type Client struct {
	engine     Sender
	receiver   Receiver
	registry   Registry
	reasm      *fragment.Reassembler
	maxPayload int
}

// NewClient returns a Client sending commands over engine and reassembling
// responses via receiver, classified against registry. maxPayload bounds
// the fragment chunk size used by UploadFile (frame.Variant.MaxPayload()).
func NewClient(engine Sender, receiver Receiver, registry Registry, maxPayload int) *Client {
	return &Client{engine: engine, receiver: receiver, registry: registry, reasm: fragment.NewReassembler(), maxPayload: maxPayload}
}

// SendCommand builds the command frame, transmits it with send_with_ack,
// and — when spec.WillRespond — waits for and reassembles the response
// (§4.G). context ctx bounds both steps.
func (c *Client) SendCommand(ctx context.Context, code byte, args []byte) (opcode fragment.Opcode, response []byte, err error) {
	spec, ok := c.registry.Describe(code)
	if !ok {
		return 0, nil, ErrUnknownCommand
	}

	frame := buildCommandFrame(code, args)
	ok2, err := c.engine.SendWithAck(ctx, frame)
	if err != nil {
		return 0, nil, err
	}
	if !ok2 {
		return 0, nil, ErrCommandFailed
	}
	if !spec.WillRespond {
		return 0, nil, nil
	}

	opcode, response, err = c.reasm.Receive(ctx, c.receiver, nil)
	if err != nil {
		return 0, nil, ErrCommandFailed
	}
	return opcode, response, nil
}
