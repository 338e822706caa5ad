package fragment

import (
	"context"

	"github.com/cubesat-gs/satlink/datagram"
)

// Sender is the subset of *datagram.Engine that SendMessage drives; tests
// substitute a loopback-backed Engine (see the datagram package's own
// tests) rather than mocking this interface directly.
type Sender interface {
	Send(ctx context.Context, data []byte, keepListening bool, opts *datagram.SendOptions) (bool, error)
	SendWithAck(ctx context.Context, data []byte) (bool, error)
}

// SendMessage drives msg to completion over engine: each fragment Packet
// returns is transmitted, with a stop-and-wait ACK round trip when the
// fragment requests one, and msg.Ack is invoked once each fragment's send
// attempt concludes, mirroring the teacher's fragment-at-a-time sender
// loop in ipxpkt (generalised from "packet" to "message", §4.F).
func SendMessage(ctx context.Context, engine Sender, msg Message) error {
	for !msg.Done() {
		data, withAck := msg.Packet()
		var err error
		if withAck {
			_, err = engine.SendWithAck(ctx, data)
		} else {
			_, err = engine.Send(ctx, data, true, nil)
		}
		if err != nil {
			return err
		}
		msg.Ack()
	}
	return nil
}
