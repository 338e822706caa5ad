package fragment

import (
	"bufio"
	"io"
)

// Message is an outbound, possibly multi-frame payload. Packet returns the
// next frame's body (opcode byte prepended) and whether that frame must be
// sent with a stop-and-wait ACK round trip; Ack is called once the frame
// just returned by Packet has been acknowledged (or, for frames that don't
// request an ack, immediately after sending). Done reports whether every
// frame has been packeted.
//
// Modelled on the teacher's ipxpkt fragmenting sender, generalised from
// "split this packet into MTU-sized pieces" to "split this message into
// opcode-tagged START/MID/END fragments" (§4.F).
type Message interface {
	Packet() (data []byte, withAck bool)
	Ack()
	Done() bool
}

// memoryMessage fragments an in-memory payload already held in full.
type memoryMessage struct {
	family    family
	chunkSize int
	data      []byte
	offset    int
	acked     bool
}

// NewMemoryMessage returns a Message that fragments data into chunks no
// larger than maxPayload-1 bytes (one byte reserved for the opcode),
// tagging the first chunk MEMORY_BUFFERED_START, interior chunks
// MEMORY_BUFFERED_MID, and the last MEMORY_BUFFERED_END. A payload that
// fits in a single chunk is sent as a bare MEMORY_BUFFERED_END fragment,
// not START: the reassembler only ever completes a stream on an END
// opcode, so a single-fragment stream tagged START would never complete.
func NewMemoryMessage(data []byte, maxPayload int) Message {
	return &memoryMessage{family: familyMemory, chunkSize: maxPayload - 1, data: data}
}

// NewAtomicMessage returns a single-fragment, unbuffered Message carrying
// opcode (DEFAULT, BEACON and the like), for short atomic payloads that
// don't need reassembly.
func NewAtomicMessage(opcode Opcode, data []byte, withAck bool) Message {
	return &atomicMessage{opcode: opcode, data: data, withAck: withAck}
}

type atomicMessage struct {
	opcode  Opcode
	data    []byte
	withAck bool
	sent    bool
}

func (m *atomicMessage) Packet() ([]byte, bool) {
	m.sent = true
	return append([]byte{byte(m.opcode)}, m.data...), m.withAck
}
func (m *atomicMessage) Ack()       {}
func (m *atomicMessage) Done() bool { return m.sent }

func (m *memoryMessage) Packet() ([]byte, bool) {
	end := m.offset + m.chunkSize
	last := end >= len(m.data)
	if last {
		end = len(m.data)
	}
	chunk := m.data[m.offset:end]

	var opcode Opcode
	switch {
	case m.offset == 0 && last:
		opcode = m.family.endOpcode()
	case m.offset == 0:
		opcode = MemoryBufferedStart
	case last:
		opcode = MemoryBufferedEnd
	default:
		opcode = MemoryBufferedMid
	}

	out := make([]byte, 0, len(chunk)+1)
	out = append(out, byte(opcode))
	out = append(out, chunk...)
	m.offset = end
	return out, true
}

func (m *memoryMessage) Ack() { m.acked = true }

func (m *memoryMessage) Done() bool { return m.offset >= len(m.data) }

// diskMessage fragments a stream read incrementally, so the full payload
// never needs to be held in memory at once (the on-disk analogue of
// memoryMessage, used for large file uploads/downloads, §4.F, §9
// "Supplemented feature").
type diskMessage struct {
	family    family
	chunkSize int
	r         *bufio.Reader
	pending   []byte
	started   bool
	done      bool
}

// NewDiskMessage returns a Message that fragments the bytes read from r,
// tagging fragments DISK_BUFFERED_START/MID/END the same way
// NewMemoryMessage tags MEMORY_BUFFERED_*; a payload that fits in a single
// chunk is likewise sent as a bare DISK_BUFFERED_END fragment, not START.
func NewDiskMessage(r io.Reader, maxPayload int) Message {
	return &diskMessage{family: familyDisk, chunkSize: maxPayload - 1, r: bufio.NewReaderSize(r, maxPayload*4)}
}

func (m *diskMessage) Packet() ([]byte, bool) {
	chunk := make([]byte, m.chunkSize)
	n, err := io.ReadFull(m.r, chunk)
	chunk = chunk[:n]

	// Peek to decide if this is the last chunk without consuming more.
	_, peekErr := m.r.Peek(1)
	last := peekErr != nil || err == io.ErrUnexpectedEOF || err == io.EOF

	var opcode Opcode
	switch {
	case !m.started && last:
		opcode = m.family.endOpcode()
	case !m.started:
		opcode = DiskBufferedStart
	case last:
		opcode = DiskBufferedEnd
	default:
		opcode = DiskBufferedMid
	}
	m.started = true
	if last {
		m.done = true
	}

	out := make([]byte, 0, len(chunk)+1)
	out = append(out, byte(opcode))
	out = append(out, chunk...)
	return out, true
}

func (m *diskMessage) Ack() {}

func (m *diskMessage) Done() bool { return m.done }
