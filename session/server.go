package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cubesat-gs/satlink/beacon"
	"github.com/cubesat-gs/satlink/fragment"
)

// Handler produces the reply Message for one command invocation, or nil if
// none should be sent beyond the send_with_ack-level acknowledgement.
type Handler func(ctx context.Context, s *Server, args []byte) (fragment.Message, error)

// RTC is the satellite's adjustable real-time clock, the capability
// SET_RTC_UTIME/GET_RTC_UTIME operate on.
type RTC interface {
	Now() time.Time
	Set(time.Time)
}

// systemRTC is an RTC backed by an in-process offset from the wall clock,
// the satellite-simulator stand-in for a real hardware RTC.
type systemRTC struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *systemRTC) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().UTC().Add(c.offset)
}

func (c *systemRTC) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = t.Sub(time.Now().UTC())
}

// Server is the satellite-side command responder: new relative to the
// Python original (which only ever ran the ground-station side against
// real satellite firmware). It registers a Handler per command code and
// replies using the same fragment/datagram stack the Client uses to send
// (§9 supplemented feature).
type Server struct {
	engine     Sender
	receiver   Receiver
	registry   Registry
	reasm      *fragment.Reassembler
	maxPayload int
	logger     *log.Logger

	handlers map[byte]Handler

	mu        sync.Mutex
	files     map[string][]byte
	rtc       RTC
	beaconFn  func() beacon.Record
}

// ServerOption configures a Server at construction time.
type ServerOption func(*Server)

// WithLogger attaches a diagnostic logger; nil (the default) disables logging.
func WithLogger(l *log.Logger) ServerOption { return func(s *Server) { s.logger = l } }

// WithBeacon overrides the function used to produce REQUEST_BEACON
// responses. The default returns a zero-valued Record.
func WithBeacon(fn func() beacon.Record) ServerOption {
	return func(s *Server) { s.beaconFn = fn }
}

// NewServer returns a Server with the built-in MOVE_FILE, REQUEST_FILE,
// REQUEST_BEACON, SET_RTC_UTIME and GET_RTC_UTIME handlers registered.
func NewServer(engine Sender, receiver Receiver, registry Registry, maxPayload int, opts ...ServerOption) *Server {
	s := &Server{
		engine:     engine,
		receiver:   receiver,
		registry:   registry,
		reasm:      fragment.NewReassembler(),
		maxPayload: maxPayload,
		handlers:   make(map[byte]Handler),
		files:      make(map[string][]byte),
		rtc:        &systemRTC{},
		beaconFn:   func() beacon.Record { return beacon.Record{} },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerDefaultHandlers()
	return s
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// Handle registers (or replaces) the handler for code.
func (s *Server) Handle(code byte, h Handler) {
	s.handlers[code] = h
}

// PutFile seeds the server's in-memory filesystem, for tests and
// simulators standing in for the satellite's SD card.
func (s *Server) PutFile(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = append([]byte{}, data...)
}

// File returns the contents previously stored at path, if any.
func (s *Server) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	return data, ok
}

// ServeOne blocks for the next inbound frame. A completed buffered stream
// (DISK_BUFFERED_* or MEMORY_BUFFERED_*) that arrives outside a command
// frame is stored at the fixed staging path, the satellite side of
// UploadFile's two-step protocol (§9 supplemented feature): the stream
// lands first, and a subsequent MOVE_FILE command relocates it. A COMMAND
// frame is parsed and dispatched to its registered Handler, and the reply
// Message it returns (if any) is sent. Any other opcode is logged and
// ignored.
func (s *Server) ServeOne(ctx context.Context) error {
	opcode, payload, err := s.reasm.Receive(ctx, s.receiver, nil)
	if err != nil {
		return err
	}
	if opcode == fragment.MemoryBufferedStart || opcode == fragment.DiskBufferedStart {
		s.PutFile(stagingPath, payload)
		return nil
	}
	if opcode != fragment.Command {
		s.logf("session: server ignoring non-command opcode %v", opcode)
		return nil
	}

	code, args, err := parseCommandFrame(payload)
	if err != nil {
		s.logf("session: %v", err)
		return nil
	}
	spec, ok := s.registry.Describe(code)
	if !ok {
		s.logf("session: unknown command code %d", code)
		return nil
	}
	handler, ok := s.handlers[code]
	if !ok {
		s.logf("session: no handler registered for %s", spec.Name)
		return nil
	}

	reply, err := handler(ctx, s, args)
	if err != nil {
		s.logf("session: handler for %s failed: %v", spec.Name, err)
		return nil
	}
	if !spec.WillRespond || reply == nil {
		return nil
	}
	return fragment.SendMessage(ctx, s.engine, reply)
}

// Serve calls ServeOne in a loop until ctx is cancelled or ServeOne
// returns a non-timeout error.
func (s *Server) Serve(ctx context.Context) error {
	for {
		if err := s.ServeOne(ctx); err != nil && err != fragment.ErrTooManyFailures {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
