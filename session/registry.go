// Package session implements the command/response protocol between a
// ground station and a satellite above the datagram/fragment layers: a
// static command registry, a shared-tag-prefixed command frame, typed
// request wrappers, and a response-classifying client plus a satellite-side
// responder (§4.G).
package session

// CommandSpec classifies one command code, the Go equivalent of
// gs_commands.py's per-command {name, will_respond, has_args} dict.
type CommandSpec struct {
	Name        string
	WillRespond bool
	HasArgs     bool
}

// Command codes. Fixed single bytes, matching the command set named in
// gs_commands.py (MOVE_FILE, REQUEST_FILE, REQUEST_BEACON, SET_RTC_UTIME,
// GET_RTC_UTIME); the original's own byte assignments live in a
// lib/radio_utils/commands.py module not present in the retrieved source,
// so these are this project's own fixed assignment.
const (
	CmdMoveFile byte = iota + 1
	CmdRequestFile
	CmdRequestBeacon
	CmdSetRTCUTime
	CmdGetRTCUTime
)

// Registry is the static command-code → CommandSpec map consulted by both
// the ground station (to decide whether to wait for a response) and the
// satellite-side Server (to validate an incoming command code before
// dispatching it).
type Registry map[byte]CommandSpec

// DefaultRegistry returns the built-in command set.
func DefaultRegistry() Registry {
	return Registry{
		CmdMoveFile:      {Name: "MOVE_FILE", WillRespond: true, HasArgs: true},
		CmdRequestFile:   {Name: "REQUEST_FILE", WillRespond: true, HasArgs: true},
		CmdRequestBeacon: {Name: "REQUEST_BEACON", WillRespond: true, HasArgs: false},
		CmdSetRTCUTime:   {Name: "SET_RTC_UTIME", WillRespond: true, HasArgs: true},
		CmdGetRTCUTime:   {Name: "GET_RTC_UTIME", WillRespond: true, HasArgs: false},
	}
}

// Describe looks up code's CommandSpec.
func (r Registry) Describe(code byte) (CommandSpec, bool) {
	spec, ok := r[code]
	return spec, ok
}
