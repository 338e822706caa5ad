package session

import "errors"

// ErrCommandFailed means the command's send_with_ack did not complete, or
// a response was required but never arrived — the session layer's single
// failure outcome (§7: "the session layer surfaces command failure as
// (success=false, header=none, response=none)").
var ErrCommandFailed = errors.New("session: command failed")

// ErrUnexpectedResponse means a typed wrapper received a reply but not of
// the opcode its contract requires (e.g. REQUEST_BEACON got back something
// other than a BEACON frame).
var ErrUnexpectedResponse = errors.New("session: unexpected response opcode")

// ErrBadTag means an incoming command frame's shared-tag prefix did not
// match, so the Server ignored it.
var ErrBadTag = errors.New("session: command tag mismatch")

// ErrUnknownCommand means Client.SendCommand was asked to send a command
// code that is not in the Client's registry. (The Server logs and ignores
// unknown incoming codes instead of returning this.)
var ErrUnknownCommand = errors.New("session: unknown command code")
