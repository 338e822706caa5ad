package session

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/cubesat-gs/satlink/beacon"
	"github.com/cubesat-gs/satlink/fragment"
)

// stagingPath is where an uploaded disk-buffered stream lands before
// UploadFile renames it into place, matching gs_commands.py's fixed
// "/sd/disk_buffered_message" staging location.
const stagingPath = "/sd/disk_buffered_message"

func encodeUnixTime(t time.Time) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(int32(t.Unix())))
	return out
}

func decodeUnixTime(b []byte) time.Time {
	return time.Unix(int64(int32(binary.LittleEndian.Uint32(b))), 0).UTC()
}

// MoveFile issues MOVE_FILE with a JSON-encoded [source, destination] pair
// and reports success iff the response bytes contain "success"
// case-insensitively.
func (c *Client) MoveFile(ctx context.Context, source, destination string) (bool, error) {
	args, err := json.Marshal([2]string{source, destination})
	if err != nil {
		return false, err
	}
	_, response, err := c.SendCommand(ctx, CmdMoveFile, args)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(string(response)), "success"), nil
}

// RequestFile issues REQUEST_FILE for path and returns the opcode and
// payload of whatever the satellite replies with (typically a
// disk-buffered stream of the file's contents).
func (c *Client) RequestFile(ctx context.Context, path string) (fragment.Opcode, []byte, error) {
	return c.SendCommand(ctx, CmdRequestFile, []byte(path))
}

// RequestBeacon issues REQUEST_BEACON and decodes the reply, which must
// carry opcode BEACON.
func (c *Client) RequestBeacon(ctx context.Context) (beacon.Record, error) {
	opcode, response, err := c.SendCommand(ctx, CmdRequestBeacon, nil)
	if err != nil {
		return beacon.Record{}, err
	}
	if opcode != fragment.Beacon {
		return beacon.Record{}, ErrUnexpectedResponse
	}
	return beacon.Decode(response)
}

// SetRTCUTime issues SET_RTC_UTIME with t encoded as a little-endian
// signed 32-bit Unix timestamp.
func (c *Client) SetRTCUTime(ctx context.Context, t time.Time) (bool, error) {
	_, _, err := c.SendCommand(ctx, CmdSetRTCUTime, encodeUnixTime(t))
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetRTCUTime issues GET_RTC_UTIME and decodes the DEFAULT-opcode reply as
// a little-endian signed 32-bit Unix timestamp.
func (c *Client) GetRTCUTime(ctx context.Context) (time.Time, error) {
	opcode, response, err := c.SendCommand(ctx, CmdGetRTCUTime, nil)
	if err != nil {
		return time.Time{}, err
	}
	if opcode != fragment.Default || len(response) < 4 {
		return time.Time{}, ErrUnexpectedResponse
	}
	return decodeUnixTime(response), nil
}

// UploadFile sends the contents of r as a disk-buffered fragmented message
// and, on success, issues a MOVE_FILE from the fixed staging path to
// destination, matching gs_commands.py's two-step upload_file (§9
// supplemented feature).
func (c *Client) UploadFile(ctx context.Context, r io.Reader, destination string) (bool, error) {
	msg := fragment.NewDiskMessage(r, c.maxPayload)
	if err := fragment.SendMessage(ctx, c.engine, msg); err != nil {
		return false, err
	}
	return c.MoveFile(ctx, stagingPath, destination)
}
