package session

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cubesat-gs/satlink/fragment"
)

func (s *Server) registerDefaultHandlers() {
	s.Handle(CmdMoveFile, handleMoveFile)
	s.Handle(CmdRequestFile, handleRequestFile)
	s.Handle(CmdRequestBeacon, handleRequestBeacon)
	s.Handle(CmdSetRTCUTime, handleSetRTCUTime)
	s.Handle(CmdGetRTCUTime, handleGetRTCUTime)
}

func handleMoveFile(ctx context.Context, s *Server, args []byte) (fragment.Message, error) {
	var paths [2]string
	if err := json.Unmarshal(args, &paths); err != nil {
		return fragment.NewAtomicMessage(fragment.Default, []byte("failed: bad args"), true), nil
	}
	data, ok := s.File(paths[0])
	if !ok {
		return fragment.NewAtomicMessage(fragment.Default, []byte("failed: no such file"), true), nil
	}
	s.PutFile(paths[1], data)
	return fragment.NewAtomicMessage(fragment.Default, []byte("success"), true), nil
}

func handleRequestFile(ctx context.Context, s *Server, args []byte) (fragment.Message, error) {
	path := string(args)
	data, ok := s.File(path)
	if !ok {
		return fragment.NewAtomicMessage(fragment.Default, []byte("no such file"), true), nil
	}
	return fragment.NewDiskMessage(bytes.NewReader(data), s.maxPayload), nil
}

func handleRequestBeacon(ctx context.Context, s *Server, args []byte) (fragment.Message, error) {
	rec := s.beaconFn()
	return fragment.NewAtomicMessage(fragment.Beacon, rec.Encode(), true), nil
}

func handleSetRTCUTime(ctx context.Context, s *Server, args []byte) (fragment.Message, error) {
	if len(args) < 4 {
		return fragment.NewAtomicMessage(fragment.Default, []byte("failed: bad args"), true), nil
	}
	s.rtc.Set(decodeUnixTime(args))
	return fragment.NewAtomicMessage(fragment.Default, []byte("ok"), true), nil
}

func handleGetRTCUTime(ctx context.Context, s *Server, args []byte) (fragment.Message, error) {
	return fragment.NewAtomicMessage(fragment.Default, encodeUnixTime(s.rtc.Now()), true), nil
}
