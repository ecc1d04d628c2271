// Wire protocol between the lockstat daemon and its clients.
//
// Requests are single frames:
//
//	'W' <cmd>                       write one command byte to the channel
//	'R' <off:4 BE> <len:4 BE>       read a record window from the channel
//
// Responses are status frames:
//
//	'K' <len:4 BE> <payload>        success; payload is the read data
//	'E' <len:4 BE> <message>        failure; message is the error text
//
// The frame handler is transport-independent so it can be unit-tested
// without a socket; serve.go feeds it complete frames reassembled from the
// TCP stream by a per-connection frameReader.

package main

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kolkov/spinlock/spin"
)

const (
	opWrite = 'W'
	opRead  = 'R'

	respOK  = 'K'
	respErr = 'E'
)

// maxReadWindow caps a single read reply. 64 records is far beyond any
// realistic registry and keeps a malicious length field from allocating
// gigabytes.
const maxReadWindow = 64 * spin.RecordSize

var errBadFrame = errors.New("lockstat: malformed request frame")

// frameReader reassembles request frames from a TCP byte stream. OnData
// hands the daemon whatever segments the kernel produced; a frame may
// arrive split or coalesced with its neighbors, so each connection carries
// one frameReader as its session.
type frameReader struct {
	buf []byte
}

// feed appends data to the stream buffer and returns every complete request
// frame now available, in arrival order. An unknown opcode poisons the
// stream: frames already complete are still returned, along with the error,
// and the connection should be dropped since the frame boundary is lost.
func (r *frameReader) feed(data []byte) ([][]byte, error) {
	r.buf = append(r.buf, data...)

	var frames [][]byte
	for len(r.buf) > 0 {
		n, err := requestLen(r.buf[0])
		if err != nil {
			return frames, err
		}
		if len(r.buf) < n {
			break
		}
		frames = append(frames, r.buf[:n:n])
		r.buf = r.buf[n:]
	}
	if len(r.buf) == 0 {
		r.buf = nil
	}
	return frames, nil
}

// requestLen returns the full frame length implied by an opcode byte.
func requestLen(op byte) (int, error) {
	switch op {
	case opWrite:
		return 2, nil
	case opRead:
		return 9, nil
	default:
		return 0, fmt.Errorf("lockstat: unknown opcode %q", op)
	}
}

// handleFrame dispatches one request frame and returns the response frame.
func handleFrame(req []byte) []byte {
	if len(req) < 2 {
		return errFrame(errBadFrame)
	}

	switch req[0] {
	case opWrite:
		if err := spin.WriteLockstat(req[1]); err != nil {
			return errFrame(err)
		}
		return okFrame(nil)

	case opRead:
		if len(req) != 9 {
			return errFrame(errBadFrame)
		}
		off := binary.BigEndian.Uint32(req[1:5])
		n := binary.BigEndian.Uint32(req[5:9])
		if n > maxReadWindow {
			n = maxReadWindow
		}
		buf := make([]byte, n)
		count, err := spin.ReadLockstat(buf, off, n)
		if err != nil {
			return errFrame(err)
		}
		return okFrame(buf[:count])

	default:
		return errFrame(fmt.Errorf("lockstat: unknown opcode %q", req[0]))
	}
}

// okFrame wraps payload in a success response.
func okFrame(payload []byte) []byte {
	resp := make([]byte, 5+len(payload))
	resp[0] = respOK
	binary.BigEndian.PutUint32(resp[1:5], uint32(len(payload)))
	copy(resp[5:], payload)
	return resp
}

// errFrame wraps an error message in a failure response.
func errFrame(err error) []byte {
	msg := err.Error()
	resp := make([]byte, 5+len(msg))
	resp[0] = respErr
	binary.BigEndian.PutUint32(resp[1:5], uint32(len(msg)))
	copy(resp[5:], msg)
	return resp
}

// writeFrame builds a 'W' request.
func writeFrame(cmd byte) []byte {
	return []byte{opWrite, cmd}
}

// readFrame builds an 'R' request.
func readFrame(off, n uint32) []byte {
	req := make([]byte, 9)
	req[0] = opRead
	binary.BigEndian.PutUint32(req[1:5], off)
	binary.BigEndian.PutUint32(req[5:9], n)
	return req
}
