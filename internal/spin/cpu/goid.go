// Goroutine ID extraction.
//
// The binding layer keys CPU ownership by goroutine identity. Go does not
// expose goroutine IDs, so the ID is parsed out of the first line of
// runtime.Stack output ("goroutine 123 [running]:"). This is the portable
// path; it costs roughly a microsecond per call and is paid only on
// bind/unbind and on the first Current lookup of a goroutine, never inside
// the acquire spin loop.

package cpu

import (
	"runtime"
	"strconv"
)

// goroutineID returns the current goroutine's ID, or 0 if parsing fails
// (which does not happen with any released runtime).
func goroutineID() int64 {
	// Only the header line is needed; 64 bytes always covers
	// "goroutine <n> [<state>]:".
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

// parseGID extracts the numeric ID from a "goroutine N [state]:" header.
func parseGID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	buf = buf[len(prefix):]

	end := 0
	for end < len(buf) && buf[end] >= '0' && buf[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}

	gid, err := strconv.ParseInt(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}
