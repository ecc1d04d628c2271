// Client subcommands: start, stop, clear and dump speak the frame protocol
// to a running daemon over a plain TCP connection.

package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/kolkov/spinlock/spin"
)

const defaultAddr = "127.0.0.1:6060"

// commandByte implements start/stop/clear: one 'W' frame, one status reply.
func commandByte(cmd byte, args []string) {
	fs := flag.NewFlagSet("command", flag.ExitOnError)
	addr := fs.String("addr", defaultAddr, "daemon address")
	_ = fs.Parse(args)

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fatalErr(err)
	}
	defer conn.Close()

	if _, err := conn.Write(writeFrame(cmd)); err != nil {
		fatalErr(err)
	}
	if _, err := readResponse(conn); err != nil {
		fatalErr(err)
	}
	fmt.Println("ok")
}

// dumpCommand reads the whole registry window by window and renders it.
func dumpCommand(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	addr := fs.String("addr", defaultAddr, "daemon address")
	_ = fs.Parse(args)

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fatalErr(err)
	}
	defer conn.Close()

	const window = 16 * spin.RecordSize

	var stats []spin.Stat
	for off := uint32(0); ; off += window {
		if _, err := conn.Write(readFrame(off, window)); err != nil {
			fatalErr(err)
		}
		payload, err := readResponse(conn)
		if err != nil {
			fatalErr(err)
		}
		if len(payload) == 0 {
			break
		}
		for i := 0; i+spin.RecordSize <= len(payload); i += spin.RecordSize {
			st, err := spin.DecodeStat(payload[i:])
			if err != nil {
				fatalErr(err)
			}
			stats = append(stats, st)
		}
		if len(payload) < window {
			break
		}
	}

	renderStats(os.Stdout, stats)
}

// renderStats prints one line per record: name, total, then the nonzero
// per-CPU counters.
func renderStats(w io.Writer, stats []spin.Stat) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "no records")
		return
	}
	fmt.Fprintf(w, "%-16s %12s  %s\n", "NAME", "TOTAL", "PER-CPU")
	for _, st := range stats {
		var parts []string
		for id, n := range st.Counts {
			if n != 0 {
				parts = append(parts, fmt.Sprintf("cpu%d=%d", id, n))
			}
		}
		percpu := strings.Join(parts, " ")
		if percpu == "" {
			percpu = "-"
		}
		fmt.Fprintf(w, "%-16s %12d  %s\n", st.Name, st.Total(), percpu)
	}
}

// readResponse reads one status frame and returns its payload, or the
// daemon's error.
func readResponse(conn net.Conn) ([]byte, error) {
	var hdr [5]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(hdr[1:5])
	payload := make([]byte, size)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}
	switch hdr[0] {
	case respOK:
		return payload, nil
	case respErr:
		return nil, fmt.Errorf("daemon: %s", payload)
	default:
		return nil, fmt.Errorf("daemon: unknown status %q", hdr[0])
	}
}

func fatalErr(err error) {
	fmt.Fprintf(os.Stderr, "lockstat: %v\n", err)
	os.Exit(1)
}
