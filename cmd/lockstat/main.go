// Package main implements the lockstat CLI tool.
//
// lockstat drives the lock-statistics control channel of a spinlock
// runtime, either in-process (serve mode, which also exposes the channel
// over TCP) or remotely (client subcommands speaking to a running daemon).
//
// Usage:
//
//	lockstat serve                 # run the daemon with a demo workload
//	lockstat start                 # enable collection on the daemon
//	lockstat stop                  # disable collection
//	lockstat clear                 # sweep detached records, zero the rest
//	lockstat dump                  # print the current records as a table
//
// This is the CLI entry point for the standalone lockstat tool.
package main

import (
	"fmt"
	"os"

	"github.com/kolkov/spinlock/spin"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "serve":
		serveCommand(os.Args[2:])
	case "start":
		commandByte(spin.CmdStart, os.Args[2:])
	case "stop":
		commandByte(spin.CmdStop, os.Args[2:])
	case "clear":
		commandByte(spin.CmdClear, os.Args[2:])
	case "dump":
		dumpCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("lockstat version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`lockstat - spinlock statistics control tool

USAGE:
    lockstat <command> [arguments]

COMMANDS:
    serve      Run the lockstat daemon (TCP control surface + demo workload)
    start      Enable statistics collection
    stop       Disable statistics collection (records are preserved)
    clear      Free detached records, zero counters of active ones
    dump       Print all registered records
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Run the daemon on the default address with 4 workers
    lockstat serve -addr :6060 -workers 4

    # Control a running daemon
    lockstat start -addr 127.0.0.1:6060
    lockstat dump  -addr 127.0.0.1:6060
    lockstat clear -addr 127.0.0.1:6060

ABOUT:
    The spinlock runtime counts lock acquisitions per lock and per CPU in
    fixed-size records behind a 1-byte command channel (start/stop/clear)
    and an offset/length read window. lockstat exposes that channel over
    TCP in serve mode and speaks the same protocol as a client.

FOR MORE INFORMATION:
    Repository: https://github.com/kolkov/spinlock

`)
}

// serveCommand is implemented in serve.go
// commandByte and dumpCommand are implemented in client.go
