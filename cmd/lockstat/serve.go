// lockstat serve: the daemon.
//
// serve initializes a spinlock runtime in-process, attaches the lockstat
// device, runs a synthetic contention workload so the registry has live
// data, and exposes the device channel over TCP.

package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lesismal/nbio"
	"github.com/zbh255/bilog"

	"github.com/kolkov/spinlock/spin"
)

// newLogger builds the daemon logger: timestamps, one caller frame,
// unbuffered so lines appear as they are logged.
func newLogger(w io.Writer) bilog.Logger {
	return bilog.NewLogger(w, bilog.PANIC, bilog.WithTimes(),
		bilog.WithCaller(1), bilog.WithLowBuffer(0), bilog.WithTopBuffer(0))
}

func serveCommand(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":6060", "listen address for the control channel")
	cpus := fs.Int("cpus", 16, "simulated CPU topology (1..32)")
	workers := fs.Int("workers", 2, "synthetic workload goroutines (0 disables)")
	locks := fs.Int("locks", 4, "tracked locks in the synthetic workload")
	_ = fs.Parse(args)

	logger := newLogger(os.Stdout)

	spin.Init(*cpus)
	if err := spin.InitLockstat(); err != nil {
		logger.ErrorFromErr(err)
		os.Exit(1)
	}
	spin.StartCollection()

	if *workers > 0 {
		startWorkload(*workers, *locks)
		logger.Info(fmt.Sprintf("lockstatd: workload running, %d workers over %d locks", *workers, *locks))
	}

	engine := nbio.NewEngine(nbio.Config{
		Name:    "lockstatd",
		Network: "tcp",
		Addrs:   []string{*addr},
		// Pollers execute device reads and bind a simulated CPU each;
		// keep the count well inside the topology.
		NPoller: 2,
	})
	engine.OnOpen(func(c *nbio.Conn) {
		c.SetSession(&frameReader{})
		logger.Debug(fmt.Sprintf("lockstatd: open %s", c.RemoteAddr()))
	})
	engine.OnData(func(c *nbio.Conn, data []byte) {
		r, _ := c.Session().(*frameReader)
		if r == nil {
			r = &frameReader{}
			c.SetSession(r)
		}
		frames, ferr := r.feed(data)
		for _, req := range frames {
			if _, err := c.Write(handleFrame(req)); err != nil {
				logger.ErrorFromErr(err)
				return
			}
		}
		if ferr != nil {
			// Frame boundary lost; answer and drop the connection.
			if _, err := c.Write(errFrame(ferr)); err != nil {
				logger.ErrorFromErr(err)
			}
			c.Close()
		}
	})
	engine.OnClose(func(c *nbio.Conn, err error) {
		if err != nil {
			logger.ErrorFromString(fmt.Sprintf("lockstatd: close %s: %v", c.RemoteAddr(), err))
		}
	})

	if err := engine.Start(); err != nil {
		logger.ErrorFromErr(err)
		os.Exit(1)
	}
	defer engine.Stop()
	logger.Info(fmt.Sprintf("lockstatd: listening on %s, %d cpus", *addr, *cpus))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("lockstatd: shutting down")
}

// startWorkload launches tracked locks and worker goroutines contending on
// them, so dump has something to show on a fresh daemon. Workers bind CPUs
// lazily and run for the daemon's lifetime.
func startWorkload(workers, nlocks int) {
	if nlocks < 1 {
		nlocks = 1
	}
	lks := make([]*spin.Lock, nlocks)
	for i := range lks {
		lks[i] = spin.New(fmt.Sprintf("demo%d", i))
		spin.StartTracking(lks[i])
	}

	for w := 0; w < workers; w++ {
		go func(seed int64) {
			rng := rand.New(rand.NewSource(seed))
			for {
				lk := lks[rng.Intn(len(lks))]
				lk.Acquire()
				// Keep the critical section short; the spin protocol
				// assumes it.
				busy := rng.Intn(64)
				for i := 0; i < busy; i++ {
					_ = i
				}
				lk.Release()
				time.Sleep(time.Duration(1+rng.Intn(5)) * time.Millisecond)
			}
		}(int64(w) + time.Now().UnixNano())
	}
}
