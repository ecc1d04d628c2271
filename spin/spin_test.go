package spin_test

import (
	"os"
	"sync"
	"testing"

	"github.com/kolkov/spinlock/spin"
)

// The device channel registers once per process.
func TestMain(m *testing.M) {
	spin.Init(spin.MaxCPU)
	if err := spin.InitLockstat(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// TestFacade exercises the public surface the way an embedding program
// would: topology, locking, statistics and the device channel together.
func TestFacade(t *testing.T) {
	spin.Init(spin.MaxCPU)

	// Keep the test goroutine off the low CPU numbers the workers pin;
	// registry operations below would otherwise lazily bind cpu0 here.
	spin.Pin(spin.MaxCPU - 1)
	defer spin.Unpin()

	lk := spin.New("facade")
	spin.StartTracking(lk)
	defer spin.StopTracking(lk)

	spin.StartCollection()
	defer spin.StopCollection()
	if !spin.CollectionEnabled() {
		t.Fatal("StartCollection did not enable the gate")
	}

	const (
		workers    = 4
		iterations = 500
	)
	var (
		counter int
		wg      sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			spin.Pin(id)
			defer spin.Unpin()
			for i := 0; i < iterations; i++ {
				lk.Acquire()
				counter++
				lk.Release()
			}
		}(w)
	}
	wg.Wait()

	if want := workers * iterations; counter != want {
		t.Errorf("counter = %d, want %d", counter, want)
	}

	buf := make([]byte, 16*spin.RecordSize)
	n, err := spin.ReadLockstat(buf, 0, uint32(len(buf)))
	if err != nil {
		t.Fatalf("ReadLockstat: %v", err)
	}

	var total uint64
	for off := 0; off+spin.RecordSize <= n; off += spin.RecordSize {
		st, err := spin.DecodeStat(buf[off:])
		if err != nil {
			t.Fatalf("DecodeStat: %v", err)
		}
		if st.Name == "facade" {
			total = st.Total()
			for id := workers; id < spin.MaxCPU; id++ {
				if st.Counts[id] != 0 {
					t.Errorf("Counts[%d] = %d for an unused CPU", id, st.Counts[id])
				}
			}
		}
	}
	if want := uint64(workers * iterations); total != want {
		t.Errorf("recorded total = %d, want %d", total, want)
	}
}

func TestCurrentCPUStable(t *testing.T) {
	spin.Init(2)
	if spin.CurrentCPU() != spin.CurrentCPU() {
		t.Error("CurrentCPU changed between calls on one goroutine")
	}
}

func TestSetDebugRoundTrip(t *testing.T) {
	prev := spin.SetDebug(false)
	if got := spin.SetDebug(prev); got != false {
		t.Errorf("SetDebug returned %v, want the value just set", got)
	}
}

func TestGetInfo(t *testing.T) {
	info := spin.GetInfo()
	if info.Version != spin.Version {
		t.Errorf("Version = %q, want %q", info.Version, spin.Version)
	}
	if info.MaxCPU != spin.MaxCPU {
		t.Errorf("MaxCPU = %d, want %d", info.MaxCPU, spin.MaxCPU)
	}
	if info.CollectionEnabled != spin.CollectionEnabled() {
		t.Error("CollectionEnabled in Info disagrees with the gate")
	}
}
