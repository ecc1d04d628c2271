package spin_test

import (
	"fmt"

	"github.com/kolkov/spinlock/spin"
)

// Example demonstrates basic mutual exclusion between pinned CPUs.
func Example() {
	spin.Init(2)

	lk := spin.New("counter")
	var counter int

	done := make(chan struct{})
	go func() {
		spin.Pin(1)
		defer spin.Unpin()
		for i := 0; i < 1000; i++ {
			lk.Acquire()
			counter++
			lk.Release()
		}
		close(done)
	}()

	spin.Pin(0)
	defer spin.Unpin()
	for i := 0; i < 1000; i++ {
		lk.Acquire()
		counter++
		lk.Release()
	}
	<-done

	lk.Acquire()
	fmt.Println(counter)
	lk.Release()

	// Output:
	// 2000
}

// Example_statistics demonstrates per-CPU acquisition counting through the
// lockstat channel.
func Example_statistics() {
	spin.Init(2)
	spin.Pin(0)
	defer spin.Unpin()

	// The registry is process-wide; sweep detached records left by earlier
	// users so the first record window is ours.
	spin.ClearStats()

	lk := spin.New("hot-path")
	spin.StartTracking(lk)
	defer spin.StopTracking(lk)

	spin.StartCollection()
	for i := 0; i < 42; i++ {
		lk.Acquire()
		lk.Release()
	}
	spin.StopCollection()

	buf := make([]byte, spin.RecordSize)
	n, err := spin.ReadLockstat(buf, 0, spin.RecordSize)
	if err != nil || n < spin.RecordSize {
		fmt.Println("read failed")
		return
	}
	st, _ := spin.DecodeStat(buf)
	fmt.Printf("%s: %d acquisitions on cpu0\n", st.Name, st.Counts[0])

	// Output:
	// hot-path: 42 acquisitions on cpu0
}
