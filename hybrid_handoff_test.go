package main

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/xerrors"
)

func TestHandoffStartsWithLogic(t *testing.T) {
	h := NewHandoff(0)
	logic, emu := h.State()
	if !logic || emu {
		t.Fatalf("logic=%v emulation=%v, want logic holding", logic, emu)
	}
}

func TestHandoffAlternation(t *testing.T) {
	const rounds = 500
	h := NewHandoff(testHandoffTimeout)

	var stop atomic.Bool
	var violations atomic.Int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !stop.Load() {
			if logic, emu := h.State(); logic == emu {
				violations.Add(1)
			}
		}
	}()

	logicErr := make(chan error, 1)
	go func() {
		for i := 0; i < rounds; i++ {
			if err := h.YieldToEmulator(); err != nil {
				logicErr <- err
				return
			}
		}
		h.Close()
		logicErr <- nil
	}()

	if err := h.WaitEmulation(); err != nil {
		t.Fatalf("WaitEmulation: %v", err)
	}
	for i := 0; i < rounds-1; i++ {
		if err := h.YieldToLogic(); err != nil {
			t.Fatalf("round %d: YieldToLogic: %v", i, err)
		}
	}
	if err := h.YieldToLogic(); !xerrors.Is(err, ErrBridgeClosed) {
		t.Fatalf("final YieldToLogic: %v, want ErrBridgeClosed", err)
	}
	if err := <-logicErr; err != nil {
		t.Fatalf("logic side: %v", err)
	}

	stop.Store(true)
	wg.Wait()
	if n := violations.Load(); n != 0 {
		t.Fatalf("observed %d states without exactly one holder", n)
	}
	if y := h.Yields(); y != rounds {
		t.Fatalf("yields=%d, want %d", y, rounds)
	}
}

func TestHandoffRandomTimingNoDeadlock(t *testing.T) {
	rng := rand.New(rand.NewSource(2600))
	const rounds = 100
	delays := make([]time.Duration, 2*rounds)
	for i := range delays {
		delays[i] = time.Duration(rng.Intn(200)) * time.Microsecond
	}

	h := NewHandoff(testHandoffTimeout)
	var holder atomic.Int32 // 1 logic, 2 emulation

	done := make(chan error, 1)
	go func() {
		for i := 0; i < rounds; i++ {
			holder.Store(1)
			time.Sleep(delays[2*i])
			if holder.Load() != 1 {
				done <- xerrors.New("emulation ran while logic held the CPU")
				return
			}
			if err := h.YieldToEmulator(); err != nil {
				done <- err
				return
			}
		}
		h.Close()
		done <- nil
	}()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if err := h.WaitEmulation(); err != nil {
			return
		}
		for i := 0; ; i++ {
			holder.Store(2)
			time.Sleep(delays[(2*i+1)%len(delays)])
			if err := h.YieldToLogic(); err != nil {
				return
			}
		}
	}()

	waitClosed(t, finished, 10*time.Second, "alternation to finish")
	if err := <-done; err != nil {
		t.Fatalf("logic side: %v", err)
	}
}

func TestHandoffProtocolViolation(t *testing.T) {
	h := NewHandoff(testHandoffTimeout)
	defer h.Close()

	if err := h.YieldToLogic(); !xerrors.Is(err, ErrProtocolViolation) {
		t.Fatalf("YieldToLogic while logic holds: %v, want ErrProtocolViolation", err)
	}

	parked := make(chan error, 1)
	go func() { parked <- h.YieldToEmulator() }()
	if err := h.WaitEmulation(); err != nil {
		t.Fatalf("WaitEmulation: %v", err)
	}
	if err := h.YieldToEmulator(); !xerrors.Is(err, ErrProtocolViolation) {
		t.Fatalf("YieldToEmulator while emulator holds: %v, want ErrProtocolViolation", err)
	}
	if logic, emu := h.State(); logic || !emu {
		t.Fatalf("violation changed state: logic=%v emulation=%v", logic, emu)
	}

	h.Close()
	if err := <-parked; !xerrors.Is(err, ErrBridgeClosed) {
		t.Fatalf("parked yield: %v, want ErrBridgeClosed", err)
	}
}

func TestHandoffWaitTimesOut(t *testing.T) {
	h := NewHandoff(50 * time.Millisecond)
	start := time.Now()
	err := h.WaitEmulation()
	if !xerrors.Is(err, ErrHandoffTimeout) {
		t.Fatalf("err=%v, want ErrHandoffTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout took %v", elapsed)
	}
}

func TestHandoffCloseReleasesParkedLogic(t *testing.T) {
	h := NewHandoff(0)
	released := make(chan struct{})
	var err error
	go func() {
		err = h.YieldToEmulator()
		close(released)
	}()
	if werr := h.WaitEmulation(); werr != nil {
		t.Fatalf("WaitEmulation: %v", werr)
	}

	h.Close()
	waitClosed(t, released, time.Second, "parked logic to be released")
	if !xerrors.Is(err, ErrBridgeClosed) {
		t.Fatalf("err=%v, want ErrBridgeClosed", err)
	}
	if err := h.YieldToLogic(); !xerrors.Is(err, ErrBridgeClosed) {
		t.Fatalf("YieldToLogic after Close: %v, want ErrBridgeClosed", err)
	}
}

func TestHandoffRestoreRejectsBadFlags(t *testing.T) {
	h := NewHandoff(0)
	if err := h.restore(true, true); !xerrors.Is(err, ErrBadSnapshot) {
		t.Fatalf("restore(true, true): %v, want ErrBadSnapshot", err)
	}
	if err := h.restore(false, false); !xerrors.Is(err, ErrBadSnapshot) {
		t.Fatalf("restore(false, false): %v, want ErrBadSnapshot", err)
	}
	if err := h.restore(false, true); err != nil {
		t.Fatalf("restore(false, true): %v", err)
	}
	if logic, emu := h.State(); logic || !emu {
		t.Fatalf("logic=%v emulation=%v after restore", logic, emu)
	}
}
