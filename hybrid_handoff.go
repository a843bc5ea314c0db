// hybrid_handoff.go - Two-party rendezvous between native logic and the emulated CPU

package main

import (
	"sync"
	"time"

	"golang.org/x/xerrors"
)

// Handoff passes the CPU between exactly two contexts. One flag per side
// says who holds it; both flags change together under mu, so an observer
// always sees exactly one of them set. It is a strict hand-off, not a
// semaphore: a side may only yield while it holds the CPU.
//
// The logic side holds the CPU from construction. It parks the emulator on
// a self-jump and yields; from then on the two sides alternate.
type Handoff struct {
	mu              sync.Mutex
	cond            *sync.Cond
	logicActive     bool
	emulationActive bool
	closed          bool

	timeout time.Duration // bound on waits made by the emulation side, 0 = none
	yields  uint64        // completed logic -> emulation transfers
}

// NewHandoff creates a hand-off with the logic side holding the CPU.
func NewHandoff(timeout time.Duration) *Handoff {
	h := &Handoff{
		logicActive: true,
		timeout:     timeout,
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// YieldToEmulator gives the CPU to the emulation side and blocks until it
// is handed back. It does not time out: the emulator may legitimately be
// paused. Close releases it with ErrBridgeClosed.
func (h *Handoff) YieldToEmulator() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrBridgeClosed
	}
	if !h.logicActive {
		return xerrors.Errorf("yield to emulator: %w", ErrProtocolViolation)
	}
	h.logicActive = false
	h.emulationActive = true
	h.yields++
	h.cond.Broadcast()

	for !h.logicActive && !h.closed {
		h.cond.Wait()
	}
	if !h.logicActive {
		return ErrBridgeClosed
	}
	return nil
}

// YieldToLogic gives the CPU to the logic side and blocks until the logic
// yields again. The wait is bounded by the configured timeout; a logic
// routine that never yields surfaces as ErrHandoffTimeout instead of a hang.
func (h *Handoff) YieldToLogic() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrBridgeClosed
	}
	if !h.emulationActive {
		return xerrors.Errorf("yield to logic: %w", ErrProtocolViolation)
	}
	h.emulationActive = false
	h.logicActive = true
	h.cond.Broadcast()

	return h.waitEmulationLocked("logic to yield")
}

// WaitEmulation blocks until the logic side has yielded the CPU at least
// once. Bootstrap uses it so the CPU never fetches from a half-written image.
func (h *Handoff) WaitEmulation() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.waitEmulationLocked("first yield")
}

func (h *Handoff) waitEmulationLocked(what string) error {
	expired := false
	if h.timeout > 0 {
		t := time.AfterFunc(h.timeout, func() {
			h.mu.Lock()
			expired = true
			h.cond.Broadcast()
			h.mu.Unlock()
		})
		defer t.Stop()
	}

	for !h.emulationActive && !h.closed && !expired {
		h.cond.Wait()
	}
	switch {
	case h.emulationActive:
		return nil
	case h.closed:
		return ErrBridgeClosed
	default:
		return xerrors.Errorf("waiting for %s after %v: %w", what, h.timeout, ErrHandoffTimeout)
	}
}

// Close wakes both sides. Pending and future yields return ErrBridgeClosed.
func (h *Handoff) Close() {
	h.mu.Lock()
	h.closed = true
	h.cond.Broadcast()
	h.mu.Unlock()
}

// State returns both flags as one atomic observation.
func (h *Handoff) State() (logicActive, emulationActive bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.logicActive, h.emulationActive
}

// LogicHolds reports whether the logic side currently holds the CPU.
func (h *Handoff) LogicHolds() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.logicActive && !h.closed
}

// Closed reports whether Close has been called.
func (h *Handoff) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Yields returns the number of completed logic -> emulation transfers.
func (h *Handoff) Yields() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.yields
}

// restore forces the flags from a snapshot. Only valid with no task attached.
func (h *Handoff) restore(logicActive, emulationActive bool) error {
	if logicActive == emulationActive {
		return xerrors.Errorf("hand-off flags logic=%v emulation=%v: %w", logicActive, emulationActive, ErrBadSnapshot)
	}
	h.mu.Lock()
	h.logicActive = logicActive
	h.emulationActive = emulationActive
	h.mu.Unlock()
	return nil
}
