package main

import (
	"context"
	"testing"
	"time"
)

const testHandoffTimeout = 2 * time.Second

// bridgeTestRig runs one block function per Sync. Each function must end
// the block with Jmp or EndOverblank.
type bridgeTestRig struct {
	bridge *Bridge
	blocks chan func(*Assembler)
}

func newBridgeTestRig(t *testing.T) *bridgeTestRig {
	t.Helper()
	r := &bridgeTestRig{blocks: make(chan func(*Assembler), 1)}
	r.bridge = NewBridge(r.logic, BridgeConfig{HandoffTimeout: testHandoffTimeout})
	if err := r.bridge.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	t.Cleanup(func() { r.bridge.Close() })
	return r
}

func (r *bridgeTestRig) logic(ctx context.Context, asm *Assembler) error {
	for {
		select {
		case fn := <-r.blocks:
			fn(asm)
		case <-ctx.Done():
			return nil
		}
	}
}

// run hands the CPU to the logic side for one block.
func (r *bridgeTestRig) run(fn func(*Assembler)) error {
	r.blocks <- fn
	return r.bridge.Sync()
}

func (r *bridgeTestRig) mustRun(t *testing.T, fn func(*Assembler)) {
	t.Helper()
	if err := r.run(fn); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func expectBytes(t *testing.T, got []byte, want ...byte) {
	t.Helper()
	if len(got) < len(want) {
		t.Fatalf("have %d bytes, want at least %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X (got % X)", i, got[i], w, got[:len(want)])
		}
	}
}

// waitClosed fails the test if ch is not closed within d.
func waitClosed(t *testing.T, ch <-chan struct{}, d time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(d):
		t.Fatalf("timeout waiting for %s", what)
	}
}

// expectPanicError runs fn and returns the error it panicked with.
func expectPanicError(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic")
		}
		e, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v is not an error", r)
		}
		err = e
	}()
	fn()
	return nil
}
