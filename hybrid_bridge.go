// hybrid_bridge.go - Lifecycle of the native logic task driving the hybrid cartridge

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

/*
hybrid_bridge.go - Hybrid execution bridge

The bridge lets a Go routine ("native logic") drive the emulated 6507 by
writing instructions into the cartridge image at runtime. The routine and the
CPU take turns:

  1. Reset spawns the routine. Its first act is JMP $1000 + yield, parking
     the CPU on a self-jump at the image base.
  2. When the CPU arrives at $1000 the console calls Sync. The cursor is
     rewound and the CPU is handed to the routine.
  3. The routine appends a block and closes it with Jmp (or the overblank
     pair), which hands the CPU back and parks the routine.
  4. The CPU runs the block and ends up at $1000 again.

Only one side ever holds the CPU; see Handoff. The image, cursor and hand-off
state are owned by one Bridge, so independent bridges can run side by side.
*/

package main

import (
	"context"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

const (
	DEFAULT_HANDOFF_TIMEOUT = 2 * time.Second
	LOGIC_STOP_TIMEOUT      = 2 * time.Second
)

// LogicFunc is a native logic routine. It owns the CPU whenever it is running
// and gives it up only inside Assembler.Jmp and Assembler.EndOverblank.
// Returning ends the session.
type LogicFunc func(ctx context.Context, asm *Assembler) error

// BridgeConfig tunes a bridge.
type BridgeConfig struct {
	HandoffTimeout time.Duration // bound on emulator waits, 0 disables
	Trace          bool          // log every emitted block
}

// Bridge owns the program image, the hand-off and the native logic task.
type Bridge struct {
	image *ProgramImage
	logic LogicFunc
	cfg   BridgeConfig
	log   commonlog.Logger

	mu      sync.Mutex
	handoff *Handoff
	cancel  context.CancelFunc
	group   *errgroup.Group
	done    chan struct{}
	stuck   chan struct{} // done of a task Close gave up on
	fault   error

	blockLen uint16 // bytes in the block most recently handed to the CPU
	blocks   uint64
}

// NewBridge creates a bridge with a fresh image. logic may be nil, in which
// case Reset leaves the CPU with whatever the image holds.
func NewBridge(logic LogicFunc, cfg BridgeConfig) *Bridge {
	return &Bridge{
		image:   NewProgramImage(),
		logic:   logic,
		cfg:     cfg,
		log:     commonlog.GetLogger("hybrid.bridge"),
		handoff: NewHandoff(cfg.HandoffTimeout),
	}
}

// Image returns the program image.
func (b *Bridge) Image() *ProgramImage { return b.image }

// Handoff returns the current hand-off. Reset replaces it.
func (b *Bridge) Handoff() *Handoff {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handoff
}

// Running reports whether a logic task is attached.
func (b *Bridge) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done != nil
}

// Reset tears down any previous task, re-arms the hand-off and spawns the
// logic routine. It returns once the routine has parked the CPU on its
// first self-jump, so the CPU never sees a partially written stream. While
// a task Close gave up on is still running, Reset fails with
// ErrHandoffTimeout and leaves the image alone.
func (b *Bridge) Reset(ctx context.Context) error {
	if err := b.Close(); err != nil {
		b.log.Warningf("previous logic task: %v", err)
	}
	if b.stuckTask() {
		// the old task still shares the image
		return xerrors.Errorf("reset: previous logic task has not stopped: %w", ErrHandoffTimeout)
	}

	b.image.Rewind()
	b.image.writeResetVector()
	b.image.Set(HYBRID_OVERBLANK_FLAG, HYBRID_OVERBLANK_CLEAR)

	h := NewHandoff(b.cfg.HandoffTimeout)
	b.mu.Lock()
	b.handoff = h
	b.fault = nil
	b.blocks = 0
	b.mu.Unlock()

	if b.logic == nil {
		return nil
	}

	taskCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(taskCtx)
	asm := &Assembler{image: b.image, handoff: h, bridge: b}
	done := make(chan struct{})

	g.Go(func() error {
		return b.runLogic(gctx, h, asm)
	})
	go func() {
		// wake a parked routine when the session context goes away
		select {
		case <-gctx.Done():
			h.Close()
		case <-done:
		}
	}()

	b.mu.Lock()
	b.cancel = cancel
	b.group = g
	b.done = done
	b.mu.Unlock()

	go func() {
		g.Wait()
		close(done)
	}()

	if err := h.WaitEmulation(); err != nil {
		if fault := b.Err(); fault != nil {
			return fault
		}
		return xerrors.Errorf("bootstrap: %w", err)
	}
	b.log.Debugf("logic task parked the CPU at $%04X", HYBRID_BASE_ADDR)
	return nil
}

func (b *Bridge) runLogic(ctx context.Context, h *Handoff, asm *Assembler) (err error) {
	defer h.Close()
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				panic(r)
			}
			err = e
		}
		if xerrors.Is(err, ErrBridgeClosed) {
			err = nil
		}
		if err != nil {
			b.setFault(err)
		}
	}()

	asm.Jmp()
	return b.logic(ctx, asm)
}

// Sync is the emulator's entry point at the sync address: rewind the cursor
// and hand the CPU to the logic routine until it yields again.
func (b *Bridge) Sync() error {
	h := b.Handoff()
	b.image.Rewind()
	if err := h.YieldToLogic(); err != nil {
		if isFault(err) {
			b.setFault(err)
			h.Close()
		}
		if fault := b.Err(); fault != nil {
			return fault
		}
		return err
	}
	if b.cfg.Trace && b.log.AllowLevel(commonlog.Debug) {
		b.traceBlock()
	}
	return nil
}

// Close stops the logic task and returns its fault, if any. A routine that
// never yields cannot be interrupted; Close gives up on it after
// LOGIC_STOP_TIMEOUT and reports ErrHandoffTimeout.
func (b *Bridge) Close() error {
	b.mu.Lock()
	h, cancel, done := b.handoff, b.cancel, b.done
	b.cancel, b.group, b.done = nil, nil, nil
	b.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()
	h.Close()

	select {
	case <-done:
	case <-time.After(LOGIC_STOP_TIMEOUT):
		b.mu.Lock()
		b.stuck = done
		b.mu.Unlock()
		return xerrors.Errorf("logic task did not stop within %v: %w", LOGIC_STOP_TIMEOUT, ErrHandoffTimeout)
	}
	return b.Err()
}

// stuckTask reports whether a task that Close gave up on is still running.
func (b *Bridge) stuckTask() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stuck == nil {
		return false
	}
	select {
	case <-b.stuck:
		b.stuck = nil
		return false
	default:
		return true
	}
}

// Done is closed when the logic task has ended. It is nil with no task.
func (b *Bridge) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Err returns the fault that ended the logic task.
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fault
}

// Blocks returns the number of blocks handed to the CPU since Reset.
func (b *Bridge) Blocks() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blocks
}

// LastBlock returns the bytes of the block most recently handed to the CPU.
// Only meaningful while the emulator holds the CPU.
func (b *Bridge) LastBlock() []byte {
	b.mu.Lock()
	n := b.blockLen
	b.mu.Unlock()
	return b.image.Bytes()[:n]
}

// Overblank reports whether the overblank sentinel is raised.
func (b *Bridge) Overblank() bool {
	return b.image.At(HYBRID_OVERBLANK_FLAG) == HYBRID_OVERBLANK_SET
}

func (b *Bridge) noteBlock(n uint16) {
	b.mu.Lock()
	b.blockLen = n
	b.blocks++
	b.mu.Unlock()
}

func (b *Bridge) setFault(err error) {
	b.mu.Lock()
	if b.fault == nil {
		b.fault = err
	}
	b.mu.Unlock()
	b.log.Errorf("%+v", err)
}

func (b *Bridge) traceBlock() {
	block := b.LastBlock()
	b.log.Debugf("block %d, %d bytes", b.Blocks(), len(block))
	for _, line := range disassemble6507(block, HYBRID_BASE_ADDR) {
		b.log.Debugf("  $%04X  %-8s  %s", line.Address, line.HexBytes, line.Mnemonic)
	}
}
