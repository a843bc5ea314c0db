// console.go - CPU, chips and hybrid cartridge wired into one machine

/*
console.go - Emulation side of the hybrid bridge

The console owns the 6507 and steps it one instruction at a time. Every
load and store goes through the cartridge, which owns the whole bus. When
the CPU is about to fetch from the sync address ($1000) the console calls
Bridge.Sync, which blocks until native logic has written the next block.

A block may itself end at $1000 without having run anything else (an empty
block is just the self-jump), so the console arms sync detection only after
the CPU has executed at least one instruction since the last sync.

WSYNC halts the CPU until the start of the next scanline. The console adds
the stall to the CPU cycle count and ticks the chips through it.
*/

package main

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

const CONSOLE_CTX_CHECK = 1024 // instructions between context checks

// ConsoleStatus is a point-in-time view of a running console.
type ConsoleStatus struct {
	Frames       uint64
	Instructions uint64
	Cycles       uint64
	Syncs        uint64
}

// RunOptions bounds a Run and optionally reports progress.
type RunOptions struct {
	Frames      uint64              // stop after this many frames, 0 = until the logic ends
	StatusEvery time.Duration       // 0 disables status reports
	Status      func(ConsoleStatus) // called from a separate goroutine
}

// Console is a minimal 2600-class machine around a hybrid cartridge.
type Console struct {
	CPU  *CPU_6507
	TIA  *TIA
	RIOT *RIOT
	Cart *CartHybrid

	log   commonlog.Logger
	armed bool

	frames       atomic.Uint64
	instructions atomic.Uint64
	cycles       atomic.Uint64
	syncs        atomic.Uint64
}

// consoleBus adapts the cartridge to the CPU's bus interface.
type consoleBus struct {
	cart *CartHybrid
}

func (b consoleBus) Read(addr uint16) byte         { return b.cart.Peek(addr) }
func (b consoleBus) Write(addr uint16, value byte) { b.cart.Poke(addr, value) }

// NewConsole builds a console whose cartridge runs logic.
func NewConsole(logic LogicFunc, cfg BridgeConfig) *Console {
	c := &Console{
		TIA:  NewTIA(),
		RIOT: NewRIOT(),
		log:  commonlog.GetLogger("hybrid.console"),
	}
	c.Cart = NewCartHybrid(NewBridge(logic, cfg), c.TIA, c.RIOT)
	c.CPU = NewCPU_6507(consoleBus{cart: c.Cart})
	return c
}

// Bridge returns the cartridge's execution bridge.
func (c *Console) Bridge() *Bridge { return c.Cart.Bridge() }

// Reset powers the machine up: chips first, then the cartridge (which
// spawns the logic task and waits for it to park the CPU), then the CPU.
func (c *Console) Reset(ctx context.Context) error {
	c.TIA.Reset()
	c.RIOT.Reset()
	if err := c.Cart.Reset(ctx); err != nil {
		return xerrors.Errorf("cartridge reset: %w", err)
	}
	c.CPU.Reset()
	c.armed = true
	c.frames.Store(0)
	c.instructions.Store(0)
	c.cycles.Store(0)
	c.syncs.Store(0)
	c.log.Infof("reset, PC=$%04X", c.CPU.PC)
	return nil
}

// Step runs one instruction, entering the bridge first if the CPU is at the
// sync address. It returns the cycles consumed, WSYNC stall included.
// ErrBridgeClosed means the logic routine has ended cleanly.
func (c *Console) Step() (int, error) {
	b := c.Bridge()
	if c.armed && c.CPU.PC&HYBRID_ADDR_MASK == HYBRID_BASE_ADDR && b.Running() {
		c.armed = false
		if err := b.Sync(); err != nil {
			return 0, err
		}
		c.syncs.Add(1)
	}

	cycles := c.CPU.Step()
	if c.CPU.Jammed() {
		return 0, c.CPU.JamError()
	}
	c.armed = true
	c.tick(cycles)

	if stall := c.TIA.TakeWSync(); stall > 0 {
		c.CPU.Cycles += uint64(stall)
		c.tick(stall)
		cycles += stall
	}
	c.instructions.Add(1)
	c.cycles.Add(uint64(cycles))
	return cycles, nil
}

func (c *Console) tick(cycles int) {
	c.TIA.Tick(cycles)
	c.RIOT.Tick(cycles)
	c.frames.Store(c.TIA.Frame())
}

// Status returns counters safe to read from any goroutine.
func (c *Console) Status() ConsoleStatus {
	return ConsoleStatus{
		Frames:       c.frames.Load(),
		Instructions: c.instructions.Load(),
		Cycles:       c.cycles.Load(),
		Syncs:        c.syncs.Load(),
	}
}

// Run steps the console until opts.Frames frames have started, the logic
// routine ends, ctx is cancelled or something faults. A clean end of the
// logic routine returns nil.
func (c *Console) Run(ctx context.Context, opts RunOptions) error {
	g, gctx := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	g.Go(func() error {
		defer close(stop)
		return c.emulate(gctx, opts.Frames)
	})
	if opts.Status != nil && opts.StatusEvery > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(opts.StatusEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					opts.Status(c.Status())
				case <-stop:
					opts.Status(c.Status())
					return nil
				}
			}
		})
	}
	return g.Wait()
}

func (c *Console) emulate(ctx context.Context, frames uint64) error {
	target := c.TIA.Frame() + frames
	for n := 0; ; n++ {
		if n%CONSOLE_CTX_CHECK == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if _, err := c.Step(); err != nil {
			if xerrors.Is(err, ErrBridgeClosed) {
				c.log.Infof("logic routine ended after %d syncs", c.syncs.Load())
				return nil
			}
			return err
		}
		if frames > 0 && c.TIA.Frame() >= target {
			return nil
		}
	}
}

// SaveState writes the cartridge state. The CPU and chips are not saved:
// a restored console restarts from the reset vector.
func (c *Console) SaveState(w io.Writer) error {
	return c.Cart.Save(w)
}

// LoadState restores a cartridge state and resets the CPU into it. It
// fails with ErrStateUnsupported while native logic is attached.
func (c *Console) LoadState(r io.Reader) error {
	if err := c.Cart.Load(r); err != nil {
		return err
	}
	c.CPU.Reset()
	c.armed = true
	return nil
}

// Close stops the logic task and returns its fault, if any.
func (c *Console) Close() error {
	return c.Bridge().Close()
}
