// hybrid_encoder.go - Micro-assembler used by native logic to drive the CPU

package main

import "golang.org/x/xerrors"

// Assembler appends binary-exact 6502 encodings to the program image. A
// routine only ever receives one through its LogicFunc, and every method
// checks that the logic side holds the CPU before touching the image.
//
// Methods do not return errors. A fault (overflow, use without holding the
// CPU, teardown) panics with a wrapped error value which the task runner
// recovers, the same way the routine would unwind from any fatal condition.
type Assembler struct {
	image   *ProgramImage
	handoff *Handoff
	bridge  *Bridge
}

func (a *Assembler) hold() {
	if !a.handoff.LogicHolds() {
		if a.handoff.Closed() {
			panic(error(ErrBridgeClosed))
		}
		panic(xerrors.Errorf("cursor $%03X: %w", a.image.Cursor(), ErrNotHolding))
	}
}

func (a *Assembler) put(b ...byte) {
	a.hold()
	a.image.emit(false, b...)
}

// Lda emits LDA #v.
func (a *Assembler) Lda(v byte) { a.put(OP_LDA_IMM, v) }

// Ldx emits LDX #v.
func (a *Assembler) Ldx(v byte) { a.put(OP_LDX_IMM, v) }

// Ldy emits LDY #v.
func (a *Assembler) Ldy(v byte) { a.put(OP_LDY_IMM, v) }

// Sta emits STA zp.
func (a *Assembler) Sta(zp byte) { a.put(OP_STA_ZP, zp) }

// StaAbs emits STA $00zp. The absolute form costs one cycle more than Sta,
// which kernels use to shift a store by a cycle.
func (a *Assembler) StaAbs(zp byte) { a.put(OP_STA_ABS, zp, 0x00) }

// Stx emits STX zp.
func (a *Assembler) Stx(zp byte) { a.put(OP_STX_ZP, zp) }

// Sty emits STY zp.
func (a *Assembler) Sty(zp byte) { a.put(OP_STY_ZP, zp) }

// Txs emits TXS.
func (a *Assembler) Txs() { a.put(OP_TXS) }

// Nop emits NOP.
func (a *Assembler) Nop() { a.put(OP_NOP) }

// Nops emits n NOPs, keeping the CPU busy for 2n cycles while native code
// does lengthy work on the next block.
func (a *Assembler) Nops(n int) {
	if n <= 0 {
		return
	}
	a.hold()
	a.image.fill(OP_NOP, n)
}

// Write emits LDA #v / STA zp.
func (a *Assembler) Write(zp, v byte) { a.put(OP_LDA_IMM, v, OP_STA_ZP, zp) }

// Read emits LDA addr and returns OPEN_BUS. The value the CPU will see is
// not known until the block runs; bus snooping is not modelled.
func (a *Assembler) Read(addr uint16) byte {
	a.put(OP_LDA_ABS, byte(addr), byte(addr>>8))
	return OPEN_BUS
}

// Jmp closes the block with JMP to the image base, rewinds the cursor and
// yields. It returns once the CPU has run the block and come back to the
// sync point.
func (a *Assembler) Jmp() {
	a.hold()
	a.image.emit(true, OP_JMP_ABS, byte(HYBRID_BASE_ADDR&0xFF), byte(HYBRID_BASE_ADDR>>8))
	a.yield()
}

// StartOverblank raises the overblank sentinel and closes the block with a
// jump into the RAM trampoline. It does not yield: the routine keeps the CPU
// and finishes with EndOverblank.
func (a *Assembler) StartOverblank() {
	a.hold()
	a.image.Set(HYBRID_OVERBLANK_FLAG, HYBRID_OVERBLANK_SET)
	a.image.emit(true, OP_JMP_ABS, byte(OVERBLANK_TRAMPOLINE&0xFF), byte(OVERBLANK_TRAMPOLINE>>8))
}

// EndOverblank clears the sentinel and yields without emitting anything; the
// trampoline returns to the image base on its own.
func (a *Assembler) EndOverblank() {
	a.hold()
	if a.image.At(HYBRID_OVERBLANK_FLAG) != HYBRID_OVERBLANK_SET {
		// nothing closed the block; the CPU would run off its end
		panic(xerrors.Errorf("end overblank without start: %w", ErrProtocolViolation))
	}
	a.image.Set(HYBRID_OVERBLANK_FLAG, HYBRID_OVERBLANK_CLEAR)
	a.yield()
}

// Cursor returns the current write offset.
func (a *Assembler) Cursor() uint16 { return a.image.Cursor() }

func (a *Assembler) yield() {
	a.bridge.noteBlock(a.image.Cursor())
	a.image.Rewind()
	if err := a.handoff.YieldToEmulator(); err != nil {
		panic(err)
	}
}
