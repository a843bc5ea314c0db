package main

import (
	"math"
	"runtime"
	"testing"

	"golang.org/x/xerrors"
)

func TestEncoderImmediateLoads(t *testing.T) {
	rig := newBridgeTestRig(t)

	ops := []struct {
		name   string
		opcode byte
		emit   func(*Assembler, byte)
	}{
		{"LDA", OP_LDA_IMM, (*Assembler).Lda},
		{"LDX", OP_LDX_IMM, (*Assembler).Ldx},
		{"LDY", OP_LDY_IMM, (*Assembler).Ldy},
		{"STA", OP_STA_ZP, (*Assembler).Sta},
		{"STX", OP_STX_ZP, (*Assembler).Stx},
		{"STY", OP_STY_ZP, (*Assembler).Sty},
	}

	for _, op := range ops {
		var bad []int
		rig.mustRun(t, func(a *Assembler) {
			for v := 0; v < 256; v++ {
				before := a.Cursor()
				op.emit(a, byte(v))
				img := a.image.Bytes()
				if a.Cursor() != before+2 || img[before] != op.opcode || img[before+1] != byte(v) {
					bad = append(bad, v)
				}
				a.image.Rewind()
			}
			a.Jmp()
		})
		if len(bad) != 0 {
			t.Fatalf("%s: wrong encoding for values %v", op.name, bad)
		}
	}
}

func TestEncoderFixedEncodings(t *testing.T) {
	tests := []struct {
		name string
		emit func(*Assembler)
		want []byte
	}{
		{"StaAbs", func(a *Assembler) { a.StaAbs(0x09) }, []byte{0x8D, 0x09, 0x00}},
		{"Txs", func(a *Assembler) { a.Txs() }, []byte{0x9A}},
		{"Nop", func(a *Assembler) { a.Nop() }, []byte{0xEA}},
		{"Nops", func(a *Assembler) { a.Nops(3) }, []byte{0xEA, 0xEA, 0xEA}},
		{"Nops0", func(a *Assembler) { a.Nops(0) }, []byte{}},
		{"Write", func(a *Assembler) { a.Write(0x80, 0x42) }, []byte{0xA9, 0x42, 0x85, 0x80}},
		{"Read", func(a *Assembler) { a.Read(0x0284) }, []byte{0xAD, 0x84, 0x02}},
	}

	rig := newBridgeTestRig(t)
	for _, tc := range tests {
		var cursor uint16
		rig.mustRun(t, func(a *Assembler) {
			tc.emit(a)
			cursor = a.Cursor()
			a.Jmp()
		})
		if int(cursor) != len(tc.want) {
			t.Fatalf("%s: cursor advanced by %d, want %d", tc.name, cursor, len(tc.want))
		}
		want := append(append([]byte{}, tc.want...), 0x4C, 0x00, 0x10)
		expectBytes(t, rig.bridge.Image().Bytes(), want...)
	}
}

func TestEncoderReadReturnsOpenBus(t *testing.T) {
	rig := newBridgeTestRig(t)
	var got byte
	rig.mustRun(t, func(a *Assembler) {
		got = a.Read(0x1FFF)
		a.Jmp()
	})
	if got != OPEN_BUS {
		t.Fatalf("Read returned 0x%02X, want 0x%02X", got, OPEN_BUS)
	}
}

func TestEncoderJmpRewindsAndYields(t *testing.T) {
	rig := newBridgeTestRig(t)
	rig.mustRun(t, func(a *Assembler) {
		a.Lda(0x42)
		a.Sta(0x80)
		a.Jmp()
	})

	expectBytes(t, rig.bridge.Image().Bytes(), 0xA9, 0x42, 0x85, 0x80, 0x4C, 0x00, 0x10)
	if c := rig.bridge.Image().Cursor(); c != 0 {
		t.Fatalf("cursor=0x%03X, want 0", c)
	}
	if logic, emu := rig.bridge.Handoff().State(); logic || !emu {
		t.Fatalf("state logic=%v emulation=%v, want emulator holding", logic, emu)
	}
	if n := len(rig.bridge.LastBlock()); n != 7 {
		t.Fatalf("last block is %d bytes, want 7", n)
	}
}

func TestEncoderOverblank(t *testing.T) {
	rig := newBridgeTestRig(t)

	var sentinel byte
	var cursor uint16
	var holding bool
	rig.mustRun(t, func(a *Assembler) {
		a.Lda(0x01)
		a.StartOverblank()
		sentinel = a.image.At(HYBRID_OVERBLANK_FLAG)
		cursor = a.Cursor()
		holding = a.handoff.LogicHolds()
		a.EndOverblank()
	})

	if sentinel != HYBRID_OVERBLANK_SET {
		t.Fatalf("sentinel during overblank=0x%02X, want 0xFF", sentinel)
	}
	if cursor != 5 {
		t.Fatalf("cursor after StartOverblank=%d, want 5", cursor)
	}
	if !holding {
		t.Fatalf("StartOverblank gave up the CPU")
	}
	expectBytes(t, rig.bridge.Image().Bytes(), 0xA9, 0x01, 0x4C, 0x80, 0x00)
	if rig.bridge.Overblank() {
		t.Fatalf("sentinel still set after EndOverblank")
	}
	if c := rig.bridge.Image().Cursor(); c != 0 {
		t.Fatalf("cursor=0x%03X after EndOverblank, want 0", c)
	}
}

func TestEncoderEndOverblankWithoutStart(t *testing.T) {
	rig := newBridgeTestRig(t)
	err := rig.run(func(a *Assembler) { a.EndOverblank() })
	if !xerrors.Is(err, ErrProtocolViolation) {
		t.Fatalf("err=%v, want ErrProtocolViolation", err)
	}
}

func TestEncoderOverflowIsFatal(t *testing.T) {
	rig := newBridgeTestRig(t)
	err := rig.run(func(a *Assembler) {
		for {
			a.Nop()
		}
	})
	if !xerrors.Is(err, ErrImageOverflow) {
		t.Fatalf("err=%v, want ErrImageOverflow", err)
	}
	if !xerrors.Is(rig.bridge.Err(), ErrImageOverflow) {
		t.Fatalf("bridge fault=%v, want ErrImageOverflow", rig.bridge.Err())
	}

	img := rig.bridge.Image().Bytes()
	last := HYBRID_CODE_LIMIT - HYBRID_JMP_RESERVE
	if img[last-1] != OP_NOP {
		t.Fatalf("image[0x%03X]=0x%02X, want NOP", last-1, img[last-1])
	}
	for off := last; off < HYBRID_RESET_VECTOR; off++ {
		if img[off] != 0 {
			t.Fatalf("image[0x%03X]=0x%02X written past the limit", off, img[off])
		}
	}
	expectBytes(t, img[HYBRID_RESET_VECTOR:], 0x00, 0x10, 0x00, 0x00)
}

func TestEncoderNopsRejectsHugeCountUpFront(t *testing.T) {
	img := NewProgramImage()
	img.fill(OP_NOP, 4)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	err := expectPanicError(t, func() { img.fill(OP_NOP, math.MaxInt) })
	runtime.ReadMemStats(&after)

	if !xerrors.Is(err, ErrImageOverflow) {
		t.Fatalf("err=%v, want ErrImageOverflow", err)
	}
	if grown := after.TotalAlloc - before.TotalAlloc; grown > 1<<20 {
		t.Fatalf("rejected fill allocated %d bytes", grown)
	}
	if img.Cursor() != 4 {
		t.Fatalf("cursor=%d after rejected fill, want 4", img.Cursor())
	}
	if img.At(4) != 0 {
		t.Fatalf("image[4]=0x%02X written by rejected fill", img.At(4))
	}

	rig := newBridgeTestRig(t)
	err = rig.run(func(a *Assembler) { a.Nops(math.MaxInt) })
	if !xerrors.Is(err, ErrImageOverflow) {
		t.Fatalf("Nops: %v, want ErrImageOverflow", err)
	}
}

func TestEncoderJmpFitsInReservedRoom(t *testing.T) {
	rig := newBridgeTestRig(t)
	rig.mustRun(t, func(a *Assembler) {
		a.Nops(HYBRID_CODE_LIMIT - HYBRID_JMP_RESERVE)
		a.Jmp()
	})
	img := rig.bridge.Image().Bytes()
	expectBytes(t, img[HYBRID_CODE_LIMIT-3:], 0x4C, 0x00, 0x10, 0x00, 0x10)
}

func TestEncoderRejectsUseWithoutHolding(t *testing.T) {
	rig := newBridgeTestRig(t)
	var leaked *Assembler
	rig.mustRun(t, func(a *Assembler) {
		leaked = a
		a.Jmp()
	})

	err := expectPanicError(t, func() { leaked.Lda(0x01) })
	if !xerrors.Is(err, ErrNotHolding) {
		t.Fatalf("err=%v, want ErrNotHolding", err)
	}
	if rig.bridge.Image().At(0) != OP_JMP_ABS {
		t.Fatalf("image modified by a rejected call")
	}
}
