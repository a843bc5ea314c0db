// logic_builtin.go - Native logic routines shipped with the console

package main

import (
	"context"
	"sort"

	"golang.org/x/xerrors"
)

const (
	VSYNC_LINES    = 3
	VBLANK_LINES   = 37
	VISIBLE_LINES  = 192
	OVERSCAN_LINES = 30

	OVERSCAN_TIM64T = 35 // ~29.5 lines of 76 cycles
)

// overblankTrampoline runs from RIOT RAM while native logic owns the
// cartridge: it arms the overscan timer, waits for the sentinel at $1FFF to
// drop, then for the timer, and returns to the sync point.
var overblankTrampoline = []byte{
	0xA9, OVERSCAN_TIM64T, // $80 LDA #35
	0x8D, 0x96, 0x02, //      $82 STA TIM64T
	0xAD, 0xFF, 0x1F, //      $85 LDA $1FFF
	0xD0, 0xFB, //            $88 BNE $85
	0xAD, 0x84, 0x02, //      $8A LDA INTIM
	0xD0, 0xFB, //            $8D BNE $8A
	0x4C, 0x00, 0x10, //      $8F JMP $1000
}

var builtinLogic = map[string]LogicFunc{
	"idle":      IdleLogic,
	"rainbow":   RainbowLogic,
	"overblank": OverblankLogic,
}

// BuiltinLogic looks up a shipped routine by name.
func BuiltinLogic(name string) (LogicFunc, error) {
	fn, ok := builtinLogic[name]
	if !ok {
		return nil, xerrors.Errorf("unknown logic routine %q (have %v)", name, BuiltinLogicNames())
	}
	return fn, nil
}

// BuiltinLogicNames lists the shipped routines.
func BuiltinLogicNames() []string {
	names := make([]string, 0, len(builtinLogic))
	for name := range builtinLogic {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IdleLogic hands back empty blocks until the session ends.
func IdleLogic(ctx context.Context, asm *Assembler) error {
	for ctx.Err() == nil {
		asm.Jmp()
	}
	return nil
}

// RainbowLogic draws one colour per scanline, scrolling every frame. Each
// frame is a single block.
func RainbowLogic(ctx context.Context, asm *Assembler) error {
	for frame := 0; ctx.Err() == nil; frame++ {
		emitVerticalSync(asm)
		emitRainbow(asm, frame)

		asm.Write(TIA_VBLANK, 0x02)
		wsyncLines(asm, OVERSCAN_LINES)
		asm.Jmp()
	}
	return nil
}

// OverblankLogic draws the same picture, but spends overscan in native
// code: the CPU waits in the RAM trampoline while the next frame's colours
// are computed.
func OverblankLogic(ctx context.Context, asm *Assembler) error {
	for i, b := range overblankTrampoline {
		asm.Write(byte(OVERBLANK_TRAMPOLINE+i), b)
	}
	asm.Jmp()

	colours := rainbowColours(0)
	for frame := 0; ctx.Err() == nil; frame++ {
		emitVerticalSync(asm)
		for _, c := range colours {
			asm.Lda(c)
			asm.Sta(TIA_COLUBK)
			asm.Sta(TIA_WSYNC)
		}
		asm.Write(TIA_VBLANK, 0x02)
		asm.StartOverblank()
		colours = rainbowColours(frame + 1)
		asm.EndOverblank()
	}
	return nil
}

// emitVerticalSync emits VSYNC and VBLANK and leaves the beam at the top
// of the visible area with VBLANK off.
func emitVerticalSync(asm *Assembler) {
	asm.Write(TIA_VSYNC, 0x02)
	wsyncLines(asm, VSYNC_LINES)
	asm.Write(TIA_VSYNC, 0x00)

	asm.Write(TIA_VBLANK, 0x02)
	wsyncLines(asm, VBLANK_LINES)
	asm.Write(TIA_VBLANK, 0x00)
}

func emitRainbow(asm *Assembler, frame int) {
	for _, c := range rainbowColours(frame) {
		asm.Lda(c)
		asm.Sta(TIA_COLUBK)
		asm.Sta(TIA_WSYNC)
	}
}

func wsyncLines(asm *Assembler, n int) {
	for i := 0; i < n; i++ {
		asm.Sta(TIA_WSYNC)
	}
}

// rainbowColours returns the background colour of each visible line. The
// lowest bit of a TIA colour is unused.
func rainbowColours(frame int) []byte {
	c := make([]byte, VISIBLE_LINES)
	for line := range c {
		c[line] = byte(frame+line) << 1
	}
	return c
}
