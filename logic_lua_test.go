package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/xerrors"
)

func newLuaBridge(t *testing.T, source string) *Bridge {
	t.Helper()
	b := NewBridge(NewLuaLogic("test.lua", source), BridgeConfig{HandoffTimeout: testHandoffTimeout})
	if err := b.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestLuaLogicEmitsBlock(t *testing.T) {
	b := newLuaBridge(t, `
while true do
	lda(0x42)
	sta(RAM)
	frame()
end`)
	for i := 0; i < 3; i++ {
		if err := b.Sync(); err != nil {
			t.Fatalf("Sync %d: %v", i, err)
		}
		expectBytes(t, b.Image().Bytes(), 0xA9, 0x42, 0x85, 0x80, 0x4C, 0x00, 0x10)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLuaLogicRegisterGlobals(t *testing.T) {
	b := newLuaBridge(t, `
while true do
	lda(0x0E)
	sta(COLUBK)
	sta_abs(WSYNC)
	frame()
end`)
	if err := b.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	expectBytes(t, b.Image().Bytes(), 0xA9, 0x0E, 0x85, 0x09, 0x8D, 0x02, 0x00, 0x4C, 0x00, 0x10)
}

func TestLuaLogicCursorAndRead(t *testing.T) {
	b := newLuaBridge(t, `
while true do
	nop()
	local v = read(0x0282)
	if v ~= OPEN_BUS or cursor() ~= 4 then
		error("read=" .. v .. " cursor=" .. cursor())
	end
	frame()
end`)
	if err := b.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	expectBytes(t, b.Image().Bytes(), 0xEA, 0xAD, 0x82, 0x02, 0x4C, 0x00, 0x10)
}

func TestLuaLogicByteOutOfRange(t *testing.T) {
	b := newLuaBridge(t, `lda(300) frame()`)
	err := b.Sync()
	if err == nil || !strings.Contains(err.Error(), "byte out of range") {
		t.Fatalf("Sync: %v, want byte out of range", err)
	}
	if err := b.Close(); err == nil {
		t.Fatalf("Close returned nil after a script error")
	}
}

func TestLuaLogicOverflowKeepsGoError(t *testing.T) {
	b := newLuaBridge(t, `while true do nop() end`)
	if err := b.Sync(); !xerrors.Is(err, ErrImageOverflow) {
		t.Fatalf("Sync: %v, want ErrImageOverflow", err)
	}
}

func TestLuaLogicScriptReturns(t *testing.T) {
	b := newLuaBridge(t, `write(0x80, 0x11) frame()`)
	if err := b.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := b.Sync(); !xerrors.Is(err, ErrBridgeClosed) {
		t.Fatalf("Sync after return: %v, want ErrBridgeClosed", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLuaLogicStopsOnClose(t *testing.T) {
	b := newLuaBridge(t, `while true do frame() end`)
	if err := b.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	done := b.Done()
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	waitClosed(t, done, testHandoffTimeout, "lua routine")
}

func TestLuaLogicHasNoOSLibrary(t *testing.T) {
	b := newLuaBridge(t, `os.exit(1)`)
	if err := b.Sync(); err == nil {
		t.Fatalf("Sync succeeded with os.exit")
	}
}

func TestLuaLogicSyntaxError(t *testing.T) {
	b := newLuaBridge(t, `while do`)
	err := b.Sync()
	if err == nil || !strings.Contains(err.Error(), "lua test.lua") {
		t.Fatalf("Sync: %v, want a lua parse error", err)
	}
}

func TestLuaLogicOnConsole(t *testing.T) {
	c := newConsoleTestRig(t, NewLuaLogic("ram.lua", `
local v = 0
while true do
	v = v + 1
	write(0x80, v)
	frame()
end`))
	// sync + LDA + STA + JMP per block
	for i := 0; i < 2*3; i++ {
		if _, err := c.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if got := c.RIOT.RAM()[0]; got != 2 {
		t.Fatalf("RAM[$80]=%d, want 2", got)
	}
}

func TestLoadLuaLogic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logic.lua")
	if err := os.WriteFile(path, []byte("while true do frame() end\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fn, err := LoadLuaLogic(path)
	if err != nil {
		t.Fatalf("LoadLuaLogic: %v", err)
	}
	if fn == nil {
		t.Fatalf("nil routine")
	}
	if _, err := LoadLuaLogic(filepath.Join(t.TempDir(), "missing.lua")); !xerrors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing script: %v, want ErrNotExist", err)
	}
}

func TestLuaRainbowMatchesBuiltin(t *testing.T) {
	script, err := LoadLuaLogic(filepath.Join("scripts", "rainbow.lua"))
	if err != nil {
		t.Fatalf("LoadLuaLogic: %v", err)
	}
	bridges := []*Bridge{
		NewBridge(RainbowLogic, BridgeConfig{HandoffTimeout: testHandoffTimeout}),
		NewBridge(script, BridgeConfig{HandoffTimeout: testHandoffTimeout}),
	}
	for _, b := range bridges {
		if err := b.Reset(context.Background()); err != nil {
			t.Fatalf("Reset: %v", err)
		}
		defer b.Close()
	}
	for frame := 0; frame < 2; frame++ {
		var blocks [2][]byte
		for i, b := range bridges {
			if err := b.Sync(); err != nil {
				t.Fatalf("frame %d Sync: %v", frame, err)
			}
			blocks[i] = append([]byte(nil), b.LastBlock()...)
		}
		if !bytes.Equal(blocks[0], blocks[1]) {
			t.Fatalf("frame %d: lua block (%d bytes) differs from Go block (%d bytes)",
				frame, len(blocks[1]), len(blocks[0]))
		}
	}
}

func TestLuaLogicHugeNopsFailsFast(t *testing.T) {
	b := newLuaBridge(t, `nops(2^40) frame()`)
	if err := b.Sync(); !xerrors.Is(err, ErrImageOverflow) {
		t.Fatalf("Sync: %v, want ErrImageOverflow", err)
	}
	if b.Image().Cursor() != 0 {
		t.Fatalf("cursor=%d after rejected nops, want 0", b.Image().Cursor())
	}
}

func TestLuaRAMGlobalIsFirstRAMAddress(t *testing.T) {
	c := newConsoleTestRig(t, NewLuaLogic("ram.lua", `
while true do
	lda(0x5A)
	sta(RAM + 1)
	frame()
end`))
	// sync + LDA + STA
	for i := 0; i < 2; i++ {
		if _, err := c.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if got := c.RIOT.RAM()[1]; got != 0x5A {
		t.Fatalf("RAM[1]=0x%02X, want 0x5A", got)
	}
}
