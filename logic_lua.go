// logic_lua.go - Native logic routines written in Lua

package main

import (
	"context"
	"os"

	"github.com/tliron/commonlog"
	lua "github.com/yuin/gopher-lua"
	"golang.org/x/xerrors"
)

// Register names exported to scripts as numeric globals.
var luaRegisters = map[string]uint16{
	"VSYNC":  TIA_VSYNC,
	"VBLANK": TIA_VBLANK,
	"WSYNC":  TIA_WSYNC,
	"RSYNC":  TIA_RSYNC,
	"COLUP0": TIA_COLUP0,
	"COLUP1": TIA_COLUP1,
	"COLUPF": TIA_COLUPF,
	"COLUBK": TIA_COLUBK,
	"CTRLPF": TIA_CTRLPF,
	"PF0":    TIA_PF0,
	"PF1":    TIA_PF1,
	"PF2":    TIA_PF2,
	"AUDC0":  TIA_AUDC0,
	"AUDV0":  TIA_AUDV0,
	"HMOVE":  TIA_HMOVE,
	"INPT4":  TIA_INPT4,

	"SWCHA":  RIOT_SWCHA,
	"SWCHB":  RIOT_SWCHB,
	"INTIM":  RIOT_INTIM,
	"TIM64T": RIOT_TIM64T,
	"T1024T": RIOT_T1024T,

	"RAM":        RIOT_RAM_BASE,
	"TRAMPOLINE": OVERBLANK_TRAMPOLINE,
	"OPEN_BUS":   OPEN_BUS,
}

// luaRoutine runs one script against one assembler.
type luaRoutine struct {
	L     *lua.LState
	asm   *Assembler
	log   commonlog.Logger
	fault error // first Go error raised inside a binding
}

// NewLuaLogic returns a routine running source. The script's top-level
// chunk is the routine: it usually loops forever, calling frame() once per
// block, and the session ends when it returns.
func NewLuaLogic(name, source string) LogicFunc {
	return func(ctx context.Context, asm *Assembler) error {
		L := lua.NewState(lua.Options{SkipOpenLibs: true})
		defer L.Close()

		r := &luaRoutine{L: L, asm: asm, log: commonlog.GetLogger("hybrid.lua")}
		if err := r.openLibs(); err != nil {
			return err
		}
		r.install()
		L.SetContext(ctx)

		fn, err := L.LoadString(source)
		if err != nil {
			return xerrors.Errorf("lua %s: %w", name, err)
		}
		L.Push(fn)
		err = L.PCall(0, lua.MultRet, nil)
		if r.fault != nil {
			return r.fault
		}
		if err != nil {
			if ctx.Err() != nil {
				return ErrBridgeClosed
			}
			return xerrors.Errorf("lua %s: %w", name, err)
		}
		return nil
	}
}

// LoadLuaLogic reads a script file.
func LoadLuaLogic(path string) (LogicFunc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("lua script: %w", err)
	}
	return NewLuaLogic(path, string(data)), nil
}

func (r *luaRoutine) openLibs() error {
	// no io or os: scripts only drive the CPU
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := r.L.CallByParam(lua.P{
			Fn:      r.L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return xerrors.Errorf("lua: open %s: %w", lib.name, err)
		}
	}
	return nil
}

func (r *luaRoutine) install() {
	L := r.L
	for name, value := range luaRegisters {
		L.SetGlobal(name, lua.LNumber(value))
	}

	fns := map[string]lua.LGFunction{
		"lda":     r.byteOp(r.asm.Lda),
		"ldx":     r.byteOp(r.asm.Ldx),
		"ldy":     r.byteOp(r.asm.Ldy),
		"sta":     r.byteOp(r.asm.Sta),
		"sta_abs": r.byteOp(r.asm.StaAbs),
		"stx":     r.byteOp(r.asm.Stx),
		"sty":     r.byteOp(r.asm.Sty),
		"txs":     r.voidOp(r.asm.Txs),
		"nop":     r.voidOp(r.asm.Nop),
		"jmp":     r.voidOp(r.asm.Jmp),
		"frame":   r.voidOp(r.asm.Jmp),

		"start_overblank": r.voidOp(r.asm.StartOverblank),
		"end_overblank":   r.voidOp(r.asm.EndOverblank),

		"nops": func(L *lua.LState) int {
			n := L.CheckInt(1)
			r.guard(func() { r.asm.Nops(n) })
			return 0
		},
		"write": func(L *lua.LState) int {
			zp, v := r.checkByte(1), r.checkByte(2)
			r.guard(func() { r.asm.Write(zp, v) })
			return 0
		},
		"read": func(L *lua.LState) int {
			addr := L.CheckInt(1)
			if addr < 0 || addr > 0xFFFF {
				L.ArgError(1, "address out of range")
			}
			var v byte
			r.guard(func() { v = r.asm.Read(uint16(addr)) })
			L.Push(lua.LNumber(v))
			return 1
		},
		"cursor": func(L *lua.LState) int {
			L.Push(lua.LNumber(r.asm.Cursor()))
			return 1
		},
		"log": func(L *lua.LState) int {
			r.log.Infof("%s", L.CheckString(1))
			return 0
		},
	}
	for name, fn := range fns {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func (r *luaRoutine) checkByte(n int) byte {
	v := r.L.CheckInt(n)
	if v < 0 || v > 0xFF {
		r.L.ArgError(n, "byte out of range")
	}
	return byte(v)
}

func (r *luaRoutine) byteOp(op func(byte)) lua.LGFunction {
	return func(L *lua.LState) int {
		v := r.checkByte(1)
		r.guard(func() { op(v) })
		return 0
	}
}

func (r *luaRoutine) voidOp(op func()) lua.LGFunction {
	return func(L *lua.LState) int {
		r.guard(op)
		return 0
	}
}

// guard runs an assembler call. Assembler faults unwind as panics carrying
// an error; they are kept so the routine can return the Go error
// once the interpreter has unwound, then re-raised as a Lua error.
func (r *luaRoutine) guard(op func()) {
	var fault error
	func() {
		defer func() {
			if p := recover(); p != nil {
				e, ok := p.(error)
				if !ok {
					panic(p)
				}
				fault = e
			}
		}()
		op()
	}()
	if fault != nil {
		if r.fault == nil {
			r.fault = fault
		}
		r.L.RaiseError("%v", fault)
	}
}
