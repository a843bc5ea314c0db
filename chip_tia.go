// chip_tia.go - TIA register model for the hybrid console

package main

// ChipDevice is a memory-mapped peripheral the cartridge delegates to.
type ChipDevice interface {
	Peek(addr uint16) byte
	Poke(addr uint16, value byte)
}

const (
	// TIA write registers
	TIA_VSYNC  = 0x00
	TIA_VBLANK = 0x01
	TIA_WSYNC  = 0x02
	TIA_RSYNC  = 0x03
	TIA_COLUP0 = 0x06
	TIA_COLUP1 = 0x07
	TIA_COLUPF = 0x08
	TIA_COLUBK = 0x09
	TIA_CTRLPF = 0x0A
	TIA_PF0    = 0x0D
	TIA_PF1    = 0x0E
	TIA_PF2    = 0x0F
	TIA_AUDC0  = 0x15
	TIA_AUDV0  = 0x19
	TIA_HMOVE  = 0x2A

	// TIA read registers
	TIA_INPT4 = 0x0C
	TIA_INPT5 = 0x0D

	TIA_WRITE_MASK = 0x3F
	TIA_READ_MASK  = 0x0F
	TIA_REGS       = 0x40

	CYCLES_PER_LINE = 76
	LINES_PER_FRAME = 262 // NTSC
)

// TIA keeps the write registers and beam timing. It renders nothing; the
// background colour written on each scanline is recorded instead, which is
// enough to observe what native logic made the CPU do.
type TIA struct {
	regs [TIA_REGS]byte

	lineCycle int // CPU cycles into the current scanline
	scanline  int
	frame     uint64
	wsync     bool
	vsyncOn   bool

	background [LINES_PER_FRAME]byte
	lastFrame  [LINES_PER_FRAME]byte
	writes     uint64
}

func NewTIA() *TIA {
	return &TIA{}
}

func (t *TIA) Reset() {
	*t = TIA{}
}

// Peek reads the collision and input latches. No collisions are detected;
// the fire buttons read as released.
func (t *TIA) Peek(addr uint16) byte {
	switch addr & TIA_READ_MASK {
	case TIA_INPT4, TIA_INPT5:
		return 0x80
	}
	return 0x00
}

func (t *TIA) Poke(addr uint16, value byte) {
	reg := addr & TIA_WRITE_MASK
	t.regs[reg] = value
	t.writes++

	switch reg {
	case TIA_VSYNC:
		on := value&0x02 != 0
		if on && !t.vsyncOn {
			t.newFrame()
		}
		t.vsyncOn = on
	case TIA_WSYNC:
		t.wsync = true
	case TIA_RSYNC:
		t.lineCycle = 0
	case TIA_COLUBK:
		if t.scanline < LINES_PER_FRAME {
			t.background[t.scanline] = value
		}
	}
}

// Tick advances the beam by CPU cycles.
func (t *TIA) Tick(cycles int) {
	t.lineCycle += cycles
	for t.lineCycle >= CYCLES_PER_LINE {
		t.lineCycle -= CYCLES_PER_LINE
		t.scanline++
		if t.scanline < LINES_PER_FRAME {
			// background colour carries over to the next line
			t.background[t.scanline] = t.regs[TIA_COLUBK]
		}
	}
}

// TakeWSync clears a pending WSYNC strobe and returns the cycles the CPU
// is held until the start of the next scanline, or 0.
func (t *TIA) TakeWSync() int {
	if !t.wsync {
		return 0
	}
	t.wsync = false
	if t.lineCycle == 0 {
		return 0
	}
	return CYCLES_PER_LINE - t.lineCycle
}

func (t *TIA) newFrame() {
	t.lastFrame = t.background
	t.background = [LINES_PER_FRAME]byte{}
	t.scanline = 0
	t.frame++
}

// Register returns the last value written to a TIA register.
func (t *TIA) Register(reg uint16) byte { return t.regs[reg&TIA_WRITE_MASK] }

// Scanline returns the current beam line.
func (t *TIA) Scanline() int { return t.scanline }

// Frame returns the number of VSYNC pulses seen.
func (t *TIA) Frame() uint64 { return t.frame }

// LastFrame returns the per-scanline background colours of the previous
// complete frame.
func (t *TIA) LastFrame() []byte { return t.lastFrame[:] }

// Writes returns the number of register writes.
func (t *TIA) Writes() uint64 { return t.writes }
