// chip_riot.go - 6532 RIOT model: RAM, ports and interval timer

package main

const (
	RIOT_RAM_BASE = 0x0080 // first RAM address in page 0
	RIOT_RAM_SIZE = 0x80
	RIOT_RAM_MASK = 0x7F
	RIOT_IO_BIT   = 0x0200 // A9 selects I/O and timer over RAM

	RIOT_SWCHA  = 0x0280
	RIOT_SWACNT = 0x0281
	RIOT_SWCHB  = 0x0282
	RIOT_SWBCNT = 0x0283
	RIOT_INTIM  = 0x0284
	RIOT_TIMINT = 0x0285
	RIOT_TIM1T  = 0x0294
	RIOT_TIM8T  = 0x0295
	RIOT_TIM64T = 0x0296
	RIOT_T1024T = 0x0297
)

var riotIntervals = [4]int{1, 8, 64, 1024}

// RIOT holds the console's 128 bytes of RAM, which also host the overblank
// trampoline, plus the two ports and the interval timer.
type RIOT struct {
	ram [RIOT_RAM_SIZE]byte

	ports   [4]byte // SWCHA, SWACNT, SWCHB, SWBCNT
	intim   byte
	prescal int // cycles left before the next INTIM decrement
	shift   int // cycles per decrement
	expired bool
}

func NewRIOT() *RIOT {
	r := &RIOT{}
	r.Reset()
	return r
}

func (r *RIOT) Reset() {
	*r = RIOT{}
	r.ports[0] = 0xFF // joysticks centred
	r.ports[2] = 0x0B // colour, both difficulties B, reset/select released
	r.shift = 1024
	r.prescal = 1024
}

func (r *RIOT) Peek(addr uint16) byte {
	if addr&RIOT_IO_BIT == 0 {
		return r.ram[addr&RIOT_RAM_MASK]
	}
	if addr&0x04 == 0 {
		return r.ports[addr&0x03]
	}
	if addr&0x01 == 0 {
		return r.intim
	}
	var flags byte
	if r.expired {
		flags = 0xC0
	}
	return flags
}

func (r *RIOT) Poke(addr uint16, value byte) {
	if addr&RIOT_IO_BIT == 0 {
		r.ram[addr&RIOT_RAM_MASK] = value
		return
	}
	switch {
	case addr&0x14 == 0x14:
		r.shift = riotIntervals[addr&0x03]
		r.prescal = r.shift
		r.intim = value
		r.expired = false
	case addr&0x04 == 0:
		r.ports[addr&0x03] = value
	}
}

// Tick advances the interval timer by CPU cycles. After underflow INTIM
// counts down once per cycle, as on the real chip.
func (r *RIOT) Tick(cycles int) {
	for ; cycles > 0; cycles-- {
		r.prescal--
		if r.prescal > 0 {
			continue
		}
		if r.intim == 0 {
			r.expired = true
			r.shift = 1
		}
		r.intim--
		r.prescal = r.shift
	}
}

// RAM returns the live RAM.
func (r *RIOT) RAM() []byte { return r.ram[:] }
