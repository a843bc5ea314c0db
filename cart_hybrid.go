// cart_hybrid.go - Hybrid cartridge: address decode for the 6507 bus

package main

import "context"

const CART_HYBRID_NAME = "HYBRID"

// CartHybrid owns the whole 13-bit bus. TIA and RIOT accesses are forwarded
// using the console's partial decode; everything with A12 set, plus the
// mirrors the decode leaves over, reads from the program image.
type CartHybrid struct {
	bridge *Bridge
	tia    ChipDevice
	riot   ChipDevice
}

// NewCartHybrid attaches a bridge to the two peripheral chips.
func NewCartHybrid(bridge *Bridge, tia, riot ChipDevice) *CartHybrid {
	return &CartHybrid{bridge: bridge, tia: tia, riot: riot}
}

// Name returns the cartridge type tag.
func (c *CartHybrid) Name() string { return CART_HYBRID_NAME }

// Bridge returns the execution bridge behind the cartridge.
func (c *CartHybrid) Bridge() *Bridge { return c.bridge }

// Reset restarts the native logic task. The CPU must be reset afterwards so
// it fetches the rewritten reset vector.
func (c *CartHybrid) Reset(ctx context.Context) error {
	return c.bridge.Reset(ctx)
}

// Peek decodes a CPU load.
func (c *CartHybrid) Peek(addr uint16) byte {
	addr &= HYBRID_ADDR_MASK
	switch addr & DECODE_MASK {
	case DECODE_TIA:
		return c.tia.Peek(addr)
	case DECODE_RIOT:
		return c.riot.Peek(addr)
	}
	return c.bridge.image.At(addr & HYBRID_OFFSET_MASK)
}

// Poke decodes a CPU store. It reports whether a peripheral took the
// store; the image is ROM from the CPU's side, so stores that decode to it
// are dropped and report false.
func (c *CartHybrid) Poke(addr uint16, value byte) bool {
	addr &= HYBRID_ADDR_MASK
	switch addr & DECODE_MASK {
	case DECODE_TIA:
		c.tia.Poke(addr, value)
		return true
	case DECODE_RIOT:
		c.riot.Poke(addr, value)
		return true
	}
	return false
}

// Patch changes one image byte out of band, for debuggers and save-state
// fixups. Only addresses in the cartridge window ($1000-$1FFF and mirrors)
// are accepted.
func (c *CartHybrid) Patch(addr uint16, value byte) bool {
	if (addr & DECODE_CART_MASK) != DECODE_CART_MASK {
		return false
	}
	c.bridge.image.Set(addr&HYBRID_OFFSET_MASK, value)
	return true
}

// Image returns the 4096-byte program image.
func (c *CartHybrid) Image() []byte { return c.bridge.image.Bytes() }
