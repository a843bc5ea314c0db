// hybrid_image.go - Program image shared between native logic and the CPU

package main

import (
	"golang.org/x/xerrors"
)

// ProgramImage is the 4KB cartridge window the CPU fetches from. It is also
// the buffer the micro-assembler appends to, so every append is bounded by
// the reserved tail holding the reset vector and the overblank sentinel.
type ProgramImage struct {
	mem    [HYBRID_IMAGE_SIZE]byte
	cursor uint16
}

// NewProgramImage returns a zeroed image with the reset vector pointing at
// the image base.
func NewProgramImage() *ProgramImage {
	p := &ProgramImage{}
	p.writeResetVector()
	return p
}

func (p *ProgramImage) writeResetVector() {
	p.mem[HYBRID_RESET_VECTOR] = byte(HYBRID_BASE_ADDR & 0xFF)
	p.mem[HYBRID_RESET_VECTOR+1] = byte(HYBRID_BASE_ADDR >> 8)
}

// Cursor returns the next offset the assembler will write to.
func (p *ProgramImage) Cursor() uint16 { return p.cursor }

// Rewind moves the cursor back to the image base.
func (p *ProgramImage) Rewind() { p.cursor = 0 }

// Bytes returns the live image. Callers must not hold on to it across a
// hand-off.
func (p *ProgramImage) Bytes() []byte { return p.mem[:] }

// At reads one byte at an image offset.
func (p *ProgramImage) At(offset uint16) byte {
	return p.mem[offset&HYBRID_OFFSET_MASK]
}

// Set writes one byte at an image offset, bypassing the cursor.
func (p *ProgramImage) Set(offset uint16, value byte) {
	p.mem[offset&HYBRID_OFFSET_MASK] = value
}

// emit appends b at the cursor. Instructions that do not end a block must
// leave HYBRID_JMP_RESERVE bytes free so the block can always be closed.
// It panics with ErrImageOverflow rather than spill into the reserved tail.
func (p *ProgramImage) emit(closing bool, b ...byte) {
	end := p.reserve(closing, len(b))
	copy(p.mem[p.cursor:end], b)
	p.cursor = uint16(end)
}

// fill appends n copies of op in place. n is checked before anything is
// written.
func (p *ProgramImage) fill(op byte, n int) {
	end := p.reserve(false, n)
	for i := uint32(p.cursor); i < end; i++ {
		p.mem[i] = op
	}
	p.cursor = uint16(end)
}

// reserve returns the end offset of an n-byte append at the cursor.
func (p *ProgramImage) reserve(closing bool, n int) uint32 {
	limit := uint32(HYBRID_CODE_LIMIT)
	if !closing {
		limit -= HYBRID_JMP_RESERVE
	}
	if n < 0 || n > int(limit)-int(p.cursor) {
		panic(xerrors.Errorf("append %d bytes at $%03X (limit $%03X): %w",
			n, p.cursor, limit, ErrImageOverflow))
	}
	return uint32(p.cursor) + uint32(n)
}

// restore replaces the image contents and cursor from a snapshot.
func (p *ProgramImage) restore(mem []byte, cursor uint16) error {
	if len(mem) != HYBRID_IMAGE_SIZE {
		return xerrors.Errorf("image is %d bytes, want %d: %w", len(mem), HYBRID_IMAGE_SIZE, ErrBadSnapshot)
	}
	if cursor > HYBRID_CODE_LIMIT {
		return xerrors.Errorf("cursor $%03X past code limit: %w", cursor, ErrBadSnapshot)
	}
	copy(p.mem[:], mem)
	p.cursor = cursor
	return nil
}
