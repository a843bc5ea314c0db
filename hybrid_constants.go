// hybrid_constants.go - Address map and opcode constants for the hybrid cartridge

package main

const (
	// Program image layout
	HYBRID_IMAGE_SIZE      = 0x1000 // 4KB cartridge window
	HYBRID_BASE_ADDR       = 0x1000 // CPU address of image offset 0, also the sync point
	HYBRID_ADDR_MASK       = 0x1FFF // 6507 has 13 address lines
	HYBRID_OFFSET_MASK     = 0x0FFF
	HYBRID_RESET_VECTOR    = 0x0FFC // image offset of the reset vector (lo, hi)
	HYBRID_OVERBLANK_FLAG  = 0x0FFF // image offset of the overblank sentinel
	HYBRID_CODE_LIMIT      = 0x0FFC // first reserved offset; emission stops here
	HYBRID_JMP_RESERVE     = 3      // room kept free for the block-closing JMP
	HYBRID_OVERBLANK_SET   = 0xFF
	HYBRID_OVERBLANK_CLEAR = 0x00

	// Overblank trampoline lives in RIOT RAM
	OVERBLANK_TRAMPOLINE = 0x0080

	// Open-bus value returned by Read until bus snooping is modelled
	OPEN_BUS = 0xFF
)

const (
	// Partial address decode of the 2600
	DECODE_MASK      = 0x1080
	DECODE_TIA       = 0x0000
	DECODE_RIOT      = 0x0080
	DECODE_CART_MASK = 0x1000
)

const (
	// Encodings emitted by the micro-assembler
	OP_LDA_IMM = 0xA9
	OP_LDX_IMM = 0xA2
	OP_LDY_IMM = 0xA0
	OP_STA_ZP  = 0x85
	OP_STA_ABS = 0x8D
	OP_STX_ZP  = 0x86
	OP_STY_ZP  = 0x84
	OP_TXS     = 0x9A
	OP_NOP     = 0xEA
	OP_JMP_ABS = 0x4C
	OP_LDA_ABS = 0xAD
)
