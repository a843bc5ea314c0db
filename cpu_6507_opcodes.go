// cpu_6507_opcodes.go - Opcode table shared by the 6507 core and the disassembler

package main

type opInfo struct {
	name   string
	mode   uint8 // addressing mode
	size   uint8 // instruction size in bytes
	cycles uint8 // base cycle count
}

const (
	amImp  = iota // Implied
	amAcc         // Accumulator
	amImm         // #nn
	amZp          // nn
	amZpX         // nn,X
	amZpY         // nn,Y
	amAbs         // nnnn
	amAbsX        // nnnn,X
	amAbsY        // nnnn,Y
	amInd         // (nnnn)
	amIndX        // (nn,X)
	amIndY        // (nn),Y
	amRel         // relative
)

// Official NMOS 6502 opcodes. Empty entries jam the CPU.
var opcodes6507 = [256]opInfo{
	// 0x00-0x0F
	0x00: {"BRK", amImp, 1, 7}, 0x01: {"ORA", amIndX, 2, 6},
	0x05: {"ORA", amZp, 2, 3}, 0x06: {"ASL", amZp, 2, 5},
	0x08: {"PHP", amImp, 1, 3}, 0x09: {"ORA", amImm, 2, 2},
	0x0A: {"ASL", amAcc, 1, 2}, 0x0D: {"ORA", amAbs, 3, 4},
	0x0E: {"ASL", amAbs, 3, 6},
	// 0x10-0x1F
	0x10: {"BPL", amRel, 2, 2}, 0x11: {"ORA", amIndY, 2, 5},
	0x15: {"ORA", amZpX, 2, 4}, 0x16: {"ASL", amZpX, 2, 6},
	0x18: {"CLC", amImp, 1, 2}, 0x19: {"ORA", amAbsY, 3, 4},
	0x1D: {"ORA", amAbsX, 3, 4}, 0x1E: {"ASL", amAbsX, 3, 7},
	// 0x20-0x2F
	0x20: {"JSR", amAbs, 3, 6}, 0x21: {"AND", amIndX, 2, 6},
	0x24: {"BIT", amZp, 2, 3}, 0x25: {"AND", amZp, 2, 3},
	0x26: {"ROL", amZp, 2, 5}, 0x28: {"PLP", amImp, 1, 4},
	0x29: {"AND", amImm, 2, 2}, 0x2A: {"ROL", amAcc, 1, 2},
	0x2C: {"BIT", amAbs, 3, 4}, 0x2D: {"AND", amAbs, 3, 4},
	0x2E: {"ROL", amAbs, 3, 6},
	// 0x30-0x3F
	0x30: {"BMI", amRel, 2, 2}, 0x31: {"AND", amIndY, 2, 5},
	0x35: {"AND", amZpX, 2, 4}, 0x36: {"ROL", amZpX, 2, 6},
	0x38: {"SEC", amImp, 1, 2}, 0x39: {"AND", amAbsY, 3, 4},
	0x3D: {"AND", amAbsX, 3, 4}, 0x3E: {"ROL", amAbsX, 3, 7},
	// 0x40-0x4F
	0x40: {"RTI", amImp, 1, 6}, 0x41: {"EOR", amIndX, 2, 6},
	0x45: {"EOR", amZp, 2, 3}, 0x46: {"LSR", amZp, 2, 5},
	0x48: {"PHA", amImp, 1, 3}, 0x49: {"EOR", amImm, 2, 2},
	0x4A: {"LSR", amAcc, 1, 2}, 0x4C: {"JMP", amAbs, 3, 3},
	0x4D: {"EOR", amAbs, 3, 4}, 0x4E: {"LSR", amAbs, 3, 6},
	// 0x50-0x5F
	0x50: {"BVC", amRel, 2, 2}, 0x51: {"EOR", amIndY, 2, 5},
	0x55: {"EOR", amZpX, 2, 4}, 0x56: {"LSR", amZpX, 2, 6},
	0x58: {"CLI", amImp, 1, 2}, 0x59: {"EOR", amAbsY, 3, 4},
	0x5D: {"EOR", amAbsX, 3, 4}, 0x5E: {"LSR", amAbsX, 3, 7},
	// 0x60-0x6F
	0x60: {"RTS", amImp, 1, 6}, 0x61: {"ADC", amIndX, 2, 6},
	0x65: {"ADC", amZp, 2, 3}, 0x66: {"ROR", amZp, 2, 5},
	0x68: {"PLA", amImp, 1, 4}, 0x69: {"ADC", amImm, 2, 2},
	0x6A: {"ROR", amAcc, 1, 2}, 0x6C: {"JMP", amInd, 3, 5},
	0x6D: {"ADC", amAbs, 3, 4}, 0x6E: {"ROR", amAbs, 3, 6},
	// 0x70-0x7F
	0x70: {"BVS", amRel, 2, 2}, 0x71: {"ADC", amIndY, 2, 5},
	0x75: {"ADC", amZpX, 2, 4}, 0x76: {"ROR", amZpX, 2, 6},
	0x78: {"SEI", amImp, 1, 2}, 0x79: {"ADC", amAbsY, 3, 4},
	0x7D: {"ADC", amAbsX, 3, 4}, 0x7E: {"ROR", amAbsX, 3, 7},
	// 0x80-0x8F
	0x81: {"STA", amIndX, 2, 6}, 0x84: {"STY", amZp, 2, 3},
	0x85: {"STA", amZp, 2, 3}, 0x86: {"STX", amZp, 2, 3},
	0x88: {"DEY", amImp, 1, 2}, 0x8A: {"TXA", amImp, 1, 2},
	0x8C: {"STY", amAbs, 3, 4}, 0x8D: {"STA", amAbs, 3, 4},
	0x8E: {"STX", amAbs, 3, 4},
	// 0x90-0x9F
	0x90: {"BCC", amRel, 2, 2}, 0x91: {"STA", amIndY, 2, 6},
	0x94: {"STY", amZpX, 2, 4}, 0x95: {"STA", amZpX, 2, 4},
	0x96: {"STX", amZpY, 2, 4}, 0x98: {"TYA", amImp, 1, 2},
	0x99: {"STA", amAbsY, 3, 5}, 0x9A: {"TXS", amImp, 1, 2},
	0x9D: {"STA", amAbsX, 3, 5},
	// 0xA0-0xAF
	0xA0: {"LDY", amImm, 2, 2}, 0xA1: {"LDA", amIndX, 2, 6},
	0xA2: {"LDX", amImm, 2, 2}, 0xA4: {"LDY", amZp, 2, 3},
	0xA5: {"LDA", amZp, 2, 3}, 0xA6: {"LDX", amZp, 2, 3},
	0xA8: {"TAY", amImp, 1, 2}, 0xA9: {"LDA", amImm, 2, 2},
	0xAA: {"TAX", amImp, 1, 2}, 0xAC: {"LDY", amAbs, 3, 4},
	0xAD: {"LDA", amAbs, 3, 4}, 0xAE: {"LDX", amAbs, 3, 4},
	// 0xB0-0xBF
	0xB0: {"BCS", amRel, 2, 2}, 0xB1: {"LDA", amIndY, 2, 5},
	0xB4: {"LDY", amZpX, 2, 4}, 0xB5: {"LDA", amZpX, 2, 4},
	0xB6: {"LDX", amZpY, 2, 4}, 0xB8: {"CLV", amImp, 1, 2},
	0xB9: {"LDA", amAbsY, 3, 4}, 0xBA: {"TSX", amImp, 1, 2},
	0xBC: {"LDY", amAbsX, 3, 4}, 0xBD: {"LDA", amAbsX, 3, 4},
	0xBE: {"LDX", amAbsY, 3, 4},
	// 0xC0-0xCF
	0xC0: {"CPY", amImm, 2, 2}, 0xC1: {"CMP", amIndX, 2, 6},
	0xC4: {"CPY", amZp, 2, 3}, 0xC5: {"CMP", amZp, 2, 3},
	0xC6: {"DEC", amZp, 2, 5}, 0xC8: {"INY", amImp, 1, 2},
	0xC9: {"CMP", amImm, 2, 2}, 0xCA: {"DEX", amImp, 1, 2},
	0xCC: {"CPY", amAbs, 3, 4}, 0xCD: {"CMP", amAbs, 3, 4},
	0xCE: {"DEC", amAbs, 3, 6},
	// 0xD0-0xDF
	0xD0: {"BNE", amRel, 2, 2}, 0xD1: {"CMP", amIndY, 2, 5},
	0xD5: {"CMP", amZpX, 2, 4}, 0xD6: {"DEC", amZpX, 2, 6},
	0xD8: {"CLD", amImp, 1, 2}, 0xD9: {"CMP", amAbsY, 3, 4},
	0xDD: {"CMP", amAbsX, 3, 4}, 0xDE: {"DEC", amAbsX, 3, 7},
	// 0xE0-0xEF
	0xE0: {"CPX", amImm, 2, 2}, 0xE1: {"SBC", amIndX, 2, 6},
	0xE4: {"CPX", amZp, 2, 3}, 0xE5: {"SBC", amZp, 2, 3},
	0xE6: {"INC", amZp, 2, 5}, 0xE8: {"INX", amImp, 1, 2},
	0xE9: {"SBC", amImm, 2, 2}, 0xEA: {"NOP", amImp, 1, 2},
	0xEC: {"CPX", amAbs, 3, 4}, 0xED: {"SBC", amAbs, 3, 4},
	0xEE: {"INC", amAbs, 3, 6},
	// 0xF0-0xFF
	0xF0: {"BEQ", amRel, 2, 2}, 0xF1: {"SBC", amIndY, 2, 5},
	0xF5: {"SBC", amZpX, 2, 4}, 0xF6: {"INC", amZpX, 2, 6},
	0xF8: {"SED", amImp, 1, 2}, 0xF9: {"SBC", amAbsY, 3, 4},
	0xFD: {"SBC", amAbsX, 3, 4}, 0xFE: {"INC", amAbsX, 3, 7},
}

// pageCrossPenalty reports whether an indexed read costs an extra cycle
// when the effective address crosses a page. Stores and RMW never do.
func pageCrossPenalty(name string) bool {
	switch name {
	case "LDA", "LDX", "LDY", "ORA", "AND", "EOR", "ADC", "SBC", "CMP":
		return true
	}
	return false
}
