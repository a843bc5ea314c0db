// cpu_6507.go - 6507 CPU core driving the hybrid cartridge

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

/*
cpu_6507.go - Table-driven 6507 CPU core

The 6507 is a 6502 in a 28-pin package: 13 address lines, no IRQ and no NMI.
Decoding goes through the shared opcode table (cpu_6507_opcodes.go); the
addressing mode resolves the effective address and the mnemonic selects the
operation. Cycle counts are the documented base counts plus page-cross and
branch penalties. Undocumented opcodes jam the CPU.

The core is driven one instruction at a time by the console. It does not
block and holds no locks; the console is its only caller.
*/

package main

import "golang.org/x/xerrors"

const (
	STACK_BASE   = 0x0100
	RESET_VECTOR = 0xFFFC
	IRQ_VECTOR   = 0xFFFE // BRK only on the 6507
)

const (
	// Status Register Flags

	CARRY_FLAG     = 0x01
	ZERO_FLAG      = 0x02
	INTERRUPT_FLAG = 0x04
	DECIMAL_FLAG   = 0x08
	BREAK_FLAG     = 0x10
	UNUSED_FLAG    = 0x20
	OVERFLOW_FLAG  = 0x40
	NEGATIVE_FLAG  = 0x80
)

var nzTable [256]byte

func init() {
	for i := 0; i < 256; i++ {
		if i == 0 {
			nzTable[i] |= ZERO_FLAG
		}
		if i&0x80 != 0 {
			nzTable[i] |= NEGATIVE_FLAG
		}
	}
}

// Bus6507 is the memory interface the core fetches and stores through.
// Implementations see full 16-bit addresses and mask them to 13 bits.
type Bus6507 interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// CPU_6507 is the emulation context of the hybrid bridge.
type CPU_6507 struct {
	PC uint16
	SP byte
	A  byte
	X  byte
	Y  byte
	SR byte

	Cycles           uint64
	InstructionCount uint64

	jammed bool
	jamPC  uint16
	jamOp  byte
	memory Bus6507
}

// NewCPU_6507 creates a CPU attached to bus. Call Reset before stepping.
func NewCPU_6507(bus Bus6507) *CPU_6507 {
	return &CPU_6507{
		memory: bus,
		SP:     0xFF,
		SR:     UNUSED_FLAG,
	}
}

func (cpu_6507 *CPU_6507) readByte(addr uint16) byte {
	return cpu_6507.memory.Read(addr)
}

func (cpu_6507 *CPU_6507) writeByte(addr uint16, value byte) {
	cpu_6507.memory.Write(addr, value)
}

func (cpu_6507 *CPU_6507) updateNZ(value byte) {
	cpu_6507.SR = (cpu_6507.SR &^ (ZERO_FLAG | NEGATIVE_FLAG)) | nzTable[value]
}

func (cpu_6507 *CPU_6507) setFlag(flag byte, value bool) {
	if value {
		cpu_6507.SR |= flag
	} else {
		cpu_6507.SR &^= flag
	}
}

func (cpu_6507 *CPU_6507) getFlag(flag byte) bool {
	return (cpu_6507.SR & flag) != 0
}

func (cpu_6507 *CPU_6507) read16(addr uint16) uint16 {
	lo := uint16(cpu_6507.readByte(addr))
	hi := uint16(cpu_6507.readByte(addr + 1))
	return (hi << 8) | lo
}

func (cpu_6507 *CPU_6507) push(value byte) {
	cpu_6507.writeByte(STACK_BASE|uint16(cpu_6507.SP), value)
	cpu_6507.SP--
}

func (cpu_6507 *CPU_6507) push16(value uint16) {
	cpu_6507.push(byte(value >> 8))
	cpu_6507.push(byte(value & 0xFF))
}

func (cpu_6507 *CPU_6507) pop() byte {
	cpu_6507.SP++
	return cpu_6507.readByte(STACK_BASE | uint16(cpu_6507.SP))
}

func (cpu_6507 *CPU_6507) pop16() uint16 {
	lo := uint16(cpu_6507.pop())
	hi := uint16(cpu_6507.pop())
	return (hi << 8) | lo
}

// rmw performs read-modify-write with the spurious write of the unmodified
// value. TIA strobes such as WSYNC see both writes, as on hardware.
func (cpu_6507 *CPU_6507) rmw(addr uint16, operation func(byte) byte) byte {
	value := cpu_6507.readByte(addr)
	cpu_6507.writeByte(addr, value)
	result := operation(value)
	cpu_6507.writeByte(addr, result)
	return result
}

// effectiveAddress resolves the operand of mode and advances PC past it.
// crossed is set when an indexed address lands on another page.
func (cpu_6507 *CPU_6507) effectiveAddress(mode uint8) (addr uint16, crossed bool) {
	switch mode {
	case amImm:
		addr = cpu_6507.PC
		cpu_6507.PC++
	case amZp:
		addr = uint16(cpu_6507.readByte(cpu_6507.PC))
		cpu_6507.PC++
	case amZpX:
		addr = (uint16(cpu_6507.readByte(cpu_6507.PC)) + uint16(cpu_6507.X)) & 0xFF
		cpu_6507.PC++
	case amZpY:
		addr = (uint16(cpu_6507.readByte(cpu_6507.PC)) + uint16(cpu_6507.Y)) & 0xFF
		cpu_6507.PC++
	case amAbs:
		addr = cpu_6507.read16(cpu_6507.PC)
		cpu_6507.PC += 2
	case amAbsX, amAbsY:
		base := cpu_6507.read16(cpu_6507.PC)
		cpu_6507.PC += 2
		if mode == amAbsX {
			addr = base + uint16(cpu_6507.X)
		} else {
			addr = base + uint16(cpu_6507.Y)
		}
		crossed = (base & 0xFF00) != (addr & 0xFF00)
	case amInd:
		// JMP ($xxFF) takes the high byte from $xx00
		ptr := cpu_6507.read16(cpu_6507.PC)
		cpu_6507.PC += 2
		lo := uint16(cpu_6507.readByte(ptr))
		hi := uint16(cpu_6507.readByte((ptr & 0xFF00) | ((ptr + 1) & 0x00FF)))
		addr = hi<<8 | lo
	case amIndX:
		ptr := (uint16(cpu_6507.readByte(cpu_6507.PC)) + uint16(cpu_6507.X)) & 0xFF
		cpu_6507.PC++
		addr = uint16(cpu_6507.readByte(ptr)) | uint16(cpu_6507.readByte((ptr+1)&0xFF))<<8
	case amIndY:
		ptr := uint16(cpu_6507.readByte(cpu_6507.PC))
		cpu_6507.PC++
		base := uint16(cpu_6507.readByte(ptr)) | uint16(cpu_6507.readByte((ptr+1)&0xFF))<<8
		addr = base + uint16(cpu_6507.Y)
		crossed = (base & 0xFF00) != (addr & 0xFF00)
	}
	return addr, crossed
}

func (cpu_6507 *CPU_6507) adc(value byte) {
	/*
	   adc performs addition with carry.

	   Operation Modes:
	   - Binary: Standard two's complement
	   - Decimal: BCD arithmetic if decimal flag set
	*/

	if cpu_6507.SR&DECIMAL_FLAG != 0 {
		a := uint16(cpu_6507.A)
		b := uint16(value)
		carry := btou16(cpu_6507.SR&CARRY_FLAG != 0)

		loSum := (a & 0x0F) + (b & 0x0F) + carry
		carry = 0
		if loSum > 9 {
			loSum -= 10
			carry = 1
		}
		hiSum := (a >> 4 & 0x0F) + (b >> 4 & 0x0F) + carry
		carry = 0
		if hiSum > 9 {
			hiSum -= 10
			carry = 1
		}

		result := byte(hiSum<<4 | loSum)
		old := cpu_6507.A
		cpu_6507.setFlag(CARRY_FLAG, carry == 1)
		cpu_6507.updateNZ(result)
		cpu_6507.A = result
		cpu_6507.setFlag(OVERFLOW_FLAG, (old^value)&0x80 == 0 && (old^result)&0x80 != 0)
		return
	}

	temp := uint16(cpu_6507.A) + uint16(value) + btou16(cpu_6507.SR&CARRY_FLAG != 0)
	result := byte(temp)
	cpu_6507.setFlag(CARRY_FLAG, temp > 0xFF)
	cpu_6507.setFlag(OVERFLOW_FLAG, (cpu_6507.A^value)&0x80 == 0 && (cpu_6507.A^result)&0x80 != 0)
	cpu_6507.updateNZ(result)
	cpu_6507.A = result
}

func (cpu_6507 *CPU_6507) sbc(value byte) {
	if cpu_6507.SR&DECIMAL_FLAG != 0 {
		a := uint16(cpu_6507.A)
		b := uint16(value)
		borrow := btou16(cpu_6507.SR&CARRY_FLAG == 0)

		loDiff := (a & 0x0F) - (b & 0x0F) - borrow
		borrow = 0
		if loDiff&0x10 != 0 {
			loDiff = (loDiff - 6) & 0x0F
			borrow = 1
		}
		hiDiff := (a >> 4 & 0x0F) - (b >> 4 & 0x0F) - borrow
		borrow = 0
		if hiDiff&0x10 != 0 {
			hiDiff = (hiDiff - 6) & 0x0F
			borrow = 1
		}

		result := byte(hiDiff<<4 | loDiff)
		old := cpu_6507.A
		cpu_6507.setFlag(CARRY_FLAG, borrow == 0)
		cpu_6507.updateNZ(result)
		cpu_6507.A = result
		cpu_6507.setFlag(OVERFLOW_FLAG, (old^value)&0x80 != 0 && (old^result)&0x80 != 0)
		return
	}

	temp := uint16(cpu_6507.A) - uint16(value) - btou16(cpu_6507.SR&CARRY_FLAG == 0)
	result := byte(temp)
	cpu_6507.setFlag(CARRY_FLAG, temp < 0x100)
	cpu_6507.setFlag(OVERFLOW_FLAG, (cpu_6507.A^value)&0x80 != 0 && (cpu_6507.A^result)&0x80 != 0)
	cpu_6507.updateNZ(result)
	cpu_6507.A = result
}

func (cpu_6507 *CPU_6507) compare(reg, value byte) {
	cpu_6507.setFlag(CARRY_FLAG, reg >= value)
	cpu_6507.updateNZ(reg - value)
}

func (cpu_6507 *CPU_6507) branch(condition bool) {
	offset := int8(cpu_6507.readByte(cpu_6507.PC))
	cpu_6507.PC++
	if condition {
		cpu_6507.Cycles++
		oldPC := cpu_6507.PC
		cpu_6507.PC = uint16(int32(cpu_6507.PC) + int32(offset))
		if (oldPC & 0xFF00) != (cpu_6507.PC & 0xFF00) {
			cpu_6507.Cycles++
		}
	}
}

func (cpu_6507 *CPU_6507) shift(name string, mode uint8, addr uint16) {
	op := func(value byte) byte {
		carryIn := btou8(cpu_6507.SR&CARRY_FLAG != 0)
		var result byte
		switch name {
		case "ASL":
			cpu_6507.setFlag(CARRY_FLAG, value&0x80 != 0)
			result = value << 1
		case "LSR":
			cpu_6507.setFlag(CARRY_FLAG, value&0x01 != 0)
			result = value >> 1
		case "ROL":
			cpu_6507.setFlag(CARRY_FLAG, value&0x80 != 0)
			result = value<<1 | carryIn
		case "ROR":
			cpu_6507.setFlag(CARRY_FLAG, value&0x01 != 0)
			result = value>>1 | carryIn<<7
		}
		cpu_6507.updateNZ(result)
		return result
	}
	if mode == amAcc {
		cpu_6507.A = op(cpu_6507.A)
		return
	}
	cpu_6507.rmw(addr, op)
}

// Reset loads PC from the reset vector and clears the registers.
func (cpu_6507 *CPU_6507) Reset() {
	/*
	   Reset initialises the CPU to power-up state.

	   Reset Process:
	   1. Clears A, X, Y
	   2. Sets SP to 0xFF and SR to unused|interrupt-disable
	   3. Loads PC from the reset vector
	   4. Clears counters and the jam latch
	*/

	cpu_6507.A = 0
	cpu_6507.X = 0
	cpu_6507.Y = 0
	cpu_6507.SP = 0xFF
	cpu_6507.SR = UNUSED_FLAG | INTERRUPT_FLAG
	cpu_6507.PC = cpu_6507.read16(RESET_VECTOR)
	cpu_6507.Cycles = 0
	cpu_6507.InstructionCount = 0
	cpu_6507.jammed = false
}

// Jammed reports whether the CPU fetched an undocumented opcode.
func (cpu_6507 *CPU_6507) Jammed() bool { return cpu_6507.jammed }

// JamError describes the jam, or returns nil.
func (cpu_6507 *CPU_6507) JamError() error {
	if !cpu_6507.jammed {
		return nil
	}
	return xerrors.Errorf("6507 jammed on opcode $%02X at $%04X", cpu_6507.jamOp, cpu_6507.jamPC)
}

// Step executes a single instruction and returns the cycles it consumed.
// A jammed CPU consumes nothing.
func (cpu_6507 *CPU_6507) Step() int {
	if cpu_6507.jammed {
		return 0
	}
	start := cpu_6507.Cycles
	opPC := cpu_6507.PC
	opcode := cpu_6507.readByte(cpu_6507.PC)
	cpu_6507.PC++

	info := &opcodes6507[opcode]
	if info.name == "" {
		cpu_6507.jammed = true
		cpu_6507.jamPC = opPC
		cpu_6507.jamOp = opcode
		return 0
	}
	cpu_6507.Cycles += uint64(info.cycles)

	var addr uint16
	switch info.mode {
	case amImp, amAcc, amRel:
	default:
		var crossed bool
		addr, crossed = cpu_6507.effectiveAddress(info.mode)
		if crossed && pageCrossPenalty(info.name) {
			cpu_6507.Cycles++
		}
	}

	cpu_6507.execute(info, addr)
	cpu_6507.InstructionCount++
	return int(cpu_6507.Cycles - start)
}

func (cpu_6507 *CPU_6507) execute(info *opInfo, addr uint16) {
	switch info.name {
	// Load/Store
	case "LDA":
		cpu_6507.A = cpu_6507.readByte(addr)
		cpu_6507.updateNZ(cpu_6507.A)
	case "LDX":
		cpu_6507.X = cpu_6507.readByte(addr)
		cpu_6507.updateNZ(cpu_6507.X)
	case "LDY":
		cpu_6507.Y = cpu_6507.readByte(addr)
		cpu_6507.updateNZ(cpu_6507.Y)
	case "STA":
		cpu_6507.writeByte(addr, cpu_6507.A)
	case "STX":
		cpu_6507.writeByte(addr, cpu_6507.X)
	case "STY":
		cpu_6507.writeByte(addr, cpu_6507.Y)

	// Arithmetic and logic
	case "ADC":
		cpu_6507.adc(cpu_6507.readByte(addr))
	case "SBC":
		cpu_6507.sbc(cpu_6507.readByte(addr))
	case "AND":
		cpu_6507.A &= cpu_6507.readByte(addr)
		cpu_6507.updateNZ(cpu_6507.A)
	case "ORA":
		cpu_6507.A |= cpu_6507.readByte(addr)
		cpu_6507.updateNZ(cpu_6507.A)
	case "EOR":
		cpu_6507.A ^= cpu_6507.readByte(addr)
		cpu_6507.updateNZ(cpu_6507.A)
	case "CMP":
		cpu_6507.compare(cpu_6507.A, cpu_6507.readByte(addr))
	case "CPX":
		cpu_6507.compare(cpu_6507.X, cpu_6507.readByte(addr))
	case "CPY":
		cpu_6507.compare(cpu_6507.Y, cpu_6507.readByte(addr))
	case "BIT":
		value := cpu_6507.readByte(addr)
		cpu_6507.setFlag(ZERO_FLAG, cpu_6507.A&value == 0)
		cpu_6507.setFlag(NEGATIVE_FLAG, value&0x80 != 0)
		cpu_6507.setFlag(OVERFLOW_FLAG, value&0x40 != 0)

	// Shifts and memory increments
	case "ASL", "LSR", "ROL", "ROR":
		cpu_6507.shift(info.name, info.mode, addr)
	case "INC":
		cpu_6507.rmw(addr, func(v byte) byte { v++; cpu_6507.updateNZ(v); return v })
	case "DEC":
		cpu_6507.rmw(addr, func(v byte) byte { v--; cpu_6507.updateNZ(v); return v })

	// Register operations
	case "INX":
		cpu_6507.X++
		cpu_6507.updateNZ(cpu_6507.X)
	case "INY":
		cpu_6507.Y++
		cpu_6507.updateNZ(cpu_6507.Y)
	case "DEX":
		cpu_6507.X--
		cpu_6507.updateNZ(cpu_6507.X)
	case "DEY":
		cpu_6507.Y--
		cpu_6507.updateNZ(cpu_6507.Y)
	case "TAX":
		cpu_6507.X = cpu_6507.A
		cpu_6507.updateNZ(cpu_6507.X)
	case "TAY":
		cpu_6507.Y = cpu_6507.A
		cpu_6507.updateNZ(cpu_6507.Y)
	case "TXA":
		cpu_6507.A = cpu_6507.X
		cpu_6507.updateNZ(cpu_6507.A)
	case "TYA":
		cpu_6507.A = cpu_6507.Y
		cpu_6507.updateNZ(cpu_6507.A)
	case "TSX":
		cpu_6507.X = cpu_6507.SP
		cpu_6507.updateNZ(cpu_6507.X)
	case "TXS":
		cpu_6507.SP = cpu_6507.X

	// Flags
	case "CLC":
		cpu_6507.setFlag(CARRY_FLAG, false)
	case "SEC":
		cpu_6507.setFlag(CARRY_FLAG, true)
	case "CLI":
		cpu_6507.setFlag(INTERRUPT_FLAG, false)
	case "SEI":
		cpu_6507.setFlag(INTERRUPT_FLAG, true)
	case "CLV":
		cpu_6507.setFlag(OVERFLOW_FLAG, false)
	case "CLD":
		cpu_6507.setFlag(DECIMAL_FLAG, false)
	case "SED":
		cpu_6507.setFlag(DECIMAL_FLAG, true)

	// Stack
	case "PHA":
		cpu_6507.push(cpu_6507.A)
	case "PLA":
		cpu_6507.A = cpu_6507.pop()
		cpu_6507.updateNZ(cpu_6507.A)
	case "PHP":
		cpu_6507.push(cpu_6507.SR | BREAK_FLAG | UNUSED_FLAG)
	case "PLP":
		cpu_6507.SR = cpu_6507.pop()&^BREAK_FLAG | UNUSED_FLAG

	// Control flow
	case "JMP":
		cpu_6507.PC = addr
	case "JSR":
		cpu_6507.push16(cpu_6507.PC - 1)
		cpu_6507.PC = addr
	case "RTS":
		cpu_6507.PC = cpu_6507.pop16() + 1
	case "RTI":
		cpu_6507.SR = cpu_6507.pop()&^BREAK_FLAG | UNUSED_FLAG
		cpu_6507.PC = cpu_6507.pop16()
	case "BRK":
		cpu_6507.PC++
		cpu_6507.push16(cpu_6507.PC)
		cpu_6507.push(cpu_6507.SR | BREAK_FLAG | UNUSED_FLAG)
		cpu_6507.setFlag(INTERRUPT_FLAG, true)
		cpu_6507.PC = cpu_6507.read16(IRQ_VECTOR)
	case "NOP":

	// Branches
	case "BPL":
		cpu_6507.branch(!cpu_6507.getFlag(NEGATIVE_FLAG))
	case "BMI":
		cpu_6507.branch(cpu_6507.getFlag(NEGATIVE_FLAG))
	case "BVC":
		cpu_6507.branch(!cpu_6507.getFlag(OVERFLOW_FLAG))
	case "BVS":
		cpu_6507.branch(cpu_6507.getFlag(OVERFLOW_FLAG))
	case "BCC":
		cpu_6507.branch(!cpu_6507.getFlag(CARRY_FLAG))
	case "BCS":
		cpu_6507.branch(cpu_6507.getFlag(CARRY_FLAG))
	case "BNE":
		cpu_6507.branch(!cpu_6507.getFlag(ZERO_FLAG))
	case "BEQ":
		cpu_6507.branch(cpu_6507.getFlag(ZERO_FLAG))
	}
}

func btou8(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func btou16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
