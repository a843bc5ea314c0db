// debug_disasm_6507.go - 6507 disassembler for block tracing and image dumps

package main

import (
	"fmt"
	"strings"
)

// DisassembledLine is one decoded instruction.
type DisassembledLine struct {
	Address  uint16
	HexBytes string
	Mnemonic string
	Size     int
}

// disassemble6507 decodes code as if it were loaded at base. A truncated
// trailing instruction is shown with its missing operand as '?'.
func disassemble6507(code []byte, base uint16) []DisassembledLine {
	var lines []DisassembledLine
	for pc := 0; pc < len(code); {
		op := code[pc]
		info := opcodes6507[op]
		size := int(info.size)
		if size == 0 {
			size = 1
		}
		if pc+size > len(code) {
			size = len(code) - pc
		}
		data := code[pc : pc+size]
		addr := base + uint16(pc)

		var hexParts []string
		for _, b := range data {
			hexParts = append(hexParts, fmt.Sprintf("%02X", b))
		}

		lines = append(lines, DisassembledLine{
			Address:  addr,
			HexBytes: strings.Join(hexParts, " "),
			Mnemonic: formatOperand(info, data, addr),
			Size:     size,
		})
		pc += size
	}
	return lines
}

func formatOperand(info opInfo, data []byte, addr uint16) string {
	if info.name == "" {
		return fmt.Sprintf("db $%02X", data[0])
	}
	if int(info.size) > len(data) {
		return info.name + " ?"
	}

	var nn uint16
	if len(data) == 3 {
		nn = uint16(data[1]) | uint16(data[2])<<8
	}
	switch info.mode {
	case amImp:
		return info.name
	case amAcc:
		return info.name + " A"
	case amImm:
		return fmt.Sprintf("%s #$%02X", info.name, data[1])
	case amZp:
		return fmt.Sprintf("%s $%02X", info.name, data[1])
	case amZpX:
		return fmt.Sprintf("%s $%02X,X", info.name, data[1])
	case amZpY:
		return fmt.Sprintf("%s $%02X,Y", info.name, data[1])
	case amAbs:
		return fmt.Sprintf("%s $%04X", info.name, nn)
	case amAbsX:
		return fmt.Sprintf("%s $%04X,X", info.name, nn)
	case amAbsY:
		return fmt.Sprintf("%s $%04X,Y", info.name, nn)
	case amInd:
		return fmt.Sprintf("%s ($%04X)", info.name, nn)
	case amIndX:
		return fmt.Sprintf("%s ($%02X,X)", info.name, data[1])
	case amIndY:
		return fmt.Sprintf("%s ($%02X),Y", info.name, data[1])
	case amRel:
		target := addr + 2 + uint16(int8(data[1]))
		return fmt.Sprintf("%s $%04X", info.name, target)
	}
	return info.name
}
