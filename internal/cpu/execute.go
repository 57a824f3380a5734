/*
 * rv32sim - Instruction execution
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package cpu

import (
	"fmt"
	"math"

	"github.com/hartsim/rv32sim/internal/bus"
	"github.com/hartsim/rv32sim/internal/machine"
	"github.com/hartsim/rv32sim/internal/trap"
)

// Step fetches the instruction word ci at m.PC through b, decodes and
// executes it, mutating m and b as needed, and returns the "details"
// portion of the trace line (mnemonic, operands and effect, without
// the leading address).
//
// If the fetch, ci or one of its operands raises a trap, Step leaves
// m.TrapPending set and returns an unspecified string that the caller
// must not use; the caller is expected to check m.TrapPending first
// and, if set, emit a trap line instead of an instruction line.
func Step(m *machine.State, b *bus.Bus) string {
	pc := m.PC
	ci := b.Fetch(pc)
	if m.TrapPending {
		return ""
	}

	f := decode(ci)
	var details string

	switch f.opcode {
	case opLUI:
		details = execLUI(m, f)
	case opAUIPC:
		details = execAUIPC(m, f, pc)
	case opJAL:
		details = execJAL(m, f, pc)
	case opJALR:
		details = execJALR(m, f, pc)
	case opBRANCH:
		details = execBranch(m, f, pc, ci)
	case opLOAD:
		details = execLoad(m, b, f, pc, ci)
	case opSTORE:
		details = execStore(m, b, f, pc, ci)
	case opOPIMM:
		details = execOpImm(m, f)
	case opOP:
		details = execOp(m, f, pc, ci)
	case opSYSTEM:
		details = execSystem(m, f, pc, ci)
	case opMISCMEM:
		details = execMiscMem(f)
	default:
		trap.Raise(m, trap.IllegalInstruction, ci, pc)
	}

	m.ClearZero()
	return details
}

func execLUI(m *machine.State, f fields) string {
	val := uint32(f.immU)
	if f.rd != 0 {
		m.X[f.rd] = val
	}
	effVal := val
	if f.rd == 0 {
		effVal = 0
	}
	return fmt.Sprintf("lui    %s,0x%05x          %s=0x%08x",
		abiNames[f.rd], val>>12, abiNames[f.rd], effVal)
}

func execAUIPC(m *machine.State, f fields, pc uint32) string {
	val := pc + uint32(f.immU)
	if f.rd != 0 {
		m.X[f.rd] = val
	}
	effVal := val
	if f.rd == 0 {
		effVal = 0
	}
	return fmt.Sprintf("auipc  %s,0x%05x          %s=0x%08x+0x%08x=0x%08x",
		abiNames[f.rd], uint32(f.immU)>>12, abiNames[f.rd], pc, uint32(f.immU), effVal)
}

func execJAL(m *machine.State, f fields, pc uint32) string {
	link := pc + 4
	target := uint32(int32(pc) + f.immJ)
	if f.rd != 0 {
		m.X[f.rd] = link
	}
	m.PC = target
	effLink := link
	if f.rd == 0 {
		effLink = 0
	}
	return fmt.Sprintf("jal    %s,0x%05x        pc=0x%08x,%s=0x%08x",
		abiNames[f.rd], uint32(f.immJ)&0x1FFFFF, target, abiNames[f.rd], effLink)
}

func execJALR(m *machine.State, f fields, pc uint32) string {
	base := m.X[f.rs1]
	link := pc + 4
	target := uint32(int32(base)+f.immI) &^ 1
	if f.rd != 0 {
		m.X[f.rd] = link
	}
	m.PC = target
	effLink := link
	if f.rd == 0 {
		effLink = 0
	}
	return fmt.Sprintf("jalr   %s,%s,0x%03x       pc=0x%08x+0x%08x,%s=0x%08x",
		abiNames[f.rd], abiNames[f.rs1], uint32(f.immI)&0xFFF, base, uint32(f.immI), abiNames[f.rd], effLink)
}

func execBranch(m *machine.State, f fields, pc, ci uint32) (details string) {
	rs1v, rs2v := m.X[f.rs1], m.X[f.rs2]
	var taken bool
	var mnemonic, opStr string
	unsigned := f.funct3 >= 6

	switch f.funct3 {
	case 0x0:
		mnemonic, opStr = "beq", "=="
		taken = rs1v == rs2v
	case 0x1:
		mnemonic, opStr = "bne", "!="
		taken = rs1v != rs2v
	case 0x4:
		mnemonic, opStr = "blt", "<"
		taken = int32(rs1v) < int32(rs2v)
	case 0x5:
		mnemonic, opStr = "bge", ">="
		taken = int32(rs1v) >= int32(rs2v)
	case 0x6:
		mnemonic, opStr = "bltu", "<"
		taken = rs1v < rs2v
	case 0x7:
		mnemonic, opStr = "bgeu", ">="
		taken = rs1v >= rs2v
	default:
		trap.Raise(m, trap.IllegalInstruction, ci, pc)
		return ""
	}

	nextPC := pc + 4
	if taken {
		nextPC = uint32(int32(pc) + f.immB)
	}
	m.PC = nextPC

	uFlag := ""
	if unsigned {
		uFlag = "u"
	}
	takenInt := 0
	if taken {
		takenInt = 1
	}
	return fmt.Sprintf("%-7s%s,%s,0x%03x       (%s(0x%08x)%s%s(0x%08x))=%d->pc=0x%08x",
		mnemonic, abiNames[f.rs1], abiNames[f.rs2], uint32(f.immB)&0x1FFF,
		uFlag, rs1v, opStr, uFlag, rs2v, takenInt, nextPC)
}

func execLoad(m *machine.State, b *bus.Bus, f fields, pc, ci uint32) string {
	addr := uint32(int32(m.X[f.rs1]) + f.immI)
	var mnemonic string
	var val uint32

	switch f.funct3 {
	case 0x0: // lb
		mnemonic = "lb"
		val = uint32(int32(int8(b.ReadByte(pc, addr))))
	case 0x1: // lh
		mnemonic = "lh"
		val = uint32(int32(int16(b.ReadHalfword(pc, addr))))
	case 0x2: // lw
		mnemonic = "lw"
		val = b.ReadWord(pc, addr)
	case 0x4: // lbu
		mnemonic = "lbu"
		val = b.ReadByte(pc, addr)
	case 0x5: // lhu
		mnemonic = "lhu"
		val = b.ReadHalfword(pc, addr)
	default:
		trap.Raise(m, trap.IllegalInstruction, ci, pc)
		return ""
	}
	if m.TrapPending {
		return ""
	}
	if f.rd != 0 {
		m.X[f.rd] = val
	}
	effVal := val
	if f.rd == 0 {
		effVal = 0
	}
	return fmt.Sprintf("%-7s%s,0x%03x(%s)      %s=mem[0x%08x]=0x%08x",
		mnemonic, abiNames[f.rd], uint32(f.immI)&0xFFF, abiNames[f.rs1], abiNames[f.rd], addr, effVal)
}

func execStore(m *machine.State, b *bus.Bus, f fields, pc, ci uint32) string {
	addr := uint32(int32(m.X[f.rs1]) + f.immS)
	val := m.X[f.rs2]

	switch f.funct3 {
	case 0x0: // sb
		b.WriteByte(pc, addr, val)
		if m.TrapPending {
			return ""
		}
		return fmt.Sprintf("sb     %s,0x%03x(%s)        mem[0x%08x]=0x%02x",
			abiNames[f.rs2], uint32(f.immS)&0xFFF, abiNames[f.rs1], addr, uint8(val))
	case 0x1: // sh
		b.WriteHalfword(pc, addr, val)
		if m.TrapPending {
			return ""
		}
		return fmt.Sprintf("sh     %s,0x%03x(%s)        mem[0x%08x]=0x%04x",
			abiNames[f.rs2], uint32(f.immS)&0xFFF, abiNames[f.rs1], addr, uint16(val))
	case 0x2: // sw
		b.WriteWord(pc, addr, val)
		if m.TrapPending {
			return ""
		}
		return fmt.Sprintf("sw     %s,0x%03x(%s)        mem[0x%08x]=0x%08x",
			abiNames[f.rs2], uint32(f.immS)&0xFFF, abiNames[f.rs1], addr, val)
	default:
		trap.Raise(m, trap.IllegalInstruction, ci, pc)
		return ""
	}
}

func execOpImm(m *machine.State, f fields) string {
	rs1v := m.X[f.rs1]
	var result uint32
	var text string

	switch f.funct3 {
	case 0x0: // addi
		result = uint32(int32(rs1v) + f.immI)
		text = fmt.Sprintf("addi   %s,%s,0x%x       %s=0x%08x+0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], uint32(f.immI)&0xFFF, abiNames[f.rd], rs1v, uint32(f.immI), result)
	case 0x2: // slti
		if int32(rs1v) < f.immI {
			result = 1
		}
		text = fmt.Sprintf("slti   %s,%s,%d       %s=(0x%08x<%d)=%d",
			abiNames[f.rd], abiNames[f.rs1], f.immI, abiNames[f.rd], rs1v, f.immI, result)
	case 0x3: // sltiu
		if rs1v < uint32(f.immI) {
			result = 1
		}
		text = fmt.Sprintf("sltiu  %s,%s,%d       %s=(0x%08x<%d)=%d",
			abiNames[f.rd], abiNames[f.rs1], f.immI, abiNames[f.rd], rs1v, uint32(f.immI), result)
	case 0x4: // xori
		result = rs1v ^ uint32(f.immI)
		text = fmt.Sprintf("xori   %s,%s,0x%03x       %s=0x%08x^0x%03x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], uint32(f.immI)&0xFFF, abiNames[f.rd], rs1v, uint32(f.immI)&0xFFF, result)
	case 0x6: // ori
		result = rs1v | uint32(f.immI)
		text = fmt.Sprintf("ori    %s,%s,0x%03x       %s=0x%08x|0x%03x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], uint32(f.immI)&0xFFF, abiNames[f.rd], rs1v, uint32(f.immI)&0xFFF, result)
	case 0x7: // andi
		result = rs1v & uint32(f.immI)
		text = fmt.Sprintf("andi   %s,%s,0x%03x       %s=0x%08x&0x%03x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], uint32(f.immI)&0xFFF, abiNames[f.rd], rs1v, uint32(f.immI)&0xFFF, result)
	case 0x1: // slli
		shamt := uint32(f.immI) & 0x1F
		result = rs1v << shamt
		text = fmt.Sprintf("slli   %s,%s,%d          %s=0x%08x<<%d=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], shamt, abiNames[f.rd], rs1v, shamt, result)
	case 0x5: // srli / srai, distinguished by bit 30
		shamt := uint32(f.immI) & 0x1F
		if f.immI&(1<<10) == 0 {
			result = rs1v >> shamt
			text = fmt.Sprintf("srli   %s,%s,%d          %s=0x%08x>>%d=0x%08x",
				abiNames[f.rd], abiNames[f.rs1], shamt, abiNames[f.rd], rs1v, shamt, result)
		} else {
			result = uint32(int32(rs1v) >> shamt)
			text = fmt.Sprintf("srai   %s,%s,%d          %s=0x%08x>>>%d=0x%08x",
				abiNames[f.rd], abiNames[f.rs1], shamt, abiNames[f.rd], rs1v, shamt, result)
		}
	}

	if f.rd != 0 {
		m.X[f.rd] = result
	}
	return text
}

func execOp(m *machine.State, f fields, pc, ci uint32) string {
	a, bv := m.X[f.rs1], m.X[f.rs2]
	var result uint32
	var text string

	switch {
	case f.funct3 == 0x0 && f.funct7 == 0x00: // add
		result = a + bv
		text = fmt.Sprintf("add    %s,%s,%s         %s=0x%08x+0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, bv, result)
	case f.funct3 == 0x0 && f.funct7 == 0x20: // sub
		result = a - bv
		text = fmt.Sprintf("sub    %s,%s,%s         %s=0x%08x-0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, bv, result)
	case f.funct3 == 0x1 && f.funct7 == 0x00: // sll
		shamt := bv & 0x1F
		result = a << shamt
		text = fmt.Sprintf("sll    %s,%s,%s         %s=0x%08x<<%d=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, shamt, result)
	case f.funct3 == 0x2 && f.funct7 == 0x00: // slt
		if int32(a) < int32(bv) {
			result = 1
		}
		text = fmt.Sprintf("slt    %s,%s,%s         %s=(0x%08x<0x%08x)=%d",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, bv, result)
	case f.funct3 == 0x3 && f.funct7 == 0x00: // sltu
		if a < bv {
			result = 1
		}
		text = fmt.Sprintf("sltu   %s,%s,%s         %s=(0x%08x<0x%08x)=%d",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, bv, result)
	case f.funct3 == 0x4 && f.funct7 == 0x00: // xor
		result = a ^ bv
		text = fmt.Sprintf("xor    %s,%s,%s         %s=0x%08x^0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, bv, result)
	case f.funct3 == 0x5 && f.funct7 == 0x00: // srl
		shamt := bv & 0x1F
		result = a >> shamt
		text = fmt.Sprintf("srl    %s,%s,%s         %s=0x%08x>>%d=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, shamt, result)
	case f.funct3 == 0x5 && f.funct7 == 0x20: // sra
		shamt := bv & 0x1F
		result = uint32(int32(a) >> shamt)
		text = fmt.Sprintf("sra    %s,%s,%s         %s=0x%08x>>>%d=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, shamt, result)
	case f.funct3 == 0x6 && f.funct7 == 0x00: // or
		result = a | bv
		text = fmt.Sprintf("or     %s,%s,%s         %s=0x%08x|0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, bv, result)
	case f.funct3 == 0x7 && f.funct7 == 0x00: // and
		result = a & bv
		text = fmt.Sprintf("and    %s,%s,%s         %s=0x%08x&0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, bv, result)
	case f.funct7 == 0x01:
		result, text = execMulDiv(f, a, bv)
	default:
		trap.Raise(m, trap.IllegalInstruction, ci, pc)
		return ""
	}

	if f.rd != 0 {
		m.X[f.rd] = result
	}
	return text
}

// execMulDiv implements the M-extension opcodes (funct7 == 0x01).
func execMulDiv(f fields, a, b uint32) (result uint32, text string) {
	switch f.funct3 {
	case 0x0: // mul
		result = a * b
		text = fmt.Sprintf("mul    %s,%s,%s         %s=0x%08x*0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, b, result)
	case 0x1: // mulh (signed x signed)
		wide := int64(int32(a)) * int64(int32(b))
		result = uint32(wide >> 32)
		text = fmt.Sprintf("mulh   %s,%s,%s         %s=0x%08x*0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, b, result)
	case 0x2: // mulhsu (signed x unsigned)
		wide := int64(int32(a)) * int64(b)
		result = uint32(wide >> 32)
		text = fmt.Sprintf("mulhsu %s,%s,%s         %s=0x%08x*0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, b, result)
	case 0x3: // mulhu (unsigned x unsigned)
		wide := uint64(a) * uint64(b)
		result = uint32(wide >> 32)
		text = fmt.Sprintf("mulhu  %s,%s,%s         %s=0x%08x*0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, b, result)
	case 0x4: // div
		switch {
		case b == 0:
			result = 0xFFFFFFFF
		case int32(a) == math.MinInt32 && int32(b) == -1:
			result = a
		default:
			result = uint32(int32(a) / int32(b))
		}
		text = fmt.Sprintf("div    %s,%s,%s         %s=0x%08x/0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, b, result)
	case 0x5: // divu
		if b == 0 {
			result = 0xFFFFFFFF
		} else {
			result = a / b
		}
		text = fmt.Sprintf("divu   %s,%s,%s         %s=0x%08x/0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, b, result)
	case 0x6: // rem
		switch {
		case b == 0:
			result = a
		case int32(a) == math.MinInt32 && int32(b) == -1:
			result = 0
		default:
			result = uint32(int32(a) % int32(b))
		}
		text = fmt.Sprintf("rem    %s,%s,%s         %s=0x%08x%%0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, b, result)
	case 0x7: // remu
		if b == 0 {
			result = a
		} else {
			result = a % b
		}
		text = fmt.Sprintf("remu   %s,%s,%s         %s=0x%08x%%0x%08x=0x%08x",
			abiNames[f.rd], abiNames[f.rs1], abiNames[f.rs2], abiNames[f.rd], a, b, result)
	}
	return result, text
}

func execSystem(m *machine.State, f fields, pc, ci uint32) string {
	if f.funct3 == 0 {
		switch f.immI {
		case 0x0: // ecall
			trap.Raise(m, trap.EnvironmentCall, 0, pc)
			return ""
		case 0x1: // ebreak
			m.Halted = true
			m.Mcause = 3
			m.Mepc = pc
			m.HaltCCC = 3
			return "ebreak"
		case 0x302: // mret
			m.PC = m.Mepc
			wasMPIE := m.Mstatus&machine.MstatusMPIE != 0
			if wasMPIE {
				m.Mstatus |= machine.MstatusMIE
			} else {
				m.Mstatus &^= machine.MstatusMIE
			}
			m.Mstatus &^= machine.MstatusMPIE
			return fmt.Sprintf("mret                       pc=0x%08x", m.PC)
		default:
			trap.Raise(m, trap.IllegalInstruction, ci, pc)
			return ""
		}
	}
	return execCSR(m, f, pc, ci)
}

func execCSR(m *machine.State, f fields, pc, ci uint32) string {
	addr := uint32(f.immI) & 0xFFF
	old := m.ReadCSR(addr)
	name := machine.CSRName(addr)
	var text string

	switch f.funct3 {
	case 0x1: // csrrw
		m.WriteCSR(addr, m.X[f.rs1])
		if f.rd != 0 {
			m.X[f.rd] = old
		}
		text = fmt.Sprintf("csrrw  %s,%s,%s       %s=%s=0x%08x,%s=0x%08x",
			abiNames[f.rd], name, abiNames[f.rs1], abiNames[f.rd], name, old, name, m.X[f.rs1])
	case 0x2: // csrrs
		if f.rs1 != 0 {
			m.WriteCSR(addr, old|m.X[f.rs1])
		}
		if f.rd != 0 {
			m.X[f.rd] = old
		}
		text = fmt.Sprintf("csrrs  %s,%s,%s      %s=%s=0x%08x,%s|=0x%08x=0x%08x",
			abiNames[f.rd], name, abiNames[f.rs1], abiNames[f.rd], name, old, name, m.X[f.rs1], old|m.X[f.rs1])
	case 0x3: // csrrc
		if f.rs1 != 0 {
			m.WriteCSR(addr, old&^m.X[f.rs1])
		}
		if f.rd != 0 {
			m.X[f.rd] = old
		}
		text = fmt.Sprintf("csrrc  %s,%s,%s       %s=%s=0x%08x,%s&=~0x%08x=0x%08x",
			abiNames[f.rd], name, abiNames[f.rs1], abiNames[f.rd], name, old, name, m.X[f.rs1], old&^m.X[f.rs1])
	case 0x5: // csrrwi
		m.WriteCSR(addr, f.rs1)
		if f.rd != 0 {
			m.X[f.rd] = old
		}
		text = fmt.Sprintf("csrrwi %s,%s,%d      %s=%s=0x%08x,%s=%d",
			abiNames[f.rd], name, f.rs1, abiNames[f.rd], name, old, name, f.rs1)
	case 0x6: // csrrsi
		if f.rs1 != 0 {
			m.WriteCSR(addr, old|f.rs1)
		}
		if f.rd != 0 {
			m.X[f.rd] = old
		}
		text = fmt.Sprintf("csrrsi %s,%s,%d      %s=%s=0x%08x,%s|=%d=0x%08x",
			abiNames[f.rd], name, f.rs1, abiNames[f.rd], name, old, name, f.rs1, old|f.rs1)
	case 0x7: // csrrci
		if f.rs1 != 0 {
			m.WriteCSR(addr, old&^f.rs1)
		}
		if f.rd != 0 {
			m.X[f.rd] = old
		}
		text = fmt.Sprintf("csrrci %s,%s,%d      %s=%s=0x%08x,csr&=~%d=0x%08x",
			abiNames[f.rd], name, f.rs1, abiNames[f.rd], name, old, f.rs1, old&^f.rs1)
	default:
		trap.Raise(m, trap.IllegalInstruction, ci, pc)
		return ""
	}
	return text
}

func execMiscMem(f fields) string {
	if f.funct3 == 1 {
		return "fence.i"
	}
	return "fence"
}
