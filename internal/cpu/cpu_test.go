/*
 * rv32sim - CPU test cases.
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
	"testing"

	"github.com/hartsim/rv32sim/internal/bus"
	"github.com/hartsim/rv32sim/internal/clint"
	"github.com/hartsim/rv32sim/internal/machine"
	"github.com/hartsim/rv32sim/internal/plic"
	"github.com/hartsim/rv32sim/internal/uart"
)

func newTestMachine() (*machine.State, *bus.Bus) {
	m := machine.New()
	b := bus.New(m, clint.New(), plic.New(), uart.New(nil, nil))
	return m, b
}

func putWord(m *machine.State, addr, word uint32) {
	off := addr - machine.RAMBase
	m.RAM[off] = byte(word)
	m.RAM[off+1] = byte(word >> 8)
	m.RAM[off+2] = byte(word >> 16)
	m.RAM[off+3] = byte(word >> 24)
}

func rtype(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func itype(imm12 uint32, rs1, funct3, rd, opcode uint32) uint32 {
	return imm12<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

// jtype encodes a J-type instruction from a signed byte offset.
func jtype(offset int32, rd, opcode uint32) uint32 {
	off := uint32(offset)
	imm20 := (off >> 20) & 1
	imm19_12 := (off >> 12) & 0xFF
	imm11 := (off >> 11) & 1
	imm10_1 := (off >> 1) & 0x3FF
	return imm20<<31 | imm19_12<<12 | imm11<<20 | imm10_1<<21 | rd<<7 | opcode
}

// btype encodes a B-type instruction from a signed byte offset.
func btype(offset int32, rs2, rs1, funct3, opcode uint32) uint32 {
	off := uint32(offset)
	imm12 := (off >> 12) & 1
	imm10_5 := (off >> 5) & 0x3F
	imm4_1 := (off >> 1) & 0xF
	imm11 := (off >> 11) & 1
	return imm12<<31 | imm10_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | imm4_1<<8 | imm11<<7 | opcode
}

func TestAddiTraceLine(t *testing.T) {
	m, b := newTestMachine()
	putWord(m, machine.RAMBase, 0x00100093) // addi x1, x0, 1
	details := Step(m, b)

	want := "addi   ra,zero,0x1       ra=0x00000000+0x00000001=0x00000001"
	if details != want {
		t.Errorf("details = %q, want %q", details, want)
	}
	if m.X[1] != 1 {
		t.Errorf("x1 = %d, want 1", m.X[1])
	}
	if m.PC != machine.RAMBase {
		t.Errorf("PC = 0x%08x, want unchanged 0x%08x (driver advances it)", m.PC, machine.RAMBase)
	}
}

func TestJalSetsLinkAndTarget(t *testing.T) {
	m, b := newTestMachine()
	putWord(m, machine.RAMBase, 0x004000ef) // jal x1, +4
	Step(m, b)

	if m.PC != machine.RAMBase+4 {
		t.Errorf("PC = 0x%08x, want 0x%08x", m.PC, machine.RAMBase+4)
	}
	if m.X[1] != machine.RAMBase+4 {
		t.Errorf("x1 = 0x%08x, want 0x%08x", m.X[1], machine.RAMBase+4)
	}
}

func TestLuiToX0PrintsZero(t *testing.T) {
	m, b := newTestMachine()
	putWord(m, machine.RAMBase, itype(0, 0, 0, 0, opLUI)|0x12345000) // lui x0, 0x12345
	details := Step(m, b)

	want := "lui    zero,0x12345          zero=0x00000000"
	if details != want {
		t.Errorf("details = %q, want %q", details, want)
	}
}

func TestJalToX0PrintsZeroAndMasksNegativeImmediate(t *testing.T) {
	m, b := newTestMachine()
	putWord(m, machine.RAMBase, jtype(-8, 0, opJAL)) // jal x0, -8
	details := Step(m, b)

	want := "jal    zero,0x1ffff8        pc=0x7ffffff8,zero=0x00000000"
	if details != want {
		t.Errorf("details = %q, want %q", details, want)
	}
}

func TestBranchImmediateUsesThirteenBitMask(t *testing.T) {
	m, b := newTestMachine()
	m.X[1], m.X[2] = 1, 1 // beq taken
	putWord(m, machine.RAMBase, btype(-8, 2, 1, 0x0, opBRANCH))
	details := Step(m, b)

	if !containsSubstring(details, "0x1ff8") {
		t.Errorf("details = %q, want the 13-bit masked immediate 0x1ff8", details)
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func TestLoadToX0PrintsZero(t *testing.T) {
	m, b := newTestMachine()
	m.X[1] = machine.RAMBase + 0x100
	putWord(m, machine.RAMBase+0x100, 0xCAFEBABE)
	putWord(m, machine.RAMBase, itype(0, 1, 0x2, 0, opLOAD)) // lw x0, 0(x1)
	details := Step(m, b)

	want := "lw     zero,0x000(ra)      zero=mem[0x80000100]=0x00000000"
	if details != want {
		t.Errorf("details = %q, want %q", details, want)
	}
	if m.X[0] != 0 {
		t.Errorf("x0 = 0x%08x, want 0", m.X[0])
	}
}

func TestIllegalInstructionTraps(t *testing.T) {
	m, b := newTestMachine()
	putWord(m, machine.RAMBase, 0x00000000)
	Step(m, b)

	if !m.TrapPending {
		t.Fatalf("illegal instruction did not trap")
	}
	if m.Mcause != 2 {
		t.Errorf("mcause = %d, want 2", m.Mcause)
	}
	if m.Mtval != 0 {
		t.Errorf("mtval = 0x%08x, want 0 (the instruction word)", m.Mtval)
	}
	if m.PC != machine.RAMBase+4 {
		t.Errorf("PC = 0x%08x, want 0x%08x (mtvec==0 skip)", m.PC, machine.RAMBase+4)
	}
}

func TestIllegalInstructionTvalIsInstructionWord(t *testing.T) {
	m, b := newTestMachine()
	// OP opcode with a funct3/funct7 combination that decodes to nothing.
	word := rtype(0x7F, 2, 1, 0x1, 3, opOP)
	putWord(m, machine.RAMBase, word)
	Step(m, b)

	if !m.TrapPending {
		t.Fatalf("reserved OP encoding did not trap")
	}
	if m.Mtval != word {
		t.Errorf("mtval = 0x%08x, want the instruction word 0x%08x", m.Mtval, word)
	}
}

func TestDivSignedOverflow(t *testing.T) {
	m, b := newTestMachine()
	m.X[1] = 0x80000000
	m.X[2] = 0xFFFFFFFF
	putWord(m, machine.RAMBase, rtype(1, 2, 1, 0x4, 3, opOP)) // div x3, x1, x2
	Step(m, b)
	if m.X[3] != 0x80000000 {
		t.Errorf("div overflow quotient = 0x%08x, want 0x80000000", m.X[3])
	}
}

func TestRemSignedOverflow(t *testing.T) {
	m, b := newTestMachine()
	m.X[1] = 0x80000000
	m.X[2] = 0xFFFFFFFF
	putWord(m, machine.RAMBase, rtype(1, 2, 1, 0x6, 3, opOP)) // rem x3, x1, x2
	Step(m, b)
	if m.X[3] != 0 {
		t.Errorf("rem overflow remainder = 0x%08x, want 0", m.X[3])
	}
}

func TestDivuByZero(t *testing.T) {
	m, b := newTestMachine()
	m.X[1] = 5
	m.X[2] = 0
	putWord(m, machine.RAMBase, rtype(1, 2, 1, 0x5, 3, opOP)) // divu x3, x1, x2
	Step(m, b)
	if m.X[3] != 0xFFFFFFFF {
		t.Errorf("divu by zero = 0x%08x, want 0xffffffff", m.X[3])
	}
}

func TestRemuByZero(t *testing.T) {
	m, b := newTestMachine()
	m.X[1] = 5
	m.X[2] = 0
	putWord(m, machine.RAMBase, rtype(1, 2, 1, 0x7, 3, opOP)) // remu x3, x1, x2
	Step(m, b)
	if m.X[3] != 5 {
		t.Errorf("remu by zero = %d, want 5 (the dividend)", m.X[3])
	}
}

func TestSwLwRoundTrip(t *testing.T) {
	m, b := newTestMachine()
	m.X[1] = machine.RAMBase + 0x100 // base address in rs1
	m.X[2] = 0xABCD1234              // value to store in rs2

	// sw x2, 0(x1)
	sImm := uint32(0)
	sWord := (sImm>>5)<<25 | 2<<20 | 1<<15 | 0x2<<12 | (sImm&0x1F)<<7 | opSTORE
	putWord(m, machine.RAMBase, sWord)
	Step(m, b)

	m.PC = machine.RAMBase + 4
	// lw x3, 0(x1)
	putWord(m, machine.RAMBase+4, itype(0, 1, 0x2, 3, opLOAD))
	Step(m, b)

	if m.X[3] != 0xABCD1234 {
		t.Errorf("lw after sw = 0x%08x, want 0xabcd1234", m.X[3])
	}
}

func TestMretRestoresMIEFromMPIE(t *testing.T) {
	m, b := newTestMachine()
	m.Mepc = 0x80000040
	m.Mstatus |= machine.MstatusMPIE
	m.Mstatus &^= machine.MstatusMIE
	putWord(m, machine.RAMBase, itype(0x302, 0, 0, 0, opSYSTEM)) // mret
	Step(m, b)

	if m.PC != 0x80000040 {
		t.Errorf("PC = 0x%08x, want 0x80000040", m.PC)
	}
	if m.Mstatus&machine.MstatusMIE == 0 {
		t.Errorf("MIE not restored from MPIE by mret")
	}
	if m.Mstatus&machine.MstatusMPIE != 0 {
		t.Errorf("MPIE not cleared by mret")
	}
}

func TestEbreakHaltsWithCauseThree(t *testing.T) {
	m, b := newTestMachine()
	putWord(m, machine.RAMBase, itype(0x1, 0, 0, 0, opSYSTEM)) // ebreak
	details := Step(m, b)

	if !m.Halted {
		t.Errorf("ebreak did not set the halt flag")
	}
	if m.Mcause != 3 {
		t.Errorf("mcause = %d, want 3", m.Mcause)
	}
	if details != "ebreak" {
		t.Errorf("details = %q, want \"ebreak\"", details)
	}
	if m.TrapPending {
		t.Errorf("ebreak must not be reported through the trap-pending path")
	}
}

func TestCsrrwReadsOldWritesNew(t *testing.T) {
	m, b := newTestMachine()
	m.X[1] = 0x12345678 // value to write
	m.Mscratch = 0xAAAA0000
	// csrrw x2, mscratch, x1
	putWord(m, machine.RAMBase, itype(machine.CSRMscratch, 1, 0x1, 2, opSYSTEM))
	Step(m, b)

	if m.X[2] != 0xAAAA0000 {
		t.Errorf("x2 = 0x%08x, want the old mscratch value 0xaaaa0000", m.X[2])
	}
	if m.Mscratch != 0x12345678 {
		t.Errorf("mscratch = 0x%08x, want 0x12345678", m.Mscratch)
	}
}

func TestCsrrsWithZeroRs1DoesNotWrite(t *testing.T) {
	m, b := newTestMachine()
	m.Mscratch = 0x1
	// csrrs x2, mscratch, x0
	putWord(m, machine.RAMBase, itype(machine.CSRMscratch, 0, 0x2, 2, opSYSTEM))
	Step(m, b)
	if m.Mscratch != 0x1 {
		t.Errorf("mscratch = 0x%08x, want unchanged 0x1 (rs1==x0 suppresses the write)", m.Mscratch)
	}
}

func TestX0WriteDiscarded(t *testing.T) {
	m, b := newTestMachine()
	// addi x0, x0, 5 -- a well-formed instruction targeting x0
	putWord(m, machine.RAMBase, itype(5, 0, 0x0, 0, opOPIMM))
	Step(m, b)
	if m.X[0] != 0 {
		t.Errorf("x0 = %d, want 0", m.X[0])
	}
}
