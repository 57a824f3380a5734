/*
 * rv32sim - Instruction decode
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

// Package cpu decodes and executes RV32IM + Zicsr instructions and
// formats the per-instruction trace text.
package cpu

// Opcode values (bits 0-6 of the instruction word).
const (
	opLUI     uint32 = 0x37
	opAUIPC   uint32 = 0x17
	opJAL     uint32 = 0x6F
	opJALR    uint32 = 0x67
	opBRANCH  uint32 = 0x63
	opLOAD    uint32 = 0x03
	opSTORE   uint32 = 0x23
	opOPIMM   uint32 = 0x13
	opOP      uint32 = 0x33
	opSYSTEM  uint32 = 0x73
	opMISCMEM uint32 = 0x0F
)

// abiNames are the conventional ABI register names used in trace
// output, indexed by register number.
var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

type fields struct {
	opcode uint32
	rd     uint32
	rs1    uint32
	rs2    uint32
	funct3 uint32
	funct7 uint32
	immI   int32
	immS   int32
	immB   int32
	immU   int32
	immJ   int32
}

func decode(ci uint32) fields {
	return fields{
		opcode: ci & 0x7F,
		rd:     (ci >> 7) & 0x1F,
		rs1:    (ci >> 15) & 0x1F,
		rs2:    (ci >> 20) & 0x1F,
		funct3: (ci >> 12) & 0x7,
		funct7: (ci >> 25) & 0x7F,
		immI:   decodeImmI(ci),
		immS:   decodeImmS(ci),
		immB:   decodeImmB(ci),
		immU:   decodeImmU(ci),
		immJ:   decodeImmJ(ci),
	}
}

// decodeImmI sign-extends the 12-bit I-type immediate by an
// arithmetic right shift of the raw instruction word.
func decodeImmI(ci uint32) int32 {
	return int32(ci) >> 20
}

// decodeImmS sign-extends the 12-bit S-type immediate.
func decodeImmS(ci uint32) int32 {
	imm := ((ci >> 25) << 5) | ((ci >> 7) & 0x1F)
	return int32(imm<<20) >> 20
}

// decodeImmB sign-extends the 13-bit B-type immediate (bit 0 is
// always zero and not stored).
func decodeImmB(ci uint32) int32 {
	imm := (((ci >> 31) & 1) << 12) |
		(((ci >> 7) & 1) << 11) |
		(((ci >> 25) & 0x3F) << 5) |
		(((ci >> 8) & 0xF) << 1)
	return int32(imm<<19) >> 19
}

// decodeImmU returns the U-type immediate already shifted into its
// final bit position (top 20 bits, bottom 12 zero).
func decodeImmU(ci uint32) int32 {
	return int32(ci & 0xFFFFF000)
}

// decodeImmJ sign-extends the 21-bit J-type immediate (bit 0 is
// always zero and not stored).
func decodeImmJ(ci uint32) int32 {
	imm := (((ci >> 31) & 1) << 20) |
		(((ci >> 12) & 0xFF) << 12) |
		(((ci >> 20) & 1) << 11) |
		(((ci >> 21) & 0x3FF) << 1)
	return int32(imm<<11) >> 11
}
