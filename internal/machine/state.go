/*
 * rv32sim - Machine state
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

// Package machine holds the register file, CSR file and RAM backing
// a single RV32IM hart, plus the few cross-component flags (halt,
// mstatus/mip bits) the bus, CPU and trap engine all read and write.
package machine

const (
	// RAMBase is the physical base address of main memory.
	RAMBase uint32 = 0x80000000
	// RAMSize is the size of main memory in bytes (128 KiB).
	RAMSize uint32 = 128 * 1024

	// NumRegs is the number of general purpose registers.
	NumRegs = 32
)

// mstatus bit positions.
const (
	MstatusMIE  uint32 = 1 << 3 // Global interrupt enable
	MstatusMPIE uint32 = 1 << 7 // Prior value of MIE, saved across a trap
)

// mip/mie bit positions.
const (
	MipMSIP uint32 = 1 << 3  // Machine software interrupt pending
	MipMTIP uint32 = 1 << 7  // Machine timer interrupt pending
	MipMEIP uint32 = 1 << 11 // Machine external interrupt pending
)

// Reset values for CSRs that do not start at zero.
const (
	mstatusReset uint32 = 0x00001800
	misaReset    uint32 = 0x40101101
)

// State is the complete architectural state of the hart: the register
// file, the machine-mode CSRs, main memory, and the halt flag. It is
// created once by New and passed explicitly to the bus, CPU and trap
// engine; there is no package-level global.
type State struct {
	PC      uint32
	X       [NumRegs]uint32
	RAM     []byte
	Halted  bool
	HaltCCC uint32 // mcause recorded by ebreak, kept for trace/diagnostics

	// TrapPending is set by the trap engine whenever it delivers a
	// trap during the current step, and cleared by the driver loop
	// once it has emitted the corresponding trace line. Mirrors the
	// reference simulator's single trap_pending_print flag rather
	// than threading a trapped bool through every bus and CPU call.
	TrapPending bool

	Mstatus  uint32
	Mie      uint32
	Mtvec    uint32
	Mepc     uint32
	Mcause   uint32
	Mtval    uint32
	Mscratch uint32
	Misa     uint32
	Mip      uint32
}

// New creates a fresh machine with RAM zeroed, CSRs at their reset
// values, and the stack pointer (x2) initialized to the first byte
// past the end of RAM, as required by the lifecycle clause in the
// specification.
func New() *State {
	s := &State{
		RAM:     make([]byte, RAMSize),
		Mstatus: mstatusReset,
		Misa:    misaReset,
		PC:      RAMBase,
	}
	s.X[2] = RAMBase + RAMSize
	return s
}

// ClearZero re-establishes the invariant that x0 is hard-wired to
// zero. It must be called at the end of every step, after any
// instruction write-back, since nothing prevents the decoder from
// targeting rd==0 mid-execution.
func (s *State) ClearZero() {
	s.X[0] = 0
}
