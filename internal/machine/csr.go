/*
 * rv32sim - CSR address decode
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

package machine

// CSR addresses implemented by this machine.
const (
	CSRMstatus  uint32 = 0x300
	CSRMisa     uint32 = 0x301
	CSRMie      uint32 = 0x304
	CSRMtvec    uint32 = 0x305
	CSRMscratch uint32 = 0x340
	CSRMepc     uint32 = 0x341
	CSRMcause   uint32 = 0x342
	CSRMtval    uint32 = 0x343
	CSRMip      uint32 = 0x344
)

// UnknownCSRName is the trace rendering for any CSR address outside
// the table above.
const UnknownCSRName = "unknown_csr"

var csrNames = map[uint32]string{
	CSRMstatus:  "mstatus",
	CSRMisa:     "misa",
	CSRMie:      "mie",
	CSRMtvec:    "mtvec",
	CSRMscratch: "mscratch",
	CSRMepc:     "mepc",
	CSRMcause:   "mcause",
	CSRMtval:    "mtval",
	CSRMip:      "mip",
}

// CSRName returns the canonical trace name for a 12-bit CSR address.
func CSRName(addr uint32) string {
	if name, ok := csrNames[addr]; ok {
		return name
	}
	return UnknownCSRName
}

// ReadCSR returns the current value of the addressed CSR. Unknown
// addresses read as zero.
func (s *State) ReadCSR(addr uint32) uint32 {
	switch addr {
	case CSRMstatus:
		return s.Mstatus
	case CSRMisa:
		return s.Misa
	case CSRMie:
		return s.Mie
	case CSRMtvec:
		return s.Mtvec
	case CSRMscratch:
		return s.Mscratch
	case CSRMepc:
		return s.Mepc
	case CSRMcause:
		return s.Mcause
	case CSRMtval:
		return s.Mtval
	case CSRMip:
		return s.Mip
	default:
		return 0
	}
}

// WriteCSR stores a value into the addressed CSR. Unknown addresses
// are silently discarded, matching the reference simulator.
func (s *State) WriteCSR(addr, value uint32) {
	switch addr {
	case CSRMstatus:
		s.Mstatus = value
	case CSRMisa:
		s.Misa = value
	case CSRMie:
		s.Mie = value
	case CSRMtvec:
		s.Mtvec = value
	case CSRMscratch:
		s.Mscratch = value
	case CSRMepc:
		s.Mepc = value
	case CSRMcause:
		s.Mcause = value
	case CSRMtval:
		s.Mtval = value
	case CSRMip:
		s.Mip = value
	}
}
