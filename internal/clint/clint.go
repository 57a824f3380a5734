/*
 * rv32sim - Core-local interruptor
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

// Package clint implements the core-local interruptor: a 64-bit free
// running timer, its compare register, and the software interrupt
// latch (msip).
package clint

import "github.com/hartsim/rv32sim/internal/machine"

const (
	// Base is the physical base address of the CLINT MMIO window.
	Base uint32 = 0x02000000
	// Size is the size in bytes of the CLINT MMIO window.
	Size uint32 = 0x10000

	offMsip      uint32 = 0x0000
	offMtimecmp  uint32 = 0x4000
	offMtimecmpH uint32 = 0x4004
	offMtime     uint32 = 0xBFF8
	offMtimeH    uint32 = 0xBFFC
)

// Clint holds the 64-bit monotonic counter and its compare register.
// mtimecmp starts all-ones so the timer does not fire until it is
// programmed.
type Clint struct {
	Mtime    uint64
	Mtimecmp uint64
}

// New returns a CLINT with mtime at zero and mtimecmp at its
// non-firing reset value.
func New() *Clint {
	return &Clint{Mtimecmp: ^uint64(0)}
}

// Tick advances mtime by one; the driver loop calls this exactly once
// per retired or trapped instruction step.
func (c *Clint) Tick() {
	c.Mtime++
}

// RefreshMIP sets or clears mip's MTIP bit (bit 7) according to
// whether mtime has reached mtimecmp.
func (c *Clint) RefreshMIP(m *machine.State) {
	if c.Mtime >= c.Mtimecmp {
		m.Mip |= machine.MipMTIP
	} else {
		m.Mip &^= machine.MipMTIP
	}
}

// InRange reports whether addr falls within the CLINT MMIO window.
func InRange(addr uint32) bool {
	return addr >= Base && addr < Base+Size
}

// ReadWord implements the two readable CLINT offsets: mtime low and
// high words. Any other offset reads as zero.
func (c *Clint) ReadWord(addr uint32) uint32 {
	switch addr - Base {
	case offMtime:
		return uint32(c.Mtime)
	case offMtimeH:
		return uint32(c.Mtime >> 32)
	default:
		return 0
	}
}

// WriteWord implements the three writable CLINT offsets: msip and the
// two halves of mtimecmp. Writing either half of mtimecmp clears
// mip's MTIP bit, per the specification.
func (c *Clint) WriteWord(m *machine.State, addr, value uint32) {
	switch addr - Base {
	case offMsip:
		if value&1 != 0 {
			m.Mip |= machine.MipMSIP
		} else {
			m.Mip &^= machine.MipMSIP
		}
	case offMtimecmp:
		c.Mtimecmp = (c.Mtimecmp & 0xFFFFFFFF00000000) | uint64(value)
		m.Mip &^= machine.MipMTIP
	case offMtimecmpH:
		c.Mtimecmp = (c.Mtimecmp & 0x00000000FFFFFFFF) | (uint64(value) << 32)
		m.Mip &^= machine.MipMTIP
	}
}
