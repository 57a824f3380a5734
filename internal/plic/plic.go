/*
 * rv32sim - Platform-level interrupt controller
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

// Package plic implements a single-source platform-level interrupt
// controller: a pending mask, an enable mask, and the claim/complete
// register for the UART's external interrupt (id 10).
package plic

import "github.com/hartsim/rv32sim/internal/machine"

const (
	// Base is the physical base address of the PLIC MMIO window.
	Base uint32 = 0x0C000000
	// Size is the size in bytes of the PLIC MMIO window.
	Size uint32 = 0x04000000

	// UARTIRQ is the only external interrupt source this PLIC
	// supports.
	UARTIRQ uint32 = 10

	enableOff        uint32 = 0x2000
	enableOffEnd     uint32 = 0x2080
	claimCompleteOff uint32 = 0x200004
	priorityOffStart uint32 = 0x4
	priorityOffEnd   uint32 = 0x1000
)

// Plic holds the pending and enable bitmasks. Only bit UARTIRQ is
// ever meaningful.
type Plic struct {
	Pending uint32
	Enable  uint32
}

// New returns a PLIC with nothing pending and nothing enabled.
func New() *Plic {
	return &Plic{}
}

// Raise marks the UART source pending, called by the UART model on
// every transmit.
func (p *Plic) Raise() {
	p.Pending |= 1 << UARTIRQ
}

// RefreshMIP sets or clears mip's MEIP bit (bit 11) according to
// whether any enabled source is pending.
func (p *Plic) RefreshMIP(m *machine.State) {
	if p.Pending&p.Enable != 0 {
		m.Mip |= machine.MipMEIP
	} else {
		m.Mip &^= machine.MipMEIP
	}
}

// InRange reports whether addr falls within the PLIC MMIO window.
func InRange(addr uint32) bool {
	return addr >= Base && addr < Base+Size
}

// ReadWord implements the claim/complete register; priority and
// threshold registers read as zero.
func (p *Plic) ReadWord(addr uint32) uint32 {
	off := addr - Base
	if off == claimCompleteOff {
		if p.Pending&p.Enable&(1<<UARTIRQ) != 0 {
			return UARTIRQ
		}
		return 0
	}
	return 0
}

// WriteWord implements the enable mask, the claim/complete register
// (write-to-complete, per the specification's Open Question), and
// accepts but ignores writes to the priority/threshold window.
func (p *Plic) WriteWord(addr, value uint32) {
	off := addr - Base
	switch {
	case off >= enableOff && off < enableOffEnd:
		p.Enable = value
	case off == claimCompleteOff:
		if value == UARTIRQ {
			p.Pending &^= 1 << UARTIRQ
		}
	case off >= priorityOffStart && off < priorityOffEnd:
		// Priority/threshold registers: accepted, no effect.
	}
}
