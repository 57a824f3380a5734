/*
 * rv32sim - Memory bus
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

// Package bus decodes addresses and dispatches loads and stores to
// RAM or to one of the three MMIO devices (UART, CLINT, PLIC). Every
// access that fails alignment or falls outside a recognized region
// raises a trap through m.TrapPending rather than returning an error,
// matching the other components' "no non-local control flow" design.
package bus

import (
	"github.com/hartsim/rv32sim/internal/clint"
	"github.com/hartsim/rv32sim/internal/machine"
	"github.com/hartsim/rv32sim/internal/plic"
	"github.com/hartsim/rv32sim/internal/trap"
	"github.com/hartsim/rv32sim/internal/uart"
)

// Bus wires the machine's RAM together with the three MMIO devices.
type Bus struct {
	M     *machine.State
	Clint *clint.Clint
	Plic  *plic.Plic
	Uart  *uart.Uart
}

// New returns a bus over the given machine and device set.
func New(m *machine.State, c *clint.Clint, p *plic.Plic, u *uart.Uart) *Bus {
	return &Bus{M: m, Clint: c, Plic: p, Uart: u}
}

func ramRange(addr, size uint32) bool {
	return addr >= machine.RAMBase && addr-machine.RAMBase+size <= machine.RAMSize
}

// ReadByte reads one byte. Byte accesses are always aligned.
func (b *Bus) ReadByte(pc, addr uint32) uint32 {
	switch {
	case uart.InRange(addr):
		return uint32(b.Uart.ReadByte(addr))
	case ramRange(addr, 1):
		return uint32(b.M.RAM[addr-machine.RAMBase])
	default:
		trap.Raise(b.M, trap.LoadFault, addr, pc)
		return 0
	}
}

// WriteByte writes one byte.
func (b *Bus) WriteByte(pc, addr, value uint32) {
	switch {
	case uart.InRange(addr):
		b.Uart.WriteByte(b.Plic, addr, byte(value))
	case ramRange(addr, 1):
		b.M.RAM[addr-machine.RAMBase] = byte(value)
	default:
		trap.Raise(b.M, trap.StoreFault, addr, pc)
	}
}

// ReadHalfword reads a little-endian 16-bit value from RAM. CLINT,
// PLIC and the UART are not defined for halfword access.
func (b *Bus) ReadHalfword(pc, addr uint32) uint32 {
	if addr%2 != 0 {
		trap.Raise(b.M, trap.LoadFault, addr, pc)
		return 0
	}
	if !ramRange(addr, 2) {
		trap.Raise(b.M, trap.LoadFault, addr, pc)
		return 0
	}
	off := addr - machine.RAMBase
	return uint32(b.M.RAM[off]) | uint32(b.M.RAM[off+1])<<8
}

// WriteHalfword writes a little-endian 16-bit value to RAM.
func (b *Bus) WriteHalfword(pc, addr, value uint32) {
	if addr%2 != 0 {
		trap.Raise(b.M, trap.StoreFault, addr, pc)
		return
	}
	if !ramRange(addr, 2) {
		trap.Raise(b.M, trap.StoreFault, addr, pc)
		return
	}
	off := addr - machine.RAMBase
	b.M.RAM[off] = byte(value)
	b.M.RAM[off+1] = byte(value >> 8)
}

// Fetch reads the 32-bit instruction word at pc from RAM only. Unlike
// ReadWord it never dispatches to CLINT or PLIC, and a misaligned or
// out-of-range fetch raises InstructionFault rather than LoadFault.
func (b *Bus) Fetch(pc uint32) uint32 {
	if pc%4 != 0 {
		trap.Raise(b.M, trap.InstructionFault, pc, pc)
		return 0
	}
	switch {
	case ramRange(pc, 4):
		off := pc - machine.RAMBase
		return uint32(b.M.RAM[off]) | uint32(b.M.RAM[off+1])<<8 |
			uint32(b.M.RAM[off+2])<<16 | uint32(b.M.RAM[off+3])<<24
	default:
		trap.Raise(b.M, trap.InstructionFault, pc, pc)
		return 0
	}
}

// ReadWord reads a little-endian 32-bit value, dispatching to CLINT
// or PLIC when the address falls in their windows, else to RAM.
func (b *Bus) ReadWord(pc, addr uint32) uint32 {
	if addr%4 != 0 {
		trap.Raise(b.M, trap.LoadFault, addr, pc)
		return 0
	}
	switch {
	case clint.InRange(addr):
		return b.Clint.ReadWord(addr)
	case plic.InRange(addr):
		return b.Plic.ReadWord(addr)
	case ramRange(addr, 4):
		off := addr - machine.RAMBase
		return uint32(b.M.RAM[off]) | uint32(b.M.RAM[off+1])<<8 |
			uint32(b.M.RAM[off+2])<<16 | uint32(b.M.RAM[off+3])<<24
	default:
		trap.Raise(b.M, trap.LoadFault, addr, pc)
		return 0
	}
}

// WriteWord writes a little-endian 32-bit value, dispatching to
// CLINT or PLIC when the address falls in their windows, else to RAM.
func (b *Bus) WriteWord(pc, addr, value uint32) {
	if addr%4 != 0 {
		trap.Raise(b.M, trap.StoreFault, addr, pc)
		return
	}
	switch {
	case clint.InRange(addr):
		b.Clint.WriteWord(b.M, addr, value)
	case plic.InRange(addr):
		b.Plic.WriteWord(addr, value)
	case ramRange(addr, 4):
		off := addr - machine.RAMBase
		b.M.RAM[off] = byte(value)
		b.M.RAM[off+1] = byte(value >> 8)
		b.M.RAM[off+2] = byte(value >> 16)
		b.M.RAM[off+3] = byte(value >> 24)
	default:
		trap.Raise(b.M, trap.StoreFault, addr, pc)
	}
}
