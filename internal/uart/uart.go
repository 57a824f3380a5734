/*
 * rv32sim - UART MMIO model
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

// Package uart implements a minimal 16550-flavored UART backed by two
// plain byte streams rather than a physical serial line: a terminal
// input file and a terminal output file, both opened once at startup
// and read/written one byte at a time.
package uart

import (
	"bufio"
	"io"
)

const (
	// Base is the physical base address of the UART MMIO window.
	Base uint32 = 0x10000000
	// Size is the size in bytes of the UART MMIO window.
	Size uint32 = 8

	offData uint32 = 0 // RBR on read, THR on write
	offIER  uint32 = 1
	offIIR  uint32 = 2
	offLSR  uint32 = 5

	lsrTHRE uint8 = 1 << 5 // transmitter holding register empty, always set
	lsrDR   uint8 = 1 << 0 // data ready
)

// PendingRaiser is the single external effect a UART transmit has:
// marking the PLIC's external interrupt source pending. It is an
// interface, not a direct *plic.Plic import, so this package does not
// depend on the interrupt controllers.
type PendingRaiser interface {
	Raise()
}

// Uart holds the interrupt-enable register and the two backing
// streams. Input is wrapped in a bufio.Reader so the line-status
// register can peek at the next byte without consuming it.
type Uart struct {
	IER uint8
	in  *bufio.Reader
	out io.Writer
}

// New returns a UART reading from in and writing to out. Either may
// be nil, in which case reads return 0 (EOF behavior) and writes are
// discarded.
func New(in io.Reader, out io.Writer) *Uart {
	u := &Uart{out: out}
	if in != nil {
		u.in = bufio.NewReader(in)
	}
	return u
}

// InRange reports whether addr falls within the UART MMIO window.
func InRange(addr uint32) bool {
	return addr >= Base && addr < Base+Size
}

// dataAvailable peeks at the input stream without consuming a byte.
func (u *Uart) dataAvailable() bool {
	if u.in == nil {
		return false
	}
	_, err := u.in.Peek(1)
	return err == nil
}

// ReadByte implements RBR, IIR and LSR reads. Any other offset reads
// as zero.
func (u *Uart) ReadByte(addr uint32) uint8 {
	switch addr - Base {
	case offData:
		if u.in == nil {
			return 0
		}
		b, err := u.in.ReadByte()
		if err != nil {
			return 0
		}
		return b
	case offIIR:
		return 1
	case offLSR:
		status := lsrTHRE
		if u.dataAvailable() {
			status |= lsrDR
		}
		return status
	default:
		return 0
	}
}

// WriteByte implements THR and IER writes. A transmit flushes the
// output stream and marks the PLIC's UART source pending.
func (u *Uart) WriteByte(irq PendingRaiser, addr uint32, value uint8) {
	switch addr - Base {
	case offData:
		if u.out != nil {
			u.out.Write([]byte{value})
			if f, ok := u.out.(interface{ Sync() error }); ok {
				f.Sync()
			} else if f, ok := u.out.(interface{ Flush() error }); ok {
				f.Flush()
			}
		}
		if irq != nil {
			irq.Raise()
		}
	case offIER:
		u.IER = value
	}
}
