/*
 * rv32sim - Execution trace formatting
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

// Package trace renders the three kinds of lines the driver loop
// writes to the trace stream: a retired instruction, a delivered
// trap, and a fatal double fault.
package trace

import "fmt"

// Instruction formats one retired instruction: its address followed
// by the mnemonic/operand/effect text cpu.Step produced.
func Instruction(pc uint32, details string) string {
	return fmt.Sprintf("0x%08x:%s", pc, details)
}

// Trap formats a delivered trap: its canonical name followed by the
// cause, the faulting epc, and the trap value.
func Trap(name string, cause, epc, tval uint32) string {
	return fmt.Sprintf(">%s                   cause=0x%08x,epc=0x%08x,tval=0x%08x", name, cause, epc, tval)
}

// Fatal formats the line emitted when the double-fault detector
// fires; the simulator halts immediately afterward.
func Fatal() string {
	return ">FATAL: Double fault detected. Halting simulation."
}
