/*
 * rv32sim - Trap and interrupt engine
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

// Package trap centralizes trap delivery: priority selection among
// pending interrupts, the CSR and mstatus updates every trap performs,
// vector dispatch (or the no-handler skip policy), and double-fault
// detection across steps.
package trap

import "github.com/hartsim/rv32sim/internal/machine"

// Exception causes (synchronous).
const (
	InstructionFault   uint32 = 1
	IllegalInstruction uint32 = 2
	LoadFault          uint32 = 5
	StoreFault         uint32 = 7
	EnvironmentCall    uint32 = 11
)

// Interrupt causes (asynchronous); bit 31 set distinguishes them from
// exceptions.
const (
	SoftwareInterrupt uint32 = 0x80000003
	TimerInterrupt    uint32 = 0x80000007
	ExternalInterrupt uint32 = 0x8000000B
)

// noHandlerSentinel primes the engine's remembered epc/cause as "no
// trap has occurred yet" so the first trap of a run is never mistaken
// for a double fault.
const noHandlerSentinel uint32 = 0xFFFFFFFF

// Engine tracks the previous trap's epc/cause so it can recognize a
// double fault: two consecutive traps with identical mepc and mcause.
type Engine struct {
	lastPC    uint32
	lastCause uint32
}

// NewEngine returns a trap engine primed so the first trap it sees
// can never be mistaken for a double fault.
func NewEngine() *Engine {
	return &Engine{lastPC: noHandlerSentinel, lastCause: noHandlerSentinel}
}

// Raise delivers a trap: it saves mstatus.MIE into mstatus.MPIE,
// clears MIE, records mepc/mcause/mtval, and sets pc either to the
// vector in mtvec or, if no handler is installed (mtvec == 0), to
// epc+4 so execution skips the faulting instruction. It is the single
// point of trap delivery; callers must not separately re-apply the
// mtvec==0 skip.
func Raise(m *machine.State, cause, tval, pc uint32) {
	m.TrapPending = true

	if m.Mstatus&machine.MstatusMIE != 0 {
		m.Mstatus |= machine.MstatusMPIE
	} else {
		m.Mstatus &^= machine.MstatusMPIE
	}
	m.Mstatus &^= machine.MstatusMIE

	m.Mepc = pc
	m.Mcause = cause
	m.Mtval = tval

	if m.Mtvec != 0 {
		m.PC = m.Mtvec &^ 3
	} else {
		m.PC = m.Mepc + 4
	}
}

// SelectInterrupt returns the highest-priority pending and enabled
// interrupt cause, in external > software > timer order, provided
// mstatus.MIE is set. It reports ok=false when no interrupt should be
// taken this step.
func SelectInterrupt(m *machine.State) (cause uint32, ok bool) {
	if m.Mstatus&machine.MstatusMIE == 0 {
		return 0, false
	}
	pendingEnabled := m.Mip & m.Mie
	switch {
	case pendingEnabled&machine.MipMEIP != 0:
		return ExternalInterrupt, true
	case pendingEnabled&machine.MipMSIP != 0:
		return SoftwareInterrupt, true
	case pendingEnabled&machine.MipMTIP != 0:
		return TimerInterrupt, true
	default:
		return 0, false
	}
}

// IsDoubleFault reports whether the trap just recorded in m has the
// same mepc and mcause as the previous trap seen by this engine, and
// records m's trap as the new "previous" either way.
func (e *Engine) IsDoubleFault(m *machine.State) bool {
	double := m.Mepc == e.lastPC && m.Mcause == e.lastCause
	e.lastPC = m.Mepc
	e.lastCause = m.Mcause
	return double
}

// Name renders the canonical trap name used in trace output.
func Name(cause uint32) string {
	if cause&0x80000000 != 0 {
		switch cause &^ 0x80000000 {
		case 3:
			return "interrupt:software"
		case 7:
			return "interrupt:timer"
		case 11:
			return "interrupt:external"
		default:
			return "interrupt:unknown"
		}
	}
	switch cause {
	case InstructionFault:
		return "exception:instruction_fault"
	case IllegalInstruction:
		return "exception:illegal_instruction"
	case LoadFault:
		return "exception:load_fault"
	case StoreFault:
		return "exception:store_fault"
	case EnvironmentCall:
		return "exception:environment_call"
	default:
		return "exception:unknown"
	}
}
