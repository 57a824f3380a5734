/*
 * rv32sim - Trap engine test cases.
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

package trap

import (
	"testing"

	"github.com/hartsim/rv32sim/internal/machine"
)

func TestRaiseSavesMIEAndClearsIt(t *testing.T) {
	m := machine.New()
	m.Mstatus |= machine.MstatusMIE
	Raise(m, IllegalInstruction, 0xBAD, 0x80000010)

	if m.Mstatus&machine.MstatusMIE != 0 {
		t.Errorf("MIE still set after a trap")
	}
	if m.Mstatus&machine.MstatusMPIE == 0 {
		t.Errorf("MPIE not set to the pre-trap MIE value")
	}
	if m.Mepc != 0x80000010 || m.Mcause != IllegalInstruction || m.Mtval != 0xBAD {
		t.Errorf("mepc/mcause/mtval = 0x%08x/0x%08x/0x%08x, want 0x80000010/2/0xbad", m.Mepc, m.Mcause, m.Mtval)
	}
	if !m.TrapPending {
		t.Errorf("TrapPending not set")
	}
}

func TestRaiseSkipsToEpcPlusFourWithNoHandler(t *testing.T) {
	m := machine.New()
	m.Mtvec = 0
	Raise(m, IllegalInstruction, 0, 0x80000000)
	if m.PC != 0x80000004 {
		t.Errorf("PC = 0x%08x, want 0x80000004 (skip-and-continue)", m.PC)
	}
}

func TestRaiseVectorsToMtvec(t *testing.T) {
	m := machine.New()
	m.Mtvec = 0x80001000
	Raise(m, IllegalInstruction, 0, 0x80000000)
	if m.PC != 0x80001000 {
		t.Errorf("PC = 0x%08x, want 0x80001000", m.PC)
	}
}

func TestSelectInterruptPriority(t *testing.T) {
	m := machine.New()
	m.Mstatus |= machine.MstatusMIE
	m.Mie = machine.MipMSIP | machine.MipMTIP | machine.MipMEIP
	m.Mip = machine.MipMSIP | machine.MipMTIP | machine.MipMEIP

	cause, ok := SelectInterrupt(m)
	if !ok || cause != ExternalInterrupt {
		t.Errorf("SelectInterrupt = 0x%08x,%v, want external interrupt", cause, ok)
	}
}

func TestSelectInterruptRequiresGlobalEnable(t *testing.T) {
	m := machine.New()
	m.Mie = machine.MipMTIP
	m.Mip = machine.MipMTIP
	if _, ok := SelectInterrupt(m); ok {
		t.Errorf("interrupt selected with mstatus.MIE clear")
	}
}

func TestDoubleFaultDetection(t *testing.T) {
	e := NewEngine()
	m := machine.New()
	Raise(m, IllegalInstruction, 0, 0x80000000)
	if e.IsDoubleFault(m) {
		t.Errorf("first trap reported as a double fault")
	}
	Raise(m, IllegalInstruction, 0, 0x80000000)
	if !e.IsDoubleFault(m) {
		t.Errorf("identical consecutive traps not detected as a double fault")
	}
}

func TestTrapNames(t *testing.T) {
	cases := map[uint32]string{
		IllegalInstruction: "exception:illegal_instruction",
		TimerInterrupt:     "interrupt:timer",
		0x80000099:         "interrupt:unknown",
		0x99:               "exception:unknown",
	}
	for cause, want := range cases {
		if got := Name(cause); got != want {
			t.Errorf("Name(0x%08x) = %q, want %q", cause, got, want)
		}
	}
}
