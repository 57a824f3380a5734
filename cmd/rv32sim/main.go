/*
 * rv32sim - Main process.
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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/hartsim/rv32sim/internal/bus"
	"github.com/hartsim/rv32sim/internal/clint"
	"github.com/hartsim/rv32sim/internal/cpu"
	"github.com/hartsim/rv32sim/internal/heximage"
	"github.com/hartsim/rv32sim/internal/machine"
	"github.com/hartsim/rv32sim/internal/plic"
	"github.com/hartsim/rv32sim/internal/rvlog"
	"github.com/hartsim/rv32sim/internal/trace"
	"github.com/hartsim/rv32sim/internal/trap"
	"github.com/hartsim/rv32sim/internal/uart"
)

var Logger *slog.Logger

func main() {
	optHelp := getopt.BoolLong("help", 'h', "Show usage")
	optDebug := getopt.StringLong("debug", 'd', "", "Comma-separated subsystems to trace to stderr (cpu)")
	getopt.SetParameters("hex-image trace-output terminal-in terminal-out")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	args := getopt.Args()
	if len(args) != 4 {
		fmt.Fprintln(os.Stderr, "rv32sim: expected four positional arguments: hex-image trace-output terminal-in terminal-out")
		getopt.Usage()
		os.Exit(1)
	}

	debug := make(map[string]bool)
	for _, s := range strings.Split(*optDebug, ",") {
		if s != "" {
			debug[s] = true
		}
	}
	Logger = slog.New(rvlog.New(os.Stderr, debug))
	slog.SetDefault(Logger)

	imagePath, tracePath, termInPath, termOutPath := args[0], args[1], args[2], args[3]

	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		Logger.Error("cannot open hex image", "path", imagePath, "error", err)
		os.Exit(1)
	}
	traceFile, err := os.Create(tracePath)
	if err != nil {
		Logger.Error("cannot open trace output", "path", tracePath, "error", err)
		os.Exit(1)
	}
	defer traceFile.Close()

	termIn, err := os.Open(termInPath)
	if err != nil {
		Logger.Error("cannot open terminal input", "path", termInPath, "error", err)
		os.Exit(1)
	}
	defer termIn.Close()

	termOut, err := os.OpenFile(termOutPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		Logger.Error("cannot open terminal output", "path", termOutPath, "error", err)
		os.Exit(1)
	}
	defer termOut.Close()

	img, err := heximage.Parse(imageBytes)
	if err != nil {
		Logger.Error("cannot parse hex image", "error", err)
		os.Exit(1)
	}

	m := machine.New()
	heximage.Load(img, m.RAM, machine.RAMBase)
	m.PC = img.PC

	c := clint.New()
	p := plic.New()
	u := uart.New(termIn, termOut)
	b := bus.New(m, c, p, u)
	engine := trap.NewEngine()

	run(m, b, c, p, engine, traceFile, debug)
}

// run is the single-threaded driver loop: tick the timer, refresh
// interrupt-pending bits, select and deliver an interrupt if one is
// ready, otherwise fetch and execute one instruction, then emit
// exactly one trace line for the step.
func run(m *machine.State, b *bus.Bus, c *clint.Clint, p *plic.Plic, engine *trap.Engine, traceOut *os.File, debug map[string]bool) {
	w := newLineWriter(traceOut)

	for !m.Halted {
		c.Tick()
		c.RefreshMIP(m)
		p.RefreshMIP(m)

		pc := m.PC
		if cause, ok := trap.SelectInterrupt(m); ok {
			trap.Raise(m, cause, 0, pc)
		} else {
			details := cpu.Step(m, b)
			if !m.TrapPending {
				if m.PC == pc {
					m.PC = pc + 4
				}
				w.writeLine(trace.Instruction(pc, details))
				if debug["cpu"] {
					Logger.Debug(details, "subsystem", "cpu", "pc", fmt.Sprintf("0x%08x", pc))
				}
				continue
			}
		}

		if engine.IsDoubleFault(m) {
			w.writeLine(trace.Fatal())
			m.Halted = true
			break
		}
		w.writeLine(trace.Trap(trap.Name(m.Mcause), m.Mcause, m.Mepc, m.Mtval))
		m.TrapPending = false
	}
}

type lineWriter struct{ f *os.File }

func newLineWriter(f *os.File) *lineWriter { return &lineWriter{f: f} }

func (w *lineWriter) writeLine(line string) {
	fmt.Fprintln(w.f, line)
}
