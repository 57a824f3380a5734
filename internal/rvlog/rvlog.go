/*
 * rv32sim - Wrapper for slog
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

// Package rvlog provides the simulator's ambient diagnostic logger:
// startup messages, file-open failures, and -d/--debug=OPTS tracing
// of the subsystems named on the command line. It is never used for
// the instruction/trap execution trace, which has its own fixed wire
// format and goes through internal/trace instead.
package rvlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler is an slog.Handler that writes formatted records to an
// optional log file and, for subsystems named in a running debug set,
// also echoes them to stderr.
type Handler struct {
	out   io.Writer
	inner slog.Handler
	mu    *sync.Mutex
	debug map[string]bool
}

// New returns a Handler writing to out (which may be nil to suppress
// the file sink) with the given debug subsystem set; an empty or nil
// set means debug output never echoes to stderr.
func New(out io.Writer, debug map[string]bool) *Handler {
	if out == nil {
		out = io.Discard
	}
	return &Handler{
		out:   out,
		inner: slog.NewTextHandler(out, &slog.HandlerOptions{}),
		mu:    &sync.Mutex{},
		debug: debug,
	}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < slog.LevelInfo && len(h.debug) > 0 {
		return true
	}
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{out: h.out, inner: h.inner.WithAttrs(attrs), mu: h.mu, debug: h.debug}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{out: h.out, inner: h.inner.WithGroup(name), mu: h.mu, debug: h.debug}
}

// subsystem extracts the "subsystem" attribute from a record, if any,
// so Handle can decide whether a debug line should also go to stderr.
func subsystem(r slog.Record) string {
	var s string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "subsystem" {
			s = a.Value.String()
			return false
		}
		return true
	})
	return s
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	fields := []string{r.Time.Format("2006/01/02 15:04:05"), r.Level.String() + ":", r.Message}
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, a.Key+"="+a.Value.String())
		return true
	})
	line := []byte(strings.Join(fields, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.out.Write(line)

	if (r.Level >= slog.LevelWarn || h.debug[subsystem(r)]) && h.out != io.Writer(os.Stderr) {
		os.Stderr.Write(line)
	}
	return err
}
