/*
 * rv32sim - Hex memory image parser
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

// Package heximage parses the simulator's hex-text memory image
// format into a set of byte placements and an initial program
// counter. It is a pure function over a byte slice: no file handling,
// no machine state.
package heximage

import "fmt"

// Image is the result of parsing a hex-text memory image: the bytes
// to place in memory, keyed by address, and the initial pc.
type Image struct {
	Bytes map[uint32]byte
	PC    uint32
}

// Parse reads src as a character stream: whitespace anywhere is
// ignored, a '@' begins an address token that runs up to the next
// whitespace and sets the current address (and, on its first
// occurrence, the initial pc), and every other two characters
// encountered are read as one hex byte placed at the current address
// before the address is advanced by one. Byte tokens need not be
// whitespace-delimited from one another or from a following address
// token. If no '@' token appears, placement starts at 0x80000000,
// which is also then the initial pc.
func Parse(src []byte) (*Image, error) {
	img := &Image{Bytes: make(map[uint32]byte), PC: 0x80000000}

	addr := uint32(0x80000000)
	haveAddr := false

	i, n := 0, len(src)
	for i < n {
		if isSpace(src[i]) {
			i++
			continue
		}
		if src[i] == '@' {
			i++
			start := i
			for i < n && !isSpace(src[i]) {
				i++
			}
			tok := string(src[start:i])
			v, err := parseHex32(tok)
			if err != nil {
				return nil, fmt.Errorf("heximage: bad address token %q: %w", tok, err)
			}
			addr = v
			if !haveAddr {
				img.PC = v
				haveAddr = true
			}
			continue
		}
		if i+2 > n {
			return nil, fmt.Errorf("heximage: truncated byte token %q", string(src[i:]))
		}
		tok := string(src[i : i+2])
		v, err := parseHex32(tok)
		if err != nil {
			return nil, fmt.Errorf("heximage: bad byte token %q: %w", tok, err)
		}
		img.Bytes[addr] = byte(v)
		addr++
		i += 2
	}
	return img, nil
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n':
		return true
	default:
		return false
	}
}

func parseHex32(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("empty token")
	}
	var v uint32
	for _, c := range []byte(s) {
		d, ok := hexDigit(c)
		if !ok {
			return 0, fmt.Errorf("not a hex digit: %q", c)
		}
		v = v<<4 | uint32(d)
	}
	return v, nil
}

func hexDigit(c byte) (uint32, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint32(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint32(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint32(c-'A') + 10, true
	default:
		return 0, false
	}
}

// Load applies img's placements to ram, a slice backing RAM at
// physical address base. Bytes whose target address falls outside
// [base, base+len(ram)) are silently discarded, per the format's
// out-of-range rule.
func Load(img *Image, ram []byte, base uint32) {
	size := uint32(len(ram))
	for addr, b := range img.Bytes {
		if addr < base || addr-base >= size {
			continue
		}
		ram[addr-base] = b
	}
}
