// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package parser

import (
	"encoding/binary"
	"fmt"
)

// Fixed accumulates exactly n bytes.
type Fixed struct {
	buf []byte
	n   int
}

// NewFixed returns an interpreter for an n byte array.
func NewFixed(n int) *Fixed {
	return &Fixed{buf: make([]byte, n)}
}

func (f *Fixed) Parse(chunk []byte) ([]byte, bool, error) {
	c := copy(f.buf[f.n:], chunk)
	f.n += c
	return chunk[c:], f.n == len(f.buf), nil
}

// Value returns the accumulated bytes. Only meaningful once done.
func (f *Fixed) Value() []byte { return f.buf[:f.n] }

// U32 reads a little-endian uint32.
type U32 struct {
	buf [4]byte
	n   int
}

func (u *U32) Parse(chunk []byte) ([]byte, bool, error) {
	c := copy(u.buf[u.n:], chunk)
	u.n += c
	return chunk[c:], u.n == len(u.buf), nil
}

func (u *U32) Done() bool { return u.n == len(u.buf) }

func (u *U32) Value() uint32 { return binary.LittleEndian.Uint32(u.buf[:]) }

// MaxPathDepth bounds the number of components of a derivation path.
const MaxPathDepth = 10

// Path reads a derivation path: a count byte followed by count
// little-endian uint32 components, at most MaxPathDepth of them.
type Path struct {
	count   int
	started bool
	elems   [MaxPathDepth]uint32
	n       int
	cur     U32
}

func (p *Path) Parse(chunk []byte) ([]byte, bool, error) {
	if !p.started {
		if len(chunk) == 0 {
			return chunk, false, nil
		}
		p.count = int(chunk[0])
		if p.count > MaxPathDepth {
			return nil, false, fmt.Errorf("%w: path depth %d exceeds %d", ErrReject, p.count, MaxPathDepth)
		}
		p.started = true
		chunk = chunk[1:]
	}
	for p.n < p.count {
		var done bool
		chunk, done, _ = p.cur.Parse(chunk)
		if !done {
			return chunk, false, nil
		}
		p.elems[p.n] = p.cur.Value()
		p.n++
		p.cur = U32{}
	}
	return chunk, true, nil
}

// Value returns the path components read so far.
func (p *Path) Value() []uint32 { return p.elems[:p.n] }

// Sequence runs two interpreters one after the other.
type Sequence struct {
	first, second Interp
	firstDone     bool
}

// Seq returns an interpreter that parses first, then second.
func Seq(first, second Interp) *Sequence {
	return &Sequence{first: first, second: second}
}

func (s *Sequence) Parse(chunk []byte) ([]byte, bool, error) {
	if !s.firstDone {
		rest, done, err := s.first.Parse(chunk)
		if err != nil || !done {
			return rest, false, err
		}
		s.firstDone = true
		chunk = rest
	}
	return s.second.Parse(chunk)
}

// Lengthed reads a little-endian uint32 length and then hands exactly that
// many bytes to an inner interpreter. Every byte of the region is passed to
// the observer before the inner interpreter sees it. A nil inner interpreter
// drops the region.
type Lengthed struct {
	length    U32
	remaining uint32
	inner     Interp
	observe   func([]byte) error
	innerDone bool
	done      bool
}

// NewLengthed returns a length-prefixed region parsed by inner.
// inner and observe may be nil.
func NewLengthed(inner Interp, observe func([]byte) error) *Lengthed {
	return &Lengthed{inner: inner, observe: observe}
}

// DropBytes returns a length-prefixed region that is consumed uninterpreted.
func DropBytes(observe func([]byte) error) *Lengthed {
	return NewLengthed(nil, observe)
}

func (l *Lengthed) Parse(chunk []byte) ([]byte, bool, error) {
	if l.done {
		return chunk, true, nil
	}
	if !l.length.Done() {
		var done bool
		chunk, done, _ = l.length.Parse(chunk)
		if !done {
			return chunk, false, nil
		}
		l.remaining = l.length.Value()
	}

	take := len(chunk)
	if uint64(take) > uint64(l.remaining) {
		take = int(l.remaining)
	}
	window := chunk[:take]

	if l.observe != nil && len(window) > 0 {
		if err := l.observe(window); err != nil {
			return nil, false, rejectf(err)
		}
	}
	if l.inner != nil && len(window) > 0 {
		rest, done, err := l.inner.Parse(window)
		if err != nil {
			return nil, false, err
		}
		if len(rest) > 0 {
			return nil, false, fmt.Errorf("%w: value ended %d bytes before its length", ErrMalformed, l.remaining-uint32(take-len(rest)))
		}
		l.innerDone = done
	}
	l.remaining -= uint32(take)
	chunk = chunk[take:]

	if l.remaining > 0 {
		return chunk, false, nil
	}
	if l.inner != nil && !l.innerDone {
		return nil, false, fmt.Errorf("%w: length-prefixed value is incomplete", ErrReject)
	}
	l.done = true
	return chunk, true, nil
}

// Passes runs one interpreter per pass of a block transfer. Each pass
// must end exactly where its parameter ends: bytes left over in the chunk
// that completed a pass, or any data before EndPass moves on, reject.
type Passes struct {
	stages []Interp
	cur    int
	ended  bool
}

// NewPasses returns an interpreter over stages, one per pass.
func NewPasses(stages ...Interp) *Passes {
	return &Passes{stages: stages}
}

func (p *Passes) Parse(chunk []byte) ([]byte, bool, error) {
	if p.cur >= len(p.stages) {
		return chunk, true, nil
	}
	if p.ended {
		if len(chunk) == 0 {
			return chunk, false, nil
		}
		return nil, false, fmt.Errorf("%w: %d bytes after the end of pass %d", ErrReject, len(chunk), p.cur)
	}

	rest, done, err := p.stages[p.cur].Parse(chunk)
	if err != nil || !done {
		return rest, false, err
	}
	if len(rest) > 0 {
		return nil, false, fmt.Errorf("%w: pass %d ended %d bytes before its parameter", ErrReject, p.cur, len(rest))
	}
	if p.cur == len(p.stages)-1 {
		p.cur++
		return rest, true, nil
	}
	p.ended = true
	return rest, false, nil
}

// EndPass moves on to the next pass. It fails unless pass i is the
// current pass and has been parsed completely.
func (p *Passes) EndPass(i int) error {
	if i != p.cur || !p.ended {
		return fmt.Errorf("%w: pass %d ended early", ErrReject, i)
	}
	p.cur++
	p.ended = false
	return nil
}

type action struct {
	inner Interp
	hook  func() error
	fired bool
}

// Action runs hook once inner is done. A hook error rejects the input.
func Action(inner Interp, hook func() error) Interp {
	return &action{inner: inner, hook: hook}
}

func (a *action) Parse(chunk []byte) ([]byte, bool, error) {
	rest, done, err := a.inner.Parse(chunk)
	if err != nil || !done {
		return rest, done, err
	}
	if !a.fired {
		a.fired = true
		if err := a.hook(); err != nil {
			return nil, false, rejectf(err)
		}
	}
	return rest, true, nil
}

type preaction struct {
	hook  func() error
	inner Interp
	fired bool
}

// Preaction runs hook before inner sees its first chunk.
func Preaction(hook func() error, inner Interp) Interp {
	return &preaction{hook: hook, inner: inner}
}

func (p *preaction) Parse(chunk []byte) ([]byte, bool, error) {
	if !p.fired {
		p.fired = true
		if err := p.hook(); err != nil {
			return nil, false, rejectf(err)
		}
	}
	return p.inner.Parse(chunk)
}
