// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package parser

import (
	"fmt"
	"unicode/utf8"
)

// Kind identifies a JSON token.
type Kind uint8

const (
	KindBeginObject Kind = iota + 1
	KindEndObject
	KindBeginArray
	KindEndArray
	KindNameSeparator
	KindValueSeparator
	KindString
	KindNumber
	KindTrue
	KindFalse
	KindNull
)

var kindNames = [...]string{
	KindBeginObject:    "'{'",
	KindEndObject:      "'}'",
	KindBeginArray:     "'['",
	KindEndArray:       "']'",
	KindNameSeparator:  "':'",
	KindValueSeparator: "','",
	KindString:         "string",
	KindNumber:         "number",
	KindTrue:           "true",
	KindFalse:          "false",
	KindNull:           "null",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// scalar reports whether the kind is a complete value on its own.
func (k Kind) scalar() bool {
	switch k {
	case KindString, KindNumber, KindTrue, KindFalse, KindNull:
		return true
	}
	return false
}

// Token is one lexical unit. Strings and numbers may arrive in several
// fragments: every fragment but the last has Partial set. Data holds the
// decoded bytes of the fragment and is only valid during the callback.
type Token struct {
	Kind    Kind
	Data    []byte
	Partial bool
}

type lexState uint8

const (
	lexValue lexState = iota
	lexString
	lexEscape
	lexUnicode
	lexNumber
	lexLiteral
)

type numState uint8

const (
	numMinus numState = iota
	numZero
	numInt
	numDot
	numFrac
	numExp
	numExpSign
	numExpDigits
)

func (s numState) accepting() bool {
	return s == numZero || s == numInt || s == numFrac || s == numExpDigits
}

const (
	surrogateMin     = 0xD800
	highSurrogateMax = 0xDBFF
	lowSurrogateMin  = 0xDC00
	surrogateMax     = 0xDFFF
)

// Lexer is a resumable JSON tokenizer. Input may be split at any byte.
type Lexer struct {
	state lexState

	scratch [64]byte
	n       int

	hex       rune
	hexDigits int
	high      rune

	num numState

	lit     string
	litPos  int
	litKind Kind
}

type emitFunc func(Token) (stop bool, err error)

// Feed tokenizes chunk, calling emit for every token. It returns the number
// of bytes consumed, which is less than len(chunk) only when emit asked to
// stop or an error occurred.
func (l *Lexer) Feed(chunk []byte, emit emitFunc) (int, error) {
	for i := 0; i < len(chunk); i++ {
		c := chunk[i]
		stop, reprocess, err := l.step(c, emit)
		if err != nil {
			return i, err
		}
		if reprocess {
			i--
			if stop {
				return i + 1, nil
			}
			continue
		}
		if stop {
			return i + 1, nil
		}
	}
	return len(chunk), l.flush(emit)
}

// step handles one byte. reprocess means c ended a number without being
// part of it and must be examined again in the value state.
func (l *Lexer) step(c byte, emit emitFunc) (stop, reprocess bool, err error) {
	switch l.state {
	case lexValue:
		stop, err = l.value(c, emit)
		return stop, false, err

	case lexString:
		switch {
		case c == '"':
			if err := l.endSurrogate(emit); err != nil {
				return false, false, err
			}
			l.state = lexValue
			stop, err = l.emitScratch(KindString, false, emit)
			return stop, false, err
		case c == '\\':
			l.state = lexEscape
		case c < 0x20:
			return false, false, fmt.Errorf("%w: control character 0x%02x in string", ErrReject, c)
		default:
			if err := l.endSurrogate(emit); err != nil {
				return false, false, err
			}
			err = l.appendByte(c, emit)
		}
		return false, false, err

	case lexEscape:
		if c == 'u' {
			l.state = lexUnicode
			l.hex, l.hexDigits = 0, 0
			return false, false, nil
		}
		var b byte
		switch c {
		case '"', '\\', '/':
			b = c
		case 'b':
			b = '\b'
		case 'f':
			b = '\f'
		case 'n':
			b = '\n'
		case 'r':
			b = '\r'
		case 't':
			b = '\t'
		default:
			return false, false, fmt.Errorf("%w: invalid escape '\\%c'", ErrReject, c)
		}
		if err := l.endSurrogate(emit); err != nil {
			return false, false, err
		}
		l.state = lexString
		return false, false, l.appendByte(b, emit)

	case lexUnicode:
		d, ok := hexValue(c)
		if !ok {
			return false, false, fmt.Errorf("%w: invalid hex digit '%c' in \\u escape", ErrReject, c)
		}
		l.hex = l.hex<<4 | d
		l.hexDigits++
		if l.hexDigits < 4 {
			return false, false, nil
		}
		l.state = lexString
		return false, false, l.unicode(l.hex, emit)

	case lexNumber:
		if l.numStep(c) {
			return false, false, l.appendByte(c, emit)
		}
		if !l.num.accepting() {
			return false, false, fmt.Errorf("%w: incomplete number before '%c'", ErrReject, c)
		}
		l.state = lexValue
		stop, err = l.emitScratch(KindNumber, false, emit)
		return stop, true, err

	case lexLiteral:
		if c != l.lit[l.litPos] {
			return false, false, fmt.Errorf("%w: invalid literal, expected %q", ErrReject, l.lit)
		}
		l.litPos++
		if l.litPos < len(l.lit) {
			return false, false, nil
		}
		l.state = lexValue
		stop, err = emit(Token{Kind: l.litKind})
		return stop, false, err
	}
	return false, false, fmt.Errorf("%w: lexer in unknown state", ErrReject)
}

func (l *Lexer) value(c byte, emit emitFunc) (bool, error) {
	switch c {
	case ' ', '\t', '\n', '\r':
		return false, nil
	case '{':
		return emit(Token{Kind: KindBeginObject})
	case '}':
		return emit(Token{Kind: KindEndObject})
	case '[':
		return emit(Token{Kind: KindBeginArray})
	case ']':
		return emit(Token{Kind: KindEndArray})
	case ':':
		return emit(Token{Kind: KindNameSeparator})
	case ',':
		return emit(Token{Kind: KindValueSeparator})
	case '"':
		l.state = lexString
		l.n = 0
		l.high = 0
		return false, nil
	case 't':
		l.startLiteral("true", KindTrue)
		return false, nil
	case 'f':
		l.startLiteral("false", KindFalse)
		return false, nil
	case 'n':
		l.startLiteral("null", KindNull)
		return false, nil
	}
	if c == '-' || (c >= '0' && c <= '9') {
		l.state = lexNumber
		l.n = 0
		switch {
		case c == '-':
			l.num = numMinus
		case c == '0':
			l.num = numZero
		default:
			l.num = numInt
		}
		return false, l.appendByte(c, emit)
	}
	return false, fmt.Errorf("%w: unexpected character 0x%02x", ErrReject, c)
}

func (l *Lexer) startLiteral(lit string, kind Kind) {
	l.state = lexLiteral
	l.lit = lit
	l.litPos = 1
	l.litKind = kind
}

// numStep advances the number automaton and reports whether c belongs to
// the number.
func (l *Lexer) numStep(c byte) bool {
	digit := c >= '0' && c <= '9'
	switch l.num {
	case numMinus:
		switch {
		case c == '0':
			l.num = numZero
		case digit:
			l.num = numInt
		default:
			return false
		}
	case numZero, numInt:
		switch {
		case digit && l.num == numInt:
			l.num = numInt
		case c == '.':
			l.num = numDot
		case c == 'e' || c == 'E':
			l.num = numExp
		default:
			return false
		}
	case numDot, numFrac:
		switch {
		case digit:
			l.num = numFrac
		case (c == 'e' || c == 'E') && l.num == numFrac:
			l.num = numExp
		default:
			return false
		}
	case numExp:
		switch {
		case c == '+' || c == '-':
			l.num = numExpSign
		case digit:
			l.num = numExpDigits
		default:
			return false
		}
	case numExpSign, numExpDigits:
		if !digit {
			return false
		}
		l.num = numExpDigits
	}
	return true
}

func (l *Lexer) unicode(r rune, emit emitFunc) error {
	if l.high != 0 {
		if r >= lowSurrogateMin && r <= surrogateMax {
			combined := 0x10000 + (l.high-surrogateMin)<<10 + (r - lowSurrogateMin)
			l.high = 0
			return l.appendRune(combined, emit)
		}
		if err := l.endSurrogate(emit); err != nil {
			return err
		}
	}
	switch {
	case r >= surrogateMin && r <= highSurrogateMax:
		l.high = r
		return nil
	case r >= lowSurrogateMin && r <= surrogateMax:
		return l.appendRune(utf8.RuneError, emit)
	default:
		return l.appendRune(r, emit)
	}
}

// endSurrogate replaces an unpaired high surrogate with U+FFFD.
func (l *Lexer) endSurrogate(emit emitFunc) error {
	if l.high == 0 {
		return nil
	}
	l.high = 0
	return l.appendRune(utf8.RuneError, emit)
}

func (l *Lexer) appendRune(r rune, emit emitFunc) error {
	if l.n+utf8.UTFMax > len(l.scratch) {
		if _, err := l.emitScratch(KindString, true, emit); err != nil {
			return err
		}
	}
	l.n += utf8.EncodeRune(l.scratch[l.n:], r)
	return nil
}

func (l *Lexer) appendByte(b byte, emit emitFunc) error {
	if l.n == len(l.scratch) {
		kind := KindString
		if l.state == lexNumber {
			kind = KindNumber
		}
		if _, err := l.emitScratch(kind, true, emit); err != nil {
			return err
		}
	}
	l.scratch[l.n] = b
	l.n++
	return nil
}

func (l *Lexer) emitScratch(kind Kind, partial bool, emit emitFunc) (bool, error) {
	tok := Token{Kind: kind, Data: l.scratch[:l.n], Partial: partial}
	l.n = 0
	return emit(tok)
}

// flush hands buffered string or number bytes to emit at a chunk boundary.
func (l *Lexer) flush(emit emitFunc) error {
	if l.n == 0 {
		return nil
	}
	switch l.state {
	case lexString, lexEscape, lexUnicode:
		_, err := l.emitScratch(KindString, true, emit)
		return err
	case lexNumber:
		_, err := l.emitScratch(KindNumber, true, emit)
		return err
	}
	return nil
}

func hexValue(c byte) (rune, bool) {
	switch {
	case c >= '0' && c <= '9':
		return rune(c - '0'), true
	case c >= 'a' && c <= 'f':
		return rune(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return rune(c-'A') + 10, true
	}
	return 0, false
}
