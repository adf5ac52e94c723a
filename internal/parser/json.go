// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package parser

import "fmt"

// TokenInterp consumes JSON tokens for one value.
// Token returns done once the value is complete. Reset prepares the
// interpreter for another value, which arrays rely on.
type TokenInterp interface {
	Token(tok Token) (done bool, err error)
	Reset()
}

// JSON adapts a TokenInterp to raw bytes. It stops consuming right after
// the root value, so anything that follows is left to the caller.
type JSON struct {
	lex  Lexer
	root TokenInterp
	done bool
}

// NewJSON returns a byte interpreter for one JSON value read by root.
func NewJSON(root TokenInterp) *JSON {
	return &JSON{root: root}
}

func (j *JSON) Parse(chunk []byte) ([]byte, bool, error) {
	if j.done {
		return chunk, true, nil
	}
	n, err := j.lex.Feed(chunk, func(tok Token) (bool, error) {
		done, err := j.root.Token(tok)
		if err != nil {
			return false, err
		}
		j.done = done
		return done, nil
	})
	if err != nil {
		return nil, false, err
	}
	return chunk[n:], j.done, nil
}

func unexpected(tok Token, want string) error {
	return fmt.Errorf("%w: unexpected %s, want %s", ErrReject, tok.Kind, want)
}

// maxDropDepth bounds the nesting of values skipped by Drop.
const maxDropDepth = 64

// Drop skips any JSON value.
type Drop struct {
	stack [maxDropDepth]Kind
	depth int
	done  bool
}

func (d *Drop) Token(tok Token) (bool, error) {
	if d.done {
		return false, unexpected(tok, "end of value")
	}
	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		if d.depth == maxDropDepth {
			return false, fmt.Errorf("%w: nesting deeper than %d", ErrReject, maxDropDepth)
		}
		closer := KindEndObject
		if tok.Kind == KindBeginArray {
			closer = KindEndArray
		}
		d.stack[d.depth] = closer
		d.depth++
		return false, nil
	case KindEndObject, KindEndArray:
		if d.depth == 0 || d.stack[d.depth-1] != tok.Kind {
			return false, unexpected(tok, "value")
		}
		d.depth--
	case KindNameSeparator, KindValueSeparator:
		if d.depth == 0 {
			return false, unexpected(tok, "value")
		}
		return false, nil
	default:
		if tok.Partial {
			return false, nil
		}
	}
	d.done = d.depth == 0
	return d.done, nil
}

func (d *Drop) Reset() { *d = Drop{} }

// String accumulates a JSON string of at most a fixed number of bytes.
type String struct {
	buf  []byte
	n    int
	done bool
}

// NewString returns a string accumulator with the given capacity.
func NewString(capacity int) *String {
	return &String{buf: make([]byte, capacity)}
}

func (s *String) Token(tok Token) (bool, error) {
	if tok.Kind != KindString || s.done {
		return false, unexpected(tok, "string")
	}
	if s.n+len(tok.Data) > len(s.buf) {
		return false, fmt.Errorf("%w: string longer than %d bytes", ErrReject, len(s.buf))
	}
	s.n += copy(s.buf[s.n:], tok.Data)
	s.done = !tok.Partial
	return s.done, nil
}

func (s *String) Reset() {
	s.n = 0
	s.done = false
}

// Bytes returns the accumulated string bytes.
func (s *String) Bytes() []byte { return s.buf[:s.n] }

func (s *String) Value() string { return string(s.buf[:s.n]) }

type arrayState uint8

const (
	arrayStart arrayState = iota
	arrayFirst
	arrayElem
	arrayAfterElem
	arrayAfterComma
	arrayDone
)

// Array reads a JSON array whose elements are all read by one interpreter.
type Array struct {
	elem  TokenInterp
	state arrayState
	count int
}

// NewArray returns an array of values read by elem.
func NewArray(elem TokenInterp) *Array {
	return &Array{elem: elem}
}

func (a *Array) Token(tok Token) (bool, error) {
	switch a.state {
	case arrayStart:
		if tok.Kind != KindBeginArray {
			return false, unexpected(tok, "'['")
		}
		a.state = arrayFirst
		return false, nil
	case arrayFirst:
		if tok.Kind == KindEndArray {
			a.state = arrayDone
			return true, nil
		}
		return a.startElem(tok)
	case arrayAfterComma:
		return a.startElem(tok)
	case arrayElem:
		return a.feedElem(tok)
	case arrayAfterElem:
		switch tok.Kind {
		case KindValueSeparator:
			a.state = arrayAfterComma
			return false, nil
		case KindEndArray:
			a.state = arrayDone
			return true, nil
		}
		return false, unexpected(tok, "',' or ']'")
	}
	return false, unexpected(tok, "end of array")
}

func (a *Array) startElem(tok Token) (bool, error) {
	a.elem.Reset()
	a.state = arrayElem
	return a.feedElem(tok)
}

func (a *Array) feedElem(tok Token) (bool, error) {
	done, err := a.elem.Token(tok)
	if err != nil {
		return false, err
	}
	if done {
		a.count++
		a.state = arrayAfterElem
	}
	return false, nil
}

func (a *Array) Reset() {
	a.state = arrayStart
	a.count = 0
	a.elem.Reset()
}

// Len returns the number of elements read.
func (a *Array) Len() int { return a.count }

// Field names one member of an Object.
type Field struct {
	Name  string
	Value TokenInterp
}

type objectState uint8

const (
	objectStart objectState = iota
	objectFirstKey
	objectKey
	objectInKey
	objectColon
	objectValue
	objectAfterValue
	objectDone
)

// maxKeyLen bounds the length of object member names.
const maxKeyLen = 32

// Object reads a JSON object with a fixed set of members in any order.
// Unknown and duplicate members reject, as does a missing one at '}'.
type Object struct {
	fields  []Field
	seen    []bool
	state   objectState
	key     [maxKeyLen]byte
	keyLen  int
	current int
}

// NewObject returns an object made of fields.
func NewObject(fields ...Field) *Object {
	return &Object{fields: fields, seen: make([]bool, len(fields))}
}

func (o *Object) Token(tok Token) (bool, error) {
	switch o.state {
	case objectStart:
		if tok.Kind != KindBeginObject {
			return false, unexpected(tok, "'{'")
		}
		o.state = objectFirstKey
		return false, nil

	case objectFirstKey, objectKey:
		if tok.Kind == KindEndObject && o.state == objectFirstKey {
			return o.finish()
		}
		if tok.Kind != KindString {
			return false, unexpected(tok, "member name")
		}
		o.keyLen = 0
		o.state = objectInKey
		return o.keyFragment(tok)

	case objectInKey:
		if tok.Kind != KindString {
			return false, unexpected(tok, "member name")
		}
		return o.keyFragment(tok)

	case objectColon:
		if tok.Kind != KindNameSeparator {
			return false, unexpected(tok, "':'")
		}
		o.state = objectValue
		return false, nil

	case objectValue:
		done, err := o.fields[o.current].Value.Token(tok)
		if err != nil {
			return false, fmt.Errorf("%s: %w", o.fields[o.current].Name, err)
		}
		if done {
			o.state = objectAfterValue
		}
		return false, nil

	case objectAfterValue:
		switch tok.Kind {
		case KindValueSeparator:
			o.state = objectKey
			return false, nil
		case KindEndObject:
			return o.finish()
		}
		return false, unexpected(tok, "',' or '}'")
	}
	return false, unexpected(tok, "end of object")
}

func (o *Object) keyFragment(tok Token) (bool, error) {
	if o.keyLen+len(tok.Data) > len(o.key) {
		return false, fmt.Errorf("%w: unknown member name", ErrReject)
	}
	o.keyLen += copy(o.key[o.keyLen:], tok.Data)
	if tok.Partial {
		return false, nil
	}

	name := o.key[:o.keyLen]
	for i, f := range o.fields {
		if string(name) != f.Name {
			continue
		}
		if o.seen[i] {
			return false, fmt.Errorf("%w: duplicate member %q", ErrReject, f.Name)
		}
		o.seen[i] = true
		o.current = i
		o.state = objectColon
		return false, nil
	}
	return false, fmt.Errorf("%w: unknown member %q", ErrReject, name)
}

func (o *Object) finish() (bool, error) {
	for i, f := range o.fields {
		if !o.seen[i] {
			return false, fmt.Errorf("%w: missing member %q", ErrReject, f.Name)
		}
	}
	o.state = objectDone
	return true, nil
}

func (o *Object) Reset() {
	o.state = objectStart
	o.keyLen = 0
	for i := range o.seen {
		o.seen[i] = false
	}
	for _, f := range o.fields {
		f.Value.Reset()
	}
}

// Variant is one alternative of a Tagged value.
type Variant struct {
	Type  string
	Value TokenInterp
}

type taggedState uint8

const (
	taggedStart taggedState = iota
	taggedTypeKey
	taggedTypeColon
	taggedType
	taggedComma
	taggedValueKey
	taggedValueColon
	taggedValue
	taggedEnd
	taggedDone
)

// maxTypeLen bounds the length of a variant type name.
const maxTypeLen = 64

// Tagged reads {"type": T, "value": V}, where T selects the interpreter for
// V. The members must appear in that order.
type Tagged struct {
	variants []Variant
	state    taggedState
	key      *String
	typ      *String
	selected int
}

// NewTagged returns a tagged union over variants.
func NewTagged(variants ...Variant) *Tagged {
	return &Tagged{
		variants: variants,
		key:      NewString(len("value")),
		typ:      NewString(maxTypeLen),
		selected: -1,
	}
}

func (t *Tagged) Token(tok Token) (bool, error) {
	switch t.state {
	case taggedStart:
		if tok.Kind != KindBeginObject {
			return false, unexpected(tok, "'{'")
		}
		t.key.Reset()
		t.state = taggedTypeKey
	case taggedTypeKey:
		done, err := t.member(tok, "type")
		if err != nil || !done {
			return false, err
		}
		t.state = taggedTypeColon
	case taggedTypeColon, taggedValueColon:
		if tok.Kind != KindNameSeparator {
			return false, unexpected(tok, "':'")
		}
		t.state++
	case taggedType:
		done, err := t.typ.Token(tok)
		if err != nil {
			return false, fmt.Errorf("type: %w", err)
		}
		if !done {
			return false, nil
		}
		if err := t.selectVariant(); err != nil {
			return false, err
		}
		t.state = taggedComma
	case taggedComma:
		if tok.Kind != KindValueSeparator {
			return false, unexpected(tok, "','")
		}
		t.key.Reset()
		t.state = taggedValueKey
	case taggedValueKey:
		done, err := t.member(tok, "value")
		if err != nil || !done {
			return false, err
		}
		t.state = taggedValueColon
	case taggedValue:
		v := t.variants[t.selected]
		done, err := v.Value.Token(tok)
		if err != nil {
			return false, fmt.Errorf("%s: %w", v.Type, err)
		}
		if done {
			t.state = taggedEnd
		}
	case taggedEnd:
		if tok.Kind != KindEndObject {
			return false, unexpected(tok, "'}'")
		}
		t.state = taggedDone
		return true, nil
	default:
		return false, unexpected(tok, "end of value")
	}
	return false, nil
}

func (t *Tagged) member(tok Token, want string) (bool, error) {
	done, err := t.key.Token(tok)
	if err != nil {
		return false, fmt.Errorf("%w: want member %q", ErrReject, want)
	}
	if done && t.key.Value() != want {
		return false, fmt.Errorf("%w: want member %q, got %q", ErrReject, want, t.key.Value())
	}
	return done, nil
}

func (t *Tagged) selectVariant() error {
	for i, v := range t.variants {
		if string(t.typ.Bytes()) == v.Type {
			t.selected = i
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported type %q", ErrReject, t.typ.Value())
}

// Selected returns the type name of the chosen variant, or "" before it is known.
func (t *Tagged) Selected() string {
	if t.selected < 0 {
		return ""
	}
	return t.variants[t.selected].Type
}

func (t *Tagged) Reset() {
	t.state = taggedStart
	t.selected = -1
	t.key.Reset()
	t.typ.Reset()
	for _, v := range t.variants {
		v.Value.Reset()
	}
}

type tokenAction struct {
	inner TokenInterp
	hook  func() error
}

// TokenAction runs hook when inner completes. A hook error rejects.
func TokenAction(inner TokenInterp, hook func() error) TokenInterp {
	return &tokenAction{inner: inner, hook: hook}
}

func (a *tokenAction) Token(tok Token) (bool, error) {
	done, err := a.inner.Token(tok)
	if err != nil || !done {
		return false, err
	}
	if err := a.hook(); err != nil {
		return false, rejectf(err)
	}
	return true, nil
}

func (a *tokenAction) Reset() { a.inner.Reset() }

type tokenPreaction struct {
	hook  func() error
	inner TokenInterp
	fired bool
}

// TokenPreaction runs hook before inner sees its first token.
func TokenPreaction(hook func() error, inner TokenInterp) TokenInterp {
	return &tokenPreaction{hook: hook, inner: inner}
}

func (p *tokenPreaction) Token(tok Token) (bool, error) {
	if !p.fired {
		p.fired = true
		if err := p.hook(); err != nil {
			return false, rejectf(err)
		}
	}
	return p.inner.Token(tok)
}

func (p *tokenPreaction) Reset() {
	p.fired = false
	p.inner.Reset()
}
