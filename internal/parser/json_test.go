// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package parser

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

// transfer is a small schema used across the JSON interpreter tests.
type transfer struct {
	from, to *String
	chains   []string
	kind     *Tagged
	json     *JSON
}

func newTransfer() *transfer {
	tr := &transfer{from: NewString(16), to: NewString(16)}
	chain := NewString(8)
	tr.kind = NewTagged(
		Variant{Type: "pay", Value: NewObject(
			Field{Name: "from", Value: tr.from},
			Field{Name: "to", Value: tr.to},
		)},
		Variant{Type: "note", Value: &Drop{}},
	)
	tr.json = NewJSON(NewObject(
		Field{Name: "chains", Value: NewArray(TokenAction(chain, func() error {
			tr.chains = append(tr.chains, chain.Value())
			return nil
		}))},
		Field{Name: "memo", Value: &Drop{}},
		Field{Name: "msg", Value: tr.kind},
	))
	return tr
}

const transferDoc = `{"memo":{"a":[1,{"b":null}]},"msg":{"type":"pay","value":{"to":"bob","from":"alice"}},"chains":["0001","0021"]}`

func TestObjectSchema(t *testing.T) {
	tr := newTransfer()
	out, err := Run(tr.json, []byte(transferDoc))
	if out != Done {
		t.Fatalf("outcome = %s (%v)", out, err)
	}
	if tr.from.Value() != "alice" || tr.to.Value() != "bob" {
		t.Errorf("from=%q to=%q", tr.from.Value(), tr.to.Value())
	}
	if !slices.Equal(tr.chains, []string{"0001", "0021"}) {
		t.Errorf("chains = %q", tr.chains)
	}
	if tr.kind.Selected() != "pay" {
		t.Errorf("selected = %q", tr.kind.Selected())
	}
}

func TestObjectSchemaChunkSplits(t *testing.T) {
	doc := []byte(transferDoc)
	for cut := 1; cut < len(doc); cut++ {
		tr := newTransfer()
		out, err := feed(t, tr.json, doc[:cut], doc[cut:])
		if out != Done {
			t.Fatalf("split at %d: outcome %s (%v)", cut, out, err)
		}
		if tr.from.Value() != "alice" || !slices.Equal(tr.chains, []string{"0001", "0021"}) {
			t.Fatalf("split at %d: from=%q chains=%q", cut, tr.from.Value(), tr.chains)
		}
	}

	tr := newTransfer()
	if out, err := feed(t, tr.json, bytewise(doc)...); out != Done {
		t.Fatalf("bytewise: outcome %s (%v)", out, err)
	}
}

func TestObjectSchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Outcome
	}{
		{"unknown member", `{"memo":1,"msg":{"type":"note","value":1},"chains":[],"extra":1}`, Reject},
		{"duplicate member", `{"memo":1,"memo":2,"msg":{"type":"note","value":1},"chains":[]}`, Reject},
		{"missing member", `{"memo":1,"msg":{"type":"note","value":1}}`, Reject},
		{"unknown type", `{"memo":1,"msg":{"type":"burn","value":1},"chains":[]}`, Reject},
		{"value before type", `{"memo":1,"msg":{"value":1,"type":"note"},"chains":[]}`, Reject},
		{"string too long", `{"memo":1,"msg":{"type":"pay","value":{"from":"0123456789abcdefX","to":""}},"chains":[]}`, Reject},
		{"wrong kind", `{"memo":1,"msg":{"type":"note","value":1},"chains":{}}`, Reject},
		{"missing comma", `{"memo":1 "msg":{"type":"note","value":1},"chains":[]}`, Reject},
		{"trailing comma in array", `{"memo":1,"msg":{"type":"note","value":1},"chains":["a",]}`, Reject},
		{"trailing bytes", `{"memo":1,"msg":{"type":"note","value":1},"chains":[]} `, Malformed},
		{"trailing value", `{"memo":1,"msg":{"type":"note","value":1},"chains":[]}{}`, Malformed},
		{"empty array", `{"memo":1,"msg":{"type":"note","value":1},"chains":[]}`, Done},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTransfer()
			out, err := Run(tr.json, []byte(tt.doc))
			if out != tt.want {
				t.Errorf("outcome = %s (%v), want %s", out, err, tt.want)
			}
		})
	}
}

func TestDrop(t *testing.T) {
	tests := []struct {
		doc  string
		want Outcome
	}{
		{`"x"`, Done},
		{`true`, Done},
		{`[]`, Done},
		{`{"a":[1,2,{"b":"c"}],"d":{}}`, Done},
		{`[}`, Reject},
		{`]`, Reject},
		{`,`, Reject},
		{`{"a":1`, NeedMore},
		{strings.Repeat("[", maxDropDepth) + strings.Repeat("]", maxDropDepth), Done},
		{strings.Repeat("[", maxDropDepth+1), Reject},
	}
	for _, tt := range tests {
		name := tt.doc
		if len(name) > 20 {
			name = name[:20]
		}
		t.Run(name, func(t *testing.T) {
			out, err := Run(NewJSON(&Drop{}), []byte(tt.doc))
			if out != tt.want {
				t.Errorf("outcome = %s (%v), want %s", out, err, tt.want)
			}
		})
	}
}

func TestTokenHooks(t *testing.T) {
	var events []string
	inner := NewString(10)
	interp := TokenPreaction(func() error {
		events = append(events, "pre")
		return nil
	}, TokenAction(inner, func() error {
		events = append(events, "post:"+inner.Value())
		return nil
	}))

	j := NewJSON(interp)
	if out, err := feed(t, j, bytewise([]byte(`"hello"`))...); out != Done {
		t.Fatalf("outcome %s (%v)", out, err)
	}
	if want := []string{"pre", "post:hello"}; !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestTokenHookRejects(t *testing.T) {
	refused := errors.New("refused")
	j := NewJSON(TokenAction(NewString(4), func() error { return refused }))
	out, err := Run(j, []byte(`"ab"`))
	if out != Reject || !errors.Is(err, refused) || !errors.Is(err, ErrReject) {
		t.Errorf("outcome %s err %v", out, err)
	}
}

func TestArrayResetsElement(t *testing.T) {
	var got []string
	elem := NewObject(Field{Name: "id", Value: NewString(4)})
	id := elem.fields[0].Value.(*String)
	arr := NewArray(TokenAction(elem, func() error {
		got = append(got, id.Value())
		return nil
	}))
	out, err := Run(NewJSON(arr), []byte(`[{"id":"a"},{"id":"bb"},{"id":"c"}]`))
	if out != Done {
		t.Fatalf("outcome %s (%v)", out, err)
	}
	if !slices.Equal(got, []string{"a", "bb", "c"}) {
		t.Errorf("got %q", got)
	}
	if arr.Len() != 3 {
		t.Errorf("Len() = %d", arr.Len())
	}
}
