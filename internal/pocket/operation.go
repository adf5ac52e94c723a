// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package pocket holds the POKT schemas of the device: the address request,
// the signing request with its transaction prompts, and blind signing.
//
// Each constructor returns an Operation, a resumable parse of the
// operation's parameters in the order the block transfer delivers them.
package pocket

import (
	"fmt"
	"unicode/utf8"

	"github.com/aplane-algo/apledger/internal/keys"
	"github.com/aplane-algo/apledger/internal/parser"
	"github.com/aplane-algo/apledger/internal/prompt"
)

// Deriver derives the expanded key for a BIP32 path.
type Deriver interface {
	Derive(path []uint32) (*keys.ExpandedKey, error)
}

// Operation is the parse of one device request.
type Operation struct {
	root   *parser.Passes
	result []byte
	done   bool
	erase  func()
}

func (o *Operation) Parse(chunk []byte) ([]byte, bool, error) {
	return o.root.Parse(chunk)
}

// EndPass is called when pass i of the block transfer has been delivered.
func (o *Operation) EndPass(i int) error {
	return o.root.EndPass(i)
}

// Result returns the reply once the operation has produced one.
func (o *Operation) Result() ([]byte, bool) {
	return o.result, o.done
}

// Erase discards the operation's secrets. It is safe to call more than once.
func (o *Operation) Erase() {
	if o.erase != nil {
		o.erase()
	}
}

func (o *Operation) finish(result []byte) {
	o.result = result
	o.done = true
}

// addressReplySize is len(pub) || pub || len(addr) || addr.
const addressReplySize = 1 + keys.PublicKeySize + 1 + keys.AddressSize

// NewAddressOperation reads a derivation path and replies with the public
// key and address for it. With verify set the user must confirm the
// address first.
func NewAddressOperation(d Deriver, p prompt.Prompter, verify bool) *Operation {
	op := &Operation{}
	path := &parser.Path{}
	op.root = parser.NewPasses(parser.Action(path, func() error {
		key, err := d.Derive(path.Value())
		if err != nil {
			return fmt.Errorf("derive key: %w", err)
		}
		defer key.Erase()

		addr := key.Address()
		if verify {
			if err := p.Show(prompt.Screen{Title: "Provide Public Key", Body: "For Address"}); err != nil {
				return err
			}
			if err := p.Show(prompt.Screen{Title: "Address", Body: addr.String()}); err != nil {
				return err
			}
			if err := p.Confirm("Provide Public Key?"); err != nil {
				return err
			}
		}

		reply := make([]byte, 0, addressReplySize)
		reply = append(reply, keys.PublicKeySize)
		reply = append(reply, key.Public()...)
		reply = append(reply, keys.AddressSize)
		reply = append(reply, addr[:]...)
		op.finish(reply)
		return nil
	}))
	return op
}

// showString accumulates a string of at most capacity bytes and shows it
// under title.
func showString(p prompt.Prompter, title string, capacity int) parser.TokenInterp {
	s := parser.NewString(capacity)
	return parser.TokenAction(s, func() error {
		body, err := text(s)
		if err != nil {
			return err
		}
		return p.Show(prompt.Screen{Title: title, Body: body})
	})
}

// text returns the accumulated string, rejecting bytes that are not UTF-8.
func text(s *parser.String) (string, error) {
	if !utf8.Valid(s.Bytes()) {
		return "", fmt.Errorf("%w: string is not valid UTF-8", parser.ErrReject)
	}
	return s.Value(), nil
}
