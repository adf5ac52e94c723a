// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package pocket

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/shopspring/decimal"

	"github.com/aplane-algo/apledger/internal/keys"
	"github.com/aplane-algo/apledger/internal/parser"
	"github.com/aplane-algo/apledger/internal/prompt"
	"github.com/aplane-algo/apledger/internal/signer"
)

// SignQuestion is the final confirmation of every signing operation.
const SignQuestion = "Sign Transaction?"

// SignContext is the state shared by the stages of one signing operation.
type SignContext struct {
	Signer  *signer.Ed25519
	Address keys.Address

	fees decimal.Decimal
}

// NewSignOperation reads a path, then the transaction twice. The first
// pass shows the transaction and computes the nonce, the second computes
// the challenge. The reply is the 64 byte signature over the JSON bytes.
func NewSignOperation(d Deriver, p prompt.Prompter) *Operation {
	ctx := &SignContext{Signer: signer.New()}
	op := &Operation{erase: ctx.Signer.Erase}
	passes := newPassDigests()

	path := signingPath(ctx, d, p, "Signing")
	first := parser.Action(
		parser.NewLengthed(parser.NewJSON(newCommand(ctx, p)), passes.observe(0, ctx.Signer.Update)),
		ctx.Signer.DoneWithR,
	)
	second := parser.Action(
		parser.NewLengthed(parser.NewJSON(&parser.Drop{}), passes.observe(1, ctx.Signer.Update)),
		func() error {
			if err := passes.check(); err != nil {
				return err
			}
			return finish(op, ctx, p)
		},
	)
	op.root = parser.NewPasses(path, first, second)
	return op
}

// NewBlindSignOperation signs a transaction without interpreting it. The
// user is shown the SHA-256 of the transaction bytes instead.
func NewBlindSignOperation(d Deriver, p prompt.Prompter) *Operation {
	ctx := &SignContext{Signer: signer.New()}
	op := &Operation{erase: ctx.Signer.Erase}
	passes := newPassDigests()

	path := signingPath(ctx, d, p, "Blind Signing")
	first := parser.Action(
		parser.DropBytes(passes.observe(0, ctx.Signer.Update)),
		ctx.Signer.DoneWithR,
	)
	second := parser.Action(
		parser.DropBytes(passes.observe(1, ctx.Signer.Update)),
		func() error {
			if err := passes.check(); err != nil {
				return err
			}
			if err := p.Show(prompt.Screen{Title: "Transaction hash", Body: hex.EncodeToString(passes.sum(0))}); err != nil {
				return err
			}
			return finish(op, ctx, p)
		},
	)
	op.root = parser.NewPasses(path, first, second)
	return op
}

// passDigests hashes the transaction bytes of both passes. The signature
// commits to the second pass, so it must repeat the first byte for byte.
type passDigests struct {
	h [2]hash.Hash
}

func newPassDigests() *passDigests {
	return &passDigests{h: [2]hash.Hash{sha256.New(), sha256.New()}}
}

func (d *passDigests) observe(pass int, next func([]byte) error) func([]byte) error {
	return func(b []byte) error {
		d.h[pass].Write(b)
		return next(b)
	}
}

func (d *passDigests) sum(pass int) []byte { return d.h[pass].Sum(nil) }

func (d *passDigests) check() error {
	if !bytes.Equal(d.sum(0), d.sum(1)) {
		return fmt.Errorf("%w: transaction changed between passes", parser.ErrReject)
	}
	return nil
}

func signingPath(ctx *SignContext, d Deriver, p prompt.Prompter, kind string) parser.Interp {
	path := &parser.Path{}
	return parser.Action(path, func() error {
		key, err := d.Derive(path.Value())
		if err != nil {
			return fmt.Errorf("derive key: %w", err)
		}
		ctx.Address = key.Address()
		if err := ctx.Signer.Init(key); err != nil {
			key.Erase()
			return err
		}
		if err := p.Show(prompt.Screen{Title: kind, Body: "Transaction"}); err != nil {
			return err
		}
		return p.Show(prompt.Screen{Title: "For Account", Body: ctx.Address.String()})
	})
}

func finish(op *Operation, ctx *SignContext, p prompt.Prompter) error {
	if err := p.Confirm(SignQuestion); err != nil {
		return err
	}
	sig, err := ctx.Signer.Finalize()
	if err != nil {
		return err
	}
	op.finish(sig[:])
	return nil
}
