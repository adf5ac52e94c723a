// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package pocket

import (
	"fmt"

	"github.com/aplane-algo/apledger/internal/parser"
	"github.com/aplane-algo/apledger/internal/prompt"
)

// Message type names of the POKT amino JSON encoding.
const (
	TypeSend         = "pos/Send"
	TypeUnjail       = "pos/8.0MsgUnjail"
	TypeStake        = "pos/8.0MsgStake"
	TypeBeginUnstake = "pos/8.0MsgBeginUnstake"
)

// fieldCapacity bounds every string the schemas accumulate.
const fieldCapacity = 64

// newCommand builds the interpreter for a full POKT transaction:
//
//	{"chain_id", "entropy", "fee": [{"amount","denom"}], "memo", "msg": {"type","value"}}
//
// Message prompts are shown as their fields are read; the fee total is
// shown once the whole object has been read.
func newCommand(ctx *SignContext, p prompt.Prompter) parser.TokenInterp {
	amount := parser.NewString(fieldCapacity)
	denom := parser.NewString(fieldCapacity)
	fee := parser.TokenAction(parser.NewObject(
		parser.Field{Name: "amount", Value: amount},
		parser.Field{Name: "denom", Value: denom},
	), func() error {
		if denom.Value() != Denom {
			return fmt.Errorf("%w: unsupported fee denomination %q", parser.ErrReject, denom.Value())
		}
		d, err := ParseUPOKT(amount.Value())
		if err != nil {
			return fmt.Errorf("%w: fee: %w", parser.ErrReject, err)
		}
		ctx.fees = ctx.fees.Add(d)
		return nil
	})

	cmd := parser.NewObject(
		parser.Field{Name: "chain_id", Value: &parser.Drop{}},
		parser.Field{Name: "entropy", Value: &parser.Drop{}},
		parser.Field{Name: "fee", Value: parser.NewArray(fee)},
		parser.Field{Name: "memo", Value: &parser.Drop{}},
		parser.Field{Name: "msg", Value: parser.NewTagged(
			parser.Variant{Type: TypeSend, Value: newSend(ctx, p)},
			parser.Variant{Type: TypeUnjail, Value: newUnjail(p)},
			parser.Variant{Type: TypeStake, Value: newStake(p)},
			parser.Variant{Type: TypeBeginUnstake, Value: newUnstake(p)},
		)},
	)
	return parser.TokenAction(cmd, func() error {
		return p.Show(prompt.Screen{Title: "Fees", Body: FormatPOKT(ctx.fees)})
	})
}

// newSend shows a transfer once all of its fields are known, since the
// encoding puts the amount before the addresses.
func newSend(ctx *SignContext, p prompt.Prompter) parser.TokenInterp {
	amount := parser.NewString(fieldCapacity)
	from := parser.NewString(fieldCapacity)
	to := parser.NewString(fieldCapacity)
	obj := parser.NewObject(
		parser.Field{Name: "amount", Value: amount},
		parser.Field{Name: "from_address", Value: from},
		parser.Field{Name: "to_address", Value: to},
	)
	return parser.TokenAction(obj, func() error {
		pokt, err := FormatUPOKT(amount.Value())
		if err != nil {
			return fmt.Errorf("%w: amount: %w", parser.ErrReject, err)
		}
		fromText, err := text(from)
		if err != nil {
			return err
		}
		toText, err := text(to)
		if err != nil {
			return err
		}

		screens := []prompt.Screen{
			{Title: "Transfer", Body: "POKT"},
			{Title: "From", Body: fromText},
		}
		if fromText != ctx.Address.String() {
			screens = append(screens, prompt.Screen{Title: "Warning", Body: "Sender is not the signing account"})
		}
		screens = append(screens,
			prompt.Screen{Title: "To", Body: toText},
			prompt.Screen{Title: "Amount", Body: pokt},
		)
		for _, s := range screens {
			if err := p.Show(s); err != nil {
				return err
			}
		}
		return nil
	})
}

func newUnjail(p prompt.Prompter) parser.TokenInterp {
	return parser.TokenPreaction(title(p, "Unjail"), parser.NewObject(
		parser.Field{Name: "address", Value: showString(p, "Address", fieldCapacity)},
		parser.Field{Name: "signer_address", Value: showString(p, "Signer address", fieldCapacity)},
	))
}

func newStake(p prompt.Prompter) parser.TokenInterp {
	keyType := parser.NewString(fieldCapacity)
	keyValue := parser.NewString(fieldCapacity)
	publicKey := parser.TokenAction(parser.NewObject(
		parser.Field{Name: "type", Value: keyType},
		parser.Field{Name: "value", Value: keyValue},
	), func() error {
		typ, err := text(keyType)
		if err != nil {
			return err
		}
		val, err := text(keyValue)
		if err != nil {
			return err
		}
		return p.Show(prompt.Screen{Title: "Public Key", Body: fmt.Sprintf("%s (%s)", val, typ)})
	})

	return parser.TokenPreaction(title(p, "Stake"), parser.NewObject(
		parser.Field{Name: "chains", Value: parser.NewArray(showString(p, "Chain", fieldCapacity))},
		parser.Field{Name: "public_key", Value: publicKey},
		parser.Field{Name: "service_url", Value: showString(p, "Service URL", fieldCapacity)},
		parser.Field{Name: "value", Value: showString(p, "Value", fieldCapacity)},
		parser.Field{Name: "output_address", Value: showString(p, "Output Address", fieldCapacity)},
	))
}

func newUnstake(p prompt.Prompter) parser.TokenInterp {
	return parser.TokenPreaction(title(p, "Unstake"), parser.NewObject(
		parser.Field{Name: "signer_address", Value: showString(p, "Signer address", fieldCapacity)},
		parser.Field{Name: "validator_address", Value: showString(p, "Unstake address", fieldCapacity)},
	))
}

// title returns a hook showing "<name> / Transaction".
func title(p prompt.Prompter, name string) func() error {
	return func() error {
		return p.Show(prompt.Screen{Title: name, Body: "Transaction"})
	}
}
