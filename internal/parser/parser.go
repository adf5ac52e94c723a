// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package parser implements resumable, forward-only interpreters for
// length-prefixed binary parameters and streamed JSON.
//
// An interpreter is fed one chunk at a time and keeps everything it needs to
// continue inside itself, so a parse can be suspended after any chunk and
// resumed when the next chunk arrives. Interpreters never buffer the input
// beyond the fixed capacity of the values they accumulate.
package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrReject means the input does not match the schema, or a hook refused it.
	ErrReject = errors.New("rejected")

	// ErrMalformed means bytes were left over where the schema allowed none.
	ErrMalformed = errors.New("malformed input")
)

// Outcome is the result of feeding one chunk to an interpreter.
type Outcome int

const (
	// NeedMore means the chunk was consumed and the schema is not finished.
	NeedMore Outcome = iota
	// Done means the chunk was consumed exactly and the schema is satisfied.
	Done
	// Reject means the input is invalid for the schema.
	Reject
	// Malformed means bytes of the chunk were left unconsumed.
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case NeedMore:
		return "NeedMore"
	case Done:
		return "Done"
	case Reject:
		return "Reject"
	case Malformed:
		return "Malformed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Interp is a resumable interpreter over raw bytes.
//
// Parse consumes a prefix of chunk and returns what it did not consume.
// done reports that the value is complete; once done, Parse returns any
// further chunk untouched.
type Interp interface {
	Parse(chunk []byte) (rest []byte, done bool, err error)
}

// Run feeds chunk to p and classifies the result.
func Run(p Interp, chunk []byte) (Outcome, error) {
	rest, done, err := p.Parse(chunk)
	switch {
	case err != nil:
		if errors.Is(err, ErrMalformed) {
			return Malformed, err
		}
		return Reject, err
	case len(rest) > 0:
		return Malformed, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(rest))
	case done:
		return Done, nil
	default:
		return NeedMore, nil
	}
}

// rejectf wraps a hook error so that it classifies as ErrReject.
func rejectf(err error) error {
	if err == nil || errors.Is(err, ErrReject) || errors.Is(err, ErrMalformed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrReject, err)
}
