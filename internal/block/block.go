// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package block implements the content-addressed block transfer used to
// stream parameters larger than one APDU into the device.
//
// The host commits to each parameter by its hash in Start. Every block is
// next_hash || data, addressed by SHA-256 of those bytes, so each block
// also commits to its successor and a zero next_hash ends the parameter.
// The device asks for blocks one hash at a time and walks a fixed pass
// sequence over the parameters, which lets it read a parameter twice.
package block

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aplane-algo/apledger/internal/parser"
)

// HashSize is the size of a block hash.
const HashSize = sha256.Size

// MaxParams is the most parameters one Start may commit to.
const MaxParams = 2

// Host to device command tags.
const (
	TagStart                      byte = 0
	TagGetChunkResponseSuccess    byte = 1
	TagGetChunkResponseFailure    byte = 2
	TagPutChunkResponse           byte = 3
	TagResultAccumulatingResponse byte = 4
)

// Device to host command tags.
const (
	TagResultFinal byte = 1
	TagGetChunk    byte = 2
)

// Hash is a SHA-256 block address.
type Hash [HashSize]byte

// IsZero reports whether h is the end-of-parameter sentinel.
func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

var (
	// ErrProtocol is returned for commands that break the transfer rules.
	ErrProtocol = errors.New("block protocol violation")

	// ErrIntegrity is returned when a block does not hash to the requested value.
	ErrIntegrity = errors.New("block does not match requested hash")
)

// Session is the parse of one operation, fed block data in order.
// EndPass is called when pass i of the sequence reaches its end-of-parameter
// sentinel and must fail unless exactly that pass has just been parsed.
// Result returns the reply once the parse is Done.
type Session interface {
	parser.Interp
	EndPass(i int) error
	Result() ([]byte, bool)
}

// Binding ties the transfer to the session of one operation.
// Session returns the live session, creating it if needed, and Reset
// discards it.
type Binding interface {
	Session() Session
	Reset()
}

// State tracks one transfer: the committed parameters, the pass sequence
// and the hash of the block the device is waiting for.
type State struct {
	params    [MaxParams]Hash
	nparams   int
	seq       []int
	index     int
	requested Hash
	active    bool

	log *slog.Logger
}

// NewState returns an idle State that logs to logger (nil discards).
func NewState(logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &State{log: logger}
}

// Reset returns the state to idle.
func (s *State) Reset() {
	logger := s.log
	*s = State{log: logger}
}

// Active reports whether a transfer is in progress.
func (s *State) Active() bool { return s.active }

// Requested returns the hash the device is waiting for.
func (s *State) Requested() Hash { return s.requested }

// Index returns the position in the pass sequence.
func (s *State) Index() int { return s.index }

// Handle processes one host command for an operation that reads its
// parameters in seq order, and returns the reply data. On any error both
// the transfer and the session are reset.
func (s *State) Handle(payload []byte, seq []int, b Binding) ([]byte, error) {
	if len(payload) == 0 {
		return nil, s.fail(b, fmt.Errorf("%w: empty command", ErrProtocol))
	}

	switch tag, body := payload[0], payload[1:]; tag {
	case TagStart:
		return s.start(body, seq, b)
	case TagGetChunkResponseSuccess:
		return s.chunk(body, b)
	case TagGetChunkResponseFailure, TagPutChunkResponse, TagResultAccumulatingResponse:
		return nil, s.fail(b, fmt.Errorf("%w: command %d not used by this operation", ErrProtocol, tag))
	default:
		return nil, s.fail(b, fmt.Errorf("%w: unknown command %d", ErrProtocol, tag))
	}
}

func (s *State) start(body []byte, seq []int, b Binding) ([]byte, error) {
	if len(body)%HashSize != 0 {
		return nil, s.fail(b, fmt.Errorf("%w: start payload of %d bytes is not a list of hashes", ErrProtocol, len(body)))
	}
	n := len(body) / HashSize
	if n > MaxParams {
		return nil, s.fail(b, fmt.Errorf("%w: %d parameters, maximum is %d", ErrProtocol, n, MaxParams))
	}
	if len(seq) == 0 {
		return nil, s.fail(b, fmt.Errorf("%w: empty pass sequence", ErrProtocol))
	}
	for _, p := range seq {
		if p < 0 || p >= n {
			return nil, s.fail(b, fmt.Errorf("%w: pass sequence needs parameter %d, host sent %d", ErrProtocol, p, n))
		}
	}

	s.Reset()
	b.Reset()
	for i := 0; i < n; i++ {
		copy(s.params[i][:], body[i*HashSize:])
	}
	s.nparams = n
	s.seq = seq
	s.requested = s.params[seq[0]]
	s.active = true

	s.log.Debug("block transfer started", "params", n, "sequence", seq)
	return s.getChunk(), nil
}

func (s *State) chunk(body []byte, b Binding) ([]byte, error) {
	if !s.active {
		return nil, s.fail(b, fmt.Errorf("%w: no transfer in progress", ErrProtocol))
	}
	if len(body) < HashSize {
		return nil, s.fail(b, fmt.Errorf("%w: block of %d bytes has no next hash", ErrProtocol, len(body)))
	}
	if sum := sha256.Sum256(body); !bytes.Equal(sum[:], s.requested[:]) {
		return nil, s.fail(b, fmt.Errorf("%w: got %x, want %s", ErrIntegrity, sum, s.requested))
	}

	var next Hash
	copy(next[:], body[:HashSize])
	data := body[HashSize:]

	session := b.Session()
	outcome, err := parser.Run(session, data)
	s.log.Debug("block parsed", "bytes", len(data), "outcome", outcome, "index", s.index)

	switch outcome {
	case parser.NeedMore:
		if !next.IsZero() {
			s.requested = next
			return s.getChunk(), nil
		}
		if s.index == len(s.seq)-1 {
			return nil, s.fail(b, fmt.Errorf("%w: all passes delivered but the parse is not finished", ErrProtocol))
		}
		if err := session.EndPass(s.index); err != nil {
			return nil, s.fail(b, fmt.Errorf("%w: pass %d: %w", ErrProtocol, s.index, err))
		}
		s.index++
		s.requested = s.params[s.seq[s.index]]
		return s.getChunk(), nil

	case parser.Done:
		if s.index != len(s.seq)-1 {
			return nil, s.fail(b, fmt.Errorf("%w: parse finished in pass %d of %d", ErrProtocol, s.index+1, len(s.seq)))
		}
		if !next.IsZero() {
			return nil, s.fail(b, fmt.Errorf("%w: parse finished before the end of the parameter", ErrProtocol))
		}
		result, ok := session.Result()
		if !ok {
			return nil, s.fail(b, fmt.Errorf("%w: parse finished without a result", ErrProtocol))
		}
		reply := append([]byte{TagResultFinal}, result...)
		s.Reset()
		b.Reset()
		return reply, nil

	default:
		return nil, s.fail(b, fmt.Errorf("parse %s: %w", outcome, err))
	}
}

func (s *State) getChunk() []byte {
	out := make([]byte, 0, 1+HashSize)
	out = append(out, TagGetChunk)
	return append(out, s.requested[:]...)
}

func (s *State) fail(b Binding, err error) error {
	s.log.Debug("block transfer aborted", "error", err)
	s.Reset()
	b.Reset()
	return err
}
