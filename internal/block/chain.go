// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package block

import (
	"crypto/sha256"
	"fmt"
)

// Chain is one parameter split into hash-linked blocks.
type Chain struct {
	// Root addresses the first block; it is the hash sent in Start.
	Root Hash
	// Blocks maps each block hash to next_hash || data.
	Blocks map[Hash][]byte
}

// NewChain splits data into blocks of at most chunkSize data bytes and
// links them from the last block backwards. Empty data is a single empty
// block.
func NewChain(data []byte, chunkSize int) (*Chain, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}

	var chunks [][]byte
	for off := 0; off < len(data); off += chunkSize {
		chunks = append(chunks, data[off:min(off+chunkSize, len(data))])
	}
	if len(chunks) == 0 {
		chunks = [][]byte{nil}
	}

	c := &Chain{Blocks: make(map[Hash][]byte, len(chunks))}
	var next Hash
	for i := len(chunks) - 1; i >= 0; i-- {
		blk := make([]byte, 0, HashSize+len(chunks[i]))
		blk = append(blk, next[:]...)
		blk = append(blk, chunks[i]...)
		next = sha256.Sum256(blk)
		c.Blocks[next] = blk
	}
	c.Root = next
	return c, nil
}

// Len returns the number of blocks.
func (c *Chain) Len() int { return len(c.Blocks) }

// Response returns the GetChunkResponseSuccess payload for h.
func (c *Chain) Response(h Hash) ([]byte, bool) {
	blk, ok := c.Blocks[h]
	if !ok {
		return nil, false
	}
	return append([]byte{TagGetChunkResponseSuccess}, blk...), true
}

// StartPayload returns the Start payload committing to roots in order.
func StartPayload(roots ...Hash) []byte {
	out := make([]byte, 0, 1+len(roots)*HashSize)
	out = append(out, TagStart)
	for _, r := range roots {
		out = append(out, r[:]...)
	}
	return out
}
