// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package host drives the device from the host side: it frames commands,
// commits parameters by hash and answers the device's block requests.
package host

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aplane-algo/apledger/internal/apdu"
	"github.com/aplane-algo/apledger/internal/block"
	"github.com/aplane-algo/apledger/internal/keys"
	"github.com/aplane-algo/apledger/internal/util"
)

// ErrUnexpectedReply is returned when the device sends a reply the host
// cannot act on.
var ErrUnexpectedReply = errors.New("unexpected device reply")

// Exchanger sends a raw command APDU and returns the raw response.
type Exchanger interface {
	Exchange(ctx context.Context, command []byte) ([]byte, error)
}

// Client talks to one device.
type Client struct {
	ex        Exchanger
	chunkSize int
	log       *slog.Logger
}

// NewClient returns a client that splits parameters into blocks of
// chunkSize bytes. A chunkSize of 0 uses util.DefaultChunkSize.
func NewClient(ex Exchanger, chunkSize int, logger *slog.Logger) (*Client, error) {
	if chunkSize == 0 {
		chunkSize = util.DefaultChunkSize
	}
	if chunkSize < 1 || chunkSize > util.MaxChunkSize {
		return nil, fmt.Errorf("chunk size %d out of range (1-%d)", chunkSize, util.MaxChunkSize)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{ex: ex, chunkSize: chunkSize, log: logger}, nil
}

// Version is the app version reported by GetVersion.
type Version struct {
	Major, Minor, Patch uint8
	Name                string
}

func (v Version) String() string {
	return fmt.Sprintf("%s %d.%d.%d", v.Name, v.Major, v.Minor, v.Patch)
}

// PublicKey is the reply to GetPublicKey and VerifyAddress.
type PublicKey struct {
	Key     []byte
	Address keys.Address
}

// GetVersion asks the device for its app name and version.
func (c *Client) GetVersion(ctx context.Context) (Version, error) {
	data, err := c.final(ctx, apdu.InsGetVersion, nil)
	if err != nil {
		return Version{}, err
	}
	if len(data) < 3 {
		return Version{}, fmt.Errorf("%w: version reply of %d bytes", ErrUnexpectedReply, len(data))
	}
	return Version{Major: data[0], Minor: data[1], Patch: data[2], Name: string(data[3:])}, nil
}

// GetVersionString asks the device for its human-readable version.
func (c *Client) GetVersionString(ctx context.Context) (string, error) {
	data, err := c.final(ctx, apdu.InsGetVersionStr, nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetPublicKey returns the key for path without prompting.
func (c *Client) GetPublicKey(ctx context.Context, path keys.Path) (PublicKey, error) {
	return c.address(ctx, apdu.InsGetPubkey, path)
}

// VerifyAddress returns the key for path once the user has confirmed the
// address on the device.
func (c *Client) VerifyAddress(ctx context.Context, path keys.Path) (PublicKey, error) {
	return c.address(ctx, apdu.InsVerifyAddress, path)
}

// Sign asks the device to sign the JSON transaction txn with the key for
// path. It returns the 64 byte Ed25519 signature.
func (c *Client) Sign(ctx context.Context, path keys.Path, txn []byte) ([]byte, error) {
	return c.sign(ctx, apdu.InsSign, path, txn)
}

// BlindSign signs txn without the device interpreting it. Blind signing
// must be enabled on the device.
func (c *Client) BlindSign(ctx context.Context, path keys.Path, txn []byte) ([]byte, error) {
	return c.sign(ctx, apdu.InsBlindSign, path, txn)
}

// Exit asks the device app to quit.
func (c *Client) Exit(ctx context.Context) error {
	_, err := c.call(ctx, apdu.InsExit, nil)
	return err
}

func (c *Client) address(ctx context.Context, ins apdu.Ins, path keys.Path) (PublicKey, error) {
	param, err := path.MarshalBinary()
	if err != nil {
		return PublicKey{}, err
	}
	data, err := c.transfer(ctx, ins, param)
	if err != nil {
		return PublicKey{}, err
	}
	if len(data) != 2+keys.PublicKeySize+keys.AddressSize ||
		data[0] != keys.PublicKeySize || data[1+keys.PublicKeySize] != keys.AddressSize {
		return PublicKey{}, fmt.Errorf("%w: address reply of %d bytes", ErrUnexpectedReply, len(data))
	}
	pk := PublicKey{Key: append([]byte(nil), data[1:1+keys.PublicKeySize]...)}
	copy(pk.Address[:], data[2+keys.PublicKeySize:])
	if pk.Address != keys.AddressFromPublicKey(pk.Key) {
		return PublicKey{}, fmt.Errorf("%w: address does not match public key", ErrUnexpectedReply)
	}
	return pk, nil
}

func (c *Client) sign(ctx context.Context, ins apdu.Ins, path keys.Path, txn []byte) ([]byte, error) {
	pathParam, err := path.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if uint64(len(txn)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("transaction of %d bytes is too large", len(txn))
	}
	txnParam := binary.LittleEndian.AppendUint32(make([]byte, 0, 4+len(txn)), uint32(len(txn)))
	txnParam = append(txnParam, txn...)

	sig, err := c.transfer(ctx, ins, txnParam, pathParam)
	if err != nil {
		return nil, err
	}
	if len(sig) != 64 {
		return nil, fmt.Errorf("%w: signature of %d bytes", ErrUnexpectedReply, len(sig))
	}
	return sig, nil
}

// transfer commits to params and serves block requests until the device
// returns its result.
func (c *Client) transfer(ctx context.Context, ins apdu.Ins, params ...[]byte) ([]byte, error) {
	blocks := make(map[block.Hash][]byte)
	roots := make([]block.Hash, 0, len(params))
	for _, p := range params {
		chain, err := block.NewChain(p, c.chunkSize)
		if err != nil {
			return nil, err
		}
		for h, blk := range chain.Blocks {
			blocks[h] = blk
		}
		roots = append(roots, chain.Root)
	}

	reply, err := c.call(ctx, ins, block.StartPayload(roots...))
	for served := 0; ; served++ {
		if err != nil {
			return nil, err
		}
		if len(reply) == 0 {
			return nil, fmt.Errorf("%w: empty reply", ErrUnexpectedReply)
		}

		switch reply[0] {
		case block.TagResultFinal:
			c.log.Debug("transfer finished", "ins", ins, "blocks", served)
			return reply[1:], nil

		case block.TagGetChunk:
			if len(reply) != 1+block.HashSize {
				return nil, fmt.Errorf("%w: chunk request of %d bytes", ErrUnexpectedReply, len(reply))
			}
			var h block.Hash
			copy(h[:], reply[1:])
			blk, ok := blocks[h]
			if !ok {
				return nil, fmt.Errorf("%w: device requested unknown block %s", ErrUnexpectedReply, h)
			}
			c.log.Debug("serving block", "hash", h, "bytes", len(blk))
			reply, err = c.call(ctx, ins, append([]byte{block.TagGetChunkResponseSuccess}, blk...))

		default:
			return nil, fmt.Errorf("%w: command %d", ErrUnexpectedReply, reply[0])
		}
	}
}

// final sends a single command whose reply is ResultFinal || data.
func (c *Client) final(ctx context.Context, ins apdu.Ins, data []byte) ([]byte, error) {
	reply, err := c.call(ctx, ins, data)
	if err != nil {
		return nil, err
	}
	if len(reply) == 0 || reply[0] != block.TagResultFinal {
		return nil, fmt.Errorf("%w: reply to %s is not final", ErrUnexpectedReply, ins)
	}
	return reply[1:], nil
}

func (c *Client) call(ctx context.Context, ins apdu.Ins, data []byte) ([]byte, error) {
	command, err := apdu.EncodeCommand(ins, data)
	if err != nil {
		return nil, err
	}
	raw, err := c.ex.Exchange(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ins, err)
	}
	reply, sw, err := apdu.ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	if sw != apdu.StatusOK {
		return nil, fmt.Errorf("%s: %w", ins, apdu.Status(sw))
	}
	return reply, nil
}
