// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keys

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Hardened is the BIP32 hardened index offset.
const Hardened uint32 = 1 << 31

// MaxPathDepth is the deepest path the device accepts.
const MaxPathDepth = 10

// DefaultPath is the first POKT account (SLIP-44 coin type 635).
const DefaultPath = "44'/635'/0/0"

// Path is a BIP32 derivation path.
type Path []uint32

// ParsePath parses "44'/635'/0/0" style paths. A leading "m/" is optional,
// and both ' and h mark a hardened component.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "m/")
	if s == "" || s == "m" {
		return Path{}, nil
	}

	parts := strings.Split(s, "/")
	if len(parts) > MaxPathDepth {
		return nil, fmt.Errorf("path has %d components, maximum is %d", len(parts), MaxPathDepth)
	}

	path := make(Path, 0, len(parts))
	for _, part := range parts {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		digits := strings.TrimRight(part, "'h")
		n, err := strconv.ParseUint(digits, 10, 32)
		if err != nil || n >= uint64(Hardened) {
			return nil, fmt.Errorf("invalid path component %q", part)
		}
		idx := uint32(n)
		if hardened {
			idx |= Hardened
		}
		path = append(path, idx)
	}
	return path, nil
}

func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, idx := range p {
		sb.WriteByte('/')
		sb.WriteString(strconv.FormatUint(uint64(idx&^Hardened), 10))
		if idx&Hardened != 0 {
			sb.WriteByte('\'')
		}
	}
	return sb.String()
}

// MarshalBinary encodes the path as the device expects it:
// a count byte then each component as a little-endian uint32.
func (p Path) MarshalBinary() ([]byte, error) {
	if len(p) > MaxPathDepth {
		return nil, fmt.Errorf("path has %d components, maximum is %d", len(p), MaxPathDepth)
	}
	out := make([]byte, 1, 1+4*len(p))
	out[0] = byte(len(p))
	for _, idx := range p {
		out = binary.LittleEndian.AppendUint32(out, idx)
	}
	return out, nil
}
