// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package pocket

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Denom is the only fee denomination the device accepts.
const Denom = "upokt"

// upoktDecimals is the number of uPOKT decimal places in one POKT.
const upoktDecimals = 6

// ParseUPOKT parses a uPOKT amount. Amounts are plain decimal digits.
func ParseUPOKT(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return decimal.Zero, fmt.Errorf("invalid amount %q: digits only", s)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// FormatPOKT renders a uPOKT quantity in POKT with at least one
// fractional digit: 10000000 is "10.0", 12000 is "0.012".
func FormatPOKT(upokt decimal.Decimal) string {
	s := upokt.Shift(-upoktDecimals).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatUPOKT parses a uPOKT amount string and renders it in POKT.
func FormatUPOKT(s string) (string, error) {
	d, err := ParseUPOKT(s)
	if err != nil {
		return "", err
	}
	return FormatPOKT(d), nil
}
