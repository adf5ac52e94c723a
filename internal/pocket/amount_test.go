// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package pocket

import "testing"

func TestFormatUPOKT(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10000000", "10.0"},
		{"10203040", "10.20304"},
		{"10100000", "10.1"},
		{"0000010000", "0.01"},
		{"002000000000", "2000.0"},
		{"12000", "0.012"},
		{"2", "0.000002"},
		{"0", "0.0"},
		{"1000000", "1.0"},
		{"123456789012345678901234567890", "123456789012345678901234.56789"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := FormatUPOKT(tt.in)
			if err != nil {
				t.Fatalf("FormatUPOKT(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("FormatUPOKT(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatUPOKTInvalid(t *testing.T) {
	for _, in := range []string{"", "-1", "1.5", "1e6", " 1", "0x10", "１"} {
		if got, err := FormatUPOKT(in); err == nil {
			t.Errorf("FormatUPOKT(%q) = %q, want error", in, got)
		}
	}
}
