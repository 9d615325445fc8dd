package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"1.234,56", "1234.56", true},
		{" 5000 ", "5000", true},
		{"10 000", "10000", true},
		{"0", "0", true},
		{"12.500", "12500", true},
		{"12.5", "12.5", true},
		{"0.125", "0.125", true},
		{"1.234.567", "1234567", true},
		{"1.234.567,8", "1234567.8", true},
		{"1,234.56", "1234.56", true},
		{"1,234,567", "1234567", true},
		{"1\u00a0250,50", "1250.5", true},
		{"1234.567", "", false},
		{"1.23.4", "", false},
		{"1.2,3.4", "", false},
		{"12,50,0", "", false},
		{"-1", "", false},
		{"+1", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0 RSD"},
		{"999.4", "999 RSD"},
		{"999.5", "1.000 RSD"},
		{"12500", "12.500 RSD"},
		{"1234567", "1.234.567 RSD"},
		{"-6000", "-6.000 RSD"},
	}
	for _, tc := range cases {
		if got := FormatAmount(decimal.RequireFromString(tc.in), "RSD"); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := FormatAmount(decimal.NewFromInt(42), ""); got != "42" {
		t.Fatalf("no currency: got %q", got)
	}
}

func TestInputValueRoundTrip(t *testing.T) {
	for _, in := range []string{"1250.5", "12500", "0.125", "1250.125"} {
		d := decimal.RequireFromString(in)
		got, err := ParseAmount(InputValue(d))
		if err != nil || !got.Equal(d) {
			t.Fatalf("%s rendered as %q parsed back as %s (err=%v)", in, InputValue(d), got, err)
		}
	}
	if got := InputValue(decimal.Zero); got != "" {
		t.Fatalf("zero rendered as %q", got)
	}
}
