// Package core holds the budgeting domain: records exchanged with the API,
// months, money and the view-models the pages are built from.
//
// Amounts are decimals end to end. Display rounds to whole dinars the way
// the sr-RS currency format does.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input to a non-negative decimal.
//
// Input follows sr-RS: dot grouping and a comma decimal separator. When both
// separators appear the last one is the decimal point, so pasted en-US
// amounts work too. A lone dot is grouping when it is followed by exactly
// three digits (12.500 is twelve thousand five hundred) and a decimal point
// otherwise. Malformed grouping is rejected rather than guessed. Negative
// values are rejected; zero is accepted and left to the form to reject.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34
//	ParseAmount("12.500")   -> 12500
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("1,234.56") -> 1234.56
//	ParseAmount(" 5000 ")   -> 5000
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return decimal.Zero, ErrInvalidAmount
	}
	s, ok := normalizeSeparators(s)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// normalizeSeparators rewrites s with grouping removed and a dot decimal
// point.
func normalizeSeparators(s string) (string, bool) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		point, group := lastComma, "."
		if lastDot > lastComma {
			point, group = lastDot, ","
		}
		whole, frac := s[:point], s[point+1:]
		if strings.ContainsAny(whole, string(s[point])) {
			return "", false
		}
		whole, ok := ungroup(whole, group)
		if !ok {
			return "", false
		}
		return whole + "." + frac, true

	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			return strings.Replace(s, ",", ".", 1), true
		}
		return ungroup(s, ",")

	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			return ungroup(s, ".")
		}
		if len(s)-lastDot-1 == 3 && s[:lastDot] != "0" {
			return ungroup(s, ".")
		}
		return s, true
	}
	return s, true
}

// ungroup drops sep from s. The groups must be one to three leading digits
// followed by groups of exactly three.
func ungroup(s, sep string) (string, bool) {
	parts := strings.Split(s, sep)
	if len(parts[0]) == 0 || len(parts[0]) > 3 {
		return "", false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}

// FormatAmount renders d rounded to whole units with dot thousand grouping,
// followed by the currency code, e.g. "12.500 RSD".
func FormatAmount(d decimal.Decimal, currency string) string {
	r := d.Round(0)
	neg := r.IsNegative()
	digits := r.Abs().String()

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if currency != "" {
		b.WriteByte(' ')
		b.WriteString(currency)
	}
	return b.String()
}

// InputValue renders d for an amount input, without grouping and with a
// comma decimal separator, so ParseAmount reads it back unchanged.
func InputValue(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return strings.Replace(d.String(), ".", ",", 1)
}
