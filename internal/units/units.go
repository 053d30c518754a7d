// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package units interprets the physical quantities authors write in circuit
// descriptions. Lengths normalize to millimetres, electrical values to their
// base SI unit.
package units

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// lengthScale maps a length suffix to its size in millimetres. A bare number
// is already in millimetres.
var lengthScale = map[string]float64{
	"":    1,
	"mm":  1,
	"cm":  10,
	"um":  0.001,
	"in":  25.4,
	"mil": 0.0254,
}

// siPrefix maps a metric prefix to its multiplier.
var siPrefix = map[string]float64{
	"":  1,
	"p": 1e-12,
	"n": 1e-9,
	"u": 1e-6,
	"µ": 1e-6,
	"m": 1e-3,
	"k": 1e3,
	"K": 1e3,
	"M": 1e6,
	"G": 1e9,
}

// unitSymbols are stripped before the prefix is looked up. Longer symbols
// come first so "ohms" wins over "ohm".
var unitSymbols = []string{"ohms", "ohm", "Ω", "F", "H", "V", "A", "Hz"}

// ParseLength parses a length such as "10mm", "0.5in", "100mil" or "3".
func ParseLength(s string) (float64, error) {
	num, suffix, err := splitNumber(s)
	if err != nil {
		return 0, err
	}
	scale, ok := lengthScale[strings.ToLower(suffix)]
	if !ok {
		return 0, fmt.Errorf("unknown length unit %q in %q", suffix, s)
	}
	return num * scale, nil
}

// ParseValue parses an electrical value such as "1k", "100nF" or "4.7uH".
func ParseValue(s string) (float64, error) {
	num, suffix, err := splitNumber(s)
	if err != nil {
		return 0, err
	}
	for _, sym := range unitSymbols {
		if trimmed, ok := strings.CutSuffix(suffix, sym); ok {
			suffix = trimmed
			break
		}
	}
	mult, ok := siPrefix[suffix]
	if !ok {
		return 0, fmt.Errorf("unknown unit prefix %q in %q", suffix, s)
	}
	return num * mult, nil
}

// Length interprets a property value as a length. Numbers are millimetres.
func Length(v cty.Value) (float64, error) {
	return interpret(v, ParseLength)
}

// Value interprets a property value as an electrical quantity.
func Value(v cty.Value) (float64, error) {
	return interpret(v, ParseValue)
}

func interpret(v cty.Value, parse func(string) (float64, error)) (float64, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("value is null")
	}
	if !v.IsWhollyKnown() {
		return 0, fmt.Errorf("value is not known")
	}
	if v.Type() == cty.Number {
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	}
	str, err := convert.Convert(v, cty.String)
	if err != nil {
		return 0, fmt.Errorf("expected a number or a string, got %s", v.Type().FriendlyName())
	}
	return parse(str.AsString())
}

// NumberVal returns f as a cty number. Used when writing normalized values
// back into property maps.
func NumberVal(f float64) cty.Value {
	return cty.NumberVal(new(big.Float).SetFloat64(f))
}

// splitNumber separates the leading decimal number from its suffix.
func splitNumber(s string) (float64, string, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && (isDigit(s[end]) || s[end] == '.') {
		if isDigit(s[end]) {
			digits++
		}
		end++
	}
	if digits == 0 {
		return 0, "", fmt.Errorf("%q does not start with a number", s)
	}
	// An exponent is only consumed when digits follow it, so "1e" stays a
	// suffix rather than a malformed float.
	if end+1 < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if s[exp] == '+' || s[exp] == '-' {
			exp++
		}
		if exp < len(s) && isDigit(s[exp]) {
			for exp < len(s) && isDigit(s[exp]) {
				exp++
			}
			end = exp
		}
	}
	num, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid number in %q: %w", s, err)
	}
	return num, strings.TrimSpace(s[end:]), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
