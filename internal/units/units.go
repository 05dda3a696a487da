// Package units converts between on-chain base-unit integers and the decimal
// strings users type and read. All conversions are exact: no big.Float.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the token precision assumed throughout (ether-style 18 places).
const Decimals = 18

var (
	ErrEmptyAmount    = errors.New("amount is empty")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrTooPrecise     = errors.New("amount has more decimal places than the token supports")
)

// Parse converts a decimal string such as "1.5" into base units for a token
// with the given number of decimals.
func Parse(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyAmount
	}
	if strings.HasPrefix(s, "-") {
		return nil, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if hasDot && strings.Contains(frac, ".") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > decimals {
		return nil, fmt.Errorf("%w: %q (max %d)", ErrTooPrecise, s, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return n, nil
}

// ParseEther is Parse with the default 18 decimals.
func ParseEther(s string) (*big.Int, error) { return Parse(s, Decimals) }

// Format renders base units as a canonical decimal string. Trailing zeros are
// trimmed but at least one fractional digit is kept ("1.0", "0.5").
// Parse(Format(x, d), d) == x for every non-negative x.
func Format(x *big.Int, decimals int) string {
	if x == nil {
		return "0.0"
	}
	neg := x.Sign() < 0
	digits := new(big.Int).Abs(x).String()
	if decimals <= 0 {
		if neg {
			return "-" + digits
		}
		return digits
	}

	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")
	if frac == "" {
		frac = "0"
	}

	out := whole + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// FormatEther is Format with the default 18 decimals.
func FormatEther(x *big.Int) string { return Format(x, Decimals) }

// Display renders base units with exactly places fractional digits, rounding
// half away from zero. Used for balance read-outs, never for re-parsing.
func Display(x *big.Int, decimals, places int) string {
	if x == nil {
		x = new(big.Int)
	}
	if places >= decimals {
		s := Format(x, decimals)
		whole, frac, _ := strings.Cut(s, ".")
		return whole + "." + frac + strings.Repeat("0", places-len(frac))
	}

	scale := pow10(decimals - places)
	abs := new(big.Int).Abs(x)
	q, r := new(big.Int).QuoRem(abs, scale, new(big.Int))
	if new(big.Int).Lsh(r, 1).Cmp(scale) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if x.Sign() < 0 {
		q.Neg(q)
	}
	if places == 0 {
		return q.String()
	}

	s := Format(q, places)
	whole, frac, _ := strings.Cut(s, ".")
	return whole + "." + frac + strings.Repeat("0", places-len(frac))
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
