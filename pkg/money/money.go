// Package money converts between decimal amounts and fixed-point ledger units.
//
// One unit is 0.0001 of the currency (scale 10^4). Units are backed by
// math/big so balances never overflow and never pass through float64.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of units per whole currency unit.
const Scale = 10000

// FractionDigits is the maximum number of fractional digits accepted and
// always rendered by Format.
const FractionDigits = 4

// MaxIntegerDigits bounds the whole part of a parsed amount. Stored balances
// are unconstrained; the bound only applies to caller input.
const MaxIntegerDigits = 60

// ErrInvalidAmount is returned for any input Parse cannot represent exactly.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	amountRe = regexp.MustCompile(`^[-+]?\d+(?:\.\d{1,4})?$`)
	bigScale = big.NewInt(Scale)
)

// Units is an immutable signed amount in 1/10000 currency units.
// The zero value is zero.
type Units struct {
	v *big.Int
}

// Zero is the zero amount.
var Zero = Units{}

// FromInt64 returns n raw units (not currency units).
func FromInt64(n int64) Units {
	return Units{v: big.NewInt(n)}
}

// ParseUnits parses a raw base-10 unit count, the storage representation.
func ParseUnits(raw string) (Units, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return Zero, fmt.Errorf("%w: malformed unit count %q", ErrInvalidAmount, raw)
	}
	return Units{v: v}, nil
}

// Parse converts a decimal amount into units. Accepted inputs are strings,
// json.Number, json.RawMessage holding a JSON string or number, Go integers
// and floats. At most four fractional digits are allowed; shorter fractions
// are right-padded ("10.5" -> 10.5000).
func Parse(input any) (Units, error) {
	switch v := input.(type) {
	case string:
		return parseText(v)
	case json.Number:
		return parseNumberLiteral(string(v))
	case json.RawMessage:
		return parseRaw(v)
	case int:
		return fromWhole(big.NewInt(int64(v))), nil
	case int32:
		return fromWhole(big.NewInt(int64(v))), nil
	case int64:
		return fromWhole(big.NewInt(v)), nil
	case uint64:
		return fromWhole(new(big.Int).SetUint64(v)), nil
	case float32:
		return parseNumberLiteral(strconv.FormatFloat(float64(v), 'g', -1, 32))
	case float64:
		return parseNumberLiteral(strconv.FormatFloat(v, 'g', -1, 64))
	default:
		return Zero, fmt.Errorf("%w: amount must be a number or string, got %T", ErrInvalidAmount, input)
	}
}

func parseRaw(raw json.RawMessage) (Units, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return Zero, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		return parseText(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return parseNumberLiteral(trimmed)
	default:
		return Zero, fmt.Errorf("%w: amount must be a number or string", ErrInvalidAmount)
	}
}

// parseNumberLiteral normalizes a numeric literal (possibly in exponent
// form) to its shortest plain decimal text before applying the text rules.
func parseNumberLiteral(lit string) (Units, error) {
	d, err := decimal.NewFromString(lit)
	if err != nil {
		return Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	// String expands the exponent in full, so bound it first.
	exp := int64(d.Exponent())
	digits := int64(len(d.Coefficient().String()))
	if d.Sign() < 0 {
		digits--
	}
	if exp < -(MaxIntegerDigits+FractionDigits) || digits+exp > MaxIntegerDigits {
		return Zero, fmt.Errorf("%w: amount out of range", ErrInvalidAmount)
	}
	return parseText(d.String())
}

func parseText(s string) (Units, error) {
	s = strings.TrimSpace(s)
	if !amountRe.MatchString(s) {
		return Zero, fmt.Errorf("%w: amount must have up to %d decimal places", ErrInvalidAmount, FractionDigits)
	}

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")

	intPart, fracPart, _ := strings.Cut(s, ".")
	if len(strings.TrimLeft(intPart, "0")) > MaxIntegerDigits {
		return Zero, fmt.Errorf("%w: amount exceeds %d integer digits", ErrInvalidAmount, MaxIntegerDigits)
	}
	fracPart = (fracPart + "0000")[:FractionDigits]

	v, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return Zero, fmt.Errorf("%w: malformed amount", ErrInvalidAmount)
	}
	if negative {
		v.Neg(v)
	}
	return Units{v: v}, nil
}

func fromWhole(n *big.Int) Units {
	return Units{v: n.Mul(n, bigScale)}
}

func (u Units) int() *big.Int {
	if u.v == nil {
		return new(big.Int)
	}
	return u.v
}

// Add returns u + o.
func (u Units) Add(o Units) Units {
	return Units{v: new(big.Int).Add(u.int(), o.int())}
}

// Sign returns -1, 0 or +1.
func (u Units) Sign() int {
	return u.int().Sign()
}

// IsNegative reports whether u < 0.
func (u Units) IsNegative() bool {
	return u.Sign() < 0
}

// Cmp compares u and o like big.Int.Cmp.
func (u Units) Cmp(o Units) int {
	return u.int().Cmp(o.int())
}

// Equal reports whether u and o hold the same amount.
func (u Units) Equal(o Units) bool {
	return u.Cmp(o) == 0
}

// String returns the raw unit count in base 10 (storage format).
func (u Units) String() string {
	return u.int().String()
}

// Format renders u as a decimal with exactly four fractional digits.
func (u Units) Format() string {
	abs := new(big.Int).Abs(u.int())
	q, r := new(big.Int).QuoRem(abs, bigScale, new(big.Int))

	sign := ""
	if u.IsNegative() {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%04d", sign, q.String(), r.Int64())
}

// Float64 is a lossy display projection derived from Format. It must never
// be fed back into balance arithmetic.
func (u Units) Float64() float64 {
	f, _ := strconv.ParseFloat(u.Format(), 64)
	return f
}

// JSONNumber renders Format as a JSON number literal, keeping all four
// fractional digits on the wire.
func (u Units) JSONNumber() json.Number {
	return json.Number(u.Format())
}
