// Package words spells whole currency amounts out in a natural language.
package words

import (
	"strings"

	"github.com/shopspring/decimal"

	customError "github.com/segyhp/loan-documents/pkg/errors"
)

// MaxAmount is the largest magnitude that can be spelled out.
const MaxAmount int64 = 999_999_999_999

var maxAmountDecimal = decimal.NewFromInt(MaxAmount)

// Converter turns integers into words using one NumberSystem.
type Converter struct {
	system NumberSystem
}

// NewConverter creates a converter for the given number system. A nil
// system falls back to Arabic.
func NewConverter(system NumberSystem) *Converter {
	if system == nil {
		system = Arabic
	}
	return &Converter{system: system}
}

// ToWords spells amount out. Amounts outside ±MaxAmount are rejected with
// an InvalidAmount error.
func (c *Converter) ToWords(amount int64) (string, error) {
	if amount > MaxAmount || amount < -MaxAmount {
		return "", customError.WrapInvalidAmount("amount %d is outside the supported range", amount)
	}

	switch {
	case amount == 0:
		return c.system.Zero(), nil
	case amount < 0:
		return c.system.Negative() + " " + c.spell(-amount), nil
	default:
		return c.spell(amount), nil
	}
}

// FromDecimal spells out a decimal that must hold a whole number. Callers
// truncate fractional amounts themselves.
func (c *Converter) FromDecimal(amount decimal.Decimal) (string, error) {
	if !amount.IsInteger() {
		return "", customError.WrapInvalidAmount("amount %s is not a whole number", amount.String())
	}
	if amount.Abs().GreaterThan(maxAmountDecimal) {
		return "", customError.WrapInvalidAmount("amount %s is outside the supported range", amount.String())
	}
	return c.ToWords(amount.IntPart())
}

// AmountPhrase truncates amount to whole units and renders
// "<words> <currency> <suffix>", skipping empty parts.
func (c *Converter) AmountPhrase(amount decimal.Decimal, currency, suffix string) (string, error) {
	spelled, err := c.FromDecimal(amount.Truncate(0))
	if err != nil {
		return "", err
	}

	parts := []string{spelled}
	for _, p := range []string{currency, suffix} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " "), nil
}

func (c *Converter) spell(n int64) string {
	var segments []string

	for _, scale := range c.system.Scales() {
		if n < scale.Value {
			continue
		}
		segments = append(segments, c.scaled(n/scale.Value, scale))
		n %= scale.Value
	}

	if n > 0 {
		segments = append(segments, c.belowThousand(int(n)))
	}

	return strings.Join(segments, c.system.Conjunction())
}

// scaled renders quantity × scale with the form the quantity calls for.
func (c *Converter) scaled(quantity int64, scale Scale) string {
	switch {
	case quantity == 1:
		return scale.One
	case quantity == 2:
		return scale.Two
	case quantity <= 10:
		return c.spell(quantity) + " " + scale.Few
	default:
		return c.spell(quantity) + " " + scale.Many
	}
}

func (c *Converter) belowThousand(n int) string {
	var parts []string

	if h := n / 100; h > 0 {
		parts = append(parts, c.system.Hundreds(h))
	}
	if r := n % 100; r > 0 {
		parts = append(parts, c.tensAndOnes(r))
	}

	return strings.Join(parts, c.system.Conjunction())
}

func (c *Converter) tensAndOnes(n int) string {
	switch {
	case n < 10:
		return c.system.Ones(n)
	case n < 20:
		return c.system.Teens(n)
	}

	tens := c.system.Tens(n / 10)
	if n%10 == 0 {
		return tens
	}
	return c.system.JoinTensOnes(tens, c.system.Ones(n%10))
}
