package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceKnownModel(t *testing.T) {
	c := NewCalculator(DefaultTable(), "")

	// 1500/1000*0.0015 + 500/1000*0.002 = 0.00225 + 0.001
	assert.InDelta(t, 0.00325, c.Price("openai", "gpt-3.5-turbo", 1500, 500), 1e-12)
	assert.InDelta(t, 0.0009, c.Price("openrouter", "anthropic/claude-3-haiku", 1000, 520), 1e-12)
	assert.Equal(t, "USD", c.Currency())
}

func TestPriceZeroTokens(t *testing.T) {
	c := NewCalculator(DefaultTable(), "USD")
	for provider, models := range DefaultTable() {
		for model := range models {
			assert.Zero(t, c.Price(provider, model, 0, 0), "%s/%s", provider, model)
		}
	}
}

func TestPriceUnknownIsZero(t *testing.T) {
	c := NewCalculator(DefaultTable(), "USD")
	assert.Zero(t, c.Price("openai", "gpt-99", 1000, 1000))
	assert.Zero(t, c.Price("nope", "gpt-4", 1000, 1000))
	assert.Zero(t, NewCalculator(nil, "").Price("openai", "gpt-4", 1000, 1000))
}

func TestPriceMonotonic(t *testing.T) {
	c := NewCalculator(DefaultTable(), "USD")
	prev := 0.0
	for in := 0; in <= 5000; in += 250 {
		got := c.Price("openai", "gpt-4o", in, 100)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	prev = 0
	for out := 0; out <= 5000; out += 250 {
		got := c.Price("openai", "gpt-4o", 100, out)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestPriceRounding(t *testing.T) {
	c := NewCalculator(Table{"p": {"m": {Input: 0.0000011, Output: 0}}}, "EUR")
	assert.Equal(t, 0.000001, c.Price("p", "m", 1000, 0))
	assert.Equal(t, "EUR", c.Currency())
}

func TestCalculatorCopiesTable(t *testing.T) {
	table := Table{"p": {"m": {Input: 1, Output: 1}}}
	c := NewCalculator(table, "USD")
	table["p"]["m"] = ModelPrice{Input: 100, Output: 100}
	assert.Equal(t, 2.0, c.Price("p", "m", 1000, 1000))
}
