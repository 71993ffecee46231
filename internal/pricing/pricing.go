// Package pricing converts token counts into monetary cost.
package pricing

import "math"

// ModelPrice is the price per 1000 tokens.
type ModelPrice struct {
	Input  float64 `json:"input" yaml:"input"`
	Output float64 `json:"output" yaml:"output"`
}

// Table maps provider -> model -> price.
type Table map[string]map[string]ModelPrice

// DefaultTable returns the built-in prices in USD.
func DefaultTable() Table {
	return Table{
		"openai": {
			"gpt-3.5-turbo": {Input: 0.0015, Output: 0.002},
			"gpt-4":         {Input: 0.03, Output: 0.06},
			"gpt-4o":        {Input: 0.005, Output: 0.015},
		},
		"openrouter": {
			"anthropic/claude-3-haiku":  {Input: 0.00025, Output: 0.00125},
			"anthropic/claude-3-sonnet": {Input: 0.003, Output: 0.015},
		},
	}
}

// Calculator prices provider calls. It is safe for concurrent use once built.
type Calculator struct {
	table    Table
	currency string
}

// NewCalculator creates a calculator over table. A nil table prices everything at zero.
func NewCalculator(table Table, currency string) *Calculator {
	if currency == "" {
		currency = "USD"
	}
	copied := make(Table, len(table))
	for provider, models := range table {
		m := make(map[string]ModelPrice, len(models))
		for model, price := range models {
			m[model] = price
		}
		copied[provider] = m
	}
	return &Calculator{table: copied, currency: currency}
}

// Currency returns the currency code costs are expressed in.
func (c *Calculator) Currency() string {
	return c.currency
}

// Lookup returns the price for provider/model.
func (c *Calculator) Lookup(provider, model string) (ModelPrice, bool) {
	models, ok := c.table[provider]
	if !ok {
		return ModelPrice{}, false
	}
	price, ok := models[model]
	return price, ok
}

// Price returns the cost of a call rounded to 6 decimal places.
// Unknown providers and models cost 0.
func (c *Calculator) Price(provider, model string, inputTokens, outputTokens int) float64 {
	price, ok := c.Lookup(provider, model)
	if !ok {
		return 0
	}
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}
	cost := float64(inputTokens)/1000*price.Input + float64(outputTokens)/1000*price.Output
	return Round6(cost)
}

// Round6 rounds v to 6 decimal places.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
