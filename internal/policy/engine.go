// Package policy evaluates order disclosure rules with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the order policy.
const (
	DecisionAllow         = "allow"
	DecisionEmailMismatch = "email_mismatch"
	DecisionTooOld        = "too_old"
)

// OrderInput is the document the order policy evaluates.
type OrderInput struct {
	RequireEmail  bool    `json:"require_email"`
	EmailSupplied bool    `json:"email_supplied"`
	EmailMatches  bool    `json:"email_matches"`
	AgeDays       float64 `json:"age_days"`
	MaxAgeDays    int     `json:"max_age_days"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.order_policy.decision"),
		rego.Module("order_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the disclosure decision for an order lookup.
func (e *Engine) Evaluate(ctx context.Context, input OrderInput) (string, error) {
	doc := map[string]interface{}{
		"require_email":  input.RequireEmail,
		"email_supplied": input.EmailSupplied,
		"email_matches":  input.EmailMatches,
		"age_days":       input.AgeDays,
		"max_age_days":   input.MaxAgeDays,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "", fmt.Errorf("order policy produced no decision")
	}

	s, ok := results[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected decision type %T", results[0].Expressions[0].Value)
	}
	return s, nil
}

// DefaultOrderPolicy checks the billing email before the order age.
const DefaultOrderPolicy = `
package order_policy

import rego.v1

default decision := "allow"

decision := "email_mismatch" if {
	input.require_email
	input.email_supplied
	not input.email_matches
} else := "too_old" if {
	input.max_age_days > 0
	input.age_days > input.max_age_days
}
`
