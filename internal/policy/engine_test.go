package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultOrderPolicy)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input OrderInput
		want  string
	}{
		{"matching email", OrderInput{RequireEmail: true, EmailSupplied: true, EmailMatches: true, AgeDays: 3, MaxAgeDays: 365}, DecisionAllow},
		{"no email supplied", OrderInput{RequireEmail: true, AgeDays: 3, MaxAgeDays: 365}, DecisionAllow},
		{"mismatch", OrderInput{RequireEmail: true, EmailSupplied: true, AgeDays: 3, MaxAgeDays: 365}, DecisionEmailMismatch},
		{"mismatch ignored when not required", OrderInput{EmailSupplied: true, AgeDays: 3, MaxAgeDays: 365}, DecisionAllow},
		{"too old", OrderInput{AgeDays: 400, MaxAgeDays: 365}, DecisionTooOld},
		{"mismatch wins over age", OrderInput{RequireEmail: true, EmailSupplied: true, AgeDays: 400, MaxAgeDays: 365}, DecisionEmailMismatch},
		{"no age limit", OrderInput{AgeDays: 4000}, DecisionAllow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package order_policy\ndecision := ")
	assert.Error(t, err)
}
