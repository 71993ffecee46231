package commerce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasOrderIntent(t *testing.T) {
	assert.True(t, HasOrderIntent("Where is my package?"))
	assert.True(t, HasOrderIntent("order #4521 status?"))
	assert.True(t, HasOrderIntent("Can I get a RECEIPT"))
	assert.False(t, HasOrderIntent("what are your opening hours"))
}

func TestExtractOrderNumber(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"My name is Jane Doe, email jane@example.com, order #4521 status?", "4521"},
		{"order 12", "12"},
		{"#77 please", "77"},
		{"it was 2 items, reference 99881 ok", "99881"},
		{"call 555 please", ""},
		{"no numbers", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractOrderNumber(tt.text), tt.text)
	}
}
