package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBonusQuantity(t *testing.T) {
	tests := []struct {
		name     string
		codeType string
		amount   string
		original string
		want     string
	}{
		{"gold flat bonus", TypeGold, "5", "100", "5"},
		{"gold flat bonus ignores quantity", TypeGold, "2.5", "1", "2.5"},
		{"percentage", "percent", "10", "100", "10"},
		{"percentage rounds to 2dp", "percent", "3", "33.33", "1"},
		{"percentage fractional result", "percent", "7.5", "100", "7.5"},
		{"percentage small quantity", "percent", "10", "0.05", "0.01"},
		{"zero percentage", "percent", "0", "100", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Code{
				Code:   "TEST",
				Type:   tt.codeType,
				Amount: decimal.RequireFromString(tt.amount),
			}
			got := c.BonusQuantity(decimal.RequireFromString(tt.original))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestIsDeleted(t *testing.T) {
	c := &Code{Code: "GONE"}
	assert.False(t, c.IsDeleted())

	now := time.Now()
	c.DeletedAt = &now
	assert.True(t, c.IsDeleted())
}
