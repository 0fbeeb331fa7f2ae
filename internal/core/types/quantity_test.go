package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{"100", NewQuantity(100)},
		{"0.5", 5000},
		{"-1.25", -12500},
		{"3.14159", 31415},
		{".1", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseQuantity("abc")
	assert.Error(t, err)
}

func TestQuantity_JSON(t *testing.T) {
	var payload struct {
		Qty Quantity `json:"qty"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"qty":"90"}`), &payload))
	assert.Equal(t, NewQuantity(90), payload.Qty)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"qty":90.0000}`, string(out))
}

func TestQuantity_Clamp(t *testing.T) {
	assert.Equal(t, Quantity(0), NewQuantity(-5).Clamp(0, NewQuantity(10)))
	assert.Equal(t, NewQuantity(10), NewQuantity(15).Clamp(0, NewQuantity(10)))
	assert.Equal(t, NewQuantity(7), NewQuantity(7).Clamp(0, NewQuantity(10)))
	assert.Equal(t, Quantity(0), NewQuantity(-1).MaxZero())
}

func TestLineAmount(t *testing.T) {
	assert.Equal(t, "25.50", LineAmount(MustMoney("2.55"), NewQuantity(10)).StringFixed(2))
}
