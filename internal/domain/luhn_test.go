package domain

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuhnCheckDigit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		payload string
		want    int
	}{
		{"7992739871", 3},
		{"400000000000000", 2},
		{"411111111111111", 1},
		{"555555555555444", 4},
		{"000000000000000", 0},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			t.Parallel()
			got := LuhnCheckDigit(tt.payload)
			assert.Equal(t, tt.want, got)
			assert.True(t, ValidLuhn(tt.payload+strconv.Itoa(got)))
		})
	}
}

func TestValidLuhn(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidLuhn("4111111111111111"))
	assert.True(t, ValidLuhn("4000000000000002"))
	assert.False(t, ValidLuhn("4111111111111112"))
	assert.False(t, ValidLuhn("41111111111x1111"))
	assert.False(t, ValidLuhn("4"))
}
