package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebtTotal(t *testing.T) {
	assert.Equal(t, 0.0, DebtTotal(nil))
	assert.Equal(t, 0.3, DebtTotal([]float64{0.1, 0.2}))
	assert.Equal(t, 100.0, DebtTotal([]float64{33.33, 33.33, 33.34}))
	assert.Equal(t, 66.67, DebtTotal([]float64{100.0 / 3, 100.0 / 3}))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "50.00", FormatAmount(50))
	assert.Equal(t, "33.33", FormatAmount(100.0/3))
	assert.Equal(t, "0.10", FormatAmount(0.1))
}
