package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// TestInstrumentKindOf tests symbol format classification
func TestInstrumentKindOf(t *testing.T) {
	tests := []struct {
		symbol string
		kind   types.InstrumentKind
		ok     bool
	}{
		{"AAPL", types.InstrumentEquity, true},
		{"SPY", types.InstrumentEquity, true},
		{"A", types.InstrumentEquity, true},
		{"AAPL260116C00200000", types.InstrumentOption, true},
		{"SPXW260116P01234500", types.InstrumentOption, true},
		{"aapl", "", false},
		{"TOOLONG7", "", false},
		{"AAPL26C00200000", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		kind, err := InstrumentKindOf(tt.symbol)
		if tt.ok {
			assert.NoError(t, err, tt.symbol)
			assert.Equal(t, tt.kind, kind, tt.symbol)
		} else {
			assert.Error(t, err, tt.symbol)
		}
	}
}

// TestParseOptionSymbol tests the OCC symbol decomposition
func TestParseOptionSymbol(t *testing.T) {
	details, err := ParseOptionSymbol("AAPL260116C00200000")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", details.Underlying)
	assert.Equal(t, time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), details.Expiry)
	assert.True(t, details.IsCall)
	assert.Equal(t, 200.0, details.Strike)
}

// TestParseOptionSymbol_Put tests put parsing and fractional strikes
func TestParseOptionSymbol_Put(t *testing.T) {
	details, err := ParseOptionSymbol("SPXW260116P01234500")
	require.NoError(t, err)

	assert.Equal(t, "SPXW", details.Underlying)
	assert.False(t, details.IsCall)
	assert.Equal(t, 1234.5, details.Strike)
}

// TestParseOptionSymbol_Invalid tests rejection of malformed symbols
func TestParseOptionSymbol_Invalid(t *testing.T) {
	for _, symbol := range []string{"AAPL", "AAPL260116X00200000", "AAPL260116C002000", ""} {
		_, err := ParseOptionSymbol(symbol)
		assert.Error(t, err, symbol)
	}
}
