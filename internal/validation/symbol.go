package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// OptionDetails is the decomposition of an OCC-style option symbol
type OptionDetails struct {
	Underlying string
	Expiry     time.Time
	IsCall     bool
	Strike     float64
}

var (
	equityPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)
	// OCC symbology: root (1-6 chars), yymmdd, C or P, strike x1000
	// padded to 8 digits, e.g. AAPL260116C00200000.
	optionPattern = regexp.MustCompile(`^([A-Z]{1,6})(\d{6})([CP])(\d{8})$`)
)

// IsEquitySymbol reports whether the symbol looks like an equity or ETF
func IsEquitySymbol(symbol string) bool {
	return equityPattern.MatchString(symbol)
}

// IsOptionSymbol reports whether the symbol parses as an OCC option
func IsOptionSymbol(symbol string) bool {
	return optionPattern.MatchString(symbol)
}

// InstrumentKindOf classifies a symbol by its format
func InstrumentKindOf(symbol string) (types.InstrumentKind, error) {
	switch {
	case IsOptionSymbol(symbol):
		return types.InstrumentOption, nil
	case IsEquitySymbol(symbol):
		return types.InstrumentEquity, nil
	default:
		return "", fmt.Errorf("symbol %q matches neither equity nor option format", symbol)
	}
}

// ParseOptionSymbol decomposes an OCC option symbol into its parts
func ParseOptionSymbol(symbol string) (OptionDetails, error) {
	m := optionPattern.FindStringSubmatch(symbol)
	if m == nil {
		return OptionDetails{}, fmt.Errorf("invalid option symbol %q", symbol)
	}

	expiry, err := time.Parse("060102", m[2])
	if err != nil {
		return OptionDetails{}, fmt.Errorf("invalid option expiry in %q: %w", symbol, err)
	}

	strikeMillis, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil || strikeMillis <= 0 {
		return OptionDetails{}, fmt.Errorf("invalid option strike in %q", symbol)
	}

	return OptionDetails{
		Underlying: m[1],
		Expiry:     expiry,
		IsCall:     m[3] == "C",
		Strike:     float64(strikeMillis) / 1000.0,
	}, nil
}
