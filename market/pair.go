package market

import (
	"fmt"
	"strings"
)

// SplitPair splits a six-letter pair code such as "EURUSD" into its base and
// quote currencies.
func SplitPair(pair string) (base, quote string, err error) {
	if len(pair) != 6 {
		return "", "", &InvalidPairError{Pair: pair, Reason: "want six letters"}
	}
	for i := 0; i < len(pair); i++ {
		if pair[i] < 'A' || pair[i] > 'Z' {
			return "", "", &InvalidPairError{Pair: pair, Reason: "want upper case letters"}
		}
	}
	return pair[:3], pair[3:], nil
}

// InversePair returns the pair with base and quote swapped: "GBPUSD" -> "USDGBP".
func InversePair(pair string) (string, error) {
	base, quote, err := SplitPair(pair)
	if err != nil {
		return "", err
	}
	return quote + base, nil
}

// Instrument formats a pair the way brokers name it: "EURUSD" -> "EUR_USD".
func Instrument(pair string) string {
	if len(pair) != 6 {
		return pair
	}
	return fmt.Sprintf("%s_%s", pair[:3], pair[3:])
}

// NormalizePair accepts "EUR_USD", "EUR/USD" or "eurusd" and returns "EURUSD".
func NormalizePair(instrument string) string {
	s := strings.ToUpper(strings.TrimSpace(instrument))
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, "/", "")
}
