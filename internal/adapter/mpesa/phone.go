package mpesa

import (
	"fmt"
	"strings"

	"github.com/BotCoder254/projects254/internal/usecase"
)

const msisdnLen = 12

// NormalizePhone turns local and international spellings of a subscriber
// number into the 12-digit MSISDN the gateway expects.
func NormalizePhone(raw, countryCode string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, countryCode):
	case strings.HasPrefix(digits, "0"):
		digits = countryCode + digits[1:]
	case len(digits) == msisdnLen-len(countryCode):
		digits = countryCode + digits
	}

	if len(digits) != msisdnLen || !strings.HasPrefix(digits, countryCode) {
		return "", fmt.Errorf("%w: invalid phone number %q", usecase.ErrValidation, raw)
	}
	return digits, nil
}
