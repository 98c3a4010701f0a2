// Package money converts user-entered USD amounts into integer minor units and
// settlement token units. Amounts never pass through floating point.
package money

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MaxPaymentLinkCents caps the fixed amount of a payment link ($2,000,000.00).
	MaxPaymentLinkCents int64 = 200_000_000
	// MaxPaymentCents caps a single public payment ($10,000,000.00).
	MaxPaymentCents int64 = 1_000_000_000
	// MicrosPerCent converts cents into 6-decimal token units.
	MicrosPerCent int64 = 10_000
)

var decimalPattern = regexp.MustCompile(`^\d+(\.\d{0,2})?$`)

// ErrOutOfRange is returned by CentsToMicros for negative or overflowing input.
var ErrOutOfRange = errors.New("money: amount out of range")

// ParseError describes why an amount string was rejected. Reason is safe to
// show to the person who typed the amount.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return "invalid amount: " + e.Reason
}

// ParseDecimalToCents parses "12", "12.", "12.5" or "12.50" into cents. The
// result must be positive and must not exceed max.
func ParseDecimalToCents(input string, max int64) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, &ParseError{Input: input, Reason: "amount is required"}
	}
	if !decimalPattern.MatchString(s) {
		return 0, &ParseError{Input: input, Reason: "use a number with at most two decimal places"}
	}
	whole, frac, _ := strings.Cut(s, ".")
	frac = (frac + "00")[:2]

	// Anything longer than the ceiling in whole dollars is rejected before
	// strconv can overflow.
	if len(strings.TrimLeft(whole, "0")) > len(strconv.FormatInt(max/100, 10)) {
		return 0, &ParseError{Input: input, Reason: "amount exceeds " + formatPlain(max)}
	}
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, &ParseError{Input: input, Reason: "amount is too large"}
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, &ParseError{Input: input, Reason: "invalid cents"}
	}
	total := dollars*100 + cents
	if total <= 0 {
		return 0, &ParseError{Input: input, Reason: "amount must be greater than zero"}
	}
	if total > max {
		return 0, &ParseError{Input: input, Reason: "amount exceeds " + formatPlain(max)}
	}
	return total, nil
}

// CentsToMicros converts cents to micro-units (1 cent = 10,000 micros).
func CentsToMicros(cents int64) (int64, error) {
	if cents < 0 || cents > math.MaxInt64/MicrosPerCent {
		return 0, fmt.Errorf("%w: %d cents", ErrOutOfRange, cents)
	}
	return cents * MicrosPerCent, nil
}

// ValidateCents checks an integer amount against a ceiling.
func ValidateCents(cents, max int64) error {
	if cents <= 0 {
		return &ParseError{Input: strconv.FormatInt(cents, 10), Reason: "amount must be greater than zero"}
	}
	if cents > max {
		return &ParseError{Input: strconv.FormatInt(cents, 10), Reason: "amount exceeds " + formatPlain(max)}
	}
	return nil
}

func formatPlain(cents int64) string {
	return FormatCents(cents, "USD")
}
