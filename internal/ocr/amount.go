package ocr

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Plausible bounds for a receipt amount. Numbers outside this window are
// phone numbers, transaction IDs or dates, not money.
const (
	minAmount = 50
	maxAmount = 1_000_000
)

var (
	reDecimalMoney = regexp.MustCompile(`[0-9][0-9,]*\.[0-9]{2}`)
	reStandalone   = regexp.MustCompile(`^\s*[0-9][0-9,]*\s*$`)
	reNumber       = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]{1,2})?`)
	reHeaderAmount = regexp.MustCompile(`^\s*([0-9,]+\.?[0-9]{0,2})\s*$`)
)

var dateWords = []string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
	"2024", "2025", "2026",
}

var successIndicators = []string{
	"success", "successful", "completed", "approved", "confirmed",
}

// ExtractAmount finds the payment amount in OCR-extracted receipt text.
// Receipt layouts vary wildly and OCR output is noisy, so detection is
// layered: the headline money figure first, then numbers near the
// transaction-status line, then the plausible number closest to the
// expected amount. Returns false when no plausible amount exists.
func ExtractAmount(text string, expected float64) (float64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}

	lines := strings.Split(text, "\n")

	// Headline amount: a money-formatted number on a non-date line, or a
	// standalone bare number. These are checked line by line from the top
	// because the transaction amount usually leads the receipt.
	for _, line := range lines {
		clean := strings.TrimSpace(line)
		if isDateLine(clean) {
			continue
		}

		for _, match := range reDecimalMoney.FindAllString(clean, -1) {
			if amount, ok := parseAmount(match); ok {
				return amount, true
			}
		}

		if reStandalone.MatchString(clean) {
			if amount, ok := parseAmount(clean); ok {
				return amount, true
			}
		}
	}

	// Amount near the status line: the figure often sits one or two lines
	// above "Successful Transaction".
	for i, line := range lines {
		upper := strings.ToUpper(line)
		if !strings.Contains(upper, "SUCCESSFUL") && !strings.Contains(upper, "TRANSACTION") {
			continue
		}
		start := i - 2
		if start < 0 {
			start = 0
		}
		for j := start; j < i; j++ {
			for _, match := range reNumber.FindAllString(lines[j], -1) {
				if amount, ok := parseAmount(match); ok {
					return amount, true
				}
			}
		}
	}

	// All plausible numbers: pick the one closest to the expected amount,
	// or the largest when there is nothing to compare against.
	var candidates []float64
	for _, match := range reNumber.FindAllString(text, -1) {
		if amount, ok := parseAmount(match); ok {
			candidates = append(candidates, amount)
		}
	}
	if len(candidates) > 0 {
		best := candidates[0]
		for _, amount := range candidates[1:] {
			if expected > 0 {
				if math.Abs(amount-expected) < math.Abs(best-expected) {
					best = amount
				}
			} else if amount > best {
				best = amount
			}
		}
		return best, true
	}

	// Header lines: some receipts print only the bare figure at the top.
	for i, line := range lines {
		if i >= 5 {
			break
		}
		if m := reHeaderAmount.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if amount, ok := parseAmount(m[1]); ok {
				return amount, true
			}
		}
	}

	return 0, false
}

// ContainsReference reports whether the payment reference appears in the
// text, with or without its alphabetic prefix (OCR often drops it).
func ContainsReference(text, reference string) bool {
	if reference == "" {
		return false
	}
	upper := strings.ToUpper(text)
	if strings.Contains(upper, strings.ToUpper(reference)) {
		return true
	}
	digits := strings.TrimFunc(reference, func(r rune) bool {
		return r < '0' || r > '9'
	})
	return digits != "" && strings.Contains(text, digits)
}

// HasSuccessIndicator reports whether the text marks the transaction as
// completed.
func HasSuccessIndicator(text string) bool {
	lower := strings.ToLower(text)
	for _, indicator := range successIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if amount < minAmount || amount > maxAmount {
		return 0, false
	}
	// A bare year survives the range check
	if amount == 2024 || amount == 2025 || amount == 2026 {
		return 0, false
	}
	return amount, true
}

func isDateLine(line string) bool {
	upper := strings.ToUpper(line)
	for _, word := range dateWords {
		if strings.Contains(upper, word) {
			return true
		}
	}
	return false
}
