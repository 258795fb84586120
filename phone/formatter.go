package phone

import (
	"regexp"
	"strings"
)

var (
	nonDialChars = regexp.MustCompile(`[^\d+]`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// Formatter canonicalizes raw phone input into international-format
// addresses. Numbers without a country code are assumed to belong to the
// configured default country.
type Formatter struct {
	countryCode string
}

// NewFormatter creates a formatter for the given default country code
// (digits only, e.g. "91").
func NewFormatter(countryCode string) *Formatter {
	cc := nonDigits.ReplaceAllString(countryCode, "")
	if cc == "" {
		cc = "91"
	}
	return &Formatter{countryCode: cc}
}

// Format maps a raw phone string to its canonical international form.
func (f *Formatter) Format(raw string) string {
	cleaned := nonDialChars.ReplaceAllString(raw, "")

	// Already in international form
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}

	// Carries the default country code already
	if strings.HasPrefix(cleaned, f.countryCode) && len(cleaned) >= len(f.countryCode)+10 {
		return "+" + cleaned
	}

	// Bare 10-digit local number
	if len(cleaned) == 10 {
		return "+" + f.countryCode + cleaned
	}

	return "+" + cleaned
}

// Candidates returns the ordered, deduplicated set of address encodings to
// probe for a raw phone string. The first entry is always present and the
// order is deterministic for a given input.
func (f *Formatter) Candidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	digitsOnly := nonDigits.ReplaceAllString(raw, "")

	var candidates []string
	seen := make(map[string]bool)
	add := func(format string) {
		if format == "" || seen[format] {
			return
		}
		seen[format] = true
		candidates = append(candidates, format)
	}

	add(trimmed)
	if trimmed != "" && !strings.HasPrefix(trimmed, "+") {
		add("+" + trimmed)
	}
	add(digitsOnly)

	cc := f.countryCode
	if len(digitsOnly) == 10 {
		add("+" + cc + digitsOnly)
		add(cc + digitsOnly)
	} else if len(digitsOnly) == len(cc)+10 && strings.HasPrefix(digitsOnly, cc) {
		add("+" + digitsOnly)
		add(digitsOnly)
		add(digitsOnly[len(cc):])
	}

	if len(candidates) == 0 {
		add(f.Format(raw))
	}
	return candidates
}
