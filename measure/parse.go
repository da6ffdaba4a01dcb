package measure

import (
	"regexp"
	"strconv"
	"strings"
)

// Ordered token patterns, attempted first to last. Machines around the
// plant disagree on locale: some export "0,25", some "0.25", some bare
// integers, and broken exports produce free text or template placeholders.
var (
	decimalCommaPattern   = regexp.MustCompile(`^[+-]?\d+,\d+$`)
	thousandsCommaPattern = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+,\d{1,3}$`)
	decimalPointPattern   = regexp.MustCompile(`^[+-]?\d+\.\d+$`)
	bareIntegerPattern    = regexp.MustCompile(`^[+-]?\d+$`)
)

// Tokens that are textual null markers rather than measurement values.
var invalidTokens = map[string]struct{}{
	"": {}, "nan": {}, "none": {}, "null": {},
	"#n/a": {}, "#error": {}, "error": {}, "unknown": {},
}

// ParsedValue is the tagged result of a token parse: either a value or
// the raw token, never an exception.
type ParsedValue struct {
	Value float64
	OK    bool
	Raw   string
}

// ParseToken converts a raw source token to a float. Patterns are tried
// in priority order: decimal comma, European thousands form, decimal
// point, bare integer. Anything else is reported unparsed with the raw
// token retained.
func ParseToken(raw string) ParsedValue {
	token := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")

	if _, bad := invalidTokens[strings.ToLower(token)]; bad {
		return ParsedValue{Raw: raw}
	}

	var candidate string
	switch {
	case decimalCommaPattern.MatchString(token):
		candidate = strings.Replace(token, ",", ".", 1)
	case thousandsCommaPattern.MatchString(token):
		// "1.234,56" -> "1234.56"
		candidate = strings.Replace(strings.ReplaceAll(token, ".", ""), ",", ".", 1)
	case decimalPointPattern.MatchString(token):
		candidate = token
	case bareIntegerPattern.MatchString(token):
		candidate = token
	default:
		return ParsedValue{Raw: raw}
	}

	v, err := strconv.ParseFloat(candidate, 64)
	if err != nil {
		return ParsedValue{Raw: raw}
	}
	return ParsedValue{Value: v, OK: true, Raw: raw}
}

// FormatValue re-serializes a parsed value canonically (decimal point,
// minimal digits). ParseToken(FormatValue(v)) always round-trips.
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	// A whole float formats without a fractional part; both forms parse.
	return s
}
