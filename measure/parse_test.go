package measure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseToken(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"0,25", 0.25, true},
		{"0.25", 0.25, true},
		{"-0,05", -0.05, true},
		{"+1,5", 1.5, true},
		{"42", 42, true},
		{"-7", -7, true},
		{"1.234,56", 1234.56, true},
		{"12.345.678,9", 12345678.9, true},
		{" 0,30 ", 0.30, true},
		{"abc", 0, false},
		{"", 0, false},
		{"¿¿¿???", 0, false},
		{"NaN", 0, false},
		{"#N/A", 0, false},
		{"1,2,3", 0, false},
		{"12.34.56", 0, false},
	}

	for _, c := range cases {
		got := ParseToken(c.raw)
		if c.ok {
			assert.True(t, got.OK, "token %q should parse", c.raw)
			assert.InDelta(t, c.want, got.Value, 1e-12, "token %q", c.raw)
		} else {
			assert.False(t, got.OK, "token %q should not parse", c.raw)
			assert.Equal(t, c.raw, got.Raw, "raw token must be retained")
		}
	}
}

// Parse -> format -> parse is idempotent for every recognized form.
func TestParseFormatRoundTrip(t *testing.T) {
	for _, raw := range []string{"0,25", "0.30", "42", "-0,05", "1.234,56"} {
		first := ParseToken(raw)
		assert.True(t, first.OK, "token %q", raw)

		second := ParseToken(FormatValue(first.Value))
		assert.True(t, second.OK, "reformatted %q", raw)
		assert.Equal(t, first.Value, second.Value, "token %q", raw)
	}
}

func TestScenarioMixedTokens(t *testing.T) {
	tokens := []string{"0,25", "0.30", "abc"}

	var values []float64
	failures := 0
	for _, tok := range tokens {
		if p := ParseToken(tok); p.OK {
			values = append(values, p.Value)
		} else {
			failures++
		}
	}

	assert.Equal(t, []float64{0.25, 0.30}, values)
	assert.Equal(t, 1, failures)
}
