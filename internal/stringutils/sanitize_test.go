package stringutils_test

import (
	"testing"

	"github.com/medguideai/medguide/internal/stringutils"
	"github.com/stretchr/testify/require"
)

func TestSanitizeUnicodeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean string untouched", "Fasting glucose 92 mg/dL", "Fasting glucose 92 mg/dL"},
		{"null bytes removed", "HbA1c\x005.4%", "HbA1c5.4%"},
		{"control characters removed", "line\x01one\x1ftwo", "lineonetwo"},
		{"whitespace preserved", "one\ttwo\nthree\x00", "one\ttwo\nthree"},
		{"del removed", "a\x7fb", "ab"},
		{"unicode preserved", "혈당 검사 결과\x00", "혈당 검사 결과"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, stringutils.SanitizeUnicodeString(tt.input))
		})
	}
}
