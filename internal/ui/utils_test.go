package ui

import (
	"testing"
	"time"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"-", "-"},
		{"0", "0"},
		{"999", "999"},
		{"1000", "1,000"},
		{"1234", "1,234"},
		{"12345", "12,345"},
		{"1234567", "1,234,567"},
		{"1234567890", "1,234,567,890"},
		{"invalid", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := FormatNumber(tt.input)
			if result != tt.expected {
				t.Errorf("FormatNumber(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer string", 10, "a longe..."},
		{"abcdef", 3, "abc"},
		{"ünïcödé text", 8, "ünïcö..."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestHealthAndStatusColor(t *testing.T) {
	if HealthColor("green") != ColorGreen || HealthColor("red") != ColorRed || HealthColor("??") != ColorGray {
		t.Error("HealthColor mapping wrong")
	}
	cases := map[int]interface{}{200: ColorGreen, 201: ColorGreen, 404: ColorYellow, 503: ColorRed, 0: ColorGray}
	for code, want := range cases {
		if got := StatusColor(code); got != want {
			t.Errorf("StatusColor(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{1500 * time.Nanosecond, "2µs"},
		{12*time.Millisecond + 400*time.Microsecond, "12ms"},
		{2340 * time.Millisecond, "2.34s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.input); got != tt.expected {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
