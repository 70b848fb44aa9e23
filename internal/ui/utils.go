package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func HealthColor(health string) lipgloss.Color {
	switch health {
	case "green":
		return ColorGreen
	case "yellow":
		return ColorYellow
	case "red":
		return ColorRed
	default:
		return ColorGray
	}
}

// StatusColor colors an HTTP status by class.
func StatusColor(code int) lipgloss.Color {
	switch {
	case code >= 200 && code < 300:
		return ColorGreen
	case code >= 300 && code < 500:
		return ColorYellow
	case code >= 500:
		return ColorRed
	default:
		return ColorGray
	}
}

func FormatNumber(s string) string {
	if s == "" || s == "-" {
		return s
	}

	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return s
	}

	if num < 1000 {
		return s
	}

	str := strconv.FormatInt(num, 10)
	var result strings.Builder
	n := len(str)

	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatDuration rounds d for display: microseconds below 1ms, milliseconds
// below 1s, otherwise hundredths of a second.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
