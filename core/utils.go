package core

import (
	"math"
	"strings"
	"time"
)

var NowFunc = func() time.Time { return time.Now().UTC() } // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Percent returns part/total as a rounded percentage, 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}

func BoolPtr(b bool) *bool { return &b }
func IntPtr(i int) *int    { return &i }
