package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttendanceFilename(t *testing.T) {
	tests := map[string]string{
		"Graduation 2024!":      "Graduation_2024_attendance_report.xlsx",
		"Prom   Night (Senior)": "Prom_Night_Senior_attendance_report.xlsx",
		"Gala":                  "Gala_attendance_report.xlsx",
	}
	for name, want := range tests {
		assert.Equal(t, want, AttendanceFilename(name), "AttendanceFilename(%q)", name)
	}
}
