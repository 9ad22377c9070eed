package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		token string
		want  string
		ok    bool
	}{
		{"today", "2026-10-14", true},
		{"Tomorrow", "2026-10-15", true},
		{"day after", "2026-10-16", true},
		{"day  after tomorrow", "2026-10-16", true},
		{"next week", "2026-10-21", true},
		{"thursday", "2026-10-15", true},
		// Same weekday as today rolls over a full week.
		{"wednesday", "2026-10-21", true},
		// Earlier weekday resolves into next week.
		{"monday", "2026-10-19", true},
		{"2026-11-02", "2026-11-02", true},
		{"someday", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.token, refNow)
		assert.Equal(t, tt.ok, ok, "token %q", tt.token)
		assert.Equal(t, tt.want, got, "token %q", tt.token)
	}
}

func TestParseDateAcrossMonthBoundary(t *testing.T) {
	now := time.Date(2026, 10, 31, 23, 0, 0, 0, time.UTC)
	got, ok := ParseDate("tomorrow", now)
	assert.True(t, ok)
	assert.Equal(t, "2026-11-01", got)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		token string
		want  string
		ok    bool
	}{
		{"12:30 pm", "12:30", true},
		{"12pm", "12:00", true},
		{"12 am", "00:00", true},
		{"2pm", "14:00", true},
		{"9:05am", "09:05", true},
		{"14", "14:00", true},
		{"7:5", "", false},
		{"25:00", "", false},
		{"10:75", "", false},
		{"noon", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTime(tt.token)
		assert.Equal(t, tt.ok, ok, "token %q", tt.token)
		assert.Equal(t, tt.want, got, "token %q", tt.token)
	}
}

func TestFormatTimeDisplay(t *testing.T) {
	assert.Equal(t, "12:30 PM", FormatTimeDisplay("12:30", "en"))
	assert.Equal(t, "12:00 AM", FormatTimeDisplay("00:00", "en"))
	assert.Equal(t, "9:15 AM", FormatTimeDisplay("09:15", "english"))
	assert.Equal(t, "दोपहर 2:00 बजे", FormatTimeDisplay("14:00", "hi"))
	assert.Equal(t, "10:00 बजे", FormatTimeDisplay("10:00", "hindi"))
	assert.Equal(t, "दुपारी 3:30 वाजता", FormatTimeDisplay("15:30", "mr"))
	assert.Equal(t, "11:00 वाजता", FormatTimeDisplay("11:00", "marathi"))
	assert.Equal(t, "", FormatTimeDisplay("9:00", "en"))
	assert.Equal(t, "", FormatTimeDisplay("24:00", "en"))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Thu, 15 Oct 2026", FormatDate("2026-10-15"))
	assert.Equal(t, "bad", FormatDate("bad"))
}
