package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/hospital-assistant/internal/i18n"
)

// DateLayout is the wire format of booking dates.
const DateLayout = "2006-01-02"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseDate resolves a relative date phrase against now. Weekday names resolve
// to the next occurrence; naming today's weekday means a week from today.
func ParseDate(token string, now time.Time) (string, bool) {
	token = strings.Join(strings.Fields(strings.ToLower(token)), " ")
	if token == "" {
		return "", false
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch token {
	case "today":
		return day.Format(DateLayout), true
	case "tomorrow":
		return day.AddDate(0, 0, 1).Format(DateLayout), true
	case "day after", "day after tomorrow":
		return day.AddDate(0, 0, 2).Format(DateLayout), true
	case "next week":
		return day.AddDate(0, 0, 7).Format(DateLayout), true
	}

	if target, ok := weekdays[token]; ok {
		delta := int(target) - int(day.Weekday())
		if delta <= 0 {
			delta += 7
		}
		return day.AddDate(0, 0, delta).Format(DateLayout), true
	}

	if t, err := time.ParseInLocation(DateLayout, token, now.Location()); err == nil {
		return t.Format(DateLayout), true
	}
	return "", false
}

var clockPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)?$`)

// ParseTime converts "12:30 pm", "9am", "14" and similar to 24-hour HH:MM.
func ParseTime(token string) (string, bool) {
	clean := strings.ToLower(strings.Join(strings.Fields(token), ""))
	m := clockPattern.FindStringSubmatch(clean)
	if m == nil {
		return "", false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes := 0
	if m[2] != "" {
		minutes, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hours != 12 {
			hours += 12
		}
	case "am":
		if hours == 12 {
			hours = 0
		}
	}
	if hours > 23 || minutes > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes), true
}

// FormatTimeDisplay renders HH:MM on a 12-hour clock in the given language.
// Malformed input yields "".
func FormatTimeDisplay(hhmm, lang string) string {
	parts := strings.Split(strings.TrimSpace(hhmm), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return ""
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ""
	}
	minute := parts[1]
	if _, err := strconv.Atoi(minute); err != nil {
		return ""
	}

	pm := hour >= 12
	if hour > 12 {
		hour -= 12
	}
	if hour == 0 {
		hour = 12
	}

	switch i18n.Normalize(lang) {
	case i18n.Hindi:
		if pm {
			return fmt.Sprintf("दोपहर %d:%s बजे", hour, minute)
		}
		return fmt.Sprintf("%d:%s बजे", hour, minute)
	case i18n.Marathi:
		if pm {
			return fmt.Sprintf("दुपारी %d:%s वाजता", hour, minute)
		}
		return fmt.Sprintf("%d:%s वाजता", hour, minute)
	default:
		period := "AM"
		if pm {
			period = "PM"
		}
		return fmt.Sprintf("%d:%s %s", hour, minute, period)
	}
}

// FormatDate renders a YYYY-MM-DD date for display, e.g. "Thu, 15 Oct 2026".
func FormatDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Mon, 02 Jan 2006")
}
