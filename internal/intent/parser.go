// Package intent extracts booking shortcuts from free-form text.
//
// Parsing is a pure function of the input and a reference time. Booking
// patterns are held as an ordered list of rules with named capture groups;
// the first rule that matches decides the extracted field set.
package intent

import (
	"regexp"
	"strings"
	"time"
)

// Kind classifies a piece of user text.
type Kind int

const (
	// NormalFlow means the text should go to the current step handler.
	NormalFlow Kind = iota
	// GeneralQuestion means the text is an informational question unrelated to booking.
	GeneralQuestion
	// DirectBooking means the text carries booking fields that can skip steps.
	DirectBooking
)

func (k Kind) String() string {
	switch k {
	case GeneralQuestion:
		return "general_question"
	case DirectBooking:
		return "direct_booking"
	default:
		return "normal_flow"
	}
}

// GeneralQuestionNotice is shown when a question is asked inside a booking flow.
const GeneralQuestionNotice = `This appears to be a general question. Please go to the "General Query" section for medical information and hospital details.`

// Fields are the booking values a rule extracted. Unset fields are empty.
type Fields struct {
	Name   string
	Phone  string
	Doctor string
	// DateToken is the raw date phrase; Date is its YYYY-MM-DD resolution.
	DateToken string
	Date      string
	// TimeToken is the raw time phrase; Time is HH:MM or empty when the token
	// could not be parsed.
	TimeToken string
	Time      string
}

// Result is the outcome of Parse.
type Result struct {
	Kind    Kind
	Rule    string
	Message string
	Fields  Fields
}

// Rule is one booking pattern. Recognised group names are name, phone,
// doctor, date and time.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

const (
	datePattern = `day\s+after\s+tomorrow|day\s+after|tomorrow|today|next\s+week|monday|tuesday|wednesday|thursday|friday|saturday|sunday`
	timePattern = `\d{1,2}(?::\d{2})?\s*(?:am|pm)?`
	namePattern = `[\x{0900}-\x{097F}a-zA-Z.\s]+?`
	docPattern  = `[a-zA-Z.\s]+?`
	tail        = `[\s.!?]*$`
)

func rule(name, expr string) Rule {
	r := strings.NewReplacer(
		"{DATE}", datePattern,
		"{TIME}", timePattern,
		"{NAME}", namePattern,
		"{DOC}", docPattern,
	)
	return Rule{Name: name, Pattern: regexp.MustCompile(`(?i)` + r.Replace(expr) + tail)}
}

// DefaultRules returns the booking rules, most specific first.
func DefaultRules() []Rule {
	return []Rule{
		rule("name_phone_number_doctor_date",
			`my\s+name\s+is\s+(?P<name>{NAME})\s+phone\s+number\s+is\s+(?P<phone>\d{10})\s+book\s+(?:my\s+)?appointment\s+with\s+(?:doctor\s+|dr\.?\s*)?(?P<doctor>{DOC})(?:\s+(?:for\s+)?(?P<date>{DATE}))?`),
		rule("name_phone_is_doctor_date",
			`my\s+name\s+is\s+(?P<name>{NAME}),\s*phone\s+is\s+(?P<phone>\d{10}),\s*book\s+(?:an?\s+)?appointment\s+with\s+(?:doctor\s+|dr\.?\s*)?(?P<doctor>{DOC})(?:\s+(?:for\s+)?(?P<date>{DATE}))?`),
		rule("name_phone_doctor_date",
			`my\s+name\s+is\s+(?P<name>{NAME}),\s*phone\s+(?P<phone>\d{10}),\s*book\s+(?:with\s+)?(?:doctor\s+|dr\.?\s*)?(?P<doctor>{DOC})(?:\s+for\s+(?P<date>{DATE}))?`),
		rule("name_doctor_date_time",
			`i\s+am\s+(?P<name>{NAME}),\s*book\s+(?:an?\s+)?appointment\s+with\s+(?:doctor\s+|dr\.?\s*)?(?P<doctor>{DOC})\s+(?:for\s+)?(?:(?P<date>{DATE})\s*)?(?:at\s+)?(?P<time>{TIME})`),
		rule("doctor_date_time",
			`book\s+(?:an?\s+)?appointment\s+with\s+(?:doctor\s+|dr\.?\s*)?(?P<doctor>{DOC})\s+(?:for\s+)?(?:(?P<date>{DATE})\s*)?(?:at\s+)?(?P<time>{TIME})`),
		rule("doctor_appointment_time",
			`^\s*(?:doctor\s+|dr\.?\s*)?(?P<doctor>{DOC})\s+appointment\s+(?:(?P<date>{DATE})\s*)?(?:at\s+)?(?P<time>{TIME})`),
		rule("doctor_date",
			`appointment\s+with\s+(?:doctor\s+|dr\.?\s*)?(?P<doctor>{DOC})\s+(?:for\s+)?(?P<date>{DATE})`),
		rule("doctor",
			`book\s+(?:an?\s+)?(?:appointment\s+)?(?:with\s+)?(?:doctor\s+|dr\.?\s*)?(?P<doctor>{DOC})(?:\s+for\s+(?P<date>{DATE}))?`),
	}
}

var bookingKeywords = []*regexp.Regexp{
	regexp.MustCompile(`(?i)book`),
	regexp.MustCompile(`(?i)appointment`),
	regexp.MustCompile(`(?i)dr\.?\s*\w+`),
	regexp.MustCompile(`(?i)doctor`),
	regexp.MustCompile(`(?i)tomorrow`),
	regexp.MustCompile(`(?i)today`),
	regexp.MustCompile(`(?i)monday|tuesday|wednesday|thursday|friday|saturday|sunday`),
	regexp.MustCompile(`(?i)my name is`),
	regexp.MustCompile(`(?i)phone.*\d`),
}

var generalQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(what|how|when|where|why|can you|could you|tell me|explain|describe)`),
	regexp.MustCompile(`(symptoms|treatment|medicine|disease|illness|health|medical advice)`),
	regexp.MustCompile(`(hospital|address|location|contact|timing|hours)`),
	regexp.MustCompile(`(fees|cost|price|charge|payment)`),
	regexp.MustCompile(`(about|information|details|help)`),
}

// Parser applies an ordered rule list.
type Parser struct {
	rules []Rule
}

// NewParser returns a parser over rules, or DefaultRules when none are given.
func NewParser(rules ...Rule) *Parser {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Parser{rules: rules}
}

// Rules exposes the evaluation order.
func (p *Parser) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// HasBookingKeyword reports whether text mentions anything booking related.
func HasBookingKeyword(text string) bool {
	for _, re := range bookingKeywords {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// IsGeneralQuestion reports whether text looks like an informational
// question. Booking keywords always win.
func IsGeneralQuestion(text string) bool {
	if HasBookingKeyword(text) {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, re := range generalQuestionPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// LooksLikeQuestion reports whether text is phrased as a question, by a
// leading question word or a question mark.
func LooksLikeQuestion(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	return strings.Contains(lower, "?") || generalQuestionPatterns[0].MatchString(lower)
}

// Parse classifies text. now anchors relative dates.
func (p *Parser) Parse(text string, now time.Time) Result {
	text = strings.TrimSpace(NormalizeDigits(text))
	if text == "" {
		return Result{Kind: NormalFlow}
	}
	if IsGeneralQuestion(text) {
		return Result{Kind: GeneralQuestion, Message: GeneralQuestionNotice}
	}
	if !HasBookingKeyword(text) {
		return Result{Kind: NormalFlow}
	}

	for _, r := range p.rules {
		match := r.Pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		fields := extract(r.Pattern, match)
		if !isDoctorRef(fields.Doctor) {
			date, ok := dateOnly(fields.Doctor)
			if !ok || fields.DateToken != "" {
				continue
			}
			fields.Doctor, fields.DateToken = "", date
		}
		if fields.DateToken == "" {
			fields.DateToken = "tomorrow"
		}
		if date, ok := ParseDate(fields.DateToken, now); ok {
			fields.Date = date
		}
		if fields.TimeToken != "" {
			if t, ok := ParseTime(fields.TimeToken); ok {
				fields.Time = t
			}
		}
		return Result{Kind: DirectBooking, Rule: r.Name, Fields: fields}
	}
	return Result{Kind: NormalFlow}
}

func extract(re *regexp.Regexp, match []string) Fields {
	var f Fields
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" || i >= len(match) {
			continue
		}
		value := strings.TrimSpace(match[i])
		switch name {
		case "name":
			f.Name = strings.Trim(value, ". ")
		case "phone":
			f.Phone = value
		case "doctor":
			f.Doctor = CleanDoctorToken(value)
		case "date":
			f.DateToken = strings.ToLower(value)
		case "time":
			f.TimeToken = value
		}
	}
	return f
}

// fillerTokens are doctor captures that carry no doctor reference.
var fillerTokens = map[string]bool{
	"a": true, "an": true, "appointment": true, "an appointment": true,
	"my appointment": true, "doctor": true, "dr": true, "me": true,
}

// notDoctorLeads cannot open a doctor reference.
var notDoctorLeads = map[string]bool{
	"for": true, "on": true, "at": true, "it": true, "this": true,
	"that": true, "now": true, "book": true, "please": true,
}

var (
	dateToken     = regexp.MustCompile(`(?i)^(?:` + datePattern + `)$`)
	dateOnlyToken = regexp.MustCompile(`(?i)^(?:(?:for|on)\s+)?(` + datePattern + `)$`)
)

func isDoctorRef(token string) bool {
	if token == "" || fillerTokens[token] || dateToken.MatchString(token) {
		return false
	}
	return !notDoctorLeads[strings.Fields(token)[0]]
}

// dateOnly recognises a capture such as "for tomorrow" that names only a date.
func dateOnly(token string) (string, bool) {
	m := dateOnlyToken.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

var titlePrefix = regexp.MustCompile(`(?i)^(?:doctor\s+|dr\.?\s*|डॉ\.?\s*)`)

// CleanDoctorToken trims a doctor reference and removes a leading title.
func CleanDoctorToken(s string) string {
	s = strings.TrimSpace(s)
	s = titlePrefix.ReplaceAllString(s, "")
	return strings.ToLower(strings.Trim(s, ". "))
}

var devanagariDigits = strings.NewReplacer(
	"०", "0", "१", "1", "२", "2", "३", "3", "४", "4",
	"५", "5", "६", "6", "७", "7", "८", "8", "९", "9",
)

// NormalizeDigits maps Devanagari digits to ASCII.
func NormalizeDigits(s string) string {
	return devanagariDigits.Replace(s)
}
