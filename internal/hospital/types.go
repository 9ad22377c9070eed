package hospital

import (
	"bytes"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/wolfman30/hospital-assistant/internal/i18n"
)

// FlexString decodes JSON strings and numbers alike. The collaborator emits
// integer ids for some tenants and string ids for others.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// LocalizedName holds a display name per supported language.
type LocalizedName struct {
	En string `json:"en"`
	Hi string `json:"hi,omitempty"`
	Mr string `json:"mr,omitempty"`
}

// In returns the name for lang, falling back to English.
func (n LocalizedName) In(lang string) string {
	switch i18n.Normalize(lang) {
	case i18n.Hindi:
		if n.Hi != "" {
			return n.Hi
		}
	case i18n.Marathi:
		if n.Mr != "" {
			return n.Mr
		}
	}
	return n.En
}

// All returns the non-empty localized variants.
func (n LocalizedName) All() []string {
	out := make([]string, 0, 3)
	for _, v := range []string{n.En, n.Hi, n.Mr} {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// Department is a bookable hospital department.
type Department struct {
	ID          FlexString    `json:"id"`
	Name        LocalizedName `json:"name"`
	Description string        `json:"description,omitempty"`
}

// Doctor is a bookable practitioner.
type Doctor struct {
	ID           FlexString    `json:"id"`
	Name         LocalizedName `json:"name"`
	DepartmentID FlexString    `json:"department_id"`
	Education    string        `json:"education,omitempty"`
	Experience   FlexString    `json:"experience,omitempty"`
	Fees         FlexString    `json:"fees,omitempty"`
	Photo        string        `json:"photo,omitempty"`
}

// Slot is a free time for a doctor on a date.
type Slot struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

// AppointmentRequest is the commit payload for a new booking.
type AppointmentRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department"`
	DoctorID       string `json:"doctor_id"`
	DoctorName     string `json:"doctor"`
	Date           string `json:"date"`
	Time           string `json:"time"`
}

// Confirmation is returned by a successful commit.
type Confirmation struct {
	AppointmentID FlexString `json:"appointment_id"`
}

// Appointment statuses reported by the collaborator.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// AppointmentRecord is a committed booking as owned by the collaborator.
type AppointmentRecord struct {
	ID             FlexString `json:"id"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	DepartmentID   FlexString `json:"department_id"`
	DepartmentName string     `json:"department,omitempty"`
	DoctorID       FlexString `json:"doctor_id"`
	DoctorName     string     `json:"doctor,omitempty"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Status         string     `json:"status,omitempty"`
}

// CancelOutcome distinguishes the three cancellation results.
type CancelOutcome string

const (
	CancelCancelled CancelOutcome = "cancelled"
	CancelNotFound  CancelOutcome = "not_found"
	CancelAborted   CancelOutcome = "aborted"
)

// QueryType discriminates general query answers.
type QueryType string

const (
	QueryTimings     QueryType = "timings"
	QueryDoctors     QueryType = "doctors"
	QueryDepartments QueryType = "departments"
	QueryServices    QueryType = "services"
	QueryContact     QueryType = "contact"
	QueryProcess     QueryType = "process"
	QuerySymptom     QueryType = "symptom"
	QueryText        QueryType = "text"
)

// QueryItem is a department or service entry; the collaborator sends either a
// bare string or an object.
type QueryItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (q *QueryItem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &q.Name)
	}
	type plain QueryItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*q = QueryItem(p)
	return nil
}

// QueryDoctor is a doctor entry inside a general query answer.
type QueryDoctor struct {
	Name          string     `json:"name"`
	Qualification string     `json:"qualification,omitempty"`
	Experience    FlexString `json:"experience,omitempty"`
	Fees          FlexString `json:"fees,omitempty"`
	Timings       string     `json:"timings,omitempty"`
}

// QueryAnswer is the typed response of POST /queries.
type QueryAnswer struct {
	Type QueryType `json:"type"`

	// timings
	OPD       string `json:"opd,omitempty"`
	Emergency string `json:"emergency,omitempty"`
	Visiting  string `json:"visiting,omitempty"`

	// doctors, symptom
	Department string        `json:"department,omitempty"`
	Doctors    []QueryDoctor `json:"doctors,omitempty"`
	Fees       FlexString    `json:"fees,omitempty"`
	Symptom    string        `json:"symptom,omitempty"`

	// departments, services
	Departments []QueryItem `json:"departments,omitempty"`
	Services    []QueryItem `json:"services,omitempty"`

	// contact
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`

	// process
	Action string   `json:"action,omitempty"`
	Steps  []string `json:"steps,omitempty"`

	// text
	Answer string `json:"answer,omitempty"`
}

// WidgetConfig drives the embeddable floating widget.
type WidgetConfig struct {
	HospitalID     string   `json:"hospital_id"`
	Name           string   `json:"name"`
	LogoURL        string   `json:"logo_url,omitempty"`
	PrimaryColor   string   `json:"primary_color,omitempty"`
	SecondaryColor string   `json:"secondary_color,omitempty"`
	Features       []string `json:"features,omitempty"`
	WidgetURL      string   `json:"widget_url,omitempty"`
	APIBaseURL     string   `json:"api_base_url,omitempty"`
}
