// Package booking drives the step-by-step appointment booking flow shared by
// the chat and voice surfaces.
package booking

import (
	"context"
	"sync"
)

// Step is the booking flow position.
type Step int

const (
	StepAskName Step = iota
	StepAskPhone
	StepSelectDepartment
	StepSelectDoctor
	StepSelectDate
	StepSelectTime
	StepConfirm
	StepCommitted
)

func (s Step) String() string {
	switch s {
	case StepAskName:
		return "ask_name"
	case StepAskPhone:
		return "ask_phone"
	case StepSelectDepartment:
		return "select_department"
	case StepSelectDoctor:
		return "select_doctor"
	case StepSelectDate:
		return "select_date"
	case StepSelectTime:
		return "select_time"
	case StepConfirm:
		return "confirm"
	case StepCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Draft is the in-progress booking. It is persisted after every assignment.
type Draft struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	DepartmentID  string `json:"department_id"`
	Department    string `json:"department_name"`
	DoctorID      string `json:"doctor_id"`
	Doctor        string `json:"doctor_name"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	TimeDisplay   string `json:"time_display"`
	AppointmentID string `json:"appointment_id,omitempty"`

	// RequestedTime is a shortcut time waiting to be checked against the
	// slot list once the date is reached.
	RequestedTime string `json:"requested_time,omitempty"`
	// AllDoctors shows every doctor at the doctor step instead of asking for
	// a department first.
	AllDoctors bool `json:"all_doctors,omitempty"`
}

// ReplyKind tells a surface how to render a reply.
type ReplyKind string

const (
	ReplyNotice ReplyKind = "notice"
	ReplyPrompt ReplyKind = "prompt"
	ReplyError  ReplyKind = "error"
	ReplyResult ReplyKind = "result"
)

// InputKind is what the flow waits for after a reply.
type InputKind string

const (
	InputText    InputKind = "text"
	InputChoice  InputKind = "choice"
	InputDate    InputKind = "date"
	InputConfirm InputKind = "confirm"
	InputNone    InputKind = "none"
)

// Option is a selectable card.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Icon     string `json:"icon,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Image    string `json:"image,omitempty"`
	Href     string `json:"href,omitempty"`
	Action   string `json:"action,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Detail is one labelled line of a summary card.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Reply is one unit of output from a controller.
type Reply struct {
	Kind    ReplyKind `json:"kind"`
	Key     string    `json:"key"`
	Text    string    `json:"text"`
	Input   InputKind `json:"input"`
	Options []Option  `json:"options,omitempty"`
	Details []Detail  `json:"details,omitempty"`
	Flow    string    `json:"flow,omitempty"`
	Step    int       `json:"step"`
}

// Surface renders replies. Implementations must not block on user input.
type Surface interface {
	Emit(ctx context.Context, r Reply) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(ctx context.Context, r Reply) error

func (f SurfaceFunc) Emit(ctx context.Context, r Reply) error { return f(ctx, r) }

// Collector buffers replies in order. The HTTP fallback endpoints return the
// collected replies synchronously.
type Collector struct {
	mu      sync.Mutex
	replies []Reply
}

func (c *Collector) Emit(_ context.Context, r Reply) error {
	c.mu.Lock()
	c.replies = append(c.replies, r)
	c.mu.Unlock()
	return nil
}

// Replies returns a copy of everything emitted so far.
func (c *Collector) Replies() []Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Reply, len(c.replies))
	copy(out, c.replies)
	return out
}

// Last returns the most recent reply.
func (c *Collector) Last() (Reply, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) == 0 {
		return Reply{}, false
	}
	return c.replies[len(c.replies)-1], true
}

// Reset drops buffered replies.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.replies = nil
	c.mu.Unlock()
}

// Persistence stores the position and data of one flow for one session.
type Persistence interface {
	Save(ctx context.Context, step int, data any) error
	// Load decodes saved data into `into`. found is false when nothing is saved.
	Load(ctx context.Context, into any) (step int, found bool, err error)
	Clear(ctx context.Context) error
}

// Outcome is how a flow run ended.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCommitted Outcome = "committed"
	OutcomeCancelled Outcome = "cancelled"
)

// Committed describes a successful booking.
type Committed struct {
	AppointmentID string
	DisplayID     string
	Draft         Draft
}
