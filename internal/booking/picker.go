package booking

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/hospital-assistant/internal/availability"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/internal/intent"
)

// Picker builds department, doctor, date and slot options. The booking flow
// and the appointment editor share it.
type Picker struct {
	resolver *availability.Resolver
	lang     string
	now      func() time.Time
	horizon  int
}

// NewPicker returns a picker rendering labels in lang. horizon is the number
// of calendar days scanned for bookable dates.
func NewPicker(resolver *availability.Resolver, lang string, now func() time.Time, horizon int) *Picker {
	if now == nil {
		now = time.Now
	}
	if horizon <= 0 {
		horizon = 14
	}
	return &Picker{resolver: resolver, lang: lang, now: now, horizon: horizon}
}

// Resolver exposes the underlying availability resolver.
func (p *Picker) Resolver() *availability.Resolver { return p.resolver }

// Now is the picker clock.
func (p *Picker) Now() time.Time { return p.now() }

// Language is the label language.
func (p *Picker) Language() string { return p.lang }

// DepartmentOptions lists every department.
func (p *Picker) DepartmentOptions(ctx context.Context) ([]Option, error) {
	deps, err := p.resolver.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([]Option, 0, len(deps))
	for _, d := range deps {
		opts = append(opts, Option{
			Value:  d.ID.String(),
			Label:  d.Name.In(p.lang),
			Icon:   "🏥",
			Detail: d.Description,
		})
	}
	return opts, nil
}

// DoctorOptions lists doctors of a department, or all of them for "".
func (p *Picker) DoctorOptions(ctx context.Context, departmentID string) ([]Option, error) {
	docs, err := p.resolver.ListDoctors(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	return p.doctorOptions(docs), nil
}

func (p *Picker) doctorOptions(docs []hospital.Doctor) []Option {
	opts := make([]Option, 0, len(docs))
	for _, d := range docs {
		opts = append(opts, Option{
			Value:  d.ID.String(),
			Label:  d.Name.In(p.lang),
			Icon:   "👨‍⚕️",
			Detail: doctorDetail(d),
			Image:  d.Photo,
		})
	}
	return opts
}

func doctorDetail(d hospital.Doctor) string {
	var parts []string
	if d.Education != "" {
		parts = append(parts, d.Education)
	}
	if d.Experience != "" {
		parts = append(parts, d.Experience.String()+" years")
	}
	if d.Fees != "" {
		parts = append(parts, "₹"+d.Fees.String())
	}
	return strings.Join(parts, " | ")
}

// DateOptions lists bookable dates for the doctor within the horizon. An
// empty result means the doctor has no working days.
func (p *Picker) DateOptions(ctx context.Context, doctorID string) ([]Option, error) {
	days, err := p.resolver.ListAvailableDays(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	dates := availability.UpcomingDates(days, p.now(), p.horizon)
	opts := make([]Option, 0, len(dates))
	for _, d := range dates {
		opts = append(opts, Option{Value: d, Label: intent.FormatDate(d), Icon: "📅"})
	}
	return opts, nil
}

// DateOffered reports whether date is one of the offered dates.
func (p *Picker) DateOffered(ctx context.Context, doctorID, date string) (bool, error) {
	days, err := p.resolver.ListAvailableDays(ctx, doctorID)
	if err != nil {
		return false, err
	}
	for _, d := range availability.UpcomingDates(days, p.now(), p.horizon) {
		if d == date {
			return true, nil
		}
	}
	return false, nil
}

// Slots fetches free slots and their options.
func (p *Picker) Slots(ctx context.Context, doctorID, date string) ([]hospital.Slot, []Option, error) {
	slots, err := p.resolver.ListSlots(ctx, doctorID, date)
	if err != nil {
		return nil, nil, err
	}
	return slots, p.SlotOptions(slots), nil
}

// SlotOptions renders slots as options.
func (p *Picker) SlotOptions(slots []hospital.Slot) []Option {
	opts := make([]Option, 0, len(slots))
	for _, s := range slots {
		opts = append(opts, Option{Value: s.Value, Label: p.SlotLabel(s), Icon: "⏰"})
	}
	return opts
}

// SlotLabel is the display text of a slot.
func (p *Picker) SlotLabel(s hospital.Slot) string {
	if s.Display != "" {
		return s.Display
	}
	if label := intent.FormatTimeDisplay(s.Value, p.lang); label != "" {
		return label
	}
	return s.Value
}

// Department resolves a department for display.
func (p *Picker) Department(ctx context.Context, id string) (hospital.Department, bool, error) {
	return p.resolver.Department(ctx, id)
}

// Doctor resolves a doctor within departmentID, or across all doctors when
// departmentID is "".
func (p *Picker) Doctor(ctx context.Context, departmentID, id string) (hospital.Doctor, bool, error) {
	docs, err := p.resolver.ListDoctors(ctx, departmentID)
	if err != nil {
		return hospital.Doctor{}, false, err
	}
	for _, d := range docs {
		if d.ID.String() == id {
			return d, true, nil
		}
	}
	return hospital.Doctor{}, false, nil
}

// AllDoctors lists doctors across departments.
func (p *Picker) AllDoctors(ctx context.Context) ([]hospital.Doctor, error) {
	return p.resolver.ListDoctors(ctx, "")
}
