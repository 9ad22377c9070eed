// Package availability answers which departments, doctors, days and slots can
// be offered to a user. It is a read-through layer over the collaborator with a
// cache scoped to a single flow run.
package availability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/internal/intent"
)

// Collaborator is the subset of the hospital API the resolver reads.
type Collaborator interface {
	ListDepartments(ctx context.Context) ([]hospital.Department, error)
	ListDoctors(ctx context.Context, departmentID string) ([]hospital.Doctor, error)
	ListDoctorDays(ctx context.Context, doctorID string) ([]string, error)
	ListSlots(ctx context.Context, doctorID, date string) ([]hospital.Slot, error)
}

const allDoctors = "*"

// Resolver caches reference data for one flow run. Slots are never cached
// because they change as other sessions book.
type Resolver struct {
	api Collaborator

	mu          sync.Mutex
	departments []hospital.Department
	doctors     map[string][]hospital.Doctor
	days        map[string][]string
}

// NewResolver wraps a collaborator.
func NewResolver(api Collaborator) *Resolver {
	r := &Resolver{api: api}
	r.Reset()
	return r
}

// Reset drops cached data. Called when a flow starts.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.departments = nil
	r.doctors = make(map[string][]hospital.Doctor)
	r.days = make(map[string][]string)
}

// ListDepartments returns departments in collaborator order.
func (r *Resolver) ListDepartments(ctx context.Context) ([]hospital.Department, error) {
	r.mu.Lock()
	cached := r.departments
	r.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	deps, err := r.api.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("availability: list departments: %w", err)
	}
	if deps == nil {
		deps = []hospital.Department{}
	}
	r.mu.Lock()
	r.departments = deps
	r.mu.Unlock()
	return deps, nil
}

// ListDoctors returns doctors of a department, or all doctors for "".
func (r *Resolver) ListDoctors(ctx context.Context, departmentID string) ([]hospital.Doctor, error) {
	key := strings.TrimSpace(departmentID)
	if key == "" {
		key = allDoctors
	}

	r.mu.Lock()
	cached, ok := r.doctors[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	docs, err := r.api.ListDoctors(ctx, strings.TrimSpace(departmentID))
	if err != nil {
		return nil, fmt.Errorf("availability: list doctors: %w", err)
	}
	if docs == nil {
		docs = []hospital.Doctor{}
	}
	r.mu.Lock()
	r.doctors[key] = docs
	r.mu.Unlock()
	return docs, nil
}

// Doctor resolves a doctor by id from any cached list, fetching all doctors on
// a miss. ok is false when no doctor has that id.
func (r *Resolver) Doctor(ctx context.Context, doctorID string) (hospital.Doctor, bool, error) {
	r.mu.Lock()
	for _, list := range r.doctors {
		for _, d := range list {
			if d.ID.String() == doctorID {
				r.mu.Unlock()
				return d, true, nil
			}
		}
	}
	r.mu.Unlock()

	docs, err := r.ListDoctors(ctx, "")
	if err != nil {
		return hospital.Doctor{}, false, err
	}
	for _, d := range docs {
		if d.ID.String() == doctorID {
			return d, true, nil
		}
	}
	return hospital.Doctor{}, false, nil
}

// Department resolves a department by id.
func (r *Resolver) Department(ctx context.Context, departmentID string) (hospital.Department, bool, error) {
	deps, err := r.ListDepartments(ctx)
	if err != nil {
		return hospital.Department{}, false, err
	}
	for _, d := range deps {
		if d.ID.String() == departmentID {
			return d, true, nil
		}
	}
	return hospital.Department{}, false, nil
}

// ListAvailableDays returns lower-cased weekday names. An empty result means
// the doctor cannot be booked.
func (r *Resolver) ListAvailableDays(ctx context.Context, doctorID string) ([]string, error) {
	r.mu.Lock()
	cached, ok := r.days[doctorID]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	raw, err := r.api.ListDoctorDays(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("availability: list doctor days: %w", err)
	}
	days := make([]string, 0, len(raw))
	for _, d := range raw {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			days = append(days, d)
		}
	}
	r.mu.Lock()
	r.days[doctorID] = days
	r.mu.Unlock()
	return days, nil
}

// ListSlots returns the ordered free slots. An empty result means no slots on
// that date.
func (r *Resolver) ListSlots(ctx context.Context, doctorID, date string) ([]hospital.Slot, error) {
	slots, err := r.api.ListSlots(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("availability: list slots: %w", err)
	}
	if slots == nil {
		slots = []hospital.Slot{}
	}
	return slots, nil
}

// UpcomingDates lists dates from `from` (inclusive) over horizon days whose
// weekday is in days.
func UpcomingDates(days []string, from time.Time, horizon int) []string {
	if horizon <= 0 || len(days) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(days))
	for _, d := range days {
		allowed[strings.ToLower(strings.TrimSpace(d))] = true
	}

	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	var out []string
	for i := 0; i < horizon; i++ {
		day := start.AddDate(0, 0, i)
		if allowed[strings.ToLower(day.Weekday().String())] {
			out = append(out, day.Format(intent.DateLayout))
		}
	}
	return out
}

// FindSlot returns the slot with value, if listed.
func FindSlot(slots []hospital.Slot, value string) (hospital.Slot, bool) {
	for _, s := range slots {
		if s.Value == value {
			return s, true
		}
	}
	return hospital.Slot{}, false
}
