package booking

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/wolfman30/hospital-assistant/internal/availability"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
)

// Wednesday.
var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

type fakeHospital struct {
	departments []hospital.Department
	doctors     []hospital.Doctor
	days        map[string][]string
	slots       map[string][]hospital.Slot

	confirmErr error
	nextID     string
	confirmed  []hospital.AppointmentRequest
	slotCalls  int
}

func newFakeHospital() *fakeHospital {
	return &fakeHospital{
		departments: []hospital.Department{
			{ID: "1", Name: hospital.LocalizedName{En: "Cardiology", Hi: "हृदय रोग"}},
			{ID: "2", Name: hospital.LocalizedName{En: "Orthopedics"}},
		},
		doctors: []hospital.Doctor{
			{ID: "7", Name: hospital.LocalizedName{En: "Dr. Imran Khan", Hi: "डॉ. इमरान खान"}, DepartmentID: "1", Fees: "500"},
			{ID: "8", Name: hospital.LocalizedName{En: "Dr. Neha Joshi"}, DepartmentID: "1"},
			{ID: "9", Name: hospital.LocalizedName{En: "Dr. Priya Mehta"}, DepartmentID: "2"},
		},
		days: map[string][]string{
			"7": {"Thursday", "Monday"},
			"9": {"friday"},
		},
		slots: map[string][]hospital.Slot{
			"7|2026-10-15": {{Value: "12:30", Display: "12:30 PM"}, {Value: "13:00", Display: "1:00 PM"}},
			"9|2026-10-16": {{Value: "10:00", Display: "10:00 AM"}},
		},
		nextID: "482",
	}
}

func (f *fakeHospital) ListDepartments(context.Context) ([]hospital.Department, error) {
	return f.departments, nil
}

func (f *fakeHospital) ListDoctors(_ context.Context, departmentID string) ([]hospital.Doctor, error) {
	var out []hospital.Doctor
	for _, d := range f.doctors {
		if departmentID == "" || d.DepartmentID.String() == departmentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeHospital) ListDoctorDays(_ context.Context, doctorID string) ([]string, error) {
	return f.days[doctorID], nil
}

func (f *fakeHospital) ListSlots(_ context.Context, doctorID, date string) ([]hospital.Slot, error) {
	f.slotCalls++
	return f.slots[doctorID+"|"+date], nil
}

func (f *fakeHospital) ConfirmAppointment(_ context.Context, req hospital.AppointmentRequest) (*hospital.Confirmation, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	f.confirmed = append(f.confirmed, req)
	return &hospital.Confirmation{AppointmentID: hospital.FlexString(f.nextID)}, nil
}

type memStore struct {
	step   int
	data   []byte
	saved  bool
	clears int
}

func (m *memStore) Save(_ context.Context, step int, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	m.step, m.data, m.saved = step, b, true
	return nil
}

func (m *memStore) Load(_ context.Context, into any) (int, bool, error) {
	if !m.saved {
		return 0, false, nil
	}
	return m.step, true, json.Unmarshal(m.data, into)
}

func (m *memStore) Clear(context.Context) error {
	m.step, m.data, m.saved = 0, nil, false
	m.clears++
	return nil
}

type harness struct {
	t        *testing.T
	api      *fakeHospital
	store    *memStore
	out      *Collector
	resolver *availability.Resolver
	commits  []Committed
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := newFakeHospital()
	return &harness{
		t:        t,
		api:      api,
		store:    &memStore{},
		out:      &Collector{},
		resolver: availability.NewResolver(api),
	}
}

// controller rebuilds a controller from persisted state, the way a session
// does for each inbound event.
func (h *harness) controller() *Controller {
	h.t.Helper()
	c := NewController(Options{
		Backend:  h.api,
		Picker:   NewPicker(h.resolver, "en", func() time.Time { return testNow }, 14),
		Store:    h.store,
		Surface:  h.out,
		IDPrefix: "XYZ_",
		OnCommit: func(_ context.Context, c Committed) { h.commits = append(h.commits, c) },
		TipIndex: func(int) int { return 0 },
	})
	if _, err := c.Restore(context.Background()); err != nil {
		h.t.Fatalf("restore: %v", err)
	}
	return c
}

func (h *harness) last() Reply {
	h.t.Helper()
	r, ok := h.out.Last()
	if !ok {
		h.t.Fatal("no replies emitted")
	}
	return r
}

func (h *harness) keys() []string {
	var out []string
	for _, r := range h.out.Replies() {
		out = append(out, r.Key)
	}
	return out
}

// toStep drives a fresh flow through the plain steps up to target.
func (h *harness) toStep(target Step) {
	h.t.Helper()
	ctx := context.Background()
	must := func(err error) {
		h.t.Helper()
		if err != nil {
			h.t.Fatal(err)
		}
	}
	must(h.controller().Start(ctx))
	if target == StepAskName {
		return
	}
	must(h.controller().HandleText(ctx, "Asha Rao"))
	if target == StepAskPhone {
		return
	}
	must(h.controller().HandleText(ctx, "9876543210"))
	if target == StepSelectDepartment {
		return
	}
	must(h.controller().SelectDepartment(ctx, "1"))
	if target == StepSelectDoctor {
		return
	}
	must(h.controller().SelectDoctor(ctx, "7"))
	if target == StepSelectDate {
		return
	}
	must(h.controller().SelectDate(ctx, "2026-10-15"))
	if target == StepSelectTime {
		return
	}
	must(h.controller().SelectTime(ctx, "12:30"))
}
