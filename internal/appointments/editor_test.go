package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-assistant/internal/apperrors"
	"github.com/wolfman30/hospital-assistant/internal/availability"
	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
)

var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

type fakeBackend struct {
	records map[string]hospital.AppointmentRecord
	keys    []string

	updateErr error
	updates   []hospital.AppointmentRecord

	cancelOutcome hospital.CancelOutcome
	cancelErr     error
	cancels       []string
}

func newFakeBackend() *fakeBackend {
	rec := hospital.AppointmentRecord{
		ID: "482", Name: "Asha Rao", Phone: "9876543210",
		DepartmentID: "1", DoctorID: "7",
		Date: "2026-10-15", Time: "12:30", Status: hospital.StatusConfirmed,
	}
	return &fakeBackend{
		records:       map[string]hospital.AppointmentRecord{"482": rec, "9876543210": rec},
		cancelOutcome: hospital.CancelCancelled,
	}
}

func (f *fakeBackend) FindAppointment(_ context.Context, key string) (*hospital.AppointmentRecord, error) {
	f.keys = append(f.keys, key)
	rec, ok := f.records[key]
	if !ok {
		return nil, apperrors.NotFound("hospital.find_appointment", "No appointment found.")
	}
	return &rec, nil
}

func (f *fakeBackend) UpdateAppointment(_ context.Context, _ string, rec hospital.AppointmentRecord) (*hospital.AppointmentRecord, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, rec)
	return &rec, nil
}

func (f *fakeBackend) CancelAppointment(_ context.Context, id string) (hospital.CancelOutcome, error) {
	f.cancels = append(f.cancels, id)
	return f.cancelOutcome, f.cancelErr
}

type directory struct{}

func (directory) ListDepartments(context.Context) ([]hospital.Department, error) {
	return []hospital.Department{
		{ID: "1", Name: hospital.LocalizedName{En: "Cardiology"}},
		{ID: "2", Name: hospital.LocalizedName{En: "Orthopedics"}},
	}, nil
}

func (directory) ListDoctors(_ context.Context, departmentID string) ([]hospital.Doctor, error) {
	all := []hospital.Doctor{
		{ID: "7", Name: hospital.LocalizedName{En: "Dr. Imran Khan"}, DepartmentID: "1", Fees: "500"},
		{ID: "9", Name: hospital.LocalizedName{En: "Dr. Priya Mehta"}, DepartmentID: "2"},
	}
	var out []hospital.Doctor
	for _, d := range all {
		if departmentID == "" || d.DepartmentID.String() == departmentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (directory) ListDoctorDays(_ context.Context, doctorID string) ([]string, error) {
	switch doctorID {
	case "7":
		return []string{"thursday"}, nil
	case "9":
		return []string{"friday"}, nil
	}
	return nil, nil
}

func (directory) ListSlots(_ context.Context, doctorID, date string) ([]hospital.Slot, error) {
	if doctorID == "9" && date == "2026-10-16" {
		return []hospital.Slot{{Value: "10:00", Display: "10:00 AM"}}, nil
	}
	if doctorID == "7" && date == "2026-10-15" {
		return []hospital.Slot{{Value: "12:30"}, {Value: "15:00"}}, nil
	}
	return nil, nil
}

type memStore struct {
	step  int
	data  []byte
	saved bool
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
	return nil
}

type harness struct {
	t        *testing.T
	backend  *fakeBackend
	store    *memStore
	out      *booking.Collector
	resolver *availability.Resolver
	now      time.Time
	changes  []Change
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:        t,
		backend:  newFakeBackend(),
		store:    &memStore{},
		out:      &booking.Collector{},
		resolver: availability.NewResolver(directory{}),
		now:      testNow,
	}
}

func (h *harness) editor() *Editor {
	h.t.Helper()
	e := NewEditor(Options{
		Backend:  h.backend,
		Picker:   booking.NewPicker(h.resolver, "en", func() time.Time { return h.now }, 14),
		Store:    h.store,
		Surface:  h.out,
		IDPrefix: "XYZ_",
		OnChange: func(_ context.Context, c Change) { h.changes = append(h.changes, c) },
	})
	_, err := e.Restore(context.Background())
	require.NoError(h.t, err)
	return e
}

func (h *harness) last() booking.Reply {
	h.t.Helper()
	r, ok := h.out.Last()
	require.True(h.t, ok, "no replies emitted")
	return r
}

func (h *harness) keys() []string {
	var out []string
	for _, r := range h.out.Replies() {
		out = append(out, r.Key)
	}
	return out
}

func (h *harness) load(key string) {
	h.t.Helper()
	ctx := context.Background()
	require.NoError(h.t, h.editor().Start(ctx))
	require.NoError(h.t, h.editor().HandleText(ctx, key))
	require.Equal(h.t, StateLoaded, h.editor().State())
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "482", NormalizeKey("XYZ_", "XYZ_482"))
	assert.Equal(t, "482", NormalizeKey("XYZ_", " xyz_482 "))
	assert.Equal(t, "482", NormalizeKey("XYZ_", "482"))
	assert.Equal(t, "XY", NormalizeKey("XYZ_", "XY"))
	assert.Equal(t, "XYZ_482", NormalizeKey("", "XYZ_482"))
}

func TestLookupByPrefixedID(t *testing.T) {
	h := newHarness(t)
	h.load("XYZ_482")

	assert.Equal(t, []string{"482"}, h.backend.keys)
	replies := h.out.Replies()
	var card booking.Reply
	for _, r := range replies {
		if r.Key == MsgDetails {
			card = r
		}
	}
	require.NotEmpty(t, card.Details)
	values := map[string]string{}
	for _, d := range card.Details {
		values[d.Label] = d.Value
	}
	assert.Equal(t, "XYZ_482", values[Text(LabelID)])
	assert.Equal(t, "Cardiology", values[Text(LabelDepartment)])
	assert.Equal(t, "Dr. Imran Khan", values[Text(LabelDoctor)])
	assert.Equal(t, "₹500", values[Text(LabelFees)])
	assert.Equal(t, "12:30 PM", values[Text(LabelTime)])
	assert.Equal(t, "confirmed", values[Text(LabelStatus)])

	actions := h.last()
	assert.Equal(t, MsgWhatNext, actions.Key)
	require.Len(t, actions.Options, 2)
	assert.False(t, actions.Options[0].Disabled)
}

func TestLookupByPhoneNormalizesDigits(t *testing.T) {
	h := newHarness(t)
	h.load("98765 43210")
	assert.Equal(t, []string{"9876543210"}, h.backend.keys)
}

func TestLookupNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.editor().Start(ctx))
	require.NoError(t, h.editor().HandleText(ctx, "XYZ_999"))

	assert.Equal(t, []string{MsgAskKey, MsgNotFound, MsgAskKey}, h.keys())
	assert.Equal(t, StateLookup, h.editor().State())
}

func TestEditWindow(t *testing.T) {
	rec := hospital.AppointmentRecord{Date: "2026-10-14", Time: "14:30"}
	assert.False(t, EditAllowed(rec, testNow, 6*time.Hour), "5h away")

	rec.Time = "16:30"
	assert.True(t, EditAllowed(rec, testNow, 6*time.Hour), "7h away")

	rec.Time = "soon"
	assert.True(t, EditAllowed(rec, testNow, 6*time.Hour), "unparseable schedule")
}

func TestEditBlockedInsideWindow(t *testing.T) {
	h := newHarness(t)
	h.now = time.Date(2026, 10, 15, 7, 30, 0, 0, time.UTC)
	h.load("482")

	actions := h.last()
	require.Len(t, actions.Options, 2)
	assert.True(t, actions.Options[0].Disabled)
	assert.False(t, actions.Options[1].Disabled, "cancel stays available")

	require.NoError(t, h.editor().Edit(context.Background()))
	last := h.last()
	assert.Equal(t, MsgEditNotAllowed, last.Key)
	assert.Contains(t, last.Text, "6 hours")
	assert.Equal(t, StateLoaded, h.editor().State())
}

func TestEditNameAndConfirm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.load("482")

	require.NoError(t, h.editor().Edit(ctx))
	assert.Equal(t, MsgChooseField, h.last().Key)
	require.NoError(t, h.editor().ChooseField(ctx, FieldName))
	require.NoError(t, h.editor().HandleText(ctx, "R2D2"))
	assert.Equal(t, booking.MsgInvalidName, h.last().Key)
	require.NoError(t, h.editor().HandleText(ctx, "Asha R. Rao"))
	assert.Equal(t, MsgConfirmChanges, h.last().Key)

	require.NoError(t, h.editor().HandleText(ctx, "yes"))
	require.Len(t, h.backend.updates, 1)
	sent := h.backend.updates[0]
	assert.Equal(t, "Asha R. Rao", sent.Name)
	assert.Equal(t, "9876543210", sent.Phone, "full record is sent")
	assert.Equal(t, hospital.FlexString("7"), sent.DoctorID)

	e := h.editor()
	assert.Equal(t, StateLookup, e.State(), "state cleared after update")
	assert.False(t, h.store.saved)
	require.Len(t, h.changes, 1)
	assert.Equal(t, OutcomeUpdated, h.changes[0].Outcome)
	assert.Equal(t, "Asha Rao", h.changes[0].Before.Name)
	assert.Contains(t, h.keys(), MsgUpdateSuccess)
	assert.Equal(t, MsgTip, h.last().Key)
}

func TestUpdateRefusedOnceWindowCloses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.load("482")

	require.NoError(t, h.editor().Edit(ctx))
	require.NoError(t, h.editor().ChooseField(ctx, FieldName))

	// 2.5h before the 12:30 appointment.
	h.now = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, h.editor().HandleText(ctx, "Asha R. Rao"))
	require.NoError(t, h.editor().HandleText(ctx, "yes"))

	assert.Empty(t, h.backend.updates)
	assert.Contains(t, h.keys(), MsgEditNotAllowed)
	e := h.editor()
	assert.Equal(t, StateLoaded, e.State())
	assert.Equal(t, "Asha Rao", e.Working().Name, "pending edits dropped")
}

func TestChooseFieldRefusedOnceWindowCloses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.load("482")
	require.NoError(t, h.editor().Edit(ctx))

	h.now = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	require.NoError(t, h.editor().ChooseField(ctx, FieldDate))

	assert.Contains(t, h.keys(), MsgEditNotAllowed)
	assert.Equal(t, StateLoaded, h.editor().State())
}

func TestDepartmentChangeResetsDoctor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.load("482")

	require.NoError(t, h.editor().Edit(ctx))
	require.NoError(t, h.editor().ChooseField(ctx, FieldDepartment))
	require.NoError(t, h.editor().Select(ctx, "2"))

	e := h.editor()
	assert.Equal(t, StatePickDoctor, e.State())
	w := e.Working()
	assert.Equal(t, hospital.FlexString("2"), w.DepartmentID)
	assert.Empty(t, w.DoctorID)
	assert.Empty(t, w.Date)
	assert.Empty(t, w.Time)

	require.NoError(t, h.editor().Select(ctx, "9"))
	require.NoError(t, h.editor().Select(ctx, "2026-10-16"))
	require.NoError(t, h.editor().Select(ctx, "09:00"))
	assert.Equal(t, MsgSelectTime, h.last().Key, "unlisted slot re-prompts")
	require.NoError(t, h.editor().Select(ctx, "10:00"))
	assert.Equal(t, StateConfirmUpdate, h.editor().State())
}

func TestDateMustBeOffered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.load("482")
	require.NoError(t, h.editor().Edit(ctx))
	require.NoError(t, h.editor().ChooseField(ctx, FieldDate))
	require.NoError(t, h.editor().Select(ctx, "2026-10-16"))

	assert.Contains(t, h.keys(), MsgDateUnavailable)
	assert.Equal(t, StatePickDate, h.editor().State())
}

func TestUpdateFailureReturnsToFieldMenu(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.backend.updateErr = apperrors.Transport("hospital.update_appointment", http.StatusBadGateway, errors.New("boom"))
	h.load("482")

	require.NoError(t, h.editor().Edit(ctx))
	require.NoError(t, h.editor().ChooseField(ctx, FieldPhone))
	require.NoError(t, h.editor().HandleText(ctx, "9123456780"))
	require.NoError(t, h.editor().ConfirmUpdate(ctx, true))

	e := h.editor()
	assert.Equal(t, StateEditMenu, e.State())
	assert.Equal(t, "9123456780", e.Working().Phone, "edits preserved")
	assert.Contains(t, h.keys(), MsgUpdateFailed)
	assert.Equal(t, MsgChooseField, h.last().Key)
	assert.Empty(t, h.changes)
}

func TestDeclineUpdateKeepsEdits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.load("482")
	require.NoError(t, h.editor().Edit(ctx))
	require.NoError(t, h.editor().ChooseField(ctx, FieldName))
	require.NoError(t, h.editor().HandleText(ctx, "Asha Rao Kulkarni"))
	require.NoError(t, h.editor().HandleText(ctx, "nahi"))

	e := h.editor()
	assert.Equal(t, StateEditMenu, e.State())
	assert.Equal(t, "Asha Rao Kulkarni", e.Working().Name)
	assert.Empty(t, h.backend.updates)
}

func TestCancelOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		outcome  hospital.CancelOutcome
		err      error
		wantKey  string
		wantEnd  State
		finished Outcome
	}{
		{"cancelled", hospital.CancelCancelled, nil, MsgCancelSuccess, StateLookup, OutcomeCancelled},
		{"not found", hospital.CancelNotFound, nil, MsgCancelNotFound, StateLookup, OutcomeNotFound},
		{"aborted", hospital.CancelAborted, nil, MsgCancelAborted, StateLoaded, OutcomeNone},
		{"transport", "", errors.New("timeout"), MsgCancelFailed, StateLoaded, OutcomeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.backend.cancelOutcome = tt.outcome
			h.backend.cancelErr = tt.err
			h.load("482")

			require.NoError(t, h.editor().Cancel(ctx))
			assert.Equal(t, MsgConfirmCancel, h.last().Key)

			e := h.editor()
			require.NoError(t, e.ConfirmCancel(ctx, true))
			assert.Equal(t, tt.finished, e.Outcome())
			assert.Equal(t, tt.wantKey, h.last().Key)
			assert.Equal(t, []string{"482"}, h.backend.cancels)
			assert.Equal(t, tt.wantEnd, h.editor().State())
		})
	}
}

func TestCancelSuccessNotifiesChange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.load("482")
	require.NoError(t, h.editor().Cancel(ctx))
	require.NoError(t, h.editor().HandleText(ctx, "haan"))

	require.Len(t, h.changes, 1)
	assert.Equal(t, OutcomeCancelled, h.changes[0].Outcome)
	assert.Equal(t, hospital.StatusCancelled, h.changes[0].After.Status)
}

func TestDeclineCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.load("482")
	require.NoError(t, h.editor().Cancel(ctx))
	require.NoError(t, h.editor().ConfirmCancel(ctx, false))

	assert.Empty(t, h.backend.cancels)
	assert.Equal(t, StateLoaded, h.editor().State())
	assert.Equal(t, MsgWhatNext, h.last().Key)
}

func TestResumeRedisplaysPrompt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.load("482")
	require.NoError(t, h.editor().Edit(ctx))
	h.out.Reset()

	e := NewEditor(Options{
		Backend:  h.backend,
		Picker:   booking.NewPicker(h.resolver, "en", func() time.Time { return h.now }, 14),
		Store:    h.store,
		Surface:  h.out,
		IDPrefix: "XYZ_",
	})
	ok, err := e.Resume(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{MsgChooseField}, h.keys())
}

func TestUnknownDepartmentPlaceholder(t *testing.T) {
	h := newHarness(t)
	rec := h.backend.records["482"]
	rec.DepartmentID = "42"
	rec.DoctorID = "77"
	h.backend.records["482"] = rec
	h.load("482")

	values := map[string]string{}
	for _, r := range h.out.Replies() {
		for _, d := range r.Details {
			values[d.Label] = d.Value
		}
	}
	assert.Equal(t, "Unknown Department", values[Text(LabelDepartment)])
	assert.Equal(t, "Unknown Doctor", values[Text(LabelDoctor)])
	assert.Equal(t, "N/A", values[Text(LabelFees)])
}
