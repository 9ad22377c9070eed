package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-assistant/internal/appointments"
	"github.com/wolfman30/hospital-assistant/internal/apperrors"
	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/events"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/internal/observability/metrics"
	"github.com/wolfman30/hospital-assistant/internal/session"
	"github.com/wolfman30/hospital-assistant/internal/transcript"
)

// Wednesday.
var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

type fakeHospital struct {
	mu          sync.Mutex
	departments []hospital.Department
	doctors     []hospital.Doctor
	days        map[string][]string
	slots       map[string][]hospital.Slot
	records     map[string]hospital.AppointmentRecord

	answer    *hospital.QueryAnswer
	askErr    error
	questions []string
	cancelled []string
}

func newFakeHospital() *fakeHospital {
	return &fakeHospital{
		departments: []hospital.Department{
			{ID: "1", Name: hospital.LocalizedName{En: "Cardiology"}},
		},
		doctors: []hospital.Doctor{
			{ID: "7", Name: hospital.LocalizedName{En: "Dr. Imran Khan"}, DepartmentID: "1", Fees: "500"},
		},
		days: map[string][]string{"7": {"Thursday"}},
		slots: map[string][]hospital.Slot{
			"7|2026-10-15": {{Value: "12:30", Display: "12:30 PM"}},
		},
		records: map[string]hospital.AppointmentRecord{
			"482": {
				ID: "482", Name: "Asha Rao", Phone: "9876543210",
				DepartmentID: "1", DoctorID: "7", Date: "2026-10-20", Time: "10:00",
				Status: hospital.StatusConfirmed,
			},
		},
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
	return f.slots[doctorID+"|"+date], nil
}

func (f *fakeHospital) ConfirmAppointment(context.Context, hospital.AppointmentRequest) (*hospital.Confirmation, error) {
	return &hospital.Confirmation{AppointmentID: "482"}, nil
}

func (f *fakeHospital) FindAppointment(_ context.Context, key string) (*hospital.AppointmentRecord, error) {
	rec, ok := f.records[key]
	if !ok {
		return nil, apperrors.NotFound("find appointment", "not found")
	}
	return &rec, nil
}

func (f *fakeHospital) UpdateAppointment(_ context.Context, _ string, rec hospital.AppointmentRecord) (*hospital.AppointmentRecord, error) {
	return &rec, nil
}

func (f *fakeHospital) CancelAppointment(_ context.Context, id string) (hospital.CancelOutcome, error) {
	f.cancelled = append(f.cancelled, id)
	return hospital.CancelCancelled, nil
}

func (f *fakeHospital) Ask(_ context.Context, question, _ string) (*hospital.QueryAnswer, error) {
	f.mu.Lock()
	f.questions = append(f.questions, question)
	f.mu.Unlock()
	if f.askErr != nil {
		return nil, f.askErr
	}
	return f.answer, nil
}

type outcomeLog struct{ events []events.FlowOutcomeV1 }

func (o *outcomeLog) RecordOutcome(_ context.Context, evt events.FlowOutcomeV1) error {
	o.events = append(o.events, evt)
	return nil
}

type memTranscript struct{ msgs map[string][]transcript.Message }

func (m *memTranscript) Append(_ context.Context, id string, msg transcript.Message) error {
	if m.msgs == nil {
		m.msgs = make(map[string][]transcript.Message)
	}
	m.msgs[id] = append(m.msgs[id], msg)
	return nil
}

func (m *memTranscript) List(_ context.Context, id string, limit int64) ([]transcript.Message, error) {
	out := m.msgs[id]
	if limit > 0 && int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

type harness struct {
	t        *testing.T
	api      *fakeHospital
	store    *session.MemoryStore
	outcomes *outcomeLog
	log      *memTranscript
	engine   *Engine
	out      *booking.Collector
	sess     Session
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		api:      newFakeHospital(),
		store:    session.NewMemoryStore(),
		outcomes: &outcomeLog{},
		log:      &memTranscript{},
		out:      &booking.Collector{},
		sess:     Session{HospitalID: "h1", Channel: ChannelChat, ID: "s1", Language: "en"},
		now:      testNow,
	}
	h.engine = New(h.api, h.store, Config{IDPrefix: "XYZ_", EditWindow: 6 * time.Hour, DateHorizonDays: 14}, nil,
		WithOutcomes(h.outcomes),
		WithTranscript(h.log),
		WithClock(func() time.Time { return h.now }),
		WithTipIndex(func(int) int { return 0 }),
	)
	return h
}

func (h *harness) send(ev Event) {
	h.t.Helper()
	h.out.Reset()
	require.NoError(h.t, h.engine.Handle(context.Background(), h.sess, ev, h.out))
}

func (h *harness) keys() []string {
	var out []string
	for _, r := range h.out.Replies() {
		out = append(out, r.Key)
	}
	return out
}

func (h *harness) last() booking.Reply {
	h.t.Helper()
	r, ok := h.out.Last()
	require.True(h.t, ok, "no replies emitted")
	return r
}

func (h *harness) flow() string {
	h.t.Helper()
	flow, err := session.CurrentFlow(context.Background(), h.store, h.sess.key(FlowMenu))
	require.NoError(h.t, err)
	return flow
}

func TestEngine_MenuKeywordStartsBooking(t *testing.T) {
	h := newHarness(t)

	h.send(Event{Type: EventMessage, Text: "I want booking"})
	assert.Equal(t, []string{MsgStarting, booking.MsgAskName}, h.keys())
	assert.Equal(t, "Starting Booking Appointment…", h.out.Replies()[0].Text)
	assert.Equal(t, FlowBooking, h.flow())
}

func TestEngine_BookingThroughCommit(t *testing.T) {
	h := newHarness(t)

	h.send(Event{Type: EventStart, Flow: FlowBooking})
	h.send(Event{Type: EventMessage, Text: "Asha Rao"})
	assert.Equal(t, booking.MsgAskPhone, h.last().Key)
	h.send(Event{Type: EventMessage, Text: "9876543210"})
	assert.Equal(t, booking.MsgSelectDepartment, h.last().Key)
	h.send(Event{Type: EventSelect, Value: "1"})
	assert.Equal(t, booking.MsgSelectDoctor, h.last().Key)
	h.send(Event{Type: EventSelect, Value: "7"})
	assert.Equal(t, booking.MsgSelectDate, h.last().Key)
	h.send(Event{Type: EventSelect, Value: "2026-10-15"})
	assert.Equal(t, booking.MsgSelectTime, h.last().Key)
	h.send(Event{Type: EventSelect, Value: "12:30"})
	assert.Equal(t, booking.MsgConfirm, h.last().Key)

	h.send(Event{Type: EventSelect, Value: "yes"})
	assert.Contains(t, h.keys(), booking.MsgSuccess)
	assert.Equal(t, FlowMenu, h.flow())

	require.Len(t, h.outcomes.events, 1)
	got := h.outcomes.events[0]
	assert.Equal(t, events.TypeBookingCommitted, got.Type)
	assert.Equal(t, "482", got.AppointmentID)
	assert.Equal(t, "7", got.DoctorID)
	assert.Equal(t, "2026-10-15", got.Date)
	assert.Equal(t, "12:30", got.Time)
	assert.Equal(t, "h1", got.HospitalID)
	assert.Equal(t, ChannelChat, got.Channel)
	assert.Equal(t, testNow, got.OccurredAt)
}

func TestEngine_DeclinedBookingReturnsToMenu(t *testing.T) {
	h := newHarness(t)
	h.send(Event{Type: EventStart, Flow: FlowBooking})
	h.send(Event{Type: EventMessage, Text: "Asha Rao"})
	h.send(Event{Type: EventMessage, Text: "9876543210"})
	h.send(Event{Type: EventSelect, Value: "1"})
	h.send(Event{Type: EventSelect, Value: "7"})
	h.send(Event{Type: EventSelect, Value: "2026-10-15"})
	h.send(Event{Type: EventSelect, Value: "12:30"})

	h.send(Event{Type: EventConfirm, Yes: false})
	assert.Equal(t, []string{booking.MsgCancelled, MsgMenu}, h.keys())
	assert.Equal(t, FlowMenu, h.flow())
	assert.Empty(t, h.outcomes.events)
}

func TestEngine_IdleShortcutStartsBooking(t *testing.T) {
	h := newHarness(t)

	h.send(Event{Type: EventMessage, Text: "book appointment with dr khan tomorrow at 12:30"})
	keys := h.keys()
	require.NotEmpty(t, keys)
	assert.Equal(t, booking.MsgProcessingShortcut, keys[0])
	assert.NotContains(t, keys, MsgStarting)
	assert.Equal(t, FlowBooking, h.flow())
}

func TestEngine_BusySessionIsRefused(t *testing.T) {
	h := newHarness(t)

	rt, ok := h.engine.acquire(h.sess)
	require.True(t, ok)

	out := &booking.Collector{}
	err := h.engine.Handle(context.Background(), h.sess, Event{Type: EventMessage, Text: "hello"}, out)
	assert.ErrorIs(t, err, ErrBusy)
	last, ok := out.Last()
	require.True(t, ok)
	assert.Equal(t, MsgBusy, last.Key)

	rt.release()
	h.send(Event{Type: EventStart, Flow: FlowBooking})
	assert.Equal(t, booking.MsgAskName, h.last().Key)
}

func TestEngine_OtherSessionsAreNotBlocked(t *testing.T) {
	h := newHarness(t)
	rt, ok := h.engine.acquire(h.sess)
	require.True(t, ok)
	defer rt.release()

	other := h.sess
	other.ID = "s2"
	out := &booking.Collector{}
	require.NoError(t, h.engine.Handle(context.Background(), other, Event{Type: EventStart, Flow: FlowBooking}, out))
	last, _ := out.Last()
	assert.Equal(t, booking.MsgAskName, last.Key)
}

func TestEngine_ResetClearsEveryFlow(t *testing.T) {
	h := newHarness(t)
	h.send(Event{Type: EventStart, Flow: FlowBooking})
	h.send(Event{Type: EventMessage, Text: "Asha Rao"})

	h.send(Event{Type: EventReset})
	assert.Equal(t, []string{MsgReturnedMenu, MsgMenu}, h.keys())
	assert.Equal(t, FlowMenu, h.flow())

	rec, err := h.store.Get(context.Background(), h.sess.key(FlowBooking))
	require.NoError(t, err)
	assert.Nil(t, rec)

	// A later message is handled at the menu, not inside the old draft.
	h.send(Event{Type: EventMessage, Text: "9876543210"})
	assert.Equal(t, []string{MsgInvalidOption, MsgMenu}, h.keys())
}

func TestEngine_ResetCountsAbandonedRuns(t *testing.T) {
	h := newHarness(t)
	reg := prometheus.NewRegistry()
	h.engine = New(h.api, h.store, Config{IDPrefix: "XYZ_", EditWindow: 6 * time.Hour, DateHorizonDays: 14}, nil,
		WithMetrics(metrics.NewFlowMetrics(reg)),
		WithClock(func() time.Time { return h.now }),
	)

	h.send(Event{Type: EventStart, Flow: FlowBooking})
	h.send(Event{Type: EventMessage, Text: "Asha Rao"})
	h.send(Event{Type: EventReset})

	// A reset at the menu has no run to end.
	h.send(Event{Type: EventReset})

	expected := `
# HELP hospital_conversation_flow_outcomes_total Finished flow runs by outcome
# TYPE hospital_conversation_flow_outcomes_total counter
hospital_conversation_flow_outcomes_total{channel="chat",flow="booking",outcome="cancelled"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "hospital_conversation_flow_outcomes_total"))
}

func TestEngine_MenuSelectionFromBookingCard(t *testing.T) {
	h := newHarness(t)
	h.send(Event{Type: EventStart, Flow: FlowBooking})

	h.send(Event{Type: EventSelect, Value: "menu"})
	assert.Equal(t, MsgMenu, h.last().Key)
	assert.Equal(t, FlowMenu, h.flow())
}

func TestEngine_UnknownStartFlow(t *testing.T) {
	h := newHarness(t)
	h.send(Event{Type: EventStart, Flow: "billing"})
	assert.Equal(t, []string{MsgInvalidOption, MsgMenu}, h.keys())
}

func TestEngine_GeneralQuery(t *testing.T) {
	h := newHarness(t)
	h.api.answer = &hospital.QueryAnswer{Type: hospital.QueryTimings, OPD: "9 AM - 5 PM", Emergency: "24x7", Visiting: "4 PM - 7 PM"}

	h.send(Event{Type: EventStart, Flow: FlowGeneral})
	assert.Equal(t, []string{MsgStarting, MsgTypeQuestion}, h.keys())
	assert.Equal(t, FlowGeneral, h.flow())

	h.send(Event{Type: EventMessage, Text: "When is the OPD open?"})
	replies := h.out.Replies()
	require.Len(t, replies, 2)
	assert.Equal(t, "hospital_timings", replies[0].Key)
	assert.Contains(t, replies[0].Details, booking.Detail{Label: "🚑 Emergency", Value: "24x7"})
	assert.Equal(t, MsgAskAnother, replies[1].Key)
	assert.Equal(t, []string{"When is the OPD open?"}, h.api.questions)
	assert.Equal(t, FlowGeneral, h.flow())
}

func TestEngine_GeneralQueryFailure(t *testing.T) {
	h := newHarness(t)
	h.api.askErr = errors.New("collaborator down")

	h.send(Event{Type: EventStart, Flow: FlowGeneral})
	h.send(Event{Type: EventMessage, Text: "what are the fees"})
	assert.Equal(t, []string{MsgGenericError, MsgAskAnother}, h.keys())
}

func TestEngine_IdleQuestionIsAnswered(t *testing.T) {
	h := newHarness(t)
	h.api.answer = &hospital.QueryAnswer{Type: hospital.QueryText, Answer: "We are open all week."}

	h.send(Event{Type: EventMessage, Text: "What are the hospital timings?"})
	assert.Equal(t, []string{"answer", MsgAskAnother}, h.keys())
	assert.Equal(t, "We are open all week.", h.out.Replies()[0].Text)
	assert.Equal(t, FlowGeneral, h.flow())
}

func TestEngine_CancelAppointment(t *testing.T) {
	h := newHarness(t)

	h.send(Event{Type: EventStart, Flow: FlowAppointments})
	assert.Equal(t, appointments.MsgAskKey, h.last().Key)

	h.send(Event{Type: EventMessage, Text: "xyz_482"})
	assert.Equal(t, FlowAppointments, h.flow())

	h.send(Event{Type: EventSelect, Value: "cancel"})
	assert.Equal(t, appointments.MsgConfirmCancel, h.last().Key)

	h.send(Event{Type: EventConfirm, Yes: true})
	assert.Equal(t, []string{appointments.MsgCancelSuccess, MsgMenu}, h.keys())
	assert.Equal(t, []string{"482"}, h.api.cancelled)
	assert.Equal(t, FlowMenu, h.flow())

	require.Len(t, h.outcomes.events, 1)
	assert.Equal(t, events.TypeAppointmentCancelled, h.outcomes.events[0].Type)
	assert.Equal(t, "cancelled", h.outcomes.events[0].Outcome)
	assert.Equal(t, "482", h.outcomes.events[0].AppointmentID)
}

func TestEngine_AutoStop(t *testing.T) {
	h := newHarness(t)
	h.sess.Channel = ChannelVoice
	h.send(Event{Type: EventStart, Flow: FlowBooking})
	h.send(Event{Type: EventMessage, Text: "Asha Rao"})

	require.NoError(t, h.engine.AutoStop(context.Background(), h.sess))
	assert.Equal(t, FlowMenu, h.flow())
	rec, err := h.store.Get(context.Background(), h.sess.key(FlowBooking))
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.Len(t, h.outcomes.events, 1)
	got := h.outcomes.events[0]
	assert.Equal(t, events.TypeVoiceAutoStopped, got.Type)
	assert.Equal(t, FlowBooking, got.Flow)
	assert.Equal(t, ChannelVoice, got.Channel)
}

func TestEngine_TranscriptRecordsBothSides(t *testing.T) {
	h := newHarness(t)
	h.send(Event{Type: EventStart, Flow: FlowBooking})
	h.send(Event{Type: EventMessage, Text: "Asha Rao"})

	msgs, err := h.engine.History(context.Background(), h.sess, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(msgs), 4)
	assert.Equal(t, transcript.RoleUser, msgs[0].Role)
	assert.Equal(t, FlowBooking, msgs[0].Body)
	assert.Equal(t, transcript.RoleAssistant, msgs[1].Role)

	var sawName bool
	for _, m := range msgs {
		if m.Role == transcript.RoleUser && m.Body == "Asha Rao" {
			sawName = true
		}
	}
	assert.True(t, sawName)
}

func TestEngine_InvalidSession(t *testing.T) {
	h := newHarness(t)
	err := h.engine.Handle(context.Background(), Session{HospitalID: "h1"}, Event{Type: EventReset}, h.out)
	assert.Error(t, err)
}

func TestEngine_LanguageFallsBack(t *testing.T) {
	h := newHarness(t)
	h.sess.Language = "fr"
	h.send(Event{Type: EventMessage, Text: "बुकिंग"})
	// Unsupported languages fall back to English keywords.
	assert.Equal(t, []string{MsgInvalidOption, MsgMenu}, h.keys())

	h.sess.Language = "hi"
	h.send(Event{Type: EventMessage, Text: "बुकिंग"})
	assert.Equal(t, FlowBooking, h.flow())
}

func TestEngine_SweepDropsIdleRuntimes(t *testing.T) {
	h := newHarness(t)
	h.send(Event{Type: EventStart, Flow: FlowBooking})

	assert.Equal(t, 0, h.engine.Sweep(time.Hour))
	h.now = h.now.Add(2 * time.Hour)
	assert.Equal(t, 1, h.engine.Sweep(time.Hour))

	// Persisted state survives; only the in-memory cache is gone.
	assert.Equal(t, FlowBooking, h.flow())
}
