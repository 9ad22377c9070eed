// Package appointments implements lookup, edit and cancellation of existing
// appointments.
package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/hospital-assistant/internal/apperrors"
	"github.com/wolfman30/hospital-assistant/internal/availability"
	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/internal/i18n"
	"github.com/wolfman30/hospital-assistant/internal/intent"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

// FlowName identifies the editor flow.
const FlowName = "my_appointments"

// DefaultEditWindow is the minimum lead time for edits.
const DefaultEditWindow = 6 * time.Hour

// State is the editor position.
type State int

const (
	StateLookup State = iota
	StateLoaded
	StateEditMenu
	StateEditName
	StateEditPhone
	StatePickDepartment
	StatePickDoctor
	StatePickDate
	StatePickTime
	StateConfirmUpdate
	StateConfirmCancel
	StateUpdated
	StateCancelled
)

func (s State) String() string {
	names := [...]string{
		"lookup", "loaded", "edit_menu", "edit_name", "edit_phone",
		"pick_department", "pick_doctor", "pick_date", "pick_time",
		"confirm_update", "confirm_cancel", "updated", "cancelled",
	}
	if s < 0 || int(s) >= len(names) {
		return "unknown"
	}
	return names[s]
}

// Field names accepted by ChooseField.
const (
	FieldName       = "name"
	FieldPhone      = "phone"
	FieldDepartment = "department"
	FieldDoctor     = "doctor"
	FieldDate       = "date"
	FieldTime       = "time"
)

// Outcome is how an editor run ended.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeUpdated   Outcome = "updated"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeAbandoned Outcome = "abandoned"
)

// Backend is the collaborator surface the editor needs.
type Backend interface {
	FindAppointment(ctx context.Context, key string) (*hospital.AppointmentRecord, error)
	UpdateAppointment(ctx context.Context, id string, rec hospital.AppointmentRecord) (*hospital.AppointmentRecord, error)
	CancelAppointment(ctx context.Context, id string) (hospital.CancelOutcome, error)
}

// Change describes a finished edit or cancellation.
type Change struct {
	Outcome Outcome
	Before  hospital.AppointmentRecord
	After   hospital.AppointmentRecord
}

// Options wires an Editor.
type Options struct {
	Backend    Backend
	Picker     *booking.Picker
	Store      booking.Persistence
	Surface    booking.Surface
	Logger     *logging.Logger
	IDPrefix   string
	EditWindow time.Duration
	// OnChange runs after an update or cancellation is accepted.
	OnChange func(ctx context.Context, c Change)
}

type snapshot struct {
	Original hospital.AppointmentRecord `json:"original"`
	Working  hospital.AppointmentRecord `json:"working"`
}

// Editor runs one lookup/edit/cancel conversation. Like the booking
// controller it is rebuilt from persisted state for every event.
type Editor struct {
	backend  Backend
	picker   *booking.Picker
	store    booking.Persistence
	surface  booking.Surface
	logger   *logging.Logger
	idPrefix string
	window   time.Duration
	onChange func(context.Context, Change)

	state   State
	snap    snapshot
	outcome Outcome
}

// NewEditor builds an editor positioned at StateLookup.
func NewEditor(opts Options) *Editor {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.EditWindow <= 0 {
		opts.EditWindow = DefaultEditWindow
	}
	return &Editor{
		backend:  opts.Backend,
		picker:   opts.Picker,
		store:    opts.Store,
		surface:  opts.Surface,
		logger:   opts.Logger,
		idPrefix: opts.IDPrefix,
		window:   opts.EditWindow,
		onChange: opts.OnChange,
	}
}

// State is the current position.
func (e *Editor) State() State { return e.state }

// Working returns the locally edited copy.
func (e *Editor) Working() hospital.AppointmentRecord { return e.snap.Working }

// Outcome reports how the run ended, if it has.
func (e *Editor) Outcome() Outcome { return e.outcome }

// Finished reports whether the run reached a terminal state.
func (e *Editor) Finished() bool { return e.outcome != OutcomeNone }

// Start prompts for an appointment id or phone number.
func (e *Editor) Start(ctx context.Context) error {
	e.picker.Resolver().Reset()
	e.clear(ctx)
	e.state = StateLookup
	e.snap = snapshot{}
	e.outcome = OutcomeNone
	e.save(ctx)
	return e.present(ctx)
}

// Restore loads persisted state without emitting anything.
func (e *Editor) Restore(ctx context.Context) (bool, error) {
	var snap snapshot
	state, found, err := e.store.Load(ctx, &snap)
	if err != nil {
		return false, fmt.Errorf("appointments: load state: %w", err)
	}
	if !found {
		return false, nil
	}
	if state < int(StateLookup) || state >= int(StateUpdated) {
		e.clear(ctx)
		return false, nil
	}
	e.state = State(state)
	e.snap = snap
	return true, nil
}

// Resume restores persisted state and re-displays the current prompt.
func (e *Editor) Resume(ctx context.Context) (bool, error) {
	ok, err := e.Restore(ctx)
	if err != nil || !ok {
		return ok, err
	}
	return true, e.present(ctx)
}

// Reset abandons the run.
func (e *Editor) Reset(ctx context.Context) error {
	e.clear(ctx)
	e.state = StateLookup
	e.snap = snapshot{}
	e.outcome = OutcomeAbandoned
	return nil
}

// NormalizeKey strips a case-insensitive display prefix from an id.
func NormalizeKey(prefix, key string) string {
	key = strings.TrimSpace(key)
	if prefix != "" && len(key) >= len(prefix) && strings.EqualFold(key[:len(prefix)], prefix) {
		key = key[len(prefix):]
	}
	return strings.TrimSpace(key)
}

// HandleText processes typed input.
func (e *Editor) HandleText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return e.present(ctx)
	}
	switch e.state {
	case StateLookup:
		return e.lookup(ctx, text)
	case StateEditName:
		if !booking.ValidateName(text) {
			return e.send(ctx, e.reply(booking.ReplyError, booking.MsgInvalidName, booking.Text(booking.MsgInvalidName)).await(booking.InputText))
		}
		e.snap.Working.Name = text
		return e.toConfirmUpdate(ctx)
	case StateEditPhone:
		phone, ok := booking.ValidatePhone(text)
		if !ok {
			return e.send(ctx, e.reply(booking.ReplyError, booking.MsgInvalidPhone, booking.Text(booking.MsgInvalidPhone)).await(booking.InputText))
		}
		e.snap.Working.Phone = phone
		return e.toConfirmUpdate(ctx)
	case StateConfirmUpdate:
		if booking.IsYes(text) || booking.IsNo(text) {
			return e.ConfirmUpdate(ctx, booking.IsYes(text))
		}
	case StateConfirmCancel:
		if booking.IsYes(text) || booking.IsNo(text) {
			return e.ConfirmCancel(ctx, booking.IsYes(text))
		}
	}
	return e.present(ctx)
}

func (e *Editor) lookup(ctx context.Context, text string) error {
	key := NormalizeKey(e.idPrefix, text)
	if phone, ok := booking.ValidatePhone(key); ok {
		key = phone
	}
	if key == "" {
		return e.present(ctx)
	}

	rec, err := e.backend.FindAppointment(ctx, key)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			if err := e.notice(ctx, booking.ReplyError, MsgNotFound); err != nil {
				return err
			}
			return e.present(ctx)
		}
		e.logger.Warn("appointments: lookup failed", "error", err)
		return e.notice(ctx, booking.ReplyError, MsgLookupFailed)
	}

	e.snap = snapshot{Original: *rec, Working: *rec}
	e.state = StateLoaded
	e.save(ctx)
	return e.present(ctx)
}

// EditAllowed reports whether the appointment starts at least window after
// now. Unparseable schedules are editable.
func EditAllowed(rec hospital.AppointmentRecord, now time.Time, window time.Duration) bool {
	at, err := time.ParseInLocation(intent.DateLayout+" 15:04", rec.Date+" "+rec.Time, now.Location())
	if err != nil {
		return true
	}
	return at.Sub(now) >= window
}

func (e *Editor) editAllowed() bool {
	return EditAllowed(e.snap.Original, e.picker.Now(), e.window)
}

// windowClosed drops pending edits and returns to the loaded record.
func (e *Editor) windowClosed(ctx context.Context) error {
	e.snap.Working = e.snap.Original
	e.state = StateLoaded
	e.save(ctx)
	if err := e.notice(ctx, booking.ReplyError, MsgEditNotAllowed, int(e.window.Hours())); err != nil {
		return err
	}
	return e.present(ctx)
}

// Edit opens the field menu. Inside the edit window only a warning is shown.
func (e *Editor) Edit(ctx context.Context) error {
	if e.state != StateLoaded {
		return e.present(ctx)
	}
	if !e.editAllowed() {
		return e.notice(ctx, booking.ReplyError, MsgEditNotAllowed, int(e.window.Hours()))
	}
	e.state = StateEditMenu
	e.save(ctx)
	return e.present(ctx)
}

// Cancel asks for cancellation confirmation. It is always available once an
// appointment is loaded.
func (e *Editor) Cancel(ctx context.Context) error {
	if e.state != StateLoaded {
		return e.present(ctx)
	}
	e.state = StateConfirmCancel
	e.save(ctx)
	return e.present(ctx)
}

// ChooseField starts editing one field.
func (e *Editor) ChooseField(ctx context.Context, field string) error {
	if e.state != StateEditMenu {
		return e.present(ctx)
	}
	if !e.editAllowed() {
		return e.windowClosed(ctx)
	}
	switch field {
	case FieldName:
		e.state = StateEditName
	case FieldPhone:
		e.state = StateEditPhone
	case FieldDepartment:
		e.state = StatePickDepartment
	case FieldDoctor:
		e.state = StatePickDoctor
	case FieldDate:
		e.state = StatePickDate
	case FieldTime:
		e.state = StatePickTime
	default:
		if err := e.notice(ctx, booking.ReplyError, MsgInvalidOption); err != nil {
			return err
		}
		return e.present(ctx)
	}
	e.save(ctx)
	return e.present(ctx)
}

// Select answers the option list of a picking state.
func (e *Editor) Select(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	switch e.state {
	case StatePickDepartment:
		return e.selectDepartment(ctx, value)
	case StatePickDoctor:
		return e.selectDoctor(ctx, value)
	case StatePickDate:
		return e.selectDate(ctx, value)
	case StatePickTime:
		return e.selectTime(ctx, value)
	}
	return e.present(ctx)
}

func (e *Editor) selectDepartment(ctx context.Context, id string) error {
	dep, ok, err := e.picker.Department(ctx, id)
	if err != nil {
		return e.failure(ctx, "select department", err)
	}
	if !ok {
		return e.invalidOption(ctx)
	}
	w := &e.snap.Working
	w.DepartmentID = dep.ID
	w.DepartmentName = dep.Name.In(e.picker.Language())
	w.DoctorID, w.DoctorName = "", ""
	w.Date, w.Time = "", ""
	e.state = StatePickDoctor
	e.save(ctx)
	return e.present(ctx)
}

func (e *Editor) selectDoctor(ctx context.Context, id string) error {
	doc, ok, err := e.picker.Doctor(ctx, e.snap.Working.DepartmentID.String(), id)
	if err != nil {
		return e.failure(ctx, "select doctor", err)
	}
	if !ok {
		return e.invalidOption(ctx)
	}
	dates, err := e.picker.DateOptions(ctx, doc.ID.String())
	if err != nil {
		return e.failure(ctx, "select doctor", err)
	}
	if len(dates) == 0 {
		if err := e.notice(ctx, booking.ReplyError, MsgNoDays); err != nil {
			return err
		}
		return e.present(ctx)
	}

	lang := e.picker.Language()
	w := &e.snap.Working
	w.DoctorID = doc.ID
	w.DoctorName = doc.Name.In(lang)
	if doc.DepartmentID != "" && doc.DepartmentID != w.DepartmentID {
		w.DepartmentID = doc.DepartmentID
		if dep, ok, err := e.picker.Department(ctx, doc.DepartmentID.String()); err == nil && ok {
			w.DepartmentName = dep.Name.In(lang)
		}
	}
	w.Date, w.Time = "", ""
	e.state = StatePickDate
	e.save(ctx)
	return e.send(ctx, e.prompt(MsgSelectDate, booking.InputDate, dates))
}

func (e *Editor) selectDate(ctx context.Context, date string) error {
	ok, err := e.picker.DateOffered(ctx, e.snap.Working.DoctorID.String(), date)
	if err != nil {
		return e.failure(ctx, "select date", err)
	}
	if !ok {
		if err := e.notice(ctx, booking.ReplyError, MsgDateUnavailable); err != nil {
			return err
		}
		return e.present(ctx)
	}
	e.snap.Working.Date = date
	e.snap.Working.Time = ""
	e.state = StatePickTime
	e.save(ctx)
	return e.present(ctx)
}

func (e *Editor) selectTime(ctx context.Context, value string) error {
	w := &e.snap.Working
	slots, opts, err := e.picker.Slots(ctx, w.DoctorID.String(), w.Date)
	if err != nil {
		return e.failure(ctx, "select time", err)
	}
	if _, ok := availability.FindSlot(slots, value); !ok {
		if len(slots) == 0 {
			return e.present(ctx)
		}
		if err := e.notice(ctx, booking.ReplyError, MsgSlotUnavailable); err != nil {
			return err
		}
		return e.send(ctx, e.prompt(MsgSelectTime, booking.InputChoice, opts))
	}
	w.Time = value
	return e.toConfirmUpdate(ctx)
}

func (e *Editor) toConfirmUpdate(ctx context.Context) error {
	e.state = StateConfirmUpdate
	e.save(ctx)
	return e.present(ctx)
}

// ConfirmUpdate answers the update preview. A rejected or failed update goes
// back to the field menu with the edits kept.
func (e *Editor) ConfirmUpdate(ctx context.Context, yes bool) error {
	if e.state != StateConfirmUpdate {
		return e.present(ctx)
	}
	if !yes {
		e.state = StateEditMenu
		e.save(ctx)
		return e.present(ctx)
	}

	if !e.editAllowed() {
		return e.windowClosed(ctx)
	}

	id := e.snap.Original.ID.String()
	updated, err := e.backend.UpdateAppointment(ctx, id, e.snap.Working)
	if err != nil {
		e.logger.Error("appointments: update failed", "error", err, "appointment_id", id)
		e.state = StateEditMenu
		e.save(ctx)
		if err := e.notice(ctx, booking.ReplyError, MsgUpdateFailed); err != nil {
			return err
		}
		return e.present(ctx)
	}

	change := Change{Outcome: OutcomeUpdated, Before: e.snap.Original, After: *updated}
	e.clear(ctx)
	e.state = StateUpdated
	e.outcome = OutcomeUpdated
	e.logger.Info("appointments: updated", "appointment_id", id)

	if err := e.notice(ctx, booking.ReplyNotice, MsgUpdateSuccess); err != nil {
		return err
	}
	result := e.reply(booking.ReplyResult, MsgDownloadSlip, Text(MsgDownloadSlip)).with([]booking.Option{
		{Value: id, Label: Text(MsgDownloadSlip), Icon: "📄", Href: hospital.SlipPath(id), Action: "download_slip"},
		{Value: "menu", Label: Text(MsgMainMenu), Icon: "🏠", Action: "menu"},
	})
	if err := e.send(ctx, result); err != nil {
		return err
	}
	if err := e.notice(ctx, booking.ReplyNotice, MsgGoGeneral); err != nil {
		return err
	}
	if err := e.notice(ctx, booking.ReplyNotice, MsgTip); err != nil {
		return err
	}
	if e.onChange != nil {
		e.onChange(ctx, change)
	}
	return nil
}

// ConfirmCancel answers the cancellation prompt.
func (e *Editor) ConfirmCancel(ctx context.Context, yes bool) error {
	if e.state != StateConfirmCancel {
		return e.present(ctx)
	}
	if !yes {
		e.state = StateLoaded
		e.save(ctx)
		return e.present(ctx)
	}

	id := e.snap.Original.ID.String()
	outcome, err := e.backend.CancelAppointment(ctx, id)
	if err != nil {
		e.logger.Error("appointments: cancel failed", "error", err, "appointment_id", id)
		e.state = StateLoaded
		e.save(ctx)
		return e.notice(ctx, booking.ReplyError, MsgCancelFailed)
	}

	switch outcome {
	case hospital.CancelCancelled:
		before := e.snap.Original
		after := before
		after.Status = hospital.StatusCancelled
		e.clear(ctx)
		e.state = StateCancelled
		e.outcome = OutcomeCancelled
		e.logger.Info("appointments: cancelled", "appointment_id", id)
		if err := e.notice(ctx, booking.ReplyResult, MsgCancelSuccess); err != nil {
			return err
		}
		if e.onChange != nil {
			e.onChange(ctx, Change{Outcome: OutcomeCancelled, Before: before, After: after})
		}
		return nil
	case hospital.CancelNotFound:
		e.clear(ctx)
		e.state = StateCancelled
		e.outcome = OutcomeNotFound
		return e.notice(ctx, booking.ReplyError, MsgCancelNotFound)
	default:
		e.state = StateLoaded
		e.save(ctx)
		return e.notice(ctx, booking.ReplyNotice, MsgCancelAborted)
	}
}

func (e *Editor) present(ctx context.Context) error {
	switch e.state {
	case StateLookup:
		return e.send(ctx, e.prompt(MsgAskKey, booking.InputText, nil))
	case StateLoaded:
		return e.presentLoaded(ctx)
	case StateEditMenu:
		return e.presentFields(ctx)
	case StateEditName:
		return e.send(ctx, e.prompt(MsgEnterName, booking.InputText, nil))
	case StateEditPhone:
		return e.send(ctx, e.prompt(MsgEnterPhone, booking.InputText, nil))
	case StatePickDepartment:
		opts, err := e.picker.DepartmentOptions(ctx)
		if err != nil {
			return e.failure(ctx, "list departments", err)
		}
		return e.send(ctx, e.prompt(MsgSelectDepartment, booking.InputChoice, opts))
	case StatePickDoctor:
		opts, err := e.picker.DoctorOptions(ctx, e.snap.Working.DepartmentID.String())
		if err != nil {
			return e.failure(ctx, "list doctors", err)
		}
		return e.send(ctx, e.prompt(MsgSelectDoctor, booking.InputChoice, opts))
	case StatePickDate:
		return e.presentDates(ctx)
	case StatePickTime:
		return e.presentSlots(ctx)
	case StateConfirmUpdate:
		r := e.prompt(MsgConfirmChanges, booking.InputConfirm, yesNo())
		r.Details = e.details(ctx, e.snap.Working)
		return e.send(ctx, r)
	case StateConfirmCancel:
		return e.send(ctx, e.prompt(MsgConfirmCancel, booking.InputConfirm, yesNo()))
	}
	return nil
}

func yesNo() []booking.Option {
	return []booking.Option{
		{Value: "yes", Label: booking.Text(booking.MsgChoiceYes), Icon: "✅"},
		{Value: "no", Label: booking.Text(booking.MsgChoiceNo), Icon: "❌"},
	}
}

func (e *Editor) presentLoaded(ctx context.Context) error {
	card := e.reply(booking.ReplyResult, MsgDetails, Text(MsgDetails))
	card.Details = e.details(ctx, e.snap.Original)
	if err := e.send(ctx, card); err != nil {
		return err
	}
	allowed := e.editAllowed()
	edit := booking.Option{Value: "edit", Label: Text(MsgEditAppointment), Icon: "✏️", Action: "edit", Disabled: !allowed}
	if !allowed {
		edit.Detail = Text(MsgEditNotAllowed, int(e.window.Hours()))
	}
	return e.send(ctx, e.prompt(MsgWhatNext, booking.InputChoice, []booking.Option{
		edit,
		{Value: "cancel", Label: Text(MsgCancelAppoint), Icon: "❌", Action: "cancel"},
	}))
}

func (e *Editor) presentFields(ctx context.Context) error {
	w := e.snap.Working
	dept, doc := e.names(ctx, w)
	lang := e.picker.Language()
	opts := []booking.Option{
		{Value: FieldName, Label: Text(LabelName) + ": " + w.Name, Icon: "👤", Action: "field"},
		{Value: FieldPhone, Label: Text(LabelPhone) + ": " + w.Phone, Icon: "📱", Action: "field"},
		{Value: FieldDepartment, Label: Text(LabelDepartment) + ": " + dept, Icon: "🏥", Action: "field"},
		{Value: FieldDoctor, Label: Text(LabelDoctor) + ": " + doc, Icon: "👨‍⚕️", Action: "field"},
		{Value: FieldDate, Label: Text(LabelDate) + ": " + w.Date, Icon: "📅", Action: "field"},
		{Value: FieldTime, Label: Text(LabelTime) + ": " + intent.FormatTimeDisplay(w.Time, lang), Icon: "⏰", Action: "field"},
	}
	return e.send(ctx, e.prompt(MsgChooseField, booking.InputChoice, opts))
}

func (e *Editor) presentDates(ctx context.Context) error {
	opts, err := e.picker.DateOptions(ctx, e.snap.Working.DoctorID.String())
	if err != nil {
		return e.failure(ctx, "list dates", err)
	}
	if len(opts) == 0 {
		e.state = StateEditMenu
		e.save(ctx)
		if err := e.notice(ctx, booking.ReplyError, MsgNoDays); err != nil {
			return err
		}
		return e.present(ctx)
	}
	return e.send(ctx, e.prompt(MsgSelectDate, booking.InputDate, opts))
}

func (e *Editor) presentSlots(ctx context.Context) error {
	w := e.snap.Working
	slots, opts, err := e.picker.Slots(ctx, w.DoctorID.String(), w.Date)
	if err != nil {
		return e.failure(ctx, "list slots", err)
	}
	if len(slots) == 0 {
		e.state = StatePickDate
		e.save(ctx)
		if err := e.notice(ctx, booking.ReplyError, MsgNoSlots); err != nil {
			return err
		}
		return e.presentDates(ctx)
	}
	return e.send(ctx, e.prompt(MsgSelectTime, booking.InputChoice, opts))
}

// names resolves display names, falling back to the names on the record and
// then to placeholders.
func (e *Editor) names(ctx context.Context, rec hospital.AppointmentRecord) (string, string) {
	lang := e.picker.Language()
	dept := rec.DepartmentName
	if dep, ok, err := e.picker.Department(ctx, rec.DepartmentID.String()); err == nil && ok {
		dept = dep.Name.In(lang)
	}
	if dept == "" {
		dept = "Unknown Department"
	}
	doc := rec.DoctorName
	if d, ok, err := e.picker.Resolver().Doctor(ctx, rec.DoctorID.String()); err == nil && ok {
		doc = d.Name.In(lang)
	}
	if doc == "" {
		doc = "Unknown Doctor"
	}
	return dept, doc
}

func (e *Editor) fees(ctx context.Context, rec hospital.AppointmentRecord) string {
	d, ok, err := e.picker.Resolver().Doctor(ctx, rec.DoctorID.String())
	if err != nil || !ok || d.Fees == "" {
		return "N/A"
	}
	switch i18n.Normalize(e.picker.Language()) {
	case i18n.Hindi, i18n.Marathi:
		return d.Fees.String() + " रुपये"
	default:
		return "₹" + d.Fees.String()
	}
}

func (e *Editor) details(ctx context.Context, rec hospital.AppointmentRecord) []booking.Detail {
	dept, doc := e.names(ctx, rec)
	out := []booking.Detail{
		{Label: Text(LabelID), Value: e.idPrefix + rec.ID.String()},
		{Label: Text(LabelName), Value: rec.Name},
		{Label: Text(LabelPhone), Value: rec.Phone},
		{Label: Text(LabelDepartment), Value: dept},
		{Label: Text(LabelDoctor), Value: doc},
		{Label: Text(LabelDate), Value: rec.Date},
		{Label: Text(LabelTime), Value: intent.FormatTimeDisplay(rec.Time, e.picker.Language())},
		{Label: Text(LabelFees), Value: e.fees(ctx, rec)},
	}
	if rec.Status != "" {
		out = append(out, booking.Detail{Label: Text(LabelStatus), Value: rec.Status})
	}
	return out
}

func (e *Editor) invalidOption(ctx context.Context) error {
	if err := e.notice(ctx, booking.ReplyError, MsgInvalidOption); err != nil {
		return err
	}
	return e.present(ctx)
}

func (e *Editor) failure(ctx context.Context, action string, err error) error {
	e.logger.Warn("appointments: "+action+" failed", "error", err, "state", e.state.String())
	return e.notice(ctx, booking.ReplyError, MsgFetchFailed)
}

func (e *Editor) save(ctx context.Context) {
	if err := e.store.Save(ctx, int(e.state), e.snap); err != nil {
		e.logger.Warn("appointments: save state failed", "error", err, "state", e.state.String())
	}
}

func (e *Editor) clear(ctx context.Context) {
	if err := e.store.Clear(ctx); err != nil {
		e.logger.Warn("appointments: clear state failed", "error", err)
	}
}

type reply struct{ booking.Reply }

func (r reply) await(input booking.InputKind) reply {
	r.Input = input
	return r
}

func (r reply) with(opts []booking.Option) reply {
	r.Options = opts
	return r
}

func (e *Editor) reply(kind booking.ReplyKind, key, text string) reply {
	return reply{booking.Reply{
		Kind:  kind,
		Key:   key,
		Text:  text,
		Input: booking.InputNone,
		Flow:  FlowName,
		Step:  int(e.state),
	}}
}

func (e *Editor) prompt(key string, input booking.InputKind, opts []booking.Option) reply {
	return e.reply(booking.ReplyPrompt, key, Text(key)).await(input).with(opts)
}

func (e *Editor) notice(ctx context.Context, kind booking.ReplyKind, key string, args ...any) error {
	return e.send(ctx, e.reply(kind, key, Text(key, args...)))
}

func (e *Editor) send(ctx context.Context, r reply) error {
	if e.surface == nil {
		return nil
	}
	if err := e.surface.Emit(ctx, r.Reply); err != nil {
		return fmt.Errorf("appointments: emit %s: %w", r.Key, err)
	}
	return nil
}
