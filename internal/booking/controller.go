package booking

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/wolfman30/hospital-assistant/internal/apperrors"
	"github.com/wolfman30/hospital-assistant/internal/availability"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/internal/intent"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

// FlowName identifies the booking flow in persisted records and replies.
const FlowName = "booking"

// Backend commits bookings.
type Backend interface {
	ConfirmAppointment(ctx context.Context, req hospital.AppointmentRequest) (*hospital.Confirmation, error)
}

// Options wires a Controller.
type Options struct {
	Backend  Backend
	Picker   *Picker
	Store    Persistence
	Surface  Surface
	Parser   *intent.Parser
	Logger   *logging.Logger
	IDPrefix string
	// OnCommit runs after a booking is committed.
	OnCommit func(ctx context.Context, c Committed)
	// TipIndex picks the health tip shown after a booking.
	TipIndex func(n int) int
}

// Controller runs one booking flow. It is rebuilt from persisted state for
// every inbound event and is not safe for concurrent use.
type Controller struct {
	backend  Backend
	picker   *Picker
	store    Persistence
	surface  Surface
	parser   *intent.Parser
	logger   *logging.Logger
	idPrefix string
	onCommit func(context.Context, Committed)
	tipIndex func(int) int

	step    Step
	draft   Draft
	outcome Outcome
}

// NewController builds a controller positioned at StepAskName.
func NewController(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Parser == nil {
		opts.Parser = intent.NewParser()
	}
	if opts.TipIndex == nil {
		opts.TipIndex = rand.IntN
	}
	return &Controller{
		backend:  opts.Backend,
		picker:   opts.Picker,
		store:    opts.Store,
		surface:  opts.Surface,
		parser:   opts.Parser,
		logger:   opts.Logger,
		idPrefix: opts.IDPrefix,
		onCommit: opts.OnCommit,
		tipIndex: opts.TipIndex,
	}
}

// Step is the current position.
func (c *Controller) Step() Step { return c.step }

// Draft returns a copy of the draft.
func (c *Controller) Draft() Draft { return c.draft }

// Outcome reports how the run ended, if it has.
func (c *Controller) Outcome() Outcome { return c.outcome }

// Finished reports whether the run reached a terminal state.
func (c *Controller) Finished() bool { return c.outcome != OutcomeNone }

// Start begins a fresh run.
func (c *Controller) Start(ctx context.Context) error {
	c.picker.Resolver().Reset()
	c.clear(ctx)
	c.step = StepAskName
	c.draft = Draft{}
	c.outcome = OutcomeNone
	c.save(ctx)
	return c.present(ctx)
}

// Restore loads persisted state without emitting anything.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	var d Draft
	step, found, err := c.store.Load(ctx, &d)
	if err != nil {
		return false, fmt.Errorf("booking: load state: %w", err)
	}
	if !found {
		return false, nil
	}
	if step < int(StepAskName) || step >= int(StepCommitted) {
		c.clear(ctx)
		return false, nil
	}
	c.step = Step(step)
	c.draft = d
	return true, nil
}

// Resume restores persisted state and re-displays the prompt of that step.
func (c *Controller) Resume(ctx context.Context) (bool, error) {
	ok, err := c.Restore(ctx)
	if err != nil || !ok {
		return ok, err
	}
	return true, c.present(ctx)
}

// Reset abandons the run.
func (c *Controller) Reset(ctx context.Context) error {
	c.clear(ctx)
	c.step = StepAskName
	c.draft = Draft{}
	c.outcome = OutcomeCancelled
	return nil
}

// HandleText processes typed or transcribed input.
func (c *Controller) HandleText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if c.step == StepCommitted {
		return nil
	}
	if text == "" {
		return c.present(ctx)
	}

	parsed := intent.Result{Kind: intent.NormalFlow}
	if !c.plainAnswer(text) {
		parsed = c.parser.Parse(text, c.picker.Now())
	}
	switch parsed.Kind {
	case intent.GeneralQuestion:
		if err := c.notice(ctx, ReplyNotice, MsgGeneralQuestion); err != nil {
			return err
		}
		return c.notice(ctx, ReplyNotice, MsgGeneralQueryHint)
	case intent.DirectBooking:
		return c.applyShortcut(ctx, parsed.Fields)
	}

	switch c.step {
	case StepAskName:
		if !ValidateName(text) {
			return c.send(ctx, c.reply(ReplyError, MsgInvalidName).await(InputText))
		}
		c.draft.Name = text
		return c.advance(ctx)
	case StepAskPhone:
		phone, ok := ValidatePhone(text)
		if !ok {
			return c.send(ctx, c.reply(ReplyError, MsgInvalidPhone).await(InputText))
		}
		c.draft.Phone = phone
		return c.advance(ctx)
	case StepConfirm:
		switch {
		case IsYes(text):
			return c.Confirm(ctx, true)
		case IsNo(text):
			return c.Confirm(ctx, false)
		}
	}
	return c.present(ctx)
}

// plainAnswer reports whether text answers the name or phone prompt as is,
// so it skips question and shortcut classification.
func (c *Controller) plainAnswer(text string) bool {
	if intent.LooksLikeQuestion(text) || intent.HasBookingKeyword(text) {
		return false
	}
	switch c.step {
	case StepAskName:
		return ValidateName(text)
	case StepAskPhone:
		_, ok := ValidatePhone(text)
		return ok
	}
	return false
}

// SelectDepartment picks a department at StepSelectDepartment.
func (c *Controller) SelectDepartment(ctx context.Context, id string) error {
	if c.step != StepSelectDepartment {
		return c.present(ctx)
	}
	dep, ok, err := c.picker.Department(ctx, id)
	if err != nil {
		return c.failure(ctx, "select department", err, MsgFailedDepartments)
	}
	if !ok {
		if err := c.notice(ctx, ReplyError, MsgUnknownDepartment); err != nil {
			return err
		}
		return c.present(ctx)
	}

	c.draft.DepartmentID = dep.ID.String()
	c.draft.Department = dep.Name.In(c.picker.Language())
	c.draft.AllDoctors = false
	c.clearDoctor()
	c.step = StepSelectDoctor
	c.save(ctx)
	return c.present(ctx)
}

// SelectDoctor picks a doctor at StepSelectDoctor. A doctor without working
// days is refused and the doctor list shown again.
func (c *Controller) SelectDoctor(ctx context.Context, id string) error {
	if c.step != StepSelectDoctor {
		return c.present(ctx)
	}
	doc, ok, err := c.picker.Doctor(ctx, c.doctorScope(), id)
	if err != nil {
		return c.failure(ctx, "select doctor", err, MsgFailedDoctors)
	}
	if !ok {
		if err := c.notice(ctx, ReplyError, MsgUnknownDoctor); err != nil {
			return err
		}
		return c.present(ctx)
	}

	dates, err := c.picker.DateOptions(ctx, doc.ID.String())
	if err != nil {
		return c.failure(ctx, "select doctor", err, MsgFailedDates)
	}
	if len(dates) == 0 {
		if err := c.notice(ctx, ReplyError, MsgNoDays); err != nil {
			return err
		}
		return c.present(ctx)
	}

	c.setDoctor(ctx, doc)
	c.step = StepSelectDate
	c.save(ctx)
	return c.send(ctx, c.reply(ReplyPrompt, MsgSelectDate).await(InputDate).with(dates))
}

// SelectDate picks a date at StepSelectDate. Only offered dates are accepted.
func (c *Controller) SelectDate(ctx context.Context, date string) error {
	if c.step != StepSelectDate {
		return c.present(ctx)
	}
	date = strings.TrimSpace(date)
	offered, err := c.picker.DateOffered(ctx, c.draft.DoctorID, date)
	if err != nil {
		return c.failure(ctx, "select date", err, MsgFailedDates)
	}
	if !offered {
		if err := c.notice(ctx, ReplyError, MsgDateUnavailable); err != nil {
			return err
		}
		return c.present(ctx)
	}

	c.draft.Date = date
	c.draft.Time, c.draft.TimeDisplay = "", ""
	c.step = StepSelectTime
	c.save(ctx)
	return c.present(ctx)
}

// SelectTime picks a slot at StepSelectTime. The slot list is re-fetched so a
// slot taken in the meantime is refused.
func (c *Controller) SelectTime(ctx context.Context, value string) error {
	if c.step != StepSelectTime {
		return c.present(ctx)
	}
	slots, opts, err := c.picker.Slots(ctx, c.draft.DoctorID, c.draft.Date)
	if err != nil {
		return c.failure(ctx, "select time", err, MsgFailedSlots)
	}
	slot, ok := availability.FindSlot(slots, strings.TrimSpace(value))
	if !ok {
		if len(slots) == 0 {
			return c.present(ctx)
		}
		if err := c.notice(ctx, ReplyError, MsgSlotUnavailable); err != nil {
			return err
		}
		return c.send(ctx, c.reply(ReplyPrompt, MsgSelectTime).await(InputChoice).with(opts))
	}

	c.draft.Time = slot.Value
	c.draft.TimeDisplay = c.picker.SlotLabel(slot)
	c.step = StepConfirm
	c.save(ctx)
	return c.present(ctx)
}

// Confirm answers the confirmation prompt.
func (c *Controller) Confirm(ctx context.Context, yes bool) error {
	if c.step != StepConfirm {
		return c.present(ctx)
	}
	if !yes {
		c.clear(ctx)
		c.draft = Draft{}
		c.step = StepAskName
		c.outcome = OutcomeCancelled
		return c.notice(ctx, ReplyNotice, MsgCancelled)
	}
	return c.submit(ctx)
}

func (c *Controller) submit(ctx context.Context) error {
	if slots, err := c.picker.Resolver().ListSlots(ctx, c.draft.DoctorID, c.draft.Date); err == nil {
		if _, ok := availability.FindSlot(slots, c.draft.Time); !ok {
			return c.slotTaken(ctx)
		}
	}

	conf, err := c.backend.ConfirmAppointment(ctx, c.request())
	if err != nil {
		if apperrors.IsConflict(err) {
			return c.slotTaken(ctx)
		}
		c.logger.Error("booking: confirm failed", "error", err, "doctor_id", c.draft.DoctorID, "date", c.draft.Date)
		if err := c.notice(ctx, ReplyError, MsgErrorConfirming); err != nil {
			return err
		}
		return c.present(ctx)
	}

	raw := conf.AppointmentID.String()
	display := c.idPrefix + raw
	c.draft.AppointmentID = display
	committed := Committed{AppointmentID: raw, DisplayID: display, Draft: c.draft}

	c.clear(ctx)
	c.step = StepCommitted
	c.outcome = OutcomeCommitted
	c.logger.Info("booking: committed", "appointment_id", display, "doctor_id", c.draft.DoctorID, "date", c.draft.Date, "time", c.draft.Time)

	if err := c.notice(ctx, ReplyNotice, MsgSuccess); err != nil {
		return err
	}
	result := c.reply(ReplyResult, MsgAppointmentID, display).with([]Option{
		{Value: raw, Label: Text(MsgDownloadSlip), Icon: "📄", Href: hospital.SlipPath(raw), Action: "download_slip"},
		{Value: "menu", Label: Text(MsgMainMenu), Icon: "🏠", Action: "menu"},
	})
	result.Details = c.details()
	if err := c.send(ctx, result); err != nil {
		return err
	}
	if err := c.notice(ctx, ReplyNotice, MsgEditInstruction); err != nil {
		return err
	}
	tip := c.reply(ReplyNotice, MsgHealthTip)
	tip.Text = healthTips[c.tipIndex(len(healthTips))]
	if err := c.send(ctx, tip); err != nil {
		return err
	}

	if c.onCommit != nil {
		c.onCommit(ctx, committed)
	}
	return nil
}

func (c *Controller) slotTaken(ctx context.Context) error {
	c.draft.Time, c.draft.TimeDisplay = "", ""
	c.step = StepSelectTime
	c.save(ctx)
	if err := c.notice(ctx, ReplyError, MsgSlotTaken); err != nil {
		return err
	}
	return c.present(ctx)
}

func (c *Controller) applyShortcut(ctx context.Context, f intent.Fields) error {
	if err := c.notice(ctx, ReplyNotice, MsgProcessingShortcut); err != nil {
		return err
	}
	if f.Name != "" && ValidateName(f.Name) {
		c.draft.Name = strings.TrimSpace(f.Name)
		if err := c.notice(ctx, ReplyNotice, MsgNameSet, c.draft.Name); err != nil {
			return err
		}
	}
	if f.Phone != "" {
		if phone, ok := ValidatePhone(f.Phone); ok {
			c.draft.Phone = phone
			if err := c.notice(ctx, ReplyNotice, MsgPhoneSet, phone); err != nil {
				return err
			}
		}
	}

	switch {
	case f.Doctor != "":
		if err := c.shortcutDoctor(ctx, f); err != nil {
			return err
		}
	case f.Date != "" && c.draft.DoctorID != "":
		if err := c.shortcutDate(ctx, f.Date); err != nil {
			return err
		}
	}

	if c.draft.Name == "" || c.draft.Phone == "" {
		if err := c.notice(ctx, ReplyNotice, MsgNeedDetails); err != nil {
			return err
		}
	}
	return c.advance(ctx)
}

func (c *Controller) shortcutDoctor(ctx context.Context, f intent.Fields) error {
	docs, err := c.picker.AllDoctors(ctx)
	if err != nil {
		c.logger.Warn("booking: shortcut doctor lookup failed", "error", err)
		return c.notice(ctx, ReplyError, MsgFailedDoctors)
	}

	matches := MatchDoctors(docs, f.Doctor)
	if len(matches) != 1 {
		c.browseUnlessChosen()
		return c.notice(ctx, ReplyError, MsgDoctorNotFound)
	}
	doc := matches[0]

	dates, err := c.picker.DateOptions(ctx, doc.ID.String())
	if err != nil {
		c.logger.Warn("booking: shortcut days lookup failed", "error", err, "doctor_id", doc.ID)
		c.browseUnlessChosen()
		return c.notice(ctx, ReplyError, MsgFailedDates)
	}
	if len(dates) == 0 {
		c.browseUnlessChosen()
		return c.notice(ctx, ReplyError, MsgNoDays)
	}

	c.setDoctor(ctx, doc)
	if err := c.notice(ctx, ReplyNotice, MsgDoctorFound, c.draft.Doctor); err != nil {
		return err
	}

	if f.Date != "" {
		if offered(dates, f.Date) {
			c.draft.Date = f.Date
		} else if err := c.notice(ctx, ReplyError, MsgDateUnavailable); err != nil {
			return err
		}
	}
	if f.TimeToken != "" {
		if f.Time == "" {
			return c.notice(ctx, ReplyNotice, MsgInvalidTime)
		}
		if c.draft.Date != "" {
			c.draft.RequestedTime = f.Time
		}
	}
	return nil
}

// shortcutDate moves the chosen doctor's booking to date when it is offered.
func (c *Controller) shortcutDate(ctx context.Context, date string) error {
	if date == c.draft.Date {
		return nil
	}
	dates, err := c.picker.DateOptions(ctx, c.draft.DoctorID)
	if err != nil {
		c.logger.Warn("booking: shortcut days lookup failed", "error", err, "doctor_id", c.draft.DoctorID)
		return c.notice(ctx, ReplyError, MsgFailedDates)
	}
	if !offered(dates, date) {
		return c.notice(ctx, ReplyError, MsgDateUnavailable)
	}
	c.draft.Date = date
	c.draft.Time, c.draft.TimeDisplay, c.draft.RequestedTime = "", "", ""
	return nil
}

func offered(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

// advance moves to the first step whose field is still missing.
func (c *Controller) advance(ctx context.Context) error {
	c.step = c.nextStep()
	c.save(ctx)
	return c.present(ctx)
}

func (c *Controller) nextStep() Step {
	d := c.draft
	switch {
	case d.Name == "":
		return StepAskName
	case d.Phone == "":
		return StepAskPhone
	case d.DoctorID == "" && d.DepartmentID == "" && !d.AllDoctors:
		return StepSelectDepartment
	case d.DoctorID == "":
		return StepSelectDoctor
	case d.Date == "":
		return StepSelectDate
	case d.Time == "":
		return StepSelectTime
	default:
		return StepConfirm
	}
}

// present shows the prompt and options of the current step.
func (c *Controller) present(ctx context.Context) error {
	switch c.step {
	case StepAskName:
		return c.send(ctx, c.reply(ReplyPrompt, MsgAskName).await(InputText))
	case StepAskPhone:
		return c.send(ctx, c.reply(ReplyPrompt, MsgAskPhone).await(InputText))
	case StepSelectDepartment:
		opts, err := c.picker.DepartmentOptions(ctx)
		if err != nil {
			return c.failure(ctx, "list departments", err, MsgFailedDepartments)
		}
		return c.send(ctx, c.reply(ReplyPrompt, MsgSelectDepartment).await(InputChoice).with(opts))
	case StepSelectDoctor:
		opts, err := c.picker.DoctorOptions(ctx, c.doctorScope())
		if err != nil {
			return c.failure(ctx, "list doctors", err, MsgFailedDoctors)
		}
		return c.send(ctx, c.reply(ReplyPrompt, MsgSelectDoctor).await(InputChoice).with(opts))
	case StepSelectDate:
		return c.presentDates(ctx)
	case StepSelectTime:
		return c.presentSlots(ctx)
	case StepConfirm:
		r := c.reply(ReplyPrompt, MsgConfirm).await(InputConfirm).with([]Option{
			{Value: "yes", Label: Text(MsgChoiceYes), Icon: "✅"},
			{Value: "no", Label: Text(MsgChoiceNo), Icon: "❌"},
		})
		r.Details = c.details()
		return c.send(ctx, r)
	}
	return nil
}

func (c *Controller) presentDates(ctx context.Context) error {
	opts, err := c.picker.DateOptions(ctx, c.draft.DoctorID)
	if err != nil {
		return c.failure(ctx, "list dates", err, MsgFailedDates)
	}
	if len(opts) == 0 {
		c.browseAllDoctorsInDepartment()
		c.step = StepSelectDoctor
		c.save(ctx)
		if err := c.notice(ctx, ReplyError, MsgNoDays); err != nil {
			return err
		}
		return c.present(ctx)
	}
	return c.send(ctx, c.reply(ReplyPrompt, MsgSelectDate).await(InputDate).with(opts))
}

func (c *Controller) presentSlots(ctx context.Context) error {
	slots, opts, err := c.picker.Slots(ctx, c.draft.DoctorID, c.draft.Date)
	if err != nil {
		if c.draft.RequestedTime != "" {
			c.draft.RequestedTime = ""
			c.save(ctx)
			return c.failure(ctx, "check requested time", err, MsgShortcutCheckFailed)
		}
		return c.failure(ctx, "list slots", err, MsgFailedSlots)
	}
	if len(slots) == 0 {
		c.draft.Date, c.draft.RequestedTime = "", ""
		c.step = StepSelectDate
		c.save(ctx)
		if err := c.notice(ctx, ReplyError, MsgNoSlots); err != nil {
			return err
		}
		return c.presentDates(ctx)
	}

	if requested := c.draft.RequestedTime; requested != "" {
		c.draft.RequestedTime = ""
		if slot, ok := availability.FindSlot(slots, requested); ok {
			c.draft.Time = slot.Value
			c.draft.TimeDisplay = c.picker.SlotLabel(slot)
			c.step = StepConfirm
			c.save(ctx)
			if err := c.notice(ctx, ReplyNotice, MsgTimeAvailable, c.draft.TimeDisplay); err != nil {
				return err
			}
			if err := c.notice(ctx, ReplyNotice, MsgDateConfirmed, intent.FormatDate(c.draft.Date)); err != nil {
				return err
			}
			return c.present(ctx)
		}
		c.save(ctx)
		if err := c.notice(ctx, ReplyError, MsgTimeNotAvailable); err != nil {
			return err
		}
		return c.send(ctx, c.reply(ReplyPrompt, MsgAlternativeTimes, intent.FormatDate(c.draft.Date)).await(InputChoice).with(opts))
	}
	return c.send(ctx, c.reply(ReplyPrompt, MsgSelectTime).await(InputChoice).with(opts))
}

func (c *Controller) details() []Detail {
	d := c.draft
	timeText := d.TimeDisplay
	if timeText == "" {
		timeText = d.Time
	}
	return []Detail{
		{Label: Text(MsgLabelName), Value: d.Name},
		{Label: Text(MsgLabelPhone), Value: d.Phone},
		{Label: Text(MsgLabelDepartment), Value: d.Department},
		{Label: Text(MsgLabelDoctor), Value: d.Doctor},
		{Label: Text(MsgLabelDate), Value: intent.FormatDate(d.Date)},
		{Label: Text(MsgLabelTime), Value: timeText},
	}
}

func (c *Controller) request() hospital.AppointmentRequest {
	d := c.draft
	return hospital.AppointmentRequest{
		Name:           d.Name,
		Phone:          d.Phone,
		DepartmentID:   d.DepartmentID,
		DepartmentName: d.Department,
		DoctorID:       d.DoctorID,
		DoctorName:     d.Doctor,
		Date:           d.Date,
		Time:           d.Time,
	}
}

// setDoctor stores the doctor and overwrites the department with the
// doctor's own.
func (c *Controller) setDoctor(ctx context.Context, doc hospital.Doctor) {
	lang := c.picker.Language()
	c.draft.DoctorID = doc.ID.String()
	c.draft.Doctor = doc.Name.In(lang)
	if deptID := doc.DepartmentID.String(); deptID != "" && deptID != c.draft.DepartmentID {
		c.draft.DepartmentID = deptID
		c.draft.Department = ""
		if dep, ok, err := c.picker.Department(ctx, deptID); err == nil && ok {
			c.draft.Department = dep.Name.In(lang)
		}
	}
	c.draft.AllDoctors = false
	c.draft.Date, c.draft.Time, c.draft.TimeDisplay, c.draft.RequestedTime = "", "", "", ""
}

func (c *Controller) clearDoctor() {
	c.draft.DoctorID, c.draft.Doctor = "", ""
	c.draft.Date, c.draft.Time, c.draft.TimeDisplay, c.draft.RequestedTime = "", "", "", ""
}

// browseUnlessChosen opens the doctor list for an unresolved doctor
// reference. A doctor already chosen and everything after it are kept.
func (c *Controller) browseUnlessChosen() {
	if c.draft.DoctorID != "" {
		return
	}
	c.browseAllDoctorsInDepartment()
}

// browseAllDoctorsInDepartment drops the doctor but keeps the department so
// the doctor list stays scoped.
func (c *Controller) browseAllDoctorsInDepartment() {
	c.clearDoctor()
	if c.draft.DepartmentID == "" {
		c.draft.AllDoctors = true
	}
}

func (c *Controller) doctorScope() string {
	if c.draft.AllDoctors {
		return ""
	}
	return c.draft.DepartmentID
}

func (c *Controller) failure(ctx context.Context, action string, err error, key string) error {
	c.logger.Warn("booking: "+action+" failed", "error", err, "step", c.step.String())
	r := c.reply(ReplyError, key)
	if msg := apperrors.ClientMessage(err, ""); msg != "" && apperrors.KindOf(err) != apperrors.KindTransport {
		r.Text = msg
	}
	return c.send(ctx, r)
}

func (c *Controller) save(ctx context.Context) {
	if err := c.store.Save(ctx, int(c.step), c.draft); err != nil {
		c.logger.Warn("booking: save state failed", "error", err, "step", c.step.String())
	}
}

func (c *Controller) clear(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("booking: clear state failed", "error", err)
	}
}

func (c *Controller) notice(ctx context.Context, kind ReplyKind, key string, args ...any) error {
	return c.send(ctx, c.reply(kind, key, args...))
}

func (c *Controller) reply(kind ReplyKind, key string, args ...any) Reply {
	return Reply{
		Kind:  kind,
		Key:   key,
		Text:  Text(key, args...),
		Input: InputNone,
		Flow:  FlowName,
		Step:  int(c.step),
	}
}

func (r Reply) await(input InputKind) Reply {
	r.Input = input
	return r
}

func (r Reply) with(opts []Option) Reply {
	r.Options = opts
	return r
}

func (c *Controller) send(ctx context.Context, r Reply) error {
	if c.surface == nil {
		return nil
	}
	if err := c.surface.Emit(ctx, r); err != nil {
		return fmt.Errorf("booking: emit %s: %w", r.Key, err)
	}
	return nil
}
