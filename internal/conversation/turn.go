package conversation

import (
	"context"

	"github.com/wolfman30/hospital-assistant/internal/appointments"
	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/events"
	"github.com/wolfman30/hospital-assistant/internal/intent"
	"github.com/wolfman30/hospital-assistant/internal/session"
)

// turn handles one event for one locked session.
type turn struct {
	e    *Engine
	sess Session
	rt   *runtime
	out  booking.Surface
}

func (t *turn) dispatch(ctx context.Context, flow string, ev Event) error {
	switch {
	case ev.Type == EventReset:
		return t.reset(ctx, true)
	case ev.Type == EventSelect && ev.Value == "menu":
		return t.reset(ctx, true)
	case ev.Type == EventStart:
		return t.start(ctx, ev.Flow)
	}

	switch flow {
	case FlowBooking:
		return t.booking(ctx, ev)
	case FlowAppointments:
		return t.appointments(ctx, ev)
	case FlowGeneral:
		return t.general(ctx, ev)
	default:
		return t.menu(ctx, ev)
	}
}

func (t *turn) picker() *booking.Picker {
	return booking.NewPicker(t.rt.resolver, t.sess.Language, t.e.now, t.e.cfg.DateHorizonDays)
}

func (t *turn) handle(flow string) *session.Handle {
	return session.Bind(t.e.store, t.sess.key(flow))
}

func (t *turn) setFlow(ctx context.Context, flow string) {
	if err := session.SetCurrentFlow(ctx, t.e.store, t.sess.key(FlowMenu), flow); err != nil {
		t.e.logger.Warn("conversation: persist current flow failed", "error", err, "flow", flow)
	}
}

func (t *turn) emit(ctx context.Context, r booking.Reply) error {
	return t.out.Emit(ctx, r)
}

func (t *turn) showMenu(ctx context.Context) error {
	return t.emit(ctx, menuReply())
}

// reset ends any run in progress, clears every flow key and returns to the
// menu.
func (t *turn) reset(ctx context.Context, announce bool) error {
	t.abandon(ctx)
	if err := t.e.store.DeleteSession(ctx, t.sess.key(FlowMenu)); err != nil {
		t.e.logger.Warn("conversation: clear session failed", "error", err, "session_id", t.sess.ID)
	}
	t.rt.resolver.Reset()
	if announce {
		if err := t.emit(ctx, notice(booking.ReplyNotice, "menu", MsgReturnedMenu)); err != nil {
			return err
		}
	}
	return t.showMenu(ctx)
}

func (t *turn) abandon(ctx context.Context) {
	if c := t.bookingController(); restored(c.Restore(ctx)) {
		if err := c.Reset(ctx); err != nil {
			t.e.logger.Warn("conversation: reset booking failed", "error", err, "session_id", t.sess.ID)
		}
		t.e.metrics.ObserveOutcome(t.sess.Channel, FlowBooking, string(c.Outcome()))
	}
	if ed := t.editor(); restored(ed.Restore(ctx)) {
		if err := ed.Reset(ctx); err != nil {
			t.e.logger.Warn("conversation: reset editor failed", "error", err, "session_id", t.sess.ID)
		}
		t.e.metrics.ObserveOutcome(t.sess.Channel, FlowAppointments, string(ed.Outcome()))
	}
}

func restored(ok bool, err error) bool { return err == nil && ok }

func (t *turn) start(ctx context.Context, flow string) error {
	if flow == FlowMenu || flow == "menu" {
		return t.reset(ctx, false)
	}
	if !IsFlow(flow) {
		if err := t.emit(ctx, notice(booking.ReplyError, "menu", MsgInvalidOption)); err != nil {
			return err
		}
		return t.showMenu(ctx)
	}

	if err := t.e.store.DeleteSession(ctx, t.sess.key(FlowMenu)); err != nil {
		t.e.logger.Warn("conversation: clear session failed", "error", err, "session_id", t.sess.ID)
	}
	t.setFlow(ctx, flow)
	if err := t.emit(ctx, notice(booking.ReplyNotice, flow, MsgStarting, flowTitles[flow])); err != nil {
		return err
	}

	switch flow {
	case FlowBooking:
		return t.bookingController().Start(ctx)
	case FlowAppointments:
		return t.editor().Start(ctx)
	default:
		return t.emit(ctx, booking.Reply{
			Kind: booking.ReplyPrompt, Key: MsgTypeQuestion, Text: text(MsgTypeQuestion),
			Input: booking.InputText, Flow: FlowGeneral,
		})
	}
}

func (t *turn) menu(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventSelect:
		if IsFlow(ev.Value) {
			return t.start(ctx, ev.Value)
		}
	case EventMessage:
		// Shortcut sentences also contain menu keywords ("book appointment
		// with ..."), so they are parsed first.
		res := t.e.parser.Parse(ev.Text, t.e.now())
		if res.Kind == intent.DirectBooking {
			t.rt.resolver.Reset()
			t.setFlow(ctx, FlowBooking)
			return t.finishBooking(ctx, t.bookingController(), func(c *booking.Controller) error {
				return c.HandleText(ctx, ev.Text)
			})
		}
		if flow := MatchMenu(ev.Text, t.sess.Language); flow != "" {
			return t.start(ctx, flow)
		}
		if res.Kind == intent.GeneralQuestion {
			t.setFlow(ctx, FlowGeneral)
			return t.ask(ctx, ev.Text)
		}
	case EventResume:
		return t.showMenu(ctx)
	}
	if ev.Type == EventMessage || ev.Type == EventSelect {
		if err := t.emit(ctx, notice(booking.ReplyError, "menu", MsgInvalidOption)); err != nil {
			return err
		}
	}
	return t.showMenu(ctx)
}

func (t *turn) bookingController() *booking.Controller {
	return booking.NewController(booking.Options{
		Backend:  t.e.api,
		Picker:   t.picker(),
		Store:    t.handle(FlowBooking),
		Surface:  t.out,
		Parser:   t.e.parser,
		Logger:   t.e.logger.With("hospital_id", t.sess.HospitalID, "channel", t.sess.Channel, "session_id", t.sess.ID),
		IDPrefix: t.e.cfg.IDPrefix,
		OnCommit: func(ctx context.Context, c booking.Committed) {
			t.e.record(ctx, t.sess, events.FlowOutcomeV1{
				Type:          events.TypeBookingCommitted,
				Flow:          FlowBooking,
				Outcome:       string(booking.OutcomeCommitted),
				AppointmentID: c.AppointmentID,
				DepartmentID:  c.Draft.DepartmentID,
				DoctorID:      c.Draft.DoctorID,
				Date:          c.Draft.Date,
				Time:          c.Draft.Time,
			})
		},
		TipIndex: t.e.tipIndex,
	})
}

func (t *turn) booking(ctx context.Context, ev Event) error {
	c := t.bookingController()
	found, err := c.Restore(ctx)
	if err != nil {
		return err
	}
	if !found {
		t.setFlow(ctx, FlowMenu)
		return t.menu(ctx, ev)
	}
	return t.finishBooking(ctx, c, func(c *booking.Controller) error {
		switch ev.Type {
		case EventResume:
			_, err := c.Resume(ctx)
			return err
		case EventConfirm:
			return c.Confirm(ctx, ev.Yes)
		case EventSelect:
			return selectBooking(ctx, c, ev.Value)
		default:
			return c.HandleText(ctx, ev.Text)
		}
	})
}

func selectBooking(ctx context.Context, c *booking.Controller, value string) error {
	switch c.Step() {
	case booking.StepSelectDepartment:
		return c.SelectDepartment(ctx, value)
	case booking.StepSelectDoctor:
		return c.SelectDoctor(ctx, value)
	case booking.StepSelectDate:
		return c.SelectDate(ctx, value)
	case booking.StepSelectTime:
		return c.SelectTime(ctx, value)
	case booking.StepConfirm:
		if booking.IsYes(value) || booking.IsNo(value) {
			return c.Confirm(ctx, booking.IsYes(value))
		}
	}
	return c.HandleText(ctx, value)
}

func (t *turn) finishBooking(ctx context.Context, c *booking.Controller, fn func(*booking.Controller) error) error {
	if err := fn(c); err != nil {
		return err
	}
	if !c.Finished() {
		return nil
	}
	t.setFlow(ctx, FlowMenu)
	if c.Outcome() == booking.OutcomeCancelled {
		t.e.metrics.ObserveOutcome(t.sess.Channel, FlowBooking, string(booking.OutcomeCancelled))
		return t.showMenu(ctx)
	}
	return nil
}

func (t *turn) editor() *appointments.Editor {
	return appointments.NewEditor(appointments.Options{
		Backend:    t.e.api,
		Picker:     t.picker(),
		Store:      t.handle(FlowAppointments),
		Surface:    t.out,
		Logger:     t.e.logger.With("hospital_id", t.sess.HospitalID, "channel", t.sess.Channel, "session_id", t.sess.ID),
		IDPrefix:   t.e.cfg.IDPrefix,
		EditWindow: t.e.cfg.EditWindow,
		OnChange: func(ctx context.Context, ch appointments.Change) {
			evt := events.FlowOutcomeV1{
				Type:          events.TypeAppointmentUpdated,
				Flow:          FlowAppointments,
				Outcome:       string(ch.Outcome),
				AppointmentID: ch.After.ID.String(),
				DepartmentID:  ch.After.DepartmentID.String(),
				DoctorID:      ch.After.DoctorID.String(),
				Date:          ch.After.Date,
				Time:          ch.After.Time,
			}
			if ch.Outcome == appointments.OutcomeCancelled {
				evt.Type = events.TypeAppointmentCancelled
			}
			t.e.record(ctx, t.sess, evt)
		},
	})
}

func (t *turn) appointments(ctx context.Context, ev Event) error {
	ed := t.editor()
	found, err := ed.Restore(ctx)
	if err != nil {
		return err
	}
	if !found {
		t.setFlow(ctx, FlowMenu)
		return t.menu(ctx, ev)
	}

	switch ev.Type {
	case EventResume:
		_, err = ed.Resume(ctx)
	case EventConfirm:
		err = confirmEditor(ctx, ed, ev.Yes)
	case EventSelect:
		err = selectEditor(ctx, ed, ev.Value)
	default:
		err = ed.HandleText(ctx, ev.Text)
	}
	if err != nil {
		return err
	}

	if !ed.Finished() {
		return nil
	}
	t.setFlow(ctx, FlowMenu)
	if ed.Outcome() != appointments.OutcomeUpdated {
		return t.showMenu(ctx)
	}
	return nil
}

func confirmEditor(ctx context.Context, ed *appointments.Editor, yes bool) error {
	switch ed.State() {
	case appointments.StateConfirmCancel:
		return ed.ConfirmCancel(ctx, yes)
	default:
		return ed.ConfirmUpdate(ctx, yes)
	}
}

func selectEditor(ctx context.Context, ed *appointments.Editor, value string) error {
	switch ed.State() {
	case appointments.StateLoaded:
		switch value {
		case "edit":
			return ed.Edit(ctx)
		case "cancel":
			return ed.Cancel(ctx)
		}
	case appointments.StateEditMenu:
		return ed.ChooseField(ctx, value)
	case appointments.StatePickDepartment, appointments.StatePickDoctor,
		appointments.StatePickDate, appointments.StatePickTime:
		return ed.Select(ctx, value)
	case appointments.StateConfirmUpdate, appointments.StateConfirmCancel:
		if booking.IsYes(value) || booking.IsNo(value) {
			return confirmEditor(ctx, ed, booking.IsYes(value))
		}
	}
	return ed.HandleText(ctx, value)
}

func (t *turn) general(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventMessage:
		return t.ask(ctx, ev.Text)
	case EventSelect:
		return t.ask(ctx, ev.Value)
	}
	return t.emit(ctx, booking.Reply{
		Kind: booking.ReplyPrompt, Key: MsgTypeQuestion, Text: text(MsgTypeQuestion),
		Input: booking.InputText, Flow: FlowGeneral,
	})
}

func (t *turn) ask(ctx context.Context, question string) error {
	ans, err := t.e.api.Ask(ctx, question, t.sess.Language)
	if err != nil {
		t.e.logger.Warn("conversation: general query failed", "error", err, "session_id", t.sess.ID)
		if err := t.emit(ctx, notice(booking.ReplyError, FlowGeneral, MsgGenericError)); err != nil {
			return err
		}
	} else if err := t.emit(ctx, FormatAnswer(ans, t.sess.Language)); err != nil {
		return err
	}
	return t.emit(ctx, booking.Reply{
		Kind:  booking.ReplyPrompt,
		Key:   MsgAskAnother,
		Text:  text(MsgAskAnother),
		Input: booking.InputText,
		Options: []booking.Option{
			{Value: "menu", Label: "Back to Main Menu", Icon: "🏠", Action: "menu"},
		},
		Flow: FlowGeneral,
	})
}
