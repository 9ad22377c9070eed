// Command chatcli walks the assistant flows in a terminal against a live
// hospital API. Flow state is kept in memory for the life of the process.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/wolfman30/hospital-assistant/internal/booking"
	appconfig "github.com/wolfman30/hospital-assistant/internal/config"
	"github.com/wolfman30/hospital-assistant/internal/conversation"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/internal/session"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	hospitalID := flag.String("hospital", cfg.DefaultHospitalID, "hospital id")
	lang := flag.String("lang", cfg.DefaultLanguage, "conversation language (en, hi, mr)")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger := logging.NewWithWriter(os.Stderr, *logLevel, "text")
	client := hospital.NewClient(cfg.HospitalAPIBaseURL, logger,
		hospital.WithTimeout(cfg.HospitalAPITimeout))
	engine := conversation.New(client, session.NewMemoryStore(), conversation.Config{
		IDPrefix:        cfg.AppointmentIDPrefix,
		EditWindow:      cfg.EditWindow,
		DateHorizonDays: cfg.DateHorizonDays,
		DefaultLanguage: cfg.DefaultLanguage,
		Location:        cfg.Location(),
	}, logger)

	c := &cli{
		engine: engine,
		sess: conversation.Session{
			HospitalID: *hospitalID,
			Channel:    conversation.ChannelChat,
			ID:         "cli-" + uuid.NewString(),
			Language:   *lang,
		},
		out: os.Stdout,
	}
	if err := c.run(context.Background(), os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, "chatcli:", err)
		os.Exit(1)
	}
}

type handler interface {
	Handle(ctx context.Context, sess conversation.Session, ev conversation.Event, out booking.Surface) error
}

type cli struct {
	engine  handler
	sess    conversation.Session
	out     io.Writer
	options []booking.Option
}

const help = `commands: <number> pick an option, /yes, /no, /menu, /quit; anything else is sent as text`

func (c *cli) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(c.out, help)
	if err := c.send(ctx, conversation.Event{Type: conversation.EventResume}); err != nil {
		return err
	}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			return nil
		}
		ev, ok := c.eventFor(line)
		if !ok {
			fmt.Fprintln(c.out, help)
			continue
		}
		if err := c.send(ctx, ev); err != nil {
			return err
		}
	}
}

func (c *cli) send(ctx context.Context, ev conversation.Event) error {
	err := c.engine.Handle(ctx, c.sess, ev, booking.SurfaceFunc(c.render))
	if errors.Is(err, conversation.ErrBusy) {
		return nil
	}
	return err
}

// eventFor maps a typed line onto an engine event.
func (c *cli) eventFor(line string) (conversation.Event, bool) {
	switch line {
	case "":
		return conversation.Event{}, false
	case "/yes":
		return conversation.Event{Type: conversation.EventConfirm, Yes: true}, true
	case "/no":
		return conversation.Event{Type: conversation.EventConfirm}, true
	case "/menu":
		return conversation.Event{Type: conversation.EventReset}, true
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(c.options) {
		opt := c.options[n-1]
		switch opt.Action {
		case "start":
			return conversation.Event{Type: conversation.EventStart, Flow: opt.Value}, true
		case "menu":
			return conversation.Event{Type: conversation.EventReset}, true
		}
		return conversation.Event{Type: conversation.EventSelect, Value: opt.Value}, true
	}
	return conversation.Event{Type: conversation.EventMessage, Text: line}, true
}

func (c *cli) render(_ context.Context, r booking.Reply) error {
	prefix := ""
	if r.Kind == booking.ReplyError {
		prefix = "! "
	}
	if r.Text != "" {
		fmt.Fprintln(c.out, prefix+r.Text)
	}
	for _, d := range r.Details {
		fmt.Fprintf(c.out, "    %s: %s\n", d.Label, d.Value)
	}
	if r.Input == booking.InputNone {
		return nil
	}
	c.options = nil
	for _, opt := range r.Options {
		if opt.Href != "" {
			fmt.Fprintf(c.out, "    %s %s\n", opt.Label, opt.Href)
			continue
		}
		c.options = append(c.options, opt)
		line := fmt.Sprintf("  %d. %s", len(c.options), opt.Label)
		if opt.Detail != "" {
			line += " (" + opt.Detail + ")"
		}
		if opt.Disabled {
			line += " [unavailable]"
		}
		fmt.Fprintln(c.out, line)
	}
	return nil
}
