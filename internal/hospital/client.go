// Package hospital is the typed HTTP client for the collaborator API that owns
// departments, doctors, schedules, appointments and general-query answers.
package hospital

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/wolfman30/hospital-assistant/internal/apperrors"
	"github.com/wolfman30/hospital-assistant/internal/tenancy"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

const (
	defaultTimeout   = 15 * time.Second
	maxLoggedBodyLen = 300
	notFoundDetail   = "not found"
)

// Observer receives per-call latency. Implemented by the metrics package.
type Observer interface {
	ObserveCollaborator(operation, status string, seconds float64)
}

// Client wraps the collaborator REST endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
	limiter    *rate.Limiter
	observer   Observer
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outbound calls at perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithObserver attaches a latency observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient constructs a collaborator client.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		logger:     logger,
		tracer:     otel.Tracer("hospital.internal.hospital.client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListDepartments returns departments in collaborator order.
func (c *Client) ListDepartments(ctx context.Context) ([]Department, error) {
	var out []Department
	if err := c.doJSON(ctx, "list_departments", http.MethodGet, "/meta/departments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDoctors returns doctors, optionally filtered by department.
func (c *Client) ListDoctors(ctx context.Context, departmentID string) ([]Doctor, error) {
	path := "/meta/doctors"
	if strings.TrimSpace(departmentID) != "" {
		q := url.Values{}
		q.Set("department_id", departmentID)
		path += "?" + q.Encode()
	}
	var out []Doctor
	if err := c.doJSON(ctx, "list_doctors", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDoctorDays returns the weekday names a doctor consults on.
func (c *Client) ListDoctorDays(ctx context.Context, doctorID string) ([]string, error) {
	q := url.Values{}
	q.Set("doctor_id", doctorID)
	var out []string
	if err := c.doJSON(ctx, "list_doctor_days", http.MethodGet, "/meta/doctor_days?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSlots returns free slots for a doctor on a YYYY-MM-DD date.
func (c *Client) ListSlots(ctx context.Context, doctorID, date string) ([]Slot, error) {
	q := url.Values{}
	q.Set("doctor_id", doctorID)
	q.Set("date", date)
	var wrapped struct {
		Slots []Slot `json:"slots"`
	}
	if err := c.doJSON(ctx, "list_slots", http.MethodGet, "/meta/slots?"+q.Encode(), nil, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Slots, nil
}

// ConfirmAppointment commits a new booking.
func (c *Client) ConfirmAppointment(ctx context.Context, req AppointmentRequest) (*Confirmation, error) {
	var resp Confirmation
	if err := c.doJSON(ctx, "confirm_appointment", http.MethodPost, "/appointments/confirm", req, &resp); err != nil {
		return nil, err
	}
	if resp.AppointmentID == "" {
		return nil, apperrors.Transport("hospital.confirm_appointment", http.StatusOK, errors.New("response missing appointment_id"))
	}
	return &resp, nil
}

// FindAppointment looks up a booking by id or phone.
func (c *Client) FindAppointment(ctx context.Context, key string) (*AppointmentRecord, error) {
	var raw json.RawMessage
	err := c.doJSON(ctx, "find_appointment", http.MethodPost, "/appointments/find", map[string]string{"key": key}, &raw)
	if err != nil {
		if apperrors.StatusCode(err) == http.StatusNotFound {
			return nil, apperrors.NotFound("hospital.find_appointment", "No appointment found.")
		}
		return nil, err
	}
	if isNotFoundDetail(raw) {
		return nil, apperrors.NotFound("hospital.find_appointment", "No appointment found.")
	}
	var rec AppointmentRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, apperrors.Transport("hospital.find_appointment", http.StatusOK, fmt.Errorf("decode record: %w", err))
	}
	if rec.ID == "" {
		return nil, apperrors.NotFound("hospital.find_appointment", "No appointment found.")
	}
	return &rec, nil
}

// UpdateAppointment patches the full record.
func (c *Client) UpdateAppointment(ctx context.Context, id string, rec AppointmentRecord) (*AppointmentRecord, error) {
	path := "/appointments/" + url.PathEscape(id)
	var out AppointmentRecord
	if err := c.doJSON(ctx, "update_appointment", http.MethodPatch, path, rec, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out = rec
	}
	return &out, nil
}

// CancelAppointment requests cancellation. Transport failures are returned as
// errors; every answered request maps onto a CancelOutcome.
func (c *Client) CancelAppointment(ctx context.Context, id string) (CancelOutcome, error) {
	path := "/appointments/" + url.PathEscape(id) + "/cancel"
	var resp struct {
		Status string `json:"status"`
		Detail string `json:"detail"`
	}
	if err := c.doJSON(ctx, "cancel_appointment", http.MethodPost, path, map[string]bool{"confirm": true}, &resp); err != nil {
		if apperrors.StatusCode(err) == http.StatusNotFound {
			return CancelNotFound, nil
		}
		return "", err
	}
	switch {
	case strings.EqualFold(resp.Status, StatusCancelled):
		return CancelCancelled, nil
	case strings.EqualFold(resp.Detail, notFoundDetail):
		return CancelNotFound, nil
	default:
		return CancelAborted, nil
	}
}

// SlipPath is the collaborator path of a confirmation slip.
func SlipPath(id string) string {
	return "/appointments/" + url.PathEscape(id) + "/slip"
}

// Slip streams the confirmation artifact. The caller closes the body.
func (c *Client) Slip(ctx context.Context, id string) (io.ReadCloser, string, error) {
	const op = "slip"
	resp, err := c.do(ctx, op, http.MethodGet, SlipPath(id), nil, "*/*")
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyLen))
		return nil, "", c.statusError(op, SlipPath(id), resp.StatusCode, body)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// Ask forwards a general question.
func (c *Client) Ask(ctx context.Context, question, lang string) (*QueryAnswer, error) {
	payload := map[string]string{"question": question, "lang": lang}
	var out QueryAnswer
	if err := c.doJSON(ctx, "ask", http.MethodPost, "/queries", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WidgetConfig fetches the widget configuration for a hospital.
func (c *Client) WidgetConfig(ctx context.Context, hospitalID string) (*WidgetConfig, error) {
	path := fmt.Sprintf("/api/v1/hospitals/%s/widget/config", url.PathEscape(hospitalID))
	var wrapped struct {
		Config *WidgetConfig `json:"config"`
	}
	if err := c.doJSON(ctx, "widget_config", http.MethodGet, path, nil, &wrapped); err != nil {
		if apperrors.StatusCode(err) == http.StatusNotFound {
			return nil, apperrors.NotFound("hospital.widget_config", "Hospital not found.")
		}
		return nil, err
	}
	if wrapped.Config == nil {
		return nil, apperrors.NotFound("hospital.widget_config", "Hospital not found.")
	}
	return wrapped.Config, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hospital: marshal %s request: %w", op, err)
		}
	}

	resp, err := c.do(ctx, op, method, path, payload, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Transport("hospital."+op, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(op, path, resp.StatusCode, respBody)
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.Transport("hospital."+op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte, accept string) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "hospital."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("hospital.path", path),
	))
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			return nil, apperrors.Transport("hospital."+op, 0, fmt.Errorf("rate limit wait: %w", err))
		}
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("hospital: build %s request: %w", op, err)
	}
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if hospitalID, ok := tenancy.HospitalIDFromContext(ctx); ok {
		req.Header.Set(tenancy.HospitalHeader, hospitalID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.observe(op, "error", elapsed)
		c.logger.Warn("hospital API request failed", "operation", op, "path", path, "error", err)
		return nil, apperrors.Transport("hospital."+op, 0, fmt.Errorf("http request: %w", err))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.observe(op, fmt.Sprintf("%d", resp.StatusCode), elapsed)
	return resp, nil
}

func (c *Client) statusError(op, path string, status int, body []byte) error {
	msg := string(body)
	if len(msg) > maxLoggedBodyLen {
		msg = msg[:maxLoggedBodyLen]
	}
	c.logger.Warn("hospital API non-2xx response", "operation", op, "status", status, "path", path, "body", msg)
	return apperrors.FromStatus("hospital."+op, status, fmt.Errorf("hospital API returned %d: %s", status, msg))
}

func (c *Client) observe(op, status string, seconds float64) {
	if c.observer != nil {
		c.observer.ObserveCollaborator(op, status, seconds)
	}
}

func isNotFoundDetail(raw json.RawMessage) bool {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(body.Detail), notFoundDetail)
}
