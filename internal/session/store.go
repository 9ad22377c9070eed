// Package session persists per-flow conversation state.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// DefaultTTL bounds abandoned flow records.
const DefaultTTL = 24 * time.Hour

// MenuFlow is the pseudo flow that records which flow a session is in.
const MenuFlow = "menu"

// Key addresses one flow record. Channels never share records.
type Key struct {
	Hospital string
	Channel  string
	Session  string
	Flow     string
}

// String renders the storage key.
func (k Key) String() string {
	return fmt.Sprintf("flow:%s:%s:%s:%s", k.Hospital, k.Channel, k.Session, k.Flow)
}

// WithFlow returns the key for another flow of the same session.
func (k Key) WithFlow(flow string) Key {
	k.Flow = flow
	return k
}

func (k Key) sessionID() string {
	return fmt.Sprintf("%s:%s:%s", k.Hospital, k.Channel, k.Session)
}

// Validate rejects keys with missing parts.
func (k Key) Validate() error {
	if strings.TrimSpace(k.Hospital) == "" || strings.TrimSpace(k.Channel) == "" || strings.TrimSpace(k.Session) == "" {
		return errors.New("session: hospital, channel and session are required")
	}
	if strings.TrimSpace(k.Flow) == "" {
		return errors.New("session: flow is required")
	}
	return nil
}

// Record is one persisted flow position.
type Record struct {
	Step        int             `json:"step"`
	Data        json.RawMessage `json:"data,omitempty"`
	CurrentFlow string          `json:"currentFlow,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Store persists flow records.
type Store interface {
	// Get returns nil, nil when nothing is stored.
	Get(ctx context.Context, key Key) (*Record, error)
	Put(ctx context.Context, key Key, rec Record) error
	Delete(ctx context.Context, key Key) error
	// DeleteSession drops every flow record of key's session.
	DeleteSession(ctx context.Context, key Key) error
}

// MemoryStore is an in-process Store for tests and the CLI driver.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]Record), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key Key) (*Record, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key.sessionID()][key.Flow]
	if !ok {
		return nil, nil
	}
	out := rec
	out.Data = append(json.RawMessage(nil), rec.Data...)
	return &out, nil
}

func (m *MemoryStore) Put(_ context.Context, key Key, rec Record) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = m.now().UTC()
	}
	rec.Data = append(json.RawMessage(nil), rec.Data...)
	m.mu.Lock()
	defer m.mu.Unlock()
	flows, ok := m.records[key.sessionID()]
	if !ok {
		flows = make(map[string]Record)
		m.records[key.sessionID()] = flows
	}
	flows[key.Flow] = rec
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records[key.sessionID()], key.Flow)
	return nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key.sessionID())
	return nil
}

// Handle binds a Store to one key. It implements the flow persistence
// contract used by the controllers.
type Handle struct {
	store Store
	key   Key
}

// Bind returns a Handle for key.
func Bind(store Store, key Key) *Handle {
	return &Handle{store: store, key: key}
}

// Key returns the bound key.
func (h *Handle) Key() Key { return h.key }

// Save writes step and data. data is encoded as JSON.
func (h *Handle) Save(ctx context.Context, step int, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", h.key.Flow, err)
	}
	return h.store.Put(ctx, h.key, Record{Step: step, Data: raw, CurrentFlow: h.key.Flow})
}

// Load decodes the saved data into `into`.
func (h *Handle) Load(ctx context.Context, into any) (int, bool, error) {
	rec, err := h.store.Get(ctx, h.key)
	if err != nil {
		return 0, false, err
	}
	if rec == nil {
		return 0, false, nil
	}
	if into != nil && len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, into); err != nil {
			return 0, false, fmt.Errorf("session: decode %s: %w", h.key.Flow, err)
		}
	}
	return rec.Step, true, nil
}

// Clear removes the record.
func (h *Handle) Clear(ctx context.Context) error {
	return h.store.Delete(ctx, h.key)
}

// CurrentFlow reads the session's active flow from the menu record.
func CurrentFlow(ctx context.Context, store Store, key Key) (string, error) {
	rec, err := store.Get(ctx, key.WithFlow(MenuFlow))
	if err != nil || rec == nil {
		return "", err
	}
	return rec.CurrentFlow, nil
}

// SetCurrentFlow records the active flow. An empty flow clears the record.
func SetCurrentFlow(ctx context.Context, store Store, key Key, flow string) error {
	menu := key.WithFlow(MenuFlow)
	if flow == "" {
		return store.Delete(ctx, menu)
	}
	return store.Put(ctx, menu, Record{CurrentFlow: flow})
}
