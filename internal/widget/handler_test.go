package widget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-assistant/internal/apperrors"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

type fakeSource struct {
	configs map[string]*hospital.WidgetConfig
	err     error
	calls   int
}

func (f *fakeSource) WidgetConfig(_ context.Context, hospitalID string) (*hospital.WidgetConfig, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cfg, ok := f.configs[hospitalID]
	if !ok {
		return nil, apperrors.NotFound("hospital.widget_config", "Hospital not found.")
	}
	out := *cfg
	return &out, nil
}

func setupCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewCache(client, time.Minute)
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/widget.js", h.HandleScript)
	r.Get("/api/v1/hospitals/{hospitalID}/widget/config", h.HandleConfig)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandleScript(t *testing.T) {
	h := NewHandler(nil, nil, nil, logging.New("error"))
	w := get(t, newRouter(h), "/widget.js")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Body.String(), "data-hospital")
}

func TestHandleScript_Override(t *testing.T) {
	h := NewHandler(nil, nil, []byte("// custom"), logging.New("error"))
	w := get(t, newRouter(h), "/widget.js")
	assert.Equal(t, "// custom", w.Body.String())
}

func TestHandleConfig_CachesCollaboratorResponse(t *testing.T) {
	mr, cache := setupCache(t)
	src := &fakeSource{configs: map[string]*hospital.WidgetConfig{
		"h1": {Name: "City Hospital", PrimaryColor: "#0b6efd"},
	}}
	router := newRouter(NewHandler(src, cache, nil, logging.New("error")))

	for i := 0; i < 2; i++ {
		w := get(t, router, "/api/v1/hospitals/h1/widget/config")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Config hospital.WidgetConfig `json:"config"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "City Hospital", body.Config.Name)
		assert.Equal(t, "h1", body.Config.HospitalID)
	}
	assert.Equal(t, 1, src.calls)
	assert.True(t, mr.Exists("widgetcfg:h1"))

	mr.FastForward(2 * time.Minute)
	require.Equal(t, http.StatusOK, get(t, router, "/api/v1/hospitals/h1/widget/config").Code)
	assert.Equal(t, 2, src.calls)
}

func TestHandleConfig_NotFound(t *testing.T) {
	router := newRouter(NewHandler(&fakeSource{}, nil, nil, logging.New("error")))
	w := get(t, router, "/api/v1/hospitals/missing/widget/config")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Hospital not found.")
}

func TestHandleConfig_CollaboratorDown(t *testing.T) {
	src := &fakeSource{err: apperrors.Transport("hospital.widget_config", 0, errors.New("dial tcp: refused"))}
	router := newRouter(NewHandler(src, nil, nil, logging.New("error")))
	w := get(t, router, "/api/v1/hospitals/h1/widget/config")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")
}

func TestCache_CorruptEntryIsAnError(t *testing.T) {
	mr, cache := setupCache(t)
	require.NoError(t, mr.Set("widgetcfg:h1", "{not json"))

	_, err := cache.Get(context.Background(), "h1")
	assert.Error(t, err)

	cfg, err := (*Cache)(nil).Get(context.Background(), "h1")
	assert.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestCache_Invalidate(t *testing.T) {
	mr, cache := setupCache(t)
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, "h1", &hospital.WidgetConfig{Name: "City"}))
	require.NoError(t, cache.Invalidate(ctx, "h1"))
	assert.False(t, mr.Exists("widgetcfg:h1"))
}
