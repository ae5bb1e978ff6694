package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benmeehan/qtracker/internal/app"
	"github.com/benmeehan/qtracker/internal/events"
	"github.com/benmeehan/qtracker/internal/models"
	"github.com/benmeehan/qtracker/internal/seed"
	"github.com/benmeehan/qtracker/pkg/kvstore"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *app.Tracker) {
	t.Helper()
	data, err := seed.Default(time.Now())
	require.NoError(t, err)

	tr, err := app.New(app.Options{
		Seed:   data,
		Store:  kvstore.NewMemoryStore(),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	if cfg.UpdateRate == 0 {
		cfg.UpdateRate = 100
		cfg.UpdateBurst = 100
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return NewServer(tr, cfg, zerolog.Nop()), tr
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&v))
	return v
}

func ids(vs []app.VenueView) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestListVenues_QueryFilters(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/v1/venues", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[venueList](t, rec)
	assert.Len(t, all.Venues, 5)
	assert.Equal(t, 0, all.ActiveFilters)

	rec = do(t, s.Handler(), http.MethodGet, "/v1/venues?genre=minimal&q=tresor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[venueList](t, rec)
	assert.Equal(t, []string{"3"}, ids(got.Venues))
	assert.Equal(t, 1, got.ActiveFilters)
}

func TestListVenues_InvalidQuery(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	for _, path := range []string{
		"/v1/venues?mode=everywhere",
		"/v1/venues?max_distance=-3",
		"/v1/venues?composition=union",
	} {
		rec := do(t, s.Handler(), http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestSessionFilters(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodPut, "/v1/filters", `{"displayMode":"all","genre":"Industrial"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[venueList](t, do(t, s.Handler(), http.MethodGet, "/v1/venues", ""))
	assert.Equal(t, []string{"3"}, ids(got.Venues))

	rec = do(t, s.Handler(), http.MethodDelete, "/v1/filters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[venueList](t, do(t, s.Handler(), http.MethodGet, "/v1/venues", ""))
	assert.Len(t, got.Venues, 5)

	rec = do(t, s.Handler(), http.MethodPut, "/v1/filters", `{"displayMode":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetVenue(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/v1/venues/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[app.VenueView](t, rec)
	assert.Equal(t, "Watergate", view.Name)

	rec = do(t, s.Handler(), http.MethodGet, "/v1/venues/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Club not found", decode[errorResponse](t, rec).Error)

	rec = do(t, s.Handler(), http.MethodGet, "/v1/venues/99/updates", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateVenue(t *testing.T) {
	s, tr := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/v1/venues", `{"name":"Fabric","location":"London, United Kingdom"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]string](t, rec)["id"]
	require.NotEmpty(t, id)

	v, err := tr.Venue(id)
	require.NoError(t, err)
	assert.Equal(t, "London", v.City)

	rec = do(t, s.Handler(), http.MethodPost, "/v1/venues", `{"location":"Paris"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name", decode[errorResponse](t, rec).Field)

	rec = do(t, s.Handler(), http.MethodPost, "/v1/venues", `{"name":"X","unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitUpdate(t *testing.T) {
	s, tr := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/v1/venues/2/updates", `{"queueLength":10}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "userId", decode[errorResponse](t, rec).Field)

	rec = do(t, s.Handler(), http.MethodPost, "/v1/venues/2/updates", `{"userId":"u1","userName":"Ana","queueLength":110,"waitTime":50}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[models.StatusUpdate](t, rec)
	assert.Equal(t, "2", created.VenueID)

	v, _ := tr.Venue("2")
	assert.Equal(t, 110, v.CurrentStatus.QueueLength)

	rec = do(t, s.Handler(), http.MethodPost, "/v1/venues/77/updates", `{"userId":"u1","queueLength":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitUpdate_RateLimited(t *testing.T) {
	s, _ := newTestServer(t, Config{UpdateRate: 0.001, UpdateBurst: 2})

	body := `{"userId":"u1","queueLength":5}`
	assert.Equal(t, http.StatusCreated, do(t, s.Handler(), http.MethodPost, "/v1/venues/1/updates", body).Code)
	assert.Equal(t, http.StatusCreated, do(t, s.Handler(), http.MethodPost, "/v1/venues/1/updates", body).Code)

	rec := do(t, s.Handler(), http.MethodPost, "/v1/venues/1/updates", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))

	// Reads are never limited.
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodGet, "/v1/venues/1/updates", "").Code)
}

func TestFavorites(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/v1/favorites/4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["favorite"])

	rec = do(t, s.Handler(), http.MethodGet, "/v1/favorites", "")
	assert.Equal(t, []string{"4"}, decode[map[string][]string](t, rec)["ids"])

	got := decode[venueList](t, do(t, s.Handler(), http.MethodGet, "/v1/venues?mode=favorites", ""))
	require.Len(t, got.Venues, 1)
	assert.True(t, got.Venues[0].IsFavorite)

	rec = do(t, s.Handler(), http.MethodPost, "/v1/favorites/4", "")
	assert.Equal(t, false, decode[map[string]any](t, rec)["favorite"])
}

func TestLocationEndpoints(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodGet, "/v1/location", "").Code)
	// No providers and no default.
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s.Handler(), http.MethodPost, "/v1/location/resolve", "").Code)

	rec := do(t, s.Handler(), http.MethodPut, "/v1/location", `{"city":" Berlin ","country":"Germany","coordinates":{"latitude":52.5111,"longitude":13.4399}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Berlin", decode[models.UserLocation](t, rec).City)

	got := decode[venueList](t, do(t, s.Handler(), http.MethodGet, "/v1/venues?max_distance=1", ""))
	assert.Equal(t, []string{"1", "2"}, ids(got.Venues))
	require.NotNil(t, got.Venues[0].DistanceKm)

	rec = do(t, s.Handler(), http.MethodPut, "/v1/location", `{"city":"Nowhere","coordinates":{"latitude":123,"longitude":0}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, do(t, s.Handler(), http.MethodDelete, "/v1/location", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodGet, "/v1/location", "").Code)
}

func TestAuthEndpoints(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	assert.Equal(t, http.StatusUnauthorized, do(t, s.Handler(), http.MethodGet, "/v1/auth/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s.Handler(), http.MethodPost, "/v1/auth/login", `{"email":"","password":""}`).Code)

	rec := do(t, s.Handler(), http.MethodPost, "/v1/auth/login", `{"email":"owl@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owl", decode[models.User](t, rec).Name)

	rec = do(t, s.Handler(), http.MethodPost, "/v1/venues/3/updates", `{"queueLength":90}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "owl", decode[models.StatusUpdate](t, rec).UserName)

	assert.Equal(t, http.StatusNoContent, do(t, s.Handler(), http.MethodPost, "/v1/auth/logout", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s.Handler(), http.MethodGet, "/v1/auth/me", "").Code)

	rec = do(t, s.Handler(), http.MethodPost, "/v1/auth/register", `{"name":"Bass Hunter","email":"b@example.com","password":"pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Bass Hunter", decode[models.User](t, rec).Name)
}

func TestRefresh(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	rec := do(t, s.Handler(), http.MethodPost, "/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decode[map[string]int](t, rec)["venues"])
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, Config{AllowedOrigins: []string{"https://queues.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/v1/venues", nil)
	req.Header.Set("Origin", "https://queues.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://queues.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_StartStop(t *testing.T) {
	s, _ := newTestServer(t, Config{Addr: "127.0.0.1:0"})

	require.NoError(t, s.Start())
	assert.EqualError(t, s.Start(), "api service is already running")
	require.NotEmpty(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop())
	assert.EqualError(t, s.Stop(), "api service is not running")
	assert.Empty(t, s.Addr())
}

func TestEventStream(t *testing.T) {
	s, tr := newTestServer(t, Config{Addr: "127.0.0.1:0"})
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/v1/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.count() == 1 }, time.Second, 10*time.Millisecond)

	_, err = tr.ToggleFavorite("5")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e struct {
		Kind    events.Kind                   `json:"kind"`
		Payload events.FavoriteToggledPayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, events.FavoriteToggled, e.Kind)
	assert.Equal(t, "5", e.Payload.VenueID)
	assert.True(t, e.Payload.Favorite)
}

func TestEventHub_RejectsForeignOrigin(t *testing.T) {
	hub := newEventHub([]string{"https://queues.example"}, zerolog.Nop())

	ok := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	ok.Header.Set("Origin", "https://queues.example")
	assert.True(t, hub.upgrader.CheckOrigin(ok))

	bad := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	bad.Header.Set("Origin", "https://evil.example")
	assert.False(t, hub.upgrader.CheckOrigin(bad))
}

func TestRateLimiter_SweepsIdleVisitors(t *testing.T) {
	rl := newRateLimiter(1, 1, time.Minute)
	now := time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.allow("10.0.0.2"))
	rl.mu.Lock()
	_, kept := rl.visitors["10.0.0.1"]
	rl.mu.Unlock()
	assert.False(t, kept)
}
