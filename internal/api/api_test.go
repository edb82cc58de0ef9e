package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/api"
	"github.com/cory-johannsen/arena/internal/events"
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/content"
	"github.com/cory-johannsen/arena/internal/game/monster"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/game/shop"
	"github.com/cory-johannsen/arena/internal/storage/memory"
	"github.com/cory-johannsen/arena/internal/storage/storetest"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixedSource int

func (f fixedSource) Intn(n int) int { return int(f) % n }

type harness struct {
	router *gin.Engine
	store  *memory.Store
	bus    *events.LocalBus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	elf := storetest.Elf()
	cat, err := content.New(
		[]*ruleset.Race{&elf, {ID: "orc", Name: "Orc", BaseHealth: 120, BaseDamage: 12}},
		[]*ruleset.Location{
			{ID: "meadow", Name: "Meadow", RequiredLevel: 1, MonsterIDs: []string{"rat"}},
			{ID: "caves", Name: "Caves", RequiredLevel: 5, MonsterIDs: []string{"rat"}},
		},
		[]*monster.Template{{ID: "rat", Name: "Rat", Type: "beast", MaxHealth: 5, Damage: 3, ExperienceReward: 9}},
		[]ruleset.ShopListing{{ItemID: "elf", Purchased: true}, {ItemID: "orc", Price: 100}},
	)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	clock := storetest.NewClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	store := memory.New(clock.Now)
	bus := events.NewLocalBus(16, logger)
	t.Cleanup(func() { _ = bus.Close() })

	pub := events.NewPublisher(bus, clock.Now, logger)
	mgr := session.NewManager(store, cat, fixedSource(0), pub, 0, clock.Now, logger)
	sh := shop.New(cat, store, logger)
	require.NoError(t, sh.Seed(context.Background()))

	h := api.NewHandler(mgr, sh, cat, store, bus, nil, logger)
	h.SetKeepAlive(50 * time.Millisecond)
	return &harness{router: h.Router(), store: store, bus: bus}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	assert.Equal(t, code, decode[map[string]string](t, w)["error"])
}

func (h *harness) createCharacter(t *testing.T, name string) character.Record {
	t.Helper()
	w := h.do(t, http.MethodPost, "/api/characters", map[string]string{"name": name, "race_id": "elf"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[character.Record](t, w)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	assertError(t, h.do(t, http.MethodGet, "/nope", nil), http.StatusNotFound, "not_found")
}

func TestContentRoutes(t *testing.T) {
	h := newHarness(t)

	races := decode[struct {
		Races []ruleset.Race `json:"races"`
	}](t, h.do(t, http.MethodGet, "/api/races", nil))
	require.Len(t, races.Races, 2)
	assert.Equal(t, "elf", races.Races[0].ID)

	locs := decode[struct {
		Locations []struct {
			ID         string `json:"id"`
			Accessible bool   `json:"accessible"`
		} `json:"locations"`
	}](t, h.do(t, http.MethodGet, "/api/locations", nil))
	require.Len(t, locs.Locations, 2)
	assert.Equal(t, "meadow", locs.Locations[0].ID)
	assert.True(t, locs.Locations[0].Accessible)
	assert.False(t, locs.Locations[1].Accessible)

	listings := decode[struct {
		Listings []shop.Listing `json:"listings"`
	}](t, h.do(t, http.MethodGet, "/api/shop", nil))
	assert.Equal(t, []shop.Listing{{ItemID: "elf", Purchased: true}, {ItemID: "orc", Price: 100}}, listings.Listings)
}

func TestCharacterRoutes(t *testing.T) {
	h := newHarness(t)

	rec := h.createCharacter(t, "  Lira ")
	assert.Equal(t, "Lira", rec.Name)
	assert.Equal(t, 1, rec.Level)

	assertError(t, h.do(t, http.MethodPost, "/api/characters", map[string]string{"name": " ", "race_id": "elf"}),
		http.StatusUnprocessableEntity, "invalid_name")
	assertError(t, h.do(t, http.MethodPost, "/api/characters", map[string]string{"name": "X", "race_id": "wraith"}),
		http.StatusNotFound, "unknown_race")
	assertError(t, h.do(t, http.MethodPost, "/api/characters", map[string]string{"name": "X", "race_id": "orc"}),
		http.StatusConflict, "race_locked")
	assertError(t, h.do(t, http.MethodPost, "/api/characters", map[string]string{"name": "X"}),
		http.StatusBadRequest, "bad_request")

	list := decode[struct {
		Characters []character.Record `json:"characters"`
	}](t, h.do(t, http.MethodGet, "/api/characters", nil))
	require.Len(t, list.Characters, 1)
	assert.Equal(t, rec.ID, list.Characters[0].ID)

	got := h.do(t, http.MethodGet, "/api/characters/"+rec.ID, nil)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, rec.ID, decode[character.Record](t, got).ID)

	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/api/characters/"+rec.ID, nil).Code)
	assertError(t, h.do(t, http.MethodGet, "/api/characters/"+rec.ID, nil), http.StatusNotFound, "character_not_found")
	assertError(t, h.do(t, http.MethodDelete, "/api/characters/"+rec.ID, nil), http.StatusNotFound, "character_not_found")
}

type exchangeBody struct {
	PlayerDamage int             `json:"player_damage"`
	State        string          `json:"state"`
	Victory      *combat.Victory `json:"victory"`
}

func TestSessionRoutes(t *testing.T) {
	h := newHarness(t)
	rec := h.createCharacter(t, "Lira")

	assertError(t, h.do(t, http.MethodGet, "/api/session", nil), http.StatusConflict, "no_active_session")
	assertError(t, h.do(t, http.MethodPost, "/api/session/attack", nil), http.StatusConflict, "no_active_session")
	assertError(t, h.do(t, http.MethodPost, "/api/session", map[string]string{"character_id": "missing"}),
		http.StatusNotFound, "character_not_found")

	w := h.do(t, http.MethodPost, "/api/session", map[string]string{"character_id": rec.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[map[string]any](t, w)
	assert.Equal(t, "no_enemy", view["state"])

	assertError(t, h.do(t, http.MethodPost, "/api/session/enemy", nil), http.StatusConflict, "no_location_selected")
	assertError(t, h.do(t, http.MethodPost, "/api/session/location", map[string]string{"location_id": "caves"}),
		http.StatusConflict, "location_locked")
	assertError(t, h.do(t, http.MethodPost, "/api/session/location", map[string]string{"location_id": "moon"}),
		http.StatusNotFound, "unknown_location")
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/session/location", map[string]string{"location_id": "meadow"}).Code)

	assertError(t, h.do(t, http.MethodPost, "/api/session/attack", nil), http.StatusConflict, "no_enemy")
	w = h.do(t, http.MethodPost, "/api/session/enemy", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	enemy := decode[struct {
		Enemy monster.Instance `json:"enemy"`
	}](t, w)
	assert.Equal(t, "rat", enemy.Enemy.TemplateID)

	w = h.do(t, http.MethodPost, "/api/session/attack", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ex := decode[exchangeBody](t, w)
	assert.Equal(t, 8, ex.PlayerDamage)
	assert.Equal(t, "no_enemy", ex.State)
	require.NotNil(t, ex.Victory)
	assert.Equal(t, 9, ex.Victory.ExperienceReward)

	assertError(t, h.do(t, http.MethodPost, "/api/session/stats", map[string]string{"stat": "luck"}),
		http.StatusUnprocessableEntity, "invalid_stat_kind")
	assertError(t, h.do(t, http.MethodPost, "/api/session/stats", map[string]string{"stat": "damage"}),
		http.StatusConflict, "no_points_available")

	w = h.do(t, http.MethodPost, "/api/session/restore", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodPost, "/api/session/flee", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/api/session", nil).Code)
	assertError(t, h.do(t, http.MethodDelete, "/api/session", nil), http.StatusConflict, "no_active_session")

	stored, err := h.store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, stored.Experience)
}

func TestPurchaseRoutes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assertError(t, h.do(t, http.MethodPost, "/api/shop/orc/purchase", nil), http.StatusConflict, "insufficient_currency")
	assertError(t, h.do(t, http.MethodPost, "/api/shop/unicorn/purchase", nil), http.StatusNotFound, "unknown_item")
	assertError(t, h.do(t, http.MethodPost, "/api/shop/elf/purchase", nil), http.StatusConflict, "already_purchased")

	_, err := h.store.AddGlobalCurrency(ctx, 150)
	require.NoError(t, err)
	w := h.do(t, http.MethodPost, "/api/shop/orc/purchase", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, shop.Receipt{ItemID: "orc", Price: 100, GlobalCurrency: 50}, decode[shop.Receipt](t, w))

	cur := decode[map[string]int](t, h.do(t, http.MethodGet, "/api/currency", nil))
	assert.Equal(t, 50, cur["global_currency"])

	w = h.do(t, http.MethodPost, "/api/characters", map[string]string{"name": "Grok", "race_id": "orc"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestStatsRoute(t *testing.T) {
	h := newHarness(t)
	h.createCharacter(t, "Lira")
	h.createCharacter(t, "Bryn")
	_, err := h.store.AddGlobalCurrency(context.Background(), 12)
	require.NoError(t, err)

	st := decode[session.Stats](t, h.do(t, http.MethodGet, "/api/stats", nil))
	assert.Equal(t, session.Stats{TotalCharacters: 2, TotalLevels: 2, AverageLevel: 1, TotalCurrency: 12, GlobalCurrency: 12}, st)
}

func TestEventsStream(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func(prefix string) string {
		for lines.Scan() {
			line := lines.Text()
			if strings.HasPrefix(line, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(line, prefix))
			}
		}
		t.Fatalf("stream ended before %q: %v", prefix, lines.Err())
		return ""
	}

	assert.Equal(t, "connected", next("event:"))
	require.Eventually(t, func() bool { return h.bus.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	pub := events.NewPublisher(h.bus, nil, nil)
	pub.Publish(ctx, combat.VictoryEvent{CharacterID: "c1", Victory: combat.Victory{ExperienceReward: 9}})

	assert.Equal(t, combat.EventVictory, next("event:"))
	var env events.Envelope
	require.NoError(t, json.Unmarshal([]byte(next("data:")), &env))
	assert.Equal(t, combat.EventVictory, env.Type)
	assert.Contains(t, string(env.Payload), `"experience_reward":9`)

	cancel()
	assert.Eventually(t, func() bool { return h.bus.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHealth_ProbeFailure(t *testing.T) {
	bus := events.NewLocalBus(1, nil)
	h := api.NewHandler(nil, nil, nil, nil, bus, func(context.Context) error {
		return errors.New("connection refused")
	}, zaptest.NewLogger(t))

	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSessionRateLimit(t *testing.T) {
	bus := events.NewLocalBus(1, nil)
	h := api.NewHandler(nil, nil, nil, nil, bus, nil, zaptest.NewLogger(t))
	h.SetRateLimit(0.001, 1)
	r := h.Router()

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader("{}")))
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader("{}")))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
