package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambimix/internal/playback"
	"ambimix/internal/store"
)

// startTestAPI serves the API for a running test daemon, with the hub and
// broadcaster wired the same way the daemon binary does.
func startTestAPI(t *testing.T) (*httptest.Server, *testDaemon) {
	t.Helper()

	d := startTestDaemon(t, nil, nil, playback.NewMemoryEngine(), store.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := newTestHub(t, 0, 0)
	go hub.Run(ctx)
	go RunBroadcaster(ctx, hub, d.broadcasts, testLogger())

	srv := httptest.NewServer(NewAPIServer(testLogger(), d.events, hub).Handler())
	t.Cleanup(srv.Close)
	return srv, d
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string) (int, IPCResponse) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out IPCResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return resp.StatusCode, out
}

func TestAPI_State(t *testing.T) {
	srv, _ := startTestAPI(t)

	var snap StateSnapshot
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/state", &snap))
	assert.Len(t, snap.Sounds, 14)
	assert.Len(t, snap.Mixes, 8)
	assert.Equal(t, defaultMasterVolume, snap.MasterVolume)
	assert.Equal(t, "idle", snap.Timer.State)
}

func TestAPI_EventsEndpoint(t *testing.T) {
	srv, d := startTestAPI(t)

	status, resp := postJSON(t, srv.URL+"/api/events", `{"type":"apply_preset","data":{"id":"beach"}}`)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "ok", resp.Status)

	waitUntil(t, time.Second, func() bool {
		snap := d.snapshot(t)
		return snap.CurrentMix != nil && snap.CurrentMix.MixID == "beach"
	}, "apply_preset not reduced")

	status, resp = postJSON(t, srv.URL+"/api/events", `{"type":"timer_fired","data":{"Gen":1}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "unknown event type")

	status, _ = postJSON(t, srv.URL+"/api/events", `nope`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_ImportThenExport(t *testing.T) {
	srv, _ := startTestAPI(t)

	status, resp := postJSON(t, srv.URL+"/api/import", `{"version":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", resp.Status)

	doc := `{
		"version": 1,
		"exportDate": "2024-03-01T22:00:00Z",
		"presets": [{"id": "p1", "name": "Porch", "icon": "moon", "soundIds": ["crickets", "wind"]}],
		"favoriteMixIds": ["p1", "beach"],
		"favoriteSoundIds": ["crickets"]
	}`
	status, resp = postJSON(t, srv.URL+"/api/import", doc)
	require.Equal(t, http.StatusOK, status, "response: %+v", resp)

	res, err := http.Get(srv.URL + "/api/export")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Disposition"), "ambimix-export.json")

	var got ExportDocument
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, 1, got.Version)
	require.Len(t, got.Presets, 1)
	assert.Equal(t, "Porch", got.Presets[0].Name)
	assert.Equal(t, []string{"p1", "beach"}, got.FavoriteMixIDs)
	assert.Equal(t, []string{"crickets"}, got.FavoriteSoundIDs)
}

func TestAPI_TimerPresets(t *testing.T) {
	srv, _ := startTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/timer/presets?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/timer/presets?limit=-1", nil))

	var presets []int
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/timer/presets?limit=3", &presets))
	assert.Equal(t, []int{900, 1800, 2700}, presets)

	presets = nil
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/timer/presets", &presets))
	assert.Len(t, presets, defaultTimerPresetLimit)
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	srv, _ := startTestAPI(t)

	resp, err := http.Post(srv.URL+"/api/state", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAPI_StateWebsocket(t *testing.T) {
	srv, d := startTestAPI(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	type frame struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	read := func() frame {
		t.Helper()
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		return f
	}

	first := read()
	require.Equal(t, wsTypeStateInit, first.Type)
	var initSnap StateSnapshot
	require.NoError(t, json.Unmarshal(first.Data, &initSnap))
	assert.False(t, soundSnapshot(initSnap, "rain").Selected)

	d.events <- SelectSound{ID: "rain"}

	for {
		f := read()
		if f.Type != wsTypeStateChanged {
			continue
		}
		var snap StateSnapshot
		require.NoError(t, json.Unmarshal(f.Data, &snap))
		if soundSnapshot(snap, "rain").Selected {
			assert.Contains(t, snap.RecentSounds, "rain")
			return
		}
	}
}
