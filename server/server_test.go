package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akulinich/overdraft/configstore"
	"github.com/akulinich/overdraft/layout"
	"github.com/akulinich/overdraft/sheets"
)

const (
	testSpreadsheetID = "spreadsheet-id-0001"
	testGID           = "0"
)

// newTestServer wires a server around a preloaded cache so handlers
// never reach for the Google API.
func newTestServer(t *testing.T) (*Server, *sheets.Cache, *configstore.Store) {
	t.Helper()

	cache := sheets.NewCache(time.Minute)
	layouts, err := configstore.Open(filepath.Join(t.TempDir(), "layouts.yaml"))
	require.NoError(t, err)

	srv := New(
		sheets.NewClient(""),
		cache,
		nil,
		sheets.NewMetrics(),
		layouts,
		configstore.NewShareStore(t.TempDir()),
		nil,
		zap.NewNop(),
	)
	return srv, cache, layouts
}

func cachedSheet() sheets.SheetData {
	data := sheets.SheetData{
		SpreadsheetID: testSpreadsheetID,
		GID:           testGID,
		Title:         "Roster",
		Headers:       []string{"", "Team Alpha", "", "", "", "Team Beta", "", ""},
		Data: layout.Grid{
			{"1", "", "", "", "", "2", "", ""},
		},
	}
	nicks := [][2]string{{"ana", "fox"}, {"bob", "gin"}, {"cat", "hex"}, {"dio", "ivy"}, {"eel", "jax"}}
	for _, pair := range nicks {
		data.Data = append(data.Data, []string{"", pair[0], "", "", "", "", pair[1], ""})
	}
	return data
}

func cachedRoster() sheets.SheetData {
	return sheets.SheetData{
		SpreadsheetID: testSpreadsheetID,
		GID:           "7",
		Title:         "Players",
		Headers:       []string{"Role", "Nickname", "Rating"},
		Data: layout.Grid{
			{"Tank", "fox", "2500"},
			{"DPS", "gin", "2400"},
		},
	}
}

func doRequest(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetSheet(t *testing.T) {
	srv, cache, _ := newTestServer(t)
	entry := cache.Set(testSpreadsheetID, testGID, cachedSheet())

	url := "/api/sheets?spreadsheetId=" + testSpreadsheetID + "&gid=" + testGID

	t.Run("cache hit", func(t *testing.T) {
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, entry.ETag, rec.Header().Get("ETag"))
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

		var body struct {
			Title       string    `json:"title"`
			LastUpdated time.Time `json:"lastUpdated"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Roster", body.Title)
		assert.False(t, body.LastUpdated.IsZero())
	})

	t.Run("etag match returns 304", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("If-None-Match", entry.ETag)
		rec := doRequest(t, srv, req)
		assert.Equal(t, http.StatusNotModified, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("invalid spreadsheet id", func(t *testing.T) {
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/sheets?spreadsheetId=..&gid=0", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid gid", func(t *testing.T) {
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet,
			"/api/sheets?spreadsheetId="+testSpreadsheetID+"&gid=abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("miss without api key is a server error", func(t *testing.T) {
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet,
			"/api/sheets?spreadsheetId=other-spreadsheet-id&gid=1", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetTeams(t *testing.T) {
	srv, cache, layouts := newTestServer(t)
	cache.Set(testSpreadsheetID, testGID, cachedSheet())

	require.NoError(t, layouts.Put(configstore.Key(testSpreadsheetID, testGID), layout.Config{
		TeamsPerRow:       2,
		ColumnsPerTeam:    4,
		SeparatorColumns:  1,
		HeaderRows:        2,
		PlayersPerTeam:    5,
		RowsBetweenBlocks: 1,
	}))

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet,
		"/api/sheets/teams?spreadsheetId="+testSpreadsheetID+"&gid="+testGID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Teams      []teamWithPlayers  `json:"teams"`
		ParseError *layout.ParseError `json:"parseError"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Nil(t, body.ParseError)
	require.Len(t, body.Teams, 2)
	assert.Equal(t, "Team Alpha", body.Teams[0].Name)
	assert.Equal(t, []string{"fox", "gin", "hex", "ivy", "jax"}, body.Teams[1].PlayerNicknames)
	assert.Empty(t, body.Teams[0].Players)

	t.Run("roster join", func(t *testing.T) {
		cache.Set(testSpreadsheetID, "7", cachedRoster())

		rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet,
			"/api/sheets/teams?spreadsheetId="+testSpreadsheetID+"&gid="+testGID+"&rosterGid=7", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		require.Len(t, body.Teams, 2)
		players := body.Teams[1].Players
		require.Len(t, players, 5)
		assert.Equal(t, 2500, players[0].Rating)
		assert.Equal(t, layout.RoleTank, players[0].Role)
		// Unknown nicknames stay as nickname-only slots.
		assert.Equal(t, "hex", players[2].Nickname)
		assert.Zero(t, players[2].Rating)
	})

	t.Run("invalid roster gid", func(t *testing.T) {
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet,
			"/api/sheets/teams?spreadsheetId="+testSpreadsheetID+"&gid="+testGID+"&rosterGid=abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLayoutEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	url := "/api/layout?spreadsheetId=" + testSpreadsheetID + "&gid=" + testGID

	t.Run("get falls back to default", func(t *testing.T) {
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var cfg layout.Config
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
		assert.Equal(t, layout.DefaultConfig(), cfg)
	})

	t.Run("put then get", func(t *testing.T) {
		cfg := layout.DefaultConfig()
		cfg.TeamsPerRow = 4
		raw, _ := json.Marshal(cfg)

		rec := doRequest(t, srv, httptest.NewRequest(http.MethodPut, url, strings.NewReader(string(raw))))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, srv, httptest.NewRequest(http.MethodGet, url, nil))
		var got layout.Config
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 4, got.TeamsPerRow)
	})

	t.Run("put rejects invalid config", func(t *testing.T) {
		cfg := layout.DefaultConfig()
		cfg.TeamsPerRow = 0
		raw, _ := json.Marshal(cfg)

		rec := doRequest(t, srv, httptest.NewRequest(http.MethodPut, url, strings.NewReader(string(raw))))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestConfigShare(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodPost, "/api/config/share",
		strings.NewReader(`{"config":"base64-blob"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var share struct {
		GUID string `json:"guid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &share))
	require.NotEmpty(t, share.GUID)

	t.Run("retrieve", func(t *testing.T) {
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/config/"+share.GUID, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "base64-blob")
	})

	t.Run("bad guid", func(t *testing.T) {
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/config/nope", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty config rejected", func(t *testing.T) {
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodPost, "/api/config/share",
			strings.NewReader(`{"config":""}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestShareRateLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)
	body := `{"config":"blob"}`

	// httptest requests all come from the same RemoteAddr, so they
	// share one per-client budget.
	for i := 0; i < 10; i++ {
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodPost, "/api/config/share",
			strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodPost, "/api/config/share",
		strings.NewReader(body)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit")

	t.Run("budget is per client", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/config/share", strings.NewReader(body))
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		rec := doRequest(t, srv, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	assert.Equal(t, "192.0.2.1", clientKey(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientKey(req))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, cache, _ := newTestServer(t)
	cache.Set(testSpreadsheetID, testGID, cachedSheet())

	doRequest(t, srv, httptest.NewRequest(http.MethodGet,
		"/api/sheets?spreadsheetId="+testSpreadsheetID+"&gid="+testGID, nil))

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap sheets.MetricsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.CacheHits)
}

func TestCORS(t *testing.T) {
	t.Run("allow all by default", func(t *testing.T) {
		srv, _, _ := newTestServer(t)
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "ETag", rec.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("allowlist", func(t *testing.T) {
		srv, _, _ := newTestServer(t)
		srv.corsOrigins = []string{"https://overdraft.example"}

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://overdraft.example")
		rec := doRequest(t, srv, req)
		assert.Equal(t, "https://overdraft.example", rec.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://elsewhere.example")
		rec = doRequest(t, srv, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		srv, _, _ := newTestServer(t)
		rec := doRequest(t, srv, httptest.NewRequest(http.MethodOptions, "/api/sheets", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
