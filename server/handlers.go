package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/akulinich/overdraft/configstore"
	"github.com/akulinich/overdraft/layout"
	"github.com/akulinich/overdraft/roster"
	"github.com/akulinich/overdraft/sheets"
)

type sheetResponse struct {
	sheets.SheetData
	LastUpdated time.Time `json:"lastUpdated"`
}

// teamWithPlayers is a decoded team, optionally joined against the
// roster sheet when the request names one.
type teamWithPlayers struct {
	layout.Team
	Players []roster.Player `json:"players,omitempty"`
}

type teamsResponse struct {
	Teams      []teamWithPlayers  `json:"teams"`
	ParseError *layout.ParseError `json:"parseError"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// sheetParams validates the spreadsheetId/gid query pair.
func sheetParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	spreadsheetID := r.URL.Query().Get("spreadsheetId")
	gid := r.URL.Query().Get("gid")
	if !spreadsheetIDPattern.MatchString(spreadsheetID) {
		httpError(w, http.StatusBadRequest,
			"Invalid spreadsheet ID format. Expected alphanumeric string with dashes/underscores.")
		return "", "", false
	}
	if !gidPattern.MatchString(gid) {
		httpError(w, http.StatusBadRequest, "Invalid gid format. Expected numeric string.")
		return "", "", false
	}
	return spreadsheetID, gid, true
}

// getSheet serves from the cache, fetching from Google only on a miss.
// The poller keeps the cache warm afterwards.
func (s *Server) getSheet(w http.ResponseWriter, r *http.Request, spreadsheetID, gid string) (sheets.CacheEntry, bool) {
	if s.poller != nil {
		s.poller.Subscribe(spreadsheetID, gid)
	}

	if entry, ok := s.cache.Get(spreadsheetID, gid); ok {
		s.metrics.RecordCacheHit()
		return entry, true
	}
	s.metrics.RecordCacheMiss()

	data, err := s.client.FetchSheet(r.Context(), spreadsheetID, gid)
	if err != nil {
		s.metrics.RecordError()
		s.log.Warn("sheet fetch failed",
			zap.String("spreadsheetId", spreadsheetID),
			zap.String("gid", gid),
			zap.Error(err))
		switch {
		case errors.Is(err, sheets.ErrNotFound):
			httpError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, sheets.ErrNotPublished):
			httpError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, sheets.ErrNoAPIKey):
			httpError(w, http.StatusInternalServerError, err.Error())
		default:
			httpError(w, http.StatusBadGateway, err.Error())
		}
		return sheets.CacheEntry{}, false
	}
	return s.cache.Set(spreadsheetID, gid, data), true
}

func (s *Server) handleSheet(w http.ResponseWriter, r *http.Request) {
	spreadsheetID, gid, ok := sheetParams(w, r)
	if !ok {
		return
	}

	entry, ok := s.getSheet(w, r, spreadsheetID, gid)
	if !ok {
		return
	}

	w.Header().Set("ETag", entry.ETag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == entry.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, sheetResponse{SheetData: entry.Data, LastUpdated: time.Now().UTC()})
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	spreadsheetID, gid, ok := sheetParams(w, r)
	if !ok {
		return
	}

	entry, ok := s.getSheet(w, r, spreadsheetID, gid)
	if !ok {
		return
	}

	cfg, ok := s.layouts.Get(configstore.Key(spreadsheetID, gid))
	if !ok {
		cfg = layout.DefaultConfig()
	}
	teams, perr := layout.Decode(entry.Data.Grid(), cfg)

	// An optional rosterGid joins each team's nickname slots against
	// the player sheet in the same spreadsheet.
	var idx *roster.Index
	if rosterGID := r.URL.Query().Get("rosterGid"); rosterGID != "" {
		if !gidPattern.MatchString(rosterGID) {
			httpError(w, http.StatusBadRequest, "Invalid rosterGid format. Expected numeric string.")
			return
		}
		rosterEntry, ok := s.getSheet(w, r, spreadsheetID, rosterGID)
		if !ok {
			return
		}
		g := rosterEntry.Data.Grid()
		idx = roster.NewIndex(roster.Parse(g, roster.DetectColumns(g)))
	}

	resp := teamsResponse{Teams: make([]teamWithPlayers, 0, len(teams)), ParseError: perr}
	for _, team := range teams {
		twp := teamWithPlayers{Team: team}
		if idx != nil {
			twp.Players = idx.Resolve(team)
		}
		resp.Teams = append(resp.Teams, twp)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	spreadsheetID, gid, ok := sheetParams(w, r)
	if !ok {
		return
	}
	cfg, found := s.layouts.Get(configstore.Key(spreadsheetID, gid))
	if !found {
		cfg = layout.DefaultConfig()
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutLayout(w http.ResponseWriter, r *http.Request) {
	spreadsheetID, gid, ok := sheetParams(w, r)
	if !ok {
		return
	}

	var cfg layout.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		httpError(w, http.StatusBadRequest, "invalid layout config body")
		return
	}
	if err := cfg.Validate(); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.layouts.Put(configstore.Key(spreadsheetID, gid), cfg); err != nil {
		s.log.Error("layout store write failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError, "failed to store layout config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type shareRequest struct {
	Config string `json:"config"`
}

type shareResponse struct {
	GUID      string    `json:"guid"`
	ExpiresAt time.Time `json:"expiresAt"`
}

const maxShareBody = 128 << 10

func (s *Server) handleShareConfig(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxShareBody)).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid share request body")
		return
	}
	if req.Config == "" {
		httpError(w, http.StatusBadRequest, "config must not be empty")
		return
	}

	guid, doc, err := s.shares.Share(req.Config)
	if err != nil {
		s.log.Error("config share failed", zap.Error(err))
		httpError(w, http.StatusInternalServerError, "failed to store config")
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{GUID: guid, ExpiresAt: doc.ExpiresAt})
}

func (s *Server) handleGetSharedConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := s.shares.Get(r.PathValue("guid"))
	switch {
	case errors.Is(err, configstore.ErrInvalidGUID):
		httpError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, configstore.ErrShareNotFound):
		httpError(w, http.StatusNotFound,
			"Config not found. The share link may have expired or is invalid.")
	case errors.Is(err, configstore.ErrShareExpired):
		httpError(w, http.StatusGone, "Config has expired. Please request a new share link.")
	case err != nil:
		httpError(w, http.StatusInternalServerError, "failed to read config")
	default:
		writeJSON(w, http.StatusOK, doc)
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
