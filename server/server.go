// Package server exposes the cached sheet data, decoded teams, layout
// persistence, and config sharing over HTTP.
package server

import (
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/akulinich/overdraft/configstore"
	"github.com/akulinich/overdraft/sheets"
)

var (
	spreadsheetIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,100}$`)
	gidPattern           = regexp.MustCompile(`^[0-9]{1,20}$`)
)

type Server struct {
	client  *sheets.Client
	cache   *sheets.Cache
	poller  *sheets.Poller
	metrics *sheets.Metrics
	layouts *configstore.Store
	shares  *configstore.ShareStore

	corsOrigins []string
	log         *zap.Logger

	defaultLimit   *ipRateLimiter
	shareLimit     *ipRateLimiter
	sharedGetLimit *ipRateLimiter
}

func New(
	client *sheets.Client,
	cache *sheets.Cache,
	poller *sheets.Poller,
	metrics *sheets.Metrics,
	layouts *configstore.Store,
	shares *configstore.ShareStore,
	corsOrigins []string,
	log *zap.Logger,
) *Server {
	return &Server{
		client:      client,
		cache:       cache,
		poller:      poller,
		metrics:     metrics,
		layouts:     layouts,
		shares:      shares,
		corsOrigins: corsOrigins,
		log:         log,

		// Creating a share costs a disk file, so it gets the tightest
		// budget; everything else just guards the Google quota.
		defaultLimit:   perMinute(120),
		shareLimit:     perMinute(10),
		sharedGetLimit: perMinute(60),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.defaultLimit.wrap(s.handleHealth))
	mux.HandleFunc("GET /api/sheets", s.defaultLimit.wrap(s.handleSheet))
	mux.HandleFunc("GET /api/sheets/teams", s.defaultLimit.wrap(s.handleTeams))
	mux.HandleFunc("GET /api/layout", s.defaultLimit.wrap(s.handleGetLayout))
	mux.HandleFunc("PUT /api/layout", s.defaultLimit.wrap(s.handlePutLayout))
	mux.HandleFunc("POST /api/config/share", s.shareLimit.wrap(s.handleShareConfig))
	mux.HandleFunc("GET /api/config/{guid}", s.sharedGetLimit.wrap(s.handleGetSharedConfig))
	mux.HandleFunc("GET /api/metrics", s.defaultLimit.wrap(s.handleMetrics))
	return s.cors(mux)
}

// cors mirrors the original proxy's policy: all origins in dev, an
// explicit allowlist in production, ETag always exposed so clients can
// do conditional polling.
func (s *Server) cors(next http.Handler) http.Handler {
	allowAll := len(s.corsOrigins) == 0 ||
		(len(s.corsOrigins) == 1 && s.corsOrigins[0] == "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && containsString(s.corsOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match")
		w.Header().Set("Access-Control-Expose-Headers", "ETag")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
