package admin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"

	"github.com/petabytecl/jobu/eventbus"
	"github.com/petabytecl/jobu/health"
	"github.com/petabytecl/jobu/internal/store"
)

// API holds the dependencies every route handler needs: the engine to run
// transactions against and the recent-activity buffer §6.9 adds.
type API struct {
	cfg    Config
	engine store.Engine
	recent *RecentActivity
}

// NewAPI creates an API bound to engine, subscribing its recent-activity
// buffer to bus (nil is accepted, the buffer simply stays empty).
func NewAPI(cfg Config, engine store.Engine, bus *eventbus.EventBus) *API {
	recent := NewRecentActivity(cfg.RecentBuffer)
	recent.Subscribe(bus)
	return &API{cfg: cfg, engine: engine, recent: recent}
}

func (a *API) dbName() string { return a.engine.Name() }

// NewRouter builds the complete admin http.Handler: the routes of spec.md
// §6 plus the §6.9 addition, health probes backed by healthMgr, wrapped in
// CORS per cfg.AllowedOrigins.
func NewRouter(api *API, healthMgr *health.Manager) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /crons", api.listCrons)
	mux.HandleFunc("POST /crons", api.createCron)
	mux.HandleFunc("GET /crons/{id}", api.getCron)
	mux.HandleFunc("PUT /crons/{id}", api.updateCron)
	mux.HandleFunc("DELETE /crons/{id}", api.deleteCron)
	mux.HandleFunc("POST /crons/{id}/toggle", api.toggleCron)

	mux.HandleFunc("GET /jobs", api.listJobs)
	mux.HandleFunc("GET /jobs/recent", api.recentJobs)
	mux.HandleFunc("GET /jobs/{id}", api.getJob)
	mux.HandleFunc("POST /jobs/{id}/retry", api.retryJob)
	mux.HandleFunc("DELETE /jobs/{id}", api.deleteJob)

	if healthMgr != nil {
		mux.Handle("GET /health", healthMgr.NewLivenessHandler())
		mux.Handle("GET /ready", healthMgr.NewReadinessHandler())
	}

	c := cors.New(cors.Options{
		AllowedOrigins: api.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// pathID extracts and parses the {id} wildcard. Its callers answer a
// non-integer id with 400.
func pathID(r *http.Request) (int64, error) {
	return parseInt64(r.PathValue("id"))
}

// parsePaging reads page/size query params. A missing, non-integer or
// out-of-range value (page below 1, size outside 1..100) falls back to the
// default (page 1, size 20); out-of-range values are not clamped.
func parsePaging(r *http.Request) (page, size int) {
	page = 1
	size = 20
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			page = n
		}
	}
	if v := strings.TrimSpace(q.Get("size")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 100 {
			size = n
		}
	}
	return page, size
}
