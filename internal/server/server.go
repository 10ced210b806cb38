package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/kinfolk/internal/analytics"
	"github.com/dukerupert/kinfolk/internal/digest"
	"github.com/dukerupert/kinfolk/internal/handler"
	"github.com/dukerupert/kinfolk/internal/kv"
	"github.com/dukerupert/kinfolk/internal/middleware"
	"github.com/dukerupert/kinfolk/internal/store"
	ws "github.com/dukerupert/kinfolk/internal/websocket"
)

// Options configures New. Zero values select the SQLite key/value store,
// Russian labels and the host time zone.
type Options struct {
	KV             kv.Store
	Locale         analytics.Locale
	Location       *time.Location
	AllowedOrigins []string
	S3             *digest.S3Config
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	kv          kv.Store
	analytics   *analytics.Service
	digest      *digest.Runner
	rateLimiter *middleware.RateLimiter
	origins     []string
	logger      *slog.Logger

	familyMemberH  *handler.FamilyMemberHandler
	taskH          *handler.TaskHandler
	calendarEventH *handler.CalendarEventHandler
	shoppingH      *handler.ShoppingHandler
	analyticsH     *handler.AnalyticsHandler
	preferenceH    *handler.PreferenceHandler
	digestH        *handler.DigestHandler
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	locale := opts.Locale
	if locale == "" {
		locale = analytics.LocaleRU
	}

	familyMemberStore := store.NewFamilyMemberStore(db)
	taskStore := store.NewTaskStore(db)
	eventStore := store.NewEventStore(db)
	shoppingStore := store.NewShoppingStore(db)

	kvStore := opts.KV
	if kvStore == nil {
		kvStore = store.NewSettingsStore(db)
	}

	svc := analytics.NewService(familyMemberStore, taskStore, eventStore, locale, loc)

	digestLogger := logger.With("component", "digest")
	runner := digest.NewRunner(svc, kvStore, hub, loc, digestLogger)
	if opts.S3 != nil {
		runner.WithUpload(digest.NewS3Client(*opts.S3), opts.S3.Bucket, opts.S3.Prefix)
		if opts.S3.Passphrase != "" {
			runner.WithEncryption(opts.S3.Passphrase)
		}
	}

	apiLogger := logger.With("component", "api")

	return &Server{
		db:          db,
		hub:         hub,
		kv:          kvStore,
		analytics:   svc,
		digest:      runner,
		rateLimiter: middleware.NewRateLimiter(),
		origins:     opts.AllowedOrigins,
		logger:      logger,

		familyMemberH:  handler.NewFamilyMemberHandler(familyMemberStore, hub, apiLogger),
		taskH:          handler.NewTaskHandler(taskStore, familyMemberStore, hub, loc, apiLogger),
		calendarEventH: handler.NewCalendarEventHandler(eventStore, familyMemberStore, hub, loc, apiLogger),
		shoppingH:      handler.NewShoppingHandler(shoppingStore, hub, apiLogger),
		analyticsH:     handler.NewAnalyticsHandler(svc, apiLogger),
		preferenceH:    handler.NewPreferenceHandler(kvStore, hub, apiLogger),
		digestH:        handler.NewDigestHandler(kvStore, runner, apiLogger),
	}
}

// Hub returns the WebSocket hub for broadcasting.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Digest returns the scheduled digest runner.
func (s *Server) Digest() *digest.Runner {
	return s.digest
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket"), s.origins))

	// Family members
	mux.HandleFunc("GET /api/family-members", s.familyMemberH.List)
	mux.HandleFunc("POST /api/family-members", s.familyMemberH.Create)
	mux.HandleFunc("PUT /api/family-members/sort", s.familyMemberH.UpdateSortOrder)
	mux.HandleFunc("GET /api/family-members/{id}", s.familyMemberH.Get)
	mux.HandleFunc("PUT /api/family-members/{id}", s.familyMemberH.Update)
	mux.HandleFunc("DELETE /api/family-members/{id}", s.familyMemberH.Archive)
	mux.HandleFunc("POST /api/family-members/{id}/restore", s.familyMemberH.Restore)
	mux.HandleFunc("POST /api/family-members/{id}/pin", s.familyMemberH.SetPIN)
	mux.HandleFunc("DELETE /api/family-members/{id}/pin", s.familyMemberH.ClearPIN)
	mux.HandleFunc("POST /api/family-members/{id}/pin/verify", s.rateLimited("pin", s.familyMemberH.VerifyPIN))
	mux.HandleFunc("GET /api/leaderboard", s.familyMemberH.Leaderboard)

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/toggle", s.taskH.Toggle)

	// Calendar events
	mux.HandleFunc("GET /api/events", s.calendarEventH.List)
	mux.HandleFunc("POST /api/events", s.calendarEventH.Create)
	mux.HandleFunc("GET /api/events/{id}", s.calendarEventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.calendarEventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.calendarEventH.Delete)

	// Shopping
	mux.HandleFunc("GET /api/shopping-lists", s.shoppingH.ListLists)
	mux.HandleFunc("POST /api/shopping-lists", s.shoppingH.CreateList)
	mux.HandleFunc("DELETE /api/shopping-lists/{list_id}", s.shoppingH.DeleteList)
	mux.HandleFunc("GET /api/shopping-lists/{list_id}/items", s.shoppingH.ListItems)
	mux.HandleFunc("POST /api/shopping-lists/{list_id}/items", s.shoppingH.CreateItem)
	mux.HandleFunc("PUT /api/shopping-lists/{list_id}/items/{id}", s.shoppingH.UpdateItem)
	mux.HandleFunc("DELETE /api/shopping-lists/{list_id}/items/{id}", s.shoppingH.DeleteItem)
	mux.HandleFunc("POST /api/shopping-lists/{list_id}/items/{id}/check", s.shoppingH.ToggleChecked)
	mux.HandleFunc("POST /api/shopping-lists/{list_id}/clear-checked", s.shoppingH.ClearChecked)

	// Analytics
	mux.HandleFunc("GET /api/analytics", s.analyticsH.Get)
	mux.HandleFunc("GET /api/analytics/members", s.analyticsH.Members)
	mux.HandleFunc("GET /api/analytics/export", s.analyticsH.Export)

	// Preferences and counters
	mux.HandleFunc("GET /api/preferences/{key}", s.preferenceH.Get)
	mux.HandleFunc("PUT /api/preferences/{key}", s.preferenceH.Put)
	mux.HandleFunc("POST /api/preferences/{key}/incr", s.preferenceH.Incr)

	// Digest
	mux.HandleFunc("GET /api/digest", s.digestH.Latest)
	mux.HandleFunc("POST /api/digest/run", s.rateLimited("digest", s.digestH.Run))

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.RequestLogger(s.logger.With("component", "http")),
		middleware.Recover(s.logger.With("component", "http")),
	)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check: database unreachable", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"clients": s.hub.ClientCount(),
	})
}

// rateLimited allows 10 requests per minute per client IP. Each scope has
// its own budget.
func (s *Server) rateLimited(scope string, h http.HandlerFunc) http.HandlerFunc {
	key := func(r *http.Request) string {
		return scope + ":" + middleware.RealIP(r)
	}
	return middleware.RateLimit(s.rateLimiter, key, 10, time.Minute)(h).ServeHTTP
}
