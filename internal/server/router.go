// Package server assembles the collaborator API: routes, auth and middleware.
package server

import (
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-contracts/auth"
	"github.com/diewo77/go-contracts/gate"
	"github.com/diewo77/go-contracts/httpx"
	"github.com/diewo77/go-contracts/internal/handlers"
	"github.com/diewo77/go-contracts/internal/middleware"
	"github.com/diewo77/go-contracts/internal/policy"
	"github.com/diewo77/go-contracts/internal/services"
)

type Options struct {
	SessionSecret   string
	SecureCookies   bool
	ProfileCacheTTL time.Duration
	Logger          *log.Logger
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, opts Options) http.Handler {
	if opts.ProfileCacheTTL <= 0 {
		opts.ProfileCacheTTL = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	sessions := auth.NewManager(opts.SessionSecret, handlers.LoadPrincipal(db))
	sessions.SecureCookies(opts.SecureCookies)
	gates := policy.NewAuthGate(db, opts.ProfileCacheTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ah := handlers.NewAuthHandler(db, sessions)
	mux.HandleFunc("/login", ah.Login)
	mux.HandleFunc("/logout", ah.Logout)

	authed := func(h http.Handler) http.Handler { return auth.RequireAuth(h) }
	perm := func(resource string, action gate.Action, h http.Handler) http.Handler {
		return auth.RequireAuth(gates.RequirePermission(resource, action)(h))
	}

	md := handlers.NewMasterDataHandler(services.NewMasterDataService(db))
	mux.Handle("/tax-rates", perm(policy.ResourceMasterData, gate.ActionList, md.TaxRates()))
	mux.Handle("/categories", perm(policy.ResourceMasterData, gate.ActionList, md.Categories()))
	mux.Handle("/templates", perm(policy.ResourceMasterData, gate.ActionList, md.Templates()))
	mux.Handle("/catalog", perm(policy.ResourceMasterData, gate.ActionList, md.Catalog()))

	ch := handlers.NewContractHandler(services.NewContractService(db, logger), gates)
	mux.Handle("/contracts", authed(http.HandlerFunc(ch.Collection)))
	mux.Handle("/contracts/show", authed(http.HandlerFunc(ch.Show)))

	eh := handlers.NewEventHandler(services.NewEventService(db, logger), gates)
	mux.Handle("/service-events", authed(http.HandlerFunc(eh.Collection)))
	mux.Handle("/service-events/show", authed(http.HandlerFunc(eh.Show)))
	mux.Handle("/service-events/status", authed(http.HandlerFunc(eh.UpdateStatus)))
	mux.Handle("/service-events/transitions", perm(policy.ResourceServiceEvent, gate.ActionList, http.HandlerFunc(eh.Transitions)))
	mux.Handle("/service-events/mark-overdue", auth.RequireAuth(gates.RequireAdmin()(http.HandlerFunc(eh.MarkOverdue))))

	return middleware.Logging(logger)(withRecover(logger, sessions.Middleware(mux)))
}

func withRecover(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Printf("panic request_id=%s path=%s err=%v", middleware.RequestIDFromContext(r.Context()), r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
