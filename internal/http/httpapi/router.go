package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"fundledger/internal/http/handlers"
	"fundledger/internal/metrics"
	"fundledger/internal/middleware"
)

type Options struct {
	JWTSecret      string
	TokenTTL       time.Duration // longest token lifetime accepted; zero disables
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.InstrumentHandler)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	limit := func(next http.Handler) http.Handler { return next }
	if opts.RateLimiter != nil {
		limit = opts.RateLimiter.Handler
	}
	auth := middleware.AuthJWT(opts.JWTSecret, opts.TokenTTL)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		// Public reads.
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Get("/funds", app.ListFunds)
			r.Get("/funds/{id}", app.GetFund)
			r.Get("/rewards/{address}", app.RewardsOf)
			r.Get("/wallets/{address}", app.Wallet)
		})

		// Caller-bound operations.
		r.Group(func(r chi.Router) {
			r.Use(auth, limit)
			r.Post("/funds", app.CreateFund)
			r.Post("/funds/{id}/donations", app.Donate)
			r.Post("/funds/{id}/close", app.CloseFund)
			r.Get("/rewards/me", app.MyRewards)
			r.Post("/wallets/{address}/faucet", app.Faucet)
		})
	})

	return r
}
