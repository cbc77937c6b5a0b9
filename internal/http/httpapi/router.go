package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tryon/internal/http/handlers"
	"tryon/internal/middleware"
)

// Options carries router-level settings from the composition root.
type Options struct {
	RateLimitPerMin int
	CountryLookup   middleware.CountryLookup
	DefaultLocale   string
}

// NewRouter assembles the HTTP surface of the service.
func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP, chimiddleware.Recoverer, chimiddleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.I18N(opts.DefaultLocale, opts.CountryLookup))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/tryon", func(r chi.Router) {
		limited := r
		if opts.RateLimitPerMin > 0 {
			limited = r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		}
		limited.Post("/", app.TryOnSubmit)
		r.Get("/{record_id}", app.TryOnStatus)
	})

	return r
}
