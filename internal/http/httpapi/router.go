package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"narrator/internal/http/handlers"
	"narrator/internal/infra"
	"narrator/internal/middleware"
)

type Options struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	Logger             infra.Logger

	// TrustProxyHeaders takes the client address from X-Forwarded-For /
	// X-Real-IP. Enable it only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/health", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMinute, time.Minute))
		r.Post("/generate-narration", app.GenerateNarration)
		r.Post("/generate-voice", app.GenerateVoice)
	})

	r.Get("/narrations/{id}", app.NarrationStatus)
	r.Get("/narrations/{id}/bundle", app.NarrationBundle)
	r.Get("/output/{filename}", app.Output)

	return r
}
