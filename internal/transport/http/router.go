package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"chase-duel-service/internal/app"
)

// NewRouter wires the REST and websocket handlers of the duel service.
func NewRouter(service *app.DuelService) http.Handler {
	duels := NewDuelHandler(service)
	ws := NewWSHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	timeout := middleware.Timeout(15 * time.Second)
	r.Route("/duels", func(r chi.Router) {
		r.With(timeout).Post("/", duels.start)
		r.With(timeout).Get("/", duels.live)
		r.Route("/{id}", func(r chi.Router) {
			// The websocket outlives any request timeout.
			r.Get("/ws", ws.ServeWS)
			r.Group(func(r chi.Router) {
				r.Use(timeout)
				r.Get("/", duels.snapshot)
				r.Post("/answer", duels.answer)
				r.Post("/continue", duels.continueDuel)
				r.Delete("/", duels.exit)
			})
		})
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
