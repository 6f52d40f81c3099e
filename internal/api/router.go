package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(apiHandler *APIHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))   // Structured request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		// Credential gate
		r.Get("/credential", apiHandler.GetCredentialHandler)
		r.Put("/credential", apiHandler.PutCredentialHandler)

		// Today's log
		r.Get("/log", apiHandler.GetLogHandler)
		r.Delete("/log/{entryID}", apiHandler.DeleteEntryHandler)
		r.Get("/foods", apiHandler.ListFoodsHandler)

		// Voice interactions
		r.Post("/utterances", apiHandler.PostUtteranceHandler)
		r.Post("/voice", apiHandler.PostVoiceHandler)

		// Unknown-food prompt
		r.Route("/pending", func(r chi.Router) {
			r.Get("/", apiHandler.GetPendingHandler)
			r.Put("/input", apiHandler.PutPendingInputHandler)
			r.Post("/confirm", apiHandler.ConfirmPendingHandler)
			r.Post("/cancel", apiHandler.CancelPendingHandler)
			r.Post("/dictation", apiHandler.PostDictationHandler)
			r.Post("/voice", apiHandler.PostPendingVoiceHandler)
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("HTTP request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
