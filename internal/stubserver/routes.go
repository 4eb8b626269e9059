// Package stubserver is a self-contained development backend implementing
// the slice of the Principia API the client consumes, so the client runs
// without the production services.
package stubserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the full devserver route table.
func NewRouter(store *SQLStore, authSvc *AuthService, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", LoginHandler(store, authSvc))

	r.Group(func(r chi.Router) {
		r.Use(JWTMiddleware(authSvc))

		r.Get("/courses", CoursesHandler(store))
		r.Get("/courses/{courseID}/modules", CourseModulesHandler(store))

		r.Get("/lists/{listID}/questions", ListQuestionsHandler(store))
		r.Get("/lists/{listID}/attempt", AttemptForListHandler(store))
		r.Post("/lists/{listID}/attempts", StartAttemptHandler(store))

		r.Post("/attempts/{attemptID}/answers", SubmitAnswerHandler(store))
		r.Post("/attempts/{attemptID}/finalize", FinalizeAttemptHandler(store))

		r.Post("/videos/{videoID}/progress", VideoProgressHandler(store))

		r.Get("/me/profile", ProfileHandler(store))
		r.Post("/me/checkin", CheckInHandler(store))
	})

	return r
}
