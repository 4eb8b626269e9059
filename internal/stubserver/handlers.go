package stubserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/principia-matematica/estudo/internal/study"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrFinalized):
		http.Error(w, "attempt already finalized", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GET /lists/{listID}/questions
func ListQuestionsHandler(store *SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listID := chi.URLParam(r, "listID")
		l, questions, err := store.ListWithQuestions(r.Context(), listID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, struct {
			List      study.List       `json:"list"`
			Questions []study.Question `json:"questions"`
		}{l, questions})
	}
}

// GET /lists/{listID}/attempt
func AttemptForListHandler(store *SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := SubjectFromContext(r.Context())
		a, err := store.ActiveAttempt(r.Context(), chi.URLParam(r, "listID"), sub)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, a)
	}
}

// POST /lists/{listID}/attempts {"duration_minutes": 30}
func StartAttemptHandler(store *SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DurationMinutes int `json:"duration_minutes"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
		}
		sub := SubjectFromContext(r.Context())
		a, err := store.NewAttempt(r.Context(), chi.URLParam(r, "listID"), sub, req.DurationMinutes)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, a)
	}
}

// POST /attempts/{attemptID}/answers {"question_id":"...","alternative_id":"..."}
func SubmitAnswerHandler(store *SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionID    string `json:"question_id"`
			AlternativeID string `json:"alternative_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.QuestionID == "" || req.AlternativeID == "" {
			http.Error(w, "question_id and alternative_id required", http.StatusBadRequest)
			return
		}
		sub := SubjectFromContext(r.Context())
		out, err := store.SaveAnswer(r.Context(), chi.URLParam(r, "attemptID"), sub,
			req.QuestionID, req.AlternativeID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, out)
	}
}

// POST /attempts/{attemptID}/finalize
func FinalizeAttemptHandler(store *SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := SubjectFromContext(r.Context())
		res, err := store.Finalize(r.Context(), chi.URLParam(r, "attemptID"), sub)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, res)
	}
}

// GET /courses
func CoursesHandler(store *SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := store.Courses(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, cs)
	}
}

// GET /courses/{courseID}/modules
func CourseModulesHandler(store *SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := SubjectFromContext(r.Context())
		ms, err := store.CourseModules(r.Context(), chi.URLParam(r, "courseID"), sub)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, ms)
	}
}

// POST /videos/{videoID}/progress {"seconds":123,"completed":false}
func VideoProgressHandler(store *SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Seconds   int  `json:"seconds"`
			Completed bool `json:"completed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sub := SubjectFromContext(r.Context())
		if err := store.UpsertVideoProgress(r.Context(), sub, chi.URLParam(r, "videoID"),
			req.Seconds, req.Completed); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /me/profile
func ProfileHandler(store *SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := SubjectFromContext(r.Context())
		p, err := store.Profile(r.Context(), sub, time.Now())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, p)
	}
}

// POST /me/checkin
func CheckInHandler(store *SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := SubjectFromContext(r.Context())
		res, err := store.CheckIn(r.Context(), sub, time.Now())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, res)
	}
}
