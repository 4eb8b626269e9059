package study

import "time"

// ListType distinguishes practice lists from exam-style lists. For exam-style
// lists per-question correctness is withheld from the learner until the
// attempt is finalized.
type ListType string

const (
	ListPractica ListType = "practica"
	ListSimulado ListType = "simulado"
	ListProva    ListType = "prova"
)

// Exam reports whether answers on this list hide their outcome.
func (t ListType) Exam() bool { return t == ListSimulado || t == ListProva }

type Alternative struct {
	ID     string `json:"id"`
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// SourceExam records where a question originally appeared.
type SourceExam struct {
	Board string `json:"board,omitempty"`
	Year  int    `json:"year,omitempty"`
	Code  string `json:"code,omitempty"`
}

type Question struct {
	ID                   string        `json:"id"`
	Statement            string        `json:"statement"`
	Difficulty           int           `json:"difficulty"` // 1..5
	Alternatives         []Alternative `json:"alternatives"`
	CorrectAlternativeID string        `json:"correct_alternative_id,omitempty"`
	Topics               []string      `json:"topics,omitempty"`
	Source               SourceExam    `json:"source,omitempty"`
	VideoExplanationID   string        `json:"video_explanation_id,omitempty"`
	Explanation          string        `json:"explanation,omitempty"`
	Adapted              bool          `json:"adapted,omitempty"`
}

type List struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Type ListType `json:"type"`
}

type AttemptStatus string

const (
	AttemptActive    AttemptStatus = "active"
	AttemptFinalized AttemptStatus = "finalized"
)

// Attempt is one pass of a user through a list. The ID is assigned by the
// backend when the first answer is submitted; until then the client holds no
// attempt at all.
type Attempt struct {
	ID                    string            `json:"id"`
	ListID                string            `json:"list_id"`
	StartedAt             time.Time         `json:"started_at"`
	ChosenDurationMinutes int               `json:"chosen_duration_minutes,omitempty"`
	Status                AttemptStatus     `json:"status"`
	SavedAnswers          map[string]string `json:"saved_answers"` // question id -> alternative id
}

// AnswerOutcome is what the backend reports for one submitted answer.
// Revealed is false on exam-type lists, where only acceptance is confirmed.
type AnswerOutcome struct {
	Accepted             bool   `json:"accepted"`
	Revealed             bool   `json:"revealed"`
	IsCorrect            bool   `json:"is_correct,omitempty"`
	CorrectAlternativeID string `json:"correct_alternative_id,omitempty"`
}

// FinalResult is the score returned by finalizing an attempt.
type FinalResult struct {
	FinalScore float64            `json:"final_score"`
	Breakdown  map[string]float64 `json:"breakdown,omitempty"` // topic -> fraction correct
}

// Clock lets tests pin time.
type Clock func() time.Time
