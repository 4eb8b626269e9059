package study

import "fmt"

// Status is the per-question display state used by the sidebar and the
// question list.
type Status string

const (
	StatusUnanswered Status = "unanswered"
	StatusCorrect    Status = "correct"
	StatusIncorrect  Status = "incorrect"
	// StatusAnswered is used on exam-type lists only: the learner sees that
	// the question was answered but not whether it was right.
	StatusAnswered Status = "answered"
)

// ErrMissingAnswerKey flags a practice question whose correct alternative is
// absent from the payload. Deriving correctness would be a guess, so the
// caller must surface this as a data problem instead.
type ErrMissingAnswerKey struct {
	QuestionID string
}

func (e *ErrMissingAnswerKey) Error() string {
	return fmt.Sprintf("question %s has no correct alternative defined", e.QuestionID)
}

// DeriveStatus computes the display status of one question from the set of
// submitted answers. submitted maps question id to the chosen alternative id.
func DeriveStatus(q Question, submitted map[string]string, examMode bool) (Status, error) {
	chosen, ok := submitted[q.ID]
	if !ok {
		return StatusUnanswered, nil
	}
	if examMode {
		return StatusAnswered, nil
	}
	if q.CorrectAlternativeID == "" {
		return "", &ErrMissingAnswerKey{QuestionID: q.ID}
	}
	if chosen == q.CorrectAlternativeID {
		return StatusCorrect, nil
	}
	return StatusIncorrect, nil
}
