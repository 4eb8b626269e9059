package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/principia-matematica/estudo/internal/study"
)

// ListWithQuestions is the payload of the list-questions endpoint.
type ListWithQuestions struct {
	List      study.List       `json:"list"`
	Questions []study.Question `json:"questions"`
}

// ListQuestions fetches list metadata and the full ordered question set.
func (c *Client) ListQuestions(ctx context.Context, listID string) (ListWithQuestions, error) {
	var out ListWithQuestions
	err := c.do(ctx, "list questions", http.MethodGet, "/lists/"+listID+"/questions", nil, &out)
	return out, err
}

// AttemptForList fetches the caller's existing attempt for a list, with its
// saved answers. Returns nil (no error) when there is none yet.
func (c *Client) AttemptForList(ctx context.Context, listID string) (*study.Attempt, error) {
	var out study.Attempt
	err := c.do(ctx, "attempt for list", http.MethodGet, "/lists/"+listID+"/attempt", nil, &out)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type startAttemptRequest struct {
	DurationMinutes int `json:"duration_minutes,omitempty"`
}

// StartAttempt creates an attempt for a list. The study.Controller guards
// this behind its single-flight, so it reaches the wire at most once per
// list per session.
func (c *Client) StartAttempt(ctx context.Context, listID string, durationMinutes int) (study.Attempt, error) {
	var out study.Attempt
	err := c.do(ctx, "start attempt", http.MethodPost, "/lists/"+listID+"/attempts",
		startAttemptRequest{DurationMinutes: durationMinutes}, &out)
	return out, err
}

type submitAnswerRequest struct {
	QuestionID    string `json:"question_id"`
	AlternativeID string `json:"alternative_id"`
}

// SubmitAnswer records one answer. On practice lists the outcome is revealed
// in the response; on exam lists only acceptance is confirmed.
func (c *Client) SubmitAnswer(ctx context.Context, attemptID, questionID, alternativeID string) (study.AnswerOutcome, error) {
	var out study.AnswerOutcome
	err := c.do(ctx, "submit answer", http.MethodPost, "/attempts/"+attemptID+"/answers",
		submitAnswerRequest{QuestionID: questionID, AlternativeID: alternativeID}, &out)
	return out, err
}

// FinalizeAttempt closes the attempt and returns the score the backend
// withheld during the attempt. The backend treats a repeat call as a lookup
// of the stored result.
func (c *Client) FinalizeAttempt(ctx context.Context, attemptID string) (study.FinalResult, error) {
	var out study.FinalResult
	err := c.do(ctx, "finalize attempt", http.MethodPost, "/attempts/"+attemptID+"/finalize", nil, &out)
	return out, err
}
