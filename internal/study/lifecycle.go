package study

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/principia-matematica/estudo/internal/logging"
)

// ErrSubmitInFlight is returned when an answer for a question is submitted
// while an earlier submission for that same question is still pending.
var ErrSubmitInFlight = errors.New("submission already in flight for this question")

// ErrFinalized is returned when an answer is submitted after the attempt was
// finalized.
var ErrFinalized = errors.New("attempt already finalized")

// AttemptAPI is the slice of the backend the Controller needs. The real
// implementation lives in internal/api.
type AttemptAPI interface {
	AttemptForList(ctx context.Context, listID string) (*Attempt, error)
	StartAttempt(ctx context.Context, listID string, durationMinutes int) (Attempt, error)
	SubmitAnswer(ctx context.Context, attemptID, questionID, alternativeID string) (AnswerOutcome, error)
	FinalizeAttempt(ctx context.Context, attemptID string) (FinalResult, error)
}

// OutcomeSink receives per-question outcomes after successful submissions.
// *Navigator satisfies it.
type OutcomeSink interface {
	ReportOutcome(questionID string, correct bool)
}

// Controller mediates between the question UI and the backend attempt
// endpoints. It exclusively owns attempt identity: the attempt is created
// lazily on the first answer, exactly once per list per session, and
// finalization is a one-way transition.
type Controller struct {
	api  AttemptAPI
	sink OutcomeSink
	log  *logging.Logger

	listID          string
	durationMinutes int // 0 for untimed attempts

	start singleflight.Group

	mu        sync.Mutex
	attempt   *Attempt
	result    *FinalResult
	inFlight  map[string]bool // question id -> submit pending
	finalized bool
}

type ControllerOption func(*Controller)

func WithControllerLogger(log *logging.Logger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

// WithDuration selects a timed attempt; minutes is forwarded to the backend
// when the attempt is created.
func WithDuration(minutes int) ControllerOption {
	return func(c *Controller) { c.durationMinutes = minutes }
}

func NewController(api AttemptAPI, sink OutcomeSink, listID string, opts ...ControllerOption) *Controller {
	c := &Controller{
		api:      api,
		sink:     sink,
		log:      logging.Nop(),
		listID:   listID,
		inFlight: map[string]bool{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Resume seeds the controller with an attempt already known to the backend
// (fetched at page load). A finalized attempt puts the controller straight
// into the read-only state.
func (c *Controller) Resume(a Attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := a
	if cp.SavedAnswers == nil {
		cp.SavedAnswers = map[string]string{}
	}
	c.attempt = &cp
	c.finalized = a.Status == AttemptFinalized
}

// Attempt returns a copy of the current attempt, or nil before the first
// answer.
func (c *Controller) Attempt() *Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt == nil {
		return nil
	}
	cp := *c.attempt
	cp.SavedAnswers = make(map[string]string, len(c.attempt.SavedAnswers))
	for k, v := range c.attempt.SavedAnswers {
		cp.SavedAnswers[k] = v
	}
	return &cp
}

// Finalized reports whether the attempt reached its terminal state.
func (c *Controller) Finalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalized
}

// EnsureAttemptStarted returns the attempt id, creating the attempt on the
// backend if this session has none yet. Concurrent callers collapse into a
// single start-attempt request and all receive the same id.
func (c *Controller) EnsureAttemptStarted(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.attempt != nil {
		id := c.attempt.ID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	v, err, _ := c.start.Do(c.listID, func() (interface{}, error) {
		// Re-check under the flight: a Resume may have landed meanwhile.
		c.mu.Lock()
		if c.attempt != nil {
			id := c.attempt.ID
			c.mu.Unlock()
			return id, nil
		}
		c.mu.Unlock()

		a, err := c.api.StartAttempt(ctx, c.listID, c.durationMinutes)
		if err != nil {
			return "", err
		}
		if a.SavedAnswers == nil {
			a.SavedAnswers = map[string]string{}
		}
		c.mu.Lock()
		c.attempt = &a
		c.mu.Unlock()
		c.log.Info("attempt started", "list_id", c.listID, "attempt_id", a.ID)
		return a.ID, nil
	})
	if err != nil {
		return "", fmt.Errorf("start attempt: %w", err)
	}
	return v.(string), nil
}

// SubmitAnswer sends one answer to the backend and, on success, records it
// locally and pushes the outcome into the sink. On failure nothing changes
// client-side: the question stays unanswered and the caller may retry.
//
// A second submission for the same question while the first is pending is
// rejected with ErrSubmitInFlight. Submissions for different questions may
// proceed concurrently.
func (c *Controller) SubmitAnswer(ctx context.Context, questionID, alternativeID string) (AnswerOutcome, error) {
	c.mu.Lock()
	if c.finalized {
		c.mu.Unlock()
		return AnswerOutcome{}, ErrFinalized
	}
	if c.inFlight[questionID] {
		c.mu.Unlock()
		return AnswerOutcome{}, ErrSubmitInFlight
	}
	c.inFlight[questionID] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, questionID)
		c.mu.Unlock()
	}()

	attemptID, err := c.EnsureAttemptStarted(ctx)
	if err != nil {
		return AnswerOutcome{}, err
	}

	out, err := c.api.SubmitAnswer(ctx, attemptID, questionID, alternativeID)
	if err != nil {
		c.log.Warn("submit failed", "question_id", questionID, "err", err)
		return AnswerOutcome{}, fmt.Errorf("submit answer: %w", err)
	}

	c.mu.Lock()
	if c.attempt != nil {
		c.attempt.SavedAnswers[questionID] = alternativeID
	}
	c.mu.Unlock()

	if c.sink != nil {
		c.sink.ReportOutcome(questionID, out.IsCorrect)
	}
	return out, nil
}

// Finalize closes the attempt and returns the final score. Once finalized,
// calling it again returns the stored result without another request:
// finalize is idempotent from the caller's perspective. On failure the
// attempt stays active and the action is retryable.
func (c *Controller) Finalize(ctx context.Context) (FinalResult, error) {
	c.mu.Lock()
	if c.finalized {
		var r FinalResult
		if c.result != nil {
			r = *c.result
		}
		c.mu.Unlock()
		return r, nil
	}
	if c.attempt == nil {
		c.mu.Unlock()
		return FinalResult{}, errors.New("no attempt to finalize")
	}
	attemptID := c.attempt.ID
	c.mu.Unlock()

	res, err := c.api.FinalizeAttempt(ctx, attemptID)
	if err != nil {
		return FinalResult{}, fmt.Errorf("finalize attempt: %w", err)
	}

	c.mu.Lock()
	c.finalized = true
	c.result = &res
	if c.attempt != nil {
		c.attempt.Status = AttemptFinalized
	}
	c.mu.Unlock()
	c.log.Info("attempt finalized", "attempt_id", attemptID, "score", res.FinalScore)
	return res, nil
}
