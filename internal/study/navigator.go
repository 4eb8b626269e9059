package study

import (
	"sync"

	"github.com/principia-matematica/estudo/internal/logging"
)

// QuestionView is a read-only snapshot of one question's navigation state.
type QuestionView struct {
	ID      string
	Ordinal int // 1-based display position, fixed at load time
	Status  Status
	Focused bool
	Hovered bool
}

// Scroller is the UI hook JumpTo uses to bring a question into view. The
// target may not be rendered yet; implementations return an error and the
// jump still moves focus.
type Scroller interface {
	ScrollTo(questionID string) error
}

type navEntry struct {
	question Question
	ordinal  int
	status   Status
	focused  bool
	hovered  bool
}

// Navigator holds per-question navigation state for one mounted list page:
// statuses, the single focused ("viewing") question and transient hover.
// It owns no attempt identity and performs no network activity; outcomes are
// pushed into it by the lifecycle Controller.
//
// All methods are safe for concurrent use. Mutations on unknown question ids
// are logged no-ops: this is presentation state and must never take the page
// down.
type Navigator struct {
	mu       sync.Mutex
	log      *logging.Logger
	scroller Scroller
	entries  []*navEntry
	byID     map[string]*navEntry
	examMode bool
}

type NavigatorOption func(*Navigator)

func WithLogger(log *logging.Logger) NavigatorOption {
	return func(n *Navigator) { n.log = log }
}

func WithScroller(s Scroller) NavigatorOption {
	return func(n *Navigator) { n.scroller = s }
}

func NewNavigator(opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		log:  logging.Nop(),
		byID: map[string]*navEntry{},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Initialize (re)builds the status list from the server-known answers.
// Called once per list load; calling it again with identical input yields the
// identical status list and does not move an already-set focus. The first
// question receives focus only when nothing is focused yet.
func (n *Navigator) Initialize(questions []Question, submitted map[string]string, examMode bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	prevFocus := ""
	for _, e := range n.entries {
		if e.focused {
			prevFocus = e.question.ID
		}
	}

	entries := make([]*navEntry, 0, len(questions))
	byID := make(map[string]*navEntry, len(questions))
	for i, q := range questions {
		st, err := DeriveStatus(q, submitted, examMode)
		if err != nil {
			return err
		}
		e := &navEntry{question: q, ordinal: i + 1, status: st}
		entries = append(entries, e)
		byID[q.ID] = e
	}

	n.entries = entries
	n.byID = byID
	n.examMode = examMode

	if prevFocus != "" {
		if e, ok := byID[prevFocus]; ok {
			e.focused = true
			return nil
		}
	}
	if len(entries) > 0 {
		entries[0].focused = true
	}
	return nil
}

// ReportOutcome records the result of a successful answer submission.
// correct is ignored on exam-type lists, where the status is always
// "answered" until finalization; callers must not try to sidestep that by
// writing statuses directly.
func (n *Navigator) ReportOutcome(questionID string, correct bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.byID[questionID]
	if !ok {
		n.log.Warn("outcome for unknown question", "question_id", questionID)
		return
	}
	switch {
	case n.examMode:
		e.status = StatusAnswered
	case correct:
		e.status = StatusCorrect
	default:
		e.status = StatusIncorrect
	}
}

// SetFocus moves the single focus marker. No network activity.
func (n *Navigator) SetFocus(questionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.setFocusLocked(questionID)
}

func (n *Navigator) setFocusLocked(questionID string) {
	e, ok := n.byID[questionID]
	if !ok {
		n.log.Warn("focus on unknown question", "question_id", questionID)
		return
	}
	for _, other := range n.entries {
		other.focused = false
	}
	e.focused = true
}

// SetHover toggles the transient hover flag, independent of focus.
func (n *Navigator) SetHover(questionID string, hovered bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.byID[questionID]
	if !ok {
		n.log.Warn("hover on unknown question", "question_id", questionID)
		return
	}
	e.hovered = hovered
}

// JumpTo scrolls the UI to the question and focuses it. A scroll failure
// (target not mounted yet) is logged and the focus change still happens.
func (n *Navigator) JumpTo(questionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.byID[questionID]; !ok {
		n.log.Warn("jump to unknown question", "question_id", questionID)
		return
	}
	if n.scroller != nil {
		if err := n.scroller.ScrollTo(questionID); err != nil {
			n.log.Warn("scroll target not available", "question_id", questionID, "err", err)
		}
	}
	n.setFocusLocked(questionID)
}

// FocusedID returns the id of the focused question, or "" when the list is
// empty.
func (n *Navigator) FocusedID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.entries {
		if e.focused {
			return e.question.ID
		}
	}
	return ""
}

// Question returns the full question record for an id.
func (n *Navigator) Question(questionID string) (Question, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.byID[questionID]
	if !ok {
		return Question{}, false
	}
	return e.question, true
}

// Snapshot returns the current state of every question in ordinal order.
func (n *Navigator) Snapshot() []QuestionView {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]QuestionView, 0, len(n.entries))
	for _, e := range n.entries {
		out = append(out, QuestionView{
			ID:      e.question.ID,
			Ordinal: e.ordinal,
			Status:  e.status,
			Focused: e.focused,
			Hovered: e.hovered,
		})
	}
	return out
}

// Statuses returns question statuses keyed by id.
func (n *Navigator) Statuses() map[string]Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]Status, len(n.entries))
	for _, e := range n.entries {
		out[e.question.ID] = e.status
	}
	return out
}
