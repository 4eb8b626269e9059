package study

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/principia-matematica/estudo/internal/api"
	"github.com/principia-matematica/estudo/internal/study"
)

type fakePort struct {
	payload api.ListWithQuestions
	attempt *study.Attempt
	starts  int
	submits int
}

func (f *fakePort) ListQuestions(ctx context.Context, listID string) (api.ListWithQuestions, error) {
	return f.payload, nil
}

func (f *fakePort) AttemptForList(ctx context.Context, listID string) (*study.Attempt, error) {
	return f.attempt, nil
}

func (f *fakePort) StartAttempt(ctx context.Context, listID string, durationMinutes int) (study.Attempt, error) {
	f.starts++
	return study.Attempt{
		ID:                    "att-1",
		ListID:                listID,
		StartedAt:             time.Now(),
		ChosenDurationMinutes: durationMinutes,
		Status:                study.AttemptActive,
		SavedAnswers:          map[string]string{},
	}, nil
}

func (f *fakePort) SubmitAnswer(ctx context.Context, attemptID, questionID, alternativeID string) (study.AnswerOutcome, error) {
	f.submits++
	correct := alternativeID == "alt-a"
	return study.AnswerOutcome{
		Accepted: true, Revealed: true,
		IsCorrect: correct, CorrectAlternativeID: "alt-a",
	}, nil
}

func (f *fakePort) FinalizeAttempt(ctx context.Context, attemptID string) (study.FinalResult, error) {
	return study.FinalResult{FinalScore: 1}, nil
}

func twoQuestions() []study.Question {
	alts := []study.Alternative{
		{ID: "alt-a", Letter: "A", Text: "certa"},
		{ID: "alt-b", Letter: "B", Text: "errada"},
	}
	return []study.Question{
		{ID: "q1", Statement: "Primeira questão", Alternatives: alts, CorrectAlternativeID: "alt-a"},
		{ID: "q2", Statement: "Segunda questão", Alternatives: alts, CorrectAlternativeID: "alt-a"},
	}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func loadedPractice(t *testing.T, port *fakePort) Model {
	t.Helper()
	port.payload = api.ListWithQuestions{
		List:      study.List{ID: "lista-1", Name: "Lista 1", Type: study.ListPractica},
		Questions: twoQuestions(),
	}
	m := New(port, nil, "lista-1", "Lista 1")
	msg := m.loadCmd()()
	m, _ = m.Update(msg)
	if m.phase != phaseStudying {
		t.Fatalf("phase = %d after load", m.phase)
	}
	return m
}

func TestLoadFocusesFirstQuestion(t *testing.T) {
	m := loadedPractice(t, &fakePort{})
	if got := m.nav.FocusedID(); got != "q1" {
		t.Fatalf("focus = %q, want q1", got)
	}
	if len(m.boxes) != 2 || m.boxes[0].Top != 0 || m.boxes[1].Top <= m.boxes[0].Height {
		t.Fatalf("boxes = %+v", m.boxes)
	}
}

func TestNextPrevMoveFocus(t *testing.T) {
	m := loadedPractice(t, &fakePort{})
	m, _ = m.Update(keyPress('j'))
	if got := m.nav.FocusedID(); got != "q2" {
		t.Fatalf("focus after j = %q", got)
	}
	// Past the end stays put.
	m, _ = m.Update(keyPress('j'))
	if got := m.nav.FocusedID(); got != "q2" {
		t.Fatalf("focus after second j = %q", got)
	}
	m, _ = m.Update(keyPress('k'))
	if got := m.nav.FocusedID(); got != "q1" {
		t.Fatalf("focus after k = %q", got)
	}
}

func TestOrdinalJump(t *testing.T) {
	m := loadedPractice(t, &fakePort{})
	m, _ = m.Update(keyPress('2'))
	if got := m.nav.FocusedID(); got != "q2" {
		t.Fatalf("focus after 2 = %q", got)
	}
}

func TestAnswerUpdatesStatus(t *testing.T) {
	port := &fakePort{}
	m := loadedPractice(t, port)

	m, cmd := m.Update(keyPress('b'))
	if cmd == nil {
		t.Fatal("answer key produced no command")
	}
	m, _ = m.Update(cmd())

	if port.starts != 1 {
		t.Fatalf("starts = %d, want lazy start exactly once", port.starts)
	}
	if got := m.nav.Statuses()["q1"]; got != study.StatusIncorrect {
		t.Fatalf("status = %s, want incorreta", got)
	}
	if m.timer == nil {
		t.Fatal("timer not created after first answer")
	}

	// Second answer on the other question reuses the attempt.
	m, _ = m.Update(keyPress('j'))
	m, cmd = m.Update(keyPress('a'))
	m, _ = m.Update(cmd())
	if port.starts != 1 {
		t.Fatalf("starts = %d after second answer", port.starts)
	}
	if got := m.nav.Statuses()["q2"]; got != study.StatusCorrect {
		t.Fatalf("status = %s, want correta", got)
	}
}

func TestExamListPromptsForDuration(t *testing.T) {
	port := &fakePort{payload: api.ListWithQuestions{
		List:      study.List{ID: "prova-1", Name: "Prova", Type: study.ListProva},
		Questions: twoQuestions(),
	}}
	m := New(port, nil, "prova-1", "Prova")
	m, _ = m.Update(m.loadCmd()())
	if m.phase != phaseDuration {
		t.Fatalf("phase = %d, want duration prompt", m.phase)
	}

	// Pick the second option (60 min) and confirm.
	m, _ = m.Update(keyPress('j'))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.phase != phaseStudying {
		t.Fatalf("phase = %d after enter", m.phase)
	}

	m, cmd := m.Update(keyPress('a'))
	m, _ = m.Update(cmd())
	if a := m.ctrl.Attempt(); a == nil || a.ChosenDurationMinutes != 60 {
		t.Fatalf("attempt = %+v, want 60 minutes", m.ctrl.Attempt())
	}
}

func TestResumedFinalizedAttemptIsReadOnly(t *testing.T) {
	port := &fakePort{attempt: &study.Attempt{
		ID: "att-9", ListID: "lista-1", StartedAt: time.Now().Add(-time.Hour),
		Status: study.AttemptFinalized, SavedAnswers: map[string]string{"q1": "alt-a"},
	}}
	port.payload = api.ListWithQuestions{
		List:      study.List{ID: "lista-1", Name: "Lista 1", Type: study.ListPractica},
		Questions: twoQuestions(),
	}
	m := New(port, nil, "lista-1", "Lista 1")
	m, _ = m.Update(m.loadCmd()())
	if m.phase != phaseFinished {
		t.Fatalf("phase = %d, want finished", m.phase)
	}
	if got := m.nav.Statuses()["q1"]; got != study.StatusCorrect {
		t.Fatalf("restored status = %s", got)
	}
	// Answer keys do nothing once finished.
	if _, cmd := m.Update(keyPress('b')); cmd != nil {
		t.Fatal("answer accepted on finalized attempt")
	}
	if port.submits != 0 {
		t.Fatalf("submits = %d", port.submits)
	}
}

func TestFinalizeNeedsConfirmation(t *testing.T) {
	port := &fakePort{}
	m := loadedPractice(t, port)
	m, cmd := m.Update(keyPress('a'))
	m, _ = m.Update(cmd())

	m, _ = m.Update(keyPress('f'))
	if !m.confirmFinalize {
		t.Fatal("no confirmation asked")
	}
	// Any other key cancels.
	m, _ = m.Update(keyPress('x'))
	if m.confirmFinalize || m.phase != phaseStudying {
		t.Fatal("cancel did not keep the attempt open")
	}

	m, _ = m.Update(keyPress('f'))
	m, cmd = m.Update(keyPress('f'))
	if cmd == nil {
		t.Fatal("confirm produced no command")
	}
	m, _ = m.Update(cmd())
	if m.phase != phaseFinished || m.result == nil || m.result.FinalScore != 1 {
		t.Fatalf("phase = %d result = %+v", m.phase, m.result)
	}
}
