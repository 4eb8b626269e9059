// Package study renders one question list: the question pane on the left, a
// status sidebar on the right, and the attempt clock. Navigation state lives
// in study.Navigator, attempt state in study.Controller; this view only
// translates key presses and scroll position into calls on them.
package study

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	bviewport "github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/principia-matematica/estudo/internal/api"
	"github.com/principia-matematica/estudo/internal/study"
	"github.com/principia-matematica/estudo/internal/ui/theme"
	vpsync "github.com/principia-matematica/estudo/internal/viewport"
)

// Port is the backend slice this view needs: the attempt lifecycle plus the
// list fetch. *api.Client satisfies it.
type Port interface {
	study.AttemptAPI
	ListQuestions(ctx context.Context, listID string) (api.ListWithQuestions, error)
}

// Prefs persists the timer visibility toggle across sessions;
// localdata.Store satisfies it.
type Prefs interface {
	TimerVisible() bool
	SetTimerVisible(visible bool)
}

// LoadedMsg delivers the list, its questions and any pre-existing attempt.
type LoadedMsg struct {
	Payload api.ListWithQuestions
	Attempt *study.Attempt
	Err     error
}

// ClosedMsg bubbles to the app when the learner leaves the list.
type ClosedMsg struct{}

type submittedMsg struct {
	questionID string
	outcome    study.AnswerOutcome
	err        error
}

type finalizedMsg struct {
	result study.FinalResult
	err    error
}

type tickMsg struct{}

type phase int

const (
	phaseLoading phase = iota
	phaseDuration
	phaseStudying
	phaseFinished
)

var durationChoices = []int{30, 60, 90, 120}

// KeyBindings are the rebindable study keys. The answer letters (a–e) and
// the ordinal digits are fixed: they mirror the alternatives on screen.
type KeyBindings struct {
	Next     key.Binding
	Prev     key.Binding
	Finalize key.Binding
	Timer    key.Binding
	Back     key.Binding
}

func DefaultKeys() KeyBindings {
	return KeyBindings{
		Next:     key.NewBinding(key.WithKeys("j", "down")),
		Prev:     key.NewBinding(key.WithKeys("k", "up")),
		Finalize: key.NewBinding(key.WithKeys("f")),
		Timer:    key.NewBinding(key.WithKeys("t")),
		Back:     key.NewBinding(key.WithKeys("esc")),
	}
}

type Option func(*Model)

func WithKeys(k KeyBindings) Option {
	return func(m *Model) { m.keys = k }
}

// scrollRequest carries the Navigator's scroll callback out of its lock and
// into the next Update pass. Bubble Tea models are value types, so the
// shared pointer is the only channel back into the viewport.
type scrollRequest struct {
	mu     sync.Mutex
	target string
	set    bool
}

func (s *scrollRequest) ScrollTo(questionID string) error {
	s.mu.Lock()
	s.target, s.set = questionID, true
	s.mu.Unlock()
	return nil
}

func (s *scrollRequest) take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.target, s.set
	s.target, s.set = "", false
	return t, ok
}

type Model struct {
	port  Port
	prefs Prefs
	keys  KeyBindings

	listID string
	name   string

	phase     phase
	lst       study.List
	questions []study.Question

	nav     *study.Navigator
	ctrl    *study.Controller
	timer   *study.Timer
	synchro *vpsync.Synchronizer
	scroll  *scrollRequest

	vp      bviewport.Model
	spinner spinner.Model
	boxes   []vpsync.Box
	tops    map[string]int

	timerVisible    bool
	banner          string
	result          *study.FinalResult
	confirmFinalize bool
	durIdx          int

	width  int
	height int
}

func New(port Port, prefs Prefs, listID, name string, opts ...Option) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Blue)

	visible := true
	if prefs != nil {
		visible = prefs.TimerVisible()
	}
	m := Model{
		port:         port,
		prefs:        prefs,
		keys:         DefaultKeys(),
		listID:       listID,
		name:         name,
		phase:        phaseLoading,
		vp:           bviewport.New(0, 0),
		spinner:      sp,
		scroll:       &scrollRequest{},
		tops:         map[string]int{},
		timerVisible: visible,
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		if m.phase >= phaseStudying {
			m.rerender()
		}

	case LoadedMsg:
		return m.onLoaded(msg)

	case submittedMsg:
		m.onSubmitted(msg)

	case finalizedMsg:
		if msg.err != nil {
			m.banner = retryBanner("não foi possível finalizar", msg.err)
			break
		}
		res := msg.result
		m.result = &res
		m.phase = phaseFinished
		if m.timer != nil {
			m.timer.Freeze()
		}
		// The sidebar in exam mode only learns real correctness now.
		m.rerender()

	case tickMsg:
		if m.phase == phaseStudying || m.phase == phaseLoading {
			cmds = append(cmds, tickCmd())
		}

	case spinner.TickMsg:
		if m.phase == phaseLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		model, cmd, handled := m.onKey(msg)
		if handled {
			return model, cmd
		}
		m = model
	}

	if m.phase == phaseStudying || m.phase == phaseFinished {
		before := m.vp.YOffset
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		cmds = append(cmds, cmd)
		if m.vp.YOffset != before && m.synchro != nil {
			if _, moved := m.synchro.Observe(float64(m.vp.YOffset), float64(m.vp.Height), m.boxes); moved {
				m.rerender()
			}
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) onLoaded(msg LoadedMsg) (Model, tea.Cmd) {
	if msg.Err != nil {
		m.banner = retryBanner("não foi possível carregar a lista", msg.Err)
		return m, nil
	}
	m.lst = msg.Payload.List
	m.questions = msg.Payload.Questions

	m.nav = study.NewNavigator(study.WithScroller(m.scroll))
	m.synchro = vpsync.New(m.nav)

	submitted := map[string]string{}
	if msg.Attempt != nil {
		submitted = msg.Attempt.SavedAnswers
	}
	if err := m.nav.Initialize(m.questions, submitted, m.lst.Type.Exam()); err != nil {
		m.banner = err.Error()
		return m, nil
	}

	switch {
	case msg.Attempt != nil:
		m.ctrl = study.NewController(m.port, m.nav, m.listID,
			study.WithDuration(msg.Attempt.ChosenDurationMinutes))
		m.ctrl.Resume(*msg.Attempt)
		m.timer = study.NewTimer(msg.Attempt.StartedAt, msg.Attempt.ChosenDurationMinutes, nil)
		if msg.Attempt.Status == study.AttemptFinalized {
			m.phase = phaseFinished
			m.banner = "tentativa já finalizada — somente leitura"
		} else {
			m.phase = phaseStudying
		}
	case m.lst.Type.Exam():
		m.phase = phaseDuration
	default:
		m.ctrl = study.NewController(m.port, m.nav, m.listID)
		m.phase = phaseStudying
	}
	m.rerender()
	return m, nil
}

func (m *Model) onSubmitted(msg submittedMsg) {
	switch {
	case msg.err == nil:
		m.banner = ""
		if m.timer == nil {
			// First answer created the attempt; the clock starts with it.
			if a := m.ctrl.Attempt(); a != nil {
				m.timer = study.NewTimer(a.StartedAt, a.ChosenDurationMinutes, nil)
			}
		}
		m.rerender()
	case errors.Is(msg.err, study.ErrSubmitInFlight):
		m.banner = "envio em andamento para esta questão — aguarde"
	case errors.Is(msg.err, study.ErrFinalized):
		m.banner = "tentativa já finalizada"
	default:
		m.banner = retryBanner("não foi possível enviar a resposta", msg.err)
	}
}

// onKey handles the study-specific bindings; handled=false lets the message
// fall through to the viewport for plain scrolling.
func (m Model) onKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	pressed := msg.String()

	if m.phase == phaseDuration {
		switch {
		case key.Matches(msg, m.keys.Next):
			m.durIdx = (m.durIdx + 1) % len(durationChoices)
		case key.Matches(msg, m.keys.Prev):
			m.durIdx = (m.durIdx + len(durationChoices) - 1) % len(durationChoices)
		case pressed == "enter":
			m.ctrl = study.NewController(m.port, m.nav, m.listID,
				study.WithDuration(durationChoices[m.durIdx]))
			m.phase = phaseStudying
			m.rerender()
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return ClosedMsg{} }, true
		}
		return m, nil, true
	}

	if m.confirmFinalize {
		m.confirmFinalize = false
		if key.Matches(msg, m.keys.Finalize) || pressed == "y" {
			return m, m.finalizeCmd(), true
		}
		m.banner = ""
		return m, nil, true
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return ClosedMsg{} }, true

	case key.Matches(msg, m.keys.Next):
		m.jumpRelative(1)
		return m, nil, true

	case key.Matches(msg, m.keys.Prev):
		m.jumpRelative(-1)
		return m, nil, true

	case key.Matches(msg, m.keys.Timer):
		m.timerVisible = !m.timerVisible
		if m.prefs != nil {
			m.prefs.SetTimerVisible(m.timerVisible)
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Finalize):
		if m.phase != phaseStudying || m.ctrl == nil || m.ctrl.Attempt() == nil {
			return m, nil, true
		}
		left := m.unansweredCount()
		m.confirmFinalize = true
		if left > 0 {
			m.banner = fmt.Sprintf("%d questão(ões) sem resposta — %s confirma, qualquer tecla cancela", left, keyLabel(m.keys.Finalize))
		} else {
			m.banner = fmt.Sprintf("finalizar tentativa? %s confirma, qualquer tecla cancela", keyLabel(m.keys.Finalize))
		}
		return m, nil, true
	}

	switch pressed {
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.jumpOrdinal(int(pressed[0] - '0'))
		return m, nil, true
	case "a", "b", "c", "d", "e":
		if m.phase != phaseStudying || m.ctrl == nil {
			return m, nil, true
		}
		return m, m.answerCmd(int(pressed[0] - 'a')), true
	}
	return m, nil, false
}

func keyLabel(b key.Binding) string {
	if ks := b.Keys(); len(ks) > 0 {
		return ks[0]
	}
	return "?"
}

/* ---------------- navigation ---------------- */

func (m *Model) jumpRelative(delta int) {
	if m.nav == nil {
		return
	}
	views := m.nav.Snapshot()
	if len(views) == 0 {
		return
	}
	idx := 0
	for i, v := range views {
		if v.Focused {
			idx = i
		}
	}
	idx += delta
	if idx < 0 || idx >= len(views) {
		return
	}
	m.jumpTo(views[idx].ID)
}

func (m *Model) jumpOrdinal(n int) {
	if m.nav == nil {
		return
	}
	for _, v := range m.nav.Snapshot() {
		if v.Ordinal == n {
			m.jumpTo(v.ID)
			return
		}
	}
}

func (m *Model) jumpTo(id string) {
	m.synchro.NoteJump(id)
	m.nav.JumpTo(id)
	if target, ok := m.scroll.take(); ok {
		m.centerOn(target)
	}
	m.rerender()
}

func (m *Model) centerOn(id string) {
	top, ok := m.tops[id]
	if !ok {
		return
	}
	offset := top - m.vp.Height/3
	if offset < 0 {
		offset = 0
	}
	m.vp.SetYOffset(offset)
}

/* ---------------- async ---------------- */

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		payload, err := m.port.ListQuestions(ctx, m.listID)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		attempt, err := m.port.AttemptForList(ctx, m.listID)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		return LoadedMsg{Payload: payload, Attempt: attempt}
	}
}

func (m Model) answerCmd(altIdx int) tea.Cmd {
	id := m.nav.FocusedID()
	q, ok := m.nav.Question(id)
	if !ok || altIdx >= len(q.Alternatives) {
		return nil
	}
	altID := q.Alternatives[altIdx].ID
	ctrl := m.ctrl
	return func() tea.Msg {
		out, err := ctrl.SubmitAnswer(context.Background(), id, altID)
		return submittedMsg{questionID: id, outcome: out, err: err}
	}
}

func (m Model) finalizeCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		res, err := ctrl.Finalize(context.Background())
		return finalizedMsg{result: res, err: err}
	}
}

/* ---------------- rendering ---------------- */

func (m Model) View() string {
	switch m.phase {
	case phaseLoading:
		body := m.spinner.View() + " carregando " + m.name + "…"
		if m.banner != "" {
			body = theme.Banner.Render(m.banner)
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	case phaseDuration:
		return m.viewDurationPrompt()
	}

	header := m.viewHeader()
	sidebar := m.viewSidebar()
	pane := theme.Pane.Width(m.paneWidth()).Render(m.vp.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, pane, sidebar)

	parts := []string{header, body}
	if m.banner != "" {
		parts = append(parts, theme.Banner.Width(m.width).Render(m.banner))
	}
	if m.result != nil {
		parts = append(parts, m.viewResult())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewDurationPrompt() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(m.name) + "\n\n")
	sb.WriteString("Escolha a duração da prova:\n\n")
	for i, d := range durationChoices {
		line := fmt.Sprintf("  %d minutos", d)
		if i == m.durIdx {
			line = theme.Accent.Render("▶" + line[1:])
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n" + theme.Muted.Render("enter confirma · esc volta"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}

func (m Model) viewHeader() string {
	left := theme.Title.Render(m.name)
	right := ""
	if m.timerVisible && m.timer != nil {
		snap := m.timer.Snapshot()
		switch {
		case snap.Timed && snap.Overtime:
			right = theme.Incorrect.Render("tempo " + study.FormatClock(snap.Remaining))
		case snap.Timed:
			right = theme.Accent.Render("tempo " + study.FormatClock(snap.Remaining))
		default:
			right = theme.Muted.Render("decorrido " + study.FormatClock(snap.Elapsed))
		}
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) viewSidebar() string {
	if m.nav == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(theme.Muted.Render("questões") + "\n")
	for _, v := range m.nav.Snapshot() {
		marker := "  "
		if v.Focused {
			marker = theme.Accent.Render("▶ ")
		}
		sb.WriteString(fmt.Sprintf("%s%2d %s\n", marker, v.Ordinal, statusGlyph(v.Status)))
	}
	return theme.Pane.Render(sb.String())
}

func (m Model) viewResult() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(fmt.Sprintf("Nota final: %.1f", m.result.FinalScore)))
	for topic, frac := range m.result.Breakdown {
		sb.WriteString(fmt.Sprintf("  ·  %s %.0f%%", topic, frac*100))
	}
	return sb.String()
}

func statusGlyph(st study.Status) string {
	switch st {
	case study.StatusCorrect:
		return theme.Correct.Render("✔")
	case study.StatusIncorrect:
		return theme.Incorrect.Render("✘")
	case study.StatusAnswered:
		return theme.Answered.Render("●")
	default:
		return theme.Unanswered.Render("○")
	}
}

func (m Model) paneWidth() int {
	w := m.width - 12
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) resize() {
	m.vp.Width = m.paneWidth() - 4
	m.vp.Height = m.height - 5
	if m.vp.Height < 3 {
		m.vp.Height = 3
	}
}

// rerender rebuilds the question document and the box geometry the scroll
// synchronizer reads. Tops are line offsets in document coordinates.
func (m *Model) rerender() {
	if m.nav == nil {
		return
	}
	statuses := m.nav.Statuses()
	answers := map[string]string{}
	if m.ctrl != nil {
		if a := m.ctrl.Attempt(); a != nil {
			answers = a.SavedAnswers
		}
	}

	var (
		blocks []string
		boxes  []vpsync.Box
		tops   = map[string]int{}
		line   int
	)
	for _, v := range m.nav.Snapshot() {
		q, _ := m.nav.Question(v.ID)
		block := m.renderQuestion(q, v, statuses[v.ID], answers[q.ID])
		h := lipgloss.Height(block)
		tops[q.ID] = line
		boxes = append(boxes, vpsync.Box{ID: q.ID, Top: float64(line), Height: float64(h)})
		blocks = append(blocks, block)
		line += h + 1 // blank separator
	}
	m.boxes = boxes
	m.tops = tops
	m.vp.SetContent(strings.Join(blocks, "\n\n"))
}

func (m Model) renderQuestion(q study.Question, v study.QuestionView, st study.Status, chosen string) string {
	w := m.vp.Width
	if w < 20 {
		w = 20
	}
	var sb strings.Builder

	title := fmt.Sprintf("Questão %d", v.Ordinal)
	if v.Focused {
		title = "▶ " + title
	}
	sb.WriteString(theme.Title.Render(title) + " " + statusGlyph(st) + "\n")

	var meta []string
	if q.Source.Board != "" {
		src := fmt.Sprintf("%s %d", q.Source.Board, q.Source.Year)
		if q.Source.Code != "" {
			src += " · " + q.Source.Code
		}
		if q.Adapted {
			src += " · adaptada"
		}
		meta = append(meta, src)
	}
	if q.Difficulty > 0 {
		meta = append(meta, "dificuldade "+strings.Repeat("★", q.Difficulty)+
			strings.Repeat("☆", 5-q.Difficulty))
	}
	if len(meta) > 0 {
		sb.WriteString(theme.Muted.Render(strings.Join(meta, "  ·  ")) + "\n")
	}

	sb.WriteString(lipgloss.NewStyle().Width(w).Render(q.Statement) + "\n")

	for _, alt := range q.Alternatives {
		prefix := "   "
		line := fmt.Sprintf("%s) %s", strings.ToLower(alt.Letter), alt.Text)
		switch {
		case alt.ID == chosen && st == study.StatusCorrect:
			line = theme.Correct.Render(line)
			prefix = " ✔ "
		case alt.ID == chosen && st == study.StatusIncorrect:
			line = theme.Incorrect.Render(line)
			prefix = " ✘ "
		case alt.ID == chosen:
			line = theme.Answered.Render(line)
			prefix = " ● "
		case st == study.StatusIncorrect && alt.ID == q.CorrectAlternativeID:
			line = theme.Correct.Render(line)
		}
		sb.WriteString(prefix + line + "\n")
	}

	if q.Explanation != "" && !m.lst.Type.Exam() &&
		(st == study.StatusCorrect || st == study.StatusIncorrect) {
		sb.WriteString(theme.Muted.Render("↳ "+q.Explanation) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) unansweredCount() int {
	n := 0
	for _, st := range m.nav.Statuses() {
		if st == study.StatusUnanswered {
			n++
		}
	}
	return n
}

func retryBanner(prefix string, err error) string {
	if errors.Is(err, api.ErrSessionExpired) {
		return prefix + ": sessão expirada — entre novamente com `principia login`"
	}
	if api.IsRetryable(err) {
		return prefix + ": " + err.Error() + " (tente de novo)"
	}
	return prefix + ": " + err.Error()
}
