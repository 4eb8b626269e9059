// Package app is the root Bubble Tea model: tab routing between the course
// browser and the study view, the gamification status bar, and the global
// key bindings. Business logic stays behind the port interfaces.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/principia-matematica/estudo/internal/api"
	"github.com/principia-matematica/estudo/internal/ui/theme"
	coursesview "github.com/principia-matematica/estudo/internal/ui/views/courses"
	studyview "github.com/principia-matematica/estudo/internal/ui/views/study"
)

type gamifyPort interface {
	Profile(ctx context.Context) (api.Profile, error)
	CheckIn(ctx context.Context) (api.CheckInResult, error)
}

// CheckinMarker is the local same-day guard; localdata.Store satisfies it.
// It only suppresses redundant requests: the server stays authoritative.
type CheckinMarker interface {
	CheckedInToday(now time.Time) bool
	MarkCheckedIn(now time.Time)
}

type tabID int

const (
	tabCourses tabID = iota
	tabStudy
	tabCount
)

var tabLabels = [tabCount]string{"Cursos", "Estudo"}

type checkedInMsg struct {
	result api.CheckInResult
	err    error
}

type profileMsg struct {
	profile api.Profile
	err     error
}

type Model struct {
	keys     keyMap
	help     help.Model
	showHelp bool

	coursesView coursesview.Model
	studyView   studyview.Model
	studyOpen   bool

	gamify    gamifyPort
	marker    CheckinMarker
	studyPort studyview.Port
	prefs     studyview.Prefs
	clock     func() time.Time

	activeTab       tabID
	initialListID   string
	initialListName string
	profile         api.Profile
	status          string
	width           int
	height          int
}

type Option func(*Model)

// WithInitialList opens straight into a question list, skipping the course
// browser. Used by `principia study <listID>`.
func WithInitialList(listID, name string) Option {
	return func(m *Model) {
		m.initialListID = listID
		m.initialListName = name
	}
}

func NewModel(catalog coursesview.Port, studyPort studyview.Port, gamify gamifyPort,
	marker CheckinMarker, prefs studyview.Prefs, keymapPath string, opts ...Option) (Model, error) {
	keys, err := loadKeymap(keymapPath)
	if err != nil {
		return Model{}, err
	}
	m := Model{
		keys:        keys,
		help:        help.New(),
		coursesView: coursesview.New(catalog),
		gamify:      gamify,
		marker:      marker,
		studyPort:   studyPort,
		prefs:       prefs,
		clock:       time.Now,
		activeTab:   tabCourses,
		status:      "pronto",
	}
	for _, o := range opts {
		o(&m)
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.coursesView.Init(), m.loadProfileCmd()}
	if m.initialListID != "" {
		listID, name := m.initialListID, m.initialListName
		if name == "" {
			name = listID
		}
		cmds = append(cmds, func() tea.Msg {
			return coursesview.OpenListMsg{ListID: listID, Name: name}
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	case profileMsg:
		if msg.err == nil {
			m.profile = msg.profile
		}

	case checkedInMsg:
		if msg.err != nil {
			m.status = "check-in falhou: " + msg.err.Error()
			break
		}
		if m.marker != nil {
			m.marker.MarkCheckedIn(m.clock())
		}
		m.profile.StreakDays = msg.result.StreakDays
		if msg.result.AlreadyChecked {
			m.status = "check-in já registrado hoje"
		} else {
			m.status = fmt.Sprintf("check-in feito — sequência de %d dias", msg.result.StreakDays)
		}

	case coursesview.OpenListMsg:
		m.studyView = studyview.New(m.studyPort, m.prefs, msg.ListID, msg.Name,
			studyview.WithKeys(studyview.KeyBindings{
				Next:     m.keys.Next,
				Prev:     m.keys.Prev,
				Finalize: m.keys.Finalize,
				Timer:    m.keys.Timer,
				Back:     m.keys.Back,
			}))
		m.studyOpen = true
		m.activeTab = tabStudy
		m.propagateSize()
		return m, m.studyView.Init()

	case studyview.ClosedMsg:
		m.studyOpen = false
		m.activeTab = tabCourses
		// The attempt may have changed scores; refresh the bar.
		return m, m.loadProfileCmd()

	case tea.KeyMsg:
		if m.showHelp {
			if key.Matches(msg, m.keys.Help, m.keys.Back) {
				m.showHelp = false
			}
			return m, nil
		}
		if m.activeTab == tabCourses && m.coursesView.Filtering() {
			break
		}
		switch {
		case msg.String() == "ctrl+c":
			return m, tea.Quit
		case key.Matches(msg, m.keys.Quit) && m.activeTab == tabCourses:
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			if m.studyOpen {
				m.activeTab = (m.activeTab + 1) % tabCount
			}
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
			return m, nil
		case key.Matches(msg, m.keys.CheckIn) && m.activeTab == tabCourses:
			return m, m.checkInCmd()
		}
	}

	// Route the message to the active view; async results go to whichever
	// view produced them regardless of the visible tab.
	switch msg.(type) {
	case coursesview.CoursesLoadedMsg, coursesview.CourseLoadedMsg, coursesview.VideoMarkedMsg:
		var cmd tea.Cmd
		m.coursesView, cmd = m.coursesView.Update(msg)
		return m, cmd
	case studyview.LoadedMsg:
		if m.studyOpen {
			var cmd tea.Cmd
			m.studyView, cmd = m.studyView.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.activeTab == tabStudy && m.studyOpen {
		var cmd tea.Cmd
		m.studyView, cmd = m.studyView.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		var cmd tea.Cmd
		m.coursesView, cmd = m.coursesView.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	contentH := m.height - lipgloss.Height(tabBar) - lipgloss.Height(statusBar)
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.activeTab == tabStudy && m.studyOpen:
		content = m.studyView.View()
	default:
		content = m.coursesView.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) renderTabBar() string {
	parts := make([]string, 0, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		if i == tabStudy && !m.studyOpen {
			continue
		}
		label := " " + tabLabels[i] + " "
		if i == m.activeTab {
			parts = append(parts, theme.Accent.Render(label))
		} else {
			parts = append(parts, theme.Muted.Render(label))
		}
	}
	bar := "principia  " + strings.Join(parts, theme.Muted.Render("│"))
	return lipgloss.NewStyle().Background(theme.Panel).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if m.profile.Name != "" {
		left = fmt.Sprintf("%s · %.0f pts · nível %d · 🔥%d  %s",
			m.profile.Name, m.profile.Score, m.profile.Level, m.profile.StreakDays, left)
	}
	right := theme.Muted.Render("?:ajuda  c:check-in  q:sair")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Panel).Width(m.width).Render(bar)
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 4}
	m.coursesView, _ = m.coursesView.Update(sz)
	if m.studyOpen {
		m.studyView, _ = m.studyView.Update(sz)
	}
}

func (m Model) loadProfileCmd() tea.Cmd {
	return func() tea.Msg {
		p, err := m.gamify.Profile(context.Background())
		return profileMsg{profile: p, err: err}
	}
}

func (m Model) checkInCmd() tea.Cmd {
	now := m.clock()
	if m.marker != nil && m.marker.CheckedInToday(now) {
		return func() tea.Msg {
			return checkedInMsg{result: api.CheckInResult{
				StreakDays: m.profile.StreakDays, AlreadyChecked: true,
			}}
		}
	}
	gamify := m.gamify
	return func() tea.Msg {
		res, err := gamify.CheckIn(context.Background())
		return checkedInMsg{result: res, err: err}
	}
}
