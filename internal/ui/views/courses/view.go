// Package courses is a view over the course catalog: pick a course, browse
// its modules, open a question list or mark a video as watched.
package courses

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/principia-matematica/estudo/internal/api"
	"github.com/principia-matematica/estudo/internal/ui/theme"
)

// Port is the slice of the catalog this view needs. The app wires it to the
// API client plus the content browser.
type Port interface {
	Courses(ctx context.Context) ([]api.Course, error)
	LoadCourse(ctx context.Context, courseID string) error
	Modules() []api.Module
	Profile() api.Profile
	Reset()
	MarkVideoCompleted(ctx context.Context, videoID string, atSecond int) error
}

// CoursesLoadedMsg delivers the catalog.
type CoursesLoadedMsg struct {
	Courses []api.Course
	Err     error
}

// CourseLoadedMsg signals that the selected course's modules are cached on
// the port and ready to read.
type CourseLoadedMsg struct {
	CourseID string
	Err      error
}

// VideoMarkedMsg reports a completion toggle round trip.
type VideoMarkedMsg struct {
	VideoID string
	Err     error
}

// OpenListMsg bubbles up to the app, which mounts the study view.
type OpenListMsg struct {
	ListID string
	Name   string
}

type courseItem struct{ course api.Course }

func (i courseItem) Title() string       { return i.course.Name }
func (i courseItem) Description() string { return i.course.Description }
func (i courseItem) FilterValue() string { return i.course.Name }

// entryItem is one row inside a course: a video or a question list.
type entryItem struct {
	moduleName string
	video      *api.Video
	listID     string
}

func (i entryItem) Title() string {
	if i.video != nil {
		mark := "▷"
		if i.video.Completed {
			mark = "✓"
		}
		return fmt.Sprintf("%s %s", mark, i.video.Title)
	}
	return "≡ " + i.listID
}

func (i entryItem) Description() string {
	if i.video != nil {
		return fmt.Sprintf("%s · vídeo %d:%02d", i.moduleName,
			i.video.DurationSeconds/60, i.video.DurationSeconds%60)
	}
	return i.moduleName + " · lista de questões"
}

func (i entryItem) FilterValue() string { return i.Title() }

type mode int

const (
	modeCourses mode = iota
	modeEntries
)

type Model struct {
	port    Port
	list    list.Model
	spinner spinner.Model
	mode    mode
	loading bool
	status  string
	width   int
	height  int
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(theme.Blue).BorderForeground(theme.Blue)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(theme.Cyan).BorderForeground(theme.Blue)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Cursos"
	l.Styles.Title = theme.Title
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Blue)

	return Model{port: port, list: l, spinner: sp, loading: true}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCoursesCmd(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.width, m.height-1)

	case CoursesLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.status = "catálogo indisponível: " + msg.Err.Error()
			return m, nil
		}
		items := make([]list.Item, len(msg.Courses))
		for i, c := range msg.Courses {
			items[i] = courseItem{course: c}
		}
		cmds = append(cmds, m.list.SetItems(items))

	case CourseLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.status = "curso indisponível: " + msg.Err.Error()
			return m, nil
		}
		m.mode = modeEntries
		cmds = append(cmds, m.list.SetItems(m.entryItems()))
		p := m.port.Profile()
		m.status = fmt.Sprintf("%s · %.0f pts · nível %d · sequência %d dias",
			p.Name, p.Score, p.Level, p.StreakDays)

	case VideoMarkedMsg:
		if msg.Err != nil {
			m.status = "não foi possível salvar o progresso: " + msg.Err.Error()
		} else {
			m.status = "vídeo concluído"
			cmds = append(cmds, m.list.SetItems(m.entryItems()))
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			return m.open()
		case "esc":
			if m.mode == modeEntries {
				m.mode = modeCourses
				m.port.Reset()
				m.list.Title = "Cursos"
				m.loading = true
				return m, tea.Batch(m.loadCoursesCmd(), m.spinner.Tick)
			}
		}
	}

	if !m.loading {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) open() (Model, tea.Cmd) {
	switch item := m.list.SelectedItem().(type) {
	case courseItem:
		m.loading = true
		m.list.Title = item.course.Name
		return m, tea.Batch(m.loadCourseCmd(item.course.ID), m.spinner.Tick)
	case entryItem:
		if item.listID != "" {
			name := item.moduleName + " · " + item.listID
			return m, func() tea.Msg { return OpenListMsg{ListID: item.listID, Name: name} }
		}
		if item.video != nil && !item.video.Completed {
			return m, m.markVideoCmd(item.video.ID, item.video.DurationSeconds)
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" carregando…")
	}
	status := theme.Muted.Render(m.status)
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), status)
}

// Filtering reports whether the list's search filter is open, so the app can
// yield global keys to free typing.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) entryItems() []list.Item {
	var items []list.Item
	for _, mod := range m.port.Modules() {
		for i := range mod.Videos {
			items = append(items, entryItem{moduleName: mod.Name, video: &mod.Videos[i]})
		}
		for _, lid := range mod.ListIDs {
			items = append(items, entryItem{moduleName: mod.Name, listID: lid})
		}
	}
	return items
}

func (m Model) loadCoursesCmd() tea.Cmd {
	return func() tea.Msg {
		cs, err := m.port.Courses(context.Background())
		return CoursesLoadedMsg{Courses: cs, Err: err}
	}
}

func (m Model) loadCourseCmd(courseID string) tea.Cmd {
	return func() tea.Msg {
		err := m.port.LoadCourse(context.Background(), courseID)
		return CourseLoadedMsg{CourseID: courseID, Err: err}
	}
}

func (m Model) markVideoCmd(videoID string, durationSeconds int) tea.Cmd {
	return func() tea.Msg {
		err := m.port.MarkVideoCompleted(context.Background(), videoID, durationSeconds)
		return VideoMarkedMsg{VideoID: videoID, Err: err}
	}
}
