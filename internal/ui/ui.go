package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	pbar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"coursectl/internal/api"
	"coursectl/internal/catalog"
	"coursectl/internal/models"
	"coursectl/internal/playback"
	courseprogress "coursectl/internal/progress"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CourseListView ViewState = iota
	LessonListView
	WatchView
	StatsView
)

// simPlayer implements [playback.Player] over a clock-advanced position.
// The watch view drives it one tick per second; the reporter polls it on
// its own cadence.
type simPlayer struct {
	mu       sync.Mutex
	position float64
	duration float64
	playing  bool
}

func (p *simPlayer) Position() (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position, p.duration
}

func (p *simPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// advance moves the playhead and reports whether playback reached the end.
func (p *simPlayer) advance(seconds float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return false
	}
	p.position += seconds
	if p.position >= p.duration {
		p.position = p.duration
		p.playing = false
		return true
	}
	return false
}

func (p *simPlayer) toggle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = !p.playing
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	catalog  *catalog.Catalog
	engine   *courseprogress.Engine
	reporter *playback.Reporter

	width  int
	height int
	keys   keyMap
	help   help.Model

	filters   catalog.Filters
	searching bool
	search    string
	debounce  *api.Debouncer
	results   chan tea.Msg

	courseList list.Model
	listReady  bool
	selected   *models.Course
	lessonList list.Model

	player        *simPlayer
	watchLessonID string
	watchTitle    string
	watchBar      pbar.Model

	err error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, cat *catalog.Catalog, engine *courseprogress.Engine, reporter *playback.Reporter) *Model {
	return &Model{
		ctx:      ctx,
		view:     CourseListView,
		catalog:  cat,
		engine:   engine,
		reporter: reporter,
		keys:     newKeyMap(),
		help:     help.New(),
		filters:  catalog.Filters{Sort: string(catalog.SortNewest)},
		debounce: api.NewDebouncer(0),
		results:  make(chan tea.Msg, 8),
		watchBar: pbar.New(pbar.WithDefaultGradient()),
	}
}

// Init dispatches the initial catalog query.
func (m *Model) Init() tea.Cmd {
	m.dispatchCourses()
	return m.waitForResults()
}

// dispatchCourses issues a catalog query whose result arrives on the
// results channel. Superseded queries are dropped on receipt.
func (m *Model) dispatchCourses() {
	f := m.filters
	f.Search = m.search
	go func() {
		page, err := m.catalog.Courses(m.ctx, f)
		m.results <- coursesFetchedMsg{page: page, err: err}
	}()
}

// scheduleSearch debounces keystroke-driven queries before dispatch.
func (m *Model) scheduleSearch() {
	f := m.filters
	f.Search = m.search
	m.debounce.Trigger(func() {
		page, err := m.catalog.Courses(m.ctx, f)
		m.results <- coursesFetchedMsg{page: page, err: err}
	})
}

func (m *Model) waitForResults() tea.Cmd {
	return func() tea.Msg { return <-m.results }
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.listReady {
			m.courseList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.selected != nil {
			m.lessonList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case CourseListView:
			return m.handleCourseListKeys(msg)
		case LessonListView:
			return m.handleLessonListKeys(msg)
		case WatchView:
			return m.handleWatchKeys(msg)
		case StatsView:
			return m.handleStatsKeys(msg)
		}

	case coursesFetchedMsg:
		if catalog.Superseded(msg.err) {
			return m, m.waitForResults()
		}
		if msg.err != nil {
			m.err = msg.err
			return m, m.waitForResults()
		}
		m.err = nil
		items := make([]list.Item, len(msg.page.Items))
		for i, course := range msg.page.Items {
			items[i] = courseItem{course: course}
		}
		if !m.listReady {
			m.courseList = list.New(items, list.NewDefaultDelegate(), m.width-4, m.height-8)
			m.courseList.SetFilteringEnabled(false)
			m.listReady = true
		} else {
			m.courseList.SetItems(items)
		}
		m.courseList.Title = m.courseListTitle(msg.page.Pagination)
		return m, m.waitForResults()

	case courseLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = CourseListView
			return m, nil
		}
		m.err = nil
		m.selected = msg.course
		m.lessonList = list.New(m.lessonItems(), list.NewDefaultDelegate(), m.width-4, m.height-8)
		m.lessonList.Title = msg.course.Title
		m.view = LessonListView
		return m, nil

	case lessonMarkedMsg:
		if msg.err != nil {
			// Optimistic flag already shown; keep it and surface the
			// persist failure for retry-on-demand.
			m.err = msg.err
		}
		m.refreshLessonItems()
		return m, nil

	case resetDoneMsg:
		m.err = msg.err
		m.refreshLessonItems()
		return m, nil

	case watchTickMsg:
		if m.view != WatchView || m.player == nil {
			return m, nil
		}
		m.player.advance(1)
		return m, m.watchTick()
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case CourseListView:
		return m.renderCourseList()
	case LessonListView:
		return m.renderLessonList()
	case WatchView:
		return m.renderWatch()
	case StatsView:
		return m.renderStats()
	default:
		return ""
	}
}

func (m *Model) handleCourseListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.Type {
		case tea.KeyEsc, tea.KeyEnter:
			m.searching = false
			return m, nil
		case tea.KeyBackspace:
			if m.search != "" {
				m.search = m.search[:len(m.search)-1]
				m.scheduleSearch()
			}
			return m, nil
		case tea.KeyRunes:
			m.search += string(msg.Runes)
			m.scheduleSearch()
			return m, nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.debounce.Stop()
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		m.searching = true
		return m, nil
	case key.Matches(msg, m.keys.sort):
		m.filters.Sort = string(nextSort(catalog.NormalizeSort(m.filters.Sort)))
		m.dispatchCourses()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if !m.listReady {
			return m, nil
		}
		if item, ok := m.courseList.SelectedItem().(courseItem); ok {
			return m, m.loadCourse(item.course.ID)
		}
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) handleLessonListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = CourseListView
		return m, nil
	case key.Matches(msg, m.keys.stats):
		m.view = StatsView
		return m, nil
	case key.Matches(msg, m.keys.reset):
		return m, m.resetProgress()
	case key.Matches(msg, m.keys.complete):
		if item, ok := m.lessonList.SelectedItem().(lessonItem); ok {
			return m, m.markComplete(item.lesson.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		item, ok := m.lessonList.SelectedItem().(lessonItem)
		if !ok || item.lesson.Video == nil {
			return m, nil
		}
		m.player = &simPlayer{duration: item.lesson.Video.DurationSeconds, playing: true}
		m.watchLessonID = item.lesson.ID
		m.watchTitle = item.lesson.Title
		m.reporter.Start(m.ctx, m.selected.ID, item.lesson.ID, m.player)
		m.view = WatchView
		return m, m.watchTick()
	}

	return m.updateLists(msg)
}

func (m *Model) handleWatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.reporter.Stop()
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.reporter.Stop()
		m.player = nil
		m.view = LessonListView
		m.refreshLessonItems()
		return m, nil
	case key.Matches(msg, m.keys.play):
		if m.player != nil {
			m.player.toggle()
		}
		return m, m.watchTick()
	}
	return m, nil
}

func (m *Model) handleStatsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = LessonListView
		m.refreshLessonItems()
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case CourseListView:
		if m.listReady {
			m.courseList, cmd = m.courseList.Update(msg)
		}
	case LessonListView:
		m.lessonList, cmd = m.lessonList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadCourse(id string) tea.Cmd {
	return func() tea.Msg {
		course, err := m.catalog.Course(m.ctx, id)
		if err != nil {
			return courseLoadedMsg{err: err}
		}
		m.engine.SetCourse(*course)
		prog := m.engine.FetchProgress(m.ctx, course.ID)
		return courseLoadedMsg{course: course, progress: prog}
	}
}

func (m *Model) markComplete(lessonID string) tea.Cmd {
	courseID := m.selected.ID
	return func() tea.Msg {
		err := m.engine.MarkLessonComplete(m.ctx, courseID, lessonID)
		return lessonMarkedMsg{lessonID: lessonID, err: err}
	}
}

func (m *Model) resetProgress() tea.Cmd {
	courseID := m.selected.ID
	return func() tea.Msg {
		return resetDoneMsg{err: m.engine.ResetCourse(m.ctx, courseID)}
	}
}

func (m *Model) watchTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

// lessonItems flattens the selected course's sections into list items with
// completion marks from the current progress snapshot.
func (m *Model) lessonItems() []list.Item {
	prog := m.engine.Progress(m.selected.ID)
	var items []list.Item
	for _, section := range m.selected.Sections {
		for _, lesson := range section.Lessons {
			items = append(items, lessonItem{
				lesson:    lesson,
				section:   section.Title,
				completed: prog.LessonCompleted(lesson.ID),
			})
		}
	}
	return items
}

func (m *Model) refreshLessonItems() {
	if m.selected != nil {
		m.lessonList.SetItems(m.lessonItems())
	}
}

func (m *Model) courseListTitle(p models.Pagination) string {
	title := "Courses"
	if m.search != "" {
		title = fmt.Sprintf("Courses matching %q", m.search)
	}
	if p.Total > 0 {
		title = fmt.Sprintf("%s (%d, by %s)", title, p.Total, catalog.NormalizeSort(m.filters.Sort))
	}
	return title
}

func nextSort(s catalog.SortKey) catalog.SortKey {
	order := []catalog.SortKey{
		catalog.SortNewest, catalog.SortOldest, catalog.SortPriceLow,
		catalog.SortPriceHigh, catalog.SortRating, catalog.SortPopularity,
	}
	for i, k := range order {
		if k == s {
			return order[(i+1)%len(order)]
		}
	}
	return catalog.SortNewest
}

func (m *Model) renderCourseList() string {
	if !m.listReady {
		return styles.help.Render("Loading courses...")
	}

	header := ""
	if m.searching {
		header = styles.title.Render(fmt.Sprintf("Search: %s▌", m.search)) + "\n"
	}
	errLine := ""
	if m.err != nil {
		errLine = "\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.search, m.keys.sort, m.keys.quit}
	return fmt.Sprintf("%s%s%s\n\n%s", header, m.courseList.View(), errLine, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderLessonList() string {
	errLine := ""
	if m.err != nil {
		errLine = "\n" + styles.warn.Render(fmt.Sprintf("Last action failed: %v", m.err))
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.complete, m.keys.stats, m.keys.reset, m.keys.back}
	return fmt.Sprintf("%s%s\n\n%s", m.lessonList.View(), errLine, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderWatch() string {
	if m.player == nil {
		return ""
	}
	position, duration := m.player.Position()
	ratio := 0.0
	if duration > 0 {
		ratio = position / duration
	}

	title := styles.title.Render(fmt.Sprintf("Watching: %s", m.watchTitle))
	bar := m.watchBar.ViewAs(ratio)
	clock := fmt.Sprintf("%.0fs / %.0fs", position, duration)

	status := styles.ok.Render("playing")
	if !m.player.Playing() {
		status = styles.warn.Render("paused")
	}

	lp := m.engine.LessonProgress(m.selected.ID, m.watchLessonID)
	watched := fmt.Sprintf("reported: %d%%", lp.WatchedPercentage)
	if lp.Completed {
		watched = styles.ok.Render("lesson complete")
	}

	helpKeys := []key.Binding{m.keys.play, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s\n%s  %s\n%s\n\n%s",
		title, bar, clock, status, watched, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderStats() string {
	stats := m.engine.GetProgressStats(m.selected.ID)
	state := m.engine.State(m.selected.ID)

	title := styles.title.Render(fmt.Sprintf("Progress: %s", m.selected.Title))
	body := fmt.Sprintf(
		"State: %s\nCompleted: %d/%d (%d%%)\nRemaining: %d",
		state, stats.CompletedCount, stats.TotalLessons, stats.Percentage, stats.Remaining,
	)

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, m.help.ShortHelpView(helpKeys))
}
