// Package tui is the interactive terminal front end over the link controllers.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fonsecaaso/tinylink/internal/controller"
	"github.com/fonsecaaso/tinylink/internal/model"
)

type screen int

const (
	screenList screen = iota
	screenCreate
	screenStats
	screenHealth
)

const (
	fieldURL = iota
	fieldCode
)

// Options carries the controllers the UI drives
type Options struct {
	List    *controller.ListController
	Create  *controller.CreateController
	Stats   *controller.StatsController
	Health  *controller.HealthController
	BaseURL string
	Timeout time.Duration
}

// The controllers have already applied the result by the time these arrive;
// the messages only wake the UI up to redraw.
type listLoadedMsg struct {
	err error
}

type deleteDoneMsg struct {
	code string
	err  error
}

type createDoneMsg struct {
	state controller.FormState
}

type statsLoadedMsg struct {
	view controller.StatsView
}

type healthCheckedMsg struct {
	view controller.HealthView
}

// Model is the bubbletea model of the dashboard. It owns the screen state and
// focus; link data lives in the controllers.
type Model struct {
	list    *controller.ListController
	create  *controller.CreateController
	stats   *controller.StatsController
	health  *controller.HealthController
	baseURL string
	timeout time.Duration

	screen        screen
	cursor        int
	searching     bool
	search        textinput.Model
	urlInput      textinput.Model
	codeInput     textinput.Model
	focus         int
	pendingDelete string
	status        string
	width         int
	height        int
}

// NewModel builds the dashboard on the list screen with the create form empty
func NewModel(opts Options) Model {
	search := textinput.New()
	search.Prompt = "Search: "
	search.Placeholder = "code or URL prefix"
	search.Width = 40

	urlInput := textinput.New()
	urlInput.Prompt = "Long URL: "
	urlInput.Placeholder = "https://example.com/some/long/path"
	urlInput.Width = 60

	codeInput := textinput.New()
	codeInput.Prompt = "Custom code (optional): "
	codeInput.Placeholder = "6-8 letters or digits"
	codeInput.CharLimit = 8
	codeInput.Width = 20

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return Model{
		list:      opts.List,
		create:    opts.Create,
		stats:     opts.Stats,
		health:    opts.Health,
		baseURL:   opts.BaseURL,
		timeout:   timeout,
		screen:    screenList,
		search:    search,
		urlInput:  urlInput,
		codeInput: codeInput,
	}
}

// Init starts the first list load
func (m Model) Init() tea.Cmd {
	return loadListCmd(m.list, m.list.Begin(), m.timeout)
}

// Update applies msg to the screen state and returns the command for any
// request it starts.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case listLoadedMsg:
		m.clampCursor()
		return m, nil
	case deleteDoneMsg:
		if msg.err == nil {
			m.status = fmt.Sprintf("Deleted %s.", msg.code)
		} else {
			m.status = ""
		}
		m.clampCursor()
		return m, nil
	case createDoneMsg:
		if msg.state.Phase == controller.FormSuccess {
			m.urlInput.SetValue("")
			m.codeInput.SetValue("")
			cmd := m.focusField(fieldURL)
			return m, cmd
		}
		return m, nil
	case statsLoadedMsg, healthCheckedMsg:
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.stats.Close()
			return m, tea.Quit
		}
		switch m.screen {
		case screenCreate:
			return m.updateCreate(msg)
		case screenStats:
			return m.updateStats(msg)
		case screenHealth:
			return m.updateHealth(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "enter":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.list.SetQuery("")
			m.cursor = 0
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.list.SetQuery(m.search.Value())
		m.cursor = 0
		return m, cmd
	}

	if m.pendingDelete != "" {
		code := m.pendingDelete
		m.pendingDelete = ""
		if msg.String() == "y" || msg.String() == "Y" {
			m.status = fmt.Sprintf("Deleting %s...", code)
			return m, deleteCmd(m.list, code, m.timeout)
		}
		m.status = ""
		return m, nil
	}

	view := m.list.View()
	switch msg.String() {
	case "q", "esc":
		m.stats.Close()
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(view.Links)-1 {
			m.cursor++
		}
	case "/":
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd
	case "r":
		m.status = ""
		return m, loadListCmd(m.list, m.list.Begin(), m.timeout)
	case "n", "c":
		m.screen = screenCreate
		m.create.Dismiss()
		cmd := m.focusField(fieldURL)
		return m, cmd
	case "d":
		if link, ok := m.selected(view); ok {
			m.list.ClearDeleteError()
			m.pendingDelete = link.Code
			m.status = fmt.Sprintf("Delete %s? (y/n)", link.Code)
		}
	case "enter", "s":
		if link, ok := m.selected(view); ok {
			m.screen = screenStats
			return m, loadStatsCmd(m.stats, m.stats.Begin(link.Code), m.timeout)
		}
	case "h":
		m.screen = screenHealth
		return m, checkHealthCmd(m.health, m.health.Begin(), m.timeout)
	}
	return m, nil
}

func (m Model) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.create.State()

	switch msg.String() {
	case "esc":
		m.create.Dismiss()
		m.screen = screenList
		m.urlInput.Blur()
		m.codeInput.Blur()
		m.clampCursor()
		return m, nil
	case "tab", "shift+tab", "up", "down":
		cmd := m.focusField(1 - m.focus)
		return m, cmd
	case "enter":
		if state.Submitting() {
			return m, nil
		}
		m.create.SetURL(m.urlInput.Value())
		m.create.SetCode(m.codeInput.Value())
		if _, ok := m.create.Prepare(); !ok {
			return m, nil
		}
		return m, submitCmd(m.create, m.timeout)
	}

	if state.Submitting() {
		return m, nil
	}
	if state.Phase == controller.FormSuccess || state.Phase == controller.FormError {
		m.create.Dismiss()
	}

	var cmd tea.Cmd
	if m.focus == fieldURL {
		m.urlInput, cmd = m.urlInput.Update(msg)
	} else {
		m.codeInput, cmd = m.codeInput.Update(msg)
	}
	return m, cmd
}

func (m Model) updateStats(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "backspace":
		m.stats.Close()
		m.screen = screenList
		return m, nil
	case "r":
		if code := m.stats.View().Code; code != "" {
			return m, loadStatsCmd(m.stats, m.stats.Begin(code), m.timeout)
		}
	}
	return m, nil
}

func (m Model) updateHealth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "backspace":
		m.screen = screenList
		return m, nil
	case "r":
		return m, checkHealthCmd(m.health, m.health.Begin(), m.timeout)
	}
	return m, nil
}

func (m *Model) focusField(field int) tea.Cmd {
	m.focus = field
	if field == fieldURL {
		m.codeInput.Blur()
		return m.urlInput.Focus()
	}
	m.urlInput.Blur()
	return m.codeInput.Focus()
}

func (m *Model) clampCursor() {
	n := len(m.list.View().Links)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected(view controller.ListView) (model.Link, bool) {
	if m.cursor < 0 || m.cursor >= len(view.Links) {
		return model.Link{}, false
	}
	return view.Links[m.cursor], true
}

func loadListCmd(list *controller.ListController, t controller.Ticket, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return listLoadedMsg{err: list.Fetch(ctx, t)}
	}
}

func deleteCmd(list *controller.ListController, code string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return deleteDoneMsg{code: code, err: list.Delete(ctx, code)}
	}
}

func submitCmd(create *controller.CreateController, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return createDoneMsg{state: create.Send(ctx)}
	}
}

func loadStatsCmd(stats *controller.StatsController, t controller.Ticket, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return statsLoadedMsg{view: stats.Fetch(ctx, t)}
	}
}

func checkHealthCmd(health *controller.HealthController, t controller.Ticket, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return healthCheckedMsg{view: health.Fetch(ctx, t)}
	}
}

// Run starts the program on the terminal and blocks until the user quits
func Run(opts Options) error {
	_, err := tea.NewProgram(NewModel(opts), tea.WithAltScreen()).Run()
	return err
}
