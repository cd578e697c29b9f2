package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fonsecaaso/tinylink/internal/controller"
	"github.com/fonsecaaso/tinylink/internal/model"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).MarginBottom(1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	labelStyle    = lipgloss.NewStyle().Bold(true).Width(16)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)

const defaultURLWidth = 48

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("TinyLink"))
	b.WriteString("\n")

	switch m.screen {
	case screenCreate:
		b.WriteString(m.createView())
	case screenStats:
		b.WriteString(m.statsView())
	case screenHealth:
		b.WriteString(m.healthView())
	default:
		b.WriteString(m.listView())
	}

	return b.String()
}

func (m Model) listView() string {
	view := m.list.View()
	var b strings.Builder

	if m.searching || view.Query != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n\n")
	}

	switch view.State {
	case controller.ListLoading:
		b.WriteString(dimStyle.Render(controller.MsgLoadingLinks))
		b.WriteString("\n")
	case controller.ListLoadFailed:
		b.WriteString(errorStyle.Render(view.LoadError))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Press r to retry."))
		b.WriteString("\n")
	default:
		if view.EmptyMessage != "" {
			b.WriteString(dimStyle.Render(view.EmptyMessage))
			b.WriteString("\n")
		} else {
			b.WriteString(m.linkTable(view))
		}
	}

	if view.DeleteError != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(view.DeleteError))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.searching {
		b.WriteString(helpStyle.Render("enter: keep filter • esc: clear"))
	} else {
		b.WriteString(helpStyle.Render("↑/↓: move • enter: stats • n: new • d: delete • /: search • r: refresh • h: health • q: quit"))
	}
	return b.String()
}

func (m Model) linkTable(view controller.ListView) string {
	urlWidth := defaultURLWidth
	if m.width > 0 {
		// code, short URL, clicks and last clicked take roughly 70 columns
		if w := m.width - 72; w > 16 {
			urlWidth = w
		} else {
			urlWidth = 16
		}
	}

	var b strings.Builder
	header := fmt.Sprintf("  %-8s  %-*s  %6s  %-19s  %s", "Code", urlWidth, "Long URL", "Clicks", "Last clicked", "Short URL")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	for i, link := range view.Links {
		row := fmt.Sprintf("%-8s  %-*s  %6d  %-19s  %s",
			link.Code,
			urlWidth, truncate(link.LongURL, urlWidth),
			link.Clicks,
			controller.LastClicked(link),
			model.ShortURL(m.baseURL, link.Code),
		)
		if link.Code == view.Deleting {
			row += dimStyle.Render("  deleting...")
		}
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + row))
		} else {
			b.WriteString("  " + row)
		}
		b.WriteString("\n")
	}

	if view.Query != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d of %d links", len(view.Links), view.Total)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) createView() string {
	state := m.create.State()
	var b strings.Builder

	b.WriteString(headerStyle.Render("Create a short link"))
	b.WriteString("\n\n")
	b.WriteString(m.urlInput.View())
	b.WriteString("\n")
	b.WriteString(m.codeInput.View())
	b.WriteString("\n\n")

	switch state.Phase {
	case controller.FormSubmitting:
		b.WriteString(dimStyle.Render("Creating..."))
	case controller.FormSuccess:
		b.WriteString(successStyle.Render(state.Message))
		if state.Created != nil {
			b.WriteString("\n")
			b.WriteString(model.ShortURL(m.baseURL, state.Created.Code))
		}
	case controller.FormError:
		b.WriteString(errorStyle.Render(state.Message))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab: switch field • enter: create • esc: back"))
	return b.String()
}

func (m Model) statsView() string {
	view := m.stats.View()
	var b strings.Builder

	b.WriteString(headerStyle.Render("Stats for " + view.Code))
	b.WriteString("\n\n")

	switch view.Phase {
	case controller.StatsLoading, controller.StatsIdle:
		b.WriteString(dimStyle.Render(controller.MsgLoadingStats))
	case controller.StatsNotFound:
		b.WriteString(dimStyle.Render(view.Message))
	case controller.StatsError:
		b.WriteString(errorStyle.Render(view.Message))
	case controller.StatsFound:
		link := view.Link
		rows := []string{
			field("Short URL", view.ShortURL),
			field("Long URL", link.LongURL),
			field("Created", controller.FormatTimestamp(link.CreatedAt, "-")),
			field("Total clicks", strconv.FormatInt(link.Clicks, 10)),
			field("Today", optionalCount(link.TodayClicks)),
			field("This week", optionalCount(link.WeekClicks)),
			field("Last clicked", controller.LastClicked(*link)),
		}
		b.WriteString(panelStyle.Render(strings.Join(rows, "\n")))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("r: reload • esc: back"))
	return b.String()
}

func (m Model) healthView() string {
	view := m.health.View()
	var b strings.Builder

	b.WriteString(headerStyle.Render("Backend health"))
	b.WriteString("\n\n")

	switch view.Phase {
	case controller.HealthLoading:
		b.WriteString(dimStyle.Render(controller.MsgCheckingHealth))
	case controller.HealthFailed:
		b.WriteString(errorStyle.Render(view.Message))
	case controller.HealthReady:
		if view.Health == nil {
			break
		}
		h := view.Health
		status := successStyle.Render("OK")
		if !h.OK {
			status = errorStyle.Render("Degraded")
		}
		rows := []string{
			field("Status", status),
			field("Version", orDash(h.Version)),
			field("Uptime", orDash(h.Uptime)),
			field("Last checked", controller.FormatTimestamp(&h.LastChecked, "-")),
		}
		b.WriteString(panelStyle.Render(strings.Join(rows, "\n")))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("r: recheck • esc: back"))
	return b.String()
}

func field(label, value string) string {
	return labelStyle.Render(label) + value
}

func optionalCount(n *int64) string {
	if n == nil {
		return "-"
	}
	return strconv.FormatInt(*n, 10)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
