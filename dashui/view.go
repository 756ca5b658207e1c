// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
)

// Fixed chrome heights. The incident panes take whatever is left.
const (
	headerHeight = 1
	panelsHeight = 7
	helpHeight   = 1

	// occupancyBarWidth is the character width of the occupancy bar.
	occupancyBarWidth = 20
)

// listWidth is the incident list's share of the terminal. The detail
// pane gets the rest minus a one-column divider.
func (model Model) listWidth() int {
	width := model.width / 2
	if width < 20 {
		width = 20
	}
	return width
}

// paneHeight is the height of the incident list and detail panes.
func (model Model) paneHeight() int {
	// Header, panels row, two separators, help line.
	height := model.height - headerHeight - panelsHeight - 2 - helpHeight
	if height < 0 {
		height = 0
	}
	return height
}

// listHeight is the number of incident rows visible at once: the pane
// height minus the list's own column header.
func (model Model) listHeight() int {
	height := model.paneHeight() - 1
	if height < 0 {
		height = 0
	}
	return height
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Connecting..."
	}
	if model.noEvent {
		return model.renderCentered("No active event.\n\nThe dashboard will pick the event up as soon as one is flagged current.")
	}
	if !model.haveSnapshot {
		return model.renderCentered("Connecting to backend...")
	}

	separator := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", model.width))

	listView := model.renderListPane()
	divider := model.renderPaneDivider()
	detailView := model.detailPane.View()

	sections := []string{
		model.renderHeader(),
		model.renderPanels(),
		separator,
		lipgloss.JoinHorizontal(lipgloss.Top, listView, divider, detailView),
		separator,
		model.renderHelp(),
	}
	return strings.Join(sections, "\n")
}

// renderCentered fills the terminal with a centered notice.
func (model Model) renderCentered(text string) string {
	return lipgloss.Place(model.width, model.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(text))
}

// renderHeader renders the top line: event name and venue on the
// left, the stale banner (when live data is interrupted) on the right.
func (model Model) renderHeader() string {
	title := model.snapshot.Event.Name
	if venue := model.snapshot.Event.Venue; venue != "" {
		title += "  ·  " + venue
	}
	left := lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.HeaderForeground).
		Render(title)

	right := ""
	if model.stale {
		age := model.clock.Now().Sub(model.snapshot.FetchedAt).Round(time.Second)
		banner := " STALE "
		if age > 0 && age < 24*time.Hour {
			banner = fmt.Sprintf(" STALE · last update %s ago ", age)
		}
		right = lipgloss.NewStyle().
			Foreground(model.theme.StaleForeground).
			Background(model.theme.StaleBackground).
			Bold(true).
			Render(banner)
	}

	gap := model.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return ansi.Truncate(left, model.width, "…")
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderPanels renders the summary row: schedule countdown, incident
// statistics, occupancy, and weather side by side.
func (model Model) renderPanels() string {
	panels := []string{
		model.renderSchedulePanel(),
		model.renderStatsPanel(),
		model.renderOccupancyPanel(),
	}
	if model.haveWeather {
		panels = append(panels, model.renderWeatherPanel())
	}

	width := model.width / len(panels)
	style := lipgloss.NewStyle().
		Width(width).
		Height(panelsHeight).
		MaxHeight(panelsHeight).
		PaddingRight(2)
	for i, panel := range panels {
		panels[i] = style.Render(panel)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

// panelTitle renders a panel heading.
func (model Model) panelTitle(title string) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.HeaderForeground).
		Render(title)
}

// renderSchedulePanel renders the next milestones with the countdown
// to the nearest one.
func (model Model) renderSchedulePanel() string {
	var lines []string
	lines = append(lines, model.panelTitle("Schedule"))

	if len(model.upcoming) == 0 {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(model.theme.FaintText).
			Render("No upcoming milestones today."))
		return strings.Join(lines, "\n")
	}

	for _, entry := range model.upcoming {
		row := fmt.Sprintf("%s  %s", entry.Time, entry.Title)
		if entry.Next {
			row = lipgloss.NewStyle().
				Bold(true).
				Foreground(model.theme.NextMilestone).
				Render("▸ " + row)
		} else {
			row = lipgloss.NewStyle().
				Foreground(model.theme.NormalText).
				Render("  " + row)
		}
		lines = append(lines, row)
	}

	if model.remaining != "" {
		lines = append(lines, "", lipgloss.NewStyle().
			Bold(true).
			Foreground(model.theme.CountdownText).
			Render("T-"+model.remaining))
	}
	return strings.Join(lines, "\n")
}

// renderStatsPanel renders the incident counters.
func (model Model) renderStatsPanel() string {
	stats := model.snapshot.Stats
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	normal := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	high := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HighPriority)

	counter := func(label string, value int, style lipgloss.Style) string {
		return faint.Render(label+" ") + style.Render(fmt.Sprintf("%d", value))
	}

	lines := []string{
		model.panelTitle("Incidents"),
		counter("Total", stats.Total, normal) + "   " + counter("High", stats.HighPriority, high),
		counter("Open", stats.Open, normal) + "   " + counter("In progress", stats.InProgress, normal),
		counter("Closed", stats.Closed, normal) + "   " + counter("Sit reps", stats.Logged, normal),
		counter("Refusals", stats.Refusals, normal) + "   " +
			counter("Ejections", stats.Ejections, normal) + "   " +
			counter("Medical", stats.Medical, normal),
	}
	return strings.Join(lines, "\n")
}

// renderOccupancyPanel renders the venue count with a capacity bar.
// The bar and percentage are suppressed when capacity is unknown.
func (model Model) renderOccupancyPanel() string {
	view := model.snapshot.Occupancy
	var lines []string
	lines = append(lines, model.panelTitle("Occupancy"))

	countLine := lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.NormalText).
		Render(fmt.Sprintf("%d", view.Count))
	if view.HasBar {
		countLine += lipgloss.NewStyle().
			Foreground(model.theme.FaintText).
			Render(fmt.Sprintf(" / %d", view.Capacity))
	}
	lines = append(lines, countLine)

	if view.HasBar {
		levelColor := model.theme.OccupancyColor(view.Level)
		filled := view.BarPercent * occupancyBarWidth / 100
		bar := lipgloss.NewStyle().Foreground(levelColor).
			Render(strings.Repeat("█", filled)) +
			lipgloss.NewStyle().Foreground(model.theme.FaintText).
				Render(strings.Repeat("░", occupancyBarWidth-filled))
		lines = append(lines, bar)
		lines = append(lines, lipgloss.NewStyle().
			Bold(true).
			Foreground(levelColor).
			Render(fmt.Sprintf("%d%%", view.Percent)))
	}
	return strings.Join(lines, "\n")
}

// renderWeatherPanel renders the venue conditions.
func (model Model) renderWeatherPanel() string {
	reading := model.weather
	condition := reading.Condition
	if model.weatherStale {
		condition += " (stale)"
	}
	lines := []string{
		model.panelTitle("Weather"),
		lipgloss.NewStyle().Foreground(model.theme.NormalText).
			Render(fmt.Sprintf("%.1f°C", reading.TemperatureCelsius)),
		lipgloss.NewStyle().Foreground(model.theme.FaintText).
			Render(fmt.Sprintf("Wind %.0f km/h", reading.WindSpeedKMH)),
		lipgloss.NewStyle().Foreground(model.theme.FaintText).
			Render(condition),
	}
	return strings.Join(lines, "\n")
}

// renderListPane renders the incident list, newest first, with the
// cursor row highlighted when the list has focus.
func (model Model) renderListPane() string {
	width := model.listWidth()

	header := lipgloss.NewStyle().
		Foreground(model.theme.FaintText).
		Width(width).
		MaxWidth(width).
		Render(fmt.Sprintf("  %-6s %-14s %s", "TIME", "TYPE", "OCCURRENCE"))

	rows := []string{header}
	visible := model.listHeight()
	for index := model.scrollOffset; index < model.scrollOffset+visible && index < len(model.incidents); index++ {
		rows = append(rows, model.renderIncidentRow(index, width))
	}
	for len(rows) < model.paneHeight() {
		rows = append(rows, strings.Repeat(" ", width))
	}
	if len(model.incidents) == 0 && model.paneHeight() > 1 {
		rows[1] = lipgloss.NewStyle().
			Foreground(model.theme.FaintText).
			Width(width).
			Render("  No incidents logged.")
	}
	return strings.Join(rows, "\n")
}

// renderIncidentRow renders one list row. Severity drives the color:
// medical codes red, other high-priority types orange, closed rows
// faint regardless of type.
func (model Model) renderIncidentRow(index, width int) string {
	incident := model.incidents[index]
	selected := index == model.cursor && model.focusRegion == FocusList

	marker := "  "
	if index == model.cursor {
		marker = "▸ "
	}
	row := fmt.Sprintf("%s%-6s %-14s %s",
		marker,
		incident.LoggedAt.Local().Format("15:04"),
		incident.Type.Label(),
		incident.Occurrence)
	row = ansi.Truncate(row, width, "…")

	style := lipgloss.NewStyle().Width(width).MaxWidth(width)
	switch {
	case selected:
		style = style.
			Background(model.theme.SelectedBackground).
			Foreground(model.theme.SelectedForeground).
			Bold(true)
	case incident.Closed:
		style = style.Foreground(model.theme.ClosedFaint)
	case incident.Type.Medical():
		style = style.Foreground(model.theme.Medical)
	case incident.Type.HighPriority():
		style = style.Foreground(model.theme.HighPriority)
	default:
		style = style.Foreground(model.theme.NormalText)
	}
	return style.Render(row)
}

// renderPaneDivider renders the vertical line between the incident
// list and the detail pane.
func (model Model) renderPaneDivider() string {
	line := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render("│")
	return strings.TrimSuffix(strings.Repeat(line+"\n", model.paneHeight()), "\n")
}

// renderDetail renders the detail pane content for one incident:
// status line, occurrence, action taken, and the markdown notes.
func (model Model) renderDetail(incident event.Incident) string {
	width := model.detailPane.Width
	if width <= 0 {
		width = 40
	}

	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	normal := lipgloss.NewStyle().Foreground(model.theme.NormalText)

	status := "OPEN"
	if incident.Closed {
		status = "CLOSED"
	}
	var sections []string
	sections = append(sections, lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.HeaderForeground).
		Render(fmt.Sprintf("%s · %s · %s",
			incident.Type.Label(),
			status,
			incident.LoggedAt.Local().Format("15:04:05"))))

	if incident.Occurrence != "" {
		sections = append(sections, "", faint.Render("Occurrence"),
			normal.Width(width).Render(incident.Occurrence))
	}
	if incident.ActionTaken != "" {
		sections = append(sections, "", faint.Render("Action taken"),
			normal.Width(width).Render(incident.ActionTaken))
	}
	if incident.Notes != "" {
		sections = append(sections, "", faint.Render("Notes"),
			renderMarkdown(incident.Notes, model.theme, width))
	}
	return strings.Join(sections, "\n")
}

// renderHelp renders the bottom line: the active log notice when one
// is pending, otherwise the key binding summary.
func (model Model) renderHelp() string {
	if model.statusNotice != "" {
		return ansi.Truncate(lipgloss.NewStyle().
			Foreground(model.theme.FaintText).
			Render(model.statusNotice), model.width, "…")
	}
	help := "j/k navigate · Tab switch pane · r refresh · q quit"
	return lipgloss.NewStyle().
		Foreground(model.theme.HelpText).
		Render(help)
}
