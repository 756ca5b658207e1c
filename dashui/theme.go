// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/DavidCapener182/compact-event-control/lib/occupancy"
)

// Theme defines the color palette for the dashboard. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected incident row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Occupancy tiers.
	OccupancyNormal  lipgloss.Color
	OccupancyWarning lipgloss.Color
	OccupancyOver    lipgloss.Color

	// Incident severity.
	HighPriority lipgloss.Color
	Medical      lipgloss.Color
	ClosedFaint  lipgloss.Color

	// Countdown and schedule.
	CountdownText lipgloss.Color
	NextMilestone lipgloss.Color

	// Stale-data banner.
	StaleForeground lipgloss.Color
	StaleBackground lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
}

// OccupancyColor returns the color for an occupancy level.
func (theme Theme) OccupancyColor(level occupancy.Level) lipgloss.Color {
	switch level {
	case occupancy.LevelWarning:
		return theme.OccupancyWarning
	case occupancy.LevelOver:
		return theme.OccupancyOver
	default:
		return theme.OccupancyNormal
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	OccupancyNormal:  lipgloss.Color("114"), // green
	OccupancyWarning: lipgloss.Color("220"), // amber
	OccupancyOver:    lipgloss.Color("196"), // red

	HighPriority: lipgloss.Color("208"), // orange
	Medical:      lipgloss.Color("196"), // red
	ClosedFaint:  lipgloss.Color("240"),

	CountdownText: lipgloss.Color("255"),
	NextMilestone: lipgloss.Color("220"),

	StaleForeground: lipgloss.Color("232"),
	StaleBackground: lipgloss.Color("220"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
}
