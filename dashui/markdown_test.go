// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

// stripped renders markdown and returns ANSI-stripped visible text.
func stripped(input string, width int) string {
	return ansi.Strip(renderMarkdown(input, DefaultTheme, width))
}

func TestRenderMarkdownEmpty(t *testing.T) {
	if result := renderMarkdown("", DefaultTheme, 80); result != "" {
		t.Errorf("expected empty string for empty input, got %q", result)
	}
	if result := renderMarkdown("   \n  ", DefaultTheme, 80); result != "" {
		t.Errorf("expected empty string for whitespace input, got %q", result)
	}
}

func TestRenderMarkdownParagraphReflow(t *testing.T) {
	// Source text hard-wrapped at a narrow width. Soft breaks become
	// spaces so the pane width controls wrapping, not the source.
	input := "Crowd pressure building at the\nfront barrier, response team\ndispatched to assess."
	result := stripped(input, 120)

	if strings.Contains(result, "\n") {
		t.Errorf("expected no newlines at width=120, got:\n%s", result)
	}
	if !strings.Contains(result, "the front barrier") {
		t.Errorf("expected soft break converted to space, got:\n%s", result)
	}
}

func TestRenderMarkdownWrapWidth(t *testing.T) {
	input := "A longer note that must be wrapped to the detail pane width without overflowing it."
	result := stripped(input, 30)

	for _, line := range strings.Split(result, "\n") {
		if len([]rune(line)) > 30 {
			t.Errorf("line exceeds width 30: %q", line)
		}
	}
}

func TestRenderMarkdownBulletList(t *testing.T) {
	input := "- Gate C closed\n- Medics on scene\n- Radio channel 2"
	result := stripped(input, 80)

	for _, want := range []string{"• Gate C closed", "• Medics on scene", "• Radio channel 2"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected bullet line %q in:\n%s", want, result)
		}
	}
}

func TestRenderMarkdownOrderedList(t *testing.T) {
	input := "1. Hold the line\n2. Wait for relief\n3. Stand down"
	result := stripped(input, 80)

	for _, want := range []string{"1. Hold the line", "2. Wait for relief", "3. Stand down"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected ordered item %q in:\n%s", want, result)
		}
	}
}

func TestRenderMarkdownHeadingAndEmphasis(t *testing.T) {
	input := "# Handover\n\nPatient **responsive**, *stable*."
	result := stripped(input, 80)

	if !strings.Contains(result, "Handover") {
		t.Errorf("missing heading text in:\n%s", result)
	}
	if !strings.Contains(result, "responsive") || !strings.Contains(result, "stable") {
		t.Errorf("missing emphasized text in:\n%s", result)
	}
}

func TestRenderMarkdownCodeBlock(t *testing.T) {
	input := "Radio log:\n\n```\n21:04 channel 2 check\n```"
	result := stripped(input, 80)

	if !strings.Contains(result, "21:04 channel 2 check") {
		t.Errorf("missing code block content in:\n%s", result)
	}
}
