// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdownParserInstance is initialized once and reused. The parser
// configuration never changes and the goldmark Parser is safe to
// share — actual parsing creates per-call state via Parse(reader).
var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownParserInstance
}

// renderMarkdown parses markdown and renders it as styled terminal
// text wrapped to width. Incident notes are short operational prose:
// paragraphs, emphasis, lists, and inline code cover what control
// room staff actually write. Unsupported structures fall back to
// their plain text content.
func renderMarkdown(input string, theme Theme, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	document := getMarkdownParser().Parser().Parse(text.NewReader(source))

	renderer := &markdownRenderer{
		source: source,
		theme:  theme,
		width:  width,
	}
	ast.Walk(document, renderer.walk)
	return strings.TrimRight(renderer.output.String(), "\n")
}

// markdownRenderer walks a goldmark AST accumulating inline content
// per block, wrapping each block as a unit when it closes.
type markdownRenderer struct {
	source []byte
	theme  Theme
	width  int

	output strings.Builder
	inline strings.Builder

	boldDepth   int
	italicDepth int
	listDepth   int
	ordinal     int
}

func (r *markdownRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch typed := node.(type) {
	case *ast.Heading:
		if entering {
			r.inline.Reset()
		} else {
			heading := lipgloss.NewStyle().
				Bold(true).
				Foreground(r.theme.HeaderForeground).
				Render(r.inline.String())
			r.output.WriteString(heading + "\n\n")
			r.inline.Reset()
		}

	case *ast.Paragraph, *ast.TextBlock:
		// Inside a list item the content waits for the item's close,
		// where it flushes with its bullet.
		if entering {
			if r.listDepth == 0 {
				r.inline.Reset()
			}
		} else if r.listDepth == 0 {
			r.flushBlock("")
		}

	case *ast.List:
		if entering {
			r.listDepth++
			r.ordinal = typed.Start
		} else {
			r.listDepth--
			if r.listDepth == 0 {
				r.output.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil

	case *ast.ListItem:
		if entering {
			r.inline.Reset()
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			var code strings.Builder
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				code.Write(segment.Value(r.source))
			}
			styled := lipgloss.NewStyle().
				Foreground(r.theme.FaintText).
				Render(strings.TrimRight(code.String(), "\n"))
			r.output.WriteString(styled + "\n\n")
			return ast.WalkSkipChildren, nil
		}

	case *ast.Text:
		if entering {
			r.inline.WriteString(r.styleInline(string(typed.Segment.Value(r.source))))
			if typed.SoftLineBreak() {
				// Soft breaks become spaces so hard-wrapped source
				// reflows at the pane width.
				r.inline.WriteString(" ")
			}
			if typed.HardLineBreak() {
				r.inline.WriteString("\n")
			}
		}

	case *ast.CodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				if literal, ok := child.(*ast.Text); ok {
					code.Write(literal.Segment.Value(r.source))
				}
			}
			r.inline.WriteString(lipgloss.NewStyle().
				Foreground(r.theme.NextMilestone).
				Render(code.String()))
			return ast.WalkSkipChildren, nil
		}

	case *ast.Emphasis:
		if entering {
			if typed.Level >= 2 {
				r.boldDepth++
			} else {
				r.italicDepth++
			}
		} else {
			if typed.Level >= 2 {
				r.boldDepth--
			} else {
				r.italicDepth--
			}
		}
	}

	// List items flush with their bullet when the item closes.
	if item, ok := node.(*ast.ListItem); ok && !entering {
		bullet := "• "
		if list, ok := item.Parent().(*ast.List); ok && list.IsOrdered() {
			bullet = strconv.Itoa(max(r.ordinal, 1)) + ". "
			r.ordinal++
		}
		r.flushBlock(strings.Repeat("  ", r.listDepth-1) + bullet)
	}

	return ast.WalkContinue, nil
}

// styleInline applies the current emphasis state to a text fragment.
func (r *markdownRenderer) styleInline(value string) string {
	style := lipgloss.NewStyle().Foreground(r.theme.NormalText)
	if r.boldDepth > 0 {
		style = style.Bold(true)
	}
	if r.italicDepth > 0 {
		style = style.Italic(true)
	}
	return style.Render(value)
}

// flushBlock word-wraps the accumulated inline content and appends it
// to the output, with an optional first-line prefix (list bullet).
func (r *markdownRenderer) flushBlock(prefix string) {
	content := r.inline.String()
	r.inline.Reset()
	if strings.TrimSpace(content) == "" {
		return
	}

	wrapWidth := r.width - len([]rune(prefix))
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	wrapped := lipgloss.NewStyle().Width(wrapWidth).Render(content)

	lines := strings.Split(wrapped, "\n")
	continuation := strings.Repeat(" ", len([]rune(prefix)))
	for index, line := range lines {
		if index == 0 {
			r.output.WriteString(prefix + line + "\n")
		} else {
			r.output.WriteString(continuation + line + "\n")
		}
	}
	if prefix == "" {
		r.output.WriteString("\n")
	}
}
