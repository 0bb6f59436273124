package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"hreq/internal/format"
	"hreq/internal/model"
)

const (
	historyWidth  = 32
	topHeight     = 3
	footerHeight  = 2
	topFixedWidth = 36
)

var (
	accent = lipgloss.Color("#d4a373")

	focusedStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent)

	blurredStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#777777"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Padding(0, 1)

	labelStyle       = lipgloss.NewStyle().Faint(true)
	placeholderStyle = lipgloss.NewStyle().Faint(true)
	selectedStyle    = lipgloss.NewStyle().Reverse(true)
	methodStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c77dff"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b6b"))
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#f4d35e"))
	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ecdc4"))
	spinnerStyle     = lipgloss.NewStyle().Foreground(accent)
)

func (m Model) View() string {
	top := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("H-Req"),
		m.panel(focusMethod, m.selector(m.method().String())),
		m.panel(focusURL, m.url.View()),
		m.panel(focusContentType, m.selector(m.contentType().String())),
	)

	editors := lipgloss.JoinHorizontal(lipgloss.Top,
		m.panel(focusHeaders, labelStyle.Render("Headers")+"\n"+m.headers.View()),
		m.panel(focusBody, labelStyle.Render("Body")+"\n"+m.body.View()),
	)
	middle := lipgloss.JoinHorizontal(lipgloss.Top,
		m.panel(focusHistory, m.historyView(m.headers.Height()+1)),
		editors,
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		top,
		middle,
		m.panel(focusResponse, m.response.View()),
		m.statusView(),
		m.footerView(),
	)
}

func (m Model) panel(f focus, content string) string {
	if m.focus == f && m.prompt == promptNone {
		return focusedStyle.Render(content)
	}
	return blurredStyle.Render(content)
}

func (m Model) selector(value string) string {
	return fmt.Sprintf("◀ %-7s ▶", value)
}

// historyView renders the per-method tree, scrolled so the cursor stays in
// the last height lines.
func (m Model) historyView(height int) string {
	var lines []string
	cursorLine := 0
	row := 0

	store := m.session.Store()
	for _, method := range model.Methods {
		lines = append(lines, methodStyle.Render(fmt.Sprintf("▾ %s", method)))
		for _, entry := range store.Entries(method) {
			text := fmt.Sprintf("  %s %s", entry.Label, entry.Record.URL)
			text = runewidth.FillRight(runewidth.Truncate(format.Sanitize(text), historyWidth, "…"), historyWidth)
			if row == m.cursor {
				cursorLine = len(lines)
				if m.focus == focusHistory {
					text = selectedStyle.Render(text)
				}
			}
			lines = append(lines, text)
			row++
		}
	}

	start := 0
	if cursorLine >= height {
		start = cursorLine - height + 1
	}
	end := min(start+height, len(lines))
	visible := lines[start:end]
	for len(visible) < height {
		visible = append(visible, "")
	}

	return lipgloss.NewStyle().Width(historyWidth).Render(strings.Join(visible, "\n"))
}

func (m Model) statusView() string {
	text := m.status
	if m.loading {
		text = m.spinner.View() + " " + text
	}
	text = runewidth.Truncate(format.Sanitize(text), max(m.width, 20), "…")

	switch m.statusLevel {
	case statusError:
		return errorStyle.Render(text)
	case statusWarn:
		return warnStyle.Render(text)
	case statusSuccess:
		return successStyle.Render(text)
	}
	return text
}

func (m Model) footerView() string {
	switch m.prompt {
	case promptSave:
		return "Save history to: " + m.promptInput.View()
	case promptLoadReplace:
		return "Load history (replace) from: " + m.promptInput.View()
	case promptLoadMerge:
		return "Load history (merge) from: " + m.promptInput.View()
	}
	return m.help.View(m.keys)
}
