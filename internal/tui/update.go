package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"hreq/internal/compose"
	"hreq/internal/config"
	"hreq/internal/errdef"
	"hreq/internal/format"
	"hreq/internal/history"
	"hreq/internal/model"
	"hreq/internal/render"
	"hreq/internal/session"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case responseMsg:
		return m.handleResponse(msg), nil

	case ConfigMsg:
		m.applyConfig(msg.Config)
		return m, nil

	case statusMsg:
		m.setStatus(msg.text, msg.level)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Next):
		m.moveFocus(1)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.moveFocus(-1)
		return m, nil
	case key.Matches(msg, m.keys.Send):
		return m.send()
	case key.Matches(msg, m.keys.Save):
		return m.openPrompt(promptSave)
	case key.Matches(msg, m.keys.Load):
		return m.openPrompt(promptLoadReplace)
	case key.Matches(msg, m.keys.Merge):
		return m.openPrompt(promptLoadMerge)
	case key.Matches(msg, m.keys.Copy):
		return m, copyToClipboard(m.responseText)
	}

	switch m.focus {
	case focusMethod:
		m.methodIdx = cycle(m.methodIdx, len(model.Methods), m.direction(msg))
		return m, nil
	case focusContentType:
		m.typeIdx = cycle(m.typeIdx, len(model.ContentTypes), m.direction(msg))
		return m, nil
	case focusURL:
		if key.Matches(msg, m.keys.Enter) {
			return m.send()
		}
	case focusHistory:
		return m.handleHistoryKey(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) direction(msg tea.KeyMsg) int {
	switch {
	case key.Matches(msg, m.keys.Left):
		return -1
	case key.Matches(msg, m.keys.Right):
		return 1
	}
	return 0
}

func cycle(i, n, step int) int {
	return (i + step + n) % n
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusURL:
		m.url, cmd = m.url.Update(msg)
	case focusHeaders:
		m.headers, cmd = m.headers.Update(msg)
	case focusBody:
		m.body, cmd = m.body.Update(msg)
	case focusResponse:
		m.response, cmd = m.response.Update(msg)
	}
	return m, cmd
}

// send composes the entered request on the owner goroutine and hands only the
// network call to a command.
func (m Model) send() (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}

	rec := m.record()
	req, warnings, err := m.session.Prepare(rec)
	if err != nil {
		m.showError(errdef.Detail(err))
		return m, nil
	}

	m.loading = true
	m.setStatus(fmt.Sprintf("Sending %s %s", rec.Method, rec.URL), statusInfo)
	return m, tea.Batch(dispatch(m.session.Client(), req, rec, warnings), m.spinner.Tick)
}

func dispatch(client session.Doer, req *compose.Request, rec model.RequestRecord, warnings []string) tea.Cmd {
	return func() tea.Msg {
		resp, err := session.Dispatch(context.Background(), client, req)
		return responseMsg{record: rec, response: resp, warnings: warnings, err: err}
	}
}

func (m Model) handleResponse(msg responseMsg) Model {
	m.loading = false
	if msg.err != nil {
		m.showError(msg.err.Error())
		return m
	}

	result, err := m.session.Complete(msg.record, msg.response)
	if err != nil {
		m.showError(err.Error())
		return m
	}

	m.showOutcome(result.Outcome, msg.warnings)
	m.cursorTo(result.Entry)
	m.setStatus(result.Outcome.Summary.String(), statusSuccess)
	return m
}

func (m *Model) showError(text string) {
	m.responseText = text
	m.response.SetContent(errorStyle.Render(format.Sanitize(text)))
	m.response.GotoTop()
	m.setStatus(text, statusError)
}

func (m *Model) showOutcome(outcome *render.Outcome, warnings []string) {
	m.responseText = outcome.Text

	var b strings.Builder
	notices := append([]string{}, warnings...)
	if outcome.Notice != "" {
		notices = append(notices, outcome.Notice)
	}
	for _, n := range notices {
		b.WriteString(warnStyle.Render("! " + n))
		b.WriteString("\n")
	}

	text := format.Sanitize(outcome.Text)
	if m.highlight {
		if colored, ok := format.Highlight(text, outcome.Kind); ok {
			text = colored
		}
	}
	b.WriteString(text)

	m.response.SetContent(b.String())
	m.response.GotoTop()
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.rows()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Enter):
		if len(rows) == 0 {
			return m, nil
		}
		entry, err := m.session.Select(rows[m.cursor].Record.Method, rows[m.cursor].Index)
		if err != nil {
			m.setStatus(errdef.Detail(err), statusError)
			return m, nil
		}
		m.fill(entry.Record)
		m.setStatus("Loaded "+entry.Label, statusInfo)
	case key.Matches(msg, m.keys.Delete):
		if len(rows) == 0 {
			return m, nil
		}
		entry := rows[m.cursor]
		if _, err := m.session.Delete(entry.Record.Method, entry.Index); err != nil {
			m.setStatus(errdef.Detail(err), statusError)
			return m, nil
		}
		m.clampCursor()
		m.setStatus("Deleted "+entry.Label, statusInfo)
	}
	return m, nil
}

func (m Model) openPrompt(kind promptKind) (tea.Model, tea.Cmd) {
	m.prompt = kind
	m.promptInput.SetValue("")
	m.url.Blur()
	m.headers.Blur()
	m.body.Blur()
	return m, m.promptInput.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.promptInput.Blur()
	m.applyFocus()
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closePrompt()
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		kind := m.prompt
		path := strings.TrimSpace(m.promptInput.Value())
		m.closePrompt()
		m.runPrompt(kind, path)
		return m, nil
	}

	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m *Model) runPrompt(kind promptKind, path string) {
	switch kind {
	case promptSave:
		saved, err := m.session.Save(path)
		if err != nil {
			m.setStatus(errdef.Detail(err), statusError)
			return
		}
		if saved {
			m.setStatus(fmt.Sprintf("Saved %d entries to %s", m.session.Store().Len(), path), statusSuccess)
		}

	case promptLoadReplace, promptLoadMerge:
		mode := history.LoadReplace
		if kind == promptLoadMerge {
			mode = history.LoadMerge
		}
		loaded, err := m.session.Load(path, mode)
		if err != nil {
			m.setStatus(errdef.Detail(err), statusError)
			return
		}
		if loaded {
			m.clampCursor()
			m.setStatus(fmt.Sprintf("Loaded %s (%s), %d entries", path, mode, m.session.Store().Len()), statusSuccess)
		}
	}
}

func (m *Model) applyConfig(cfg config.Config) {
	if cfg.Timeout > 0 && cfg.Timeout != m.client.Timeout() {
		m.client = m.client.WithTimeout(cfg.Timeout)
		m.session.SetClient(m.client)
	}
	m.highlight = cfg.Highlight
	m.log.Info().Dur("timeout", cfg.Timeout).Msg("configuration reloaded")
	m.setStatus("Configuration reloaded", statusInfo)
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		if text == "" {
			return statusMsg{text: "Nothing to copy", level: statusWarn}
		}
		if err := clipboard.WriteAll(text); err != nil {
			return statusMsg{text: "Clipboard unavailable: " + err.Error(), level: statusWarn}
		}
		return statusMsg{text: "Response copied to clipboard", level: statusSuccess}
	}
}
