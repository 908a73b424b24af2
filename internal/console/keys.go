package console

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"lumen/internal/command"
	"lumen/internal/session"
	"lumen/internal/zoom"
)

var levelKeys = map[string]zoom.Level{
	"alt+1": zoom.Now,
	"alt+2": zoom.Horizon,
	"alt+3": zoom.Landscape,
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+k":
		if m.sess.ToggleCommandBar() {
			m.bar.SetValue("")
			return m, m.bar.Focus()
		}
		m.bar.Blur()
		return m, nil
	}

	snap := m.sess.Snapshot()
	if snap.Command.Open {
		return m.handleBarKey(msg, snap)
	}
	if snap.Page == session.PageForm {
		return m.handleFormKey(msg, snap)
	}

	if level, ok := levelKeys[key]; ok {
		if snap.Page != session.PageDashboard {
			m.sess.ShowDashboard()
		}
		m.sess.SetLevel(level)
		return m, m.zoomed()
	}
	switch key {
	case "=", "+", "alt+=", "alt++":
		if m.sess.ZoomIn() {
			return m, m.zoomed()
		}
	case "-", "alt+-":
		if m.sess.ZoomOut() {
			return m, m.zoomed()
		}
	case "backspace", "esc":
		if m.sess.Back() {
			return m, m.zoomed()
		}
	case "r":
		if snap.Page == session.PageDashboard && snap.Dashboard.Status == session.DashboardUnavailable {
			return m, m.refresh()
		}
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleBarKey(msg tea.KeyMsg, snap session.Snapshot) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.sess.CloseCommandBar()
		m.bar.Blur()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.bar.Value())
		if text == "" {
			return m, nil
		}
		token, res := m.sess.Submit(m.ctx, command.Input{Text: text})
		return m, m.await(token, res)
	case "r":
		// After a failure the bar is blurred and r re-runs the same text.
		if !m.bar.Focused() && snap.Command.Status == command.StatusGenerativeFailure {
			token, res, ok := m.sess.Retry(m.ctx)
			if ok {
				return m, m.await(token, res)
			}
		}
	}
	var focus tea.Cmd
	if !m.bar.Focused() {
		focus = m.bar.Focus()
	}
	var cmd tea.Cmd
	m.bar, cmd = m.bar.Update(msg)
	m.sess.SetQuery(m.bar.Value())
	return m, tea.Batch(focus, cmd)
}

func (m Model) handleFormKey(msg tea.KeyMsg, snap session.Snapshot) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.form.Blur()
		m.form.SetValue("")
		m.sess.Back()
		return m, m.zoomed()
	case "enter":
		value := strings.TrimSpace(m.form.Value())
		if value == "" {
			return m, nil
		}
		m.form.Blur()
		m.form.SetValue("")
		return m, m.execute(command.ActionIntent{Action: snap.FormAction, Argument: value})
	}
	var focus tea.Cmd
	if !m.form.Focused() {
		focus = m.form.Focus()
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, tea.Batch(focus, cmd)
}
