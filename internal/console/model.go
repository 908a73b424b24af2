// Package console is the terminal client: a bubbletea program that draws the
// zoomable dashboard, the command bar and generated reports.
package console

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"lumen/internal/command"
	"lumen/internal/report"
	"lumen/internal/session"
	"lumen/internal/zoom"
)

type (
	dashboardMsg struct{ err error }
	resolvedMsg  struct {
		token uint64
		res   command.Result
		// settled is set when Submit already applied res.
		settled bool
	}
	executedMsg struct{ err error }
	// settleMsg redraws once a zoom transition has settled.
	settleMsg struct{}
)

type Model struct {
	ctx      context.Context
	sess     *session.Session
	renderer *report.Renderer[string]
	bar      textinput.Model
	form     textinput.Model
	apiURL   string
	settle   time.Duration

	width  int
	height int
}

type Options struct {
	APIURL string
	// SettleDelay only schedules the post-transition redraw; the session's
	// zoom machine owns the real delay.
	SettleDelay time.Duration
}

func New(ctx context.Context, sess *session.Session, opts Options) Model {
	bar := textinput.New()
	bar.Placeholder = "Type a view, a record id, an action or a question"
	bar.Prompt = "› "
	bar.CharLimit = 500
	bar.Cursor.SetMode(cursor.CursorStatic)

	form := textinput.New()
	form.Prompt = "› "
	form.CharLimit = 200
	form.Cursor.SetMode(cursor.CursorStatic)

	settle := opts.SettleDelay
	if settle <= 0 {
		settle = zoom.DefaultSettleDelay
	}
	return Model{
		ctx:      ctx,
		sess:     sess,
		renderer: newRenderer(),
		bar:      bar,
		form:     form,
		apiURL:   opts.APIURL,
		settle:   settle,
		width:    100,
		height:   30,
	}
}

func (m Model) Init() tea.Cmd {
	return m.refresh()
}

func (m Model) refresh() tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		return dashboardMsg{err: sess.RefreshDashboard(ctx)}
	}
}

func (m Model) afterSettle() tea.Cmd {
	return tea.Tick(m.settle+10*time.Millisecond, func(time.Time) tea.Msg { return settleMsg{} })
}

// zoomed is the follow-up to any zoom level change.
func (m Model) zoomed() tea.Cmd {
	return tea.Batch(m.refresh(), m.afterSettle())
}

func (m Model) execute(intent command.Intent) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		return executedMsg{err: sess.Execute(ctx, intent)}
	}
}

// await turns a resolution into a message once it settles.
func (m Model) await(token uint64, res command.Resolution) tea.Cmd {
	if !res.Async() {
		return func() tea.Msg { return resolvedMsg{token: token, res: res.Result, settled: true} }
	}
	ctx := m.ctx
	return func() tea.Msg { return resolvedMsg{token: token, res: res.Wait(ctx)} }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.bar.Width = max(20, msg.Width-8)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case resolvedMsg:
		applied := msg.settled || m.sess.Settle(msg.token, msg.res)
		if !applied {
			return m, nil
		}
		switch msg.res.Status {
		case command.StatusMatched:
			m.bar.Blur()
			m.bar.SetValue("")
			return m, m.execute(msg.res.Intent)
		case command.StatusGenerativeFailure:
			m.bar.Blur()
		}
		return m, nil
	case executedMsg:
		if msg.err == nil && m.sess.Page() == session.PageDashboard {
			return m, m.zoomed()
		}
		return m, nil
	case dashboardMsg, settleMsg:
		return m, nil
	}
	return m, nil
}
