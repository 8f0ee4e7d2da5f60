// Package tui is the respondent's terminal chat client.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/example/exit-interview/internal/apiclient"
)

// API is the subset of the HTTP client the chat needs.
type API interface {
	StartSession(ctx context.Context, interviewID string) (apiclient.Session, error)
	Send(ctx context.Context, sessionID, answer string) (apiclient.Reply, error)
}

type phase int

const (
	phaseConnecting phase = iota
	phaseWaiting
	phaseAnswering
	phaseDone
)

type line struct {
	fromInterviewer bool
	text            string
}

// Model is the root bubbletea model.
type Model struct {
	api         API
	interviewID string
	timeout     time.Duration

	sessionID string
	phase     phase
	lines     []line
	summary   *apiclient.Summary

	// pending holds an answer to resend once an expired session is resolved.
	pending    string
	hasPending bool

	input   textinput.Model
	spinner spinner.Model
	err     error
	width   int
}

// New builds the chat model for one interview.
func New(api API, interviewID string) Model {
	input := textinput.New()
	input.Placeholder = "Type your answer and press Enter"
	input.CharLimit = 2000
	input.Prompt = "> "

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		api:         api,
		interviewID: interviewID,
		timeout:     90 * time.Second,
		phase:       phaseConnecting,
		input:       input,
		spinner:     spin,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.resolveCmd(), m.spinner.Tick)
}

func (m Model) resolveCmd() tea.Cmd {
	api, id, timeout := m.api, m.interviewID, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		session, err := api.StartSession(ctx, id)
		if err != nil {
			return errMsg{Err: err}
		}
		return sessionResolvedMsg{Session: session}
	}
}

func (m Model) sendCmd(answer string) tea.Cmd {
	api, sessionID, timeout := m.api, m.sessionID, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		reply, err := api.Send(ctx, sessionID, answer)
		if err != nil {
			return errMsg{Err: err, Answer: answer}
		}
		return replyMsg{Reply: reply}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case sessionResolvedMsg:
		return m.handleSession(msg.Session)

	case replyMsg:
		m.err = nil
		m.lines = append(m.lines, line{fromInterviewer: true, text: msg.Reply.Text})
		if msg.Reply.Completed() {
			m.phase = phaseDone
			m.summary = msg.Reply.Summary
			m.input.Blur()
			return m, nil
		}
		m.phase = phaseAnswering
		return m, m.input.Focus()

	case errMsg:
		return m.handleError(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		if m.phase == phaseDone {
			return m, tea.Quit
		}
		if m.phase != phaseAnswering {
			return m, nil
		}
		answer := strings.TrimSpace(m.input.Value())
		if answer == "" {
			return m, nil
		}
		m.lines = append(m.lines, line{text: answer})
		m.input.Reset()
		m.phase = phaseWaiting
		m.err = nil
		return m, m.sendCmd(answer)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSession replays the stored history. A session whose last question is
// unanswered resumes there; an empty history asks for the opening turn.
func (m Model) handleSession(session apiclient.Session) (tea.Model, tea.Cmd) {
	m.sessionID = session.SessionID
	m.err = nil

	if m.hasPending {
		answer := m.pending
		m.pending, m.hasPending = "", false
		m.phase = phaseWaiting
		return m, m.sendCmd(answer)
	}

	m.lines = m.lines[:0]
	for _, turn := range session.ChatHistory {
		m.lines = append(m.lines, line{fromInterviewer: true, text: turn.Question})
		if turn.Answer != "" {
			m.lines = append(m.lines, line{text: turn.Answer})
		}
	}

	switch {
	case session.Stage == "completed" || session.Stage == "flagged":
		m.phase = phaseDone
		return m, nil
	case len(session.ChatHistory) == 0:
		m.phase = phaseWaiting
		return m, m.sendCmd("")
	case session.ChatHistory[len(session.ChatHistory)-1].Answer == "":
		m.phase = phaseAnswering
		return m, m.input.Focus()
	}
	// Every question is answered but no reply arrived; ask for the next one.
	m.phase = phaseWaiting
	return m, m.sendCmd("")
}

func (m Model) handleError(msg errMsg) (tea.Model, tea.Cmd) {
	m.err = msg.Err
	switch {
	case apiclient.IsSessionExpired(msg.Err) && m.sessionID != "":
		m.pending, m.hasPending = msg.Answer, true
		m.phase = phaseConnecting
		return m, m.resolveCmd()
	case m.sessionID == "":
		m.phase = phaseDone
		return m, nil
	}

	// Put the answer back so the respondent can resubmit the same turn.
	if msg.Answer != "" && len(m.lines) > 0 && !m.lines[len(m.lines)-1].fromInterviewer {
		m.lines = m.lines[:len(m.lines)-1]
		m.input.SetValue(msg.Answer)
	}
	m.phase = phaseAnswering
	return m, m.input.Focus()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Exit interview"))
	b.WriteString("\n\n")

	width := m.width
	if width <= 0 {
		width = 80
	}
	wrap := lipgloss.NewStyle().Width(max(width-2, 20))
	for _, l := range m.lines {
		if l.fromInterviewer {
			b.WriteString(wrap.Render(interviewerStyle.Render("Interviewer: ") + l.text))
		} else {
			b.WriteString(wrap.Render(respondentStyle.Render("You: ") + l.text))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.phase {
	case phaseConnecting:
		b.WriteString(m.spinner.View() + statusStyle.Render(" connecting..."))
	case phaseWaiting:
		b.WriteString(m.spinner.View() + statusStyle.Render(" the interviewer is typing..."))
	case phaseAnswering:
		b.WriteString(m.input.View())
	case phaseDone:
		if m.summary != nil {
			b.WriteString(summaryStyle.Render(fmt.Sprintf("Thank you. Rating recorded: %d/100", m.summary.Rating)))
			b.WriteString("\n")
		}
		b.WriteString(statusStyle.Render("Interview closed. Press Enter to exit."))
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(errorText(m.err)))
	}
	b.WriteString("\n")
	return b.String()
}

func errorText(err error) string {
	switch {
	case apiclient.IsRetryable(err):
		return "The interviewer did not respond. Press Enter to try again."
	case apiclient.IsSessionExpired(err):
		return "Your session expired. Reconnecting..."
	}
	return "Error: " + err.Error()
}
