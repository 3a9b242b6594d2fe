// Package tui is the terminal chat client: ask questions about the ingested
// documents and read the answers in a scrolling conversation.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Asker answers a question. It never fails; problems are reported in the answer.
type Asker interface {
	Ask(ctx context.Context, question string) string
}

type exchange struct {
	question string
	answer   string
	pending  bool
}

type answerMsg struct {
	index  int
	answer string
}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	ctx      context.Context
	asker    Asker
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	history  []exchange
	summary  string
	status   string
	waiting  bool
	ready    bool
}

// New creates a chat model. summary is shown under the header, e.g. what was ingested.
func New(ctx context.Context, asker Asker, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = pendingStyle
	return Model{
		ctx:      ctx,
		asker:    asker,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		summary:  summary,
		status:   "Ready. Ctrl+C to quit.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := conversationStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil
	case answerMsg:
		if msg.index >= 0 && msg.index < len(m.history) {
			m.history[msg.index].answer = msg.answer
			m.history[msg.index].pending = false
		}
		m.waiting = false
		m.status = fmt.Sprintf("%d question(s) answered.", len(m.history))
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.waiting {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			m.history = append(m.history, exchange{question: q, pending: true})
			m.waiting = true
			m.status = "Thinking..."
			m.refresh()
			return m, tea.Batch(m.ask(len(m.history)-1, q), m.spinner.Tick)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask answers q off the update loop.
func (m Model) ask(index int, q string) tea.Cmd {
	ctx, asker := m.ctx, m.asker
	return func() tea.Msg {
		return answerMsg{index: index, answer: asker.Ask(ctx, q)}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

// View renders the header, conversation, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Document Q&A")
	summary := summaryStyle.Render(m.summary)
	conversation := conversationStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + conversation + "\n" + input + "\n" + status
}

func (m Model) renderConversation() string {
	if len(m.history) == 0 {
		return summaryStyle.Render("No questions yet.")
	}
	width := max(10, m.viewport.Width-2)
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n")
		}
		q := ex.question
		if q == "" {
			q = "(empty)"
		}
		b.WriteString(questionStyle.Width(width).Render("You: " + q))
		b.WriteString("\n")
		if ex.pending {
			b.WriteString(pendingStyle.Render(m.spinner.View() + " thinking"))
		} else {
			b.WriteString(answerStyle.Width(width).Render(ex.answer))
		}
		b.WriteString("\n")
	}
	return b.String()
}

var (
	headerStyle       = lipgloss.NewStyle().Bold(true)
	summaryStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	questionStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle       = lipgloss.NewStyle().PaddingLeft(2)
	pendingStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	conversationStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
