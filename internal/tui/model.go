package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragpipe/internal/domain"
	"ragpipe/internal/pipeline"
	"ragpipe/internal/textutil"
)

// queryTimeout bounds a single query issued from the console.
const queryTimeout = 2 * time.Minute

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Answer(ctx context.Context, query string) (*pipeline.QueryState, error)
}

type answerMsg struct {
	query string
	state *pipeline.QueryState
	err   error
}

// Model is the Bubble Tea model for the TUI application.
// Page 0 shows the generated response; pages 1..n show the retrieved chunks.
type Model struct {
	service  RAGPort
	input    textinput.Model
	viewport viewport.Model
	state    *pipeline.QueryState
	summary  string
	status   string
	cursor   int
	ready    bool
	busy     bool
}

// New creates a new TUI model instance.
func New(service RAGPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, summary: summary, status: "Ready. Type a question."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		state, err := m.service.Answer(ctx, q)
		return answerMsg{query: q, state: state, err: err}
	}
}

// pages is the number of browsable views for the current answer.
func (m Model) pages() int {
	if m.state == nil {
		return 0
	}
	return 1 + len(m.state.Context())
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := max(3, msg.Height-reserved)
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderPage())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.state = nil
		} else {
			m.status = fmt.Sprintf("Answer for %q (%d chunks)", msg.query, len(msg.state.Context()))
			m.state = msg.state
			m.cursor = 0
		}
		m.viewport.SetContent(m.renderPage())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = fmt.Sprintf("Searching for %q...", q)
				m.input.SetValue("")
				return m, m.ask(q)
			}
		case "down", "tab":
			if n := m.pages(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderPage())
				m.viewport.GotoTop()
				return m, nil
			}
		case "up", "shift+tab":
			if n := m.pages(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderPage())
				m.viewport.GotoTop()
				return m, nil
			}
		case "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		case "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Pipeline")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderPage() string {
	if m.state == nil {
		return "No answer yet."
	}
	if m.cursor == 0 {
		return fmt.Sprintf("Response  (1/%d, ↓ for sources)\n\n%s", m.pages(), m.state.Response())
	}
	r := m.state.Context()[m.cursor-1]
	source, ok := r.Chunk.Metadata.Lookup(domain.MetaSource)
	if !ok {
		source = "unknown source"
	}
	title := fmt.Sprintf("Chunk %d/%d  score=%.3f  %s", m.cursor, len(m.state.Context()), r.Score, source)
	return title + "\n\n" + highlightBestSentence(r.Chunk.Content, m.state.Query())
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// highlightBestSentence emphasizes the sentence sharing the most content
// words with query.
func highlightBestSentence(text, query string) string {
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	qTokens := make(map[string]struct{})
	for _, t := range textutil.ContentTokens(query) {
		qTokens[t] = struct{}{}
	}
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := textutil.OverlapScore(qTokens, s); score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}
