// Package chat is the interactive terminal front end: a scrolling
// conversation above a multi-line input, driven by a session.Orchestrator.
package chat

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/samsaffron/term-chat/internal/conversation"
	"github.com/samsaffron/term-chat/internal/session"
	"github.com/samsaffron/term-chat/internal/ui"
)

const (
	flashDuration  = 1500 * time.Millisecond
	maxCompletions = 5
)

// Session is the orchestrator surface the chat view drives.
type Session interface {
	Submit(text string) bool
	Reset()
	Cancel() bool
	State() session.State
	History() []conversation.Turn
	LastError() error
	ClientName() string
	SwitchClient(client session.StreamingClient)
}

// ClientFactory builds a client for a "provider:model" string.
type ClientFactory func(providerModel string) (session.StreamingClient, error)

type Options struct {
	Session    Session
	Transcript *Transcript
	// ProviderModel is the active "provider:model", shown in the picker.
	ProviderModel       string
	NewClient           ClientFactory
	Copy                func(string) error
	Styles              *ui.Styles
	InputHeight         int
	ExpandedInputHeight int
	Logger              *slog.Logger
}

type focusArea int

const (
	focusInput focusArea = iota
	focusConversation
)

type flashExpiredMsg struct{ id int }

type renderedTurn struct {
	text     string
	width    int
	finished bool
	rendered string
}

type Model struct {
	session       Session
	transcript    *Transcript
	newClient     ClientFactory
	copy          func(string) error
	styles        *ui.Styles
	logger        *slog.Logger
	perf          *renderPerf
	providerModel string

	keys     keyMap
	help     help.Model
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	dialog   *DialogModel

	width          int
	height         int
	inputHeight    int
	expandedHeight int
	expanded       bool
	focus          focusArea
	showHelp       bool
	quitting       bool

	// follow keeps the viewport pinned to the newest output.
	follow      bool
	selected    int
	turnOffsets []int
	mdCache     map[session.TurnHandle]renderedTurn

	spinning    bool
	streamStart time.Time
	flash       string
	flashID     int
	notice      string
	completions []Command
}

func New(opts Options) *Model {
	styles := opts.Styles
	if styles == nil {
		styles = ui.DefaultStyles()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	copyFn := opts.Copy
	if copyFn == nil {
		copyFn = SystemClipboard
	}
	transcript := opts.Transcript
	if transcript == nil {
		transcript = NewTranscript()
	}
	inputHeight := opts.InputHeight
	if inputHeight <= 0 {
		inputHeight = 3
	}
	expandedHeight := opts.ExpandedInputHeight
	if expandedHeight <= inputHeight {
		expandedHeight = inputHeight * 4
	}

	ta := textarea.New()
	ta.Placeholder = "Send a message (/ for commands)"
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.SetHeight(inputHeight)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = lipgloss.NewStyle().Foreground(styles.Theme().Primary)

	return &Model{
		session:        opts.Session,
		transcript:     transcript,
		newClient:      opts.NewClient,
		copy:           copyFn,
		styles:         styles,
		logger:         logger,
		perf:           newRenderPerf(os.Getenv),
		providerModel:  opts.ProviderModel,
		keys:           defaultKeyMap(),
		help:           help.New(),
		textarea:       ta,
		viewport:       viewport.New(80, 20),
		spinner:        sp,
		dialog:         NewDialogModel(styles),
		inputHeight:    inputHeight,
		expandedHeight: expandedHeight,
		focus:          focusInput,
		follow:         true,
		selected:       -1,
		mdCache:        make(map[session.TurnHandle]renderedTurn),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForTranscript(m.transcript))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case transcriptChangedMsg:
		m.refresh()
		return m, tea.Batch(waitForTranscript(m.transcript), m.startSpinner())

	case spinner.TickMsg:
		if !m.streaming() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case flashExpiredMsg:
		if msg.id == m.flashID {
			m.flash = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.focus == focusInput {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m.quit()
	}

	if m.dialog.IsOpen() {
		if chosen := m.dialog.Update(msg); chosen != "" {
			m.focusInputArea()
			return m.switchModel(chosen)
		}
		if !m.dialog.IsOpen() {
			m.focusInputArea()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Reset):
		return m.resetConversation()

	case key.Matches(msg, m.keys.ToggleInput):
		m.expanded = !m.expanded
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		m.notice = ""
		if m.session.Cancel() {
			m.logger.Debug("stream cancelled by user")
			m.notice = "Cancelled."
			m.refresh()
			return m, nil
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.focus == focusInput {
			m.blurInput()
		}
		return m, nil
	}

	if m.focus == focusInput {
		return m.handleInputKey(msg)
	}
	return m.handleBrowseKey(msg)
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.Newline):
		m.textarea.InsertString("\n")
		return m, nil
	case msg.Type == tea.KeyTab && len(m.completions) > 0:
		m.textarea.SetValue("/" + m.completions[0].Name + " ")
		m.textarea.CursorEnd()
		m.updateCompletions()
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.updateCompletions()
	return m, cmd
}

func (m *Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.FocusInput):
		m.showHelp = false
		return m, m.focusInputArea()
	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.LineDown(1)
		m.follow = m.viewport.AtBottom()
	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.LineUp(1)
		m.follow = false
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		m.follow = m.viewport.AtBottom()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		m.follow = false
	case key.Matches(msg, m.keys.PrevTurn):
		m.selectTurn(-1)
	case key.Matches(msg, m.keys.NextTurn):
		m.selectTurn(1)
	case key.Matches(msg, m.keys.Copy):
		return m.copySelected()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	value := m.textarea.Value()
	if cmd, args, ok := ParseCommand(value); ok {
		return m.ExecuteCommand(cmd, args)
	}
	if !m.session.Submit(messageText(value)) {
		return m, nil
	}

	m.textarea.Reset()
	m.completions = nil
	m.notice = ""
	m.selected = -1
	m.follow = true
	m.streamStart = time.Now()
	m.blurInput()
	m.layout()
	return m, m.startSpinner()
}

func (m *Model) resetConversation() (tea.Model, tea.Cmd) {
	m.session.Reset()
	m.textarea.Reset()
	m.completions = nil
	m.selected = -1
	m.follow = true
	m.showHelp = false
	m.mdCache = make(map[session.TurnHandle]renderedTurn)
	m.notice = "Started a new conversation."
	cmd := m.focusInputArea()
	m.layout()
	return m, cmd
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.session.Cancel()
	m.quitting = true
	m.perf.log(m.logger)
	return m, tea.Quit
}

func (m *Model) copySelected() (tea.Model, tea.Cmd) {
	turns := m.transcript.Snapshot()
	var text string
	if m.selected >= 0 && m.selected < len(turns) {
		text = turns[m.selected].Text
	} else {
		for i := len(turns) - 1; i >= 0; i-- {
			if turns[i].Role == conversation.RoleAssistant && turns[i].Text != "" {
				text = turns[i].Text
				break
			}
		}
	}
	if text == "" {
		return m.showNotice("Nothing to copy.")
	}
	return m.copyText(text)
}

func (m *Model) copyText(text string) (tea.Model, tea.Cmd) {
	if err := m.copy(text); err != nil {
		m.logger.Warn("copy failed", "error", err)
		return m.showNotice(fmt.Sprintf("Copy failed: %v", err))
	}
	m.flashID++
	m.flash = "copied"
	id := m.flashID
	return m, tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashExpiredMsg{id: id}
	})
}

func (m *Model) selectTurn(delta int) {
	turns := m.transcript.Snapshot()
	if len(turns) == 0 {
		m.selected = -1
		return
	}
	switch {
	case m.selected < 0 && delta < 0:
		m.selected = len(turns) - 1
	case m.selected < 0:
		m.selected = 0
	default:
		m.selected = max(0, min(m.selected+delta, len(turns)-1))
	}
	m.follow = false
	m.refresh()
	if m.selected < len(m.turnOffsets) {
		m.viewport.SetYOffset(m.turnOffsets[m.selected])
	}
}

func (m *Model) focusInputArea() tea.Cmd {
	m.focus = focusInput
	return m.textarea.Focus()
}

func (m *Model) blurInput() {
	m.focus = focusConversation
	m.textarea.Blur()
}

func (m *Model) streaming() bool {
	return m.session.State() == session.StateStreaming
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning || !m.streaming() {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m *Model) updateCompletions() {
	prev := len(m.completions)
	value := m.textarea.Value()
	m.completions = nil
	if strings.HasPrefix(value, "/") && !strings.HasPrefix(value, "//") && !strings.ContainsAny(value, " \n") {
		m.completions = FilterCommands(value)
		if len(m.completions) > maxCompletions {
			m.completions = m.completions[:maxCompletions]
		}
	}
	if len(m.completions) != prev {
		m.layout()
	}
}

// layout sizes the input and viewport to the window.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	inputHeight := m.inputHeight
	if m.expanded {
		inputHeight = m.expandedHeight
	}
	// Leave room for the header, status and help lines and two rows of conversation.
	inputHeight = max(1, min(inputHeight, m.height-7))

	m.textarea.SetWidth(max(10, m.width-2))
	m.textarea.SetHeight(inputHeight)
	m.help.Width = m.width

	chrome := 1 + 1 + (inputHeight + 2) + 1 + len(m.completions)
	m.viewport.Width = m.width
	m.viewport.Height = max(1, m.height-chrome)
	m.refresh()
}

// refresh rebuilds the conversation content from the transcript.
func (m *Model) refresh() {
	start := time.Now()
	turns := m.transcript.Snapshot()
	if len(turns) == 0 {
		m.mdCache = make(map[session.TurnHandle]renderedTurn)
	}
	if m.selected >= len(turns) {
		m.selected = -1
	}

	width := max(20, m.viewport.Width-2)
	var b strings.Builder
	offsets := make([]int, len(turns))
	line := 0
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n\n")
			line += 2
		}
		block := m.renderTurn(turn, width)
		if i == m.selected {
			block = m.styles.Selected.Render(block)
		} else {
			block = m.styles.Unselected.Render(block)
		}
		offsets[i] = line
		line += lipgloss.Height(block) - 1
		b.WriteString(block)
	}
	if len(turns) == 0 {
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("Start typing to chat with %s.", m.session.ClientName())))
	}

	m.turnOffsets = offsets
	m.viewport.SetContent(b.String())
	if m.follow {
		m.viewport.GotoBottom()
	}
	m.perf.recordRefresh(time.Since(start))
}

func (m *Model) renderTurn(turn TurnView, width int) string {
	switch turn.Role {
	case conversation.RoleUser:
		body := lipgloss.NewStyle().Width(width).Render(turn.Text)
		return m.styles.UserLabel.Render("You") + "\n" + body

	case conversation.RoleAssistant:
		label := m.styles.ModelLabel.Render("Model")
		if turn.Waiting() {
			return label + " " + m.styles.Muted.Render("...")
		}
		out := label
		if turn.Text != "" {
			out += "\n" + m.renderMarkdown(turn, width)
		}
		switch {
		case turn.Finished && turn.Status == session.TurnFailed:
			msg := "request failed"
			if turn.Err != nil {
				msg = turn.Err.Error()
			}
			out += "\n" + m.styles.Error.Render(ui.FailIcon+" "+msg)
		case turn.Finished && turn.Status == session.TurnCancelled:
			out += "\n" + m.styles.Muted.Render(ui.CancelIcon+" cancelled")
		}
		return out

	default:
		return m.styles.Muted.Render(turn.Text)
	}
}

func (m *Model) renderMarkdown(turn TurnView, width int) string {
	if cached, ok := m.mdCache[turn.Handle]; ok && cached.text == turn.Text && cached.width == width && cached.finished == turn.Finished {
		return cached.rendered
	}
	start := time.Now()
	var out string
	if turn.Finished {
		out = ui.RenderMarkdown(turn.Text, width)
	} else {
		out = ui.RenderStreamingMarkdown(turn.Text, width)
	}
	m.perf.recordMarkdown(time.Since(start))
	m.mdCache[turn.Handle] = renderedTurn{text: turn.Text, width: width, finished: turn.Finished, rendered: out}
	return out
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	body := m.viewport.View()
	switch {
	case m.dialog.IsOpen():
		body = lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, m.dialog.View())
	case m.showHelp:
		body = lipgloss.NewStyle().
			Height(m.viewport.Height).
			MaxHeight(m.viewport.Height).
			Render(ui.RenderMarkdown(helpMarkdown(), m.viewport.Width))
	}

	parts := []string{m.headerView(), body}
	if len(m.completions) > 0 {
		parts = append(parts, m.completionsView())
	}
	parts = append(parts, m.statusView(), m.inputView(), m.helpView())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) headerView() string {
	title := m.styles.Title.Render("term-chat")
	model := m.styles.Muted.Render(" · " + m.session.ClientName())
	return ui.Truncate(title+model, m.width)
}

func (m *Model) statusView() string {
	var line string
	switch {
	case m.streaming():
		phase := "Waiting"
		chars := 0
		if turns := m.transcript.Snapshot(); len(turns) > 0 {
			if last := turns[len(turns)-1]; !last.Waiting() {
				phase = "Responding"
				chars = len(last.Text)
			}
		}
		line = ui.StreamingIndicator{
			Spinner:    m.spinner.View(),
			Phase:      phase,
			Elapsed:    time.Since(m.streamStart),
			Chars:      chars,
			ShowCancel: true,
		}.Render(m.styles)
	case m.flash != "":
		line = m.styles.Flash.Render(ui.SuccessIcon + " " + m.flash)
	case m.notice != "":
		line = m.styles.Muted.Render(m.notice)
	case m.session.LastError() != nil:
		line = m.styles.Error.Render(ui.FailIcon + " " + m.session.LastError().Error())
	}
	return ui.Truncate(line, m.width)
}

func (m *Model) inputView() string {
	style := m.styles.Input
	if m.focus != focusInput {
		style = m.styles.InputBlur
	}
	return style.Render(m.textarea.View())
}

func (m *Model) completionsView() string {
	var lines []string
	for i, cmd := range m.completions {
		name := "/" + cmd.Name
		if i == 0 {
			name = m.styles.Highlighted.Render(name)
		}
		lines = append(lines, ui.Truncate(name+" "+m.styles.Muted.Render(cmd.Description), m.width))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) helpView() string {
	if m.focus == focusInput {
		return m.help.View(inputKeys{m.keys})
	}
	return m.help.View(browseKeys{m.keys})
}

// Expanded reports whether the input pane is in its tall mode.
func (m *Model) Expanded() bool {
	return m.expanded
}
