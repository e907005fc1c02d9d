package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/jwebster45206/werewolf-engine/internal/agents"
	"github.com/jwebster45206/werewolf-engine/internal/gm"
	"github.com/jwebster45206/werewolf-engine/pkg/prompts"
	"github.com/jwebster45206/werewolf-engine/pkg/state"
	"github.com/jwebster45206/werewolf-engine/pkg/view"
)

const PlaceHolderText = "Speak to the village, or /help..."

type entryKind int

const (
	entryScene entryKind = iota
	entrySystem
	entryError
)

type entry struct {
	kind  entryKind
	title string
	text  string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	ctx    context.Context
	master *gm.Master

	gameState *state.GameState
	view      *view.View

	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	loading      bool

	transcript []entry
	lastScene  string

	// live discussion state
	progress <-chan agents.Progress
	typing      []string
	pending     []string
	playerSpoke bool

	showQuitModal bool
	progressTick  int
}

type opResultMsg struct {
	title string
	text  string
	scene *gm.SceneOutcome
	err   error
}

type progressMsg agents.Progress

type progressClosedMsg struct{}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(ctx context.Context, master *gm.Master, transcript []entry) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true
	metaVp := viewport.New(20, 20)

	m := ConsoleUI{
		ctx:          ctx,
		master:       master,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
		transcript:   transcript,
	}
	for _, e := range transcript {
		if e.kind == entryScene {
			m.lastScene = e.text
		}
	}
	m.refreshState()
	return m
}

func (m *ConsoleUI) refreshState() {
	gs, err := m.master.State()
	if err != nil {
		return
	}
	m.gameState = gs
	if v, err := m.master.View(gs.Player); err == nil {
		m.view = v
	}
}

// wrapText wraps on spaces where it can and hard-wraps the rest, since
// Japanese lines carry no spaces.
func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wrap.String(wordwrap.String(s, width), width)
}

// splitSpeaker splits `Name「...」` into the name and the quoted rest.
func splitSpeaker(line string) (string, string, bool) {
	idx := strings.Index(line, "「")
	if idx <= 0 {
		return "", "", false
	}
	name := line[:idx]
	if utf8.RuneCountInString(name) > 12 || strings.ContainsAny(name, " 　。、") {
		return "", "", false
	}
	return name, line[idx:], true
}

func formatScene(text string, width int) string {
	var out []string
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if name, rest, ok := splitSpeaker(line); ok {
			out = append(out, speakerStyle.Render(name)+wrapText(rest, width-utf8.RuneCountInString(name)*2))
			continue
		}
		out = append(out, narratorStyle.Render(wrapText(line, width)))
	}
	return strings.Join(out, "\n")
}

func writeMetadata(gs *state.GameState, v *view.View) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("VILLAGE") + "\n\n")
	if gs == nil || v == nil {
		content.WriteString("No game loaded\n")
		return content.String()
	}

	content.WriteString("Game ID:\n")
	content.WriteString(gs.ID.String()[:8] + "...\n\n")
	content.WriteString(fmt.Sprintf("Day %d, %s\n\n", v.Day, v.Phase))

	status := "alive"
	if !v.Self.Alive {
		status = "dead"
	}
	content.WriteString("You:\n")
	content.WriteString(fmt.Sprintf("%s (%s, %s)\n\n", v.Self.Name, v.Self.RoleLabel, status))

	if len(v.WolfTeammates) > 0 {
		content.WriteString("Pack:\n")
		content.WriteString(strings.Join(v.WolfTeammates, ", ") + "\n\n")
	}

	content.WriteString("Alive:\n")
	for _, name := range v.AlivePlayers {
		line := "• " + name
		if c, ok := v.PublicClaims[name]; ok {
			line += " [" + c.Role.Label() + "]"
		}
		content.WriteString(line + "\n")
	}
	content.WriteString("\n")

	if len(v.DeadPlayers) > 0 {
		content.WriteString("Dead:\n")
		for _, d := range v.DeadPlayers {
			content.WriteString(fmt.Sprintf("• %s (%s)\n", d.Name, d.Cause))
		}
		content.WriteString("\n")
	}

	if len(v.PrivateInfo) > 0 {
		content.WriteString("Only you know:\n")
		for _, info := range v.PrivateInfo {
			content.WriteString("• " + info + "\n")
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Speak\n")
	content.WriteString("• Ctrl+Y: Copy scene\n")
	content.WriteString("• /help: Help\n")
	return content.String()
}

// writeChatContent rebuilds the transcript for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6

	var content strings.Builder
	content.WriteString(titleStyle.Render("WEREWOLF") + "\n\n")
	content.WriteString("Speak to the village below. Type /help for commands.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 1))) + "\n\n")

	for _, e := range m.transcript {
		switch e.kind {
		case entryScene:
			content.WriteString(promptStyle.Render("── "+e.title) + "\n")
			content.WriteString(formatScene(e.text, chatWidth) + "\n\n")
		case entrySystem:
			if e.title != "" {
				content.WriteString(titleStyle.Render(e.title) + "\n")
			}
			content.WriteString(wrapText(e.text, chatWidth) + "\n\n")
		case entryError:
			content.WriteString(errorStyle.Render(wrapText("Error: "+e.text, chatWidth)) + "\n\n")
		}
	}

	if m.loading {
		for i, line := range m.pending {
			style := promptStyle
			if i == 0 && m.playerSpoke {
				style = userStyle
			}
			content.WriteString(style.Render(wrapText(line, chatWidth)) + "\n")
		}
		if len(m.typing) > 0 {
			content.WriteString(loadingStyle.Render(strings.Join(m.typing, ", ")+" typing...") + "\n")
		}
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) add(e entry) {
	m.transcript = append(m.transcript, e)
	m.writeChatContent()
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - chatWidth - 6

		m.chatViewport.Width = chatWidth - 2
		m.chatViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(chatWidth - 4)

		m.ready = true
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.gameState, m.view))

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlY:
			m.copyLastScene()
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			m.pending = append(m.pending, "You: "+input)
			m.playerSpoke = true
			return m, m.startScene(func(ctx context.Context, p chan<- agents.Progress) (*gm.SceneOutcome, error) {
				return m.master.Discussion(ctx, input, p)
			})
		}

	case progressMsg:
		if m.progress == nil {
			return m, nil
		}
		m.applyProgress(agents.Progress(msg))
		if m.loading {
			m.writeChatContent()
		}
		return m, waitForProgress(m.progress)

	case progressClosedMsg:
		m.progress = nil
		return m, nil

	case opResultMsg:
		m.loading = false
		m.typing, m.pending, m.playerSpoke = nil, nil, false
		switch {
		case msg.err != nil:
			m.transcript = append(m.transcript, entry{kind: entryError, text: msg.err.Error()})
		case msg.scene != nil:
			m.lastScene = msg.scene.Text
			m.transcript = append(m.transcript, entry{kind: entryScene, title: msg.scene.Key, text: msg.scene.Text})
			if len(msg.scene.Errored) > 0 {
				m.transcript = append(m.transcript, entry{kind: entrySystem,
					text: "Fell back to a silent line for " + strings.Join(msg.scene.Errored, ", ")})
			}
		default:
			m.transcript = append(m.transcript, entry{kind: entrySystem, title: msg.title, text: msg.text})
		}
		m.refreshState()
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.gameState, m.view))
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// applyProgress folds one agent event into the live typing state.
func (m *ConsoleUI) applyProgress(p agents.Progress) {
	switch p.Kind {
	case agents.ProgressTyping:
		if !slices.Contains(m.typing, p.Name) {
			m.typing = append(m.typing, p.Name)
		}
	case agents.ProgressLine:
		m.pending = append(m.pending, p.Text)
		m.typing = slices.DeleteFunc(m.typing, func(n string) bool { return n == p.Name })
	case agents.ProgressError, agents.ProgressDone:
		m.typing = slices.DeleteFunc(m.typing, func(n string) bool { return n == p.Name })
	}
}

func (m *ConsoleUI) copyLastScene() {
	if m.lastScene == "" {
		m.add(entry{kind: entrySystem, text: "No scene to copy yet."})
		return
	}
	if err := clipboard.WriteAll(m.lastScene); err != nil {
		m.add(entry{kind: entryError, text: err.Error()})
		return
	}
	m.add(entry{kind: entrySystem, text: "Copied the last scene to the clipboard."})
}

func waitForProgress(ch <-chan agents.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return progressClosedMsg{}
		}
		return progressMsg(p)
	}
}

type sceneFunc func(ctx context.Context, progress chan<- agents.Progress) (*gm.SceneOutcome, error)

// startScene runs fn off the UI loop and streams its progress events back.
func (m *ConsoleUI) startScene(fn sceneFunc) tea.Cmd {
	ch := make(chan agents.Progress, 16)
	m.progress = ch
	m.loading = true
	m.progressTick = 0
	m.writeChatContent()

	ctx := m.ctx
	return tea.Batch(
		func() tea.Msg {
			out, err := fn(ctx, ch)
			close(ch)
			return opResultMsg{scene: out, err: err}
		},
		waitForProgress(ch),
		progressTick(),
	)
}

// startOp runs a game operation that produces a text summary.
func (m *ConsoleUI) startOp(title string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	m.loading = true
	m.progressTick = 0
	m.writeChatContent()

	ctx := m.ctx
	return tea.Batch(
		func() tea.Msg {
			text, err := fn(ctx)
			return opResultMsg{title: title, text: text, err: err}
		},
		progressTick(),
	)
}

const helpText = `Anything not starting with / is said in the day's discussion.
• /night [seer=X] [guard=Y] [attack=Z] - Resolve the night
• /vote [name] - Cast ballots and execute
• /scene <morning|vote|execution|epilogue|epilogue_thread> - Narrate a scene
• /discuss - Run a discussion round without speaking
• /advance - Move to the next phase
• /brief - Show the village briefing
• /copy or Ctrl+Y - Copy the last scene
• Esc or Ctrl+C - Quit`

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "/help":
		m.add(entry{kind: entrySystem, title: "Help:", text: helpText})

	case "/copy":
		m.copyLastScene()

	case "/night":
		human, err := parseNightArgs(args)
		if err != nil {
			m.add(entry{kind: entryError, text: err.Error()})
			return m, nil
		}
		return m, m.startOp("Night:", func(ctx context.Context) (string, error) {
			out, err := m.master.ResolveNight(ctx, human)
			if err != nil {
				return "", err
			}
			return formatNight(out), nil
		})

	case "/vote":
		var target string
		if len(args) > 0 {
			target = args[0]
		}
		return m, m.startOp("Vote:", func(ctx context.Context) (string, error) {
			out, err := m.master.ResolveVote(ctx, target)
			if err != nil {
				return "", err
			}
			return formatVote(out), nil
		})

	case "/scene":
		if len(args) != 1 {
			m.add(entry{kind: entryError, text: "usage: /scene <kind>"})
			return m, nil
		}
		kind, err := prompts.ParseSceneKind(args[0])
		if err != nil {
			m.add(entry{kind: entryError, text: err.Error()})
			return m, nil
		}
		return m, m.startScene(func(ctx context.Context, p chan<- agents.Progress) (*gm.SceneOutcome, error) {
			return m.master.Scene(ctx, kind, p)
		})

	case "/discuss":
		return m, m.startScene(func(ctx context.Context, p chan<- agents.Progress) (*gm.SceneOutcome, error) {
			return m.master.Discussion(ctx, "", p)
		})

	case "/advance":
		return m, m.startOp("Advance:", func(ctx context.Context) (string, error) {
			phase, err := m.master.Advance(ctx)
			if err != nil {
				return "", err
			}
			return "Now in " + string(phase) + ".", nil
		})

	case "/brief":
		return m, m.startOp("Briefing:", func(ctx context.Context) (string, error) {
			b, err := m.master.Brief(ctx)
			if err != nil {
				return "", err
			}
			return formatBrief(b), nil
		})

	default:
		m.add(entry{kind: entryError, text: "unknown command " + fields[0] + ", try /help"})
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the Village?"))
	content.WriteString("\n\n")
	content.WriteString("The game is saved after every step.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
