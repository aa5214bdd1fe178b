// Package tui provides the Bubble Tea study interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/flashvocab/internal/model"
	"github.com/verte-zerg/flashvocab/internal/session"
)

const requestTimeout = 15 * time.Second

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	faceLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cardTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	cardStyle      = lipgloss.NewStyle().
			Padding(1, 3).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	dotActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	dotStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#73D13D")).Bold(true)
)

type loadedMsg struct{ err error }

type markedMsg struct{ err error }

type resetMsg struct{ err error }

// ClosedMsg is emitted instead of quitting when the model runs embedded in
// another screen.
type ClosedMsg struct {
	SetID int64
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger for failed requests.
func WithLogger(log *zap.Logger) Option {
	return func(m *Model) {
		m.log = log
	}
}

// WithShuffle shuffles the cards after every load.
func WithShuffle(shuffle bool) Option {
	return func(m *Model) {
		m.shuffleOnLoad = shuffle
	}
}

// Embedded makes quit keys emit ClosedMsg.
func Embedded() Option {
	return func(m *Model) {
		m.embedded = true
	}
}

// Model implements the Bubble Tea study UI.
type Model struct {
	ctx           context.Context
	engine        *session.Engine
	setID         int64
	log           *zap.Logger
	embedded      bool
	shuffleOnLoad bool

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width  int
	height int

	loading bool
	errMsg  string
}

// NewModel constructs a study model for one set.
func NewModel(engine *session.Engine, setID int64, opts ...Option) *Model {
	m := &Model{
		ctx:     context.Background(),
		engine:  engine,
		setID:   setID,
		log:     zap.NewNop(),
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(faceLabelStyle)),
		loading: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case loadedMsg:
		m.finishRequest("load set", msg.err)
		return m, nil
	case markedMsg:
		m.finishRequest("mark card learned", msg.err)
		return m, nil
	case resetMsg:
		m.finishRequest("reset set", msg.err)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Quit):
		if m.embedded {
			setID := m.setID
			return m, func() tea.Msg { return ClosedMsg{SetID: setID} }
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Learn):
		if m.loading || m.engine.Snapshot().State != session.Active {
			return m, nil
		}
		return m, m.startRequest(m.markCmd())
	case key.Matches(msg, m.keys.Reset):
		if m.loading {
			return m, nil
		}
		return m, m.startRequest(m.resetCmd())
	case key.Matches(msg, m.keys.Skip):
		m.engine.SkipToNext()
	case key.Matches(msg, m.keys.Flip):
		m.engine.AdvanceFace()
	case key.Matches(msg, m.keys.Face):
		if n, err := strconv.Atoi(msg.String()); err == nil {
			m.engine.SetFace(model.Face(n - 1))
		}
	case key.Matches(msg, m.keys.Shuffle):
		m.engine.ToggleShuffle()
	case key.Matches(msg, m.keys.Start):
		m.engine.JumpToStart()
	}
	return m, nil
}

func (m *Model) startRequest(cmd tea.Cmd) tea.Cmd {
	m.loading = true
	m.errMsg = ""
	return tea.Batch(m.spinner.Tick, cmd)
}

func (m *Model) finishRequest(op string, err error) {
	m.loading = false
	switch {
	case err == nil:
		m.errMsg = ""
		if m.shuffleOnLoad && op != "mark card learned" {
			m.engine.Shuffle()
		}
	case errors.Is(err, session.ErrSuperseded), errors.Is(err, session.ErrBusy):
		m.log.Debug("request discarded", zap.String("op", op), zap.Error(err))
	default:
		m.errMsg = err.Error()
		m.log.Warn("request failed", zap.String("op", op), zap.Int64("set_id", m.setID), zap.Error(err))
	}
}

func (m *Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		return loadedMsg{err: m.engine.Load(ctx, m.setID)}
	}
}

func (m *Model) markCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		return markedMsg{err: m.engine.MarkLearnedAndAdvance(ctx)}
	}
}

func (m *Model) resetCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		return resetMsg{err: m.engine.ResetAllAndReload(ctx, m.setID)}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	v := m.engine.Snapshot()
	header := m.renderHeader(v)
	body := m.renderBody(v)
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return strings.Join([]string{header, body, footer}, "\n")
	}
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, body)
	return header + "\n" + body + "\n" + footer
}

func (m *Model) renderHeader(v session.View) string {
	if !v.Loaded {
		return mutedStyle.Render("flashvocab")
	}
	title := titleStyle.Render(v.Set.Name)
	if v.Shuffled {
		title += mutedStyle.Render("  · shuffled")
	}
	return title
}

func (m *Model) renderBody(v session.View) string {
	switch {
	case !v.Loaded:
		if m.loading {
			return m.spinner.View() + " Loading…"
		}
		return ""
	case v.Empty():
		return mutedStyle.Render("This set has no flashcards.")
	case v.Finished():
		return lipgloss.JoinVertical(lipgloss.Center,
			doneStyle.Render(fmt.Sprintf("All %d cards learned!", v.TotalCount)),
			mutedStyle.Render("Press R to reset the set and study it again."),
		)
	}

	text := v.FaceText()
	if strings.TrimSpace(text) == "" {
		text = "—"
	}
	card := cardStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		faceLabelStyle.Render(v.Face.String()),
		"",
		cardTextStyle.Render(strings.Join(wrapText(text, m.cardWidth()), "\n")),
	))
	return lipgloss.JoinVertical(lipgloss.Center,
		card,
		renderFaceDots(v.Face),
		mutedStyle.Render(renderProgress(v)),
	)
}

func (m *Model) renderFooter() string {
	lines := make([]string, 0, 2)
	switch {
	case m.errMsg != "":
		lines = append(lines, errorStyle.Render(m.errMsg))
	case m.loading && m.engine.Snapshot().Loaded:
		lines = append(lines, m.spinner.View()+mutedStyle.Render(" Saving…"))
	}
	lines = append(lines, m.help.View(m.keys))
	return strings.Join(lines, "\n")
}

func (m *Model) cardWidth() int {
	if m.width == 0 {
		return 60
	}
	w := int(float64(m.width)*0.70) - 8
	if w < 1 {
		return 1
	}
	return w
}

func renderFaceDots(current model.Face) string {
	dots := make([]string, 0, model.FaceCount)
	for f := model.Face(0); f < model.FaceCount; f++ {
		if f == current {
			dots = append(dots, dotActiveStyle.Render("●"))
			continue
		}
		dots = append(dots, dotStyle.Render("○"))
	}
	return strings.Join(dots, " ")
}

func renderProgress(v session.View) string {
	if v.Len() == 0 {
		return fmt.Sprintf("0/0  (%d/%d learned)", v.LearnedCount, v.TotalCount)
	}
	return fmt.Sprintf("%d/%d  (%d/%d learned)", v.Position+1, v.Len(), v.LearnedCount, v.TotalCount)
}
