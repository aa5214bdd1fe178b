// Package setsui provides the Bubble Tea set list.
package setsui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/flashvocab/internal/model"
	"github.com/verte-zerg/flashvocab/internal/session"
	"github.com/verte-zerg/flashvocab/internal/tui"
)

const requestTimeout = 15 * time.Second

const (
	cardsColWidth   = 6
	learnedColWidth = 8
	faceColWidth    = 13
	minNameColWidth = 8
)

var (
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	confirmStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Store is the card store the set list works on.
type Store interface {
	session.CardStore
	ListSets(ctx context.Context) ([]model.SetSummary, error)
	DeleteSet(ctx context.Context, id int64) error
	UpdateSet(ctx context.Context, id int64, patch model.SetPatch) (model.VocabularySet, error)
	ReorderSets(ctx context.Context, orderedIDs []int64) error
}

type setsLoadedMsg struct {
	sets []model.SetSummary
	err  error
}

type deletedMsg struct {
	id  int64
	err error
}

type reorderedMsg struct {
	previous []model.SetSummary
	err      error
}

type updatedMsg struct {
	id  int64
	set model.VocabularySet
	err error
}

type keyMap struct {
	Open     key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Face     key.Binding
	Delete   key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Open:     key.NewBinding(key.WithKeys("enter")),
	MoveUp:   key.NewBinding(key.WithKeys("K", "shift+up")),
	MoveDown: key.NewBinding(key.WithKeys("J", "shift+down")),
	Face:     key.NewBinding(key.WithKeys("f")),
	Delete:   key.NewBinding(key.WithKeys("d", "delete")),
	Refresh:  key.NewBinding(key.WithKeys("r")),
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger for failed requests.
func WithLogger(log *zap.Logger) Option {
	return func(m *Model) {
		m.log = log
	}
}

// WithStudyOptions sets the options used for every study session opened
// from the list.
func WithStudyOptions(engineOpts []session.Option, studyOpts ...tui.Option) Option {
	return func(m *Model) {
		m.engineOpts = engineOpts
		m.studyOpts = studyOpts
	}
}

// Model implements the Bubble Tea set list.
type Model struct {
	ctx        context.Context
	store      Store
	log        *zap.Logger
	engineOpts []session.Option
	studyOpts  []tui.Option

	sets  []model.SetSummary
	table table.Model

	width  int
	height int

	loading   bool
	confirmID int64
	status    string
	errMsg    string

	study *tui.Model
}

// NewModel constructs a set list model.
func NewModel(st Store, opts ...Option) *Model {
	m := &Model{
		ctx:     context.Background(),
		store:   st,
		log:     zap.NewNop(),
		loading: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.table = buildSetTable(nil, 0, 1)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadCmd()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		if m.study != nil {
			m.study.Update(msg)
		}
		return m, nil
	case setsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.fail("list sets", msg.err)
			return m, nil
		}
		m.setSets(msg.sets)
		return m, nil
	case deletedMsg:
		m.handleDeleted(msg)
		return m, nil
	case reorderedMsg:
		if msg.err != nil {
			m.setSets(msg.previous)
			m.fail("reorder sets", msg.err)
			if errors.Is(msg.err, model.ErrNotFound) {
				return m, m.loadCmd()
			}
		}
		return m, nil
	case updatedMsg:
		m.handleUpdated(msg)
		return m, nil
	case tui.ClosedMsg:
		m.study = nil
		m.status = ""
		return m, m.loadCmd()
	}

	if m.study != nil {
		_, cmd := m.study.Update(msg)
		return m, cmd
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmID != 0 {
		id := m.confirmID
		m.confirmID = 0
		if msg.String() == "y" {
			m.status = "Deleting…"
			return m, m.deleteCmd(id)
		}
		m.status = ""
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Refresh):
		m.loading = true
		return m, m.loadCmd()
	}

	set, ok := m.selected()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, keys.Open):
		return m, m.openStudy(set.ID)
	case key.Matches(msg, keys.MoveUp):
		return m, m.move(-1)
	case key.Matches(msg, keys.MoveDown):
		return m, m.move(1)
	case key.Matches(msg, keys.Face):
		next := set.DefaultFace.Next()
		return m, m.updateCmd(set.ID, model.SetPatch{DefaultFace: &next})
	case key.Matches(msg, keys.Delete):
		m.confirmID = set.ID
		m.status = fmt.Sprintf("Delete %q and its %d cards? (y/n)", set.Name, set.CardCount)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) openStudy(setID int64) tea.Cmd {
	opts := append([]tui.Option{tui.Embedded(), tui.WithLogger(m.log)}, m.studyOpts...)
	m.study = tui.NewModel(session.New(m.store, m.engineOpts...), setID, opts...)
	if m.width > 0 && m.height > 0 {
		m.study.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	}
	return m.study.Init()
}

// move swaps the selected set with its neighbour and persists the new order.
func (m *Model) move(delta int) tea.Cmd {
	i := m.table.Cursor()
	j := i + delta
	if i < 0 || j < 0 || j >= len(m.sets) {
		return nil
	}
	previous := append([]model.SetSummary(nil), m.sets...)
	m.sets[i], m.sets[j] = m.sets[j], m.sets[i]
	m.table.SetRows(setRows(m.sets))
	m.table.SetCursor(j)

	ids := make([]int64, len(m.sets))
	for k, s := range m.sets {
		ids[k] = s.ID
	}
	return m.reorderCmd(ids, previous)
}

func (m *Model) handleDeleted(msg deletedMsg) {
	m.status = ""
	if msg.err != nil {
		m.fail("delete set", msg.err)
		if !errors.Is(msg.err, model.ErrNotFound) {
			return
		}
	}
	m.removeSet(msg.id)
}

func (m *Model) handleUpdated(msg updatedMsg) {
	if msg.err != nil {
		m.fail("update set", msg.err)
		if errors.Is(msg.err, model.ErrNotFound) {
			m.removeSet(msg.id)
		}
		return
	}
	m.errMsg = ""
	for i := range m.sets {
		if m.sets[i].ID == msg.id {
			m.sets[i].VocabularySet = msg.set
		}
	}
	m.table.SetRows(setRows(m.sets))
}

func (m *Model) fail(op string, err error) {
	m.errMsg = err.Error()
	m.log.Warn("request failed", zap.String("op", op), zap.Error(err))
}

func (m *Model) setSets(sets []model.SetSummary) {
	m.sets = sets
	m.table.SetRows(setRows(sets))
	if len(sets) > 0 && m.table.Cursor() >= len(sets) {
		m.table.SetCursor(len(sets) - 1)
	}
}

func (m *Model) removeSet(id int64) {
	out := m.sets[:0]
	for _, s := range m.sets {
		if s.ID != id {
			out = append(out, s)
		}
	}
	m.setSets(out)
}

func (m *Model) selected() (model.SetSummary, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.sets) {
		return model.SetSummary{}, false
	}
	return m.sets[i], true
}

func (m *Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		sets, err := m.store.ListSets(ctx)
		return setsLoadedMsg{sets: sets, err: err}
	}
}

func (m *Model) deleteCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		return deletedMsg{id: id, err: m.store.DeleteSet(ctx, id)}
	}
}

func (m *Model) reorderCmd(ids []int64, previous []model.SetSummary) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		return reorderedMsg{previous: previous, err: m.store.ReorderSets(ctx, ids)}
	}
}

func (m *Model) updateCmd(id int64, patch model.SetPatch) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		set, err := m.store.UpdateSet(ctx, id, patch)
		return updatedMsg{id: id, set: set, err: err}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.study != nil {
		return m.study.View()
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	body := m.renderBody()
	if m.width == 0 || m.height == 0 {
		return strings.Join([]string{header, body, footer}, "\n")
	}
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	bodyHeight := maxInt(1, m.height-headerHeight-footerHeight)
	return strings.Join([]string{
		fitLines(header, m.width, headerHeight),
		fitLines(body, m.width, bodyHeight),
		fitLines(footer, m.width, footerHeight),
	}, "\n")
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("Vocabulary sets")
	if !m.loading {
		title += headerStyle.Render("  " + strconv.Itoa(len(m.sets)))
	}
	return title
}

func (m *Model) renderBody() string {
	switch {
	case m.loading && len(m.sets) == 0:
		return headerStyle.Render("Loading sets…")
	case len(m.sets) == 0:
		return headerStyle.Render("No sets yet. Import one with: flashvocab import <file>")
	default:
		return tableMutedStyle.Render(m.table.View())
	}
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Study: enter  Move: K/J  Face: f  Delete: d  Refresh: r  Quit: q")
	switch {
	case m.status != "":
		return confirmStyle.Render(m.status) + "\n" + help
	case m.errMsg != "":
		return errorStyle.Render(m.errMsg) + "\n" + help
	default:
		return help
	}
}

func (m *Model) updateLayout() {
	bodyHeight := maxInt(1, m.height-3)
	m.table.SetColumns(setColumns(m.width))
	m.table.SetWidth(m.width)
	m.table.SetHeight(maxInt(1, bodyHeight-1))
}

func buildSetTable(sets []model.SetSummary, width, height int) table.Model {
	t := table.New(
		table.WithColumns(setColumns(width)),
		table.WithRows(setRows(sets)),
		table.WithHeight(maxInt(1, height)),
		table.WithFocused(true),
	)
	t.SetStyles(setTableStyles())
	return t
}

func setColumns(width int) []table.Column {
	name := width - cardsColWidth - learnedColWidth - faceColWidth - 4
	if name < minNameColWidth {
		name = 24
	}
	return []table.Column{
		{Title: "Set", Width: name},
		{Title: "Cards", Width: cardsColWidth},
		{Title: "Learned", Width: learnedColWidth},
		{Title: "Opens on", Width: faceColWidth},
	}
}

func setRows(sets []model.SetSummary) []table.Row {
	rows := make([]table.Row, 0, len(sets))
	for _, s := range sets {
		rows = append(rows, table.Row{
			s.Name,
			strconv.Itoa(s.CardCount),
			strconv.Itoa(s.LearnedCount),
			s.DefaultFace.String(),
		})
	}
	return rows
}

func setTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
