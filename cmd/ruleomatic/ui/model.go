package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"ruleomatic/internal/logging"
	"ruleomatic/internal/process"
	"ruleomatic/internal/reconcile"
	"ruleomatic/internal/rules"
	"ruleomatic/internal/types"
)

// RuleSource answers rule queries. *rules.Service satisfies it.
type RuleSource interface {
	Search(query string) ([]types.EnrichedRule, error)
}

// ProcessScanner produces process snapshots. *process.Scanner satisfies it.
type ProcessScanner interface {
	Scan(ctx context.Context) (*process.Snapshot, error)
}

// Options configures the interactive view.
type Options struct {
	Context context.Context
	Rules   RuleSource
	Scanner ProcessScanner
	// Tick is the input polling interval.
	Tick time.Duration
	// Refresh is how often the process table is rescanned.
	Refresh time.Duration
	Styles  Styles
}

type (
	tickMsg  time.Time
	rulesMsg struct {
		rules []types.EnrichedRule
		err   error
	}
	snapshotMsg struct {
		snap *process.Snapshot
		err  error
	}
	detailMsg struct {
		result  reconcile.Result
		err     error
		refresh bool
	}
)

// Model is the bubbletea model of the rule browser.
type Model struct {
	opts Options
	keys keyMap
	help help.Model

	table      table.Model
	filter     textinput.Model
	filtering  bool
	detail     viewport.Model
	showing    bool
	detailRule types.EnrichedRule

	all      []types.EnrichedRule
	visible  []types.EnrichedRule
	snapshot *process.Snapshot

	paused      bool
	refreshing  bool
	lastRefresh time.Time
	err         error
	scanErr     error
	width       int
	height      int
}

// New builds the model. Zero intervals fall back to 250ms and 1s.
func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Tick <= 0 {
		opts.Tick = 250 * time.Millisecond
	}
	if opts.Refresh <= 0 {
		opts.Refresh = time.Second
	}

	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.CharLimit = 64
	ti.Width = 30

	t := table.New(
		table.WithColumns(columns(100)),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(opts.Styles.Table.GetBorderStyle()).
		BorderForeground(opts.Styles.Theme.Border).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(opts.Styles.Theme.Foreground).
		Background(opts.Styles.Theme.Border).
		Bold(true)
	t.SetStyles(s)

	return Model{
		opts:   opts,
		keys:   defaultKeyMap(),
		help:   help.New(),
		table:  t,
		filter: ti,
		detail: viewport.New(80, 10),
	}
}

func columns(width int) []table.Column {
	name := 24
	if width > 100 {
		name += (width - 100) / 2
	}
	return []table.Column{
		{Title: "Category", Width: 16},
		{Title: "Name", Width: name},
		{Title: "Type", Width: 14},
		{Title: "Nice", Width: 5},
		{Title: "Sched", Width: 8},
		{Title: "IO", Width: 12},
		{Title: "State", Width: 10},
	}
}

// Init loads the rules, takes the first snapshot and starts the tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadRules(), m.scan(), m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) loadRules() tea.Cmd {
	src := m.opts.Rules
	return func() tea.Msg {
		loaded, err := src.Search("")
		return rulesMsg{rules: loaded, err: err}
	}
}

func (m Model) scan() tea.Cmd {
	scanner, ctx := m.opts.Scanner, m.opts.Context
	return func() tea.Msg {
		snap, err := scanner.Scan(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) selected() (types.EnrichedRule, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return types.EnrichedRule{}, false
	}
	return m.visible[i], true
}

// reconcileRule compares rule with the current snapshot. refresh marks a
// recomputation of the open detail pane.
func (m Model) reconcileRule(rule types.EnrichedRule, refresh bool) tea.Cmd {
	snap, ctx := m.snapshot, m.opts.Context
	return func() tea.Msg {
		res, err := reconcile.ForRule(ctx, snap, rule)
		return detailMsg{result: res, err: err, refresh: refresh}
	}
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(columns(msg.Width))
		m.table.SetHeight(max(msg.Height-12, 5))
		m.detail.Width = max(msg.Width-4, 20)
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		now := time.Time(msg)
		cmds := []tea.Cmd{m.tick()}
		if !m.paused && !m.refreshing && now.Sub(m.lastRefresh) >= m.opts.Refresh {
			m.refreshing = true
			cmds = append(cmds, m.scan())
		}
		return m, tea.Batch(cmds...)

	case rulesMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.all = msg.rules
		m.updateRows()
		return m, nil

	case snapshotMsg:
		m.refreshing = false
		m.lastRefresh = time.Now()
		if msg.err != nil {
			logging.Get(logging.CategoryUI).Warnw("process scan failed", "error", msg.err)
			m.scanErr = msg.err
			return m, nil
		}
		m.scanErr = nil
		m.snapshot = msg.snap
		m.updateRows()
		if m.showing {
			return m, m.reconcileRule(m.detailRule, true)
		}
		return m, nil

	case detailMsg:
		if msg.refresh && !m.showing {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.detail.SetContent(renderDetail(msg.result, m.opts.Styles))
		if !msg.refresh {
			m.detail.GotoTop()
		}
		m.showing = true
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Back):
			if m.showing {
				m.showing = false
				return m, nil
			}
			if m.filter.Value() != "" {
				m.filter.SetValue("")
				m.updateRows()
				return m, nil
			}
		case key.Matches(msg, m.keys.Filter):
			m.filtering = true
			return m, m.filter.Focus()
		case key.Matches(msg, m.keys.Detail):
			rule, ok := m.selected()
			if !ok {
				return m, nil
			}
			m.detailRule = rule
			return m, m.reconcileRule(rule, false)
		case key.Matches(msg, m.keys.Reload):
			return m, m.loadRules()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			return m, nil
		}
		if m.showing {
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.filtering = false
		m.filter.Blur()
		m.updateRows()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.updateRows()
	return m, cmd
}

// updateRows rebuilds the table from the loaded rules, the filter and the
// current snapshot.
func (m *Model) updateRows() {
	m.visible = rules.Filter(m.all, strings.TrimSpace(m.filter.Value()))

	rows := make([]table.Row, 0, len(m.visible))
	for _, r := range m.visible {
		rows = append(rows, table.Row{
			r.Category(),
			r.Data.NameOr("-"),
			deref(r.Data.Type),
			derefInt(r.Data.Nice),
			deref(r.Data.Sched),
			deref(r.Data.IOClass),
			m.state(r),
		})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m Model) state(r types.EnrichedRule) string {
	if r.Shadowed {
		return "shadowed"
	}
	if name, ok := r.NameKey(); ok && m.snapshot.IsActive(name) {
		return "active"
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func renderDetail(res reconcile.Result, s Styles) string {
	var b strings.Builder
	rule := res.Rule
	b.WriteString(s.Title.Render(rule.Data.NameOr("unknown")))
	if rule.Shadowed {
		b.WriteString(" " + s.Shadowed.Render("(Shadowed)"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n", s.Muted.Render(rule.SourceFile))

	if res.Active() {
		fmt.Fprintf(&b, "%s\n", s.Active.Render(fmt.Sprintf("[ACTIVE] (PID: %d)", res.Process.PID)))
		if len(res.Checks) > 0 {
			fmt.Fprintf(&b, "Status: %s\n", s.RenderStatus(res))
		}
	} else {
		b.WriteString(s.Muted.Render("not running") + "\n")
	}

	if rule.ContextComment != nil {
		b.WriteString("\n")
		for _, line := range strings.Split(*rule.ContextComment, "\n") {
			b.WriteString(s.Italic.Render(line) + "\n")
		}
	}
	return b.String()
}

// View renders the browser.
func (m Model) View() string {
	var b strings.Builder

	status := fmt.Sprintf("%d rules · %d processes", len(m.visible), m.snapshot.Len())
	if m.paused {
		status += " · paused"
	}
	b.WriteString(m.opts.Styles.Header.Render("ananicy rule-o-matic") + m.opts.Styles.Muted.Render(status) + "\n\n")

	if m.filtering {
		b.WriteString(" / " + m.filter.View() + "\n")
	} else if v := m.filter.Value(); v != "" {
		b.WriteString(m.opts.Styles.Muted.Render(" Filter: "+v) + "\n")
	}

	b.WriteString(m.opts.Styles.Table.Render(m.table.View()) + "\n")

	if m.showing {
		b.WriteString(m.opts.Styles.Detail.Render(m.detail.View()) + "\n")
	}
	for _, err := range []error{m.err, m.scanErr} {
		if err != nil {
			b.WriteString(m.opts.Styles.Error.Render(" Error: "+err.Error()) + "\n")
		}
	}

	b.WriteString(m.opts.Styles.Footer.Render(m.help.View(m.keys)))
	return b.String()
}

// Run starts the browser on the alternate screen and blocks until it quits.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(opts.contextOrBackground()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interactive view failed: %w", err)
	}
	return nil
}

func (o Options) contextOrBackground() context.Context {
	if o.Context == nil {
		return context.Background()
	}
	return o.Context
}
