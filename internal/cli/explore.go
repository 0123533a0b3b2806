package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/constellation/pkg/api"
	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/palette"
	"github.com/matzehuels/constellation/pkg/pipeline"
	"github.com/matzehuels/constellation/pkg/query"
	"github.com/matzehuels/constellation/pkg/view"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	tooltipStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
)

type exploreOpts struct {
	source sourceFlags
	filter filterFlags
	layout layoutFlags
}

// exploreCommand creates the interactive explore command.
func (c *CLI) exploreCommand() *cobra.Command {
	var opts exploreOpts

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Browse the constellation interactively in the terminal",
		Long: `Browse the bubbles of a constellation. The selected bubble is hovered
and its tooltip shown; enter opens its definition.

  ↑/↓ select   +/- zoom   0 reset zoom   c switch coloring
  enter open definition   r refetch   q quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), opts)
		},
	}

	addSourceFlags(cmd, &opts.source)
	addFilterFlags(cmd, &opts.filter)
	addLayoutFlags(cmd, &opts.layout)

	return cmd
}

func (c *CLI) runExplore(ctx context.Context, opts exploreOpts) error {
	popts := c.baseOptions()
	popts.FolderID, popts.TermID = opts.filter.folder, opts.filter.term
	if err := opts.layout.apply(&popts); err != nil {
		return err
	}
	if err := popts.ValidateForLayout(); err != nil {
		return err
	}

	src, closeSrc, err := c.newSource(ctx, opts.source)
	if err != nil {
		return err
	}
	defer closeSrc()

	qs := pipeline.NewQuerySource(src)
	runner, err := c.newRunner(ctx, qs)
	if err != nil {
		return err
	}
	defer runner.Close()

	key := query.Key(popts.FolderID, popts.TermID)
	load := func(ctx context.Context, mode palette.Mode, refresh bool) (constellation.Layout, error) {
		o := popts
		o.ColorMode = mode
		o.Refresh = refresh
		if refresh {
			qs.Client().Invalidate(key)
		}
		m, err := runner.Fetch(ctx, o)
		if err != nil {
			return constellation.Layout{}, err
		}
		return runner.Layout(ctx, m, o)
	}

	model := newExploreModel(ctx, load, popts.ColorMode, popts.Zoom)
	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	if em, ok := final.(*exploreModel); ok && em.target != "" {
		printInfo("Last opened %s", StyleLink.Render(em.target))
	}
	return nil
}

// =============================================================================
// exploreModel
// =============================================================================

// layoutLoader computes the layout under a color mode, optionally
// refetching the matrix.
type layoutLoader func(ctx context.Context, mode palette.Mode, refresh bool) (constellation.Layout, error)

type layoutMsg struct {
	layout constellation.Layout
	err    error
}

// exploreModel is the bubbletea model of the explore command. Bubbles are
// listed in layout order, largest first; the cursor drives hover.
type exploreModel struct {
	ctx  context.Context
	load layoutLoader

	layout  constellation.Layout
	mode    palette.Mode
	ctrl    *view.Controller
	cursor  int
	offset  int
	height  int
	width   int
	loading bool
	err     error
	target  string // definition view of the last click
}

func newExploreModel(ctx context.Context, load layoutLoader, mode palette.Mode, zoom float64) *exploreModel {
	m := &exploreModel{ctx: ctx, load: load, mode: mode, height: 8, width: 64, loading: true}
	m.ctrl = view.NewController(func(termID, thinkerID, _ string) {
		m.target = api.DefinitionTarget(termID, thinkerID)
	})
	if zoom > 0 {
		m.ctrl.Zoom.Set(zoom)
	}
	return m
}

func (m *exploreModel) loadCmd(refresh bool) tea.Cmd {
	mode := m.mode
	return func() tea.Msg {
		l, err := m.load(m.ctx, mode, refresh)
		return layoutMsg{layout: l, err: err}
	}
}

// Init fetches fresh data; opening the explorer is a mount.
func (m *exploreModel) Init() tea.Cmd {
	return m.loadCmd(true)
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case layoutMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.layout = msg.layout
			m.cursor = min(m.cursor, max(len(m.layout.Bubbles)-1, 0))
			m.hover()
		}
	case tea.WindowSizeMsg:
		m.width = min(max(msg.Width-2, 20), 96)
		m.height = max(msg.Height-m.canvasRows()-14, 3)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "+", "=":
			m.ctrl.Zoom.ZoomIn()
			m.hover()
		case "-", "_":
			m.ctrl.Zoom.ZoomOut()
			m.hover()
		case "0":
			m.ctrl.Zoom.Reset()
			m.hover()
		case "c":
			if m.mode == palette.ByThinker {
				m.mode = palette.ByTerm
			} else {
				m.mode = palette.ByThinker
			}
			m.loading = true
			return m, m.loadCmd(false)
		case "r":
			m.loading = true
			return m, m.loadCmd(true)
		case "enter":
			if b, ok := m.ctrl.Hover.Hovered(); ok {
				m.ctrl.Click(b)
			}
		}
	}
	return m, nil
}

func (m *exploreModel) move(delta int) {
	n := len(m.layout.Bubbles)
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
	m.hover()
}

// hover moves the pointer to the center of the selected bubble at the
// current zoom.
func (m *exploreModel) hover() {
	if m.cursor >= len(m.layout.Bubbles) {
		m.ctrl.Hover.Leave()
		return
	}
	pb := m.layout.Bubbles[m.cursor]
	cx, cy := m.layout.Width/2, m.layout.Height/2
	sx, sy := m.ctrl.Zoom.ToScreen(pb.X, pb.Y, cx, cy)
	m.ctrl.PointerMove(m.layout, sx, sy)
	// Exhausted bubbles can sit under a neighbour.
	if cur, ok := m.ctrl.Hover.Hovered(); !ok || cur.Key() != pb.Bubble.Key() {
		m.ctrl.Hover.Enter(pb.Bubble, sx, sy)
	}
}

func (m *exploreModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Constellation"))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("zoom %.1f · color by %s", m.ctrl.Zoom.Level(), m.mode)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ select  +/- zoom  0 reset  c color  ⏎ open  r refetch  q quit"))
	b.WriteString("\n\n")

	switch {
	case m.loading && m.layout.IsEmpty():
		b.WriteString(listDimStyle.Render("Loading..."))
		return b.String()
	case m.err != nil:
		b.WriteString(styleIconError.Render(iconError) + " " + constellation.LoadFailedMessage)
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render(m.err.Error()))
		return b.String()
	case m.layout.IsEmpty():
		b.WriteString(StyleWarning.Render(constellation.EmptyMessage))
		return b.String()
	}

	selected := ""
	if hovered, ok := m.ctrl.Hover.Hovered(); ok {
		selected = hovered.Key()
	}
	b.WriteString(drawCanvas(m.layout, m.ctrl.Zoom, m.width, selected))
	b.WriteString("\n")
	b.WriteString(m.bubbleTable())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.layout.Bubbles))))
	b.WriteString("\n")

	if hovered, ok := m.ctrl.Hover.Hovered(); ok {
		b.WriteString(tooltipStyle.Render(strings.Join(view.TooltipLines(hovered), "\n")))
		b.WriteString("\n")
	}
	b.WriteString(m.legend())
	if m.target != "" {
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("opened ") + StyleLink.Render(m.target))
	}
	return b.String()
}

// canvasRows is the height drawCanvas uses at the current width.
func (m *exploreModel) canvasRows() int {
	if m.layout.Width <= 0 {
		return m.width / 3
	}
	return int(float64(m.width) * m.layout.Height / m.layout.Width / 2)
}

func (m *exploreModel) bubbleTable() string {
	end := min(m.offset+m.height, len(m.layout.Bubbles))
	rows := make([][]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		pb := m.layout.Bubbles[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(m.layout.Color(pb.Bubble))).Render("●")
		rows = append(rows, []string{
			cursor + swatch,
			pb.Bubble.TermName,
			pb.Bubble.ThinkerName,
			fmt.Sprint(pb.Bubble.Frequency),
			fmt.Sprintf("%.0f,%.0f r%.0f", pb.X, pb.Y, pb.Radius),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Term", "Thinker", "Freq", "Position").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader
			case m.offset+row == m.cursor:
				return listSelectedStyle
			case col >= 3:
				return listDimStyle
			default:
				return listNormalStyle
			}
		}).
		Render()
}

func (m *exploreModel) legend() string {
	parts := make([]string, 0, len(m.layout.Legend))
	for _, e := range m.layout.Legend {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render("●")
		parts = append(parts, swatch+" "+e.Key)
	}
	return listDimStyle.Render("legend ") + strings.Join(parts, "  ")
}
