package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-insider/pkg/pipeline"
	"github.com/dd0wney/cluso-insider/pkg/predict"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	curveBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FFFF00")).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	knownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	rankingView view = iota
	summaryView
	lossView
	viewCount
)

var tabNames = []string{"Ranking", "Summary", "Loss"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("up/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("down/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab},
		{k.Up, k.Down},
		{k.Quit},
	}
}

type model struct {
	analyze     tea.Cmd
	report      *pipeline.Report
	currentView view
	spinner     spinner.Model
	ranking     table.Model
	help        help.Model
	keys        keyMap
}

func initialModel(analyze tea.Cmd) model {
	columns := []table.Column{
		{Title: "Rank", Width: 6},
		{Title: "User", Width: 12},
		{Title: "Score", Width: 10},
		{Title: "Known", Width: 7},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
		table.WithWidth(48),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		analyze:     analyze,
		currentView: rankingView,
		spinner:     sp,
		ranking:     t,
		help:        help.New(),
		keys:        keys,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.analyze)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		if h := msg.Height - 14; h > 5 {
			m.ranking.SetHeight(h)
		}

	case reportMsg:
		m.report = msg.report
		m.ranking.SetRows(rankingRows(msg.report.RankedUsers))
		return m, nil

	case spinner.TickMsg:
		if m.report != nil {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.currentView = (m.currentView + viewCount - 1) % viewCount
			return m, nil
		}
	}

	if m.currentView == rankingView {
		m.ranking, cmd = m.ranking.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Insider Threat Ranking"))
	s.WriteString("\n\n")

	switch {
	case m.report == nil:
		s.WriteString(contentStyle.Render(m.spinner.View() + " Running analysis..."))
	case !m.report.OK():
		s.WriteString(contentStyle.Render(errorStyle.Render("Analysis failed: " + m.report.Message)))
	default:
		s.WriteString(m.renderTabs())
		s.WriteString("\n")
		switch m.currentView {
		case rankingView:
			s.WriteString(contentStyle.Render(m.ranking.View()))
		case summaryView:
			s.WriteString(m.renderSummary())
		case lossView:
			s.WriteString(m.renderLoss())
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m model) renderTabs() string {
	rendered := make([]string, 0, len(tabNames))
	for i, tab := range tabNames {
		if view(i) == m.currentView {
			rendered = append(rendered, activeTabStyle.Render(tab))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderSummary() string {
	r := m.report
	sum := r.Summary
	if sum == nil {
		sum = &pipeline.Summary{}
	}

	run := fmt.Sprintf(`Run
Analysis day:  %s
Selection:     %s
Data source:   %s
Run ID:        %s`,
		r.AnalysisDate, r.DaySelection, r.DataSource, r.RunID)

	graph := fmt.Sprintf(`Graph
Nodes:          %d
Edges:          %d
Users:          %d
Known insiders: %d
Log days:       %d (%s to %s)`,
		sum.TotalNodes, sum.TotalEdges, sum.UsersAnalyzed,
		sum.KnownMaliciousCount, sum.TotalDaysAvailable,
		sum.DateRangeStart, sum.DateRangeEnd)

	var flagged []string
	for i, u := range r.RankedUsers {
		if u.IsKnownMalicious {
			flagged = append(flagged, fmt.Sprintf("#%d %s", i+1, u.User))
		}
	}
	known := "Known insiders in ranking\n"
	if len(flagged) == 0 {
		known += "none"
	} else {
		known += knownStyle.Render(strings.Join(flagged, "\n"))
	}

	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(run),
		statsBoxStyle.Render(graph),
		statsBoxStyle.Render(known),
	))
}

func (m model) renderLoss() string {
	curve := m.report.TrainingLossCurve
	if len(curve) == 0 {
		return contentStyle.Render("No training loss recorded")
	}
	body := fmt.Sprintf("Epochs: %d\nFirst:  %.4f\nLast:   %.4f\n\n%s",
		len(curve), curve[0], curve[len(curve)-1], sparkline(curve))
	return contentStyle.Render(curveBoxStyle.Render(body))
}

func rankingRows(results []predict.Result) []table.Row {
	rows := make([]table.Row, 0, len(results))
	for i, r := range results {
		known := ""
		if r.IsKnownMalicious {
			known = "yes"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			r.User,
			fmt.Sprintf("%.4f", r.Score),
			known,
		})
	}
	return rows
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// sparkline scales values between their min and max onto eight bar heights.
func sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]rune, len(values))
	for i, v := range values {
		level := 0
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(len(sparkLevels)-1))
		}
		out[i] = sparkLevels[level]
	}
	return string(out)
}
