package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/poagraph/poagraph/pkg/msa"
)

// Viewer styles
var (
	viewerNameStyle     = lipgloss.NewStyle().Foreground(colorGray)
	viewerSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	viewerDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// panStep is how many alignment columns a single left/right keypress moves.
const panStep = 10

// =============================================================================
// MSAViewerModel - Interactive alignment browser
// =============================================================================

// MSAViewerModel is the bubbletea model for the interactive alignment
// viewer. Rows scroll vertically with the cursor; wide alignments pan
// horizontally by column.
type MSAViewerModel struct {
	Title     string
	Alignment msa.Alignment
	Cursor    int // selected row
	Offset    int // first visible row
	Col       int // first visible alignment column
	Height    int // visible row count
	Width     int // terminal width
	nameWidth int
}

// NewMSAViewerModel creates a viewer for the given alignment.
func NewMSAViewerModel(title string, aln msa.Alignment) MSAViewerModel {
	nameWidth := 4
	for _, row := range aln.Rows {
		if len(row.Name) > nameWidth {
			nameWidth = len(row.Name)
		}
	}
	if nameWidth > 24 {
		nameWidth = 24
	}
	return MSAViewerModel{
		Title:     title,
		Alignment: aln,
		Height:    15,
		Width:     80,
		nameWidth: nameWidth,
	}
}

func (m MSAViewerModel) Init() tea.Cmd {
	return nil
}

func (m MSAViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Alignment.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "left", "h":
			m.Col -= panStep
			if m.Col < 0 {
				m.Col = 0
			}
		case "right", "l":
			m.Col += panStep
			if max := m.maxCol(); m.Col > max {
				m.Col = max
			}
		case "home", "g":
			m.Col = 0
		case "end", "G":
			m.Col = m.maxCol()
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
		if max := m.maxCol(); m.Col > max {
			m.Col = max
		}
	}
	return m, nil
}

func (m MSAViewerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(viewerDimStyle.Render("↑/↓ rows  ←/→ pan  g/G start/end  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Alignment.Rows) {
		end = len(m.Alignment.Rows)
	}

	visible := m.visibleCols()
	for i := m.Offset; i < end; i++ {
		row := m.Alignment.Rows[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		b.WriteString(cursor)

		name := row.Name
		if len(name) > m.nameWidth {
			name = name[:m.nameWidth-1] + "…"
		}
		padded := fmt.Sprintf("%-*s", m.nameWidth, name)
		if i == m.Cursor {
			b.WriteString(viewerSelectedStyle.Render(padded))
		} else {
			b.WriteString(viewerNameStyle.Render(padded))
		}
		b.WriteString(" ")
		b.WriteString(renderResidues(sliceColumns(row.Aligned, m.Col, visible)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	hi := m.Col + visible
	if hi > m.Alignment.Width {
		hi = m.Alignment.Width
	}
	b.WriteString(viewerDimStyle.Render(fmt.Sprintf("  [row %d/%d · cols %d-%d of %d]",
		m.Cursor+1, len(m.Alignment.Rows), m.Col+1, hi, m.Alignment.Width)))

	return b.String()
}

// visibleCols is how many alignment columns fit beside the name column.
func (m MSAViewerModel) visibleCols() int {
	cols := m.Width - m.nameWidth - 4
	if cols < 10 {
		cols = 10
	}
	return cols
}

// maxCol is the largest left edge that still fills the pane.
func (m MSAViewerModel) maxCol() int {
	max := m.Alignment.Width - m.visibleCols()
	if max < 0 {
		max = 0
	}
	return max
}

// =============================================================================
// Helpers
// =============================================================================

// sliceColumns cuts an aligned row to the visible column window. Aligned
// rows are plain ASCII so byte slicing is safe.
func sliceColumns(aligned string, from, count int) string {
	if from >= len(aligned) {
		return ""
	}
	to := from + count
	if to > len(aligned) {
		to = len(aligned)
	}
	return aligned[from:to]
}

// renderResidues colors each alignment symbol individually.
func renderResidues(s string) string {
	var b strings.Builder
	for _, r := range s {
		b.WriteString(styleResidue(r))
	}
	return b.String()
}
