// Package ui contains the interactive index explorer: a scrollable,
// filterable view over the entries of a sealed position index.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"

	"soldef/internal/index"
)

type fileView struct {
	fileID  int64
	path    string
	entries []*index.Entry
}

type explorerModel struct {
	files    []fileView
	fileIdx  int
	cursor   int
	offset   int
	filter   textinput.Model
	filtered []*index.Entry
	width    int
	height   int
}

// NewExplorer returns a Bubble Tea model browsing every file of a sealed
// index. Files with entries but no path mapping are shown by id alone.
func NewExplorer(ix *index.PositionIndex) tea.Model {
	filter := textinput.New()
	filter.Placeholder = "filter by type tag or name"
	filter.CharLimit = 64

	var files []fileView
	for _, fileID := range ix.Files() {
		path, _ := ix.FilePath(fileID)
		if path == "" {
			path = fmt.Sprintf("<file %d>", fileID)
		}
		files = append(files, fileView{
			fileID:  fileID,
			path:    path,
			entries: ix.Entries(fileID),
		})
	}

	m := &explorerModel{
		files:  files,
		filter: filter,
		width:  80,
		height: 24,
	}
	m.refilter()
	return m
}

func (m *explorerModel) Init() tea.Cmd {
	return nil
}

func (m *explorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		if msg.Height > 0 {
			m.height = msg.Height
		}
		return m, nil
	case tea.KeyMsg:
		if m.filter.Focused() {
			switch msg.String() {
			case "enter", "esc":
				m.filter.Blur()
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				m.refilter()
				return m, cmd
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.moveCursor(-1)
		case "down", "j":
			m.moveCursor(1)
		case "pgup":
			m.moveCursor(-m.pageSize())
		case "pgdown":
			m.moveCursor(m.pageSize())
		case "left", "h":
			m.switchFile(-1)
		case "right", "l":
			m.switchFile(1)
		case "/":
			m.filter.Focus()
			return m, textinput.Blink
		}
	}
	return m, nil
}

func (m *explorerModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	var b strings.Builder
	if len(m.files) == 0 {
		b.WriteString("empty index\n")
		b.WriteString(dimStyle.Render("press q to quit"))
		b.WriteString("\n")
		return b.String()
	}

	file := m.files[m.fileIdx]
	header := fmt.Sprintf("%s  [file %d, %d/%d entries]",
		truncate(file.path, m.width-24), file.fileID, len(m.filtered), len(file.entries))
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	page := m.pageSize()
	end := m.offset + page
	if end > len(m.filtered) {
		end = len(m.filtered)
	}
	for i := m.offset; i < end; i++ {
		e := m.filtered[i]
		marker := "  "
		line := entryLine(e, m.width-4)
		if i == m.cursor {
			marker = "> "
			line = cursorStyle.Render(line)
		}
		b.WriteString(marker)
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ scroll · ←/→ file · / filter · q quit"))
	b.WriteString("\n")
	return b.String()
}

func entryLine(e *index.Entry, width int) string {
	label := e.TypeTag
	if name, ok := index.StringField(e.Raw, "name"); ok && name != "" {
		label = fmt.Sprintf("%s %s", e.TypeTag, name)
	}
	line := fmt.Sprintf("%8d-%-8d d%-3d %s", e.StartByte, e.EndByte, e.Depth, label)
	return truncate(line, width)
}

func (m *explorerModel) pageSize() int {
	// Header, filter line, separators, and the footer eat six rows.
	page := m.height - 6
	if page < 1 {
		page = 1
	}
	return page
}

func (m *explorerModel) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
}

func (m *explorerModel) switchFile(delta int) {
	if len(m.files) == 0 {
		return
	}
	m.fileIdx = (m.fileIdx + delta + len(m.files)) % len(m.files)
	m.cursor = 0
	m.offset = 0
	m.refilter()
}

// refilter recomputes the visible entry slice. Matching is case-insensitive
// over the NFC-normalized type tag and name, so composed and decomposed
// spellings of the same identifier compare equal.
func (m *explorerModel) refilter() {
	if len(m.files) == 0 {
		m.filtered = nil
		return
	}
	entries := m.files[m.fileIdx].entries
	query := normalizeQuery(m.filter.Value())
	if query == "" {
		m.filtered = entries
	} else {
		m.filtered = nil
		for _, e := range entries {
			label := e.TypeTag
			if name, ok := index.StringField(e.Raw, "name"); ok {
				label += " " + name
			}
			if strings.Contains(normalizeQuery(label), query) {
				m.filtered = append(m.filtered, e)
			}
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = 0
		m.offset = 0
	}
}

func normalizeQuery(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
