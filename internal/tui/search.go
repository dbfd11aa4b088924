package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/JohnDeved/dirviewer-cli/internal/index"
	"github.com/JohnDeved/dirviewer-cli/internal/util"
)

// searchModel manages the search view.
type searchModel struct {
	input        textinput.Model
	results      []index.EntryRecord
	cursor       int
	offset       int
	height       int
	viewportRows int
	searching    bool
	err          error
	lastQuery    string
	noIndex      bool
}

func (s *searchModel) pageSize() int {
	if s.viewportRows > 0 {
		return s.viewportRows
	}
	if s.height > 0 {
		return s.height
	}
	return 1
}

func newSearchModel() searchModel {
	ti := textinput.New()
	ti.Placeholder = "Search files and directories..."
	ti.CharLimit = 256
	ti.Width = 60
	ti.Prompt = "Search: "
	ti.PromptStyle = searchPromptStyle
	return searchModel{
		input:  ti,
		height: 20,
	}
}

func (s *searchModel) normalizeViewport() {
	rows := s.pageSize()
	if len(s.results) == 0 {
		s.cursor = 0
		s.offset = 0
		return
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	if s.cursor >= len(s.results) {
		s.cursor = len(s.results) - 1
	}
	if s.offset < 0 {
		s.offset = 0
	}
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if rows > 0 && s.cursor >= s.offset+rows {
		s.offset = s.cursor - rows + 1
	}
	maxOffset := len(s.results) - rows
	if maxOffset < 0 {
		maxOffset = 0
	}
	if s.offset > maxOffset {
		s.offset = maxOffset
	}
}

func (s *searchModel) setResults(query string, results []index.EntryRecord) {
	s.lastQuery = query
	s.results = results
	s.cursor = 0
	s.offset = 0
	s.searching = false
	s.err = nil
}

func (s *searchModel) setError(err error) {
	s.err = err
	s.searching = false
}

func (s *searchModel) selected() *index.EntryRecord {
	s.normalizeViewport()
	if s.cursor >= 0 && s.cursor < len(s.results) {
		return &s.results[s.cursor]
	}
	return nil
}

func (s *searchModel) moveUp() {
	if s.cursor > 0 {
		s.cursor--
		if s.cursor < s.offset {
			s.offset = s.cursor
		}
	}
}

func (s *searchModel) moveDown() {
	rows := s.pageSize()
	if s.cursor < len(s.results)-1 {
		s.cursor++
		if s.cursor >= s.offset+rows {
			s.offset = s.cursor - rows + 1
		}
	}
}

func (s *searchModel) pageUp() {
	if len(s.results) == 0 {
		s.cursor = 0
		s.offset = 0
		return
	}
	rows := s.pageSize()
	rel := s.cursor - s.offset
	s.offset -= rows
	if s.offset < 0 {
		s.offset = 0
	}
	s.cursor = s.offset + rel
	if s.cursor >= len(s.results) {
		s.cursor = len(s.results) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

func (s *searchModel) pageDown() {
	rows := s.pageSize()
	rel := s.cursor - s.offset
	s.offset += rows
	maxOffset := len(s.results) - rows
	if maxOffset < 0 {
		maxOffset = 0
	}
	if s.offset > maxOffset {
		s.offset = maxOffset
	}
	s.cursor = s.offset + rel
	if s.cursor >= len(s.results) {
		s.cursor = len(s.results) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

func (s *searchModel) view(width int, spin string) string {
	var sb strings.Builder
	s.normalizeViewport()
	usedLines := 0

	sb.WriteString(padToWidth(s.input.View(), width))
	sb.WriteString("\n\n")
	usedLines += 2

	if s.noIndex {
		sb.WriteString(padToWidth(helpStyle.Render("  No index is open. Run 'dirviewer index' to build it."), width))
		sb.WriteString("\n")
		return sb.String()
	}

	if s.searching {
		sb.WriteString(padToWidth(fmt.Sprintf("  %s Searching local index...", spin), width))
		sb.WriteString("\n")
		return sb.String()
	}

	if s.err != nil {
		sb.WriteString(padToWidth(errorStyle.Render(fmt.Sprintf("  Error: %v", s.err)), width))
		sb.WriteString("\n")
		return sb.String()
	}

	if s.lastQuery != "" && len(s.results) == 0 {
		sb.WriteString(padToWidth(helpStyle.Render("  No results found."), width))
		sb.WriteString("\n")
		return sb.String()
	}

	if len(s.results) == 0 {
		sb.WriteString(padToWidth(helpStyle.Render("  Type to search the local index. Run 'dirviewer index' to build it."), width))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(padToWidth(helpStyle.Render(fmt.Sprintf("  Found %d results:", len(s.results))), width))
	sb.WriteString("\n\n")
	usedLines += 2

	// One line below the list shows the selected result's full path.
	detailLines := 1
	scrollInfoLines := 0
	if len(s.results) > s.pageSize() {
		scrollInfoLines = 1
	}
	availableRows := s.height - usedLines - detailLines - scrollInfoLines
	if availableRows < 1 {
		availableRows = 1
	}
	s.viewportRows = availableRows
	s.normalizeViewport()

	end := s.offset + availableRows
	if end > len(s.results) {
		end = len(s.results)
	}
	rowWidth := width - selectedStyle.GetHorizontalFrameSize()
	if rowWidth < 12 {
		rowWidth = 12
	}

	for i := s.offset; i < end; i++ {
		r := s.results[i]
		size := ""
		if !r.IsDir {
			size = util.FormatBytes(r.Size).Str
		}
		line := renderBrowseLikeRow(r.Name, size, util.FormatTimestamp(r.ModMs), r.IsDir, rowWidth, i == s.cursor)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if sel := s.selected(); sel != nil {
		sb.WriteString(padToWidth(helpStyle.Render("  "+truncateText(sel.Path, max(20, width-4))), width))
		sb.WriteString("\n")
	}

	if len(s.results) > availableRows {
		pct := 0.0
		if len(s.results)-availableRows > 0 {
			pct = float64(s.offset) / float64(len(s.results)-availableRows) * 100
		}
		sb.WriteString(padToWidth(helpStyle.Render(
			fmt.Sprintf("  %d/%d results (%.0f%%)", s.cursor+1, len(s.results), pct),
		), width))
		sb.WriteString("\n")
	}

	return sb.String()
}
