package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/JohnDeved/dirviewer-cli/internal/fsys"
	"github.com/JohnDeved/dirviewer-cli/internal/history"
	"github.com/JohnDeved/dirviewer-cli/internal/util"
)

// hitKind says what part of the breadcrumb row a click landed on.
type hitKind int

const (
	hitNone hitKind = iota
	hitBack
	hitForward
	hitCrumb
)

// crumb is one clickable breadcrumb label and the directory it opens.
type crumb struct {
	label string
	path  string
}

// browserModel manages the directory browser view.
type browserModel struct {
	base        string
	hist        *history.History
	entries     []fsys.FileStat
	cursor      int
	offset      int // viewport scroll offset
	height      int // visible area height
	filter      string
	filtering   bool
	typeAhead   string
	typedAt     time.Time
	loading     bool
	err         error
	showActions bool
}

func newBrowserModel(base string) browserModel {
	return browserModel{
		base:   base,
		hist:   history.New(base),
		height: 20,
	}
}

// current is the directory being shown.
func (b *browserModel) current() string {
	return b.hist.Current()
}

func (b *browserModel) atBase() bool {
	return b.current() == b.base
}

// crumbs returns the base crumb followed by one crumb per path segment below
// the base.
func (b *browserModel) crumbs() []crumb {
	segs := util.Segments(b.base, b.current())
	out := make([]crumb, 0, len(segs)+1)
	out = append(out, crumb{label: util.FoldLongText(b.base, util.DefaultFoldLen), path: b.base})
	for i, seg := range segs {
		label := "/" + seg
		if i == 0 && b.base == "/" {
			label = seg
		}
		out = append(out, crumb{
			label: label,
			path:  util.Join(append([]string{b.base}, segs[:i+1]...)...),
		})
	}
	return out
}

// Breadcrumb row layout: "  < >  base/seg/seg".
const (
	navBackCol    = 2
	navForwardCol = 4
	crumbStartCol = 7
)

func (b *browserModel) breadcrumbView(width int) string {
	back, fwd := navDisabledStyle, navDisabledStyle
	if b.hist.CanBack() {
		back = navEnabledStyle
	}
	if b.hist.CanForward() {
		fwd = navEnabledStyle
	}

	var sb strings.Builder
	sb.WriteString("  ")
	sb.WriteString(back.Render("<"))
	sb.WriteString(" ")
	sb.WriteString(fwd.Render(">"))
	sb.WriteString("  ")
	for i, c := range b.crumbs() {
		if i == 0 {
			sb.WriteString(baseCrumbStyle.Render(c.label))
			continue
		}
		sb.WriteString(crumbStyle.Render(c.label))
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(sb.String())
}

// hitTest maps a click at column x on the breadcrumb row to a target.
func (b *browserModel) hitTest(x int) (hitKind, string) {
	switch x {
	case navBackCol:
		return hitBack, ""
	case navForwardCol:
		return hitForward, ""
	}
	col := crumbStartCol
	for _, c := range b.crumbs() {
		w := lipgloss.Width(c.label)
		if x >= col && x < col+w {
			return hitCrumb, c.path
		}
		col += w
	}
	return hitNone, ""
}

func (b *browserModel) visibleIndices() []int {
	indices := make([]int, 0, len(b.entries))
	q := strings.ToLower(strings.TrimSpace(b.filter))
	for i, e := range b.entries {
		if q == "" || strings.Contains(strings.ToLower(e.Filename), q) {
			indices = append(indices, i)
		}
	}
	return indices
}

func (b *browserModel) normalizeViewport(total int) {
	if total <= 0 {
		b.cursor = 0
		b.offset = 0
		return
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
	if b.cursor >= total {
		b.cursor = total - 1
	}
	if b.offset < 0 {
		b.offset = 0
	}
	if b.cursor < b.offset {
		b.offset = b.cursor
	}
	if b.height > 0 && b.cursor >= b.offset+b.height {
		b.offset = b.cursor - b.height + 1
	}
	maxOffset := total - b.height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if b.offset > maxOffset {
		b.offset = maxOffset
	}
}

func (b *browserModel) appendFilter(ch string) {
	b.filter += strings.ToLower(ch)
	b.cursor = 0
	b.offset = 0
	b.showActions = false
}

func (b *browserModel) backspaceFilter() {
	if b.filter == "" {
		return
	}
	r := []rune(b.filter)
	b.filter = string(r[:len(r)-1])
	b.cursor = 0
	b.offset = 0
}

func (b *browserModel) clearFilter() {
	b.filter = ""
	b.filtering = false
	b.cursor = 0
	b.offset = 0
}

func (b *browserModel) typeAheadFind(key string) {
	visible := b.visibleIndices()
	if len(visible) == 0 {
		return
	}
	now := time.Now()
	if now.Sub(b.typedAt) > time.Second {
		b.typeAhead = ""
	}
	b.typedAt = now
	b.typeAhead += strings.ToLower(key)

	start := b.cursor + 1
	for i := 0; i < len(visible); i++ {
		idx := (start + i) % len(visible)
		name := strings.ToLower(b.entries[visible[idx]].Filename)
		if strings.HasPrefix(name, b.typeAhead) {
			b.cursor = idx
			b.showActions = false
			b.normalizeViewport(len(visible))
			return
		}
	}
}

// setEntries replaces the listing. With keep set the cursor moves to the
// entry of that name, or stays in place when it is gone.
func (b *browserModel) setEntries(entries []fsys.FileStat, keep string) {
	b.entries = entries
	b.loading = false
	b.err = nil
	if keep == "" {
		b.cursor = 0
	} else {
		for i, idx := range b.visibleIndices() {
			if b.entries[idx].Filename == keep {
				b.cursor = i
				break
			}
		}
	}
	b.normalizeViewport(len(b.visibleIndices()))
}

// resetView forgets per-directory state before another directory is listed.
func (b *browserModel) resetView() {
	b.filter = ""
	b.filtering = false
	b.typeAhead = ""
	b.cursor = 0
	b.offset = 0
	b.showActions = false
	b.loading = true
	b.err = nil
}

func (b *browserModel) setError(err error) {
	b.err = err
	b.loading = false
	b.entries = nil
}

func (b *browserModel) selected() *fsys.FileStat {
	visible := b.visibleIndices()
	b.normalizeViewport(len(visible))
	if b.cursor >= 0 && b.cursor < len(visible) {
		return &b.entries[visible[b.cursor]]
	}
	return nil
}

func (b *browserModel) selectedName() string {
	if sel := b.selected(); sel != nil {
		return sel.Filename
	}
	return ""
}

func (b *browserModel) toggleActions() {
	if b.selected() == nil {
		b.showActions = false
		return
	}
	b.showActions = !b.showActions
}

func (b *browserModel) moveUp() {
	visible := b.visibleIndices()
	b.normalizeViewport(len(visible))
	if b.cursor > 0 {
		b.cursor--
		b.showActions = false
		if b.cursor < b.offset {
			b.offset = b.cursor
		}
	}
}

func (b *browserModel) moveDown() {
	visible := b.visibleIndices()
	b.normalizeViewport(len(visible))
	if b.cursor < len(visible)-1 {
		b.cursor++
		b.showActions = false
		if b.cursor >= b.offset+b.height {
			b.offset = b.cursor - b.height + 1
		}
	}
}

func (b *browserModel) pageUp() {
	visible := b.visibleIndices()
	if len(visible) == 0 {
		b.cursor = 0
		b.offset = 0
		return
	}
	if b.height <= 0 {
		return
	}
	b.showActions = false
	rel := b.cursor - b.offset
	b.offset -= b.height
	if b.offset < 0 {
		b.offset = 0
	}
	b.cursor = b.offset + rel
	if b.cursor >= len(visible) {
		b.cursor = len(visible) - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
}

func (b *browserModel) pageDown() {
	visible := b.visibleIndices()
	if len(visible) == 0 {
		b.cursor = 0
		b.offset = 0
		return
	}
	if b.height <= 0 {
		return
	}
	b.showActions = false
	rel := b.cursor - b.offset
	b.offset += b.height
	maxOffset := len(visible) - b.height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if b.offset > maxOffset {
		b.offset = maxOffset
	}
	b.cursor = b.offset + rel
	if b.cursor >= len(visible) {
		b.cursor = len(visible) - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
}

func (b *browserModel) goHome() {
	b.cursor = 0
	b.offset = 0
	b.showActions = false
}

func (b *browserModel) goEnd() {
	visible := b.visibleIndices()
	b.cursor = len(visible) - 1
	if b.cursor < 0 {
		b.cursor = 0
	}
	b.offset = b.cursor - b.height + 1
	if b.offset < 0 {
		b.offset = 0
	}
	b.showActions = false
}

// rowAt maps a line of the listing area to a visible entry position.
func (b *browserModel) rowAt(line int) (int, bool) {
	visible := b.visibleIndices()
	if line < 0 || len(visible) == 0 {
		return 0, false
	}
	if b.showActions && b.cursor >= b.offset {
		barLine := b.cursor - b.offset + 1
		switch {
		case line == barLine:
			return 0, false
		case line > barLine:
			line--
		}
	}
	i := b.offset + line
	if line >= b.height || i >= len(visible) {
		return 0, false
	}
	return i, true
}

// listTop is the line offset of the first listing row below the breadcrumb.
func (b *browserModel) listTop() int {
	if b.filtering || b.filter != "" {
		return 2
	}
	return 1
}

func (b *browserModel) view(width int, spin string) string {
	var sb strings.Builder
	sb.WriteString(b.breadcrumbView(width))
	sb.WriteString("\n")

	if b.filtering || b.filter != "" {
		cursor := ""
		if b.filtering {
			cursor = "_"
		}
		sb.WriteString(helpStyle.Render(fmt.Sprintf("  Filter: %s%s", b.filter, cursor)))
		sb.WriteString("\n")
	}

	if b.loading {
		sb.WriteString(fmt.Sprintf("\n  %s Loading...\n", spin))
		return sb.String()
	}

	if b.err != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(fmt.Sprintf("  Error: %v", b.err)))
		sb.WriteString("\n")
		return sb.String()
	}

	if len(b.entries) == 0 {
		sb.WriteString("\n")
		sb.WriteString(helpStyle.Render("  Empty"))
		sb.WriteString("\n")
		return sb.String()
	}

	visible := b.visibleIndices()
	b.normalizeViewport(len(visible))
	if len(visible) == 0 {
		sb.WriteString(helpStyle.Render("  No matches for current filter."))
		sb.WriteString("\n")
		return sb.String()
	}

	end := b.offset + b.height
	if end > len(visible) {
		end = len(visible)
	}

	rowWidth := width - selectedStyle.GetHorizontalFrameSize()
	if rowWidth < 12 {
		rowWidth = 12
	}
	for i := b.offset; i < end; i++ {
		e := b.entries[visible[i]]
		isSelected := i == b.cursor
		sb.WriteString(renderEntryRow(e, rowWidth, isSelected))
		sb.WriteString("\n")
		if isSelected && b.showActions {
			sb.WriteString(renderActionBar(e, width))
			sb.WriteString("\n")
		}
	}

	if sel := b.selected(); sel != nil {
		sb.WriteString(helpStyle.Render(fmt.Sprintf("  %s  modified %s",
			truncateText(sel.Path, max(20, width-30)),
			humanize.Time(time.UnixMilli(sel.LastModified)))))
		sb.WriteString("\n")
	}

	if len(visible) > b.height {
		pct := float64(b.offset) / float64(len(visible)-b.height) * 100
		sb.WriteString(helpStyle.Render(
			fmt.Sprintf("  %d/%d items (%.0f%%)", b.cursor+1, len(visible), pct),
		))
		sb.WriteString("\n")
	}

	return sb.String()
}

func renderEntryRow(e fsys.FileStat, rowWidth int, isSelected bool) string {
	size := ""
	if !e.IsDir() {
		size = util.FormatBytes(e.Size).Str
	}
	return renderBrowseLikeRow(e.Filename, size, util.FormatTimestamp(e.LastModified), e.IsDir(), rowWidth, isSelected)
}

func renderActionBar(e fsys.FileStat, width int) string {
	items := []string{
		actionKeyStyle.Render("d") + " Delete",
		actionKeyStyle.Render("r") + " Rename",
	}
	if !e.IsDir() {
		items = append(items, actionKeyStyle.Render("e")+" Edit")
	}
	items = append(items, actionKeyStyle.Render(".")+" Close")
	return actionBarStyle.Width(max(12, width-2)).Render(strings.Join(items, "   "))
}

func renderBrowseLikeRow(name, size, date string, isDir bool, rowWidth int, isSelected bool) string {
	var icon string
	var displayName string
	if isDir {
		icon = "📁 "
		displayName = dirStyle.Render(truncateText(name+"/", max(12, rowWidth-38)))
	} else {
		icon = "📄 "
		displayName = fileStyle.Render(truncateText(name, max(12, rowWidth-38)))
	}

	line := fmt.Sprintf("  %s%s  %s  %s",
		icon,
		displayName,
		sizeStyle.Render(size),
		dateStyle.Render(date),
	)

	if isSelected {
		return selectedStyle.Render(padToWidth(line, rowWidth))
	}
	return normalStyle.Render(padToWidth(line, rowWidth))
}

func truncateText(s string, maxWidth int) string {
	if maxWidth < 4 {
		return s
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	r := []rune(s)
	if len(r) <= maxWidth {
		return s
	}
	return string(r[:maxWidth-3]) + "..."
}

func padToWidth(s string, width int) string {
	pad := width - lipgloss.Width(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
