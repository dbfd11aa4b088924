package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/JohnDeved/dirviewer-cli/internal/fsys"
	"github.com/JohnDeved/dirviewer-cli/internal/index"
	"github.com/JohnDeved/dirviewer-cli/internal/util"
)

// Tab identifies the active view.
type Tab int

const (
	TabBrowse Tab = iota
	TabSearch
)

// opKind names a file operation started from the browser.
type opKind int

const (
	opMkdir opKind = iota
	opCreateFile
	opRename
	opSave
	opDelete
)

func (k opKind) String() string {
	switch k {
	case opMkdir:
		return "Create dir"
	case opCreateFile:
		return "Create file"
	case opRename:
		return "Rename"
	case opSave:
		return "Save"
	case opDelete:
		return "Delete"
	}
	return "Operation"
}

// Messages
type listingMsg struct {
	dir     string
	entries []fsys.FileStat
	keep    string
}

type listErrMsg struct {
	dir string
	err error
}

type opDoneMsg struct {
	op   opKind
	name string // entry name to select after the reload
	err  error
}

type fileLoadedMsg struct {
	target  fsys.FileStat
	content string
	err     error
}

type dirChangedMsg struct{ dir string }

type searchResultsMsg struct {
	results []index.EntryRecord
	query   string
}

type searchErrMsg struct{ err error }

type statusClearMsg struct{ id int }

var errNameRequired = errors.New("name is required")

// Options configures the browser.
type Options struct {
	FS *fsys.FS
	// DB backs the search tab; nil disables searching.
	DB *index.DB
	// BaseDir is the directory the browser starts in and never leaves.
	// Defaults to the root of FS.
	BaseDir string
	// StartPath opens a directory below BaseDir first.
	StartPath string
	// ListHeight caps the number of listing rows; 0 fits the terminal.
	ListHeight int
	Logger     *zap.Logger
}

// Model is the main Bubble Tea model.
type Model struct {
	fs         *fsys.FS
	db         *index.DB
	logger     *zap.Logger
	watcher    *fsys.Watcher
	listHeight int
	activeTab  Tab
	browser    browserModel
	search     searchModel
	modal      modalModel
	spinner    spinner.Model
	width      int
	height     int
	showHelp   bool
	helpOffset int
	statusMsg  string
	statusID   int
}

// NewModel creates the TUI model.
func NewModel(opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base := util.Normalize(opts.BaseDir)
	if base == "" {
		base = opts.FS.Root()
	}

	m := Model{
		fs:         opts.FS,
		db:         opts.DB,
		logger:     logger,
		listHeight: opts.ListHeight,
		activeTab:  TabBrowse,
		browser:    newBrowserModel(base),
		search:     newSearchModel(),
		spinner:    s,
	}
	m.search.noIndex = opts.DB == nil

	if start := util.Normalize(opts.StartPath); start != "" && start != base && util.IsWithin(base, start) {
		m.browser.hist.Push(start)
	}
	m.browser.loading = true
	return m
}

func (m Model) Init() tea.Cmd {
	m.watchCurrent()
	return tea.Batch(
		m.spinner.Tick,
		m.loadDirectory(m.browser.current(), ""),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case listingMsg:
		if msg.dir != m.browser.current() {
			return m, nil
		}
		m.browser.setEntries(msg.entries, msg.keep)
		return m, nil

	case listErrMsg:
		if msg.dir != m.browser.current() {
			return m, nil
		}
		m.browser.setError(msg.err)
		return m, nil

	case dirChangedMsg:
		if msg.dir != m.browser.current() || m.browser.loading {
			return m, nil
		}
		return m, m.reload(m.browser.selectedName())

	case opDoneMsg:
		return m.handleOpDone(msg)

	case fileLoadedMsg:
		if msg.err != nil {
			m.logger.Error("loading file for edit failed", zap.String("path", msg.target.Path), zap.Error(msg.err))
			cmd := m.setStatus(fmt.Sprintf("Edit failed: %v", msg.err))
			return m, cmd
		}
		m.browser.showActions = false
		m.modal = newEditModal(msg.target, msg.content)
		return m, nil

	case searchErrMsg:
		m.search.setError(msg.err)
		return m, nil

	case searchResultsMsg:
		m.search.setResults(msg.query, msg.results)
		return m, nil

	case statusClearMsg:
		if msg.id == m.statusID {
			m.statusMsg = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Pass through to the focused input.
	switch {
	case m.modal.active():
		var cmd tea.Cmd
		m.modal, cmd = m.modal.update(msg)
		cmds = append(cmds, cmd)
	case m.activeTab == TabSearch:
		var cmd tea.Cmd
		m.search.input, cmd = m.search.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) resize() {
	viewHeight := m.height - 8 // Account for header, tabs, status bar
	listRows := viewHeight - 3 // Breadcrumb, selection details, scroll info
	if m.listHeight > 0 && m.listHeight < listRows {
		listRows = m.listHeight
	}
	if listRows < 1 {
		listRows = 1
	}
	m.browser.height = listRows
	m.search.height = viewHeight - 3
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.modal.active() {
		return m.handleModalKey(key, msg)
	}

	searchFocused := m.activeTab == TabSearch && m.search.input.Focused()
	filtering := m.activeTab == TabBrowse && m.browser.filtering

	if m.showHelp {
		switch key {
		case "?", "esc":
			m.showHelp = false
			m.helpOffset = 0
			return m, nil
		case "up", "k":
			if m.helpOffset > 0 {
				m.helpOffset--
			}
			return m, nil
		case "down", "j":
			m.helpOffset++
			return m, nil
		case "pgup", "ctrl+u":
			m.helpOffset -= 8
			if m.helpOffset < 0 {
				m.helpOffset = 0
			}
			return m, nil
		case "pgdown", "ctrl+d":
			m.helpOffset += 8
			return m, nil
		case "home", "g":
			m.helpOffset = 0
			return m, nil
		}
	}

	if filtering {
		return m.handleFilterKey(key)
	}

	// Global keys.
	switch key {
	case "q":
		if searchFocused {
			return m.handleSearchKey(key, msg)
		}
		return m, tea.Quit

	case "?":
		if searchFocused {
			return m.handleSearchKey(key, msg)
		}
		m.showHelp = !m.showHelp
		if !m.showHelp {
			m.helpOffset = 0
		}
		return m, nil

	case "1":
		if searchFocused {
			return m.handleSearchKey(key, msg)
		}
		m.activeTab = TabBrowse
		m.search.input.Blur()
		return m, nil

	case "2":
		if searchFocused {
			return m.handleSearchKey(key, msg)
		}
		m.activeTab = TabSearch
		m.search.input.Focus()
		return m, nil

	case "tab", "shift+tab":
		m.search.input.Blur()
		if m.activeTab == TabBrowse {
			m.activeTab = TabSearch
			m.search.input.Focus()
		} else {
			m.activeTab = TabBrowse
		}
		return m, nil
	}

	switch m.activeTab {
	case TabBrowse:
		return m.handleBrowseKey(key)
	case TabSearch:
		return m.handleSearchKey(key, msg)
	}

	return m, nil
}

func (m Model) handleFilterKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		m.browser.clearFilter()
	case "enter":
		m.browser.filtering = false
	case "backspace":
		m.browser.backspaceFilter()
	case "up":
		m.browser.moveUp()
	case "down":
		m.browser.moveDown()
	default:
		if isTypeAheadKey(key) || key == " " {
			m.browser.appendFilter(key)
		}
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if m.showHelp {
			if m.helpOffset > 0 {
				m.helpOffset--
			}
			return m, nil
		}
		switch m.activeTab {
		case TabBrowse:
			m.browser.moveUp()
		case TabSearch:
			if !m.search.input.Focused() {
				m.search.moveUp()
			}
		}
	case tea.MouseButtonWheelDown:
		if m.showHelp {
			m.helpOffset++
			return m, nil
		}
		switch m.activeTab {
		case TabBrowse:
			m.browser.moveDown()
		case TabSearch:
			if !m.search.input.Focused() {
				m.search.moveDown()
			}
		}
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress || m.showHelp || m.modal.active() || m.activeTab != TabBrowse {
			return m, nil
		}
		return m.handleBrowseClick(msg.X, msg.Y)
	}
	return m, nil
}

// handleBrowseClick opens a clicked crumb, or selects a clicked row.
// Clicking the selected row again opens a directory or toggles the action
// bar of a file.
func (m Model) handleBrowseClick(x, y int) (tea.Model, tea.Cmd) {
	top := m.contentTop()
	if y == top {
		switch kind, p := m.browser.hitTest(x); kind {
		case hitBack:
			return m.goBack()
		case hitForward:
			return m.goForward()
		case hitCrumb:
			cmd := m.changePath(p)
			return m, cmd
		}
		return m, nil
	}
	if m.browser.loading || m.browser.err != nil {
		return m, nil
	}
	i, ok := m.browser.rowAt(y - top - m.browser.listTop())
	if !ok {
		return m, nil
	}
	if i != m.browser.cursor {
		m.browser.cursor = i
		m.browser.showActions = false
		return m, nil
	}
	if sel := m.browser.selected(); sel != nil {
		if sel.IsDir() {
			cmd := m.changePath(sel.Path)
			return m, cmd
		}
		m.browser.toggleActions()
	}
	return m, nil
}

func (m Model) handleBrowseKey(key string) (tea.Model, tea.Cmd) {
	if m.browser.showActions {
		switch key {
		case "d":
			if sel := m.browser.selected(); sel != nil {
				m.modal = newDeleteModal(*sel)
			}
			return m, nil
		case "r":
			if sel := m.browser.selected(); sel != nil {
				m.modal = newRenameModal(*sel)
			}
			return m, nil
		case "e":
			if sel := m.browser.selected(); sel != nil && !sel.IsDir() {
				return m, m.loadFile(*sel)
			}
			return m, nil
		case ".", "esc":
			m.browser.showActions = false
			return m, nil
		}
	}

	switch key {
	case "up", "k":
		m.browser.moveUp()
	case "down", "j":
		m.browser.moveDown()
	case "pgup", "ctrl+u":
		m.browser.pageUp()
	case "pgdown", "ctrl+d":
		m.browser.pageDown()
	case "home", "g":
		m.browser.goHome()
	case "end", "G":
		m.browser.goEnd()

	case "enter", "l", "right":
		if sel := m.browser.selected(); sel != nil && sel.IsDir() {
			cmd := m.changePath(sel.Path)
			return m, cmd
		} else if sel != nil {
			m.browser.toggleActions()
		}

	case "backspace", "h", "left":
		if !m.browser.atBase() {
			cmd := m.changePath(util.Dirname(m.browser.current()))
			return m, cmd
		}

	case "[", "alt+left":
		return m.goBack()

	case "]", "alt+right":
		return m.goForward()

	case ".":
		m.browser.toggleActions()

	case "n":
		m.browser.showActions = false
		m.modal = newDirModal(m.browser.current())

	case "N":
		m.browser.showActions = false
		m.modal = newFileModal(m.browser.current())

	case "R", "ctrl+r":
		return m, m.reload(m.browser.selectedName())

	case "/":
		m.browser.filtering = true
		m.browser.showActions = false

	case "esc":
		if m.browser.filter != "" {
			m.browser.clearFilter()
		}

	default:
		if isTypeAheadKey(key) {
			m.browser.typeAheadFind(key)
		}
	}

	return m, nil
}

func (m Model) handleModalKey(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		m.modal = modalModel{}
		return m, nil
	case "ctrl+s":
		return m.submitModal()
	}

	if m.modal.busy {
		return m, nil
	}

	switch m.modal.kind {
	case modalConfirmDelete:
		switch key {
		case "y", "Y", "enter":
			return m.submitModal()
		case "n", "N":
			m.modal = modalModel{}
		}
		return m, nil
	}

	switch key {
	case "tab", "shift+tab":
		if m.modal.hasName() && m.modal.hasContent() {
			m.modal.toggleFocus()
			return m, nil
		}
	case "enter":
		if !m.modal.focusContent {
			return m.submitModal()
		}
	}

	var cmd tea.Cmd
	m.modal, cmd = m.modal.update(msg)
	return m, cmd
}

// submitModal runs the confirm action of the open dialog.
func (m Model) submitModal() (tea.Model, tea.Cmd) {
	if m.modal.busy {
		return m, nil
	}
	md := m.modal
	switch md.kind {
	case modalNewDir:
		name := md.nameValue()
		if name == "" {
			m.modal.setError(errNameRequired)
			return m, nil
		}
		m.modal.busy = true
		m.modal.err = nil
		return m, m.runOp(opMkdir, name, func(ctx context.Context) error {
			return m.fs.Mkdir(ctx, util.Join(md.dir, name))
		})

	case modalNewFile:
		name := md.nameValue()
		if name == "" {
			m.modal.setError(errNameRequired)
			return m, nil
		}
		content := md.contentValue()
		m.modal.busy = true
		m.modal.err = nil
		return m, m.runOp(opCreateFile, name, func(ctx context.Context) error {
			return m.fs.WriteFile(ctx, util.Join(md.dir, name), content)
		})

	case modalRename:
		// Rename closes right away; an unchanged or blank name does nothing.
		m.modal = modalModel{}
		m.browser.showActions = false
		newName := md.name.Value()
		if newName == md.target.Filename || strings.TrimSpace(newName) == "" {
			return m, nil
		}
		target := util.Join(util.Dirname(md.target.Path), newName)
		return m, m.runOp(opRename, util.Basename(target), func(ctx context.Context) error {
			return m.fs.Move(ctx, md.target.Path, target)
		})

	case modalEdit:
		content := md.contentValue()
		m.modal.busy = true
		m.modal.err = nil
		return m, m.runOp(opSave, md.target.Filename, func(ctx context.Context) error {
			return m.fs.WriteFile(ctx, md.target.Path, content)
		})

	case modalConfirmDelete:
		m.modal = modalModel{}
		m.browser.showActions = false
		return m, m.runOp(opDelete, md.target.Filename, func(ctx context.Context) error {
			return m.fs.Unlink(ctx, md.target.Path)
		})
	}
	return m, nil
}

// modalOp is the operation the open dialog is waiting for.
func (m Model) modalOp() (opKind, bool) {
	switch m.modal.kind {
	case modalNewDir:
		return opMkdir, true
	case modalNewFile:
		return opCreateFile, true
	case modalEdit:
		return opSave, true
	}
	return 0, false
}

func (m Model) handleOpDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	op, waiting := m.modalOp()
	waiting = waiting && m.modal.busy && op == msg.op

	if msg.err != nil {
		if waiting {
			m.modal.setError(msg.err)
			return m, nil
		}
		cmd := m.setStatus(fmt.Sprintf("%s failed: %v", msg.op, msg.err))
		return m, cmd
	}

	if waiting {
		m.modal = modalModel{}
	}
	var status string
	switch msg.op {
	case opMkdir:
		status = "Created dir " + msg.name
	case opCreateFile:
		status = "Created file " + msg.name
	case opRename:
		status = "Renamed to " + msg.name
	case opSave:
		status = "Saved " + msg.name
	case opDelete:
		status = "Deleted " + msg.name
	}
	cmd := m.setStatus(status)
	return m, tea.Batch(cmd, m.reload(msg.name))
}

// changePath opens dir. Opening the base directory starts a fresh history;
// any other directory drops the forward history and is appended.
func (m *Model) changePath(dir string) tea.Cmd {
	return m.changePathKeep(dir, "")
}

func (m *Model) changePathKeep(dir, keep string) tea.Cmd {
	dir = util.Normalize(dir)
	if dir == m.browser.base {
		m.browser.hist.Reset(dir)
	} else {
		m.browser.hist.Push(dir)
	}
	return m.openCurrent(keep)
}

func (m Model) goBack() (tea.Model, tea.Cmd) {
	if _, ok := m.browser.hist.Back(); !ok {
		return m, nil
	}
	cmd := m.openCurrent("")
	return m, cmd
}

func (m Model) goForward() (tea.Model, tea.Cmd) {
	if _, ok := m.browser.hist.Forward(); !ok {
		return m, nil
	}
	cmd := m.openCurrent("")
	return m, cmd
}

// openCurrent lists the directory the history points at.
func (m *Model) openCurrent(keep string) tea.Cmd {
	h := m.browser.hist
	m.logger.Debug("navigate",
		zap.String("path", h.Current()),
		zap.Int("index", h.Index()),
		zap.Int("len", h.Len()),
		zap.Strings("history", h.Entries()))
	m.browser.resetView()
	m.watchCurrent()
	return m.loadDirectory(m.browser.current(), keep)
}

func (m Model) watchCurrent() {
	if m.watcher == nil {
		return
	}
	if err := m.watcher.Watch(m.browser.current()); err != nil {
		m.logger.Warn("watch failed", zap.String("path", m.browser.current()), zap.Error(err))
	}
}

// reload lists the current directory again without resetting the view.
func (m Model) reload(keep string) tea.Cmd {
	return m.loadDirectory(m.browser.current(), keep)
}

// Commands

func (m Model) loadDirectory(dir, keep string) tea.Cmd {
	return func() tea.Msg {
		entries, err := m.fs.StatDir(context.Background(), dir)
		if err != nil {
			m.logger.Error("listing failed", zap.String("path", dir), zap.Error(err))
			return listErrMsg{dir: dir, err: err}
		}
		return listingMsg{dir: dir, entries: entries, keep: keep}
	}
}

func (m Model) loadFile(target fsys.FileStat) tea.Cmd {
	return func() tea.Msg {
		content, err := m.fs.ReadFile(context.Background(), target.Path)
		return fileLoadedMsg{target: target, content: content, err: err}
	}
}

func (m Model) runOp(op opKind, name string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: op, name: name, err: fn(context.Background())}
	}
}

func (m Model) performSearch(query string) tea.Cmd {
	return func() tea.Msg {
		if m.db == nil {
			return searchResultsMsg{query: query}
		}

		results, err := m.db.SearchUnder(query, m.browser.base, 100)
		if err != nil {
			return searchErrMsg{err: err}
		}

		return searchResultsMsg{results: results, query: query}
	}
}

func (m Model) handleSearchKey(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.search.input.Focused() {
		switch key {
		case "enter":
			query := m.search.input.Value()
			if strings.TrimSpace(query) != "" && m.db != nil {
				m.search.searching = true
				m.search.input.Blur()
				return m, m.performSearch(query)
			}
		case "esc":
			m.search.input.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.search.input, cmd = m.search.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch key {
	case "up", "k":
		m.search.moveUp()
	case "down", "j":
		m.search.moveDown()
	case "pgup", "ctrl+u":
		m.search.pageUp()
	case "pgdown", "ctrl+d":
		m.search.pageDown()
	case "enter", "o", "b":
		if sel := m.search.selected(); sel != nil {
			dir := util.Dirname(sel.Path)
			if !util.IsWithin(m.browser.base, dir) {
				cmd := m.setStatus("Result is outside " + m.browser.base)
				return m, cmd
			}
			m.activeTab = TabBrowse
			m.search.input.Blur()
			status := m.setStatus("Opened result location in browser")
			open := m.changePathKeep(dir, sel.Name)
			return m, tea.Batch(status, open)
		}
	case "i", "/", "esc":
		m.search.input.Focus()
	}

	return m, nil
}

func (m Model) headerView() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("  Dirviewer  "))
	sb.WriteString("\n")

	tabs := []struct {
		name string
		tab  Tab
		key  string
	}{
		{"Browse", TabBrowse, "1"},
		{"Search", TabSearch, "2"},
	}

	var tabLine strings.Builder
	for _, t := range tabs {
		label := fmt.Sprintf(" %s %s ", t.key, t.name)
		if m.activeTab == t.tab {
			tabLine.WriteString(tabActiveStyle.Render(label))
		} else {
			tabLine.WriteString(tabInactiveStyle.Render(label))
		}
		tabLine.WriteString(" ")
	}
	tabLine.WriteString(helpStyle.Render(" n:New dir  N:New file"))

	sb.WriteString(tabLine.String())
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")
	return sb.String()
}

// contentTop is the screen row of the first content line.
func (m Model) contentTop() int {
	return strings.Count(m.headerView(), "\n")
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sb strings.Builder
	sb.WriteString(m.headerView())

	contentHeight := m.height - 8
	switch {
	case m.showHelp:
		sb.WriteString(m.helpView(contentHeight))
	case m.modal.active():
		sb.WriteString(lipgloss.Place(m.width, max(contentHeight, 1), lipgloss.Center, lipgloss.Center, m.modal.view(m.width)))
	default:
		switch m.activeTab {
		case TabBrowse:
			sb.WriteString(m.browser.view(m.width, m.spinner.View()))
		case TabSearch:
			sb.WriteString(m.search.view(m.width, m.spinner.View()))
		}
	}

	statusLine := m.statusMsg
	if statusLine == "" {
		statusLine = m.defaultStatus()
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")
	sb.WriteString(statusBarStyle.Width(m.width).Render(statusLine))

	return sb.String()
}

func (m Model) defaultStatus() string {
	if m.modal.active() {
		return "esc:cancel  " + m.modal.confirmKeys() + ":" + strings.ToLower(m.modal.confirmText())
	}
	switch m.activeTab {
	case TabBrowse:
		if m.browser.filtering {
			return "type:filter  Enter:keep filter  Esc:clear"
		}
		if m.browser.showActions {
			return "d:delete  r:rename  e:edit  .:close actions"
		}
		return "j/k:navigate  Enter:open  h:up  [/]:back/forward  .:actions  /:filter  ?:help"
	case TabSearch:
		return "/:focus search  j/k:navigate results  Enter:open location  ?:help"
	}
	return ""
}

func (m Model) helpView(maxLines int) string {
	lines := []string{
		"  Keyboard Shortcuts",
		"  ──────────────────",
		"",
		"  Global:",
		"    Tab / 1-2     Switch views",
		"    ?             Toggle help",
		"    q / Ctrl+C    Quit",
		"",
		"  Browser:",
		"    j/k / Up/Down Navigate",
		"    Enter / l     Open directory / file actions",
		"    Backspace / h Go up",
		"    [ / ]         Back / forward in history",
		"    Alt+Left/Right Back / forward in history",
		"    .             Toggle actions of selected entry",
		"    n / N         New dir / new file",
		"    R / Ctrl+R    Reload",
		"    /             Filter by name",
		"    g / G         Go to top/bottom",
		"    PgUp / PgDn   Page up/down",
		"    type letters  Jump to name",
		"    mouse         Click path segments to jump",
		"",
		"  Actions:",
		"    d             Delete",
		"    r             Rename",
		"    e             Edit (files)",
		"",
		"  Dialogs:",
		"    Enter         Confirm (name fields)",
		"    Ctrl+S        Confirm / save",
		"    Tab           Switch between name and content",
		"    Esc           Cancel",
		"",
		"  Search:",
		"    / or i        Focus search input",
		"    Enter         Search (when input focused)",
		"    j/k           Navigate results",
		"    Enter / o     Open result location in browser",
		"",
		"  Help view scroll: mouse wheel, j/k, PgUp/PgDn",
		"  Press ? or Esc to close help.",
	}

	if maxLines < 6 {
		maxLines = 6
	}
	helpOffset := m.helpOffset
	if helpOffset < 0 {
		helpOffset = 0
	}
	maxOffset := len(lines) - maxLines
	if maxOffset < 0 {
		maxOffset = 0
	}
	if helpOffset > maxOffset {
		helpOffset = maxOffset
	}

	end := helpOffset + maxLines
	if end > len(lines) {
		end = len(lines)
	}
	visible := lines[helpOffset:end]
	if maxOffset > 0 {
		visible = append(visible, fmt.Sprintf("  [%d/%d]", helpOffset+1, maxOffset+1))
	}

	return helpStyle.Render(strings.Join(visible, "\n"))
}

func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusID++
	id := m.statusID
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return statusClearMsg{id: id}
	})
}

func isTypeAheadKey(key string) bool {
	r := []rune(key)
	if len(r) != 1 {
		return false
	}
	ch := r[0]
	if ch < 32 || ch == ' ' {
		return false
	}
	return true
}

// Run starts the TUI.
func Run(opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := NewModel(opts)

	var p *tea.Program
	if opts.FS.Local() {
		w, err := opts.FS.NewWatcher(func(dir string) {
			p.Send(dirChangedMsg{dir: dir})
		})
		if err != nil {
			logger.Warn("directory watching disabled", zap.Error(err))
		} else {
			defer w.Close()
			m.watcher = w
		}
	}

	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
