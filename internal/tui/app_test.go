package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JohnDeved/dirviewer-cli/internal/fsys"
	"github.com/JohnDeved/dirviewer-cli/internal/index"
)

func newTestTree(t *testing.T) afero.Fs {
	t.Helper()
	afs := afero.NewMemMapFs()
	require.NoError(t, afs.MkdirAll("/base/docs/api", 0o755))
	require.NoError(t, afs.MkdirAll("/base/Archive", 0o755))
	require.NoError(t, afero.WriteFile(afs, "/base/docs/guide.md", []byte("guide"), 0o644))
	require.NoError(t, afero.WriteFile(afs, "/base/notes.txt", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(afs, "/base/.hidden", []byte("x"), 0o644))
	return afs
}

func newTestModel(t *testing.T, afs afero.Fs, db *index.DB) Model {
	t.Helper()
	m := NewModel(Options{
		FS:     fsys.New(afs, "/base", zaptest.NewLogger(t)),
		DB:     db,
		Logger: zaptest.NewLogger(t),
	})
	m = settle(t, m, m.Init())
	return update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
}

// collect runs cmd and returns the messages it produces right away. Delayed
// commands such as status timers are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// settle feeds the results of cmd back into the model until nothing is left.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := collect(cmd)
	for i := 0; len(queue) > 0 && i < 50; i++ {
		msg := queue[0]
		queue = queue[1:]
		if _, ok := msg.(spinner.TickMsg); ok {
			continue
		}
		next, c := m.Update(msg)
		m = next.(Model)
		queue = append(queue, collect(c)...)
	}
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	return settle(t, next.(Model), cmd)
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m = update(t, m, keyMsg(k))
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "alt+left":
		return tea.KeyMsg{Type: tea.KeyLeft, Alt: true}
	case "alt+right":
		return tea.KeyMsg{Type: tea.KeyRight, Alt: true}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func entryNames(m Model) []string {
	out := make([]string, 0, len(m.browser.entries))
	for _, e := range m.browser.entries {
		out = append(out, e.Filename)
	}
	return out
}

// selectEntry moves the cursor onto name.
func selectEntry(t *testing.T, m Model, name string) Model {
	t.Helper()
	for i, idx := range m.browser.visibleIndices() {
		if m.browser.entries[idx].Filename == name {
			m.browser.cursor = i
			return m
		}
	}
	t.Fatalf("entry %q not listed", name)
	return m
}

func TestModel_InitialListing(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)

	assert.Equal(t, "/base", m.browser.current())
	assert.False(t, m.browser.loading)
	assert.Equal(t, []string{"Archive", "docs", "notes.txt"}, entryNames(m))

	view := m.View()
	assert.Contains(t, view, "notes.txt")
	assert.Contains(t, view, "5 bytes")
	assert.NotContains(t, view, "Empty")
}

func TestModel_StartPath(t *testing.T) {
	afs := newTestTree(t)
	m := NewModel(Options{FS: fsys.New(afs, "/base", nil), StartPath: "/base/docs"})
	m = settle(t, m, m.Init())

	assert.Equal(t, "/base/docs", m.browser.current())
	assert.True(t, m.browser.hist.CanBack())
	assert.Equal(t, []string{"api", "guide.md"}, entryNames(m))
}

func TestModel_NavigationHistory(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)

	m = selectEntry(t, m, "docs")
	m = press(t, m, "enter")
	assert.Equal(t, "/base/docs", m.browser.current())
	assert.True(t, m.browser.hist.CanBack())
	assert.False(t, m.browser.hist.CanForward())

	m = press(t, m, "[")
	assert.Equal(t, "/base", m.browser.current())
	assert.True(t, m.browser.hist.CanForward())
	assert.Equal(t, []string{"Archive", "docs", "notes.txt"}, entryNames(m))

	m = press(t, m, "alt+right")
	assert.Equal(t, "/base/docs", m.browser.current())

	m = press(t, m, "alt+left")
	assert.Equal(t, "/base", m.browser.current())

	// Opening another directory drops the forward history.
	m = selectEntry(t, m, "Archive")
	m = press(t, m, "l")
	assert.Equal(t, []string{"/base", "/base/Archive"}, m.browser.hist.Entries())
	assert.False(t, m.browser.hist.CanForward())
}

func TestModel_ParentResetsHistoryAtBase(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)

	m = selectEntry(t, m, "docs")
	m = press(t, m, "enter")
	m = selectEntry(t, m, "api")
	m = press(t, m, "enter")
	require.Equal(t, "/base/docs/api", m.browser.current())

	m = press(t, m, "backspace")
	assert.Equal(t, "/base/docs", m.browser.current())
	assert.Equal(t, 4, m.browser.hist.Len())

	m = press(t, m, "h")
	assert.Equal(t, "/base", m.browser.current())
	assert.Equal(t, []string{"/base"}, m.browser.hist.Entries())

	// No-op at the base directory.
	m = press(t, m, "h")
	assert.Equal(t, "/base", m.browser.current())
}

func TestModel_EmptyDirectory(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)
	m = selectEntry(t, m, "Archive")
	m = press(t, m, "enter")

	assert.Empty(t, m.browser.entries)
	assert.Contains(t, m.View(), "Empty")
}

func TestModel_ClickCrumbs(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)
	m = selectEntry(t, m, "docs")
	m = press(t, m, "enter")
	m = selectEntry(t, m, "api")
	m = press(t, m, "enter")

	top := m.contentTop()
	click := func(m Model, x, y int) Model {
		return update(t, m, tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	}

	// "/docs" starts right after the base label "/base".
	m = click(m, crumbStartCol+len("/base")+1, top)
	assert.Equal(t, "/base/docs", m.browser.current())
	assert.Equal(t, []string{"/base", "/base/docs", "/base/docs/api", "/base/docs"}, m.browser.hist.Entries())

	m = click(m, navBackCol, top)
	assert.Equal(t, "/base/docs/api", m.browser.current())

	m = click(m, crumbStartCol, top)
	assert.Equal(t, "/base", m.browser.current())
	assert.Equal(t, []string{"/base"}, m.browser.hist.Entries())
}

func TestModel_ClickRows(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)
	first := m.contentTop() + m.browser.listTop()
	click := func(m Model, y int) Model {
		return update(t, m, tea.MouseMsg{X: 10, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	}

	m = click(m, first+2)
	assert.Equal(t, "notes.txt", m.browser.selectedName())
	assert.False(t, m.browser.showActions)

	m = click(m, first+2)
	assert.True(t, m.browser.showActions)

	m = click(m, first+1)
	assert.Equal(t, "docs", m.browser.selectedName())
	m = click(m, first+1)
	assert.Equal(t, "/base/docs", m.browser.current())
}

func TestModel_NewDir(t *testing.T) {
	afs := newTestTree(t)
	m := newTestModel(t, afs, nil)

	m = press(t, m, "n")
	require.Equal(t, modalNewDir, m.modal.kind)
	assert.Contains(t, m.View(), "New dir")

	m = press(t, m, "reports", "enter")
	assert.False(t, m.modal.active())
	assert.Equal(t, "Created dir reports", m.statusMsg)
	assert.Equal(t, "reports", m.browser.selectedName())

	info, err := afs.Stat("/base/reports")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestModel_NewDirFailureKeepsDialog(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)

	m = press(t, m, "n", "enter")
	require.True(t, m.modal.active())
	assert.ErrorIs(t, m.modal.err, errNameRequired)

	m = press(t, m, "docs", "enter")
	require.True(t, m.modal.active())
	assert.ErrorIs(t, m.modal.err, fsys.ErrExist)
	assert.False(t, m.modal.busy)
	assert.Contains(t, m.View(), "Error:")

	m = press(t, m, "esc")
	assert.False(t, m.modal.active())
}

func TestModel_NewFile(t *testing.T) {
	afs := newTestTree(t)
	m := newTestModel(t, afs, nil)

	m = press(t, m, "N", "todo.txt", "tab", "buy milk", "ctrl+s")
	assert.False(t, m.modal.active())
	assert.Equal(t, "todo.txt", m.browser.selectedName())

	data, err := afero.ReadFile(afs, "/base/todo.txt")
	require.NoError(t, err)
	assert.Equal(t, "buy milk", string(data))
}

func TestModel_Rename(t *testing.T) {
	afs := newTestTree(t)
	m := newTestModel(t, afs, nil)
	m = selectEntry(t, m, "notes.txt")

	m = press(t, m, ".", "r")
	require.Equal(t, modalRename, m.modal.kind)
	assert.Equal(t, "notes.txt", m.modal.name.Value())

	m.modal.name.SetValue("todo.md")
	m = press(t, m, "enter")
	assert.False(t, m.modal.active())
	assert.Equal(t, "todo.md", m.browser.selectedName())

	exists, err := afero.Exists(afs, "/base/notes.txt")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = afero.Exists(afs, "/base/todo.md")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestModel_RenameUnchangedOrBlankIsNoop(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)
	m = selectEntry(t, m, "notes.txt")

	m = press(t, m, ".", "r")
	next, cmd := m.Update(keyMsg("enter"))
	m = next.(Model)
	assert.False(t, m.modal.active())
	assert.Nil(t, cmd)

	m = press(t, m, ".", "r")
	m.modal.name.SetValue("   ")
	next, cmd = m.Update(keyMsg("enter"))
	m = next.(Model)
	assert.False(t, m.modal.active())
	assert.Nil(t, cmd)
	assert.Equal(t, []string{"Archive", "docs", "notes.txt"}, entryNames(m))
}

func TestModel_Delete(t *testing.T) {
	afs := newTestTree(t)
	m := newTestModel(t, afs, nil)
	m = selectEntry(t, m, "docs")

	m = press(t, m, ".", "d")
	require.Equal(t, modalConfirmDelete, m.modal.kind)
	assert.Contains(t, m.View(), "/base/docs")

	m = press(t, m, "y")
	assert.False(t, m.modal.active())
	assert.Equal(t, "Deleted docs", m.statusMsg)
	assert.Equal(t, []string{"Archive", "notes.txt"}, entryNames(m))

	exists, err := afero.DirExists(afs, "/base/docs")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestModel_DeleteCancelled(t *testing.T) {
	afs := newTestTree(t)
	m := newTestModel(t, afs, nil)
	m = selectEntry(t, m, "notes.txt")

	m = press(t, m, ".", "d", "n")
	assert.False(t, m.modal.active())
	exists, err := afero.Exists(afs, "/base/notes.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestModel_Edit(t *testing.T) {
	afs := newTestTree(t)
	m := newTestModel(t, afs, nil)
	m = selectEntry(t, m, "notes.txt")

	m = press(t, m, ".", "e")
	require.Equal(t, modalEdit, m.modal.kind)
	assert.Equal(t, "hello", m.modal.content.Value())
	assert.Equal(t, "Save", m.modal.confirmText())

	m.modal.content.SetValue("hello world")
	m = press(t, m, "ctrl+s")
	assert.False(t, m.modal.active())
	assert.Equal(t, "Saved notes.txt", m.statusMsg)

	data, err := afero.ReadFile(afs, "/base/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestModel_EditIgnoresDirectories(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)
	m = selectEntry(t, m, "docs")

	m = press(t, m, ".", "e")
	assert.False(t, m.modal.active())
	assert.True(t, m.browser.showActions)
}

func TestModel_FailedDeleteReportsStatus(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)

	m = update(t, m, opDoneMsg{op: opDelete, name: "gone", err: fsys.ErrNotExist})
	assert.Contains(t, m.statusMsg, "Delete failed")
}

func TestModel_ReloadOnDirChange(t *testing.T) {
	afs := newTestTree(t)
	m := newTestModel(t, afs, nil)
	m = selectEntry(t, m, "notes.txt")

	require.NoError(t, afero.WriteFile(afs, "/base/added.txt", []byte("new"), 0o644))
	m = update(t, m, dirChangedMsg{dir: "/base"})
	assert.Equal(t, []string{"Archive", "docs", "added.txt", "notes.txt"}, entryNames(m))
	assert.Equal(t, "notes.txt", m.browser.selectedName())

	// Changes in directories no longer shown are ignored.
	next, cmd := m.Update(dirChangedMsg{dir: "/base/docs"})
	assert.Nil(t, cmd)
	assert.Equal(t, m.browser.entries, next.(Model).browser.entries)
}

func TestModel_IgnoresStaleListings(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)

	m = update(t, m, listingMsg{dir: "/base/docs", entries: nil})
	assert.Len(t, m.browser.entries, 3)

	m = update(t, m, listErrMsg{dir: "/base/docs", err: errors.New("boom")})
	assert.NoError(t, m.browser.err)
}

func TestModel_Filter(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)

	m = press(t, m, "/", "o")
	assert.True(t, m.browser.filtering)
	assert.Len(t, m.browser.visibleIndices(), 2) // docs, notes.txt

	m = press(t, m, "t")
	assert.Equal(t, "notes.txt", m.browser.selectedName())

	m = press(t, m, "enter")
	assert.False(t, m.browser.filtering)
	assert.Equal(t, "ot", m.browser.filter)

	m = press(t, m, "esc")
	assert.Empty(t, m.browser.filter)
	assert.Len(t, m.browser.visibleIndices(), 3)
}

func TestModel_StatusClears(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)
	m.setStatus("first")
	old := m.statusID
	m.setStatus("second")

	m = update(t, m, statusClearMsg{id: old})
	assert.Equal(t, "second", m.statusMsg)

	m = update(t, m, statusClearMsg{id: m.statusID})
	assert.Empty(t, m.statusMsg)
}

func TestModel_HelpToggle(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)
	m = press(t, m, "?")
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
	m = press(t, m, "esc")
	assert.False(t, m.showHelp)
}

func TestModel_SearchOpensLocation(t *testing.T) {
	afs := newTestTree(t)
	db, err := index.OpenDB(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, index.NewCrawler(fsys.New(afs, "/base", nil), db, 1000, nil).Crawl(context.Background(), "/base"))

	m := newTestModel(t, afs, db)
	m = press(t, m, "2")
	require.Equal(t, TabSearch, m.activeTab)

	m = press(t, m, "guide", "enter")
	require.Len(t, m.search.results, 1)
	assert.Equal(t, "/base/docs/guide.md", m.search.results[0].Path)

	m = press(t, m, "enter")
	assert.Equal(t, TabBrowse, m.activeTab)
	assert.Equal(t, "/base/docs", m.browser.current())
	assert.Equal(t, "guide.md", m.browser.selectedName())
	assert.True(t, m.browser.hist.CanBack())
}

func TestModel_SearchWithoutIndex(t *testing.T) {
	m := newTestModel(t, newTestTree(t), nil)
	m = press(t, m, "tab")
	assert.Contains(t, m.View(), "No index is open")
}
