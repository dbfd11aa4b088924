package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JohnDeved/dirviewer-cli/internal/fsys"
)

// modalKind identifies the dialog shown over the browser.
type modalKind int

const (
	modalNone modalKind = iota
	modalNewDir
	modalNewFile
	modalRename
	modalEdit
	modalConfirmDelete
)

// modalModel is a dialog with a Cancel action on the left and a confirm
// action on the right.
type modalModel struct {
	kind         modalKind
	dir          string        // parent directory for new entries
	target       fsys.FileStat // entry being renamed, edited or deleted
	name         textinput.Model
	content      textarea.Model
	focusContent bool
	busy         bool
	err          error
}

func newNameInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 255
	ti.Width = 40
	ti.Prompt = "> "
	ti.PromptStyle = searchPromptStyle
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Focus()
	return ti
}

func newContentArea(placeholder, value string) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.CharLimit = fsys.MaxEditSize
	ta.SetWidth(60)
	ta.SetHeight(10)
	ta.SetValue(value)
	return ta
}

func newDirModal(dir string) modalModel {
	return modalModel{
		kind: modalNewDir,
		dir:  dir,
		name: newNameInput("dir name", ""),
	}
}

func newFileModal(dir string) modalModel {
	ta := newContentArea("file content", "")
	ta.SetHeight(5)
	return modalModel{
		kind:    modalNewFile,
		dir:     dir,
		name:    newNameInput("file name", ""),
		content: ta,
	}
}

func newRenameModal(target fsys.FileStat) modalModel {
	return modalModel{
		kind:   modalRename,
		target: target,
		name:   newNameInput("new name", target.Filename),
	}
}

func newEditModal(target fsys.FileStat, content string) modalModel {
	ta := newContentArea("", content)
	ta.Focus()
	return modalModel{
		kind:         modalEdit,
		target:       target,
		content:      ta,
		focusContent: true,
	}
}

func newDeleteModal(target fsys.FileStat) modalModel {
	return modalModel{
		kind:   modalConfirmDelete,
		target: target,
	}
}

func (md *modalModel) active() bool {
	return md.kind != modalNone
}

func (md *modalModel) hasName() bool {
	switch md.kind {
	case modalNewDir, modalNewFile, modalRename:
		return true
	}
	return false
}

func (md *modalModel) hasContent() bool {
	return md.kind == modalNewFile || md.kind == modalEdit
}

func (md *modalModel) title() string {
	switch md.kind {
	case modalNewDir:
		return "New dir"
	case modalNewFile:
		return "New file"
	case modalRename:
		return "Rename"
	case modalEdit:
		return "Edit " + md.target.Filename
	case modalConfirmDelete:
		return "Sure to delete?"
	}
	return ""
}

func (md *modalModel) confirmText() string {
	switch md.kind {
	case modalRename:
		return "Rename"
	case modalEdit:
		return "Save"
	case modalConfirmDelete:
		return "Delete"
	}
	return "Create"
}

func (md *modalModel) nameValue() string {
	return strings.TrimSpace(md.name.Value())
}

func (md *modalModel) contentValue() string {
	return md.content.Value()
}

// toggleFocus moves focus between the name input and the content area.
func (md *modalModel) toggleFocus() {
	if !md.hasName() || !md.hasContent() {
		return
	}
	md.focusContent = !md.focusContent
	if md.focusContent {
		md.name.Blur()
		md.content.Focus()
		return
	}
	md.content.Blur()
	md.name.Focus()
}

func (md *modalModel) setError(err error) {
	md.busy = false
	md.err = err
}

// update forwards input to the focused field.
func (md modalModel) update(msg tea.Msg) (modalModel, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case md.busy, md.kind == modalConfirmDelete:
	case md.focusContent && md.hasContent():
		md.content, cmd = md.content.Update(msg)
	case md.hasName():
		md.name, cmd = md.name.Update(msg)
	}
	return md, cmd
}

func (md modalModel) view(width int) string {
	var sb strings.Builder
	sb.WriteString(modalTitleStyle.Render(md.title()))
	sb.WriteString("\n\n")

	if md.kind == modalConfirmDelete {
		sb.WriteString(md.target.Path)
		sb.WriteString("\n\n")
	}
	if md.hasName() {
		sb.WriteString(md.name.View())
		sb.WriteString("\n")
	}
	if md.hasContent() {
		if md.hasName() {
			sb.WriteString("\n")
		}
		sb.WriteString(md.content.View())
		sb.WriteString("\n")
	}

	if md.err != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", md.err)))
		sb.WriteString("\n")
	}

	confirm := modalConfirmStyle.Render("[" + md.confirmText() + "]")
	if md.kind == modalConfirmDelete {
		confirm = dangerStyle.Render("[" + md.confirmText() + "]")
	}
	sb.WriteString("\n")
	sb.WriteString(modalCancelStyle.Render("[Cancel] esc"))
	sb.WriteString("    ")
	sb.WriteString(confirm)
	sb.WriteString(helpStyle.Render(" " + md.confirmKeys()))

	boxWidth := 66
	if width > 0 && width-4 < boxWidth {
		boxWidth = max(20, width-4)
	}
	return modalStyle.Width(boxWidth).Render(sb.String())
}

func (md *modalModel) confirmKeys() string {
	switch md.kind {
	case modalConfirmDelete:
		return "y/enter"
	case modalEdit:
		return "ctrl+s"
	case modalNewFile:
		return "ctrl+s  tab:switch field"
	}
	return "enter"
}
