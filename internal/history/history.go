// Package history keeps the back/forward navigation list of the browser.
package history

// History is an ordered list of visited directories with a cursor, following
// web-browser semantics: visiting a new directory discards everything ahead
// of the cursor.
type History struct {
	entries []string
	idx     int
}

// New returns a history that starts at base.
func New(base string) *History {
	return &History{entries: []string{base}}
}

// Current returns the directory under the cursor.
func (h *History) Current() string {
	return h.entries[h.idx]
}

// Index is the cursor position in Entries.
func (h *History) Index() int { return h.idx }

// Len is the number of visited directories.
func (h *History) Len() int { return len(h.entries) }

// CanBack reports whether Back would move.
func (h *History) CanBack() bool {
	return h.idx > 0
}

// CanForward reports whether Forward would move.
func (h *History) CanForward() bool {
	return h.idx < h.Len()-1
}

// Back moves the cursor one step back.
func (h *History) Back() (string, bool) {
	if !h.CanBack() {
		return h.Current(), false
	}
	return h.Seek(h.idx - 1), true
}

// Forward moves the cursor one step forward.
func (h *History) Forward() (string, bool) {
	if !h.CanForward() {
		return h.Current(), false
	}
	return h.Seek(h.idx + 1), true
}

// Seek moves the cursor to i, clamped into the valid range.
func (h *History) Seek(i int) string {
	if i < 0 {
		i = 0
	}
	if i > len(h.entries)-1 {
		i = len(h.entries) - 1
	}
	h.idx = i
	return h.Current()
}

// Push truncates the forward entries and appends p.
func (h *History) Push(p string) {
	if p == h.Current() {
		return
	}
	h.entries = append(h.entries[:h.idx+1], p)
	h.idx = len(h.entries) - 1
}

// Reset drops all entries and starts over at p.
func (h *History) Reset(p string) {
	h.entries = []string{p}
	h.idx = 0
}

// Entries returns a copy of the visited directories.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
