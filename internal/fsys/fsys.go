// Package fsys is the file-system access layer the browser consumes: listing,
// reading, writing, creating, moving and deleting entries on an afero.Fs.
package fsys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/JohnDeved/dirviewer-cli/internal/util"
)

// MaxEditSize is the largest file ReadFile loads for editing.
const MaxEditSize = 1 << 20

var (
	ErrNotExist    = fs.ErrNotExist
	ErrExist       = fs.ErrExist
	ErrInvalidPath = errors.New("invalid path")
	ErrOutsideRoot = errors.New("path is outside the browsed directory")
	ErrIsDir       = errors.New("is a directory")
	ErrTooLarge    = errors.New("file too large to edit")
)

// FileType distinguishes files from directories in a listing.
type FileType string

const (
	TypeFile      FileType = "file"
	TypeDirectory FileType = "directory"
)

// FileStat describes one entry of a directory listing.
type FileStat struct {
	Filename     string   `json:"filename"`
	Path         string   `json:"path"`
	Type         FileType `json:"type"`
	Size         int64    `json:"size"`
	LastModified int64    `json:"last_modified"` // epoch milliseconds
	Link         bool     `json:"link,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (s FileStat) IsDir() bool {
	return s.Type == TypeDirectory
}

// FS performs browser operations on an afero file system. All paths are
// slash-separated and must stay inside Root.
type FS struct {
	afs        afero.Fs
	root       string
	realRoot   string // root with links resolved, local disk only
	local      bool
	showHidden bool
	logger     *zap.Logger
	closer     io.Closer
}

// New wraps afs. root bounds every operation.
func New(afs afero.Fs, root string, logger *zap.Logger) *FS {
	if logger == nil {
		logger = zap.NewNop()
	}
	root = util.Normalize(root)
	if root == "" {
		root = "/"
	}
	return &FS{afs: afs, root: root, logger: logger}
}

// NewOS returns an FS on the local disk rooted at dir.
func NewOS(dir string, logger *zap.Logger) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", abs)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", abs, err)
	}
	f := New(afero.NewOsFs(), filepath.ToSlash(abs), logger)
	f.local = true
	f.realRoot = util.Normalize(filepath.ToSlash(resolved))
	return f, nil
}

// NewMem returns an in-memory FS rooted at "/".
func NewMem(logger *zap.Logger) *FS {
	return New(afero.NewMemMapFs(), "/", logger)
}

// Root returns the directory all operations are confined to.
func (f *FS) Root() string { return f.root }

// Local reports whether the FS is backed by the local disk.
func (f *FS) Local() bool { return f.local }

// SetShowHidden controls whether StatDir lists dot entries.
func (f *FS) SetShowHidden(show bool) { f.showHidden = show }

// Close releases remote connections, if any.
func (f *FS) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// resolve validates p and confines it to the root, following links on the
// local disk.
func (f *FS) resolve(p string) (string, error) {
	n, err := f.clean(p)
	if err != nil {
		return "", err
	}
	if err := f.confine(n); err != nil {
		return "", err
	}
	return n, nil
}

// resolveEntry is resolve for operations on the entry itself rather than
// what it points to: only the parent is confined.
func (f *FS) resolveEntry(p string) (string, error) {
	n, err := f.clean(p)
	if err != nil {
		return "", err
	}
	if err := f.confine(util.Dirname(n)); err != nil {
		return "", err
	}
	return n, nil
}

func (f *FS) clean(p string) (string, error) {
	n := util.Normalize(p)
	if n == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if path.Clean(n) != n {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	if !util.IsWithin(f.root, n) {
		return "", fmt.Errorf("%s: %w", n, ErrOutsideRoot)
	}
	return n, nil
}

func (f *FS) confine(p string) error {
	if !f.local {
		return nil
	}
	resolved, err := f.realPath(p)
	if err != nil {
		return err
	}
	if !util.IsWithin(f.realRoot, resolved) {
		return fmt.Errorf("%s: %w", p, ErrOutsideRoot)
	}
	return nil
}

// realPath resolves the links in p. Missing trailing components are kept
// as they are, below the deepest existing ancestor.
func (f *FS) realPath(p string) (string, error) {
	var rest []string
	for q := p; ; q = util.Dirname(q) {
		resolved, err := filepath.EvalSymlinks(f.osPath(q))
		if err == nil {
			parts := append([]string{util.Normalize(filepath.ToSlash(resolved))}, rest...)
			return util.Join(parts...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolving %s: %w", q, err)
		}
		if info, lerr := os.Lstat(f.osPath(q)); lerr == nil && info.Mode()&fs.ModeSymlink != 0 {
			return "", fmt.Errorf("%w: dangling link %s", ErrInvalidPath, q)
		}
		if q == "/" {
			return "", fmt.Errorf("resolving %s: %w", p, err)
		}
		rest = append([]string{util.Basename(q)}, rest...)
	}
}

func (f *FS) toStat(dir string, info fs.FileInfo) FileStat {
	t := TypeFile
	if info.IsDir() {
		t = TypeDirectory
	}
	return FileStat{
		Filename:     info.Name(),
		Path:         util.Join(dir, info.Name()),
		Type:         t,
		Size:         info.Size(),
		LastModified: info.ModTime().UnixMilli(),
	}
}

// StatDir lists dir, directories first, then by case-insensitive name.
func (f *FS) StatDir(ctx context.Context, dir string) ([]FileStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}

	infos, err := afero.ReadDir(f.afs, dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	stats := make([]FileStat, 0, len(infos))
	for _, info := range infos {
		if !f.showHidden && strings.HasPrefix(info.Name(), ".") {
			continue
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			st := f.toStat(dir, info)
			// Follow links so linked directories stay navigable.
			if target, err := f.afs.Stat(util.Join(dir, info.Name())); err == nil {
				st = f.toStat(dir, target)
				st.Filename = info.Name()
				st.Path = util.Join(dir, info.Name())
			}
			st.Link = true
			stats = append(stats, st)
			continue
		}
		stats = append(stats, f.toStat(dir, info))
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].IsDir() != stats[j].IsDir() {
			return stats[i].IsDir()
		}
		return strings.ToLower(stats[i].Filename) < strings.ToLower(stats[j].Filename)
	})
	return stats, nil
}

// Stat describes a single entry.
func (f *FS) Stat(ctx context.Context, p string) (FileStat, error) {
	if err := ctx.Err(); err != nil {
		return FileStat{}, err
	}
	p, err := f.resolve(p)
	if err != nil {
		return FileStat{}, err
	}
	info, err := f.afs.Stat(p)
	if err != nil {
		return FileStat{}, err
	}
	st := f.toStat(util.Dirname(p), info)
	st.Path = p
	return st, nil
}

// ReadFile returns the content of a file small enough to edit.
func (f *FS) ReadFile(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := f.resolve(p)
	if err != nil {
		return "", err
	}
	info, err := f.afs.Stat(p)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: %w", p, ErrIsDir)
	}
	if info.Size() > MaxEditSize {
		return "", fmt.Errorf("%s (%s): %w", p, util.FormatBytes(info.Size()).Str, ErrTooLarge)
	}
	data, err := afero.ReadFile(f.afs, p)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", p, err)
	}
	return string(data), nil
}

// WriteFile creates or truncates p with content, creating parent directories.
func (f *FS) WriteFile(ctx context.Context, p, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.resolve(p)
	if err != nil {
		return err
	}
	if info, err := f.afs.Stat(p); err == nil && info.IsDir() {
		return f.logResult("write file", p, fmt.Errorf("%s: %w", p, ErrIsDir))
	}
	if err := f.afs.MkdirAll(util.Dirname(p), 0o755); err != nil {
		return f.logResult("write file", p, fmt.Errorf("creating parent of %s: %w", p, err))
	}
	err = afero.WriteFile(f.afs, p, []byte(content), 0o644)
	return f.logResult("write file", p, err, zap.Int("bytes", len(content)))
}

// Mkdir creates p and any missing parents. An existing entry is an error.
func (f *FS) Mkdir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.resolve(p)
	if err != nil {
		return err
	}
	if _, err := f.afs.Stat(p); err == nil {
		return f.logResult("mkdir", p, fmt.Errorf("%s: %w", p, ErrExist))
	}
	return f.logResult("mkdir", p, f.afs.MkdirAll(p, 0o755))
}

// Move renames from to to. It never overwrites an existing entry.
func (f *FS) Move(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := f.resolveEntry(from)
	if err != nil {
		return err
	}
	to, err = f.resolve(to)
	if err != nil {
		return err
	}
	if from == f.root {
		return fmt.Errorf("moving %s: %w", from, ErrInvalidPath)
	}
	if _, err := f.lstat(from); err != nil {
		return f.logResult("move", from, err)
	}
	if _, err := f.afs.Stat(to); err == nil {
		return f.logResult("move", from, fmt.Errorf("%s: %w", to, ErrExist))
	}
	err = f.afs.Rename(from, to)
	return f.logResult("move", from, err, zap.String("to", to))
}

// Unlink removes a file, or a directory with everything below it.
func (f *FS) Unlink(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.resolveEntry(p)
	if err != nil {
		return err
	}
	if p == f.root {
		return fmt.Errorf("deleting %s: %w", p, ErrInvalidPath)
	}
	if _, err := f.lstat(p); err != nil {
		return f.logResult("delete", p, err)
	}
	return f.logResult("delete", p, f.afs.RemoveAll(p))
}

// lstat describes p without following a final link where the backend allows.
func (f *FS) lstat(p string) (fs.FileInfo, error) {
	if l, ok := f.afs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(p)
		return info, err
	}
	return f.afs.Stat(p)
}

func (f *FS) logResult(op, p string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("op", op), zap.String("path", p))
	if err != nil {
		f.logger.Error("file operation failed", append(fields, zap.Error(err))...)
		return err
	}
	f.logger.Info("file operation", fields...)
	return nil
}

// osPath maps a browser path to the local disk path it names.
func (f *FS) osPath(p string) string {
	return filepath.FromSlash(p)
}
