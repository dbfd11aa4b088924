package index

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JohnDeved/dirviewer-cli/internal/fsys"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTree(t *testing.T) (afero.Fs, *fsys.FS) {
	t.Helper()
	afs := afero.NewMemMapFs()
	files := map[string]string{
		"/base/reports/2023/annual report.pdf": "pdf",
		"/base/reports/2024/q1-summary.txt":    "q1",
		"/base/photos/holiday.jpg":             "jpeg-bytes",
		"/base/readme.md":                      "# readme",
	}
	for p, content := range files {
		require.NoError(t, afs.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(afs, p, []byte(content), 0o644))
	}
	return afs, fsys.New(afs, "/base", zaptest.NewLogger(t))
}

func TestSanitizeFTS5Query(t *testing.T) {
	assert.Equal(t, "", sanitizeFTS5Query("   "))
	assert.Equal(t, `"report"* "final"*`, sanitizeFTS5Query("report (final)"))
	assert.Equal(t, `"say""hi"*`, sanitizeFTS5Query(`say"hi`))
	assert.Equal(t, "", sanitizeFTS5Query("( ) *"))
}

func TestCrawlAndSearch(t *testing.T) {
	_, f := newTree(t)
	db := openTestDB(t)

	cr := NewCrawler(f, db, 1000, zaptest.NewLogger(t))
	cr.SetWorkers(2)
	var updates atomic.Int64
	cr.SetProgressCallback(func(CrawlProgress) { updates.Add(1) })
	require.NoError(t, cr.Crawl(context.Background(), "/base"))

	p := cr.Progress()
	assert.Equal(t, int64(5), p.DirsProcessed)
	assert.Equal(t, int64(4), p.FilesFound)
	assert.Zero(t, p.Errors)
	assert.Positive(t, updates.Load())

	results, err := db.Search("annual", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "annual report.pdf", results[0].Name)
	assert.Equal(t, "/base/reports/2023/annual report.pdf", results[0].Path)
	assert.False(t, results[0].IsDir)
	assert.Equal(t, int64(3), results[0].Size)

	// Prefix matching on partial words.
	results, err = db.Search("holi", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "holiday.jpg", results[0].Name)

	results, err = db.SearchUnder("2024", "/base/reports", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	for _, r := range results {
		assert.Contains(t, r.Path, "/base/reports/")
	}

	results, err = db.SearchUnder("holiday", "/base/reports", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Directories)
	assert.Equal(t, 4, stats.Files)
	assert.Equal(t, int64(3+2+10+8), stats.TotalBytes)
}

func TestCrawl_SkipsUnchangedDirectories(t *testing.T) {
	afs, f := newTree(t)
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewCrawler(f, db, 1000, nil).Crawl(ctx, "/base"))

	second := NewCrawler(f, db, 1000, nil)
	require.NoError(t, second.Crawl(ctx, "/base"))
	assert.Equal(t, int64(5), second.Progress().DirsSkipped)
	assert.Zero(t, second.Progress().DirsProcessed)

	// A new file in a changed directory is picked up on the next run.
	require.NoError(t, afero.WriteFile(afs, "/base/photos/beach.jpg", []byte("x"), 0o644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, afs.Chtimes("/base/photos", later, later))

	third := NewCrawler(f, db, 1000, nil)
	require.NoError(t, third.Crawl(ctx, "/base"))
	assert.Equal(t, int64(1), third.Progress().DirsProcessed)

	results, err := db.Search("beach", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestCrawl_PrunesDeletedDirectories(t *testing.T) {
	afs, f := newTree(t)
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewCrawler(f, db, 1000, nil).Crawl(ctx, "/base"))
	require.NoError(t, afs.RemoveAll("/base/reports"))

	cr := NewCrawler(f, db, 1000, nil)
	cr.SetForce(true)
	require.NoError(t, cr.Crawl(ctx, "/base"))

	results, err := db.Search("annual", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Directories)
}

func TestCrawl_Cancelled(t *testing.T) {
	_, f := newTree(t)
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewCrawler(f, db, 1000, nil).Crawl(ctx, "/base")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChildDirectories(t *testing.T) {
	_, f := newTree(t)
	db := openTestDB(t)
	require.NoError(t, NewCrawler(f, db, 1000, nil).Crawl(context.Background(), "/base"))

	dirs, err := db.ChildDirectories("/base/reports")
	require.NoError(t, err)
	assert.Equal(t, []string{"/base/reports/2023", "/base/reports/2024"}, dirs)
}

func TestCrawl_DoesNotFollowDirectoryLinks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "loop.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("..", filepath.Join(root, "a", "up")))
	require.NoError(t, os.Symlink("..", filepath.Join(root, "a", "up2")))

	f, err := fsys.NewOS(root, zaptest.NewLogger(t))
	require.NoError(t, err)
	db := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cr := NewCrawler(f, db, 1000, zaptest.NewLogger(t))
	require.NoError(t, cr.Crawl(ctx, f.Root()))
	assert.Equal(t, int64(2), cr.Progress().DirsProcessed)

	results, err := db.Search("up", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.IsDir)
		assert.True(t, r.IsLink)
	}

	// Unchanged directories are walked from the index; links stay out of it.
	cr = NewCrawler(f, db, 1000, nil)
	require.NoError(t, cr.Crawl(ctx, f.Root()))
	assert.Equal(t, int64(2), cr.Progress().DirsSkipped)
	assert.Equal(t, int64(0), cr.Progress().DirsProcessed)
}

// unreadableFs fails to open the listed directories.
type unreadableFs struct {
	afero.Fs
	bad map[string]bool
}

func (u unreadableFs) Open(name string) (afero.File, error) {
	if u.bad[name] {
		return nil, os.ErrPermission
	}
	return u.Fs.Open(name)
}

func TestCrawl_CountsEachErrorOnce(t *testing.T) {
	afs, _ := newTree(t)
	bad := unreadableFs{Fs: afs, bad: map[string]bool{"/base/photos": true, "/base/reports/2023": true}}
	f := fsys.New(bad, "/base", zaptest.NewLogger(t))
	db := openTestDB(t)

	cr := NewCrawler(f, db, 1000, nil)
	require.NoError(t, cr.Crawl(context.Background(), "/base"))
	assert.Equal(t, int64(2), cr.Progress().Errors)
	assert.Equal(t, int64(3), cr.Progress().DirsProcessed)
}
