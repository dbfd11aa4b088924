package index

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JohnDeved/dirviewer-cli/internal/fsys"
)

// CrawlProgress reports crawl progress.
type CrawlProgress struct {
	CurrentPath   string
	DirsProcessed int64
	DirsSkipped   int64
	FilesFound    int64
	Errors        int64
}

// Crawler recursively indexes the tree below a root directory.
type Crawler struct {
	fs         *fsys.FS
	db         *DB
	logger     *zap.Logger
	limiter    *rate.Limiter
	force      bool
	workers    int
	progress   atomic.Pointer[CrawlProgress]
	onProgress func(CrawlProgress)
	mu         sync.Mutex
	seen       map[string]struct{}
	dirsProc   atomic.Int64
	dirsSkip   atomic.Int64
	filesFound atomic.Int64
	errCount   atomic.Int64
}

// NewCrawler creates a crawler reading at most readsPerSec directories per
// second.
func NewCrawler(f *fsys.FS, db *DB, readsPerSec float64, logger *zap.Logger) *Crawler {
	if readsPerSec <= 0 {
		readsPerSec = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		fs:      f,
		db:      db,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(readsPerSec), 10),
		workers: 4,
		seen:    make(map[string]struct{}),
	}
}

// SetForce controls whether stale checks are skipped.
func (cr *Crawler) SetForce(force bool) {
	cr.force = force
}

// SetWorkers controls how many top-level directories are crawled in parallel.
func (cr *Crawler) SetWorkers(workers int) {
	if workers < 1 {
		workers = 1
	}
	cr.workers = workers
}

// SetProgressCallback sets a function called on progress updates.
func (cr *Crawler) SetProgressCallback(fn func(CrawlProgress)) {
	cr.onProgress = fn
}

// Progress returns the latest crawl progress.
func (cr *Crawler) Progress() CrawlProgress {
	p := cr.progress.Load()
	if p == nil {
		return CrawlProgress{}
	}
	return *p
}

func (cr *Crawler) reportProgress(path string) {
	p := CrawlProgress{
		CurrentPath:   path,
		DirsProcessed: cr.dirsProc.Load(),
		DirsSkipped:   cr.dirsSkip.Load(),
		FilesFound:    cr.filesFound.Load(),
		Errors:        cr.errCount.Load(),
	}
	cr.progress.Store(&p)
	if cr.onProgress != nil {
		cr.onProgress(p)
	}
}

func (cr *Crawler) markSeen(path string) {
	cr.mu.Lock()
	cr.seen[path] = struct{}{}
	cr.mu.Unlock()
}

// Crawl indexes root and everything below it, then drops index rows of
// directories that no longer exist.
func (cr *Crawler) Crawl(ctx context.Context, root string) error {
	subdirs, err := cr.crawlOne(ctx, root)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", root, err)
	}

	workers := cr.workers
	if workers > len(subdirs) {
		workers = len(subdirs)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dir := range jobs {
				if err := cr.crawlDir(ctx, dir); err != nil {
					if ctx.Err() != nil {
						return
					}
					cr.logger.Error("crawl failed", zap.String("path", dir), zap.Error(err))
					cr.errCount.Add(1)
				}
			}
		}()
	}

	for _, dir := range subdirs {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- dir:
		}
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// Rows of unreachable directories are only pruned after a clean run.
	if cr.errCount.Load() == 0 {
		cr.mu.Lock()
		keep := cr.seen
		cr.mu.Unlock()
		removed, err := cr.db.Prune(root, keep)
		if err != nil {
			return fmt.Errorf("pruning index: %w", err)
		}
		if removed > 0 {
			cr.logger.Info("pruned deleted directories", zap.Int("count", removed))
		}
	}
	cr.reportProgress(root)
	return nil
}

// crawlDir recursively crawls a directory.
func (cr *Crawler) crawlDir(ctx context.Context, dirPath string) error {
	subdirs, err := cr.crawlOne(ctx, dirPath)
	if err != nil {
		return err
	}

	for _, subdir := range subdirs {
		if err := cr.crawlDir(ctx, subdir); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cr.logger.Warn("crawl failed", zap.String("path", subdir), zap.Error(err))
			cr.errCount.Add(1)
		}
	}
	return nil
}

// crawlOne indexes a single directory and returns its subdirectories. Errors
// are counted by the caller.
func (cr *Crawler) crawlOne(ctx context.Context, dirPath string) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	cr.reportProgress(dirPath)
	cr.markSeen(dirPath)

	st, err := cr.fs.Stat(ctx, dirPath)
	if err != nil {
		return nil, err
	}

	if !cr.force {
		stale, err := cr.db.IsDirectoryStale(dirPath, st.LastModified)
		if err != nil {
			return nil, err
		}
		if !stale {
			cr.dirsSkip.Add(1)
			// Unchanged directories can still have changed descendants.
			return cr.db.ChildDirectories(dirPath)
		}
	}

	if err := cr.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	stats, err := cr.fs.StatDir(ctx, dirPath)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dirPath, err)
	}

	dirID, err := cr.db.UpsertDirectory(dirPath, st.LastModified)
	if err != nil {
		return nil, err
	}
	if err := cr.db.ClearDirectoryEntries(dirID); err != nil {
		return nil, err
	}

	records := make([]EntryRecord, 0, len(stats))
	var subdirs []string
	files := 0
	for _, s := range stats {
		records = append(records, EntryRecord{
			Name:        s.Filename,
			Path:        s.Path,
			IsDir:       s.IsDir(),
			IsLink:      s.Link,
			Size:        s.Size,
			ModMs:       s.LastModified,
			DirectoryID: dirID,
		})
		switch {
		case s.IsDir() && s.Link:
			// Directory links are indexed but never descended.
		case s.IsDir():
			subdirs = append(subdirs, s.Path)
		default:
			files++
		}
	}

	if len(records) > 0 {
		if err := cr.db.InsertEntryBatch(records); err != nil {
			return nil, fmt.Errorf("inserting entries for %s: %w", dirPath, err)
		}
		cr.filesFound.Add(int64(files))
	}

	if err := cr.db.MarkDirectoryCrawled(dirID); err != nil {
		return nil, err
	}
	cr.dirsProc.Add(1)
	return subdirs, nil
}
