package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JohnDeved/dirviewer-cli/internal/config"
	"github.com/JohnDeved/dirviewer-cli/internal/fsys"
	"github.com/JohnDeved/dirviewer-cli/internal/index"
	"github.com/JohnDeved/dirviewer-cli/internal/logging"
	"github.com/JohnDeved/dirviewer-cli/internal/tui"
	"github.com/JohnDeved/dirviewer-cli/internal/util"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dirviewer [path]",
		Short: "A terminal directory browser",
		Long: `Dirviewer - Browse a directory tree in your terminal, with back/forward
history, clickable path segments and create, rename, edit and delete actions.`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String("base", "", "Base directory the browser never leaves (default from config)")
	rootCmd.PersistentFlags().String("sftp", "", "Browse a remote host over SFTP (user@host:port)")
	rootCmd.PersistentFlags().String("sftp-key", "", "Private key file for the SFTP login")
	rootCmd.PersistentFlags().String("sftp-password", "", "Password for the SFTP login")
	rootCmd.PersistentFlags().Bool("sftp-insecure", false, "Skip SFTP host key verification")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	addListFlags(rootCmd)

	// Browse command
	browseCmd := &cobra.Command{
		Use:   "browse [path]",
		Short: "Launch TUI at a specific path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTUI,
	}
	addListFlags(browseCmd)

	// List command (non-interactive directory listing)
	listCmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory in plain text",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runList,
	}
	listCmd.Flags().Bool("json", false, "Output JSON")
	listCmd.Flags().Bool("name-only", false, "Only print names")
	listCmd.Flags().Int("limit", 0, "Limit number of entries (0 = unlimited)")

	// Index command
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Crawl the base directory and build a local search index",
		RunE:  runIndex,
	}
	indexCmd.Flags().Bool("force", false, "Force re-crawling even when directories are unchanged")
	indexCmd.Flags().Int("workers", 0, "Number of top-level directories to crawl in parallel (default from config)")

	// Search command
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the local index for files and directories",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().String("under", "", "Only return entries below this directory")
	searchCmd.Flags().Int("limit", 50, "Maximum number of results")
	searchCmd.Flags().Bool("json", false, "Output JSON")

	// Stats command
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE:  runStats,
	}
	statsCmd.Flags().Bool("json", false, "Output JSON")

	rootCmd.AddCommand(browseCmd, listCmd, indexCmd, searchCmd, statsCmd)
	return rootCmd
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("plain", false, "List entries in plain text instead of launching TUI")
	cmd.Flags().Bool("json", false, "List entries as JSON instead of launching TUI")
	cmd.Flags().Bool("name-only", false, "Only print names in non-TUI output")
	cmd.Flags().Int("limit", 0, "Limit number of entries in non-TUI output (0 = unlimited)")
}

// env bundles what every subcommand needs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	fs     *fsys.FS
	base   string
	start  string
	dbPath string
}

func (e *env) Close() {
	if e.fs != nil {
		if err := e.fs.Close(); err != nil {
			e.logger.Warn("closing file system", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}

// fail logs a setup error and releases what setup acquired so far.
func (e *env) fail(err error) error {
	e.logger.Error("setup failed", zap.Error(err))
	e.Close()
	return err
}

// setup loads config, builds the logger and opens the browsed file system.
// A path argument outside the base directory becomes the base directory.
func setup(cmd *cobra.Command, args []string) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	logger, err := logging.New(cfg.LogFile, debug)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger}
	base, _ := cmd.Flags().GetString("base")
	arg := ""
	if len(args) > 0 {
		arg = strings.TrimSpace(args[0])
	}

	target := sftpTarget(cmd, cfg)
	e.dbPath = config.IndexPath(indexKey(target))

	if target != "" {
		sc, err := parseSFTPTarget(target)
		if err != nil {
			return nil, e.fail(err)
		}
		sc.KeyFile, _ = cmd.Flags().GetString("sftp-key")
		if sc.KeyFile == "" {
			sc.KeyFile = cfg.SFTPKeyFile
		}
		sc.Password, _ = cmd.Flags().GetString("sftp-password")
		sc.Insecure, _ = cmd.Flags().GetBool("sftp-insecure")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		f, err := fsys.NewSFTP(ctx, sc, util.Normalize(base), logger)
		if err != nil {
			return nil, e.fail(err)
		}
		e.fs = f
		e.base = f.Root()
		if arg != "" {
			start := util.Normalize(arg)
			if !strings.HasPrefix(arg, "/") {
				start = util.Join(e.base, arg)
			}
			e.start = start
		}
	} else {
		if base == "" {
			base = cfg.BaseDir
		}
		if arg != "" {
			start, err := filepath.Abs(arg)
			if err != nil {
				return nil, e.fail(fmt.Errorf("resolving %s: %w", arg, err))
			}
			absBase, err := filepath.Abs(base)
			if err != nil {
				return nil, e.fail(fmt.Errorf("resolving %s: %w", base, err))
			}
			if !util.IsWithin(filepath.ToSlash(absBase), filepath.ToSlash(start)) {
				base = start
			}
			e.start = filepath.ToSlash(start)
		}
		f, err := fsys.NewOS(base, logger)
		if err != nil {
			return nil, e.fail(err)
		}
		e.fs = f
		e.base = f.Root()
	}

	e.fs.SetShowHidden(cfg.ShowHidden)
	if e.start != "" && !util.IsWithin(e.base, e.start) {
		return nil, e.fail(fmt.Errorf("%s: %w", e.start, fsys.ErrOutsideRoot))
	}
	return e, nil
}

// sftpTarget returns the user@host[:port] given by --sftp or the config, or
// "" for the local disk.
func sftpTarget(cmd *cobra.Command, cfg *config.Config) string {
	target, _ := cmd.Flags().GetString("sftp")
	if target == "" && cfg.SFTPAddr != "" {
		target = cfg.SFTPUser + "@" + cfg.SFTPAddr
	}
	return target
}

// indexKey names the index of a backend so remote and local rows never mix.
func indexKey(target string) string {
	if target == "" {
		return ""
	}
	sc, err := parseSFTPTarget(target)
	if err != nil {
		return target
	}
	return sc.User + "@" + sc.Addr
}

// dbPath returns the index path for the backend selected by the flags,
// without connecting to it.
func dbPath(cmd *cobra.Command) (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	return config.IndexPath(indexKey(sftpTarget(cmd, cfg))), nil
}

// parseSFTPTarget splits user@host[:port]; the port defaults to 22.
func parseSFTPTarget(target string) (fsys.SFTPConfig, error) {
	user, host, ok := strings.Cut(target, "@")
	if !ok || user == "" || host == "" {
		return fsys.SFTPConfig{}, fmt.Errorf("invalid sftp target %q (want user@host:port)", target)
	}
	if !strings.Contains(host, ":") {
		host += ":22"
	}
	return fsys.SFTPConfig{Addr: host, User: user}, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	plainMode, _ := cmd.Flags().GetBool("plain")
	jsonMode, _ := cmd.Flags().GetBool("json")
	if plainMode || jsonMode {
		return runList(cmd, args)
	}

	if !isInteractiveTerminal() {
		return runList(cmd, args)
	}

	e, err := setup(cmd, args)
	if err != nil {
		return err
	}
	defer e.Close()

	// Open DB (may not exist yet, that's fine).
	db, err := index.OpenDB(e.dbPath)
	if err != nil {
		e.logger.Warn("could not open index DB", zap.Error(err))
		db = nil
	}
	if db != nil {
		defer db.Close()
	}

	e.logger.Info("starting browser", zap.String("base", e.base), zap.String("start", e.start))
	return tui.Run(tui.Options{
		FS:         e.fs,
		DB:         db,
		BaseDir:    e.base,
		StartPath:  e.start,
		ListHeight: e.cfg.ListHeight,
		Logger:     e.logger,
	})
}

func runList(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, args)
	if err != nil {
		return err
	}
	defer e.Close()

	dir := e.start
	if dir == "" {
		dir = e.base
	}
	entries, err := e.fs.StatDir(context.Background(), dir)
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	nameOnly, _ := cmd.Flags().GetBool("name-only")
	if jsonMode {
		out := struct {
			Path    string          `json:"path"`
			Entries []fsys.FileStat `json:"entries"`
		}{
			Path:    dir,
			Entries: entries,
		}
		if out.Entries == nil {
			out.Entries = []fsys.FileStat{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println(dir)
	if len(entries) == 0 && !nameOnly {
		fmt.Println("Empty")
		return nil
	}
	for _, s := range entries {
		if nameOnly {
			if s.IsDir() {
				fmt.Printf("%s/\n", s.Filename)
			} else {
				fmt.Println(s.Filename)
			}
			continue
		}
		kind, size := "F", util.FormatBytes(s.Size).Str
		if s.IsDir() {
			kind, size = "D", ""
		}
		fmt.Printf("%s\t%-12s\t%-20s\t%s\n", kind, size, util.FormatTimestamp(s.LastModified), s.Filename)
	}
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, args)
	if err != nil {
		return err
	}
	defer e.Close()

	db, err := index.OpenDB(e.dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	force, _ := cmd.Flags().GetBool("force")
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = e.cfg.IndexWorkers
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	crawler := index.NewCrawler(e.fs, db, e.cfg.ReadsPerSecond, e.logger)
	crawler.SetForce(force)
	crawler.SetWorkers(workers)
	crawler.SetProgressCallback(func(p index.CrawlProgress) {
		fmt.Fprintf(os.Stderr, "\r  Crawling: %-50s  [dirs: %d  skipped: %d  files: %d  errors: %d]",
			util.FoldLongText(p.CurrentPath, 50), p.DirsProcessed, p.DirsSkipped, p.FilesFound, p.Errors)
	})

	fmt.Fprintf(os.Stderr, "Indexing %s...\n", e.base)
	start := time.Now()
	if err := crawler.Crawl(ctx, e.base); err != nil {
		return err
	}

	p := crawler.Progress()
	fmt.Fprintf(os.Stderr, "\n\nDone in %s! Indexed %d directories (%d unchanged), %d files (%d errors)\n",
		time.Since(start).Round(time.Millisecond), p.DirsProcessed, p.DirsSkipped, p.FilesFound, p.Errors)

	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	path, err := dbPath(cmd)
	if err != nil {
		return err
	}
	db, err := index.OpenDB(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	under, _ := cmd.Flags().GetString("under")
	if under != "" && !strings.HasPrefix(under, "/") {
		if abs, err := filepath.Abs(under); err == nil {
			under = filepath.ToSlash(abs)
		}
	}
	under = util.Normalize(under)
	limit, _ := cmd.Flags().GetInt("limit")

	results, err := db.SearchUnder(query, under, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if results == nil {
		results = []index.EntryRecord{}
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		out := struct {
			Query   string              `json:"query"`
			Under   string              `json:"under,omitempty"`
			Count   int                 `json:"count"`
			Results []index.EntryRecord `json:"results"`
		}{
			Query:   query,
			Under:   under,
			Count:   len(results),
			Results: results,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		fmt.Println("Tip: Run 'dirviewer index' to build the search index first.")
		return nil
	}

	for _, r := range results {
		size := ""
		if !r.IsDir {
			size = util.FormatBytes(r.Size).Str
		}
		fmt.Printf("%-40s  %10s  %s\n", r.Name, size, r.Path)
	}

	fmt.Fprintf(os.Stderr, "\n%d results found.\n", len(results))
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	path, err := dbPath(cmd)
	if err != nil {
		return err
	}
	db, err := index.OpenDB(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	stats, err := db.GetStats()
	if err != nil {
		return err
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		out := struct {
			Directories int    `json:"directories"`
			Files       int    `json:"files"`
			TotalBytes  int64  `json:"total_bytes"`
			Database    string `json:"database"`
		}{
			Directories: stats.Directories,
			Files:       stats.Files,
			TotalBytes:  stats.TotalBytes,
			Database:    path,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Index Statistics:\n")
	fmt.Printf("  Directories: %s\n", humanize.Comma(int64(stats.Directories)))
	fmt.Printf("  Files:       %s\n", humanize.Comma(int64(stats.Files)))
	fmt.Printf("  Total size:  %s\n", humanize.Bytes(uint64(stats.TotalBytes)))
	fmt.Printf("  Database:    %s\n", path)

	return nil
}

func isInteractiveTerminal() bool {
	inInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	outInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (inInfo.Mode()&os.ModeCharDevice) != 0 && (outInfo.Mode()&os.ModeCharDevice) != 0
}
