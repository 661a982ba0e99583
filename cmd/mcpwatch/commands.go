package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/mcpwatch/mcpwatch/pkg/adapter"
	"github.com/mcpwatch/mcpwatch/pkg/aggregator"
	"github.com/mcpwatch/mcpwatch/pkg/collector"
	"github.com/mcpwatch/mcpwatch/pkg/config"
	"github.com/mcpwatch/mcpwatch/pkg/display"
	"github.com/mcpwatch/mcpwatch/pkg/locate"
	"github.com/mcpwatch/mcpwatch/pkg/logger"
	"github.com/mcpwatch/mcpwatch/pkg/pricing"
	"github.com/mcpwatch/mcpwatch/pkg/store"
	"github.com/mcpwatch/mcpwatch/pkg/tail"
)

// trackCommand watches a platform live.
type trackCommand struct {
	platform   string
	project    string
	format     string
	fromStart  bool
	resume     bool
	noPersist  bool
	output     string
	pin        []string
	refresh    time.Duration
	wait       time.Duration
	configPath string
}

func (c *trackCommand) Execute() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Output: cfg.Logging.Output,
		Format: cfg.Logging.Format,
	})

	project := cfg.Project
	if project == "" {
		if wd, wdErr := os.Getwd(); wdErr == nil {
			project = filepath.Base(wd)
		} else {
			project = "unknown"
		}
	}

	loc, err := locate.New(cfg.Platform, locate.Options{})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.awaitActivity(ctx, cfg, loc, log); err != nil {
		return err
	}

	db := openDatabase(cfg.Storage.DBPath, log)
	if db != nil {
		defer db.Close() // nolint:errcheck
	}

	positions := tail.NewMemoryPositionStore()
	if db != nil {
		if ps, psErr := tail.NewBoltPositionStore(db); psErr == nil {
			positions = ps
		} else {
			log.Warn("position persistence disabled", "error", psErr)
		}
	}

	tailer, err := tail.New(tail.Config{
		Discover:     loc.Candidates,
		Roots:        loc.Roots(),
		PollInterval: cfg.Watch.PollInterval,
		FromStart:    cfg.Watch.FromStart,
		Positions:    positions,
		Resume:       c.resume,
		FlushTimeout: cfg.Watch.FlushTimeout,
	}, log)
	if err != nil {
		return err
	}

	ad, err := adapter.New(cfg.Platform)
	if err != nil {
		return err
	}

	rates, err := pricing.LoadOrDefault(cfg.Tracking.PricingPath)
	if err != nil {
		return err
	}

	agg := aggregator.New(aggregator.Config{
		Platform:        cfg.Platform,
		Project:         project,
		DuplicateWindow: cfg.Tracking.DuplicateWindow,
		Pricing:         rates,
		ParseErrors:     ad.ParseErrors,
	})

	var st store.Store
	if cfg.Storage.Persist {
		st, err = store.New(store.Config{Root: cfg.Storage.OutputDir, DB: db})
		if err != nil {
			return err
		}
	}

	col, err := collector.New(collector.Config{
		Tailer:           tailer,
		Adapter:          ad,
		Aggregator:       agg,
		Store:            st,
		SnapshotInterval: cfg.Display.RefreshRate,
		Logger:           log,
	})
	if err != nil {
		return err
	}

	renderer, err := display.New(cfg.Display.DefaultMode, display.Options{
		PinnedServers: cfg.Display.PinnedServers,
	})
	if err != nil {
		return err
	}

	log.Info("tracking started",
		"platform", cfg.Platform, "project", project,
		"poll_interval", cfg.Watch.PollInterval)

	type runResult struct {
		snap *aggregator.DisplaySnapshot
		err  error
	}
	done := make(chan runResult, 1)
	go func() {
		snap, runErr := col.Run(ctx)
		done <- runResult{snap, runErr}
	}()

	clearScreen := cfg.Display.DefaultMode != "json" && term.IsTerminal(int(os.Stdout.Fd()))
	for snap := range col.Snapshots() {
		if clearScreen {
			fmt.Print("\033[2J\033[H")
		}
		if renderErr := renderer.Render(os.Stdout, snap); renderErr != nil {
			log.Warn("render failed", "error", renderErr)
		}
	}

	res := <-done
	return res.err
}

func (c *trackCommand) loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return nil, err
	}

	// Command-line flags take precedence over everything.
	if c.platform != "" {
		cfg.Platform = c.platform
	}
	if c.project != "" {
		cfg.Project = c.project
	}
	if c.format != "" {
		cfg.Display.DefaultMode = c.format
	}
	if c.fromStart {
		cfg.Watch.FromStart = true
	}
	if c.noPersist {
		cfg.Storage.Persist = false
	}
	if c.output != "" {
		cfg.Storage.OutputDir = c.output
	}
	if len(c.pin) > 0 {
		cfg.Display.PinnedServers = c.pin
	}
	if c.refresh > 0 {
		cfg.Display.RefreshRate = c.refresh
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// awaitActivity blocks until the platform has at least one log file,
// bounded by the -wait flag.
func (c *trackCommand) awaitActivity(ctx context.Context, cfg *config.Config, loc locate.Locator, log logger.Logger) error {
	files, err := loc.Candidates()
	if err != nil {
		return err
	}
	if len(files) > 0 {
		return nil
	}

	log.Info("no log files yet, waiting for platform activity",
		"platform", cfg.Platform, "timeout", c.wait)

	waitCtx, cancel := context.WithTimeout(ctx, c.wait)
	defer cancel()

	if _, err := locate.WaitForActivity(waitCtx, loc, cfg.Watch.PollInterval); err != nil {
		return fmt.Errorf("%s: %w", cfg.Platform, err)
	}
	return nil
}

// reportCommand renders saved session records: one file when a path is
// given, otherwise every record under the session directory.
type reportCommand struct {
	recordPath string
	format     string
	dir        string
	since      time.Duration
	configPath string
}

func (c *reportCommand) Execute() error {
	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return err
	}

	mode := c.format
	if mode == "" {
		mode = cfg.Display.DefaultMode
	}

	root := c.dir
	if root == "" {
		root = cfg.Storage.OutputDir
	}

	st, err := store.New(store.Config{Root: root})
	if err != nil {
		return err
	}

	renderer, err := display.New(mode, display.Options{
		PinnedServers: cfg.Display.PinnedServers,
	})
	if err != nil {
		return err
	}

	if c.recordPath != "" {
		rec, loadErr := st.Load(c.recordPath)
		if loadErr != nil {
			return loadErr
		}
		snap := rec.Session
		snap.ToolCalls = rec.ToolCalls
		return renderer.Render(os.Stdout, snap)
	}

	return c.batch(st, renderer, root)
}

// batch renders every readable record under root, newest cutoff first
// applied via -since, and ends with combined totals.
func (c *reportCommand) batch(st store.Store, renderer display.Renderer, root string) error {
	paths, err := findRecords(root)
	if err != nil {
		return err
	}

	cutoff := time.Time{}
	if c.since > 0 {
		cutoff = time.Now().Add(-c.since)
	}

	var (
		rendered    int
		totalTokens int64
		totalCost   float64
	)
	for _, path := range paths {
		rec, loadErr := st.Load(path)
		if loadErr != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, loadErr)
			continue
		}
		if !cutoff.IsZero() && rec.Session.StartedAt.Before(cutoff) {
			continue
		}

		if rendered > 0 {
			fmt.Println()
		}
		snap := rec.Session
		snap.ToolCalls = rec.ToolCalls
		if renderErr := renderer.Render(os.Stdout, snap); renderErr != nil {
			return renderErr
		}

		rendered++
		totalTokens += snap.TotalTokens
		totalCost += snap.CostUSD
	}

	if rendered == 0 {
		fmt.Println("No session records found.")
		return nil
	}
	if rendered > 1 {
		fmt.Printf("\n%d sessions, %d tokens, $%.4f total\n", rendered, totalTokens, totalCost)
	}
	return nil
}

// findRecords lists session record files under root, oldest first.
func findRecords(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if !d.IsDir() && filepath.Ext(path) == ".json" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// sessionsCommand lists saved sessions from the run index.
type sessionsCommand struct {
	configPath string
}

func (c *sessionsCommand) Execute() error {
	cfg, err := config.NewLoader(c.configPath).Load()
	if err != nil {
		return err
	}

	db := openDatabase(cfg.Storage.DBPath, logger.Default())
	if db == nil {
		return fmt.Errorf("cannot open session index at %s", cfg.Storage.DBPath)
	}
	defer db.Close() // nolint:errcheck

	st, err := store.New(store.Config{Root: cfg.Storage.OutputDir, DB: db})
	if err != nil {
		return err
	}

	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SAVED\tPLATFORM\tPROJECT\tTOKENS\tCOST\tPATH")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t$%.4f\t%s\n",
			run.SavedAt.Format("2006-01-02 15:04"),
			run.Platform, run.Project, run.TotalTokens, run.CostUSD, run.Path)
	}
	return tw.Flush()
}

// configCommand manages the configuration file.
type configCommand struct {
	configPath string
}

func (c *configCommand) Execute(args []string) error {
	action := "show"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "show":
		cfg, err := config.NewLoader(c.configPath).Load()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil

	case "path":
		path := c.configPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path = filepath.Join(home, ".config", "mcpwatch", "config.yaml")
		}
		fmt.Println(path)
		return nil

	case "init":
		path := c.configPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path = filepath.Join(home, ".config", "mcpwatch", "config.yaml")
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		fmt.Printf("Created %s\n", path)
		return nil

	default:
		return fmt.Errorf("unknown config action: %s (expected show, path, or init)", action)
	}
}

// openDatabase opens the BoltDB file shared by the position store and
// the run index. Failure degrades to in-memory operation.
func openDatabase(path string, log logger.Logger) *bolt.DB {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		log.Warn("cannot create database directory", "path", path, "error", err)
		return nil
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		log.Warn("cannot open database, continuing without persistence",
			"path", path, "error", err)
		return nil
	}
	return db
}
