// Package main provides the CLI entrypoint for tabsync.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lumohealth/tabsync/internal/api"
	"github.com/lumohealth/tabsync/internal/config"
	"github.com/lumohealth/tabsync/internal/export"
	"github.com/lumohealth/tabsync/internal/history"
	"github.com/lumohealth/tabsync/internal/legacy"
	"github.com/lumohealth/tabsync/internal/logger"
	"github.com/lumohealth/tabsync/internal/notify"
	"github.com/lumohealth/tabsync/internal/profile"
	"github.com/lumohealth/tabsync/internal/store"
	"github.com/lumohealth/tabsync/internal/syncer"
)

// version is set via -ldflags at build time.
var version = "dev"

var (
	configPath string
	storeDir   string
	logLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tabsync",
	Short: "Keep profile and analysis history in sync across app contexts",
	Long: `tabsync keeps a user profile and analysis history consistent across
multiple application contexts sharing one store, reconciling local
data with the remote service when authenticated.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sync daemon",
	Long: `Run the sync coordinator: migrate legacy data once, perform an
initial sync, then keep watching the shared store and the periodic
interval until interrupted.`,
	RunE: runDaemon,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect or update the stored profile",
}

var profileGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current profile as JSON",
	RunE:  runProfileGet,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save profile fields",
	RunE:  runProfileSet,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or modify the analysis history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the history as JSON, newest first",
	RunE:  runHistoryList,
}

var historyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an analysis record",
	RunE:  runHistoryAdd,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete records by id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistoryDelete,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate data from legacy key names",
	RunE:  runMigrate,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print profile and history as markdown",
	RunE:  runExport,
}

var (
	setFullname   string
	setEmail      string
	setAvatar     string
	setBio        string
	addScore      float64
	addHealthIdx  float64
	addDetailJSON string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to config file")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store-dir", "", "override the shared store directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	profileSetCmd.Flags().StringVar(&setFullname, "fullname", "", "display name")
	profileSetCmd.Flags().StringVar(&setEmail, "email", "", "email address")
	profileSetCmd.Flags().StringVar(&setAvatar, "avatar", "", "avatar URL")
	profileSetCmd.Flags().StringVar(&setBio, "bio", "", "bio text")

	historyAddCmd.Flags().Float64Var(&addScore, "score", 0, "analysis score")
	historyAddCmd.Flags().Float64Var(&addHealthIdx, "health-index", 0, "health index")
	historyAddCmd.Flags().StringVar(&addDetailJSON, "details", "", "opaque details JSON")

	profileCmd.AddCommand(profileGetCmd, profileSetCmd)
	historyCmd.AddCommand(historyListCmd, historyAddCmd, historyDeleteCmd)
	rootCmd.AddCommand(runCmd, profileCmd, historyCmd, migrateCmd, exportCmd)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tabsync.yml"
	}
	return filepath.Join(home, ".config", "tabsync", "tabsync.yml")
}

// components is everything a command needs, wired from config.
type components struct {
	cfg      config.Config
	store    store.Store
	file     *store.FileStore // nil for the sqlite backend
	sqlite   *store.SQLiteStore
	bus      *notify.Bus
	profiles *profile.Cache
	records  *history.Cache
}

func (c *components) close() {
	if c.sqlite != nil {
		if err := c.sqlite.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close store: %v\n", err)
		}
	}
}

// setup loads config, applies flag overrides, and wires the store and
// caches.
func setup() (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if storeDir != "" {
		cfg.StoreDir = storeDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	if cfg.LogFile != "" {
		if err := logger.SetLogFile(cfg.LogFile); err != nil {
			return nil, err
		}
	}

	c := &components{cfg: cfg, bus: notify.NewBus()}

	switch cfg.StoreBackend {
	case "sqlite":
		if err := os.MkdirAll(cfg.StoreDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		c.sqlite, err = store.NewSQLiteStore(filepath.Join(cfg.StoreDir, "tabsync.db"))
		if err != nil {
			return nil, err
		}
		c.store = c.sqlite
	default:
		c.file, err = store.NewFileStore(cfg.StoreDir)
		if err != nil {
			return nil, err
		}
		c.store = c.file
	}

	var remote *api.Client
	if cfg.APIBaseURL != "" {
		remote = api.NewWithBaseURL(cfg.APIToken, cfg.APIBaseURL)
	}

	c.profiles = profile.NewCache(c.store, c.bus, remote)
	c.records = history.NewCache(c.store, c.bus, remote)
	return c, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.close()
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := legacy.Migrate(ctx, c.store, c.profiles, c.records)
	if result.ProfileMigrated > 0 || result.RecordsMigrated > 0 {
		fmt.Printf("migrated legacy data: profile=%d records=%d\n",
			result.ProfileMigrated, result.RecordsMigrated)
	}

	var watcher *notify.Watcher
	if c.file != nil {
		watcher, err = notify.NewWatcher(func(key string) bool {
			return c.file.WroteRecently(key, 2*store.TriggerClearDelay)
		})
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := watcher.Start(c.file.Dir()); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer watcher.Stop()
		fmt.Printf("watching store at %s\n", c.file.Dir())
	}

	engineCfg := syncer.Config{
		SyncInterval:      c.cfg.SyncInterval.Std(),
		FocusCooldown:     c.cfg.FocusCooldown.Std(),
		HeartbeatInterval: c.cfg.HeartbeatInterval.Std(),
		Version:           version,
	}
	engine := syncer.New(c.store, c.profiles, c.records, c.bus, nil, watcher, engineCfg)

	fmt.Println("sync daemon running, press Ctrl+C to stop")
	return engine.Run(ctx)
}

func runProfileGet(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.close()

	p := c.profiles.Get(cmd.Context())
	if p == nil {
		fmt.Println("no profile stored")
		return nil
	}
	return printJSON(p)
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.close()

	// Start from the stored profile so unspecified flags keep their
	// values; Save replaces the whole record.
	p := profile.Profile{}
	if current := c.profiles.Get(cmd.Context()); current != nil {
		p = *current
	}
	if setFullname != "" {
		p.Fullname = setFullname
	}
	if setEmail != "" {
		p.Email = setEmail
	}
	if setAvatar != "" {
		p.Avatar = setAvatar
	}
	if setBio != "" {
		p.Bio = setBio
	}

	saved, err := c.profiles.Save(cmd.Context(), p)
	if err != nil {
		return err
	}
	return printJSON(saved)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.close()

	return printJSON(c.records.GetAll())
}

func runHistoryAdd(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.close()

	r := history.Record{
		Score:       addScore,
		HealthIndex: addHealthIdx,
	}
	if addDetailJSON != "" {
		if !json.Valid([]byte(addDetailJSON)) {
			return fmt.Errorf("invalid details JSON")
		}
		r.Details = json.RawMessage(addDetailJSON)
	}

	saved, err := c.records.Add(cmd.Context(), r)
	if err != nil {
		return err
	}
	return printJSON(saved)
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.close()

	ids := make([]history.FlexID, len(args))
	for i, a := range args {
		ids[i] = history.FlexID(a)
	}
	removed := c.records.DeleteMany(cmd.Context(), ids)
	fmt.Printf("removed %d record(s)\n", removed)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.close()

	result := legacy.Migrate(cmd.Context(), c.store, c.profiles, c.records)
	fmt.Printf("profile=%d records=%d skipped=%d\n",
		result.ProfileMigrated, result.RecordsMigrated, result.Skipped)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.close()

	fmt.Print(export.Markdown(c.profiles.Get(cmd.Context()), c.records.GetAll()))
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
