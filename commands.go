package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/cranecheck/internal/checklist"
	"github.com/oszuidwest/cranecheck/internal/config"
	"github.com/oszuidwest/cranecheck/internal/notify"
	"github.com/oszuidwest/cranecheck/internal/session"
	"github.com/oszuidwest/cranecheck/internal/tui"
	"github.com/oszuidwest/cranecheck/internal/util"
)

const (
	shutdownTimeout   = 5 * time.Second
	notifyTestTimeout = 30 * time.Second
)

var (
	configPath    string
	checklistsDir string

	servePort      int
	serveChecklist string
	serveImages    string

	runChecklist string
	runLogFile   string

	alertLogLimit int
)

var rootCmd = &cobra.Command{
	Use:   "cranecheck",
	Short: "Pre-operation crane inspection checklist",
	Long: `cranecheck walks an inspector through a crane pre-operation checklist:
identity fields, a fixed sequence of yes/no questions, and a pass/fail
summary. Failed inspections can raise webhook, email and log alerts.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web checklist",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the checklist in the terminal",
	Args:  cobra.NoArgs,
	RunE:  runTerminal,
}

var checklistsCmd = &cobra.Command{
	Use:   "checklists",
	Short: "Inspect checklist definitions",
}

var checklistsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available checklists",
	Args:  cobra.NoArgs,
	RunE:  runChecklistsList,
}

var checklistsValidateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate checklist definition files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChecklistsValidate,
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Failed-inspection alerts",
}

var notifyTestCmd = &cobra.Command{
	Use:       "test webhook|email|log",
	Short:     "Send a test alert on one channel",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"webhook", "email", "log"},
	RunE:      runNotifyTest,
}

var notifyLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the most recent entries of the alert log",
	Args:  cobra.NoArgs,
	RunE:  runNotifyLog,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionLine())
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: config.json next to binary)")
	rootCmd.PersistentFlags().StringVar(&checklistsDir, "checklists", "", "Directory of extra checklist definitions")

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Web server port (overrides config)")
	serveCmd.Flags().StringVar(&serveChecklist, "checklist", "", "Checklist ID to serve (overrides config)")
	serveCmd.Flags().StringVar(&serveImages, "images", "", "Directory of question images (overrides config)")

	runCmd.Flags().StringVar(&runChecklist, "checklist", "", "Checklist ID to run (overrides config)")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Write logs to this file while the terminal UI runs")

	notifyLogCmd.Flags().IntVar(&alertLogLimit, "limit", 20, "Maximum number of entries to show")

	checklistsCmd.AddCommand(checklistsListCmd, checklistsValidateCmd)
	notifyCmd.AddCommand(notifyTestCmd, notifyLogCmd)
	rootCmd.AddCommand(serveCmd, runCmd, checklistsCmd, notifyCmd, versionCmd)
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig(o config.Overrides) (*config.Config, error) {
	path := configPath
	if path == "" {
		execPath, err := os.Executable()
		if err != nil {
			return nil, util.WrapError("get executable path", err)
		}
		path = filepath.Join(filepath.Dir(execPath), "config.json")
	}
	slog.Info("using config file", "path", path)

	cfg := config.New(path)
	if err := cfg.Load(); err != nil {
		return nil, util.WrapError("load config", err)
	}

	o.ChecklistsDir = checklistsDir
	if err := cfg.Apply(o); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadCatalog returns the built-in checklists plus those in the configured
// directory.
func loadCatalog(cfg *config.Config) (*checklist.Catalog, error) {
	cat, err := checklist.Builtin()
	if err != nil {
		return nil, util.WrapError("load built-in checklists", err)
	}
	if dir := cfg.ChecklistsDir(); dir != "" {
		if err := cat.LoadDir(dir); err != nil {
			return nil, err
		}
		slog.Info("loaded checklist directory", "dir", dir)
	}
	return cat, nil
}

// activeChecklist returns the checklist selected by the configuration.
func activeChecklist(cfg *config.Config) (*checklist.Checklist, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	cl, err := cat.Get(cfg.ActiveChecklist())
	if err != nil {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(cat.IDs(), ", "))
	}
	return cl, nil
}

// completionHook logs finished inspections and hands them to the notifier.
func completionHook(n *notify.InspectionNotifier) session.CompletionFunc {
	return func(r session.Report) {
		slog.Info("inspection completed",
			"inspection_id", r.ID,
			"checklist", r.ChecklistID,
			"inspector", r.Inspector(),
			"verdict", r.Verdict,
			"failed", len(r.Failed))
		n.HandleReport(r)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig(config.Overrides{
		WebPort:   servePort,
		Checklist: serveChecklist,
		ImagesDir: serveImages,
	})
	if err != nil {
		return err
	}
	cl, err := activeChecklist(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := notify.NewInspectionNotifier(cfg)
	version := NewVersionChecker(cfg.VersionCheckEnabled())
	version.Start(ctx)

	srv, err := NewServer(cfg, cl, completionHook(notifier), version)
	if err != nil {
		return err
	}

	// Start web server.
	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	srv.Stop()
	notifier.Wait()

	slog.Info("shutdown complete")
	return nil
}

func runTerminal(_ *cobra.Command, _ []string) error {
	// Log output would corrupt the full-screen UI.
	logOut := io.Discard
	if runLogFile != "" {
		f, err := os.OpenFile(runLogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return util.WrapError("open log file", err)
		}
		defer util.SafeClose(f, "log file")
		logOut = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, nil)))

	cfg, err := loadConfig(config.Overrides{Checklist: runChecklist})
	if err != nil {
		return err
	}
	cl, err := activeChecklist(cfg)
	if err != nil {
		return err
	}

	notifier := notify.NewInspectionNotifier(cfg)
	ctrl := session.NewController(cl, session.WithCompletionHook(completionHook(notifier)))
	err = tui.Run(ctrl)
	notifier.Wait()
	return err
}

func runChecklistsList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(config.Overrides{})
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	active := cfg.ActiveChecklist()
	for _, cl := range cat.All() {
		marker := " "
		if cl.ID == active {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-22s %2d questions  pass=%s fail=%s  %s\n",
			marker, cl.ID, cl.Len(), cl.Responses.Pass, cl.Responses.Fail, cl.Title)
	}
	return nil
}

func runChecklistsValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	invalid := 0
	for _, file := range args {
		cl, err := checklist.LoadFile(file)
		if err != nil {
			invalid++
			fmt.Fprintf(out, "FAIL %s: %v\n", file, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%s, %d questions)\n", file, cl.ID, cl.Len())
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d definitions invalid", invalid, len(args))
	}
	return nil
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(config.Overrides{})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), notifyTestTimeout)
	defer cancel()

	channel := args[0]
	if err := notify.NewInspectionNotifier(cfg).Test(ctx, channel); err != nil {
		return fmt.Errorf("test %s: %w", channel, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "test %s sent\n", channel)
	return nil
}

func runNotifyLog(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(config.Overrides{})
	if err != nil {
		return err
	}
	snap := cfg.Snapshot()
	if !snap.HasLogPath() {
		return errors.New("no alert log configured (notifications.log_path)")
	}

	entries, err := notify.ReadAlertLog(snap.LogPath, alertLogLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %-18s %-10s %s", util.FormatHumanTime(e.Timestamp), e.Event, e.Checklist, e.Inspector)
		if len(e.FailedItems) > 0 {
			fmt.Fprintf(out, "  failed: %s", strings.Join(e.FailedItems, "; "))
		}
		fmt.Fprintln(out)
	}
	return nil
}
