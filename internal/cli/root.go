package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/ogulcanaydogan/Financial-Alarm/internal/config"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/categorizer"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/engine"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgFile string
	userID  string
)

var rootCmd = &cobra.Command{
	Use:   "falarm",
	Short: "Financial Alarm - rule-driven alerts for bank account activity",
	Long: `Financial Alarm evaluates alert rules against an account's balance and
transactions and records deduplicated alerts: low balance, large transactions,
category limits, spending spikes, new subscriptions and payday reminders.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.falarm/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user to operate on (default: defaults.user_id)")
}

// app bundles what most commands need.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  storage.Storage
	engine *engine.Engine
	cat    *categorizer.Categorizer
	user   string
}

// newApp loads configuration and wires the store and engine.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logging.NewLogger(os.Stderr)

	cat, err := categorizer.FromConfig(cfg.Categories.File)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	eng := engine.New(store, cfg.Alerts.Notifiers(), logger,
		engine.WithPassTimeout(cfg.Engine.Timeout()),
		engine.WithParallelism(cfg.Engine.Parallelism),
		engine.WithCategorizer(cat),
	)

	user := userID
	if user == "" {
		user = cfg.Defaults.UserID
	}

	return &app{cfg: cfg, logger: logger, store: store, engine: eng, cat: cat, user: user}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

var severityStyles = map[model.Severity]lipgloss.Style{
	model.SeverityInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("#36a64f")),
	model.SeverityWarning:  lipgloss.NewStyle().Foreground(lipgloss.Color("#ff9900")).Bold(true),
	model.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff0000")).Bold(true),
}

// severityBadge renders a severity for terminal tables.
func severityBadge(s model.Severity) string {
	style, ok := severityStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}
