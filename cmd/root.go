package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"wiser/scope/internal/config"
	"wiser/scope/internal/ctxlog"
	"wiser/scope/internal/db"
)

var (
	dbPath    string
	configDir string
	logLevel  string
	logFormat string

	// appConfig is loaded before any subcommand runs.
	appConfig = config.Default()
)

var rootCmd = &cobra.Command{
	Use:          "scope",
	Short:        "Scope 1/2/3 attribution of life-cycle impact scores",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configDir)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		appConfig = cfg

		logger := ctxlog.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
		cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		return nil
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to .scope.db database")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "Directory containing scope.yml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

// DiscoverDB finds the database path using priority: env > flag > config > walk-up > XDG fallback
func DiscoverDB() (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv("SCOPE_DB"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	// 2. CLI flag
	if dbPath != "" {
		if _, err := os.Stat(dbPath); err == nil {
			return dbPath, nil
		}
		return "", fmt.Errorf("database not found at --db path: %s", dbPath)
	}

	// 3. scope.yml
	if appConfig.Database != "" {
		if _, err := os.Stat(appConfig.Database); err == nil {
			return appConfig.Database, nil
		}
		return "", fmt.Errorf("database not found at configured path: %s", appConfig.Database)
	}

	// 4. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, ".scope.db")
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 5. XDG fallback
	if xdgPath, err := xdgDBPath(); err == nil {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", fmt.Errorf("no .scope.db found (set SCOPE_DB, use --db, or run 'scope init')")
}

func xdgDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "scope", "scope.db"), nil
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	return db.OpenDB(path)
}

// ResolveActivity finds an activity by numeric ID, exact code, code prefix,
// or name search.
func ResolveActivity(d *db.DB, reference string) (*db.Activity, error) {
	// 1. Numeric ID
	if id, err := strconv.ParseInt(reference, 10, 64); err == nil {
		if a, err := d.GetActivity(id); err == nil {
			return a, nil
		}
	}

	// 2. Exact code
	if a, err := d.GetActivityByCode(reference); err == nil {
		return a, nil
	}

	// 3. Code prefix (≥3 chars)
	if len(reference) >= 3 {
		matches, err := d.SearchByCodePrefix(reference, 10)
		if err == nil {
			switch len(matches) {
			case 1:
				return &matches[0], nil
			case 0:
				// fall through to name search
			default:
				return nil, ambiguous(reference, matches, "Use a full activity code instead.")
			}
		}
	}

	// 4. Name search
	found, err := d.SearchActivities(reference, 10)
	if err == nil {
		switch len(found) {
		case 1:
			return &found[0], nil
		case 0:
			// fall through to not found
		default:
			return nil, ambiguous(reference, found, "Use an activity ID or code instead.")
		}
	}

	return nil, fmt.Errorf("activity not found: %s", reference)
}

func ambiguous(reference string, matches []db.Activity, hint string) error {
	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("  %5d %-12s %s", m.ID, truncTitle(m.Code, 12), truncTitle(m.Name, 50))
	}
	return fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\n%s",
		reference, len(matches), joinLines(lines), hint)
}

func joinLines(lines []string) string {
	result := ""
	for i, l := range lines {
		if i > 0 {
			result += "\n"
		}
		result += l
	}
	return result
}
