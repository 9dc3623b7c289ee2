package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"wiser/scope/internal/ctxlog"
	"wiser/scope/internal/db"
)

var initXDG bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create and seed a new inventory database",
	Long:  "Creates .scope.db in the current directory (or at --db / the XDG data dir) with the carbon dioxide flow and the IPCC method registered.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := initPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("database already exists: %s", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}

		d, err := db.OpenDB(path)
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.SeedDefaults(); err != nil {
			return err
		}
		ctxlog.FromContext(cmd.Context()).Info("database created", "path", path)
		fmt.Printf("Initialized %s\n", path)
		return nil
	},
}

func initPath() (string, error) {
	switch {
	case dbPath != "":
		return dbPath, nil
	case initXDG:
		return xdgDBPath()
	case appConfig.Database != "":
		return appConfig.Database, nil
	}
	return ".scope.db", nil
}

func init() {
	initCmd.Flags().BoolVar(&initXDG, "xdg", false, "Create the database under ~/.local/share/scope")
	rootCmd.AddCommand(initCmd)
}
