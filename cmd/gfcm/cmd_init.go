package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/gfcm/internal/config"
	"github.com/nvandessel/gfcm/internal/store"
)

// manifest is written to .gfcm/manifest.yaml on init.
type manifest struct {
	Version       string `yaml:"version"`
	Created       string `yaml:"created"`
	SchemaVersion int    `yaml:"schema_version"`
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize run history in the current directory",
		Long: `Create the .gfcm/ directory holding the run history database.

With --global, create ~/.gfcm/ and write a default config.yaml if none
exists.

Examples:
  gfcm init                 # Initialize ./.gfcm
  gfcm init --root maps/    # Initialize maps/.gfcm
  gfcm init --global        # Initialize ~/.gfcm and its config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			globalInit, _ := cmd.Flags().GetBool("global")
			jsonOut, _ := cmd.Flags().GetBool("json")

			result := map[string]interface{}{"status": "initialized"}

			if globalInit {
				if err := store.EnsureGlobalGfcmDir(); err != nil {
					return fmt.Errorf("failed to initialize global directory: %w", err)
				}
				gfcmDir, err := store.GlobalGfcmPath()
				if err != nil {
					return fmt.Errorf("failed to get global path: %w", err)
				}
				configPath, err := config.Path()
				if err != nil {
					return err
				}
				createdConfig := false
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					if err := config.Default().Save(configPath); err != nil {
						return fmt.Errorf("failed to write default config: %w", err)
					}
					createdConfig = true
				}
				result["path"] = gfcmDir
				result["config"] = configPath
				result["config_created"] = createdConfig

				if jsonOut {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Initialized %s\n", gfcmDir)
				if createdConfig {
					fmt.Fprintf(out, "Wrote default config to %s\n", configPath)
				}
				return nil
			}

			gfcmDir := store.LocalGfcmPath(root)
			if err := os.MkdirAll(gfcmDir, 0755); err != nil {
				return fmt.Errorf("failed to create .gfcm directory: %w", err)
			}

			manifestPath := filepath.Join(gfcmDir, "manifest.yaml")
			if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
				data, err := yaml.Marshal(manifest{
					Version:       "1.0",
					Created:       time.Now().UTC().Format(time.RFC3339),
					SchemaVersion: store.SchemaVersion,
				})
				if err != nil {
					return fmt.Errorf("failed to marshal manifest: %w", err)
				}
				if err := os.WriteFile(manifestPath, data, 0644); err != nil {
					return fmt.Errorf("failed to create manifest.yaml: %w", err)
				}
			}

			runs, err := store.NewSQLiteRunStore(root)
			if err != nil {
				return fmt.Errorf("failed to initialize run store: %w", err)
			}
			dbPath := runs.Path()
			if err := runs.Close(); err != nil {
				return fmt.Errorf("failed to close run store: %w", err)
			}

			result["path"] = gfcmDir
			result["db"] = dbPath

			if jsonOut {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initialized %s\n", gfcmDir)
			fmt.Fprintf(out, "  Run history: %s\n", dbPath)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  gfcm run -w W.csv -i I.csv    # simulate and record a run")
			fmt.Fprintln(out, "  gfcm history list             # list recorded runs")
			return nil
		},
	}

	cmd.Flags().Bool("global", false, "Initialize ~/.gfcm instead of the project directory")

	return cmd
}
