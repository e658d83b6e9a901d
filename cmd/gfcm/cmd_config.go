package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gfcm/internal/config"
)

// configKeys lists the settable keys in display order.
var configKeys = []string{
	"simulation.lambda",
	"simulation.iterations",
	"simulation.convergence_tolerance",
	"sweep.concurrency",
	"metrics.damping_factor",
	"store.enabled",
	"store.root",
	"mcp.rate_limit",
	"mcp.burst",
	"mcp.max_iterations",
	"mcp.max_concepts",
	"logging.level",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gfcm configuration",
		Long: `View and modify gfcm configuration settings.

Configuration is stored in ~/.gfcm/config.yaml. GFCM_* environment
variables override file values at load time.

Examples:
  gfcm config list                       # Show all settings
  gfcm config get simulation.lambda      # Get a specific setting
  gfcm config set simulation.lambda 2    # Set a setting
  gfcm config set logging.level debug`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd, cfg)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration (~/.gfcm/config.yaml):")
			fmt.Fprintln(out)
			rows := make([][]string, 0, len(configKeys))
			for _, key := range configKeys {
				value, _ := getConfigValue(cfg, key)
				rows = append(rows, []string{"  " + key + ":", fmt.Sprintf("%v", value)})
			}
			printRows(out, rows)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			path, err := config.Path()
			if err != nil {
				return err
			}

			// Edit the file contents only, so environment overrides are not
			// persisted.
			cfg, err := config.LoadFromFile(path)
			if errors.Is(err, os.ErrNotExist) {
				cfg = config.Default()
			} else if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.GFCMConfig, key string) (interface{}, bool) {
	switch key {
	case "simulation.lambda":
		return cfg.Simulation.Lambda, true
	case "simulation.iterations":
		return cfg.Simulation.Iterations, true
	case "simulation.convergence_tolerance":
		return cfg.Simulation.ConvergenceTolerance, true
	case "sweep.concurrency":
		return cfg.Sweep.Concurrency, true
	case "metrics.damping_factor":
		return cfg.Metrics.DampingFactor, true
	case "store.enabled":
		return cfg.Store.Enabled, true
	case "store.root":
		return cfg.Store.Root, true
	case "mcp.rate_limit":
		return cfg.MCP.RateLimit, true
	case "mcp.burst":
		return cfg.MCP.Burst, true
	case "mcp.max_iterations":
		return cfg.MCP.MaxIterations, true
	case "mcp.max_concepts":
		return cfg.MCP.MaxConcepts, true
	case "logging.level":
		return cfg.Logging.Level, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Range
// checks are left to GFCMConfig.Validate.
func setConfigValue(cfg *config.GFCMConfig, key, value string) error {
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %s", key, value)
		}
		return f, nil
	}
	parseInt := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %s", key, value)
		}
		return n, nil
	}

	var err error
	switch key {
	case "simulation.lambda":
		cfg.Simulation.Lambda, err = parseFloat()
	case "simulation.iterations":
		cfg.Simulation.Iterations, err = parseInt()
	case "simulation.convergence_tolerance":
		cfg.Simulation.ConvergenceTolerance, err = parseFloat()
	case "sweep.concurrency":
		cfg.Sweep.Concurrency, err = parseInt()
	case "metrics.damping_factor":
		cfg.Metrics.DampingFactor, err = parseFloat()
	case "store.enabled":
		cfg.Store.Enabled = value == "true" || value == "1"
	case "store.root":
		cfg.Store.Root = value
	case "mcp.rate_limit":
		cfg.MCP.RateLimit, err = parseFloat()
	case "mcp.burst":
		cfg.MCP.Burst, err = parseInt()
	case "mcp.max_iterations":
		cfg.MCP.MaxIterations, err = parseInt()
	case "mcp.max_concepts":
		cfg.MCP.MaxConcepts, err = parseInt()
	case "logging.level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return err
}
