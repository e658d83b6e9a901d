package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gfcm/internal/export"
	"github.com/nvandessel/gfcm/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage recorded simulation runs",
		Long: `List, inspect, delete, export and import runs recorded in .gfcm/gfcm.db.

Examples:
  gfcm history list --limit 10
  gfcm history show <id> --centroids trace.csv
  gfcm history delete <id>
  gfcm history export -o runs.jsonl
  gfcm history import runs.jsonl
  gfcm history reset --force`,
	}

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryShowCmd(),
		newHistoryDeleteCmd(),
		newHistoryExportCmd(),
		newHistoryImportCmd(),
		newHistoryResetCmd(),
	)

	return cmd
}

// openRunStore opens the SQLite run store of the resolved project root.
func openRunStore(cmd *cobra.Command) (*store.SQLiteRunStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	runs, err := store.NewSQLiteRunStore(projectRoot(cmd, cfg))
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	return runs, nil
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			runs, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer runs.Close()

			summaries, err := runs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"runs":  summaries,
					"count": len(summaries),
				})
			}

			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			rows := [][]string{{"ID", "Created", "Concepts", "Lambda", "N", "Name"}}
			for _, s := range summaries {
				rows = append(rows, []string{
					s.ID,
					s.CreatedAt.Local().Format(time.DateTime),
					fmt.Sprintf("%d", s.Concepts),
					fmt.Sprintf("%g", s.Lambda),
					fmt.Sprintf("%d", s.Iterations),
					s.Name,
				})
			}
			printRows(out, rows)
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum runs to list (0 for all)")

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the trace of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			withFuzzy, _ := cmd.Flags().GetBool("fuzzy")
			centroidsPath, _ := cmd.Flags().GetString("centroids")

			runs, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer runs.Close()

			run, err := runs.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tr := run.Trace()

			if centroidsPath != "" {
				if err := writeFile(centroidsPath, func(w io.Writer) error {
					return export.WriteCentroidsCSV(w, tr)
				}); err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd, run)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s", run.ID)
			if run.Name != "" {
				fmt.Fprintf(out, " (%s)", run.Name)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Created: %s\n", run.CreatedAt.Local().Format(time.DateTime))
			if run.Source != "" {
				fmt.Fprintf(out, "Source:  %s\n", run.Source)
			}
			fmt.Fprintln(out)
			printTrace(out, tr, withFuzzy)
			if centroidsPath != "" {
				fmt.Fprintf(out, "\nWrote %s\n", centroidsPath)
			}
			return nil
		},
	}

	cmd.Flags().Bool("fuzzy", false, "Include the fuzzy state of every iteration")
	cmd.Flags().String("centroids", "", "Write centroids per iteration to this CSV file")

	return cmd
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			runs, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer runs.Close()

			if err := runs.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"status": "deleted",
					"id":     args[0],
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

func newHistoryExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every run as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath, _ := cmd.Flags().GetString("output")

			runs, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer runs.Close()

			if outputPath == "" {
				_, err := store.ExportJSONL(cmd.Context(), runs, cmd.OutOrStdout())
				return err
			}

			var count int
			if err := writeFile(outputPath, func(w io.Writer) error {
				var err error
				count, err = store.ExportJSONL(cmd.Context(), runs, w)
				return err
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d runs to %s\n", count, outputPath)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")

	return cmd
}

func newHistoryImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import runs written by history export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			runs, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer runs.Close()

			count, err := store.ImportJSONL(cmd.Context(), runs, f)
			if err != nil {
				return fmt.Errorf("import after %d runs: %w", count, err)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"status":   "imported",
					"imported": count,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d runs\n", count)
			return nil
		},
	}
}

func newHistoryResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every recorded run and recreate the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			force, _ := cmd.Flags().GetBool("force")

			// JSON mode implies force (no interactive prompts)
			if jsonOut {
				force = true
			}

			runs, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer runs.Close()

			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete every run in %s?\n", runs.Path())
				fmt.Fprint(cmd.OutOrStdout(), "\nConfirm? [y/N]: ")
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.TrimSpace(strings.ToLower(response))
				if response != "y" && response != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			if err := runs.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("reset run store: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]interface{}{
					"status": "reset",
					"path":   runs.Path(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Run history cleared.")
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Skip confirmation prompt")

	return cmd
}
