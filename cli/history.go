package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalcall/config"
)

// NewHistoryCmd creates the "history" subcommand.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dispatches from the journal",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().Bool("json", false, "Print entries as JSON")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return exitError(exitValidation, "--limit must be non-negative")
	}

	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.cfg.Journal.Driver != config.JournalSQLite {
		fmt.Fprintf(cmd.ErrOrStderr(), "journal driver %q does not persist across runs\n", env.cfg.Journal.Driver)
	}

	entries, err := env.dispatcher.Journal().Recent(cmd.Context(), limit)
	if err != nil {
		return exitError(exitRuntime, "reading journal: %v", err)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return exitError(exitRuntime, "encoding entries: %v", err)
		}
		_, _ = out.Write(append(data, '\n'))
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "STARTED\tREQUEST ID\tTOOL\tSTATUS\tCODE\tDURATION")
	for _, entry := range entries {
		status := "ok"
		code := "-"
		if !entry.Success {
			status = "failed"
			code = entry.ErrorCode
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%dms\n",
			entry.StartedAt.Local().Format(time.DateTime),
			entry.RequestID,
			entry.ToolName,
			status,
			code,
			entry.DurationMS,
		)
	}
	return writer.Flush()
}
