package cli

import "github.com/spf13/cobra"

// NewExecCmd creates the "exec" subcommand.
func NewExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [FILE|-]",
		Short: "Dispatch a call envelope ({\"name\": ..., \"arguments\": ...})",
		Long: `Read a call envelope as produced by an LLM function-calling response and
dispatch it. The envelope is read from FILE, or from stdin when FILE is "-"
or omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExec,
	}
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
	return cmd
}

func runExec(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	raw, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.dispatcher.ExecuteEnvelope(cmd.Context(), "", raw)
	if err != nil {
		return exitForToolError(err)
	}
	return writeResult(cmd, res)
}
