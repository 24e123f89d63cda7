package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewCallCmd creates the "call" subcommand.
func NewCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <name>",
		Short: "Dispatch one tool with a JSON argument payload",
		Args:  cobra.ExactArgs(1),
		RunE:  runCall,
	}
	cmd.Flags().String("payload", "", "JSON argument payload")
	cmd.Flags().String("payload-file", "", "Read the JSON payload from a file (- for stdin)")
	cmd.Flags().String("id", "", "Request ID (default: generated)")
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
	cmd.MarkFlagsMutuallyExclusive("payload", "payload-file")
	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	raw, err := readPayloadFlags(cmd)
	if err != nil {
		return err
	}

	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	id, _ := cmd.Flags().GetString("id")
	res, err := env.dispatcher.ExecuteJSON(cmd.Context(), strings.TrimSpace(id), args[0], raw)
	if err != nil {
		return exitForToolError(err)
	}
	return writeResult(cmd, res)
}

func readPayloadFlags(cmd *cobra.Command) ([]byte, error) {
	inline, _ := cmd.Flags().GetString("payload")
	path, _ := cmd.Flags().GetString("payload-file")
	if path == "" {
		return []byte(inline), nil
	}
	return readInput(cmd, path)
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, exitError(exitInputParse, "reading stdin: %v", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "file not found: %s", path)
		}
		return nil, exitError(exitRuntime, "reading %s: %v", path, err)
	}
	return data, nil
}
