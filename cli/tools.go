package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalcall/tool"
)

// NewToolsCmd creates the "tools" command group.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect registered tools",
	}

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsInspectCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools",
		Args:  cobra.NoArgs,
		RunE:  runToolsList,
	}
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tPARAMETERS\tSCHEMA")
	for _, t := range env.dispatcher.Registry().List() {
		params := make([]string, 0, len(t.Parameters()))
		for _, p := range t.Parameters() {
			params = append(params, p.Name+":"+string(p.Type))
		}
		parameters := strings.Join(params, ",")
		if parameters == "" {
			parameters = "-"
		}
		schema := "no"
		if _, ok := t.SchemaDocument(); ok {
			schema = "yes"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n", t.Name(), parameters, schema)
	}
	return writer.Flush()
}

func newToolsInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <name>",
		Short: "Show a tool descriptor",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolsInspect,
	}
	cmd.Flags().Bool("schema", false, "Print the raw schema document only")
	return cmd
}

func runToolsInspect(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	name := args[0]
	t, ok := env.dispatcher.Registry().Get(name)
	if !ok {
		return exitError(exitToolNotFound, "tool %q is not registered", name)
	}

	out := cmd.OutOrStdout()
	schemaOnly, _ := cmd.Flags().GetBool("schema")
	if schemaOnly {
		if _, ok := t.SchemaDocument(); !ok {
			return exitError(exitValidation, "tool %q has no schema", name)
		}
		fmt.Fprintln(out, strings.TrimSpace(t.Schema()))
		return nil
	}

	data, err := json.MarshalIndent(t.Descriptor(), "", "  ")
	if err != nil {
		return exitError(exitRuntime, "encoding descriptor: %v", err)
	}
	_, _ = out.Write(append(data, '\n'))
	return nil
}

// writeResult prints a dispatch result as text or as JSON.
func writeResult(cmd *cobra.Command, res tool.Result) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	if !asJSON {
		fmt.Fprintln(out, res.Output)
		return nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return exitError(exitRuntime, "encoding result: %v", err)
	}
	_, _ = out.Write(append(data, '\n'))
	return nil
}
