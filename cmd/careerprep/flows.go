package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yungbote/careerprep-backend/internal/app"
)

func flowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Inspect and run prompt flows",
	}
	cmd.AddCommand(flowsListCmd(), flowsRunCmd())
	return cmd
}

func flowsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered flows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, err := app.NewFlows(app.LoadConfig())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tDESCRIPTION")
			for _, d := range reg.Describe() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.Version, d.Description)
			}
			return w.Flush()
		},
	}
}

func flowsRunCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run one flow against the configured model provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			_, reg, err := app.NewFlows(cfg)
			if err != nil {
				return err
			}
			if _, ok := reg.Get(args[0]); !ok {
				return fmt.Errorf("unknown flow %q, see `careerprep flows list`", args[0])
			}
			ctx := cmd.Context()
			model, err := app.NewModel(ctx, log, cfg)
			if err != nil {
				return err
			}
			out, rec, err := reg.RunJSON(ctx, model, args[0], raw)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"output": out, "invocation": rec})
		},
	}
	cmd.Flags().StringVar(&input, "input", "-", "JSON input file, - for stdin")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
