package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/Seqflow/internal/engine"
)

func newGraphCmd(a *app) *cobra.Command {
	var designFile string

	cmd := &cobra.Command{
		Use:   "graph <workflow>",
		Short: "Print the resolved step graph in Graphviz format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reg, err := a.storage(ctx, args[0], designFile)
			if err != nil {
				return err
			}
			_, w, err := a.loadWorkflow(ctx, reg, args[0], designFile)
			if err != nil {
				return err
			}

			return a.output(cmd, false).Text(engine.ToDOT(w))
		},
	}

	cmd.Flags().StringVar(&designFile, "design", "", "design file overriding the workflow design")

	return cmd
}
