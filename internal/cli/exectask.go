package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/Seqflow/internal/scheduler"
)

func newExecTaskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    "exectask <ctxfile>",
		Short:  "Execute a single task from its context file",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reg, err := a.storage(ctx, args[0])
			if err != nil {
				return err
			}

			runner := scheduler.NewTaskRunner(scheduler.RunnerConfig{
				Modules: a.modules,
				Storage: reg,
				Logger:  a.logger,
			})

			result, err := scheduler.RunTaskFile(ctx, args[0], runner, reg)
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("%w: task #%d of step %s: %s", ErrTaskFailed, result.TaskID, result.StepID, result.Error)
			}
			return nil
		},
	}
}
